package retrain

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/filter"
	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
)

var t0 = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func walk(n int, seed int64) []models.Candle {
	rnd := rand.New(rand.NewSource(seed))
	out := make([]models.Candle, n)
	price := 100.0
	for i := range out {
		o := price
		c := o + rnd.NormFloat64()
		out[i] = models.Candle{
			Time:  t0.Add(time.Duration(i) * time.Minute),
			Open:  o,
			High:  math.Max(o, c) + rnd.Float64(),
			Low:   math.Min(o, c) - rnd.Float64(),
			Close: c,
		}
		price = c
	}
	return out
}

type stubFetcher struct {
	data map[string][]models.Candle
}

func (f *stubFetcher) FetchCandles(_ context.Context, inst, _ string, lookback int) ([]models.Candle, error) {
	cs, ok := f.data[inst]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrDataUnavailable, inst)
	}
	if len(cs) > lookback {
		cs = cs[len(cs)-lookback:]
	}
	return cs, nil
}

type memClock struct{ last time.Time }

func (c *memClock) LastRetrain() time.Time     { return c.last }
func (c *memClock) MarkRetrained(at time.Time) { c.last = at }

type memSaver struct{ blob []byte }

func (s *memSaver) Save(_ context.Context, blob []byte) error {
	s.blob = blob
	return nil
}

type recNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (n *recNotifier) Send(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	return nil
}

type constModel float64

func (c constModel) ProbabilityPositive([]float64) float64 { return float64(c) }

func testConfig() Config {
	return Config{
		Interval:        6 * time.Hour,
		FailureBackoff:  30 * time.Minute,
		HistoryLookback: 500,
		MinRows:         100,
		Fit:             filter.DefaultFitOptions(),
	}
}

func newScheduler(data map[string][]models.Candle, instruments ...string) (*Scheduler, *filter.Filter, *memClock, *memSaver, *recNotifier) {
	f := filter.New()
	clock := &memClock{}
	saver := &memSaver{}
	n := &recNotifier{}
	s := NewScheduler(testConfig(), Deps{
		Instruments: instruments,
		Timeframe:   "1m",
		Params:      indicator.DefaultParams(),
		Fetcher:     &stubFetcher{data: data},
		Filter:      f,
		Store:       saver,
		Notifier:    n,
		Clock:       clock,
	})
	return s, f, clock, saver, n
}

func TestMaybeRetrain_SwapsAndPersists(t *testing.T) {
	data := map[string][]models.Candle{
		"BTC-USDT": walk(500, 1),
		"ETH-USDT": walk(500, 2),
	}
	s, f, clock, saver, n := newScheduler(data, "BTC-USDT", "SOL-USDT", "ETH-USDT")
	now := t0.Add(24 * time.Hour)

	ok, err := s.MaybeRetrain(context.Background(), now)
	require.NoError(t, err)
	require.True(t, ok)

	m, isLogistic := f.Model().(*filter.LogisticModel)
	require.True(t, isLogistic)
	// SOL недоступен, две серии по 466 строк
	assert.Equal(t, 2*466, m.Rows)
	assert.Equal(t, now, m.TrainedAt)
	assert.Equal(t, now, clock.last)

	restored, err := filter.Decode(saver.blob)
	require.NoError(t, err)
	assert.Equal(t, m.Rows, restored.Rows)
	require.Len(t, n.texts, 1)
}

func TestMaybeRetrain_NotDue(t *testing.T) {
	s, f, clock, _, _ := newScheduler(map[string][]models.Candle{"BTC-USDT": walk(500, 1)}, "BTC-USDT")
	clock.last = t0
	f.Swap(constModel(0.3))

	ok, err := s.MaybeRetrain(context.Background(), t0.Add(5*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, constModel(0.3), f.Model())

	ok, err = s.MaybeRetrain(context.Background(), t0.Add(6*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMaybeRetrain_Force(t *testing.T) {
	s, _, clock, _, _ := newScheduler(map[string][]models.Candle{"BTC-USDT": walk(500, 1)}, "BTC-USDT")
	clock.last = t0

	s.Force()
	ok, err := s.MaybeRetrain(context.Background(), t0.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, s.Due(t0.Add(2*time.Minute)))
}

func TestMaybeRetrain_InsufficientKeepsOldModel(t *testing.T) {
	// 60 свечей дают 26 строк, меньше MinRows
	s, f, clock, saver, n := newScheduler(map[string][]models.Candle{"BTC-USDT": walk(60, 1)}, "BTC-USDT")
	old := constModel(0.7)
	f.Swap(old)

	ok, err := s.MaybeRetrain(context.Background(), t0)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInsufficientTrainingData)
	assert.False(t, ok)
	assert.Equal(t, old, f.Model())
	assert.True(t, clock.last.IsZero())
	assert.Nil(t, saver.blob)
	require.Len(t, n.texts, 1)

	// после отказа ждём FailureBackoff
	assert.False(t, s.Due(t0.Add(10*time.Minute)))
	assert.True(t, s.Due(t0.Add(30*time.Minute)))
}

func TestMaybeRetrain_AllFetchesFail(t *testing.T) {
	s, f, _, _, _ := newScheduler(map[string][]models.Candle{}, "BTC-USDT", "ETH-USDT")
	ok, err := s.MaybeRetrain(context.Background(), t0)
	assert.False(t, ok)
	assert.ErrorIs(t, err, models.ErrInsufficientTrainingData)
	assert.Nil(t, f.Model())
}

func TestSamples_Labels(t *testing.T) {
	p := indicator.DefaultParams()
	cs := make([]models.Candle, 60)
	for i := range cs {
		o := 100 + float64(i)
		cs[i] = models.Candle{Time: t0.Add(time.Duration(i) * time.Minute), Open: o, High: o + 1.5, Low: o - 0.5, Close: o + 1}
	}
	samples, err := Samples(cs, p)
	require.NoError(t, err)
	// строки с индекса 33, последняя без следующей свечи
	require.Len(t, samples, 60-33-1)
	for _, s := range samples {
		assert.Equal(t, 1.0, s.Y)
		assert.Len(t, s.X, 3)
	}

	_, err = Samples(cs[:20], p)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}
