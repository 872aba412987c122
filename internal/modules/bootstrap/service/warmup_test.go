package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/filter"
	"signal_bot/internal/models"
)

type stubFetcher struct {
	fail map[string]bool
}

func (s stubFetcher) FetchCandles(_ context.Context, inst, _ string, lookback int) ([]models.Candle, error) {
	if s.fail[inst] {
		return nil, models.ErrDataUnavailable
	}
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	out := make([]models.Candle, lookback)
	for i := range out {
		out[i] = models.Candle{Time: base.Add(time.Duration(i) * time.Minute), Open: 1, High: 2, Low: 0.5, Close: 1.5}
	}
	return out, nil
}

type stubTarget struct {
	mu      sync.Mutex
	seeded  map[string]int
	trained time.Time
}

func (s *stubTarget) Instruments() []string { return []string{"BTC-USDT", "ETH-USDT"} }
func (s *stubTarget) Timeframe() string     { return "1m" }
func (s *stubTarget) Seed(inst string, cs []models.Candle) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeded[inst] = len(cs)
	return len(cs), nil
}
func (s *stubTarget) MarkRetrained(at time.Time) { s.trained = at }

type memStore struct {
	blob []byte
	err  error
}

func (m *memStore) Load(context.Context) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.blob == nil {
		return nil, models.ErrModelNotFound
	}
	return m.blob, nil
}
func (m *memStore) Save(_ context.Context, b []byte) error { m.blob = b; return nil }

type recNotifier struct{ msgs []string }

func (r *recNotifier) Send(_ context.Context, text string) error {
	r.msgs = append(r.msgs, text)
	return nil
}

func TestLoadModel_Restores(t *testing.T) {
	trained := time.Date(2025, 3, 9, 6, 0, 0, 0, time.UTC)
	m := &filter.LogisticModel{Mean: []float64{0, 0, 0}, Std: []float64{1, 1, 1}, Weights: []float64{1, 0, 0}, Rows: 10, TrainedAt: trained}
	blob, err := filter.Encode(m)
	require.NoError(t, err)

	f := filter.New()
	target := &stubTarget{seeded: map[string]int{}}
	w := NewWarmuper(stubFetcher{}, target, f, &memStore{blob: blob}, nil, 50)

	ok, err := w.LoadModel(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, f.Model())
	assert.True(t, trained.Equal(target.trained))
}

func TestLoadModel_MissingIsFailOpen(t *testing.T) {
	f := filter.New()
	w := NewWarmuper(stubFetcher{}, &stubTarget{seeded: map[string]int{}}, f, &memStore{}, nil, 50)

	ok, err := w.LoadModel(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, f.Model())
}

func TestLoadModel_Errors(t *testing.T) {
	f := filter.New()
	target := &stubTarget{seeded: map[string]int{}}

	_, err := NewWarmuper(stubFetcher{}, target, f, &memStore{err: errors.New("conn refused")}, nil, 50).LoadModel(context.Background())
	assert.Error(t, err)

	_, err = NewWarmuper(stubFetcher{}, target, f, &memStore{blob: []byte("{garbage")}, nil, 50).LoadModel(context.Background())
	assert.Error(t, err)
	assert.Nil(t, f.Model())
}

func TestWarmup_SeedsAll(t *testing.T) {
	target := &stubTarget{seeded: map[string]int{}}
	n := &recNotifier{}
	w := NewWarmuper(stubFetcher{}, target, filter.New(), nil, n, 60)

	require.NoError(t, w.Warmup(context.Background()))
	assert.Equal(t, map[string]int{"BTC-USDT": 60, "ETH-USDT": 60}, target.seeded)
	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0], "✅")
}

func TestWarmup_PartialFailure(t *testing.T) {
	target := &stubTarget{seeded: map[string]int{}}
	n := &recNotifier{}
	w := NewWarmuper(stubFetcher{fail: map[string]bool{"ETH-USDT": true}}, target, filter.New(), nil, n, 60)

	err := w.Warmup(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
	assert.Equal(t, 60, target.seeded["BTC-USDT"])
	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0], "⚠️")
}
