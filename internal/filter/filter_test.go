package filter

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
)

type constModel float64

func (c constModel) ProbabilityPositive([]float64) float64 { return float64(c) }

var defaultTh = Thresholds{Normal: 0.58, Risky: 0.65}

func TestFilter_FailOpenWhenDisabled(t *testing.T) {
	f := New()
	f.Swap(constModel(0))

	for _, rsi := range []float64{0, 30, 50, 70, 100} {
		v := f.Evaluate(indicator.Features{RSI: rsi}, models.SideLong, false, defaultTh)
		assert.True(t, v.Allowed)
		assert.Equal(t, -1.0, v.Probability)
	}
}

func TestFilter_FailOpenWithoutModel(t *testing.T) {
	f := New()
	assert.Nil(t, f.Model())
	assert.True(t, f.Allows(indicator.Features{RSI: 50}, models.SideLong, true, defaultTh))

	f.Swap(constModel(0.1))
	f.Swap(nil)
	assert.True(t, f.Allows(indicator.Features{RSI: 50}, models.SideLong, true, defaultTh))
}

func TestFilter_RegimeThresholds(t *testing.T) {
	f := New()
	f.Swap(constModel(0.60))

	// нейтральная зона — normal 0.58
	v := f.Evaluate(indicator.Features{RSI: 50}, models.SideLong, true, defaultTh)
	assert.True(t, v.Allowed)
	assert.Equal(t, 0.58, v.Threshold)

	// края зоны ещё нейтральные
	assert.True(t, f.Allows(indicator.Features{RSI: 45}, models.SideLong, true, defaultTh))
	assert.True(t, f.Allows(indicator.Features{RSI: 60}, models.SideLong, true, defaultTh))

	// вне зоны — risky 0.65
	v = f.Evaluate(indicator.Features{RSI: 44.9}, models.SideLong, true, defaultTh)
	assert.False(t, v.Allowed)
	assert.Equal(t, 0.65, v.Threshold)
	assert.False(t, f.Allows(indicator.Features{RSI: 61}, models.SideLong, true, defaultTh))
}

func TestFilter_SuppressesBelowNormal(t *testing.T) {
	f := New()
	f.Swap(constModel(0.50))
	v := f.Evaluate(indicator.Features{RSI: 50}, models.SideLong, true, defaultTh)
	assert.False(t, v.Allowed)
	assert.Equal(t, 0.50, v.Probability)

	f.Swap(constModel(0.58))
	assert.True(t, f.Allows(indicator.Features{RSI: 50}, models.SideLong, true, defaultTh))
}

func TestFilter_ShortUsesComplement(t *testing.T) {
	f := New()

	// модель уверена в падении: Short проходит, Long нет
	f.Swap(constModel(0.2))
	v := f.Evaluate(indicator.Features{RSI: 50}, models.SideShort, true, defaultTh)
	assert.True(t, v.Allowed)
	assert.InDelta(t, 0.8, v.Probability, 1e-12)
	assert.False(t, f.Allows(indicator.Features{RSI: 50}, models.SideLong, true, defaultTh))

	// модель уверена в росте: Short отсекается
	f.Swap(constModel(0.9))
	v = f.Evaluate(indicator.Features{RSI: 50}, models.SideShort, true, defaultTh)
	assert.False(t, v.Allowed)
	assert.InDelta(t, 0.1, v.Probability, 1e-12)

	// вне нейтральной зоны для Short тоже risky
	f.Swap(constModel(0.38))
	v = f.Evaluate(indicator.Features{RSI: 40}, models.SideShort, true, defaultTh)
	assert.False(t, v.Allowed)
	assert.Equal(t, 0.65, v.Threshold)

	// fail-open не зависит от стороны
	assert.True(t, f.Allows(indicator.Features{RSI: 50}, models.SideShort, false, defaultTh))
}

func TestThresholds_Validate(t *testing.T) {
	require.NoError(t, defaultTh.Validate())

	for _, th := range []Thresholds{
		{Normal: 0, Risky: 0.5},
		{Normal: 0.5, Risky: 1},
		{Normal: -0.1, Risky: 0.5},
		{Normal: 0.5, Risky: 1.5},
	} {
		err := th.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrValidation)
	}
}

func TestVector(t *testing.T) {
	v := Vector(indicator.Features{RSI: 55, EMAFast: 10, EMASlow: 12, BodyRatio: 0.7})
	assert.Equal(t, []float64{55, 2, 0.7}, v)
}

// pairModel: два поля, которые в одной модели всегда равны.
type pairModel struct{ a, b float64 }

func (m *pairModel) ProbabilityPositive([]float64) float64 { return m.a + m.b }

func TestFilter_SwapIsAtomicForReaders(t *testing.T) {
	f := New()
	f.Swap(&pairModel{a: 0.1, b: 0.1})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	bad := make(chan float64, 1)

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				p := f.Model().ProbabilityPositive(nil)
				if p != 0.2 && p != 0.8 {
					select {
					case bad <- p:
					default:
					}
					return
				}
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		if i%2 == 0 {
			f.Swap(&pairModel{a: 0.4, b: 0.4})
		} else {
			f.Swap(&pairModel{a: 0.1, b: 0.1})
		}
	}
	close(stop)
	wg.Wait()

	select {
	case p := <-bad:
		t.Fatalf("reader saw hybrid model: %v", p)
	default:
	}
}
