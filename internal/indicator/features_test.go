package indicator

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/models"
)

var t0 = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func flatCandles(n int, price float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{
			Time:  t0.Add(time.Duration(i) * time.Minute),
			Open:  price,
			High:  price + 1,
			Low:   price - 1,
			Close: price,
		}
	}
	return out
}

func walkCandles(n int, seed int64) []models.Candle {
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

func TestDefaultParamsValid(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Validate())
	assert.LessOrEqual(t, p.MinCandles(), p.WarmupMin)
}

func TestParamsValidate_WarmupTooShort(t *testing.T) {
	p := DefaultParams()
	p.WarmupMin = 10
	require.Error(t, p.Validate())

	p = DefaultParams()
	p.EMAFast = 30
	require.Error(t, p.Validate())
}

func TestCompute_InsufficientData(t *testing.T) {
	p := DefaultParams()
	_, err := Compute(flatCandles(p.WarmupMin-1, 100), p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInsufficientData))

	_, err = Compute(nil, p)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestCompute_ConstantSeries(t *testing.T) {
	p := DefaultParams()
	f, err := Compute(flatCandles(60, 100), p)
	require.NoError(t, err)

	assert.InDelta(t, 100, f.EMAFast, 1e-9)
	assert.InDelta(t, 100, f.EMASlow, 1e-9)
	assert.InDelta(t, f.EMAFast, f.EMASlow, 1e-9)
	assert.InDelta(t, 0, f.MACDHist, 1e-9)
	assert.InDelta(t, 2, f.ATR, 1e-9)
	assert.InDelta(t, 2, f.ATRMean, 1e-9)
	assert.Equal(t, 99.0, f.Support)
	assert.Equal(t, 101.0, f.Resistance)
	assert.InDelta(t, 0.2, f.ZoneBuffer, 1e-9)
	// тело нулевое у всех свечей
	assert.Equal(t, p.WeakWindow, f.WeakBodies)
	assert.Equal(t, t0.Add(59*time.Minute), f.Time)
}

func TestRows_RSIBounds(t *testing.T) {
	p := DefaultParams()
	cs := walkCandles(500, 7)
	rows, err := Rows(cs, p)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	for _, f := range rows {
		assert.GreaterOrEqual(t, f.RSI, 0.0)
		assert.LessOrEqual(t, f.RSI, 100.0)
		assert.GreaterOrEqual(t, f.Resistance, f.Support)
		assert.GreaterOrEqual(t, f.Body, 0.0)
		assert.GreaterOrEqual(t, f.UpperWick, 0.0)
		assert.GreaterOrEqual(t, f.LowerWick, 0.0)
		assert.LessOrEqual(t, f.BodyRatio, 1.0)
	}
	assert.Equal(t, cs[len(cs)-1].Time, rows[len(rows)-1].Time)
	assert.Len(t, rows, len(cs)-p.firstIndex())
}

func TestRows_MonotoneUptrendRSIHigh(t *testing.T) {
	p := DefaultParams()
	cs := make([]models.Candle, 80)
	for i := range cs {
		o := 100 + float64(i)
		cs[i] = models.Candle{Time: t0.Add(time.Duration(i) * time.Minute), Open: o, High: o + 1.2, Low: o - 0.1, Close: o + 1}
	}
	f, err := Compute(cs, p)
	require.NoError(t, err)
	assert.InDelta(t, 100, f.RSI, 1e-6)
	assert.Greater(t, f.EMAFast, f.EMASlow)
}

func TestCompute_ZeroRangeGuard(t *testing.T) {
	p := DefaultParams()
	cs := walkCandles(60, 3)
	last := cs[len(cs)-1]
	last.Open, last.High, last.Low, last.Close = 100, 100, 100, 100
	cs[len(cs)-1] = last

	f, err := Compute(cs, p)
	require.NoError(t, err)
	assert.False(t, f.HasRange)
	assert.Zero(t, f.BodyRatio)
	assert.Zero(t, f.Range)
	assert.False(t, math.IsNaN(f.BodyRatio))
}

func TestLast2(t *testing.T) {
	p := DefaultParams()
	cs := walkCandles(100, 11)
	cur, prev, err := Last2(cs, p)
	require.NoError(t, err)
	assert.Equal(t, cs[99].Time, cur.Time)
	assert.Equal(t, cs[98].Time, prev.Time)
	assert.Equal(t, prev.StochK, cur.StochKPrev)

	_, _, err = Last2(cs[:p.MinCandles()], p)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}
