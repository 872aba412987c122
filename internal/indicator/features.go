// Package indicator считает строку признаков по окну свечей.
// Всё пересчитывается целиком на каждом тике, состояния между тиками нет.
package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/markcheno/go-talib"

	"signal_bot/internal/models"
)

// Features: снимок индикаторов на одной свече.
type Features struct {
	Time  time.Time
	Close float64

	EMAFast    float64
	EMASlow    float64
	RSI        float64
	MACDHist   float64
	StochK     float64
	StochKPrev float64
	ATR        float64
	ATRMean    float64

	Body      float64
	Range     float64
	UpperWick float64
	LowerWick float64
	BodyRatio float64 // 0 если HasRange=false
	HasRange  bool

	Support    float64
	Resistance float64
	ZoneBuffer float64

	// сколько из последних WeakWindow свечей со слабым телом
	WeakBodies int
}

// EMADistance: |fast-slow|.
func (f Features) EMADistance() float64 { return math.Abs(f.EMAFast - f.EMASlow) }

// NearSupport: close в зоне [support, support+buffer].
func (f Features) NearSupport() bool { return f.Close <= f.Support+f.ZoneBuffer }

// NearResistance: close в зоне [resistance-buffer, resistance].
func (f Features) NearResistance() bool { return f.Close >= f.Resistance-f.ZoneBuffer }

// Compute: признаки по последней свече. Меньше WarmupMin свечей — ErrInsufficientData.
func Compute(cs []models.Candle, p Params) (Features, error) {
	rows, err := Rows(cs, p)
	if err != nil {
		return Features{}, err
	}
	return rows[len(rows)-1], nil
}

// Last2: текущая и предыдущая строки.
func Last2(cs []models.Candle, p Params) (cur, prev Features, err error) {
	rows, err := Rows(cs, p)
	if err != nil {
		return Features{}, Features{}, err
	}
	if len(rows) < 2 {
		return Features{}, Features{}, fmt.Errorf("%w: need 2 feature rows, have %d", models.ErrInsufficientData, len(rows))
	}
	return rows[len(rows)-1], rows[len(rows)-2], nil
}

// Rows: признаки для каждой свечи, начиная с первой, где все индикаторы определены.
// Строки с NaN/Inf выкидываются.
func Rows(cs []models.Candle, p Params) ([]Features, error) {
	if len(cs) < p.WarmupMin || len(cs) < p.MinCandles() {
		return nil, fmt.Errorf("%w: need %d candles, have %d", models.ErrInsufficientData, max(p.WarmupMin, p.MinCandles()), len(cs))
	}

	n := len(cs)
	opens := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i, c := range cs {
		opens[i], highs[i], lows[i], closes[i] = c.Open, c.High, c.Low, c.Close
	}

	emaFast := talib.Ema(closes, p.EMAFast)
	emaSlow := talib.Ema(closes, p.EMASlow)
	rsi := talib.Rsi(closes, p.RSIPeriod)
	_, _, macdHist := talib.Macd(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	// fastD: сглаженный %K stoch RSI
	_, stochK := talib.StochRsi(closes, p.RSIPeriod, p.StochPeriod, p.StochSmooth, talib.SMA)
	atr := talib.Atr(highs, lows, closes, p.ATRPeriod)

	out := make([]Features, 0, n-p.firstIndex())
	for i := p.firstIndex(); i < n; i++ {
		f := Features{
			Time:       cs[i].Time,
			Close:      closes[i],
			EMAFast:    emaFast[i],
			EMASlow:    emaSlow[i],
			RSI:        nz(rsi[i]),
			MACDHist:   macdHist[i],
			StochK:     nz(stochK[i]),
			StochKPrev: nz(stochK[i-1]),
			ATR:        atr[i],
			ATRMean:    mean(atr[i-p.ATRMeanWindow+1 : i+1]),
			Support:    minSlice(lows[i-p.SRWindow+1 : i+1]),
			Resistance: maxSlice(highs[i-p.SRWindow+1 : i+1]),
		}
		f.ZoneBuffer = (f.Resistance - f.Support) * p.ZoneFrac
		anatomy(&f, cs[i])

		for j := i - p.WeakWindow + 1; j <= i; j++ {
			if br, ok := bodyRatio(cs[j]); !ok || br < p.MinBodyRatio {
				f.WeakBodies++
			}
		}

		if !f.finite() {
			continue
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no complete feature rows", models.ErrInsufficientData)
	}
	return out, nil
}

func anatomy(f *Features, c models.Candle) {
	f.Body = math.Abs(c.Close - c.Open)
	f.Range = c.High - c.Low
	f.UpperWick = c.High - math.Max(c.Open, c.Close)
	f.LowerWick = math.Min(c.Open, c.Close) - c.Low
	f.BodyRatio, f.HasRange = bodyRatio(c)
}

// bodyRatio: body/range, ok=false при нулевом диапазоне.
func bodyRatio(c models.Candle) (float64, bool) {
	rng := c.High - c.Low
	if rng <= 0 {
		return 0, false
	}
	return math.Abs(c.Close-c.Open) / rng, true
}

func (f Features) finite() bool {
	for _, v := range []float64{
		f.EMAFast, f.EMASlow, f.RSI, f.MACDHist, f.StochK, f.StochKPrev,
		f.ATR, f.ATRMean, f.Support, f.Resistance,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// nz: осциллятор на плоском участке делит на ноль, считаем такое значение нулём.
func nz(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

func maxSlice(xs []float64) float64 {
	m := xs[0]
	for _, v := range xs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minSlice(xs []float64) float64 {
	m := xs[0]
	for _, v := range xs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
