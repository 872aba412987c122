package indicator

import "fmt"

// Params: периоды индикаторов. Нули заменяются дефолтами в Normalize.
type Params struct {
	EMAFast       int     `yaml:"ema_fast" default:"8"`
	EMASlow       int     `yaml:"ema_slow" default:"21"`
	RSIPeriod     int     `yaml:"rsi_period" default:"14"`
	MACDFast      int     `yaml:"macd_fast" default:"12"`
	MACDSlow      int     `yaml:"macd_slow" default:"26"`
	MACDSignal    int     `yaml:"macd_signal" default:"9"`
	StochPeriod   int     `yaml:"stoch_period" default:"14"`
	StochSmooth   int     `yaml:"stoch_smooth" default:"3"`
	ATRPeriod     int     `yaml:"atr_period" default:"14"`
	ATRMeanWindow int     `yaml:"atr_mean_window" default:"20"`
	SRWindow      int     `yaml:"sr_window" default:"30"`
	ZoneFrac      float64 `yaml:"zone_frac" default:"0.1"`
	WeakWindow    int     `yaml:"weak_window" default:"10"`
	MinBodyRatio  float64 `yaml:"min_body_ratio" default:"0.6"`
	WarmupMin     int     `yaml:"warmup_min" default:"35"`
}

func DefaultParams() Params {
	return Params{
		EMAFast:       8,
		EMASlow:       21,
		RSIPeriod:     14,
		MACDFast:      12,
		MACDSlow:      26,
		MACDSignal:    9,
		StochPeriod:   14,
		StochSmooth:   3,
		ATRPeriod:     14,
		ATRMeanWindow: 20,
		SRWindow:      30,
		ZoneFrac:      0.1,
		WeakWindow:    10,
		MinBodyRatio:  0.6,
		WarmupMin:     35,
	}
}

// firstIndex: первый индекс свечи, на котором определены все признаки
// (включая предыдущее значение stoch RSI).
func (p Params) firstIndex() int {
	idx := p.EMASlow - 1
	idx = max(idx, p.EMAFast-1)
	idx = max(idx, p.MACDSlow-1+p.MACDSignal-1)
	idx = max(idx, p.RSIPeriod+p.StochPeriod-1+p.StochSmooth-1+1)
	idx = max(idx, p.ATRPeriod+p.ATRMeanWindow-1)
	idx = max(idx, p.SRWindow-1)
	idx = max(idx, p.WeakWindow-1)
	return idx
}

// MinCandles: минимум свечей, чтобы посчитать хотя бы одну строку.
func (p Params) MinCandles() int { return p.firstIndex() + 1 }

func (p Params) Validate() error {
	if p.EMAFast <= 1 || p.EMASlow <= p.EMAFast {
		return fmt.Errorf("indicator: ema_fast=%d must be > 1 and < ema_slow=%d", p.EMAFast, p.EMASlow)
	}
	if p.MACDFast <= 1 || p.MACDSlow <= p.MACDFast || p.MACDSignal <= 1 {
		return fmt.Errorf("indicator: bad macd periods %d/%d/%d", p.MACDFast, p.MACDSlow, p.MACDSignal)
	}
	if p.RSIPeriod <= 1 || p.StochPeriod <= 1 || p.StochSmooth <= 0 || p.ATRPeriod <= 1 {
		return fmt.Errorf("indicator: periods must be positive")
	}
	if p.ATRMeanWindow <= 0 || p.SRWindow <= 0 || p.WeakWindow <= 0 {
		return fmt.Errorf("indicator: windows must be positive")
	}
	if p.ZoneFrac <= 0 || p.MinBodyRatio <= 0 || p.MinBodyRatio >= 1 {
		return fmt.Errorf("indicator: zone_frac/min_body_ratio out of range")
	}
	if p.WarmupMin < p.MinCandles() {
		return fmt.Errorf("indicator: warmup_min=%d, need at least %d candles", p.WarmupMin, p.MinCandles())
	}
	return nil
}
