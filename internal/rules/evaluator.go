// Package rules: многофакторное решение Long/Short/ничего по двум строкам признаков.
package rules

import (
	"fmt"
	"time"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
)

// Коды причин отказа.
const (
	ReasonOutsideWindow   = "outside_window"
	ReasonZeroRange       = "zero_range"
	ReasonWeakBody        = "weak_body"
	ReasonCompressedTrend = "compressed_trend"
	ReasonRangeBound      = "range_bound"
	ReasonNoSetup         = "no_setup"
	ReasonLong            = "long_setup"
	ReasonShort           = "short_setup"
)

type Config struct {
	// окно внутри часа, минуты [WindowFrom, WindowTo)
	WindowFrom int `yaml:"window_from" default:"0"`
	WindowTo   int `yaml:"window_to" default:"20"`

	MinBodyRatio  float64 `yaml:"min_body_ratio" default:"0.6"`
	TrendSepFrac  float64 `yaml:"trend_sep_frac" default:"0.05"`
	MaxWeakBodies int     `yaml:"max_weak_bodies" default:"7"`

	LongRSIMin  float64 `yaml:"long_rsi_min" default:"40"`
	LongRSIMax  float64 `yaml:"long_rsi_max" default:"65"`
	ShortRSIMin float64 `yaml:"short_rsi_min" default:"35"`
	ShortRSIMax float64 `yaml:"short_rsi_max" default:"60"`

	WickMultiple float64 `yaml:"wick_multiple" default:"1.5"`
}

func DefaultConfig() Config {
	return Config{
		WindowFrom:    0,
		WindowTo:      20,
		MinBodyRatio:  0.6,
		TrendSepFrac:  0.05,
		MaxWeakBodies: 7,
		LongRSIMin:    40,
		LongRSIMax:    65,
		ShortRSIMin:   35,
		ShortRSIMax:   60,
		WickMultiple:  1.5,
	}
}

func (c Config) Validate() error {
	if c.WindowFrom < 0 || c.WindowTo > 60 || c.WindowFrom >= c.WindowTo {
		return fmt.Errorf("rules: bad minute window [%d,%d)", c.WindowFrom, c.WindowTo)
	}
	if c.LongRSIMin >= c.LongRSIMax || c.ShortRSIMin >= c.ShortRSIMax {
		return fmt.Errorf("rules: bad rsi bands")
	}
	if c.MinBodyRatio <= 0 || c.MinBodyRatio >= 1 || c.WickMultiple <= 0 || c.TrendSepFrac < 0 {
		return fmt.Errorf("rules: ratios out of range")
	}
	return nil
}

// Decision: итог оценки. Side=SideNone означает «нет сигнала», Reason объясняет почему.
type Decision struct {
	Side   models.Side
	Reason string
}

func (d Decision) IsSignal() bool { return d.Side != models.SideNone }

type Evaluator struct {
	cfg Config
}

func NewEvaluator(cfg Config) *Evaluator { return &Evaluator{cfg: cfg} }

func (e *Evaluator) Config() Config { return e.cfg }

// Evaluate: cur это подтверждающая (последняя закрытая) свеча, prev — свеча отбоя от уровня.
// at: время открытия cur, окно внутри часа проверяется по нему, а не по времени тика.
// Свеча, открытая в :19, закрывается в :20 и всё ещё проходит окно [0, 20).
func (e *Evaluator) Evaluate(cur, prev indicator.Features, at time.Time) Decision {
	c := e.cfg

	// 1) окно по времени
	if m := at.Minute(); m < c.WindowFrom || m >= c.WindowTo {
		return none(ReasonOutsideWindow)
	}

	// 2) качество свечи
	if !cur.HasRange {
		return none(ReasonZeroRange)
	}
	if cur.BodyRatio < c.MinBodyRatio {
		return none(ReasonWeakBody)
	}

	// 3) тренд не сжат, рынок не во флэте
	if cur.EMADistance() <= c.TrendSepFrac*(cur.Resistance-cur.Support) {
		return none(ReasonCompressedTrend)
	}
	if cur.WeakBodies >= c.MaxWeakBodies {
		return none(ReasonRangeBound)
	}

	// 4) направление
	switch {
	case cur.EMAFast > cur.EMASlow && e.long(cur, prev):
		return Decision{Side: models.SideLong, Reason: ReasonLong}
	case cur.EMAFast < cur.EMASlow && e.short(cur, prev):
		return Decision{Side: models.SideShort, Reason: ReasonShort}
	}
	return none(ReasonNoSetup)
}

func (e *Evaluator) long(cur, prev indicator.Features) bool {
	c := e.cfg
	return cur.RSI >= c.LongRSIMin && cur.RSI <= c.LongRSIMax &&
		cur.MACDHist > 0 &&
		cur.StochK > cur.StochKPrev &&
		cur.ATR > cur.ATRMean &&
		prev.HasRange && prev.NearSupport() &&
		prev.LowerWick >= c.WickMultiple*prev.Body
}

func (e *Evaluator) short(cur, prev indicator.Features) bool {
	c := e.cfg
	return cur.RSI >= c.ShortRSIMin && cur.RSI <= c.ShortRSIMax &&
		cur.MACDHist < 0 &&
		cur.StochK < cur.StochKPrev &&
		cur.ATR > cur.ATRMean &&
		prev.HasRange && prev.NearResistance() &&
		prev.UpperWick >= c.WickMultiple*prev.Body
}

func none(reason string) Decision { return Decision{Side: models.SideNone, Reason: reason} }
