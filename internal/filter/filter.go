// Package filter отсекает сигналы правил по вероятности от обученной модели.
package filter

import (
	"fmt"
	"sync/atomic"

	"github.com/go-playground/validator/v10"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
)

// Thresholds: пороги уверенности. Risky используется вне нейтральной зоны RSI.
type Thresholds struct {
	Normal float64 `validate:"gt=0,lt=1"`
	Risky  float64 `validate:"gt=0,lt=1"`
}

var validate = validator.New()

// Validate: оба порога строго в (0,1), иначе ErrValidation. Не клампим.
func (t Thresholds) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: confidence normal=%v risky=%v: %v", models.ErrValidation, t.Normal, t.Risky, err)
	}
	return nil
}

// Vector: вектор признаков для модели: [rsi, |ema_fast-ema_slow|, body_ratio].
func Vector(f indicator.Features) []float64 {
	return []float64{f.RSI, f.EMADistance(), f.BodyRatio}
}

// Verdict: решение фильтра. Probability=-1, если модель не спрашивали.
type Verdict struct {
	Allowed     bool
	Probability float64
	Threshold   float64
}

type modelBox struct {
	m Model
}

type Filter struct {
	model atomic.Pointer[modelBox]

	// нейтральная зона RSI [NeutralLow, NeutralHigh]
	NeutralLow  float64
	NeutralHigh float64
}

func New() *Filter {
	return &Filter{NeutralLow: 45, NeutralHigh: 60}
}

// Swap атомарно подменяет модель. nil снимает модель (фильтр пропускает всё).
func (f *Filter) Swap(m Model) {
	if m == nil {
		f.model.Store(nil)
		return
	}
	f.model.Store(&modelBox{m: m})
}

// Model: текущая модель или nil.
func (f *Filter) Model() Model {
	if b := f.model.Load(); b != nil {
		return b.m
	}
	return nil
}

// Evaluate: при выключенном AI или без модели пропускает всё.
// Модель оценивает рост следующего close, для Short с порогом сравнивается 1-p.
func (f *Filter) Evaluate(feat indicator.Features, side models.Side, aiEnabled bool, th Thresholds) Verdict {
	if !aiEnabled {
		return Verdict{Allowed: true, Probability: -1}
	}
	m := f.Model()
	if m == nil {
		return Verdict{Allowed: true, Probability: -1}
	}

	threshold := th.Normal
	if feat.RSI < f.NeutralLow || feat.RSI > f.NeutralHigh {
		threshold = th.Risky
	}
	p := m.ProbabilityPositive(Vector(feat))
	if side == models.SideShort {
		p = 1 - p
	}
	return Verdict{Allowed: p >= threshold, Probability: p, Threshold: threshold}
}

func (f *Filter) Allows(feat indicator.Features, side models.Side, aiEnabled bool, th Thresholds) bool {
	return f.Evaluate(feat, side, aiEnabled, th).Allowed
}
