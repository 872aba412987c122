// Package engine: тик: обновить буферы, посчитать признаки, прогнать правила и фильтр,
// опубликовать не больше одного сигнала. Плюс операции управления состоянием.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"signal_bot/internal/candles"
	"signal_bot/internal/filter"
	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
	"signal_bot/internal/outcome"
	"signal_bot/internal/rules"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/tracing"
)

type Fetcher interface {
	FetchCandles(ctx context.Context, instrument, interval string, lookback int) ([]models.Candle, error)
}

type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Observer: счётчики для метрик. Может быть nil.
type Observer interface {
	ObserveTick()
	ObserveFetchError(instrument string)
	ObserveCandidate(sig models.Signal)
	ObservePublished(sig models.Signal)
}

// FeaturesFunc: текущая и предыдущая строки признаков по окну свечей.
type FeaturesFunc func(cs []models.Candle, p indicator.Params) (cur, prev indicator.Features, err error)

type Config struct {
	Instruments []string
	Timeframe   string
	Lookback    int
	BufferCap   int
	Stake       float64
	Params      indicator.Params
	Rules       rules.Config
	Initial     State
}

type Deps struct {
	Fetcher  Fetcher
	Notifier Notifier
	Filter   *filter.Filter
	Tracker  *outcome.Tracker
	Observer Observer
	Features FeaturesFunc // nil — indicator.Last2
}

// TickResult: итог одного тика.
type TickResult struct {
	Skipped    bool // бот остановлен
	Published  *models.Signal
	Candidates []models.Signal
	Report     *outcome.Report
	Failed     []string // инструменты без данных
}

type Engine struct {
	cfg       Config
	deps      Deps
	evaluator *rules.Evaluator

	// tickMu: series и lastEval: тик и прогрев
	tickMu   sync.Mutex
	series   map[string]*candles.Series
	lastEval map[string]time.Time

	mu    sync.Mutex
	state State
}

func New(cfg Config, deps Deps) *Engine {
	if deps.Features == nil {
		deps.Features = indicator.Last2
	}
	if cfg.BufferCap <= 0 {
		cfg.BufferCap = candles.DefaultCapacity
	}
	if cfg.Lookback <= 0 || cfg.Lookback > cfg.BufferCap {
		cfg.Lookback = cfg.BufferCap
	}

	e := &Engine{
		cfg:       cfg,
		deps:      deps,
		evaluator: rules.NewEvaluator(cfg.Rules),
		series:    make(map[string]*candles.Series, len(cfg.Instruments)),
		lastEval:  make(map[string]time.Time, len(cfg.Instruments)),
		state:     cfg.Initial,
	}
	for _, inst := range cfg.Instruments {
		e.series[inst] = candles.NewSeries(inst, cfg.BufferCap)
	}
	return e
}

func (e *Engine) Instruments() []string { return e.cfg.Instruments }

func (e *Engine) Timeframe() string { return e.cfg.Timeframe }

// Seed заливает историю в буфер до первого тика.
func (e *Engine) Seed(instrument string, cs []models.Candle) (int, error) {
	s, ok := e.series[instrument]
	if !ok {
		return 0, fmt.Errorf("%w: unknown instrument %q", models.ErrValidation, instrument)
	}
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	return s.Merge(cs)
}

// Tick: один проход по инструментам в порядке конфигурации, публикуется первый принятый сигнал.
func (e *Engine) Tick(ctx context.Context, now time.Time) (res TickResult, err error) {
	span, ctx := tracing.StartSpan(ctx, "engine.tick")
	defer func() { tracing.Finish(span, err) }()

	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	if e.deps.Observer != nil {
		e.deps.Observer.ObserveTick()
	}

	// 1) суточный отчёт
	if rep, ok := e.deps.Tracker.MaybeDailyReport(now); ok {
		res.Report = &rep
		e.send(ctx, rep.Text())
	}
	e.mu.Lock()
	e.state.LastReportDay = e.deps.Tracker.LastReportDay()
	st := e.state
	e.mu.Unlock()

	if !st.Active {
		res.Skipped = true
		return res, nil
	}

	var fetchErrs []error
	for _, inst := range e.cfg.Instruments {
		sig, ok, ferr := e.evaluate(ctx, inst, st)
		if ferr != nil {
			fetchErrs = append(fetchErrs, ferr)
			res.Failed = append(res.Failed, inst)
			continue
		}
		if !ok {
			continue
		}
		res.Candidates = append(res.Candidates, sig)
		if !sig.AcceptedByFilter {
			continue
		}

		// 2) публикуем и ждём отметки результата
		e.send(ctx, FormatSignal(sig, e.cfg.Stake, e.cfg.Timeframe))
		e.deps.Tracker.Push(sig)
		if e.deps.Observer != nil {
			e.deps.Observer.ObservePublished(sig)
		}
		res.Published = &sig
		break
	}

	if len(fetchErrs) > 0 && len(fetchErrs) == len(e.cfg.Instruments) {
		return res, errors.Join(fetchErrs...)
	}
	return res, nil
}

// evaluate: сигнал по инструменту. ok=false — сигнала нет, err — только сбой фида.
func (e *Engine) evaluate(ctx context.Context, inst string, st State) (models.Signal, bool, error) {
	series := e.series[inst]

	fresh, err := e.deps.Fetcher.FetchCandles(ctx, inst, e.cfg.Timeframe, e.cfg.Lookback)
	if err != nil {
		logger.Error("tick: fetch %s: %v", inst, err)
		if e.deps.Observer != nil {
			e.deps.Observer.ObserveFetchError(inst)
		}
		return models.Signal{}, false, fmt.Errorf("fetch %s: %w", inst, err)
	}
	if _, err := series.Merge(fresh); err != nil {
		logger.Error("tick: merge %s: %v", inst, err)
	}

	cur, prev, err := e.deps.Features(series.All(), e.cfg.Params)
	if err != nil {
		if !errors.Is(err, models.ErrInsufficientData) {
			logger.Error("tick: features %s: %v", inst, err)
		}
		return models.Signal{}, false, nil
	}

	// по одной свече решаем один раз
	if last, seen := e.lastEval[inst]; seen && !cur.Time.After(last) {
		return models.Signal{}, false, nil
	}
	e.lastEval[inst] = cur.Time

	d := e.evaluator.Evaluate(cur, prev, cur.Time)
	if !d.IsSignal() {
		return models.Signal{}, false, nil
	}

	v := e.deps.Filter.Evaluate(cur, d.Side, st.AIEnabled, st.Thresholds())
	sig := models.Signal{
		Instrument:       inst,
		Side:             d.Side,
		Time:             cur.Time,
		Price:            cur.Close,
		AcceptedByFilter: v.Allowed,
		Probability:      v.Probability,
		Reason:           d.Reason,
	}
	if e.deps.Observer != nil {
		e.deps.Observer.ObserveCandidate(sig)
	}
	if !v.Allowed {
		logger.Info("tick: %s %s suppressed, p=%.3f < %.2f", inst, sig.Side, v.Probability, v.Threshold)
	}
	return sig, true, nil
}

func (e *Engine) send(ctx context.Context, text string) {
	if e.deps.Notifier == nil {
		return
	}
	if err := e.deps.Notifier.Send(ctx, text); err != nil {
		logger.Error("notify: %v", err)
	}
}

// Snapshot: копия состояния.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Execute применяет команду и выполняет её эффект.
func (e *Engine) Execute(cmd Command) (Effect, error) {
	e.mu.Lock()
	next, eff, err := Apply(e.state, cmd)
	if err != nil {
		e.mu.Unlock()
		return Effect{}, err
	}
	e.state = next
	e.mu.Unlock()

	if eff.Record != "" {
		resolved, err := e.deps.Tracker.Record(eff.Record)
		if err != nil {
			return Effect{}, err
		}
		eff.Reply = formatResolved(resolved, e.deps.Tracker.Counters())
	}
	logger.Info("control: %s applied", cmd.Kind)
	return eff, nil
}

func (e *Engine) SetActive(on bool) error {
	_, err := e.Execute(SetActive(on))
	return err
}

func (e *Engine) SetAIEnabled(on bool) error {
	_, err := e.Execute(SetAIEnabled(on))
	return err
}

func (e *Engine) SetConfidence(normal, risky float64) error {
	_, err := e.Execute(SetConfidence(normal, risky))
	return err
}

func (e *Engine) RecordOutcome(o models.Outcome) error {
	_, err := e.Execute(RecordOutcome(o))
	return err
}

func (e *Engine) Stats() outcome.Counters { return e.deps.Tracker.Counters() }

// LastRetrain и MarkRetrained: учёт для планировщика переобучения.
func (e *Engine) LastRetrain() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.LastRetrain
}

func (e *Engine) MarkRetrained(at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.LastRetrain = at
}
