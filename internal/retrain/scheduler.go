// Package retrain периодически пересобирает обучающую выборку по истории всех
// инструментов и атомарно подменяет модель фильтра.
package retrain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"signal_bot/internal/filter"
	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/tracing"
)

type Config struct {
	Interval        time.Duration     `yaml:"interval" default:"6h"`
	FailureBackoff  time.Duration     `yaml:"failure_backoff" default:"30m"`
	HistoryLookback int               `yaml:"history_lookback" default:"500"`
	MinRows         int               `yaml:"min_rows" default:"100"`
	Fit             filter.FitOptions `yaml:"fit"`
}

// Fetcher: источник истории.
type Fetcher interface {
	FetchCandles(ctx context.Context, instrument, interval string, lookback int) ([]models.Candle, error)
}

// Saver: куда сохранить модель. Может быть nil.
type Saver interface {
	Save(ctx context.Context, blob []byte) error
}

type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Clock: учёт времени последнего переобучения, живёт в состоянии движка.
type Clock interface {
	LastRetrain() time.Time
	MarkRetrained(at time.Time)
}

type Deps struct {
	Instruments []string
	Timeframe   string
	Params      indicator.Params
	Fetcher     Fetcher
	Filter      *filter.Filter
	Store       Saver
	Notifier    Notifier
	Clock       Clock
}

type Scheduler struct {
	cfg  Config
	deps Deps

	mu          sync.Mutex // одно переобучение за раз
	lastFailure time.Time
	force       atomic.Bool
}

func NewScheduler(cfg Config, deps Deps) *Scheduler {
	return &Scheduler{cfg: cfg, deps: deps}
}

// Force: переобучиться при следующей проверке, не дожидаясь интервала.
func (s *Scheduler) Force() { s.force.Store(true) }

// Due: пора ли переобучаться.
func (s *Scheduler) Due(now time.Time) bool {
	if s.force.Load() {
		return true
	}
	if !s.lastFailure.IsZero() && now.Sub(s.lastFailure) < s.cfg.FailureBackoff {
		return false
	}
	last := s.deps.Clock.LastRetrain()
	return last.IsZero() || now.Sub(last) >= s.cfg.Interval
}

// MaybeRetrain: false без ошибки, если интервал ещё не прошёл.
// При нехватке данных старая модель остаётся, оператор получает уведомление.
func (s *Scheduler) MaybeRetrain(ctx context.Context, now time.Time) (retrained bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Due(now) {
		return false, nil
	}
	s.force.Store(false)

	span, ctx := tracing.StartSpan(ctx, "retrain")
	defer func() { tracing.Finish(span, err) }()

	samples := s.collect(ctx)
	span.SetTag("rows", len(samples))

	if len(samples) == 0 || len(samples) < s.cfg.MinRows {
		s.lastFailure = now
		err = fmt.Errorf("%w: %d rows, need %d", models.ErrInsufficientTrainingData, len(samples), s.cfg.MinRows)
		s.notify(ctx, fmt.Sprintf("⚠️ Переобучение пропущено: %d строк, нужно %d. Оставляю прежнюю модель.", len(samples), s.cfg.MinRows))
		return false, err
	}

	m, err := filter.FitLogistic(samples, s.cfg.Fit)
	if err != nil {
		s.lastFailure = now
		return false, err
	}
	m.TrainedAt = now

	// 1) подменяем модель
	s.deps.Filter.Swap(m)
	s.deps.Clock.MarkRetrained(now)
	s.lastFailure = time.Time{}

	// 2) сохраняем, ошибка сохранения не откатывает модель
	if s.deps.Store != nil {
		blob, encErr := filter.Encode(m)
		if encErr == nil {
			encErr = s.deps.Store.Save(ctx, blob)
		}
		if encErr != nil {
			logger.Error("retrain: persist model: %v", encErr)
		}
	}

	logger.Info("retrain: model swapped, rows=%d", len(samples))
	s.notify(ctx, fmt.Sprintf("🧠 Модель переобучена на %d строках.", len(samples)))
	return true, nil
}

// collect: выборка по всем инструментам; инструмент, по которому фид упал, пропускается.
func (s *Scheduler) collect(ctx context.Context) []filter.Sample {
	var out []filter.Sample
	for _, inst := range s.deps.Instruments {
		cs, err := s.deps.Fetcher.FetchCandles(ctx, inst, s.deps.Timeframe, s.cfg.HistoryLookback)
		if err != nil {
			logger.Error("retrain: fetch %s: %v", inst, err)
			continue
		}
		rows, err := Samples(cs, s.deps.Params)
		if err != nil {
			if !errors.Is(err, models.ErrInsufficientData) {
				logger.Error("retrain: features %s: %v", inst, err)
			}
			continue
		}
		out = append(out, rows...)
	}
	return out
}

// Samples: размеченные строки по одной серии: 1 если следующая свеча закрылась выше.
// Последняя строка без следующей свечи отбрасывается.
func Samples(cs []models.Candle, p indicator.Params) ([]filter.Sample, error) {
	rows, err := indicator.Rows(cs, p)
	if err != nil {
		return nil, err
	}

	nextClose := make(map[int64]float64, len(cs))
	for i := 0; i+1 < len(cs); i++ {
		nextClose[cs[i].Time.UnixNano()] = cs[i+1].Close
	}

	out := make([]filter.Sample, 0, len(rows))
	for _, r := range rows {
		next, ok := nextClose[r.Time.UnixNano()]
		if !ok {
			continue
		}
		y := 0.0
		if next > r.Close {
			y = 1
		}
		out = append(out, filter.Sample{X: filter.Vector(r), Y: y})
	}
	return out, nil
}

func (s *Scheduler) notify(ctx context.Context, text string) {
	if s.deps.Notifier == nil {
		return
	}
	if err := s.deps.Notifier.Send(ctx, text); err != nil {
		logger.Error("retrain: notify: %v", err)
	}
}
