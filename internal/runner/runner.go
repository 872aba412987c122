package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"signal_bot/internal/engine"
	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

type Ticker interface {
	Tick(ctx context.Context, now time.Time) (engine.TickResult, error)
}

type Retrainer interface {
	MaybeRetrain(ctx context.Context, now time.Time) (bool, error)
}

// Health: отметки для /healthz и счётчик переобучений для /metrics.
type Health interface {
	TouchTick(t time.Time)
	TouchRetrain(t time.Time)
	ObserveRetrain(result string)
}

type Config struct {
	Tick       time.Duration
	Backoff    time.Duration
	CheckEvery time.Duration
}

// Runner крутит два цикла: тик движка и проверку переобучения.
type Runner struct {
	cfg    Config
	eng    Ticker
	sched  Retrainer
	health Health
	now    func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, eng Ticker, sched Retrainer, health Health) *Runner {
	return &Runner{cfg: cfg, eng: eng, sched: sched, health: health, now: time.Now}
}

func (r *Runner) Start(parent context.Context) {
	var ctx context.Context
	ctx, r.cancel = context.WithCancel(parent)

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		r.loop(ctx, "tick", r.tickOnce)
	}()
	go func() {
		defer r.wg.Done()
		r.loop(ctx, "retrain", r.retrainOnce)
	}()
	logger.Info("[RUNNER] ▶️ started: tick=%s retrain check=%s", r.cfg.Tick, r.cfg.CheckEvery)
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	logger.Info("[RUNNER] ⏹ stopped")
}

// loop: step возвращает паузу до следующего шага.
func (r *Runner) loop(ctx context.Context, name string, step func(ctx context.Context) time.Duration) {
	for {
		d := step(ctx)
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			logger.Info("[RUNNER] %s loop done", name)
			return
		case <-t.C:
		}
	}
}

// tickOnce: один тик движка. Ошибка данных по всем инструментам — ждём backoff, не тик.
func (r *Runner) tickOnce(ctx context.Context) time.Duration {
	now := r.now()
	res, err := r.eng.Tick(ctx, now)
	if r.health != nil {
		r.health.TouchTick(now)
	}
	if err != nil {
		logger.Error("[TICK] %v", err)
		return r.cfg.Backoff
	}

	switch {
	case res.Skipped:
	case res.Published != nil:
		logger.Info("[TICK] published %s %s @ %.6f", res.Published.Instrument, res.Published.Side, res.Published.Price)
	case len(res.Candidates) > 0:
		logger.Info("[TICK] %d candidates, none passed the filter", len(res.Candidates))
	}
	if len(res.Failed) > 0 {
		logger.Warn("[TICK] no data: %v", res.Failed)
	}
	return r.cfg.Tick
}

func (r *Runner) retrainOnce(ctx context.Context) time.Duration {
	now := r.now()
	ok, err := r.sched.MaybeRetrain(ctx, now)
	switch {
	case errors.Is(err, models.ErrInsufficientTrainingData):
		logger.Warn("[RETRAIN] skipped: %v", err)
		r.observe("skipped")
	case err != nil:
		logger.Error("[RETRAIN] %v", err)
		r.observe("error")
	case ok:
		r.observe("ok")
		if r.health != nil {
			r.health.TouchRetrain(now)
		}
	}
	return r.cfg.CheckEvery
}

func (r *Runner) observe(result string) {
	if r.health != nil {
		r.health.ObserveRetrain(result)
	}
}
