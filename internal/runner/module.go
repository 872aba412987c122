package runner

import (
	"context"
	"time"

	"go.uber.org/fx"

	"signal_bot/internal/engine"
	"signal_bot/internal/modules/config"
	healthsvc "signal_bot/internal/modules/health/service"
	"signal_bot/internal/retrain"
)

// health: State и Metrics вместе.
type health struct {
	*healthsvc.State
	*healthsvc.Metrics
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			func(cfg *config.Config, eng *engine.Engine, sched *retrain.Scheduler, st *healthsvc.State, m *healthsvc.Metrics) *Runner {
				return New(Config{
					Tick:       cfg.Tick,
					Backoff:    cfg.Backoff,
					CheckEvery: cfg.CheckEvery,
				}, eng, sched, health{State: st, Metrics: m})
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, r *Runner) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					r.Start(context.Background())
					return nil
				},
				OnStop: func(ctx context.Context) error {
					done := make(chan struct{})
					go func() {
						r.Stop()
						close(done)
					}()
					select {
					case <-done:
					case <-ctx.Done():
					case <-time.After(30 * time.Second):
					}
					return nil
				},
			})
		}),
	)
}
