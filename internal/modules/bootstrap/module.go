package bootstrap

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/engine"
	"signal_bot/internal/filter"
	"signal_bot/internal/modelstore"
	bootstrap "signal_bot/internal/modules/bootstrap/service"
	"signal_bot/internal/modules/config"
	healthsvc "signal_bot/internal/modules/health/service"
	market "signal_bot/internal/modules/market/service"
	"signal_bot/internal/notify"
	"signal_bot/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			func(cfg *config.Config, feed *market.Feed, eng *engine.Engine, f *filter.Filter, store modelstore.Store, n *notify.Fanout) *bootstrap.Warmuper {
				return bootstrap.NewWarmuper(feed, eng, f, store, n, cfg.BufferCap)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, wu *bootstrap.Warmuper, state *healthsvc.State) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					// битая модель — это не повод не стартовать, фильтр пропустит всё до переобучения
					if _, err := wu.LoadModel(ctx); err != nil {
						logger.Error("[BOOT] %v", err)
					}
					go func() {
						if err := wu.Warmup(context.Background()); err != nil {
							logger.Error("[BOOT] warmup error: %v", err)
						}
						state.SetReady(true)
					}()
					return nil
				},
			})
		}),
	)
}
