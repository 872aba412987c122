package market

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
	healthsvc "signal_bot/internal/modules/health/service"
	"signal_bot/internal/modules/market/service"
)

// Module: рыночные данные: REST OKX + опциональный WS-кэш закрытых свечей.
func Module() fx.Option {
	return fx.Module("market",
		fx.Provide(
			service.NewClient,
			func(cfg *config.Config) *service.Cache {
				return service.NewCache(cfg.BufferCap)
			},
			func(cfg *config.Config, c *service.Client, cache *service.Cache) *service.Feed {
				return service.NewFeed(c, cache, cfg.Timeframe)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, c *service.Client, feed *service.Feed, state *healthsvc.State) {
			if !cfg.Market.WSEnabled {
				return
			}
			c.OnConnState(state.SetWSConnected)

			var cancel context.CancelFunc
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					var ctx context.Context
					ctx, cancel = context.WithCancel(context.Background())
					stream := c.StreamCandlesBatch(ctx, cfg.Instruments, cfg.Timeframe)
					go func() {
						defer close(done)
						feed.Run(stream)
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					if cancel != nil {
						cancel()
					}
					select {
					case <-done:
					case <-ctx.Done():
					}
					return nil
				},
			})
		}),
	)
}
