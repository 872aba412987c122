package telegram

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/engine"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/telegram_bot/service"
	"signal_bot/internal/retrain"
)

func Module() fx.Option {
	return fx.Module("telegram",
		// 1. Клиент; при telegram.enabled=false — nil, сигналы уйдут в лог
		fx.Provide(
			func(cfg *config.Config) (*service.Telegram, error) {
				if !cfg.Telegram.Enabled {
					return nil, nil
				}
				return service.NewTelegram(cfg)
			},
		),
		// 2. Команды управляют движком, polling живёт вместе с приложением
		fx.Invoke(
			func(lc fx.Lifecycle, t *service.Telegram, eng *engine.Engine, sched *retrain.Scheduler) {
				if t == nil {
					return
				}
				t.Bind(eng, sched)

				var cancel context.CancelFunc
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						var ctx context.Context
						ctx, cancel = context.WithCancel(context.Background())
						t.Start(ctx)
						return nil
					},
					OnStop: func(context.Context) error {
						if cancel != nil {
							cancel()
						}
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
