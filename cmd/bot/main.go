package main

import (
	"context"

	"go.uber.org/fx"

	"signal_bot/internal/modules/bootstrap"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/health"
	"signal_bot/internal/modules/market"
	"signal_bot/internal/modules/signals"
	"signal_bot/internal/modules/storage"
	telegram "signal_bot/internal/modules/telegram_bot"
	"signal_bot/internal/runner"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/tracing"
)

const serviceName = "signal_bot"

func main() {
	logger.SetServiceName(serviceName)
	tracing.SetServiceName(serviceName)

	app := fx.New(
		fx.NopLogger,
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		fx.Invoke(setupObservability),
		health.Module(),
		storage.Module(),
		market.Module(),
		telegram.Module(),
		signals.Module(),
		bootstrap.Module(),
		runner.Module(),
	)
	if err := app.Err(); err != nil {
		logger.Fatal("app init: %v", err)
	}
	app.Run()
}

// setupObservability: уровень логов из конфига и jaeger, если включён.
func setupObservability(lc fx.Lifecycle, cfg *config.Config) error {
	if err := logger.Init(cfg.LogLevel); err != nil {
		return err
	}
	lc.Append(fx.StopHook(logger.Sync))

	if !cfg.Tracing.Enabled {
		return nil
	}
	_, closer, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		logger.Error("tracing disabled: %v", err)
		return nil
	}
	lc.Append(fx.StopHook(closer))
	return nil
}
