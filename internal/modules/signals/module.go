package signals

import (
	"go.uber.org/fx"

	"signal_bot/internal/engine"
	"signal_bot/internal/filter"
	"signal_bot/internal/modelstore"
	"signal_bot/internal/modules/config"
	market "signal_bot/internal/modules/market/service"
	tg "signal_bot/internal/modules/telegram_bot/service"
	"signal_bot/internal/notify"
	"signal_bot/internal/outcome"
	"signal_bot/internal/retrain"
	"signal_bot/pkg/logger"
)

// Module собирает сигнальный конвейер: фильтр, трекер исходов, движок и планировщик переобучения.
func Module() fx.Option {
	return fx.Module("signals",
		fx.Provide(
			NewFilter,
			outcome.NewTracker,
			NewNotifier,
			NewEngine,
			NewScheduler,
		),
	)
}

func NewFilter(cfg *config.Config) *filter.Filter {
	f := filter.New()
	f.NeutralLow = cfg.Filter.NeutralLow
	f.NeutralHigh = cfg.Filter.NeutralHigh
	return f
}

// NewNotifier: телеграм (или лог, если он выключен) плюс kafka, если включена.
func NewNotifier(lc fx.Lifecycle, cfg *config.Config, t *tg.Telegram) (*notify.Fanout, error) {
	sinks := make([]notify.Notifier, 0, 2)
	if t != nil {
		sinks = append(sinks, t)
	} else {
		logger.Warn("telegram disabled, messages go to log")
		sinks = append(sinks, notify.NewStdout())
	}

	if cfg.Kafka.Enabled {
		k, err := notify.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(k.Close))
		sinks = append(sinks, k)
	}
	return notify.NewFanout(sinks...), nil
}

func NewEngine(
	cfg *config.Config,
	feed *market.Feed,
	n *notify.Fanout,
	f *filter.Filter,
	tr *outcome.Tracker,
	obs engine.Observer,
) *engine.Engine {
	return engine.New(engine.Config{
		Instruments: cfg.Instruments,
		Timeframe:   cfg.Timeframe,
		BufferCap:   cfg.BufferCap,
		Stake:       cfg.Stake,
		Params:      cfg.Indicators,
		Rules:       cfg.Rules,
		Initial: engine.State{
			Active:           true,
			AIEnabled:        cfg.Filter.AIEnabled,
			ConfidenceNormal: cfg.Filter.ConfidenceNormal,
			ConfidenceRisky:  cfg.Filter.ConfidenceRisky,
		},
	}, engine.Deps{
		Fetcher:  feed,
		Notifier: n,
		Filter:   f,
		Tracker:  tr,
		Observer: obs,
	})
}

func NewScheduler(
	cfg *config.Config,
	feed *market.Feed,
	f *filter.Filter,
	store modelstore.Store,
	n *notify.Fanout,
	eng *engine.Engine,
) *retrain.Scheduler {
	return retrain.NewScheduler(cfg.Retrain, retrain.Deps{
		Instruments: cfg.Instruments,
		Timeframe:   cfg.Timeframe,
		Params:      cfg.Indicators,
		Fetcher:     feed,
		Filter:      f,
		Store:       store,
		Notifier:    n,
		Clock:       eng,
	})
}
