package storage

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"signal_bot/internal/modelstore"
	"signal_bot/internal/modelstore/file"
	"signal_bot/internal/modelstore/pg"
	"signal_bot/internal/modelstore/redisstore"
	"signal_bot/internal/modules/config"
	"signal_bot/pkg/db"
	"signal_bot/pkg/logger"
)

// Module: хранилище модели фильтра: файл, postgres или redis по model_store.kind.
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(NewStore),
	)
}

func NewStore(lc fx.Lifecycle, ctx context.Context, cfg *config.Config) (modelstore.Store, error) {
	switch cfg.ModelStore.Kind {
	case config.StorePostgres:
		poolMaster, err := db.NewPool(ctx, db.PoolConfig{
			DSN: cfg.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create poolMaster: %w", err)
		}
		if err = poolMaster.Ping(ctx); err != nil {
			poolMaster.Close()
			return nil, err
		}
		tx := db.NewPgTxManager(poolMaster)
		s := pg.New(tx)
		if err = s.Migrate(ctx); err != nil {
			tx.Close()
			return nil, fmt.Errorf("model store migrate: %w", err)
		}
		lc.Append(fx.StopHook(tx.Close))
		logger.Info("model store: postgres")
		return s, nil

	case config.StoreRedis:
		s, err := redisstore.New(ctx, cfg.ModelStore.Redis)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(s.Close))
		logger.Info("model store: redis %s", cfg.ModelStore.Redis.Addr)
		return s, nil

	default:
		s := file.New(cfg.ModelStore.Path)
		logger.Info("model store: file %s", s.Path())
		return s, nil
	}
}
