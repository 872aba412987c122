package pg

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"signal_bot/internal/models"
	"signal_bot/internal/modelstore"
	"signal_bot/pkg/db"
)

//go:embed migrations.sql
var migrationSQL string

// Store: модель в таблице model_blobs.
type Store struct {
	db  *db.PgTxManager
	key string
}

func New(tx *db.PgTxManager) *Store {
	return &Store{db: tx, key: modelstore.Key}
}

// Migrate создаёт таблицу, если её нет.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Conn().Exec(ctx, migrationSQL)
	return errors.Wrap(err, "pg.Migrate")
}

func (s *Store) Load(ctx context.Context) (blob []byte, err error) {
	defer func() {
		if err != nil && !errors.Is(err, models.ErrModelNotFound) {
			err = errors.Wrap(err, "pg.Load")
		}
	}()

	err = s.db.Conn().
		QueryRow(ctx, `SELECT blob FROM model_blobs WHERE key = $1`, s.key).
		Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrModelNotFound
	}
	return blob, err
}

func (s *Store) Save(ctx context.Context, blob []byte) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "pg.Save")
		}
	}()

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO model_blobs (key, blob, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET blob = EXCLUDED.blob, updated_at = EXCLUDED.updated_at`,
			s.key, blob)
		return err
	})
}
