package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/benleytuano/ts-api-service/internal/persistence/migrations"
)

// RunMigrations applies the embedded Postgres migrations that are not yet recorded in the
// tracking table. Each version runs in its own transaction.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		return fmt.Errorf("run migrations: %w", ErrMissingDSN)
	}

	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
        version    TEXT PRIMARY KEY,
        applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`, migrations.TrackingTable)
	if _, err := pool.Exec(ctx, create); err != nil {
		return fmt.Errorf("create tracking table: %w", err)
	}

	all, err := migrations.Load(migrations.Postgres)
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range all {
		var exists bool
		check := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE version=$1)`, migrations.TrackingTable)
		if err := pool.QueryRow(ctx, check, m.Version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", m.Version, err)
		}
		if exists {
			continue
		}

		logger.Info("applying migration", zap.String("version", m.Version))
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			record := fmt.Sprintf(`INSERT INTO %s (version) VALUES ($1)`, migrations.TrackingTable)
			_, err := tx.Exec(ctx, record, m.Version)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Version, err)
		}
		applied++
	}

	logger.Info("migrations applied", zap.Int("count", applied), zap.Int("known", len(all)))
	return nil
}
