package persistence

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/benleytuano/ts-api-service/internal/config"
	"github.com/benleytuano/ts-api-service/internal/repository"
	"github.com/benleytuano/ts-api-service/internal/repository/gormstore"
)

// Store bundles the repositories of one backend together with its lifecycle hooks.
type Store struct {
	Driver     string
	Tickets    repository.TicketRepository
	Updates    repository.TicketUpdateRepository
	Users      repository.UserRepository
	References repository.ReferenceRepository

	ping  func(ctx context.Context) error
	close func() error
}

// Ping checks the backing database.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.ping == nil {
		return fmt.Errorf("store not initialised")
	}
	return s.ping(ctx)
}

// Close releases the backing database.
func (s *Store) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStore connects to the configured backend and, when enabled, applies pending migrations.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		return openPostgresStore(ctx, cfg, logger)
	case config.DriverSQLite:
		return OpenSQLiteStore(ctx, cfg.SQLite.DSN, time.Duration(cfg.SQLite.BusyTimeoutMilli)*time.Millisecond, cfg.Store.RunMigrations, logger)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

func openPostgresStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	pg, err := NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Store.RunMigrations {
		if err := RunMigrations(ctx, pg.Pool, logger); err != nil {
			pg.Close()
			return nil, err
		}
	}

	return &Store{
		Driver:     config.DriverPostgres,
		Tickets:    repository.NewTicketRepository(pg.Pool),
		Updates:    repository.NewTicketUpdateRepository(pg.Pool),
		Users:      repository.NewUserRepository(pg.Pool),
		References: repository.NewReferenceRepository(pg.Pool),
		ping:       pg.Ping,
		close: func() error {
			pg.Close()
			return nil
		},
	}, nil
}

// OpenSQLiteStore opens the embedded store at dsn.
func OpenSQLiteStore(ctx context.Context, dsn string, busyTimeout time.Duration, migrate bool, logger *zap.Logger) (*Store, error) {
	db, err := gormstore.Open(ctx, dsn, busyTimeout)
	if err != nil {
		return nil, err
	}
	if migrate {
		applied, err := gormstore.Migrate(ctx, db)
		if err != nil {
			_ = gormstore.Close(db)
			return nil, fmt.Errorf("migrate sqlite store: %w", err)
		}
		logger.Info("migrations applied", zap.Strings("versions", applied))
	}
	logger.Info("opened sqlite store", zap.String("dsn", dsn))

	return &Store{
		Driver:     config.DriverSQLite,
		Tickets:    gormstore.NewTicketRepository(db),
		Updates:    gormstore.NewTicketUpdateRepository(db),
		Users:      gormstore.NewUserRepository(db),
		References: gormstore.NewReferenceRepository(db),
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		close: func() error { return gormstore.Close(db) },
	}, nil
}
