// Package gormstore implements the repository contracts on an embedded SQLite database through gorm.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/benleytuano/ts-api-service/internal/persistence/migrations"
	"github.com/benleytuano/ts-api-service/internal/repository"
)

// MemoryDSN is an isolated in-process database, used by tests and throwaway runs.
const MemoryDSN = "file::memory:"

// Open connects to the SQLite database at dsn with foreign keys enforced. The pool is pinned to a
// single connection, so writers queue instead of failing with SQLITE_BUSY and in-memory databases
// survive between calls.
func Open(ctx context.Context, dsn string, busyTimeout time.Duration) (*gorm.DB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ensureDirectory(dsn); err != nil {
		return nil, err
	}

	db, err := gorm.Open(gormsqlite.Open(withPragmas(dsn, busyTimeout)), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate applies pending embedded migrations, recording each version in the tracking table.
// Scripts run on the raw connection so their text bypasses gorm's placeholder handling.
func Migrate(ctx context.Context, db *gorm.DB) ([]string, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (version TEXT PRIMARY KEY, applied_at DATETIME NOT NULL)`, migrations.TrackingTable)
	if _, err := sqlDB.ExecContext(ctx, create); err != nil {
		return nil, fmt.Errorf("create tracking table: %w", err)
	}

	all, err := migrations.Load(migrations.SQLite)
	if err != nil {
		return nil, err
	}

	applied := []string{}
	for _, m := range all {
		var count int
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE version = ?`, migrations.TrackingTable)
		if err := sqlDB.QueryRowContext(ctx, query, m.Version).Scan(&count); err != nil {
			return applied, fmt.Errorf("check migration %s: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := sqlDB.BeginTx(ctx, nil)
		if err != nil {
			return applied, err
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("apply migration %s: %w", m.Version, err)
		}
		record := fmt.Sprintf(`INSERT INTO %s (version, applied_at) VALUES (?, ?)`, migrations.TrackingTable)
		if _, err := tx.ExecContext(ctx, record, m.Version, time.Now().UTC()); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("record migration %s: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, err
		}
		applied = append(applied, m.Version)
	}
	return applied, nil
}

func withPragmas(dsn string, busyTimeout time.Duration) string {
	pragmas := []string{"_pragma=foreign_keys(1)"}
	if busyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("_pragma=busy_timeout(%d)", busyTimeout.Milliseconds()))
	}

	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(pragmas, "&")
}

func ensureDirectory(dsn string) error {
	candidate := strings.TrimSpace(dsn)
	candidate = strings.TrimPrefix(candidate, "file:")
	if idx := strings.Index(candidate, "?"); idx >= 0 {
		candidate = candidate[:idx]
	}
	if candidate == "" || candidate == ":memory:" {
		return nil
	}

	dir := filepath.Dir(candidate)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite directory %q: %w", dir, err)
	}
	return nil
}

// translate maps SQLite and gorm errors onto the store-level errors.
func translate(err error, fkErr error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %s", fkErr, msg)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, msg)
	case strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%w: %s", repository.ErrConstraint, msg)
	default:
		return err
	}
}
