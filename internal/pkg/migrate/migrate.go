// Package migrate applies the embedded goose migrations to a pgx pool.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

var (
	// ErrMigrationFailed wraps every failure returned by Up.
	ErrMigrationFailed = errors.New("migrate: failed to apply migrations")
	// ErrMissingInput is returned when the pool or migration source is nil.
	ErrMissingInput = errors.New("migrate: pool and migrations are required")
)

// DefaultTable is the goose version table.
const DefaultTable = "goose_db_version"

// goose keeps its dialect, base FS and logger in package globals.
var mu sync.Mutex

// Up applies all pending migrations found at the root of fsys.
func Up(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, table string) error {
	if pool == nil || fsys == nil {
		return errors.Join(ErrMigrationFailed, ErrMissingInput)
	}
	if table == "" {
		table = DefaultTable
	}

	mu.Lock()
	defer mu.Unlock()

	// goose speaks database/sql only; this shares the pool's connections.
	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			slog.WarnContext(ctx, "failed to close migration connection", "error", err)
		}
	}()

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(slogAdapter{ctx: ctx})
	goose.SetTableName(table)

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	slog.InfoContext(ctx, "database schema is up to date", "version", version)

	return nil
}

// slogAdapter routes goose's printf-style output through slog.
type slogAdapter struct {
	ctx context.Context
}

func (a slogAdapter) Fatalf(format string, v ...any) {
	slog.ErrorContext(a.ctx, fmt.Sprintf(format, v...))
}

func (a slogAdapter) Printf(format string, v ...any) {
	slog.InfoContext(a.ctx, fmt.Sprintf(format, v...))
}
