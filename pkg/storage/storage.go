// Package storage opens the bun database used by the SQL repositories.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-locsync/pkg/interfaces"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrDriverUnsupported = errors.New("storage: driver is not a sql driver")
	ErrDSNRequired       = errors.New("storage: dsn is required")
)

// Config selects the driver and connection string.
type Config struct {
	Driver string
	DSN    string
	Debug  bool
	Logger interfaces.Logger
}

// IsSQL reports whether the driver is backed by a database.
func IsSQL(driver string) bool {
	switch normalize(driver) {
	case DriverSQLite, DriverPostgres:
		return true
	default:
		return false
	}
}

// Open connects to the configured database and verifies it with a ping.
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	driver := normalize(cfg.Driver)
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, ErrDSNRequired
	}

	var db *bun.DB
	switch driver {
	case DriverSQLite:
		sqlDB, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("storage: open sqlite: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
		db = bun.NewDB(sqlDB, sqlitedialect.New())
	case DriverPostgres:
		sqlDB, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("storage: open postgres: %w", err)
		}
		db = bun.NewDB(sqlDB, pgdialect.New())
	default:
		return nil, fmt.Errorf("%w: %s", ErrDriverUnsupported, cfg.Driver)
	}

	if cfg.Debug && cfg.Logger != nil {
		db.AddQueryHook(&queryLogger{logger: cfg.Logger})
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping %s: %w", driver, err)
	}
	return db, nil
}

func normalize(driver string) string {
	driver = strings.ToLower(strings.TrimSpace(driver))
	switch driver {
	case "sqlite3":
		return DriverSQLite
	case "postgresql", "pg", "pgx":
		return DriverPostgres
	case "":
		return DriverMemory
	default:
		return driver
	}
}

type queryLogger struct {
	logger interfaces.Logger
}

func (h *queryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	elapsed := time.Since(event.StartTime)
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		h.logger.Warn("storage.query.failed", "query", event.Query, "elapsed", elapsed.String(), "error", event.Err)
		return
	}
	h.logger.Debug("storage.query.ok", "query", event.Query, "elapsed", elapsed.String())
}
