// Package migrations applies the embedded SQL schema through bun's migrator.
package migrations

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/migrate"
)

const (
	DefaultTableName      = "schema_migrations"
	DefaultLocksTableName = "schema_migration_locks"
)

var (
	ErrDatabaseRequired   = errors.New("migrations: database required")
	ErrUnsupportedDialect = errors.New("migrations: unsupported dialect")
)

// Status reports one migration and whether it has been applied.
type Status struct {
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
	GroupID int64  `json:"group_id,omitempty"`
}

// Option configures a Runner.
type Option func(*Runner)

// WithTableNames overrides the bookkeeping tables.
func WithTableNames(table, locks string) Option {
	return func(r *Runner) {
		if table != "" {
			r.table = table
		}
		if locks != "" {
			r.locks = locks
		}
	}
}

// WithLogger sets the logger used to report applied groups.
func WithLogger(logger interfaces.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner applies migrations laid out as <root>/<dialect>/<id>_<name>.up.sql.
type Runner struct {
	fsys   fs.FS
	root   string
	table  string
	locks  string
	logger interfaces.Logger
}

// NewRunner builds a runner over fsys rooted at root.
func NewRunner(fsys fs.FS, root string, opts ...Option) *Runner {
	r := &Runner{
		fsys:   fsys,
		root:   root,
		table:  DefaultTableName,
		locks:  DefaultLocksTableName,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DialectDir maps the bun dialect to its migration directory.
func DialectDir(db *bun.DB) (string, error) {
	if db == nil {
		return "", ErrDatabaseRequired
	}
	switch db.Dialect().Name() {
	case dialect.SQLite:
		return "sqlite", nil
	case dialect.PG:
		return "postgres", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDialect, db.Dialect().Name())
	}
}

func (r *Runner) migrator(ctx context.Context, db *bun.DB) (*migrate.Migrator, error) {
	dir, err := DialectDir(db)
	if err != nil {
		return nil, err
	}
	sub, err := fs.Sub(r.fsys, r.root+"/"+dir)
	if err != nil {
		return nil, fmt.Errorf("migrations: open %s: %w", dir, err)
	}
	set := migrate.NewMigrations()
	if err := set.Discover(sub); err != nil {
		return nil, fmt.Errorf("migrations: discover %s: %w", dir, err)
	}
	m := migrate.NewMigrator(db, set, migrate.WithTableName(r.table), migrate.WithLocksTableName(r.locks))
	if err := m.Init(ctx); err != nil {
		return nil, fmt.Errorf("migrations: init: %w", err)
	}
	return m, nil
}

// Apply runs every pending migration and returns the names applied.
func (r *Runner) Apply(ctx context.Context, db *bun.DB) ([]string, error) {
	m, err := r.migrator(ctx, db)
	if err != nil {
		return nil, err
	}
	if err := m.Lock(ctx); err != nil {
		return nil, fmt.Errorf("migrations: lock: %w", err)
	}
	defer func() {
		if err := m.Unlock(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("migrations.unlock.failed", "error", err)
		}
	}()

	group, err := m.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrations: apply: %w", err)
	}
	if group.IsZero() {
		r.logger.Debug("migrations.apply.noop")
		return nil, nil
	}
	names := make([]string, 0, len(group.Migrations))
	for _, migration := range group.Migrations {
		names = append(names, migration.Name)
	}
	r.logger.Info("migrations.apply.ok", "group", group.ID, "migrations", names)
	return names, nil
}

// Rollback reverts the last applied group.
func (r *Runner) Rollback(ctx context.Context, db *bun.DB) ([]string, error) {
	m, err := r.migrator(ctx, db)
	if err != nil {
		return nil, err
	}
	if err := m.Lock(ctx); err != nil {
		return nil, fmt.Errorf("migrations: lock: %w", err)
	}
	defer func() {
		if err := m.Unlock(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("migrations.unlock.failed", "error", err)
		}
	}()

	group, err := m.Rollback(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrations: rollback: %w", err)
	}
	if group.IsZero() {
		return nil, nil
	}
	names := make([]string, 0, len(group.Migrations))
	for _, migration := range group.Migrations {
		names = append(names, migration.Name)
	}
	r.logger.Info("migrations.rollback.ok", "group", group.ID, "migrations", names)
	return names, nil
}

// Status lists the known migrations in order with their applied state.
func (r *Runner) Status(ctx context.Context, db *bun.DB) ([]Status, error) {
	m, err := r.migrator(ctx, db)
	if err != nil {
		return nil, err
	}
	all, err := m.MigrationsWithStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrations: status: %w", err)
	}
	out := make([]Status, 0, len(all))
	for _, migration := range all {
		out = append(out, Status{
			Name:    migration.Name,
			Applied: migration.IsApplied(),
			GroupID: migration.GroupID,
		})
	}
	return out, nil
}
