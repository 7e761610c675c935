package locsync

import (
	"context"
	"embed"

	"github.com/goliatone/go-locsync/internal/migrations"
	"github.com/uptrace/bun"
)

const migrationsRoot = "data/sql/migrations"

//go:embed data/sql/migrations/*/*.sql
var migrationsFS embed.FS

// MigrationStatus reports one embedded migration and whether it has been applied.
type MigrationStatus = migrations.Status

// GetMigrationsFS returns the embedded migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// ApplyMigrations runs the pending migrations for the database dialect and
// returns the names applied.
func ApplyMigrations(ctx context.Context, db *bun.DB) ([]string, error) {
	return migrations.NewRunner(migrationsFS, migrationsRoot).Apply(ctx, db)
}

// RollbackMigrations reverts the last applied migration group.
func RollbackMigrations(ctx context.Context, db *bun.DB) ([]string, error) {
	return migrations.NewRunner(migrationsFS, migrationsRoot).Rollback(ctx, db)
}

// MigrationsStatus lists the embedded migrations with their applied state.
func MigrationsStatus(ctx context.Context, db *bun.DB) ([]MigrationStatus, error) {
	return migrations.NewRunner(migrationsFS, migrationsRoot).Status(ctx, db)
}
