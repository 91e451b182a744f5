package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

// migrate brings db up to the newest embedded schema for dialect. Each
// dialect keeps its own directory because column types differ.
func migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect) error {
	dir := "migrations/sqlite"
	if dialect == goose.DialectPostgres {
		dir = "migrations/postgres"
	}
	fsys, err := fs.Sub(migrationFS, dir)
	if err != nil {
		return fmt.Errorf("open %s migrations: %w", dialect, err)
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("load %s migrations: %w", dialect, err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("run %s migrations: %w", dialect, err)
	}
	return nil
}
