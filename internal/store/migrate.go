package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var embedMigrations embed.FS

type dialect struct {
	goose goose.Dialect
	dir   string
}

var (
	dialectPostgres = dialect{goose: goose.DialectPostgres, dir: "migrations/postgres"}
	dialectSQLite   = dialect{goose: goose.DialectSQLite3, dir: "migrations/sqlite"}
)

func migrate(ctx context.Context, db *sql.DB, d dialect, logger *log.Logger) error {
	fsys, err := fs.Sub(embedMigrations, d.dir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	provider, err := goose.NewProvider(d.goose, db, fsys)
	if err != nil {
		return fmt.Errorf("init migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	logger.Printf("store: applied %d migration(s), schema version %d", len(results), version)
	return nil
}
