package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is a single-file store for local use and tests.
type SQLite struct {
	db     *sql.DB
	path   string
	logger *log.Logger
}

// OpenSQLite opens (creating if needed) the database file at path, verifies
// it with Ping and applies the embedded migrations.
func OpenSQLite(ctx context.Context, path string, logger *log.Logger) (*SQLite, error) {
	if logger == nil {
		logger = log.Default()
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := migrate(ctx, db, dialectSQLite, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Printf("store: sqlite database ready at %s", path)
	return &SQLite{db: db, path: path, logger: logger}, nil
}

// DB exposes the underlying handle for repositories.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Close releases the database handle.
func (s *SQLite) Close() {
	if s == nil || s.db == nil {
		return
	}
	s.logger.Println("store: closing sqlite database")
	if err := s.db.Close(); err != nil {
		s.logger.Printf("store: close sqlite: %v", err)
	}
}

// HealthCheck verifies the database file is usable.
func (s *SQLite) HealthCheck(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errNotInitialized
	}
	return s.db.PingContext(ctx)
}

// Stats reports database/sql pool statistics in a form suitable for expvar.
func (s *SQLite) Stats() map[string]any {
	if s == nil || s.db == nil {
		return nil
	}
	st := s.db.Stats()
	return map[string]any{
		"driver":           "sqlite",
		"path":             s.path,
		"open_connections": st.OpenConnections,
		"in_use":           st.InUse,
		"idle":             st.Idle,
		"wait_count":       st.WaitCount,
	}
}
