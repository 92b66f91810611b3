package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

const applicationName = "watchlist-api"

var errNotInitialized = errors.New("store not initialized")

// Options controls connection-pool behaviour.
type Options struct {
	MaxConns               int32
	MinConns               int32
	MaxConnIdleTime        time.Duration
	MaxConnLifetime        time.Duration
	ConnTimeout            time.Duration
	StatementCacheCapacity int
	Logger                 *log.Logger
}

// Store owns the Postgres connection pool that backs the watchlist.
type Store struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	opts   Options
}

// New opens the watchlist pool and pings it before returning.
func New(ctx context.Context, dbURL string, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	cfg, err := poolConfig(dbURL, opts)
	if err != nil {
		return nil, err
	}
	logger.Printf("store: opening postgres pool for %s@%s/%s (max=%d, min=%d, stmt_cache=%d)",
		cfg.ConnConfig.User, cfg.ConnConfig.Host, cfg.ConnConfig.Database,
		cfg.MaxConns, cfg.MinConns, opts.StatementCacheCapacity)

	connCtx, cancel := withTimeout(ctx, opts.ConnTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(connCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Println("store: postgres ready")
	return &Store{pool: pool, logger: logger, opts: opts}, nil
}

// poolConfig layers the non-zero Options over the settings parsed from dbURL.
func poolConfig(dbURL string, opts Options) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.StatementCacheCapacity >= 0 {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
		cfg.ConnConfig.StatementCacheCapacity = opts.StatementCacheCapacity
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	return cfg, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// Migrate applies the embedded Postgres migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return errNotInitialized
	}
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()
	return migrate(ctx, db, dialectPostgres, s.logger)
}

// Close releases the pool. It is safe on a nil Store.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.logger.Println("store: closing connection pool")
	s.pool.Close()
}

// HealthCheck pings the pool within the configured connect timeout.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return errNotInitialized
	}
	checkCtx, cancel := withTimeout(ctx, s.opts.ConnTimeout)
	defer cancel()
	return s.pool.Ping(checkCtx)
}

// Pool exposes the underlying pgx pool for repositories.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Stats reports pool statistics in a form suitable for expvar.
func (s *Store) Stats() map[string]any {
	if s == nil || s.pool == nil {
		return nil
	}
	st := s.pool.Stat()
	return map[string]any{
		"driver":              "postgres",
		"total_conns":         st.TotalConns(),
		"idle_conns":          st.IdleConns(),
		"acquired_conns":      st.AcquiredConns(),
		"max_conns":           st.MaxConns(),
		"acquire_count":       st.AcquireCount(),
		"empty_acquire_count": st.EmptyAcquireCount(),
	}
}
