package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Clark-Hu/watchlist-tracker/internal/config"
	httpserver "github.com/Clark-Hu/watchlist-tracker/internal/http"
	"github.com/Clark-Hu/watchlist-tracker/internal/logging"
	"github.com/Clark-Hu/watchlist-tracker/internal/repository"
	"github.com/Clark-Hu/watchlist-tracker/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run serves the API until ctx is cancelled or the listener fails.
func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning: could not load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger := logging.New(cfg)
	defer logger.Close()

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, repo, closeStore, err := openStore(dbCtx, cfg, logger.Logger)
	if err != nil {
		logger.Printf("open store: %v", err)
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	server := httpserver.New(cfg, st, repo, logger.Logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	var serveErr error
	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Printf("server error: %v", err)
			serveErr = err
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("graceful shutdown error: %v", err)
	}
	return serveErr
}

// openStore connects the configured backend, applies migrations and builds
// the repositories on top of it.
func openStore(ctx context.Context, cfg config.Config, logger *log.Logger) (httpserver.Store, *repository.Repository, func(), error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		st, err := store.OpenSQLite(ctx, cfg.DBPath, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		return st, repository.NewSQLite(st), st.Close, nil
	default:
		st, err := store.New(ctx, cfg.DBURL, store.Options{
			MaxConns:               int32(cfg.DBMaxConns),
			MinConns:               int32(cfg.DBMinConns),
			MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
			MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
			ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
			StatementCacheCapacity: cfg.DBStatementCache,
			Logger:                 logger,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, nil, nil, err
		}
		return st, repository.New(st), st.Close, nil
	}
}
