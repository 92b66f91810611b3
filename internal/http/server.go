package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Clark-Hu/watchlist-tracker/internal/config"
	"github.com/Clark-Hu/watchlist-tracker/internal/repository"
)

// Store is the part of the database handle the server needs for health and
// metrics reporting. Both *store.Store and *store.SQLite satisfy it.
type Store interface {
	HealthCheck(ctx context.Context) error
	Stats() map[string]any
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg     config.Config
	store   Store
	repo    *repository.Repository
	logger  *log.Logger
	router  chi.Router
	httpSrv *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, st Store, repo *repository.Repository, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logger, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(metrics)
	r.Use(enableCORS(cfg.CORSTrustedOrigins))

	s := &Server{
		cfg:    cfg,
		store:  st,
		repo:   repo,
		logger: logger,
		router: r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/debug/vars", s.handleDebugVars)
	s.router.Route("/api/watchlist", func(r chi.Router) {
		r.Get("/", s.handleListItems)
		r.Post("/", s.handleCreateItem)
		r.Get("/bookmarks", s.handleListBookmarks)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetItem)
			r.Put("/", s.handleUpdateItem)
			r.Delete("/", s.handleDeleteItem)
			r.Put("/bookmark", s.handleToggleBookmark)
		})
	})
}

// Handler exposes the routed handler, for embedding in tests and other servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start boots the HTTP server asynchronously.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ErrorLog:     s.logger,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("listening on %s", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Watchlist Tracker API is running"))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.store == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	if err := s.store.HealthCheck(ctx); err != nil {
		s.logger.Printf("health check failed: %v", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleDebugVars writes the published expvar variables followed by the
// store's pool statistics, in the same layout as expvar.Handler.
func (s *Server) handleDebugVars(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	fmt.Fprintf(w, "{\n")
	first := true
	expvar.Do(func(kv expvar.KeyValue) {
		if !first {
			fmt.Fprintf(w, ",\n")
		}
		first = false
		fmt.Fprintf(w, "%q: %s", kv.Key, kv.Value)
	})

	var stats map[string]any
	if s.store != nil {
		stats = s.store.Stats()
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		s.logger.Printf("encode store stats: %v", err)
		payload = []byte("null")
	}
	if !first {
		fmt.Fprintf(w, ",\n")
	}
	fmt.Fprintf(w, "%q: %s", "store", payload)
	fmt.Fprintf(w, "\n}\n")
}
