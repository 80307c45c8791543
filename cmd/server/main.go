package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/p-n-ai/pai-catalog/internal/accounts"
	"github.com/p-n-ai/pai-catalog/internal/catalog"
	"github.com/p-n-ai/pai-catalog/internal/curriculum"
	"github.com/p-n-ai/pai-catalog/internal/export"
	"github.com/p-n-ai/pai-catalog/internal/platform/cache"
	"github.com/p-n-ai/pai-catalog/internal/platform/config"
	"github.com/p-n-ai/pai-catalog/internal/platform/database"
	"github.com/p-n-ai/pai-catalog/internal/platform/logger"
	"github.com/p-n-ai/pai-catalog/internal/platform/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer b.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	if err := prepare(ctx, cfg, b, m); err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      newMux(b.checks, reg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// healthCheck is one dependency probed by /readyz.
type healthCheck struct {
	name  string
	check func(context.Context) error
}

// backend bundles the catalog store with the collaborators that depend on
// the configured driver.
type backend struct {
	store   catalog.Store
	users   catalog.UserStore
	runs    catalog.RunRecorder
	locker  curriculum.Locker
	checks  []healthCheck
	closers []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	b := &backend{}

	switch cfg.Store.Driver {
	case "memory":
		store := catalog.NewMemoryStore()
		b.store = store
		b.users = store
		b.runs = catalog.NewMemoryRunRecorder()
		slog.Warn("using in-memory catalog store, data is lost on exit")

	default:
		db, err := database.New(ctx, cfg.Database.URL, database.PoolOptions{
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			StatementTimeout: cfg.Database.StatementTimeout,
		})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		b.checks = append(b.checks, healthCheck{name: "database", check: db.HealthCheck})

		store, err := catalog.NewPostgresStore(db.Pool)
		if err != nil {
			b.close()
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			b.close()
			return nil, err
		}
		b.store = store
		b.users = store
		b.runs = catalog.NewPostgresRunRecorder(db.Pool)
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Warn("cache unavailable, ingesting without lock", "error", err)
		} else {
			b.locker = c
			b.checks = append(b.checks, healthCheck{name: "cache", check: c.HealthCheck})
			b.closers = append(b.closers, func() { c.Close() })
		}
	}

	return b, nil
}

// prepare seeds the bootstrap account, ingests content and writes the
// optional export before the server starts accepting traffic.
func prepare(ctx context.Context, cfg *config.Config, b *backend, m *metrics.Metrics) error {
	if cfg.Seed.Enabled {
		_, err := accounts.Bootstrap(ctx, b.users, accounts.Seed{
			Username: cfg.Seed.Username,
			Email:    cfg.Seed.Email,
			Password: cfg.Seed.Password,
			FullName: cfg.Seed.FullName,
		})
		if err != nil {
			return fmt.Errorf("seeding user: %w", err)
		}
	}

	var modules []curriculum.ModuleSpec
	if cfg.Content.ManifestPath != "" {
		var err error
		if modules, err = curriculum.LoadManifest(cfg.Content.ManifestPath); err != nil {
			return err
		}
	}

	if cfg.Content.IngestOnStart {
		pipeline := curriculum.NewPipeline(curriculum.PipelineConfig{
			Store:     b.store,
			Modules:   modules,
			Roots:     cfg.Content.Roots,
			Extension: cfg.Content.Extension,
			Locker:    b.locker,
			LockTTL:   cfg.Content.LockTTL,
			Runs:      b.runs,
			Metrics:   m,
			Logger:    logger.WithComponent("curriculum"),
		})
		pipeline.Run(ctx)
	}

	if cfg.Content.ExportPath != "" {
		if err := export.Save(ctx, b.store, cfg.Content.ExportPath); err != nil {
			return fmt.Errorf("exporting catalog: %w", err)
		}
	}
	return nil
}

// newMux creates the HTTP router with health check and metrics endpoints.
func newMux(checks []healthCheck, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", handleReadyz(checks))
	mux.Handle("GET /metrics", metrics.Handler(gatherer))
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleReadyz(checks []healthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		for _, c := range checks {
			if err := c.check(ctx); err != nil {
				slog.Warn("readiness check failed", "check", c.name, "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintf(w, `{"status":"unavailable","check":%q}`, c.name)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}
}
