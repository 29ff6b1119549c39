package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FleetAPI/internal/config"
	"FleetAPI/internal/db"
	"FleetAPI/internal/fleet"
	"FleetAPI/internal/logger"
	"FleetAPI/internal/metrics"
	"FleetAPI/internal/model"
	"FleetAPI/internal/query"
	"FleetAPI/internal/router"
	"FleetAPI/internal/store"
)

func main() {
	debugFlag := flag.Bool("d", false, "enable debug logging")
	flag.Parse()

	if err := logger.Init("."); err != nil {
		fmt.Fprintf(os.Stderr, "log init failed: %v\n", err)
		os.Exit(1)
	}
	logger.SetDebug(*debugFlag)
	cfg := config.LoadConfig()

	if err := run(cfg); err != nil {
		logger.Error("server_error", map[string]any{"error": err})
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// PostgreSQL
	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.PostgresDSN, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	if err := db.InitPostgres(cfg.PostgresDSN); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer db.ClosePostgres()
	logger.Info("postgres_connected", nil)

	// Redis (optional)
	db.InitRedis(cfg.RedisAddr)
	var kv store.KV
	if db.RDB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := db.PingRedis(ctx)
		cancel()
		if err != nil {
			logger.Warn("redis_unavailable", map[string]any{"addr": cfg.RedisAddr, "error": err})
		} else {
			logger.Info("redis_connected", map[string]any{"addr": cfg.RedisAddr})
		}
		kv = db.RDB
		defer db.RDB.Close()
	}

	if err := model.InitRegistry(cfg.EntitiesDir); err != nil {
		return fmt.Errorf("entities: %w", err)
	}
	logger.Info("entities_initialized", map[string]any{"count": len(model.Registry)})

	m, err := metrics.New()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	builder := query.NewBuilder(query.Options{
		DefaultTake: cfg.Pagination.DefaultTake,
		MaxTake:     cfg.Pagination.MaxTake,
		StrictSort:  cfg.SortStrict,
	})
	st := store.NewPostgres(db.Pool, store.NewCountCache(kv, cfg.CountCache.TTL, m), m)

	endpoints, err := fleet.Endpoints(model.Registry, builder, st, m, time.Now)
	if err != nil {
		return fmt.Errorf("endpoints: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.NewRouter(cfg, endpoints, m, db.Pool.Ping),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		// Start HTTP server
		logger.Info("server_start", map[string]any{"port": cfg.Port})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server_shutdown", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
