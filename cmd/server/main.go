/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the CRM billing engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Build the logger and the rate book
  3. Open the store (SQLite or PostgreSQL)
  4. Create API handler and router, optionally seed demo data
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -port    HTTP server port (PORT, default: 8080)
  -db      SQLite database path (SQLITE_PATH, default: crm.db)
           Use ":memory:" for in-memory database
  -driver  sqlite or postgres (DB_DRIVER, default: sqlite)
  -seed    Load the demo scenario into an empty store (SEED_DEMO)

ENVIRONMENT:
  DATABASE_URL     PostgreSQL connection string (driver postgres)
  RATES_FILE       JSON rate book; built-in rates when empty
  ALLOWED_ORIGINS  Comma-separated CORS origins
  LOG_LEVEL        debug, info, warn, error
  LOG_FORMAT       json or text
  AUTO_DEDUCT_MONTHLY  Deduct recurring expenses each month in background
  DEDUCT_INTERVAL      How often the deduction job checks (default 1h)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite, store/postgres: Database implementations
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/crm-engine/api"
	"github.com/warp/crm-engine/billing"
	"github.com/warp/crm-engine/config"
	"github.com/warp/crm-engine/factory"
	"github.com/warp/crm-engine/store/postgres"
	"github.com/warp/crm-engine/store/sqlite"
)

type closableStore interface {
	api.Store
	Close() error
}

func main() {
	cfg := config.Load()

	// Flags
	flag.IntVar(&cfg.Server.Port, "port", cfg.Server.Port, "HTTP server port")
	flag.StringVar(&cfg.Database.SQLitePath, "db", cfg.Database.SQLitePath, "SQLite database path")
	flag.StringVar(&cfg.Database.Driver, "driver", cfg.Database.Driver, "Database driver (sqlite or postgres)")
	flag.BoolVar(&cfg.SeedDemo, "seed", cfg.SeedDemo, "Load demo data into an empty store")
	flag.Parse()

	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	rates := billing.DefaultRateBook()
	if cfg.RatesFile != "" {
		book, err := factory.NewRateFactory().LoadRateBook(cfg.RatesFile)
		if err != nil {
			return fmt.Errorf("failed to load rates: %w", err)
		}
		rates = book
		logger.Info("rate book loaded", "path", cfg.RatesFile, "version", rates.Current().Version)
	}

	// Initialize store
	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()
	logger.Info("store opened", "driver", cfg.Database.Driver)

	// Initialize handler
	handler := api.NewHandler(store, rates, logger)
	if cfg.SeedDemo {
		if err := handler.SeedDemo(ctx); err != nil {
			logger.Warn("failed to seed demo data", "error", err)
		}
	}

	scheduler := api.NewDeductionScheduler(handler)
	scheduler.Enabled = cfg.Jobs.AutoDeductMonthly
	scheduler.CheckInterval = cfg.Jobs.DeductInterval
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(handler, cfg.Server.AllowedOrigins)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "api", fmt.Sprintf("http://localhost:%d/api", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, db config.DatabaseConfig) (closableStore, error) {
	switch db.Driver {
	case config.DriverPostgres:
		if db.URL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres driver")
		}
		return postgres.Open(ctx, db.URL)
	default:
		return sqlite.New(db.SQLitePath)
	}
}
