/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the budget engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load TOML configuration, then apply command-line overrides
  2. Build the structured logger
  3. Initialize SQLite store
  4. Create API handler, metrics and router
  5. Run the HTTP server and signal watcher until either stops

COMMAND-LINE FLAGS:
  -config  TOML configuration file (default: none, built-in defaults)
  -port    HTTP server port, overrides [server] port
  -db      SQLite database path, overrides [database] path
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (shutdown_timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with a config file
  ./server -config=./budget-engine.toml

  # Run with in-memory database
  ./server -db=":memory:"

SEE ALSO:
  - config/config.go: Configuration file format
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
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

	"golang.org/x/sync/errgroup"

	"github.com/warp/budget-engine/api"
	"github.com/warp/budget-engine/config"
	"github.com/warp/budget-engine/logging"
	"github.com/warp/budget-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "budget-engine: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	configPath := flag.String("config", "", "TOML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := logging.ParseLevel(cfg.Log.Level)
	logger := logging.New(logging.Config{
		Level:     level,
		Format:    cfg.Log.Format,
		Component: logging.ComponentApp,
		Output:    os.Stdout,
	})
	logging.SetDefault(logger)

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, logger, api.NewMetrics())
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.CORS.AllowedOrigins})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting",
			"addr", server.Addr,
			"database", cfg.Database.Path,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
