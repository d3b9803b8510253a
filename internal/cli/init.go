// Package cli holds the startup steps shared by cmd/bilancio and
// cmd/bilancio-worker.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"bilancio/internal/config"
	applog "bilancio/internal/log"
	"bilancio/internal/storage"
)

// Validator is an extra configuration check, e.g. (*config.Config).ValidateWorker.
type Validator func(*config.Config) error

// Bootstrap loads the .env file and the configuration, builds the process
// logger from LOG_LEVEL and validates. It exits the process on an invalid
// configuration.
func Bootstrap(component string, extra ...Validator) (*config.Config, *applog.Logger) {
	// Errors are ignored: the file is optional outside local development
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: component,
	})
	applog.SetDefault(logger)

	if err := Validate(cfg, extra...); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// Validate runs the base checks and every extra one, joining the failures.
func Validate(cfg *config.Config, extra ...Validator) error {
	errs := []error{cfg.Validate()}
	for _, v := range extra {
		errs = append(errs, v(cfg))
	}
	return errors.Join(errs...)
}

// InitSQLite opens the repository or exits the process on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM. The
// received signal is logged once.
func ShutdownContext(parent context.Context, logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
