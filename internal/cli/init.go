// Package cli holds the start-up steps shared by cmd/txcat,
// cmd/txcat-worker and cmd/txcatctl.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"txcat/internal/backend"
	"txcat/internal/config"
	"txcat/internal/log"
)

// SetupLogger builds the process logger at the LOG_LEVEL found in the
// environment and installs it as the slog default.
func SetupLogger(component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(os.Getenv("LOG_LEVEL")),
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads .env and the environment, then validates.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	if err := config.LoadDotEnv(); err != nil {
		logger.Warn("Ignoring unreadable .env file", log.FieldError, err)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// BackendConfig converts cfg for the backend factory, exiting on failure.
func BackendConfig(logger *log.Logger, cfg *config.Config) backend.Config {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	return bc
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM. The
// stop function releases the signal handler.
func ShutdownContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
