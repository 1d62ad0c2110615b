package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"txcat/internal/backend"
	"txcat/internal/cli"
	apphttp "txcat/internal/http"
	"txcat/internal/log"
)

func main() {
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	factory := backend.NewFactory(logger)
	result, err := factory.CreateService(ctx, cli.BackendConfig(logger, cfg))
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "driver", cfg.DBDriver)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	}()

	srv := apphttp.NewServer(":"+cfg.Port, result.Service, apphttp.Options{Logger: logger})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting txcat server", "port", cfg.Port, "driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
