package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"txcat/internal/amqp"
	"txcat/internal/backend"
	"txcat/internal/cli"
	"txcat/internal/log"
	"txcat/internal/worker"
)

func main() {
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting txcat-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	bc := cli.BackendConfig(logger, cfg)

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	factory := backend.NewFactory(logger)
	repo, err := factory.OpenRepository(ctx, bc)
	if err != nil {
		logger.Error("Failed to open repository", log.FieldError, err, "driver", cfg.DBDriver)
		os.Exit(1)
	}
	defer repo.Close()

	exporter, err := factory.CreateExporter(ctx, bc)
	if err != nil {
		logger.Error("Failed to initialize exporter", log.FieldError, err, "backend", cfg.ExportBackend)
		os.Exit(1)
	}

	exportWorker := worker.NewExportWorker(repo, exporter, cfg.SyncBatchSize, logger)

	// Rows whose event was lost while the worker was down.
	if err := exportWorker.StartupCheck(ctx); err != nil {
		logger.Error("Startup export check failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return exportWorker.RunSweeper(gctx, cfg.SyncInterval)
	})

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			err := amqpClient.ConsumeTransactionCreated(gctx, exportWorker.HandleMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled, relying on the periodic sweep", "interval", cfg.SyncInterval)
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
