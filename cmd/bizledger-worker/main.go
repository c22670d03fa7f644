package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"bizledger/internal/amqp"
	"bizledger/internal/backend"
	"bizledger/internal/cli"
	"bizledger/internal/log"
	"bizledger/internal/metrics"
	"bizledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting bizledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend == "sqlite" && filepath.Clean(cfg.SQLiteDBPath) == filepath.Clean(cfg.MirrorDBPath) {
		logger.Error("Mirror database must differ from the primary database", "path", cfg.MirrorDBPath)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	_, primary, err := cli.OpenLedger(startCtx, cfg, logger, metrics.Noop{})
	cancelStart()
	if err != nil {
		logger.Error("Failed to open primary store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer primary.Cleanup()

	replica, err := backend.OpenMirror(cfg.MirrorDBPath, logger)
	if err != nil {
		logger.Error("Failed to open mirror store", log.FieldError, err, "path", cfg.MirrorDBPath)
		os.Exit(1)
	}
	defer replica.Close()

	// Without a broker the worker still mirrors on the interval.
	var consumer worker.Consumer
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		consumer = amqpClient
	} else if cfg.MirrorInterval == 0 {
		logger.Error("Nothing to do: no AMQP_URL and MIRROR_INTERVAL is 0")
		os.Exit(1)
	}

	mirror := worker.NewMirror(primary.Store, replica,
		[]string{cfg.TransactionsSheet, cfg.ProjectsSheet}, metrics.Noop{}, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Mirroring ledger",
		"source", cfg.DataBackend, "mirror", cfg.MirrorDBPath,
		"interval", cfg.MirrorInterval, "events", consumer != nil)
	if err := mirror.Run(ctx, consumer, cfg.MirrorInterval); err != nil {
		logger.Error("Mirror worker failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
