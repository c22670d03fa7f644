package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"bizledger/internal/amqp"
	"bizledger/internal/cache"
	"bizledger/internal/cli"
	apphttp "bizledger/internal/http"
	"bizledger/internal/log"
	"bizledger/internal/metrics"
	"bizledger/internal/services"
	"bizledger/internal/session"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	rec := metrics.NewPrometheus()

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	adapter, store, err := cli.OpenLedger(startCtx, cfg, logger, rec)
	cancelStart()
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	opts := []services.Option{services.WithRecorder(rec), services.WithLogger(logger)}
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change events", log.FieldError, err)
		} else {
			opts = append(opts, services.WithPublisher(amqpClient))
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}
	svc := services.NewLedgerService(adapter, opts...)

	sessions := session.NewStore(cfg.MaxSessions, cfg.SessionTTL)
	caches := cache.NewManager(logger)
	caches.Register(sessions.Cleaner())
	caches.StartCleanup(context.Background(), 5*time.Minute)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     cfg.RequestTimeout,
		Metrics:            rec.Handler(),
		Ready:              store.Ready,
		Logger:             logger,
	}, svc, sessions)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := store.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting bizledger server",
		"port", cfg.Port, "backend", cfg.DataBackend, "policy", cfg.Policy(), "events", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
