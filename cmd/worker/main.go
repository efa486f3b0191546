// Package main runs the background worker: outbox delivery to RabbitMQ,
// overdue sweeps, monthly billing and housekeeping.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rwpay/internal/app"
	"rwpay/internal/config"
	"rwpay/internal/infrastructure/messaging/amqp"
	"rwpay/internal/infrastructure/storage/postgres"
	"rwpay/internal/worker"
	"rwpay/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	log.Info("starting rwpay worker")

	c, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer c.Close()

	c.StartSettingsCache(ctx)

	var handler postgres.OutboxHandler = amqp.LogHandler{}
	if cfg.AMQP.URL != "" {
		publisher, err := amqp.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Fatalw("failed to connect to broker", "error", err)
		}
		defer publisher.Close()
		handler = publisher
		log.Infow("outbox relay publishing to broker", "exchange", cfg.AMQP.Exchange)
	} else {
		log.Info("AMQP_URL not set, outbox events are only logged")
	}

	relay := postgres.NewOutboxRelay(c.Tx, cfg.Worker.OutboxBatchSize, handler)

	scheduler := worker.NewScheduler(log, c.Metrics,
		worker.OutboxJob(relay, cfg.Worker.OutboxInterval),
		worker.OverdueJob(c.Payments, cfg.Worker.OverdueInterval),
		worker.BillingJob(c.Payments, cfg.Worker.BillingInterval, cfg.Worker.BillingDay),
		worker.HousekeepingJob(c.Auth, c.Idempotency, relay, cfg.Worker.CleanupInterval),
	)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           c.Metrics.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Infow("metrics endpoint listening", "addr", cfg.Metrics.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("metrics endpoint failed", "error", err)
			}
		}()
	}

	if err := scheduler.Run(ctx); err != nil {
		log.Errorw("worker stopped with error", "error", err)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warnw("metrics endpoint shutdown failed", "error", err)
		}
	}

	log.Info("worker stopped")
}
