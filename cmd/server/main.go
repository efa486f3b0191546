// Package main is the entry point for the rwpay API server.
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
	v1 "rwpay/internal/infrastructure/http/v1"
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

	log.Info("starting rwpay server")

	c, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer c.Close()

	c.StartSettingsCache(ctx)

	routerCfg := v1.RouterConfig{
		DB:               c.Pool,
		Logger:           log,
		JWTValidator:     c.JWT,
		AuthService:      c.Auth,
		ResidentService:  c.Residents,
		PaymentService:   c.Payments,
		MeterService:     c.Meters,
		SettingsService:  c.Settings,
		ReportsService:   c.Reports,
		Activity:         c.Activity,
		IdempotencyStore: c.Idempotency,
		CORSOrigins:      cfg.HTTP.CORSOrigins,
		Development:      cfg.Log.Development,
	}
	if cfg.Metrics.Enabled {
		routerCfg.Metrics = c.Metrics
		routerCfg.MetricsHandler = c.Metrics.Handler()
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      v1.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
