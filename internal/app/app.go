// Package app assembles repositories and services from configuration. The
// server, the worker and the seeder share it so they always agree on wiring.
package app

import (
	"context"
	"fmt"

	"rwpay/internal/config"
	"rwpay/internal/domain/auth"
	"rwpay/internal/domain/catalogs/resident"
	"rwpay/internal/domain/documents/payment"
	"rwpay/internal/domain/registers/meter"
	"rwpay/internal/domain/reports"
	"rwpay/internal/domain/settings"
	"rwpay/internal/infrastructure/cache"
	"rwpay/internal/infrastructure/export"
	"rwpay/internal/infrastructure/metrics"
	"rwpay/internal/infrastructure/numerator"
	"rwpay/internal/infrastructure/policy"
	"rwpay/internal/infrastructure/storage/postgres"
	"rwpay/internal/infrastructure/storage/postgres/auth_repo"
	"rwpay/internal/infrastructure/storage/postgres/catalog_repo"
	"rwpay/internal/infrastructure/storage/postgres/document_repo"
	"rwpay/internal/infrastructure/storage/postgres/register_repo"
	"rwpay/internal/infrastructure/storage/postgres/report_repo"
	"rwpay/pkg/logger"
)

// Container holds everything a binary needs after startup.
type Container struct {
	Config  *config.Config
	Log     *logger.Logger
	Pool    *postgres.Pool
	Tx      *postgres.TxManager
	Metrics *metrics.Metrics

	Activity      *postgres.ActivityLog
	Idempotency   *postgres.IdempotencyStore
	Numerator     *numerator.Service
	SettingsCache *cache.SettingsCache

	JWT       *auth.JWTService
	Auth      *auth.Service
	Residents *resident.Service
	Meters    *meter.Service
	Settings  *settings.Service
	Payments  *payment.Service
	Reports   *reports.Service

	closers []func()
}

// New connects to the database and builds every service. Close releases
// what New acquired, in reverse order.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{Config: cfg, Log: log, Metrics: metrics.New()}

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.URL)
	if cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Database.MaxConns
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	c.Pool = pool
	c.closers = append(c.closers, pool.Close)
	c.Metrics.WatchPool(func() (int32, int32, int32) {
		s := pool.Stats()
		return s.TotalConns, s.AcquiredConns, s.IdleConns
	})
	log.Infow("database connection established", "max_conns", poolCfg.MaxConns)

	c.Tx = postgres.NewTxManager(pool)

	c.Activity, err = postgres.NewActivityLog(c.Tx)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("activity log: %w", err)
	}
	c.closers = append(c.closers, c.Activity.Close)

	c.Idempotency = postgres.NewIdempotencyStore(c.Tx, cfg.HTTP.IdempotencyTTL)
	c.Numerator = numerator.New(c.Tx)

	compiler, err := policy.NewCompiler(log)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("expression compiler: %w", err)
	}

	settingsRepo := postgres.NewSettingsRepo(c.Tx)
	c.SettingsCache = cache.NewSettingsCache(pool.Pool, postgres.SettingsChannel, cache.LoaderFromRepo(settingsRepo))
	c.Settings = settings.NewService(settings.ServiceConfig{
		Repo:      settingsRepo,
		TxManager: c.Tx,
		Cache:     c.SettingsCache,
		CheckExpr: compiler.Check,
		Activity:  c.Activity,
	})

	c.Residents = resident.NewService(catalog_repo.NewResidentRepo(c.Tx), c.Tx, c.Activity)
	c.Meters = meter.NewService(register_repo.NewMeterRepo(c.Tx), c.Residents, c.Tx, c.Activity)

	c.Payments = payment.NewService(payment.ServiceConfig{
		Repo:      document_repo.NewPaymentRepo(c.Tx),
		Residents: c.Residents,
		Meters:    c.Meters,
		Billing:   c.Settings,
		Numerator: c.Numerator,
		Events:    postgres.NewOutboxPublisher(c.Tx),
		Activity:  c.Activity,
		TxManager: c.Tx,
	})

	c.Reports = reports.NewService(reports.ServiceConfig{
		Repo:      report_repo.NewReportRepo(c.Tx),
		Residents: c.Residents,
		Payments:  c.Payments,
		Settings:  c.Settings,
		Compile:   compiler.Compile,
		Renderers: export.Renderers(),
		Observer:  c.Metrics,
	})

	jwtCfg := auth.DefaultJWTConfig(cfg.Auth.JWTSecret)
	jwtCfg.AccessTokenTTL = cfg.Auth.AccessTTL
	c.JWT = auth.NewJWTService(jwtCfg)

	authCfg := auth.DefaultServiceConfig()
	authCfg.RefreshTokenExpiry = cfg.Auth.RefreshTTL
	c.Auth = auth.NewService(auth_repo.NewUserRepo(c.Tx), auth_repo.NewTokenRepo(c.Tx), c.Tx, c.JWT, authCfg)

	return c, nil
}

// StartSettingsCache subscribes to change notifications and reloads the
// snapshot after each one so the next request does not pay for it.
func (c *Container) StartSettingsCache(ctx context.Context) {
	c.SettingsCache.OnChange(func(ctx context.Context) {
		if _, err := c.SettingsCache.Snapshot(ctx); err != nil {
			c.Log.Warnw("settings reload failed", "error", err)
			return
		}
		c.Log.Debugw("settings reloaded")
	})
	c.SettingsCache.Start(ctx)
	c.closers = append(c.closers, c.SettingsCache.Stop)
}

func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
