// Package main prepares a database: migrations, default settings, the first
// administrator and, on request, a handful of demo residents.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"rwpay/internal/app"
	"rwpay/internal/config"
	"rwpay/internal/core/apperror"
	corenumerator "rwpay/internal/core/numerator"
	"rwpay/internal/domain/auth"
	"rwpay/internal/domain/catalogs/resident"
	"rwpay/internal/domain/settings"
	"rwpay/internal/infrastructure/storage/postgres"
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

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := logger.WithLogger(context.Background(), log)

	version, err := postgres.RunMigrations(cfg.Database.URL)
	if err != nil {
		log.Fatalw("failed to run migrations", "error", err)
	}
	log.Infow("migrations applied", "version", version)

	c, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer c.Close()

	if err := seedSettings(ctx, c.Settings, log); err != nil {
		log.Fatalw("failed to seed settings", "error", err)
	}

	if err := seedAdmin(ctx, c.Auth, log); err != nil {
		log.Fatalw("failed to seed administrator", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoResidents(ctx, c.Residents, log); err != nil {
			log.Fatalw("failed to seed demo residents", "error", err)
		}
	}

	if raw := os.Getenv("SEED_INVOICE_LAST_NUMBER"); raw != "" {
		last, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || last < 0 {
			log.Fatalw("SEED_INVOICE_LAST_NUMBER must be a non-negative integer", "value", raw)
		}
		if err := c.Numerator.SetNextNumber(ctx, corenumerator.InvoiceConfig(), time.Now().UTC(), last); err != nil {
			log.Fatalw("failed to move invoice series", "error", err)
		}
		log.Infow("invoice series moved", "last_number", last)
	}

	log.Info("seed completed")
}

// seedSettings stores the defaults for keys that were never saved, leaving
// edited values alone.
func seedSettings(ctx context.Context, svc *settings.Service, log *logger.Logger) error {
	stored, err := svc.List(ctx)
	if err != nil {
		return err
	}
	existing := make(map[string]bool, len(stored))
	for _, s := range stored {
		existing[s.Key] = true
	}

	missing := make(map[string]string)
	for key, value := range settings.Defaults {
		if !existing[key] {
			missing[key] = value
		}
	}
	if len(missing) == 0 {
		log.Info("settings already present")
		return nil
	}
	if err := svc.UpsertMany(ctx, missing); err != nil {
		return err
	}
	log.Infow("default settings stored", "count", len(missing))
	return nil
}

func seedAdmin(ctx context.Context, svc *auth.Service, log *logger.Logger) error {
	email := getEnv("SEED_ADMIN_EMAIL", "admin@rwpay.local")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		return fmt.Errorf("SEED_ADMIN_PASSWORD is required")
	}

	user, err := svc.CreateAdmin(ctx, auth.CreateAdminRequest{
		Email:    email,
		Password: password,
		Name:     getEnv("SEED_ADMIN_NAME", "Administrator"),
		Role:     auth.RoleSuperAdmin,
	})
	if apperror.HasCode(err, apperror.CodeConflict) {
		log.Infow("administrator already exists", "email", email)
		return nil
	}
	if err != nil {
		return err
	}
	log.Infow("administrator created", "email", user.Email, "id", user.ID)
	return nil
}

var demoResidents = []struct {
	name, house, rt string
}{
	{"Budi Santoso", "A-01", "01"},
	{"Siti Aminah", "A-02", "01"},
	{"Agus Wijaya", "B-07", "02"},
	{"Dewi Lestari", "B-12", "02"},
	{"Rudi Hartono", "C-03", "03"},
}

func seedDemoResidents(ctx context.Context, svc *resident.Service, log *logger.Logger) error {
	created := 0
	for _, d := range demoResidents {
		err := svc.Create(ctx, resident.NewResident(d.name, d.house, d.rt))
		if apperror.HasCode(err, apperror.CodeDuplicate) {
			continue
		}
		if err != nil {
			return fmt.Errorf("create %s: %w", d.house, err)
		}
		created++
	}
	log.Infow("demo residents seeded", "created", created)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
