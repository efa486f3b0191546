// Package config loads process configuration from an optional YAML file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	AMQP     AMQPConfig     `yaml:"amqp"`
	Worker   WorkerConfig   `yaml:"worker"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	IdempotencyTTL  time.Duration `yaml:"idempotency_ttl"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// AMQPConfig is optional; an empty URL disables the broker relay.
type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type WorkerConfig struct {
	OutboxInterval  time.Duration `yaml:"outbox_interval"`
	OutboxBatchSize int           `yaml:"outbox_batch_size"`
	OverdueInterval time.Duration `yaml:"overdue_interval"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	BillingInterval time.Duration `yaml:"billing_interval"`
	// BillingDay is the day of month from which bills for the current month are generated.
	BillingDay int `yaml:"billing_day"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

func Defaults() Config {
	return Config{
		Database: DatabaseConfig{MaxConns: 10},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			IdempotencyTTL:  24 * time.Hour,
			ShutdownTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Log:  LogConfig{Level: "info"},
		AMQP: AMQPConfig{Exchange: "rwpay.events"},
		Worker: WorkerConfig{
			OutboxInterval:  5 * time.Second,
			OutboxBatchSize: 100,
			OverdueInterval: time.Hour,
			CleanupInterval: 6 * time.Hour,
			BillingInterval: 6 * time.Hour,
			BillingDay:      1,
		},
		Metrics: MetricsConfig{Enabled: true, Addr: ":9090"},
	}
}

// Load reads .env (if present), then CONFIG_FILE (if set), then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("DATABASE_URL", &c.Database.URL)
	e.integer32("DATABASE_MAX_CONNS", &c.Database.MaxConns)

	e.str("HTTP_ADDR", &c.HTTP.Addr)
	e.list("CORS_ORIGINS", &c.HTTP.CORSOrigins)
	e.duration("IDEMPOTENCY_TTL", &c.HTTP.IdempotencyTTL)
	e.duration("HTTP_SHUTDOWN_TIMEOUT", &c.HTTP.ShutdownTimeout)

	e.str("JWT_SECRET", &c.Auth.JWTSecret)
	e.duration("JWT_ACCESS_TTL", &c.Auth.AccessTTL)
	e.duration("JWT_REFRESH_TTL", &c.Auth.RefreshTTL)

	e.str("LOG_LEVEL", &c.Log.Level)
	e.boolean("LOG_DEVELOPMENT", &c.Log.Development)

	e.str("AMQP_URL", &c.AMQP.URL)
	e.str("AMQP_EXCHANGE", &c.AMQP.Exchange)

	e.duration("WORKER_OUTBOX_INTERVAL", &c.Worker.OutboxInterval)
	e.integer("WORKER_OUTBOX_BATCH_SIZE", &c.Worker.OutboxBatchSize)
	e.duration("WORKER_OVERDUE_INTERVAL", &c.Worker.OverdueInterval)
	e.duration("WORKER_CLEANUP_INTERVAL", &c.Worker.CleanupInterval)
	e.duration("WORKER_BILLING_INTERVAL", &c.Worker.BillingInterval)
	e.integer("WORKER_BILLING_DAY", &c.Worker.BillingDay)

	e.boolean("METRICS_ENABLED", &c.Metrics.Enabled)
	e.str("METRICS_ADDR", &c.Metrics.Addr)

	if len(e.errs) > 0 {
		return fmt.Errorf("invalid environment:\n- %s", strings.Join(e.errs, "\n- "))
	}
	return nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 characters")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= c.Auth.AccessTTL {
		errs = append(errs, "JWT_REFRESH_TTL must be longer than a positive JWT_ACCESS_TTL")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid LOG_LEVEL %q", c.Log.Level))
	}
	if c.AMQP.URL != "" {
		u, err := url.Parse(c.AMQP.URL)
		if err != nil || (u.Scheme != "amqp" && u.Scheme != "amqps") {
			errs = append(errs, fmt.Sprintf("invalid AMQP_URL %q: scheme must be amqp or amqps", c.AMQP.URL))
		}
		if c.AMQP.Exchange == "" {
			errs = append(errs, "AMQP_EXCHANGE is required when AMQP_URL is set")
		}
	}
	if c.Worker.BillingDay < 1 || c.Worker.BillingDay > 28 {
		errs = append(errs, fmt.Sprintf("WORKER_BILLING_DAY %d must be between 1 and 28", c.Worker.BillingDay))
	}
	for name, d := range map[string]time.Duration{
		"WORKER_OUTBOX_INTERVAL":  c.Worker.OutboxInterval,
		"WORKER_OVERDUE_INTERVAL": c.Worker.OverdueInterval,
		"WORKER_CLEANUP_INTERVAL": c.Worker.CleanupInterval,
		"WORKER_BILLING_INTERVAL": c.Worker.BillingInterval,
	} {
		if d < time.Second {
			errs = append(errs, fmt.Sprintf("%s must be at least 1s", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

type envReader struct {
	lookup lookupFunc
	errs   []string
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) list(key string, dst *[]string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Sprintf("%s: %q is not a number", key, v))
			return
		}
		*dst = n
	}
}

func (e *envReader) integer32(key string, dst *int32) {
	if v, ok := e.get(key); ok {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			e.errs = append(e.errs, fmt.Sprintf("%s: %q is not a number", key, v))
			return
		}
		*dst = int32(n)
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Sprintf("%s: %q is not a boolean", key, v))
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Sprintf("%s: %q is not a duration", key, v))
			return
		}
		*dst = d
	}
}
