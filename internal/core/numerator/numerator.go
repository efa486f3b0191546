// Package numerator defines how invoice numbers are requested.
// The PostgreSQL implementation lives in infrastructure/numerator.
package numerator

import (
	"context"
	"time"
)

type Strategy int

const (
	// StrategyStrict increments the sequence row for every number; no gaps.
	StrategyStrict Strategy = iota

	// StrategyCached reserves a block of numbers in memory; restarts leave gaps.
	StrategyCached
)

type Options struct {
	Strategy Strategy
	// RangeSize is the block size for StrategyCached (default 50).
	RangeSize int64
}

func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

type ResetPeriod string

const (
	ResetYearly  ResetPeriod = "year"
	ResetMonthly ResetPeriod = "month"
	ResetNever   ResetPeriod = "never"
)

// Config describes one number series.
type Config struct {
	Prefix      string
	IncludeYear bool
	PadWidth    int
	ResetPeriod ResetPeriod
}

// InvoiceConfig is the series used for payment invoices: INV-2026-000001.
func InvoiceConfig() Config {
	return Config{
		Prefix:      "INV",
		IncludeYear: true,
		PadWidth:    6,
		ResetPeriod: ResetYearly,
	}
}

// Generator hands out formatted sequential numbers.
type Generator interface {
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}

// MockGenerator is a Generator for unit tests.
type MockGenerator struct {
	GetNextNumberFunc func(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)
	SetNextNumberFunc func(ctx context.Context, cfg Config, period time.Time, value int64) error
}

func (m *MockGenerator) GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error) {
	if m.GetNextNumberFunc != nil {
		return m.GetNextNumberFunc(ctx, cfg, opts, period)
	}
	return cfg.Prefix + "-" + period.Format("2006") + "-000001", nil
}

func (m *MockGenerator) SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error {
	if m.SetNextNumberFunc != nil {
		return m.SetNextNumberFunc(ctx, cfg, period, value)
	}
	return nil
}

var _ Generator = (*MockGenerator)(nil)
