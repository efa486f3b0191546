package reports

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"rwpay/internal/core/apperror"
	"rwpay/internal/core/id"
	"rwpay/internal/core/types"
	"rwpay/internal/domain"
	"rwpay/internal/domain/catalogs/resident"
	"rwpay/internal/domain/documents/payment"
	"rwpay/internal/domain/reconciliation"
	"rwpay/internal/domain/settings"
	"rwpay/pkg/logger"
)

var tracer = otel.Tracer("rwpay/reports")

const maxTrendMonths = 36

type ResidentSource interface {
	GetByID(ctx context.Context, residentID id.ID) (*resident.Resident, error)
	ListActive(ctx context.Context) ([]*resident.Resident, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*resident.Resident], error)
	StatusDistribution(ctx context.Context) (map[resident.Status]int64, error)
}

type PaymentSource interface {
	GetByID(ctx context.Context, paymentID id.ID) (*payment.Payment, error)
	ListPaid(ctx context.Context, from, to time.Time) ([]*payment.Payment, error)
	ListOpen(ctx context.Context, from, to time.Time) ([]*payment.Payment, error)
}

type SettingsSource interface {
	Association(ctx context.Context) (settings.Association, error)
	Billing(ctx context.Context) (settings.Billing, error)
}

// PredicateCompiler turns the satisfied_expression setting into an engine predicate.
type PredicateCompiler func(expr string) (reconciliation.SatisfiedFunc, error)

// Observer receives report metrics. Implemented by the metrics package.
type Observer interface {
	MonthlyComputed(elapsed time.Duration, stat *reconciliation.MonthlyStatistic)
	Exported(kind ExportKind, format Format, size int)
}

type Service struct {
	repo      Repository
	residents ResidentSource
	payments  PaymentSource
	settings  SettingsSource
	compile   PredicateCompiler
	renderers map[Format]Renderer
	observer  Observer
	now       func() time.Time
}

type ServiceConfig struct {
	Repo      Repository
	Residents ResidentSource
	Payments  PaymentSource
	Settings  SettingsSource
	Compile   PredicateCompiler   // optional; every paid payment counts when nil
	Renderers map[Format]Renderer // optional; exports fail when the format is missing
	Observer  Observer            // optional
	Now       func() time.Time    // optional
}

func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:      cfg.Repo,
		residents: cfg.Residents,
		payments:  cfg.Payments,
		settings:  cfg.Settings,
		compile:   cfg.Compile,
		renderers: cfg.Renderers,
		observer:  cfg.Observer,
		now:       now,
	}
}

// CurrentMonth returns the month of the service clock.
func (s *Service) CurrentMonth() reconciliation.Month {
	return reconciliation.MonthOf(s.now())
}

// MonthlyStatistic reconciles the active roster against the month's paid payments.
// The roster and payments are read concurrently without a shared snapshot.
func (s *Service) MonthlyStatistic(ctx context.Context, month reconciliation.Month) (*reconciliation.MonthlyStatistic, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "reports.MonthlyStatistic",
		trace.WithAttributes(attribute.String("month", month.String())))
	defer span.End()
	started := time.Now()

	var (
		roster  []*resident.Resident
		paid    []*payment.Payment
		billing settings.Billing
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roster, err = s.residents.ListActive(gctx)
		if err != nil {
			return fmt.Errorf("list active residents: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		paid, err = s.payments.ListPaid(gctx, month.FirstDay(), month.LastDay())
		if err != nil {
			return fmt.Errorf("list paid payments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		billing, err = s.settings.Billing(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	entries := make([]reconciliation.Resident, 0, len(roster))
	for _, r := range roster {
		entries = append(entries, r.RosterEntry())
	}
	records := make([]reconciliation.PaidPayment, 0, len(paid))
	for _, p := range paid {
		records = append(records, p.PaidRecord())
	}

	stat, err := reconciliation.ComputeMonthlyStatistic(month, entries, records,
		reconciliation.WithSatisfiedPredicate(s.predicate(ctx, billing.SatisfiedExpression)))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("residents", len(entries)),
		attribute.Int("payments", len(records)),
		attribute.Int("anomalies", len(stat.Anomalies)),
	)
	for _, a := range stat.Anomalies {
		logger.Warn(ctx, "reconciliation anomaly",
			"month", month.String(), "kind", a.Kind, "resident_id", a.ResidentID, "payments", a.PaymentIDs)
	}
	if s.observer != nil {
		s.observer.MonthlyComputed(time.Since(started), &stat)
	}
	return &stat, nil
}

// predicate falls back to counting every paid payment when the stored
// expression no longer compiles.
func (s *Service) predicate(ctx context.Context, expr string) reconciliation.SatisfiedFunc {
	if s.compile == nil || expr == "" {
		return reconciliation.AnyPaid
	}
	fn, err := s.compile(expr)
	if err != nil {
		logger.Warn(ctx, "satisfied expression rejected, counting every paid payment",
			"expression", expr, "error", err)
		return reconciliation.AnyPaid
	}
	return fn
}

// Dashboard combines the monthly statistic with tariff targets and open bills.
func (s *Service) Dashboard(ctx context.Context, month reconciliation.Month) (*Dashboard, error) {
	stat, err := s.MonthlyStatistic(ctx, month)
	if err != nil {
		return nil, err
	}

	var (
		open    []*payment.Payment
		billing settings.Billing
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		open, err = s.payments.ListOpen(gctx, month.FirstDay(), month.LastDay())
		return err
	})
	g.Go(func() error {
		var err error
		billing, err = s.settings.Billing(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &Dashboard{
		Month:            month.String(),
		TotalResidents:   stat.ResidentCount(),
		FullyPaid:        len(stat.FullyPaid),
		PartiallyPaid:    len(stat.PartiallyPaid),
		Unpaid:           len(stat.Unpaid),
		IncomeByCategory: stat.IncomeByCategory,
		IncomeThisMonth:  stat.TotalIncome,
		TargetIncome:     billing.TargetMonthlyIncome,
		OpenBills:        len(open),
		AnomalyCount:     len(stat.Anomalies),
	}
	if d.TotalResidents > 0 {
		d.CollectionRate = round2(float64(d.FullyPaid) * 100 / float64(d.TotalResidents))
	}
	for _, p := range open {
		d.OutstandingAmount += p.Amount
		if p.Status == payment.StatusOverdue {
			d.OverdueBills++
		}
	}
	return d, nil
}

// Trends returns income and payment counts per month for `months` months ending
// at `to`, oldest first. Months without payments are present with zeros.
func (s *Service) Trends(ctx context.Context, to reconciliation.Month, months int) ([]TrendPoint, error) {
	if err := to.Validate(); err != nil {
		return nil, err
	}
	if months <= 0 || months > maxTrendMonths {
		return nil, apperror.NewInvalidArgument("months",
			fmt.Sprintf("months must be between 1 and %d", maxTrendMonths))
	}
	from := to.AddMonths(-(months - 1))

	var (
		rows   []PeriodIncome
		counts []PeriodStatusCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if rows, err = s.repo.IncomeByPeriod(gctx, from.String(), to.String()); err != nil {
			return fmt.Errorf("income by period: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if counts, err = s.repo.StatusCountsByPeriod(gctx, from.String(), to.String()); err != nil {
			return fmt.Errorf("status counts by period: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	points := make([]TrendPoint, months)
	index := make(map[string]int, months)
	for i := range points {
		m := from.AddMonths(i)
		points[i] = TrendPoint{
			Month:            m.String(),
			IncomeByCategory: zeroIncome(),
			PaidByCategory:   map[reconciliation.Category]int64{},
		}
		for _, c := range reconciliation.AllCategories() {
			points[i].PaidByCategory[c] = 0
		}
		index[m.String()] = i
	}
	for _, r := range rows {
		i, ok := index[r.Period]
		if !ok {
			continue
		}
		points[i].IncomeByCategory[r.Category] += r.Amount
		points[i].PaidByCategory[r.Category] += r.PaidCount
		points[i].TotalIncome += r.Amount
	}
	for _, c := range counts {
		i, ok := index[c.Period]
		if !ok {
			continue
		}
		switch c.Status {
		case payment.StatusPending:
			points[i].PendingCount += c.Count
		case payment.StatusOverdue:
			points[i].OverdueCount += c.Count
		}
	}
	return points, nil
}

func (s *Service) ResidentStatusDistribution(ctx context.Context) (*Distribution, error) {
	counts, err := s.residents.StatusDistribution(ctx)
	if err != nil {
		return nil, err
	}
	d := &Distribution{
		Active:   counts[resident.StatusActive],
		Inactive: counts[resident.StatusInactive],
	}
	d.Total = d.Active + d.Inactive
	return d, nil
}

// UnpaidBills lists pending and overdue payments due in the month with resident details.
func (s *Service) UnpaidBills(ctx context.Context, month reconciliation.Month) ([]UnpaidBill, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}

	var (
		open   []*payment.Payment
		roster domain.ListResult[*resident.Resident]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		open, err = s.payments.ListOpen(gctx, month.FirstDay(), month.LastDay())
		return err
	})
	g.Go(func() error {
		var err error
		roster, err = s.residents.List(gctx, domain.ListFilter{IncludeDeleted: true, OrderBy: "house_number", Limit: maxExportRows})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[id.ID]*resident.Resident, len(roster.Items))
	for _, r := range roster.Items {
		byID[r.ID] = r
	}

	bills := make([]UnpaidBill, 0, len(open))
	for _, p := range open {
		b := UnpaidBill{Payment: p}
		if r, ok := byID[p.ResidentID]; ok {
			b.ResidentName = r.Name
			b.HouseNumber = r.HouseNumber
			b.RT = r.RT
		}
		bills = append(bills, b)
	}
	return bills, nil
}

func zeroIncome() map[reconciliation.Category]types.Money {
	m := make(map[reconciliation.Category]types.Money, len(reconciliation.AllCategories()))
	for _, c := range reconciliation.AllCategories() {
		m[c] = 0
	}
	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
