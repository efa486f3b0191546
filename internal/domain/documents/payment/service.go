package payment

import (
	"context"
	"fmt"
	"time"

	"rwpay/internal/core/apperror"
	appctx "rwpay/internal/core/context"
	"rwpay/internal/core/id"
	"rwpay/internal/core/numerator"
	"rwpay/internal/core/tx"
	"rwpay/internal/core/types"
	"rwpay/internal/domain"
	"rwpay/internal/domain/audit"
	"rwpay/internal/domain/catalogs/resident"
	"rwpay/internal/domain/reconciliation"
	"rwpay/internal/domain/registers/meter"
	"rwpay/internal/domain/settings"
	"rwpay/pkg/logger"
)

const (
	tableName     = "payments"
	aggregateType = "payment"

	EventPaid    = "payment.paid"
	EventOverdue = "payment.overdue"
)

type ResidentLookup interface {
	GetByID(ctx context.Context, id id.ID) (*resident.Resident, error)
	ListActive(ctx context.Context) ([]*resident.Resident, error)
}

type MeterSource interface {
	ListByMonth(ctx context.Context, month reconciliation.Month) ([]*meter.Reading, error)
}

type BillingSource interface {
	Billing(ctx context.Context) (settings.Billing, error)
}

// EventPayload is the body of payment events sent through the outbox.
type EventPayload struct {
	PaymentID  id.ID       `json:"paymentId"`
	Number     string      `json:"number"`
	ResidentID id.ID       `json:"residentId"`
	Category   Category    `json:"category"`
	Amount     types.Money `json:"amount"`
	Period     string      `json:"period"`
	Status     Status      `json:"status"`
	PaidDate   *time.Time  `json:"paidDate,omitempty"`
}

type Service struct {
	repo      Repository
	residents ResidentLookup
	meters    MeterSource
	billing   BillingSource
	numerator numerator.Generator
	events    domain.EventPublisher
	activity  audit.Recorder
	txManager tx.Manager
	now       func() time.Time
}

type ServiceConfig struct {
	Repo      Repository
	Residents ResidentLookup
	Meters    MeterSource
	Billing   BillingSource
	Numerator numerator.Generator
	Events    domain.EventPublisher // optional
	Activity  audit.Recorder        // optional
	TxManager tx.Manager
	Now       func() time.Time // optional, for tests
}

func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:      cfg.Repo,
		residents: cfg.Residents,
		meters:    cfg.Meters,
		billing:   cfg.Billing,
		numerator: cfg.Numerator,
		events:    cfg.Events,
		activity:  cfg.Activity,
		txManager: cfg.TxManager,
		now:       now,
	}
}

// ChargeInput describes a charge for one resident, category and month.
type ChargeInput struct {
	ResidentID id.ID
	Category   Category
	Month      reconciliation.Month

	// Amount overrides the monthly fee for LPS charges.
	Amount *types.Money
	// UsageQuantity is required for PAB charges.
	UsageQuantity *types.Quantity
	// RatePerUnit overrides the pab_rate setting.
	RatePerUnit *types.Money
	// DueDate overrides the due_day setting.
	DueDate *time.Time

	Notes string
}

// ConfirmInput adds how the money was received.
type ConfirmInput struct {
	ChargeInput
	PaidDate      *time.Time
	PaymentMethod string
}

// buildCharge resolves tariff defaults and derives the amount.
func (s *Service) buildCharge(ctx context.Context, in ChargeInput) (*Payment, error) {
	if !in.Category.Valid() {
		return nil, apperror.NewInvalidArgument("category",
			fmt.Sprintf("unknown payment category %q (expected LPS or PAB)", in.Category))
	}
	if err := in.Month.Validate(); err != nil {
		return nil, err
	}

	r, err := s.residents.GetByID(ctx, in.ResidentID)
	if err != nil {
		return nil, err
	}
	if !r.IsActive() {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule, "resident is not active").
			WithDetail("resident_id", in.ResidentID.String())
	}

	tariff, err := s.billing.Billing(ctx)
	if err != nil {
		return nil, fmt.Errorf("load billing settings: %w", err)
	}

	due := in.Month.Day(tariff.DueDay)
	if in.DueDate != nil {
		if !in.Month.Contains(*in.DueDate) {
			return nil, apperror.NewValidation("due date must fall within the billed month").
				WithDetail("field", "dueDate")
		}
		due = *in.DueDate
	}

	p := NewPayment(in.ResidentID, in.Category, 0, due)
	if in.Notes != "" {
		notes := in.Notes
		p.Notes = &notes
	}

	switch in.Category {
	case reconciliation.CategoryFixedFee:
		p.Amount = tariff.MonthlyFee
		if in.Amount != nil {
			p.Amount = *in.Amount
		}
	case reconciliation.CategoryMetered:
		if in.UsageQuantity == nil {
			return nil, apperror.NewValidation("usage quantity is required for PAB payments").
				WithDetail("field", "usageQuantity")
		}
		rate := tariff.PABRate
		if in.RatePerUnit != nil {
			rate = *in.RatePerUnit
		}
		if err := p.SetMetered(*in.UsageQuantity, rate); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Confirm records that a resident paid a charge. An open bill for the same
// month is settled; otherwise a new payment is created directly as paid.
// A second payment for an already paid month is rejected.
func (s *Service) Confirm(ctx context.Context, in ConfirmInput) (*Payment, error) {
	candidate, err := s.buildCharge(ctx, in.ChargeInput)
	if err != nil {
		return nil, err
	}
	paidDate := s.now()
	if in.PaidDate != nil {
		paidDate = *in.PaidDate
	}

	var result *Payment
	var before *Payment
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindForPeriod(ctx, in.ResidentID, in.Category, candidate.Period)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}

		if existing != nil {
			if existing.Status == StatusPaid {
				return apperror.NewDuplicate("payment", "period", existing.Period).
					WithDetail("payment_id", existing.ID.String())
			}
			snapshot := *existing
			before = &snapshot

			// An open fee bill keeps its price unless the request names one.
			if in.Category == reconciliation.CategoryMetered || in.Amount != nil {
				existing.Amount = candidate.Amount
				existing.UsageQuantity = candidate.UsageQuantity
				existing.RatePerUnit = candidate.RatePerUnit
			}
			if err := existing.MarkPaid(paidDate, in.PaymentMethod, in.Notes); err != nil {
				return err
			}
			s.stampUpdated(ctx, existing)
			if err := existing.Validate(ctx); err != nil {
				return err
			}
			if err := s.repo.Update(ctx, existing); err != nil {
				return fmt.Errorf("settle payment: %w", err)
			}
			result = existing
		} else {
			if err := candidate.MarkPaid(paidDate, in.PaymentMethod, ""); err != nil {
				return err
			}
			if err := s.insert(ctx, candidate); err != nil {
				return err
			}
			result = candidate
		}

		return s.publish(ctx, EventPaid, result)
	})
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, s.activity, audit.ActionConfirm, tableName, result.ID.String(), before, result)
	return result, nil
}

// CreateBill creates a pending charge.
func (s *Service) CreateBill(ctx context.Context, in ChargeInput) (*Payment, error) {
	p, err := s.buildCharge(ctx, in)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindForPeriod(ctx, in.ResidentID, in.Category, p.Period)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		if existing != nil {
			return apperror.NewDuplicate("payment", "period", p.Period).
				WithDetail("payment_id", existing.ID.String())
		}
		return s.insert(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, s.activity, audit.ActionCreate, tableName, p.ID.String(), nil, p)
	return p, nil
}

func (s *Service) insert(ctx context.Context, p *Payment) error {
	if uid, err := id.Parse(appctx.GetUserID(ctx)); err == nil {
		p.StampCreated(uid)
	}
	if p.Number == "" {
		num, err := s.numerator.GetNextNumber(ctx, numerator.InvoiceConfig(), nil, p.Date)
		if err != nil {
			return fmt.Errorf("generate invoice number: %w", err)
		}
		p.Number = num
	}
	if err := p.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (s *Service) stampUpdated(ctx context.Context, p *Payment) {
	uid, _ := id.Parse(appctx.GetUserID(ctx))
	p.StampUpdated(uid)
}

func (s *Service) publish(ctx context.Context, eventType string, p *Payment) error {
	if s.events == nil {
		return nil
	}
	return s.events.Publish(ctx, domain.Event{
		AggregateType: aggregateType,
		AggregateID:   p.ID,
		EventType:     eventType,
		Payload: EventPayload{
			PaymentID:  p.ID,
			Number:     p.Number,
			ResidentID: p.ResidentID,
			Category:   p.Category,
			Amount:     p.Amount,
			Period:     p.Period,
			Status:     p.Status,
			PaidDate:   p.PaidDate,
		},
	})
}

// MarkPaidInput describes a received payment for an existing bill.
type MarkPaidInput struct {
	PaidDate      *time.Time
	PaymentMethod string
	Notes         string
}

// MarkPaid moves a pending or overdue payment to paid.
func (s *Service) MarkPaid(ctx context.Context, paymentID id.ID, in MarkPaidInput) (*Payment, error) {
	paidDate := s.now()
	if in.PaidDate != nil {
		paidDate = *in.PaidDate
	}
	return s.transition(ctx, paymentID, audit.ActionMarkPaid, EventPaid, func(p *Payment) error {
		return p.MarkPaid(paidDate, in.PaymentMethod, in.Notes)
	})
}

// MarkOverdue moves a pending payment to overdue.
func (s *Service) MarkOverdue(ctx context.Context, paymentID id.ID) (*Payment, error) {
	return s.transition(ctx, paymentID, audit.ActionMarkOverdue, EventOverdue, func(p *Payment) error {
		return p.MarkOverdue()
	})
}

func (s *Service) transition(ctx context.Context, paymentID id.ID, action audit.Action, eventType string, apply func(*Payment) error) (*Payment, error) {
	var p, before *Payment
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		snapshot := *p
		before = &snapshot

		if err := apply(p); err != nil {
			return err
		}
		s.stampUpdated(ctx, p)
		if err := s.repo.Update(ctx, p); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		return s.publish(ctx, eventType, p)
	})
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, s.activity, action, tableName, p.ID.String(), before, p)
	return p, nil
}

// UpdateInput edits an open payment. Nil fields are left unchanged.
type UpdateInput struct {
	Version       int
	Amount        *types.Money
	UsageQuantity *types.Quantity
	RatePerUnit   *types.Money
	DueDate       *time.Time
	Notes         *string
}

// Update edits amount, usage, due date or notes of a payment that is not paid yet.
func (s *Service) Update(ctx context.Context, paymentID id.ID, in UpdateInput) (*Payment, error) {
	var p, before *Payment
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Version != in.Version {
			return apperror.NewConcurrentModification("payment", paymentID.String())
		}
		if p.Status == StatusPaid {
			return apperror.NewBusinessRule(apperror.CodePaymentAlreadyPaid, "paid payments cannot be edited").
				WithDetail("payment_id", paymentID.String())
		}
		snapshot := *p
		before = &snapshot

		if err := applyUpdate(p, in); err != nil {
			return err
		}
		s.stampUpdated(ctx, p)
		if err := p.Validate(ctx); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, p); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, s.activity, audit.ActionUpdate, tableName, p.ID.String(), before, p)
	return p, nil
}

func applyUpdate(p *Payment, in UpdateInput) error {
	if in.DueDate != nil {
		if !p.Month().Contains(*in.DueDate) {
			return apperror.NewValidation("due date cannot move a payment to another month").
				WithDetail("field", "dueDate")
		}
		p.SetDueDate(*in.DueDate)
	}
	if in.Notes != nil {
		p.Notes = in.Notes
	}

	switch p.Category {
	case reconciliation.CategoryMetered:
		if in.Amount != nil {
			return apperror.NewValidation("PAB amount is derived from usage and rate").
				WithDetail("field", "amount")
		}
		if in.UsageQuantity != nil || in.RatePerUnit != nil {
			usage := types.Quantity{}
			if p.UsageQuantity != nil {
				usage = *p.UsageQuantity
			}
			var rate types.Money
			if p.RatePerUnit != nil {
				rate = *p.RatePerUnit
			}
			if in.UsageQuantity != nil {
				usage = *in.UsageQuantity
			}
			if in.RatePerUnit != nil {
				rate = *in.RatePerUnit
			}
			return p.SetMetered(usage, rate)
		}
	default:
		if in.UsageQuantity != nil || in.RatePerUnit != nil {
			return apperror.NewValidation("usage and rate apply to PAB payments only").
				WithDetail("field", "usageQuantity")
		}
		if in.Amount != nil {
			p.Amount = *in.Amount
		}
	}
	return nil
}

// Delete soft-deletes a payment.
func (s *Service) Delete(ctx context.Context, paymentID id.ID) error {
	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.SetDeletionMark(ctx, paymentID, true)
	})
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	audit.Log(ctx, s.activity, audit.ActionDelete, tableName, paymentID.String(), p, nil)
	return nil
}

func (s *Service) GetByID(ctx context.Context, paymentID id.ID) (*Payment, error) {
	return s.repo.GetByID(ctx, paymentID)
}

func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Payment], error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// Recent returns the latest paid payments, newest payment date first.
func (s *Service) Recent(ctx context.Context, limit int) ([]*Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	paid := StatusPaid
	res, err := s.repo.List(ctx, ListFilter{Status: &paid, OrderBy: "-paid_date", Limit: limit})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// ListPaid returns paid payments whose due date is within [from, to].
func (s *Service) ListPaid(ctx context.Context, from, to time.Time) ([]*Payment, error) {
	return s.repo.ListPaid(ctx, from, to)
}

// ListOpen returns pending and overdue payments due within [from, to].
func (s *Service) ListOpen(ctx context.Context, from, to time.Time) ([]*Payment, error) {
	return s.repo.ListOpen(ctx, from, to)
}

// GenerationResult summarizes a bill generation run.
type GenerationResult struct {
	Month   string `json:"month"`
	Created int64  `json:"created"`
	Skipped int    `json:"skipped"`
}

// GenerateMonthlyBills creates pending LPS bills for every active resident and
// PAB bills from the month's meter readings. Residents that already have a
// payment for the month and category are skipped, so reruns are harmless.
func (s *Service) GenerateMonthlyBills(ctx context.Context, month reconciliation.Month) (GenerationResult, error) {
	result := GenerationResult{Month: month.String()}
	if err := month.Validate(); err != nil {
		return result, err
	}

	tariff, err := s.billing.Billing(ctx)
	if err != nil {
		return result, fmt.Errorf("load billing settings: %w", err)
	}
	roster, err := s.residents.ListActive(ctx)
	if err != nil {
		return result, fmt.Errorf("list active residents: %w", err)
	}
	readings, err := s.meters.ListByMonth(ctx, month)
	if err != nil {
		return result, fmt.Errorf("list meter readings: %w", err)
	}

	due := month.Day(tariff.DueDay)
	usageByResident := make(map[id.ID]types.Quantity, len(readings))
	for _, r := range readings {
		usageByResident[r.ResidentID] = r.Usage
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.ListByPeriod(ctx, month.String())
		if err != nil {
			return err
		}
		billed := make(map[id.ID]map[Category]bool, len(existing))
		for _, p := range existing {
			if billed[p.ResidentID] == nil {
				billed[p.ResidentID] = map[Category]bool{}
			}
			billed[p.ResidentID][p.Category] = true
		}

		var bills []*Payment
		for _, r := range roster {
			if billed[r.ID][reconciliation.CategoryFixedFee] {
				result.Skipped++
			} else {
				bills = append(bills, NewPayment(r.ID, reconciliation.CategoryFixedFee, tariff.MonthlyFee, due))
			}

			usage, hasReading := usageByResident[r.ID]
			if !hasReading {
				continue
			}
			if billed[r.ID][reconciliation.CategoryMetered] {
				result.Skipped++
				continue
			}
			bill := NewPayment(r.ID, reconciliation.CategoryMetered, 0, due)
			if err := bill.SetMetered(usage, tariff.PABRate); err != nil {
				return err
			}
			bills = append(bills, bill)
		}
		if len(bills) == 0 {
			return nil
		}

		uid, _ := id.Parse(appctx.GetUserID(ctx))
		for _, b := range bills {
			b.StampCreated(uid)
			num, err := s.numerator.GetNextNumber(ctx, numerator.InvoiceConfig(), nil, b.Date)
			if err != nil {
				return fmt.Errorf("generate invoice number: %w", err)
			}
			b.Number = num
		}

		result.Created, err = s.repo.CreateBatch(ctx, bills)
		return err
	})
	if err != nil {
		return GenerationResult{Month: month.String()}, err
	}

	logger.Info(ctx, "monthly bills generated",
		"month", result.Month, "created", result.Created, "skipped", result.Skipped)
	return result, nil
}

// SweepOverdue marks every pending payment due before today as overdue.
func (s *Service) SweepOverdue(ctx context.Context, today time.Time) (int, error) {
	var swept int
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		due, err := s.repo.ListPendingDueBefore(ctx, today)
		if err != nil {
			return err
		}
		for _, p := range due {
			if !p.IsOverdueAt(today) {
				continue
			}
			if err := p.MarkOverdue(); err != nil {
				return err
			}
			s.stampUpdated(ctx, p)
			if err := s.repo.Update(ctx, p); err != nil {
				return fmt.Errorf("mark payment %s overdue: %w", p.ID, err)
			}
			if err := s.publish(ctx, EventOverdue, p); err != nil {
				return err
			}
			swept++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return swept, nil
}
