// Package payment provides payment documents: monthly fee (LPS) and metered water (PAB)
// charges owed by residents, with an explicit status lifecycle.
package payment

import (
	"context"
	"time"

	"rwpay/internal/core/apperror"
	"rwpay/internal/core/entity"
	"rwpay/internal/core/id"
	"rwpay/internal/core/types"
	"rwpay/internal/domain/reconciliation"
)

type Category = reconciliation.Category

// Payment is one charge for one resident, category and month.
type Payment struct {
	entity.Document

	ResidentID id.ID       `db:"resident_id" json:"residentId"`
	Category   Category    `db:"category" json:"category"`
	Amount     types.Money `db:"amount" json:"amount"`
	Status     Status      `db:"status" json:"status"`

	// Period is the YYYY-MM month the charge belongs to; always the month of DueDate.
	Period  string    `db:"period" json:"period"`
	DueDate time.Time `db:"due_date" json:"dueDate"`

	// PaidDate is set exactly when Status is paid.
	PaidDate      *time.Time `db:"paid_date" json:"paidDate,omitempty"`
	PaymentMethod *string    `db:"payment_method" json:"paymentMethod,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`

	// Metered charges only.
	UsageQuantity *types.Quantity `db:"usage_quantity" json:"usageQuantity,omitempty"`
	RatePerUnit   *types.Money    `db:"rate_per_unit" json:"ratePerUnit,omitempty"`
}

// NewPayment creates a pending charge due on dueDate.
func NewPayment(residentID id.ID, category Category, amount types.Money, dueDate time.Time) *Payment {
	p := &Payment{
		Document:   entity.NewDocument(time.Now().UTC()),
		ResidentID: residentID,
		Category:   category,
		Amount:     amount,
		Status:     StatusPending,
	}
	p.SetDueDate(dueDate)
	return p
}

// SetDueDate keeps Period aligned with the due date.
func (p *Payment) SetDueDate(d time.Time) {
	p.DueDate = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	p.Period = reconciliation.MonthOf(p.DueDate).String()
}

// Month returns the reconciliation month of the payment.
func (p *Payment) Month() reconciliation.Month {
	return reconciliation.MonthOf(p.DueDate)
}

// SetMetered records usage and rate and derives the amount from them.
func (p *Payment) SetMetered(usage types.Quantity, rate types.Money) error {
	amount, err := types.MeteredAmount(usage, rate)
	if err != nil {
		return err
	}
	p.UsageQuantity = &usage
	p.RatePerUnit = &rate
	p.Amount = amount
	return nil
}

// MarkPaid moves the payment to paid.
func (p *Payment) MarkPaid(paidDate time.Time, method, notes string) error {
	if !p.Status.CanTransitionTo(StatusPaid) {
		return apperror.NewInvalidTransition(string(p.Status), string(StatusPaid)).
			WithDetail("payment_id", p.ID.String())
	}
	d := time.Date(paidDate.Year(), paidDate.Month(), paidDate.Day(), 0, 0, 0, 0, time.UTC)
	p.Status = StatusPaid
	p.PaidDate = &d
	if method != "" {
		p.PaymentMethod = &method
	}
	if notes != "" {
		p.Notes = &notes
	}
	return nil
}

// MarkOverdue moves a pending payment to overdue.
func (p *Payment) MarkOverdue() error {
	if !p.Status.CanTransitionTo(StatusOverdue) {
		return apperror.NewInvalidTransition(string(p.Status), string(StatusOverdue)).
			WithDetail("payment_id", p.ID.String())
	}
	p.Status = StatusOverdue
	return nil
}

// IsOverdueAt reports whether a pending payment is past due on day.
func (p *Payment) IsOverdueAt(day time.Time) bool {
	today := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return p.Status == StatusPending && p.DueDate.Before(today)
}

// Validate implements entity.Validatable.
func (p *Payment) Validate(_ context.Context) error {
	if id.IsNil(p.ResidentID) {
		return apperror.NewValidation("resident is required").WithDetail("field", "residentId")
	}
	if !p.Category.Valid() {
		return apperror.NewValidation("category must be LPS or PAB").
			WithDetail("field", "category").
			WithDetail("value", string(p.Category))
	}
	if p.Amount.IsNegative() {
		return apperror.NewValidation("amount must not be negative").WithDetail("field", "amount")
	}
	if !p.Status.Valid() {
		return apperror.NewValidation("invalid payment status").WithDetail("field", "status")
	}
	if p.DueDate.IsZero() {
		return apperror.NewValidation("due date is required").WithDetail("field", "dueDate")
	}
	if p.Period != reconciliation.MonthOf(p.DueDate).String() {
		return apperror.NewValidation("period does not match due date").WithDetail("field", "period")
	}
	if (p.Status == StatusPaid) != (p.PaidDate != nil) {
		return apperror.NewValidation("paid date must be set exactly for paid payments").
			WithDetail("field", "paidDate")
	}
	if p.Category == reconciliation.CategoryFixedFee && p.UsageQuantity != nil {
		return apperror.NewValidation("usage quantity applies to PAB payments only").
			WithDetail("field", "usageQuantity")
	}
	if p.UsageQuantity != nil && p.UsageQuantity.IsNegative() {
		return apperror.NewValidation("usage quantity must not be negative").WithDetail("field", "usageQuantity")
	}
	if p.RatePerUnit != nil && p.RatePerUnit.IsNegative() {
		return apperror.NewValidation("rate must not be negative").WithDetail("field", "ratePerUnit")
	}
	return nil
}

// PaidRecord converts a paid payment into reconciliation input.
func (p *Payment) PaidRecord() reconciliation.PaidPayment {
	rec := reconciliation.PaidPayment{
		ID:            p.ID.String(),
		ResidentID:    p.ResidentID.String(),
		Category:      p.Category,
		Amount:        p.Amount,
		DueDate:       p.DueDate,
		UsageQuantity: p.UsageQuantity,
	}
	if p.PaidDate != nil {
		rec.PaidDate = *p.PaidDate
	}
	if p.RatePerUnit != nil {
		rec.RatePerUnit = *p.RatePerUnit
	}
	return rec
}
