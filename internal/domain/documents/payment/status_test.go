package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rwpay/internal/core/apperror"
	"rwpay/internal/core/id"
	"rwpay/internal/core/types"
	"rwpay/internal/domain/reconciliation"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusOverdue, true},
		{StatusOverdue, StatusPaid, true},
		{StatusOverdue, StatusPending, false},
		{StatusPaid, StatusPending, false},
		{StatusPaid, StatusOverdue, false},
		{StatusPaid, StatusPaid, false},
		{StatusPending, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
			err := tt.from.CheckTransition(tt.to)
			if tt.want {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))
			}
		})
	}
}

func TestPayment_MarkPaid(t *testing.T) {
	due := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	p := NewPayment(id.New(), reconciliation.CategoryFixedFee, 50000, due)
	require.Equal(t, StatusPending, p.Status)
	require.Equal(t, "2024-03", p.Period)

	paidAt := time.Date(2024, 3, 12, 15, 30, 0, 0, time.Local)
	require.NoError(t, p.MarkPaid(paidAt, "cash", "front desk"))

	assert.Equal(t, StatusPaid, p.Status)
	require.NotNil(t, p.PaidDate)
	assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), *p.PaidDate)
	assert.Equal(t, "cash", *p.PaymentMethod)
	assert.NoError(t, p.Validate(t.Context()))

	err := p.MarkPaid(paidAt, "", "")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))

	err = p.MarkOverdue()
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))
}

func TestPayment_OverdueThenPaid(t *testing.T) {
	due := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	p := NewPayment(id.New(), reconciliation.CategoryFixedFee, 50000, due)

	assert.False(t, p.IsOverdueAt(due))
	assert.True(t, p.IsOverdueAt(due.AddDate(0, 0, 1)))

	require.NoError(t, p.MarkOverdue())
	assert.False(t, p.IsOverdueAt(due.AddDate(0, 0, 1)), "only pending payments become overdue")
	require.NoError(t, p.MarkPaid(due.AddDate(0, 0, 20), "transfer", ""))
	assert.Equal(t, StatusPaid, p.Status)
}

func TestPayment_SetMetered(t *testing.T) {
	p := NewPayment(id.New(), reconciliation.CategoryMetered, 0, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	usage, err := types.ParseQuantity("12,5")
	require.NoError(t, err)

	require.NoError(t, p.SetMetered(usage, 5000))
	assert.Equal(t, types.Money(62500), p.Amount)
	assert.Equal(t, types.Money(5000), *p.RatePerUnit)
	assert.NoError(t, p.Validate(t.Context()))
}

func TestPayment_Validate(t *testing.T) {
	due := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(p *Payment)
		field  string
	}{
		{"missing resident", func(p *Payment) { p.ResidentID = id.ID{} }, "residentId"},
		{"bad category", func(p *Payment) { p.Category = "XYZ" }, "category"},
		{"negative amount", func(p *Payment) { p.Amount = -1 }, "amount"},
		{"period mismatch", func(p *Payment) { p.Period = "2024-04" }, "period"},
		{"paid without date", func(p *Payment) { p.Status = StatusPaid }, "paidDate"},
		{"usage on LPS", func(p *Payment) {
			q := types.Quantity{}
			p.UsageQuantity = &q
		}, "usageQuantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPayment(id.New(), reconciliation.CategoryFixedFee, 50000, due)
			tt.mutate(p)
			err := p.Validate(t.Context())
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}

func TestPayment_PaidRecord(t *testing.T) {
	due := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	p := NewPayment(id.New(), reconciliation.CategoryFixedFee, 50000, due)
	require.NoError(t, p.MarkPaid(due, "", ""))

	rec := p.PaidRecord()
	assert.Equal(t, p.ID.String(), rec.ID)
	assert.Equal(t, p.ResidentID.String(), rec.ResidentID)
	assert.Equal(t, types.Money(50000), rec.Amount)
	assert.Equal(t, due, rec.PaidDate)
}
