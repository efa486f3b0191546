// Package meter records monthly water meter readings per resident.
package meter

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"rwpay/internal/core/apperror"
	"rwpay/internal/core/id"
	"rwpay/internal/core/types"
	"rwpay/internal/domain/reconciliation"
)

// Reading is the water usage of one resident in one month; at most one per (resident, month).
type Reading struct {
	ResidentID      id.ID          `db:"resident_id" json:"residentId"`
	Period          string         `db:"period" json:"period"`
	PreviousReading types.Quantity `db:"previous_reading" json:"previousReading"`
	CurrentReading  types.Quantity `db:"current_reading" json:"currentReading"`
	Usage           types.Quantity `db:"usage" json:"usage"`
	RecordedAt      time.Time      `db:"recorded_at" json:"recordedAt"`
	RecordedBy      *id.ID         `db:"recorded_by" json:"recordedBy,omitempty"`
}

// Input describes a reading as entered by an administrator. Either both meter
// values or Usage alone must be given.
type Input struct {
	ResidentID      id.ID
	Month           reconciliation.Month
	PreviousReading *types.Quantity
	CurrentReading  *types.Quantity
	Usage           *types.Quantity
}

// Build validates the input and derives usage from the meter values.
func (in Input) Build() (*Reading, error) {
	if id.IsNil(in.ResidentID) {
		return nil, apperror.NewValidation("resident is required").WithDetail("field", "residentId")
	}
	if err := in.Month.Validate(); err != nil {
		return nil, err
	}

	r := &Reading{
		ResidentID: in.ResidentID,
		Period:     in.Month.String(),
		RecordedAt: time.Now().UTC(),
	}

	switch {
	case in.PreviousReading != nil && in.CurrentReading != nil:
		usage, err := types.Usage(*in.PreviousReading, *in.CurrentReading)
		if err != nil {
			return nil, err
		}
		r.PreviousReading = *in.PreviousReading
		r.CurrentReading = *in.CurrentReading
		r.Usage = usage
	case in.Usage != nil:
		if in.Usage.IsNegative() {
			return nil, apperror.NewInvalidArgument("usage", "usage must not be negative")
		}
		r.PreviousReading = decimal.Zero
		r.CurrentReading = *in.Usage
		r.Usage = *in.Usage
	default:
		return nil, apperror.NewValidation("either meter readings or usage is required").
			WithDetail("field", "usage")
	}
	return r, nil
}

// Repository persists readings.
type Repository interface {
	// Upsert inserts or replaces the reading for (resident, period).
	Upsert(ctx context.Context, r *Reading) error
	Get(ctx context.Context, residentID id.ID, period string) (*Reading, error)
	ListByPeriod(ctx context.Context, period string) ([]*Reading, error)
}
