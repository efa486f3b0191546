package dto

import (
	"time"

	"rwpay/internal/domain/reconciliation"
	"rwpay/internal/domain/registers/meter"
)

// RecordReadingRequest stores a month's water reading. Send both meter values
// or usage alone.
type RecordReadingRequest struct {
	ResidentID      string  `json:"residentId" binding:"required,uuid"`
	Month           string  `json:"month" binding:"required,yearmonth"`
	PreviousReading *string `json:"previousReading"`
	CurrentReading  *string `json:"currentReading"`
	Usage           *string `json:"usage"`
}

func (r *RecordReadingRequest) ToInput() (meter.Input, error) {
	residentID, err := ParseID("residentId", r.ResidentID)
	if err != nil {
		return meter.Input{}, err
	}
	month, err := reconciliation.ParseMonth(r.Month)
	if err != nil {
		return meter.Input{}, err
	}
	in := meter.Input{ResidentID: residentID, Month: month}
	if in.PreviousReading, err = parseUsage(r.PreviousReading); err != nil {
		return meter.Input{}, err
	}
	if in.CurrentReading, err = parseUsage(r.CurrentReading); err != nil {
		return meter.Input{}, err
	}
	if in.Usage, err = parseUsage(r.Usage); err != nil {
		return meter.Input{}, err
	}
	return in, nil
}

type ReadingResponse struct {
	ResidentID      string    `json:"residentId"`
	Period          string    `json:"period"`
	PreviousReading string    `json:"previousReading"`
	CurrentReading  string    `json:"currentReading"`
	Usage           string    `json:"usage"`
	RecordedAt      time.Time `json:"recordedAt"`
}

func FromReading(r *meter.Reading) ReadingResponse {
	return ReadingResponse{
		ResidentID:      r.ResidentID.String(),
		Period:          r.Period,
		PreviousReading: r.PreviousReading.String(),
		CurrentReading:  r.CurrentReading.String(),
		Usage:           r.Usage.String(),
		RecordedAt:      r.RecordedAt,
	}
}
