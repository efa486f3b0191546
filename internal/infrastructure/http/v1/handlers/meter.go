package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"rwpay/internal/domain/reconciliation"
	"rwpay/internal/domain/registers/meter"
	"rwpay/internal/infrastructure/http/v1/dto"
)

// MeterService is implemented by *meter.Service.
type MeterService interface {
	Record(ctx context.Context, in meter.Input) (*meter.Reading, error)
	ListByMonth(ctx context.Context, month reconciliation.Month) ([]*meter.Reading, error)
}

// MeterHandler serves water meter readings.
type MeterHandler struct {
	*BaseHandler
	service MeterService
	month   func() reconciliation.Month
}

func NewMeterHandler(base *BaseHandler, service MeterService, currentMonth func() reconciliation.Month) *MeterHandler {
	return &MeterHandler{BaseHandler: base, service: service, month: currentMonth}
}

// Record handles PUT /meter-readings. A second reading for the same resident
// and month replaces the first.
func (h *MeterHandler) Record(c *gin.Context) {
	var req dto.RecordReadingRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	reading, err := h.service.Record(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromReading(reading))
}

// ListByMonth handles GET /meter-readings?month=YYYY-MM
func (h *MeterHandler) ListByMonth(c *gin.Context) {
	var q dto.MonthQuery
	if !h.BindQuery(c, &q) {
		return
	}
	month, ok := h.MonthOrDefault(c, q.Month, h.month())
	if !ok {
		return
	}

	readings, err := h.service.ListByMonth(c.Request.Context(), month)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.ReadingResponse, len(readings))
	for i, r := range readings {
		items[i] = dto.FromReading(r)
	}
	h.OK(c, dto.ItemsResponse[dto.ReadingResponse]{Items: items})
}
