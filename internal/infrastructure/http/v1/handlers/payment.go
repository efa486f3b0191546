package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"rwpay/internal/core/id"
	"rwpay/internal/domain"
	"rwpay/internal/domain/documents/payment"
	"rwpay/internal/domain/reconciliation"
	"rwpay/internal/infrastructure/http/v1/dto"
)

// PaymentService is implemented by *payment.Service.
type PaymentService interface {
	Confirm(ctx context.Context, in payment.ConfirmInput) (*payment.Payment, error)
	CreateBill(ctx context.Context, in payment.ChargeInput) (*payment.Payment, error)
	MarkPaid(ctx context.Context, paymentID id.ID, in payment.MarkPaidInput) (*payment.Payment, error)
	MarkOverdue(ctx context.Context, paymentID id.ID) (*payment.Payment, error)
	Update(ctx context.Context, paymentID id.ID, in payment.UpdateInput) (*payment.Payment, error)
	Delete(ctx context.Context, paymentID id.ID) error
	GetByID(ctx context.Context, paymentID id.ID) (*payment.Payment, error)
	List(ctx context.Context, filter payment.ListFilter) (domain.ListResult[*payment.Payment], error)
	Recent(ctx context.Context, limit int) ([]*payment.Payment, error)
	GenerateMonthlyBills(ctx context.Context, month reconciliation.Month) (payment.GenerationResult, error)
	SweepOverdue(ctx context.Context, today time.Time) (int, error)
}

// PaymentHandler serves payment documents and their status transitions.
type PaymentHandler struct {
	*BaseHandler
	service PaymentService
	now     func() time.Time
}

func NewPaymentHandler(base *BaseHandler, service PaymentService) *PaymentHandler {
	return &PaymentHandler{BaseHandler: base, service: service, now: time.Now}
}

// List handles GET /payments
func (h *PaymentHandler) List(c *gin.Context) {
	var q dto.PaymentListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result, dto.FromPayment))
}

// Recent handles GET /payments/recent
func (h *PaymentHandler) Recent(c *gin.Context) {
	var q struct {
		Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
	}
	if !h.BindQuery(c, &q) {
		return
	}

	items, err := h.service.Recent(c.Request.Context(), q.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ItemsResponse[dto.PaymentResponse]{Items: mapPayments(items)})
}

// Get handles GET /payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	paymentID, ok := h.PathID(c)
	if !ok {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), paymentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPayment(p))
}

// Confirm handles POST /payments/confirm: records money received, settling the
// open bill for the month when one exists.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	p, err := h.service.Confirm(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromPayment(p))
}

// CreateBill handles POST /payments/bills
func (h *PaymentHandler) CreateBill(c *gin.Context) {
	var req dto.ChargeRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	p, err := h.service.CreateBill(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromPayment(p))
}

// Update handles PUT /payments/:id
func (h *PaymentHandler) Update(c *gin.Context) {
	paymentID, ok := h.PathID(c)
	if !ok {
		return
	}

	var req dto.UpdatePaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	p, err := h.service.Update(c.Request.Context(), paymentID, in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPayment(p))
}

// Delete handles DELETE /payments/:id
func (h *PaymentHandler) Delete(c *gin.Context) {
	paymentID, ok := h.PathID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), paymentID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// MarkPaid handles POST /payments/:id/mark-paid
func (h *PaymentHandler) MarkPaid(c *gin.Context) {
	paymentID, ok := h.PathID(c)
	if !ok {
		return
	}

	var req dto.MarkPaidRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	p, err := h.service.MarkPaid(c.Request.Context(), paymentID, in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPayment(p))
}

// MarkOverdue handles POST /payments/:id/mark-overdue
func (h *PaymentHandler) MarkOverdue(c *gin.Context) {
	paymentID, ok := h.PathID(c)
	if !ok {
		return
	}

	p, err := h.service.MarkOverdue(c.Request.Context(), paymentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPayment(p))
}

// Generate handles POST /payments/generate
func (h *PaymentHandler) Generate(c *gin.Context) {
	var req dto.GenerateBillsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	month, err := reconciliation.ParseMonth(req.Month)
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.GenerateMonthlyBills(c.Request.Context(), month)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// SweepOverdue handles POST /payments/sweep-overdue
func (h *PaymentHandler) SweepOverdue(c *gin.Context) {
	var req dto.SweepOverdueRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	day, err := dto.ParseDate("date", req.Date)
	if err != nil {
		h.Error(c, err)
		return
	}
	today := h.now().UTC()
	if day != nil {
		today = *day
	}

	marked, err := h.service.SweepOverdue(c.Request.Context(), today)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.SweepOverdueResponse{Date: today.Format(dto.DateLayout), Marked: marked})
}

func mapPayments(ps []*payment.Payment) []dto.PaymentResponse {
	out := make([]dto.PaymentResponse, len(ps))
	for i, p := range ps {
		out[i] = dto.FromPayment(p)
	}
	return out
}
