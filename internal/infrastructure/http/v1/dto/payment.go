package dto

import (
	"time"

	"rwpay/internal/core/id"
	"rwpay/internal/core/types"
	"rwpay/internal/domain/documents/payment"
	"rwpay/internal/domain/reconciliation"
)

// ChargeRequest describes a bill for one resident, category and month.
// Amounts are whole rupiah; usage is a decimal string ("12.5" or "12,5").
type ChargeRequest struct {
	ResidentID    string  `json:"residentId" binding:"required,uuid"`
	Category      string  `json:"category" binding:"required,oneof=LPS PAB"`
	Month         string  `json:"month" binding:"required,yearmonth"`
	Amount        *int64  `json:"amount" binding:"omitempty,min=0"`
	UsageQuantity *string `json:"usageQuantity"`
	RatePerUnit   *int64  `json:"ratePerUnit" binding:"omitempty,min=0"`
	DueDate       *string `json:"dueDate"`
	Notes         string  `json:"notes" binding:"max=500"`
}

func (r *ChargeRequest) ToInput() (payment.ChargeInput, error) {
	residentID, err := ParseID("residentId", r.ResidentID)
	if err != nil {
		return payment.ChargeInput{}, err
	}
	month, err := reconciliation.ParseMonth(r.Month)
	if err != nil {
		return payment.ChargeInput{}, err
	}
	dueDate, err := ParseDate("dueDate", r.DueDate)
	if err != nil {
		return payment.ChargeInput{}, err
	}
	usage, err := parseUsage(r.UsageQuantity)
	if err != nil {
		return payment.ChargeInput{}, err
	}

	return payment.ChargeInput{
		ResidentID:    residentID,
		Category:      reconciliation.Category(r.Category),
		Month:         month,
		Amount:        moneyPtr(r.Amount),
		UsageQuantity: usage,
		RatePerUnit:   moneyPtr(r.RatePerUnit),
		DueDate:       dueDate,
		Notes:         r.Notes,
	}, nil
}

// ConfirmPaymentRequest records money received for a resident's charge.
type ConfirmPaymentRequest struct {
	ChargeRequest
	PaidDate      *string `json:"paidDate"`
	PaymentMethod string  `json:"paymentMethod" binding:"max=50"`
}

func (r *ConfirmPaymentRequest) ToInput() (payment.ConfirmInput, error) {
	charge, err := r.ChargeRequest.ToInput()
	if err != nil {
		return payment.ConfirmInput{}, err
	}
	paidDate, err := ParseDate("paidDate", r.PaidDate)
	if err != nil {
		return payment.ConfirmInput{}, err
	}
	return payment.ConfirmInput{
		ChargeInput:   charge,
		PaidDate:      paidDate,
		PaymentMethod: r.PaymentMethod,
	}, nil
}

type MarkPaidRequest struct {
	PaidDate      *string `json:"paidDate"`
	PaymentMethod string  `json:"paymentMethod" binding:"max=50"`
	Notes         string  `json:"notes" binding:"max=500"`
}

func (r *MarkPaidRequest) ToInput() (payment.MarkPaidInput, error) {
	paidDate, err := ParseDate("paidDate", r.PaidDate)
	if err != nil {
		return payment.MarkPaidInput{}, err
	}
	return payment.MarkPaidInput{
		PaidDate:      paidDate,
		PaymentMethod: r.PaymentMethod,
		Notes:         r.Notes,
	}, nil
}

// UpdatePaymentRequest edits an open payment. Omitted fields stay unchanged.
type UpdatePaymentRequest struct {
	Version       int     `json:"version" binding:"required,min=1"`
	Amount        *int64  `json:"amount" binding:"omitempty,min=0"`
	UsageQuantity *string `json:"usageQuantity"`
	RatePerUnit   *int64  `json:"ratePerUnit" binding:"omitempty,min=0"`
	DueDate       *string `json:"dueDate"`
	Notes         *string `json:"notes"`
}

func (r *UpdatePaymentRequest) ToInput() (payment.UpdateInput, error) {
	dueDate, err := ParseDate("dueDate", r.DueDate)
	if err != nil {
		return payment.UpdateInput{}, err
	}
	usage, err := parseUsage(r.UsageQuantity)
	if err != nil {
		return payment.UpdateInput{}, err
	}
	return payment.UpdateInput{
		Version:       r.Version,
		Amount:        moneyPtr(r.Amount),
		UsageQuantity: usage,
		RatePerUnit:   moneyPtr(r.RatePerUnit),
		DueDate:       dueDate,
		Notes:         r.Notes,
	}, nil
}

// GenerateBillsRequest selects the month to bill.
type GenerateBillsRequest struct {
	Month string `json:"month" binding:"required,yearmonth"`
}

// SweepOverdueRequest overrides the reference day (default today).
type SweepOverdueRequest struct {
	Date *string `json:"date"`
}

type SweepOverdueResponse struct {
	Date   string `json:"date"`
	Marked int    `json:"marked"`
}

// PaymentListQuery filters GET /payments.
type PaymentListQuery struct {
	ResidentID string  `form:"residentId" binding:"omitempty,uuid"`
	Category   string  `form:"category" binding:"omitempty,oneof=LPS PAB"`
	Status     string  `form:"status" binding:"omitempty,oneof=pending paid overdue"`
	Month      string  `form:"month" binding:"omitempty,yearmonth"`
	DueFrom    *string `form:"dueFrom"`
	DueTo      *string `form:"dueTo"`
	Search     string  `form:"search"`
	OrderBy    string  `form:"orderBy"`
	Limit      int     `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset     int     `form:"offset" binding:"omitempty,min=0"`
}

func (q *PaymentListQuery) ToFilter() (payment.ListFilter, error) {
	f := payment.ListFilter{
		Period:  q.Month,
		Search:  q.Search,
		OrderBy: q.OrderBy,
		Limit:   q.Limit,
		Offset:  q.Offset,
	}
	if q.ResidentID != "" {
		rid, err := ParseID("residentId", q.ResidentID)
		if err != nil {
			return f, err
		}
		f.ResidentID = &rid
	}
	if q.Category != "" {
		c := reconciliation.Category(q.Category)
		f.Category = &c
	}
	if q.Status != "" {
		s := payment.Status(q.Status)
		f.Status = &s
	}
	var err error
	if f.DueFrom, err = ParseDate("dueFrom", q.DueFrom); err != nil {
		return f, err
	}
	if f.DueTo, err = ParseDate("dueTo", q.DueTo); err != nil {
		return f, err
	}
	return f, nil
}

type PaymentResponse struct {
	ID            string     `json:"id"`
	Number        string     `json:"number"`
	Date          time.Time  `json:"date"`
	ResidentID    string     `json:"residentId"`
	Category      string     `json:"category"`
	Amount        int64      `json:"amount"`
	Status        string     `json:"status"`
	Period        string     `json:"period"`
	DueDate       string     `json:"dueDate"`
	PaidDate      *string    `json:"paidDate,omitempty"`
	PaymentMethod *string    `json:"paymentMethod,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	UsageQuantity *string    `json:"usageQuantity,omitempty"`
	RatePerUnit   *int64     `json:"ratePerUnit,omitempty"`
	DeletionMark  bool       `json:"deletionMark"`
	Version       int        `json:"version"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	CreatedBy     *id.ID     `json:"createdBy,omitempty"`
	UpdatedBy     *id.ID     `json:"updatedBy,omitempty"`
}

func FromPayment(p *payment.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:            p.ID.String(),
		Number:        p.Number,
		Date:          p.Date,
		ResidentID:    p.ResidentID.String(),
		Category:      string(p.Category),
		Amount:        int64(p.Amount),
		Status:        string(p.Status),
		Period:        p.Period,
		DueDate:       p.DueDate.Format(DateLayout),
		PaymentMethod: p.PaymentMethod,
		Notes:         p.Notes,
		DeletionMark:  p.DeletionMark,
		Version:       p.Version,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		CreatedBy:     p.CreatedBy,
		UpdatedBy:     p.UpdatedBy,
	}
	if p.PaidDate != nil {
		s := p.PaidDate.Format(DateLayout)
		resp.PaidDate = &s
	}
	if p.UsageQuantity != nil {
		s := p.UsageQuantity.String()
		resp.UsageQuantity = &s
	}
	if p.RatePerUnit != nil {
		v := int64(*p.RatePerUnit)
		resp.RatePerUnit = &v
	}
	return resp
}

func moneyPtr(v *int64) *types.Money {
	if v == nil {
		return nil
	}
	m := types.Money(*v)
	return &m
}

func parseUsage(raw *string) (*types.Quantity, error) {
	if raw == nil {
		return nil, nil
	}
	q, err := types.ParseQuantity(*raw)
	if err != nil {
		return nil, err
	}
	return &q, nil
}
