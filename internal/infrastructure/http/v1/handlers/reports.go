package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"rwpay/internal/core/id"
	"rwpay/internal/domain/reconciliation"
	"rwpay/internal/domain/reports"
	"rwpay/internal/infrastructure/http/v1/dto"
)

const defaultTrendMonths = 12

// ReportsService is implemented by *reports.Service.
type ReportsService interface {
	CurrentMonth() reconciliation.Month
	MonthlyStatistic(ctx context.Context, month reconciliation.Month) (*reconciliation.MonthlyStatistic, error)
	Dashboard(ctx context.Context, month reconciliation.Month) (*reports.Dashboard, error)
	Trends(ctx context.Context, to reconciliation.Month, months int) ([]reports.TrendPoint, error)
	ResidentStatusDistribution(ctx context.Context) (*reports.Distribution, error)
	UnpaidBills(ctx context.Context, month reconciliation.Month) ([]reports.UnpaidBill, error)
	Export(ctx context.Context, kind reports.ExportKind, format reports.Format, month reconciliation.Month) (*reports.Rendered, error)
	Invoice(ctx context.Context, paymentID id.ID, format reports.Format) (*reports.Rendered, error)
}

// ReportsHandler serves the dashboard, statistics and exports.
type ReportsHandler struct {
	*BaseHandler
	service ReportsService
}

func NewReportsHandler(base *BaseHandler, service ReportsService) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

func (h *ReportsHandler) queryMonth(c *gin.Context) (reconciliation.Month, bool) {
	var q dto.MonthQuery
	if !h.BindQuery(c, &q) {
		return reconciliation.Month{}, false
	}
	return h.MonthOrDefault(c, q.Month, h.service.CurrentMonth())
}

// Monthly handles GET /reports/monthly?month=YYYY-MM
func (h *ReportsHandler) Monthly(c *gin.Context) {
	month, ok := h.queryMonth(c)
	if !ok {
		return
	}

	stat, err := h.service.MonthlyStatistic(c.Request.Context(), month)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, stat)
}

// Dashboard handles GET /reports/dashboard
func (h *ReportsHandler) Dashboard(c *gin.Context) {
	month, ok := h.queryMonth(c)
	if !ok {
		return
	}

	d, err := h.service.Dashboard(c.Request.Context(), month)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, d)
}

// Trends handles GET /reports/trends?to=YYYY-MM&months=12
func (h *ReportsHandler) Trends(c *gin.Context) {
	var q dto.TrendsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	to, ok := h.MonthOrDefault(c, q.To, h.service.CurrentMonth())
	if !ok {
		return
	}
	months := q.Months
	if months == 0 {
		months = defaultTrendMonths
	}

	points, err := h.service.Trends(c.Request.Context(), to, months)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ItemsResponse[reports.TrendPoint]{Items: points})
}

// Distribution handles GET /reports/residents-distribution
func (h *ReportsHandler) Distribution(c *gin.Context) {
	d, err := h.service.ResidentStatusDistribution(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, d)
}

// Unpaid handles GET /reports/unpaid?month=YYYY-MM
func (h *ReportsHandler) Unpaid(c *gin.Context) {
	month, ok := h.queryMonth(c)
	if !ok {
		return
	}

	bills, err := h.service.UnpaidBills(c.Request.Context(), month)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ItemsResponse[reports.UnpaidBill]{Items: bills})
}

// Export handles GET /reports/export/:kind?format=pdf&month=YYYY-MM
func (h *ReportsHandler) Export(c *gin.Context) {
	var q dto.ExportQuery
	if !h.BindQuery(c, &q) {
		return
	}

	kind, err := reports.ParseExportKind(c.Param("kind"))
	if err != nil {
		h.Error(c, err)
		return
	}
	if q.Format == "" {
		q.Format = string(reports.FormatPDF)
	}
	format, err := reports.ParseFormat(q.Format)
	if err != nil {
		h.Error(c, err)
		return
	}
	month, ok := h.MonthOrDefault(c, q.Month, h.service.CurrentMonth())
	if !ok {
		return
	}

	out, err := h.service.Export(c.Request.Context(), kind, format, month)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	c.Data(http.StatusOK, out.ContentType, out.Body)
}

// Invoice handles GET /payments/:id/invoice?format=pdf
func (h *ReportsHandler) Invoice(c *gin.Context) {
	paymentID, ok := h.PathID(c)
	if !ok {
		return
	}
	var q dto.InvoiceQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if q.Format == "" {
		q.Format = string(reports.FormatPDF)
	}
	format, err := reports.ParseFormat(q.Format)
	if err != nil {
		h.Error(c, err)
		return
	}

	out, err := h.service.Invoice(c.Request.Context(), paymentID, format)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	c.Data(http.StatusOK, out.ContentType, out.Body)
}
