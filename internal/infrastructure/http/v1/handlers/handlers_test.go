package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rwpay/internal/core/apperror"
	"rwpay/internal/core/id"
	"rwpay/internal/core/types"
	"rwpay/internal/domain/audit"
	"rwpay/internal/domain/catalogs/resident"
	"rwpay/internal/domain/documents/payment"
	"rwpay/internal/domain/reconciliation"
	"rwpay/internal/domain/registers/meter"
	"rwpay/internal/domain/reports"
	"rwpay/internal/infrastructure/http/v1/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.RegisterValidators(); err != nil {
		panic(err)
	}
}

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(middleware.Trace(), middleware.ErrorHandler())
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

// --- residents ---

type fakeResidents struct {
	ResidentService
	stored    map[id.ID]*resident.Resident
	created   *resident.Resident
	updated   *resident.Resident
	available bool
	excluded  id.ID
}

func (f *fakeResidents) Create(_ context.Context, r *resident.Resident) error {
	r.Normalize()
	if err := r.Validate(context.Background()); err != nil {
		return err
	}
	f.created = r
	return nil
}

func (f *fakeResidents) GetByID(_ context.Context, rid id.ID) (*resident.Resident, error) {
	if r, ok := f.stored[rid]; ok {
		return r, nil
	}
	return nil, apperror.NewNotFound("resident", rid.String())
}

func (f *fakeResidents) Update(_ context.Context, r *resident.Resident) error {
	f.updated = r
	return nil
}

func (f *fakeResidents) IsHouseNumberAvailable(_ context.Context, _ string, excludeID id.ID) (bool, error) {
	f.excluded = excludeID
	return f.available, nil
}

func residentEngine(svc ResidentService) *gin.Engine {
	h := NewResidentHandler(NewBaseHandler(), svc)
	r := newEngine()
	r.POST("/residents", h.Create)
	r.GET("/residents/house-number-available", h.HouseNumberAvailable)
	r.GET("/residents/:id", h.Get)
	r.PUT("/residents/:id", h.Update)
	return r
}

func TestResidentHandler_Create(t *testing.T) {
	svc := &fakeResidents{}
	r := residentEngine(svc)

	w := do(r, http.MethodPost, "/residents", `{"name":" Budi ","houseNumber":"a-12","rt":"3"}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotNil(t, svc.created)
	assert.Equal(t, "A-12", svc.created.HouseNumber)
	assert.Equal(t, "03", svc.created.RT)
	assert.Contains(t, w.Body.String(), `"houseNumber":"A-12"`)
}

func TestResidentHandler_CreateRejectsMissingFields(t *testing.T) {
	r := residentEngine(&fakeResidents{})

	w := do(r, http.MethodPost, "/residents", `{"houseNumber":"A-12"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeValidation, errorCode(t, w))
}

func TestResidentHandler_GetBadID(t *testing.T) {
	r := residentEngine(&fakeResidents{})

	w := do(r, http.MethodGet, "/residents/not-a-uuid", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeInvalidArgument, errorCode(t, w))
}

func TestResidentHandler_UpdateAppliesVersion(t *testing.T) {
	existing := resident.NewResident("Budi", "A-12", "03")
	existing.Version = 4
	svc := &fakeResidents{stored: map[id.ID]*resident.Resident{existing.ID: existing}}
	r := residentEngine(svc)

	w := do(r, http.MethodPut, "/residents/"+existing.ID.String(),
		`{"name":"Budi S","houseNumber":"A-12","rt":"03","status":"inactive","version":3}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, svc.updated)
	assert.Equal(t, "Budi S", svc.updated.Name)
	assert.Equal(t, resident.StatusInactive, svc.updated.Status)
	assert.Equal(t, 3, svc.updated.Version)
}

func TestResidentHandler_HouseNumberAvailable(t *testing.T) {
	svc := &fakeResidents{available: true}
	r := residentEngine(svc)
	exclude := id.New()

	w := do(r, http.MethodGet, "/residents/house-number-available?houseNumber=b-7&excludeId="+exclude.String(), "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"houseNumber":"B-7","available":true}`, w.Body.String())
	assert.Equal(t, exclude, svc.excluded)
}

// --- payments ---

type fakePayments struct {
	PaymentService
	confirm   payment.ConfirmInput
	markPaid  payment.MarkPaidInput
	sweptAt   time.Time
	generated reconciliation.Month
	err       error
}

func (f *fakePayments) Confirm(_ context.Context, in payment.ConfirmInput) (*payment.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.confirm = in
	amount := types.Money(50000)
	if in.Amount != nil {
		amount = *in.Amount
	}
	p := payment.NewPayment(in.ResidentID, in.Category, amount, in.Month.Day(10))
	p.Number = "INV-2024-000001"
	if err := p.MarkPaid(*in.PaidDate, in.PaymentMethod, ""); err != nil {
		return nil, err
	}
	return p, nil
}

func (f *fakePayments) MarkPaid(_ context.Context, pid id.ID, in payment.MarkPaidInput) (*payment.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.markPaid = in
	p := payment.NewPayment(id.New(), reconciliation.CategoryFixedFee, 50000, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	p.ID = pid
	return p, p.MarkPaid(time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), "", "")
}

func (f *fakePayments) SweepOverdue(_ context.Context, today time.Time) (int, error) {
	f.sweptAt = today
	return 2, nil
}

func (f *fakePayments) GenerateMonthlyBills(_ context.Context, month reconciliation.Month) (payment.GenerationResult, error) {
	f.generated = month
	return payment.GenerationResult{Month: month.String(), Created: 3}, nil
}

func paymentEngine(svc PaymentService) *gin.Engine {
	h := NewPaymentHandler(NewBaseHandler(), svc)
	h.now = func() time.Time { return time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC) }
	r := newEngine()
	r.POST("/payments/confirm", h.Confirm)
	r.POST("/payments/generate", h.Generate)
	r.POST("/payments/sweep-overdue", h.SweepOverdue)
	r.POST("/payments/:id/mark-paid", h.MarkPaid)
	return r
}

func TestPaymentHandler_Confirm(t *testing.T) {
	svc := &fakePayments{}
	r := paymentEngine(svc)
	residentID := id.New()

	w := do(r, http.MethodPost, "/payments/confirm", `{
		"residentId":"`+residentID.String()+`",
		"category":"PAB",
		"month":"2024-03",
		"usageQuantity":"12,5",
		"ratePerUnit":5000,
		"paidDate":"2024-03-15",
		"paymentMethod":"cash"
	}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, residentID, svc.confirm.ResidentID)
	assert.Equal(t, reconciliation.MustParseMonth("2024-03"), svc.confirm.Month)
	require.NotNil(t, svc.confirm.UsageQuantity)
	assert.True(t, svc.confirm.UsageQuantity.Equal(decimal.RequireFromString("12.5")))
	require.NotNil(t, svc.confirm.RatePerUnit)
	assert.Equal(t, types.Money(5000), *svc.confirm.RatePerUnit)
	assert.Equal(t, "cash", svc.confirm.PaymentMethod)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "paid", body["status"])
	assert.Equal(t, "2024-03-15", body["paidDate"])
}

func TestPaymentHandler_ConfirmValidation(t *testing.T) {
	r := paymentEngine(&fakePayments{})
	rid := id.New().String()

	tests := []struct {
		name string
		body string
		code string
	}{
		{"bad month", `{"residentId":"` + rid + `","category":"LPS","month":"2024-3"}`, apperror.CodeValidation},
		{"bad category", `{"residentId":"` + rid + `","category":"XYZ","month":"2024-03"}`, apperror.CodeValidation},
		{"two separators", `{"residentId":"` + rid + `","category":"PAB","month":"2024-03","usageQuantity":"1.2,5"}`, apperror.CodeInvalidArgument},
		{"bad date", `{"residentId":"` + rid + `","category":"LPS","month":"2024-03","paidDate":"15/03/2024"}`, apperror.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/payments/confirm", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestPaymentHandler_ConfirmDuplicate(t *testing.T) {
	svc := &fakePayments{err: apperror.NewDuplicate("payment", "period", "2024-03")}
	r := paymentEngine(svc)

	w := do(r, http.MethodPost, "/payments/confirm",
		`{"residentId":"`+id.New().String()+`","category":"LPS","month":"2024-03"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeDuplicate, errorCode(t, w))
}

func TestPaymentHandler_MarkPaidWithoutBody(t *testing.T) {
	svc := &fakePayments{}
	r := paymentEngine(svc)
	pid := id.New()

	w := do(r, http.MethodPost, "/payments/"+pid.String()+"/mark-paid", "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, svc.markPaid.PaidDate)
	assert.Contains(t, w.Body.String(), pid.String())
}

func TestPaymentHandler_MarkPaidTransitionError(t *testing.T) {
	svc := &fakePayments{err: apperror.NewInvalidTransition("paid", "paid")}
	r := paymentEngine(svc)

	w := do(r, http.MethodPost, "/payments/"+id.New().String()+"/mark-paid", `{"paidDate":"2024-03-12"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeInvalidTransition, errorCode(t, w))
}

func TestPaymentHandler_SweepOverdueDefaultsToToday(t *testing.T) {
	svc := &fakePayments{}
	r := paymentEngine(svc)

	w := do(r, http.MethodPost, "/payments/sweep-overdue", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"date":"2024-04-01","marked":2}`, w.Body.String())
	assert.Equal(t, 2024, svc.sweptAt.Year())
}

func TestPaymentHandler_Generate(t *testing.T) {
	svc := &fakePayments{}
	r := paymentEngine(svc)

	w := do(r, http.MethodPost, "/payments/generate", `{"month":"2024-05"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, reconciliation.MustParseMonth("2024-05"), svc.generated)
}

// --- meter readings ---

type fakeMeters struct {
	recorded meter.Input
	listed   reconciliation.Month
}

func (f *fakeMeters) Record(_ context.Context, in meter.Input) (*meter.Reading, error) {
	f.recorded = in
	return in.Build()
}

func (f *fakeMeters) ListByMonth(_ context.Context, month reconciliation.Month) ([]*meter.Reading, error) {
	f.listed = month
	return nil, nil
}

func TestMeterHandler(t *testing.T) {
	svc := &fakeMeters{}
	h := NewMeterHandler(NewBaseHandler(), svc, func() reconciliation.Month { return reconciliation.MustParseMonth("2024-06") })
	r := newEngine()
	r.PUT("/meter-readings", h.Record)
	r.GET("/meter-readings", h.ListByMonth)

	rid := id.New()
	w := do(r, http.MethodPut, "/meter-readings",
		`{"residentId":"`+rid.String()+`","month":"2024-06","previousReading":"100","currentReading":"112.5"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"usage":"12.5"`)

	w = do(r, http.MethodPut, "/meter-readings",
		`{"residentId":"`+rid.String()+`","month":"2024-06","previousReading":"100","currentReading":"90"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/meter-readings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-06", svc.listed.String())
	assert.JSONEq(t, `{"items":[]}`, w.Body.String())
}

// --- reports ---

type fakeReports struct {
	ReportsService
	exportKind   reports.ExportKind
	exportFormat reports.Format
	trendMonths  int
	invoiceID    id.ID
}

func (f *fakeReports) Invoice(_ context.Context, paymentID id.ID, format reports.Format) (*reports.Rendered, error) {
	if paymentID != f.invoiceID {
		return nil, apperror.NewNotFound("payment", paymentID)
	}
	f.exportFormat = format
	return &reports.Rendered{
		Filename:    "invoice-INV-2024-000001." + string(format),
		ContentType: format.ContentType(),
		Body:        []byte("%PDF-"),
	}, nil
}

func (f *fakeReports) CurrentMonth() reconciliation.Month {
	return reconciliation.MustParseMonth("2024-03")
}

func (f *fakeReports) Export(_ context.Context, kind reports.ExportKind, format reports.Format, month reconciliation.Month) (*reports.Rendered, error) {
	f.exportKind, f.exportFormat = kind, format
	return &reports.Rendered{
		Filename:    string(kind) + "-" + month.String() + "." + string(format),
		ContentType: format.ContentType(),
		Body:        []byte("a,b\n"),
	}, nil
}

func (f *fakeReports) Trends(_ context.Context, to reconciliation.Month, months int) ([]reports.TrendPoint, error) {
	f.trendMonths = months
	return []reports.TrendPoint{{Month: to.String()}}, nil
}

func reportsEngine(svc ReportsService) *gin.Engine {
	h := NewReportsHandler(NewBaseHandler(), svc)
	r := newEngine()
	r.GET("/reports/trends", h.Trends)
	r.GET("/reports/export/:kind", h.Export)
	r.GET("/payments/:id/invoice", h.Invoice)
	return r
}

func TestReportsHandler_Export(t *testing.T) {
	svc := &fakeReports{}
	r := reportsEngine(svc)

	w := do(r, http.MethodGet, "/reports/export/payments?format=CSV", "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, reports.ExportPayments, svc.exportKind)
	assert.Equal(t, reports.FormatCSV, svc.exportFormat)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="payments-2024-03.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n", w.Body.String())
}

func TestReportsHandler_ExportUnknownKind(t *testing.T) {
	r := reportsEngine(&fakeReports{})

	w := do(r, http.MethodGet, "/reports/export/salaries", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeInvalidArgument, errorCode(t, w))
}

func TestReportsHandler_Invoice(t *testing.T) {
	svc := &fakeReports{invoiceID: id.New()}
	r := reportsEngine(svc)

	w := do(r, http.MethodGet, "/payments/"+svc.invoiceID.String()+"/invoice", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, reports.FormatPDF, svc.exportFormat)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="invoice-INV-2024-000001.pdf"`, w.Header().Get("Content-Disposition"))

	w = do(r, http.MethodGet, "/payments/"+id.New().String()+"/invoice", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/payments/"+svc.invoiceID.String()+"/invoice?format=docx", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/payments/not-an-id/invoice", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportsHandler_TrendsDefaultsTo12Months(t *testing.T) {
	svc := &fakeReports{}
	r := reportsEngine(svc)

	w := do(r, http.MethodGet, "/reports/trends", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 12, svc.trendMonths)

	w = do(r, http.MethodGet, "/reports/trends?months=48", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- activity ---

type fakeActivity struct {
	table, record string
	limit         int
}

func (f *fakeActivity) History(_ context.Context, table, record string, limit int) ([]audit.Entry, error) {
	f.table, f.record, f.limit = table, record, limit
	return []audit.Entry{}, nil
}

func TestActivityHandler(t *testing.T) {
	reader := &fakeActivity{}
	h := NewActivityHandler(NewBaseHandler(), reader)
	r := newEngine()
	r.GET("/activity/:table/*id", h.History)

	rid := id.New().String()
	w := do(r, http.MethodGet, "/activity/meter_readings/"+rid+"/2024-03?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "meter_readings", reader.table)
	assert.Equal(t, rid+"/2024-03", reader.record)
	assert.Equal(t, 5, reader.limit)

	w = do(r, http.MethodGet, "/activity/admin_users/"+rid, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- health ---

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_Ready(t *testing.T) {
	r := newEngine()
	healthy := NewHealthHandler(pingFunc(func(context.Context) error { return nil }))
	broken := NewHealthHandler(pingFunc(func(context.Context) error { return errors.New("connection refused") }))
	r.GET("/ok", healthy.Ready)
	r.GET("/down", broken.Ready)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ok", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/down", "").Code)
}
