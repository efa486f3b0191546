package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rwpay/internal/core/types"
	"rwpay/internal/domain/reconciliation"
	"rwpay/internal/domain/reports"
)

func TestMonthlyComputed(t *testing.T) {
	m := New()
	stat := &reconciliation.MonthlyStatistic{
		Month: reconciliation.MustParseMonth("2024-03"),
		IncomeByCategory: map[reconciliation.Category]types.Money{
			reconciliation.CategoryFixedFee: 100000,
			reconciliation.CategoryMetered:  0,
		},
		Unpaid: []reconciliation.Resident{{ID: "r1"}},
		Anomalies: []reconciliation.Anomaly{
			{Kind: reconciliation.AnomalyDuplicatePayment},
			{Kind: reconciliation.AnomalyDuplicatePayment},
		},
	}

	m.MonthlyComputed(20*time.Millisecond, stat)

	assert.Equal(t, 100000.0, testutil.ToFloat64(m.monthlyIncome.WithLabelValues("2024-03", "LPS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.residentBuckets.WithLabelValues("2024-03", "unpaid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.anomalies.WithLabelValues("duplicate_payment")))
}

func TestExportedAndJobs(t *testing.T) {
	m := New()
	m.Exported(reports.ExportMonthly, reports.FormatPDF, 4096)
	m.JobFinished("overdue_sweep", 3, nil)
	m.JobFinished("overdue_sweep", 0, errors.New("db down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.exports.WithLabelValues("monthly", "pdf")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.jobItems.WithLabelValues("overdue_sweep")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("overdue_sweep", "error")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodGet, "/api/v1/payments", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `rwpay_http_requests_total{method="GET",route="/api/v1/payments",status="200"} 1`)
}

func TestWatchPool(t *testing.T) {
	m := New()
	m.WatchPool(func() (int32, int32, int32) { return 5, 2, 3 })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, "rwpay_db_pool_total_conns 5")
	assert.Contains(t, body, "rwpay_db_pool_acquired_conns 2")
	assert.Contains(t, body, "rwpay_db_pool_idle_conns 3")
}
