// Package reports derives dashboards, trends and exports from residents and payments.
package reports

import (
	"math"

	"rwpay/internal/core/types"
	"rwpay/internal/domain/documents/payment"
	"rwpay/internal/domain/reconciliation"
)

// Dashboard summarizes one month for the admin home page.
type Dashboard struct {
	Month            string                                   `json:"month"`
	TotalResidents   int                                      `json:"totalResidents"`
	FullyPaid        int                                      `json:"fullyPaid"`
	PartiallyPaid    int                                      `json:"partiallyPaid"`
	Unpaid           int                                      `json:"unpaid"`
	IncomeByCategory map[reconciliation.Category]types.Money `json:"incomeByCategory"`
	IncomeThisMonth  types.Money                              `json:"incomeThisMonth"`
	TargetIncome     types.Money                              `json:"targetIncome"`

	// CollectionRate is the percentage of residents that paid every category.
	CollectionRate float64 `json:"collectionRate"`

	OpenBills         int         `json:"openBills"`
	OverdueBills      int         `json:"overdueBills"`
	OutstandingAmount types.Money `json:"outstandingAmount"`
	AnomalyCount      int         `json:"anomalyCount"`
}

// PeriodIncome is one row of the income aggregation: paid payments of one
// category in one month.
type PeriodIncome struct {
	Period    string                  `db:"period"`
	Category  reconciliation.Category `db:"category"`
	Amount    types.Money             `db:"amount"`
	PaidCount int64                   `db:"paid_count"`
}

// PeriodStatusCount is the number of live payments of one status in one month.
type PeriodStatusCount struct {
	Period string         `db:"period"`
	Status payment.Status `db:"status"`
	Count  int64          `db:"count"`
}

// TrendPoint is the income and payment counts of one month.
type TrendPoint struct {
	Month            string                                   `json:"month"`
	IncomeByCategory map[reconciliation.Category]types.Money `json:"incomeByCategory"`
	PaidByCategory   map[reconciliation.Category]int64       `json:"paidByCategory"`
	TotalIncome      types.Money                              `json:"totalIncome"`
	PendingCount     int64                                    `json:"pendingCount"`
	OverdueCount     int64                                    `json:"overdueCount"`
}

func (p TrendPoint) PaidCount() int64 {
	var n int64
	for _, c := range p.PaidByCategory {
		n += c
	}
	return n
}

// PaymentCount is every payment of the month regardless of status.
func (p TrendPoint) PaymentCount() int64 {
	return p.PaidCount() + p.PendingCount + p.OverdueCount
}

// ComplianceRate is the paid share of the month's payments in whole percent,
// zero for a month without payments.
func (p TrendPoint) ComplianceRate() int64 {
	return percent(p.PaidCount(), p.PaymentCount())
}

func percent(part, whole int64) int64 {
	if whole == 0 {
		return 0
	}
	return int64(math.Round(float64(part) * 100 / float64(whole)))
}

type Distribution struct {
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
	Total    int64 `json:"total"`
}

// UnpaidBill is an open payment with the resident it belongs to.
type UnpaidBill struct {
	*payment.Payment
	ResidentName string `json:"residentName"`
	HouseNumber  string `json:"houseNumber"`
	RT           string `json:"rt"`
}
