package reconciliation

import (
	"time"

	"rwpay/internal/core/types"
)

// Resident is the roster entry the engine classifies.
type Resident struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	HouseNumber string `json:"house_number"`
	RT          string `json:"rt"`
}

// PaidPayment is a payment with status paid whose due date falls in the month.
type PaidPayment struct {
	ID            string          `json:"id"`
	ResidentID    string          `json:"resident_id"`
	Category      Category        `json:"category"`
	Amount        types.Money     `json:"amount"`
	DueDate       time.Time       `json:"due_date"`
	PaidDate      time.Time       `json:"paid_date"`
	UsageQuantity *types.Quantity `json:"usage_quantity,omitempty"`
	RatePerUnit   types.Money     `json:"rate_per_unit,omitempty"`
}

// PartialResident is a resident who satisfied some but not all categories.
type PartialResident struct {
	Resident
	Satisfied []Category `json:"satisfied"`
	Missing   []Category `json:"missing"`
}

type AnomalyKind string

const (
	// AnomalyDuplicatePayment: more than one paid payment for the same resident and category.
	AnomalyDuplicatePayment AnomalyKind = "duplicate_payment"
	// AnomalyOrphanPayment: the payment references a resident outside the active roster.
	AnomalyOrphanPayment AnomalyKind = "orphan_payment"
	// AnomalyOutOfRange: the due date lies outside the month (only with WithDueDateCheck).
	AnomalyOutOfRange AnomalyKind = "out_of_range_payment"
	// AnomalyDuplicateResident: the roster lists the same resident id more than once.
	AnomalyDuplicateResident AnomalyKind = "duplicate_resident"
)

// Anomaly is an advisory about input data quality. It never fails the computation.
type Anomaly struct {
	Kind       AnomalyKind `json:"kind"`
	ResidentID string      `json:"resident_id"`
	Category   Category    `json:"category"`
	PaymentIDs []string    `json:"payment_ids"`
	Message    string      `json:"message"`
}

// MonthlyStatistic is derived on every call and never stored.
type MonthlyStatistic struct {
	Month            Month                    `json:"month"`
	IncomeByCategory map[Category]types.Money `json:"income_by_category"`
	TotalIncome      types.Money              `json:"total_income"`
	FullyPaid        []Resident               `json:"fully_paid"`
	PartiallyPaid    []PartialResident        `json:"partially_paid"`
	Unpaid           []Resident               `json:"unpaid"`
	Anomalies        []Anomaly                `json:"anomalies"`
}

// ResidentCount is the size of the roster the statistic was computed over.
func (s MonthlyStatistic) ResidentCount() int {
	return len(s.FullyPaid) + len(s.PartiallyPaid) + len(s.Unpaid)
}

// SatisfiedCount returns how many residents paid category c.
func (s MonthlyStatistic) SatisfiedCount(c Category) int {
	n := len(s.FullyPaid)
	for _, p := range s.PartiallyPaid {
		for _, sc := range p.Satisfied {
			if sc == c {
				n++
			}
		}
	}
	return n
}
