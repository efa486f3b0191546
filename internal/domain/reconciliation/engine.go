// Package reconciliation classifies residents by how completely they paid a month's
// charges and totals the month's income. It performs no I/O.
package reconciliation

import (
	"fmt"

	"rwpay/internal/core/apperror"
	"rwpay/internal/core/types"
)

// SatisfiedFunc decides whether a paid payment counts towards its category.
type SatisfiedFunc func(PaidPayment) bool

// AnyPaid counts every paid payment, including zero-amount ones.
func AnyPaid(PaidPayment) bool { return true }

type options struct {
	satisfied    SatisfiedFunc
	dueDateCheck bool
}

type Option func(*options)

// WithSatisfiedPredicate replaces AnyPaid. A nil fn keeps the default.
func WithSatisfiedPredicate(fn SatisfiedFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.satisfied = fn
		}
	}
}

// WithDueDateCheck drops payments whose due date is outside the month,
// reporting each as an out-of-range anomaly.
func WithDueDateCheck() Option {
	return func(o *options) { o.dueDateCheck = true }
}

// standing tracks one roster resident during classification.
type standing struct {
	resident  Resident
	satisfied map[Category]bool
	payments  map[Category][]string
}

// ComputeMonthlyStatistic classifies activeResidents against paidPayments for month.
//
// Income is summed over every payment, including orphans and duplicates.
// Classification is driven by the roster: a resident without payments is unpaid,
// a payment whose resident is not on the roster is reported and left out of the buckets.
func ComputeMonthlyStatistic(month Month, activeResidents []Resident, paidPayments []PaidPayment, opts ...Option) (MonthlyStatistic, error) {
	if err := month.Validate(); err != nil {
		return MonthlyStatistic{}, err
	}

	o := options{satisfied: AnyPaid}
	for _, opt := range opts {
		opt(&o)
	}

	roster := make([]*standing, 0, len(activeResidents))
	byID := make(map[string]*standing, len(activeResidents))
	repeats := make(map[string]int)
	var repeated []string
	for _, r := range activeResidents {
		if r.ID == "" {
			return MonthlyStatistic{}, apperror.NewInvalidArgument("active_residents", "resident id is required")
		}
		if _, seen := byID[r.ID]; seen {
			if repeats[r.ID] == 0 {
				repeated = append(repeated, r.ID)
			}
			repeats[r.ID]++
			continue
		}
		s := &standing{
			resident:  r,
			satisfied: make(map[Category]bool, len(allCategories)),
			payments:  make(map[Category][]string, len(allCategories)),
		}
		roster = append(roster, s)
		byID[r.ID] = s
	}

	stat := MonthlyStatistic{
		Month:            month,
		IncomeByCategory: make(map[Category]types.Money, len(allCategories)),
		FullyPaid:        []Resident{},
		PartiallyPaid:    []PartialResident{},
		Unpaid:           []Resident{},
		Anomalies:        []Anomaly{},
	}
	for _, c := range allCategories {
		stat.IncomeByCategory[c] = 0
	}

	// Repeated roster entries collapse into the first one.
	for _, id := range repeated {
		stat.Anomalies = append(stat.Anomalies, Anomaly{
			Kind:       AnomalyDuplicateResident,
			ResidentID: id,
			PaymentIDs: []string{},
			Message: fmt.Sprintf("resident %s is listed %d times in the roster, classified once",
				id, repeats[id]+1),
		})
	}

	for _, p := range paidPayments {
		if !p.Category.Valid() {
			return MonthlyStatistic{}, apperror.NewInvalidArgument("paid_payments",
				fmt.Sprintf("payment %s has unknown category %q", p.ID, p.Category))
		}
		if p.Amount.IsNegative() {
			return MonthlyStatistic{}, apperror.NewInvalidArgument("paid_payments",
				fmt.Sprintf("payment %s has negative amount %d", p.ID, p.Amount))
		}

		if o.dueDateCheck && !month.Contains(p.DueDate) {
			stat.Anomalies = append(stat.Anomalies, Anomaly{
				Kind:       AnomalyOutOfRange,
				ResidentID: p.ResidentID,
				Category:   p.Category,
				PaymentIDs: []string{p.ID},
				Message: fmt.Sprintf("payment %s is due %s, outside %s",
					p.ID, p.DueDate.Format("2006-01-02"), month),
			})
			continue
		}

		stat.IncomeByCategory[p.Category] += p.Amount

		s, ok := byID[p.ResidentID]
		if !ok {
			stat.Anomalies = append(stat.Anomalies, Anomaly{
				Kind:       AnomalyOrphanPayment,
				ResidentID: p.ResidentID,
				Category:   p.Category,
				PaymentIDs: []string{p.ID},
				Message: fmt.Sprintf("payment %s references resident %s, who is not an active resident",
					p.ID, p.ResidentID),
			})
			continue
		}

		s.payments[p.Category] = append(s.payments[p.Category], p.ID)
		if o.satisfied(p) {
			s.satisfied[p.Category] = true
		}
	}

	for _, c := range allCategories {
		stat.TotalIncome += stat.IncomeByCategory[c]
	}

	for _, s := range roster {
		var satisfied, missing []Category
		for _, c := range allCategories {
			if s.satisfied[c] {
				satisfied = append(satisfied, c)
			} else {
				missing = append(missing, c)
			}

			if ids := s.payments[c]; len(ids) > 1 {
				stat.Anomalies = append(stat.Anomalies, Anomaly{
					Kind:       AnomalyDuplicatePayment,
					ResidentID: s.resident.ID,
					Category:   c,
					PaymentIDs: ids,
					Message: fmt.Sprintf("resident %s has %d paid %s payments in %s",
						s.resident.ID, len(ids), c, month),
				})
			}
		}

		switch len(satisfied) {
		case 0:
			stat.Unpaid = append(stat.Unpaid, s.resident)
		case len(allCategories):
			stat.FullyPaid = append(stat.FullyPaid, s.resident)
		default:
			stat.PartiallyPaid = append(stat.PartiallyPaid, PartialResident{
				Resident:  s.resident,
				Satisfied: satisfied,
				Missing:   missing,
			})
		}
	}

	return stat, nil
}
