package reports

import (
	"context"
)

// Repository runs aggregate queries that are cheaper in SQL than in memory.
type Repository interface {
	// IncomeByPeriod sums paid payments per (period, category) for periods in [from, to].
	IncomeByPeriod(ctx context.Context, from, to string) ([]PeriodIncome, error)

	// StatusCountsByPeriod counts live payments per (period, status) for periods in [from, to].
	StatusCountsByPeriod(ctx context.Context, from, to string) ([]PeriodStatusCount, error)
}
