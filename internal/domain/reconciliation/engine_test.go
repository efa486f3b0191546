package reconciliation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rwpay/internal/core/apperror"
	"rwpay/internal/core/types"
)

var march = MustParseMonth("2026-03")

func resident(id string) Resident {
	return Resident{ID: id, Name: "Resident " + id, HouseNumber: "A-" + id, RT: "01"}
}

func paid(id, residentID string, c Category, amount types.Money) PaidPayment {
	due := march.Day(10)
	return PaidPayment{
		ID:         id,
		ResidentID: residentID,
		Category:   c,
		Amount:     amount,
		DueDate:    due,
		PaidDate:   due,
	}
}

func ids(rs []Resident) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func partialIDs(rs []PartialResident) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func TestComputeMonthlyStatistic_ScenarioA(t *testing.T) {
	residents := []Resident{resident("R1"), resident("R2"), resident("R3")}
	payments := []PaidPayment{
		paid("P1", "R1", CategoryFixedFee, 100),
		paid("P2", "R1", CategoryMetered, 20),
		paid("P3", "R2", CategoryFixedFee, 100),
	}

	stat, err := ComputeMonthlyStatistic(march, residents, payments)
	require.NoError(t, err)

	assert.Equal(t, []string{"R1"}, ids(stat.FullyPaid))
	assert.Equal(t, []string{"R2"}, partialIDs(stat.PartiallyPaid))
	assert.Equal(t, []string{"R3"}, ids(stat.Unpaid))

	require.Len(t, stat.PartiallyPaid, 1)
	assert.Equal(t, []Category{CategoryFixedFee}, stat.PartiallyPaid[0].Satisfied)
	assert.Equal(t, []Category{CategoryMetered}, stat.PartiallyPaid[0].Missing)

	assert.Equal(t, types.Money(200), stat.IncomeByCategory[CategoryFixedFee])
	assert.Equal(t, types.Money(20), stat.IncomeByCategory[CategoryMetered])
	assert.Equal(t, types.Money(220), stat.TotalIncome)
	assert.Empty(t, stat.Anomalies)
}

func TestComputeMonthlyStatistic_ScenarioB_MeteredAmount(t *testing.T) {
	usage, err := types.ParseQuantity("12,5")
	require.NoError(t, err)
	amount, err := types.MeteredAmount(usage, 5000)
	require.NoError(t, err)

	p := paid("P1", "R1", CategoryMetered, amount)
	p.UsageQuantity = &usage
	p.RatePerUnit = 5000

	stat, err := ComputeMonthlyStatistic(march, []Resident{resident("R1")}, []PaidPayment{p})
	require.NoError(t, err)
	assert.Equal(t, types.Money(62500), stat.IncomeByCategory[CategoryMetered])
	assert.Equal(t, types.Money(62500), stat.TotalIncome)
}

func TestComputeMonthlyStatistic_ScenarioC_OrphanExcluded(t *testing.T) {
	residents := []Resident{resident("R1")}
	payments := []PaidPayment{
		paid("P1", "R1", CategoryFixedFee, 100),
		paid("P9", "GHOST", CategoryFixedFee, 100),
	}

	stat, err := ComputeMonthlyStatistic(march, residents, payments)
	require.NoError(t, err)

	all := append(append(ids(stat.FullyPaid), partialIDs(stat.PartiallyPaid)...), ids(stat.Unpaid)...)
	assert.NotContains(t, all, "GHOST")
	assert.Equal(t, 1, stat.ResidentCount())

	// Orphan income is still recorded income.
	assert.Equal(t, types.Money(200), stat.IncomeByCategory[CategoryFixedFee])

	require.Len(t, stat.Anomalies, 1)
	assert.Equal(t, AnomalyOrphanPayment, stat.Anomalies[0].Kind)
	assert.Equal(t, "GHOST", stat.Anomalies[0].ResidentID)
	assert.Equal(t, []string{"P9"}, stat.Anomalies[0].PaymentIDs)
}

func TestComputeMonthlyStatistic_EmptyRoster(t *testing.T) {
	stat, err := ComputeMonthlyStatistic(march, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, types.Money(0), stat.TotalIncome)
	assert.Empty(t, stat.FullyPaid)
	assert.Empty(t, stat.PartiallyPaid)
	assert.Empty(t, stat.Unpaid)
	for _, c := range AllCategories() {
		v, ok := stat.IncomeByCategory[c]
		assert.True(t, ok, "category %s must be present", c)
		assert.Equal(t, types.Money(0), v)
	}
}

func TestComputeMonthlyStatistic_InvalidMonth(t *testing.T) {
	for _, m := range []Month{{}, {Year: 2026, Month: 13}, {Year: 2026, Month: 0}, {Year: 0, Month: 1}} {
		_, err := ComputeMonthlyStatistic(m, []Resident{resident("R1")}, nil)
		require.Error(t, err, "month %+v", m)
		assert.True(t, apperror.IsInvalidArgument(err))
	}
}

func TestComputeMonthlyStatistic_MalformedPayments(t *testing.T) {
	_, err := ComputeMonthlyStatistic(march, nil, []PaidPayment{paid("P1", "R1", "XYZ", 1)})
	assert.True(t, apperror.IsInvalidArgument(err))

	_, err = ComputeMonthlyStatistic(march, nil, []PaidPayment{paid("P1", "R1", CategoryFixedFee, -1)})
	assert.True(t, apperror.IsInvalidArgument(err))

	_, err = ComputeMonthlyStatistic(march, []Resident{{Name: "no id"}}, nil)
	assert.True(t, apperror.IsInvalidArgument(err))
}

func TestComputeMonthlyStatistic_DuplicateClassifiedOnceSummedTwice(t *testing.T) {
	residents := []Resident{resident("R1")}
	payments := []PaidPayment{
		paid("P1", "R1", CategoryFixedFee, 100),
		paid("P2", "R1", CategoryFixedFee, 100),
	}

	stat, err := ComputeMonthlyStatistic(march, residents, payments)
	require.NoError(t, err)

	assert.Equal(t, []string{"R1"}, partialIDs(stat.PartiallyPaid))
	assert.Equal(t, types.Money(200), stat.IncomeByCategory[CategoryFixedFee])

	require.Len(t, stat.Anomalies, 1)
	assert.Equal(t, AnomalyDuplicatePayment, stat.Anomalies[0].Kind)
	assert.Equal(t, []string{"P1", "P2"}, stat.Anomalies[0].PaymentIDs)
}

func TestComputeMonthlyStatistic_DuplicateRosterEntries(t *testing.T) {
	residents := []Resident{resident("R1"), resident("R2"), resident("R1"), resident("R1")}

	stat, err := ComputeMonthlyStatistic(march, residents, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stat.ResidentCount())

	require.Len(t, stat.Anomalies, 1)
	a := stat.Anomalies[0]
	assert.Equal(t, AnomalyDuplicateResident, a.Kind)
	assert.Equal(t, "R1", a.ResidentID)
	assert.Empty(t, a.PaymentIDs)
	assert.Contains(t, a.Message, "3 times")
}

func TestComputeMonthlyStatistic_ZeroAmountPolicy(t *testing.T) {
	residents := []Resident{resident("R1")}
	payments := []PaidPayment{
		paid("P1", "R1", CategoryFixedFee, 50000),
		paid("P2", "R1", CategoryMetered, 0),
	}

	stat, err := ComputeMonthlyStatistic(march, residents, payments)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1"}, ids(stat.FullyPaid), "zero usage counts by default")

	positiveOnly := WithSatisfiedPredicate(func(p PaidPayment) bool { return p.Amount > 0 })
	stat, err = ComputeMonthlyStatistic(march, residents, payments, positiveOnly)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1"}, partialIDs(stat.PartiallyPaid))
	assert.Equal(t, types.Money(50000), stat.TotalIncome)
}

func TestComputeMonthlyStatistic_DueDateCheck(t *testing.T) {
	residents := []Resident{resident("R1")}
	late := paid("P2", "R1", CategoryMetered, 20)
	late.DueDate = time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	payments := []PaidPayment{paid("P1", "R1", CategoryFixedFee, 100), late}

	stat, err := ComputeMonthlyStatistic(march, residents, payments)
	require.NoError(t, err)
	assert.Equal(t, types.Money(120), stat.TotalIncome, "without the check the caller's window is trusted")

	stat, err = ComputeMonthlyStatistic(march, residents, payments, WithDueDateCheck())
	require.NoError(t, err)
	assert.Equal(t, types.Money(100), stat.TotalIncome)
	assert.Equal(t, []string{"R1"}, partialIDs(stat.PartiallyPaid))
	require.Len(t, stat.Anomalies, 1)
	assert.Equal(t, AnomalyOutOfRange, stat.Anomalies[0].Kind)
}

// fixture builds n residents and a deterministic mix of payments.
func fixture(n int) ([]Resident, []PaidPayment) {
	residents := make([]Resident, 0, n)
	var payments []PaidPayment
	for i := 0; i < n; i++ {
		rid := fmt.Sprintf("R%03d", i)
		residents = append(residents, resident(rid))
		if i%3 != 2 {
			payments = append(payments, paid("F"+rid, rid, CategoryFixedFee, types.Money(50000)))
		}
		if i%2 == 0 {
			payments = append(payments, paid("M"+rid, rid, CategoryMetered, types.Money(1000*i)))
		}
	}
	payments = append(payments, paid("X1", "R999", CategoryMetered, 777))
	return residents, payments
}

func TestComputeMonthlyStatistic_Properties(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7, 30} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			residents, payments := fixture(n)

			stat, err := ComputeMonthlyStatistic(march, residents, payments)
			require.NoError(t, err)

			// Partition completeness.
			assert.Equal(t, len(residents), len(stat.FullyPaid)+len(stat.PartiallyPaid)+len(stat.Unpaid))
			seen := map[string]int{}
			for _, id := range ids(stat.FullyPaid) {
				seen[id]++
			}
			for _, id := range partialIDs(stat.PartiallyPaid) {
				seen[id]++
			}
			for _, id := range ids(stat.Unpaid) {
				seen[id]++
			}
			for _, r := range residents {
				assert.Equal(t, 1, seen[r.ID], "resident %s", r.ID)
			}

			// Income additivity.
			var sum types.Money
			for _, v := range stat.IncomeByCategory {
				sum += v
			}
			assert.Equal(t, stat.TotalIncome, sum)

			// Idempotence.
			again, err := ComputeMonthlyStatistic(march, residents, payments)
			require.NoError(t, err)
			assert.Equal(t, stat, again)
		})
	}
}

func TestComputeMonthlyStatistic_Monotonicity(t *testing.T) {
	residents, payments := fixture(9)

	before, err := ComputeMonthlyStatistic(march, residents, payments)
	require.NoError(t, err)
	require.NotEmpty(t, before.Unpaid)
	target := before.Unpaid[0].ID

	for _, c := range AllCategories() {
		t.Run(string(c), func(t *testing.T) {
			more := append(append([]PaidPayment{}, payments...), paid("NEW", target, c, 5))

			after, err := ComputeMonthlyStatistic(march, residents, more)
			require.NoError(t, err)

			assert.NotContains(t, ids(after.Unpaid), target)
			assert.Contains(t, partialIDs(after.PartiallyPaid), target)
			assert.GreaterOrEqual(t, after.IncomeByCategory[c], before.IncomeByCategory[c])
			assert.Equal(t, len(before.FullyPaid), len(after.FullyPaid))
		})
	}
}

func TestMonthlyStatistic_SatisfiedCount(t *testing.T) {
	residents := []Resident{resident("R1"), resident("R2"), resident("R3")}
	payments := []PaidPayment{
		paid("P1", "R1", CategoryFixedFee, 100),
		paid("P2", "R1", CategoryMetered, 20),
		paid("P3", "R2", CategoryMetered, 20),
	}

	stat, err := ComputeMonthlyStatistic(march, residents, payments)
	require.NoError(t, err)
	assert.Equal(t, 1, stat.SatisfiedCount(CategoryFixedFee))
	assert.Equal(t, 2, stat.SatisfiedCount(CategoryMetered))
}
