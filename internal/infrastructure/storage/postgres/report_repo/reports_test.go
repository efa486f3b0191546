package report_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncomeQuery(t *testing.T) {
	r := NewReportRepo(nil)

	sql, args, err := r.IncomeQuery("2024-01", "2024-03").ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM payments")
	assert.Contains(t, sql, "GROUP BY period, category")
	assert.Contains(t, sql, "period >= $")
	assert.Contains(t, sql, "period <= $")
	assert.Contains(t, args, "2024-01")
	assert.Contains(t, args, "2024-03")
	assert.Contains(t, args, false)
}

func TestStatusCountQuery(t *testing.T) {
	r := NewReportRepo(nil)

	sql, args, err := r.StatusCountQuery("2023-04", "2024-03").ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "COUNT(*) AS count")
	assert.Contains(t, sql, "GROUP BY period, status")
	assert.NotContains(t, sql, "status = $", "every status is counted")
	assert.Equal(t, []any{false, "2023-04", "2024-03"}, args)
}
