package meter

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rwpay/internal/core/id"
	"rwpay/internal/domain/reconciliation"
)

func q(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestInput_Build(t *testing.T) {
	month := reconciliation.MustParseMonth("2026-03")
	rid := id.New()

	r, err := Input{ResidentID: rid, Month: month, PreviousReading: q("100"), CurrentReading: q("112.5")}.Build()
	require.NoError(t, err)
	assert.Equal(t, "12.5", r.Usage.String())
	assert.Equal(t, "2026-03", r.Period)

	r, err = Input{ResidentID: rid, Month: month, Usage: q("7")}.Build()
	require.NoError(t, err)
	assert.Equal(t, "7", r.Usage.String())

	_, err = Input{ResidentID: rid, Month: month, PreviousReading: q("10"), CurrentReading: q("9")}.Build()
	assert.Error(t, err)

	_, err = Input{ResidentID: rid, Month: month}.Build()
	assert.Error(t, err)

	_, err = Input{ResidentID: rid, Month: reconciliation.Month{}, Usage: q("1")}.Build()
	assert.Error(t, err)

	_, err = Input{Month: month, Usage: q("1")}.Build()
	assert.Error(t, err)
}
