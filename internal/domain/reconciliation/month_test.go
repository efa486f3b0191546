package reconciliation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rwpay/internal/core/apperror"
)

func TestParseMonth(t *testing.T) {
	tests := []struct {
		input   string
		want    Month
		wantErr bool
	}{
		{input: "2026-03", want: Month{Year: 2026, Month: time.March}},
		{input: "1999-12", want: Month{Year: 1999, Month: time.December}},
		{input: "2026-13", wantErr: true},
		{input: "2026-00", wantErr: true},
		{input: "2026-3", wantErr: true},
		{input: "26-03", wantErr: true},
		{input: "2026/03", wantErr: true},
		{input: "", wantErr: true},
		{input: "abcd-ef", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMonth(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperror.IsInvalidArgument(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMonth_Range(t *testing.T) {
	tests := []struct {
		month string
		last  int
	}{
		{"2026-01", 31},
		{"2026-02", 28},
		{"2024-02", 29},
		{"2026-04", 30},
		{"2026-12", 31},
	}

	for _, tt := range tests {
		m := MustParseMonth(tt.month)
		assert.Equal(t, 1, m.FirstDay().Day())
		assert.Equal(t, tt.last, m.LastDay().Day(), tt.month)
		assert.Equal(t, m.Month, m.LastDay().Month())
		assert.True(t, m.Contains(m.FirstDay()))
		assert.True(t, m.Contains(m.LastDay()))
		assert.False(t, m.Contains(m.LastDay().AddDate(0, 0, 1)))
		assert.False(t, m.Contains(m.FirstDay().AddDate(0, 0, -1)))
	}
}

func TestMonth_AddMonthsAndDay(t *testing.T) {
	m := MustParseMonth("2026-11")
	assert.Equal(t, "2027-01", m.AddMonths(2).String())
	assert.Equal(t, "2026-06", m.AddMonths(-5).String())

	feb := MustParseMonth("2026-02")
	assert.Equal(t, 28, feb.Day(31).Day())
	assert.Equal(t, 10, feb.Day(10).Day())
}

func TestMonth_JSON(t *testing.T) {
	var payload struct {
		Month Month `json:"month"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"month":"2026-03"}`), &payload))
	assert.Equal(t, march, payload.Month)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"month":"2026-03"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"month":"2026-13"}`), &payload))
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("PAB")
	require.NoError(t, err)
	assert.Equal(t, CategoryMetered, c)

	_, err = ParseCategory("pab")
	assert.True(t, apperror.IsInvalidArgument(err))
}
