package numerator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "rwpay/internal/core/numerator"
)

// seqQuerier emulates the sys_sequences upsert in memory.
type seqQuerier struct {
	vals  map[string]int64
	calls int
	err   error
}

type valueRow struct {
	v   int64
	err error
}

func (r valueRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int64) = r.v
	return nil
}

func (q *seqQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.calls++
	if q.err != nil {
		return valueRow{err: q.err}
	}
	key := args[0].(string)
	step := int64(1)
	if len(args) > 1 {
		step = args[1].(int64)
	}
	if strings.Contains(sql, "SET current_val = $2") {
		q.vals[key] = step
	} else {
		q.vals[key] += step
	}
	return valueRow{v: q.vals[key]}
}

var march = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func TestGetNextNumber_Strict(t *testing.T) {
	q := &seqQuerier{vals: map[string]int64{}}
	s := NewWithQuerier(q)
	cfg := corenumerator.InvoiceConfig()

	n1, err := s.GetNextNumber(context.Background(), cfg, nil, march)
	require.NoError(t, err)
	n2, err := s.GetNextNumber(context.Background(), cfg, nil, march)
	require.NoError(t, err)

	assert.Equal(t, "INV-2024-000001", n1)
	assert.Equal(t, "INV-2024-000002", n2)

	next, err := s.GetNextNumber(context.Background(), cfg, nil, march.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-000001", next, "yearly series restarts")
}

func TestGetNextNumber_CachedReservesRange(t *testing.T) {
	q := &seqQuerier{vals: map[string]int64{}}
	s := NewWithQuerier(q)
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 3}
	cfg := corenumerator.Config{Prefix: "T", PadWidth: 3}

	var got []string
	for i := 0; i < 4; i++ {
		n, err := s.GetNextNumber(context.Background(), cfg, opts, march)
		require.NoError(t, err)
		got = append(got, n)
	}

	assert.Equal(t, []string{"T-001", "T-002", "T-003", "T-004"}, got)
	assert.Equal(t, 2, q.calls, "one reservation per block of three")
}

func TestSetNextNumber_DropsCachedRange(t *testing.T) {
	q := &seqQuerier{vals: map[string]int64{}}
	s := NewWithQuerier(q)
	cfg := corenumerator.InvoiceConfig()
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 10}

	_, err := s.GetNextNumber(context.Background(), cfg, opts, march)
	require.NoError(t, err)

	require.NoError(t, s.SetNextNumber(context.Background(), cfg, march, 100))

	n, err := s.GetNextNumber(context.Background(), cfg, opts, march)
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-000101", n)
}

func TestGetNextNumber_Error(t *testing.T) {
	s := NewWithQuerier(&seqQuerier{err: errors.New("db down")})

	_, err := s.GetNextNumber(context.Background(), corenumerator.InvoiceConfig(), nil, march)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestBuildKey(t *testing.T) {
	assert.Equal(t, "INV_2024", buildKey(corenumerator.Config{Prefix: "INV", ResetPeriod: corenumerator.ResetYearly}, march))
	assert.Equal(t, "INV_2024_03", buildKey(corenumerator.Config{Prefix: "INV", ResetPeriod: corenumerator.ResetMonthly}, march))
	assert.Equal(t, "INV", buildKey(corenumerator.Config{Prefix: "INV", ResetPeriod: corenumerator.ResetNever}, march))
}
