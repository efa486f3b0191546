package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rwpay/internal/domain/documents/payment"
	"rwpay/internal/domain/reconciliation"
	"rwpay/pkg/logger"
)

type fakeRelay struct {
	batches  []int
	calls    int
	purgedAt time.Time
}

func (f *fakeRelay) ProcessBatch(context.Context) (int, error) {
	f.calls++
	if len(f.batches) == 0 {
		return 0, nil
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	return n, nil
}

func (f *fakeRelay) PurgePublished(_ context.Context, before time.Time) (int64, error) {
	f.purgedAt = before
	return 4, nil
}

type fakeGenerator struct {
	months []reconciliation.Month
}

func (f *fakeGenerator) GenerateMonthlyBills(_ context.Context, m reconciliation.Month) (payment.GenerationResult, error) {
	f.months = append(f.months, m)
	return payment.GenerationResult{Month: m.String(), Created: 12}, nil
}

type countFunc func(context.Context) (int64, error)

func (f countFunc) CleanupExpiredTokens(ctx context.Context) (int64, error) { return f(ctx) }
func (f countFunc) CleanupExpired(ctx context.Context) (int64, error)       { return f(ctx) }

type recorder struct {
	mu   sync.Mutex
	runs map[string][]error
}

func (r *recorder) JobFinished(job string, _ int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs == nil {
		r.runs = map[string][]error{}
	}
	r.runs[job] = append(r.runs[job], err)
}

func (r *recorder) count(job string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs[job])
}

func TestOutboxJob_DrainsUntilEmpty(t *testing.T) {
	relay := &fakeRelay{batches: []int{100, 100, 7}}
	n, err := OutboxJob(relay, time.Second).Run(context.Background(), time.Now())

	require.NoError(t, err)
	assert.Equal(t, 207, n)
	assert.Equal(t, 4, relay.calls)
}

func TestBillingJob(t *testing.T) {
	gen := &fakeGenerator{}
	job := BillingJob(gen, time.Hour, 5)

	n, err := job.Run(context.Background(), time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, gen.months, "before the billing day nothing is generated")

	n, err = job.Run(context.Background(), time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	require.Len(t, gen.months, 1)
	assert.Equal(t, "2024-03", gen.months[0].String())
}

func TestHousekeepingJob_RunsEveryStep(t *testing.T) {
	relay := &fakeRelay{}
	now := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	failing := countFunc(func(context.Context) (int64, error) { return 0, errors.New("tokens table locked") })
	keys := countFunc(func(context.Context) (int64, error) { return 3, nil })

	n, err := HousekeepingJob(failing, keys, relay, time.Hour).Run(context.Background(), now)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "tokens table locked")
	assert.Equal(t, 7, n)
	assert.Equal(t, now.Add(-publishedRetention), relay.purgedAt)
}

func TestScheduler_RunOnceRecoversPanic(t *testing.T) {
	rec := &recorder{}
	s := NewScheduler(logger.NewNop(), rec)

	_, err := s.RunOnce(context.Background(), Job{
		Name: "boom",
		Run:  func(context.Context, time.Time) (int, error) { panic("nil map") },
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil map")
	require.Equal(t, 1, rec.count("boom"))
	assert.Error(t, rec.runs["boom"][0])
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	rec := &recorder{}
	ran := make(chan struct{}, 1)
	job := Job{
		Name:     JobOverdue,
		Interval: time.Hour,
		Run: func(context.Context, time.Time) (int, error) {
			select {
			case ran <- struct{}{}:
			default:
			}
			return 1, nil
		},
	}
	s := NewScheduler(logger.NewNop(), rec, job)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on start")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, 1, rec.count(JobOverdue))
}
