package worker

import (
	"context"
	"errors"
	"time"

	"rwpay/internal/domain/documents/payment"
	"rwpay/internal/domain/reconciliation"
)

// Job names, also used as metric labels.
const (
	JobOutbox       = "outbox_relay"
	JobOverdue      = "overdue_sweep"
	JobBilling      = "monthly_billing"
	JobHousekeeping = "housekeeping"
)

// outboxDrainLimit caps the batches handled in one tick so a backlog cannot
// starve the other jobs of connections.
const outboxDrainLimit = 20

type OutboxRelay interface {
	ProcessBatch(ctx context.Context) (int, error)
	PurgePublished(ctx context.Context, before time.Time) (int64, error)
}

type OverdueSweeper interface {
	SweepOverdue(ctx context.Context, today time.Time) (int, error)
}

type BillGenerator interface {
	GenerateMonthlyBills(ctx context.Context, month reconciliation.Month) (payment.GenerationResult, error)
}

type TokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

type IdempotencyCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// OutboxJob delivers pending events until a batch comes back empty.
func OutboxJob(relay OutboxRelay, interval time.Duration) Job {
	return Job{
		Name:     JobOutbox,
		Interval: interval,
		Run: func(ctx context.Context, _ time.Time) (int, error) {
			total := 0
			for range outboxDrainLimit {
				n, err := relay.ProcessBatch(ctx)
				total += n
				if err != nil || n == 0 {
					return total, err
				}
			}
			return total, nil
		},
	}
}

// OverdueJob flips pending bills past their due date to overdue.
func OverdueJob(sweeper OverdueSweeper, interval time.Duration) Job {
	return Job{
		Name:     JobOverdue,
		Interval: interval,
		Run: func(ctx context.Context, now time.Time) (int, error) {
			return sweeper.SweepOverdue(ctx, now)
		},
	}
}

// BillingJob generates the current month's bills once billingDay is reached.
// Generation skips existing bills, so running it on every tick is safe.
func BillingJob(generator BillGenerator, interval time.Duration, billingDay int) Job {
	return Job{
		Name:     JobBilling,
		Interval: interval,
		Run: func(ctx context.Context, now time.Time) (int, error) {
			if now.Day() < billingDay {
				return 0, nil
			}
			month, err := reconciliation.NewMonth(now.Year(), int(now.Month()))
			if err != nil {
				return 0, err
			}
			res, err := generator.GenerateMonthlyBills(ctx, month)
			return int(res.Created), err
		},
	}
}

// publishedRetention is how long delivered outbox rows are kept.
const publishedRetention = 7 * 24 * time.Hour

// HousekeepingJob removes expired refresh tokens, idempotency keys and old
// delivered outbox messages. Every step runs even if an earlier one fails.
func HousekeepingJob(tokens TokenCleaner, keys IdempotencyCleaner, relay OutboxRelay, interval time.Duration) Job {
	return Job{
		Name:     JobHousekeeping,
		Interval: interval,
		Run: func(ctx context.Context, now time.Time) (int, error) {
			var total int64
			var errs []error

			steps := []func() (int64, error){
				func() (int64, error) { return tokens.CleanupExpiredTokens(ctx) },
				func() (int64, error) { return keys.CleanupExpired(ctx) },
				func() (int64, error) { return relay.PurgePublished(ctx, now.Add(-publishedRetention)) },
			}
			for _, step := range steps {
				n, err := step()
				total += n
				if err != nil {
					errs = append(errs, err)
				}
			}
			return int(total), errors.Join(errs...)
		},
	}
}
