package payment

import (
	"context"
	"time"

	"rwpay/internal/core/id"
	"rwpay/internal/domain"
)

// ListFilter narrows payment listings. Zero values mean "any".
type ListFilter struct {
	ResidentID *id.ID
	Category   *Category
	Status     *Status
	Period     string
	DueFrom    *time.Time
	DueTo      *time.Time

	// Search matches the invoice number.
	Search string

	// OrderBy is a column name, "-" prefix for descending (default "-due_date").
	OrderBy string
	Limit   int
	Offset  int
}

// Repository defines payment persistence.
type Repository interface {
	Create(ctx context.Context, p *Payment) error

	// CreateBatch inserts many payments at once and returns the inserted count.
	CreateBatch(ctx context.Context, ps []*Payment) (int64, error)

	GetByID(ctx context.Context, id id.ID) (*Payment, error)

	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id id.ID) (*Payment, error)

	// Update fails with CONCURRENT_MODIFICATION when the stored version differs.
	Update(ctx context.Context, p *Payment) error

	SetDeletionMark(ctx context.Context, id id.ID, marked bool) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Payment], error)

	// FindForPeriod returns the live payment for (resident, category, period), locked.
	FindForPeriod(ctx context.Context, residentID id.ID, category Category, period string) (*Payment, error)

	// ListByPeriod returns every live payment of a month regardless of status.
	ListByPeriod(ctx context.Context, period string) ([]*Payment, error)

	// ListPaid returns paid payments with due date in [from, to].
	ListPaid(ctx context.Context, from, to time.Time) ([]*Payment, error)

	// ListOpen returns pending and overdue payments with due date in [from, to].
	ListOpen(ctx context.Context, from, to time.Time) ([]*Payment, error)

	// ListPendingDueBefore returns pending payments due strictly before day.
	ListPendingDueBefore(ctx context.Context, day time.Time) ([]*Payment, error)
}
