package resident

import (
	"context"

	"rwpay/internal/domain"
)

// Repository defines persistence for residents.
type Repository interface {
	domain.CatalogRepository[*Resident]

	// FindByHouseNumber returns NOT_FOUND when no live resident has the number.
	FindByHouseNumber(ctx context.Context, houseNumber string) (*Resident, error)

	// ListActive returns every active, non-deleted resident ordered by house number.
	ListActive(ctx context.Context) ([]*Resident, error)

	// CountByStatus counts non-deleted residents per status.
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}
