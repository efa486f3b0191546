// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"encoding/json"
	"time"

	"rwpay/internal/core/apperror"
	"rwpay/internal/core/id"
	"rwpay/internal/domain"
	"rwpay/internal/domain/filter"
)

// DateLayout is the wire format of calendar dates (due and paid dates).
const DateLayout = "2006-01-02"

// --- List Request ---

// ListQuery holds the common list parameters of catalog endpoints.
type ListQuery struct {
	Search         string `form:"search"`
	Limit          int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset         int    `form:"offset" binding:"omitempty,min=0"`
	OrderBy        string `form:"orderBy"`
	IncludeDeleted bool   `form:"includeDeleted"`

	// Filter is a JSON array of {field, operator, value} rows.
	Filter string `form:"filter"`
}

// ToListFilter converts the query into a domain filter.
func (q *ListQuery) ToListFilter(defaultOrder string) (domain.ListFilter, error) {
	f := domain.DefaultListFilter()
	f.Search = q.Search
	f.IncludeDeleted = q.IncludeDeleted
	f.Offset = q.Offset
	if q.Limit > 0 {
		f.Limit = q.Limit
	}
	f.OrderBy = defaultOrder
	if q.OrderBy != "" {
		f.OrderBy = q.OrderBy
	}

	if q.Filter != "" {
		var items []filter.Item
		if err := json.Unmarshal([]byte(q.Filter), &items); err != nil {
			return f, apperror.NewValidation("invalid filter format (json expected)")
		}
		for _, item := range items {
			if !item.Operator.Valid() {
				return f, apperror.NewValidation("unknown filter operator").
					WithDetail("operator", string(item.Operator))
			}
		}
		f.AdvancedFilters = items
	}
	return f, nil
}

// --- List Response ---

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResponse maps a domain page into a response page.
func NewListResponse[E, T any](res domain.ListResult[E], mapFn func(E) T) ListResponse[T] {
	items := make([]T, len(res.Items))
	for i, e := range res.Items {
		items[i] = mapFn(e)
	}
	return ListResponse[T]{
		Items:      items,
		TotalCount: res.TotalCount,
		Limit:      res.Limit,
		Offset:     res.Offset,
	}
}

// ItemsResponse wraps an unpaginated list.
type ItemsResponse[T any] struct {
	Items []T `json:"items"`
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// --- Success Response ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Error Response ---

// ErrorResponse documents the body rendered by middleware.ErrorHandler.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// --- Parsing helpers ---

// ParseID parses a path or body identifier.
func ParseID(field, raw string) (id.ID, error) {
	v, err := id.Parse(raw)
	if err != nil {
		return id.ID{}, apperror.NewInvalidArgument(field, "invalid id format")
	}
	return v, nil
}

// ParseDate parses an optional YYYY-MM-DD date.
func ParseDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, *raw)
	if err != nil {
		return nil, apperror.NewInvalidArgument(field, "date must have the form YYYY-MM-DD")
	}
	return &t, nil
}
