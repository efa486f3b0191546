// Package tx decouples domain services from the database transaction implementation.
package tx

import (
	"context"
)

// Manager runs fn inside a transaction; nested calls join the outer one.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager adds read-only transactions used by report queries.
type ReadOnlyManager interface {
	Manager
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// Noop runs fn directly. Used by services under test with in-memory repositories.
type Noop struct{}

func (Noop) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (Noop) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
