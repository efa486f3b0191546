package entity

import (
	"context"
	"time"

	"rwpay/internal/core/id"
)

// Validatable is implemented by entities that check their own invariants
// without touching the database.
type Validatable interface {
	Validate(ctx context.Context) error
}

// BaseEntity contains the fields shared by every stored record.
type BaseEntity struct {
	ID id.ID `db:"id" json:"id"`

	// DeletionMark hides the record from listings and reconciliation.
	DeletionMark bool `db:"deletion_mark" json:"deletionMark"`

	// Version is incremented by the repository on every update (optimistic locking).
	Version int `db:"version" json:"version"`
}

func NewBaseEntity() BaseEntity {
	return BaseEntity{
		ID:      id.New(),
		Version: 1,
	}
}

// BumpVersion mirrors the increment the repository applied in the database.
func (b *BaseEntity) BumpVersion() { b.Version++ }

// Audit holds who/when columns filled in by services.
type Audit struct {
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy *id.ID    `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy *id.ID    `db:"updated_by" json:"updatedBy,omitempty"`
}

func NewAudit() Audit {
	now := time.Now().UTC()
	return Audit{CreatedAt: now, UpdatedAt: now}
}

// StampCreated records the acting user on a new record.
func (a *Audit) StampCreated(userID id.ID) {
	a.CreatedBy = id.Ptr(userID)
	a.UpdatedBy = id.Ptr(userID)
}

// StampUpdated records the acting user and time of a modification.
func (a *Audit) StampUpdated(userID id.ID) {
	a.UpdatedAt = time.Now().UTC()
	a.UpdatedBy = id.Ptr(userID)
}
