// Package id provides the identifier type shared by residents, payments and users.
package id

import (
	"github.com/google/uuid"
)

type ID = uuid.UUID

// New generates a time-ordered UUIDv7, so primary keys sort by creation time.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse is for tests and constants only.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

func IsNil(v ID) bool {
	return v == uuid.Nil
}

// Ptr returns nil for the zero ID, which maps to SQL NULL.
func Ptr(v ID) *ID {
	if IsNil(v) {
		return nil
	}
	return &v
}
