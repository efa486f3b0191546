// Package resident provides the resident catalog: one billable household per house number.
package resident

import (
	"context"
	"regexp"
	"strings"

	"rwpay/internal/core/apperror"
	"rwpay/internal/core/entity"
	"rwpay/internal/domain/reconciliation"
)

var (
	emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRE = regexp.MustCompile(`^\+?[0-9 ()-]{6,20}$`)
	rtRE    = regexp.MustCompile(`^[0-9]{1,3}$`)
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Resident is a household registered with the association.
type Resident struct {
	entity.BaseEntity
	entity.Audit

	Name string `db:"name" json:"name"`

	// HouseNumber is unique among residents that are not marked deleted.
	HouseNumber string `db:"house_number" json:"houseNumber"`

	// RT is the neighborhood subdivision code, e.g. "03".
	RT string `db:"rt" json:"rt"`

	Address *string `db:"address" json:"address,omitempty"`
	Phone   *string `db:"phone" json:"phone,omitempty"`
	Email   *string `db:"email" json:"email,omitempty"`
	Status  Status  `db:"status" json:"status"`
}

func NewResident(name, houseNumber, rt string) *Resident {
	return &Resident{
		BaseEntity:  entity.NewBaseEntity(),
		Audit:       entity.NewAudit(),
		Name:        name,
		HouseNumber: houseNumber,
		RT:          rt,
		Status:      StatusActive,
	}
}

// Normalize trims input and canonicalizes the house number and RT code.
func (r *Resident) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.HouseNumber = NormalizeHouseNumber(r.HouseNumber)
	r.RT = strings.TrimSpace(r.RT)
	if len(r.RT) == 1 {
		r.RT = "0" + r.RT
	}
	if r.Status == "" {
		r.Status = StatusActive
	}
}

// NormalizeHouseNumber makes "a-12 " and "A-12" the same house.
func NormalizeHouseNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Validate implements entity.Validatable.
func (r *Resident) Validate(_ context.Context) error {
	if r.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if r.HouseNumber == "" {
		return apperror.NewValidation("house number is required").WithDetail("field", "houseNumber")
	}
	if !rtRE.MatchString(r.RT) {
		return apperror.NewValidation("rt must be 1-3 digits").WithDetail("field", "rt")
	}
	if !r.Status.Valid() {
		return apperror.NewValidation("invalid resident status").
			WithDetail("field", "status").
			WithDetail("value", string(r.Status))
	}
	if r.Email != nil && *r.Email != "" && !emailRE.MatchString(*r.Email) {
		return apperror.NewValidation("invalid email format").WithDetail("field", "email")
	}
	if r.Phone != nil && *r.Phone != "" && !phoneRE.MatchString(*r.Phone) {
		return apperror.NewValidation("invalid phone number").WithDetail("field", "phone")
	}
	return nil
}

// IsActive reports whether the resident is billed and reconciled.
func (r *Resident) IsActive() bool {
	return r.Status == StatusActive && !r.DeletionMark
}

// RosterEntry converts the resident into reconciliation input.
func (r *Resident) RosterEntry() reconciliation.Resident {
	return reconciliation.Resident{
		ID:          r.ID.String(),
		Name:        r.Name,
		HouseNumber: r.HouseNumber,
		RT:          r.RT,
	}
}
