package payment

import (
	"slices"

	"rwpay/internal/core/apperror"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// transitions lists the allowed status changes. Paid is terminal.
var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusOverdue},
	StatusOverdue: {StatusPaid},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

// IsOpen reports whether the payment still awaits money.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusOverdue
}

func (s Status) CanTransitionTo(to Status) bool {
	return slices.Contains(transitions[s], to)
}

// CheckTransition returns INVALID_STATUS_TRANSITION for a disallowed change.
func (s Status) CheckTransition(to Status) error {
	if !s.CanTransitionTo(to) {
		return apperror.NewInvalidTransition(string(s), string(to))
	}
	return nil
}
