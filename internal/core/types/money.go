// Package types provides the monetary and quantity types used for billing.
package types

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"rwpay/internal/core/apperror"
)

// Money is an amount in the smallest currency unit. Rupiah has no minor unit,
// so 62500 means Rp 62.500.
type Money int64

func (m Money) IsNegative() bool { return m < 0 }

// Quantity is a metered usage value (cubic meters) with arbitrary precision.
type Quantity = decimal.Decimal

// ParseQuantity parses a usage value entered as "12.5" or "12,5".
// Exactly one decimal separator is allowed and thousands grouping is rejected.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, apperror.NewInvalidArgument("usage_quantity", "usage quantity is required")
	}

	if strings.Count(s, ",")+strings.Count(s, ".") > 1 {
		return decimal.Zero, apperror.NewInvalidArgument("usage_quantity",
			fmt.Sprintf("usage quantity %q has more than one decimal separator", s))
	}
	normalized := strings.Replace(s, ",", ".", 1)

	// decimal.NewFromString accepts exponents; metered readings never use them.
	if strings.ContainsAny(normalized, "eE") {
		return decimal.Zero, apperror.NewInvalidArgument("usage_quantity",
			fmt.Sprintf("usage quantity %q is not a plain decimal", s))
	}

	q, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, apperror.NewInvalidArgument("usage_quantity",
			fmt.Sprintf("usage quantity %q is not a number", s)).WithCause(err)
	}
	if q.IsNegative() {
		return decimal.Zero, apperror.NewInvalidArgument("usage_quantity", "usage quantity must not be negative")
	}
	return q, nil
}

var maxMoney = decimal.NewFromInt(math.MaxInt64)

// MeteredAmount returns usage × rate rounded half-up to a whole currency unit.
func MeteredAmount(usage Quantity, rate Money) (Money, error) {
	if usage.IsNegative() {
		return 0, apperror.NewInvalidArgument("usage_quantity", "usage quantity must not be negative")
	}
	if rate.IsNegative() {
		return 0, apperror.NewInvalidArgument("rate_per_unit", "rate must not be negative")
	}

	// Round is half away from zero, which equals half-up for non-negative operands.
	amount := usage.Mul(decimal.NewFromInt(int64(rate))).Round(0)
	if amount.GreaterThan(maxMoney) {
		return 0, apperror.NewInvalidArgument("usage_quantity",
			fmt.Sprintf("amount for usage %s at rate %d overflows", usage, rate))
	}
	return Money(amount.IntPart()), nil
}

// Usage returns current - previous meter reading.
func Usage(previous, current Quantity) (Quantity, error) {
	if current.LessThan(previous) {
		return decimal.Zero, apperror.NewInvalidArgument("current_reading",
			fmt.Sprintf("current reading %s is below previous reading %s", current, previous))
	}
	return current.Sub(previous), nil
}
