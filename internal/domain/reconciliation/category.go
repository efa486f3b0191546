package reconciliation

import (
	"fmt"

	"rwpay/internal/core/apperror"
)

// Category is one of the two fixed kinds of monthly charge.
type Category string

const (
	// CategoryFixedFee is the monthly association fee (LPS).
	CategoryFixedFee Category = "LPS"
	// CategoryMetered is the metered water charge (PAB).
	CategoryMetered Category = "PAB"
)

var allCategories = [...]Category{CategoryFixedFee, CategoryMetered}

// AllCategories returns every category in reporting order.
func AllCategories() []Category {
	return allCategories[:]
}

func (c Category) Valid() bool {
	for _, known := range allCategories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }

// ParseCategory accepts only the closed set of categories.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", apperror.NewInvalidArgument("category",
			fmt.Sprintf("unknown payment category %q (expected LPS or PAB)", s))
	}
	return c, nil
}
