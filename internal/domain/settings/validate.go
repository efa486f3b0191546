package settings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"rwpay/internal/core/apperror"
)

var validate = validator.New()

var moneyKeys = map[string]bool{
	KeyMonthlyFee:          true,
	KeyPABRate:             true,
	KeyLateFee:             true,
	KeyTargetMonthlyIncome: true,
}

// ValidateValue checks values of known keys. Unknown keys accept any value.
func ValidateValue(key, value string) error {
	invalid := func(msg string) error {
		return apperror.NewValidation(msg).WithDetail("field", key).WithDetail("value", value)
	}

	switch {
	case key == "" || len(key) > 64 || strings.ContainsAny(key, " \t\n"):
		return apperror.NewValidation("setting key must be 1-64 characters without whitespace").
			WithDetail("field", "key")
	case moneyKeys[key]:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return invalid(fmt.Sprintf("%s must be a non-negative whole amount", key))
		}
	case key == KeyDueDay:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 28 {
			return invalid("due_day must be between 1 and 28")
		}
	case key == KeyReminderDays:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 31 {
			return invalid("reminder_days must be between 0 and 31")
		}
	case key == KeyEmailReminders || key == KeySMSReminders:
		if _, err := strconv.ParseBool(value); err != nil {
			return invalid(key + " must be true or false")
		}
	case key == KeyCurrency:
		if len(value) != 3 || strings.ToUpper(value) != value {
			return invalid("currency must be a 3-letter ISO code")
		}
	case key == KeyRWEmail:
		if value != "" {
			if err := validate.Var(value, "email"); err != nil {
				return invalid("rw_email is not a valid address")
			}
		}
	case key == KeyRWName:
		if strings.TrimSpace(value) == "" {
			return invalid("rw_name must not be empty")
		}
	}
	return nil
}
