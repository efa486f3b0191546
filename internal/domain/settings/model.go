// Package settings stores association-wide configuration as key/value pairs
// and exposes typed views of it.
package settings

import (
	"strconv"
	"time"

	"rwpay/internal/core/id"
	"rwpay/internal/core/types"
)

const (
	KeyRWName              = "rw_name"
	KeyRWAddress           = "rw_address"
	KeyRWPhone             = "rw_phone"
	KeyRWEmail             = "rw_email"
	KeyMonthlyFee          = "monthly_fee"
	KeyPABRate             = "pab_rate"
	KeyDueDay              = "due_day"
	KeyLateFee             = "late_fee"
	KeyCurrency            = "currency"
	KeyTargetMonthlyIncome = "target_monthly_income"
	KeyEmailReminders      = "email_reminders"
	KeySMSReminders        = "sms_reminders"
	KeyReminderDays        = "reminder_days"
	KeySatisfiedExpression = "satisfied_expression"
)

// Defaults apply to keys that were never stored.
var Defaults = map[string]string{
	KeyRWName:              "RW 08 Sambiroto",
	KeyRWAddress:           "",
	KeyRWPhone:             "",
	KeyRWEmail:             "",
	KeyMonthlyFee:          "50000",
	KeyPABRate:             "5000",
	KeyDueDay:              "10",
	KeyLateFee:             "5000",
	KeyCurrency:            "IDR",
	KeyTargetMonthlyIncome: "0",
	KeyEmailReminders:      "false",
	KeySMSReminders:        "false",
	KeyReminderDays:        "3",
	KeySatisfiedExpression: "",
}

// Setting is one stored key.
type Setting struct {
	Key         string    `db:"key" json:"key"`
	Value       string    `db:"value" json:"value"`
	Description *string   `db:"description" json:"description,omitempty"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
	UpdatedBy   *id.ID    `db:"updated_by" json:"updatedBy,omitempty"`
}

// Association is shown on report headers.
type Association struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// Billing holds the tariffs used when bills are generated and payments confirmed.
type Billing struct {
	MonthlyFee          types.Money `json:"monthlyFee"`
	PABRate             types.Money `json:"pabRate"`
	DueDay              int         `json:"dueDay"`
	LateFee             types.Money `json:"lateFee"`
	Currency            string      `json:"currency"`
	TargetMonthlyIncome types.Money `json:"targetMonthlyIncome"`

	// SatisfiedExpression decides which paid payments count in reconciliation.
	SatisfiedExpression string `json:"satisfiedExpression"`
}

type Notifications struct {
	EmailReminders bool `json:"emailReminders"`
	SMSReminders   bool `json:"smsReminders"`
	ReminderDays   int  `json:"reminderDays"`
}

// Values is a resolved view of all settings (stored values over defaults).
type Values map[string]string

func (v Values) String(key string) string {
	if s, ok := v[key]; ok {
		return s
	}
	return Defaults[key]
}

// Int falls back to the default when the stored value is not an integer.
func (v Values) Int(key string) int {
	if n, err := strconv.Atoi(v.String(key)); err == nil {
		return n
	}
	n, _ := strconv.Atoi(Defaults[key])
	return n
}

func (v Values) Bool(key string) bool {
	if b, err := strconv.ParseBool(v.String(key)); err == nil {
		return b
	}
	b, _ := strconv.ParseBool(Defaults[key])
	return b
}

func (v Values) Association() Association {
	return Association{
		Name:    v.String(KeyRWName),
		Address: v.String(KeyRWAddress),
		Phone:   v.String(KeyRWPhone),
		Email:   v.String(KeyRWEmail),
	}
}

func (v Values) Billing() Billing {
	return Billing{
		MonthlyFee:          types.Money(v.Int(KeyMonthlyFee)),
		PABRate:             types.Money(v.Int(KeyPABRate)),
		DueDay:              v.Int(KeyDueDay),
		LateFee:             types.Money(v.Int(KeyLateFee)),
		Currency:            v.String(KeyCurrency),
		TargetMonthlyIncome: types.Money(v.Int(KeyTargetMonthlyIncome)),
		SatisfiedExpression: v.String(KeySatisfiedExpression),
	}
}

func (v Values) Notifications() Notifications {
	return Notifications{
		EmailReminders: v.Bool(KeyEmailReminders),
		SMSReminders:   v.Bool(KeySMSReminders),
		ReminderDays:   v.Int(KeyReminderDays),
	}
}
