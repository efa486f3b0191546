package reconciliation

import (
	"fmt"
	"strconv"
	"time"

	"rwpay/internal/core/apperror"
)

// Month identifies a reconciliation month. The zero value is invalid.
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth validates year and month number without normalizing them.
func NewMonth(year, month int) (Month, error) {
	m := Month{Year: year, Month: time.Month(month)}
	if err := m.Validate(); err != nil {
		return Month{}, err
	}
	return m, nil
}

// ParseMonth parses the YYYY-MM form.
func ParseMonth(s string) (Month, error) {
	if len(s) != 7 || s[4] != '-' || !isDigits(s[:4]) || !isDigits(s[5:]) {
		return Month{}, apperror.NewInvalidArgument("month",
			fmt.Sprintf("month %q must have the form YYYY-MM", s))
	}
	year, _ := strconv.Atoi(s[:4])
	month, _ := strconv.Atoi(s[5:])
	return NewMonth(year, month)
}

// MustParseMonth is for tests and constants only.
func MustParseMonth(s string) Month {
	m, err := ParseMonth(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MonthOf returns the month containing t, in t's location.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) Validate() error {
	if m.Month < time.January || m.Month > time.December {
		return apperror.NewInvalidArgument("month",
			fmt.Sprintf("month number %d is outside 1-12", int(m.Month)))
	}
	if m.Year < 1 || m.Year > 9999 {
		return apperror.NewInvalidArgument("month",
			fmt.Sprintf("year %d is outside 1-9999", m.Year))
	}
	return nil
}

// FirstDay returns the first calendar day of the month at midnight UTC.
func (m Month) FirstDay() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// LastDay returns the last calendar day of the month at midnight UTC.
// The due-date range of a month is [FirstDay, LastDay] inclusive.
func (m Month) LastDay() time.Time {
	return m.FirstDay().AddDate(0, 1, -1)
}

// Contains compares calendar dates only; the time of day and location of t are ignored.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}

// AddMonths returns the month n months later (or earlier for negative n).
func (m Month) AddMonths(n int) Month {
	return MonthOf(m.FirstDay().AddDate(0, n, 0))
}

// Day returns the given day of the month, clamped to the last day.
func (m Month) Day(day int) time.Time {
	last := m.LastDay()
	if day > last.Day() {
		return last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(m.Year, m.Month, day, 0, 0, 0, 0, time.UTC)
}

func (m Month) IsZero() bool { return m == Month{} }

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
