// Package dates holds the calendar arithmetic shared by the ledger: calendar
// days and budget months, both represented as midnight UTC time.Time values.
package dates

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the wire format of calendar dates.
	DateLayout = "2006-01-02"
	// MonthLayout is the short wire format of budget months.
	MonthLayout = "2006-01"
)

// Day truncates t to midnight UTC of its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthStart returns midnight UTC on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NextMonth returns the first day of the month after t's month.
func NextMonth(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, 0)
}

// PrevMonth returns the first day of the month before t's month.
func PrevMonth(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, -1, 0)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseMonth parses a budget month given either as YYYY-MM or as any
// YYYY-MM-DD date inside the month.
func ParseMonth(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(MonthLayout, s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM", s)
	}
	return MonthStart(t), nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// FormatMonth renders t as YYYY-MM.
func FormatMonth(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}
