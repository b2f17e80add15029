package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// StartOfWeek normalizes t to midnight UTC on the Monday of its ISO week.
// All weekly records are keyed on this value.
func StartOfWeek(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	day := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

// SameCalendarMonth reports whether a and b fall in the same year and month.
func SameCalendarMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// SafeDiv returns a/b, or zero when b is zero. Ratio metrics over empty
// windows must read as zero rather than fail.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// RoundToInt rounds half away from zero, e.g. 17.58 -> 18, 4.16 -> 4.
func RoundToInt(d decimal.Decimal) int {
	return int(d.Round(0).IntPart())
}

func DereferencePtr[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}
	return *ptr
}

func NewTrue() *bool {
	b := true
	return &b
}
