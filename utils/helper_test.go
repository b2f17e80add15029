package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestStartOfWeek(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"monday stays", "2026-08-17", "2026-08-17"},
		{"midweek snaps back", "2026-08-19", "2026-08-17"},
		{"sunday belongs to previous monday", "2026-08-23", "2026-08-17"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, _ := time.Parse("2006-01-02", tc.in)
			got := StartOfWeek(in)
			if got.Format("2006-01-02") != tc.want {
				t.Fatalf("StartOfWeek(%s) = %s, want %s", tc.in, got.Format("2006-01-02"), tc.want)
			}
			if got.Hour() != 0 || got.Location() != time.UTC {
				t.Fatalf("StartOfWeek(%s) not midnight UTC: %s", tc.in, got)
			}
		})
	}
}

func TestSafeDivZeroDenominator(t *testing.T) {
	got := SafeDiv(decimal.NewFromInt(5), decimal.Zero)
	if !got.IsZero() {
		t.Fatalf("SafeDiv(5, 0) = %s, want 0", got)
	}
}

func TestRoundToInt(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"17.58", 18},
		{"4.16", 4},
		{"4.5", 5},
		{"0", 0},
	}
	for _, tc := range cases {
		if got := RoundToInt(decimal.RequireFromString(tc.in)); got != tc.want {
			t.Fatalf("RoundToInt(%s) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestSameCalendarMonth(t *testing.T) {
	a, _ := time.Parse("2006-01-02", "2026-08-01")
	b, _ := time.Parse("2006-01-02", "2026-08-31")
	c, _ := time.Parse("2006-01-02", "2025-08-15")
	if !SameCalendarMonth(a, b) {
		t.Fatal("same month reported different")
	}
	if SameCalendarMonth(a, c) {
		t.Fatal("same month across years reported equal")
	}
}
