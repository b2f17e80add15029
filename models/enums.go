package models

import "errors"

// RagStatus is the red/amber/green classification of a metric against
// one or two thresholds.
type RagStatus string

const (
	RagStatusRed   RagStatus = "Red"
	RagStatusAmber RagStatus = "Amber"
	RagStatusGreen RagStatus = "Green"
	// RagStatusNone marks a metric that is surfaced but not classified
	// (no agreed threshold policy, e.g. right-first-time).
	RagStatusNone RagStatus = "None"
)

type WeeklyRecordKind string

const (
	WeeklyRecordKindSales      WeeklyRecordKind = "Sales"
	WeeklyRecordKindProduction WeeklyRecordKind = "Production"
)

func ParseWeeklyRecordKind(s string) (WeeklyRecordKind, error) {
	switch s {
	case "sales":
		return WeeklyRecordKindSales, nil
	case "production":
		return WeeklyRecordKindProduction, nil
	}
	return "", errors.New("invalid weekly record kind")
}
