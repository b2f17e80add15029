package models_test

import (
	"context"
	"testing"

	"github.com/boxworkshq/boxtrack_backend/models"
	"github.com/boxworkshq/boxtrack_backend/utils"
)

func TestUpsertWeeklySalesRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input models.WeeklySalesInput
	}{
		{
			name: "malformed week date",
			input: models.WeeklySalesInput{
				WeekCommencing: "2026-13-40",
				BoxesSold:      10,
			},
		},
		{
			name: "missing week date",
			input: models.WeeklySalesInput{
				BoxesSold: 10,
			},
		},
		{
			name: "negative boxes sold",
			input: models.WeeklySalesInput{
				WeekCommencing: "2026-08-03",
				BoxesSold:      -1,
			},
		},
		{
			name: "negative box revenue",
			input: models.WeeklySalesInput{
				WeekCommencing: "2026-08-03",
				BoxRevenue:     dec("-100"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := models.UpsertWeeklySales(context.Background(), tt.input)
			if err == nil {
				t.Fatal("expected an error, got nil")
			}
			if !utils.IsValidationError(err) {
				t.Fatalf("expected a validation error, got %v", err)
			}
		})
	}
}

func TestUpsertWeeklyProductionRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input models.WeeklyProductionInput
	}{
		{
			name: "over-cost boxes exceed production",
			input: models.WeeklyProductionInput{
				WeekCommencing: "2026-08-03",
				BoxesProduced:  10,
				BoxesOverCost:  11,
			},
		},
		{
			name: "right first time above one",
			input: models.WeeklyProductionInput{
				WeekCommencing:    "2026-08-03",
				BoxesProduced:     10,
				RightFirstTimePct: decPtr("1.5"),
			},
		},
		{
			name: "negative right first time",
			input: models.WeeklyProductionInput{
				WeekCommencing:    "2026-08-03",
				BoxesProduced:     10,
				RightFirstTimePct: decPtr("-0.1"),
			},
		},
		{
			name: "negative rework hours",
			input: models.WeeklyProductionInput{
				WeekCommencing: "2026-08-03",
				BoxesProduced:  10,
				ReworkHours:    dec("-2"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := models.UpsertWeeklyProduction(context.Background(), tt.input)
			if err == nil {
				t.Fatal("expected an error, got nil")
			}
			if !utils.IsValidationError(err) {
				t.Fatalf("expected a validation error, got %v", err)
			}
		})
	}
}
