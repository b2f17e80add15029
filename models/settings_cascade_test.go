package models_test

import (
	"testing"

	"github.com/boxworkshq/boxtrack_backend/models"
	"github.com/boxworkshq/boxtrack_backend/utils"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func baseSettings() *models.Settings {
	return &models.Settings{
		ID:             1,
		GrossMarginPct: dec("0.35"),
	}
}

func TestResolveSettingsRejectsUnknownField(t *testing.T) {
	_, err := models.ResolveSettings(baseSettings(), map[string]string{"box_color": "7"})
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveSettingsRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		changes map[string]string
	}{
		{"not a number", map[string]string{models.FieldAnnualTurnover: "lots"}},
		{"negative", map[string]string{models.FieldBaseBoxPrice: "-1"}},
		{"percentage above one", map[string]string{models.FieldTargetInstallPct: "1.5"}},
		{"fractional box target", map[string]string{models.FieldTargetBoxesPerWeek: "4.5"}},
		{"zero gross margin", map[string]string{models.FieldGrossMarginPct: "0"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := models.ResolveSettings(baseSettings(), tc.changes)
			if !utils.IsValidationError(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestResolveSettingsPercentageSumUsesEffectiveValues(t *testing.T) {
	current := baseSettings()
	current.TargetExtrasPct = dec("0.6")

	// 0.5 supplied + 0.6 persisted > 1.0
	_, err := models.ResolveSettings(current, map[string]string{
		models.FieldTargetInstallPct: "0.5",
	})
	if !utils.IsValidationError(err) {
		t.Fatalf("expected percentage-sum violation, got %v", err)
	}

	// Supplying both within bounds replaces the persisted extras value.
	res, err := models.ResolveSettings(current, map[string]string{
		models.FieldTargetInstallPct: "0.5",
		models.FieldTargetExtrasPct:  "0.3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Settings.TargetInstallPct.Equal(dec("0.5")) || !res.Settings.TargetExtrasPct.Equal(dec("0.3")) {
		t.Fatalf("unexpected percentages: %s / %s", res.Settings.TargetInstallPct, res.Settings.TargetExtrasPct)
	}
}

func TestResolveSettingsEmptyChangesIsNoOp(t *testing.T) {
	current := baseSettings()
	current.AnnualTurnover = decPtr("120000")
	current.MonthlyContributionTarget = dec("3500")
	current.ContributionPerBox = dec("227.5")
	current.TargetBoxesPerMonth = 15

	res, err := models.ResolveSettings(current, map[string]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Columns) != 0 {
		t.Fatalf("expected no columns to write, got %v", res.Columns)
	}
	if !res.Settings.MonthlyContributionTarget.Equal(dec("3500")) {
		t.Fatalf("settings were recomputed spuriously: %s", res.Settings.MonthlyContributionTarget)
	}
	if res.Settings.TargetBoxesPerMonth != 15 {
		t.Fatalf("box target changed: %d", res.Settings.TargetBoxesPerMonth)
	}
}

func TestResolveSettingsDerivesMonthlyContributionTarget(t *testing.T) {
	res, err := models.ResolveSettings(baseSettings(), map[string]string{
		models.FieldAnnualTurnover: "120000",
		models.FieldGrossMarginPct: "0.4",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// (120000 / 12) * 0.4
	if !res.Settings.MonthlyContributionTarget.Equal(dec("4000")) {
		t.Fatalf("monthly contribution target = %s, want 4000", res.Settings.MonthlyContributionTarget)
	}
}

func TestResolveSettingsDerivesContributionPerBox(t *testing.T) {
	res, err := models.ResolveSettings(baseSettings(), map[string]string{
		models.FieldBaseBoxPrice:     "500",
		models.FieldTargetInstallPct: "0.2",
		models.FieldTargetExtrasPct:  "0.1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 500 * 1.3 * 0.35
	if !res.Settings.ContributionPerBox.Equal(dec("227.5")) {
		t.Fatalf("contribution per box = %s, want 227.5", res.Settings.ContributionPerBox)
	}
}

func TestResolveSettingsDerivesBoxTargets(t *testing.T) {
	res, err := models.ResolveSettings(baseSettings(), map[string]string{
		models.FieldMonthlyContributionTarget: "4000",
		models.FieldContributionPerBox:        "227.5",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// round(4000 / 227.5) = 18, round(18 / 4.33) = 4
	if res.Settings.TargetBoxesPerMonth != 18 {
		t.Fatalf("target boxes per month = %d, want 18", res.Settings.TargetBoxesPerMonth)
	}
	if res.Settings.TargetBoxesPerWeek != 4 {
		t.Fatalf("target boxes per week = %d, want 4", res.Settings.TargetBoxesPerWeek)
	}
}

func TestResolveSettingsFullCascadeFromInputs(t *testing.T) {
	res, err := models.ResolveSettings(baseSettings(), map[string]string{
		models.FieldAnnualTurnover:   "120000",
		models.FieldBaseBoxPrice:     "500",
		models.FieldTargetInstallPct: "0.2",
		models.FieldTargetExtrasPct:  "0.1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// mct = 10000 * 0.35 = 3500; cpb = 227.5; boxes = round(3500/227.5) = 15
	if !res.Settings.MonthlyContributionTarget.Equal(dec("3500")) {
		t.Fatalf("monthly contribution target = %s, want 3500", res.Settings.MonthlyContributionTarget)
	}
	if !res.Settings.ContributionPerBox.Equal(dec("227.5")) {
		t.Fatalf("contribution per box = %s, want 227.5", res.Settings.ContributionPerBox)
	}
	if res.Settings.TargetBoxesPerMonth != 15 {
		t.Fatalf("target boxes per month = %d, want 15", res.Settings.TargetBoxesPerMonth)
	}
	if res.Settings.TargetBoxesPerWeek != 3 {
		// round(15 / 4.33) = round(3.46) = 3
		t.Fatalf("target boxes per week = %d, want 3", res.Settings.TargetBoxesPerWeek)
	}
}

func TestResolveSettingsExplicitOverrideWins(t *testing.T) {
	res, err := models.ResolveSettings(baseSettings(), map[string]string{
		models.FieldBaseBoxPrice:       "500",
		models.FieldContributionPerBox: "999",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Settings.ContributionPerBox.Equal(dec("999")) {
		t.Fatalf("explicit override lost: %s", res.Settings.ContributionPerBox)
	}
}

func TestResolveSettingsSkipsBoxTargetsWhenSuppliedDirectly(t *testing.T) {
	res, err := models.ResolveSettings(baseSettings(), map[string]string{
		models.FieldMonthlyContributionTarget: "4000",
		models.FieldContributionPerBox:        "227.5",
		models.FieldTargetBoxesPerMonth:       "30",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Settings.TargetBoxesPerMonth != 30 {
		t.Fatalf("target boxes per month = %d, want supplied 30", res.Settings.TargetBoxesPerMonth)
	}
	// Supplying one target field skips derivation of both.
	if res.Settings.TargetBoxesPerWeek != 0 {
		t.Fatalf("target boxes per week derived despite direct month target: %d", res.Settings.TargetBoxesPerWeek)
	}
}

func TestResolveSettingsUnrelatedChangeLeavesDerivedFieldsAlone(t *testing.T) {
	current := baseSettings()
	current.AnnualTurnover = decPtr("120000")
	current.MonthlyContributionTarget = dec("3500")

	res, err := models.ResolveSettings(current, map[string]string{
		models.FieldSurvivalContribution: "2500",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Settings.MonthlyContributionTarget.Equal(dec("3500")) {
		t.Fatalf("monthly contribution target recomputed: %s", res.Settings.MonthlyContributionTarget)
	}
	if _, ok := res.Columns[models.FieldMonthlyContributionTarget]; ok {
		t.Fatal("monthly_contribution_target written without a triggering input")
	}
	if _, ok := res.Columns[models.FieldSurvivalContribution]; !ok {
		t.Fatal("survival_contribution missing from write set")
	}
}

func TestResolveSettingsGrossMarginChangeRecomputesWithEffectiveInputs(t *testing.T) {
	current := baseSettings()
	current.AnnualTurnover = decPtr("120000")
	current.BaseBoxPrice = decPtr("500")
	current.TargetInstallPct = dec("0.2")
	current.TargetExtrasPct = dec("0.1")

	res, err := models.ResolveSettings(current, map[string]string{
		models.FieldGrossMarginPct: "0.4",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Settings.MonthlyContributionTarget.Equal(dec("4000")) {
		t.Fatalf("monthly contribution target = %s, want 4000", res.Settings.MonthlyContributionTarget)
	}
	// 500 * 1.3 * 0.4
	if !res.Settings.ContributionPerBox.Equal(dec("260")) {
		t.Fatalf("contribution per box = %s, want 260", res.Settings.ContributionPerBox)
	}
	// round(4000 / 260) = 15
	if res.Settings.TargetBoxesPerMonth != 15 {
		t.Fatalf("target boxes per month = %d, want 15", res.Settings.TargetBoxesPerMonth)
	}
}
