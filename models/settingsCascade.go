package models

import (
	"context"
	"strings"
	"time"

	"github.com/boxworkshq/boxtrack_backend/config"
	"github.com/boxworkshq/boxtrack_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type settingsFieldKind int

const (
	amountField settingsFieldKind = iota // decimal >= 0
	pctField                             // decimal in [0, 1]
	countField                           // whole number >= 0
)

// settingsFieldKinds is the allow-list: any requested field outside it is
// rejected before resolution begins.
var settingsFieldKinds = map[string]settingsFieldKind{
	FieldAnnualTurnover:            amountField,
	FieldBaseBoxPrice:              amountField,
	FieldGrossMarginPct:            pctField,
	FieldTargetInstallPct:          pctField,
	FieldTargetExtrasPct:           pctField,
	FieldMonthlyContributionTarget: amountField,
	FieldContributionPerBox:        amountField,
	FieldTargetBoxesPerMonth:       countField,
	FieldTargetBoxesPerWeek:        countField,
	FieldSurvivalContribution:      amountField,
	FieldCostComplianceTarget:      pctField,
	FieldRightFirstTimeTarget:      pctField,
}

type fieldOrigin int

const (
	originExplicit fieldOrigin = iota // caller-supplied; always wins over computation
	originDerived
)

type resolvedField struct {
	value  decimal.Decimal
	origin fieldOrigin
}

// SettingsResolution is the outcome of one cascade pass: the merged record
// and the exact column set for the single UPDATE statement.
type SettingsResolution struct {
	Settings Settings
	Columns  map[string]interface{}
}

var (
	one           = decimal.NewFromInt(1)
	twelve        = decimal.NewFromInt(12)
	weeksPerMonth = decimal.RequireFromString("4.33")
)

// ResolveSettings applies requested changes over the current settings row and
// recomputes dependent targets. Derived fields are only recomputed when the
// caller did not supply them directly and at least one of their inputs
// changed; an empty change set resolves to the current record untouched.
func ResolveSettings(current *Settings, changes map[string]string) (*SettingsResolution, error) {
	fields := make(map[string]resolvedField, len(changes))

	for name, raw := range changes {
		kind, ok := settingsFieldKinds[name]
		if !ok {
			return nil, utils.NewValidationError(name, "unknown settings field")
		}
		v, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, utils.NewValidationError(name, "must be a number")
		}
		if v.IsNegative() {
			return nil, utils.NewValidationError(name, "must not be negative")
		}
		switch kind {
		case pctField:
			if v.GreaterThan(one) {
				return nil, utils.NewValidationError(name, "must not exceed 1.0")
			}
		case countField:
			if !v.Equal(v.Truncate(0)) {
				return nil, utils.NewValidationError(name, "must be a whole number")
			}
		}
		fields[name] = resolvedField{value: v, origin: originExplicit}
	}

	if f, ok := fields[FieldGrossMarginPct]; ok && f.value.IsZero() {
		return nil, utils.NewValidationError(FieldGrossMarginPct, "must be greater than zero")
	}

	supplied := func(name string) bool {
		f, ok := fields[name]
		return ok && f.origin == originExplicit
	}
	// eff is the effective value: supplied or freshly derived if present,
	// else the persisted one.
	eff := func(name string) decimal.Decimal {
		if f, ok := fields[name]; ok {
			return f.value
		}
		return currentFieldValue(current, name)
	}

	if supplied(FieldTargetInstallPct) || supplied(FieldTargetExtrasPct) {
		sum := eff(FieldTargetInstallPct).Add(eff(FieldTargetExtrasPct))
		if sum.GreaterThan(one) {
			return nil, utils.NewValidationError("", "target_install_pct + target_extras_pct must not exceed 1.0")
		}
	}

	derive := func(name string, v decimal.Decimal) {
		if _, ok := fields[name]; !ok {
			fields[name] = resolvedField{value: v, origin: originDerived}
		}
	}

	// Step 1: monthly contribution target from annual turnover.
	if !supplied(FieldMonthlyContributionTarget) &&
		(supplied(FieldAnnualTurnover) || supplied(FieldGrossMarginPct)) &&
		eff(FieldAnnualTurnover).IsPositive() {
		derive(FieldMonthlyContributionTarget,
			eff(FieldAnnualTurnover).Div(twelve).Mul(eff(FieldGrossMarginPct)))
	}

	// Step 2: contribution per box from price and percentage targets.
	if !supplied(FieldContributionPerBox) &&
		(supplied(FieldBaseBoxPrice) || supplied(FieldTargetInstallPct) ||
			supplied(FieldTargetExtrasPct) || supplied(FieldGrossMarginPct)) &&
		eff(FieldBaseBoxPrice).IsPositive() {
		uplift := one.Add(eff(FieldTargetInstallPct)).Add(eff(FieldTargetExtrasPct))
		derive(FieldContributionPerBox,
			eff(FieldBaseBoxPrice).Mul(uplift).Mul(eff(FieldGrossMarginPct)))
	}

	// Step 3: box targets from the two contribution figures. Depends on the
	// outputs of steps 1-2 via eff(); skipped entirely when the caller set
	// either target directly.
	if !supplied(FieldTargetBoxesPerMonth) && !supplied(FieldTargetBoxesPerWeek) {
		_, mctChanged := fields[FieldMonthlyContributionTarget]
		_, cpbChanged := fields[FieldContributionPerBox]
		mct := eff(FieldMonthlyContributionTarget)
		cpb := eff(FieldContributionPerBox)
		if (mctChanged || cpbChanged) && mct.IsPositive() && cpb.IsPositive() {
			boxesPerMonth := mct.Div(cpb).Round(0)
			derive(FieldTargetBoxesPerMonth, boxesPerMonth)
			derive(FieldTargetBoxesPerWeek, boxesPerMonth.Div(weeksPerMonth).Round(0))
		}
	}

	res := &SettingsResolution{
		Settings: *current,
		Columns:  make(map[string]interface{}, len(fields)+1),
	}
	if len(fields) == 0 {
		return res, nil
	}
	for name, f := range fields {
		applyFieldValue(&res.Settings, name, f.value)
		res.Columns[name] = columnValue(name, f.value)
	}
	now := time.Now().UTC()
	res.Settings.UpdatedAt = now
	res.Columns["updated_at"] = now
	return res, nil
}

func currentFieldValue(s *Settings, name string) decimal.Decimal {
	switch name {
	case FieldAnnualTurnover:
		return utils.DereferencePtr(s.AnnualTurnover, decimal.Zero)
	case FieldBaseBoxPrice:
		return utils.DereferencePtr(s.BaseBoxPrice, decimal.Zero)
	case FieldGrossMarginPct:
		return s.GrossMarginPct
	case FieldTargetInstallPct:
		return s.TargetInstallPct
	case FieldTargetExtrasPct:
		return s.TargetExtrasPct
	case FieldMonthlyContributionTarget:
		return s.MonthlyContributionTarget
	case FieldContributionPerBox:
		return s.ContributionPerBox
	case FieldTargetBoxesPerMonth:
		return decimal.NewFromInt(int64(s.TargetBoxesPerMonth))
	case FieldTargetBoxesPerWeek:
		return decimal.NewFromInt(int64(s.TargetBoxesPerWeek))
	case FieldSurvivalContribution:
		return s.SurvivalContribution
	case FieldCostComplianceTarget:
		return s.CostComplianceTarget
	case FieldRightFirstTimeTarget:
		return s.RightFirstTimeTarget
	}
	return decimal.Zero
}

func applyFieldValue(s *Settings, name string, v decimal.Decimal) {
	switch name {
	case FieldAnnualTurnover:
		s.AnnualTurnover = &v
	case FieldBaseBoxPrice:
		s.BaseBoxPrice = &v
	case FieldGrossMarginPct:
		s.GrossMarginPct = v
	case FieldTargetInstallPct:
		s.TargetInstallPct = v
	case FieldTargetExtrasPct:
		s.TargetExtrasPct = v
	case FieldMonthlyContributionTarget:
		s.MonthlyContributionTarget = v
	case FieldContributionPerBox:
		s.ContributionPerBox = v
	case FieldTargetBoxesPerMonth:
		s.TargetBoxesPerMonth = int(v.IntPart())
	case FieldTargetBoxesPerWeek:
		s.TargetBoxesPerWeek = int(v.IntPart())
	case FieldSurvivalContribution:
		s.SurvivalContribution = v
	case FieldCostComplianceTarget:
		s.CostComplianceTarget = v
	case FieldRightFirstTimeTarget:
		s.RightFirstTimeTarget = v
	}
}

// columnValue converts a resolved value to its column representation.
// Count columns are integers in the schema.
func columnValue(name string, v decimal.Decimal) interface{} {
	if settingsFieldKinds[name] == countField {
		return int(v.IntPart())
	}
	return v
}

// UpdateSettings runs the full fetch -> resolve -> persist sequence inside
// one transaction so concurrent updates cannot interleave between the read
// and the write. The redis lock on top is a best-effort optimization across
// instances; correctness does not depend on it.
func UpdateSettings(ctx context.Context, changes map[string]string) (*Settings, error) {
	logger := config.GetLogger()
	db := config.GetDB()

	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "lock:settings", 10*time.Second, nil)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"field": "UpdateSettings",
			}).Warn("could not obtain settings lock; proceeding without it: " + err.Error())
		} else {
			defer func() { _ = lock.Release(ctx) }()
		}
	}

	var result *Settings
	err := db.Transaction(func(tx *gorm.DB) error {
		current, err := FetchSettings(ctx, tx)
		if err != nil {
			return err
		}
		res, err := ResolveSettings(current, changes)
		if err != nil {
			return err
		}
		if len(res.Columns) == 0 {
			result = current
			return nil
		}
		if err := tx.WithContext(ctx).Model(&Settings{}).
			Where("id = ?", current.ID).
			Updates(res.Columns).Error; err != nil {
			return utils.NewPersistenceError("UpdateSettings", err)
		}
		s := res.Settings
		result = &s
		return nil
	})
	if err != nil {
		config.LogError(logger, "settingsCascade.go", "UpdateSettings", "resolve and persist", changes, err)
		return nil, err
	}

	InvalidateDashboardCache()
	return result, nil
}
