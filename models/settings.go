package models

import (
	"context"
	"errors"
	"time"

	"github.com/boxworkshq/boxtrack_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Settings is the singleton row holding the financial inputs and the targets
// derived from them. Exactly one row exists at all times; it is created with
// defaults on first access and mutated only through the cascade resolver.
type Settings struct {
	ID int `gorm:"primaryKey" json:"id"`

	// Independent inputs. Nullable: the business may not have set them yet.
	AnnualTurnover *decimal.Decimal `gorm:"type:decimal(20,4)" json:"annual_turnover"`
	BaseBoxPrice   *decimal.Decimal `gorm:"type:decimal(20,4)" json:"base_box_price"`

	// Fraction in (0, 1]. Never null after first write.
	GrossMarginPct decimal.Decimal `gorm:"type:decimal(8,4);default:0.35" json:"gross_margin_pct"`

	// Fractions in [0, 1]; their sum must not exceed 1.
	TargetInstallPct decimal.Decimal `gorm:"type:decimal(8,4);default:0" json:"target_install_pct"`
	TargetExtrasPct  decimal.Decimal `gorm:"type:decimal(8,4);default:0" json:"target_extras_pct"`

	// Derived unless explicitly overridden by the caller.
	MonthlyContributionTarget decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"monthly_contribution_target"`
	ContributionPerBox        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"contribution_per_box"`
	TargetBoxesPerMonth       int             `gorm:"default:0" json:"target_boxes_per_month"`
	TargetBoxesPerWeek        int             `gorm:"default:0" json:"target_boxes_per_week"`

	// Independent thresholds, no derivation.
	SurvivalContribution decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"survival_contribution"`
	CostComplianceTarget decimal.Decimal `gorm:"type:decimal(8,4);default:0" json:"cost_compliance_target"`
	RightFirstTimeTarget decimal.Decimal `gorm:"type:decimal(8,4);default:0" json:"right_first_time_target"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Settings field names as accepted from callers. These constitute the
// de facto schema contract with the presentation layer.
const (
	FieldAnnualTurnover            = "annual_turnover"
	FieldBaseBoxPrice              = "base_box_price"
	FieldGrossMarginPct            = "gross_margin_pct"
	FieldTargetInstallPct          = "target_install_pct"
	FieldTargetExtrasPct           = "target_extras_pct"
	FieldMonthlyContributionTarget = "monthly_contribution_target"
	FieldContributionPerBox        = "contribution_per_box"
	FieldTargetBoxesPerMonth       = "target_boxes_per_month"
	FieldTargetBoxesPerWeek        = "target_boxes_per_week"
	FieldSurvivalContribution      = "survival_contribution"
	FieldCostComplianceTarget      = "cost_compliance_target"
	FieldRightFirstTimeTarget      = "right_first_time_target"
)

var defaultGrossMarginPct = decimal.RequireFromString("0.35")

// DefaultSettings returns the documented first-access defaults.
func DefaultSettings() Settings {
	return Settings{
		GrossMarginPct: defaultGrossMarginPct,
	}
}

// FetchSettings returns the settings row, creating it with defaults when
// absent. This is the read used by the administrative surface.
func FetchSettings(ctx context.Context, db *gorm.DB) (*Settings, error) {
	var s Settings
	err := db.WithContext(ctx).First(&s).Error
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NewPersistenceError("FetchSettings", err)
	}

	s = DefaultSettings()
	if err := db.WithContext(ctx).Create(&s).Error; err != nil {
		return nil, utils.NewPersistenceError("FetchSettings", err)
	}
	return &s, nil
}

// GetSettings returns the settings row without provisioning defaults.
// Absence is a precondition violation for the dashboard.
func GetSettings(ctx context.Context, db *gorm.DB) (*Settings, error) {
	var s Settings
	err := db.WithContext(ctx).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorSettingsNotInitialized
		}
		return nil, utils.NewPersistenceError("GetSettings", err)
	}
	return &s, nil
}
