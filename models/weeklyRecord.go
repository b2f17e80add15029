package models

import (
	"context"
	"errors"
	"time"

	"github.com/boxworkshq/boxtrack_backend/config"
	"github.com/boxworkshq/boxtrack_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WeeklySalesRecord holds one week of sales activity, keyed by the Monday of
// the week. At most one row exists per week; rows are upserted, never
// deleted.
type WeeklySalesRecord struct {
	ID             int       `gorm:"primaryKey" json:"id"`
	WeekCommencing time.Time `gorm:"type:date;uniqueIndex;not null" json:"week_commencing"`

	BoxesSold    int `gorm:"default:0" json:"boxes_sold"`
	InstallsSold int `gorm:"default:0" json:"installs_sold"`

	BoxRevenue     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"box_revenue"`
	ExtrasRevenue  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"extras_revenue"`
	InstallRevenue decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"install_revenue"`

	Note string `gorm:"type:text" json:"note"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// WeeklyProductionRecord holds one week of factory output, same lifecycle as
// WeeklySalesRecord.
type WeeklyProductionRecord struct {
	ID             int       `gorm:"primaryKey" json:"id"`
	WeekCommencing time.Time `gorm:"type:date;uniqueIndex;not null" json:"week_commencing"`

	BoxesProduced     int `gorm:"default:0" json:"boxes_produced"`
	InstallsCompleted int `gorm:"default:0" json:"installs_completed"`
	BoxesOverCost     int `gorm:"default:0" json:"boxes_over_cost"`

	ReworkHours decimal.Decimal `gorm:"type:decimal(12,4);default:0" json:"rework_hours"`

	// Fraction in [0, 1]; null when the factory did not report it.
	RightFirstTimePct *decimal.Decimal `gorm:"type:decimal(8,4)" json:"right_first_time_pct"`

	Note string `gorm:"type:text" json:"note"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type WeeklySalesInput struct {
	WeekCommencing string          `json:"week_commencing" validate:"required,datetime=2006-01-02"`
	BoxesSold      int             `json:"boxes_sold" validate:"min=0"`
	InstallsSold   int             `json:"installs_sold" validate:"min=0"`
	BoxRevenue     decimal.Decimal `json:"box_revenue"`
	ExtrasRevenue  decimal.Decimal `json:"extras_revenue"`
	InstallRevenue decimal.Decimal `json:"install_revenue"`
	Note           string          `json:"note"`
}

type WeeklyProductionInput struct {
	WeekCommencing    string           `json:"week_commencing" validate:"required,datetime=2006-01-02"`
	BoxesProduced     int              `json:"boxes_produced" validate:"min=0"`
	InstallsCompleted int              `json:"installs_completed" validate:"min=0"`
	BoxesOverCost     int              `json:"boxes_over_cost" validate:"min=0,ltefield=BoxesProduced"`
	ReworkHours       decimal.Decimal  `json:"rework_hours"`
	RightFirstTimePct *decimal.Decimal `json:"right_first_time_pct"`
	Note              string           `json:"note"`
}

func validateNonNegative(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return utils.NewValidationError(field, "must not be negative")
	}
	return nil
}

// UpsertWeeklySales inserts or updates the sales row for the input's week.
// The week is normalized to its Monday; the unique key makes concurrent
// upserts for the same week last-writer-wins without extra locking.
func UpsertWeeklySales(ctx context.Context, input WeeklySalesInput) (*WeeklySalesRecord, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	for _, c := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"box_revenue", input.BoxRevenue},
		{"extras_revenue", input.ExtrasRevenue},
		{"install_revenue", input.InstallRevenue},
	} {
		if err := validateNonNegative(c.name, c.value); err != nil {
			return nil, err
		}
	}

	week, err := parseWeekCommencing(input.WeekCommencing)
	if err != nil {
		return nil, err
	}

	record := WeeklySalesRecord{
		WeekCommencing: week,
		BoxesSold:      input.BoxesSold,
		InstallsSold:   input.InstallsSold,
		BoxRevenue:     input.BoxRevenue,
		ExtrasRevenue:  input.ExtrasRevenue,
		InstallRevenue: input.InstallRevenue,
		Note:           input.Note,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "week_commencing"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"boxes_sold", "installs_sold",
			"box_revenue", "extras_revenue", "install_revenue",
			"note", "updated_at",
		}),
	}).Create(&record).Error
	if err != nil {
		config.LogError(config.GetLogger(), "weeklyRecord.go", "UpsertWeeklySales", "upsert", input, err)
		return nil, utils.NewPersistenceError("UpsertWeeklySales", err)
	}

	InvalidateDashboardCache()
	return &record, nil
}

// UpsertWeeklyProduction mirrors UpsertWeeklySales for production rows.
func UpsertWeeklyProduction(ctx context.Context, input WeeklyProductionInput) (*WeeklyProductionRecord, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := validateNonNegative("rework_hours", input.ReworkHours); err != nil {
		return nil, err
	}
	if input.RightFirstTimePct != nil {
		if input.RightFirstTimePct.IsNegative() || input.RightFirstTimePct.GreaterThan(one) {
			return nil, utils.NewValidationError("right_first_time_pct", "must be between 0 and 1")
		}
	}

	week, err := parseWeekCommencing(input.WeekCommencing)
	if err != nil {
		return nil, err
	}

	record := WeeklyProductionRecord{
		WeekCommencing:    week,
		BoxesProduced:     input.BoxesProduced,
		InstallsCompleted: input.InstallsCompleted,
		BoxesOverCost:     input.BoxesOverCost,
		ReworkHours:       input.ReworkHours,
		RightFirstTimePct: input.RightFirstTimePct,
		Note:              input.Note,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "week_commencing"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"boxes_produced", "installs_completed", "boxes_over_cost",
			"rework_hours", "right_first_time_pct",
			"note", "updated_at",
		}),
	}).Create(&record).Error
	if err != nil {
		config.LogError(config.GetLogger(), "weeklyRecord.go", "UpsertWeeklyProduction", "upsert", input, err)
		return nil, utils.NewPersistenceError("UpsertWeeklyProduction", err)
	}

	InvalidateDashboardCache()
	return &record, nil
}

func parseWeekCommencing(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, utils.NewValidationError("week_commencing", "must be a date in YYYY-MM-DD format")
	}
	return utils.StartOfWeek(t), nil
}

// FetchWeeklySalesRecords returns all sales rows ordered by week ascending.
// Windowing over them happens in the aggregator, in memory.
func FetchWeeklySalesRecords(ctx context.Context, db *gorm.DB) ([]WeeklySalesRecord, error) {
	var records []WeeklySalesRecord
	if err := db.WithContext(ctx).Order("week_commencing asc").Find(&records).Error; err != nil {
		return nil, utils.NewPersistenceError("FetchWeeklySalesRecords", err)
	}
	return records, nil
}

func FetchWeeklyProductionRecords(ctx context.Context, db *gorm.DB) ([]WeeklyProductionRecord, error) {
	var records []WeeklyProductionRecord
	if err := db.WithContext(ctx).Order("week_commencing asc").Find(&records).Error; err != nil {
		return nil, utils.NewPersistenceError("FetchWeeklyProductionRecords", err)
	}
	return records, nil
}

// GetWeeklySalesForWeek returns the single sales row for the week containing
// day, or ErrorRecordNotFound.
func GetWeeklySalesForWeek(ctx context.Context, db *gorm.DB, day time.Time) (*WeeklySalesRecord, error) {
	var record WeeklySalesRecord
	err := db.WithContext(ctx).
		Where("week_commencing = ?", utils.StartOfWeek(day)).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, utils.NewPersistenceError("GetWeeklySalesForWeek", err)
	}
	return &record, nil
}

func GetWeeklyProductionForWeek(ctx context.Context, db *gorm.DB, day time.Time) (*WeeklyProductionRecord, error) {
	var record WeeklyProductionRecord
	err := db.WithContext(ctx).
		Where("week_commencing = ?", utils.StartOfWeek(day)).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, utils.NewPersistenceError("GetWeeklyProductionForWeek", err)
	}
	return &record, nil
}
