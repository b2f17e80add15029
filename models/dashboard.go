package models

import (
	"sort"
	"time"

	"github.com/boxworkshq/boxtrack_backend/config"
	"github.com/boxworkshq/boxtrack_backend/utils"
	"github.com/shopspring/decimal"
)

// Fixed organizational thresholds. These are policy, not configuration:
// they do not live in the settings row.
var (
	contributionPerBoxRedBelow   = decimal.NewFromInt(600)
	contributionPerBoxAmberBelow = decimal.NewFromInt(640)
	reworkPerBoxAmberAt          = decimal.RequireFromString("0.25")
	reworkPerBoxRedAt            = decimal.RequireFromString("0.5")
)

const (
	trailingWindowWeeks = 4
	forwardWindowWeeks  = 4
)

// Metric is one KPI: its computed value, the threshold it was judged
// against, and the resulting RAG status.
type Metric struct {
	Value  decimal.Decimal `json:"value"`
	Target decimal.Decimal `json:"target"`
	Status RagStatus       `json:"status"`
}

type SalesTotals struct {
	Weeks          int             `json:"weeks"`
	BoxesSold      int             `json:"boxes_sold"`
	InstallsSold   int             `json:"installs_sold"`
	BoxRevenue     decimal.Decimal `json:"box_revenue"`
	ExtrasRevenue  decimal.Decimal `json:"extras_revenue"`
	InstallRevenue decimal.Decimal `json:"install_revenue"`
}

func (t SalesTotals) TotalRevenue() decimal.Decimal {
	return t.BoxRevenue.Add(t.ExtrasRevenue).Add(t.InstallRevenue)
}

type ProductionTotals struct {
	Weeks             int             `json:"weeks"`
	BoxesProduced     int             `json:"boxes_produced"`
	InstallsCompleted int             `json:"installs_completed"`
	BoxesOverCost     int             `json:"boxes_over_cost"`
	ReworkHours       decimal.Decimal `json:"rework_hours"`
}

// DashboardReport is the full weekly performance view handed to the
// presentation layer as plain data.
type DashboardReport struct {
	ReferenceDate time.Time `json:"reference_date"`

	MonthToDateSales    SalesTotals      `json:"month_to_date_sales"`
	TrailingSales       SalesTotals      `json:"trailing_sales"`
	TrailingProduction  ProductionTotals `json:"trailing_production"`

	// Forward look is display only; nothing in it is classified.
	ForwardSales      []WeeklySalesRecord      `json:"forward_sales"`
	ForwardProduction []WeeklyProductionRecord `json:"forward_production"`

	Contribution         Metric          `json:"contribution"`
	SurvivalContribution decimal.Decimal `json:"survival_contribution"`
	InstallPct           Metric          `json:"install_pct"`
	ExtrasPct            Metric          `json:"extras_pct"`
	ContributionPerBox   Metric          `json:"contribution_per_box"`
	CostCompliancePct    Metric          `json:"cost_compliance_pct"`
	ReworkPerBox         Metric          `json:"rework_per_box"`

	// Surfaced without classification pending a product decision on its
	// threshold policy.
	RightFirstTimePct Metric `json:"right_first_time_pct"`

	AvgBoxesPerWeek    decimal.Decimal `json:"avg_boxes_per_week"`
	TargetBoxesPerWeek int             `json:"target_boxes_per_week"`
}

// ComputeDashboard rolls weekly records up into month-to-date, trailing and
// forward windows and classifies each KPI. It is a pure function of its
// inputs: no storage access, no clock reads, no mutation of the record
// slices. Missing data degrades to zero-valued metrics rather than failing.
func ComputeDashboard(settings *Settings, sales []WeeklySalesRecord, production []WeeklyProductionRecord, referenceDate time.Time) *DashboardReport {
	if settings == nil {
		settings = &Settings{}
	}

	mtdSales := monthToDateSales(sales, referenceDate)
	trailSales := trailingSales(sales, referenceDate, trailingWindowWeeks)
	trailProd, rftAvg := trailingProduction(production, referenceDate, trailingWindowWeeks)

	report := &DashboardReport{
		ReferenceDate:        referenceDate,
		MonthToDateSales:     mtdSales,
		TrailingSales:        trailSales,
		TrailingProduction:   trailProd,
		ForwardSales:         forwardSales(sales, referenceDate, forwardWindowWeeks),
		ForwardProduction:    forwardProduction(production, referenceDate, forwardWindowWeeks),
		SurvivalContribution: settings.SurvivalContribution,
		TargetBoxesPerWeek:   settings.TargetBoxesPerWeek,
	}

	gm := settings.GrossMarginPct
	contributionMTD := mtdSales.TotalRevenue().Mul(gm)
	report.Contribution = Metric{
		Value:  contributionMTD,
		Target: settings.MonthlyContributionTarget,
		Status: classifyContribution(contributionMTD, settings.SurvivalContribution, settings.MonthlyContributionTarget),
	}

	installPct := utils.SafeDiv(
		decimal.NewFromInt(int64(trailSales.InstallsSold)),
		decimal.NewFromInt(int64(trailSales.BoxesSold)),
	)
	report.InstallPct = Metric{
		Value:  installPct,
		Target: settings.TargetInstallPct,
		Status: classifyAtLeast(installPct, settings.TargetInstallPct),
	}

	extrasPct := utils.SafeDiv(trailSales.ExtrasRevenue, trailSales.BoxRevenue)
	report.ExtrasPct = Metric{
		Value:  extrasPct,
		Target: settings.TargetExtrasPct,
		Status: classifyAtLeast(extrasPct, settings.TargetExtrasPct),
	}

	// Falls back to the stored per-box contribution when nothing sold yet
	// this month.
	contributionPerBox := settings.ContributionPerBox
	if mtdSales.BoxesSold > 0 {
		contributionPerBox = contributionMTD.Div(decimal.NewFromInt(int64(mtdSales.BoxesSold)))
	}
	report.ContributionPerBox = Metric{
		Value:  contributionPerBox,
		Target: contributionPerBoxAmberBelow,
		Status: classifyContributionPerBox(contributionPerBox),
	}

	produced := decimal.NewFromInt(int64(trailProd.BoxesProduced))
	costCompliance := utils.SafeDiv(
		decimal.NewFromInt(int64(trailProd.BoxesProduced-trailProd.BoxesOverCost)),
		produced,
	)
	report.CostCompliancePct = Metric{
		Value:  costCompliance,
		Target: settings.CostComplianceTarget,
		Status: classifyAtLeast(costCompliance, settings.CostComplianceTarget),
	}

	reworkPerBox := utils.SafeDiv(trailProd.ReworkHours, produced)
	report.ReworkPerBox = Metric{
		Value:  reworkPerBox,
		Target: reworkPerBoxAmberAt,
		Status: classifyReworkPerBox(reworkPerBox),
	}

	report.AvgBoxesPerWeek = utils.SafeDiv(produced, decimal.NewFromInt(int64(trailProd.Weeks)))

	report.RightFirstTimePct = Metric{
		Value:  rftAvg,
		Target: settings.RightFirstTimeTarget,
		Status: RagStatusNone,
	}

	return report
}

// classifyContribution is the only three-band rule: amber starts at exactly
// the survival threshold (red requires strictly less than survival).
func classifyContribution(value, survival, target decimal.Decimal) RagStatus {
	if value.LessThan(survival) {
		return RagStatusRed
	}
	if value.LessThan(target) {
		return RagStatusAmber
	}
	return RagStatusGreen
}

func classifyAtLeast(value, target decimal.Decimal) RagStatus {
	if value.LessThan(target) {
		return RagStatusRed
	}
	return RagStatusGreen
}

func classifyContributionPerBox(value decimal.Decimal) RagStatus {
	if value.LessThan(contributionPerBoxRedBelow) {
		return RagStatusRed
	}
	if value.LessThan(contributionPerBoxAmberBelow) {
		return RagStatusAmber
	}
	return RagStatusGreen
}

func classifyReworkPerBox(value decimal.Decimal) RagStatus {
	if value.GreaterThanOrEqual(reworkPerBoxRedAt) {
		return RagStatusRed
	}
	if value.GreaterThanOrEqual(reworkPerBoxAmberAt) {
		return RagStatusAmber
	}
	return RagStatusGreen
}

func monthToDateSales(records []WeeklySalesRecord, ref time.Time) SalesTotals {
	var totals SalesTotals
	totals.BoxRevenue = decimal.Zero
	totals.ExtrasRevenue = decimal.Zero
	totals.InstallRevenue = decimal.Zero
	for _, r := range records {
		if r.WeekCommencing.After(ref) || !utils.SameCalendarMonth(r.WeekCommencing, ref) {
			continue
		}
		totals.Weeks++
		totals.BoxesSold += r.BoxesSold
		totals.InstallsSold += r.InstallsSold
		totals.BoxRevenue = totals.BoxRevenue.Add(r.BoxRevenue)
		totals.ExtrasRevenue = totals.ExtrasRevenue.Add(r.ExtrasRevenue)
		totals.InstallRevenue = totals.InstallRevenue.Add(r.InstallRevenue)
	}
	return totals
}

// trailingSales sums the n most recent sales rows at or before ref,
// regardless of calendar-month boundaries. Fewer than n rows is fine.
func trailingSales(records []WeeklySalesRecord, ref time.Time, n int) SalesTotals {
	window := make([]WeeklySalesRecord, 0, len(records))
	for _, r := range records {
		if !r.WeekCommencing.After(ref) {
			window = append(window, r)
		}
	}
	sort.Slice(window, func(i, j int) bool {
		return window[i].WeekCommencing.Before(window[j].WeekCommencing)
	})
	if len(window) > n {
		window = window[len(window)-n:]
	}

	var totals SalesTotals
	totals.BoxRevenue = decimal.Zero
	totals.ExtrasRevenue = decimal.Zero
	totals.InstallRevenue = decimal.Zero
	for _, r := range window {
		totals.Weeks++
		totals.BoxesSold += r.BoxesSold
		totals.InstallsSold += r.InstallsSold
		totals.BoxRevenue = totals.BoxRevenue.Add(r.BoxRevenue)
		totals.ExtrasRevenue = totals.ExtrasRevenue.Add(r.ExtrasRevenue)
		totals.InstallRevenue = totals.InstallRevenue.Add(r.InstallRevenue)
	}
	return totals
}

// trailingProduction additionally averages right_first_time_pct over the
// rows that reported it.
func trailingProduction(records []WeeklyProductionRecord, ref time.Time, n int) (ProductionTotals, decimal.Decimal) {
	window := make([]WeeklyProductionRecord, 0, len(records))
	for _, r := range records {
		if !r.WeekCommencing.After(ref) {
			window = append(window, r)
		}
	}
	sort.Slice(window, func(i, j int) bool {
		return window[i].WeekCommencing.Before(window[j].WeekCommencing)
	})
	if len(window) > n {
		window = window[len(window)-n:]
	}

	var totals ProductionTotals
	totals.ReworkHours = decimal.Zero
	rftSum := decimal.Zero
	rftCount := 0
	for _, r := range window {
		totals.Weeks++
		totals.BoxesProduced += r.BoxesProduced
		totals.InstallsCompleted += r.InstallsCompleted
		totals.BoxesOverCost += r.BoxesOverCost
		totals.ReworkHours = totals.ReworkHours.Add(r.ReworkHours)
		if r.RightFirstTimePct != nil {
			rftSum = rftSum.Add(*r.RightFirstTimePct)
			rftCount++
		}
	}
	rftAvg := utils.SafeDiv(rftSum, decimal.NewFromInt(int64(rftCount)))
	return totals, rftAvg
}

func forwardSales(records []WeeklySalesRecord, ref time.Time, n int) []WeeklySalesRecord {
	window := make([]WeeklySalesRecord, 0, n)
	for _, r := range records {
		if !r.WeekCommencing.Before(ref) {
			window = append(window, r)
		}
	}
	sort.Slice(window, func(i, j int) bool {
		return window[i].WeekCommencing.Before(window[j].WeekCommencing)
	})
	if len(window) > n {
		window = window[:n]
	}
	return window
}

func forwardProduction(records []WeeklyProductionRecord, ref time.Time, n int) []WeeklyProductionRecord {
	window := make([]WeeklyProductionRecord, 0, n)
	for _, r := range records {
		if !r.WeekCommencing.Before(ref) {
			window = append(window, r)
		}
	}
	sort.Slice(window, func(i, j int) bool {
		return window[i].WeekCommencing.Before(window[j].WeekCommencing)
	})
	if len(window) > n {
		window = window[:n]
	}
	return window
}

const dashboardCacheSetKey = "dashboardKeys"

func dashboardCacheKey(ref time.Time) string {
	return "dashboard:" + ref.Format("2006-01-02")
}

// GetCachedDashboard returns a previously computed report for ref, if redis
// holds one.
func GetCachedDashboard(ref time.Time) (*DashboardReport, bool) {
	var report DashboardReport
	exists, err := config.GetRedisObject(dashboardCacheKey(ref), &report)
	if err != nil || !exists {
		return nil, false
	}
	return &report, true
}

// CacheDashboard stores a computed report with a short TTL. Cached keys are
// tracked in a set so invalidation can clear every reference date at once.
func CacheDashboard(ref time.Time, report *DashboardReport) {
	key := dashboardCacheKey(ref)
	if err := config.SetRedisObject(key, report, time.Minute); err != nil {
		return
	}
	_ = config.AddRedisSet(dashboardCacheSetKey, key)
}

// InvalidateDashboardCache drops every cached report. Called after any
// settings or weekly record write.
func InvalidateDashboardCache() {
	keys, err := config.GetRedisSetMembers(dashboardCacheSetKey)
	if err != nil || len(keys) == 0 {
		return
	}
	_ = config.RemoveRedisKey(append(keys, dashboardCacheSetKey)...)
}
