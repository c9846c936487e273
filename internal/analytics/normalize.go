package analytics

import (
	"github.com/qs3c/metrics_go_server/internal/model"
)

// MRR 分类
const (
	BucketMonthly   = "monthly"
	BucketAnnual    = "annual"
	BucketQuarterly = "quarterly"
	BucketOther     = "other"
)

const (
	weeksPerMonth    = 4.33
	daysPerMonth     = 30
	defaultPeriodDay = 30
)

// NormalizeToMonthly 按计费单位换算为月度金额。
// 未知单位按已是月度金额处理。
func NormalizeToMonthly(price float64, unit string) float64 {
	switch unit {
	case model.BillingUnitMonth:
		return price
	case model.BillingUnitYear:
		return price / 12
	case model.BillingUnitQuarter:
		return price / 3
	case model.BillingUnitWeek:
		return price * weeksPerMonth
	case model.BillingUnitDay:
		return price * daysPerMonth
	case model.BillingUnitLifetime:
		return 0
	default:
		return price
	}
}

// NormalizeDaysToMonthly 按计费天数换算为月度金额，天数缺失时按 30 天
func NormalizeDaysToMonthly(price float64, days int) float64 {
	if days <= 0 {
		days = defaultPeriodDay
	}
	return price / float64(days) * daysPerMonth
}

// BucketForDays 按计费天数归类
func BucketForDays(days int) string {
	switch days {
	case 30:
		return BucketMonthly
	case 365:
		return BucketAnnual
	case 90:
		return BucketQuarterly
	default:
		return BucketOther
	}
}

// BucketForUnit 按计费单位归类
func BucketForUnit(unit string) string {
	switch unit {
	case model.BillingUnitMonth:
		return BucketMonthly
	case model.BillingUnitYear:
		return BucketAnnual
	case model.BillingUnitQuarter:
		return BucketQuarterly
	default:
		return BucketOther
	}
}

// PlanMonthlyRevenue 计算方案的月度收入及所属分类。
// 一次性方案和零价格方案返回 0。
func PlanMonthlyRevenue(p *model.Plan) (float64, string) {
	if p == nil || p.IsOneTime() || p.RenewalPrice <= 0 {
		return 0, ""
	}

	switch {
	case p.BillingPeriodDays > 0:
		return NormalizeDaysToMonthly(p.RenewalPrice, p.BillingPeriodDays), BucketForDays(p.BillingPeriodDays)
	case p.BillingUnit != "":
		return NormalizeToMonthly(p.RenewalPrice, p.BillingUnit), BucketForUnit(p.BillingUnit)
	default:
		return NormalizeDaysToMonthly(p.RenewalPrice, defaultPeriodDay), BucketMonthly
	}
}
