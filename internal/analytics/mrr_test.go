package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qs3c/metrics_go_server/internal/model"
)

func TestCalculateMRR(t *testing.T) {
	monthly := monthlyPlan("monthly", 50)
	annual := &model.Plan{ID: "annual", RenewalPrice: 1200, BillingUnit: model.BillingUnitYear}
	quarterly := &model.Plan{ID: "quarterly", RenewalPrice: 90, BillingPeriodDays: 90}
	weekly := &model.Plan{ID: "weekly", RenewalPrice: 7, BillingPeriodDays: 7}
	oneTime := &model.Plan{ID: "once", PlanType: model.PlanTypeOneTime, RenewalPrice: 500}
	free := monthlyPlan("free", 0)

	ms := []model.EnrichedMembership{
		membership("m1", model.MembershipActive, "u1", monthly),
		membership("m2", model.MembershipActive, "u2", annual),
		membership("m3", model.MembershipCompleted, "u3", quarterly),
		membership("m4", model.MembershipActive, "u4", weekly),
		membership("m5", model.MembershipActive, "u5", oneTime),
		membership("m6", model.MembershipActive, "u6", free),
		membership("m7", model.MembershipCanceled, "u7", monthly),
		membership("m8", model.MembershipTrialing, "u8", monthly),
		membership("m9", model.MembershipActive, "u9", nil),
	}

	mrr := CalculateMRR(ms, testNow)

	assert.InDelta(t, 50.0, mrr.Breakdown.Monthly, 1e-9)
	assert.InDelta(t, 100.0, mrr.Breakdown.Annual, 1e-9)
	assert.InDelta(t, 30.0, mrr.Breakdown.Quarterly, 1e-9)
	assert.InDelta(t, 30.0, mrr.Breakdown.Other, 1e-9)
	assert.InDelta(t, mrr.Breakdown.Sum(), mrr.Total, 1e-9)
	assert.InDelta(t, 210.0, mrr.Total, 1e-9)
}

func TestCalculateMRR_TotalEqualsBreakdown(t *testing.T) {
	plans := []*model.Plan{
		monthlyPlan("a", 9.99),
		{ID: "b", RenewalPrice: 199, BillingPeriodDays: 365},
		{ID: "c", RenewalPrice: 3.5, BillingUnit: model.BillingUnitWeek},
		{ID: "d", RenewalPrice: 1, BillingUnit: model.BillingUnitDay},
	}
	var ms []model.EnrichedMembership
	for i := 0; i < 40; i++ {
		ms = append(ms, membership("m", model.MembershipActive, "u", plans[i%len(plans)]))
	}

	mrr := CalculateMRR(ms, testNow)
	assert.InDelta(t, mrr.Breakdown.Sum(), mrr.Total, 1e-9)
}

func TestCalculateMRR_Empty(t *testing.T) {
	mrr := CalculateMRR(nil, testNow)
	assert.Zero(t, mrr.Total)
	assert.Equal(t, model.MRRBreakdown{}, mrr.Breakdown)
}

func TestCalculateARR(t *testing.T) {
	assert.InDelta(t, 1200.0, CalculateARR(100), 1e-9)
	assert.Zero(t, CalculateARR(0))
}

func TestCalculateARPU(t *testing.T) {
	assert.InDelta(t, 25.0, CalculateARPU(100, 4), 1e-9)
	assert.Zero(t, CalculateARPU(100, 0))
	assert.Zero(t, CalculateARPU(0, 0))
	assert.Zero(t, CalculateARPU(0, 3))
}
