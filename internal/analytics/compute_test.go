package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qs3c/metrics_go_server/internal/model"
)

func TestCompute_NoMemberships(t *testing.T) {
	r := Compute(Input{AsOf: testNow})

	assert.Zero(t, r.MRR.Total)
	assert.Zero(t, r.ARR)
	assert.Zero(t, r.ARPU)
	assert.Equal(t, model.SubscriberMetrics{}, r.Subscribers)
	assert.Zero(t, r.ActiveUniqueSubscribers)

	s := r.Snapshot("biz_1", testNow)
	assert.Equal(t, "biz_1", s.CompanyID)
	assert.Equal(t, model.DayStart(testNow), s.Date)
	assert.Zero(t, s.MRRTotal)
	assert.Zero(t, s.SubscribersTotal)
}

func TestCompute_ConsistentARRAndARPU(t *testing.T) {
	ms := []model.EnrichedMembership{
		membership("m1", model.MembershipActive, "u1", monthlyPlan("a", 30)),
		membership("m2", model.MembershipActive, "u1", monthlyPlan("b", 20)),
		membership("m3", model.MembershipActive, "u2", &model.Plan{ID: "c", RenewalPrice: 1200, BillingUnit: model.BillingUnitYear}),
	}

	r := Compute(Input{Memberships: ms, PlanCount: 3, AsOf: testNow})

	assert.InDelta(t, 150.0, r.MRR.Total, 1e-9)
	assert.InDelta(t, r.MRR.Total*12, r.ARR, 1e-9)
	assert.Equal(t, 2, r.ActiveUniqueSubscribers)
	assert.InDelta(t, r.MRR.Total/2, r.ARPU, 1e-9)
	assert.Equal(t, 3, r.TotalMemberships)
	assert.Equal(t, 3, r.ActiveMemberships)
	assert.Equal(t, 3, r.PlanCount)
}

func TestSnapshotRoundTrip(t *testing.T) {
	ms := []model.EnrichedMembership{
		membership("m1", model.MembershipActive, "u1", monthlyPlan("a", 30)),
		membership("m2", model.MembershipPastDue, "u2", monthlyPlan("a", 30)),
	}
	payments := []model.Payment{{ID: "p", Status: model.PaymentPaid, Total: 30, BillingReason: "subscription_cycle"}}

	r := Compute(Input{Memberships: ms, Payments: payments, PlanCount: 1, AsOf: testNow})
	s := r.Snapshot("biz_1", testNow)
	back := FromSnapshot(s)

	assert.Equal(t, r.MRR, back.MRR)
	assert.Equal(t, r.Subscribers, back.Subscribers)
	assert.Equal(t, r.CashFlow, back.CashFlow)
	assert.Equal(t, r.Payments, back.Payments)
	assert.Equal(t, r.ActiveUniqueSubscribers, back.ActiveUniqueSubscribers)
	assert.Equal(t, 2, back.UniqueSubscribers)
}
