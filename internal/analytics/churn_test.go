package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qs3c/metrics_go_server/internal/model"
)

func TestChurnBetween(t *testing.T) {
	plan := monthlyPlan("p", 100)

	stays := membership("m1", model.MembershipActive, "u1", plan)
	churns := membership("m2", model.MembershipCanceled, "u2", plan)
	churns.CanceledAt = ptrTime(daysAgo(10))
	joins := membership("m3", model.MembershipActive, "u3", monthlyPlan("p2", 50))
	joins.CreatedAt = daysAgo(5)

	c := ChurnBetween([]model.EnrichedMembership{stays, churns, joins}, daysAgo(30), testNow)

	assert.Equal(t, 2, c.StartingCustomers)
	assert.Equal(t, 1, c.ChurnedCustomers)
	assert.InDelta(t, 50.0, c.CustomerChurnRate, 1e-9)
	assert.InDelta(t, 200.0, c.StartingMRR, 1e-9)
	assert.InDelta(t, 150.0, c.EndingMRR, 1e-9)
	assert.InDelta(t, 50.0, c.RevenueChurnRate, 1e-9)
	assert.InDelta(t, 75.0, c.NetRevenueRetention, 1e-9)
}

func TestCalculateChurn_NoStartingCustomers(t *testing.T) {
	c := CalculateChurn(nil, daysAgo(30), []model.EnrichedMembership{membership("m", model.MembershipActive, "u", monthlyPlan("p", 10))}, testNow)

	assert.Zero(t, c.CustomerChurnRate)
	assert.Zero(t, c.RevenueChurnRate)
	assert.InDelta(t, 100.0, c.NetRevenueRetention, 1e-9)
}
