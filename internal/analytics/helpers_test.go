package analytics

import (
	"time"

	"github.com/qs3c/metrics_go_server/internal/model"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time {
	return &t
}

func daysAgo(n int) time.Time {
	return testNow.AddDate(0, 0, -n)
}

func monthlyPlan(id string, price float64) *model.Plan {
	return &model.Plan{ID: id, PlanType: model.PlanTypeRenewal, RenewalPrice: price, BillingPeriodDays: 30}
}

func membership(id, status, memberID string, plan *model.Plan) model.EnrichedMembership {
	em := model.EnrichedMembership{
		Membership: model.Membership{
			ID:        id,
			Status:    status,
			CreatedAt: daysAgo(200),
			MemberID:  memberID,
		},
		Plan: plan,
	}
	if plan != nil {
		em.PlanID = plan.ID
	}
	return em
}
