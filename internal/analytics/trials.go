package analytics

import (
	"time"

	"github.com/qs3c/metrics_go_server/internal/model"
)

func isTrial(em *model.EnrichedMembership) bool {
	if em.Status == model.MembershipTrialing {
		return true
	}
	return em.Plan != nil && em.Plan.TrialPeriodDays > 0
}

// trialLive 试用中且在 asOf 时未取消、未过期
func trialLive(em *model.EnrichedMembership, asOf time.Time) bool {
	if em.Status != model.MembershipTrialing {
		return false
	}
	if em.CanceledAt != nil && !em.CanceledAt.After(asOf) {
		return false
	}
	return em.ExpiresAt == nil || em.ExpiresAt.After(asOf)
}

// CalculateTrialMetrics 试用总数、进行中、已转化及转化率（百分比）
func CalculateTrialMetrics(memberships []model.EnrichedMembership, asOf time.Time) model.TrialMetrics {
	var t model.TrialMetrics
	for i := range memberships {
		em := &memberships[i]
		if !isTrial(em) {
			continue
		}
		t.Total++

		if trialLive(em, asOf) {
			t.Active++
		}
		if IsActiveAsOf(&em.Membership, asOf) {
			t.Converted++
		}
	}

	if t.Total > 0 {
		t.ConversionRate = float64(t.Converted) / float64(t.Total) * 100
	}
	return t
}
