package analytics

import (
	"time"

	"github.com/qs3c/metrics_go_server/internal/model"
)

// CalculateMRR 汇总 asOf 时刻有效会员的月度收入
func CalculateMRR(memberships []model.EnrichedMembership, asOf time.Time) model.MRR {
	var b model.MRRBreakdown
	for i := range memberships {
		em := &memberships[i]
		if em.Plan == nil || !IsActiveAsOf(&em.Membership, asOf) {
			continue
		}

		amount, bucket := PlanMonthlyRevenue(em.Plan)
		if amount == 0 {
			continue
		}

		switch bucket {
		case BucketMonthly:
			b.Monthly += amount
		case BucketAnnual:
			b.Annual += amount
		case BucketQuarterly:
			b.Quarterly += amount
		default:
			b.Other += amount
		}
	}
	return model.MRR{Total: b.Sum(), Breakdown: b}
}

// CalculateARR 必须使用与响应中相同的 MRR
func CalculateARR(mrr float64) float64 {
	return mrr * 12
}

// CalculateARPU 无有效用户时为 0
func CalculateARPU(mrr float64, activeUniqueSubscribers int) float64 {
	if activeUniqueSubscribers == 0 {
		return 0
	}
	return mrr / float64(activeUniqueSubscribers)
}
