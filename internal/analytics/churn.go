package analytics

import (
	"time"

	"github.com/qs3c/metrics_go_server/internal/model"
)

// CalculateChurn 比较两个时间点的有效用户。
// previous/current 分别是 previousAt/currentAt 时刻的会员列表。
func CalculateChurn(previous []model.EnrichedMembership, previousAt time.Time, current []model.EnrichedMembership, currentAt time.Time) model.ChurnMetrics {
	prevSet := activeMemberSet(previous, previousAt)
	curSet := activeMemberSet(current, currentAt)

	var c model.ChurnMetrics
	c.StartingCustomers = len(prevSet)

	var churnedMRR float64
	for id, amount := range prevSet {
		c.StartingMRR += amount
		if _, ok := curSet[id]; !ok {
			c.ChurnedCustomers++
			churnedMRR += amount
		}
	}
	for _, amount := range curSet {
		c.EndingMRR += amount
	}

	if c.StartingCustomers > 0 {
		c.CustomerChurnRate = float64(c.ChurnedCustomers) / float64(c.StartingCustomers) * 100
	}
	if c.StartingMRR > 0 {
		c.RevenueChurnRate = churnedMRR / c.StartingMRR * 100
		c.NetRevenueRetention = c.EndingMRR / c.StartingMRR * 100
	} else {
		c.NetRevenueRetention = 100
	}
	return c
}

// ChurnBetween 用同一份当前数据反推 from 和 to 两个时间点后计算流失
func ChurnBetween(memberships []model.EnrichedMembership, from, to time.Time) model.ChurnMetrics {
	prev, _ := StateAt(memberships, nil, from)
	cur, _ := StateAt(memberships, nil, to)
	return CalculateChurn(prev, from, cur, to)
}
