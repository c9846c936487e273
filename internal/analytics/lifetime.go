package analytics

import (
	"sort"

	"github.com/qs3c/metrics_go_server/internal/model"
)

// CalculateCLV 按用户汇总累计消费后取均值和中位数
func CalculateCLV(memberships []model.EnrichedMembership) model.CLVMetrics {
	spend := make(map[string]float64)
	for i := range memberships {
		m := &memberships[i].Membership
		if m.MemberID == "" {
			continue
		}
		spend[m.MemberID] += m.TotalSpend
	}

	var clv model.CLVMetrics
	if len(spend) == 0 {
		return clv
	}

	values := make([]float64, 0, len(spend))
	for _, v := range spend {
		values = append(values, v)
		clv.Total += v
	}
	sort.Float64s(values)

	n := len(values)
	clv.TotalCustomers = n
	clv.Average = clv.Total / float64(n)
	if n%2 == 1 {
		clv.Median = values[n/2]
	} else {
		clv.Median = (values[n/2-1] + values[n/2]) / 2
	}
	return clv
}
