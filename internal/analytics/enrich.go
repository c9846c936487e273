package analytics

import (
	"github.com/qs3c/metrics_go_server/internal/model"
)

// Enrich 按 PlanID 关联方案，输出与输入一一对应
func Enrich(memberships []model.Membership, plans []model.Plan) []model.EnrichedMembership {
	byID := make(map[string]*model.Plan, len(plans))
	for i := range plans {
		p := plans[i]
		byID[p.ID] = &p
	}

	out := make([]model.EnrichedMembership, len(memberships))
	for i, m := range memberships {
		out[i] = model.EnrichedMembership{Membership: m}
		if m.PlanID == "" {
			continue
		}
		if p, ok := byID[m.PlanID]; ok {
			out[i].Plan = p
		}
	}
	return out
}

// ApplyPaymentSpend 平台未返回累计消费时，用已支付金额（扣除退款）补齐
func ApplyPaymentSpend(memberships []model.EnrichedMembership, payments []model.Payment) []model.EnrichedMembership {
	spend := make(map[string]float64)
	for i := range payments {
		p := &payments[i]
		if p.Status != model.PaymentPaid || p.MembershipID == "" {
			continue
		}
		spend[p.MembershipID] += p.Total - p.RefundedAmount
	}

	out := make([]model.EnrichedMembership, len(memberships))
	copy(out, memberships)
	for i := range out {
		if out[i].TotalSpend != 0 {
			continue
		}
		if s, ok := spend[out[i].ID]; ok {
			out[i].TotalSpend = s
		}
	}
	return out
}
