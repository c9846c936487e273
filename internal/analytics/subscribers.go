package analytics

import (
	"time"

	"github.com/qs3c/metrics_go_server/internal/model"
)

// IsActiveAsOf 判断会员在 t 时刻是否有效
func IsActiveAsOf(m *model.Membership, t time.Time) bool {
	if m.Status != model.MembershipActive && m.Status != model.MembershipCompleted {
		return false
	}
	if m.CanceledAt != nil && !m.CanceledAt.After(t) {
		return false
	}
	if m.ExpiresAt != nil && !m.ExpiresAt.After(t) {
		return false
	}
	return true
}

// CalculateSubscriberMetrics 每条会员只计入一个分类
func CalculateSubscriberMetrics(memberships []model.EnrichedMembership, asOf time.Time) model.SubscriberMetrics {
	var s model.SubscriberMetrics
	for i := range memberships {
		m := &memberships[i].Membership
		switch {
		case IsActiveAsOf(m, asOf):
			s.Active++
		case m.Status == model.MembershipCanceled || (m.CanceledAt != nil && !m.CanceledAt.After(asOf)):
			s.Cancelled++
		case m.Status == model.MembershipTrialing:
			s.Trialing++
		case m.Status == model.MembershipPastDue:
			s.PastDue++
		default:
			// 已过期或已完成但失效
			s.Cancelled++
		}
	}
	s.Total = s.Active + s.Cancelled + s.Trialing + s.PastDue
	return s
}

// ActiveUniqueSubscribers 有效会员按用户去重后的数量
func ActiveUniqueSubscribers(memberships []model.EnrichedMembership, asOf time.Time) int {
	seen := make(map[string]struct{})
	for i := range memberships {
		m := &memberships[i].Membership
		if m.MemberID == "" || !IsActiveAsOf(m, asOf) {
			continue
		}
		seen[m.MemberID] = struct{}{}
	}
	return len(seen)
}

// UniqueSubscribers 全部会员按用户去重后的数量，不看状态
func UniqueSubscribers(memberships []model.EnrichedMembership) int {
	seen := make(map[string]struct{})
	for i := range memberships {
		if id := memberships[i].MemberID; id != "" {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

// ActiveMemberships 有效会员条数（不去重）
func ActiveMemberships(memberships []model.EnrichedMembership, asOf time.Time) int {
	n := 0
	for i := range memberships {
		if IsActiveAsOf(&memberships[i].Membership, asOf) {
			n++
		}
	}
	return n
}

func activeMemberSet(memberships []model.EnrichedMembership, asOf time.Time) map[string]float64 {
	set := make(map[string]float64)
	for i := range memberships {
		em := &memberships[i]
		if em.MemberID == "" || !IsActiveAsOf(&em.Membership, asOf) {
			continue
		}
		amount, _ := PlanMonthlyRevenue(em.Plan)
		set[em.MemberID] += amount
	}
	return set
}
