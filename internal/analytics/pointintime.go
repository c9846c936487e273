package analytics

import (
	"time"

	"github.com/qs3c/metrics_go_server/internal/model"
)

// 回填快照取每天 05:00 UTC，与每日快照任务的执行时间一致
const snapshotHour = 5

// StateAt 从当前数据反推 t 时刻的会员和支付。
//
// 只保留 t 时已创建且尚未取消、未过期的会员。上游只保留最近一次取消时间，
// 因此"取消后又恢复"在 t 之前发生的会员与从未取消无法区分，这是已知的近似。
// 当前状态为 canceled/expired 但取消或过期发生在 t 之后的会员，在 t 时视为 active。
func StateAt(memberships []model.EnrichedMembership, payments []model.Payment, t time.Time) ([]model.EnrichedMembership, []model.Payment) {
	ms := make([]model.EnrichedMembership, 0, len(memberships))
	for _, em := range memberships {
		if em.CreatedAt.After(t) {
			continue
		}
		if em.CanceledAt != nil && !em.CanceledAt.After(t) {
			continue
		}
		if em.ExpiresAt != nil && !em.ExpiresAt.After(t) {
			continue
		}
		ms = append(ms, projectStatus(em, t))
	}

	ps := make([]model.Payment, 0, len(payments))
	for i := range payments {
		if !payments[i].EffectiveAt().After(t) {
			ps = append(ps, payments[i])
		}
	}
	return ms, ps
}

func projectStatus(em model.EnrichedMembership, t time.Time) model.EnrichedMembership {
	if em.Status != model.MembershipCanceled && em.Status != model.MembershipExpired {
		return em
	}
	endedLater := (em.CanceledAt != nil && em.CanceledAt.After(t)) || (em.ExpiresAt != nil && em.ExpiresAt.After(t))
	if endedLater {
		em.Status = model.MembershipActive
	}
	return em
}

// SnapshotTime 某天的快照时间点，不晚于 now
func SnapshotTime(day, now time.Time) time.Time {
	t := model.DayStart(day).Add(snapshotHour * time.Hour)
	if t.After(now) {
		return now
	}
	return t
}

// BackfillDates 从 days 天前到今天（含）的快照时间点，升序
func BackfillDates(now time.Time, days int) []time.Time {
	out := make([]time.Time, 0, days+1)
	today := model.DayStart(now)
	for daysAgo := days; daysAgo >= 0; daysAgo-- {
		out = append(out, SnapshotTime(today.AddDate(0, 0, -daysAgo), now))
	}
	return out
}
