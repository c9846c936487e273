package analytics

import (
	"time"

	"github.com/qs3c/metrics_go_server/internal/model"
)

// Input 一次计算所需的数据
type Input struct {
	Memberships []model.EnrichedMembership
	Payments    []model.Payment
	PlanCount   int
	AsOf        time.Time
}

// Result 一次计算的全部指标
type Result struct {
	AsOf                    time.Time               `json:"as_of"`
	MRR                     model.MRR               `json:"mrr"`
	ARR                     float64                 `json:"arr"`
	ARPU                    float64                 `json:"arpu"`
	Subscribers             model.SubscriberMetrics `json:"subscribers"`
	ActiveUniqueSubscribers int                     `json:"active_unique_subscribers"`
	UniqueSubscribers       int                     `json:"unique_subscribers"`
	Trials                  model.TrialMetrics      `json:"trials"`
	CLV                     model.CLVMetrics        `json:"clv"`
	CashFlow                model.CashFlowMetrics   `json:"cash_flow"`
	Payments                model.PaymentMetrics    `json:"payments"`
	Refunds                 model.RefundMetrics     `json:"refunds"`
	Revenue                 model.RevenueMetrics    `json:"revenue"`
	TotalMemberships        int                     `json:"total_memberships"`
	ActiveMemberships       int                     `json:"active_memberships"`
	PlanCount               int                     `json:"plan_count"`
}

// Compute 计算全部指标，ARR 和 ARPU 基于同一个 MRR
func Compute(in Input) Result {
	mrr := CalculateMRR(in.Memberships, in.AsOf)
	unique := ActiveUniqueSubscribers(in.Memberships, in.AsOf)

	return Result{
		AsOf:                    in.AsOf,
		MRR:                     mrr,
		ARR:                     CalculateARR(mrr.Total),
		ARPU:                    CalculateARPU(mrr.Total, unique),
		Subscribers:             CalculateSubscriberMetrics(in.Memberships, in.AsOf),
		ActiveUniqueSubscribers: unique,
		UniqueSubscribers:       UniqueSubscribers(in.Memberships),
		Trials:                  CalculateTrialMetrics(in.Memberships, in.AsOf),
		CLV:                     CalculateCLV(in.Memberships),
		CashFlow:                CalculateCashFlow(in.Payments),
		Payments:                CalculatePaymentMetrics(in.Payments),
		Refunds:                 CalculateRefundMetrics(in.Payments),
		Revenue:                 CalculateRevenue(in.Payments, in.Memberships, mrr.Total, in.AsOf),
		TotalMemberships:        len(in.Memberships),
		ActiveMemberships:       ActiveMemberships(in.Memberships, in.AsOf),
		PlanCount:               in.PlanCount,
	}
}

// Snapshot 转为按天存储的快照，日期取 AsOf 所在的 UTC 日
func (r *Result) Snapshot(companyID string, capturedAt time.Time) *model.MetricsSnapshot {
	return &model.MetricsSnapshot{
		CompanyID:               companyID,
		Date:                    model.DayStart(r.AsOf),
		CapturedAt:              capturedAt,
		MRRTotal:                r.MRR.Total,
		MRRMonthly:              r.MRR.Breakdown.Monthly,
		MRRAnnual:               r.MRR.Breakdown.Annual,
		MRRQuarterly:            r.MRR.Breakdown.Quarterly,
		MRROther:                r.MRR.Breakdown.Other,
		ARR:                     r.ARR,
		ARPU:                    r.ARPU,
		SubscribersActive:       r.Subscribers.Active,
		SubscribersCancelled:    r.Subscribers.Cancelled,
		SubscribersPastDue:      r.Subscribers.PastDue,
		SubscribersTrialing:     r.Subscribers.Trialing,
		SubscribersTotal:        r.Subscribers.Total,
		ActiveUniqueSubscribers: r.ActiveUniqueSubscribers,
		TotalMemberships:        r.TotalMemberships,
		ActiveMemberships:       r.ActiveMemberships,
		PlanCount:               r.PlanCount,
		Details: model.SnapshotDetails{
			Trials:   r.Trials,
			CLV:      r.CLV,
			CashFlow: r.CashFlow,
			Payments: r.Payments,
			Refunds:  r.Refunds,
			Revenue:  r.Revenue,

			UniqueSubscribers: r.UniqueSubscribers,
		},
	}
}

// FromSnapshot 从快照还原指标
func FromSnapshot(s *model.MetricsSnapshot) Result {
	return Result{
		AsOf:                    s.CapturedAt,
		MRR:                     s.MRR(),
		ARR:                     s.ARR,
		ARPU:                    s.ARPU,
		Subscribers:             s.Subscribers(),
		ActiveUniqueSubscribers: s.ActiveUniqueSubscribers,
		UniqueSubscribers:       s.Details.UniqueSubscribers,
		Trials:                  s.Details.Trials,
		CLV:                     s.Details.CLV,
		CashFlow:                s.Details.CashFlow,
		Payments:                s.Details.Payments,
		Refunds:                 s.Details.Refunds,
		Revenue:                 s.Details.Revenue,
		TotalMemberships:        s.TotalMemberships,
		ActiveMemberships:       s.ActiveMemberships,
		PlanCount:               s.PlanCount,
	}
}
