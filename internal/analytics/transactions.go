package analytics

import (
	"strings"
	"time"

	"github.com/qs3c/metrics_go_server/internal/model"
)

// 手续费估算：2.9% + 0.30 每笔
const (
	processingFeeRate  = 0.029
	processingFeeFixed = 0.30
	newCustomerWindow  = 30 * 24 * time.Hour
)

func isRecurringPayment(p *model.Payment) bool {
	return strings.HasPrefix(p.BillingReason, "subscription") || p.BillingReason == "renewal"
}

func isFailedPayment(p *model.Payment) bool {
	return p.Status == model.PaymentFailed || p.Substatus == model.SubstatusFailed
}

func isRefundedPayment(p *model.Payment) bool {
	return p.RefundedAmount > 0 || p.Substatus == model.SubstatusRefunded
}

// CalculateCashFlow 现金流，只统计已支付的交易
func CalculateCashFlow(payments []model.Payment) model.CashFlowMetrics {
	var cf model.CashFlowMetrics
	for i := range payments {
		p := &payments[i]
		if p.Status != model.PaymentPaid {
			continue
		}
		cf.Gross += p.Total
		cf.Refunds += p.RefundedAmount
		if isRecurringPayment(p) {
			cf.Recurring += p.Total
		}
	}
	cf.Net = cf.Gross - cf.Refunds
	cf.NonRecurring = cf.Gross - cf.Recurring
	return cf
}

// CalculatePaymentMetrics 成功率为百分比，无交易时为 0
func CalculatePaymentMetrics(payments []model.Payment) model.PaymentMetrics {
	var pm model.PaymentMetrics
	pm.Total = len(payments)
	for i := range payments {
		p := &payments[i]
		switch {
		case isFailedPayment(p):
			pm.Failed++
			pm.FailedAmount += p.Total
		case p.Status == model.PaymentPaid:
			pm.Successful++
		default:
			pm.Pending++
		}
	}
	if pm.Total > 0 {
		pm.SuccessRate = float64(pm.Successful) / float64(pm.Total) * 100
	}
	return pm
}

// CalculateRefundMetrics 退款率 = 退款笔数 / 总笔数 × 100（按笔数，不按金额）
func CalculateRefundMetrics(payments []model.Payment) model.RefundMetrics {
	var rm model.RefundMetrics
	for i := range payments {
		p := &payments[i]
		if !isRefundedPayment(p) {
			continue
		}
		rm.Count++
		rm.Amount += p.RefundedAmount
	}
	if len(payments) > 0 {
		rm.Rate = float64(rm.Count) / float64(len(payments)) * 100
	}
	return rm
}

// CalculateRevenue 收入及净收入估算
func CalculateRevenue(payments []model.Payment, memberships []model.EnrichedMembership, mrr float64, asOf time.Time) model.RevenueMetrics {
	var r model.RevenueMetrics
	var refunds float64
	for i := range payments {
		p := &payments[i]
		if p.Status != model.PaymentPaid {
			continue
		}
		r.Total += p.Total
		refunds += p.RefundedAmount
	}

	r.Recurring = mrr
	r.NonRecurring = r.Total - r.Recurring
	r.ProcessingFees = r.Total*processingFeeRate + float64(len(payments))*processingFeeFixed
	r.Net = r.Total - refunds - r.ProcessingFees
	if r.Total > 0 {
		r.NetMargin = r.Net / r.Total * 100
	}

	since := asOf.Add(-newCustomerWindow)
	for i := range memberships {
		m := &memberships[i].Membership
		if m.CreatedAt.After(since) && !m.CreatedAt.After(asOf) && m.Status == model.MembershipActive {
			r.NewCustomers++
		}
	}
	return r
}
