package service

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/qs3c/metrics_go_server/internal/analytics"
	"github.com/qs3c/metrics_go_server/internal/model"
	"github.com/qs3c/metrics_go_server/internal/model/dto"
	"github.com/qs3c/metrics_go_server/internal/pkg/metrics"
)

// BillingSource 账单平台，所有列表必须完整翻页
type BillingSource interface {
	ListMemberships(ctx context.Context, companyID string) ([]model.Membership, error)
	ListPlans(ctx context.Context, companyID string) ([]model.Plan, error)
	ListPayments(ctx context.Context, companyID string, since *time.Time) ([]model.Payment, error)
	GetCompany(ctx context.Context, companyID string) (*model.CompanyInfo, error)
}

// billingData 一次完整拉取的结果
type billingData struct {
	Company     *model.CompanyInfo
	Memberships []model.EnrichedMembership
	Plans       []model.Plan
	Payments    []model.Payment
	FetchedAt   time.Time
}

type billingLoader struct {
	source       BillingSource
	metrics      *metrics.Collector
	lookbackDays int
}

// load 并发拉取会员、方案、支付，任何一项失败都放弃整次结果
func (l *billingLoader) load(ctx context.Context, companyID string, now time.Time, withCompany bool) (*billingData, error) {
	var (
		memberships []model.Membership
		plans       []model.Plan
		payments    []model.Payment
		company     *model.CompanyInfo
	)

	var since *time.Time
	if l.lookbackDays > 0 {
		t := now.AddDate(0, 0, -l.lookbackDays)
		since = &t
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		memberships, err = l.source.ListMemberships(gctx, companyID)
		return l.wrap("memberships", err)
	})
	g.Go(func() error {
		var err error
		plans, err = l.source.ListPlans(gctx, companyID)
		return l.wrap("plans", err)
	})
	g.Go(func() error {
		var err error
		payments, err = l.source.ListPayments(gctx, companyID, since)
		return l.wrap("payments", err)
	})
	if withCompany {
		g.Go(func() error {
			var err error
			company, err = l.source.GetCompany(gctx, companyID)
			return l.wrap("company", err)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	enriched := analytics.Enrich(memberships, plans)
	enriched = analytics.ApplyPaymentSpend(enriched, payments)

	return &billingData{
		Company:     company,
		Memberships: enriched,
		Plans:       plans,
		Payments:    payments,
		FetchedAt:   now,
	}, nil
}

func (l *billingLoader) wrap(resource string, err error) error {
	l.metrics.RecordUpstream(resource, err)
	if err != nil {
		return &UpstreamError{Resource: resource, Err: err}
	}
	return nil
}

// compute 计算 asOf 时刻的指标，asOf 早于拉取时间时先反推当时状态
func (d *billingData) compute(asOf time.Time) analytics.Result {
	memberships, payments := d.Memberships, d.Payments
	if asOf.Before(d.FetchedAt) {
		memberships, payments = analytics.StateAt(d.Memberships, d.Payments, asOf)
	}
	return analytics.Compute(analytics.Input{
		Memberships: memberships,
		Payments:    payments,
		PlanCount:   len(d.Plans),
		AsOf:        asOf,
	})
}

func (d *billingData) rawData() *model.SnapshotRawData {
	return &model.SnapshotRawData{
		Company:     d.Company,
		Memberships: d.Memberships,
		Plans:       d.Plans,
		Payments:    d.Payments,
	}
}

// planSummaries 去重后按名称排序，没有产品名的方案不展示
func planSummaries(plans []model.Plan) []dto.PlanSummary {
	seen := make(map[string]bool, len(plans))
	out := make([]dto.PlanSummary, 0, len(plans))
	for _, p := range plans {
		if p.ProductTitle == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, dto.PlanSummary{ID: p.ID, Name: p.ProductTitle})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
