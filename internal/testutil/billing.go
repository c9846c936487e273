package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/qs3c/metrics_go_server/internal/model"
)

// FakeBilling 内存版账单平台，记录每类资源的调用次数
type FakeBilling struct {
	mu sync.Mutex

	Memberships []model.Membership
	Plans       []model.Plan
	Payments    []model.Payment
	Company     *model.CompanyInfo

	// Errors 按资源注入错误：memberships / plans / payments / company
	Errors map[string]error
	// FailCompanies 对指定公司的所有请求返回错误
	FailCompanies map[string]error
	Delay         time.Duration

	calls map[string]int
}

func NewFakeBilling() *FakeBilling {
	return &FakeBilling{
		Errors:        map[string]error{},
		FailCompanies: map[string]error{},
		calls:         map[string]int{},
	}
}

// Calls 某类资源被调用的次数
func (f *FakeBilling) Calls(resource string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[resource]
}

func (f *FakeBilling) record(ctx context.Context, resource, companyID string) error {
	f.mu.Lock()
	f.calls[resource]++
	delay := f.Delay
	err := f.Errors[resource]
	if companyErr, ok := f.FailCompanies[companyID]; ok {
		err = companyErr
	}
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *FakeBilling) ListMemberships(ctx context.Context, companyID string) ([]model.Membership, error) {
	if err := f.record(ctx, "memberships", companyID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Membership(nil), f.Memberships...), nil
}

func (f *FakeBilling) ListPlans(ctx context.Context, companyID string) ([]model.Plan, error) {
	if err := f.record(ctx, "plans", companyID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Plan(nil), f.Plans...), nil
}

func (f *FakeBilling) ListPayments(ctx context.Context, companyID string, since *time.Time) ([]model.Payment, error) {
	if err := f.record(ctx, "payments", companyID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.Payment, 0, len(f.Payments))
	for _, p := range f.Payments {
		if since != nil && p.CreatedAt.Before(*since) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *FakeBilling) GetCompany(ctx context.Context, companyID string) (*model.CompanyInfo, error) {
	if err := f.record(ctx, "company", companyID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Company != nil {
		c := *f.Company
		c.ID = companyID
		return &c, nil
	}
	return &model.CompanyInfo{ID: companyID, Title: companyID}, nil
}
