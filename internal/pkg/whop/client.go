package whop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/model"
)

// APIError 非 2xx 响应
type APIError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whop api %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

// Client 计费平台 REST 客户端
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	pageSize       int
	amountsInCents bool
	limiter        *rate.Limiter
}

// NewClient 创建客户端
func NewClient(cfg *config.WhopConfig) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		pageSize:       pageSize,
		amountsInCents: cfg.AmountsInCents,
		limiter:        rate.NewLimiter(limit, 1),
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whop api %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("whop api %s: failed to decode response: %w", path, err)
	}
	return nil
}

// listAll 按游标翻页直到取完，任何一页失败都整体失败
func listAll[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	var all []T
	seen := make(map[string]bool)
	cursor := ""

	for {
		q := url.Values{}
		for k, v := range params {
			q[k] = v
		}
		q.Set("first", strconv.Itoa(c.pageSize))
		if cursor != "" {
			q.Set("after", cursor)
		}

		var page listResponse[T]
		if err := c.get(ctx, path, q, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Data...)

		if !page.PageInfo.HasNextPage || page.PageInfo.EndCursor == "" || len(page.Data) == 0 {
			return all, nil
		}
		if seen[page.PageInfo.EndCursor] {
			return nil, fmt.Errorf("whop api %s: cursor %q repeated", path, page.PageInfo.EndCursor)
		}
		seen[page.PageInfo.EndCursor] = true
		cursor = page.PageInfo.EndCursor
	}
}

func (c *Client) money(d decimal.NullDecimal) float64 {
	if !d.Valid {
		return 0
	}
	v := d.Decimal
	if c.amountsInCents {
		v = v.Shift(-2)
	}
	return v.InexactFloat64()
}

// ListMemberships 获取公司全部会员
func (c *Client) ListMemberships(ctx context.Context, companyID string) ([]model.Membership, error) {
	raws, err := listAll[rawMembership](ctx, c, "/memberships", url.Values{"company_id": {companyID}})
	if err != nil {
		return nil, err
	}

	out := make([]model.Membership, 0, len(raws))
	for _, r := range raws {
		m := model.Membership{
			ID:         r.ID,
			Status:     r.Status,
			CreatedAt:  r.CreatedAt.Time,
			CanceledAt: r.CanceledAt.ptr(),
			ExpiresAt:  r.RenewalPeriodEnd.ptr(),
			TotalSpend: c.money(r.TotalSpend),
			PlanID:     refID(r.Plan),
			MemberID:   refID(r.User),
		}
		if m.ExpiresAt == nil {
			m.ExpiresAt = r.ExpiresAt.ptr()
		}
		if m.MemberID == "" {
			m.MemberID = refID(r.Member)
		}
		if r.CancellationReason != nil {
			m.CancelReason = *r.CancellationReason
		}
		out = append(out, m)
	}
	return out, nil
}

// ListPlans 获取公司全部方案
func (c *Client) ListPlans(ctx context.Context, companyID string) ([]model.Plan, error) {
	raws, err := listAll[rawPlan](ctx, c, "/plans", url.Values{"company_id": {companyID}})
	if err != nil {
		return nil, err
	}

	out := make([]model.Plan, 0, len(raws))
	for _, r := range raws {
		p := model.Plan{
			ID:           r.ID,
			Title:        r.Title,
			PlanType:     r.PlanType,
			RenewalPrice: c.money(r.RenewalPrice),
			InitialPrice: c.money(r.InitialPrice),
			BillingUnit:  r.BillingUnit,
			Currency:     r.Currency,
		}
		if r.BillingPeriod != nil {
			p.BillingPeriodDays = *r.BillingPeriod
		}
		if r.TrialPeriodDays != nil {
			p.TrialPeriodDays = *r.TrialPeriodDays
		}
		if r.Product != nil {
			p.ProductTitle = r.Product.Title
		}
		out = append(out, p)
	}
	return out, nil
}

// ListPayments 获取支付记录，since 不为空时只取之后创建的
func (c *Client) ListPayments(ctx context.Context, companyID string, since *time.Time) ([]model.Payment, error) {
	params := url.Values{"company_id": {companyID}}
	if since != nil {
		params.Set("created_after", since.UTC().Format(time.RFC3339))
	}

	raws, err := listAll[rawPayment](ctx, c, "/payments", params)
	if err != nil {
		return nil, err
	}

	out := make([]model.Payment, 0, len(raws))
	for _, r := range raws {
		if since != nil && r.CreatedAt.Valid && r.CreatedAt.Before(*since) {
			continue
		}
		p := model.Payment{
			ID:              r.ID,
			Status:          model.PaymentPending,
			Substatus:       r.Substatus,
			CreatedAt:       r.CreatedAt.Time,
			PaidAt:          r.PaidAt.ptr(),
			RefundedAt:      r.RefundedAt.ptr(),
			Total:           c.money(r.Total),
			Subtotal:        c.money(r.Subtotal),
			RefundedAmount:  c.money(r.RefundedAmount),
			AmountAfterFees: c.money(r.AmountAfterFees),
			PlanID:          refID(r.Plan),
			MembershipID:    refID(r.Membership),
			UserID:          refID(r.User),
		}
		if r.Status != nil && *r.Status != "" {
			p.Status = *r.Status
		}
		if p.Substatus == "" {
			p.Substatus = model.SubstatusSucceeded
		}
		if r.BillingReason != nil {
			p.BillingReason = *r.BillingReason
		}
		out = append(out, p)
	}
	return out, nil
}

// GetCompany 获取公司信息
func (c *Client) GetCompany(ctx context.Context, companyID string) (*model.CompanyInfo, error) {
	var r rawCompany
	if err := c.get(ctx, "/companies/"+url.PathEscape(companyID), nil, &r); err != nil {
		return nil, err
	}
	return &model.CompanyInfo{
		ID:          r.ID,
		Title:       r.Title,
		Route:       r.Route,
		Logo:        string(r.Logo),
		BannerImage: string(r.BannerImage),
	}, nil
}
