package whop

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type pageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor"`
}

type listResponse[T any] struct {
	Data     []T      `json:"data"`
	PageInfo pageInfo `json:"page_info"`
}

type ref struct {
	ID string `json:"id"`
}

func refID(r *ref) string {
	if r == nil {
		return ""
	}
	return r.ID
}

// timestamp 兼容 ISO 8601 字符串和 Unix 秒
type timestamp struct {
	time.Time
	Valid bool
}

func (t *timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = timestamp{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*t = timestamp{}
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		*t = timestamp{Time: parsed.UTC(), Valid: true}
		return nil
	}

	secs, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	whole := int64(secs)
	nanos := int64((secs - float64(whole)) * 1e9)
	*t = timestamp{Time: time.Unix(whole, nanos).UTC(), Valid: true}
	return nil
}

func (t timestamp) ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// image 兼容字符串和 {"url": "..."} 两种格式
type image string

func (i *image) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*i = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*i = image(s)
		return nil
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*i = image(obj.URL)
	return nil
}

type rawMembership struct {
	ID                 string              `json:"id"`
	Status             string              `json:"status"`
	CreatedAt          timestamp           `json:"created_at"`
	CanceledAt         timestamp           `json:"canceled_at"`
	RenewalPeriodEnd   timestamp           `json:"renewal_period_end"`
	ExpiresAt          timestamp           `json:"expires_at"`
	CancellationReason *string             `json:"cancellation_reason"`
	TotalSpend         decimal.NullDecimal `json:"total_spend"`
	Plan               *ref                `json:"plan"`
	User               *ref                `json:"user"`
	Member             *ref                `json:"member"`
}

type rawPlan struct {
	ID              string              `json:"id"`
	Title           string              `json:"title"`
	PlanType        string              `json:"plan_type"`
	RenewalPrice    decimal.NullDecimal `json:"renewal_price"`
	InitialPrice    decimal.NullDecimal `json:"initial_price"`
	BillingPeriod   *int                `json:"billing_period"`
	BillingUnit     string              `json:"billing_unit"`
	TrialPeriodDays *int                `json:"trial_period_days"`
	Currency        string              `json:"currency"`
	Product         *struct {
		Title string `json:"title"`
	} `json:"product"`
}

type rawPayment struct {
	ID              string              `json:"id"`
	Status          *string             `json:"status"`
	Substatus       string              `json:"substatus"`
	CreatedAt       timestamp           `json:"created_at"`
	PaidAt          timestamp           `json:"paid_at"`
	RefundedAt      timestamp           `json:"refunded_at"`
	Total           decimal.NullDecimal `json:"total"`
	Subtotal        decimal.NullDecimal `json:"subtotal"`
	RefundedAmount  decimal.NullDecimal `json:"refunded_amount"`
	AmountAfterFees decimal.NullDecimal `json:"amount_after_fees"`
	BillingReason   *string             `json:"billing_reason"`
	Plan            *ref                `json:"plan"`
	Membership      *ref                `json:"membership"`
	User            *ref                `json:"user"`
}

type rawCompany struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Route       string `json:"route"`
	Logo        image  `json:"logo"`
	BannerImage image  `json:"banner_image"`
}
