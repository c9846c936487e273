package model

import (
	"time"
)

// 会员状态
const (
	MembershipTrialing  = "trialing"
	MembershipActive    = "active"
	MembershipPastDue   = "past_due"
	MembershipCanceled  = "canceled"
	MembershipCompleted = "completed"
	MembershipExpired   = "expired"
)

// 计费单位
const (
	BillingUnitDay      = "day"
	BillingUnitWeek     = "week"
	BillingUnitMonth    = "month"
	BillingUnitQuarter  = "quarter"
	BillingUnitYear     = "year"
	BillingUnitLifetime = "lifetime"
)

const (
	PlanTypeRenewal = "renewal"
	PlanTypeOneTime = "one_time"
)

// 支付状态
const (
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
	PaymentPending = "pending"

	SubstatusSucceeded = "succeeded"
	SubstatusRefunded  = "refunded"
	SubstatusFailed    = "failed"
)

// Membership 一条订阅实例，只读
type Membership struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	CanceledAt   *time.Time `json:"canceled_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`
	TotalSpend   float64    `json:"total_spend"`
	PlanID       string     `json:"plan_id,omitempty"`
	MemberID     string     `json:"member_id,omitempty"`
}

// Plan 定价方案，金额统一为元（非分）
type Plan struct {
	ID                string  `json:"id"`
	Title             string  `json:"title,omitempty"`
	ProductTitle      string  `json:"product_title,omitempty"`
	PlanType          string  `json:"plan_type"`
	RenewalPrice      float64 `json:"renewal_price"`
	InitialPrice      float64 `json:"initial_price"`
	BillingPeriodDays int     `json:"billing_period_days,omitempty"`
	BillingUnit       string  `json:"billing_unit,omitempty"`
	TrialPeriodDays   int     `json:"trial_period_days,omitempty"`
	Currency          string  `json:"currency,omitempty"`
}

func (p *Plan) IsOneTime() bool {
	return p.PlanType == PlanTypeOneTime
}

// Payment 一笔交易
type Payment struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	Substatus       string     `json:"substatus,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	RefundedAt      *time.Time `json:"refunded_at,omitempty"`
	Total           float64    `json:"total"`
	Subtotal        float64    `json:"subtotal"`
	RefundedAmount  float64    `json:"refunded_amount"`
	AmountAfterFees float64    `json:"amount_after_fees,omitempty"`
	BillingReason   string     `json:"billing_reason,omitempty"`
	PlanID          string     `json:"plan_id,omitempty"`
	MembershipID    string     `json:"membership_id,omitempty"`
	UserID          string     `json:"user_id,omitempty"`
}

// EffectiveAt 支付生效时间，未支付时回退到创建时间
func (p *Payment) EffectiveAt() time.Time {
	if p.PaidAt != nil {
		return *p.PaidAt
	}
	return p.CreatedAt
}

// EnrichedMembership 附带 Plan 的会员记录
type EnrichedMembership struct {
	Membership
	Plan *Plan `json:"plan,omitempty"`
}

// CompanyInfo 平台返回的公司信息
type CompanyInfo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Route       string `json:"route,omitempty"`
	Logo        string `json:"logo,omitempty"`
	BannerImage string `json:"banner_image,omitempty"`
}
