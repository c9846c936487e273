package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// SnapshotDetails 不需要单独查询的明细指标，存为一个 JSON 列
type SnapshotDetails struct {
	Trials   TrialMetrics    `json:"trials"`
	CLV      CLVMetrics      `json:"clv"`
	CashFlow CashFlowMetrics `json:"cash_flow"`
	Payments PaymentMetrics  `json:"payments"`
	Refunds  RefundMetrics   `json:"refunds"`
	Revenue  RevenueMetrics  `json:"revenue"`

	UniqueSubscribers int `json:"unique_subscribers"`
}

func (d SnapshotDetails) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *SnapshotDetails) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = SnapshotDetails{}
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported snapshot details type %T", value)
	}
}

// SnapshotRawData 计算快照时使用的原始数据
type SnapshotRawData struct {
	Company     *CompanyInfo         `json:"company,omitempty"`
	Memberships []EnrichedMembership `json:"memberships"`
	Plans       []Plan               `json:"plans"`
	Payments    []Payment            `json:"payments"`
}

// MetricsSnapshot 每个公司每天一条
type MetricsSnapshot struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	CompanyID  string    `gorm:"size:64;not null;uniqueIndex:idx_company_date" json:"company_id"`
	Date       time.Time `gorm:"not null;uniqueIndex:idx_company_date;index" json:"date"` // UTC 零点
	CapturedAt time.Time `gorm:"not null" json:"captured_at"`

	MRRTotal     float64 `json:"mrr_total"`
	MRRMonthly   float64 `json:"mrr_monthly"`
	MRRAnnual    float64 `json:"mrr_annual"`
	MRRQuarterly float64 `json:"mrr_quarterly"`
	MRROther     float64 `json:"mrr_other"`
	ARR          float64 `json:"arr"`
	ARPU         float64 `json:"arpu"`

	SubscribersActive       int `json:"subscribers_active"`
	SubscribersCancelled    int `json:"subscribers_cancelled"`
	SubscribersPastDue      int `json:"subscribers_past_due"`
	SubscribersTrialing     int `json:"subscribers_trialing"`
	SubscribersTotal        int `json:"subscribers_total"`
	ActiveUniqueSubscribers int `json:"active_unique_subscribers"`

	TotalMemberships  int `json:"total_memberships"`
	ActiveMemberships int `json:"active_memberships"`
	PlanCount         int `json:"plan_count"`

	Details SnapshotDetails `gorm:"type:json" json:"details"`
	RawData datatypes.JSON  `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MetricsSnapshot) TableName() string {
	return "metrics_snapshots"
}

// MRR 还原为 MRR 结构
func (s *MetricsSnapshot) MRR() MRR {
	return MRR{
		Total: s.MRRTotal,
		Breakdown: MRRBreakdown{
			Monthly:   s.MRRMonthly,
			Annual:    s.MRRAnnual,
			Quarterly: s.MRRQuarterly,
			Other:     s.MRROther,
		},
	}
}

func (s *MetricsSnapshot) Subscribers() SubscriberMetrics {
	return SubscriberMetrics{
		Active:    s.SubscribersActive,
		Cancelled: s.SubscribersCancelled,
		PastDue:   s.SubscribersPastDue,
		Trialing:  s.SubscribersTrialing,
		Total:     s.SubscribersTotal,
	}
}

// SetRawData 序列化原始数据
func (s *MetricsSnapshot) SetRawData(raw *SnapshotRawData) error {
	if raw == nil {
		s.RawData = nil
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal raw data: %w", err)
	}
	s.RawData = datatypes.JSON(data)
	return nil
}

// DecodeRawData 反序列化原始数据，没有时返回 nil
func (s *MetricsSnapshot) DecodeRawData() (*SnapshotRawData, error) {
	if len(s.RawData) == 0 {
		return nil, nil
	}
	var raw SnapshotRawData
	if err := json.Unmarshal(s.RawData, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal raw data: %w", err)
	}
	return &raw, nil
}

// DayStart 归一化到 UTC 零点
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
