package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qs3c/metrics_go_server/internal/model"
)

// TestCompany 创建测试公司
func TestCompany(t *testing.T, db *gorm.DB, opts ...func(*model.Company)) *model.Company {
	t.Helper()

	company := &model.Company{
		CompanyID: fmt.Sprintf("biz_%d", time.Now().UnixNano()),
		Title:     "Test Company",
	}

	for _, opt := range opts {
		opt(company)
	}

	if err := db.Create(company).Error; err != nil {
		t.Fatalf("Failed to create test company: %v", err)
	}

	return company
}

// WithCompanyID 设置公司 ID
func WithCompanyID(companyID string) func(*model.Company) {
	return func(c *model.Company) {
		c.CompanyID = companyID
	}
}

// WithBackfillCompleted 标记回填已完成
func WithBackfillCompleted() func(*model.Company) {
	return func(c *model.Company) {
		now := time.Now()
		c.BackfillCompleted = true
		c.BackfillCompletedAt = &now
	}
}

// TestSnapshot 创建测试快照
func TestSnapshot(t *testing.T, db *gorm.DB, companyID string, date time.Time, opts ...func(*model.MetricsSnapshot)) *model.MetricsSnapshot {
	t.Helper()

	snapshot := &model.MetricsSnapshot{
		CompanyID:  companyID,
		Date:       model.DayStart(date),
		CapturedAt: date,
	}

	for _, opt := range opts {
		opt(snapshot)
	}

	if err := db.Create(snapshot).Error; err != nil {
		t.Fatalf("Failed to create test snapshot: %v", err)
	}

	return snapshot
}

// WithMRR 设置 MRR，同时维护 ARR
func WithMRR(mrr float64) func(*model.MetricsSnapshot) {
	return func(s *model.MetricsSnapshot) {
		s.MRRTotal = mrr
		s.MRRMonthly = mrr
		s.ARR = mrr * 12
	}
}

// WithCapturedAt 设置采集时间
func WithCapturedAt(at time.Time) func(*model.MetricsSnapshot) {
	return func(s *model.MetricsSnapshot) {
		s.CapturedAt = at
	}
}

// WithRawData 附带原始数据
func WithRawData(raw *model.SnapshotRawData) func(*model.MetricsSnapshot) {
	return func(s *model.MetricsSnapshot) {
		if err := s.SetRawData(raw); err != nil {
			panic(err)
		}
	}
}

// TestJob 创建测试回填任务
func TestJob(t *testing.T, db *gorm.DB, companyID, status string) *model.BackfillJob {
	t.Helper()

	job := &model.BackfillJob{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Status:    status,
		DaysTotal: 366,
	}

	if err := db.Create(job).Error; err != nil {
		t.Fatalf("Failed to create test job: %v", err)
	}

	return job
}
