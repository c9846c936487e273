package dto

import (
	"time"

	"github.com/qs3c/metrics_go_server/internal/analytics"
	"github.com/qs3c/metrics_go_server/internal/model"
)

// AnalyticsQuery 分析接口通用参数
type AnalyticsQuery struct {
	CompanyID    string `form:"company_id"`
	ForceRefresh bool   `form:"force_refresh"`
}

// HistoricalQuery 历史趋势参数
type HistoricalQuery struct {
	CompanyID string `form:"company_id"`
	Days      int    `form:"days" binding:"omitempty,min=1,max=730"`
}

// PlanSummary 方案下拉项
type PlanSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AnalyticsResponse 当前指标
type AnalyticsResponse struct {
	CompanyID string `json:"company_id"`
	analytics.Result
	Plans     []PlanSummary `json:"plans"`
	Timestamp time.Time     `json:"timestamp"`
	Cached    bool          `json:"cached"`
	CacheAge  int64         `json:"cache_age,omitempty"` // 秒
}

// DailyMetrics 历史趋势中的一天
type DailyMetrics struct {
	Date              string  `json:"date"`
	MRR               float64 `json:"mrr"`
	ARR               float64 `json:"arr"`
	ActiveSubscribers int     `json:"active_subscribers"`
	ARPU              float64 `json:"arpu"`
}

// ChurnResponse 区间流失
type ChurnResponse struct {
	CompanyID string    `json:"company_id"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	model.ChurnMetrics
}

// EnsureBackfillResponse 回填检查结果
type EnsureBackfillResponse struct {
	NeedsBackfill       bool       `json:"needs_backfill"`
	Started             bool       `json:"backfill_started"`
	BackfillCompleted   bool       `json:"backfill_completed"`
	BackfillCompletedAt *time.Time `json:"backfill_completed_at,omitempty"`
	SnapshotsFound      int64      `json:"snapshots_found"`
	CompanyExists       bool       `json:"company_exists"`
	JobID               string     `json:"job_id,omitempty"`
	Message             string     `json:"message"`
}

// BackfillStatusResponse 回填状态
type BackfillStatusResponse struct {
	CompanyID           string             `json:"company_id"`
	BackfillCompleted   bool               `json:"backfill_completed"`
	BackfillCompletedAt *time.Time         `json:"backfill_completed_at,omitempty"`
	LastSyncAt          *time.Time         `json:"last_sync_at,omitempty"`
	Running             bool               `json:"running"`
	LatestJob           *model.BackfillJob `json:"latest_job,omitempty"`
}

// CaptureResult 批量快照结果
type CaptureResult struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// CleanupResult 清理结果
type CleanupResult struct {
	Cutoff  time.Time `json:"cutoff"`
	Matched int64     `json:"matched"`
	Deleted int64     `json:"deleted"`
	DryRun  bool      `json:"dry_run"`
}

// EnqueueResult 批量回填入队结果
type EnqueueResult struct {
	Enqueued []string `json:"enqueued"`
	Skipped  []string `json:"skipped"`
}
