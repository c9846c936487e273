package model

import (
	"time"
)

// 回填任务状态
const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

type BackfillJob struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	CompanyID      string     `gorm:"size:64;not null;index" json:"company_id"`
	Status         string     `gorm:"size:20;default:queued;index" json:"status"`
	DaysTotal      int        `json:"days_total"`
	DaysDone       int        `json:"days_done"`
	ErrorMessage   string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ElapsedSeconds int        `json:"elapsed_seconds,omitempty"`
}

func (BackfillJob) TableName() string {
	return "backfill_jobs"
}

// Finished 是否已结束
func (j *BackfillJob) Finished() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}
