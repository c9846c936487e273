package dto

// JobRequest 定时任务触发参数，company_id 为空时处理所有公司
type JobRequest struct {
	CompanyID string `json:"company_id"`
}

// CleanupRequest 快照清理参数
type CleanupRequest struct {
	CompanyID string `json:"company_id"`
	KeepDays  int    `json:"keep_days" binding:"omitempty,min=1"`
	DryRun    bool   `json:"dry_run"`
}

// HealthResponse 健康检查
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}
