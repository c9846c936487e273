package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/metrics_go_server/internal/model/dto"
	"github.com/qs3c/metrics_go_server/internal/pkg/response"
	"github.com/qs3c/metrics_go_server/internal/service"
)

// JobsHandler 外部调度器触发的任务与管理接口
type JobsHandler struct {
	snapshotService *service.SnapshotService
	backfillService *service.BackfillService
}

func NewJobsHandler(snapshotService *service.SnapshotService, backfillService *service.BackfillService) *JobsHandler {
	return &JobsHandler{
		snapshotService: snapshotService,
		backfillService: backfillService,
	}
}

// bindJob 请求体可以为空
func bindJob(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		response.ParamError(c, err.Error())
		return false
	}
	return true
}

// Snapshot 采集每日快照
// POST /api/v1/jobs/snapshot
func (h *JobsHandler) Snapshot(c *gin.Context) {
	var req dto.JobRequest
	if !bindJob(c, &req) {
		return
	}

	if req.CompanyID != "" {
		snapshot, err := h.snapshotService.CaptureCompanySnapshot(c.Request.Context(), req.CompanyID)
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, snapshot)
		return
	}

	result, err := h.snapshotService.CaptureAllSnapshots(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, result)
}

// Backfill 为指定公司或所有未完成的公司入队回填
// POST /api/v1/jobs/backfill
func (h *JobsHandler) Backfill(c *gin.Context) {
	var req dto.JobRequest
	if !bindJob(c, &req) {
		return
	}

	if req.CompanyID != "" {
		job, err := h.backfillService.Enqueue(c.Request.Context(), req.CompanyID)
		if err != nil {
			handleError(c, err)
			return
		}
		response.SuccessWithMessage(c, "回填已入队", job)
		return
	}

	result, err := h.backfillService.EnqueueAll(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, result)
}

// Cleanup 删除保留期之前的快照
// POST /api/v1/jobs/cleanup
func (h *JobsHandler) Cleanup(c *gin.Context) {
	var req dto.CleanupRequest
	if !bindJob(c, &req) {
		return
	}

	result, err := h.snapshotService.Cleanup(c.Request.Context(), req.KeepDays, req.DryRun, req.CompanyID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, result)
}

// ResetBackfill 清除回填完成标记
// POST /api/v1/admin/companies/:company_id/reset-backfill
func (h *JobsHandler) ResetBackfill(c *gin.Context) {
	if err := h.backfillService.Reset(c.Request.Context(), c.Param("company_id")); err != nil {
		handleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已重置", nil)
}
