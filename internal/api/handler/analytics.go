package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/metrics_go_server/internal/model/dto"
	"github.com/qs3c/metrics_go_server/internal/pkg/response"
	"github.com/qs3c/metrics_go_server/internal/service"
)

type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
	backfillService  *service.BackfillService
}

func NewAnalyticsHandler(analyticsService *service.AnalyticsService, backfillService *service.BackfillService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		backfillService:  backfillService,
	}
}

// Get 当前指标，10 分钟内命中快照缓存
// GET /api/v1/analytics?company_id=&force_refresh=
func (h *AnalyticsHandler) Get(c *gin.Context) {
	var q dto.AnalyticsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.analyticsService.GetAnalytics(c.Request.Context(), q.CompanyID, q.ForceRefresh)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, resp)
}

// Live 实时计算，不写快照
// GET /api/v1/analytics/live
func (h *AnalyticsHandler) Live(c *gin.Context) {
	resp, err := h.analyticsService.ComputeCurrentMetrics(c.Request.Context(), c.Query("company_id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, resp)
}

// Cached 最近一份快照
// GET /api/v1/analytics/cached
func (h *AnalyticsHandler) Cached(c *gin.Context) {
	resp, err := h.analyticsService.GetCachedMetrics(c.Request.Context(), c.Query("company_id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, resp)
}

// Historical 历史趋势
// GET /api/v1/analytics/historical?company_id=&days=
func (h *AnalyticsHandler) Historical(c *gin.Context) {
	var q dto.HistoricalQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	items, err := h.analyticsService.GetHistoricalMetrics(c.Request.Context(), q.CompanyID, q.Days)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, items)
}

// Churn 区间流失
// GET /api/v1/analytics/churn?company_id=&days=
func (h *AnalyticsHandler) Churn(c *gin.Context) {
	var q dto.HistoricalQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.analyticsService.GetChurn(c.Request.Context(), q.CompanyID, q.Days)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, resp)
}

// EnsureBackfill 历史数据不足时触发后台回填，立即返回
// POST /api/v1/analytics/ensure-backfill?company_id=
func (h *AnalyticsHandler) EnsureBackfill(c *gin.Context) {
	resp, err := h.backfillService.EnsureBackfill(c.Request.Context(), c.Query("company_id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.SuccessWithMessage(c, resp.Message, resp)
}

// BackfillStatus 回填进度
// GET /api/v1/analytics/backfill-status?company_id=
func (h *AnalyticsHandler) BackfillStatus(c *gin.Context) {
	resp, err := h.backfillService.Status(c.Request.Context(), c.Query("company_id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, resp)
}
