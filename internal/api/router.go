package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/api/handler"
	"github.com/qs3c/metrics_go_server/internal/api/middleware"
	"github.com/qs3c/metrics_go_server/internal/pkg/metrics"
)

type Router struct {
	analyticsHandler *handler.AnalyticsHandler
	jobsHandler      *handler.JobsHandler
	healthHandler    *handler.HealthHandler
	metrics          *metrics.Collector
	cfg              *config.Config
}

func NewRouter(
	analyticsHandler *handler.AnalyticsHandler,
	jobsHandler *handler.JobsHandler,
	healthHandler *handler.HealthHandler,
	collector *metrics.Collector,
	cfg *config.Config,
) *Router {
	return &Router{
		analyticsHandler: analyticsHandler,
		jobsHandler:      jobsHandler,
		healthHandler:    healthHandler,
		metrics:          collector,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))
	engine.Use(middleware.Metrics(r.metrics))

	if r.healthHandler != nil {
		engine.GET("/health", r.healthHandler.Health)
	}
	engine.GET("/metrics", gin.WrapH(r.metrics.Handler()))

	api := engine.Group("/api/v1")
	{
		// 公开接口 - 分析
		analytics := api.Group("/analytics")
		{
			analytics.GET("", r.analyticsHandler.Get)
			analytics.GET("/live", r.analyticsHandler.Live)
			analytics.GET("/cached", r.analyticsHandler.Cached)
			analytics.GET("/historical", r.analyticsHandler.Historical)
			analytics.GET("/churn", r.analyticsHandler.Churn)
			analytics.POST("/ensure-backfill", r.analyticsHandler.EnsureBackfill)
			analytics.GET("/backfill-status", r.analyticsHandler.BackfillStatus)
		}

		// 需要服务令牌的接口
		service := api.Group("")
		service.Use(middleware.ServiceAuth(r.cfg.Auth.ServiceSecret))
		{
			jobs := service.Group("/jobs")
			{
				jobs.POST("/snapshot", r.jobsHandler.Snapshot)
				jobs.POST("/backfill", r.jobsHandler.Backfill)
				jobs.POST("/cleanup", r.jobsHandler.Cleanup)
			}

			service.POST("/admin/companies/:company_id/reset-backfill", r.jobsHandler.ResetBackfill)
		}
	}

	return engine
}
