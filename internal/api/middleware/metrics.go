package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/metrics_go_server/internal/pkg/metrics"
)

// Metrics 记录请求数与耗时，路径使用路由模板避免标签爆炸
func Metrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		collector.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
