package handler

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/metrics_go_server/internal/pkg/response"
	"github.com/qs3c/metrics_go_server/internal/service"
)

// handleError 把服务层错误映射为响应码
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCompanyIDRequired):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrSnapshotNotFound), errors.Is(err, service.ErrCompanyNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrBackfillRunning):
		response.ConflictError(c, err.Error())
	case errors.Is(err, service.ErrUpstream):
		response.CollaboratorError(c, err.Error())
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		response.ServerError(c, "")
	}
}
