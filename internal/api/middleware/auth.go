package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/metrics_go_server/internal/pkg/jwt"
	"github.com/qs3c/metrics_go_server/internal/pkg/response"
)

const (
	ServiceKey = "service"
)

// ServiceAuth 服务令牌认证，保护定时任务与管理接口
func ServiceAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			response.PermissionError(c, "服务令牌未配置")
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "请提供认证信息")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			response.AuthError(c, "认证格式错误")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, secret)
		if err != nil {
			response.AuthError(c, "认证失败或已过期")
			c.Abort()
			return
		}

		c.Set(ServiceKey, claims.Service)
		c.Next()
	}
}

// GetService 从上下文获取调用方服务名
func GetService(c *gin.Context) (string, bool) {
	service, exists := c.Get(ServiceKey)
	if !exists {
		return "", false
	}
	name, ok := service.(string)
	return name, ok
}
