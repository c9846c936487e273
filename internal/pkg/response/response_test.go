package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	var resp Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func serve(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/test", handler)

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSuccess(t *testing.T) {
	w := serve(func(c *gin.Context) {
		Success(c, gin.H{"key": "value"})
	})

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse(t, w)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, "success", resp.Message)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "value", data["key"])
}

func TestSuccess_NilData(t *testing.T) {
	w := serve(func(c *gin.Context) {
		Success(c, nil)
	})

	resp := parseResponse(t, w)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Nil(t, resp.Data)
}

func TestSuccessWithMessage(t *testing.T) {
	w := serve(func(c *gin.Context) {
		SuccessWithMessage(c, "回填已开始", gin.H{"job_id": "abc"})
	})

	resp := parseResponse(t, w)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, "回填已开始", resp.Message)
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name     string
		call     func(c *gin.Context)
		wantCode int
		wantMsg  string
	}{
		{"param default", func(c *gin.Context) { ParamError(c, "") }, CodeParamError, "参数错误"},
		{"param custom", func(c *gin.Context) { ParamError(c, "缺少 company_id") }, CodeParamError, "缺少 company_id"},
		{"auth", func(c *gin.Context) { AuthError(c, "") }, CodeAuthFailed, "认证失败"},
		{"permission", func(c *gin.Context) { PermissionError(c, "") }, CodePermissionDenied, "权限不足"},
		{"not found", func(c *gin.Context) { NotFoundError(c, "") }, CodeResourceNotFound, "资源不存在"},
		{"conflict", func(c *gin.Context) { ConflictError(c, "") }, CodeConflict, "操作冲突"},
		{"server", func(c *gin.Context) { ServerError(c, "") }, CodeServerError, "服务器内部错误"},
		{"collaborator", func(c *gin.Context) { CollaboratorError(c, "fetch payments: timeout") }, CodeCollaboratorError, "fetch payments: timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(tt.call)

			// 错误同样使用 200 状态码
			assert.Equal(t, http.StatusOK, w.Code)

			resp := parseResponse(t, w)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantMsg, resp.Message)
			assert.Nil(t, resp.Data)
		})
	}
}

func TestError_UnknownCodeEmptyMessage(t *testing.T) {
	w := serve(func(c *gin.Context) {
		Error(c, 9999, "")
	})

	resp := parseResponse(t, w)
	assert.Equal(t, 9999, resp.Code)
	assert.Empty(t, resp.Message)
}
