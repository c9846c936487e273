package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/api/handler"
	"github.com/qs3c/metrics_go_server/internal/pkg/jwt"
	"github.com/qs3c/metrics_go_server/internal/pkg/metrics"
	"github.com/qs3c/metrics_go_server/internal/pkg/queue"
	"github.com/qs3c/metrics_go_server/internal/pkg/response"
	"github.com/qs3c/metrics_go_server/internal/repository"
	"github.com/qs3c/metrics_go_server/internal/service"
	"github.com/qs3c/metrics_go_server/internal/testutil"
)

const testSecret = "router-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T) (*gin.Engine, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	client, _, redisCleanup := testutil.SetupTestRedis(t)

	cfg := config.Default()
	cfg.Auth.ServiceSecret = testSecret
	cfg.CORS.AllowedOrigins = []string{"*"}

	billing := testutil.NewFakeBilling()
	collector := metrics.New()
	snapshotRepo := repository.NewSnapshotRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	jobRepo := repository.NewJobRepository(db)
	q := queue.NewQueue(client, cfg.Queue.BackfillQueue)

	analyticsService := service.NewAnalyticsService(billing, snapshotRepo, companyRepo, collector, cfg)
	backfillService := service.NewBackfillService(billing, snapshotRepo, companyRepo, jobRepo, q, queue.NewLocker(client), collector, cfg)
	snapshotService := service.NewSnapshotService(billing, snapshotRepo, companyRepo, collector, cfg)

	router := NewRouter(
		handler.NewAnalyticsHandler(analyticsService, backfillService),
		handler.NewJobsHandler(snapshotService, backfillService),
		handler.NewHealthHandler(db, client),
		collector,
		cfg,
	)

	cleanup := func() {
		redisCleanup()
		testutil.CleanupTestDB(t, db)
	}
	return router.Setup(), cleanup
}

func serve(engine *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func code(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Code
}

func TestRouter_PublicAnalytics(t *testing.T) {
	engine, cleanup := setupRouter(t)
	defer cleanup()

	w := serve(engine, "GET", "/api/v1/analytics?company_id=biz_1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, code(t, w))

	w = serve(engine, "GET", "/api/v1/analytics", "")
	assert.Equal(t, response.CodeParamError, code(t, w))
}

func TestRouter_JobsRequireServiceToken(t *testing.T) {
	engine, cleanup := setupRouter(t)
	defer cleanup()

	w := serve(engine, "POST", "/api/v1/jobs/snapshot", "")
	assert.Equal(t, response.CodeAuthFailed, code(t, w))

	w = serve(engine, "POST", "/api/v1/admin/companies/biz_1/reset-backfill", "")
	assert.Equal(t, response.CodeAuthFailed, code(t, w))

	token, err := jwt.GenerateToken("scheduler", testSecret, 1)
	require.NoError(t, err)

	w = serve(engine, "POST", "/api/v1/jobs/snapshot", token)
	assert.Equal(t, response.CodeSuccess, code(t, w))

	w = serve(engine, "POST", "/api/v1/admin/companies/biz_1/reset-backfill", token)
	assert.Equal(t, response.CodeResourceNotFound, code(t, w))
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	engine, cleanup := setupRouter(t)
	defer cleanup()

	w := serve(engine, "GET", "/health", "")
	assert.Equal(t, response.CodeSuccess, code(t, w))

	serve(engine, "GET", "/api/v1/analytics/cached?company_id=biz_1", "")

	w = serve(engine, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `path="/api/v1/analytics/cached"`)
}

func TestRouter_CORSPreflight(t *testing.T) {
	engine, cleanup := setupRouter(t)
	defer cleanup()

	req := httptest.NewRequest("OPTIONS", "/api/v1/analytics", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://dashboard.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
