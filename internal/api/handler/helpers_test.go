package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/model"
	"github.com/qs3c/metrics_go_server/internal/pkg/metrics"
	"github.com/qs3c/metrics_go_server/internal/pkg/queue"
	"github.com/qs3c/metrics_go_server/internal/pkg/response"
	"github.com/qs3c/metrics_go_server/internal/repository"
	"github.com/qs3c/metrics_go_server/internal/service"
	"github.com/qs3c/metrics_go_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testContext 本地测试上下文
type testContext struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Billing *testutil.FakeBilling
	Queue   *queue.Queue
	Router  *gin.Engine
}

func setupHandlers(t *testing.T) (*testContext, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	client, _, redisCleanup := testutil.SetupTestRedis(t)

	cfg := config.Default()
	cfg.Analytics.BackfillDays = 10

	billing := testutil.NewFakeBilling()
	collector := metrics.New()
	snapshotRepo := repository.NewSnapshotRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	jobRepo := repository.NewJobRepository(db)
	q := queue.NewQueue(client, cfg.Queue.BackfillQueue)

	analyticsService := service.NewAnalyticsService(billing, snapshotRepo, companyRepo, collector, cfg)
	backfillService := service.NewBackfillService(billing, snapshotRepo, companyRepo, jobRepo, q, queue.NewLocker(client), collector, cfg)
	snapshotService := service.NewSnapshotService(billing, snapshotRepo, companyRepo, collector, cfg)

	analyticsHandler := NewAnalyticsHandler(analyticsService, backfillService)
	jobsHandler := NewJobsHandler(snapshotService, backfillService)
	healthHandler := NewHealthHandler(db, client)

	router := gin.New()
	router.GET("/health", healthHandler.Health)
	router.GET("/analytics", analyticsHandler.Get)
	router.GET("/analytics/live", analyticsHandler.Live)
	router.GET("/analytics/cached", analyticsHandler.Cached)
	router.GET("/analytics/historical", analyticsHandler.Historical)
	router.GET("/analytics/churn", analyticsHandler.Churn)
	router.POST("/analytics/ensure-backfill", analyticsHandler.EnsureBackfill)
	router.GET("/analytics/backfill-status", analyticsHandler.BackfillStatus)
	router.POST("/jobs/snapshot", jobsHandler.Snapshot)
	router.POST("/jobs/backfill", jobsHandler.Backfill)
	router.POST("/jobs/cleanup", jobsHandler.Cleanup)
	router.POST("/admin/companies/:company_id/reset-backfill", jobsHandler.ResetBackfill)

	ctx := &testContext{
		DB:      db,
		Redis:   client,
		Billing: billing,
		Queue:   q,
		Router:  router,
	}

	cleanup := func() {
		redisCleanup()
		testutil.CleanupTestDB(t, db)
	}
	return ctx, cleanup
}

func (tc *testContext) do(t *testing.T, method, path string, body interface{}) response.Response {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	tc.Router.ServeHTTP(w, req)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// seedBilling 一个月付会员和一笔成功支付
func seedBilling(f *testutil.FakeBilling) {
	now := time.Now()
	f.Plans = []model.Plan{{ID: "plan_1", ProductTitle: "Pro", PlanType: model.PlanTypeRenewal, RenewalPrice: 25, BillingPeriodDays: 30}}
	f.Memberships = []model.Membership{
		{ID: "mem_1", Status: model.MembershipActive, CreatedAt: now.AddDate(0, 0, -40), PlanID: "plan_1", MemberID: "user_1"},
	}
	f.Payments = []model.Payment{
		{ID: "pay_1", Status: model.PaymentPaid, Substatus: model.SubstatusSucceeded, CreatedAt: now.AddDate(0, 0, -10), Total: 25, BillingReason: "subscription_cycle", MembershipID: "mem_1"},
	}
}

func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return data
}
