package service

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/model"
	"github.com/qs3c/metrics_go_server/internal/pkg/metrics"
	"github.com/qs3c/metrics_go_server/internal/pkg/queue"
	"github.com/qs3c/metrics_go_server/internal/repository"
	"github.com/qs3c/metrics_go_server/internal/testutil"
)

// 05:00 UTC，当天的回填时间点恰好等于 now
var testNow = time.Date(2025, 6, 1, 5, 0, 0, 0, time.UTC)

type testEnv struct {
	db        *gorm.DB
	redis     *redis.Client
	mr        *miniredis.Miniredis
	billing   *testutil.FakeBilling
	cfg       *config.Config
	collector *metrics.Collector

	snapshotRepo *repository.SnapshotRepository
	companyRepo  *repository.CompanyRepository
	jobRepo      *repository.JobRepository
	queue        *queue.Queue

	analytics *AnalyticsService
	backfill  *BackfillService
	snapshots *SnapshotService
}

func setupEnv(t *testing.T) (*testEnv, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	client, mr, redisCleanup := testutil.SetupTestRedis(t)

	cfg := config.Default()
	cfg.Analytics.BackfillConcurrency = 4

	env := &testEnv{
		db:           db,
		redis:        client,
		mr:           mr,
		billing:      testutil.NewFakeBilling(),
		cfg:          cfg,
		collector:    metrics.New(),
		snapshotRepo: repository.NewSnapshotRepository(db),
		companyRepo:  repository.NewCompanyRepository(db),
		jobRepo:      repository.NewJobRepository(db),
		queue:        queue.NewQueue(client, cfg.Queue.BackfillQueue),
	}

	clock := func() time.Time { return testNow }

	env.analytics = NewAnalyticsService(env.billing, env.snapshotRepo, env.companyRepo, env.collector, cfg)
	env.analytics.now = clock
	env.backfill = NewBackfillService(env.billing, env.snapshotRepo, env.companyRepo, env.jobRepo,
		env.queue, queue.NewLocker(client), env.collector, cfg)
	env.backfill.now = clock
	env.snapshots = NewSnapshotService(env.billing, env.snapshotRepo, env.companyRepo, env.collector, cfg)
	env.snapshots.now = clock

	cleanup := func() {
		redisCleanup()
		testutil.CleanupTestDB(t, db)
	}
	return env, cleanup
}

func ptrTime(t time.Time) *time.Time {
	return &t
}

func daysAgo(n int) time.Time {
	return testNow.AddDate(0, 0, -n)
}

func monthlyPlan(id string, price float64) model.Plan {
	return model.Plan{
		ID:                id,
		ProductTitle:      "Pro " + id,
		PlanType:          model.PlanTypeRenewal,
		RenewalPrice:      price,
		BillingPeriodDays: 30,
	}
}

// seedActiveBusiness 两个有效会员，MRR = 30 + 120/12
func seedActiveBusiness(f *testutil.FakeBilling) {
	yearly := model.Plan{ID: "plan_year", ProductTitle: "Annual", PlanType: model.PlanTypeRenewal, RenewalPrice: 120, BillingUnit: model.BillingUnitYear}
	f.Plans = []model.Plan{monthlyPlan("plan_month", 30), yearly}
	f.Memberships = []model.Membership{
		{ID: "mem_1", Status: model.MembershipActive, CreatedAt: daysAgo(60), PlanID: "plan_month", MemberID: "user_1"},
		{ID: "mem_2", Status: model.MembershipActive, CreatedAt: daysAgo(20), PlanID: "plan_year", MemberID: "user_2"},
	}
	f.Payments = []model.Payment{
		{ID: "pay_1", Status: model.PaymentPaid, Substatus: model.SubstatusSucceeded, CreatedAt: daysAgo(30), Total: 30, BillingReason: "subscription_cycle", MembershipID: "mem_1"},
		{ID: "pay_2", Status: model.PaymentPaid, Substatus: model.SubstatusSucceeded, CreatedAt: daysAgo(20), Total: 120, BillingReason: "subscription_create", MembershipID: "mem_2"},
	}
}
