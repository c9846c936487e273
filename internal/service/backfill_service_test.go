package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/metrics_go_server/internal/model"
	"github.com/qs3c/metrics_go_server/internal/testutil"
)

// seedWindowBusiness 一个会员在 100 天前到 50 天前之间有效，一笔支付在 30 天前
func seedWindowBusiness(f *testutil.FakeBilling) {
	plan := monthlyPlan("plan_month", 30)
	f.Plans = []model.Plan{plan}
	f.Memberships = []model.Membership{
		{
			ID:         "mem_1",
			Status:     model.MembershipCanceled,
			CreatedAt:  daysAgo(100),
			CanceledAt: ptrTime(daysAgo(50)),
			PlanID:     plan.ID,
			MemberID:   "user_1",
		},
	}
	f.Payments = []model.Payment{
		{ID: "pay_1", Status: model.PaymentPaid, Substatus: model.SubstatusSucceeded, CreatedAt: daysAgo(30), PaidAt: ptrTime(daysAgo(30)), Total: 30, BillingReason: "subscription_cycle"},
	}
}

func TestBackfillService_Backfill_WindowBoundaries(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()
	seedWindowBusiness(env.billing)
	testutil.TestCompany(t, env.db, testutil.WithCompanyID("biz_1"))

	var progressCalls int
	var mu sync.Mutex
	err := env.backfill.Backfill(context.Background(), "biz_1", 365, func(done, total int) {
		mu.Lock()
		progressCalls++
		mu.Unlock()
		assert.Equal(t, 366, total)
	})
	require.NoError(t, err)
	assert.Equal(t, 366, progressCalls)
	assert.Equal(t, int64(366), countSnapshots(t, env, "biz_1"))

	mrrAt := func(ago int) float64 {
		s, err := env.snapshotRepo.GetByDate("biz_1", daysAgo(ago))
		require.NoError(t, err)
		return s.MRRTotal
	}
	assert.Zero(t, mrrAt(101))
	assert.InDelta(t, 30.0, mrrAt(100), 0.001)
	assert.InDelta(t, 30.0, mrrAt(75), 0.001)
	assert.InDelta(t, 30.0, mrrAt(51), 0.001)
	assert.Zero(t, mrrAt(50))
	assert.Zero(t, mrrAt(0))

	paymentsAt := func(ago int) int {
		s, err := env.snapshotRepo.GetByDate("biz_1", daysAgo(ago))
		require.NoError(t, err)
		return s.Details.Payments.Total
	}
	assert.Zero(t, paymentsAt(31))
	assert.Equal(t, 1, paymentsAt(30))
	assert.Equal(t, 1, paymentsAt(0))

	// 只有今天的快照带原始数据
	latest, err := env.snapshotRepo.GetLatestWithRawData("biz_1")
	require.NoError(t, err)
	assert.True(t, latest.Date.Equal(model.DayStart(testNow)))
	older, err := env.snapshotRepo.GetByDate("biz_1", daysAgo(1))
	require.NoError(t, err)
	assert.Empty(t, older.RawData)

	c, err := env.companyRepo.GetByCompanyID("biz_1")
	require.NoError(t, err)
	assert.True(t, c.BackfillCompleted)
	assert.Equal(t, "biz_1", c.Title)
}

func TestBackfillService_Backfill_UpstreamFailure(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()
	seedWindowBusiness(env.billing)
	env.billing.Errors["memberships"] = errors.New("timeout")
	testutil.TestCompany(t, env.db, testutil.WithCompanyID("biz_1"))

	err := env.backfill.Backfill(context.Background(), "biz_1", 365, nil)
	assert.ErrorIs(t, err, ErrUpstream)

	assert.Zero(t, countSnapshots(t, env, "biz_1"))
	c, err := env.companyRepo.GetByCompanyID("biz_1")
	require.NoError(t, err)
	assert.False(t, c.BackfillCompleted)
}

func TestBackfillService_EnsureBackfill_AlreadyCompleted(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()
	testutil.TestCompany(t, env.db, testutil.WithCompanyID("biz_1"), testutil.WithBackfillCompleted())

	resp, err := env.backfill.EnsureBackfill(context.Background(), "biz_1")
	require.NoError(t, err)

	assert.False(t, resp.NeedsBackfill)
	assert.False(t, resp.Started)
	assert.True(t, resp.BackfillCompleted)

	length, err := env.queue.Length(context.Background())
	require.NoError(t, err)
	assert.Zero(t, length)
}

func TestBackfillService_EnsureBackfill_EnoughHistory(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()
	testutil.TestCompany(t, env.db, testutil.WithCompanyID("biz_1"))
	for ago := 0; ago < 30; ago++ {
		testutil.TestSnapshot(t, env.db, "biz_1", daysAgo(ago))
	}

	resp, err := env.backfill.EnsureBackfill(context.Background(), "biz_1")
	require.NoError(t, err)

	assert.False(t, resp.NeedsBackfill)
	assert.True(t, resp.BackfillCompleted)
	assert.Equal(t, int64(30), resp.SnapshotsFound)

	c, err := env.companyRepo.GetByCompanyID("biz_1")
	require.NoError(t, err)
	assert.True(t, c.BackfillCompleted)
}

func TestBackfillService_EnsureBackfill_HistoryWithoutCompany(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()
	for ago := 0; ago < 40; ago++ {
		testutil.TestSnapshot(t, env.db, "biz_orphan", daysAgo(ago))
	}

	resp, err := env.backfill.EnsureBackfill(context.Background(), "biz_orphan")
	require.NoError(t, err)

	assert.True(t, resp.NeedsBackfill)
	assert.True(t, resp.Started)
	assert.False(t, resp.CompanyExists)
}

func TestBackfillService_EnsureBackfill_EnqueuesOnce(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()
	ctx := context.Background()
	testutil.TestCompany(t, env.db, testutil.WithCompanyID("biz_1"))

	first, err := env.backfill.EnsureBackfill(ctx, "biz_1")
	require.NoError(t, err)
	assert.True(t, first.NeedsBackfill)
	assert.True(t, first.Started)
	assert.NotEmpty(t, first.JobID)
	assert.True(t, first.CompanyExists)

	second, err := env.backfill.EnsureBackfill(ctx, "biz_1")
	require.NoError(t, err)
	assert.True(t, second.NeedsBackfill)
	assert.False(t, second.Started)

	length, err := env.queue.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	job, err := env.jobRepo.GetByID(first.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobQueued, job.Status)
	assert.Equal(t, 366, job.DaysTotal)

	msg, err := env.queue.Pop(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, first.JobID, msg.JobID)
	assert.Equal(t, "biz_1", msg.CompanyID)

	// 不调用账单平台
	assert.Zero(t, env.billing.Calls("memberships"))
}

func TestBackfillService_EnsureBackfill_RequiresCompanyID(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	_, err := env.backfill.EnsureBackfill(context.Background(), "")
	assert.ErrorIs(t, err, ErrCompanyIDRequired)
}

func TestBackfillService_RunAll_ContinuesAfterFailure(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()
	seedWindowBusiness(env.billing)
	env.billing.FailCompanies["biz_bad"] = errors.New("forbidden")

	testutil.TestCompany(t, env.db, testutil.WithCompanyID("biz_bad"))
	testutil.TestCompany(t, env.db, testutil.WithCompanyID("biz_good"))
	testutil.TestCompany(t, env.db, testutil.WithCompanyID("biz_done"), testutil.WithBackfillCompleted())

	result, err := env.backfill.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "biz_bad")

	good, err := env.companyRepo.GetByCompanyID("biz_good")
	require.NoError(t, err)
	assert.True(t, good.BackfillCompleted)

	bad, err := env.companyRepo.GetByCompanyID("biz_bad")
	require.NoError(t, err)
	assert.False(t, bad.BackfillCompleted)

	// 锁已释放
	held, err := env.backfill.locker.Held(context.Background(), "biz_good")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestBackfillService_EnqueueAll(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()
	ctx := context.Background()

	testutil.TestCompany(t, env.db, testutil.WithCompanyID("biz_a"))
	testutil.TestCompany(t, env.db, testutil.WithCompanyID("biz_b"))
	testutil.TestCompany(t, env.db, testutil.WithCompanyID("biz_done"), testutil.WithBackfillCompleted())

	_, err := env.backfill.Enqueue(ctx, "biz_b")
	require.NoError(t, err)

	result, err := env.backfill.EnqueueAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"biz_a"}, result.Enqueued)
	assert.Equal(t, []string{"biz_b"}, result.Skipped)

	length, err := env.queue.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), length)
}

func TestBackfillService_StatusAndReset(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()
	ctx := context.Background()

	_, err := env.backfill.Status(ctx, "biz_missing")
	assert.ErrorIs(t, err, ErrCompanyNotFound)
	assert.ErrorIs(t, env.backfill.Reset(ctx, "biz_missing"), ErrCompanyNotFound)

	testutil.TestCompany(t, env.db, testutil.WithCompanyID("biz_1"))
	job, err := env.backfill.Enqueue(ctx, "biz_1")
	require.NoError(t, err)

	status, err := env.backfill.Status(ctx, "biz_1")
	require.NoError(t, err)
	assert.True(t, status.Running)
	require.NotNil(t, status.LatestJob)
	assert.Equal(t, job.ID, status.LatestJob.ID)

	require.NoError(t, env.db.Model(&model.Company{}).Where("company_id = ?", "biz_1").
		Update("backfill_completed", true).Error)

	require.NoError(t, env.backfill.Reset(ctx, "biz_1"))

	status, err = env.backfill.Status(ctx, "biz_1")
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.False(t, status.BackfillCompleted)
}

func TestBackfillService_Status_FallsBackToJobTable(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	testutil.TestCompany(t, env.db, testutil.WithCompanyID("biz_1"))
	testutil.TestJob(t, env.db, "biz_1", model.JobProcessing)

	env.mr.Close()

	status, err := env.backfill.Status(context.Background(), "biz_1")
	require.NoError(t, err)
	assert.True(t, status.Running)
}
