package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/analytics"
	"github.com/qs3c/metrics_go_server/internal/model"
	"github.com/qs3c/metrics_go_server/internal/model/dto"
	"github.com/qs3c/metrics_go_server/internal/pkg/metrics"
	"github.com/qs3c/metrics_go_server/internal/pkg/queue"
	"github.com/qs3c/metrics_go_server/internal/repository"
)

// ProgressFunc 回填进度回调，done 为已写入的天数
type ProgressFunc func(done, total int)

type BackfillService struct {
	loader       *billingLoader
	snapshotRepo *repository.SnapshotRepository
	companyRepo  *repository.CompanyRepository
	jobRepo      *repository.JobRepository
	queue        *queue.Queue
	locker       *queue.Locker
	metrics      *metrics.Collector
	cfg          *config.Config
	now          func() time.Time
}

func NewBackfillService(
	source BillingSource,
	snapshotRepo *repository.SnapshotRepository,
	companyRepo *repository.CompanyRepository,
	jobRepo *repository.JobRepository,
	q *queue.Queue,
	locker *queue.Locker,
	collector *metrics.Collector,
	cfg *config.Config,
) *BackfillService {
	return &BackfillService{
		loader: &billingLoader{
			source:       source,
			metrics:      collector,
			lookbackDays: cfg.Whop.PaymentsLookbackDays,
		},
		snapshotRepo: snapshotRepo,
		companyRepo:  companyRepo,
		jobRepo:      jobRepo,
		queue:        q,
		locker:       locker,
		metrics:      collector,
		cfg:          cfg,
		now:          time.Now,
	}
}

// EnsureBackfill 历史数据不足时入队回填，立即返回
func (s *BackfillService) EnsureBackfill(ctx context.Context, companyID string) (*dto.EnsureBackfillResponse, error) {
	if companyID == "" {
		return nil, ErrCompanyIDRequired
	}

	log.Printf("Checking backfill status for company %s", companyID)

	company, err := s.companyRepo.GetByCompanyID(companyID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		company = nil
	}

	if company != nil && company.BackfillCompleted {
		return &dto.EnsureBackfillResponse{
			BackfillCompleted:   true,
			BackfillCompletedAt: company.BackfillCompletedAt,
			CompanyExists:       true,
			Message:             "历史数据已存在",
		}, nil
	}

	now := s.now()
	found, err := s.snapshotRepo.CountSince(companyID, now.AddDate(0, 0, -s.cfg.Analytics.BackfillDays))
	if err != nil {
		return nil, err
	}

	if company != nil && found >= int64(s.cfg.Analytics.BackfillThreshold) {
		log.Printf("Company %s has %d snapshots, marking backfill complete", companyID, found)
		if err := s.companyRepo.MarkBackfillCompleted(companyID, now); err != nil {
			return nil, err
		}
		return &dto.EnsureBackfillResponse{
			BackfillCompleted: true,
			SnapshotsFound:    found,
			CompanyExists:     true,
			Message:           "历史数据已存在，已标记完成",
		}, nil
	}

	resp := &dto.EnsureBackfillResponse{
		NeedsBackfill:  true,
		SnapshotsFound: found,
		CompanyExists:  company != nil,
	}

	job, err := s.Enqueue(ctx, companyID)
	if errors.Is(err, ErrBackfillRunning) {
		resp.Message = "回填正在进行中"
		return resp, nil
	}
	if err != nil {
		return nil, err
	}

	resp.Started = true
	resp.JobID = job.ID
	resp.Message = "历史数据回填已开始，需要几分钟"
	return resp, nil
}

// Enqueue 抢占公司锁、创建任务记录并推入队列
func (s *BackfillService) Enqueue(ctx context.Context, companyID string) (*model.BackfillJob, error) {
	jobID := uuid.NewString()

	claimed, err := s.locker.Claim(ctx, companyID, jobID, s.cfg.Analytics.LockTTL())
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrBackfillRunning
	}

	job := &model.BackfillJob{
		ID:        jobID,
		CompanyID: companyID,
		Status:    model.JobQueued,
		DaysTotal: s.cfg.Analytics.BackfillDays + 1,
	}
	if err := s.jobRepo.Create(job); err != nil {
		s.releaseLock(companyID, jobID)
		return nil, fmt.Errorf("failed to create backfill job: %w", err)
	}

	msg := &queue.BackfillMessage{
		JobID:      job.ID,
		CompanyID:  companyID,
		Days:       s.cfg.Analytics.BackfillDays,
		EnqueuedAt: s.now(),
	}
	if err := s.queue.Push(ctx, msg); err != nil {
		job.Status = model.JobFailed
		job.ErrorMessage = err.Error()
		if updateErr := s.jobRepo.Update(job); updateErr != nil {
			log.Printf("Failed to mark job %s failed: %v", job.ID, updateErr)
		}
		s.releaseLock(companyID, jobID)
		return nil, fmt.Errorf("failed to enqueue backfill: %w", err)
	}

	log.Printf("Enqueued backfill job %s for company %s", job.ID, companyID)
	return job, nil
}

// EnqueueAll 为所有未完成回填的公司入队，已在执行的跳过
func (s *BackfillService) EnqueueAll(ctx context.Context) (*dto.EnqueueResult, error) {
	companies, err := s.companyRepo.ListNeedingBackfill()
	if err != nil {
		return nil, err
	}

	result := &dto.EnqueueResult{Enqueued: []string{}, Skipped: []string{}}
	for _, c := range companies {
		if _, err := s.Enqueue(ctx, c.CompanyID); err != nil {
			log.Printf("Skip backfill for company %s: %v", c.CompanyID, err)
			result.Skipped = append(result.Skipped, c.CompanyID)
			continue
		}
		result.Enqueued = append(result.Enqueued, c.CompanyID)
	}
	return result, nil
}

// Backfill 拉取一次当前数据，反推 days 天前到今天每天的快照。
// 只有全部写入成功才标记公司回填完成。
func (s *BackfillService) Backfill(ctx context.Context, companyID string, days int, onProgress ProgressFunc) error {
	if companyID == "" {
		return ErrCompanyIDRequired
	}
	if days <= 0 {
		days = s.cfg.Analytics.BackfillDays
	}

	now := s.now()
	log.Printf("Starting %d-day historical backfill for company %s", days, companyID)

	data, err := s.loader.load(ctx, companyID, now, true)
	if err != nil {
		return err
	}

	if data.Company != nil {
		if err := s.companyRepo.Register(data.Company); err != nil {
			return fmt.Errorf("failed to register company: %w", err)
		}
	}

	dates := analytics.BackfillDates(now, days)
	total := len(dates)
	var done int64

	concurrency := s.cfg.Analytics.BackfillConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, at := range dates {
		i, at := i, at
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			result := data.compute(at)
			snapshot := result.Snapshot(companyID, at)
			// 只在最后一天保留原始数据，供缓存读取
			if i == total-1 {
				if err := snapshot.SetRawData(data.rawData()); err != nil {
					return err
				}
			}

			err := s.snapshotRepo.Upsert(snapshot)
			s.metrics.RecordSnapshotWrite(metrics.KindBackfill, err)
			if err != nil {
				return fmt.Errorf("failed to save snapshot for %s: %w", at.Format("2006-01-02"), err)
			}

			n := atomic.AddInt64(&done, 1)
			if onProgress != nil {
				onProgress(int(n), total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.companyRepo.MarkBackfillCompleted(companyID, s.now()); err != nil {
		return fmt.Errorf("failed to mark backfill completed: %w", err)
	}

	log.Printf("Backfill complete for company %s: %d snapshots", companyID, total)
	return nil
}

// RunAll 同步回填所有未完成的公司，单个公司失败不影响其他公司
func (s *BackfillService) RunAll(ctx context.Context) (*dto.CaptureResult, error) {
	companies, err := s.companyRepo.ListNeedingBackfill()
	if err != nil {
		return nil, err
	}

	result := &dto.CaptureResult{Total: len(companies)}
	for _, c := range companies {
		if err := s.runLocked(ctx, c.CompanyID); err != nil {
			log.Printf("Backfill failed for company %s: %v", c.CompanyID, err)
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", c.CompanyID, err))
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

func (s *BackfillService) runLocked(ctx context.Context, companyID string) error {
	owner := uuid.NewString()
	claimed, err := s.locker.Claim(ctx, companyID, owner, s.cfg.Analytics.LockTTL())
	if err != nil {
		return err
	}
	if !claimed {
		return ErrBackfillRunning
	}
	defer s.releaseLock(companyID, owner)

	start := time.Now()
	err = s.Backfill(ctx, companyID, 0, nil)
	s.metrics.RecordBackfill(err, time.Since(start))
	return err
}

// Status 公司回填状态
func (s *BackfillService) Status(ctx context.Context, companyID string) (*dto.BackfillStatusResponse, error) {
	if companyID == "" {
		return nil, ErrCompanyIDRequired
	}

	company, err := s.companyRepo.GetByCompanyID(companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}

	resp := &dto.BackfillStatusResponse{
		CompanyID:           companyID,
		BackfillCompleted:   company.BackfillCompleted,
		BackfillCompletedAt: company.BackfillCompletedAt,
		LastSyncAt:          company.LastSyncAt,
	}

	job, err := s.jobRepo.GetLatestByCompany(companyID)
	if err == nil {
		resp.LatestJob = job
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	held, err := s.locker.Held(ctx, companyID)
	if err != nil {
		// Redis 不可用时退回任务表判断
		log.Printf("Failed to check backfill lock for company %s: %v", companyID, err)
		held, err = s.jobRepo.HasActive(companyID)
		if err != nil {
			return nil, err
		}
	}
	resp.Running = held
	return resp, nil
}

// Reset 管理操作：清除完成标记并释放锁，下次检查会重新回填
func (s *BackfillService) Reset(ctx context.Context, companyID string) error {
	if companyID == "" {
		return ErrCompanyIDRequired
	}
	if err := s.companyRepo.ResetBackfill(companyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCompanyNotFound
		}
		return err
	}
	return s.locker.ForceRelease(ctx, companyID)
}

// ReleaseLock 任务结束后由 worker 调用
func (s *BackfillService) ReleaseLock(ctx context.Context, companyID, owner string) error {
	return s.locker.Release(ctx, companyID, owner)
}

func (s *BackfillService) releaseLock(companyID, owner string) {
	if err := s.locker.Release(context.Background(), companyID, owner); err != nil {
		log.Printf("Failed to release backfill lock for company %s: %v", companyID, err)
	}
}
