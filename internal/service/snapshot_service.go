package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/model"
	"github.com/qs3c/metrics_go_server/internal/model/dto"
	"github.com/qs3c/metrics_go_server/internal/pkg/metrics"
	"github.com/qs3c/metrics_go_server/internal/repository"
)

// SnapshotService 每日快照任务，由外部调度器触发
type SnapshotService struct {
	loader       *billingLoader
	snapshotRepo *repository.SnapshotRepository
	companyRepo  *repository.CompanyRepository
	metrics      *metrics.Collector
	cfg          *config.Config
	now          func() time.Time
}

func NewSnapshotService(
	source BillingSource,
	snapshotRepo *repository.SnapshotRepository,
	companyRepo *repository.CompanyRepository,
	collector *metrics.Collector,
	cfg *config.Config,
) *SnapshotService {
	return &SnapshotService{
		loader: &billingLoader{
			source:       source,
			metrics:      collector,
			lookbackDays: cfg.Whop.PaymentsLookbackDays,
		},
		snapshotRepo: snapshotRepo,
		companyRepo:  companyRepo,
		metrics:      collector,
		cfg:          cfg,
		now:          time.Now,
	}
}

// CaptureCompanySnapshot 拉取并保存当天快照，同一天重复执行会覆盖
func (s *SnapshotService) CaptureCompanySnapshot(ctx context.Context, companyID string) (*model.MetricsSnapshot, error) {
	if companyID == "" {
		return nil, ErrCompanyIDRequired
	}

	now := s.now()
	log.Printf("Starting snapshot capture for company %s", companyID)

	data, err := s.loader.load(ctx, companyID, now, true)
	if err != nil {
		return nil, err
	}

	if data.Company != nil {
		if err := s.companyRepo.Register(data.Company); err != nil {
			log.Printf("Failed to update company %s: %v", companyID, err)
		}
	}

	result := data.compute(now)
	snapshot := result.Snapshot(companyID, now)
	if err := snapshot.SetRawData(data.rawData()); err != nil {
		return nil, err
	}

	err = s.snapshotRepo.Upsert(snapshot)
	s.metrics.RecordSnapshotWrite(metrics.KindScheduled, err)
	if err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	if err := s.companyRepo.UpdateLastSync(companyID, now); err != nil {
		log.Printf("Failed to update last sync for company %s: %v", companyID, err)
	}

	log.Printf("Snapshot captured for company %s: MRR=%.2f, active=%d", companyID, snapshot.MRRTotal, snapshot.SubscribersActive)
	return snapshot, nil
}

// CaptureAllSnapshots 为所有已登记公司采集快照，单个失败只记录
func (s *SnapshotService) CaptureAllSnapshots(ctx context.Context) (*dto.CaptureResult, error) {
	companies, err := s.companyRepo.ListAll()
	if err != nil {
		return nil, err
	}

	log.Printf("Starting daily snapshot capture for %d companies", len(companies))

	result := &dto.CaptureResult{Total: len(companies)}
	for _, c := range companies {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := s.CaptureCompanySnapshot(ctx, c.CompanyID); err != nil {
			log.Printf("Failed to capture snapshot for company %s: %v", c.CompanyID, err)
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", c.CompanyID, err))
			continue
		}
		result.Succeeded++
	}

	log.Printf("Snapshot capture complete: %d succeeded, %d failed", result.Succeeded, result.Failed)
	return result, nil
}

// Cleanup 删除 keepDays 天之前的快照，companyID 为空时作用于所有公司
func (s *SnapshotService) Cleanup(ctx context.Context, keepDays int, dryRun bool, companyID string) (*dto.CleanupResult, error) {
	if keepDays <= 0 {
		keepDays = s.cfg.Retention.KeepDays
	}
	if keepDays <= 0 {
		return nil, fmt.Errorf("invalid keep days: %d", keepDays)
	}

	cutoff := model.DayStart(s.now()).AddDate(0, 0, -keepDays)
	result := &dto.CleanupResult{Cutoff: cutoff, DryRun: dryRun}

	matched, err := s.snapshotRepo.CountOlderThan(companyID, cutoff)
	if err != nil {
		return nil, err
	}
	result.Matched = matched

	if dryRun || matched == 0 {
		return result, nil
	}

	deleted, err := s.snapshotRepo.DeleteOlderThan(companyID, cutoff)
	if err != nil {
		return nil, err
	}
	result.Deleted = deleted

	log.Printf("Deleted %d snapshots older than %s", deleted, cutoff.Format("2006-01-02"))
	return result, nil
}
