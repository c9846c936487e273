package service

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/analytics"
	"github.com/qs3c/metrics_go_server/internal/model"
	"github.com/qs3c/metrics_go_server/internal/model/dto"
	"github.com/qs3c/metrics_go_server/internal/pkg/metrics"
	"github.com/qs3c/metrics_go_server/internal/repository"
)

const defaultHistoryDays = 30

type AnalyticsService struct {
	loader       *billingLoader
	snapshotRepo *repository.SnapshotRepository
	companyRepo  *repository.CompanyRepository
	metrics      *metrics.Collector
	cfg          *config.Config

	// 同一公司并发的实时拉取只执行一次
	inflight singleflight.Group
	now      func() time.Time
}

func NewAnalyticsService(
	source BillingSource,
	snapshotRepo *repository.SnapshotRepository,
	companyRepo *repository.CompanyRepository,
	collector *metrics.Collector,
	cfg *config.Config,
) *AnalyticsService {
	return &AnalyticsService{
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

// liveResult 实时计算结果
type liveResult struct {
	data   *billingData
	result analytics.Result
}

// GetAnalytics 优先返回缓存有效期内的快照，否则实时拉取并写入当天快照
func (s *AnalyticsService) GetAnalytics(ctx context.Context, companyID string, forceRefresh bool) (*dto.AnalyticsResponse, error) {
	if companyID == "" {
		return nil, ErrCompanyIDRequired
	}

	s.ensureRegistered(companyID)

	if !forceRefresh {
		if resp := s.freshCache(companyID); resp != nil {
			s.metrics.RecordAnalytics(metrics.SourceCache)
			return resp, nil
		}
	}

	log.Printf("[Cache MISS] Fetching fresh data for company %s", companyID)

	// 共享的拉取不跟随单个调用方取消
	shared := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(companyID, func() (interface{}, error) {
		live, err := s.fetchLive(shared, companyID)
		if err != nil {
			return nil, err
		}
		s.persist(companyID, live)
		return live, nil
	})

	select {
	case <-ctx.Done():
		s.metrics.RecordAnalytics(metrics.SourceError)
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			s.metrics.RecordAnalytics(metrics.SourceError)
			return nil, res.Err
		}
		s.metrics.RecordAnalytics(metrics.SourceLive)
		return liveResponse(companyID, res.Val.(*liveResult)), nil
	}
}

// ComputeCurrentMetrics 实时计算，不写快照
func (s *AnalyticsService) ComputeCurrentMetrics(ctx context.Context, companyID string) (*dto.AnalyticsResponse, error) {
	if companyID == "" {
		return nil, ErrCompanyIDRequired
	}

	live, err := s.fetchLive(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return liveResponse(companyID, live), nil
}

// GetCachedMetrics 最近一天的快照，不限时效
func (s *AnalyticsService) GetCachedMetrics(ctx context.Context, companyID string) (*dto.AnalyticsResponse, error) {
	if companyID == "" {
		return nil, ErrCompanyIDRequired
	}

	snapshot, err := s.snapshotRepo.GetLatest(companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}

	return cachedResponse(snapshot, nil, s.now()), nil
}

// GetHistoricalMetrics 最近 days 天的趋势，按日期升序
func (s *AnalyticsService) GetHistoricalMetrics(ctx context.Context, companyID string, days int) ([]dto.DailyMetrics, error) {
	if companyID == "" {
		return nil, ErrCompanyIDRequired
	}
	if days <= 0 {
		days = defaultHistoryDays
	}

	snapshots, err := s.snapshotRepo.ListRecent(companyID, days, s.now())
	if err != nil {
		return nil, err
	}

	out := make([]dto.DailyMetrics, 0, len(snapshots))
	for _, snap := range snapshots {
		out = append(out, dto.DailyMetrics{
			Date:              snap.Date.Format("2006-01-02"),
			MRR:               snap.MRRTotal,
			ARR:               snap.ARR,
			ActiveSubscribers: snap.ActiveUniqueSubscribers,
			ARPU:              snap.ARPU,
		})
	}
	return out, nil
}

// GetChurn 基于最近一份原始数据，比较 days 天前与现在的有效用户
func (s *AnalyticsService) GetChurn(ctx context.Context, companyID string, days int) (*dto.ChurnResponse, error) {
	if companyID == "" {
		return nil, ErrCompanyIDRequired
	}
	if days <= 0 {
		days = defaultHistoryDays
	}

	var (
		memberships []model.EnrichedMembership
		to          time.Time
	)

	snapshot, err := s.snapshotRepo.GetLatestWithRawData(companyID)
	switch {
	case err == nil:
		raw, decodeErr := snapshot.DecodeRawData()
		if decodeErr != nil {
			return nil, decodeErr
		}
		if raw != nil {
			memberships = raw.Memberships
		}
		to = snapshot.CapturedAt
	case errors.Is(err, gorm.ErrRecordNotFound):
		live, liveErr := s.fetchLive(ctx, companyID)
		if liveErr != nil {
			return nil, liveErr
		}
		memberships = live.data.Memberships
		to = live.data.FetchedAt
	default:
		return nil, err
	}

	from := to.AddDate(0, 0, -days)
	return &dto.ChurnResponse{
		CompanyID:    companyID,
		From:         from,
		To:           to,
		ChurnMetrics: analytics.ChurnBetween(memberships, from, to),
	}, nil
}

func (s *AnalyticsService) fetchLive(ctx context.Context, companyID string) (*liveResult, error) {
	now := s.now()
	data, err := s.loader.load(ctx, companyID, now, false)
	if err != nil {
		log.Printf("Failed to fetch billing data for company %s: %v", companyID, err)
		return nil, err
	}
	return &liveResult{data: data, result: data.compute(now)}, nil
}

// persist 写入当天快照，失败只记录日志
func (s *AnalyticsService) persist(companyID string, live *liveResult) {
	snapshot := live.result.Snapshot(companyID, live.data.FetchedAt)
	if err := snapshot.SetRawData(live.data.rawData()); err != nil {
		log.Printf("Failed to encode raw data for company %s: %v", companyID, err)
		return
	}

	err := s.snapshotRepo.Upsert(snapshot)
	s.metrics.RecordSnapshotWrite(metrics.KindLive, err)
	if err != nil {
		log.Printf("Failed to save snapshot for company %s: %v", companyID, err)
		return
	}
	log.Printf("Saved live snapshot for company %s (%s)", companyID, snapshot.Date.Format("2006-01-02"))
}

func (s *AnalyticsService) freshCache(companyID string) *dto.AnalyticsResponse {
	snapshot, err := s.snapshotRepo.GetLatestWithRawData(companyID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Failed to read cached snapshot for company %s: %v", companyID, err)
		}
		return nil
	}

	now := s.now()
	age := now.Sub(snapshot.CapturedAt)
	if age >= s.cfg.Analytics.CacheTTL() {
		return nil
	}

	raw, err := snapshot.DecodeRawData()
	if err != nil {
		log.Printf("Failed to decode cached raw data for company %s: %v", companyID, err)
		return nil
	}

	log.Printf("[Cache HIT] Using cached data for company %s (%ds old)", companyID, int64(age.Seconds()))
	return cachedResponse(snapshot, raw, now)
}

func (s *AnalyticsService) ensureRegistered(companyID string) {
	_, created, err := s.companyRepo.EnsureRegistered(companyID)
	if err != nil {
		log.Printf("Failed to register company %s: %v", companyID, err)
		return
	}
	if created {
		log.Printf("Registered new company %s", companyID)
	}
}

func liveResponse(companyID string, live *liveResult) *dto.AnalyticsResponse {
	return &dto.AnalyticsResponse{
		CompanyID: companyID,
		Result:    live.result,
		Plans:     planSummaries(live.data.Plans),
		Timestamp: live.data.FetchedAt,
		Cached:    false,
	}
}

func cachedResponse(snapshot *model.MetricsSnapshot, raw *model.SnapshotRawData, now time.Time) *dto.AnalyticsResponse {
	plans := []dto.PlanSummary{}
	if raw != nil {
		plans = planSummaries(raw.Plans)
	}
	age := now.Sub(snapshot.CapturedAt)
	if age < 0 {
		age = 0
	}
	return &dto.AnalyticsResponse{
		CompanyID: snapshot.CompanyID,
		Result:    analytics.FromSnapshot(snapshot),
		Plans:     plans,
		Timestamp: snapshot.CapturedAt,
		Cached:    true,
		CacheAge:  int64(age.Seconds()),
	}
}
