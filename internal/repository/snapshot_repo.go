package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/metrics_go_server/internal/model"
)

type SnapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Upsert 按 (company_id, date) 写入，同一天的快照直接覆盖
func (r *SnapshotRepository) Upsert(s *model.MetricsSnapshot) error {
	s.Date = model.DayStart(s.Date)
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}, {Name: "date"}},
		UpdateAll: true,
	}).Create(s).Error
}

// GetLatest 最近一天的快照，不加载原始数据
func (r *SnapshotRepository) GetLatest(companyID string) (*model.MetricsSnapshot, error) {
	var s model.MetricsSnapshot
	err := r.db.Omit("raw_data").
		Where("company_id = ?", companyID).
		Order("date DESC").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetLatestWithRawData 最近一条带原始数据的快照
func (r *SnapshotRepository) GetLatestWithRawData(companyID string) (*model.MetricsSnapshot, error) {
	var s model.MetricsSnapshot
	err := r.db.Where("company_id = ? AND raw_data IS NOT NULL", companyID).
		Order("date DESC").
		Order("captured_at DESC").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SnapshotRepository) GetByDate(companyID string, date time.Time) (*model.MetricsSnapshot, error) {
	var s model.MetricsSnapshot
	err := r.db.Where("company_id = ? AND date = ?", companyID, model.DayStart(date)).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListRange 按日期升序返回 [start, end] 内的快照
func (r *SnapshotRepository) ListRange(companyID string, start, end time.Time) ([]*model.MetricsSnapshot, error) {
	var snapshots []*model.MetricsSnapshot
	err := r.db.Omit("raw_data").
		Where("company_id = ? AND date >= ? AND date <= ?", companyID, model.DayStart(start), model.DayStart(end)).
		Order("date ASC").
		Find(&snapshots).Error
	return snapshots, err
}

// ListRecent 最近 days 天（含今天）的快照
func (r *SnapshotRepository) ListRecent(companyID string, days int, now time.Time) ([]*model.MetricsSnapshot, error) {
	return r.ListRange(companyID, now.AddDate(0, 0, -days), now)
}

// CountSince 统计 since 当天及之后的快照数量
func (r *SnapshotRepository) CountSince(companyID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.MetricsSnapshot{}).
		Where("company_id = ? AND date >= ?", companyID, model.DayStart(since)).
		Count(&count).Error
	return count, err
}

func (r *SnapshotRepository) olderThan(companyID string, cutoff time.Time) *gorm.DB {
	q := r.db.Model(&model.MetricsSnapshot{}).Where("date < ?", model.DayStart(cutoff))
	if companyID != "" {
		q = q.Where("company_id = ?", companyID)
	}
	return q
}

// CountOlderThan companyID 为空时统计所有公司
func (r *SnapshotRepository) CountOlderThan(companyID string, cutoff time.Time) (int64, error) {
	var count int64
	err := r.olderThan(companyID, cutoff).Count(&count).Error
	return count, err
}

// DeleteOlderThan 删除 cutoff 之前的快照，companyID 为空时作用于所有公司
func (r *SnapshotRepository) DeleteOlderThan(companyID string, cutoff time.Time) (int64, error) {
	q := r.db.Where("date < ?", model.DayStart(cutoff))
	if companyID != "" {
		q = q.Where("company_id = ?", companyID)
	}
	result := q.Delete(&model.MetricsSnapshot{})
	return result.RowsAffected, result.Error
}
