package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/metrics_go_server/internal/model"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(job *model.BackfillJob) error {
	return r.db.Create(job).Error
}

func (r *JobRepository) GetByID(id string) (*model.BackfillJob, error) {
	var job model.BackfillJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetLatestByCompany 公司最近一次回填任务
func (r *JobRepository) GetLatestByCompany(companyID string) (*model.BackfillJob, error) {
	var job model.BackfillJob
	err := r.db.Where("company_id = ?", companyID).Order("created_at DESC").First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) Update(job *model.BackfillJob) error {
	return r.db.Save(job).Error
}

// UpdateProgress 更新已完成天数
func (r *JobRepository) UpdateProgress(id string, daysDone int) error {
	return r.db.Model(&model.BackfillJob{}).Where("id = ?", id).Update("days_done", daysDone).Error
}

// HasActive 是否存在排队中或执行中的任务
func (r *JobRepository) HasActive(companyID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.BackfillJob{}).
		Where("company_id = ? AND status IN ?", companyID, []string{model.JobQueued, model.JobProcessing}).
		Count(&count).Error
	return count > 0, err
}
