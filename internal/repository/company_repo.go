package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/metrics_go_server/internal/model"
)

type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) GetByCompanyID(companyID string) (*model.Company, error) {
	var c model.Company
	err := r.db.Where("company_id = ?", companyID).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// EnsureRegistered 首次出现的公司自动登记，返回是否新建
func (r *CompanyRepository) EnsureRegistered(companyID string) (*model.Company, bool, error) {
	c := &model.Company{CompanyID: companyID, Title: companyID}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}},
		DoNothing: true,
	}).Create(c)
	if result.Error != nil {
		return nil, false, result.Error
	}

	created := result.RowsAffected > 0
	existing, err := r.GetByCompanyID(companyID)
	if err != nil {
		return nil, false, err
	}
	return existing, created, nil
}

// Register 写入平台公司信息，不修改回填状态
func (r *CompanyRepository) Register(info *model.CompanyInfo) error {
	c := &model.Company{
		CompanyID:   info.ID,
		Title:       info.Title,
		Route:       info.Route,
		Logo:        info.Logo,
		BannerImage: info.BannerImage,
	}
	if c.Title == "" {
		c.Title = info.ID
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "route", "logo", "banner_image", "updated_at"}),
	}).Create(c).Error
}

// MarkBackfillCompleted 只会从 false 变为 true
func (r *CompanyRepository) MarkBackfillCompleted(companyID string, at time.Time) error {
	return r.db.Model(&model.Company{}).
		Where("company_id = ? AND backfill_completed = ?", companyID, false).
		Updates(map[string]interface{}{
			"backfill_completed":    true,
			"backfill_completed_at": at,
		}).Error
}

// ResetBackfill 管理操作：清除回填状态以便重新回填
func (r *CompanyRepository) ResetBackfill(companyID string) error {
	result := r.db.Model(&model.Company{}).
		Where("company_id = ?", companyID).
		Updates(map[string]interface{}{
			"backfill_completed":    false,
			"backfill_completed_at": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *CompanyRepository) UpdateLastSync(companyID string, at time.Time) error {
	return r.db.Model(&model.Company{}).
		Where("company_id = ?", companyID).
		Update("last_sync_at", at).Error
}

func (r *CompanyRepository) ListAll() ([]*model.Company, error) {
	var companies []*model.Company
	err := r.db.Order("id ASC").Find(&companies).Error
	return companies, err
}

// ListNeedingBackfill 尚未完成回填的公司
func (r *CompanyRepository) ListNeedingBackfill() ([]*model.Company, error) {
	var companies []*model.Company
	err := r.db.Where("backfill_completed = ?", false).Order("id ASC").Find(&companies).Error
	return companies, err
}
