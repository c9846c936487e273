package model

import (
	"time"
)

type Company struct {
	ID                  int64      `gorm:"primaryKey" json:"id"`
	CompanyID           string     `gorm:"size:64;not null;uniqueIndex" json:"company_id"`
	Title               string     `gorm:"size:200" json:"title"`
	Route               string     `gorm:"size:200" json:"route,omitempty"`
	Logo                string     `gorm:"size:500" json:"logo,omitempty"`
	BannerImage         string     `gorm:"size:500" json:"banner_image,omitempty"`
	BackfillCompleted   bool       `gorm:"default:false;index" json:"backfill_completed"`
	BackfillCompletedAt *time.Time `json:"backfill_completed_at,omitempty"`
	LastSyncAt          *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (Company) TableName() string {
	return "companies"
}
