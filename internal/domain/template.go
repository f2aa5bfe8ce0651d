package domain

import (
	"context"
	"time"

	"gorm.io/datatypes"
)

// Template 是平台提供的起步文档：content 与站点的 content 同构，
// 对所有访客只读可见，没有 owner。
type Template struct {
	ID        string         `gorm:"primaryKey;type:varchar(32)" json:"id"`
	Name      string         `gorm:"size:128;not null" json:"name"`
	Category  string         `gorm:"size:64;index;not null" json:"category"`
	Content   datatypes.JSON `json:"content"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Template) TableName() string { return "templates" }

type TemplateRepository interface {
	List(ctx context.Context) ([]Template, error)
	FindByID(ctx context.Context, id string) (*Template, error)
}
