package domain

import (
	"context"
	"time"

	"gorm.io/datatypes"
)

// Website 是可视化编辑器操作的那份文档：content 为不透明 JSON 树，
// version 单调递增，每次被接受的文档变更 +1。
type Website struct {
	ID        string         `gorm:"primaryKey;type:varchar(32)" json:"id"`
	OwnerID   string         `gorm:"index;type:varchar(32);not null" json:"ownerId"`
	Name      string         `gorm:"size:128;not null" json:"name"`
	Content   datatypes.JSON `json:"content"`
	Domain    string         `gorm:"size:255;index" json:"domain,omitempty"`
	Published bool           `gorm:"not null;default:false" json:"published"`
	Version   int64          `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Website) TableName() string { return "websites" }

// WebsitePatch 部分更新：nil 字段保持原值。
// content 的并发写是字段级 last-writer-wins，不做合并。
type WebsitePatch struct {
	Name      *string         `json:"name"`
	Content   *datatypes.JSON `json:"content"`
	Domain    *string         `json:"domain"`
	Published *bool           `json:"published"`
}

func (p WebsitePatch) Empty() bool {
	return p.Name == nil && p.Content == nil && p.Domain == nil && p.Published == nil
}

type WebsiteRepository interface {
	Create(ctx context.Context, w *Website) error
	FindByID(ctx context.Context, id string) (*Website, error)
	FindByDomain(ctx context.Context, domain string) (*Website, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Website, error)
	ListByIDs(ctx context.Context, ids []string) ([]Website, error)

	// ApplyPatch 在同一条 UPDATE 里合并字段并执行 version = version + 1，
	// 这是整个修订引擎唯一要求严格原子的点。行不存在返回 ErrNotFound。
	ApplyPatch(ctx context.Context, id string, p WebsitePatch) (*Website, error)

	// DeleteCascade 在一个事务里删除站点及其 collaborations / seo_data /
	// ecommerce_products 子记录。
	DeleteCascade(ctx context.Context, id string) error
}
