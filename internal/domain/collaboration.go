package domain

import (
	"context"
	"time"
)

// Collaboration 是能力授予：非 owner 用户仅当存在 (websiteId, userId) 记录
// 才能操作站点。role 只是标签，不携带权限层级。
type Collaboration struct {
	ID        string    `gorm:"primaryKey;type:varchar(32)" json:"id"`
	WebsiteID string    `gorm:"uniqueIndex:uniq_site_user;type:varchar(32);not null" json:"websiteId"`
	UserID    string    `gorm:"uniqueIndex:uniq_site_user;type:varchar(32);not null" json:"userId"`
	Role      string    `gorm:"size:32;not null" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Collaboration) TableName() string { return "collaborations" }

type CollaborationRepository interface {
	// Grant 幂等：(websiteID, userID) 已存在时返回现有记录
	Grant(ctx context.Context, c *Collaboration) (*Collaboration, error)
	Revoke(ctx context.Context, websiteID, userID string) error
	Find(ctx context.Context, websiteID, userID string) (*Collaboration, error)
	ListByWebsite(ctx context.Context, websiteID string) ([]Collaboration, error)
	ListByUser(ctx context.Context, userID string) ([]Collaboration, error)
}
