package domain

import (
	"context"
	"time"

	"gorm.io/datatypes"
)

// SEOData / EcommerceProduct 是挂在站点下的属性包，复用站点的 ACL，
// 它们的变更不推进站点 version。

type SEOData struct {
	ID          string         `gorm:"primaryKey;type:varchar(32)" json:"id"`
	WebsiteID   string         `gorm:"uniqueIndex;type:varchar(32);not null" json:"websiteId"`
	Title       string         `gorm:"size:255" json:"title"`
	Description string         `gorm:"size:1024" json:"description"`
	Keywords    datatypes.JSON `json:"keywords"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (SEOData) TableName() string { return "seo_data" }

type EcommerceProduct struct {
	ID          string    `gorm:"primaryKey;type:varchar(32)" json:"id"`
	WebsiteID   string    `gorm:"index;type:varchar(32);not null" json:"websiteId"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	Description string    `gorm:"size:2048" json:"description"`
	Price       float64   `gorm:"not null" json:"price"`
	ImageURL    string    `gorm:"size:512" json:"imageUrl,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (EcommerceProduct) TableName() string { return "ecommerce_products" }

type SEORepository interface {
	Upsert(ctx context.Context, s *SEOData) (*SEOData, error)
	FindByWebsite(ctx context.Context, websiteID string) (*SEOData, error)
}

type ProductRepository interface {
	Create(ctx context.Context, p *EcommerceProduct) error
	FindByID(ctx context.Context, id string) (*EcommerceProduct, error)
	Update(ctx context.Context, p *EcommerceProduct) error
	Delete(ctx context.Context, id string) error
	ListByWebsite(ctx context.Context, websiteID string) ([]EcommerceProduct, error)
}
