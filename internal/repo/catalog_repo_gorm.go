package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"siteforge/internal/domain"
	"siteforge/pkg/utils"
)

type SEORepo struct{ db *gorm.DB }

func NewSEORepo(db *gorm.DB) *SEORepo { return &SEORepo{db: db} }

// Upsert 以 website_id 为冲突键覆盖写入（1:1）
func (r *SEORepo) Upsert(ctx context.Context, s *domain.SEOData) (*domain.SEOData, error) {
	if s.ID == "" {
		s.ID = utils.NewID()
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "website_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description", "keywords", "updated_at"}),
		}).
		Create(s).Error
	if err != nil {
		return nil, err
	}
	return r.FindByWebsite(ctx, s.WebsiteID)
}

func (r *SEORepo) FindByWebsite(ctx context.Context, websiteID string) (*domain.SEOData, error) {
	var s domain.SEOData
	err := r.db.WithContext(ctx).First(&s, "website_id = ?", websiteID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	return &s, err
}

type ProductRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) Create(ctx context.Context, p *domain.EcommerceProduct) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProductRepo) FindByID(ctx context.Context, id string) (*domain.EcommerceProduct, error) {
	var p domain.EcommerceProduct
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	return &p, err
}

func (r *ProductRepo) Update(ctx context.Context, p *domain.EcommerceProduct) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.EcommerceProduct{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepo) ListByWebsite(ctx context.Context, websiteID string) ([]domain.EcommerceProduct, error) {
	var ps []domain.EcommerceProduct
	err := r.db.WithContext(ctx).
		Where("website_id = ?", websiteID).
		Order("created_at desc").
		Find(&ps).Error
	return ps, err
}
