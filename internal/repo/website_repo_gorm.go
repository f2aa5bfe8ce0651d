package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"siteforge/internal/domain"
)

type WebsiteRepo struct{ db *gorm.DB }

func NewWebsiteRepo(db *gorm.DB) *WebsiteRepo { return &WebsiteRepo{db: db} }

func (r *WebsiteRepo) Create(ctx context.Context, w *domain.Website) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *WebsiteRepo) FindByID(ctx context.Context, id string) (*domain.Website, error) {
	var w domain.Website
	err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	return &w, err
}

func (r *WebsiteRepo) FindByDomain(ctx context.Context, dom string) (*domain.Website, error) {
	var w domain.Website
	err := r.db.WithContext(ctx).First(&w, "domain = ?", dom).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	return &w, err
}

func (r *WebsiteRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Website, error) {
	var sites []domain.Website
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc").
		Find(&sites).Error
	return sites, err
}

func (r *WebsiteRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.Website, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var sites []domain.Website
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&sites).Error
	return sites, err
}

// ApplyPatch 把字段合并和 version 自增放进同一条 UPDATE。
// 并发的两次 patch 都会各自拿到一次自增，不会互相吞掉对方的 version。
func (r *WebsiteRepo) ApplyPatch(ctx context.Context, id string, p domain.WebsitePatch) (*domain.Website, error) {
	updates := map[string]any{
		"version": gorm.Expr("version + 1"),
	}
	if p.Name != nil {
		updates["name"] = *p.Name
	}
	if p.Content != nil {
		updates["content"] = *p.Content
	}
	if p.Domain != nil {
		updates["domain"] = *p.Domain
	}
	if p.Published != nil {
		updates["published"] = *p.Published
	}

	res := r.db.WithContext(ctx).
		Model(&domain.Website{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// DeleteCascade 子表先删，站点行最后删，同一事务
func (r *WebsiteRepo) DeleteCascade(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("website_id = ?", id).Delete(&domain.Collaboration{}).Error; err != nil {
			return err
		}
		if err := tx.Where("website_id = ?", id).Delete(&domain.SEOData{}).Error; err != nil {
			return err
		}
		if err := tx.Where("website_id = ?", id).Delete(&domain.EcommerceProduct{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Website{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}
