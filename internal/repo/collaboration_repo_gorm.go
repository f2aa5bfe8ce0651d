package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"siteforge/internal/domain"
)

type CollaborationRepo struct{ db *gorm.DB }

func NewCollaborationRepo(db *gorm.DB) *CollaborationRepo { return &CollaborationRepo{db: db} }

// Grant 依赖 (website_id, user_id) 复合唯一索引；冲突时不写入，返回已有记录
func (r *CollaborationRepo) Grant(ctx context.Context, c *domain.Collaboration) (*domain.Collaboration, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "website_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(c)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return r.Find(ctx, c.WebsiteID, c.UserID)
	}
	return c, nil
}

func (r *CollaborationRepo) Revoke(ctx context.Context, websiteID, userID string) error {
	res := r.db.WithContext(ctx).
		Where("website_id = ? AND user_id = ?", websiteID, userID).
		Delete(&domain.Collaboration{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CollaborationRepo) Find(ctx context.Context, websiteID, userID string) (*domain.Collaboration, error) {
	var c domain.Collaboration
	err := r.db.WithContext(ctx).
		First(&c, "website_id = ? AND user_id = ?", websiteID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	return &c, err
}

func (r *CollaborationRepo) ListByWebsite(ctx context.Context, websiteID string) ([]domain.Collaboration, error) {
	var cs []domain.Collaboration
	err := r.db.WithContext(ctx).Where("website_id = ?", websiteID).Find(&cs).Error
	return cs, err
}

func (r *CollaborationRepo) ListByUser(ctx context.Context, userID string) ([]domain.Collaboration, error) {
	var cs []domain.Collaboration
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&cs).Error
	return cs, err
}
