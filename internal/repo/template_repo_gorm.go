package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"siteforge/internal/domain"
)

type TemplateRepo struct{ db *gorm.DB }

func NewTemplateRepo(db *gorm.DB) *TemplateRepo { return &TemplateRepo{db: db} }

func (r *TemplateRepo) List(ctx context.Context) ([]domain.Template, error) {
	var ts []domain.Template
	err := r.db.WithContext(ctx).
		Order("category, name").
		Find(&ts).Error
	return ts, err
}

func (r *TemplateRepo) FindByID(ctx context.Context, id string) (*domain.Template, error) {
	var t domain.Template
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	return &t, err
}
