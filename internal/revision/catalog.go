package revision

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"

	"siteforge/internal/acl"
	"siteforge/internal/domain"
	"siteforge/pkg/utils"
)

// 产品与 SEO 的子变更：同样先过父站点的 ACL，但它们是独立属性存储，
// 不进文档修订历史 —— 不推进 version，也不广播。

type ProductInput struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl"`
}

func (in ProductInput) validate() error {
	if in.Name == "" {
		return fmt.Errorf("%w: product name is required", domain.ErrValidation)
	}
	if in.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	}
	return nil
}

func (e *Engine) CreateProduct(ctx context.Context, userID, websiteID string, in ProductInput) (*domain.EcommerceProduct, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := e.acl.AuthorizeWebsite(ctx, userID, websiteID, acl.ActionWrite); err != nil {
		return nil, err
	}
	p := &domain.EcommerceProduct{
		ID:          utils.NewID(),
		WebsiteID:   websiteID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		ImageURL:    in.ImageURL,
	}
	if err := e.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (e *Engine) UpdateProduct(ctx context.Context, userID, websiteID, productID string, in ProductInput) (*domain.EcommerceProduct, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := e.productForWebsite(ctx, websiteID, productID)
	if err != nil {
		return nil, err
	}
	if _, err := e.acl.AuthorizeWebsite(ctx, userID, websiteID, acl.ActionWrite); err != nil {
		return nil, err
	}
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.ImageURL = in.ImageURL
	if err := e.products.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (e *Engine) DeleteProduct(ctx context.Context, userID, websiteID, productID string) error {
	if _, err := e.productForWebsite(ctx, websiteID, productID); err != nil {
		return err
	}
	if _, err := e.acl.AuthorizeWebsite(ctx, userID, websiteID, acl.ActionWrite); err != nil {
		return err
	}
	return e.products.Delete(ctx, productID)
}

func (e *Engine) ListProducts(ctx context.Context, userID, websiteID string) ([]domain.EcommerceProduct, error) {
	if _, err := e.acl.AuthorizeWebsite(ctx, userID, websiteID, acl.ActionRead); err != nil {
		return nil, err
	}
	return e.products.ListByWebsite(ctx, websiteID)
}

// productForWebsite 防止拿别的站点的 productID 绕过 ACL
func (e *Engine) productForWebsite(ctx context.Context, websiteID, productID string) (*domain.EcommerceProduct, error) {
	p, err := e.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.WebsiteID != websiteID {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// 模板是平台级只读目录，对访客开放，不过 ACL。
// 从模板建站由客户端把模板 content 作为新站点的初始 content 提交。
func (e *Engine) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	return e.templates.List(ctx)
}

func (e *Engine) GetTemplate(ctx context.Context, templateID string) (*domain.Template, error) {
	return e.templates.FindByID(ctx, templateID)
}

type SEOInput struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Keywords    datatypes.JSON `json:"keywords"`
}

func (e *Engine) UpsertSEO(ctx context.Context, userID, websiteID string, in SEOInput) (*domain.SEOData, error) {
	if _, err := e.acl.AuthorizeWebsite(ctx, userID, websiteID, acl.ActionWrite); err != nil {
		return nil, err
	}
	return e.seo.Upsert(ctx, &domain.SEOData{
		WebsiteID:   websiteID,
		Title:       in.Title,
		Description: in.Description,
		Keywords:    in.Keywords,
	})
}

// GetSEO 站点没有 SEO 记录时返回空对象而不是 NotFound
func (e *Engine) GetSEO(ctx context.Context, userID, websiteID string) (*domain.SEOData, error) {
	if _, err := e.acl.AuthorizeWebsite(ctx, userID, websiteID, acl.ActionRead); err != nil {
		return nil, err
	}
	s, err := e.seo.FindByWebsite(ctx, websiteID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.SEOData{WebsiteID: websiteID}, nil
	}
	return s, err
}
