package publish

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"siteforge/internal/core/cache"
	"siteforge/internal/domain"
	"siteforge/internal/revision"
)

// Artifact 是对外访客看到的只读视图，由当前站点行派生，不单独落库
type Artifact struct {
	WebsiteID string          `json:"websiteId"`
	Name      string          `json:"name"`
	Domain    string          `json:"domain,omitempty"`
	Content   datatypes.JSON  `json:"content"`
	Version   int64           `json:"version"`
	SEO       *domain.SEOData `json:"seo,omitempty"`
}

type Pipeline struct {
	engine   *revision.Engine
	websites domain.WebsiteRepository
	seo      domain.SEORepository
	uploader *Uploader
	cache    *cache.Cache // 可为 nil（测试/无 redis）
	log      *zap.Logger
}

const publicCacheTTL = 30 * time.Second

func NewPipeline(engine *revision.Engine, websites domain.WebsiteRepository, seo domain.SEORepository, up *Uploader, c *cache.Cache, log *zap.Logger) *Pipeline {
	return &Pipeline{engine: engine, websites: websites, seo: seo, uploader: up, cache: c, log: log}
}

// Publish 走修订引擎把 published 置真（version 照常 +1、照常广播），
// 发布时不做任何内容变换，content 原样服务给访客。
func (p *Pipeline) Publish(ctx context.Context, websiteID, userID string) (*Artifact, error) {
	published := true
	w, err := p.engine.ApplyMutation(ctx, websiteID, userID, domain.WebsitePatch{Published: &published})
	if err != nil {
		return nil, err
	}
	p.invalidate(ctx, w)
	p.log.Info("website published",
		zap.String("website_id", websiteID),
		zap.Int64("version", w.Version))
	return p.artifact(ctx, w), nil
}

// Unpublish 下线站点（同样经由修订引擎）
func (p *Pipeline) Unpublish(ctx context.Context, websiteID, userID string) (*domain.Website, error) {
	published := false
	w, err := p.engine.ApplyMutation(ctx, websiteID, userID, domain.WebsitePatch{Published: &published})
	if err != nil {
		return nil, err
	}
	p.invalidate(ctx, w)
	return w, nil
}

// PublicSite 无鉴权读路径：按 domain 或站点 id 取已发布站点，redis 缓存
func (p *Pipeline) PublicSite(ctx context.Context, domainOrID string) (*Artifact, error) {
	if p.cache == nil {
		return p.loadPublic(ctx, domainOrID)
	}
	return cache.GetOrLoadJSON(p.cache, ctx, "pubsite:"+domainOrID, publicCacheTTL,
		func(ctx context.Context) (*Artifact, error) {
			return p.loadPublic(ctx, domainOrID)
		})
}

func (p *Pipeline) UploadAsset(ctx context.Context, userID, filename, contentType string, data []byte) (url, key string, err error) {
	return p.uploader.UploadAsset(ctx, userID, filename, contentType, data)
}

func (p *Pipeline) SignedUploadURL(ctx context.Context, userID, filename, contentType string) (url, key string, err error) {
	return p.uploader.SignedUploadURL(ctx, userID, filename, contentType)
}

func (p *Pipeline) loadPublic(ctx context.Context, domainOrID string) (*Artifact, error) {
	w, err := p.websites.FindByDomain(ctx, domainOrID)
	if errors.Is(err, domain.ErrNotFound) {
		w, err = p.websites.FindByID(ctx, domainOrID)
	}
	if err != nil {
		return nil, err
	}
	if !w.Published {
		return nil, domain.ErrNotFound
	}
	return p.artifact(ctx, w), nil
}

func (p *Pipeline) artifact(ctx context.Context, w *domain.Website) *Artifact {
	a := &Artifact{
		WebsiteID: w.ID,
		Name:      w.Name,
		Domain:    w.Domain,
		Content:   w.Content,
		Version:   w.Version,
	}
	if s, err := p.seo.FindByWebsite(ctx, w.ID); err == nil {
		a.SEO = s
	}
	return a
}

func (p *Pipeline) invalidate(ctx context.Context, w *domain.Website) {
	if p.cache == nil {
		return
	}
	keys := []string{"pubsite:" + w.ID}
	if w.Domain != "" {
		keys = append(keys, "pubsite:"+w.Domain)
	}
	p.cache.Invalidate(ctx, keys...)
}
