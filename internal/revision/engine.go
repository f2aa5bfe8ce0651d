package revision

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"siteforge/internal/acl"
	"siteforge/internal/domain"
	"siteforge/internal/fanout"
	"siteforge/pkg/utils"
)

// Engine 是乐观并发的文档变更路径：存在性检查 → ACL → 原子合并 + version
// 自增 → 广播。站点行是互斥单元，跨站点永不加锁。
type Engine struct {
	websites domain.WebsiteRepository
	users    domain.UserRepository
	collabs  domain.CollaborationRepository
	seo       domain.SEORepository
	products  domain.ProductRepository
	templates domain.TemplateRepository
	acl       *acl.Service
	bc        fanout.Broadcaster
	log       *zap.Logger
}

func New(
	websites domain.WebsiteRepository,
	users domain.UserRepository,
	collabs domain.CollaborationRepository,
	seo domain.SEORepository,
	products domain.ProductRepository,
	templates domain.TemplateRepository,
	aclSvc *acl.Service,
	bc fanout.Broadcaster,
	log *zap.Logger,
) *Engine {
	return &Engine{
		websites:  websites,
		users:     users,
		collabs:   collabs,
		seo:       seo,
		products:  products,
		templates: templates,
		acl:       aclSvc,
		bc:        bc,
		log:       log,
	}
}

func (e *Engine) Create(ctx context.Context, ownerID, name string, content datatypes.JSON, domainName string) (*domain.Website, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if content == nil {
		content = datatypes.JSON([]byte("{}"))
	}
	w := &domain.Website{
		ID:      utils.NewID(),
		OwnerID: ownerID,
		Name:    name,
		Content: content,
		Domain:  domainName,
		Version: 1,
	}
	if err := e.websites.Create(ctx, w); err != nil {
		return nil, err
	}
	e.log.Info("website created", zap.String("website_id", w.ID), zap.String("owner_id", ownerID))
	return w, nil
}

// ApplyMutation 接受的每次变更恰好推进 version 一格。content 字段本身是
// last-writer-wins，需要更细粒度合并的调用方要在客户端先 diff。
func (e *Engine) ApplyMutation(ctx context.Context, websiteID, userID string, patch domain.WebsitePatch) (*domain.Website, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: empty patch", domain.ErrValidation)
	}
	if _, err := e.acl.AuthorizeWebsite(ctx, userID, websiteID, acl.ActionWrite); err != nil {
		return nil, err
	}
	w, err := e.websites.ApplyPatch(ctx, websiteID, patch)
	if err != nil {
		return nil, err
	}
	e.broadcast(ctx, w)
	return w, nil
}

func (e *Engine) Get(ctx context.Context, userID, websiteID string) (*domain.Website, error) {
	return e.acl.AuthorizeWebsite(ctx, userID, websiteID, acl.ActionRead)
}

func (e *Engine) ListForOwner(ctx context.Context, userID string) ([]domain.Website, error) {
	return e.websites.ListByOwner(ctx, userID)
}

// ListAccessible = 自有站点 + 作为协作者可见的站点
func (e *Engine) ListAccessible(ctx context.Context, userID string) ([]domain.Website, error) {
	own, err := e.websites.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	grants, err := e.collabs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.WebsiteID)
	}
	shared, err := e.websites.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return append(own, shared...), nil
}

// Delete 仅 owner；站点与全部子记录在一个事务里消失
func (e *Engine) Delete(ctx context.Context, userID, websiteID string) error {
	if _, err := e.acl.AuthorizeWebsite(ctx, userID, websiteID, acl.ActionDelete); err != nil {
		return err
	}
	if err := e.websites.DeleteCascade(ctx, websiteID); err != nil {
		return err
	}
	e.log.Info("website deleted", zap.String("website_id", websiteID), zap.String("user_id", userID))
	return nil
}

func (e *Engine) GrantCollaboration(ctx context.Context, ownerID, websiteID, collaboratorID, role string) (*domain.Collaboration, error) {
	w, err := e.acl.AuthorizeWebsite(ctx, ownerID, websiteID, acl.ActionManageMembers)
	if err != nil {
		return nil, err
	}
	if collaboratorID == w.OwnerID {
		return nil, fmt.Errorf("%w: owner cannot be a collaborator", domain.ErrValidation)
	}
	if _, err := e.users.FindByID(ctx, collaboratorID); err != nil {
		return nil, err
	}
	if role == "" {
		role = "editor"
	}
	return e.collabs.Grant(ctx, &domain.Collaboration{
		ID:        utils.NewID(),
		WebsiteID: websiteID,
		UserID:    collaboratorID,
		Role:      role,
	})
}

func (e *Engine) RevokeCollaboration(ctx context.Context, ownerID, websiteID, collaboratorID string) error {
	if _, err := e.acl.AuthorizeWebsite(ctx, ownerID, websiteID, acl.ActionManageMembers); err != nil {
		return err
	}
	return e.collabs.Revoke(ctx, websiteID, collaboratorID)
}

// ListCollaborators owner 或协作者都可读（组合查询）
func (e *Engine) ListCollaborators(ctx context.Context, userID, websiteID string) ([]domain.User, error) {
	if _, err := e.acl.AuthorizeWebsite(ctx, userID, websiteID, acl.ActionRead); err != nil {
		return nil, err
	}
	grants, err := e.collabs.ListByWebsite(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.UserID)
	}
	return e.users.FindByIDs(ctx, ids)
}

// broadcast 尽力而为：失败只记日志，绝不让已提交的变更看起来失败了
func (e *Engine) broadcast(ctx context.Context, w *domain.Website) {
	if e.bc == nil {
		return
	}
	if err := e.bc.Publish(ctx, w.ID, w); err != nil {
		e.log.Warn("fanout publish failed",
			zap.String("website_id", w.ID),
			zap.Int64("version", w.Version),
			zap.Error(err))
	}
}
