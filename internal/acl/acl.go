package acl

import (
	"context"
	"errors"

	"siteforge/internal/domain"
)

// Action 是策略标签。目前真正生效的边界是 owner / collaborator 二分：
// 协作者可读可写，删除与协作者管理只归 owner；role 字符串不参与判定。
type Action string

const (
	ActionRead          Action = "read"
	ActionWrite         Action = "write"
	ActionDelete        Action = "delete"
	ActionPublish       Action = "publish"
	ActionManageMembers Action = "manage-members"
)

func (a Action) ownerOnly() bool {
	return a == ActionDelete || a == ActionManageMembers
}

type Service struct {
	websites domain.WebsiteRepository
	collabs  domain.CollaborationRepository
}

func New(websites domain.WebsiteRepository, collabs domain.CollaborationRepository) *Service {
	return &Service{websites: websites, collabs: collabs}
}

// Authorize 先判存在（ErrNotFound），再判权限（ErrNotAuthorized）。
// 两类失败必须可区分，不做 owner-scoped 查询那种合并。
func (s *Service) Authorize(ctx context.Context, userID, websiteID string, action Action) error {
	_, err := s.AuthorizeWebsite(ctx, userID, websiteID, action)
	return err
}

// AuthorizeWebsite 同 Authorize，但把已加载的站点还给调用方，省一次查询
func (s *Service) AuthorizeWebsite(ctx context.Context, userID, websiteID string, action Action) (*domain.Website, error) {
	w, err := s.websites.FindByID(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	if w.OwnerID == userID {
		return w, nil
	}
	if action.ownerOnly() {
		return nil, domain.ErrNotAuthorized
	}
	if _, err := s.collabs.Find(ctx, websiteID, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotAuthorized
		}
		return nil, err
	}
	return w, nil
}
