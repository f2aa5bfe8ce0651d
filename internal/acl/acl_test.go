package acl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"siteforge/internal/domain"
	"siteforge/internal/repo"
)

func seed(t *testing.T) (*Service, *domain.Website, *repo.MemCollaborationRepo) {
	t.Helper()
	collabs := repo.NewMemCollaborationRepo()
	websites := repo.NewMemWebsiteRepo(collabs, nil, nil)
	w := &domain.Website{ID: "w1", OwnerID: "owner", Name: "site"}
	require.NoError(t, websites.Create(context.Background(), w))
	return New(websites, collabs), w, collabs
}

func TestAuthorizeOwner(t *testing.T) {
	s, w, _ := seed(t)
	for _, a := range []Action{ActionRead, ActionWrite, ActionDelete, ActionPublish, ActionManageMembers} {
		require.NoError(t, s.Authorize(context.Background(), "owner", w.ID, a))
	}
}

func TestAuthorizeCollaborator(t *testing.T) {
	s, w, collabs := seed(t)
	_, err := collabs.Grant(context.Background(), &domain.Collaboration{WebsiteID: w.ID, UserID: "collab", Role: "editor"})
	require.NoError(t, err)

	require.NoError(t, s.Authorize(context.Background(), "collab", w.ID, ActionRead))
	require.NoError(t, s.Authorize(context.Background(), "collab", w.ID, ActionWrite))
	require.NoError(t, s.Authorize(context.Background(), "collab", w.ID, ActionPublish))
	// 删除与协作者管理只归 owner
	require.ErrorIs(t, s.Authorize(context.Background(), "collab", w.ID, ActionDelete), domain.ErrNotAuthorized)
	require.ErrorIs(t, s.Authorize(context.Background(), "collab", w.ID, ActionManageMembers), domain.ErrNotAuthorized)
}

func TestAuthorizeStranger(t *testing.T) {
	s, w, _ := seed(t)
	require.ErrorIs(t, s.Authorize(context.Background(), "stranger", w.ID, ActionRead), domain.ErrNotAuthorized)
}

// 存在性失败与权限失败是两种错误，不许合并
func TestAuthorizeMissingWebsite(t *testing.T) {
	s, _, _ := seed(t)
	require.ErrorIs(t, s.Authorize(context.Background(), "owner", "nope", ActionRead), domain.ErrNotFound)
}

func TestAuthorizeWebsiteReturnsRow(t *testing.T) {
	s, w, _ := seed(t)
	got, err := s.AuthorizeWebsite(context.Background(), "owner", w.ID, ActionRead)
	require.NoError(t, err)
	require.Equal(t, w.ID, got.ID)
	require.Equal(t, "site", got.Name)
}
