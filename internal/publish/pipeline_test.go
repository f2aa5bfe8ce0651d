package publish

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"siteforge/internal/acl"
	"siteforge/internal/domain"
	"siteforge/internal/fanout"
	"siteforge/internal/repo"
	"siteforge/internal/revision"
	"siteforge/pkg/utils"
)

type pipeFixture struct {
	pipeline *Pipeline
	engine   *revision.Engine
	users    *repo.MemUserRepo
}

func newPipeFixture(t *testing.T) *pipeFixture {
	t.Helper()
	users := repo.NewMemUserRepo()
	collabs := repo.NewMemCollaborationRepo()
	seo := repo.NewMemSEORepo()
	products := repo.NewMemProductRepo()
	websites := repo.NewMemWebsiteRepo(collabs, seo, products)
	bc := fanout.NewMemoryBroadcaster()
	t.Cleanup(func() { _ = bc.Close() })

	log := zap.NewNop()
	engine := revision.New(websites, users, collabs, seo, products, repo.NewMemTemplateRepo(), acl.New(websites, collabs), bc, log)
	uploader := newTestUploader(&fakeS3{}, &fakePresign{})
	// cache 为 nil：公开读直接回源
	return &pipeFixture{
		pipeline: NewPipeline(engine, websites, seo, uploader, nil, log),
		engine:   engine,
		users:    users,
	}
}

func (f *pipeFixture) user(t *testing.T, name string) string {
	t.Helper()
	u := &domain.User{ID: utils.NewID(), Username: name, Email: name + "@example.com", PasswordHash: "x"}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func TestPublishLifecycle(t *testing.T) {
	f := newPipeFixture(t)
	owner := f.user(t, "alice")
	w, err := f.engine.Create(context.Background(), owner, "shop", datatypes.JSON(`{"hero":"hi"}`), "shop.test")
	require.NoError(t, err)

	// 未发布的站点对访客不存在
	_, err = f.pipeline.PublicSite(context.Background(), "shop.test")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.pipeline.PublicSite(context.Background(), w.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	art, err := f.pipeline.Publish(context.Background(), w.ID, owner)
	require.NoError(t, err)
	// 发布经由修订引擎，version 照常推进
	require.Equal(t, int64(2), art.Version)
	require.JSONEq(t, `{"hero":"hi"}`, string(art.Content))

	got, err := f.pipeline.PublicSite(context.Background(), "shop.test")
	require.NoError(t, err)
	require.Equal(t, w.ID, got.WebsiteID)

	// domain 与站点 id 都能命中
	byID, err := f.pipeline.PublicSite(context.Background(), w.ID)
	require.NoError(t, err)
	require.Equal(t, got.WebsiteID, byID.WebsiteID)

	unw, err := f.pipeline.Unpublish(context.Background(), w.ID, owner)
	require.NoError(t, err)
	require.False(t, unw.Published)
	require.Equal(t, int64(3), unw.Version)

	_, err = f.pipeline.PublicSite(context.Background(), "shop.test")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPublishRequiresWriteAccess(t *testing.T) {
	f := newPipeFixture(t)
	owner := f.user(t, "alice")
	stranger := f.user(t, "mallory")
	w, err := f.engine.Create(context.Background(), owner, "shop", nil, "")
	require.NoError(t, err)

	_, err = f.pipeline.Publish(context.Background(), w.ID, stranger)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	// 协作者可以发布
	collab := f.user(t, "bob")
	_, err = f.engine.GrantCollaboration(context.Background(), owner, w.ID, collab, "")
	require.NoError(t, err)
	_, err = f.pipeline.Publish(context.Background(), w.ID, collab)
	require.NoError(t, err)
}

func TestPublicSiteCarriesSEO(t *testing.T) {
	f := newPipeFixture(t)
	owner := f.user(t, "alice")
	w, err := f.engine.Create(context.Background(), owner, "shop", nil, "shop.test")
	require.NoError(t, err)

	_, err = f.engine.UpsertSEO(context.Background(), owner, w.ID, revision.SEOInput{Title: "My Shop"})
	require.NoError(t, err)
	_, err = f.pipeline.Publish(context.Background(), w.ID, owner)
	require.NoError(t, err)

	got, err := f.pipeline.PublicSite(context.Background(), "shop.test")
	require.NoError(t, err)
	require.NotNil(t, got.SEO)
	require.Equal(t, "My Shop", got.SEO.Title)
}
