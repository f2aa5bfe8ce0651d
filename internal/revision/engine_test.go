package revision

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"siteforge/internal/acl"
	"siteforge/internal/domain"
	"siteforge/internal/fanout"
	"siteforge/internal/repo"
	"siteforge/pkg/utils"
)

type fixture struct {
	engine    *Engine
	users     *repo.MemUserRepo
	websites  *repo.MemWebsiteRepo
	collabs   *repo.MemCollaborationRepo
	seo       *repo.MemSEORepo
	products  *repo.MemProductRepo
	templates *repo.MemTemplateRepo
	bc        *fanout.MemoryBroadcaster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := repo.NewMemUserRepo()
	collabs := repo.NewMemCollaborationRepo()
	seo := repo.NewMemSEORepo()
	products := repo.NewMemProductRepo()
	templates := repo.NewMemTemplateRepo()
	websites := repo.NewMemWebsiteRepo(collabs, seo, products)
	bc := fanout.NewMemoryBroadcaster()
	t.Cleanup(func() { _ = bc.Close() })

	return &fixture{
		engine:    New(websites, users, collabs, seo, products, templates, acl.New(websites, collabs), bc, zap.NewNop()),
		users:     users,
		websites:  websites,
		collabs:   collabs,
		seo:       seo,
		products:  products,
		templates: templates,
		bc:        bc,
	}
}

func (f *fixture) user(t *testing.T, name string) string {
	t.Helper()
	u := &domain.User{ID: utils.NewID(), Username: name, Email: name + "@example.com", PasswordHash: "x"}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func strPtr(s string) *string { return &s }

func jsonPtr(s string) *datatypes.JSON {
	j := datatypes.JSON([]byte(s))
	return &j
}

func TestCreateDefaults(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")

	w, err := f.engine.Create(context.Background(), owner, "my shop", nil, "")
	require.NoError(t, err)
	require.Equal(t, int64(1), w.Version)
	require.JSONEq(t, `{}`, string(w.Content))
	require.Equal(t, owner, w.OwnerID)

	_, err = f.engine.Create(context.Background(), owner, "", nil, "")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestApplyMutationBumpsVersionOnce(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	w, err := f.engine.Create(context.Background(), owner, "site", nil, "")
	require.NoError(t, err)

	got, err := f.engine.ApplyMutation(context.Background(), w.ID, owner, domain.WebsitePatch{
		Content: jsonPtr(`{"hero":"v2"}`),
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), got.Version)
	require.JSONEq(t, `{"hero":"v2"}`, string(got.Content))
}

func TestApplyMutationPartialPatch(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	w, err := f.engine.Create(context.Background(), owner, "site", datatypes.JSON(`{"a":1}`), "shop.test")
	require.NoError(t, err)

	// 只动 name，其余字段保持原值
	got, err := f.engine.ApplyMutation(context.Background(), w.ID, owner, domain.WebsitePatch{
		Name: strPtr("renamed"),
	})
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Name)
	require.JSONEq(t, `{"a":1}`, string(got.Content))
	require.Equal(t, "shop.test", got.Domain)
	require.False(t, got.Published)
}

func TestApplyMutationEmptyPatch(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	w, err := f.engine.Create(context.Background(), owner, "site", nil, "")
	require.NoError(t, err)

	_, err = f.engine.ApplyMutation(context.Background(), w.ID, owner, domain.WebsitePatch{})
	require.ErrorIs(t, err, domain.ErrValidation)
}

// N 个并发写同一站点，每个被接受的变更恰好推进 version 一格
func TestApplyMutationConcurrentVersion(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	w, err := f.engine.Create(context.Background(), owner, "site", nil, "")
	require.NoError(t, err)

	const n = 32
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.ApplyMutation(context.Background(), w.ID, owner, domain.WebsitePatch{
				Name: strPtr("racy"),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := f.websites.FindByID(context.Background(), w.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1+n), got.Version)
}

func TestApplyMutationAccessControl(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	other := f.user(t, "bob")
	w, err := f.engine.Create(context.Background(), owner, "site", nil, "")
	require.NoError(t, err)

	patch := domain.WebsitePatch{Name: strPtr("x")}

	// 站点不存在与无权限必须可区分
	_, err = f.engine.ApplyMutation(context.Background(), "no-such-site", other, patch)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.engine.ApplyMutation(context.Background(), w.ID, other, patch)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	_, err = f.engine.GrantCollaboration(context.Background(), owner, w.ID, other, "")
	require.NoError(t, err)

	got, err := f.engine.ApplyMutation(context.Background(), w.ID, other, patch)
	require.NoError(t, err)
	require.Equal(t, int64(2), got.Version)

	require.NoError(t, f.engine.RevokeCollaboration(context.Background(), owner, w.ID, other))
	_, err = f.engine.ApplyMutation(context.Background(), w.ID, other, patch)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestApplyMutationBroadcastsDocument(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	w, err := f.engine.Create(context.Background(), owner, "site", nil, "")
	require.NoError(t, err)

	ch, cancel, err := f.bc.Subscribe(context.Background(), w.ID)
	require.NoError(t, err)
	defer cancel()

	_, err = f.engine.ApplyMutation(context.Background(), w.ID, owner, domain.WebsitePatch{
		Content: jsonPtr(`{"v":2}`),
	})
	require.NoError(t, err)

	select {
	case doc := <-ch:
		require.Equal(t, w.ID, doc.ID)
		require.Equal(t, int64(2), doc.Version)
		require.JSONEq(t, `{"v":2}`, string(doc.Content))
	case <-time.After(time.Second):
		t.Fatal("no change event received")
	}
}

func TestGrantCollaboration(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	other := f.user(t, "bob")
	w, err := f.engine.Create(context.Background(), owner, "site", nil, "")
	require.NoError(t, err)

	// owner 不能是自己站点的协作者
	_, err = f.engine.GrantCollaboration(context.Background(), owner, w.ID, owner, "")
	require.ErrorIs(t, err, domain.ErrValidation)

	// 协作者必须是已注册用户
	_, err = f.engine.GrantCollaboration(context.Background(), owner, w.ID, "ghost", "")
	require.ErrorIs(t, err, domain.ErrNotFound)

	c1, err := f.engine.GrantCollaboration(context.Background(), owner, w.ID, other, "")
	require.NoError(t, err)
	require.Equal(t, "editor", c1.Role)

	// 重复授予幂等，返回既有记录
	c2, err := f.engine.GrantCollaboration(context.Background(), owner, w.ID, other, "viewer")
	require.NoError(t, err)
	require.Equal(t, c1.ID, c2.ID)

	// 协作者不能管理协作者
	third := f.user(t, "carol")
	_, err = f.engine.GrantCollaboration(context.Background(), other, w.ID, third, "")
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	users, err := f.engine.ListCollaborators(context.Background(), owner, w.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, other, users[0].ID)
}

func TestListAccessible(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	mine, err := f.engine.Create(context.Background(), alice, "mine", nil, "")
	require.NoError(t, err)
	theirs, err := f.engine.Create(context.Background(), bob, "theirs", nil, "")
	require.NoError(t, err)
	_, err = f.engine.Create(context.Background(), bob, "private", nil, "")
	require.NoError(t, err)

	_, err = f.engine.GrantCollaboration(context.Background(), bob, theirs.ID, alice, "")
	require.NoError(t, err)

	own, err := f.engine.ListForOwner(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, own, 1)

	all, err := f.engine.ListAccessible(context.Background(), alice)
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, w := range all {
		ids = append(ids, w.ID)
	}
	require.ElementsMatch(t, []string{mine.ID, theirs.ID}, ids)
}

func TestDeleteCascade(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	other := f.user(t, "bob")
	w, err := f.engine.Create(context.Background(), owner, "site", nil, "")
	require.NoError(t, err)

	_, err = f.engine.GrantCollaboration(context.Background(), owner, w.ID, other, "")
	require.NoError(t, err)
	_, err = f.engine.UpsertSEO(context.Background(), owner, w.ID, SEOInput{Title: "t"})
	require.NoError(t, err)
	p, err := f.engine.CreateProduct(context.Background(), owner, w.ID, ProductInput{Name: "mug", Price: 9.5})
	require.NoError(t, err)

	// 删除仅 owner，协作者也不行
	require.ErrorIs(t, f.engine.Delete(context.Background(), other, w.ID), domain.ErrNotAuthorized)

	require.NoError(t, f.engine.Delete(context.Background(), owner, w.ID))

	_, err = f.websites.FindByID(context.Background(), w.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.collabs.Find(context.Background(), w.ID, other)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.seo.FindByWebsite(context.Background(), w.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.products.FindByID(context.Background(), p.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	// 删除后的一切操作都是 NotFound
	require.True(t, errors.Is(f.engine.Delete(context.Background(), owner, w.ID), domain.ErrNotFound))
}
