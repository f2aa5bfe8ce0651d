package revision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"siteforge/internal/domain"
)

func TestProductLifecycle(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	other := f.user(t, "bob")
	w, err := f.engine.Create(context.Background(), owner, "shop", nil, "")
	require.NoError(t, err)

	_, err = f.engine.CreateProduct(context.Background(), owner, w.ID, ProductInput{Name: ""})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.engine.CreateProduct(context.Background(), owner, w.ID, ProductInput{Name: "mug", Price: -1})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.engine.CreateProduct(context.Background(), other, w.ID, ProductInput{Name: "mug"})
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	p, err := f.engine.CreateProduct(context.Background(), owner, w.ID, ProductInput{Name: "mug", Price: 9.5})
	require.NoError(t, err)

	// 产品变更不推进站点 version
	got, err := f.websites.FindByID(context.Background(), w.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Version)

	up, err := f.engine.UpdateProduct(context.Background(), owner, w.ID, p.ID, ProductInput{Name: "mug xl", Price: 12})
	require.NoError(t, err)
	require.Equal(t, "mug xl", up.Name)

	list, err := f.engine.ListProducts(context.Background(), owner, w.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, f.engine.DeleteProduct(context.Background(), owner, w.ID, p.ID))
	list, err = f.engine.ListProducts(context.Background(), owner, w.ID)
	require.NoError(t, err)
	require.Empty(t, list)
}

// 拿别的站点的 productID 不能绕过父站点 ACL
func TestProductCrossSiteIsNotFound(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	wa, err := f.engine.Create(context.Background(), alice, "a", nil, "")
	require.NoError(t, err)
	wb, err := f.engine.Create(context.Background(), bob, "b", nil, "")
	require.NoError(t, err)

	p, err := f.engine.CreateProduct(context.Background(), bob, wb.ID, ProductInput{Name: "mug"})
	require.NoError(t, err)

	_, err = f.engine.UpdateProduct(context.Background(), alice, wa.ID, p.ID, ProductInput{Name: "stolen"})
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, f.engine.DeleteProduct(context.Background(), alice, wa.ID, p.ID), domain.ErrNotFound)
}

// 模板目录对任何调用方只读可见，不挂 ACL
func TestTemplates(t *testing.T) {
	f := newFixture(t)
	f.templates.Seed(
		domain.Template{Name: "Portfolio", Category: "portfolio", Content: datatypes.JSON(`{"layout":"p"}`)},
		domain.Template{Name: "Storefront", Category: "ecommerce", Content: datatypes.JSON(`{"layout":"s"}`)},
	)

	ts, err := f.engine.ListTemplates(context.Background())
	require.NoError(t, err)
	require.Len(t, ts, 2)
	// 按 category, name 排序
	require.Equal(t, "Storefront", ts[0].Name)
	require.Equal(t, "Portfolio", ts[1].Name)

	got, err := f.engine.GetTemplate(context.Background(), ts[0].ID)
	require.NoError(t, err)
	require.JSONEq(t, `{"layout":"s"}`, string(got.Content))

	_, err = f.engine.GetTemplate(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSEOUpsert(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	other := f.user(t, "bob")
	w, err := f.engine.Create(context.Background(), owner, "shop", nil, "")
	require.NoError(t, err)

	// 尚无记录时返回空对象而不是 NotFound
	s, err := f.engine.GetSEO(context.Background(), owner, w.ID)
	require.NoError(t, err)
	require.Equal(t, w.ID, s.WebsiteID)
	require.Empty(t, s.Title)

	_, err = f.engine.UpsertSEO(context.Background(), other, w.ID, SEOInput{Title: "nope"})
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	s1, err := f.engine.UpsertSEO(context.Background(), owner, w.ID, SEOInput{
		Title:    "My Shop",
		Keywords: datatypes.JSON(`["mugs","coffee"]`),
	})
	require.NoError(t, err)

	// 再次 upsert 覆盖同一条记录
	s2, err := f.engine.UpsertSEO(context.Background(), owner, w.ID, SEOInput{Title: "My Shop 2"})
	require.NoError(t, err)
	require.Equal(t, s1.ID, s2.ID)

	got, err := f.engine.GetSEO(context.Background(), owner, w.ID)
	require.NoError(t, err)
	require.Equal(t, "My Shop 2", got.Title)
}
