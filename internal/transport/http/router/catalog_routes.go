package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"siteforge/internal/domain"
	"siteforge/internal/revision"
	httpez "siteforge/internal/transport/http/ez"
)

func mountCatalogRoutes(authed *gin.RouterGroup, d Deps) {
	ezAuth := httpez.New(authed)

	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, *domain.SEOData]{
		Method: http.MethodGet,
		Path:   "/websites/:id/seo",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.SEOData, error) {
			uid, err := httpez.UserID(c)
			if err != nil {
				return nil, err
			}
			return d.Engine.GetSEO(c.Request.Context(), uid, c.Param("id"))
		},
	})

	httpez.RegisterAction(ezAuth, httpez.Action[revision.SEOInput, *domain.SEOData]{
		Method: http.MethodPut,
		Path:   "/websites/:id/seo",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *revision.SEOInput) (*domain.SEOData, error) {
			uid, err := httpez.UserID(c)
			if err != nil {
				return nil, err
			}
			return d.Engine.UpsertSEO(c.Request.Context(), uid, c.Param("id"), *in)
		},
	})

	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, []domain.EcommerceProduct]{
		Method: http.MethodGet,
		Path:   "/websites/:id/products",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.EcommerceProduct, error) {
			uid, err := httpez.UserID(c)
			if err != nil {
				return nil, err
			}
			return d.Engine.ListProducts(c.Request.Context(), uid, c.Param("id"))
		},
	})

	httpez.RegisterAction(ezAuth, httpez.Action[revision.ProductInput, *domain.EcommerceProduct]{
		Method: http.MethodPost,
		Path:   "/websites/:id/products",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *revision.ProductInput) (*domain.EcommerceProduct, error) {
			uid, err := httpez.UserID(c)
			if err != nil {
				return nil, err
			}
			return d.Engine.CreateProduct(c.Request.Context(), uid, c.Param("id"), *in)
		},
	})

	httpez.RegisterAction(ezAuth, httpez.Action[revision.ProductInput, *domain.EcommerceProduct]{
		Method: http.MethodPut,
		Path:   "/websites/:id/products/:productId",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *revision.ProductInput) (*domain.EcommerceProduct, error) {
			uid, err := httpez.UserID(c)
			if err != nil {
				return nil, err
			}
			return d.Engine.UpdateProduct(c.Request.Context(), uid, c.Param("id"), c.Param("productId"), *in)
		},
	})

	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/websites/:id/products/:productId",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			uid, err := httpez.UserID(c)
			if err != nil {
				return nil, err
			}
			if err := d.Engine.DeleteProduct(c.Request.Context(), uid, c.Param("id"), c.Param("productId")); err != nil {
				return nil, err
			}
			return gin.H{"id": c.Param("productId")}, nil
		},
	})
}
