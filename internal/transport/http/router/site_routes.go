package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"siteforge/internal/domain"
	"siteforge/internal/publish"
	httpez "siteforge/internal/transport/http/ez"
)

// 公开读路径：已发布站点与模板目录，无鉴权
func mountPublicSiteRoutes(public *gin.RouterGroup, d Deps) {
	ezPublic := httpez.New(public)

	httpez.RegisterAction(ezPublic, httpez.Action[struct{}, *publish.Artifact]{
		Method: http.MethodGet,
		Path:   "/sites/:domain",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*publish.Artifact, error) {
			return d.Publish.PublicSite(c.Request.Context(), c.Param("domain"))
		},
	})

	httpez.RegisterAction(ezPublic, httpez.Action[struct{}, []domain.Template]{
		Method: http.MethodGet,
		Path:   "/templates",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Template, error) {
			return d.Engine.ListTemplates(c.Request.Context())
		},
	})

	httpez.RegisterAction(ezPublic, httpez.Action[struct{}, *domain.Template]{
		Method: http.MethodGet,
		Path:   "/templates/:templateId",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Template, error) {
			return d.Engine.GetTemplate(c.Request.Context(), c.Param("templateId"))
		},
	})
}
