package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"siteforge/internal/domain"
	"siteforge/internal/publish"
	httpez "siteforge/internal/transport/http/ez"
)

func mountWebsiteRoutes(authed *gin.RouterGroup, d Deps) {
	ezAuth := httpez.New(authed)

	type createIn struct {
		Name    string         `json:"name" binding:"required,max=128"`
		Content datatypes.JSON `json:"content"`
		Domain  string         `json:"domain"`
	}
	httpez.RegisterAction(ezAuth, httpez.Action[createIn, *domain.Website]{
		Method: http.MethodPost,
		Path:   "/websites",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *createIn) (*domain.Website, error) {
			uid, err := httpez.UserID(c)
			if err != nil {
				return nil, err
			}
			return d.Engine.Create(c.Request.Context(), uid, in.Name, in.Content, in.Domain)
		},
	})

	type listIn struct {
		// shared=1 时把协作站点一并带出
		Shared int `form:"shared"`
	}
	httpez.RegisterAction(ezAuth, httpez.Action[listIn, []domain.Website]{
		Method: http.MethodGet,
		Path:   "/websites",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *listIn) ([]domain.Website, error) {
			uid, err := httpez.UserID(c)
			if err != nil {
				return nil, err
			}
			if in.Shared == 1 {
				return d.Engine.ListAccessible(c.Request.Context(), uid)
			}
			return d.Engine.ListForOwner(c.Request.Context(), uid)
		},
	})

	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, *domain.Website]{
		Method: http.MethodGet,
		Path:   "/websites/:id",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Website, error) {
			uid, err := httpez.UserID(c)
			if err != nil {
				return nil, err
			}
			return d.Engine.Get(c.Request.Context(), uid, c.Param("id"))
		},
	})

	httpez.RegisterAction(ezAuth, httpez.Action[domain.WebsitePatch, *domain.Website]{
		Method: http.MethodPut,
		Path:   "/websites/:id",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *domain.WebsitePatch) (*domain.Website, error) {
			uid, err := httpez.UserID(c)
			if err != nil {
				return nil, err
			}
			return d.Engine.ApplyMutation(c.Request.Context(), c.Param("id"), uid, *in)
		},
	})

	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/websites/:id",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			uid, err := httpez.UserID(c)
			if err != nil {
				return nil, err
			}
			if err := d.Engine.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
				return nil, err
			}
			return gin.H{"id": c.Param("id")}, nil
		},
	})

	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, *publish.Artifact]{
		Method: http.MethodPost,
		Path:   "/websites/:id/publish",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*publish.Artifact, error) {
			uid, err := httpez.UserID(c)
			if err != nil {
				return nil, err
			}
			return d.Publish.Publish(c.Request.Context(), c.Param("id"), uid)
		},
	})

	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, *domain.Website]{
		Method: http.MethodPost,
		Path:   "/websites/:id/unpublish",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Website, error) {
			uid, err := httpez.UserID(c)
			if err != nil {
				return nil, err
			}
			return d.Publish.Unpublish(c.Request.Context(), c.Param("id"), uid)
		},
	})

	// 协作者管理
	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, []domain.User]{
		Method: http.MethodGet,
		Path:   "/websites/:id/collaborators",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.User, error) {
			uid, err := httpez.UserID(c)
			if err != nil {
				return nil, err
			}
			return d.Engine.ListCollaborators(c.Request.Context(), uid, c.Param("id"))
		},
	})

	type grantIn struct {
		UserID string `json:"userId" binding:"required"`
		Role   string `json:"role"`
	}
	httpez.RegisterAction(ezAuth, httpez.Action[grantIn, *domain.Collaboration]{
		Method: http.MethodPost,
		Path:   "/websites/:id/collaborators",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *grantIn) (*domain.Collaboration, error) {
			uid, err := httpez.UserID(c)
			if err != nil {
				return nil, err
			}
			return d.Engine.GrantCollaboration(c.Request.Context(), uid, c.Param("id"), in.UserID, in.Role)
		},
	})

	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/websites/:id/collaborators/:userId",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			uid, err := httpez.UserID(c)
			if err != nil {
				return nil, err
			}
			if err := d.Engine.RevokeCollaboration(c.Request.Context(), uid, c.Param("id"), c.Param("userId")); err != nil {
				return nil, err
			}
			return gin.H{"ok": 1}, nil
		},
	})
}
