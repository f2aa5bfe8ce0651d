package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"siteforge/internal/domain"
	"siteforge/internal/identity"
	httpez "siteforge/internal/transport/http/ez"
)

func mountAuthRoutes(public, authed *gin.RouterGroup, d Deps) {
	ezPublic := httpez.New(public)
	ezAuth := httpez.New(authed)

	type registerIn struct {
		Username string `json:"username" binding:"required,max=64"`
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}
	httpez.RegisterAction(ezPublic, httpez.Action[registerIn, *identity.AuthResult]{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *registerIn) (*identity.AuthResult, error) {
			return d.Identity.Register(c.Request.Context(), in.Username, in.Email, in.Password)
		},
	})

	type loginIn struct {
		Email    string `json:"email"    binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	httpez.RegisterAction(ezPublic, httpez.Action[loginIn, *identity.AuthResult]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (*identity.AuthResult, error) {
			return d.Identity.Authenticate(c.Request.Context(), in.Email, in.Password)
		},
	})

	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			uid, err := httpez.UserID(c)
			if err != nil {
				return nil, err
			}
			return d.Identity.Me(c.Request.Context(), uid)
		},
	})

	type passwordIn struct {
		OldPassword string `json:"oldPassword" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required,min=8"`
	}
	httpez.RegisterAction(ezAuth, httpez.Action[passwordIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/me/password",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *passwordIn) (gin.H, error) {
			uid, err := httpez.UserID(c)
			if err != nil {
				return nil, err
			}
			if err := d.Identity.ChangePassword(c.Request.Context(), uid, in.OldPassword, in.NewPassword); err != nil {
				return nil, err
			}
			return gin.H{"ok": 1}, nil
		},
	})
}
