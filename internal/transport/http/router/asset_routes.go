package router

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	httpez "siteforge/internal/transport/http/ez"
	resp "siteforge/internal/transport/http/response"
)

func mountAssetRoutes(authed *gin.RouterGroup, d Deps) {
	ezAuth := httpez.New(authed)

	// multipart 直传：字段名 file
	authed.POST("/assets", func(c *gin.Context) {
		uid := c.GetString("userId")
		if uid == "" {
			c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "unauthorized"))
			return
		}
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, "no file uploaded"))
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
			return
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
			return
		}

		url, key, err := d.Publish.UploadAsset(c.Request.Context(), uid, fh.Filename, fh.Header.Get("Content-Type"), data)
		if err != nil {
			ae := httpez.MapDomain(err)
			c.JSON(http.StatusOK, resp.Error(ae.Code, ae.Error()))
			return
		}
		c.JSON(http.StatusOK, resp.OK(gin.H{"url": url, "key": key}))
	})

	// 预签名直传（60s 过期）
	type signIn struct {
		Filename    string `json:"filename" binding:"required"`
		ContentType string `json:"contentType" binding:"required"`
	}
	type signOut struct {
		URL string `json:"url"`
		Key string `json:"key"`
	}
	httpez.RegisterAction(ezAuth, httpez.Action[signIn, signOut]{
		Method: http.MethodPost,
		Path:   "/assets/sign",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *signIn) (signOut, error) {
			uid, err := httpez.UserID(c)
			if err != nil {
				return signOut{}, err
			}
			url, key, err := d.Publish.SignedUploadURL(c.Request.Context(), uid, in.Filename, in.ContentType)
			if err != nil {
				return signOut{}, err
			}
			return signOut{URL: url, Key: key}, nil
		},
	})
}
