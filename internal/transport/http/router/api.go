package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"siteforge/internal/core/auth"
	"siteforge/internal/fanout"
	"siteforge/internal/identity"
	"siteforge/internal/publish"
	"siteforge/internal/revision"
	mdw "siteforge/internal/transport/http/middleware"
)

type Deps struct {
	Log         *zap.Logger
	JWTer       *auth.JWTer
	Identity    *identity.Service
	Engine      *revision.Engine
	Publish     *publish.Pipeline
	Broadcaster fanout.Broadcaster
	Hub         *fanout.Hub
}

func NewAPIEngine(d Deps) *gin.Engine {
	r := gin.New()

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(16<<20),
		ginzap.RecoveryWithZap(d.Log, true),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
	)
	r.Use(cors.Default())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	// 普通 JSON 接口统一 10s 超时；长连接（SSE / ws）不挂这层
	api.Use(mdw.Timeout(10 * time.Second))

	authed := api.Group("")
	authed.Use(mdw.AuthJWT(d.JWTer))

	mountAuthRoutes(api, authed, d)
	mountWebsiteRoutes(authed, d)
	mountCatalogRoutes(authed, d)
	mountAssetRoutes(authed, d)
	mountPublicSiteRoutes(api, d)

	// 实时通道不走 /api/v1 的超时组
	rt := r.Group("")
	mountRealtimeRoutes(rt, d)

	return r
}
