package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"siteforge/internal/acl"
	"siteforge/internal/core/auth"
	"siteforge/internal/core/cache"
	"siteforge/internal/core/config"
	"siteforge/internal/core/database"
	"siteforge/internal/core/logger"
	"siteforge/internal/core/server"
	"siteforge/internal/domain"
	"siteforge/internal/fanout"
	"siteforge/internal/identity"
	"siteforge/internal/publish"
	"siteforge/internal/repo"
	"siteforge/internal/revision"
	"siteforge/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))

	var (
		log     *zap.Logger
		cleanup func()
	)
	if cfg.Log.File != "" {
		log, cleanup = logger.NewWithRotate(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File)
	} else {
		log, cleanup = logger.New(cfg.Log.Level, cfg.Log.JSON)
	}
	defer cleanup()

	// 数据库（失败会直接 Fatal）
	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(
			&domain.User{},
			&domain.Website{},
			&domain.Collaboration{},
			&domain.SEOData{},
			&domain.EcommerceProduct{},
			&domain.Template{},
		); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	// redis：公开读缓存 + 跨节点变更广播共用同一个客户端
	rc := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer rc.Close()

	// JWT
	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}

	// 仓储
	users := repo.NewUserRepo(db)
	websites := repo.NewWebsiteRepo(db)
	collabs := repo.NewCollaborationRepo(db)
	seo := repo.NewSEORepo(db)
	products := repo.NewProductRepo(db)
	templates := repo.NewTemplateRepo(db)

	// 变更扇出：多节点部署走 redis pub/sub，单机可切 memory
	var bc fanout.Broadcaster
	switch cfg.Fanout.Driver {
	case "memory":
		bc = fanout.NewMemoryBroadcaster()
	default:
		bc = fanout.NewRedisBroadcaster(rc.RDB, log)
	}
	defer bc.Close()

	hub := fanout.NewHub(log)
	defer hub.Close()

	// 对象存储
	s3c, presigner, err := publish.NewS3Client(context.Background(), cfg.S3)
	if err != nil {
		log.Fatal("s3 client", zap.Error(err))
	}
	uploader := publish.NewUploader(s3c, presigner, cfg.S3.Bucket, cfg.S3.PublicBaseURL, publish.PassthroughOptimizer{}, log)

	// 领域服务
	aclSvc := acl.New(websites, collabs)
	identitySvc := identity.New(users, jwter, log)
	engine := revision.New(websites, users, collabs, seo, products, templates, aclSvc, bc, log)
	pipeline := publish.NewPipeline(engine, websites, seo, uploader, rc, log)

	r := router.NewAPIEngine(router.Deps{
		Log:         log,
		JWTer:       jwter,
		Identity:    identitySvc,
		Engine:      engine,
		Publish:     pipeline,
		Broadcaster: bc,
		Hub:         hub,
	})

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	// 启动日志
	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("siteforge api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1"),
	)

	// 异步启动
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("siteforge api start FAILED", zap.Error(err))
		}
	}()
	log.Info("siteforge api started SUCCESS")

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("siteforge api stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
