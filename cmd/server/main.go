// Package main 是应用程序的入口点。
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

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"pog-gallery/internal/config"
	"pog-gallery/internal/handler"
	"pog-gallery/internal/pipeline"
	"pog-gallery/internal/repository"
	"pog-gallery/internal/service"
	"pog-gallery/pkg/database"
	"pog-gallery/pkg/ffmpeg"
	"pog-gallery/pkg/kafka"
	"pog-gallery/pkg/log"
	"pog-gallery/pkg/storage"
	"pog-gallery/pkg/token"
)

func main() {
	// 1. 初始化配置
	configPath := os.Getenv("POG_CONFIG")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. 初始化数据库、Redis 和文件存储
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatal("数据库初始化失败", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("数据库迁移失败", err)
	}
	rdb, err := database.NewRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err != nil {
		log.Fatal("Redis 初始化失败", err)
	}
	defer rdb.Close()

	store, err := newFileStore(rootCtx, cfg)
	if err != nil {
		log.Fatal("文件存储初始化失败", err)
	}

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	mediaRepo := repository.NewMediaRepository(db)
	thumbRepo := repository.NewThumbnailRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	sessionRepo := repository.NewSessionRepository(rdb)

	// 5. 缩略图转码：开启后才连接 Kafka
	var publisher service.ThumbnailPublisher
	if cfg.Thumbnail.TranscodeEnabled {
		producer := kafka.NewProducer(cfg.Kafka, rdb)
		defer producer.Close()
		publisher = producer

		extractor := ffmpeg.NewFrameExtractor(cfg.Thumbnail.FFmpegPath, cfg.Thumbnail.PreviewSize)
		processor := pipeline.NewProcessor(store, thumbRepo, extractor, cfg.Server.FileURLPrefix)
		go kafka.StartConsumer(rootCtx, cfg.Kafka, rdb, processor)
		log.Infof("缩略图转码已开启, topic: %s", cfg.Kafka.Topic)
	}

	// 6. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays, cfg.JWT.AdminTokenExpireMinutes)
	userService := service.NewUserService(userRepo, sessionRepo, jwtManager)
	thumbnailService := service.NewThumbnailService(thumbRepo, store, publisher, cfg.Thumbnail)
	mediaService := service.NewMediaService(store, mediaRepo, userRepo, thumbnailService, userService, cfg.Server.FileURLPrefix)
	voteService := service.NewVoteService(userService, userRepo)
	favoriteService := service.NewFavoriteService(userService, favoriteRepo)
	commentService := service.NewCommentService(commentRepo)
	adminService := service.NewAdminService(cfg.Admin.Username, cfg.Admin.Password, jwtManager, userRepo, mediaRepo, commentRepo, statsRepo)
	if cfg.Admin.Username == "" || cfg.Admin.Password == "" {
		log.Warnf("未配置管理员凭证，管理员接口将不可用")
	}

	// 7. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	limiters := handler.NewLimiters()
	r := handler.NewRouter(handler.Handlers{
		Media:       handler.NewMediaHandler(mediaService, cfg.Server.MaxUploadBytes()),
		User:        handler.NewUserHandler(userService),
		Interaction: handler.NewInteractionHandler(voteService, favoriteService, commentService),
		Admin:       handler.NewAdminHandler(adminService),
		Health:      handler.NewHealthHandler(healthChecks(db, rdb)),
	}, limiters, userService, adminService, cfg.Server.AllowedOrigins())

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s, 存储后端: %s", srv.Addr, cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 先停止 Kafka 消费者，再关闭 HTTP 服务器
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	limiters.Stop()
	log.Info("服务已优雅关闭")
}

// newFileStore 根据 storage.backend 创建文件存储。
func newFileStore(ctx context.Context, cfg config.Config) (storage.FileStore, error) {
	switch cfg.Storage.Backend {
	case "minio":
		client, err := storage.NewMinioClient(ctx, cfg.MinIO)
		if err != nil {
			return nil, err
		}
		return storage.NewMinioStore(client, cfg.MinIO.BucketName), nil
	default:
		srv, err := storage.NewDriveService(ctx, cfg.Drive)
		if err != nil {
			return nil, err
		}
		return storage.NewDriveStore(srv, cfg.Drive.FolderID, cfg.Drive.ThumbnailFolderID), nil
	}
}

func healthChecks(db *gorm.DB, rdb redis.Cmdable) map[string]handler.HealthCheck {
	return map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	}
}
