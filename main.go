package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hubhive/internal/api"
	"hubhive/internal/middleware"
	"hubhive/internal/models"
	"hubhive/internal/relay"
	"hubhive/internal/repository"
	"hubhive/internal/service"
	"hubhive/internal/storage"
	"hubhive/internal/utils"
	"hubhive/pkg/config"
	"hubhive/pkg/logger"
)

func main() {
	// 載入應用程式配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(logger.Config{Development: cfg.Log.Development})
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Sync()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化資料庫連接
	db, err := storage.Open(cfg.DB)
	if err != nil {
		return err
	}
	// 確保在程序結束時關閉數據庫連接
	defer db.Close()

	// 自動遷移資料庫結構
	if err := db.AutoMigrate(models.All()...); err != nil {
		return err
	}

	// 初始化 repositories 與 services
	repos := repository.NewRepositories(db)
	tokens := utils.NewTokenManager(cfg.JWT.Secret, utils.DefaultTokenTTL)
	services := service.NewServices(repos, tokens, service.HubConfig{
		SendBuffer: cfg.Realtime.SendBuffer,
		SendRate:   cfg.Realtime.SendRate,
		SendBurst:  cfg.Realtime.SendBurst,
	}, zlog)

	g, ctx := errgroup.WithContext(ctx)

	// 多實例部署時經由 Redis 轉發房間事件
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		redisRelay := relay.NewRedisRelay(client, cfg.Redis.Channel, zlog.Named("relay"))
		if err := redisRelay.Ping(ctx); err != nil {
			return err
		}

		// 訂閱確認前由本機分發，避免事件發佈到沒有人訂閱的頻道
		g.Go(func() error {
			return redisRelay.Run(ctx, services.Hub.Deliver, func() {
				services.Hub.SetRelay(redisRelay)
			})
		})
	}

	// 設置 Gin 路由
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(zlog.Named("http")), gin.Recovery())
	api.SetupRoutes(r, services, zlog, api.Options{ReadLimit: cfg.Realtime.ReadLimit})

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	// 啟動伺服器
	g.Go(func() error {
		zlog.Info("server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
