package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qrcard/internal/config"
	"qrcard/internal/models"
	"qrcard/internal/router"
	"qrcard/internal/service"
	"qrcard/internal/storage"
	"qrcard/pkg/keylock"
	"qrcard/pkg/redis_lock"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// multiLocker 先取进程内锁，再取Redis锁
type multiLocker []service.Locker

func (m multiLocker) Lock(ctx context.Context, key string) (func(), error) {
	var unlocks []func()
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, l := range m {
		unlock, err := l.Lock(ctx, key)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.Storage.Driver == "s3" {
		s3cfg := cfg.Storage.S3
		return storage.NewS3Store(ctx, storage.S3Options{
			Region:    s3cfg.Region,
			Bucket:    s3cfg.Bucket,
			AccessKey: s3cfg.AccessKey,
			SecretKey: s3cfg.SecretKey,
			Endpoint:  s3cfg.Endpoint,
			Prefix:    s3cfg.Prefix,
		})
	}
	return storage.NewLocalStore(cfg.Storage.UploadDir)
}

func main() {
	configFile := flag.String("config", "./config/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化日志
	logger := newLogger(cfg.Log)

	// 初始化数据库
	if err := models.InitDB(cfg); err != nil {
		logger.Fatalf("初始化数据库失败: %v", err)
	}
	db := models.GetDB()

	ctx := context.Background()

	// 初始化存储
	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("初始化存储失败: %v", err)
	}

	// 文件名分配锁
	locker := multiLocker{keylock.New()}
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetAddress(),
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatalf("连接Redis失败: %v", err)
		}
		defer redisClient.Close()
		locker = append(locker, redis_lock.NewRedisLock(redisClient, "qrcard:alloc:", cfg.Redis.GetLockTTL(), logger))
		logger.Info("已启用Redis分配锁")
	}

	// 设置路由
	r, err := router.SetupRouter(cfg, logger, db, store, locker)
	if err != nil {
		logger.Fatalf("初始化路由失败: %v", err)
	}

	addr := cfg.Server.GetAddress()
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("服务器启动在 %s", addr)
		logger.Infof("文件存储: %s (%s)", cfg.Storage.UploadDir, cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("启动服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭服务器")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("关闭服务器失败: %v", err)
	}
}
