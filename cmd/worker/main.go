package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/ecogrid_server/config"
	"github.com/qs3c/ecogrid_server/internal/database"
	"github.com/qs3c/ecogrid_server/internal/pkg/logger"
	"github.com/qs3c/ecogrid_server/internal/pkg/pubsub"
	"github.com/qs3c/ecogrid_server/internal/pkg/queue"
	"github.com/qs3c/ecogrid_server/internal/pkg/sms"
	"github.com/qs3c/ecogrid_server/internal/service"
	"github.com/qs3c/ecogrid_server/internal/worker"
)

const (
	popTimeout   = 5 * time.Second
	retryBackoff = 2 * time.Second
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log.Development, logger.LogLevel(cfg.Log.Level)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	// 初始化数据库
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := database.OpenUserStore(dbCtx, &cfg.Database)
	dbCancel()
	if err != nil {
		log.Fatal("Failed to connect database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer store.Close()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect redis", zap.Error(err))
	}
	defer rdb.Close()
	log.Info("Redis connected")

	// 短信网关
	var gateway sms.Gateway
	if cfg.SMS.AccountSID != "" && cfg.SMS.AuthToken != "" {
		gateway = sms.NewTwilioGateway(cfg.SMS.AccountSID, cfg.SMS.AuthToken)
	} else {
		log.Warn("SMS gateway not configured, notifications will fail")
	}
	messenger := sms.NewMessenger(gateway, cfg.SMS.FromNumber, cfg.SMS.Trial)

	// 初始化 Queue 和 Pub/Sub
	notifyQueue := queue.NewQueue(rdb, cfg.Notification.Queue)
	publisher := pubsub.NewPublisher(rdb)

	// worker 里只做投递，不再入队
	notifier := service.NewNotificationService(store.Users, messenger, nil, publisher, false)
	processor := worker.NewProcessor(notifier, notifyQueue, cfg.Notification.MaxAttempts, retryBackoff)

	// 创建 context 用于优雅关闭
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Worker started",
		zap.String("queue", cfg.Notification.Queue),
		zap.Int("max_workers", cfg.Notification.MaxWorkers),
		zap.Int("max_attempts", cfg.Notification.MaxAttempts))

	worker.Run(ctx, notifyQueue, processor, cfg.Notification.MaxWorkers, popTimeout)
	log.Info("Worker shutdown complete")
}
