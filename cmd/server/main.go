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

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/qs3c/ecogrid_server/config"
	"github.com/qs3c/ecogrid_server/internal/api"
	"github.com/qs3c/ecogrid_server/internal/api/handler"
	"github.com/qs3c/ecogrid_server/internal/api/middleware"
	"github.com/qs3c/ecogrid_server/internal/database"
	"github.com/qs3c/ecogrid_server/internal/pkg/cron"
	"github.com/qs3c/ecogrid_server/internal/pkg/estimate"
	"github.com/qs3c/ecogrid_server/internal/pkg/estimator"
	"github.com/qs3c/ecogrid_server/internal/pkg/logger"
	"github.com/qs3c/ecogrid_server/internal/pkg/oss"
	"github.com/qs3c/ecogrid_server/internal/pkg/pubsub"
	"github.com/qs3c/ecogrid_server/internal/pkg/queue"
	"github.com/qs3c/ecogrid_server/internal/pkg/session"
	"github.com/qs3c/ecogrid_server/internal/pkg/sms"
	"github.com/qs3c/ecogrid_server/internal/pkg/ws"
	"github.com/qs3c/ecogrid_server/internal/service"
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

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid config", zap.Error(err))
	}
	if cfg.JWT.IsPlaceholder() {
		log.Warn("jwt.secret is the placeholder value, set JWT_SECRET before release",
			zap.String("mode", cfg.Server.Mode))
	}

	checks := make(map[string]handler.HealthCheck)

	// 初始化数据库
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := database.OpenUserStore(dbCtx, &cfg.Database)
	dbCancel()
	if err != nil {
		log.Fatal("Failed to connect database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer store.Close()
	users := store.Users
	checks["database"] = store.Ping
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	// 初始化 Redis（可选，缺失时通知同步发送、注销不生效）
	var (
		rdb       *redis.Client
		revoker   service.TokenRevoker
		checker   middleware.RevocationChecker
		notifyQ   service.NotificationQueue
		publisher service.StatusPublisher
	)
	if cfg.Redis.Host != "" {
		rdb, err = database.NewRedis(&cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, running without queue and token denylist", zap.Error(err))
		} else {
			defer rdb.Close()
			log.Info("Redis connected")

			sessions := session.NewStore(rdb)
			revoker, checker = sessions, sessions
			notifyQ = queue.NewQueue(rdb, cfg.Notification.Queue)
			publisher = pubsub.NewPublisher(rdb)
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		}
	}

	// 估算值登记表和定时清理
	registry := estimate.NewRegistry(cfg.Allocation.EstimateTTL())
	if cfg.Allocation.EstimateTTL() > 0 {
		pruner := cron.NewService(registry, time.Hour)
		pruner.Start()
		defer pruner.Stop()
	}

	// 回归模型（加载失败时预测接口返回 503）
	var model estimator.Model
	if m, err := estimator.Load(cfg.Estimator.ModelPath); err != nil {
		log.Warn("Generation model not loaded", zap.String("path", cfg.Estimator.ModelPath), zap.Error(err))
	} else {
		model = m
		log.Info("Generation model loaded", zap.String("path", cfg.Estimator.ModelPath))
	}
	sensor := estimator.NewRandomSensor(
		estimator.Range{Min: cfg.Estimator.SolarTempMin, Max: cfg.Estimator.SolarTempMax},
		estimator.Range{Min: cfg.Estimator.WastewaterMin, Max: cfg.Estimator.WastewaterMax},
		nil,
	)

	// 短信网关（可选）
	var gateway sms.Gateway
	if cfg.SMS.AccountSID != "" && cfg.SMS.AuthToken != "" {
		gateway = sms.NewTwilioGateway(cfg.SMS.AccountSID, cfg.SMS.AuthToken)
		log.Info("SMS gateway configured", zap.Bool("trial", cfg.SMS.Trial))
	}
	messenger := sms.NewMessenger(gateway, cfg.SMS.FromNumber, cfg.SMS.Trial)

	// 初始化 OSS（可选）
	var archiver service.QRArchiver
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Warn("Failed to init OSS client", zap.Error(err))
		} else {
			archiver = ossClient
			log.Info("OSS client initialized")
		}
	}

	// 初始化 Service
	notificationService := service.NewNotificationService(users, messenger, notifyQ, publisher, cfg.Notification.Async)
	authService := service.NewAuthService(users, revoker, cfg)
	userService := service.NewUserService(users)
	allocationService := service.NewAllocationService(users, registry,
		estimate.ParseScope(cfg.Allocation.EstimateScope), model, sensor, notificationService)
	planService := service.NewPlanService(cfg.Plans)
	qrService := service.NewQRService(planService, archiver, cfg.QR)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := authService.EnsureAdmin(ctx); err != nil {
		log.Fatal("Failed to bootstrap admin account", zap.Error(err))
	}

	// WebSocket Hub，订阅状态变更并推给在线用户
	wsHub := ws.NewHub()
	if rdb != nil {
		subscriber := pubsub.NewSubscriber(rdb)
		go func() {
			err := subscriber.Subscribe(ctx, func(msg *pubsub.StatusMessage) {
				if !wsHub.IsOnline(msg.Email) {
					return
				}
				if err := wsHub.SendToUser(msg.Email, &ws.Message{Type: msg.Type, Data: msg}); err != nil {
					log.Debug("push status failed", zap.String("email", msg.Email), zap.Error(err))
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("status subscriber stopped", zap.Error(err))
			}
		}()
	}

	// 初始化 Router
	router := api.NewRouter(
		handler.NewAuthHandler(authService),
		handler.NewUserHandler(userService),
		handler.NewEnergyHandler(allocationService),
		handler.NewPlanHandler(planService),
		handler.NewQRHandler(qrService),
		handler.NewSMSHandler(notificationService),
		handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, checker, cfg.CORS.AllowedOrigins),
		handler.NewHealthHandler(checks),
		checker,
		users,
		cfg,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router.Setup(),
	}

	// 启动服务器
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	log.Info("Server stopped")
}
