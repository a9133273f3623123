package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/ecogrid_server/config"
	"github.com/qs3c/ecogrid_server/internal/database"
	"github.com/qs3c/ecogrid_server/internal/pkg/logger"
	"github.com/qs3c/ecogrid_server/internal/pkg/pubsub"
	"github.com/qs3c/ecogrid_server/internal/service"
)

var (
	dryRun    = flag.Bool("dry-run", true, "Dry run mode, only list stale notifications")
	olderThan = flag.Duration("older-than", time.Hour, "Pending notifications older than this are marked failed")
)

func main() {
	flag.Parse()

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// 连接数据库
	store, err := database.OpenUserStore(ctx, &cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer store.Close()

	// 有 Redis 时把状态变更推给在线用户
	var publisher service.StatusPublisher
	if rdb, err := database.NewRedis(&cfg.Redis); err == nil {
		defer rdb.Close()
		publisher = pubsub.NewPublisher(rdb)
	}

	notifier := service.NewNotificationService(store.Users, nil, nil, publisher, false)

	log.Info("Sweeping stale notifications",
		zap.Bool("dry_run", *dryRun),
		zap.Duration("older_than", *olderThan))

	expired, err := notifier.ExpireStale(ctx, *olderThan, *dryRun)
	if err != nil {
		log.Error("Sweep stopped", zap.Error(err))
	}

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Stale notification summary")
	fmt.Println(strings.Repeat("=", 60))
	for _, email := range expired {
		fmt.Println("  " + email)
	}
	fmt.Printf("Total: %d\n", len(expired))
	if *dryRun {
		fmt.Println("DRY RUN MODE - nothing was changed, run with -dry-run=false to apply")
	}
	fmt.Println(strings.Repeat("=", 60))

	if err != nil {
		os.Exit(1)
	}
}
