package database

import (
	"context"
	"fmt"

	"github.com/qs3c/ecogrid_server/config"
	"github.com/qs3c/ecogrid_server/internal/repository"
)

// Store 按 database.driver 打开的用户存储
type Store struct {
	Users repository.UserStore
	Ping  func(ctx context.Context) error
	Close func()
}

// OpenUserStore driver 为 mongo 时使用 MongoDB，否则使用 MySQL
func OpenUserStore(ctx context.Context, cfg *config.DatabaseConfig) (*Store, error) {
	switch cfg.Driver {
	case "mongo":
		client, db, err := NewMongo(&cfg.Mongo)
		if err != nil {
			return nil, err
		}

		repo := repository.NewMongoUserRepository(db, cfg.Mongo.Collection)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to create indexes: %w", err)
		}

		return &Store{
			Users: repo,
			Ping:  func(ctx context.Context) error { return client.Ping(ctx, nil) },
			Close: func() { _ = client.Disconnect(context.Background()) },
		}, nil
	case "", "mysql":
		db, err := NewMySQL(cfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}

		return &Store{
			Users: repository.NewUserRepository(db),
			Ping:  sqlDB.PingContext,
			Close: func() { _ = sqlDB.Close() },
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
