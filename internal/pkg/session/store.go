package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const revokedKeyPrefix = "session:revoked:"

// Store 保存已注销令牌的 ID，直到令牌本身过期
type Store struct {
	rdb *redis.Client
}

// NewStore 创建注销记录存储
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Revoke 标记令牌已注销，保留 ttl
func (s *Store) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return fmt.Errorf("empty token id")
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked 令牌是否已注销
func (s *Store) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := s.rdb.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token: %w", err)
	}
	return n > 0, nil
}
