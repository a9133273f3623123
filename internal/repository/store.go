package repository

import (
	"context"
	"errors"

	"github.com/qs3c/ecogrid_server/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// UserStore 用户持久化，以邮箱为键
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByMobile(ctx context.Context, mobile string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// UpdateSubscription 返回被修改的记录数
	UpdateSubscription(ctx context.Context, email string, patch model.SubscriptionPatch) (int64, error)
	UpdateNotification(ctx context.Context, email string, update model.NotificationUpdate) error
	UpdateLocation(ctx context.Context, email string, loc model.Location) error
	// DeleteByEmail 返回被删除的记录数
	DeleteByEmail(ctx context.Context, email string) (int64, error)
	// List 按字段投影列出所有用户，fields 为空时返回全部字段（密码除外）
	List(ctx context.Context, fields ...string) ([]*model.User, error)
}
