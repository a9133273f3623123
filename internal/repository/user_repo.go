package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/ecogrid_server/internal/model"
)

// 允许投影的列，password_hash 永远不在其中
var userColumns = map[string]string{
	"email":               "email",
	"name":                "name",
	"mobile":              "mobile",
	"role":                "role",
	"location":            "latitude, longitude",
	"subscription":        "subscription_plan, subscription_price, subscription_paid",
	"notification_status": "notification_status",
	"created_at":          "created_at",
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if err != nil && isDuplicateErr(err) {
		return ErrDuplicate
	}
	return err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) GetByMobile(ctx context.Context, mobile string) (*model.User, error) {
	return r.first(ctx, "mobile = ?", mobile)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) UpdateSubscription(ctx context.Context, email string, patch model.SubscriptionPatch) (int64, error) {
	values := map[string]interface{}{
		"subscription_plan":  patch.Plan,
		"subscription_price": patch.Price,
		"subscription_paid":  patch.Paid,
	}
	if !patch.KeepNotification {
		values["notification_status"] = patch.NotificationStatus
		values["notification_error"] = ""
	}
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Updates(values)
	return result.RowsAffected, result.Error
}

func (r *UserRepository) UpdateNotification(ctx context.Context, email string, update model.NotificationUpdate) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Updates(map[string]interface{}{
		"notification_status": update.Status,
		"notification_error":  update.Error,
		"notified_at":         &now,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateLocation(ctx context.Context, email string, loc model.Location) error {
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Updates(map[string]interface{}{
		"latitude":  loc.Latitude,
		"longitude": loc.Longitude,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	result := r.db.WithContext(ctx).Where("email = ?", email).Delete(&model.User{})
	return result.RowsAffected, result.Error
}

func (r *UserRepository) List(ctx context.Context, fields ...string) ([]*model.User, error) {
	query := r.db.WithContext(ctx).Model(&model.User{}).Order("id ASC")

	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		if col, ok := userColumns[f]; ok {
			cols = append(cols, col)
		}
	}
	if len(cols) == 0 {
		query = query.Omit("password_hash")
	} else {
		query = query.Select(strings.Join(cols, ", "))
	}

	var users []*model.User
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) first(ctx context.Context, query string, args ...interface{}) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	// MySQL: Error 1062 Duplicate entry; SQLite: UNIQUE constraint failed
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
