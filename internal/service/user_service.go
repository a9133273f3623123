package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/ecogrid_server/internal/model"
	"github.com/qs3c/ecogrid_server/internal/model/dto"
	"github.com/qs3c/ecogrid_server/internal/pkg/logger"
	"github.com/qs3c/ecogrid_server/internal/repository"
)

var (
	ErrProtectedUser    = errors.New("cannot delete admin user")
	ErrPermissionDenied = errors.New("admin access required")
)

type UserService struct {
	users repository.UserStore
}

func NewUserService(users repository.UserStore) *UserService {
	return &UserService{users: users}
}

// GetDetails 获取当前用户详情
func (s *UserService) GetDetails(ctx context.Context, email string) (*dto.UserInfo, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return buildUserInfo(user), nil
}

// Locations 地图数据，只返回设置了坐标的用户
func (s *UserService) Locations(ctx context.Context) ([]dto.UserLocation, error) {
	users, err := s.users.List(ctx, "name", "location")
	if err != nil {
		return nil, err
	}

	locations := make([]dto.UserLocation, 0, len(users))
	for _, u := range users {
		loc := u.Location()
		if loc == nil {
			continue
		}
		locations = append(locations, dto.UserLocation{
			Name:      u.Name,
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
		})
	}
	return locations, nil
}

// UpdateLocation 更新当前用户坐标
func (s *UserService) UpdateLocation(ctx context.Context, email string, req *dto.UpdateLocationRequest) error {
	err := s.users.UpdateLocation(ctx, email, model.Location{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// ListUsers 管理员查看所有用户
func (s *UserService) ListUsers(ctx context.Context) ([]*dto.UserInfo, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	list := make([]*dto.UserInfo, 0, len(users))
	for _, u := range users {
		list = append(list, buildUserInfo(u))
	}
	return list, nil
}

// DeleteUser 删除用户。受保护账号无论谁请求都拒绝，其次才检查请求者角色
func (s *UserService) DeleteUser(ctx context.Context, requesterEmail, targetEmail string) error {
	targetEmail = normalizeEmail(targetEmail)

	target, err := s.users.GetByEmail(ctx, targetEmail)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if target != nil && target.IsProtected() {
		return ErrProtectedUser
	}

	// 角色以存储为准，不信任令牌里的声明
	requester, err := s.users.GetByEmail(ctx, requesterEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPermissionDenied
		}
		return err
	}
	if !requester.IsAdmin() {
		return ErrPermissionDenied
	}

	if target == nil {
		return ErrUserNotFound
	}

	deleted, err := s.users.DeleteByEmail(ctx, targetEmail)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrUserNotFound
	}

	logger.Get().Info("user deleted",
		zap.String("target", targetEmail),
		zap.String("by", requesterEmail))
	return nil
}

func buildUserInfo(user *model.User) *dto.UserInfo {
	info := &dto.UserInfo{
		Email:              user.Email,
		Name:               user.Name,
		Role:               user.Role,
		Location:           user.Location(),
		Subscription:       user.Subscription(),
		NotificationStatus: user.NotificationStatus,
		NotificationError:  user.NotificationError,
	}
	if user.Mobile != nil {
		info.Mobile = *user.Mobile
	}
	if !user.CreatedAt.IsZero() {
		info.CreatedAt = user.CreatedAt.Format(time.RFC3339)
	}
	return info
}
