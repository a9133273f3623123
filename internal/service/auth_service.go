package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/qs3c/ecogrid_server/config"
	"github.com/qs3c/ecogrid_server/internal/model"
	"github.com/qs3c/ecogrid_server/internal/model/dto"
	"github.com/qs3c/ecogrid_server/internal/pkg/jwt"
	"github.com/qs3c/ecogrid_server/internal/pkg/logger"
	"github.com/qs3c/ecogrid_server/internal/repository"
)

var (
	ErrEmailExists        = errors.New("email already exists")
	ErrMobileExists       = errors.New("mobile number already registered")
	ErrReservedName       = errors.New("this name is reserved")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// TokenRevoker 记录已注销的令牌
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}

type AuthService struct {
	users   repository.UserStore
	revoker TokenRevoker
	cfg     *config.Config
}

// NewAuthService revoker 为 nil 时注销只由客户端丢弃令牌
func NewAuthService(users repository.UserStore, revoker TokenRevoker, cfg *config.Config) *AuthService {
	return &AuthService{
		users:   users,
		revoker: revoker,
		cfg:     cfg,
	}
}

// Signup 用户注册
func (s *AuthService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.SignupResponse, error) {
	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)

	if isReservedName(name) {
		return nil, ErrReservedName
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	var mobile *string
	if req.Mobile != "" {
		_, err := s.users.GetByMobile(ctx, req.Mobile)
		if err == nil {
			return nil, ErrMobileExists
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		mobile = &req.Mobile
	}

	// 加密密码
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		Name:         name,
		Mobile:       mobile,
		PasswordHash: string(hashedPassword),
		Role:         model.RoleUser,
	}
	if req.Latitude != nil && req.Longitude != nil {
		user.Latitude = req.Latitude
		user.Longitude = req.Longitude
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	return &dto.SignupResponse{Email: user.Email}, nil
}

// Login 用户登录
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := jwt.GenerateToken(user.Email, user.Role, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token: token,
		User:  buildUserInfo(user),
	}, nil
}

// Logout 注销令牌，令牌剩余有效期内不再被接受
func (s *AuthService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.revoker == nil || claims == nil {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.ID, claims.Remaining())
}

// EnsureAdmin 启动时创建配置中的管理员账号（已存在则跳过）
func (s *AuthService) EnsureAdmin(ctx context.Context) error {
	admin := s.cfg.Admin
	if admin.Email == "" || admin.Password == "" {
		return nil
	}

	email := normalizeEmail(admin.Email)
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	name := admin.Name
	if name == "" {
		name = model.ReservedAdminName
	}

	err = s.users.Create(ctx, &model.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hashedPassword),
		Role:         model.RoleAdmin,
	})
	if err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return err
	}

	logger.Get().Info("admin account ready", zap.String("email", email))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isReservedName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), model.ReservedAdminName)
}
