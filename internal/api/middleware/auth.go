package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qs3c/ecogrid_server/internal/model"
	"github.com/qs3c/ecogrid_server/internal/pkg/jwt"
	"github.com/qs3c/ecogrid_server/internal/pkg/logger"
	"github.com/qs3c/ecogrid_server/internal/pkg/response"
	"github.com/qs3c/ecogrid_server/internal/repository"
)

const (
	EmailKey  = "email"
	RoleKey   = "role"
	ClaimsKey = "claims"
)

// RevocationChecker 查询令牌是否已注销
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Auth JWT 认证中间件，revoked 为 nil 时不检查注销
func Auth(jwtSecret string, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "Authentication required")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			response.AuthError(c, "Invalid authorization header")
			c.Abort()
			return
		}

		claims, ok := Authenticate(c, tokenString, jwtSecret, revoked)
		if !ok {
			c.Abort()
			return
		}

		SetClaims(c, claims)
		c.Next()
	}
}

// Authenticate 校验令牌和注销状态，失败时已写入响应
func Authenticate(c *gin.Context, tokenString, jwtSecret string, revoked RevocationChecker) (*jwt.Claims, bool) {
	claims, err := jwt.ParseToken(tokenString, jwtSecret)
	if err != nil {
		response.AuthError(c, "Invalid or expired token")
		return nil, false
	}

	if revoked != nil {
		isRevoked, err := revoked.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			logger.Get().Error("check token revocation failed", zap.Error(err))
			response.UnavailableError(c, "")
			return nil, false
		}
		if isRevoked {
			response.AuthError(c, "Token has been logged out")
			return nil, false
		}
	}
	return claims, true
}

// RoleLookup 读取账号当前存储的角色
type RoleLookup interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// AdminOnly 需要在 Auth 之后使用，按存储的角色判断，令牌里的角色只作参考
func AdminOnly(users RoleLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, ok := GetEmail(c)
		if !ok {
			response.PermissionError(c, "Admin access required")
			c.Abort()
			return
		}

		user, err := users.GetByEmail(c.Request.Context(), email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				response.PermissionError(c, "Admin access required")
			} else {
				logger.Get().Error("load requester role failed", zap.String("email", email), zap.Error(err))
				response.UnavailableError(c, "")
			}
			c.Abort()
			return
		}
		if !user.IsAdmin() {
			response.PermissionError(c, "Admin access required")
			c.Abort()
			return
		}

		c.Set(RoleKey, user.Role)
		c.Next()
	}
}

// SetClaims 把身份写入上下文
func SetClaims(c *gin.Context, claims *jwt.Claims) {
	c.Set(ClaimsKey, claims)
	c.Set(EmailKey, claims.Email)
	c.Set(RoleKey, claims.Role)
}

// GetEmail 从上下文获取用户邮箱
func GetEmail(c *gin.Context) (string, bool) {
	email, ok := c.Get(EmailKey)
	if !ok {
		return "", false
	}
	s, ok := email.(string)
	return s, ok && s != ""
}

// GetRole 从上下文获取用户角色
func GetRole(c *gin.Context) (string, bool) {
	role, ok := c.Get(RoleKey)
	if !ok {
		return "", false
	}
	s, ok := role.(string)
	return s, ok
}

// GetClaims 从上下文获取令牌声明
func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}
