package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/ecogrid_server/internal/model"
	"github.com/qs3c/ecogrid_server/internal/pkg/jwt"
	"github.com/qs3c/ecogrid_server/internal/pkg/response"
	"github.com/qs3c/ecogrid_server/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testJWTSecret = "test-secret-key-for-middleware"

type fakeRevocations struct {
	revoked map[string]bool
	err     error
}

func (f *fakeRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.revoked[id], nil
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func newToken(t *testing.T, email, role string, hours int) string {
	t.Helper()
	token, err := jwt.GenerateToken(email, role, testJWTSecret, hours)
	require.NoError(t, err)
	return token
}

func serve(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/test", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuth_Success(t *testing.T) {
	router := gin.New()
	router.Use(Auth(testJWTSecret, nil))
	router.GET("/test", func(c *gin.Context) {
		email, ok := GetEmail(c)
		assert.True(t, ok)
		assert.Equal(t, "alice@example.com", email)

		role, _ := GetRole(c)
		assert.Equal(t, model.RoleUser, role)

		claims, ok := GetClaims(c)
		assert.True(t, ok)
		assert.NotEmpty(t, claims.ID)
		c.JSON(http.StatusOK, gin.H{})
	})

	w := serve(router, "Bearer "+newToken(t, "alice@example.com", model.RoleUser, 24))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_Rejections(t *testing.T) {
	router := gin.New()
	router.Use(Auth(testJWTSecret, nil))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	otherSecret, err := jwt.GenerateToken("a@example.com", model.RoleUser, "other-secret", 24)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"no bearer prefix", "some-token-without-bearer"},
		{"invalid token", "Bearer not.a.token"},
		{"wrong secret", "Bearer " + otherSecret},
		{"expired", "Bearer " + newToken(t, "a@example.com", model.RoleUser, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, response.CodeAuthFailed, parseResponse(t, w).Code)
		})
	}
}

func TestAuth_RevokedToken(t *testing.T) {
	token := newToken(t, "alice@example.com", model.RoleUser, 1)
	claims, err := jwt.ParseToken(token, testJWTSecret)
	require.NoError(t, err)

	router := gin.New()
	router.Use(Auth(testJWTSecret, &fakeRevocations{revoked: map[string]bool{claims.ID: true}}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	w := serve(router, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// other tokens for the same user still work
	w = serve(router, "Bearer "+newToken(t, "alice@example.com", model.RoleUser, 1))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_RevocationStoreDown(t *testing.T) {
	router := gin.New()
	router.Use(Auth(testJWTSecret, &fakeRevocations{err: errors.New("redis down")}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	w := serve(router, "Bearer "+newToken(t, "alice@example.com", model.RoleUser, 1))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, response.CodeUnavailable, parseResponse(t, w).Code)
}

type fakeRoles struct {
	users map[string]*model.User
	err   error
}

func (f *fakeRoles) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func newAdminRouter(roles RoleLookup) *gin.Engine {
	router := gin.New()
	router.Use(Auth(testJWTSecret, nil), AdminOnly(roles))
	router.GET("/test", func(c *gin.Context) {
		role, _ := GetRole(c)
		c.JSON(http.StatusOK, gin.H{"role": role})
	})
	return router
}

func TestAdminOnly(t *testing.T) {
	roles := &fakeRoles{users: map[string]*model.User{
		"root@example.com":  {Email: "root@example.com", Role: model.RoleAdmin},
		"alice@example.com": {Email: "alice@example.com", Role: model.RoleUser},
	}}
	router := newAdminRouter(roles)

	w := serve(router, "Bearer "+newToken(t, "root@example.com", model.RoleAdmin, 1))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, "Bearer "+newToken(t, "alice@example.com", model.RoleUser, 1))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.CodePermissionDenied, parseResponse(t, w).Code)
}

func TestAdminOnly_StoredRoleWins(t *testing.T) {
	roles := &fakeRoles{users: map[string]*model.User{
		"root@example.com":  {Email: "root@example.com", Role: model.RoleUser},
		"alice@example.com": {Email: "alice@example.com", Role: model.RoleAdmin},
	}}
	router := newAdminRouter(roles)

	// 已降级的管理员，令牌仍声明 admin
	w := serve(router, "Bearer "+newToken(t, "root@example.com", model.RoleAdmin, 1))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.CodePermissionDenied, parseResponse(t, w).Code)

	// 新提升的管理员，旧令牌声明 user
	w = serve(router, "Bearer "+newToken(t, "alice@example.com", model.RoleUser, 1))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), model.RoleAdmin)
}

func TestAdminOnly_DeletedAccount(t *testing.T) {
	router := newAdminRouter(&fakeRoles{users: map[string]*model.User{}})

	w := serve(router, "Bearer "+newToken(t, "root@example.com", model.RoleAdmin, 1))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminOnly_StoreError(t *testing.T) {
	router := newAdminRouter(&fakeRoles{err: errors.New("db down")})

	w := serve(router, "Bearer "+newToken(t, "root@example.com", model.RoleAdmin, 1))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, response.CodeUnavailable, parseResponse(t, w).Code)
}

func TestAdminOnly_WithoutAuth(t *testing.T) {
	router := gin.New()
	router.Use(AdminOnly(&fakeRoles{}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	w := serve(router, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetEmail_NotSet(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := GetEmail(c)
	assert.False(t, ok)

	c.Set(EmailKey, 123)
	_, ok = GetEmail(c)
	assert.False(t, ok)

	_, ok = GetClaims(c)
	assert.False(t, ok)
}

func TestLogger_PassesThrough(t *testing.T) {
	router := gin.New()
	router.Use(Logger())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusTeapot, gin.H{})
	})

	w := serve(router, "")
	assert.Equal(t, http.StatusTeapot, w.Code)
}
