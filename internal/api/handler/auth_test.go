package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/ecogrid_server/config"
	"github.com/qs3c/ecogrid_server/internal/api/middleware"
	"github.com/qs3c/ecogrid_server/internal/model"
	"github.com/qs3c/ecogrid_server/internal/model/dto"
	"github.com/qs3c/ecogrid_server/internal/pkg/jwt"
	"github.com/qs3c/ecogrid_server/internal/pkg/response"
	"github.com/qs3c/ecogrid_server/internal/repository"
	"github.com/qs3c/ecogrid_server/internal/service"
	"github.com/qs3c/ecogrid_server/internal/testutil"
)

const testJWTSecret = "test-secret-key"

func init() {
	gin.SetMode(gin.TestMode)
}

func setupAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()

	db := testutil.SetupTestDB(t)
	userRepo := repository.NewUserRepository(db)

	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:      testJWTSecret,
			ExpireHours: 24,
		},
	}

	return NewAuthHandler(service.NewAuthService(userRepo, nil, cfg))
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

// decodeData 把响应 data 解到 out
func decodeData(t *testing.T, resp response.Response, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

// mockAuth 模拟认证中间件
func mockAuth(email, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := &jwt.Claims{Email: email, Role: role}
		claims.ID = "test-token-id"
		middleware.SetClaims(c, claims)
		c.Next()
	}
}

func TestAuthHandler_Signup(t *testing.T) {
	handler := setupAuthHandler(t)

	router := gin.New()
	router.POST("/api/signup", handler.Signup)

	t.Run("success", func(t *testing.T) {
		w := performRequest(router, "POST", "/api/signup", dto.SignupRequest{
			Name:     "Alice",
			Email:    "alice@example.com",
			Password: "password123",
		})
		assert.Equal(t, http.StatusCreated, w.Code)

		resp := parseResponse(t, w)
		assert.Equal(t, response.CodeSuccess, resp.Code)
		assert.Equal(t, "Signup successful!", resp.Message)
	})

	t.Run("duplicate email", func(t *testing.T) {
		w := performRequest(router, "POST", "/api/signup", dto.SignupRequest{
			Name:     "Alice Again",
			Email:    "alice@example.com",
			Password: "password123",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, response.CodeDuplicateAction, parseResponse(t, w).Code)
	})

	t.Run("reserved name", func(t *testing.T) {
		w := performRequest(router, "POST", "/api/signup", dto.SignupRequest{
			Name:     "admin",
			Email:    "fake-admin@example.com",
			Password: "password123",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.CodeDomainRule, parseResponse(t, w).Code)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name string
			body map[string]interface{}
		}{
			{"missing email", map[string]interface{}{"name": "A", "password": "password123"}},
			{"bad email", map[string]interface{}{"name": "A", "email": "nope", "password": "password123"}},
			{"short password", map[string]interface{}{"name": "A", "email": "a@b.com", "password": "123"}},
			{"bad mobile", map[string]interface{}{"name": "A", "email": "a@b.com", "password": "password123", "mobile": "12345"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := performRequest(router, "POST", "/api/signup", tt.body)
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)
			})
		}
	})
}

func TestAuthHandler_Login(t *testing.T) {
	handler := setupAuthHandler(t)

	router := gin.New()
	router.POST("/api/signup", handler.Signup)
	router.POST("/api/login", handler.Login)

	w := performRequest(router, "POST", "/api/signup", dto.SignupRequest{
		Name:     "Bob",
		Email:    "bob@example.com",
		Password: "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("success", func(t *testing.T) {
		w := performRequest(router, "POST", "/api/login", dto.LoginRequest{
			Email:    "bob@example.com",
			Password: "password123",
		})
		assert.Equal(t, http.StatusOK, w.Code)

		resp := parseResponse(t, w)
		assert.Equal(t, "Welcome Bob!", resp.Message)

		var data dto.LoginResponse
		decodeData(t, resp, &data)
		assert.NotEmpty(t, data.Token)
		assert.Equal(t, "bob@example.com", data.User.Email)
		assert.Equal(t, model.RoleUser, data.User.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := performRequest(router, "POST", "/api/login", dto.LoginRequest{
			Email:    "bob@example.com",
			Password: "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, response.CodeAuthFailed, parseResponse(t, w).Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		w := performRequest(router, "POST", "/api/login", dto.LoginRequest{
			Email:    "nobody@example.com",
			Password: "password123",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	handler := setupAuthHandler(t)

	router := gin.New()
	router.GET("/logout", mockAuth("bob@example.com", model.RoleUser), handler.Logout)

	w := performRequest(router, "GET", "/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Logged out", parseResponse(t, w).Message)
}
