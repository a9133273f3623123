package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/ecogrid_server/internal/api/middleware"
	"github.com/qs3c/ecogrid_server/internal/model/dto"
	"github.com/qs3c/ecogrid_server/internal/pkg/response"
	"github.com/qs3c/ecogrid_server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Signup 用户注册
// POST /api/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Signup(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, "Signup successful!", resp)
}

// Login 用户登录
// POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, fmt.Sprintf("Welcome %s!", resp.User.Name), resp)
}

// Logout 注销当前令牌
// GET /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, _ := middleware.GetClaims(c)
	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		handleServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Logged out", nil)
}
