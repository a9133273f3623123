package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/ecogrid_server/internal/api/middleware"
	"github.com/qs3c/ecogrid_server/internal/model/dto"
	"github.com/qs3c/ecogrid_server/internal/pkg/response"
	"github.com/qs3c/ecogrid_server/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GetDetails 获取当前用户详情
// GET /get_user_details
func (h *UserHandler) GetDetails(c *gin.Context) {
	email, _ := middleware.GetEmail(c)

	info, err := h.userService.GetDetails(c.Request.Context(), email)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, info)
}

// Locations 用户位置地图
// GET /api/locations
func (h *UserHandler) Locations(c *gin.Context) {
	locations, err := h.userService.Locations(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, locations)
}

// UpdateLocation 更新当前用户坐标
// PUT /api/location
func (h *UserHandler) UpdateLocation(c *gin.Context) {
	email, _ := middleware.GetEmail(c)

	var req dto.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.userService.UpdateLocation(c.Request.Context(), email, &req); err != nil {
		handleServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "Location updated", nil)
}

// ListUsers 管理员查看用户
// GET /api/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, users)
}

// DeleteUser 删除用户
// POST /api/users/delete
func (h *UserHandler) DeleteUser(c *gin.Context) {
	email, _ := middleware.GetEmail(c)

	var req dto.DeleteUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), email, req.Email); err != nil {
		handleServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "User deleted", nil)
}
