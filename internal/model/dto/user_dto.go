package dto

import "github.com/qs3c/ecogrid_server/internal/model"

// UserInfo 用户信息（返回给前端）
type UserInfo struct {
	Email              string              `json:"email"`
	Name               string              `json:"name"`
	Mobile             string              `json:"mobile,omitempty"`
	Role               string              `json:"role"`
	Location           *model.Location     `json:"location"`
	Subscription       *model.Subscription `json:"subscription"`
	NotificationStatus string              `json:"notification_status,omitempty"`
	NotificationError  string              `json:"notification_error,omitempty"`
	CreatedAt          string              `json:"created_at,omitempty"`
}

// UserLocation 地图上的一个点
type UserLocation struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// UpdateLocationRequest 更新坐标请求
type UpdateLocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" binding:"required,min=-180,max=180"`
}

// DeleteUserRequest 管理员删除用户请求
type DeleteUserRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// SendSMSRequest 发送短信请求
type SendSMSRequest struct {
	To   string `json:"to" binding:"required,e164"`
	Body string `json:"body" binding:"required,max=1600"`
}

// SendSMSResponse 发送短信响应
type SendSMSResponse struct {
	SID string `json:"sid"`
}

// GenerateQRRequest 生成二维码请求，data 与 plan_id 二选一
type GenerateQRRequest struct {
	Data   string `json:"data,omitempty" binding:"omitempty,max=2048"`
	PlanID string `json:"plan_id,omitempty"`
	Size   int    `json:"size,omitempty" binding:"omitempty,min=64,max=1024"`
}
