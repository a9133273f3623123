package dto

// SignupRequest 注册请求
type SignupRequest struct {
	Name      string   `json:"name" binding:"required,min=1,max=100"`
	Email     string   `json:"email" binding:"required,email"`
	Password  string   `json:"password" binding:"required,min=6,max=72"`
	Mobile    string   `json:"mobile,omitempty" binding:"omitempty,e164"`
	Latitude  *float64 `json:"latitude,omitempty" binding:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude,omitempty" binding:"omitempty,min=-180,max=180"`
}

// SignupResponse 注册响应
type SignupResponse struct {
	Email string `json:"email"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}
