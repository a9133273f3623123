package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误码定义
const (
	CodeSuccess            = 0
	CodeParamError         = 1000
	CodeAuthFailed         = 1001
	CodePermissionDenied   = 1002
	CodeResourceNotFound   = 1003
	CodeInsufficientEnergy = 1004
	CodeDuplicateAction    = 1005
	CodeDomainRule         = 1006
	CodeServerError        = 5000
	CodeUpstreamError      = 5001
	CodeUnavailable        = 5003
)

// 错误码对应的默认消息
var codeMessages = map[int]string{
	CodeSuccess:            "success",
	CodeParamError:         "Invalid request",
	CodeAuthFailed:         "Authentication required",
	CodePermissionDenied:   "Permission denied",
	CodeResourceNotFound:   "Resource not found",
	CodeInsufficientEnergy: "Insufficient energy available",
	CodeDuplicateAction:    "Resource already exists",
	CodeDomainRule:         "Operation not allowed",
	CodeServerError:        "Internal server error",
	CodeUpstreamError:      "Upstream service failed",
	CodeUnavailable:        "Service unavailable",
}

// 错误码对应的 HTTP 状态
var codeStatus = map[int]int{
	CodeSuccess:            http.StatusOK,
	CodeParamError:         http.StatusBadRequest,
	CodeAuthFailed:         http.StatusUnauthorized,
	CodePermissionDenied:   http.StatusForbidden,
	CodeResourceNotFound:   http.StatusNotFound,
	CodeInsufficientEnergy: http.StatusBadRequest,
	CodeDuplicateAction:    http.StatusConflict,
	CodeDomainRule:         http.StatusBadRequest,
	CodeServerError:        http.StatusInternalServerError,
	CodeUpstreamError:      http.StatusBadGateway,
	CodeUnavailable:        http.StatusServiceUnavailable,
}

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// HTTPStatus 错误码对应的 HTTP 状态，未知错误码按 500 处理
func HTTPStatus(code int) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// Created 创建成功
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	ErrorWithData(c, code, message, nil)
}

// ErrorWithData 带数据的错误响应（例如能量不足时返回估算值）
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	if message == "" {
		message = codeMessages[code]
	}
	c.JSON(HTTPStatus(code), Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// ParamError 参数错误
func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

// AuthError 认证失败
func AuthError(c *gin.Context, message string) {
	Error(c, CodeAuthFailed, message)
}

// PermissionError 权限不足
func PermissionError(c *gin.Context, message string) {
	Error(c, CodePermissionDenied, message)
}

// NotFoundError 资源不存在
func NotFoundError(c *gin.Context, message string) {
	Error(c, CodeResourceNotFound, message)
}

// DuplicateError 重复操作
func DuplicateError(c *gin.Context, message string) {
	Error(c, CodeDuplicateAction, message)
}

// DomainError 业务规则拒绝
func DomainError(c *gin.Context, message string) {
	Error(c, CodeDomainRule, message)
}

// ServerError 服务器错误
func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

// UpstreamError 外部依赖失败，消息带上游错误
func UpstreamError(c *gin.Context, message string) {
	Error(c, CodeUpstreamError, message)
}

// UnavailableError 依赖未就绪
func UnavailableError(c *gin.Context, message string) {
	Error(c, CodeUnavailable, message)
}
