package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qs3c/ecogrid_server/internal/pkg/logger"
	"github.com/qs3c/ecogrid_server/internal/pkg/response"
	"github.com/qs3c/ecogrid_server/internal/service"
)

// handleServiceError 把业务错误映射为响应
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmailExists),
		errors.Is(err, service.ErrMobileExists):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrNotAuthenticated):
		response.AuthError(c, err.Error())
	case errors.Is(err, service.ErrPermissionDenied):
		response.PermissionError(c, err.Error())
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrPlanNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrInsufficientEnergy):
		response.Error(c, response.CodeInsufficientEnergy, err.Error())
	case errors.Is(err, service.ErrProtectedUser),
		errors.Is(err, service.ErrReservedName),
		errors.Is(err, service.ErrNumberNotVerified):
		response.DomainError(c, err.Error())
	case errors.Is(err, service.ErrInvalidDeviceCount),
		errors.Is(err, service.ErrInvalidVoltage),
		errors.Is(err, service.ErrQRContentRequired),
		errors.Is(err, service.ErrQRContentTooLong):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrModelUnavailable),
		errors.Is(err, service.ErrSMSUnavailable):
		response.UnavailableError(c, err.Error())
	case errors.Is(err, service.ErrPredictionFailed),
		errors.Is(err, service.ErrSMSUpstream):
		response.UpstreamError(c, err.Error())
	default:
		logger.Get().Error("unhandled error",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		response.ServerError(c, "")
	}
}
