package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/ecogrid_server/internal/model/dto"
	"github.com/qs3c/ecogrid_server/internal/pkg/response"
	"github.com/qs3c/ecogrid_server/internal/service"
)

type SMSHandler struct {
	notificationService *service.NotificationService
}

func NewSMSHandler(notificationService *service.NotificationService) *SMSHandler {
	return &SMSHandler{notificationService: notificationService}
}

// Send 发送短信
// POST /send_sms
func (h *SMSHandler) Send(c *gin.Context) {
	var req dto.SendSMSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	sid, err := h.notificationService.SendDirect(c.Request.Context(), req.To, req.Body)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, "SMS sent", &dto.SendSMSResponse{SID: sid})
}
