package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/ecogrid_server/internal/model/dto"
	"github.com/qs3c/ecogrid_server/internal/pkg/response"
	"github.com/qs3c/ecogrid_server/internal/service"
)

type QRHandler struct {
	qrService *service.QRService
}

func NewQRHandler(qrService *service.QRService) *QRHandler {
	return &QRHandler{qrService: qrService}
}

// Generate 生成二维码，返回 PNG
// POST /generate_qr
func (h *QRHandler) Generate(c *gin.Context) {
	var req dto.GenerateQRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	png, err := h.qrService.Generate(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
