package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/ecogrid_server/internal/pkg/response"
	"github.com/qs3c/ecogrid_server/internal/service"
)

type PlanHandler struct {
	planService *service.PlanService
}

func NewPlanHandler(planService *service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// List 套餐目录
// GET /plans
func (h *PlanHandler) List(c *gin.Context) {
	response.Success(c, h.planService.List())
}
