package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/ecogrid_server/internal/api/middleware"
	"github.com/qs3c/ecogrid_server/internal/model"
	"github.com/qs3c/ecogrid_server/internal/model/dto"
	"github.com/qs3c/ecogrid_server/internal/pkg/response"
	"github.com/qs3c/ecogrid_server/internal/service"
)

type EnergyHandler struct {
	allocationService *service.AllocationService
}

func NewEnergyHandler(allocationService *service.AllocationService) *EnergyHandler {
	return &EnergyHandler{
		allocationService: allocationService,
	}
}

// PredictElectricity 预测发电量
// GET /api/predict_electricity
func (h *EnergyHandler) PredictElectricity(c *gin.Context) {
	email, _ := middleware.GetEmail(c)

	est, err := h.allocationService.EstimateGeneration(c.Request.Context(), email)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, est)
}

// SuggestPlan 按设备估算用电
// POST /api/suggest_plan
func (h *EnergyHandler) SuggestPlan(c *gin.Context) {
	email, _ := middleware.GetEmail(c)

	var req dto.SuggestPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.allocationService.SuggestPlan(c.Request.Context(), email, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, resp)
}

// BuyPlan 购买套餐
// POST /api/buy_plan
func (h *EnergyHandler) BuyPlan(c *gin.Context) {
	email, _ := middleware.GetEmail(c)

	var req dto.BuyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.allocationService.PurchasePlan(c.Request.Context(), email, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, purchaseMessage(resp), resp)
}

// AllocateEnergy 按所需电压分配
// POST /api/allocate_energy
func (h *EnergyHandler) AllocateEnergy(c *gin.Context) {
	email, _ := middleware.GetEmail(c)

	var req dto.AllocateEnergyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.allocationService.AllocateEnergy(c.Request.Context(), email, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SuccessWithMessage(c, resp.Message, resp)
}

func purchaseMessage(resp *dto.BuyPlanResponse) string {
	switch resp.Notification.Status {
	case model.NotificationSkipped:
		return "Plan purchased successfully, no SMS sent"
	case model.NotificationPending:
		return "Plan purchased successfully, SMS notification queued"
	case model.NotificationFailed:
		return "Plan purchased successfully, but SMS failed: " + resp.Notification.Error
	default:
		return "Plan purchased successfully, SMS sent"
	}
}
