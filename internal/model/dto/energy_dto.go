package dto

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxDeviceCount 单类设备数量上限
const MaxDeviceCount = 100000

// Count 设备数量，兼容数字和数字字符串，小数部分截断
type Count int

func (c *Count) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		*c = 0
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}

	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return fmt.Errorf("invalid device count %q", raw)
	}
	n = math.Trunc(n)
	if n < 0 || n > MaxDeviceCount {
		return fmt.Errorf("device count %q out of range [0, %d]", raw, MaxDeviceCount)
	}
	*c = Count(n)
	return nil
}

// GenerationEstimate 发电量预测结果
type GenerationEstimate struct {
	SolarTemp          float64 `json:"solar_temp"`
	WastewaterQuantity float64 `json:"wastewater_quantity"`
	PredictedOutput    float64 `json:"predicted_output"`
	HourlyGeneration   float64 `json:"hourly_generation"`
	Version            uint64  `json:"version"`
}

// SuggestPlanRequest 按设备数量估算用电
type SuggestPlanRequest struct {
	Fans    Count `json:"fans" binding:"min=0,max=100000"`
	Lights  Count `json:"lights" binding:"min=0,max=100000"`
	Fridges Count `json:"fridges" binding:"min=0,max=100000"`
	Other   Count `json:"other" binding:"min=0,max=100000"`
}

// SuggestPlanResponse 用电估算结果
type SuggestPlanResponse struct {
	EstimatedUsage float64 `json:"estimated_usage"`
	Price          float64 `json:"price"`
}

// BuyPlanRequest 购买套餐请求
type BuyPlanRequest struct {
	PlanName string   `json:"plan_name" binding:"required,max=100"`
	Price    *float64 `json:"price" binding:"required,min=0"`
}

// NotificationResult 短信通知结果
type NotificationResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BuyPlanResponse 购买结果
type BuyPlanResponse struct {
	Plan         string              `json:"plan"`
	Price        float64             `json:"price"`
	Paid         bool                `json:"paid"`
	Notification *NotificationResult `json:"notification"`
}

// AllocateEnergyRequest 电压分配请求
type AllocateEnergyRequest struct {
	Email           string   `json:"email" binding:"required,email"`
	RequiredVoltage *float64 `json:"required_voltage" binding:"required,min=0"`
}

// 分配结果状态
const (
	AllocationAllocated    = "Allocated"
	AllocationInsufficient = "Insufficient"
)

// AllocateEnergyResponse 电压分配结果
type AllocateEnergyResponse struct {
	Status           string  `json:"status"`
	RequiredVoltage  float64 `json:"required_voltage"`
	AvailableVoltage float64 `json:"available_voltage"`
	Message          string  `json:"message"`
}
