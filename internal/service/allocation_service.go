package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/qs3c/ecogrid_server/internal/model"
	"github.com/qs3c/ecogrid_server/internal/model/dto"
	"github.com/qs3c/ecogrid_server/internal/pkg/estimate"
	"github.com/qs3c/ecogrid_server/internal/pkg/estimator"
	"github.com/qs3c/ecogrid_server/internal/pkg/logger"
	"github.com/qs3c/ecogrid_server/internal/repository"
)

var (
	ErrModelUnavailable   = errors.New("prediction model is not loaded")
	ErrPredictionFailed   = errors.New("prediction failed")
	ErrNotAuthenticated   = errors.New("login required")
	ErrInsufficientEnergy = errors.New("insufficient energy available for this plan")
	ErrInvalidDeviceCount = errors.New("device counts must be between 0 and 100000")
	ErrInvalidVoltage     = errors.New("required voltage must be a non-negative number")
)

// 每类设备的估算功率
const (
	WattsPerFan    = 50
	WattsPerLight  = 20
	WattsPerFridge = 150
	WattsPerOther  = 100

	// PricePerUnit 每单位用电的价格
	PricePerUnit = 10
	// minutesPerHour 模型输出为每分钟发电量
	minutesPerHour = 60
)

// AllocationService 发电估算、用电估算和套餐分配
type AllocationService struct {
	users    repository.UserStore
	registry *estimate.Registry
	scope    estimate.Scope
	model    estimator.Model
	sensor   estimator.Sensor
	notifier *NotificationService
}

// NewAllocationService model 为 nil 表示模型未加载
func NewAllocationService(
	users repository.UserStore,
	registry *estimate.Registry,
	scope estimate.Scope,
	model estimator.Model,
	sensor estimator.Sensor,
	notifier *NotificationService,
) *AllocationService {
	return &AllocationService{
		users:    users,
		registry: registry,
		scope:    scope,
		model:    model,
		sensor:   sensor,
		notifier: notifier,
	}
}

// EstimateGeneration 采样传感器并预测发电量，覆盖调用方的发电估算
func (s *AllocationService) EstimateGeneration(ctx context.Context, caller string) (*dto.GenerationEstimate, error) {
	if s.model == nil {
		return nil, ErrModelUnavailable
	}

	features := s.sensor.Read()
	output, err := s.model.Predict(features)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPredictionFailed, err)
	}

	hourly := Round2(output * minutesPerHour)
	entry := s.registry.SetGeneration(s.scope.Key(caller), hourly)

	logger.Get().Debug("generation estimated",
		zap.String("caller", caller),
		zap.Float64("hourly", hourly),
		zap.Uint64("version", entry.Version))

	return &dto.GenerationEstimate{
		SolarTemp:          Round2(features.SolarTemp),
		WastewaterQuantity: Round2(features.WastewaterQuantity),
		PredictedOutput:    Round2(output),
		HourlyGeneration:   hourly,
		Version:            entry.Version,
	}, nil
}

// SuggestPlan 按设备数量估算用电和价格，覆盖调用方的用电估算
func (s *AllocationService) SuggestPlan(ctx context.Context, caller string, req *dto.SuggestPlanRequest) (*dto.SuggestPlanResponse, error) {
	for _, n := range []dto.Count{req.Fans, req.Lights, req.Fridges, req.Other} {
		if n < 0 || n > dto.MaxDeviceCount {
			return nil, ErrInvalidDeviceCount
		}
	}

	usage := EstimateUsage(int(req.Fans), int(req.Lights), int(req.Fridges), int(req.Other))
	s.registry.SetUsage(s.scope.Key(caller), usage)

	return &dto.SuggestPlanResponse{
		EstimatedUsage: usage,
		Price:          usage * PricePerUnit,
	}, nil
}

// PurchasePlan 用电估算不超过发电估算时写入订阅，然后发送通知。
// 通知失败不回滚购买，结果里带上失败原因
func (s *AllocationService) PurchasePlan(ctx context.Context, caller string, req *dto.BuyPlanRequest) (*dto.BuyPlanResponse, error) {
	if caller == "" {
		return nil, ErrNotAuthenticated
	}

	user, err := s.users.GetByEmail(ctx, caller)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	price := *req.Price
	initial := s.notifier.InitialStatus(user)

	err = s.registry.Decide(s.scope.Key(caller), func(snap estimate.Snapshot) error {
		if snap.Usage.Value > snap.Generation.Value {
			return ErrInsufficientEnergy
		}

		modified, err := s.users.UpdateSubscription(ctx, caller, model.SubscriptionPatch{
			Plan:               req.PlanName,
			Price:              price,
			Paid:               true,
			NotificationStatus: initial,
		})
		if err != nil {
			return err
		}
		if modified == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Info("plan purchased",
		zap.String("email", caller),
		zap.String("plan", req.PlanName),
		zap.Float64("price", price))
	s.notifier.PublishSubscription(ctx, caller, req.PlanName, price, initial)

	status, notifyErr := s.notifier.NotifyPurchase(ctx, user, req.PlanName, price)
	result := &dto.NotificationResult{Status: status}
	if notifyErr != nil {
		result.Error = notifyErr.Error()
	}

	return &dto.BuyPlanResponse{
		Plan:         req.PlanName,
		Price:        price,
		Paid:         true,
		Notification: result,
	}, nil
}

// AllocateEnergy 所需电压不超过调用方可见的发电估算时，把电压作为套餐写给目标用户
func (s *AllocationService) AllocateEnergy(ctx context.Context, caller string, req *dto.AllocateEnergyRequest) (*dto.AllocateEnergyResponse, error) {
	required := *req.RequiredVoltage
	if required < 0 || math.IsNaN(required) || math.IsInf(required, 0) {
		return nil, ErrInvalidVoltage
	}
	target := normalizeEmail(req.Email)

	var resp *dto.AllocateEnergyResponse
	err := s.registry.Decide(s.scope.Key(caller), func(snap estimate.Snapshot) error {
		available := snap.Generation.Value
		if required > available {
			resp = &dto.AllocateEnergyResponse{
				Status:           dto.AllocationInsufficient,
				RequiredVoltage:  required,
				AvailableVoltage: available,
				Message:          fmt.Sprintf("Insufficient energy: %.2f required, %.2f available", required, available),
			}
			return nil
		}

		// 分配不发短信，保留上次购买的通知记录
		modified, err := s.users.UpdateSubscription(ctx, target, model.SubscriptionPatch{
			Plan:             strconv.FormatFloat(required, 'f', -1, 64),
			Price:            required * PricePerUnit,
			Paid:             true,
			KeepNotification: true,
		})
		if err != nil {
			return err
		}
		if modified == 0 {
			return ErrUserNotFound
		}

		resp = &dto.AllocateEnergyResponse{
			Status:           dto.AllocationAllocated,
			RequiredVoltage:  required,
			AvailableVoltage: available,
			Message:          fmt.Sprintf("Allocated %.2f to %s", required, target),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Info("energy allocation",
		zap.String("by", caller),
		zap.String("target", target),
		zap.String("status", resp.Status),
		zap.Float64("required", required))
	return resp, nil
}

// EstimateUsage 设备加权用电量
func EstimateUsage(fans, lights, fridges, other int) float64 {
	return float64(fans)*WattsPerFan + float64(lights)*WattsPerLight +
		float64(fridges)*WattsPerFridge + float64(other)*WattsPerOther
}

// Round2 保留两位小数
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
