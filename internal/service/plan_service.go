package service

import (
	"errors"

	"github.com/gosimple/slug"

	"github.com/qs3c/ecogrid_server/config"
	"github.com/qs3c/ecogrid_server/internal/model"
)

var ErrPlanNotFound = errors.New("plan not found")

// PlanService 静态套餐目录
type PlanService struct {
	plans []model.Plan
	byID  map[string]model.Plan
}

// NewPlanService 未配置 id 的套餐用名称生成 slug，重复 id 以先出现的为准
func NewPlanService(plans []config.PlanConfig) *PlanService {
	s := &PlanService{
		plans: make([]model.Plan, 0, len(plans)),
		byID:  make(map[string]model.Plan, len(plans)),
	}

	for _, p := range plans {
		id := p.ID
		if id == "" {
			id = slug.Make(p.Name)
		}
		if id == "" {
			continue
		}
		if _, dup := s.byID[id]; dup {
			continue
		}

		plan := model.Plan{
			ID:       id,
			Name:     p.Name,
			Price:    p.Price,
			Capacity: p.Capacity,
		}
		s.plans = append(s.plans, plan)
		s.byID[id] = plan
	}
	return s
}

// List 返回套餐目录的副本
func (s *PlanService) List() []model.Plan {
	out := make([]model.Plan, len(s.plans))
	copy(out, s.plans)
	return out
}

// Get 按 id 查找套餐
func (s *PlanService) Get(id string) (model.Plan, error) {
	plan, ok := s.byID[id]
	if !ok {
		return model.Plan{}, ErrPlanNotFound
	}
	return plan, nil
}
