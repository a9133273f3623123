package cron

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/ecogrid_server/internal/pkg/logger"
)

// Pruner 可清理过期数据的组件
type Pruner interface {
	Prune() int
}

type Service struct {
	pruner   Pruner
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewService(pruner Pruner, interval time.Duration) *Service {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Service{
		pruner:   pruner,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runPrune()
	logger.Get().Info("cron service started", zap.Duration("interval", s.interval))
}

// Stop 停止定时任务
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		logger.Get().Info("cron service stopped")
	})
}

// runPrune 按固定间隔清理过期估算
func (s *Service) runPrune() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunNow()
		}
	}
}

// RunNow 立即执行一次清理（用于测试或手动触发）
func (s *Service) RunNow() int {
	if s.pruner == nil {
		return 0
	}
	removed := s.pruner.Prune()
	if removed > 0 {
		logger.Get().Info("pruned expired estimates", zap.Int("removed", removed))
	}
	return removed
}
