package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/ecogrid_server/internal/pkg/logger"
	"github.com/qs3c/ecogrid_server/internal/pkg/queue"
	"github.com/qs3c/ecogrid_server/internal/service"
)

// Deliverer 投递通知并回写结果
type Deliverer interface {
	Deliver(ctx context.Context, msg *queue.NotificationMessage) error
	Record(ctx context.Context, msg *queue.NotificationMessage, deliverErr error) error
}

// Requeuer 失败重试时重新入队
type Requeuer interface {
	Push(ctx context.Context, msg *queue.NotificationMessage) error
}

// Processor 通知任务处理器
type Processor struct {
	notifier    Deliverer
	queue       Requeuer
	maxAttempts int
	backoff     time.Duration
}

// NewProcessor 创建通知任务处理器，maxAttempts 至少为 1
func NewProcessor(notifier Deliverer, q Requeuer, maxAttempts int, backoff time.Duration) *Processor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Processor{
		notifier:    notifier,
		queue:       q,
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}
}

// Process 处理一条通知。可重试的失败会重新入队，否则回写 failed
func (p *Processor) Process(ctx context.Context, msg *queue.NotificationMessage) error {
	log := logger.Get().With(
		zap.String("id", msg.ID),
		zap.String("email", msg.Email),
		zap.Int("attempt", msg.Attempt))

	err := p.notifier.Deliver(ctx, msg)
	if err == nil {
		log.Info("notification delivered")
		return p.notifier.Record(ctx, msg, nil)
	}

	if service.Retryable(err) && msg.Attempt < p.maxAttempts && p.queue != nil {
		if p.wait(ctx, msg.Attempt) {
			next := *msg
			next.Attempt++
			pushErr := p.queue.Push(ctx, &next)
			if pushErr == nil {
				log.Warn("notification failed, requeued", zap.Error(err))
				return err
			}
			log.Error("requeue notification failed", zap.Error(pushErr))
		}
	}

	log.Error("notification failed", zap.Error(err))
	if recErr := p.notifier.Record(ctx, msg, err); recErr != nil {
		log.Error("record notification failed", zap.Error(recErr))
	}
	return err
}

// wait 按尝试次数线性退避，ctx 取消时返回 false
func (p *Processor) wait(ctx context.Context, attempt int) bool {
	if p.backoff <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(time.Duration(attempt) * p.backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
