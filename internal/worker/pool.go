package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/ecogrid_server/internal/pkg/logger"
	"github.com/qs3c/ecogrid_server/internal/pkg/queue"
)

// Popper 阻塞读取通知队列
type Popper interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.NotificationMessage, error)
}

// Run 启动 workers 个消费协程，阻塞到 ctx 取消且所有协程退出
func Run(ctx context.Context, q Popper, processor *Processor, workers int, popTimeout time.Duration) {
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			log := logger.Get().With(zap.Int("worker", workerID))

			for {
				select {
				case <-ctx.Done():
					log.Info("worker shutting down")
					return
				default:
				}

				msg, err := q.Pop(ctx, popTimeout)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Warn("failed to pop notification", zap.Error(err))
					continue
				}
				if msg == nil {
					continue // 超时，继续等待
				}

				_ = processor.Process(ctx, msg)
			}
		}(i)
	}

	wg.Wait()
}
