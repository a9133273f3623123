package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qs3c/ecogrid_server/internal/model"
	"github.com/qs3c/ecogrid_server/internal/pkg/logger"
	"github.com/qs3c/ecogrid_server/internal/pkg/pubsub"
	"github.com/qs3c/ecogrid_server/internal/pkg/queue"
	"github.com/qs3c/ecogrid_server/internal/pkg/sms"
	"github.com/qs3c/ecogrid_server/internal/repository"
)

var (
	ErrSMSUnavailable      = errors.New("sms service is not configured")
	ErrNumberNotVerified   = errors.New("number is not verified for this account")
	ErrSMSUpstream         = errors.New("sms provider error")
	ErrNotificationExpired = errors.New("notification was not delivered in time")
)

// NotificationQueue 通知消息队列
type NotificationQueue interface {
	Push(ctx context.Context, msg *queue.NotificationMessage) error
}

// StatusPublisher 推送状态变更
type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg *pubsub.StatusMessage) error
}

// NotificationService 套餐生效后的短信通知。订阅先落库（pending），再投递
type NotificationService struct {
	users     repository.UserStore
	messenger *sms.Messenger
	queue     NotificationQueue
	publisher StatusPublisher
	async     bool
}

// NewNotificationService queue 为 nil 或 async 为 false 时在请求内同步投递
func NewNotificationService(
	users repository.UserStore,
	messenger *sms.Messenger,
	q NotificationQueue,
	publisher StatusPublisher,
	async bool,
) *NotificationService {
	return &NotificationService{
		users:     users,
		messenger: messenger,
		queue:     q,
		publisher: publisher,
		async:     async,
	}
}

// InitialStatus 订阅写入时的通知状态
func (s *NotificationService) InitialStatus(user *model.User) string {
	if user.Mobile == nil || *user.Mobile == "" {
		return model.NotificationSkipped
	}
	return model.NotificationPending
}

// NotifyPurchase 发送套餐生效短信，返回通知状态和失败原因
func (s *NotificationService) NotifyPurchase(ctx context.Context, user *model.User, plan string, price float64) (string, error) {
	if user.Mobile == nil || *user.Mobile == "" {
		return model.NotificationSkipped, nil
	}

	msg := &queue.NotificationMessage{
		ID:         uuid.NewString(),
		Email:      user.Email,
		To:         *user.Mobile,
		Body:       PurchaseMessage(user.Name, plan, price),
		Attempt:    1,
		EnqueuedAt: time.Now(),
	}

	if s.async && s.queue != nil {
		err := s.queue.Push(ctx, msg)
		if err == nil {
			return model.NotificationPending, nil
		}
		logger.Get().Warn("enqueue notification failed, delivering inline",
			zap.String("id", msg.ID), zap.Error(err))
	}

	err := s.Deliver(ctx, msg)
	status := model.NotificationDelivered
	if err != nil {
		status = model.NotificationFailed
	}
	if recErr := s.Record(ctx, msg, err); recErr != nil {
		logger.Get().Error("record notification failed", zap.String("id", msg.ID), zap.Error(recErr))
	}
	return status, err
}

// Deliver 投递一条通知
func (s *NotificationService) Deliver(ctx context.Context, msg *queue.NotificationMessage) error {
	_, err := s.send(ctx, msg.To, msg.Body)
	return err
}

// Record 回写投递结果并推送给在线用户
func (s *NotificationService) Record(ctx context.Context, msg *queue.NotificationMessage, deliverErr error) error {
	update := model.NotificationUpdate{Status: model.NotificationDelivered}
	if deliverErr != nil {
		update = model.NotificationUpdate{Status: model.NotificationFailed, Error: deliverErr.Error()}
	}

	err := s.users.UpdateNotification(ctx, msg.Email, update)
	if errors.Is(err, repository.ErrNotFound) {
		// 用户在投递前被删除
		err = nil
	}

	s.publish(ctx, &pubsub.StatusMessage{
		Type:           pubsub.TypeNotification,
		Email:          msg.Email,
		NotificationID: msg.ID,
		Status:         update.Status,
		Attempt:        msg.Attempt,
		Error:          update.Error,
	})
	return err
}

// PublishSubscription 推送订阅变更
func (s *NotificationService) PublishSubscription(ctx context.Context, email, plan string, price float64, status string) {
	s.publish(ctx, &pubsub.StatusMessage{
		Type:   pubsub.TypeSubscription,
		Email:  email,
		Plan:   plan,
		Price:  price,
		Status: status,
	})
}

// SendDirect 直接发送短信，返回服务商消息 ID
func (s *NotificationService) SendDirect(ctx context.Context, to, body string) (string, error) {
	return s.send(ctx, to, body)
}

// ExpireStale 把超过 olderThan 仍处于 pending 的通知标记为 failed，返回涉及的邮箱
func (s *NotificationService) ExpireStale(ctx context.Context, olderThan time.Duration, dryRun bool) ([]string, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-olderThan)
	var expired []string
	for _, u := range users {
		if u.NotificationStatus != model.NotificationPending || !u.UpdatedAt.Before(cutoff) {
			continue
		}
		expired = append(expired, u.Email)
		if dryRun {
			continue
		}

		msg := &queue.NotificationMessage{Email: u.Email}
		if err := s.Record(ctx, msg, ErrNotificationExpired); err != nil {
			return expired, fmt.Errorf("expire notification for %s: %w", u.Email, err)
		}
	}
	return expired, nil
}

// Retryable 判断投递失败是否值得重试
func Retryable(err error) bool {
	return err != nil &&
		!errors.Is(err, ErrSMSUnavailable) &&
		!errors.Is(err, ErrNumberNotVerified)
}

func (s *NotificationService) send(ctx context.Context, to, body string) (string, error) {
	sid, err := s.messenger.Send(ctx, to, body)
	switch {
	case err == nil:
		return sid, nil
	case errors.Is(err, sms.ErrNotConfigured):
		return "", ErrSMSUnavailable
	case errors.Is(err, sms.ErrNotVerified):
		return "", fmt.Errorf("%w: %s", ErrNumberNotVerified, to)
	default:
		return "", fmt.Errorf("%w: %v", ErrSMSUpstream, err)
	}
}

func (s *NotificationService) publish(ctx context.Context, msg *pubsub.StatusMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishStatus(ctx, msg); err != nil {
		logger.Get().Warn("publish status failed", zap.String("email", msg.Email), zap.Error(err))
	}
}

// PurchaseMessage 套餐生效短信内容
func PurchaseMessage(name, plan string, price float64) string {
	return fmt.Sprintf("Hi %s, your EcoGrid %s plan is active. Amount paid: %.2f. Thank you!", name, plan, price)
}
