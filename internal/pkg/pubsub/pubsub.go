package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelNotificationStatus = "notification_status"
)

// 消息类型
const (
	TypeSubscription = "subscription"
	TypeNotification = "notification"
)

// StatusMessage 订阅与短信状态变更消息
type StatusMessage struct {
	Type           string  `json:"type"`
	Email          string  `json:"email"`
	NotificationID string  `json:"notification_id,omitempty"`
	Plan           string  `json:"plan,omitempty"`
	Price          float64 `json:"price,omitempty"`
	Status         string  `json:"status"`
	Attempt        int     `json:"attempt,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishStatus 发布状态消息
func (p *Publisher) PublishStatus(ctx context.Context, msg *StatusMessage) error {
	if msg.Type == "" {
		msg.Type = TypeNotification
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal status message: %w", err)
	}

	return p.client.Publish(ctx, ChannelNotificationStatus, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅状态消息，阻塞直到 ctx 取消
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*StatusMessage)) error {
	pubsub := s.client.Subscribe(ctx, ChannelNotificationStatus)
	defer pubsub.Close()

	// 等待订阅确认，保证之后发布的消息不会丢失
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var statusMsg StatusMessage
			if err := json.Unmarshal([]byte(msg.Payload), &statusMsg); err != nil {
				continue // 忽略解析错误
			}

			handler(&statusMsg)
		}
	}
}
