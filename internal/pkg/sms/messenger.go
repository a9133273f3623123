package sms

import (
	"context"
)

// Messenger 用配置的号码发送，试用账号只能发给已验证号码
type Messenger struct {
	gateway Gateway
	from    string
	trial   bool
}

// NewMessenger gateway 为 nil 时 Send 返回 ErrNotConfigured
func NewMessenger(gateway Gateway, from string, trial bool) *Messenger {
	return &Messenger{
		gateway: gateway,
		from:    from,
		trial:   trial,
	}
}

// Configured 是否配置了网关
func (m *Messenger) Configured() bool {
	return m != nil && m.gateway != nil
}

// Send 发送短信，返回服务商的消息 ID
func (m *Messenger) Send(ctx context.Context, to, body string) (string, error) {
	if !m.Configured() {
		return "", ErrNotConfigured
	}

	if m.trial {
		verified, err := m.gateway.ListVerifiedNumbers(ctx)
		if err != nil {
			return "", err
		}
		if _, ok := verified[to]; !ok {
			return "", ErrNotVerified
		}
	}

	return m.gateway.Send(ctx, body, m.from, to)
}
