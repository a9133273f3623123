package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/ecogrid_server/internal/model"
	"github.com/qs3c/ecogrid_server/internal/pkg/estimator"
	"github.com/qs3c/ecogrid_server/internal/pkg/sms"
)

// TestPassword 测试用户的明文密码
const TestPassword = "password123"

var (
	seq          atomic.Int64
	hashOnce     sync.Once
	testPassHash string
)

func passwordHash() string {
	hashOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
		if err != nil {
			panic(err)
		}
		testPassHash = string(h)
	})
	return testPassHash
}

// TestUser 创建测试用户，密码为 TestPassword
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := seq.Add(1)
	user := &model.User{
		Email:        fmt.Sprintf("test_%d@example.com", n),
		Name:         fmt.Sprintf("testuser_%d", n),
		PasswordHash: passwordHash(),
		Role:         model.RoleUser,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithName 设置用户名
func WithName(name string) func(*model.User) {
	return func(u *model.User) {
		u.Name = name
	}
}

// WithMobile 设置手机号
func WithMobile(mobile string) func(*model.User) {
	return func(u *model.User) {
		u.Mobile = &mobile
	}
}

// WithRole 设置角色
func WithRole(role string) func(*model.User) {
	return func(u *model.User) {
		u.Role = role
	}
}

// WithLocation 设置坐标
func WithLocation(lat, lng float64) func(*model.User) {
	return func(u *model.User) {
		u.Latitude = &lat
		u.Longitude = &lng
	}
}

// WithSubscription 设置订阅
func WithSubscription(plan string, price float64) func(*model.User) {
	return func(u *model.User) {
		u.SubscriptionPlan = &plan
		u.SubscriptionPrice = price
		u.SubscriptionPaid = true
	}
}

// SentMessage 记录 FakeGateway 发出的短信
type SentMessage struct {
	Body string
	From string
	To   string
}

// FakeGateway 短信网关替身
type FakeGateway struct {
	mu       sync.Mutex
	Verified map[string]struct{}
	ListErr  error
	SendErr  error
	// FailTimes 前 N 次 Send 返回 SendErr
	FailTimes int
	Sent      []SentMessage
	calls     int
}

// NewFakeGateway 创建短信网关替身，verified 为已验证号码
func NewFakeGateway(verified ...string) *FakeGateway {
	g := &FakeGateway{Verified: make(map[string]struct{})}
	for _, v := range verified {
		g.Verified[v] = struct{}{}
	}
	return g
}

func (g *FakeGateway) ListVerifiedNumbers(ctx context.Context) (map[string]struct{}, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ListErr != nil {
		return nil, g.ListErr
	}
	out := make(map[string]struct{}, len(g.Verified))
	for k := range g.Verified {
		out[k] = struct{}{}
	}
	return out, nil
}

func (g *FakeGateway) Send(ctx context.Context, body, from, to string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.SendErr != nil && (g.FailTimes == 0 || g.calls <= g.FailTimes) {
		return "", g.SendErr
	}
	g.Sent = append(g.Sent, SentMessage{Body: body, From: from, To: to})
	return fmt.Sprintf("SM%04d", len(g.Sent)), nil
}

// SentCount 已成功发送的短信数
func (g *FakeGateway) SentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Sent)
}

// Calls Send 被调用的次数
func (g *FakeGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

var _ sms.Gateway = (*FakeGateway)(nil)

// FakeModel 回归模型替身
type FakeModel struct {
	Output float64
	Err    error
}

func (m *FakeModel) Predict(estimator.Features) (float64, error) {
	return m.Output, m.Err
}

var _ estimator.Model = (*FakeModel)(nil)
