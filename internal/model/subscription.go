package model

// Subscription 用户当前的套餐
type Subscription struct {
	Plan  string  `json:"plan"`
	Price float64 `json:"price"`
	Paid  bool    `json:"paid"`
}

// SubscriptionPatch 覆盖写入用户订阅，同时设置通知状态
// KeepNotification 为 true 时不动通知状态和错误
type SubscriptionPatch struct {
	Plan               string
	Price              float64
	Paid               bool
	NotificationStatus string
	KeepNotification   bool
}

// NotificationUpdate 回写通知投递结果
type NotificationUpdate struct {
	Status string
	Error  string
}
