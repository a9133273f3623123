package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	// ReservedAdminName 保留的管理员账号名，不能注册也不能删除
	ReservedAdminName = "admin"
)

// 通知投递状态
const (
	NotificationNone      = ""
	NotificationPending   = "pending"
	NotificationDelivered = "delivered"
	NotificationFailed    = "failed"
	NotificationSkipped   = "skipped"
)

type User struct {
	ID                 int64      `gorm:"primaryKey" json:"id" bson:"-"`
	Email              string     `gorm:"size:100;uniqueIndex;not null" json:"email" bson:"email"`
	Name               string     `gorm:"size:100;not null" json:"name" bson:"name"`
	Mobile             *string    `gorm:"size:30;uniqueIndex" json:"mobile,omitempty" bson:"mobile,omitempty"`
	PasswordHash       string     `gorm:"size:255;not null" json:"-" bson:"password"`
	Role               string     `gorm:"size:20;default:user" json:"role" bson:"role"`
	Latitude           *float64   `json:"latitude,omitempty" bson:"latitude,omitempty"`
	Longitude          *float64   `json:"longitude,omitempty" bson:"longitude,omitempty"`
	SubscriptionPlan   *string    `gorm:"size:100" json:"subscription_plan,omitempty" bson:"subscription_plan,omitempty"`
	SubscriptionPrice  float64    `gorm:"type:decimal(12,2)" json:"subscription_price" bson:"subscription_price"`
	SubscriptionPaid   bool       `gorm:"default:false" json:"subscription_paid" bson:"subscription_paid"`
	NotificationStatus string     `gorm:"size:20" json:"notification_status,omitempty" bson:"notification_status,omitempty"`
	NotificationError  string     `gorm:"size:500" json:"notification_error,omitempty" bson:"notification_error,omitempty"`
	NotifiedAt         *time.Time `json:"notified_at,omitempty" bson:"notified_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" bson:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin 只看存储的角色，不看名字
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsProtected 受保护的账号不能被删除
func (u *User) IsProtected() bool {
	return u.Role == RoleAdmin || u.Name == ReservedAdminName
}

// Location 用户坐标，未设置时返回 nil
func (u *User) Location() *Location {
	if u.Latitude == nil || u.Longitude == nil {
		return nil
	}
	return &Location{Latitude: *u.Latitude, Longitude: *u.Longitude}
}

// Subscription 当前订阅，未订阅时返回 nil
func (u *User) Subscription() *Subscription {
	if u.SubscriptionPlan == nil {
		return nil
	}
	return &Subscription{
		Plan:  *u.SubscriptionPlan,
		Price: u.SubscriptionPrice,
		Paid:  u.SubscriptionPaid,
	}
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
