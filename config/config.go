package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	CORS         CORSConfig         `mapstructure:"cors"`
	SMS          SMSConfig          `mapstructure:"sms"`
	Estimator    EstimatorConfig    `mapstructure:"estimator"`
	Allocation   AllocationConfig   `mapstructure:"allocation"`
	Notification NotificationConfig `mapstructure:"notification"`
	Plans        []PlanConfig       `mapstructure:"plans"`
	QR           QRConfig           `mapstructure:"qr"`
	OSS          OSSConfig          `mapstructure:"oss"`
	Admin        AdminConfig        `mapstructure:"admin"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type DatabaseConfig struct {
	Driver       string      `mapstructure:"driver"` // mysql, mongo
	Host         string      `mapstructure:"host"`
	Port         int         `mapstructure:"port"`
	Username     string      `mapstructure:"username"`
	Password     string      `mapstructure:"password"`
	Database     string      `mapstructure:"database"`
	MaxIdleConns int         `mapstructure:"max_idle_conns"`
	MaxOpenConns int         `mapstructure:"max_open_conns"`
	Mongo        MongoConfig `mapstructure:"mongo"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// PlaceholderJWTSecret 示例配置里的占位密钥
const PlaceholderJWTSecret = "change-me"

var (
	ErrEmptyJWTSecret       = errors.New("jwt.secret is empty")
	ErrPlaceholderJWTSecret = errors.New("jwt.secret is still the placeholder value")
)

// IsPlaceholder 密钥仍是示例配置里的值
func (c JWTConfig) IsPlaceholder() bool {
	return strings.TrimSpace(c.Secret) == PlaceholderJWTSecret
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type SMSConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
	Trial      bool   `mapstructure:"trial"` // 试用账号只能向已验证号码发送
}

type EstimatorConfig struct {
	ModelPath     string  `mapstructure:"model_path"`
	SolarTempMin  float64 `mapstructure:"solar_temp_min"`
	SolarTempMax  float64 `mapstructure:"solar_temp_max"`
	WastewaterMin float64 `mapstructure:"wastewater_min"`
	WastewaterMax float64 `mapstructure:"wastewater_max"`
}

type AllocationConfig struct {
	EstimateScope     string `mapstructure:"estimate_scope"`       // user, global
	EstimateTTLMinute int    `mapstructure:"estimate_ttl_minutes"` // 0 表示不过期
}

// EstimateTTL 估算值的有效期
func (c AllocationConfig) EstimateTTL() time.Duration {
	return time.Duration(c.EstimateTTLMinute) * time.Minute
}

type NotificationConfig struct {
	Async       bool   `mapstructure:"async"`
	Queue       string `mapstructure:"queue"`
	MaxWorkers  int    `mapstructure:"max_workers"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

type PlanConfig struct {
	ID       string  `mapstructure:"id"`
	Name     string  `mapstructure:"name"`
	Price    float64 `mapstructure:"price"`
	Capacity string  `mapstructure:"capacity"`
}

type QRConfig struct {
	Size       int    `mapstructure:"size"`
	PaymentURL string `mapstructure:"payment_url"` // 例如 https://pay.ecogrid.example/checkout?plan=%s&amount=%.2f
	Archive    bool   `mapstructure:"archive"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type AdminConfig struct {
	Name     string `mapstructure:"name"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

func Load(configPath string) (*Config, error) {
	// .env 中的变量会被下面的 AutomaticEnv 读取
	_ = godotenv.Load()

	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 空密钥总是拒绝，占位密钥只在 release 模式拒绝
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("%w: set jwt.secret or JWT_SECRET", ErrEmptyJWTSecret)
	}
	if c.Server.Mode == "release" && c.JWT.IsPlaceholder() {
		return fmt.Errorf("%w: set jwt.secret or JWT_SECRET before running in release mode", ErrPlaceholderJWTSecret)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.mongo.database", "ecogrid")
	v.SetDefault("database.mongo.collection", "users")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("estimator.solar_temp_min", 20.0)
	v.SetDefault("estimator.solar_temp_max", 45.0)
	v.SetDefault("estimator.wastewater_min", 50.0)
	v.SetDefault("estimator.wastewater_max", 200.0)
	v.SetDefault("allocation.estimate_scope", "user")
	v.SetDefault("notification.async", true)
	v.SetDefault("notification.queue", "ecogrid:notifications")
	v.SetDefault("notification.max_workers", 2)
	v.SetDefault("notification.max_attempts", 3)
	v.SetDefault("qr.size", 256)
	v.SetDefault("admin.name", "admin")
}
