package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Queue     QueueConfig     `mapstructure:"queue"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Whop      WhopConfig      `mapstructure:"whop"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Retention RetentionConfig `mapstructure:"retention"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql 或 sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"` // sqlite 时为文件路径
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// AuthConfig 定时任务和管理接口使用的服务令牌
type AuthConfig struct {
	ServiceSecret string `mapstructure:"service_secret"`
	ExpireHours   int    `mapstructure:"expire_hours"`
}

type QueueConfig struct {
	BackfillQueue   string `mapstructure:"backfill_queue"`
	ProgressChannel string `mapstructure:"progress_channel"`
	MaxWorkers      int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// WhopConfig 计费平台 API
type WhopConfig struct {
	APIKey               string  `mapstructure:"api_key"`
	BaseURL              string  `mapstructure:"base_url"`
	PageSize             int     `mapstructure:"page_size"`
	RequestsPerSecond    float64 `mapstructure:"requests_per_second"`
	TimeoutSeconds       int     `mapstructure:"timeout_seconds"`
	PaymentsLookbackDays int     `mapstructure:"payments_lookback_days"` // 0 表示不限
	AmountsInCents       bool    `mapstructure:"amounts_in_cents"`       // 金额字段是否以分为单位
}

type AnalyticsConfig struct {
	CacheTTLMinutes     int `mapstructure:"cache_ttl_minutes"`
	BackfillDays        int `mapstructure:"backfill_days"`
	BackfillThreshold   int `mapstructure:"backfill_threshold"`
	BackfillConcurrency int `mapstructure:"backfill_concurrency"`
	LockTTLMinutes      int `mapstructure:"lock_ttl_minutes"`
}

type RetentionConfig struct {
	KeepDays int `mapstructure:"keep_days"`
}

// CacheTTL 实时分析缓存有效期
func (a AnalyticsConfig) CacheTTL() time.Duration {
	return time.Duration(a.CacheTTLMinutes) * time.Minute
}

// LockTTL 回填互斥锁有效期
func (a AnalyticsConfig) LockTTL() time.Duration {
	return time.Duration(a.LockTTLMinutes) * time.Minute
}

func (w WhopConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}

// Default 返回带默认值的配置
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8080, Mode: "debug"},
		Database: DatabaseConfig{Driver: "mysql", Port: 3306, MaxIdleConns: 10, MaxOpenConns: 50},
		Redis:    RedisConfig{Host: "127.0.0.1", Port: 6379, PoolSize: 20},
		Auth:     AuthConfig{ExpireHours: 24},
		Queue: QueueConfig{
			BackfillQueue:   "metrics:backfill_queue",
			ProgressChannel: "backfill_progress",
			MaxWorkers:      2,
		},
		Whop: WhopConfig{
			BaseURL:              "https://api.whop.com/api/v1",
			PageSize:             100,
			RequestsPerSecond:    5,
			TimeoutSeconds:       30,
		},
		Analytics: AnalyticsConfig{
			CacheTTLMinutes:     10,
			BackfillDays:        365,
			BackfillThreshold:   30,
			BackfillConcurrency: 4,
			LockTTLMinutes:      30,
		},
		Retention: RetentionConfig{KeepDays: 400},
	}
}

func Load(configPath string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
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

	// 环境变量覆盖，例如 WHOP_API_KEY 覆盖 whop.api_key
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// AutomaticEnv 只对已知 key 生效，密钥类配置即使 yaml 中缺失也要能从环境变量读取
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"whop.api_key",
		"auth.service_secret",
		"database.password",
		"redis.password",
	} {
		_ = v.BindEnv(key)
	}
}
