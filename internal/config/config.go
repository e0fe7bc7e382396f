package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Auth     AuthConfig
	AI       AIConfig
	Engine   EngineConfig
	Session  SessionConfig
	Cache    CacheConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// AuthConfig 租户令牌配置
type AuthConfig struct {
	Enabled   bool
	JWTSecret string
	TokenTTL  int // 小时
}

// AIConfig AI配置，primary/secondary 组成降级链的前两级
type AIConfig struct {
	Primary   ProviderConfig
	Secondary ProviderConfig
}

// ProviderConfig 单个模型提供商配置
type ProviderConfig struct {
	Provider string // openai, deepseek, qwen ...
	Client   string // eino, openai
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  int // 秒，0 表示使用 engine.providerTimeout
}

// Configured API Key 为空视为未配置
func (p ProviderConfig) Configured() bool {
	return strings.TrimSpace(p.APIKey) != ""
}

// EngineConfig 响应生成引擎配置
type EngineConfig struct {
	HistoryLimit       int
	ProviderTimeout    int // 秒
	MaxConcurrentCalls int
	AsyncPostProcess   bool
	PostProcessTimeout int // 秒
}

// SessionConfig 会话配置
type SessionConfig struct {
	LockBackend string // local, redis
	LockTTL     int    // 秒
}

// CacheConfig 缓存配置
type CacheConfig struct {
	TenantTTL int // 秒，0 表示不缓存
}

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("NEXT_ASSISTANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ProviderTimeoutDuration 单次模型调用超时
func (c *EngineConfig) ProviderTimeoutDuration() time.Duration {
	return time.Duration(c.ProviderTimeout) * time.Second
}

// PostProcessTimeoutDuration 后处理超时
func (c *EngineConfig) PostProcessTimeoutDuration() time.Duration {
	return time.Duration(c.PostProcessTimeout) * time.Second
}

// LockTTLDuration 会话锁过期时间
func (c *SessionConfig) LockTTLDuration() time.Duration {
	return time.Duration(c.LockTTL) * time.Second
}

// TenantTTLDuration 租户配置缓存时间
func (c *CacheConfig) TenantTTLDuration() time.Duration {
	return time.Duration(c.TenantTTL) * time.Second
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "next-assistant")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 90)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "next_assistant")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)

	// Redis
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Auth
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.tokenTTL", 24*30)

	// AI
	v.SetDefault("ai.primary.provider", "openai")
	v.SetDefault("ai.primary.client", "eino")
	v.SetDefault("ai.primary.baseUrl", "https://api.openai.com/v1")
	v.SetDefault("ai.primary.apiKey", "")
	v.SetDefault("ai.primary.model", "gpt-4o-mini")
	v.SetDefault("ai.primary.timeout", 0)
	v.SetDefault("ai.secondary.provider", "deepseek")
	v.SetDefault("ai.secondary.client", "openai")
	v.SetDefault("ai.secondary.baseUrl", "https://api.deepseek.com/v1")
	v.SetDefault("ai.secondary.apiKey", "")
	v.SetDefault("ai.secondary.model", "deepseek-chat")
	v.SetDefault("ai.secondary.timeout", 0)

	// Engine
	v.SetDefault("engine.historyLimit", 5)
	v.SetDefault("engine.providerTimeout", 30)
	v.SetDefault("engine.maxConcurrentCalls", 16)
	v.SetDefault("engine.asyncPostProcess", false)
	v.SetDefault("engine.postProcessTimeout", 20)

	// Session
	v.SetDefault("session.lockBackend", "local")
	v.SetDefault("session.lockTTL", 60)

	// Cache
	v.SetDefault("cache.tenantTTL", 600)
}
