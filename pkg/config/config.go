package config

import (
	"os"
	"strconv"
	"time"
)

// 占位凭证：与站点模板自带的默认值一致，出现时进入演示模式
const (
	PlaceholderPublicKey  = "YOUR_PUBLIC_KEY_HERE"
	PlaceholderServiceID  = "YOUR_SERVICE_ID"
	PlaceholderTemplateID = "YOUR_TEMPLATE_ID"
)

// DBConfig 数据库配置
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// Enabled 未配置 host 时不启用投递日志
func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

// MQConfig 消息队列配置
type MQConfig struct {
	URL string `yaml:"url" validate:"omitempty,url"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"min=0"`
}

// JWTConfig JWT配置，用于签发表单令牌
type JWTConfig struct {
	Secret   string        `yaml:"secret" validate:"required,min=16"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port string `yaml:"port" validate:"required"`
}

// RelayConfig 邮件中继配置
// Timeout 为 0 表示不设超时
type RelayConfig struct {
	BaseURL    string        `yaml:"base_url" validate:"required,url"`
	PublicKey  string        `yaml:"public_key"`
	PrivateKey string        `yaml:"private_key"`
	ServiceID  string        `yaml:"service_id"`
	TemplateID string        `yaml:"template_id"`
	ToName     string        `yaml:"to_name"`
	Timeout    time.Duration `yaml:"timeout" validate:"min=0"`
}

// Configured 三个凭证都不是空值或占位值时才算配置完成
func (c RelayConfig) Configured() bool {
	return isSet(c.PublicKey, PlaceholderPublicKey) &&
		isSet(c.ServiceID, PlaceholderServiceID) &&
		isSet(c.TemplateID, PlaceholderTemplateID)
}

func isSet(value, placeholder string) bool {
	return value != "" && value != placeholder
}

// SessionConfig 表单会话配置
type SessionConfig struct {
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	LockTTL     time.Duration `yaml:"lock_ttl"`
}

// OverrideDBFromEnv 从环境变量覆盖数据库配置
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
}

// OverrideMQFromEnv 从环境变量覆盖MQ配置
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv 从环境变量覆盖Redis配置
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideJWTFromEnv 从环境变量覆盖JWT配置
func OverrideJWTFromEnv(cfg *JWTConfig) {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Secret = secret
	}
}

// OverrideServerFromEnv 从环境变量覆盖服务器配置
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

// OverrideRelayFromEnv 从环境变量覆盖中继凭证
func OverrideRelayFromEnv(cfg *RelayConfig) {
	if key := os.Getenv("RELAY_PUBLIC_KEY"); key != "" {
		cfg.PublicKey = key
	}
	if key := os.Getenv("RELAY_PRIVATE_KEY"); key != "" {
		cfg.PrivateKey = key
	}
	if id := os.Getenv("RELAY_SERVICE_ID"); id != "" {
		cfg.ServiceID = id
	}
	if id := os.Getenv("RELAY_TEMPLATE_ID"); id != "" {
		cfg.TemplateID = id
	}
	if timeout := os.Getenv("RELAY_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.Timeout = d
		}
	}
}
