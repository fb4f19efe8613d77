package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"contactrelay/pkg/config"
)

type Config struct {
	Server  config.ServerConfig  `yaml:"server"`
	Relay   config.RelayConfig   `yaml:"relay"`
	JWT     config.JWTConfig     `yaml:"jwt"`
	Session config.SessionConfig `yaml:"session"`
	DB      config.DBConfig      `yaml:"db"`
	MQ      config.MQConfig      `yaml:"mq"`
	Redis   config.RedisConfig   `yaml:"redis"`
}

// Load 读取 configDir 下的配置，按 env 合并并用环境变量覆盖，最后校验
func Load(env, configDir string) (*Config, error) {
	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := config.Decode(cfgMap, &cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖（优先级最高）
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideRelayFromEnv(&cfg.Relay)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)

	if cfg.Relay.ToName == "" {
		cfg.Relay.ToName = "Portfolio Owner"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验结构体上的 validate 标签
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
