package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// BotTokenEnv is the environment variable GetBotToken reads
const BotTokenEnv = "TELEGRAM_BOT_TOKEN"

// Config holds all application configuration
type Config struct {
	BotToken     string        `yaml:"bot_token"`
	LogLevel     string        `yaml:"log_level"`
	Addr         string        `yaml:"addr"`
	DB           string        `yaml:"db"`
	ValidateIP   bool          `yaml:"validate_ip"`
	AllowedCIDRs []string      `yaml:"allowed_cidrs"`
	MaxAge       time.Duration `yaml:"max_age"`
	ReplayTTL    time.Duration `yaml:"replay_ttl"`
	RedisURL     string        `yaml:"redis_url"`
	TSAuthKey    string        `yaml:"ts_authkey"`
	TSHostname   string        `yaml:"ts_hostname"`
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.TSHostname == "" {
		cfg.TSHostname = "initguard"
	}
	if cfg.DB == "" {
		cfg.DB = "sqlite:initguard.db"
	}
	if cfg.MaxAge < 0 || cfg.ReplayTTL < 0 {
		return nil, fmt.Errorf("max_age and replay_ttl must not be negative")
	}

	return &cfg, nil
}

// GetBotToken returns the bot token from the config file, falling back to
// the environment
func (c *Config) GetBotToken() string {
	if c != nil && c.BotToken != "" {
		return c.BotToken
	}
	return os.Getenv(BotTokenEnv)
}
