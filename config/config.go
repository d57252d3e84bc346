// Package config loads runtime settings from config.toml and DEVIS_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"devis/logger"
)

// Config holds all application configuration
type Config struct {
	App     AppConfig
	Redis   RedisConfig
	LocalDB LocalDBConfig
	Storage StorageConfig
	Log     logger.Config
	Mail    MailConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	// DefaultCompany is the company used when a request does not select one.
	DefaultCompany string
	Seed           bool
}

// RedisConfig holds Redis connection settings for the draft KV store
type RedisConfig struct {
	Enabled       bool
	Host          string
	Port          int
	Password      string
	DB            int
	KeyPrefix     string
	AllowFallback bool // use the in-memory store when Redis cannot be reached
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LocalDBConfig holds the SQLite mirror location
type LocalDBConfig struct {
	Path string
}

// StorageConfig tunes the draft mirror
type StorageConfig struct {
	CheckTTL time.Duration
	Timeout  time.Duration
}

// MailConfig holds the sender used when quotes are sent by email
type MailConfig struct {
	SenderName    string
	SenderAddress string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with DEVIS_ prefix (e.g., DEVIS_REDIS_HOST)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./pb_data")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("DEVIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans need an explicit default so that "false" can be told apart from unset.
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.allow_fallback", true)

	cfg := &Config{
		App: AppConfig{
			Name:           v.GetString("app.name"),
			Env:            v.GetString("app.env"),
			DefaultCompany: v.GetString("app.default_company"),
			Seed:           v.GetBool("app.seed"),
		},
		Redis: RedisConfig{
			Enabled:       v.GetBool("redis.enabled"),
			Host:          v.GetString("redis.host"),
			Port:          v.GetInt("redis.port"),
			Password:      v.GetString("redis.password"),
			DB:            v.GetInt("redis.db"),
			KeyPrefix:     v.GetString("redis.key_prefix"),
			AllowFallback: v.GetBool("redis.allow_fallback"),
		},
		LocalDB: LocalDBConfig{
			Path: v.GetString("localdb.path"),
		},
		Storage: StorageConfig{
			CheckTTL: v.GetDuration("storage.check_ttl"),
			Timeout:  v.GetDuration("storage.timeout"),
		},
		Log: logger.Config{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Mail: MailConfig{
			SenderName:    v.GetString("mail.sender_name"),
			SenderAddress: v.GetString("mail.sender_address"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "devis"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "devis:draft:"
	}
	if cfg.LocalDB.Path == "" {
		cfg.LocalDB.Path = "pb_data/drafts.db"
	}
	if cfg.Storage.CheckTTL == 0 {
		cfg.Storage.CheckTTL = 30 * time.Second
	}
	if cfg.Storage.Timeout == 0 {
		cfg.Storage.Timeout = 2 * time.Second
	}
	def := logger.DefaultConfig()
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Format
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = def.Output
	}
	if cfg.Mail.SenderName == "" {
		cfg.Mail.SenderName = "Devis"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		return fmt.Errorf("redis.port must be between 1 and 65535, got %d", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db cannot be negative")
	}
	if c.Storage.CheckTTL < 0 || c.Storage.Timeout < 0 {
		return fmt.Errorf("storage durations cannot be negative")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if c.App.Env == "production" && c.Redis.Enabled && c.Redis.AllowFallback {
		return fmt.Errorf("redis.allow_fallback must be false in production")
	}
	return nil
}
