package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	JWTSecret string
	JWTIssuer string

	StoreTimeout     time.Duration
	NotifyTimeout    time.Duration
	NotifyMaxRetries int

	InviteDefaultTTLDays int
	InviteMaxTTLDays     int

	// RequestRetention bounds how long terminal connection requests survive the periodic purge.
	RequestRetention time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "teamsync-api")
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("NOTIFY_TIMEOUT", "2s")
	v.SetDefault("NOTIFY_MAX_RETRIES", 3)
	v.SetDefault("INVITE_DEFAULT_TTL_DAYS", 7)
	v.SetDefault("INVITE_MAX_TTL_DAYS", 30)
	v.SetDefault("REQUEST_RETENTION", "720h")
	v.AutomaticEnv()

	cfg := &Config{
		Port:     v.GetString("PORT"),
		Env:      v.GetString("ENV"),
		LogLevel: v.GetString("LOG_LEVEL"),

		DatabaseURL: v.GetString("DATABASE_URL"),

		JWTSecret: v.GetString("JWT_SECRET"),
		JWTIssuer: v.GetString("JWT_ISSUER"),

		StoreTimeout:     v.GetDuration("STORE_TIMEOUT"),
		NotifyTimeout:    v.GetDuration("NOTIFY_TIMEOUT"),
		NotifyMaxRetries: v.GetInt("NOTIFY_MAX_RETRIES"),

		InviteDefaultTTLDays: v.GetInt("INVITE_DEFAULT_TTL_DAYS"),
		InviteMaxTTLDays:     v.GetInt("INVITE_MAX_TTL_DAYS"),

		RequestRetention: v.GetDuration("REQUEST_RETENTION"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("required environment variable not set: DATABASE_URL")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("required environment variable not set: JWT_SECRET")
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 5 * time.Second
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 2 * time.Second
	}
	if c.InviteDefaultTTLDays <= 0 {
		c.InviteDefaultTTLDays = 7
	}
	if c.InviteMaxTTLDays < c.InviteDefaultTTLDays {
		c.InviteMaxTTLDays = c.InviteDefaultTTLDays
	}
	if c.RequestRetention <= 0 {
		c.RequestRetention = 30 * 24 * time.Hour
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
