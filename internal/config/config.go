// Package config содержит логику чтения конфигурации сервиса учёта долгов.
package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress  string        `env:"RUN_ADDRESS"`
	DatabaseURI string        `env:"DATABASE_URI"`
	RedisAddr   string        `env:"REDIS_ADDRESS"`
	JWTSecret   string        `env:"JWT_SECRET"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	// DefaultRegion регион для разбора номеров телефонов без кода страны.
	DefaultRegion string `env:"DEFAULT_REGION" envDefault:"IN"`

	// TestMode включает запись уведомлений в лог вместо отправки.
	TestMode bool `env:"TEST_MODE" envDefault:"true"`

	WhatsAppAPIURL        string        `env:"WHATSAPP_API_URL" envDefault:"https://graph.facebook.com/v18.0"`
	WhatsAppPhoneNumberID string        `env:"WHATSAPP_PHONE_NUMBER_ID"`
	WhatsAppAccessToken   string        `env:"WHATSAPP_ACCESS_TOKEN"`
	FCMProjectID          string        `env:"FCM_PROJECT_ID"`
	FCMCredentialsFile    string        `env:"FCM_CREDENTIALS_FILE"`
	NotifyTimeout         time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
}

// WhatsAppConfigured сообщает, заданы ли реквизиты WhatsApp Cloud API.
func (c *Config) WhatsAppConfigured() bool {
	return !c.TestMode && c.WhatsAppPhoneNumberID != "" && c.WhatsAppAccessToken != ""
}

// FCMConfigured сообщает, заданы ли реквизиты Firebase Cloud Messaging.
func (c *Config) FCMConfigured() bool {
	return !c.TestMode && c.FCMProjectID != ""
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg, err := loadEnv()
	if err != nil {
		return nil, err
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envRedisAddr := cfg.RedisAddr
	envJWTSecret := cfg.JWTSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RedisAddr, "r", "localhost:6379", "redis address")
	flag.StringVar(&cfg.JWTSecret, "s", "", "secret for signing access tokens")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envRedisAddr != "" {
		cfg.RedisAddr = envRedisAddr
	}
	if envJWTSecret != "" {
		cfg.JWTSecret = envJWTSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}

// Load считывает конфигурацию только из файла .env и переменных окружения.
// Используется утилитой администрирования, у которой собственные флаги.
func Load() (*Config, error) {
	cfg, err := loadEnv()
	if err != nil {
		return nil, err
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	return cfg, nil
}

func loadEnv() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.WhatsAppAPIURL = strings.TrimRight(cfg.WhatsAppAPIURL, "/")

	return cfg, nil
}
