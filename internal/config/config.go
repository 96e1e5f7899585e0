// Package config holds runtime settings read from the environment and the
// domain constants shared across packages.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	ListenAddr string
	GinMode    string

	StorageDriver string
	DBHost        string
	DBPort        int
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	DBLogLevel    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	TelegramBotToken    string
	TelegramAdminChatID int64
	TelegramLanguage    string
	LocalizationDir     string

	CORSAllowedOrigins []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:          env("LISTEN_ADDR", ":8080"),
		GinMode:             env("GIN_MODE", "release"),
		StorageDriver:       strings.ToLower(env("STORAGE_DRIVER", DriverPostgres)),
		DBHost:              env("DB_HOST", "localhost"),
		DBPort:              envInt("DB_PORT", 5432),
		DBUser:              env("DB_USER", "user"),
		DBPassword:          env("DB_PASSWORD", "password"),
		DBName:              env("DB_NAME", "complaintdb"),
		DBSSLMode:           env("DB_SSLMODE", "disable"),
		DBLogLevel:          strings.ToLower(env("DB_LOG_LEVEL", "error")),
		RedisAddr:           env("REDIS_ADDR", ""),
		RedisPassword:       env("REDIS_PASSWORD", ""),
		RedisDB:             envInt("REDIS_DB", 0),
		JWTSecret:           env("JWT_SECRET", ""),
		JWTIssuer:           env("JWT_ISSUER", "complaintdesk"),
		JWTTTL:              envDuration("JWT_TTL", DefaultTokenTTL),
		TelegramBotToken:    env("TELEGRAM_BOT_TOKEN", ""),
		TelegramAdminChatID: envInt64("TELEGRAM_ADMIN_CHAT_ID", 0),
		TelegramLanguage:    env("TELEGRAM_LANGUAGE", "en"),
		LocalizationDir:     env("LOCALIZATION_DIR", "internal/localization"),
		CORSAllowedOrigins:  envCSV("CORS_ALLOWED_ORIGINS"),
		HTTPReadTimeout:     envDuration("HTTP_READ_TIMEOUT", 10*time.Second),
		HTTPWriteTimeout:    envDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
	}

	switch cfg.StorageDriver {
	case DriverPostgres, DriverMemory:
	default:
		return Config{}, fmt.Errorf("STORAGE_DRIVER must be one of: %s, %s", DriverPostgres, DriverMemory)
	}
	if cfg.DBPort <= 0 {
		return Config{}, fmt.Errorf("invalid DB_PORT")
	}
	switch cfg.DBLogLevel {
	case "silent", "error", "warn", "info":
	default:
		return Config{}, fmt.Errorf("DB_LOG_LEVEL must be one of: silent, error, warn, info")
	}
	if len(strings.TrimSpace(cfg.JWTSecret)) < 16 {
		return Config{}, fmt.Errorf("JWT_SECRET must be set (>=16 chars)")
	}
	if cfg.JWTTTL <= 0 {
		return Config{}, fmt.Errorf("JWT_TTL must be positive")
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramAdminChatID == 0 {
		return Config{}, fmt.Errorf("TELEGRAM_ADMIN_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	if cfg.HTTPReadTimeout <= 0 || cfg.HTTPWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("HTTP timeouts must be positive")
	}
	return cfg, nil
}

// PostgresDSN builds the key/value DSN understood by the pgx driver.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// RedisEnabled reports whether event fan-out goes through Redis.
func (c Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// TelegramEnabled reports whether admin notifications are sent to Telegram.
func (c Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

func env(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func envInt64(k string, d int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return d
	}
	return n
}

func envDuration(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	dur, err := time.ParseDuration(v)
	if err != nil {
		return d
	}
	return dur
}

func envCSV(k string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
