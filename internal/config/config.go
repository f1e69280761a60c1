package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	LogLevel string
	Port     string

	StorageBackend string
	PostgresDSN    string
	UsersFile      string
	BedroomsFile   string
	SessionsFile   string

	AuthMode       string // local or remote
	JWTSecret      string
	TokenTTL       time.Duration
	AuthServiceURL string

	RedisAddr     string // empty disables the redis rate limiter
	RateLimit     int    // requests per window per client
	RateWindowSec int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnv("PORT", "8088"),

		StorageBackend: getEnv("STORAGE_BACKEND", "file"),
		PostgresDSN:    getEnv("POSTGRES_DSN", ""),
		UsersFile:      getEnv("USERS_FILE", "data/users.json"),
		BedroomsFile:   getEnv("BEDROOMS_FILE", "data/bedrooms.json"),
		SessionsFile:   getEnv("SESSIONS_FILE", "data/sleep_sessions.json"),

		AuthMode:       getEnv("AUTH_MODE", "local"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		AuthServiceURL: getEnv("AUTH_SERVICE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RateLimit:     getEnvInt("RATE_LIMIT", 120),
		RateWindowSec: getEnvInt("RATE_WINDOW_SEC", 60),
	}

	ttlHours := getEnvInt("TOKEN_TTL_HOURS", 24)
	cfg.TokenTTL = time.Duration(ttlHours) * time.Hour

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	switch c.StorageBackend {
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required when STORAGE_BACKEND=postgres")
		}
	case "file":
		if c.UsersFile == "" || c.BedroomsFile == "" || c.SessionsFile == "" {
			return errors.New("file storage requires USERS_FILE, BEDROOMS_FILE and SESSIONS_FILE")
		}
	default:
		return errors.New("STORAGE_BACKEND must be file or postgres")
	}
	switch c.AuthMode {
	case "local":
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required when AUTH_MODE=local")
		}
	case "remote":
		if c.AuthServiceURL == "" {
			return errors.New("AUTH_SERVICE_URL is required when AUTH_MODE=remote")
		}
	default:
		return errors.New("AUTH_MODE must be local or remote")
	}
	if c.RateLimit <= 0 || c.RateWindowSec <= 0 {
		return errors.New("RATE_LIMIT and RATE_WINDOW_SEC must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
