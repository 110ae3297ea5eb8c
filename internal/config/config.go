package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	HTTPAddr string

	RedisURL    string
	DatabaseURL string

	JWTSecret string

	GameTTL   time.Duration
	ListLimit int

	NotifyMode    string
	NotifyBaseURL string
	NotifyWSURL   string
	NotifyDryRun  bool

	MessagesDir string
}

// Load reads the process environment. A .env file in the working directory,
// or the one named by ENV_FILE, is applied first without overriding
// variables that are already set.
func Load() (*AppConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &AppConfig{
		HTTPAddr:   ":8080",
		GameTTL:    24 * time.Hour,
		ListLimit:  50,
		NotifyMode: "log",
	}

	if v := env("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.RedisURL = env("REDIS_URL")
	cfg.DatabaseURL = env("DATABASE_URL")
	cfg.JWTSecret = env("JWT_SECRET")

	if v := env("GAME_TTL"); v != "" { // duration like 12h, or seconds
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.GameTTL = d
		} else if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.GameTTL = time.Duration(n) * time.Second
		}
	}
	if v := env("LIST_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ListLimit = n
		}
	}

	if v := env("NOTIFY_MODE"); v != "" {
		cfg.NotifyMode = strings.ToLower(v)
	}
	cfg.NotifyBaseURL = env("NOTIFY_BASE_URL")
	cfg.NotifyWSURL = env("NOTIFY_WS_URL")
	if v := env("NOTIFY_DRYRUN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.NotifyDryRun = b
		}
	}
	cfg.MessagesDir = env("MESSAGES_DIR")

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	switch cfg.NotifyMode {
	case "http":
		if cfg.NotifyBaseURL == "" {
			return nil, errors.New("NOTIFY_BASE_URL is required for NOTIFY_MODE=http")
		}
	case "ws":
		if cfg.NotifyWSURL == "" {
			return nil, errors.New("NOTIFY_WS_URL is required for NOTIFY_MODE=ws")
		}
	case "auto":
		if cfg.NotifyBaseURL == "" {
			return nil, errors.New("NOTIFY_BASE_URL is required for NOTIFY_MODE=auto")
		}
	}

	return cfg, nil
}

func loadDotEnv() error {
	path := env("ENV_FILE")
	if path == "" {
		path = ".env"
		if _, err := os.Stat(path); err != nil {
			return nil
		}
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func env(k string) string { return strings.TrimSpace(os.Getenv(k)) }
