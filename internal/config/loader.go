package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	Environment   string
	HTTPPort      int
	SQLiteDSN     string
	AuthTTL       time.Duration
	LogLevel      slog.Level
	Locale        string
	InventoryFile string
	// BaseURL prefixes share links. Empty means the request host.
	BaseURL string
}

// Production reports whether the service runs with production settings.
func (c Config) Production() bool {
	return c.Environment == "production"
}

// Load parses configuration values from the current process environment.
//
// Outside production an optional .env file in the working directory is read first;
// variables already present in the environment win. Invalid values are reported
// together with localized messages.
func Load() (Config, error) {
	env := strings.TrimSpace(os.Getenv("SCHEDULER_ENV"))
	if env == "" {
		env = "development"
	}
	if env != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf(".env ファイルを読み込めません: %w", err)
		}
	}

	cfg := Config{
		Environment: env,
		HTTPPort:    8080,
		SQLiteDSN:   "scheduler.db",
		AuthTTL:     24 * time.Hour,
		LogLevel:    slog.LevelInfo,
		Locale:      "ja",
	}

	invalid := make([]string, 0, 3)

	if portValue := strings.TrimSpace(os.Getenv("SCHEDULER_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("SCHEDULER_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("SCHEDULER_AUTH_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "SCHEDULER_AUTH_TTL")
		} else {
			cfg.AuthTTL = ttl
		}
	}

	if levelValue := strings.TrimSpace(os.Getenv("LOG_LEVEL")); levelValue != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(levelValue)); err != nil {
			invalid = append(invalid, "LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if locale := strings.TrimSpace(os.Getenv("SCHEDULER_LOCALE")); locale != "" {
		cfg.Locale = locale
	}

	cfg.InventoryFile = strings.TrimSpace(os.Getenv("SCHEDULER_INVENTORY_FILE"))

	if base := strings.TrimSpace(os.Getenv("SCHEDULER_BASE_URL")); base != "" {
		if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
			invalid = append(invalid, "SCHEDULER_BASE_URL")
		} else {
			cfg.BaseURL = base
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
