package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func unsetAll(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SCHEDULER_ENV",
		"SCHEDULER_HTTP_PORT",
		"SCHEDULER_SQLITE_DSN",
		"SCHEDULER_AUTH_TTL",
		"LOG_LEVEL",
		"SCHEDULER_LOCALE",
		"SCHEDULER_INVENTORY_FILE",
		"SCHEDULER_BASE_URL",
	} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		unsetAll(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "scheduler.db" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.AuthTTL != 24*time.Hour {
			t.Fatalf("expected default TTL 24h, got %s", cfg.AuthTTL)
		}
		if cfg.Locale != "ja" || cfg.Environment != "development" || cfg.Production() {
			t.Fatalf("unexpected defaults: %+v", cfg)
		}
		if cfg.InventoryFile != "" {
			t.Fatalf("expected no inventory file, got %q", cfg.InventoryFile)
		}
	})

	t.Run("reports every invalid value", func(t *testing.T) {
		unsetAll(t)
		t.Setenv("SCHEDULER_HTTP_PORT", "http")
		t.Setenv("SCHEDULER_AUTH_TTL", "-1h")
		t.Setenv("LOG_LEVEL", "loud")
		t.Setenv("SCHEDULER_BASE_URL", "not a url")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "環境変数の値が不正です: SCHEDULER_HTTP_PORT, SCHEDULER_AUTH_TTL, LOG_LEVEL, SCHEDULER_BASE_URL"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("parses duration, level and numeric fields", func(t *testing.T) {
		unsetAll(t)
		t.Setenv("SCHEDULER_ENV", "production")
		t.Setenv("SCHEDULER_HTTP_PORT", "9090")
		t.Setenv("SCHEDULER_SQLITE_DSN", "file:/tmp/scheduler.db")
		t.Setenv("SCHEDULER_AUTH_TTL", "2h")
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("SCHEDULER_LOCALE", "en")
		t.Setenv("SCHEDULER_INVENTORY_FILE", " inventory.toml ")
		t.Setenv("SCHEDULER_BASE_URL", "https://rehearsal.example/app")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if !cfg.Production() {
			t.Fatalf("expected production environment")
		}
		if cfg.AuthTTL != 2*time.Hour {
			t.Fatalf("expected TTL 2h, got %s", cfg.AuthTTL)
		}
		if cfg.LogLevel != slog.LevelDebug {
			t.Fatalf("expected debug level, got %s", cfg.LogLevel)
		}
		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:/tmp/scheduler.db" {
			t.Fatalf("unexpected DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.BaseURL != "https://rehearsal.example/app" {
			t.Fatalf("unexpected base url: %q", cfg.BaseURL)
		}
		if cfg.Locale != "en" || cfg.InventoryFile != "inventory.toml" {
			t.Fatalf("unexpected locale or inventory: %+v", cfg)
		}
	})
}
