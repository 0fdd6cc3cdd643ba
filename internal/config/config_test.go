package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		switch {
		case strings.HasPrefix(key, "API_"), strings.HasPrefix(key, "DB_"),
			strings.HasPrefix(key, "NOTIFY_"), strings.HasPrefix(key, "SLEEP_TIME_"):
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_ID", "12345")
	t.Setenv("API_HASH", "abcdef")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.SessionStartDelay != 360 || cfg.MaxGames != 100 || cfg.MinGamblingBalance != 100000 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	min, max := cfg.SleepWindow()
	if min != time.Hour || max != 3*time.Hour {
		t.Errorf("sleep window = %s..%s", min, max)
	}
	if cfg.EnableGambling || cfg.DBEnabled || cfg.NotifyEnabled() {
		t.Error("optional features must be off by default")
	}
	if cfg.Location() == nil {
		t.Error("location is nil")
	}
}

func TestLoadFromDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "API_ID=777\nAPI_HASH=hash\nENABLE_GAMBLING=true\nMAX_GAMES=10\nDEBUG_LOGGING=true\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv не перетирает уже заданные переменные, поэтому убираем их после теста
	for _, k := range []string{"API_ID", "API_HASH", "ENABLE_GAMBLING", "MAX_GAMES", "DEBUG_LOGGING"} {
		k := k
		t.Cleanup(func() { os.Unsetenv(k) })
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIID != 777 || !cfg.EnableGambling || cfg.MaxGames != 10 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("log level = %s", cfg.LogLevel())
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			APIID: 1, APIHash: "h",
			SleepTimeMin: 10, SleepTimeMax: 20,
			MaxGames: 10, RetryAttempts: 3, SessionsPerProxy: 1, BotMaxWorkers: 1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"ok", func(c *Config) {}, false},
		{"no api id", func(c *Config) { c.APIID = 0 }, true},
		{"sleep window reversed", func(c *Config) { c.SleepTimeMax = 5 }, true},
		{"db without password", func(c *Config) { c.DBEnabled = true; c.DBMaxConns = 10 }, true},
		{"db ok", func(c *Config) { c.DBEnabled = true; c.DBPassword = "p"; c.DBMaxConns = 10 }, false},
		{"notify token without chat", func(c *Config) { c.NotifyBotToken = "t" }, true},
		{"notify ok", func(c *Config) { c.NotifyBotToken = "t"; c.NotifyChatID = -100 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
