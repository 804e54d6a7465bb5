package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vango-dev/lobbyd/internal/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lobbyd.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Address != DefaultAddress {
		t.Errorf("Address = %q, want %q", cfg.Address, DefaultAddress)
	}
	if cfg.MaxSessions != DefaultMaxSessions {
		t.Errorf("MaxSessions = %d, want %d", cfg.MaxSessions, DefaultMaxSessions)
	}
	if cfg.QueueCapacity != DefaultCapacity || cfg.DeliveryCapacity != DefaultCapacity {
		t.Errorf("capacities = %d/%d, want %d", cfg.QueueCapacity, cfg.DeliveryCapacity, DefaultCapacity)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg.Path() != "" {
		t.Errorf("Path() = %q, want empty", cfg.Path())
	}
	if cfg.PlayersPerMatch != DefaultPlayersPerMatch {
		t.Errorf("PlayersPerMatch = %d, want default", cfg.PlayersPerMatch)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
address = "127.0.0.1:9000"
max_sessions = 4
players_per_match = 3
write_timeout = "2s"
log_format = "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Address != "127.0.0.1:9000" {
		t.Errorf("Address = %q", cfg.Address)
	}
	if cfg.MaxSessions != 4 {
		t.Errorf("MaxSessions = %d, want 4", cfg.MaxSessions)
	}
	if cfg.PlayersPerMatch != 3 {
		t.Errorf("PlayersPerMatch = %d, want 3", cfg.PlayersPerMatch)
	}
	if cfg.WriteTimeout != 2*time.Second {
		t.Errorf("WriteTimeout = %v, want 2s", cfg.WriteTimeout)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	// Unset keys keep their defaults.
	if cfg.QueueCapacity != DefaultCapacity {
		t.Errorf("QueueCapacity = %d, want default", cfg.QueueCapacity)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `max_sessions = 4`)
	t.Setenv("LOBBYD_MAX_SESSIONS", "8")
	t.Setenv("LOBBYD_SHUTDOWN_TIMEOUT", "5s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxSessions != 8 {
		t.Errorf("MaxSessions = %d, want 8 from env", cfg.MaxSessions)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", cfg.ShutdownTimeout)
	}
}

func TestLoad_OverridesApplyBeforeValidation(t *testing.T) {
	t.Setenv("LOBBYD_MAX_SESSIONS", "0")

	if _, err := Load(""); !errors.HasCode(err, "E102") {
		t.Fatalf("Load without override = %v, want E102", err)
	}

	cfg, err := Load("", func(c *Config) { c.MaxSessions = 5 })
	if err != nil {
		t.Fatalf("Load with override: %v", err)
	}
	if cfg.MaxSessions != 5 {
		t.Errorf("MaxSessions = %d, want 5 from override", cfg.MaxSessions)
	}

	if _, err := Load("", func(c *Config) { c.PlayersPerMatch = 0 }); !errors.HasCode(err, "E102") {
		t.Errorf("invalid override = %v, want E102", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     func(t *testing.T) string
		env      map[string]string
		wantCode string
	}{
		{
			name:     "missing file",
			path:     func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.toml") },
			wantCode: "E100",
		},
		{
			name:     "malformed toml",
			path:     func(t *testing.T) string { return writeConfig(t, `max_sessions = [`) },
			wantCode: "E101",
		},
		{
			name:     "unknown key",
			path:     func(t *testing.T) string { return writeConfig(t, `max_lobbies = 3`) },
			wantCode: "E104",
		},
		{
			name:     "bad env value",
			path:     func(t *testing.T) string { return "" },
			env:      map[string]string{"LOBBYD_MAX_SESSIONS": "many"},
			wantCode: "E103",
		},
		{
			name:     "invalid value",
			path:     func(t *testing.T) string { return writeConfig(t, `max_sessions = 0`) },
			wantCode: "E102",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(tt.path(t))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.HasCode(err, tt.wantCode) {
				t.Errorf("error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad address", func(c *Config) { c.Address = "7878" }},
		{"zero players", func(c *Config) { c.PlayersPerMatch = 0 }},
		{"negative queue", func(c *Config) { c.QueueCapacity = -1 }},
		{"negative delivery", func(c *Config) { c.DeliveryCapacity = -1 }},
		{"zero write timeout", func(c *Config) { c.WriteTimeout = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"relative metrics path", func(c *Config) { c.MetricsPath = "metrics" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.HasCode(err, "E102") {
				t.Errorf("Validate() = %v, want E102", err)
			}
		})
	}

	cfg := Default()
	cfg.QueueCapacity = 0
	cfg.MetricsPath = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("unbuffered queue and disabled metrics should be valid: %v", err)
	}
}
