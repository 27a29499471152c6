package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-0123456789")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", ":memory:")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.App.Name != "Doloop" {
		t.Errorf("app name = %q, want Doloop", cfg.App.Name)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.JWT.ExpiresIn != 7*24*time.Hour {
		t.Errorf("jwt expires_in = %v, want 168h", cfg.JWT.ExpiresIn)
	}
	if cfg.Database.GetDSN() != ":memory:" {
		t.Errorf("sqlite dsn = %q, want :memory:", cfg.Database.GetDSN())
	}
	if cfg.Scheduler.AutoReloop {
		t.Error("auto reloop should be disabled by default")
	}
	if cfg.AI.Provider != "none" {
		t.Errorf("ai provider = %q, want none", cfg.AI.Provider)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-0123456789")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("SCHEDULER_AUTO_RELOOP", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if !strings.Contains(cfg.Database.GetDSN(), "host=db.internal") {
		t.Errorf("dsn = %q, want host=db.internal", cfg.Database.GetDSN())
	}
	if !cfg.Scheduler.AutoReloop {
		t.Error("auto reloop should be enabled by env")
	}
}

func TestValidateConfig(t *testing.T) {
	base := func() Config {
		return Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Driver: "postgres", Host: "localhost", Name: "doloop"},
			JWT:      JWTConfig{Secret: "test-secret-0123456789"},
			AI:       AIConfig{Provider: "none"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"short secret", func(c *Config) { c.JWT.Secret = "short" }, "JWT secret"},
		{"bad driver", func(c *Config) { c.Database.Driver = "mongo" }, "unsupported database driver"},
		{"sqlite without path", func(c *Config) { c.Database.Driver = "sqlite" }, "database path"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server port"},
		{"openai without key", func(c *Config) { c.AI.Provider = "openai" }, "api key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := validateConfig(&cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
