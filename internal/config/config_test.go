package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Store.Driver != StoreDriverPostgres {
		t.Errorf("Expected postgres driver, got %s", cfg.Store.Driver)
	}
	if cfg.Comments.MaxLength != 500 {
		t.Errorf("Expected max length 500, got %d", cfg.Comments.MaxLength)
	}
	if cfg.Comments.DefaultDepth != 1 {
		t.Errorf("Expected default depth 1, got %d", cfg.Comments.DefaultDepth)
	}
	if cfg.Engagement.RetryBackoff != 10*time.Millisecond {
		t.Errorf("Expected 10ms backoff, got %s", cfg.Engagement.RetryBackoff)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Errorf("Expected wildcard origin, got %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "JWT_SECRET=from-file\nSTORE_DRIVER=mongo\nCOMMENT_MAX_DEPTH=3\nCORS_ALLOWED_ORIGINS=https://a.example, https://b.example\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// registered so the values loaded from the file are cleared afterwards
	for _, key := range []string{"JWT_SECRET", "STORE_DRIVER", "COMMENT_MAX_DEPTH", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Auth.JWTSecret != "from-file" {
		t.Errorf("Expected secret from file, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Store.Driver != StoreDriverMongo {
		t.Errorf("Expected mongo driver, got %s", cfg.Store.Driver)
	}
	if cfg.Comments.MaxDepth != 3 {
		t.Errorf("Expected max depth 3, got %d", cfg.Comments.MaxDepth)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected origins %v", cfg.Server.AllowedOrigins)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store:      StoreConfig{Driver: StoreDriverPostgres},
			Database:   DatabaseConfig{Host: "localhost", Name: "db"},
			Auth:       AuthConfig{JWTSecret: "secret"},
			Engagement: EngagementConfig{MaxRetries: 3},
			Comments:   CommentsConfig{MaxLength: 500, DefaultDepth: 1, MaxDepth: 8, MaxFanout: 10},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Store.Driver = "redis" }, "STORE_DRIVER"},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, "JWT_SECRET"},
		{"missing mongo uri", func(c *Config) { c.Store.Driver = StoreDriverMongo; c.Mongo.Database = "x" }, "MONGO_URI"},
		{"depth over max", func(c *Config) { c.Comments.DefaultDepth = 9 }, "COMMENT_DEFAULT_DEPTH"},
		{"zero fanout", func(c *Config) { c.Comments.MaxFanout = 0 }, "COMMENT_MAX_FANOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
