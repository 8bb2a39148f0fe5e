package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://test:27017/testdb")
	t.Setenv("PORT", "6000")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("SUMMARY_CACHE_TTL", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Database.MongoURI != "mongodb://test:27017/testdb" {
		t.Errorf("Expected mongo URI from env, got: %s", cfg.Database.MongoURI)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Expected port 6000, got: %d", cfg.Server.Port)
	}
	if cfg.Server.IsDevelopment() {
		t.Error("Expected production environment")
	}
	if cfg.Payments.SummaryCacheTTL != 45*time.Second {
		t.Errorf("Expected summary TTL 45s, got: %s", cfg.Payments.SummaryCacheTTL)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NODE_ENV", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Database.Driver != DriverMongo {
		t.Errorf("Expected default driver %q, got: %q", DriverMongo, cfg.Database.Driver)
	}
	if cfg.Server.FrontendURL != "http://localhost:3000" {
		t.Errorf("Unexpected frontend URL: %s", cfg.Server.FrontendURL)
	}
	if cfg.Redis.Enabled {
		t.Error("Redis should be disabled without redis_url")
	}
	if cfg.Payments.DefaultPageSize != 20 || cfg.Payments.MaxPageSize != 100 {
		t.Errorf("Unexpected page sizes: %+v", cfg.Payments)
	}
	if cfg.Server.Environment != "production" {
		t.Errorf("Expected default environment production, got: %q", cfg.Server.Environment)
	}
	if cfg.Server.IsDevelopment() {
		t.Error("Error details must not be exposed unless NODE_ENV is development")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: DriverMongo, MongoURI: "mongodb://localhost:27017/test"},
			Server:   ServerConfig{Port: 5000, RateLimitMax: 100},
			Payments: PaymentsConfig{DefaultPageSize: 20, MaxPageSize: 100},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Errorf("Valid config should not error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "cassandra" }},
		{"postgres without url", func(c *Config) { c.Database.Driver = DriverPostgres }},
		{"empty mongo uri", func(c *Config) { c.Database.MongoURI = "" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"max below default", func(c *Config) { c.Payments.MaxPageSize = 10 }},
		{"negative rate limit", func(c *Config) { c.Server.RateLimitMax = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}
