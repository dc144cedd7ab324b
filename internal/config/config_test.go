package config

import (
	"os"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoadAndValidate(t *testing.T) {
	content := `
catalog:
  source_url: "https://www.whatsonglasgow.co.uk/events/"
  refresh_interval: 1h
  stale_after: 1h
  timeout: 30s
  max_events: 500

weather:
  api_base_url: "https://api.open-meteo.com/v1"
  latitude: 55.8642
  longitude: -4.2518
  timeout: 10s
  enabled: true

chat:
  session_ttl: 30m
  max_recommendations: 3
  city: "Glasgow"

server:
  addr: ":8080"

logging:
  level: "info"
  format: "json"
`
	cfg, err := Load(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Catalog.SourceURL != "https://www.whatsonglasgow.co.uk/events/" {
		t.Errorf("Unexpected catalog source URL: %s", cfg.Catalog.SourceURL)
	}
	if cfg.Catalog.RefreshInterval != time.Hour {
		t.Errorf("Expected refresh interval 1h, got %v", cfg.Catalog.RefreshInterval)
	}
	if cfg.Chat.MaxRecommendations != 3 {
		t.Errorf("Expected max recommendations 3, got %d", cfg.Chat.MaxRecommendations)
	}
	if cfg.Chat.City != "Glasgow" {
		t.Errorf("Expected city Glasgow, got %s", cfg.Chat.City)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	// A minimal file should pick up defaults for everything else.
	cfg, err := Load(writeTempConfig(t, "logging:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Catalog.SourceURL == "" {
		t.Error("Expected default catalog source URL")
	}
	if cfg.Weather.Latitude == 0 {
		t.Error("Expected default latitude")
	}
	if cfg.Chat.SessionTTL != 30*time.Minute {
		t.Errorf("Expected default session TTL 30m, got %v", cfg.Chat.SessionTTL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected logging level debug, got %s", cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Defaults should validate: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeTempConfig(t, "logging:\n  level: info\n"))
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty source URL", func(c *Config) { c.Catalog.SourceURL = "" }},
		{"refresh interval too short", func(c *Config) { c.Catalog.RefreshInterval = time.Second }},
		{"zero max events", func(c *Config) { c.Catalog.MaxEvents = 0 }},
		{"latitude out of range", func(c *Config) { c.Weather.Latitude = 123 }},
		{"openai enabled without key", func(c *Config) { c.OpenAI.Enabled = true; c.OpenAI.APIKey = "" }},
		{"session TTL too short", func(c *Config) { c.Chat.SessionTTL = time.Second }},
		{"zero max recommendations", func(c *Config) { c.Chat.MaxRecommendations = 0 }},
		{"empty city", func(c *Config) { c.Chat.City = "" }},
		{"telegram enabled without token", func(c *Config) { c.Telegram.Enabled = true }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}
