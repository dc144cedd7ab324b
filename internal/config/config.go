package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Weather  WeatherConfig  `mapstructure:"weather"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Server   ServerConfig   `mapstructure:"server"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CatalogConfig holds event catalog source and refresh configuration
type CatalogConfig struct {
	SourceURL       string        `mapstructure:"source_url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	StaleAfter      time.Duration `mapstructure:"stale_after"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxEvents       int           `mapstructure:"max_events"`
}

// WeatherConfig holds weather provider configuration
type WeatherConfig struct {
	APIBaseURL string        `mapstructure:"api_base_url"`
	Latitude   float64       `mapstructure:"latitude"`
	Longitude  float64       `mapstructure:"longitude"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Enabled    bool          `mapstructure:"enabled"`
}

// OpenAIConfig holds the LLM shortlist collaborator configuration
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
	Enabled bool          `mapstructure:"enabled"`
}

// ChatConfig holds conversation engine configuration
type ChatConfig struct {
	SessionTTL         time.Duration `mapstructure:"session_ttl"`
	MaxRecommendations int           `mapstructure:"max_recommendations"`
	City               string        `mapstructure:"city"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// TelegramConfig holds the optional Telegram chat front-end configuration
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	Enabled  bool   `mapstructure:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("NIGHTOWL")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Catalog defaults
	v.SetDefault("catalog.source_url", "https://www.whatsonglasgow.co.uk/events/")
	v.SetDefault("catalog.refresh_interval", "1h")
	v.SetDefault("catalog.stale_after", "1h")
	v.SetDefault("catalog.timeout", "30s")
	v.SetDefault("catalog.max_events", 500)

	// Weather defaults (Glasgow city centre)
	v.SetDefault("weather.api_base_url", "https://api.open-meteo.com/v1")
	v.SetDefault("weather.latitude", 55.8642)
	v.SetDefault("weather.longitude", -4.2518)
	v.SetDefault("weather.timeout", "10s")
	v.SetDefault("weather.enabled", true)

	// OpenAI defaults
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.timeout", "20s")
	v.SetDefault("openai.enabled", false)

	// Chat defaults
	v.SetDefault("chat.session_ttl", "30m")
	v.SetDefault("chat.max_recommendations", 3)
	v.SetDefault("chat.city", "Glasgow")

	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Catalog.SourceURL == "" {
		return fmt.Errorf("catalog.source_url is required")
	}
	if c.Catalog.RefreshInterval < 1*time.Minute {
		return fmt.Errorf("catalog.refresh_interval must be at least 1 minute")
	}
	if c.Catalog.StaleAfter < 1*time.Minute {
		return fmt.Errorf("catalog.stale_after must be at least 1 minute")
	}
	if c.Catalog.Timeout <= 0 {
		return fmt.Errorf("catalog.timeout must be positive")
	}
	if c.Catalog.MaxEvents < 1 {
		return fmt.Errorf("catalog.max_events must be at least 1")
	}

	if c.Weather.Enabled {
		if c.Weather.APIBaseURL == "" {
			return fmt.Errorf("weather.api_base_url is required when weather is enabled")
		}
		if c.Weather.Latitude < -90 || c.Weather.Latitude > 90 {
			return fmt.Errorf("weather.latitude must be between -90 and 90")
		}
		if c.Weather.Longitude < -180 || c.Weather.Longitude > 180 {
			return fmt.Errorf("weather.longitude must be between -180 and 180")
		}
		if c.Weather.Timeout <= 0 {
			return fmt.Errorf("weather.timeout must be positive")
		}
	}

	if c.OpenAI.Enabled {
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai.api_key is required when openai is enabled")
		}
		if c.OpenAI.Model == "" {
			return fmt.Errorf("openai.model is required when openai is enabled")
		}
	}

	if c.Chat.SessionTTL < 1*time.Minute {
		return fmt.Errorf("chat.session_ttl must be at least 1 minute")
	}
	if c.Chat.MaxRecommendations < 1 {
		return fmt.Errorf("chat.max_recommendations must be at least 1")
	}
	if c.Chat.City == "" {
		return fmt.Errorf("chat.city is required")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
