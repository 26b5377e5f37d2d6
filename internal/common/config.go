// Package common provides shared utilities for chartsage
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for chartsage
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Clients     ClientsConfig  `toml:"clients"`
	Analysis    AnalysisConfig `toml:"analysis"`
	Auth        AuthConfig     `toml:"auth"`
	Logging     LoggingConfig  `toml:"logging"`
	Tracing     TracingConfig  `toml:"tracing"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	Traders AreaConfig `toml:"traders"` // Trader accounts + approval flag (BadgerHold)
}

// AreaConfig holds path configuration for a storage area.
type AreaConfig struct {
	Path string `toml:"path"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Gemini GeminiConfig `toml:"gemini"`
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey        string `toml:"api_key"`
	AnalysisModel string `toml:"analysis_model"`
	ImageModel    string `toml:"image_model"`
	LiveModel     string `toml:"live_model"`
	Voice         string `toml:"voice"`
	RateLimit     int    `toml:"rate_limit"` // requests per second, 0 disables limiting
	Timeout       string `toml:"timeout"`
}

// GetTimeout parses and returns the per-call timeout
func (c *GeminiConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 90 * time.Second
	}
	return d
}

// AnalysisConfig controls the orchestration pipeline.
type AnalysisConfig struct {
	HistorySize       int    `toml:"history_size"`
	Enrichment        bool   `toml:"enrichment"`
	EnrichmentTimeout string `toml:"enrichment_timeout"`
	ProjectionTimeout string `toml:"projection_timeout"`
	DefaultMarket     string `toml:"default_market"`
}

// GetEnrichmentTimeout parses the enrichment stage timeout.
func (c *AnalysisConfig) GetEnrichmentTimeout() time.Duration {
	d, err := time.ParseDuration(c.EnrichmentTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetProjectionTimeout parses the projection stage timeout.
func (c *AnalysisConfig) GetProjectionTimeout() time.Duration {
	d, err := time.ParseDuration(c.ProjectionTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// AuthConfig holds access-gate configuration.
type AuthConfig struct {
	JWTSecret   string   `toml:"jwt_secret"`
	TokenExpiry string   `toml:"token_expiry"` // duration string, default "24h"
	AdminKey    string   `toml:"admin_key"`    // required by the approve endpoint
	Whitelist   []string `toml:"whitelist"`    // trader ids approved on login
}

// GetTokenExpiry parses and returns the token expiry duration.
func (c *AuthConfig) GetTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.TokenExpiry)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

// TracingConfig toggles the stdout span exporter.
type TracingConfig struct {
	Enabled bool `toml:"enabled"`
}

const devJWTSecret = "dev-jwt-secret-change-in-production"

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Traders: AreaConfig{Path: "data/traders"},
		},
		Clients: ClientsConfig{
			Gemini: GeminiConfig{
				AnalysisModel: "gemini-3-flash-preview",
				ImageModel:    "gemini-2.5-flash-image",
				LiveModel:     "gemini-2.5-flash-native-audio-preview-12-2025",
				Voice:         "Puck",
				RateLimit:     2,
				Timeout:       "90s",
			},
		},
		Analysis: AnalysisConfig{
			HistorySize:       10,
			Enrichment:        true,
			EnrichmentTimeout: "30s",
			ProjectionTimeout: "60s",
			DefaultMarket:     "SPOT",
		},
		Auth: AuthConfig{
			JWTSecret:   devJWTSecret,
			TokenExpiry: "24h",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			Outputs:  []string{"console"},
			FilePath: "./logs/chartsage.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A .env file in the working directory is loaded first when present.
func LoadConfig(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("CHARTSAGE_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("CHARTSAGE_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("CHARTSAGE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("CHARTSAGE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("CHARTSAGE_DATA_PATH"); path != "" {
		config.Storage.Traders.Path = strings.TrimRight(path, "/") + "/traders"
	}

	// GEMINI_API_KEY is the conventional name; the prefixed form wins when both are set
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.Clients.Gemini.APIKey = v
	}
	if v := os.Getenv("CHARTSAGE_GEMINI_API_KEY"); v != "" {
		config.Clients.Gemini.APIKey = v
	}
	if v := os.Getenv("CHARTSAGE_GEMINI_MODEL"); v != "" {
		config.Clients.Gemini.AnalysisModel = v
	}

	if v := os.Getenv("CHARTSAGE_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv("CHARTSAGE_AUTH_ADMIN_KEY"); v != "" {
		config.Auth.AdminKey = v
	}
	if v := os.Getenv("CHARTSAGE_AUTH_WHITELIST"); v != "" {
		var ids []string
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, strings.ToUpper(id))
			}
		}
		config.Auth.Whitelist = ids
	}

	if v := os.Getenv("CHARTSAGE_TRACING"); v != "" {
		config.Tracing.Enabled = v == "true" || v == "1"
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ValidateRequired returns the names of settings that must be provided
// before the server can do useful work.
func (c *Config) ValidateRequired() []string {
	var missing []string
	if c.Clients.Gemini.APIKey == "" {
		missing = append(missing, "clients.gemini.api_key")
	}
	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == devJWTSecret {
		missing = append(missing, "auth.jwt_secret")
	}
	return missing
}
