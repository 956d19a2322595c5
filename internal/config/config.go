package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	GenAI      GenAIConfig      `yaml:"genai"`
	Generation GenerationConfig `yaml:"generation"`
	Rotation   RotationConfig   `yaml:"rotation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	SessionTTL string `yaml:"session_ttl"`
	RefreshTTL string `yaml:"refresh_ttl"`
}

// GenAIConfig configures the text-generation backend.
type GenAIConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Timeout     string  `yaml:"timeout"`
	Temperature float32 `yaml:"temperature"`
}

type GenerationConfig struct {
	// Concurrency bounds how many categories generate at once.
	Concurrency  int `yaml:"concurrency"`
	MaxCount     int `yaml:"max_count"`
	DefaultCount int `yaml:"default_count"`
}

type RotationConfig struct {
	// Timezone defines where "today" starts for the daily feed.
	Timezone string `yaml:"timezone"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":5010",
			ReadTimeout:     "15s",
			WriteTimeout:    "150s",
			ShutdownTimeout: "10s",
		},
		Database: DatabaseConfig{Path: "./data/windspire.db"},
		Auth:     AuthConfig{SessionTTL: "24h", RefreshTTL: "720h"},
		GenAI: GenAIConfig{
			Model:       "gemini-2.5-flash",
			Timeout:     "120s",
			Temperature: 0.9,
		},
		Generation: GenerationConfig{Concurrency: 2, MaxCount: 50, DefaultCount: 5},
		Rotation:   RotationConfig{Timezone: "UTC"},
		Logging:    LoggingConfig{Level: "info"},
	}
}

// Load reads path on top of the defaults, applies env overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	if v := os.Getenv("WINDSPIRE_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		c.GenAI.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.GenAI.APIKey = v
	}
	if v := os.Getenv("WINDSPIRE_MODEL"); v != "" {
		c.GenAI.Model = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	durations := map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"auth.session_ttl":        c.Auth.SessionTTL,
		"auth.refresh_ttl":        c.Auth.RefreshTTL,
		"genai.timeout":           c.GenAI.Timeout,
	}
	for name, v := range durations {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
	}
	if c.Generation.Concurrency < 1 {
		return fmt.Errorf("generation.concurrency must be positive, got %d", c.Generation.Concurrency)
	}
	if c.Generation.MaxCount < 1 {
		return fmt.Errorf("generation.max_count must be at least 1, got %d", c.Generation.MaxCount)
	}
	if c.Generation.DefaultCount < 1 || c.Generation.DefaultCount > c.Generation.MaxCount {
		return fmt.Errorf("generation.default_count must be between 1 and max_count, got %d", c.Generation.DefaultCount)
	}
	if _, err := time.LoadLocation(c.Rotation.Timezone); err != nil {
		return fmt.Errorf("invalid rotation.timezone %q: %w", c.Rotation.Timezone, err)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	return nil
}

// Duration parses a validated duration field.
func Duration(v string) time.Duration {
	d, _ := time.ParseDuration(v)
	return d
}

// Location returns the rotation timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Rotation.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
