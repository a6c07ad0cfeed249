// Package config holds the ambiance service configuration: one YAML file
// with per-section structs, defaults that work out of the box, and a small
// set of environment overrides for secrets and deploy-time paths.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"ambiance/internal/logging"
)

// Config holds all ambiance configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Language-model provider
	LLM LLMConfig `yaml:"llm"`

	// Sound and theme catalogs
	Catalog CatalogConfig `yaml:"catalog"`

	// Crossfade tunables
	Playback PlaybackConfig `yaml:"playback"`

	// HTTP surface
	Server ServerConfig `yaml:"server"`

	// Request log
	Store StoreConfig `yaml:"store"`

	// Category file logging
	Logging logging.Config `yaml:"logging"`
}

// LLMConfig configures the model provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`
	Strategy string `yaml:"strategy"` // structured, tools
}

// TimeoutDuration parses the configured timeout, falling back to a minute.
func (c LLMConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// CatalogConfig configures catalog file locations. Empty paths fall back
// to the embedded defaults.
type CatalogConfig struct {
	SoundsPath   string `yaml:"sounds_path"`
	ThemesPath   string `yaml:"themes_path"`
	AssetBaseURL string `yaml:"asset_base_url"`
}

// PlaybackConfig configures the crossfade window.
type PlaybackConfig struct {
	FadeDuration string `yaml:"fade_duration"`
	FadeSteps    int    `yaml:"fade_steps"`
}

// FadeDurationValue parses the configured window, falling back to the
// five second default.
func (c PlaybackConfig) FadeDurationValue() time.Duration {
	d, err := time.ParseDuration(c.FadeDuration)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	AssetDir    string `yaml:"asset_dir"`
	BearerToken string `yaml:"bearer_token"`
}

// StoreConfig configures the request log.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "ambiance",
		Version: "1.0.0",

		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.5-flash-lite",
			Timeout:  "60s",
			Strategy: "structured",
		},

		Catalog: CatalogConfig{
			AssetBaseURL: "http://localhost:8787",
		},

		Playback: PlaybackConfig{
			FadeDuration: "5s",
			FadeSteps:    20,
		},

		Server: ServerConfig{
			Addr:     ":8787",
			AssetDir: "data/sounds",
		},

		Store: StoreConfig{
			DatabasePath: "data/ambiance.db",
		},

		Logging: logging.Config{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; a present but malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "gemini"
		}
	}
	if addr := os.Getenv("AMBIANCE_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if path := os.Getenv("AMBIANCE_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if dir := os.Getenv("AMBIANCE_ASSET_DIR"); dir != "" {
		c.Server.AssetDir = dir
	}
}
