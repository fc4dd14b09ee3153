// Package config loads the compiler service's YAML configuration, with
// environment-variable overrides for secrets that should never live in a
// checked-in file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the top-level application configuration.
type Config struct {
	Server     ServerConfig              `yaml:"server"`
	RunLog     RunLogConfig              `yaml:"run_log"`
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Generation GenerationConfig          `yaml:"generation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// RunLogConfig holds the optional run-telemetry database settings. When
// URL is empty, run logging is skipped rather than falling back to an
// in-memory store: a run log with no durability is not worth keeping.
type RunLogConfig struct {
	URL string `yaml:"url"`
}

// ProviderConfig holds one named LLM provider's connection settings.
type ProviderConfig struct {
	Type   string `yaml:"type"`    // e.g. "openai"
	URL    string `yaml:"url"`     // base URL
	APIKey string `yaml:"api_key"` // overridden by the matching env var if set
}

// GenerationConfig holds default generation parameters applied when a
// compile request doesn't override them.
type GenerationConfig struct {
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
	MaxRetries  int      `yaml:"max_retries"`
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	return &Config{
		Server:    ServerConfig{Host: "0.0.0.0", Port: 8080},
		Providers: map[string]ProviderConfig{},
		Generation: GenerationConfig{
			Model:      "gpt-5-mini",
			MaxTokens:  2048,
			MaxRetries: 3,
		},
	}
}

// Load reads a YAML configuration file at path and returns a Config. A
// ".env" file in the working directory, if present, is loaded first so
// its variables are visible to the provider-API-key override below; a
// missing .env is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadDefault tries to load "config.yaml" from the current directory. If
// the file does not exist, it returns sensible defaults (with env
// overrides still applied). Any other error (permission denied,
// malformed YAML) is returned.
func LoadDefault() (*Config, error) {
	cfg, err := Load("config.yaml")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			_ = godotenv.Load()
			cfg = defaults()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets NOTEGEN_<NAME>_API_KEY override a provider's
// api_key without it ever needing to appear in config.yaml.
func applyEnvOverrides(cfg *Config) {
	for name, pc := range cfg.Providers {
		if key := os.Getenv("NOTEGEN_" + envName(name) + "_API_KEY"); key != "" {
			pc.APIKey = key
			cfg.Providers[name] = pc
		}
	}
}

func envName(providerName string) string {
	out := make([]byte, len(providerName))
	for i := 0; i < len(providerName); i++ {
		c := providerName[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c == '-' {
			c = '_'
		}
		out[i] = c
	}
	return string(out)
}
