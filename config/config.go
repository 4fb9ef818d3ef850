// Package config loads modelwire configuration from YAML with environment
// variable overrides. File values are merged onto defaults, then environment
// variables take precedence over both.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// AnthropicConfig configures the Anthropic provider.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key,omitempty"`
}

// GoogleConfig configures the Google Gemini provider.
type GoogleConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"` // Custom endpoint (default: official API)
}

// OllamaConfig configures the Ollama provider.
type OllamaConfig struct {
	Host string `yaml:"host,omitempty"` // default: http://localhost:11434
}

// OpenAIConfig configures the OpenAI provider.
type OpenAIConfig struct {
	APIKey       string `yaml:"api_key,omitempty"`
	BaseURL      string `yaml:"base_url,omitempty"` // Custom base URL (default: official API)
	Organization string `yaml:"organization,omitempty"`
}

// Config is the top-level modelwire configuration.
type Config struct {
	// DefaultModel is a provider-qualified model string, e.g.
	// "anthropic/claude-sonnet-4-5".
	DefaultModel string `yaml:"default_model,omitempty"`

	Anthropic AnthropicConfig `yaml:"anthropic,omitempty"`
	Google    GoogleConfig    `yaml:"google,omitempty"`
	Ollama    OllamaConfig    `yaml:"ollama,omitempty"`
	OpenAI    OpenAIConfig    `yaml:"openai,omitempty"`
}

// GetConfigPath returns the default config file path. Can be overridden via
// the MODELWIRE_CONFIG_PATH environment variable.
func GetConfigPath() string {
	if envPath := os.Getenv("MODELWIRE_CONFIG_PATH"); envPath != "" {
		return expandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.modelwire/config.yaml"
	}
	return filepath.Join(homeDir, ".modelwire", "config.yaml")
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// Load loads configuration from path. A missing file is not an error; the
// defaults plus environment overrides are returned.
func Load(path string) (*Config, error) {
	defaults := Config{
		Ollama: OllamaConfig{
			Host: "http://localhost:11434",
		},
	}

	expandedPath := expandPath(path)
	if _, err := os.Stat(expandedPath); err == nil {
		configYAML, err := os.ReadFile(expandedPath) //#nosec 304 -- intentional file read for config
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", expandedPath, err)
		}

		var fileConfig Config
		if err := yaml.Unmarshal(configYAML, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}

		if err := mergo.Merge(&defaults, fileConfig, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge config: %w", err)
		}
	}

	applyEnvOverrides(&defaults)
	return &defaults, nil
}

// Save writes the configuration to path, creating parent directories.
func Save(cfg *Config, path string) error {
	expandedPath := expandPath(path)

	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(expandedPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MODELWIRE_DEFAULT_MODEL"); v != "" {
		cfg.DefaultModel = v
	}
	applyAnthropicEnv(&cfg.Anthropic)
	applyGoogleEnv(&cfg.Google)
	applyOllamaEnv(&cfg.Ollama)
	applyOpenAIEnv(&cfg.OpenAI)
}
