package config

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/modelwire/modelwire/llm"
	llmanthropic "github.com/modelwire/modelwire/llm/anthropic"
	llmgoogle "github.com/modelwire/modelwire/llm/google"
	llmollama "github.com/modelwire/modelwire/llm/ollama"
	llmopenai "github.com/modelwire/modelwire/llm/openai"
)

func applyAnthropicEnv(cfg *AnthropicConfig) {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.APIKey = v
	}
}

func applyGoogleEnv(cfg *GoogleConfig) {
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("GOOGLE_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
}

func applyOllamaEnv(cfg *OllamaConfig) {
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.Host = v
	}
}

func applyOpenAIEnv(cfg *OpenAIConfig) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("OPENAI_ORG_ID"); v != "" {
		cfg.Organization = v
	}
}

// NewAnthropicProvider creates an Anthropic provider from the configuration.
func NewAnthropicProvider(cfg *Config, logger zerolog.Logger) (*llmanthropic.Provider, error) {
	return llmanthropic.New(cfg.Anthropic.APIKey, logger)
}

// NewGoogleProvider creates a Google provider from the configuration.
func NewGoogleProvider(cfg *Config, logger zerolog.Logger) (*llmgoogle.Provider, error) {
	return llmgoogle.New(cfg.Google.APIKey, llmgoogle.Options{BaseURL: cfg.Google.BaseURL}, logger)
}

// NewOllamaProvider creates an Ollama provider from the configuration.
func NewOllamaProvider(cfg *Config, logger zerolog.Logger) (*llmollama.Provider, error) {
	return llmollama.New(cfg.Ollama.Host, logger)
}

// NewOpenAIProvider creates an OpenAI provider from the configuration.
func NewOpenAIProvider(cfg *Config, logger zerolog.Logger) (*llmopenai.Provider, error) {
	return llmopenai.New(cfg.OpenAI.APIKey, llmopenai.Options{
		BaseURL:      cfg.OpenAI.BaseURL,
		Organization: cfg.OpenAI.Organization,
	}, logger)
}

// BuildRegistry constructs a registry holding every provider the
// configuration has credentials for. Ollama needs no key, so it is always
// registered.
func BuildRegistry(cfg *Config, logger zerolog.Logger) (*llm.Registry, error) {
	registry := llm.NewRegistry()

	if cfg.Anthropic.APIKey != "" {
		p, err := NewAnthropicProvider(cfg, logger)
		if err != nil {
			return nil, err
		}
		registry.Register(p)
	}
	if cfg.Google.APIKey != "" {
		p, err := NewGoogleProvider(cfg, logger)
		if err != nil {
			return nil, err
		}
		registry.Register(p)
	}
	if cfg.OpenAI.APIKey != "" {
		p, err := NewOpenAIProvider(cfg, logger)
		if err != nil {
			return nil, err
		}
		registry.Register(p)
	}

	ollamaProvider, err := NewOllamaProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	registry.Register(ollamaProvider)

	return registry, nil
}
