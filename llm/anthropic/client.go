// Package anthropic implements the llm.Provider interface on top of the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/modelwire/modelwire/llm"
)

// Provider calls the Anthropic API. It is safe for concurrent use.
type Provider struct {
	client *anthropic.Client
	logger zerolog.Logger
}

// New creates an Anthropic provider with the given API key.
func New(apiKey string, logger zerolog.Logger) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Provider{client: &client, logger: logger}, nil
}

// ID implements llm.Provider.
func (p *Provider) ID() string { return llm.ProviderAnthropic }

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	modelID, encoded, err := p.encode(req)
	if err != nil {
		return nil, err
	}

	message, err := p.client.Messages.New(ctx, encoded.params)
	if err != nil {
		return nil, mapError(err)
	}

	resp, err := decodeResponse(modelID, message)
	if err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	p.logCacheStats(resp.Usage)
	return resp, nil
}

// Stream implements llm.Provider.
func (p *Provider) Stream(ctx context.Context, req *llm.Request) (*llm.StreamResponse, error) {
	modelID, encoded, err := p.encode(req)
	if err != nil {
		return nil, err
	}

	stream := p.client.Messages.NewStreaming(ctx, encoded.params)
	return llm.NewStreamResponse(llm.ProviderAnthropic, modelID, modelID, newChunkStream(stream)), nil
}

func (p *Provider) encode(req *llm.Request) (string, *encodedRequest, error) {
	if req == nil {
		return "", nil, fmt.Errorf("request is required")
	}
	providerID, modelID, err := llm.SplitModel(req.Model)
	if err != nil {
		return "", nil, err
	}
	if providerID != llm.ProviderAnthropic {
		return "", nil, fmt.Errorf("model %q is not an anthropic model", req.Model)
	}

	encoded, err := encodeRequest(modelID, req)
	if err != nil {
		return "", nil, fmt.Errorf("encoding request: %w", err)
	}
	llm.LogUntrackedParams(p.logger, llm.ProviderAnthropic, modelID, encoded.untracked)
	return modelID, encoded, nil
}

func (p *Provider) logCacheStats(usage llm.Usage) {
	if usage.CacheReadTokens == 0 && usage.CacheWriteTokens == 0 {
		return
	}
	cacheEfficiency := float64(0)
	if usage.InputTokens > 0 {
		cacheEfficiency = float64(usage.CacheReadTokens) / float64(usage.InputTokens) * 100
	}
	p.logger.Debug().
		Int64("input_tokens", usage.InputTokens).
		Int64("cache_read_tokens", usage.CacheReadTokens).
		Int64("cache_write_tokens", usage.CacheWriteTokens).
		Float64("cache_efficiency", cacheEfficiency).
		Msg("Prompt cache stats")
}

// mapError converts SDK errors into the normalized error taxonomy.
func mapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return llm.NewAPIError(apiErr.StatusCode, "anthropic api error", err)
	}
	return err
}

var _ llm.Provider = (*Provider)(nil)
