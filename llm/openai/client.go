// Package openai implements the llm.Provider interface on top of the OpenAI
// Chat Completions API. It also serves OpenAI-compatible endpoints via a
// custom base URL.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/modelwire/modelwire/llm"
)

// The API does not expose retry-after headers through the SDK; rate limit
// errors carry a fixed hint instead.
const defaultRetryAfter = 60 * time.Second

// Provider calls the OpenAI API. It is safe for concurrent use.
type Provider struct {
	client *openai.Client
	logger zerolog.Logger
}

// Options configures optional client behavior.
type Options struct {
	// BaseURL overrides the API endpoint, for OpenAI-compatible servers.
	BaseURL string
	// Organization is sent as the OpenAI-Organization header.
	Organization string
}

// New creates an OpenAI provider with the given API key.
func New(apiKey string, opts Options, logger zerolog.Logger) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	config := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}
	if opts.Organization != "" {
		config.OrgID = opts.Organization
	}
	return &Provider{client: openai.NewClientWithConfig(config), logger: logger}, nil
}

// ID implements llm.Provider.
func (p *Provider) ID() string { return llm.ProviderOpenAI }

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	modelID, encoded, err := p.encode(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateChatCompletion(ctx, encoded.request)
	if err != nil {
		return nil, mapError(err)
	}
	out, err := decodeResponse(modelID, &resp)
	if err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return out, nil
}

// Stream implements llm.Provider.
func (p *Provider) Stream(ctx context.Context, req *llm.Request) (*llm.StreamResponse, error) {
	modelID, encoded, err := p.encode(req)
	if err != nil {
		return nil, err
	}

	chatReq := encoded.request
	chatReq.Stream = true
	// Without this the stream never reports usage.
	chatReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, mapError(err)
	}
	return llm.NewStreamResponse(llm.ProviderOpenAI, modelID, modelID, newChunkStream(stream)), nil
}

func (p *Provider) encode(req *llm.Request) (string, *encodedRequest, error) {
	if req == nil {
		return "", nil, fmt.Errorf("request is required")
	}
	providerID, modelID, err := llm.SplitModel(req.Model)
	if err != nil {
		return "", nil, err
	}
	if providerID != llm.ProviderOpenAI {
		return "", nil, fmt.Errorf("model %q is not an openai model", req.Model)
	}

	encoded, err := encodeRequest(modelID, req)
	if err != nil {
		return "", nil, fmt.Errorf("encoding request: %w", err)
	}
	llm.LogUntrackedParams(p.logger, llm.ProviderOpenAI, modelID, encoded.untracked)
	return modelID, encoded, nil
}

// mapError converts SDK errors into the normalized error taxonomy.
func mapError(err error) error {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	mapped := llm.NewAPIError(apiErr.HTTPStatusCode, apiErr.Message, err)
	if mapped.Type == llm.ErrorTypeRateLimit {
		retryAfter := defaultRetryAfter
		mapped.RetryAfter = &retryAfter
	}
	return mapped
}

var _ llm.Provider = (*Provider)(nil)
