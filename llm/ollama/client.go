// Package ollama implements the llm.Provider interface on top of a local or
// remote Ollama server's chat API.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/modelwire/modelwire/llm"
)

// Provider calls an Ollama server. It is safe for concurrent use.
type Provider struct {
	client *api.Client
	logger zerolog.Logger
}

// New creates an Ollama provider. If host is empty the client is configured
// from the environment (OLLAMA_HOST, defaulting to http://localhost:11434).
func New(host string, logger zerolog.Logger) (*Provider, error) {
	var client *api.Client
	if host != "" {
		baseURL, err := parseHost(host)
		if err != nil {
			return nil, fmt.Errorf("invalid host: %w", err)
		}
		client = api.NewClient(baseURL, http.DefaultClient)
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("creating ollama client: %w", err)
		}
	}
	return &Provider{client: client, logger: logger}, nil
}

func parseHost(host string) (*url.URL, error) {
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return url.Parse(host)
}

// ID implements llm.Provider.
func (p *Provider) ID() string { return llm.ProviderOllama }

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	modelID, encoded, err := p.encode(req)
	if err != nil {
		return nil, err
	}

	var chatResp api.ChatResponse
	err = p.client.Chat(ctx, &encoded.chatReq, func(resp api.ChatResponse) error {
		chatResp = resp
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}

	return decodeResponse(modelID, &chatResp)
}

// Stream implements llm.Provider.
func (p *Provider) Stream(ctx context.Context, req *llm.Request) (*llm.StreamResponse, error) {
	modelID, encoded, err := p.encode(req)
	if err != nil {
		return nil, err
	}

	stream := true
	encoded.chatReq.Stream = &stream
	return llm.NewStreamResponse(llm.ProviderOllama, modelID, modelID,
		newChunkStream(ctx, p.client, &encoded.chatReq)), nil
}

func (p *Provider) encode(req *llm.Request) (string, *encodedRequest, error) {
	if req == nil {
		return "", nil, fmt.Errorf("request is required")
	}
	providerID, modelID, err := llm.SplitModel(req.Model)
	if err != nil {
		return "", nil, err
	}
	if providerID != llm.ProviderOllama {
		return "", nil, fmt.Errorf("model %q is not an ollama model", req.Model)
	}

	encoded, err := encodeRequest(modelID, req)
	if err != nil {
		return "", nil, fmt.Errorf("encoding request: %w", err)
	}
	llm.LogUntrackedParams(p.logger, llm.ProviderOllama, modelID, encoded.untracked)
	return modelID, encoded, nil
}

// mapError converts client errors into the normalized error taxonomy.
func mapError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		message := statusErr.ErrorMessage
		if message == "" {
			message = "ollama api error"
		}
		return llm.NewAPIError(statusErr.StatusCode, message, err)
	}
	return err
}

var _ llm.Provider = (*Provider)(nil)
