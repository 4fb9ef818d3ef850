// Package google implements the llm.Provider interface on top of the Gemini
// generateContent API. The wire types are maintained by hand against the
// v1beta REST surface.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/modelwire/modelwire/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Options configures optional provider behavior.
type Options struct {
	// BaseURL overrides the API endpoint, for proxies and tests.
	BaseURL string

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Provider calls the Gemini API. It is safe for concurrent use.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a Google provider with the given API key.
func New(apiKey string, opts Options, logger zerolog.Logger) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Provider{apiKey: apiKey, baseURL: baseURL, httpClient: httpClient, logger: logger}, nil
}

// ID implements llm.Provider.
func (p *Provider) ID() string { return llm.ProviderGoogle }

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	modelID, encoded, err := p.encode(req)
	if err != nil {
		return nil, err
	}

	httpResp, err := p.post(ctx, modelID, "generateContent", "", &encoded.request)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, decodeError(httpResp.StatusCode, body)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return decodeResponse(modelID, &apiResp)
}

// Stream implements llm.Provider.
func (p *Provider) Stream(ctx context.Context, req *llm.Request) (*llm.StreamResponse, error) {
	modelID, encoded, err := p.encode(req)
	if err != nil {
		return nil, err
	}

	httpResp, err := p.post(ctx, modelID, "streamGenerateContent", "alt=sse", &encoded.request)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		return nil, decodeError(httpResp.StatusCode, body)
	}

	return llm.NewStreamResponse(llm.ProviderGoogle, modelID, modelID, newChunkStream(httpResp.Body)), nil
}

func (p *Provider) encode(req *llm.Request) (string, *encodedRequest, error) {
	if req == nil {
		return "", nil, fmt.Errorf("request is required")
	}
	providerID, modelID, err := llm.SplitModel(req.Model)
	if err != nil {
		return "", nil, err
	}
	if providerID != llm.ProviderGoogle {
		return "", nil, fmt.Errorf("model %q is not a google model", req.Model)
	}

	encoded, err := encodeRequest(modelID, req)
	if err != nil {
		return "", nil, fmt.Errorf("encoding request: %w", err)
	}
	llm.LogUntrackedParams(p.logger, llm.ProviderGoogle, modelID, encoded.untracked)
	return modelID, encoded, nil
}

func (p *Provider) post(ctx context.Context, modelID, method, query string, payload *apiRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:%s", p.baseURL, url.PathEscape(modelID), method)
	if query != "" {
		endpoint += "?" + query
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling gemini api: %w", err)
	}
	return httpResp, nil
}

// decodeError maps an API error response to the normalized taxonomy.
func decodeError(statusCode int, body []byte) error {
	message := "google api error"
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}
	return llm.NewAPIError(statusCode, message, fmt.Errorf("google api: status %d", statusCode))
}

var _ llm.Provider = (*Provider)(nil)
