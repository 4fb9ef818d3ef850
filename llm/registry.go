package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
)

// Registry routes namespace-prefixed model IDs to registered providers.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its ID, replacing any previous registration
// for the same namespace.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// Provider returns the provider registered for the given namespace.
func (r *Registry) Provider(providerID string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("no provider registered for %q (registered: %v)", providerID, r.idsUnlocked())
	}
	return p, nil
}

// ProviderFor resolves a namespace-prefixed model ID like
// "anthropic/claude-sonnet-4-5" to its provider.
func (r *Registry) ProviderFor(model string) (Provider, error) {
	providerID, _, err := SplitModel(model)
	if err != nil {
		return nil, err
	}
	return r.Provider(providerID)
}

// Complete routes a request to the provider named by req.Model.
func (r *Registry) Complete(ctx context.Context, req *Request) (*Response, error) {
	p, err := r.ProviderFor(req.Model)
	if err != nil {
		return nil, err
	}
	return p.Complete(ctx, req)
}

// Stream routes a streaming request to the provider named by req.Model.
func (r *Registry) Stream(ctx context.Context, req *Request) (*StreamResponse, error) {
	p, err := r.ProviderFor(req.Model)
	if err != nil {
		return nil, err
	}
	return p.Stream(ctx, req)
}

// IDs returns the registered provider namespaces, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.idsUnlocked()
}

func (r *Registry) idsUnlocked() []string {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
