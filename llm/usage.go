package llm

import "encoding/json"

// Usage represents token usage reported by a provider.
// OutputTokens includes separately-billed reasoning tokens so totals are
// comparable across providers. Raw carries the provider's verbatim usage
// structure.
type Usage struct {
	InputTokens      int64           `json:"input_tokens"`
	OutputTokens     int64           `json:"output_tokens"`
	CacheReadTokens  int64           `json:"cache_read_tokens,omitempty"`
	CacheWriteTokens int64           `json:"cache_write_tokens,omitempty"`
	ReasoningTokens  int64           `json:"reasoning_tokens,omitempty"`
	Raw              json.RawMessage `json:"raw,omitempty"`
}

// Add accumulates other into u. Raw is not combined; the caller keeps
// whichever raw payload it considers authoritative.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheReadTokens += other.CacheReadTokens
	u.CacheWriteTokens += other.CacheWriteTokens
	u.ReasoningTokens += other.ReasoningTokens
}
