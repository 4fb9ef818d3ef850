package llm

import "sort"

// ThinkingLevel expresses how much reasoning effort a request asks for.
// Providers translate levels into budgets or native effort settings.
type ThinkingLevel string

const (
	ThinkingLevelDefault ThinkingLevel = "default"
	ThinkingLevelNone    ThinkingLevel = "none"
	ThinkingLevelMinimal ThinkingLevel = "minimal"
	ThinkingLevelLow     ThinkingLevel = "low"
	ThinkingLevelMedium  ThinkingLevel = "medium"
	ThinkingLevelHigh    ThinkingLevel = "high"
	ThinkingLevelMax     ThinkingLevel = "max"
)

// ThinkingBudgetMultiplier maps a thinking level to the fraction of
// max_tokens granted as a reasoning budget on providers that take a token
// budget rather than a level.
var ThinkingBudgetMultiplier = map[ThinkingLevel]float64{
	ThinkingLevelNone:    0,
	ThinkingLevelMinimal: 0.1,
	ThinkingLevelLow:     0.2,
	ThinkingLevelMedium:  0.4,
	ThinkingLevelHigh:    0.6,
	ThinkingLevelMax:     0.8,
}

// ThinkingConfig configures extended thinking for a request.
type ThinkingConfig struct {
	Level ThinkingLevel `json:"level,omitempty"`
	// IncludeThoughts asks the provider to return thought summaries.
	IncludeThoughts bool `json:"include_thoughts,omitempty"`
	// EncodeThoughtsAsText re-encodes prior thought parts as visible text
	// when sending history, instead of reusing the raw provider message.
	EncodeThoughtsAsText bool `json:"encode_thoughts_as_text,omitempty"`
}

// Params holds provider-agnostic generation parameters. Nil fields are
// unset and left to provider defaults.
type Params struct {
	Temperature   *float64        `json:"temperature,omitempty"`
	MaxTokens     *int64          `json:"max_tokens,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	TopK          *int64          `json:"top_k,omitempty"`
	Seed          *int64          `json:"seed,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Thinking      *ThinkingConfig `json:"thinking,omitempty"`
}

// ParamTracker wraps Params and records which parameters an encoder read.
// Parameters that are set but never accessed are not silently dropped: the
// encoder surfaces them through Untracked so operators can detect drift
// between the internal parameter schema and provider support.
type ParamTracker struct {
	params   Params
	accessed map[string]bool
}

// NewParamTracker creates a tracker over params.
func NewParamTracker(params Params) *ParamTracker {
	return &ParamTracker{params: params, accessed: make(map[string]bool)}
}

func (t *ParamTracker) Temperature() *float64 {
	t.accessed["temperature"] = true
	return t.params.Temperature
}

func (t *ParamTracker) MaxTokens() *int64 {
	t.accessed["max_tokens"] = true
	return t.params.MaxTokens
}

func (t *ParamTracker) TopP() *float64 {
	t.accessed["top_p"] = true
	return t.params.TopP
}

func (t *ParamTracker) TopK() *int64 {
	t.accessed["top_k"] = true
	return t.params.TopK
}

func (t *ParamTracker) Seed() *int64 {
	t.accessed["seed"] = true
	return t.params.Seed
}

func (t *ParamTracker) StopSequences() []string {
	t.accessed["stop_sequences"] = true
	return t.params.StopSequences
}

func (t *ParamTracker) Thinking() *ThinkingConfig {
	t.accessed["thinking"] = true
	return t.params.Thinking
}

// Untracked returns the names of parameters that are set on the request but
// were never accessed by the encoder, sorted for stable output.
func (t *ParamTracker) Untracked() []string {
	var names []string
	if t.params.Temperature != nil && !t.accessed["temperature"] {
		names = append(names, "temperature")
	}
	if t.params.MaxTokens != nil && !t.accessed["max_tokens"] {
		names = append(names, "max_tokens")
	}
	if t.params.TopP != nil && !t.accessed["top_p"] {
		names = append(names, "top_p")
	}
	if t.params.TopK != nil && !t.accessed["top_k"] {
		names = append(names, "top_k")
	}
	if t.params.Seed != nil && !t.accessed["seed"] {
		names = append(names, "seed")
	}
	if t.params.StopSequences != nil && !t.accessed["stop_sequences"] {
		names = append(names, "stop_sequences")
	}
	if t.params.Thinking != nil && !t.accessed["thinking"] {
		names = append(names, "thinking")
	}
	sort.Strings(names)
	return names
}

// Float64 returns a pointer to v. Helper for building Params literals.
func Float64(v float64) *float64 { return &v }

// Int64 returns a pointer to v. Helper for building Params literals.
func Int64(v int64) *int64 { return &v }
