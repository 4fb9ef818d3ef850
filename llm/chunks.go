package llm

import "encoding/json"

// FinishReason is the normalized reason a model stopped generating.
type FinishReason string

const (
	FinishReasonStop                  FinishReason = "stop"
	FinishReasonMaxTokens             FinishReason = "max_tokens"
	FinishReasonToolCalls             FinishReason = "tool_calls"
	FinishReasonRefusal               FinishReason = "refusal"
	FinishReasonContextLengthExceeded FinishReason = "context_length_exceeded"
)

// Chunk is one normalized unit of a streaming response. Consumers pattern
// match on the concrete type:
//
//	switch c := chunk.(type) {
//	case llm.TextChunk:
//	    fmt.Print(c.Delta)
//	case llm.ToolCallStartChunk:
//	    ...
//	}
//
// The set of implementations is closed; external packages cannot add chunk
// kinds.
type Chunk interface {
	chunk()
}

// RawStreamEventChunk re-emits a provider stream event unmodified, before any
// normalized chunks derived from it. Callers needing provider-exact telemetry
// must not lose information to normalization.
type RawStreamEventChunk struct {
	Raw json.RawMessage
}

// TextStartChunk opens a text segment.
type TextStartChunk struct{}

// TextChunk carries an incremental text fragment.
type TextChunk struct {
	Delta string
}

// TextEndChunk closes a text segment.
type TextEndChunk struct{}

// ThoughtStartChunk opens a thought segment.
type ThoughtStartChunk struct{}

// ThoughtChunk carries an incremental thought fragment.
type ThoughtChunk struct {
	Delta string
}

// ThoughtEndChunk closes a thought segment.
type ThoughtEndChunk struct{}

// ToolCallStartChunk opens a tool call segment, carrying the call's identity.
type ToolCallStartChunk struct {
	ID   string
	Name string
}

// ToolCallChunk carries an incremental JSON-argument fragment for the open
// tool call.
type ToolCallChunk struct {
	ID    string
	Delta string
}

// ToolCallEndChunk closes a tool call segment.
type ToolCallEndChunk struct {
	ID string
}

// FinishReasonChunk reports the normalized finish reason once the provider
// signals termination.
type FinishReasonChunk struct {
	FinishReason FinishReason
}

// UsageDeltaChunk carries the per-chunk increase in token counts, derived by
// differencing successive cumulative usage reports.
type UsageDeltaChunk struct {
	InputTokens      int64
	OutputTokens     int64
	CacheReadTokens  int64
	CacheWriteTokens int64
	ReasoningTokens  int64
}

// RawMessageChunk is the final chunk of a stream: the fully reconstructed
// provider-native assistant message, attached as RawMessage on the assembled
// assistant message for round-tripping.
type RawMessageChunk struct {
	Raw json.RawMessage
}

func (RawStreamEventChunk) chunk() {}
func (TextStartChunk) chunk()      {}
func (TextChunk) chunk()           {}
func (TextEndChunk) chunk()        {}
func (ThoughtStartChunk) chunk()   {}
func (ThoughtChunk) chunk()        {}
func (ThoughtEndChunk) chunk()     {}
func (ToolCallStartChunk) chunk()  {}
func (ToolCallChunk) chunk()       {}
func (ToolCallEndChunk) chunk()    {}
func (FinishReasonChunk) chunk()   {}
func (UsageDeltaChunk) chunk()     {}
func (RawMessageChunk) chunk()     {}

// ChunkStream is a pull-based stream of normalized chunks.
// A stream is exclusively owned by a single consumer and must not be shared
// across goroutines.
type ChunkStream interface {
	// Next advances to the next chunk. It returns false when the stream is
	// exhausted or an error occurred; check Err afterwards.
	Next() bool

	// Chunk returns the current chunk. Valid only after Next returns true.
	Chunk() Chunk

	// Err returns the error that terminated the stream, if any.
	Err() error

	// Close releases transport resources. Abandoning iteration early must be
	// followed by Close.
	Close() error
}
