package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Request is a provider-neutral generation request. Model is the
// namespace-prefixed model ID, e.g. "anthropic/claude-sonnet-4-5" or
// "google/gemini-2.5-flash".
type Request struct {
	Model    string
	Messages []Message
	Tools    []ToolDefinition
	Format   *Format
	Params   *Params
}

// SplitModel splits a namespace-prefixed model ID into provider and model
// parts.
func SplitModel(model string) (providerID, modelID string, err error) {
	providerID, modelID, ok := strings.Cut(model, "/")
	if !ok || providerID == "" || modelID == "" {
		return "", "", fmt.Errorf("model ID %q is not of the form provider/model", model)
	}
	return providerID, modelID, nil
}

// Response is a complete, non-streaming generation result.
type Response struct {
	// Message is the assistant message, carrying decode-only provenance
	// fields so it can be round-tripped into a later request.
	Message Message

	// FinishReason is nil when the provider reported a reason outside the
	// normalized set.
	FinishReason *FinishReason

	Usage Usage
}

// Text returns the concatenated text content of the response message.
func (r *Response) Text() string {
	return r.Message.Text()
}

// ToolCalls returns the tool calls requested by the response message.
func (r *Response) ToolCalls() []ToolCallPart {
	return r.Message.ToolCalls()
}

// Format unmarshals the response's formatted output into v. The formatted
// payload lives either in the synthetic format tool call or in the text
// content, depending on the resolved format mode.
func (r *Response) Format(v any) error {
	for _, call := range r.Message.ToolCalls() {
		if call.Name == FormatToolName {
			return json.Unmarshal([]byte(call.Args), v)
		}
	}
	text := r.Text()
	if text == "" {
		return fmt.Errorf("response has no formatted output")
	}
	return json.Unmarshal([]byte(text), v)
}

// StreamResponse is a streaming generation result. It exposes the normalized
// chunk stream and accumulates state as chunks are consumed, so that after
// the stream is drained (or via Response, which drains it) the complete
// assistant message is available without a second request.
type StreamResponse struct {
	providerID        string
	modelID           string
	providerModelName string

	stream ChunkStream
	asm    assembler
	done   bool

	// onResponse, when set, post-processes the assembled response. The
	// middleware wrapper uses it to run AfterResponse hooks on streams.
	onResponse func(*Response) (*Response, error)
}

// NewStreamResponse wraps a provider chunk stream. Provider packages call
// this from their Stream implementations.
func NewStreamResponse(providerID, modelID, providerModelName string, stream ChunkStream) *StreamResponse {
	return &StreamResponse{
		providerID:        providerID,
		modelID:           modelID,
		providerModelName: providerModelName,
		stream:            stream,
	}
}

// Next advances to the next chunk, folding it into the accumulated state.
func (s *StreamResponse) Next() bool {
	if !s.stream.Next() {
		s.done = s.stream.Err() == nil
		return false
	}
	s.asm.apply(s.stream.Chunk())
	return true
}

// Chunk returns the current chunk. Valid only after Next returns true.
func (s *StreamResponse) Chunk() Chunk {
	return s.stream.Chunk()
}

// Err returns the error that terminated the stream, if any.
func (s *StreamResponse) Err() error {
	return s.stream.Err()
}

// Close releases the underlying transport resources.
func (s *StreamResponse) Close() error {
	return s.stream.Close()
}

// Response drains any unconsumed chunks and returns the assembled result.
// The assembled message's RawMessage is the provider-native reconstruction
// emitted as the stream's final chunk, so the message round-trips exactly
// like a non-streaming one.
func (s *StreamResponse) Response() (*Response, error) {
	for !s.done {
		if !s.Next() {
			if err := s.stream.Err(); err != nil {
				return nil, err
			}
			break
		}
	}
	msg := Message{
		Role:              RoleAssistant,
		Content:           s.asm.parts(),
		ProviderID:        s.providerID,
		ModelID:           s.modelID,
		ProviderModelName: s.providerModelName,
		RawMessage:        s.asm.rawMessage,
	}
	resp := &Response{
		Message:      msg,
		FinishReason: s.asm.finishReason,
		Usage:        s.asm.usage,
	}
	if s.onResponse != nil {
		return s.onResponse(resp)
	}
	return resp, nil
}

// assembler folds normalized chunks into message content. Segment boundaries
// arrive as explicit start/end chunks, so accumulation is a matter of
// appending deltas to the open part.
type assembler struct {
	content      []ContentPart
	openText     *strings.Builder
	openThought  *strings.Builder
	openToolID   string
	openToolName string
	openToolArgs *strings.Builder
	finishReason *FinishReason
	usage        Usage
	rawMessage   []byte
}

func (a *assembler) apply(c Chunk) {
	switch c := c.(type) {
	case TextStartChunk:
		a.openText = &strings.Builder{}
	case TextChunk:
		if a.openText != nil {
			a.openText.WriteString(c.Delta)
		}
	case TextEndChunk:
		if a.openText != nil {
			a.content = append(a.content, NewText(a.openText.String()))
			a.openText = nil
		}
	case ThoughtStartChunk:
		a.openThought = &strings.Builder{}
	case ThoughtChunk:
		if a.openThought != nil {
			a.openThought.WriteString(c.Delta)
		}
	case ThoughtEndChunk:
		if a.openThought != nil {
			a.content = append(a.content, NewThought(a.openThought.String()))
			a.openThought = nil
		}
	case ToolCallStartChunk:
		a.openToolID = c.ID
		a.openToolName = c.Name
		a.openToolArgs = &strings.Builder{}
	case ToolCallChunk:
		if a.openToolArgs != nil {
			a.openToolArgs.WriteString(c.Delta)
		}
	case ToolCallEndChunk:
		if a.openToolArgs != nil {
			a.content = append(a.content, NewToolCall(a.openToolID, a.openToolName, a.openToolArgs.String()))
			a.openToolArgs = nil
		}
	case FinishReasonChunk:
		fr := c.FinishReason
		a.finishReason = &fr
	case UsageDeltaChunk:
		a.usage.InputTokens += c.InputTokens
		a.usage.OutputTokens += c.OutputTokens
		a.usage.CacheReadTokens += c.CacheReadTokens
		a.usage.CacheWriteTokens += c.CacheWriteTokens
		a.usage.ReasoningTokens += c.ReasoningTokens
	case RawMessageChunk:
		a.rawMessage = c.Raw
	}
}

func (a *assembler) parts() []ContentPart {
	return a.content
}
