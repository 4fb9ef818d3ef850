package llm

import (
	"encoding/json"
	"strings"
)

// Role represents the role of a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
// Content order is meaningful: it defines render order and, for assistant
// messages, exposes which tool calls preceded which tool outputs in
// subsequent turns.
//
// ProviderID, ModelID, ProviderModelName, and RawMessage are populated only
// when a message is decoded from a provider response, never by callers.
// RawMessage holds the verbatim provider-native assistant turn so a
// follow-up request can echo provider-specific fields (thinking signatures,
// thought signatures) back unmodified.
type Message struct {
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`
	Name    string        `json:"name,omitempty"`

	ProviderID        string          `json:"provider_id,omitempty"`
	ModelID           string          `json:"model_id,omitempty"`
	ProviderModelName string          `json:"provider_model_name,omitempty"`
	RawMessage        json.RawMessage `json:"raw_message,omitempty"`
}

// NewSystemMessage creates a system message with text content.
func NewSystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentPart{NewText(text)}}
}

// NewUserMessage creates a user message with text content.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentPart{NewText(text)}}
}

// NewUserMessageParts creates a user message from arbitrary content parts.
func NewUserMessageParts(parts ...ContentPart) Message {
	return Message{Role: RoleUser, Content: parts}
}

// NewAssistantMessage creates an assistant message with text content.
// Used for constructing conversation history by hand; decoded assistant
// messages come from the provider decoders instead.
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentPart{NewText(text)}}
}

// NewToolOutputMessage creates a user message carrying tool outputs.
func NewToolOutputMessage(outputs ...ToolOutputPart) Message {
	content := make([]ContentPart, len(outputs))
	for i, out := range outputs {
		o := out
		content[i] = ContentPart{Type: ContentTypeToolOutput, ToolOutput: &o}
	}
	return Message{Role: RoleUser, Content: content}
}

// Text returns the concatenated text content of the message.
func (m Message) Text() string {
	var sb strings.Builder
	for _, part := range m.Content {
		if part.Type == ContentTypeText {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// ToolCalls returns the tool call parts of the message in order.
func (m Message) ToolCalls() []ToolCallPart {
	var calls []ToolCallPart
	for _, part := range m.Content {
		if part.Type == ContentTypeToolCall && part.ToolCall != nil {
			calls = append(calls, *part.ToolCall)
		}
	}
	return calls
}

// ExtractSystemMessage splits a leading system message from the conversation.
// Returns the system text (empty if none) and the remaining messages.
// Providers place the system text in their dedicated system-instruction slot.
func ExtractSystemMessage(messages []Message) (string, []Message) {
	if len(messages) == 0 || messages[0].Role != RoleSystem {
		return "", messages
	}
	return messages[0].Text(), messages[1:]
}

// AddSystemInstructions appends instructions to the conversation's system
// message, creating one when the conversation has none. The caller-supplied
// system text is never replaced.
func AddSystemInstructions(messages []Message, instructions string) []Message {
	if instructions == "" {
		return messages
	}
	if len(messages) > 0 && messages[0].Role == RoleSystem {
		combined := messages[0].Text() + "\n\n" + instructions
		out := make([]Message, len(messages))
		copy(out, messages)
		out[0] = NewSystemMessage(combined)
		return out
	}
	out := make([]Message, 0, len(messages)+1)
	out = append(out, NewSystemMessage(instructions))
	out = append(out, messages...)
	return out
}
