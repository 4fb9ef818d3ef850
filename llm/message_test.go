package llm

import (
	"testing"
)

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("Hello, world!")
	if msg.Role != RoleUser {
		t.Errorf("Expected role %v, got %v", RoleUser, msg.Role)
	}
	if len(msg.Content) != 1 {
		t.Fatalf("Expected 1 content part, got %d", len(msg.Content))
	}
	if msg.Content[0].Type != ContentTypeText {
		t.Errorf("Expected text part, got %v", msg.Content[0].Type)
	}
	if msg.Content[0].Text != "Hello, world!" {
		t.Errorf("Expected text 'Hello, world!', got %q", msg.Content[0].Text)
	}
}

func TestNewUserMessageParts(t *testing.T) {
	msg := NewUserMessageParts(
		NewText("what is in this image?"),
		NewImageURL("https://example.com/cat.png"),
	)
	if len(msg.Content) != 2 {
		t.Fatalf("Expected 2 content parts, got %d", len(msg.Content))
	}
	if msg.Content[1].Type != ContentTypeImage {
		t.Errorf("Expected image part, got %v", msg.Content[1].Type)
	}
	if msg.Content[1].Image.URL != "https://example.com/cat.png" {
		t.Errorf("Unexpected image URL %q", msg.Content[1].Image.URL)
	}
}

func TestMessageText(t *testing.T) {
	msg := Message{
		Role: RoleAssistant,
		Content: []ContentPart{
			NewThought("let me think"),
			NewText("Hello"),
			NewToolCall("call_1", "get_weather", `{"city":"Paris"}`),
			NewText(", world"),
		},
	}
	if got := msg.Text(); got != "Hello, world" {
		t.Errorf("Expected text content only, got %q", got)
	}
}

func TestMessageToolCalls(t *testing.T) {
	msg := Message{
		Role: RoleAssistant,
		Content: []ContentPart{
			NewText("calling tools"),
			NewToolCall("call_1", "get_weather", `{"city":"Paris"}`),
			NewToolCall("call_2", "get_time", `{}`),
		},
	}
	calls := msg.ToolCalls()
	if len(calls) != 2 {
		t.Fatalf("Expected 2 tool calls, got %d", len(calls))
	}
	if calls[0].ID != "call_1" || calls[0].Name != "get_weather" {
		t.Errorf("Unexpected first call: %+v", calls[0])
	}
	if calls[1].Args != `{}` {
		t.Errorf("Unexpected second call args: %q", calls[1].Args)
	}
}

func TestNewToolOutputMessage(t *testing.T) {
	msg := NewToolOutputMessage(
		ToolOutputPart{ID: "call_1", Name: "get_weather", Result: `{"temp":21}`},
	)
	if msg.Role != RoleUser {
		t.Errorf("Expected tool outputs on a user message, got role %v", msg.Role)
	}
	if len(msg.Content) != 1 || msg.Content[0].Type != ContentTypeToolOutput {
		t.Fatalf("Expected a single tool output part, got %+v", msg.Content)
	}
	if msg.Content[0].ToolOutput.ID != "call_1" {
		t.Errorf("Unexpected output ID %q", msg.Content[0].ToolOutput.ID)
	}
}

func TestExtractSystemMessage(t *testing.T) {
	system, rest := ExtractSystemMessage([]Message{
		NewSystemMessage("be brief"),
		NewUserMessage("hi"),
	})
	if system != "be brief" {
		t.Errorf("Expected system text extracted, got %q", system)
	}
	if len(rest) != 1 || rest[0].Role != RoleUser {
		t.Errorf("Expected only the user message to remain, got %+v", rest)
	}

	system, rest = ExtractSystemMessage([]Message{NewUserMessage("hi")})
	if system != "" {
		t.Errorf("Expected empty system text, got %q", system)
	}
	if len(rest) != 1 {
		t.Errorf("Expected messages unchanged, got %d", len(rest))
	}
}

func TestAddSystemInstructionsAppends(t *testing.T) {
	original := []Message{
		NewSystemMessage("be brief"),
		NewUserMessage("hi"),
	}
	out := AddSystemInstructions(original, "Respond in JSON.")
	if got := out[0].Text(); got != "be brief\n\nRespond in JSON." {
		t.Errorf("Expected instructions appended to system text, got %q", got)
	}
	// Input slice must not be mutated.
	if got := original[0].Text(); got != "be brief" {
		t.Errorf("Expected original system message untouched, got %q", got)
	}
}

func TestAddSystemInstructionsCreates(t *testing.T) {
	out := AddSystemInstructions([]Message{NewUserMessage("hi")}, "Respond in JSON.")
	if len(out) != 2 {
		t.Fatalf("Expected a system message prepended, got %d messages", len(out))
	}
	if out[0].Role != RoleSystem || out[0].Text() != "Respond in JSON." {
		t.Errorf("Unexpected system message: %+v", out[0])
	}
}

func TestAddSystemInstructionsEmpty(t *testing.T) {
	msgs := []Message{NewUserMessage("hi")}
	out := AddSystemInstructions(msgs, "")
	if len(out) != 1 {
		t.Errorf("Expected messages unchanged for empty instructions, got %d", len(out))
	}
}
