package llm

import (
	"encoding/json"
	"testing"
)

func TestStreamResponseAssemblesMessage(t *testing.T) {
	raw := json.RawMessage(`{"role":"model","parts":[{"text":"Hello"}]}`)
	stream := &sliceChunkStream{chunks: []Chunk{
		RawStreamEventChunk{Raw: json.RawMessage(`{}`)},
		TextStartChunk{},
		TextChunk{Delta: "Hel"},
		TextChunk{Delta: "lo"},
		TextEndChunk{},
		ToolCallStartChunk{ID: "call_1", Name: "get_weather"},
		ToolCallChunk{ID: "call_1", Delta: `{"city":`},
		ToolCallChunk{ID: "call_1", Delta: `"Paris"}`},
		ToolCallEndChunk{ID: "call_1"},
		FinishReasonChunk{FinishReason: FinishReasonToolCalls},
		UsageDeltaChunk{InputTokens: 10, OutputTokens: 5},
		UsageDeltaChunk{OutputTokens: 3, ReasoningTokens: 2},
		RawMessageChunk{Raw: raw},
	}}

	sr := NewStreamResponse("google", "gemini-2.5-flash", "models/gemini-2.5-flash", stream)
	resp, err := sr.Response()
	if err != nil {
		t.Fatalf("Response failed: %v", err)
	}

	if resp.Message.Role != RoleAssistant {
		t.Errorf("Expected assistant role, got %v", resp.Message.Role)
	}
	if got := resp.Message.Text(); got != "Hello" {
		t.Errorf("Expected text 'Hello', got %q", got)
	}
	calls := resp.Message.ToolCalls()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 tool call, got %d", len(calls))
	}
	if calls[0].ID != "call_1" || calls[0].Args != `{"city":"Paris"}` {
		t.Errorf("Unexpected tool call %+v", calls[0])
	}
	if resp.FinishReason == nil || *resp.FinishReason != FinishReasonToolCalls {
		t.Errorf("Expected tool_calls finish reason, got %v", resp.FinishReason)
	}
	if resp.Usage.InputTokens != 10 || resp.Usage.OutputTokens != 8 || resp.Usage.ReasoningTokens != 2 {
		t.Errorf("Unexpected usage %+v", resp.Usage)
	}
	if resp.Message.ProviderID != "google" || resp.Message.ModelID != "gemini-2.5-flash" {
		t.Errorf("Unexpected provenance %s/%s", resp.Message.ProviderID, resp.Message.ModelID)
	}
	if string(resp.Message.RawMessage) != string(raw) {
		t.Errorf("Expected raw message attached, got %s", resp.Message.RawMessage)
	}
}

func TestStreamResponsePartialConsumptionThenResponse(t *testing.T) {
	stream := &sliceChunkStream{chunks: []Chunk{
		TextStartChunk{},
		TextChunk{Delta: "Hello"},
		TextEndChunk{},
		ThoughtStartChunk{},
		ThoughtChunk{Delta: "hmm"},
		ThoughtEndChunk{},
		FinishReasonChunk{FinishReason: FinishReasonStop},
	}}
	sr := NewStreamResponse("openai", "gpt-4o", "gpt-4o", stream)

	// Consume a couple chunks by hand, then ask for the response; the
	// remainder must be drained, not re-requested.
	for i := 0; i < 3 && sr.Next(); i++ {
	}
	resp, err := sr.Response()
	if err != nil {
		t.Fatalf("Response failed: %v", err)
	}
	if got := resp.Message.Text(); got != "Hello" {
		t.Errorf("Expected text 'Hello', got %q", got)
	}
	var thoughts int
	for _, part := range resp.Message.Content {
		if part.Type == ContentTypeThought {
			thoughts++
			if part.Thought.Thought != "hmm" {
				t.Errorf("Unexpected thought %q", part.Thought.Thought)
			}
		}
	}
	if thoughts != 1 {
		t.Errorf("Expected 1 thought part, got %d", thoughts)
	}
}

func TestStreamResponseErrorPropagates(t *testing.T) {
	stream := &sliceChunkStream{
		chunks: []Chunk{TextStartChunk{}, TextChunk{Delta: "par"}},
		err:    NewAPIError(500, "stream interrupted", nil),
	}
	sr := NewStreamResponse("openai", "gpt-4o", "gpt-4o", stream)
	if _, err := sr.Response(); err == nil {
		t.Error("Expected stream error to surface from Response")
	}
}

func TestResponseFormatFromToolCall(t *testing.T) {
	resp := &Response{Message: Message{
		Role: RoleAssistant,
		Content: []ContentPart{
			NewToolCall("call_1", FormatToolName, `{"city":"Paris","temp":21}`),
		},
	}}
	var report weatherReport
	if err := resp.Format(&report); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if report.City != "Paris" {
		t.Errorf("Unexpected report %+v", report)
	}
}

func TestResponseFormatFromText(t *testing.T) {
	resp := &Response{Message: NewAssistantMessage(`{"city":"Oslo","temp":4}`)}
	var report weatherReport
	if err := resp.Format(&report); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if report.City != "Oslo" || report.Temp != 4 {
		t.Errorf("Unexpected report %+v", report)
	}
}
