package ollama

import (
	"encoding/json"
	"testing"

	"github.com/ollama/ollama/api"

	"github.com/modelwire/modelwire/llm"
)

func TestDecodeResponseText(t *testing.T) {
	resp := &api.ChatResponse{
		Model:      "llama3.2:latest",
		Message:    api.Message{Role: "assistant", Content: "Hello"},
		Done:       true,
		DoneReason: "stop",
	}
	resp.PromptEvalCount = 7
	resp.EvalCount = 2

	got, err := decodeResponse("llama3.2", resp)
	if err != nil {
		t.Fatalf("decodeResponse() error = %v", err)
	}

	if got.Text() != "Hello" {
		t.Errorf("Text() = %q", got.Text())
	}
	if got.FinishReason == nil || *got.FinishReason != llm.FinishReasonStop {
		t.Errorf("FinishReason = %v, want stop", got.FinishReason)
	}
	if got.Message.ProviderID != llm.ProviderOllama || got.Message.ModelID != "llama3.2" {
		t.Errorf("provenance = %q/%q", got.Message.ProviderID, got.Message.ModelID)
	}
	if got.Message.ProviderModelName != "llama3.2:latest" {
		t.Errorf("ProviderModelName = %q", got.Message.ProviderModelName)
	}
	if got.Usage.InputTokens != 7 || got.Usage.OutputTokens != 2 {
		t.Errorf("usage = %+v", got.Usage)
	}

	var raw api.Message
	if err := json.Unmarshal(got.Message.RawMessage, &raw); err != nil {
		t.Fatalf("RawMessage unmarshal: %v", err)
	}
	if raw.Content != "Hello" {
		t.Errorf("RawMessage = %s", got.Message.RawMessage)
	}
}

func TestDecodeResponseToolCalls(t *testing.T) {
	resp := &api.ChatResponse{
		Message: api.Message{
			Role: "assistant",
			ToolCalls: []api.ToolCall{{
				Function: api.ToolCallFunction{
					Name:      "lookup",
					Arguments: api.ToolCallFunctionArguments{"q": "go"},
				},
			}},
		},
		Done:       true,
		DoneReason: "stop",
	}

	got, err := decodeResponse("llama3.2", resp)
	if err != nil {
		t.Fatalf("decodeResponse() error = %v", err)
	}

	calls := got.ToolCalls()
	if len(calls) != 1 {
		t.Fatalf("len(ToolCalls) = %d, want 1", len(calls))
	}
	if calls[0].ID != UnknownToolCallID || calls[0].Name != "lookup" {
		t.Errorf("call = %+v", calls[0])
	}
	if calls[0].Args != `{"q":"go"}` {
		t.Errorf("Args = %q", calls[0].Args)
	}
	// DoneReason stays "stop" on tool calls; their presence wins.
	if got.FinishReason == nil || *got.FinishReason != llm.FinishReasonToolCalls {
		t.Errorf("FinishReason = %v, want tool_calls", got.FinishReason)
	}
}

func TestDecodeResponseThinking(t *testing.T) {
	resp := &api.ChatResponse{
		Message:    api.Message{Role: "assistant", Thinking: "mulling it over", Content: "Answer"},
		Done:       true,
		DoneReason: "stop",
	}

	got, err := decodeResponse("qwen3", resp)
	if err != nil {
		t.Fatalf("decodeResponse() error = %v", err)
	}
	if len(got.Message.Content) != 2 {
		t.Fatalf("len(Content) = %d, want thought then text", len(got.Message.Content))
	}
	if got.Message.Content[0].Type != llm.ContentTypeThought {
		t.Errorf("first part = %+v, want thought", got.Message.Content[0])
	}
}

func TestDecodeFinishReasons(t *testing.T) {
	tests := []struct {
		name   string
		resp   api.ChatResponse
		want   llm.FinishReason
		isNil  bool
	}{
		{name: "stop", resp: api.ChatResponse{Done: true, DoneReason: "stop"}, want: llm.FinishReasonStop},
		{name: "length", resp: api.ChatResponse{Done: true, DoneReason: "length"}, want: llm.FinishReasonMaxTokens},
		{name: "unknown", resp: api.ChatResponse{Done: true, DoneReason: "load"}, isNil: true},
		{name: "not done", resp: api.ChatResponse{Done: false}, isNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeFinishReason(&tt.resp)
			if tt.isNil {
				if got != nil {
					t.Errorf("decodeFinishReason() = %v, want nil", *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("decodeFinishReason() = %v, want %v", got, tt.want)
			}
		})
	}
}
