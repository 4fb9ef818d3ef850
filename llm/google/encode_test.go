package google

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelwire/modelwire/llm"
)

func TestEncodeRequestBasic(t *testing.T) {
	req := &llm.Request{
		Model: "google/gemini-2.5-flash",
		Messages: []llm.Message{
			llm.NewSystemMessage("Be terse."),
			llm.NewUserMessage("Hello"),
		},
	}

	encoded, err := encodeRequest("gemini-2.5-flash", req)
	if err != nil {
		t.Fatalf("encodeRequest() error = %v", err)
	}

	out := encoded.request
	if out.SystemInstruction == nil || out.SystemInstruction.Parts[0].Text != "Be terse." {
		t.Errorf("systemInstruction = %+v, want 'Be terse.'", out.SystemInstruction)
	}
	if len(out.Contents) != 1 {
		t.Fatalf("len(Contents) = %d, want 1", len(out.Contents))
	}
	if out.Contents[0].Role != "user" || out.Contents[0].Parts[0].Text != "Hello" {
		t.Errorf("content = %+v", out.Contents[0])
	}
	if len(encoded.untracked) != 0 {
		t.Errorf("untracked = %v, want none", encoded.untracked)
	}
}

func TestEncodeRequestMergesConsecutiveRoles(t *testing.T) {
	req := &llm.Request{
		Model: "google/gemini-2.5-flash",
		Messages: []llm.Message{
			llm.NewUserMessage("first"),
			llm.NewUserMessage("second"),
			llm.NewAssistantMessage("reply"),
		},
	}

	encoded, err := encodeRequest("gemini-2.5-flash", req)
	if err != nil {
		t.Fatalf("encodeRequest() error = %v", err)
	}

	contents := encoded.request.Contents
	if len(contents) != 2 {
		t.Fatalf("len(Contents) = %d, want 2", len(contents))
	}
	if len(contents[0].Parts) != 2 {
		t.Errorf("merged user parts = %d, want 2", len(contents[0].Parts))
	}
	if contents[1].Role != "model" {
		t.Errorf("second role = %q, want model", contents[1].Role)
	}
}

func TestEncodeRequestStrictFormat(t *testing.T) {
	req := &llm.Request{
		Model:    "google/gemini-2.5-flash",
		Messages: []llm.Message{llm.NewUserMessage("go")},
		Format: &llm.Format{
			Name:   "answer",
			Schema: json.RawMessage(`{"$schema":"x","type":"object","additionalProperties":false,"properties":{"n":{"type":"integer"}}}`),
			Mode:   llm.FormatModeStrict,
		},
	}

	encoded, err := encodeRequest("gemini-2.5-flash", req)
	if err != nil {
		t.Fatalf("encodeRequest() error = %v", err)
	}

	cfg := encoded.request.GenerationConfig
	if cfg.ResponseMimeType != "application/json" {
		t.Errorf("ResponseMimeType = %q", cfg.ResponseMimeType)
	}
	schema := string(cfg.ResponseSchema)
	if strings.Contains(schema, "$schema") || strings.Contains(schema, "additionalProperties") {
		t.Errorf("schema not sanitized: %s", schema)
	}
	if !strings.Contains(schema, `"integer"`) {
		t.Errorf("schema lost properties: %s", schema)
	}
}

func TestEncodeRequestStrictWithToolsRejected(t *testing.T) {
	req := &llm.Request{
		Model:    "google/gemini-2.5-flash",
		Messages: []llm.Message{llm.NewUserMessage("go")},
		Tools: []llm.ToolDefinition{
			{Name: "lookup", Parameters: json.RawMessage(`{"type":"object"}`)},
		},
		Format: &llm.Format{
			Name:   "answer",
			Schema: json.RawMessage(`{"type":"object"}`),
			Mode:   llm.FormatModeStrict,
		},
	}

	_, err := encodeRequest("gemini-2.5-flash", req)
	if !llm.IsFeatureNotSupported(err) {
		t.Fatalf("encodeRequest() error = %v, want feature-not-supported", err)
	}
}

func TestEncodeRequestDefaultFormatWithToolsFallsBackToToolMode(t *testing.T) {
	req := &llm.Request{
		Model:    "google/gemini-2.5-flash",
		Messages: []llm.Message{llm.NewUserMessage("go")},
		Tools: []llm.ToolDefinition{
			{Name: "lookup", Parameters: json.RawMessage(`{"type":"object"}`)},
		},
		Format: &llm.Format{
			Name:   "answer",
			Schema: json.RawMessage(`{"type":"object"}`),
		},
	}

	encoded, err := encodeRequest("gemini-2.5-flash", req)
	if err != nil {
		t.Fatalf("encodeRequest() error = %v", err)
	}

	out := encoded.request
	if len(out.Tools) != 1 || len(out.Tools[0].FunctionDeclarations) != 2 {
		t.Fatalf("tools = %+v, want lookup plus format tool", out.Tools)
	}
	if out.Tools[0].FunctionDeclarations[1].Name != llm.FormatToolName {
		t.Errorf("format tool name = %q", out.Tools[0].FunctionDeclarations[1].Name)
	}
	if out.ToolConfig == nil || out.ToolConfig.FunctionCallingConfig.Mode != "ANY" {
		t.Errorf("toolConfig = %+v, want mode ANY", out.ToolConfig)
	}
	if out.ToolConfig.FunctionCallingConfig.AllowedFunctionNames != nil {
		t.Errorf("AllowedFunctionNames should be unset when real tools exist")
	}
}

func TestEncodeRequestFormatToolAloneRestrictsFunctionNames(t *testing.T) {
	req := &llm.Request{
		Model:    "google/gemini-2.5-flash",
		Messages: []llm.Message{llm.NewUserMessage("go")},
		Format: &llm.Format{
			Name:   "answer",
			Schema: json.RawMessage(`{"type":"object"}`),
			Mode:   llm.FormatModeTool,
		},
	}

	encoded, err := encodeRequest("gemini-2.5-flash", req)
	if err != nil {
		t.Fatalf("encodeRequest() error = %v", err)
	}

	cfg := encoded.request.ToolConfig
	if cfg == nil || len(cfg.FunctionCallingConfig.AllowedFunctionNames) != 1 ||
		cfg.FunctionCallingConfig.AllowedFunctionNames[0] != llm.FormatToolName {
		t.Errorf("toolConfig = %+v, want allowed names restricted to the format tool", cfg)
	}
}

func TestEncodeRequestThinkingBudgets(t *testing.T) {
	tests := []struct {
		name        string
		thinking    *llm.ThinkingConfig
		maxTokens   *int64
		wantCfg     bool
		wantBudget  int64
		wantInclude bool
	}{
		{
			name:     "default level without thoughts omits config",
			thinking: &llm.ThinkingConfig{Level: llm.ThinkingLevelDefault},
			wantCfg:  false,
		},
		{
			name:        "default level with thoughts requests model default",
			thinking:    &llm.ThinkingConfig{Level: llm.ThinkingLevelDefault, IncludeThoughts: true},
			wantCfg:     true,
			wantBudget:  -1,
			wantInclude: true,
		},
		{
			name:       "none disables thinking",
			thinking:   &llm.ThinkingConfig{Level: llm.ThinkingLevelNone},
			wantCfg:    true,
			wantBudget: 0,
		},
		{
			name:       "medium scales against max tokens",
			thinking:   &llm.ThinkingConfig{Level: llm.ThinkingLevelMedium},
			maxTokens:  llm.Int64(10000),
			wantCfg:    true,
			wantBudget: 4000,
		},
		{
			name:       "level without max tokens defers to model",
			thinking:   &llm.ThinkingConfig{Level: llm.ThinkingLevelHigh},
			wantCfg:    true,
			wantBudget: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &llm.Request{
				Model:    "google/gemini-2.5-flash",
				Messages: []llm.Message{llm.NewUserMessage("go")},
				Params:   &llm.Params{Thinking: tt.thinking, MaxTokens: tt.maxTokens},
			}

			encoded, err := encodeRequest("gemini-2.5-flash", req)
			if err != nil {
				t.Fatalf("encodeRequest() error = %v", err)
			}

			cfg := encoded.request.GenerationConfig.ThinkingConfig
			if !tt.wantCfg {
				if cfg != nil {
					t.Fatalf("thinkingConfig = %+v, want none", cfg)
				}
				return
			}
			if cfg == nil {
				t.Fatal("thinkingConfig missing")
			}
			if cfg.ThinkingBudget != tt.wantBudget {
				t.Errorf("ThinkingBudget = %d, want %d", cfg.ThinkingBudget, tt.wantBudget)
			}
			if cfg.IncludeThoughts != tt.wantInclude {
				t.Errorf("IncludeThoughts = %v, want %v", cfg.IncludeThoughts, tt.wantInclude)
			}
		})
	}
}

func TestEncodeRequestUntrackedParams(t *testing.T) {
	// Every field the tracker exposes is read by this encoder, so only the
	// absence of reads would surface; verify the happy path stays clean.
	req := &llm.Request{
		Model:    "google/gemini-2.5-flash",
		Messages: []llm.Message{llm.NewUserMessage("go")},
		Params: &llm.Params{
			Temperature: llm.Float64(0.5),
			TopK:        llm.Int64(40),
			Seed:        llm.Int64(7),
		},
	}

	encoded, err := encodeRequest("gemini-2.5-flash", req)
	if err != nil {
		t.Fatalf("encodeRequest() error = %v", err)
	}
	if len(encoded.untracked) != 0 {
		t.Errorf("untracked = %v, want none", encoded.untracked)
	}
	cfg := encoded.request.GenerationConfig
	if cfg.Temperature == nil || *cfg.Temperature != 0.5 {
		t.Errorf("Temperature = %v", cfg.Temperature)
	}
	if cfg.TopK == nil || *cfg.TopK != 40 {
		t.Errorf("TopK = %v", cfg.TopK)
	}
	if cfg.Seed == nil || *cfg.Seed != 7 {
		t.Errorf("Seed = %v", cfg.Seed)
	}
}

func TestEncodeMessageRawReuse(t *testing.T) {
	raw := json.RawMessage(`{"role":"model","parts":[{"text":"cached","thought":true,"thoughtSignature":"sig"}]}`)
	msg := llm.Message{
		Role:       llm.RoleAssistant,
		Content:    []llm.ContentPart{llm.NewText("decoded view")},
		ProviderID: llm.ProviderGoogle,
		ModelID:    "gemini-2.5-flash",
		RawMessage: raw,
	}

	content, err := encodeMessage("gemini-2.5-flash", msg, nil, false)
	if err != nil {
		t.Fatalf("encodeMessage() error = %v", err)
	}
	if len(content.Parts) != 1 || !content.Parts[0].Thought || content.Parts[0].ThoughtSignature != "sig" {
		t.Errorf("raw message not reused: %+v", content.Parts)
	}

	// A different model must re-encode from parts instead.
	content, err = encodeMessage("gemini-2.5-pro", msg, nil, false)
	if err != nil {
		t.Fatalf("encodeMessage() error = %v", err)
	}
	if len(content.Parts) != 1 || content.Parts[0].Text != "decoded view" || content.Parts[0].Thought {
		t.Errorf("cross-model encode = %+v, want decoded parts", content.Parts)
	}
}

func TestEncodePartToolCallDropsSentinelID(t *testing.T) {
	part := llm.NewToolCall(UnknownToolCallID, "lookup", `{"q":"go"}`)

	encoded, err := encodePart(part, nil, false)
	if err != nil {
		t.Fatalf("encodePart() error = %v", err)
	}
	if encoded.FunctionCall == nil || encoded.FunctionCall.Name != "lookup" {
		t.Fatalf("functionCall = %+v", encoded.FunctionCall)
	}
	if string(encoded.FunctionCall.Args) != `{"q":"go"}` {
		t.Errorf("args = %s", encoded.FunctionCall.Args)
	}
}

func TestEncodePartToolOutputResolvesName(t *testing.T) {
	callNames := map[string]string{"call_1": "lookup"}
	part := llm.NewToolOutput("call_1", "", `{"answer":42}`)

	encoded, err := encodePart(part, callNames, false)
	if err != nil {
		t.Fatalf("encodePart() error = %v", err)
	}
	if encoded.FunctionResponse == nil || encoded.FunctionResponse.Name != "lookup" {
		t.Fatalf("functionResponse = %+v", encoded.FunctionResponse)
	}
	if string(encoded.FunctionResponse.Response) != `{"result":{"answer":42}}` {
		t.Errorf("response = %s", encoded.FunctionResponse.Response)
	}
}

func TestEncodePartToolOutputWithoutNameFails(t *testing.T) {
	part := llm.NewToolOutput("orphan", "", "ok")

	if _, err := encodePart(part, nil, false); err == nil {
		t.Fatal("encodePart() expected error for unresolvable function name")
	}
}

func TestEncodePartThoughts(t *testing.T) {
	thought := llm.NewThought("let me think")
	thought.Thought.Signature = "sig"

	encoded, err := encodePart(thought, nil, false)
	if err != nil {
		t.Fatalf("encodePart() error = %v", err)
	}
	if !encoded.Thought || encoded.ThoughtSignature != "sig" {
		t.Errorf("thought part = %+v", encoded)
	}

	encoded, err = encodePart(thought, nil, true)
	if err != nil {
		t.Fatalf("encodePart() error = %v", err)
	}
	if encoded.Thought || encoded.Text != "let me think" {
		t.Errorf("thought-as-text part = %+v", encoded)
	}

	redacted, err := encodePart(llm.NewRedactedThought("opaque"), nil, false)
	if err != nil {
		t.Fatalf("encodePart() error = %v", err)
	}
	if redacted != nil {
		t.Errorf("redacted thought should be skipped, got %+v", redacted)
	}
}

func TestWrapFunctionResponse(t *testing.T) {
	tests := []struct {
		name   string
		result string
		want   string
	}{
		{"object", `{"a":1}`, `{"result":{"a":1}}`},
		{"bare string json", `"ok"`, `{"result":"ok"}`},
		{"plain text", `not json`, `{"result":"not json"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(wrapFunctionResponse(tt.result))
			if got != tt.want {
				t.Errorf("wrapFunctionResponse(%q) = %s, want %s", tt.result, got, tt.want)
			}
		})
	}
}

func TestSanitizeSchemaNested(t *testing.T) {
	in := json.RawMessage(`{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "object",
		"additionalProperties": false,
		"properties": {
			"items": {
				"type": "array",
				"items": {"type": "object", "additionalProperties": false}
			}
		}
	}`)

	out := string(sanitizeSchema(in))
	if strings.Contains(out, "$schema") || strings.Contains(out, "additionalProperties") {
		t.Errorf("sanitizeSchema left rejected keywords: %s", out)
	}
	if !strings.Contains(out, `"array"`) {
		t.Errorf("sanitizeSchema lost nested structure: %s", out)
	}
}
