package google

import (
	"encoding/json"
	"fmt"

	"github.com/modelwire/modelwire/llm"
)

// UnknownToolCallID is the sentinel the decoder assigns to tool calls, since
// the API does not issue call IDs. Encoders recognize it and omit it from the
// wire form.
const UnknownToolCallID = "google_unknown_tool_id"

type encodedRequest struct {
	request   apiRequest
	untracked []string
}

// encodeRequest translates an llm.Request into a generateContent request.
// Pure; untracked parameter names are returned for the caller to surface.
func encodeRequest(modelID string, req *llm.Request) (*encodedRequest, error) {
	format, err := llm.ResolveFormat(req.Format, llm.FormatModeStrict, len(req.Tools) > 0,
		capabilitiesFor(modelID), llm.ProviderGoogle, modelID)
	if err != nil {
		return nil, err
	}

	messages := req.Messages
	if format != nil && format.FormattingInstructions != "" && format.Mode == llm.FormatModeJSON {
		messages = llm.AddSystemInstructions(messages, format.FormattingInstructions)
	}
	system, rest := llm.ExtractSystemMessage(messages)

	var params llm.Params
	if req.Params != nil {
		params = *req.Params
	}
	tracker := llm.NewParamTracker(params)

	out := apiRequest{}
	if system != "" {
		out.SystemInstruction = &apiContent{Parts: []apiPart{{Text: system}}}
	}

	out.GenerationConfig.Temperature = tracker.Temperature()
	out.GenerationConfig.TopP = tracker.TopP()
	out.GenerationConfig.TopK = tracker.TopK()
	out.GenerationConfig.Seed = tracker.Seed()
	out.GenerationConfig.StopSequences = tracker.StopSequences()
	maxTokens := int64(0)
	if v := tracker.MaxTokens(); v != nil {
		maxTokens = *v
		out.GenerationConfig.MaxOutputTokens = maxTokens
	}

	var encodeThoughtsAsText bool
	if thinking := tracker.Thinking(); thinking != nil {
		encodeThoughtsAsText = thinking.EncodeThoughtsAsText
		if cfg := thinkingConfigFor(thinking, maxTokens); cfg != nil {
			out.GenerationConfig.ThinkingConfig = cfg
		}
	}

	// The call-ID to function-name mapping is needed because tool outputs
	// reference calls by ID while the wire format wants the function name.
	callNames := map[string]string{}
	for _, msg := range rest {
		for _, call := range msg.ToolCalls() {
			callNames[call.ID] = call.Name
		}
	}

	for _, msg := range rest {
		content, err := encodeMessage(modelID, msg, callNames, encodeThoughtsAsText)
		if err != nil {
			return nil, err
		}
		// Consecutive contents with the same role merge; the API requires
		// role alternation.
		if n := len(out.Contents); n > 0 && out.Contents[n-1].Role == content.Role {
			out.Contents[n-1].Parts = append(out.Contents[n-1].Parts, content.Parts...)
			continue
		}
		out.Contents = append(out.Contents, content)
	}

	if len(req.Tools) > 0 {
		decls := make([]apiFuncDecl, len(req.Tools))
		for i, tool := range req.Tools {
			decls[i] = encodeTool(tool)
		}
		out.Tools = []apiToolSet{{FunctionDeclarations: decls}}
	}

	if format != nil {
		switch format.Mode {
		case llm.FormatModeStrict:
			out.GenerationConfig.ResponseMimeType = "application/json"
			out.GenerationConfig.ResponseSchema = sanitizeSchema(llm.ResolveRefs(format.Schema))
		case llm.FormatModeJSON:
			out.GenerationConfig.ResponseMimeType = "application/json"
		case llm.FormatModeTool:
			decl := encodeTool(format.ToolDefinition())
			if len(out.Tools) == 0 {
				out.Tools = []apiToolSet{{}}
			}
			out.Tools[0].FunctionDeclarations = append(out.Tools[0].FunctionDeclarations, decl)
			if len(req.Tools) == 0 {
				out.ToolConfig = &apiToolConfig{
					FunctionCallingConfig: &apiFunctionCallingConfig{
						Mode:                 "ANY",
						AllowedFunctionNames: []string{llm.FormatToolName},
					},
				}
			} else {
				out.ToolConfig = &apiToolConfig{
					FunctionCallingConfig: &apiFunctionCallingConfig{Mode: "ANY"},
				}
			}
		}
	}

	return &encodedRequest{request: out, untracked: tracker.Untracked()}, nil
}

// capabilitiesFor reports what a Gemini model supports. Response schemas
// cannot be combined with function declarations, so structured output with
// tools is gated for every model.
func capabilitiesFor(modelID string) llm.ModelCapabilities {
	return llm.ModelCapabilities{StructuredOutputWithTools: false}
}

// thinkingConfigFor converts a thinking level to a token budget. Gemini 2.5
// models think by default; a request for no thinking sends budget zero.
func thinkingConfigFor(thinking *llm.ThinkingConfig, maxTokens int64) *apiThinkingConfig {
	switch thinking.Level {
	case "", llm.ThinkingLevelDefault:
		if !thinking.IncludeThoughts {
			return nil
		}
		return &apiThinkingConfig{ThinkingBudget: -1, IncludeThoughts: true}
	case llm.ThinkingLevelNone:
		return &apiThinkingConfig{ThinkingBudget: 0}
	}
	mult := llm.ThinkingBudgetMultiplier[thinking.Level]
	if maxTokens == 0 {
		// Without a max_tokens reference the budget is left to the model.
		return &apiThinkingConfig{ThinkingBudget: -1, IncludeThoughts: thinking.IncludeThoughts}
	}
	return &apiThinkingConfig{
		ThinkingBudget:  int64(mult * float64(maxTokens)),
		IncludeThoughts: thinking.IncludeThoughts,
	}
}

func encodeMessage(modelID string, msg llm.Message, callNames map[string]string, encodeThoughtsAsText bool) (apiContent, error) {
	role := "user"
	if msg.Role == llm.RoleAssistant {
		role = "model"
	}

	if msg.Role == llm.RoleAssistant && len(msg.RawMessage) > 0 &&
		msg.ProviderID == llm.ProviderGoogle && msg.ModelID == modelID && !encodeThoughtsAsText {
		var content apiContent
		if err := json.Unmarshal(msg.RawMessage, &content); err == nil {
			content.Role = role
			return content, nil
		}
	}

	content := apiContent{Role: role}
	for _, part := range msg.Content {
		encoded, err := encodePart(part, callNames, encodeThoughtsAsText)
		if err != nil {
			return apiContent{}, err
		}
		if encoded != nil {
			content.Parts = append(content.Parts, *encoded)
		}
	}
	return content, nil
}

func encodePart(part llm.ContentPart, callNames map[string]string, encodeThoughtsAsText bool) (*apiPart, error) {
	switch part.Type {
	case llm.ContentTypeText:
		return &apiPart{Text: part.Text}, nil

	case llm.ContentTypeImage:
		if part.Image.URL != "" {
			return &apiPart{FileData: &apiFileData{FileURI: part.Image.URL, MimeType: part.Image.MimeType}}, nil
		}
		return &apiPart{InlineData: &apiBlob{MimeType: part.Image.MimeType, Data: part.Image.Data}}, nil

	case llm.ContentTypeAudio:
		return &apiPart{InlineData: &apiBlob{MimeType: part.Audio.MimeType, Data: part.Audio.Data}}, nil

	case llm.ContentTypeDocument:
		if part.Document.Text != "" {
			return &apiPart{Text: part.Document.Text}, nil
		}
		mediaType := part.Document.MediaType
		if mediaType == "" {
			mediaType = "application/pdf"
		}
		return &apiPart{InlineData: &apiBlob{MimeType: mediaType, Data: part.Document.Data}}, nil

	case llm.ContentTypeToolCall:
		args := json.RawMessage(part.ToolCall.Args)
		if len(args) == 0 {
			args = json.RawMessage(`{}`)
		}
		// Call IDs are synthetic; the wire format has no slot for them.
		return &apiPart{FunctionCall: &apiFunctionCall{Name: part.ToolCall.Name, Args: args}}, nil

	case llm.ContentTypeToolOutput:
		name := part.ToolOutput.Name
		if name == "" {
			name = callNames[part.ToolOutput.ID]
		}
		if name == "" {
			return nil, fmt.Errorf("no function name for tool output %q; conversation history may be incomplete", part.ToolOutput.ID)
		}
		return &apiPart{
			FunctionResponse: &apiFunctionResp{
				Name:     name,
				Response: wrapFunctionResponse(part.ToolOutput.Result),
			},
		}, nil

	case llm.ContentTypeThought:
		if part.Thought.Redacted {
			return nil, nil
		}
		if encodeThoughtsAsText {
			return &apiPart{Text: part.Thought.Thought}, nil
		}
		p := &apiPart{Text: part.Thought.Thought, Thought: true}
		if part.Thought.Signature != "" {
			p.ThoughtSignature = part.Thought.Signature
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unsupported content type %q", part.Type)
	}
}

func encodeTool(tool llm.ToolDefinition) apiFuncDecl {
	return apiFuncDecl{
		Name:        tool.Name,
		Description: tool.Description,
		Parameters:  sanitizeSchema(llm.ResolveRefs(tool.Parameters)),
	}
}

// wrapFunctionResponse wraps a tool result in the {"result": ...} object the
// functionResponse field expects. Valid JSON embeds as-is; anything else is
// quoted as a JSON string.
func wrapFunctionResponse(result string) json.RawMessage {
	if json.Valid([]byte(result)) {
		return json.RawMessage(`{"result":` + result + `}`)
	}
	b, _ := json.Marshal(result)
	return json.RawMessage(`{"result":` + string(b) + `}`)
}

// sanitizeSchema strips JSON Schema keywords the API rejects, recursing into
// nested schemas.
func sanitizeSchema(raw json.RawMessage) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw
	}

	delete(obj, "$schema")
	delete(obj, "additionalProperties")

	if props, ok := obj["properties"]; ok {
		var propMap map[string]json.RawMessage
		if err := json.Unmarshal(props, &propMap); err == nil {
			for k, v := range propMap {
				propMap[k] = sanitizeSchema(v)
			}
			if b, err := json.Marshal(propMap); err == nil {
				obj["properties"] = b
			}
		}
	}
	if items, ok := obj["items"]; ok {
		obj["items"] = sanitizeSchema(items)
	}

	b, err := json.Marshal(obj)
	if err != nil {
		return raw
	}
	return b
}
