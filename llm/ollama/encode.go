package ollama

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/ollama/ollama/api"

	"github.com/modelwire/modelwire/llm"
)

// UnknownToolCallID is the sentinel assigned to decoded tool calls, since the
// chat API does not issue call IDs.
const UnknownToolCallID = "ollama_unknown_tool_id"

type encodedRequest struct {
	chatReq   api.ChatRequest
	untracked []string
}

// encodeRequest translates an llm.Request into an Ollama chat request. The
// chat API accepts a JSON schema directly in the format field, so strict
// mode needs no tool indirection.
func encodeRequest(modelID string, req *llm.Request) (*encodedRequest, error) {
	format, err := llm.ResolveFormat(req.Format, llm.FormatModeStrict, len(req.Tools) > 0,
		capabilitiesFor(modelID), llm.ProviderOllama, modelID)
	if err != nil {
		return nil, err
	}

	messages := req.Messages
	if format != nil && format.Mode == llm.FormatModeJSON && format.FormattingInstructions != "" {
		messages = llm.AddSystemInstructions(messages, format.FormattingInstructions)
	}

	var params llm.Params
	if req.Params != nil {
		params = *req.Params
	}
	tracker := llm.NewParamTracker(params)

	options := map[string]any{}
	if v := tracker.Temperature(); v != nil {
		options["temperature"] = *v
	}
	if v := tracker.TopP(); v != nil {
		options["top_p"] = *v
	}
	if v := tracker.TopK(); v != nil {
		options["top_k"] = int(*v)
	}
	if v := tracker.Seed(); v != nil {
		options["seed"] = int(*v)
	}
	if v := tracker.MaxTokens(); v != nil {
		options["num_predict"] = int(*v)
	}
	if v := tracker.StopSequences(); len(v) > 0 {
		options["stop"] = v
	}

	streamOff := false
	chatReq := api.ChatRequest{
		Model:   modelID,
		Stream:  &streamOff,
		Options: options,
	}

	var encodeThoughtsAsText bool
	if thinking := tracker.Thinking(); thinking != nil {
		encodeThoughtsAsText = thinking.EncodeThoughtsAsText
		if think := thinkValueFor(thinking.Level); think != nil {
			chatReq.Think = think
		}
	}

	for _, msg := range messages {
		encoded, err := encodeMessage(modelID, msg, encodeThoughtsAsText)
		if err != nil {
			return nil, err
		}
		chatReq.Messages = append(chatReq.Messages, encoded...)
	}

	for _, tool := range req.Tools {
		encoded, err := encodeTool(tool)
		if err != nil {
			return nil, err
		}
		chatReq.Tools = append(chatReq.Tools, encoded)
	}

	if format != nil {
		switch format.Mode {
		case llm.FormatModeStrict:
			chatReq.Format = llm.ResolveRefs(format.Schema)
		case llm.FormatModeJSON:
			chatReq.Format = json.RawMessage(`"json"`)
		case llm.FormatModeTool:
			encoded, err := encodeTool(format.ToolDefinition())
			if err != nil {
				return nil, err
			}
			chatReq.Tools = append(chatReq.Tools, encoded)
		}
	}

	return &encodedRequest{chatReq: chatReq, untracked: tracker.Untracked()}, nil
}

func capabilitiesFor(modelID string) llm.ModelCapabilities {
	return llm.ModelCapabilities{StructuredOutputWithTools: true}
}

// thinkValueFor maps a normalized thinking level onto the chat API's think
// field, which takes a bool or one of low/medium/high.
func thinkValueFor(level llm.ThinkingLevel) *api.ThinkValue {
	switch level {
	case "", llm.ThinkingLevelDefault:
		return nil
	case llm.ThinkingLevelNone:
		return &api.ThinkValue{Value: false}
	case llm.ThinkingLevelMinimal, llm.ThinkingLevelLow:
		return &api.ThinkValue{Value: "low"}
	case llm.ThinkingLevelMedium:
		return &api.ThinkValue{Value: "medium"}
	default:
		return &api.ThinkValue{Value: "high"}
	}
}

// encodeMessage converts one message into chat messages. Tool outputs become
// separate tool-role messages, so a single message can fan out.
func encodeMessage(modelID string, msg llm.Message, encodeThoughtsAsText bool) ([]api.Message, error) {
	if msg.Role == llm.RoleSystem {
		return []api.Message{{Role: "system", Content: msg.Text()}}, nil
	}

	role := "user"
	if msg.Role == llm.RoleAssistant {
		role = "assistant"
	}

	if msg.Role == llm.RoleAssistant && len(msg.RawMessage) > 0 &&
		msg.ProviderID == llm.ProviderOllama && msg.ModelID == modelID && !encodeThoughtsAsText {
		var raw api.Message
		if err := json.Unmarshal(msg.RawMessage, &raw); err == nil {
			raw.Role = role
			return []api.Message{raw}, nil
		}
	}

	current := api.Message{Role: role}
	var out []api.Message
	flush := func() {
		if current.Content != "" || current.Thinking != "" || len(current.Images) > 0 || len(current.ToolCalls) > 0 {
			out = append(out, current)
			current = api.Message{Role: role}
		}
	}

	for _, part := range msg.Content {
		switch part.Type {
		case llm.ContentTypeText:
			if current.Content != "" {
				current.Content += "\n"
			}
			current.Content += part.Text

		case llm.ContentTypeImage:
			if part.Image.URL != "" {
				return nil, &llm.FeatureNotSupportedError{
					Feature: "image URLs", ProviderID: llm.ProviderOllama, ModelID: modelID,
				}
			}
			data, err := base64.StdEncoding.DecodeString(part.Image.Data)
			if err != nil {
				return nil, fmt.Errorf("decoding image data: %w", err)
			}
			current.Images = append(current.Images, api.ImageData(data))

		case llm.ContentTypeAudio:
			return nil, &llm.FeatureNotSupportedError{
				Feature: "audio input", ProviderID: llm.ProviderOllama, ModelID: modelID,
			}

		case llm.ContentTypeDocument:
			if part.Document.Text == "" {
				return nil, &llm.FeatureNotSupportedError{
					Feature: "binary documents", ProviderID: llm.ProviderOllama, ModelID: modelID,
				}
			}
			if current.Content != "" {
				current.Content += "\n"
			}
			current.Content += part.Document.Text

		case llm.ContentTypeToolCall:
			args := api.ToolCallFunctionArguments{}
			if part.ToolCall.Args != "" {
				if err := json.Unmarshal([]byte(part.ToolCall.Args), &args); err != nil {
					return nil, fmt.Errorf("tool call %q has non-object arguments: %w", part.ToolCall.Name, err)
				}
			}
			current.ToolCalls = append(current.ToolCalls, api.ToolCall{
				Function: api.ToolCallFunction{Name: part.ToolCall.Name, Arguments: args},
			})

		case llm.ContentTypeToolOutput:
			flush()
			out = append(out, api.Message{Role: "tool", Content: part.ToolOutput.Result})

		case llm.ContentTypeThought:
			if part.Thought.Redacted {
				continue
			}
			if encodeThoughtsAsText {
				if current.Content != "" {
					current.Content += "\n"
				}
				current.Content += part.Thought.Thought
				continue
			}
			current.Thinking = part.Thought.Thought

		default:
			return nil, fmt.Errorf("unsupported content type %q", part.Type)
		}
	}
	flush()

	if len(out) == 0 {
		out = append(out, api.Message{Role: role})
	}
	return out, nil
}

// encodeTool converts a tool definition into the chat API's typed schema
// form. The definition's parameters are a raw JSON schema, so the object is
// unpacked field by field.
func encodeTool(tool llm.ToolDefinition) (api.Tool, error) {
	var schema struct {
		Type       string                     `json:"type"`
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}
	resolved := llm.ResolveRefs(tool.Parameters)
	if len(resolved) > 0 {
		if err := json.Unmarshal(resolved, &schema); err != nil {
			return api.Tool{}, fmt.Errorf("tool %q: parsing parameter schema: %w", tool.Name, err)
		}
	}
	if schema.Type == "" {
		schema.Type = "object"
	}

	properties := make(map[string]api.ToolProperty, len(schema.Properties))
	for name, raw := range schema.Properties {
		var prop struct {
			Type        string `json:"type"`
			Description string `json:"description"`
			Enum        []any  `json:"enum"`
		}
		if err := json.Unmarshal(raw, &prop); err != nil {
			return api.Tool{}, fmt.Errorf("tool %q: parsing property %q: %w", tool.Name, name, err)
		}
		if prop.Type == "" {
			prop.Type = "string"
		}
		properties[name] = api.ToolProperty{
			Type:        []string{prop.Type},
			Description: prop.Description,
			Enum:        prop.Enum,
		}
	}

	return api.Tool{
		Type: "function",
		Function: api.ToolFunction{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters: api.ToolFunctionParameters{
				Type:       schema.Type,
				Properties: properties,
				Required:   schema.Required,
			},
		},
	}, nil
}
