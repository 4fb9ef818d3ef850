package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/samber/lo"

	"github.com/modelwire/modelwire/llm"
)

// reasoningModelPrefixes identifies models that take a reasoning effort
// instead of sampling parameters and reject temperature/top_p outright.
var reasoningModelPrefixes = []string{"o1", "o3", "o4", "gpt-5"}

func isReasoningModel(modelID string) bool {
	for _, prefix := range reasoningModelPrefixes {
		if strings.HasPrefix(modelID, prefix) {
			return true
		}
	}
	return false
}

// reasoningEfforts maps thinking levels onto the API's effort values.
var reasoningEfforts = map[llm.ThinkingLevel]string{
	llm.ThinkingLevelMinimal: "low",
	llm.ThinkingLevelLow:     "low",
	llm.ThinkingLevelMedium:  "medium",
	llm.ThinkingLevelHigh:    "high",
	llm.ThinkingLevelMax:     "high",
}

type encodedRequest struct {
	request   openai.ChatCompletionRequest
	untracked []string
}

// encodeRequest translates an llm.Request into a chat completion request.
// Pure; untracked parameter names are returned for the caller to surface.
func encodeRequest(modelID string, req *llm.Request) (*encodedRequest, error) {
	format, err := llm.ResolveFormat(req.Format, llm.FormatModeStrict, len(req.Tools) > 0,
		capabilitiesFor(modelID), llm.ProviderOpenAI, modelID)
	if err != nil {
		return nil, err
	}

	messages := req.Messages
	if format != nil && format.FormattingInstructions != "" && format.Mode == llm.FormatModeJSON {
		messages = llm.AddSystemInstructions(messages, format.FormattingInstructions)
	}

	var params llm.Params
	if req.Params != nil {
		params = *req.Params
	}
	tracker := llm.NewParamTracker(params)

	out := openai.ChatCompletionRequest{
		Model: modelID,
		Tools: encodeTools(req.Tools),
	}

	reasoning := isReasoningModel(modelID)
	if v := tracker.MaxTokens(); v != nil {
		if reasoning {
			out.MaxCompletionTokens = int(*v)
		} else {
			out.MaxTokens = int(*v)
		}
	}
	if !reasoning {
		if v := tracker.Temperature(); v != nil {
			out.Temperature = float32(*v)
		}
		if v := tracker.TopP(); v != nil {
			out.TopP = float32(*v)
		}
	}
	if v := tracker.Seed(); v != nil {
		seed := int(*v)
		out.Seed = &seed
	}
	if v := tracker.StopSequences(); v != nil {
		out.Stop = v
	}
	var encodeThoughtsAsText bool
	if thinking := tracker.Thinking(); thinking != nil {
		encodeThoughtsAsText = thinking.EncodeThoughtsAsText
		if reasoning {
			if effort, ok := reasoningEfforts[thinking.Level]; ok {
				out.ReasoningEffort = effort
			}
		}
	}

	for _, msg := range messages {
		encoded, err := encodeMessage(modelID, msg, encodeThoughtsAsText)
		if err != nil {
			return nil, err
		}
		out.Messages = append(out.Messages, encoded...)
	}

	if len(out.Tools) > 0 {
		out.ToolChoice = "auto"
	}

	if format != nil {
		switch format.Mode {
		case llm.FormatModeStrict:
			out.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
				JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
					Name:        format.Name,
					Description: format.Description,
					Schema:      llm.ResolveRefs(format.Schema),
					Strict:      true,
				},
			}
		case llm.FormatModeJSON:
			out.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			}
		case llm.FormatModeTool:
			out.Tools = append(out.Tools, encodeTool(format.ToolDefinition()))
			out.ParallelToolCalls = false
			if len(req.Tools) == 0 {
				out.ToolChoice = openai.ToolChoice{
					Type:     openai.ToolTypeFunction,
					Function: openai.ToolFunction{Name: llm.FormatToolName},
				}
			} else {
				out.ToolChoice = "required"
			}
		}
	}

	return &encodedRequest{request: out, untracked: tracker.Untracked()}, nil
}

func capabilitiesFor(modelID string) llm.ModelCapabilities {
	return llm.ModelCapabilities{StructuredOutputWithTools: true}
}

// encodeMessage converts one conversation message. A message may expand to
// several API messages: tool outputs become one tool-role message per output.
func encodeMessage(modelID string, msg llm.Message, encodeThoughtsAsText bool) ([]openai.ChatCompletionMessage, error) {
	if msg.Role == llm.RoleAssistant && len(msg.RawMessage) > 0 &&
		msg.ProviderID == llm.ProviderOpenAI && msg.ModelID == modelID && !encodeThoughtsAsText {
		var raw openai.ChatCompletionMessage
		if err := json.Unmarshal(msg.RawMessage, &raw); err == nil {
			return []openai.ChatCompletionMessage{raw}, nil
		}
	}

	switch msg.Role {
	case llm.RoleSystem:
		return []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleSystem,
			Content: msg.Text(),
		}}, nil

	case llm.RoleAssistant:
		return encodeAssistantMessage(msg, encodeThoughtsAsText)

	default:
		return encodeUserMessage(msg)
	}
}

func encodeUserMessage(msg llm.Message) ([]openai.ChatCompletionMessage, error) {
	var out []openai.ChatCompletionMessage
	var parts []openai.ChatMessagePart

	flush := func() {
		if len(parts) == 0 {
			return
		}
		// A single text part collapses to plain string content.
		if len(parts) == 1 && parts[0].Type == openai.ChatMessagePartTypeText {
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: parts[0].Text,
			})
		} else {
			out = append(out, openai.ChatCompletionMessage{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			})
		}
		parts = nil
	}

	for _, part := range msg.Content {
		switch part.Type {
		case llm.ContentTypeText:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: part.Text,
			})

		case llm.ContentTypeImage:
			url := part.Image.URL
			if url == "" {
				url = fmt.Sprintf("data:%s;base64,%s", part.Image.MimeType, part.Image.Data)
			}
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: url},
			})

		case llm.ContentTypeDocument:
			if part.Document.Text == "" {
				return nil, &llm.FeatureNotSupportedError{
					Feature:    "document_input",
					ProviderID: llm.ProviderOpenAI,
				}
			}
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: part.Document.Text,
			})

		case llm.ContentTypeToolOutput:
			// Tool outputs interleave as dedicated tool-role messages.
			flush()
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    part.ToolOutput.Result,
				ToolCallID: part.ToolOutput.ID,
			})

		case llm.ContentTypeAudio:
			return nil, &llm.FeatureNotSupportedError{
				Feature:    "audio_input",
				ProviderID: llm.ProviderOpenAI,
			}

		default:
			return nil, fmt.Errorf("unsupported content type %q in user message", part.Type)
		}
	}
	flush()
	return out, nil
}

func encodeAssistantMessage(msg llm.Message, encodeThoughtsAsText bool) ([]openai.ChatCompletionMessage, error) {
	var sb strings.Builder
	var toolCalls []openai.ToolCall
	for _, part := range msg.Content {
		switch part.Type {
		case llm.ContentTypeText:
			sb.WriteString(part.Text)
		case llm.ContentTypeThought:
			// The API has no slot for prior thoughts; they are either
			// re-encoded as visible text on request or dropped.
			if encodeThoughtsAsText && !part.Thought.Redacted {
				sb.WriteString(part.Thought.Thought)
			}
		case llm.ContentTypeToolCall:
			toolCalls = append(toolCalls, openai.ToolCall{
				ID:   part.ToolCall.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      part.ToolCall.Name,
					Arguments: part.ToolCall.Args,
				},
			})
		default:
			return nil, fmt.Errorf("unsupported content type %q in assistant message", part.Type)
		}
	}
	return []openai.ChatCompletionMessage{{
		Role:      openai.ChatMessageRoleAssistant,
		Content:   sb.String(),
		ToolCalls: toolCalls,
	}}, nil
}

func encodeTools(tools []llm.ToolDefinition) []openai.Tool {
	return lo.Map(tools, func(tool llm.ToolDefinition, _ int) openai.Tool {
		return encodeTool(tool)
	})
}

func encodeTool(tool llm.ToolDefinition) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  llm.ResolveRefs(tool.Parameters),
			Strict:      tool.Strict,
		},
	}
}
