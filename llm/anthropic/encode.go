package anthropic

import (
	"encoding/json"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/samber/lo"

	"github.com/modelwire/modelwire/llm"
)

const (
	// defaultMaxTokens applies when the request leaves max_tokens unset; the
	// API requires an explicit value.
	defaultMaxTokens = 16000

	// minThinkingBudget is the API's floor for an enabled thinking budget.
	minThinkingBudget = 1024
)

// encodedRequest is the result of encoding a provider-neutral request:
// the API params plus the parameters the encoder never consumed.
type encodedRequest struct {
	params    anthropic.MessageNewParams
	untracked []string
}

// encodeRequest translates an llm.Request into Anthropic API params.
// It is pure: no I/O, no logging. Untracked parameter names are returned for
// the caller to surface.
func encodeRequest(modelID string, req *llm.Request) (*encodedRequest, error) {
	format, err := llm.ResolveFormat(req.Format, llm.FormatModeTool, len(req.Tools) > 0,
		capabilitiesFor(modelID), llm.ProviderAnthropic, modelID)
	if err != nil {
		return nil, err
	}
	if format != nil && format.Mode == llm.FormatModeStrict {
		return nil, &llm.FeatureNotSupportedError{
			Feature:    "formatting_mode:strict",
			ProviderID: llm.ProviderAnthropic,
			ModelID:    modelID,
		}
	}

	messages := req.Messages
	if format != nil && format.FormattingInstructions != "" && format.Mode != llm.FormatModeTool {
		messages = llm.AddSystemInstructions(messages, format.FormattingInstructions)
	}
	system, rest := llm.ExtractSystemMessage(messages)

	var params llm.Params
	if req.Params != nil {
		params = *req.Params
	}
	tracker := llm.NewParamTracker(params)

	maxTokens := int64(defaultMaxTokens)
	if v := tracker.MaxTokens(); v != nil {
		maxTokens = *v
	}

	out := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: maxTokens,
		Messages:  make([]anthropic.MessageParam, 0, len(rest)),
		Tools:     encodeTools(req.Tools),
	}
	if system != "" {
		out.System = systemBlocks(system)
	}
	if v := tracker.Temperature(); v != nil {
		out.Temperature = anthropic.Float(*v)
	}
	if v := tracker.TopP(); v != nil {
		out.TopP = anthropic.Float(*v)
	}
	if v := tracker.TopK(); v != nil {
		out.TopK = anthropic.Int(*v)
	}
	if v := tracker.StopSequences(); v != nil {
		out.StopSequences = v
	}

	thinking := tracker.Thinking()
	encodeThoughtsAsText := thinking != nil && thinking.EncodeThoughtsAsText
	if thinking != nil && thinking.Level != llm.ThinkingLevelNone && thinking.Level != llm.ThinkingLevelDefault {
		mult, ok := llm.ThinkingBudgetMultiplier[thinking.Level]
		if !ok {
			return nil, fmt.Errorf("unknown thinking level %q", thinking.Level)
		}
		budget := int64(mult * float64(maxTokens))
		if budget < minThinkingBudget {
			budget = minThinkingBudget
		}
		out.Thinking = anthropic.ThinkingConfigParamOfEnabled(budget)
	}

	for _, msg := range rest {
		param, err := encodeMessage(modelID, msg, encodeThoughtsAsText)
		if err != nil {
			return nil, err
		}
		out.Messages = append(out.Messages, param)
	}

	if format != nil {
		switch format.Mode {
		case llm.FormatModeTool:
			out.Tools = append(out.Tools, encodeTool(format.ToolDefinition()))
			if len(req.Tools) == 0 {
				out.ToolChoice = anthropic.ToolChoiceUnionParam{
					OfTool: &anthropic.ToolChoiceToolParam{Name: llm.FormatToolName},
				}
			} else {
				// The model may still pick a real tool; forcing any keeps it
				// from answering in prose.
				out.ToolChoice = anthropic.ToolChoiceUnionParam{
					OfAny: &anthropic.ToolChoiceAnyParam{},
				}
			}
		case llm.FormatModeJSON:
			// Prompt-driven; instructions were appended to the system text.
		}
	}

	return &encodedRequest{params: out, untracked: tracker.Untracked()}, nil
}

// capabilitiesFor returns the capability profile for a model. Anthropic has
// no native structured output, so the tool-gating capability never applies.
func capabilitiesFor(modelID string) llm.ModelCapabilities {
	return llm.ModelCapabilities{StructuredOutputWithTools: true}
}

// encodeMessage converts one conversation message. Assistant messages that
// were decoded from this provider and model are resent verbatim from their
// raw form, preserving fields the neutral model cannot represent, such as
// thinking signatures.
func encodeMessage(modelID string, msg llm.Message, encodeThoughtsAsText bool) (anthropic.MessageParam, error) {
	if msg.Role == llm.RoleAssistant && len(msg.RawMessage) > 0 &&
		msg.ProviderID == llm.ProviderAnthropic && msg.ModelID == modelID && !encodeThoughtsAsText {
		var param anthropic.MessageParam
		if err := json.Unmarshal(msg.RawMessage, &param); err == nil {
			return param, nil
		}
		// Unparsable raw payloads fall through to part-by-part encoding.
	}

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))
	for _, part := range msg.Content {
		block, err := encodePart(part, encodeThoughtsAsText)
		if err != nil {
			return anthropic.MessageParam{}, err
		}
		if block != nil {
			blocks = append(blocks, *block)
		}
	}

	switch msg.Role {
	case llm.RoleAssistant:
		return anthropic.NewAssistantMessage(blocks...), nil
	default:
		return anthropic.NewUserMessage(blocks...), nil
	}
}

func encodePart(part llm.ContentPart, encodeThoughtsAsText bool) (*anthropic.ContentBlockParamUnion, error) {
	switch part.Type {
	case llm.ContentTypeText:
		block := anthropic.NewTextBlock(part.Text)
		return &block, nil

	case llm.ContentTypeImage:
		if part.Image.URL != "" {
			block := anthropic.ContentBlockParamUnion{
				OfImage: &anthropic.ImageBlockParam{
					Source: anthropic.ImageBlockParamSourceUnion{
						OfURL: &anthropic.URLImageSourceParam{URL: part.Image.URL},
					},
				},
			}
			return &block, nil
		}
		block := anthropic.NewImageBlockBase64(part.Image.MimeType, part.Image.Data)
		return &block, nil

	case llm.ContentTypeDocument:
		if part.Document.Text != "" {
			block := anthropic.ContentBlockParamUnion{
				OfDocument: &anthropic.DocumentBlockParam{
					Source: anthropic.DocumentBlockParamSourceUnion{
						OfText: &anthropic.PlainTextSourceParam{Data: part.Document.Text},
					},
				},
			}
			return &block, nil
		}
		block := anthropic.ContentBlockParamUnion{
			OfDocument: &anthropic.DocumentBlockParam{
				Source: anthropic.DocumentBlockParamSourceUnion{
					OfBase64: &anthropic.Base64PDFSourceParam{Data: part.Document.Data},
				},
			},
		}
		return &block, nil

	case llm.ContentTypeToolCall:
		block := anthropic.NewToolUseBlock(part.ToolCall.ID, json.RawMessage(part.ToolCall.Args), part.ToolCall.Name)
		return &block, nil

	case llm.ContentTypeToolOutput:
		block := anthropic.NewToolResultBlock(part.ToolOutput.ID, part.ToolOutput.Result, false)
		return &block, nil

	case llm.ContentTypeThought:
		if part.Thought.Redacted {
			block := anthropic.NewRedactedThinkingBlock(part.Thought.Signature)
			return &block, nil
		}
		if encodeThoughtsAsText {
			block := anthropic.NewTextBlock(part.Thought.Thought)
			return &block, nil
		}
		block := anthropic.NewThinkingBlock(part.Thought.Signature, part.Thought.Thought)
		return &block, nil

	case llm.ContentTypeAudio:
		return nil, &llm.FeatureNotSupportedError{
			Feature:    "audio_input",
			ProviderID: llm.ProviderAnthropic,
		}

	default:
		return nil, fmt.Errorf("unsupported content type %q", part.Type)
	}
}

func encodeTools(tools []llm.ToolDefinition) []anthropic.ToolUnionParam {
	return lo.Map(tools, func(tool llm.ToolDefinition, _ int) anthropic.ToolUnionParam {
		return encodeTool(tool)
	})
}

func encodeTool(tool llm.ToolDefinition) anthropic.ToolUnionParam {
	var schema map[string]any
	_ = json.Unmarshal(llm.ResolveRefs(tool.Parameters), &schema)

	inputSchema := anthropic.ToolInputSchemaParam{Type: "object"}
	if props, ok := schema["properties"]; ok {
		inputSchema.Properties = props
	}
	if req, ok := schema["required"].([]any); ok {
		required := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				required = append(required, s)
			}
		}
		inputSchema.Required = required
	}

	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        tool.Name,
			Description: anthropic.String(tool.Description),
			InputSchema: inputSchema,
		},
	}
}

// systemBlocks wraps the system text with a cache_control marker. Placing it
// on the system block caches the full prefix of tools and system text across
// turns.
func systemBlocks(system string) []anthropic.TextBlockParam {
	return []anthropic.TextBlockParam{
		{Text: system, CacheControl: anthropic.NewCacheControlEphemeralParam()},
	}
}
