package openai

import (
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/modelwire/modelwire/llm"
)

// finishReasons maps API finish reasons to normalized ones. Unknown reasons
// decode to nil.
var finishReasons = map[openai.FinishReason]llm.FinishReason{
	openai.FinishReasonStop:          llm.FinishReasonStop,
	openai.FinishReasonLength:        llm.FinishReasonMaxTokens,
	openai.FinishReasonToolCalls:     llm.FinishReasonToolCalls,
	openai.FinishReasonContentFilter: llm.FinishReasonRefusal,
}

// decodeResponse converts a chat completion into a normalized response.
// Only the first choice is considered; multi-candidate responses are not part
// of the normalized surface.
func decodeResponse(modelID string, resp *openai.ChatCompletionResponse) (*llm.Response, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("response has no choices")
	}
	choice := resp.Choices[0]

	content := decodeMessageContent(choice.Message)

	raw, err := json.Marshal(choice.Message)
	if err != nil {
		return nil, err
	}

	out := &llm.Response{
		Message: llm.Message{
			Role:              llm.RoleAssistant,
			Content:           content,
			ProviderID:        llm.ProviderOpenAI,
			ModelID:           modelID,
			ProviderModelName: resp.Model,
			RawMessage:        raw,
		},
		Usage: decodeUsage(resp.Usage),
	}
	if reason, ok := finishReasons[choice.FinishReason]; ok {
		out.FinishReason = &reason
	}
	return out, nil
}

func decodeMessageContent(msg openai.ChatCompletionMessage) []llm.ContentPart {
	var content []llm.ContentPart
	if msg.ReasoningContent != "" {
		content = append(content, llm.NewThought(msg.ReasoningContent))
	}
	if msg.Content != "" {
		content = append(content, llm.NewText(msg.Content))
	}
	for _, call := range msg.ToolCalls {
		content = append(content, llm.NewToolCall(call.ID, call.Function.Name, call.Function.Arguments))
	}
	return content
}

// decodeUsage converts API usage. CompletionTokens already includes
// reasoning tokens, so OutputTokens needs no adjustment; the reasoning
// portion is still broken out separately.
func decodeUsage(usage openai.Usage) llm.Usage {
	raw, _ := json.Marshal(usage)
	out := llm.Usage{
		InputTokens:  int64(usage.PromptTokens),
		OutputTokens: int64(usage.CompletionTokens),
		Raw:          raw,
	}
	if usage.PromptTokensDetails != nil {
		out.CacheReadTokens = int64(usage.PromptTokensDetails.CachedTokens)
	}
	if usage.CompletionTokensDetails != nil {
		out.ReasoningTokens = int64(usage.CompletionTokensDetails.ReasoningTokens)
	}
	return out
}
