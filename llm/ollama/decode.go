package ollama

import (
	"encoding/json"

	"github.com/ollama/ollama/api"

	"github.com/modelwire/modelwire/llm"
)

// decodeResponse converts a final chat response into a normalized response.
func decodeResponse(modelID string, resp *api.ChatResponse) (*llm.Response, error) {
	content := decodeParts(&resp.Message)

	raw, err := json.Marshal(resp.Message)
	if err != nil {
		return nil, err
	}

	out := &llm.Response{
		Message: llm.Message{
			Role:              llm.RoleAssistant,
			Content:           content,
			ProviderID:        llm.ProviderOllama,
			ModelID:           modelID,
			ProviderModelName: resp.Model,
			RawMessage:        raw,
		},
		Usage: decodeUsage(resp),
	}
	if reason := decodeFinishReason(resp); reason != nil {
		out.FinishReason = reason
	}
	return out, nil
}

func decodeParts(msg *api.Message) []llm.ContentPart {
	var content []llm.ContentPart
	if msg.Thinking != "" {
		content = append(content, llm.NewThought(msg.Thinking))
	}
	if msg.Content != "" {
		content = append(content, llm.NewText(msg.Content))
	}
	for _, call := range msg.ToolCalls {
		args := "{}"
		if len(call.Function.Arguments) > 0 {
			if b, err := json.Marshal(call.Function.Arguments); err == nil {
				args = string(b)
			}
		}
		content = append(content, llm.NewToolCall(UnknownToolCallID, call.Function.Name, args))
	}
	return content
}

// decodeFinishReason normalizes done_reason. The API reports "stop" even when
// the turn ended on tool calls, so their presence takes precedence.
func decodeFinishReason(resp *api.ChatResponse) *llm.FinishReason {
	if !resp.Done {
		return nil
	}
	var reason llm.FinishReason
	switch {
	case len(resp.Message.ToolCalls) > 0:
		reason = llm.FinishReasonToolCalls
	case resp.DoneReason == "stop":
		reason = llm.FinishReasonStop
	case resp.DoneReason == "length":
		reason = llm.FinishReasonMaxTokens
	default:
		return nil
	}
	return &reason
}

func decodeUsage(resp *api.ChatResponse) llm.Usage {
	raw, _ := json.Marshal(resp.Metrics)
	return llm.Usage{
		InputTokens:  int64(resp.PromptEvalCount),
		OutputTokens: int64(resp.EvalCount),
		Raw:          raw,
	}
}
