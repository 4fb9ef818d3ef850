package anthropic

import (
	"encoding/json"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/modelwire/modelwire/llm"
)

// stopReasons maps API stop reasons to normalized finish reasons. Reasons
// outside the table decode to a nil finish reason rather than a guess.
var stopReasons = map[anthropic.StopReason]llm.FinishReason{
	anthropic.StopReasonEndTurn:      llm.FinishReasonStop,
	anthropic.StopReasonStopSequence: llm.FinishReasonStop,
	anthropic.StopReasonMaxTokens:    llm.FinishReasonMaxTokens,
	anthropic.StopReasonToolUse:      llm.FinishReasonToolCalls,
	anthropic.StopReasonRefusal:      llm.FinishReasonRefusal,
}

// decodeResponse converts an API message into a normalized response. The
// verbatim message param is attached as RawMessage so follow-up turns can
// resend it without lossy re-encoding.
func decodeResponse(modelID string, message *anthropic.Message) (*llm.Response, error) {
	content := make([]llm.ContentPart, 0, len(message.Content))
	for _, blockUnion := range message.Content {
		switch block := blockUnion.AsAny().(type) {
		case anthropic.TextBlock:
			content = append(content, llm.NewText(block.Text))
		case anthropic.ToolUseBlock:
			content = append(content, llm.NewToolCall(block.ID, block.Name, string(block.Input)))
		case anthropic.ThinkingBlock:
			part := llm.NewThought(block.Thinking)
			part.Thought.Signature = block.Signature
			content = append(content, part)
		case anthropic.RedactedThinkingBlock:
			content = append(content, llm.NewRedactedThought(block.Data))
		case nil:
			// An empty union carries nothing to either keep or reject.
		default:
			// Dropping a block the model produced would corrupt the
			// conversation, so unhandled kinds are a hard error.
			return nil, fmt.Errorf("decoding %q block: not implemented", blockUnion.Type)
		}
	}

	raw, err := json.Marshal(message.ToParam())
	if err != nil {
		return nil, err
	}

	resp := &llm.Response{
		Message: llm.Message{
			Role:              llm.RoleAssistant,
			Content:           content,
			ProviderID:        llm.ProviderAnthropic,
			ModelID:           modelID,
			ProviderModelName: string(message.Model),
			RawMessage:        raw,
		},
		Usage: decodeUsage(message.Usage),
	}
	if reason, ok := stopReasons[message.StopReason]; ok {
		resp.FinishReason = &reason
	}
	return resp, nil
}

func decodeUsage(usage anthropic.Usage) llm.Usage {
	raw, _ := json.Marshal(usage)
	return llm.Usage{
		InputTokens:      usage.InputTokens,
		OutputTokens:     usage.OutputTokens,
		CacheReadTokens:  usage.CacheReadInputTokens,
		CacheWriteTokens: usage.CacheCreationInputTokens,
		Raw:              raw,
	}
}
