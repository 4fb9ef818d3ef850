package google

import (
	"encoding/json"
	"fmt"

	"github.com/modelwire/modelwire/llm"
)

// finishReasons maps API finish reasons to normalized ones. The API has no
// tool-call finish reason; a STOP after function calls still means stop.
// Unknown reasons decode to nil.
var finishReasons = map[string]llm.FinishReason{
	"STOP":       llm.FinishReasonStop,
	"MAX_TOKENS": llm.FinishReasonMaxTokens,
	"SAFETY":     llm.FinishReasonRefusal,
}

// decodeResponse converts a generateContent response into a normalized
// response. Only candidate zero is considered.
func decodeResponse(modelID string, resp *apiResponse) (*llm.Response, error) {
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("response has no candidates")
	}
	candidate := resp.Candidates[0]

	content, err := decodeParts(candidate.Content.Parts)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(candidate.Content)
	if err != nil {
		return nil, err
	}

	providerModelName := resp.ModelVersion
	if providerModelName == "" {
		providerModelName = modelID
	}

	out := &llm.Response{
		Message: llm.Message{
			Role:              llm.RoleAssistant,
			Content:           content,
			ProviderID:        llm.ProviderGoogle,
			ModelID:           modelID,
			ProviderModelName: providerModelName,
			RawMessage:        raw,
		},
	}
	if resp.UsageMetadata != nil {
		out.Usage = decodeUsage(resp.UsageMetadata)
	}
	if reason, ok := finishReasons[candidate.FinishReason]; ok {
		out.FinishReason = &reason
	}
	return out, nil
}

// unsupportedPartKind names the first populated part field that has no
// normalized representation, or "" when the part is handled.
func unsupportedPartKind(part apiPart) string {
	switch {
	case part.InlineData != nil:
		return "inlineData"
	case part.FileData != nil:
		return "fileData"
	case part.ExecutableCode != nil:
		return "executableCode"
	case part.CodeExecutionResult != nil:
		return "codeExecutionResult"
	case part.VideoMetadata != nil:
		return "videoMetadata"
	}
	return ""
}

func decodeParts(parts []apiPart) ([]llm.ContentPart, error) {
	var content []llm.ContentPart
	for _, part := range parts {
		if kind := unsupportedPartKind(part); kind != "" {
			// Dropping a part the model produced would corrupt the
			// conversation, so unhandled kinds are a hard error.
			return nil, fmt.Errorf("decoding %s part: not implemented", kind)
		}
		switch {
		case part.FunctionCall != nil:
			args := string(part.FunctionCall.Args)
			if args == "" {
				args = "{}"
			}
			// The API issues no call IDs; a sentinel marks them synthetic.
			content = append(content, llm.NewToolCall(UnknownToolCallID, part.FunctionCall.Name, args))

		case part.Thought:
			p := llm.NewThought(part.Text)
			p.Thought.Signature = part.ThoughtSignature
			content = append(content, p)

		case part.Text != "":
			content = append(content, llm.NewText(part.Text))
		}
	}
	return content, nil
}

// decodeUsage converts usage metadata. candidatesTokenCount excludes the
// separately billed thought tokens, so they are added back to keep
// OutputTokens comparable across providers.
func decodeUsage(meta *apiUsageMeta) llm.Usage {
	raw, _ := json.Marshal(meta)
	return llm.Usage{
		InputTokens:     meta.PromptTokenCount,
		OutputTokens:    meta.CandidatesTokenCount + meta.ThoughtsTokenCount,
		ReasoningTokens: meta.ThoughtsTokenCount,
		CacheReadTokens: meta.CachedContentTokenCount,
		Raw:             raw,
	}
}
