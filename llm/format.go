package llm

import (
	"encoding/json"
	"fmt"
)

// FormatMode selects the structured-output mechanism for a request.
type FormatMode string

const (
	// FormatModeStrict uses the provider's native response-schema support.
	FormatModeStrict FormatMode = "strict"
	// FormatModeTool forces the model to call a synthetic tool whose
	// parameters equal the format schema.
	FormatModeTool FormatMode = "tool"
	// FormatModeJSON requests raw JSON output without schema enforcement.
	FormatModeJSON FormatMode = "json"
)

// Format is a structured-output specification attached to a request.
// FormattingInstructions, when set, are injected as a system instruction for
// providers or modes lacking native schema support.
type Format struct {
	Name                   string          `json:"name"`
	Description            string          `json:"description,omitempty"`
	Schema                 json.RawMessage `json:"schema"`
	Mode                   FormatMode      `json:"mode,omitempty"`
	FormattingInstructions string          `json:"formatting_instructions,omitempty"`
}

// NewFormat builds a Format whose schema is derived from v, which must be a
// struct (or pointer to struct) describing the desired output shape.
// Mode may be left empty to let each provider pick its preferred mode.
func NewFormat(name, description string, v any, mode FormatMode) (*Format, error) {
	schema, err := SchemaFor(v)
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", name, err)
	}
	return &Format{Name: name, Description: description, Schema: schema, Mode: mode}, nil
}

// ModelCapabilities describes what a specific model supports, resolved by
// each provider from its model table.
type ModelCapabilities struct {
	// StructuredOutputWithTools is false for models that cannot combine
	// native structured output (strict/json modes) with tool use.
	StructuredOutputWithTools bool
}

// ResolveFormat resolves a requested format against a model's capabilities.
// fallbackMode is the mode used when the caller left Mode empty; callers
// derive it per provider and per model (e.g. falling back to tool mode when
// the model cannot combine structured output with tools).
//
// A caller who explicitly pins strict or json mode together with tools on a
// model lacking that capability gets a *FeatureNotSupportedError: silently
// switching modes would change the response shape their code expects.
func ResolveFormat(f *Format, fallbackMode FormatMode, hasTools bool, caps ModelCapabilities, providerID, modelID string) (*Format, error) {
	if f == nil {
		return nil, nil
	}
	resolved := *f
	if resolved.Mode == "" {
		resolved.Mode = fallbackMode
		if hasTools && !caps.StructuredOutputWithTools {
			resolved.Mode = FormatModeTool
		}
	} else if (resolved.Mode == FormatModeStrict || resolved.Mode == FormatModeJSON) &&
		hasTools && !caps.StructuredOutputWithTools {
		return nil, &FeatureNotSupportedError{
			Feature:    fmt.Sprintf("formatting_mode:%s with tools", resolved.Mode),
			ProviderID: providerID,
			ModelID:    modelID,
		}
	}
	return &resolved, nil
}

// ToolDefinition returns the synthetic tool used to enforce tool-mode
// structured output for this format.
func (f *Format) ToolDefinition() ToolDefinition {
	return ToolDefinition{
		Name:        FormatToolName,
		Description: f.Description,
		Parameters:  f.Schema,
	}
}

// Unmarshal parses a formatted response payload (text or format-tool
// arguments) into v.
func (f *Format) Unmarshal(data string, v any) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("format %s: %w", f.Name, err)
	}
	return nil
}
