package llm

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// FormatToolName is the reserved name of the synthetic tool used to enforce
// tool-mode structured output. Decoders treat a call to this tool as the
// formatted response rather than a real tool invocation.
const FormatToolName = "__formatted_output__"

// ToolDefinition describes a tool an LLM may request be called.
// Parameters is a JSON Schema object. Strict requests provider-side schema
// validation of arguments where supported.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
	Strict      bool            `json:"strict,omitempty"`
}

// NewToolDefinition builds a ToolDefinition whose parameter schema is derived
// from params, which must be a struct (or pointer to struct) describing the
// tool's arguments.
func NewToolDefinition(name, description string, params any) (ToolDefinition, error) {
	schema, err := SchemaFor(params)
	if err != nil {
		return ToolDefinition{}, fmt.Errorf("tool %s: %w", name, err)
	}
	return ToolDefinition{Name: name, Description: description, Parameters: schema}, nil
}

// Call invokes fn with the unmarshaled arguments of a tool call and returns
// the result serialized as a JSON string. It is the execution companion to
// ToolDefinition: schema description and invocation stay separate.
func Call[A any, R any](call ToolCallPart, fn func(A) (R, error)) (string, error) {
	var args A
	if call.Args != "" {
		if err := json.Unmarshal([]byte(call.Args), &args); err != nil {
			return "", fmt.Errorf("tool %s: invalid arguments: %w", call.Name, err)
		}
	}
	result, err := fn(args)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("tool %s: marshal result: %w", call.Name, err)
	}
	return string(out), nil
}

// SchemaFor derives a JSON Schema from a Go value. Definitions are inlined so
// the result contains no $ref, matching what provider tool schemas accept.
func SchemaFor(v any) (json.RawMessage, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(v)
	schema.Version = ""
	out, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("reflect schema: %w", err)
	}
	return ResolveRefs(out), nil
}

// ResolveRefs inlines #/$defs references in a JSON Schema. Provider tool
// schemas generally do not support $defs/$ref, so every encoder runs its
// schemas through this before sending.
func ResolveRefs(schema json.RawMessage) json.RawMessage {
	var root map[string]any
	if err := json.Unmarshal(schema, &root); err != nil {
		return schema
	}
	defs, _ := root["$defs"].(map[string]any)
	resolved := resolveRefsValue(root, defs)
	obj, ok := resolved.(map[string]any)
	if ok {
		delete(obj, "$defs")
	}
	out, err := json.Marshal(resolved)
	if err != nil {
		return schema
	}
	return out
}

func resolveRefsValue(v any, defs map[string]any) any {
	switch val := v.(type) {
	case map[string]any:
		if ref, ok := val["$ref"].(string); ok {
			const prefix = "#/$defs/"
			if len(ref) > len(prefix) && ref[:len(prefix)] == prefix {
				if def, ok := defs[ref[len(prefix):]]; ok {
					return resolveRefsValue(def, defs)
				}
			}
			return val
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = resolveRefsValue(item, defs)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = resolveRefsValue(item, defs)
		}
		return out
	default:
		return v
	}
}
