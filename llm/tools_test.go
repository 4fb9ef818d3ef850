package llm

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type weatherArgs struct {
	City string `json:"city"`
}

func TestNewToolDefinition(t *testing.T) {
	def, err := NewToolDefinition("get_weather", "current weather for a city", weatherArgs{})
	if err != nil {
		t.Fatalf("NewToolDefinition failed: %v", err)
	}
	if def.Name != "get_weather" {
		t.Errorf("Unexpected name %q", def.Name)
	}

	var schema map[string]any
	if err := json.Unmarshal(def.Parameters, &schema); err != nil {
		t.Fatalf("Parameters is not valid JSON: %v", err)
	}
	if schema["type"] != "object" {
		t.Errorf("Expected object schema, got %v", schema["type"])
	}
	props, _ := schema["properties"].(map[string]any)
	if _, ok := props["city"]; !ok {
		t.Errorf("Expected city property, got %v", props)
	}
}

func TestCall(t *testing.T) {
	call := ToolCallPart{ID: "call_1", Name: "get_weather", Args: `{"city":"Paris"}`}
	out, err := Call(call, func(args weatherArgs) (map[string]any, error) {
		if args.City != "Paris" {
			t.Errorf("Expected city Paris, got %q", args.City)
		}
		return map[string]any{"temp": 21}, nil
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if out != `{"temp":21}` {
		t.Errorf("Unexpected result %q", out)
	}
}

func TestCallInvalidArgs(t *testing.T) {
	call := ToolCallPart{ID: "call_1", Name: "get_weather", Args: `not json`}
	_, err := Call(call, func(args weatherArgs) (string, error) {
		return "", nil
	})
	if err == nil {
		t.Error("Expected error for invalid arguments")
	}
}

func TestCallHandlerError(t *testing.T) {
	sentinel := errors.New("service down")
	call := ToolCallPart{ID: "call_1", Name: "get_weather", Args: `{"city":"Paris"}`}
	_, err := Call(call, func(args weatherArgs) (string, error) {
		return "", sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("Expected handler error returned, got %v", err)
	}
}

func TestResolveRefs(t *testing.T) {
	schema := json.RawMessage(`{
		"type": "object",
		"properties": {
			"author": {"$ref": "#/$defs/Person"},
			"reviewers": {"type": "array", "items": {"$ref": "#/$defs/Person"}}
		},
		"$defs": {
			"Person": {"type": "object", "properties": {"name": {"type": "string"}}}
		}
	}`)
	resolved := ResolveRefs(schema)
	out := string(resolved)
	if strings.Contains(out, "$ref") {
		t.Errorf("Expected all $ref inlined, got %s", out)
	}
	if strings.Contains(out, "$defs") {
		t.Errorf("Expected $defs removed, got %s", out)
	}

	var root map[string]any
	if err := json.Unmarshal(resolved, &root); err != nil {
		t.Fatalf("Resolved schema is not valid JSON: %v", err)
	}
	props := root["properties"].(map[string]any)
	author := props["author"].(map[string]any)
	if author["type"] != "object" {
		t.Errorf("Expected inlined Person definition, got %v", author)
	}
}

func TestSchemaForNestedStructs(t *testing.T) {
	type inner struct {
		Name string `json:"name"`
	}
	type outer struct {
		First  inner `json:"first"`
		Second inner `json:"second"`
	}
	schema, err := SchemaFor(outer{})
	if err != nil {
		t.Fatalf("SchemaFor failed: %v", err)
	}
	if strings.Contains(string(schema), "$ref") {
		t.Errorf("Expected no $ref in derived schema, got %s", schema)
	}
}
