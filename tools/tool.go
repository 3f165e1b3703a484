package tools

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

type Tool interface {
	Name() string
	Title() string
	Description() string
	InputSchema() *jsonschema.Schema
	OutputSchema() *jsonschema.Schema
	Run(ctx context.Context, input map[string]any) (output map[string]any, err error)
}

// Call is one tool invocation as sent by an HTTP client.
type Call struct {
	Name      string         `json:"name"`
	Input     map[string]any `json:"arguments"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
}

// output marshals v into a map to keep tool outputs uniform.
func output(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// stringArg returns a trimmed string argument. Numeric identifiers (chat
// user ids are often sent as numbers) are formatted without exponent.
func stringArg(input map[string]any, key string) string {
	switch v := input[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

func requireString(input map[string]any, key string) (string, error) {
	if s := stringArg(input, key); s != "" {
		return s, nil
	}
	return "", invalidInput("%s is required", key)
}

// floatArg reports whether key was set; a value of the wrong type is an
// input error.
func floatArg(input map[string]any, key string) (float64, bool, error) {
	raw, ok := input[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, false, invalidInput("%s must be a number", key)
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false, invalidInput("%s must be a number", key)
		}
		f = n
	default:
		return 0, false, invalidInput("%s must be a number", key)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, invalidInput("%s must be a number", key)
	}
	return f, true, nil
}

func intArg(input map[string]any, key string) (int, bool, error) {
	f, ok, err := floatArg(input, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	if f != math.Trunc(f) || f < 0 {
		return 0, false, invalidInput("%s must be a non-negative whole number", key)
	}
	return int(f), true, nil
}

func boolArg(input map[string]any, key string, def bool) bool {
	switch v := input[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// optionalBool reports whether key was set to a boolean.
func optionalBool(input map[string]any, key string) (bool, bool, error) {
	raw, ok := input[key]
	if !ok || raw == nil {
		return false, false, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, true, nil
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b, true, nil
		}
	}
	return false, false, invalidInput("%s must be true or false", key)
}

func stringSchema(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func numberSchema(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number", Description: description}
}

func textOutputSchema(extra map[string]*jsonschema.Schema) *jsonschema.Schema {
	props := map[string]*jsonschema.Schema{
		"text": {Type: "string"},
	}
	for k, v := range extra {
		props[k] = v
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   []string{"text"},
	}
}
