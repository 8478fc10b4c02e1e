// Package assistant – tools.go manages the capability registry exposed to
// the generator and dispatches tool calls to their handlers. Each tool is
// an opaque capability with a declared parameter schema and an executor
// bound to the current user and stores.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/YouMingYeh/lio/pkg/lio/llm"
)

// DefaultToolTimeout bounds a single tool execution.
const DefaultToolTimeout = 30 * time.Second

// ToolHandler is the signature for tool execution handlers. It receives
// parsed, schema-validated arguments and returns the result or an error.
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// Tool bundles a capability's definition with its handler.
type Tool struct {
	Name        string
	Description string

	// Parameters is the JSON-schema object describing the arguments.
	Parameters map[string]any

	Handler ToolHandler
}

// Registry holds the fixed capability set for one generation run.
type Registry struct {
	order   []string
	tools   map[string]Tool
	timeout time.Duration
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		timeout: DefaultToolTimeout,
		logger:  logger.With("component", "tools"),
	}
}

// Register adds a tool. Re-registering a name overwrites it in place.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Definitions returns the wire-format tool definitions in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		schema, _ := json.Marshal(t.Parameters)
		defs = append(defs, llm.ToolDefinition{
			Type: "function",
			Function: llm.FunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema,
			},
		})
	}
	return defs
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// SchemaJSON returns the serialized parameter schema for a tool.
func (r *Registry) SchemaJSON(name string) json.RawMessage {
	t, ok := r.tools[name]
	if !ok {
		return nil
	}
	b, _ := json.Marshal(t.Parameters)
	return b
}

// Execute runs one already-validated tool call.
func (r *Registry) Execute(ctx context.Context, call llm.ToolCall, args map[string]any) ToolResult {
	name := call.Function.Name
	result := ToolResult{ToolCallID: call.ID, Name: name}

	tool, ok := r.tools[name]
	if !ok {
		result.Content = fmt.Sprintf("Error: unknown tool %q", name)
		result.Err = fmt.Errorf("unknown tool: %s", name)
		return result
	}

	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	output, err := tool.Handler(execCtx, args)
	duration := time.Since(start)

	if err != nil {
		result.Content = fmt.Sprintf("Error: %v", err)
		result.Err = err
		r.logger.Warn("tool execution failed",
			"name", name,
			"error", err,
			"duration_ms", duration.Milliseconds(),
		)
		return result
	}

	result.Content = formatToolOutput(output)
	r.logger.Info("tool executed",
		"name", name,
		"duration_ms", duration.Milliseconds(),
		"output_len", len(result.Content),
	)
	return result
}

// ParseArgs parses JSON-encoded tool arguments into a map.
func ParseArgs(raw string) (map[string]any, error) {
	if raw == "" || raw == "{}" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid JSON arguments: %w", err)
	}
	return args, nil
}

// ValidateArgs checks parsed arguments against a tool's parameter schema:
// required keys must be present and declared property types must match.
// A JSON null never satisfies a declared property.
func ValidateArgs(schema map[string]any, args map[string]any) error {
	props, _ := schema["properties"].(map[string]any)

	if required, ok := schema["required"].([]any); ok {
		for _, req := range required {
			name, _ := req.(string)
			if _, present := args[name]; !present {
				return fmt.Errorf("missing required argument %q", name)
			}
		}
	}
	if required, ok := schema["required"].([]string); ok {
		for _, name := range required {
			if _, present := args[name]; !present {
				return fmt.Errorf("missing required argument %q", name)
			}
		}
	}

	for name, value := range args {
		propAny, declared := props[name]
		if !declared {
			continue
		}
		if value == nil {
			return fmt.Errorf("argument %q: null is not allowed", name)
		}
		prop, _ := propAny.(map[string]any)
		wantType, _ := prop["type"].(string)
		if wantType == "" {
			continue
		}
		if !matchesType(value, wantType) {
			return fmt.Errorf("argument %q: expected %s, got %T", name, wantType, value)
		}
	}
	return nil
}

// matchesType checks a decoded JSON value against a schema type name.
func matchesType(value any, wantType string) bool {
	switch wantType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		_, ok := value.(float64)
		return ok
	case "integer":
		f, ok := value.(float64)
		return ok && f == float64(int64(f))
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	}
	return true
}

// formatToolOutput converts tool output to a string suitable for the LLM.
func formatToolOutput(output any) string {
	if output == nil {
		return "OK"
	}
	switch v := output.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// objectSchema is shorthand for a JSON-schema object with the given
// properties and required list.
func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// prop is shorthand for a typed, described schema property.
func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}
