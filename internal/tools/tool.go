package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/victry/ai-gateway/internal/anthropic"
)

// Descriptor declares a tool the model may call: a name, a natural language
// description, and a JSON Schema for its arguments.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// New builds a Descriptor. Only the name is mandatory; the schema may be nil
// for tools that take no arguments.
func New(name, description string, schema map[string]any) (Descriptor, error) {
	if strings.TrimSpace(name) == "" {
		return Descriptor{}, errors.New("tool name is required")
	}
	return Descriptor{
		Name:        name,
		Description: description,
		InputSchema: schema,
	}, nil
}

// ProviderTool converts the descriptor into the provider's wire format.
func (d Descriptor) ProviderTool() anthropic.Tool {
	return anthropic.Tool{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: d.InputSchema,
	}
}

// Call is the model's request to run one tool with the given arguments.
type Call struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Handler executes one tool call. The returned value must be JSON-encodable.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Outcome is the terminal result of one call. Exactly one of Value and Error
// is meaningful; Value always serializes, as null on failure.
type Outcome struct {
	Value any    `json:"output"`
	Error string `json:"error,omitempty"`
}

// Result pairs a call with its outcome, preserving the call's position in
// the originating message.
type Result struct {
	Input  Call    `json:"input"`
	Output Outcome `json:"output"`
}
