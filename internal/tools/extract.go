package tools

import (
	"github.com/victry/ai-gateway/internal/anthropic"
)

// ExtractCalls pulls tool_use blocks out of an assistant message's content.
// Content may be nil, a plain string, a []anthropic.ContentBlock, or the
// []any shape produced by decoding provider JSON. The result is nil whenever
// the content carries no tool calls, never an empty slice.
func ExtractCalls(content any) []Call {
	switch blocks := content.(type) {
	case []anthropic.ContentBlock:
		var calls []Call
		for _, b := range blocks {
			if b.Type != "tool_use" {
				continue
			}
			calls = append(calls, callFromBlock(b.Name, b.ID, b.Input))
		}
		return calls

	case []any:
		var calls []Call
		for _, raw := range blocks {
			b, ok := raw.(map[string]any)
			if !ok || b["type"] != "tool_use" {
				continue
			}
			name, _ := b["name"].(string)
			id, _ := b["id"].(string)
			input, _ := b["input"].(map[string]any)
			calls = append(calls, callFromBlock(name, id, input))
		}
		return calls

	default:
		// nil, plain string, and any other shape carry no tool calls
		return nil
	}
}

func callFromBlock(name, id string, input map[string]any) Call {
	// Some response shapes carry the tool name only in the block id
	if name == "" {
		name = id
	}
	if input == nil {
		input = map[string]any{}
	}
	return Call{Name: name, Arguments: input}
}
