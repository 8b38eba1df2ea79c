package tools

import (
	"github.com/victry/ai-gateway/internal/anthropic"
)

// FormatResults folds executor results into the single tool_result content
// block for the follow-up user turn. Entries stay 1:1 and in order with the
// results, and each entry's tool_call_id repeats the tool name the model
// called, so the block only ever references calls from the assistant turn
// that produced it. Failed calls carry their error text as the output so the
// model can react to the failure.
func FormatResults(results []Result) anthropic.ContentBlock {
	items := make([]anthropic.ToolResultItem, len(results))
	for i, r := range results {
		output := r.Output.Value
		if r.Output.Error != "" {
			output = r.Output.Error
		}
		items[i] = anthropic.ToolResultItem{
			ToolCallID: r.Input.Name,
			Output:     output,
		}
	}
	return anthropic.ContentBlock{
		Type:        "tool_result",
		ToolResults: items,
	}
}
