package completion

import (
	"strings"

	"github.com/google/uuid"

	"github.com/victry/ai-gateway/internal/anthropic"
	"github.com/victry/ai-gateway/internal/tools"
)

// Usage reports the provider's token accounting in the public response shape.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Response is the public completion payload. Content concatenates the
// response's text blocks; ToolResults is present only when a tool round ran.
type Response struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Content      string         `json:"content"`
	Model        string         `json:"model"`
	StopReason   string         `json:"stopReason"`
	StopSequence *string        `json:"stopSequence"`
	Usage        Usage          `json:"usage"`
	ToolResults  []tools.Result `json:"toolResults,omitempty"`
}

func newResponse(resp *anthropic.MessageResponse, results []tools.Result) *Response {
	id := resp.ID
	if id == "" {
		id = "msg_" + uuid.NewString()
	}
	role := resp.Role
	if role == "" {
		role = "assistant"
	}

	return &Response{
		ID:           id,
		Type:         "completion",
		Role:         role,
		Content:      textContent(resp.Content),
		Model:        resp.Model,
		StopReason:   resp.StopReason,
		StopSequence: resp.StopSequence,
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
		ToolResults: results,
	}
}

// textContent concatenates the text blocks of a response, skipping every
// other block kind.
func textContent(blocks []anthropic.ContentBlock) string {
	var b strings.Builder
	for _, block := range blocks {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}
