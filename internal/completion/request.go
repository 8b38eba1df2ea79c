package completion

import (
	"github.com/victry/ai-gateway/internal/anthropic"
	"github.com/victry/ai-gateway/internal/tools"
)

// Request is one completion request. At least one of Prompt and Messages
// must be set; when both are, Messages wins. Handlers never comes off the
// wire: HTTP callers reference catalog tools by name through Tools, and
// in-process callers may attach handler functions directly.
type Request struct {
	Prompt        string                   `json:"prompt,omitempty"`
	Messages      []anthropic.MessageParam `json:"messages,omitempty"`
	MaxTokens     int                      `json:"maxTokens,omitempty"`
	Temperature   *float64                 `json:"temperature,omitempty"`
	Model         string                   `json:"model,omitempty"`
	System        string                   `json:"system,omitempty"`
	StopSequences []string                 `json:"stopSequences,omitempty"`
	TopK          *int                     `json:"topK,omitempty"`
	TopP          *float64                 `json:"topP,omitempty"`
	Tools         []tools.Descriptor       `json:"tools,omitempty"`
	Handlers      map[string]tools.Handler `json:"-"`
}

func (r Request) validate() error {
	if r.Prompt == "" && len(r.Messages) == 0 {
		return ErrMissingInput
	}
	return nil
}

// normalized returns the conversation to send: the explicit messages when
// present, otherwise the prompt as a single user message.
func (r Request) normalized() []anthropic.MessageParam {
	if len(r.Messages) > 0 {
		return r.Messages
	}
	return []anthropic.MessageParam{{Role: "user", Content: r.Prompt}}
}
