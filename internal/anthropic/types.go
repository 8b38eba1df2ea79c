package anthropic

const (
	defaultBaseURL = "https://api.anthropic.com"
	messagesPath   = "/v1/messages"
	modelsPath     = "/v1/models"
	apiVersion     = "2023-06-01"
	userAgent      = "victry-ai-gateway/1.0"
)

// MessageRequest follows the Anthropic Messages API contract.
type MessageRequest struct {
	Model         string         `json:"model"`
	Messages      []MessageParam `json:"messages"`
	System        string         `json:"system,omitempty"`
	MaxTokens     int            `json:"max_tokens"`
	Temperature   *float64       `json:"temperature,omitempty"`
	TopP          *float64       `json:"top_p,omitempty"`
	TopK          *int           `json:"top_k,omitempty"`
	StopSequences []string       `json:"stop_sequences,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	Tools         []Tool         `json:"tools,omitempty"`
	ToolChoice    *ToolChoice    `json:"tool_choice,omitempty"`
}

// ToolChoice steers the model's tool selection. Type "tool" forces the named
// tool; "any" forces some tool; "auto" leaves the choice to the model.
type ToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// MessageParam is a single conversational turn. Content is either a plain
// string or a []ContentBlock; both shapes are passed through to the API as-is.
type MessageParam struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// Tool describes a callable tool in the provider's wire format.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ContentBlock is a union type for text, tool_use, and tool_result blocks.
// Type discriminates which of the remaining fields are meaningful.
type ContentBlock struct {
	Type string `json:"type"`

	// text blocks
	Text string `json:"text,omitempty"`

	// tool_use blocks. Name identifies the tool; some response shapes carry
	// only ID, so consumers fall back to it when Name is empty.
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// tool_result blocks sent back to the model after local execution
	ToolResults []ToolResultItem `json:"tool_results,omitempty"`
}

// ToolResultItem reports the outcome of one tool call back to the model.
type ToolResultItem struct {
	ToolCallID string `json:"tool_call_id"`
	Output     any    `json:"output"`
}

// Usage carries the provider's token accounting for one request.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// MessageResponse captures the Anthropic message schema we care about.
type MessageResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Model        string         `json:"model"`
	Content      []ContentBlock `json:"content"`
	StopReason   string         `json:"stop_reason"`
	StopSequence *string        `json:"stop_sequence"`
	Usage        Usage          `json:"usage"`
}

// ErrorResponse models Anthropic error payloads.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody drills into the API error object.
type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
