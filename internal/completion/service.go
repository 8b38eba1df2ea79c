package completion

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/victry/ai-gateway/internal/anthropic"
	"github.com/victry/ai-gateway/internal/config"
	"github.com/victry/ai-gateway/internal/observability"
	"github.com/victry/ai-gateway/internal/tools"
)

// Stream is the event-stream handle the streaming orchestrator consumes.
// *anthropic.Stream satisfies it.
type Stream interface {
	Events() <-chan anthropic.StreamEvent
	Abort()
}

// Provider is the slice of the provider client the orchestrators need.
type Provider interface {
	Messages(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error)
	OpenStream(ctx context.Context, req anthropic.MessageRequest) (Stream, error)
}

// WrapClient adapts the concrete Anthropic client to the Provider interface.
func WrapClient(c *anthropic.Client) Provider {
	return clientProvider{client: c}
}

type clientProvider struct {
	client *anthropic.Client
}

func (p clientProvider) Messages(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return p.client.Messages(ctx, req)
}

func (p clientProvider) OpenStream(ctx context.Context, req anthropic.MessageRequest) (Stream, error) {
	stream, err := p.client.StreamMessages(ctx, req)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// Service drives completions against the model provider: request validation,
// the tool round, response shaping, and structured job analysis.
type Service struct {
	provider Provider
	catalog  tools.Catalog
	logger   zerolog.Logger

	defaultModel     string
	defaultMaxTokens int
	defaultSystem    string
	analysisTool     tools.Descriptor
}

// NewService creates a completion service with defaults from configuration.
func NewService(provider Provider, cfg *config.Config) *Service {
	return &Service{
		provider:         provider,
		catalog:          tools.Builtin(),
		logger:           observability.GetLogger().With().Str("component", "completion").Logger(),
		defaultModel:     cfg.AnthropicModel,
		defaultMaxTokens: cfg.DefaultMaxTokens,
		defaultSystem:    cfg.DefaultSystemPrompt,
		analysisTool: tools.Descriptor{
			Name:        analysisToolName,
			Description: "Record the structured analysis of a job description.",
			InputSchema: tools.SchemaFor(&Analysis{}),
		},
	}
}

// Complete turns one request into one final answer, running at most one tool
// round: a response carrying tool_use blocks triggers local execution and
// exactly one follow-up call whose conversation includes the results. A
// tool_use block in the follow-up response is not executed again.
func (s *Service) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	messages := req.normalized()
	apiReq := s.buildMessageRequest(req, messages)

	resp, err := s.provider.Messages(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	var results []tools.Result
	if calls := tools.ExtractCalls(resp.Content); calls != nil {
		s.logger.Info().Int("calls", len(calls)).Msg("Model requested tool execution")

		results = tools.ExecuteCalls(ctx, calls, s.resolveHandlers(req))

		followUp := apiReq
		followUp.Messages = appendToolTurn(messages, resp, results)

		resp, err = s.provider.Messages(ctx, followUp)
		if err != nil {
			return nil, err
		}
	}

	return newResponse(resp, results), nil
}

func (s *Service) buildMessageRequest(req Request, messages []anthropic.MessageParam) anthropic.MessageRequest {
	model := req.Model
	if model == "" {
		model = s.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.defaultMaxTokens
	}
	system := req.System
	if system == "" {
		system = s.defaultSystem
	}

	out := anthropic.MessageRequest{
		Model:         model,
		Messages:      messages,
		System:        system,
		MaxTokens:     maxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		TopK:          req.TopK,
		StopSequences: req.StopSequences,
	}
	for _, d := range req.Tools {
		out.Tools = append(out.Tools, d.ProviderTool())
	}
	return out
}

// resolveHandlers builds the handler map for this request. Caller-supplied
// handlers win; otherwise requested tools resolve against the builtin
// catalog by name. Either way a tool with a declared schema gets its
// arguments validated before dispatch.
func (s *Service) resolveHandlers(req Request) map[string]tools.Handler {
	if req.Handlers != nil {
		handlers := make(map[string]tools.Handler, len(req.Handlers))
		for name, handler := range req.Handlers {
			handlers[name] = handler
		}
		for _, d := range req.Tools {
			if handler, ok := handlers[d.Name]; ok {
				handlers[d.Name] = tools.WithValidation(d, handler)
			}
		}
		return handlers
	}
	return s.catalog.Handlers(req.Tools)
}

// appendToolTurn extends the conversation with the assistant's tool-use turn
// and a user turn carrying the execution results, per the provider's
// tool-result protocol.
func appendToolTurn(messages []anthropic.MessageParam, resp *anthropic.MessageResponse, results []tools.Result) []anthropic.MessageParam {
	role := resp.Role
	if role == "" {
		role = "assistant"
	}

	out := make([]anthropic.MessageParam, 0, len(messages)+2)
	out = append(out, messages...)
	out = append(out, anthropic.MessageParam{Role: role, Content: resp.Content})
	out = append(out, anthropic.MessageParam{
		Role:    "user",
		Content: []anthropic.ContentBlock{tools.FormatResults(results)},
	})
	return out
}
