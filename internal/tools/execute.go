package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/victry/ai-gateway/internal/observability"
)

// ExecuteCalls runs every call concurrently and returns results indexed by
// call position, so result order always matches call order regardless of
// completion order. A failing handler never aborts its siblings: failures
// are recorded per call and reported back to the model, not raised.
func ExecuteCalls(ctx context.Context, calls []Call, handlers map[string]Handler) []Result {
	if len(calls) == 0 {
		return nil
	}

	logger := observability.GetLogger().With().Str("component", "tool_executor").Logger()
	results := make([]Result, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call Call) {
			defer wg.Done()
			results[i] = runCall(ctx, call, handlers, logger)
		}(i, call)
	}
	wg.Wait()

	return results
}

func runCall(ctx context.Context, call Call, handlers map[string]Handler, logger zerolog.Logger) Result {
	result := Result{Input: call}

	handler, ok := handlers[call.Name]
	if !ok {
		logger.Warn().Str("tool", call.Name).Msg("No handler registered for tool")
		observability.RecordToolExecution(call.Name, 0, false)
		result.Output = Outcome{Error: "No handler registered for tool: " + call.Name}
		return result
	}

	start := time.Now()
	value, err := safeInvoke(ctx, handler, call.Arguments)
	seconds := time.Since(start).Seconds()

	if err != nil {
		logger.Error().Err(err).Str("tool", call.Name).Msg("Tool execution failed")
		observability.RecordToolExecution(call.Name, seconds, false)
		result.Output = Outcome{Error: errorMessage(err)}
		return result
	}

	observability.RecordToolExecution(call.Name, seconds, true)
	result.Output = Outcome{Value: value}
	return result
}

// safeInvoke shields the gateway from handler panics; a panicking tool
// reports an error result like any other failure.
func safeInvoke(ctx context.Context, handler Handler, args map[string]any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool handler panicked: %v", r)
		}
	}()
	return handler(ctx, args)
}

func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Tool execution failed"
}
