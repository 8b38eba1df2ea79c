package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Completion metrics
	completionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_gateway_completions_total",
		Help: "Total number of completion requests processed",
	}, []string{"mode", "status"}) // mode: "sync", "stream" or "analyze"

	completionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ai_gateway_completion_duration_seconds",
		Help:    "End-to-end completion request duration in seconds",
		Buckets: []float64{0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
	})

	tokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_gateway_tokens_total",
		Help: "Total tokens reported by the model provider",
	}, []string{"direction"}) // direction: "input" or "output"

	// Provider metrics
	providerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_gateway_provider_requests_total",
		Help: "Total number of requests to the model provider",
	}, []string{"status"})

	providerLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ai_gateway_provider_latency_seconds",
		Help:    "Model provider request latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
	})

	// Tool metrics
	toolExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_gateway_tool_executions_total",
		Help: "Total number of tool handler executions",
	}, []string{"tool", "status"})

	toolLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ai_gateway_tool_latency_seconds",
		Help:    "Tool handler execution latency in seconds",
		Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1.0, 5.0},
	})

	// Streaming metrics
	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ai_gateway_active_streams",
		Help: "Number of active streaming sessions",
	})

	streamChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ai_gateway_stream_chunks_total",
		Help: "Total text chunks forwarded to streaming clients",
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ai_gateway_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_gateway_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// Metrics tracks metrics for a single gateway request
type Metrics struct {
	requestID string
	startTime time.Time
	streaming bool
	mu        sync.Mutex
}

// NewRequestMetrics creates a new metrics tracker for a request
func NewRequestMetrics(requestID string) *Metrics {
	return &Metrics{
		requestID: requestID,
		startTime: time.Now(),
	}
}

// RecordStreamStart records the start of a streaming session
func (m *Metrics) RecordStreamStart() {
	m.mu.Lock()
	m.streaming = true
	m.mu.Unlock()
	activeStreams.Inc()
}

// RecordCompletion records the end of a request in the given mode
func (m *Metrics) RecordCompletion(mode string, success bool) {
	m.mu.Lock()
	if m.streaming {
		m.streaming = false
		activeStreams.Dec()
	}
	m.mu.Unlock()

	completionDuration.Observe(time.Since(m.startTime).Seconds())

	status := "success"
	if !success {
		status = "error"
	}
	completionsTotal.WithLabelValues(mode, status).Inc()
}

// RecordTokens records provider-reported token usage
func (m *Metrics) RecordTokens(input, output int) {
	if input > 0 {
		tokensTotal.WithLabelValues("input").Add(float64(input))
	}
	if output > 0 {
		tokensTotal.WithLabelValues("output").Add(float64(output))
	}
}

// RecordError records an error
func (m *Metrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordProviderRequest records one request to the model provider
func RecordProviderRequest(seconds float64, success bool) {
	providerLatency.Observe(seconds)

	status := "success"
	if !success {
		status = "error"
	}
	providerRequests.WithLabelValues(status).Inc()
}

// RecordToolExecution records one tool handler execution
func RecordToolExecution(tool string, seconds float64, success bool) {
	toolLatency.Observe(seconds)

	status := "success"
	if !success {
		status = "error"
	}
	toolExecutions.WithLabelValues(tool, status).Inc()
}

// RecordStreamChunk records one text chunk forwarded to a client
func RecordStreamChunk() {
	streamChunks.Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
