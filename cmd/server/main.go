package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/victry/ai-gateway/internal/anthropic"
	"github.com/victry/ai-gateway/internal/completion"
	"github.com/victry/ai-gateway/internal/config"
	"github.com/victry/ai-gateway/internal/gateway"
	"github.com/victry/ai-gateway/internal/observability"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("model", cfg.AnthropicModel).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("AI Gateway Service starting")

	// Construct the provider client up front so a bad credential fails fast
	client, err := anthropic.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Anthropic client")
	}

	svc := completion.NewService(completion.WrapClient(client), cfg)

	// Create HTTP server
	mux := http.NewServeMux()

	// Completion endpoints
	mux.HandleFunc("/v1/complete", gateway.HandleComplete(svc, cfg))
	mux.HandleFunc("/v1/complete/stream", gateway.HandleStream(svc, cfg))
	mux.HandleFunc("/v1/analyze", gateway.HandleAnalyze(svc, cfg))

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness probes the provider API without spending completion tokens
	mux.HandleFunc("/ready", observability.ReadinessHandler(client.HealthCheck))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// WriteTimeout stays unset: streaming responses hold the connection open
	// for as long as the model keeps producing text
	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("http://localhost:%s/v1/complete", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
