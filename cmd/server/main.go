package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lunatix/conversation-gateway/internal/assistant"
	"github.com/lunatix/conversation-gateway/internal/config"
	"github.com/lunatix/conversation-gateway/internal/gateway"
	"github.com/lunatix/conversation-gateway/internal/observability"
	"github.com/lunatix/conversation-gateway/internal/voice"
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
		Str("assistant_url", cfg.AssistantURL).
		Str("live_voice_url", cfg.LiveVoiceURL).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Conversation Gateway Service starting")

	// Shared assistant client; one voice transport per conversation
	completer := assistant.NewClient(cfg)
	newTransport := func() voice.Transport {
		return voice.NewLiveClient(cfg)
	}

	// Create HTTP server
	mux := http.NewServeMux()

	// Browser conversation WebSocket handler
	mux.HandleFunc("/ws/conversation", gateway.HandleConversationWS(cfg, completer, newTransport))

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness endpoint - create health check functions here to avoid import cycles
	assistantCheck := func(ctx context.Context) (bool, error) {
		return completer.HealthCheck(ctx)
	}

	liveVoiceCheck := func(ctx context.Context) (bool, error) {
		// Config-level check only: opening a live voice channel allocates
		// upstream model resources, so no probe connection is made
		if _, err := url.Parse(cfg.LiveVoiceURL); err != nil {
			return false, err
		}
		return true, nil
	}

	mux.HandleFunc("/ready", observability.ReadinessHandler(assistantCheck, liveVoiceCheck))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/ws/conversation", cfg.Port)).
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
