package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the conversation gateway service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Assistant API (text completion) configuration
	AssistantURL     string `envconfig:"ASSISTANT_URL" default:"http://localhost:8000"`
	AssistantAPIKey  string `envconfig:"ASSISTANT_API_KEY" required:"true"`
	AssistantTimeout int    `envconfig:"ASSISTANT_TIMEOUT" default:"30"` // seconds

	// Live voice API configuration. The gateway dials this endpoint per
	// conversation and receives finalized transcriptions for both speaker roles.
	LiveVoiceURL      string `envconfig:"LIVE_VOICE_URL" default:"ws://localhost:8000/api/v1/voice/ws"`
	LiveVoiceAPIKey   string `envconfig:"LIVE_VOICE_API_KEY" required:"true"`
	LiveVoiceWorkflow string `envconfig:"LIVE_VOICE_WORKFLOW" default:"insurance_claim"`
	VoiceReadyTimeout int    `envconfig:"VOICE_READY_TIMEOUT" default:"10"` // seconds to wait for channel confirmation

	// Resilience configuration (assistant API transport only; the voice
	// channel is never reconnected automatically)
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.AssistantAPIKey == "" {
		return fmt.Errorf("ASSISTANT_API_KEY is required")
	}
	if c.LiveVoiceAPIKey == "" {
		return fmt.Errorf("LIVE_VOICE_API_KEY is required")
	}
	return nil
}
