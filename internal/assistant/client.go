package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lunatix/conversation-gateway/internal/config"
	"github.com/lunatix/conversation-gateway/internal/observability"
	"github.com/lunatix/conversation-gateway/internal/resilience"
)

const messagesPath = "/v1/assistant/messages"

// Client calls the assistant API over HTTP
type Client struct {
	config         *config.Config
	httpClient     *http.Client
	circuitBreaker *resilience.CircuitBreaker
	logger         zerolog.Logger
}

// completionRequest is the wire format for a completion call
type completionRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// NewClient creates a new assistant API client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.AssistantTimeout) * time.Second,
		},
		circuitBreaker: resilience.NewCircuitBreaker(
			"assistant",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
		logger: observability.GetLogger().With().Str("component", "assistant").Logger(),
	}
}

// Complete sends one user message to the assistant API and returns the reply
// with its citations. Transport-level retries happen here; callers never see
// partial results, only a reply or an error.
func (c *Client) Complete(ctx context.Context, sessionID, message string) (*Reply, error) {
	var reply *Reply

	err := c.circuitBreaker.Call(func() error {
		retryConfig := &resilience.RetryConfig{
			MaxAttempts:       c.config.RetryMaxAttempts,
			InitialBackoff:    time.Duration(c.config.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		}

		return resilience.Retry(func() error {
			var callErr error
			reply, callErr = c.post(ctx, sessionID, message)
			return callErr
		}, retryConfig, resilience.IsRetryableNetworkError)
	})

	observability.UpdateCircuitBreakerState("assistant", int(c.circuitBreaker.GetState()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures("assistant")
		return nil, fmt.Errorf("assistant completion failed: %w", err)
	}

	return reply, nil
}

func (c *Client) post(ctx context.Context, sessionID, message string) (*Reply, error) {
	body, err := json.Marshal(completionRequest{
		SessionID: sessionID,
		Message:   message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := strings.TrimRight(c.config.AssistantURL, "/") + messagesPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.AssistantAPIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assistant request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		// Surfaced as retryable so the retry loop gets another attempt
		return nil, fmt.Errorf("assistant unavailable (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("assistant returned status %d", resp.StatusCode)
	}

	var reply Reply
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&reply); err != nil {
		return nil, fmt.Errorf("failed to decode assistant reply: %w", err)
	}

	if reply.Response == "" {
		return nil, fmt.Errorf("assistant reply is empty")
	}

	c.logger.Debug().
		Str("session_id", sessionID).
		Int("sources", len(reply.Sources)).
		Msg("Assistant reply received")

	return &reply, nil
}

// HealthCheck checks if the assistant API is reachable
func (c *Client) HealthCheck(ctx context.Context) (bool, error) {
	url := strings.TrimRight(c.config.AssistantURL, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("assistant health check failed: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}
