package voice

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lunatix/conversation-gateway/internal/config"
	"github.com/lunatix/conversation-gateway/internal/observability"
)

// serverEvent is one JSON event from the live voice API.
// Status events report channel lifecycle; transcription events carry
// finalized or interim utterances for either speaker role. Audio frames
// travel on the media path between browser and voice API directly and are
// not interpreted here.
type serverEvent struct {
	Type    string `json:"type"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Role    string `json:"role,omitempty"`
	Text    string `json:"text,omitempty"`
	Final   bool   `json:"final,omitempty"`
}

// LiveClient implements Transport against the live voice websocket API
type LiveClient struct {
	config *config.Config
	logger zerolog.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	active     bool
	ready      bool
	readyTimer *time.Timer
}

// NewLiveClient creates a new live voice channel client
func NewLiveClient(cfg *config.Config) *LiveClient {
	return &LiveClient{
		config: cfg,
		logger: observability.GetLogger().With().Str("component", "voice").Logger(),
	}
}

// Start dials the live voice API and begins delivering channel events.
// It returns an error if the websocket connection cannot be established;
// readiness is reported asynchronously via callbacks.OnReady once the
// remote confirms the channel.
func (c *LiveClient) Start(ctx context.Context, sessionID string, callbacks Callbacks) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return fmt.Errorf("voice channel is already active")
	}

	wsURL := fmt.Sprintf("%s/%s?workflow_type=%s",
		strings.TrimRight(c.config.LiveVoiceURL, "/"),
		sessionID,
		c.config.LiveVoiceWorkflow,
	)

	headers := make(http.Header)
	headers.Set("Authorization", "Bearer "+c.config.LiveVoiceAPIKey)

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("voice channel dial failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("voice channel dial failed: %w", err)
	}

	c.conn = conn
	c.active = true
	c.ready = false

	// The remote must confirm the channel within the configured window,
	// otherwise the session is torn down and reported as failed.
	readyTimeout := time.Duration(c.config.VoiceReadyTimeout) * time.Second
	c.readyTimer = time.AfterFunc(readyTimeout, func() {
		if c.teardown() && callbacks.OnError != nil {
			callbacks.OnError("voice channel confirmation timed out")
		}
	})

	go c.readLoop(conn, callbacks)

	c.logger.Info().
		Str("session_id", sessionID).
		Str("workflow", c.config.LiveVoiceWorkflow).
		Msg("Voice channel opened")

	return nil
}

// readLoop consumes server events until the channel closes or fails
func (c *LiveClient) readLoop(conn *websocket.Conn, callbacks Callbacks) {
	for {
		var event serverEvent
		if err := conn.ReadJSON(&event); err != nil {
			// A read error after an explicit Stop is expected teardown;
			// anything else is an asynchronous channel failure.
			if c.teardown() && callbacks.OnError != nil {
				callbacks.OnError(fmt.Sprintf("voice channel closed unexpectedly: %v", err))
			}
			return
		}

		if !c.isActive() {
			return
		}

		switch event.Type {
		case "status":
			switch event.Status {
			case "connecting":
				c.logger.Debug().Msg("Voice channel connecting")

			case "ready":
				c.markReady()
				if callbacks.OnReady != nil {
					callbacks.OnReady()
				}

			case "error":
				message := event.Message
				if message == "" {
					message = "voice channel reported an error"
				}
				if c.teardown() && callbacks.OnError != nil {
					callbacks.OnError(message)
				}
				return

			default:
				c.logger.Debug().Str("status", event.Status).Msg("Unknown voice status")
			}

		case "transcription":
			if !event.Final || event.Text == "" {
				// Interim transcriptions are transient UI state and never
				// enter the transcript.
				continue
			}
			switch event.Role {
			case "user":
				if callbacks.OnUserUtterance != nil {
					callbacks.OnUserUtterance(event.Text)
				}
			case "assistant":
				if callbacks.OnAssistantUtterance != nil {
					callbacks.OnAssistantUtterance(event.Text)
				}
			default:
				c.logger.Warn().Str("role", event.Role).Msg("Transcription with unknown role")
			}

		case "audio", "pong":
			// Media frames and keepalives are not this client's concern

		default:
			c.logger.Debug().Str("type", event.Type).Msg("Unknown voice event")
		}
	}
}

// Stop tears down the voice channel. Safe to call when not started.
func (c *LiveClient) Stop() error {
	if !c.teardown() {
		return nil // Already stopped
	}

	c.logger.Info().Msg("Voice channel stopped")
	return nil
}

// teardown closes the connection if it is still active. It returns true if
// this call performed the teardown, false if the channel was already down,
// so exactly one exit path reports the closure.
func (c *LiveClient) teardown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return false
	}

	c.active = false
	c.ready = false

	if c.readyTimer != nil {
		c.readyTimer.Stop()
		c.readyTimer = nil
	}

	if c.conn != nil {
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = c.conn.Close()
		c.conn = nil
	}

	return true
}

func (c *LiveClient) markReady() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ready = true
	if c.readyTimer != nil {
		c.readyTimer.Stop()
		c.readyTimer = nil
	}
}

func (c *LiveClient) isActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}
