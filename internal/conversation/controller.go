package conversation

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lunatix/conversation-gateway/internal/voice"
)

// VoiceStatus is the lifecycle state of the voice channel
type VoiceStatus string

const (
	VoiceIdle       VoiceStatus = "idle"
	VoiceConnecting VoiceStatus = "connecting"
	VoiceReady      VoiceStatus = "ready"
	VoiceError      VoiceStatus = "error"
)

// validVoiceTransitions enumerates the legal status edges. Anything else is
// ignored. connecting→idle covers an explicit Stop before the channel was
// confirmed; error is terminal until an explicit restart.
var validVoiceTransitions = map[VoiceStatus][]VoiceStatus{
	VoiceIdle:       {VoiceConnecting},
	VoiceConnecting: {VoiceReady, VoiceError, VoiceIdle},
	VoiceReady:      {VoiceIdle, VoiceError},
	VoiceError:      {VoiceConnecting},
}

// utteranceRouting maps the two finalized-utterance streams to their
// distinct actions. The asymmetry is deliberate: user utterances re-enter
// the dispatch path like typed input, while assistant utterances were
// already answered by the voice channel and go straight to the transcript.
type utteranceRouting struct {
	onUserUtterance      func(text string)
	onAssistantUtterance func(text string)
}

// voiceController owns the lifecycle of the streamed voice channel. Exactly
// one status value holds at any time; transitions happen only through
// explicit start/stop calls or asynchronous failure signals from the
// transport.
type voiceController struct {
	transport voice.Transport
	logger    zerolog.Logger

	// onStatus fires after every accepted transition, outside the state lock
	onStatus func(status VoiceStatus, message string)

	mu        sync.Mutex
	status    VoiceStatus
	lastError string
}

func newVoiceController(transport voice.Transport, logger zerolog.Logger, onStatus func(VoiceStatus, string)) *voiceController {
	return &voiceController{
		transport: transport,
		logger:    logger,
		onStatus:  onStatus,
		status:    VoiceIdle,
	}
}

// start opens the voice channel. Valid only from idle or error; calling it
// while connecting or ready is a no-op. Routing callbacks fire only while
// the channel is ready.
func (c *voiceController) start(ctx context.Context, sessionID string, routing utteranceRouting) {
	if !c.transition(VoiceConnecting, "") {
		c.logger.Debug().Str("status", string(c.current())).Msg("Voice start ignored")
		return
	}

	err := c.transport.Start(ctx, sessionID, voice.Callbacks{
		OnReady: func() {
			c.transition(VoiceReady, "")
		},
		OnUserUtterance: func(text string) {
			if c.current() != VoiceReady {
				return
			}
			routing.onUserUtterance(text)
		},
		OnAssistantUtterance: func(text string) {
			if c.current() != VoiceReady {
				return
			}
			routing.onAssistantUtterance(text)
		},
		OnError: func(message string) {
			// Asynchronous channel failure; no automatic reconnection
			if c.transition(VoiceError, message) {
				c.logger.Warn().Str("reason", message).Msg("Voice channel failed")
			}
		},
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to open voice channel")
		c.transition(VoiceError, err.Error())
	}
}

// stop tears down the voice channel. Valid from connecting or ready; a
// no-op from idle or error. An in-flight text dispatch triggered by voice
// is unaffected.
func (c *voiceController) stop() {
	if !c.transition(VoiceIdle, "") {
		return
	}

	if err := c.transport.Stop(); err != nil {
		c.logger.Error().Err(err).Msg("Failed to stop voice channel")
	}
}

// snapshot returns the current status and the last error message
func (c *voiceController) snapshot() (VoiceStatus, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.lastError
}

func (c *voiceController) current() VoiceStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// transition moves to the target status if the edge is legal. Returns false
// when the edge is not allowed, which callers treat as a no-op.
func (c *voiceController) transition(to VoiceStatus, message string) bool {
	c.mu.Lock()

	allowed := false
	for _, next := range validVoiceTransitions[c.status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		c.mu.Unlock()
		return false
	}

	c.status = to
	switch to {
	case VoiceError:
		c.lastError = message
	case VoiceConnecting:
		c.lastError = ""
	}
	c.mu.Unlock()

	if c.onStatus != nil {
		c.onStatus(to, message)
	}
	return true
}
