package conversation

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lunatix/conversation-gateway/internal/assistant"
	"github.com/lunatix/conversation-gateway/internal/observability"
	"github.com/lunatix/conversation-gateway/internal/voice"
)

// Events carries the orchestrator's outbound notifications. Callbacks may
// fire from dispatch goroutines or transport read loops and must not call
// back into the orchestrator.
type Events struct {
	OnTurn        func(turn Turn)
	OnVoiceStatus func(status VoiceStatus, message string)
	OnDispatching func(active bool)
}

// Orchestrator merges typed input and the streamed voice channel into a
// single ordered transcript, with at most one assistant dispatch in flight
// per conversation.
type Orchestrator struct {
	sessionID  string
	baseCtx    context.Context
	transcript *Transcript
	gate       dispatchGate
	completer  assistant.Completer
	voice      *voiceController
	metrics    *observability.Metrics
	logger     zerolog.Logger
	events     Events
}

// NewOrchestrator builds a conversation with a fresh session ID and a
// transcript seeded with the greeting turn. ctx scopes assistant calls for
// the life of the conversation; stopping voice does not cancel a dispatch
// already in flight.
func NewOrchestrator(ctx context.Context, completer assistant.Completer, transport voice.Transport, events Events) *Orchestrator {
	sessionID := observability.NewCorrelationID()
	logger := observability.WithCorrelationID(sessionID)

	o := &Orchestrator{
		sessionID: sessionID,
		baseCtx:   ctx,
		completer: completer,
		metrics:   observability.NewConversationMetrics(sessionID),
		logger:    logger,
		events:    events,
	}

	o.transcript = NewTranscript(func(turn Turn) {
		o.metrics.RecordTurn(string(turn.Role))
		if o.events.OnTurn != nil {
			o.events.OnTurn(turn)
		}
	})

	o.voice = newVoiceController(transport, logger, func(status VoiceStatus, message string) {
		switch status {
		case VoiceConnecting:
			o.metrics.RecordVoiceStart()
		case VoiceIdle:
			o.metrics.RecordVoiceEnd("completed")
		case VoiceError:
			o.metrics.RecordVoiceEnd("error")
			o.metrics.RecordError("voice_channel", "voice")
		}
		if o.events.OnVoiceStatus != nil {
			o.events.OnVoiceStatus(status, message)
		}
	})

	o.metrics.RecordConversationStart()
	return o
}

// SessionID returns the correlation ID for this conversation
func (o *Orchestrator) SessionID() string {
	return o.sessionID
}

// SendText submits user input for an assistant reply. Input is trimmed of
// surrounding whitespace; blank input is ignored. If a dispatch is already
// in flight the input is dropped, not queued. An accepted dispatch appends
// the user turn immediately and returns; the assistant turn lands when the
// call completes.
func (o *Orchestrator) SendText(input string) {
	text := strings.TrimSpace(input)
	if text == "" {
		o.metrics.RecordDroppedSend("blank")
		return
	}

	if !o.gate.tryAcquire() {
		o.metrics.RecordDroppedSend("busy")
		o.logger.Debug().Msg("Dispatch already in flight, dropping input")
		return
	}

	o.metrics.RecordDispatchStart()
	o.notifyDispatching(true)
	o.transcript.Append(RoleUser, text)

	go o.completeDispatch(text)
}

// completeDispatch runs the assistant call for an acquired dispatch slot.
// The slot is released only after the outcome turn has been appended, so
// the transcript never interleaves turns from two dispatches.
func (o *Orchestrator) completeDispatch(text string) {
	defer func() {
		o.gate.release()
		o.notifyDispatching(false)
	}()

	reply, err := o.completer.Complete(o.baseCtx, o.sessionID, text)
	if err != nil {
		o.logger.Error().Err(err).Msg("Assistant dispatch failed")
		o.metrics.RecordDispatchEnd(false)
		o.metrics.RecordError("dispatch_failure", "assistant")
		o.transcript.AppendWithSources(DispatchFailureMessage, nil)
		return
	}

	o.metrics.RecordDispatchEnd(true)
	o.transcript.AppendWithSources(reply.Response, convertSources(reply.Sources))
}

// notifyDispatching surfaces the in-flight flag to the presentation layer
func (o *Orchestrator) notifyDispatching(active bool) {
	if o.events.OnDispatching != nil {
		o.events.OnDispatching(active)
	}
}

// StartVoice opens the streamed voice channel. A no-op unless the channel
// is idle or in error. Finalized user utterances re-enter the dispatch
// path exactly like typed input; finalized assistant utterances append
// directly with duplicate suppression.
func (o *Orchestrator) StartVoice(ctx context.Context) {
	o.voice.start(ctx, o.sessionID, utteranceRouting{
		onUserUtterance: func(text string) {
			o.SendText(text)
		},
		onAssistantUtterance: func(text string) {
			if !o.transcript.Append(RoleAssistant, strings.TrimSpace(text)) {
				o.logger.Debug().Msg("Duplicate voice assistant utterance suppressed")
			}
		},
	})
}

// StopVoice closes the voice channel. A no-op unless the channel is
// connecting or ready.
func (o *Orchestrator) StopVoice() {
	o.voice.stop()
}

// VoiceStatus returns the voice channel state and the last error message
func (o *Orchestrator) VoiceStatus() (VoiceStatus, string) {
	return o.voice.snapshot()
}

// Dispatching reports whether an assistant call is in flight
func (o *Orchestrator) Dispatching() bool {
	return o.gate.active()
}

// Turns returns a snapshot of the transcript in append order
func (o *Orchestrator) Turns() []Turn {
	return o.transcript.Turns()
}

// Close tears down the voice channel and finalizes conversation metrics
func (o *Orchestrator) Close() {
	o.voice.stop()
	o.metrics.RecordConversationEnd()
}

func convertSources(sources []assistant.Source) []Citation {
	if len(sources) == 0 {
		return nil
	}
	citations := make([]Citation, 0, len(sources))
	for _, s := range sources {
		citations = append(citations, Citation{Label: s.Label, URL: s.URL})
	}
	return citations
}
