package voice

import "context"

// Callbacks delivers live voice channel events to the owner of the session.
// Utterance callbacks fire only for finalized transcriptions, never interim
// ones, and carry the speaker's text verbatim.
type Callbacks struct {
	// OnReady fires once the remote confirms an active channel
	OnReady func()

	// OnUserUtterance fires for each finalized user transcription
	OnUserUtterance func(text string)

	// OnAssistantUtterance fires for each finalized assistant transcription
	OnAssistantUtterance func(text string)

	// OnError fires on any asynchronous channel failure
	OnError func(message string)
}

// Transport is the interface for live voice channel clients
type Transport interface {
	// Start opens the voice channel for the given session. It returns an
	// error if the connection cannot be established; once it returns nil,
	// channel events are delivered through the callbacks until Stop is
	// called or the channel fails.
	Start(ctx context.Context, sessionID string, callbacks Callbacks) error

	// Stop tears down the voice channel. Safe to call when not started.
	Stop() error
}
