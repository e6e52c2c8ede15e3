package assistant

import "context"

// Source is a citation attached to an assistant reply
type Source struct {
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

// Reply represents a completed response from the assistant API
type Reply struct {
	Response string   `json:"response"`
	Sources  []Source `json:"sources"`
}

// Completer is the interface for text completion clients
type Completer interface {
	// Complete sends one user message and returns the assistant's reply.
	// Any transport or processing failure is returned as a generic error;
	// callers do not distinguish failure subtypes.
	Complete(ctx context.Context, sessionID, message string) (*Reply, error)
}
