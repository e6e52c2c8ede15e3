package conversation

// Role identifies the speaker of a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Citation is a reference attached to an assistant turn. A citation without
// a URL renders as inert text rather than a link.
type Citation struct {
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

// Turn is one recorded utterance in the transcript. Turns are immutable
// once accepted; Sources is set only on assistant turns produced by a text
// dispatch, never on voice-origin assistant turns.
type Turn struct {
	Role    Role       `json:"role"`
	Content string     `json:"content"`
	Sources []Citation `json:"sources,omitempty"`
}

// Greeting is the canned assistant turn every transcript is seeded with
const Greeting = "Hello! I'm your insurance assistant. Ask me about your policy, coverage, or how to file a claim."

// DispatchFailureMessage is the fixed assistant turn appended when a text
// dispatch fails for any reason
const DispatchFailureMessage = "I apologize, but I encountered an error processing your question. Please try rephrasing or contact support."
