package conversation

import "sync"

// Transcript is the ordered, append-only sequence of turns for one
// conversation. It is the single source of truth for what the presentation
// layer renders: turns appear strictly in acceptance order, and only turns
// whose content is fully known are accepted (interim voice transcriptions
// never reach the transcript).
type Transcript struct {
	mu       sync.Mutex
	turns    []Turn
	onAppend func(Turn)
}

// NewTranscript creates a transcript seeded with the canned greeting turn.
// onAppend, if non-nil, fires for every accepted turn, in acceptance order;
// it runs with the transcript lock held and must not call back into the
// transcript.
func NewTranscript(onAppend func(Turn)) *Transcript {
	t := &Transcript{onAppend: onAppend}
	t.turns = append(t.turns, Turn{Role: RoleAssistant, Content: Greeting})
	return t
}

// Append adds a turn at the end of the sequence. If the immediately
// preceding turn has the identical role and content the call is a no-op:
// the voice channel may re-emit an already-delivered final transcription.
// The comparison is deliberately bounded to the prior turn only; it is not
// a general uniqueness constraint. Returns true if the turn was accepted.
func (t *Transcript) Append(role Role, content string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if last := t.last(); last != nil && last.Role == role && last.Content == content {
		return false
	}

	turn := Turn{Role: role, Content: content}
	t.turns = append(t.turns, turn)
	if t.onAppend != nil {
		t.onAppend(turn)
	}
	return true
}

// AppendWithSources always appends a new assistant turn carrying citations.
// No dedup applies: text-dispatch replies are never duplicated at the source.
func (t *Transcript) AppendWithSources(content string, sources []Citation) {
	t.mu.Lock()
	defer t.mu.Unlock()

	turn := Turn{Role: RoleAssistant, Content: content}
	if len(sources) > 0 {
		turn.Sources = make([]Citation, len(sources))
		copy(turn.Sources, sources)
	}

	t.turns = append(t.turns, turn)
	if t.onAppend != nil {
		t.onAppend(turn)
	}
}

// Turns returns a snapshot of the transcript in acceptance order
func (t *Transcript) Turns() []Turn {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := make([]Turn, len(t.turns))
	copy(snapshot, t.turns)
	return snapshot
}

// Len returns the number of accepted turns
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.turns)
}

func (t *Transcript) last() *Turn {
	if len(t.turns) == 0 {
		return nil
	}
	return &t.turns[len(t.turns)-1]
}
