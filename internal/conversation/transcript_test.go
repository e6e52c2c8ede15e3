package conversation

import (
	"testing"
)

func TestNewTranscript_SeedsGreeting(t *testing.T) {
	tr := NewTranscript(nil)

	turns := tr.Turns()
	if len(turns) != 1 {
		t.Fatalf("Expected 1 seeded turn, got %d", len(turns))
	}
	if turns[0].Role != RoleAssistant {
		t.Errorf("Expected greeting role %q, got %q", RoleAssistant, turns[0].Role)
	}
	if turns[0].Content != Greeting {
		t.Errorf("Expected greeting content, got %q", turns[0].Content)
	}
}

func TestAppend_Ordering(t *testing.T) {
	tr := NewTranscript(nil)

	tr.Append(RoleUser, "what does my policy cover?")
	tr.Append(RoleAssistant, "Your policy covers collision damage.")
	tr.Append(RoleUser, "and flooding?")

	turns := tr.Turns()
	if len(turns) != 4 {
		t.Fatalf("Expected 4 turns, got %d", len(turns))
	}
	if turns[1].Content != "what does my policy cover?" {
		t.Errorf("Unexpected turn order: %q", turns[1].Content)
	}
	if turns[3].Content != "and flooding?" {
		t.Errorf("Unexpected turn order: %q", turns[3].Content)
	}
}

func TestAppend_DedupImmediatelyPriorTurn(t *testing.T) {
	tr := NewTranscript(nil)

	if !tr.Append(RoleUser, "hello") {
		t.Error("Expected first append to be accepted")
	}
	if tr.Append(RoleUser, "hello") {
		t.Error("Expected duplicate of prior turn to be suppressed")
	}
	if tr.Len() != 2 {
		t.Errorf("Expected 2 turns after dedup, got %d", tr.Len())
	}
}

func TestAppend_DedupRequiresMatchingRole(t *testing.T) {
	tr := NewTranscript(nil)

	tr.Append(RoleUser, "hello")
	if !tr.Append(RoleAssistant, "hello") {
		t.Error("Expected same content with different role to be accepted")
	}
}

func TestAppend_DedupBoundedToPriorTurn(t *testing.T) {
	tr := NewTranscript(nil)

	tr.Append(RoleUser, "hello")
	tr.Append(RoleAssistant, "Hi there.")
	if !tr.Append(RoleUser, "hello") {
		t.Error("Expected non-adjacent duplicate to be accepted")
	}
	if tr.Len() != 4 {
		t.Errorf("Expected 4 turns, got %d", tr.Len())
	}
}

func TestAppendWithSources_NeverDedups(t *testing.T) {
	tr := NewTranscript(nil)

	tr.AppendWithSources("Your deductible is $500.", nil)
	tr.AppendWithSources("Your deductible is $500.", nil)

	if tr.Len() != 3 {
		t.Errorf("Expected consecutive sourced turns to both append, got %d turns", tr.Len())
	}
}

func TestAppendWithSources_CopiesCitations(t *testing.T) {
	tr := NewTranscript(nil)

	sources := []Citation{{Label: "Policy §4", URL: "https://docs.example.com/policy#4"}}
	tr.AppendWithSources("Collision damage is covered.", sources)
	sources[0].Label = "mutated"

	turns := tr.Turns()
	turn := turns[len(turns)-1]
	if len(turn.Sources) != 1 {
		t.Fatalf("Expected 1 citation, got %d", len(turn.Sources))
	}
	if turn.Sources[0].Label != "Policy §4" {
		t.Errorf("Expected citation copy to be isolated from caller, got %q", turn.Sources[0].Label)
	}
}

func TestOnAppend_FiresInAcceptanceOrder(t *testing.T) {
	var seen []string
	tr := NewTranscript(func(turn Turn) {
		seen = append(seen, turn.Content)
	})

	tr.Append(RoleUser, "first")
	tr.Append(RoleUser, "first") // suppressed, must not notify
	tr.AppendWithSources("second", nil)

	if len(seen) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(seen))
	}
	if seen[0] != "first" || seen[1] != "second" {
		t.Errorf("Expected notifications in acceptance order, got %v", seen)
	}
}

func TestTurns_ReturnsSnapshot(t *testing.T) {
	tr := NewTranscript(nil)
	tr.Append(RoleUser, "hello")

	snapshot := tr.Turns()
	tr.Append(RoleAssistant, "Hi there.")

	if len(snapshot) != 2 {
		t.Errorf("Expected snapshot to be unaffected by later appends, got %d turns", len(snapshot))
	}
}

func TestDispatchGate_ExclusiveAcquire(t *testing.T) {
	var g dispatchGate

	if !g.tryAcquire() {
		t.Fatal("Expected first acquire to succeed")
	}
	if g.tryAcquire() {
		t.Error("Expected second acquire to fail while held")
	}
	if !g.active() {
		t.Error("Expected gate to report active while held")
	}

	g.release()
	if g.active() {
		t.Error("Expected gate to report inactive after release")
	}
	if !g.tryAcquire() {
		t.Error("Expected acquire to succeed after release")
	}
}
