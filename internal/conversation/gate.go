package conversation

import "sync/atomic"

// dispatchGate is the exclusive in-flight flag preventing overlapping text
// dispatches. Acquisition is a single compare-and-set, so two callers racing
// (a typed send and a voice-triggered send) can never both observe "free"
// and both proceed. The loser is dropped, never queued.
type dispatchGate struct {
	inFlight atomic.Bool
}

// tryAcquire claims the gate. Returns false if a dispatch is already in
// flight, in which case the caller must drop its attempt.
func (g *dispatchGate) tryAcquire() bool {
	return g.inFlight.CompareAndSwap(false, true)
}

// release frees the gate. Must run on every exit path of a dispatch.
func (g *dispatchGate) release() {
	g.inFlight.Store(false)
}

// active reports whether a dispatch is currently in flight
func (g *dispatchGate) active() bool {
	return g.inFlight.Load()
}
