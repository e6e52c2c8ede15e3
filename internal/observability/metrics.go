package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Conversation metrics
	activeConversations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "conversation_gateway_active_conversations",
		Help: "Number of active conversation sessions",
	})

	totalConversations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conversation_gateway_conversations_total",
		Help: "Total number of conversation sessions handled",
	})

	conversationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "conversation_gateway_conversation_duration_seconds",
		Help:    "Duration of conversation sessions in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	})

	// Dispatch metrics
	dispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conversation_gateway_dispatches_total",
		Help: "Total number of text dispatches",
	}, []string{"status"}) // status: "success" or "failure"

	droppedSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conversation_gateway_dropped_sends_total",
		Help: "Total number of send attempts dropped before dispatch",
	}, []string{"reason"}) // reason: "blank" or "busy"

	assistantLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "conversation_gateway_assistant_latency_seconds",
		Help:    "Assistant API round-trip latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// Transcript metrics
	transcriptTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conversation_gateway_transcript_turns_total",
		Help: "Total number of turns accepted into transcripts",
	}, []string{"role"}) // role: "user" or "assistant"

	// Voice session metrics
	voiceSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conversation_gateway_voice_sessions_total",
		Help: "Total number of voice sessions by outcome",
	}, []string{"outcome"}) // outcome: "completed" or "error"

	voiceStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "conversation_gateway_voice_sessions_active",
		Help: "Number of voice channels currently connecting or ready",
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conversation_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "conversation_gateway_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conversation_gateway_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// Metrics tracks metrics for a single conversation session
type Metrics struct {
	sessionID         string
	startTime         time.Time
	dispatchStartTime time.Time
	mu                sync.Mutex
}

// NewConversationMetrics creates a new metrics tracker for a conversation
func NewConversationMetrics(sessionID string) *Metrics {
	return &Metrics{
		sessionID: sessionID,
		startTime: time.Now(),
	}
}

// RecordConversationStart records the start of a conversation session
func (m *Metrics) RecordConversationStart() {
	activeConversations.Inc()
	totalConversations.Inc()
}

// RecordConversationEnd records the end of a conversation session
func (m *Metrics) RecordConversationEnd() {
	activeConversations.Dec()
	conversationDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordDispatchStart records the start of a text dispatch
func (m *Metrics) RecordDispatchStart() {
	m.mu.Lock()
	m.dispatchStartTime = time.Now()
	m.mu.Unlock()
}

// RecordDispatchEnd records the end of a text dispatch
func (m *Metrics) RecordDispatchEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dispatchStartTime.IsZero() {
		assistantLatency.Observe(time.Since(m.dispatchStartTime).Seconds())
	}

	status := "success"
	if !success {
		status = "failure"
	}
	dispatches.WithLabelValues(status).Inc()
}

// RecordDroppedSend records a send attempt rejected before dispatch
func (m *Metrics) RecordDroppedSend(reason string) {
	droppedSends.WithLabelValues(reason).Inc()
}

// RecordTurn records a turn accepted into the transcript
func (m *Metrics) RecordTurn(role string) {
	transcriptTurns.WithLabelValues(role).Inc()
}

// RecordVoiceStart records a voice channel being opened
func (m *Metrics) RecordVoiceStart() {
	voiceStatus.Inc()
}

// RecordVoiceEnd records a voice channel closing
func (m *Metrics) RecordVoiceEnd(outcome string) {
	voiceStatus.Dec()
	voiceSessions.WithLabelValues(outcome).Inc()
}

// RecordError records an error
func (m *Metrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
