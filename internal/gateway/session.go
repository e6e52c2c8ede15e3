package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lunatix/conversation-gateway/internal/assistant"
	"github.com/lunatix/conversation-gateway/internal/config"
	"github.com/lunatix/conversation-gateway/internal/conversation"
	"github.com/lunatix/conversation-gateway/internal/observability"
	"github.com/lunatix/conversation-gateway/internal/voice"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// In production, validate origin against the portal's domains
		// For now, allow all origins (development only)
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// ClientMessage is a message from the browser client
type ClientMessage struct {
	Type string `json:"type"` // "text", "voice_start", "voice_stop", "ping"
	Text string `json:"text,omitempty"`
}

// ServerMessage is a message pushed to the browser client
type ServerMessage struct {
	Type    string             `json:"type"` // "turn", "voice_status", "dispatching", "pong"
	Turn    *conversation.Turn `json:"turn,omitempty"`
	Status  string             `json:"status,omitempty"`
	Message string             `json:"message,omitempty"`
	Active  *bool              `json:"active,omitempty"`
}

// ConversationSession holds the state of a single browser connection. Each
// connection owns one conversation: the transcript, the dispatch gate and
// the voice channel all live and die with it.
type ConversationSession struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	orchestrator *conversation.Orchestrator

	mu       sync.RWMutex
	isActive bool

	config *config.Config
	logger zerolog.Logger

	done chan struct{}
}

// NewConversationSession wires a fresh conversation to a WebSocket
// connection and pushes the seeded transcript to the client.
func NewConversationSession(ctx context.Context, conn *websocket.Conn, cfg *config.Config, completer assistant.Completer, transport voice.Transport) *ConversationSession {
	s := &ConversationSession{
		conn:     conn,
		config:   cfg,
		isActive: true,
		done:     make(chan struct{}),
	}

	s.orchestrator = conversation.NewOrchestrator(ctx, completer, transport, conversation.Events{
		OnTurn: func(turn conversation.Turn) {
			s.sendTurn(turn)
		},
		OnVoiceStatus: func(status conversation.VoiceStatus, message string) {
			s.send(ServerMessage{Type: "voice_status", Status: string(status), Message: message})
		},
		OnDispatching: func(active bool) {
			s.send(ServerMessage{Type: "dispatching", Active: &active})
		},
	})

	s.logger = observability.WithCorrelationID(s.orchestrator.SessionID())

	// The greeting is seeded before event wiring, so replay the snapshot
	for _, turn := range s.orchestrator.Turns() {
		s.sendTurn(turn)
	}

	return s
}

// HandleConversationWS is the entry point for browser WebSocket connections.
// newTransport builds a voice channel per conversation; the completer is
// shared across sessions.
func HandleConversationWS(cfg *config.Config, completer assistant.Completer, newTransport func() voice.Transport) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger := observability.GetLogger()
			logger.Error().Err(err).Msg("Failed to upgrade connection to WebSocket")
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		session := NewConversationSession(ctx, conn, cfg, completer, newTransport())
		session.logger.Info().Msg("Conversation session established")

		go session.readLoop(ctx)

		<-session.done
		session.logger.Info().Msg("Conversation session ended")
	}
}

// readLoop handles all incoming client messages for the session
func (s *ConversationSession) readLoop(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.isActive = false
		s.mu.Unlock()
		s.orchestrator.Close()
		close(s.done)
	}()

	for {
		s.mu.RLock()
		active := s.isActive
		s.mu.RUnlock()
		if !active {
			return
		}

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			s.logger.Error().Err(err).Msg("Failed to parse client message")
			continue
		}

		switch clientMsg.Type {
		case "text":
			s.orchestrator.SendText(clientMsg.Text)

		case "voice_start":
			s.orchestrator.StartVoice(ctx)

		case "voice_stop":
			s.orchestrator.StopVoice()

		case "ping":
			s.send(ServerMessage{Type: "pong"})

		default:
			s.logger.Warn().Str("type", clientMsg.Type).Msg("Unknown client message type")
		}
	}
}

func (s *ConversationSession) sendTurn(turn conversation.Turn) {
	s.send(ServerMessage{Type: "turn", Turn: &turn})
}

// send writes a message to the client. Turn events, voice status changes
// and dispatch notifications arrive from different goroutines, so writes
// are serialized.
func (s *ConversationSession) send(msg ServerMessage) {
	s.mu.RLock()
	active := s.isActive
	s.mu.RUnlock()
	if !active {
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write to client")
	}
}
