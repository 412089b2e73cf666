package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"deckpilot-mcp-server/internal/config"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSSession is a WebSocket-backed conversational session. It implements
// Session plus the UserMessageSender and ActivitySignaler capabilities.
type WSSession struct {
	id   string
	conn *websocket.Conn

	writeMu  sync.Mutex
	handlers SessionHandlers

	closeOnce sync.Once
	closed    chan struct{}
}

var _ Session = (*WSSession)(nil)
var _ UserMessageSender = (*WSSession)(nil)
var _ ActivitySignaler = (*WSSession)(nil)

// Dial connects to the provider endpoint, sends session initiation, and
// starts the read loop.
func Dial(ctx context.Context, cfg config.VoiceConfig, sc SessionConfig) (*WSSession, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("voice: endpoint is required")
	}
	if sc.AgentID == "" {
		sc.AgentID = cfg.AgentID
	}
	if sc.AgentID == "" {
		return nil, fmt.Errorf("voice: agent id is required")
	}

	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("voice: parsing endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("agent_id", sc.AgentID)
	endpoint.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: cfg.DialTimeoutDuration()}
	conn, _, err := dialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("voice: dialing %s: %w", cfg.Endpoint, err)
	}

	s := &WSSession{
		id:       uuid.NewString(),
		conn:     conn,
		handlers: sc.Handlers,
		closed:   make(chan struct{}),
	}

	init := map[string]any{
		"type":         "session_initiation",
		"agent_id":     sc.AgentID,
		"client_tools": sc.ClientTools,
	}
	if err := s.writeJSON(init); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("voice: session initiation: %w", err)
	}

	go s.readLoop()
	return s, nil
}

// ID returns the locally assigned session identifier.
func (s *WSSession) ID() string { return s.id }

// SendUserMessage frames and delivers one user text message.
func (s *WSSession) SendUserMessage(text string) error {
	return s.writeJSON(map[string]any{"type": "user_message", "text": text})
}

// SendUserActivity signals that the user is active (typing). Advisory only.
func (s *WSSession) SendUserActivity() error {
	return s.writeJSON(map[string]any{"type": "user_activity"})
}

// EndSession closes the transport. Safe to call more than once.
func (s *WSSession) EndSession() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		deadline := time.Now().Add(time.Second)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

func (s *WSSession) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// readLoop delivers inbound frames to the handlers until the connection
// drops. Session lifecycle frames (initiation ack, mode changes) get their
// dedicated callbacks; everything else goes to OnMessage untouched.
func (s *WSSession) readLoop() {
	defer func() {
		if s.handlers.OnDisconnect != nil {
			s.handlers.OnDisconnect()
		}
	}()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closed:
				// Deliberate shutdown; not an error worth reporting.
			default:
				if s.handlers.OnError != nil {
					s.handlers.OnError(fmt.Errorf("voice: read: %w", err))
				}
			}
			return
		}

		var payload any
		if err := json.Unmarshal(raw, &payload); err != nil {
			// Non-JSON frames are passed through as text.
			payload = string(raw)
		}

		if m, ok := payload.(map[string]any); ok {
			switch m["type"] {
			case "conversation_initiation_metadata":
				if s.handlers.OnConnect != nil {
					id, _ := m["conversation_id"].(string)
					s.handlers.OnConnect(id)
				}
				continue
			case "mode_change":
				if s.handlers.OnModeChange != nil {
					mode, _ := m["mode"].(string)
					s.handlers.OnModeChange(mode)
				}
				continue
			case "ping":
				if err := s.writeJSON(map[string]any{"type": "pong"}); err != nil {
					log.Printf("voice: pong failed: %v", err)
				}
				continue
			}
		}

		if s.handlers.OnMessage != nil {
			s.handlers.OnMessage(payload)
		}
	}
}
