package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// State is purely observational; no component blocks on it and only Brain
// writes the non-idle values.
type State string

const (
	StateIdle               State = "IDLE"
	StateThinking           State = "THINKING"
	StateSpeaking           State = "SPEAKING"
	StateWaitingForPlayback State = "WAITING_FOR_PLAYBACK"
)

// transport is the slice of *websocket.Conn the session needs. Kept narrow so
// pipeline tests can run against an in-memory fake.
type transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Session is the full state for one connected client: the connection handle
// (exclusively owned, closed exactly once at teardown), the utterance queue
// between Listener and Brain, and the diagnostic state.
type Session struct {
	ClientID string
	// InstanceID tells a registration apart from a same-id reconnect that
	// replaced it.
	InstanceID  uuid.UUID
	ConnectedAt time.Time

	conn  transport
	queue chan string

	writeMu   sync.Mutex
	stateMu   sync.RWMutex
	state     State
	closeOnce sync.Once
}

func NewSession(clientID string, conn transport, queueBound int) *Session {
	if queueBound <= 0 {
		queueBound = 32
	}
	return &Session{
		ClientID:    clientID,
		InstanceID:  uuid.New(),
		ConnectedAt: time.Now(),
		conn:        conn,
		queue:       make(chan string, queueBound),
		state:       StateIdle,
	}
}

// SendFrame marshals and writes one frame. All writers (Brain replies,
// keepalive pings, Listener error frames) funnel through here so frames never
// interleave on the wire.
func (s *Session) SendFrame(frame any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Session) SendError(msg string) error {
	return s.SendFrame(ErrorFrame{Error: msg})
}

func (s *Session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()
}

// Close closes the connection handle exactly once. Later calls are no-ops
// returning nil.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
	})
	return err
}
