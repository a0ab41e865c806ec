package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sharpsoft/almosthuman/pkg/Logger"
)

// TaskSlot names a cancellable unit of work tracked per session.
type TaskSlot string

const (
	SlotProcessing TaskSlot = "processing"
	SlotTTS        TaskSlot = "tts"
)

// EventAudioSegments counts structurally valid audio segments accepted by the
// Listener, recognized or not.
const EventAudioSegments = "audio_segments_received"

// TaskHandle pairs a cancellation request with the channel that acknowledges
// the task has unwound.
type TaskHandle struct {
	cancel context.CancelFunc
	done   <-chan struct{}
}

func NewTaskHandle(cancel context.CancelFunc, done <-chan struct{}) *TaskHandle {
	return &TaskHandle{cancel: cancel, done: done}
}

// Finished reports whether the task has already unwound.
func (h *TaskHandle) Finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

type sessionEntry struct {
	session *Session
	tasks   map[TaskSlot]*TaskHandle
}

// Stats is the read-only snapshot served by the stats endpoint.
type Stats struct {
	AudioSegmentsReceived int64     `json:"audio_segments_received"`
	LastReset             time.Time `json:"last_reset"`
	UptimeSeconds         float64   `json:"uptime_seconds"`
	ActiveConnections     int       `json:"active_connections"`
}

// ConnectionRegistry is the process-wide table of live sessions plus the
// aggregate counters. One instance for the process lifetime.
type ConnectionRegistry struct {
	logger       *Logger.Logger
	drainTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	countersMu sync.Mutex
	counters   map[string]int64
	since      time.Time
}

func NewConnectionRegistry(logger *Logger.Logger, drainTimeout time.Duration) *ConnectionRegistry {
	if drainTimeout <= 0 {
		drainTimeout = 5 * time.Second
	}
	return &ConnectionRegistry{
		logger:       logger,
		drainTimeout: drainTimeout,
		sessions:     make(map[string]*sessionEntry),
		counters:     make(map[string]int64),
		since:        time.Now(),
	}
}

// Register stores a session under its client id, replacing any prior entry
// with the same id without tearing the old one down; the old supervisor owns
// its own teardown.
func (r *ConnectionRegistry) Register(session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prior, exists := r.sessions[session.ClientID]; exists {
		r.logger.Warnf("client %s re-registered, replacing session instance %s",
			session.ClientID, prior.session.InstanceID)
	}

	session.setState(StateIdle)
	r.sessions[session.ClientID] = &sessionEntry{
		session: session,
		tasks:   map[TaskSlot]*TaskHandle{SlotProcessing: nil, SlotTTS: nil},
	}
	r.logger.Infof("client %s connected (instance %s)", session.ClientID, session.InstanceID)
}

// Unregister removes the entry for clientID if it still belongs to the given
// instance. Safe on unknown ids. Returns whether an entry was removed, so the
// caller knows it owns the post-removal cleanup (history release etc).
func (r *ConnectionRegistry) Unregister(clientID string, instance uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.sessions[clientID]
	if !exists || entry.session.InstanceID != instance {
		return false
	}
	delete(r.sessions, clientID)
	r.logger.Infof("client %s disconnected", clientID)
	return true
}

// SetTask records the running task for a slot; nil clears it. No-op if the
// session is gone.
func (r *ConnectionRegistry) SetTask(clientID string, slot TaskSlot, handle *TaskHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, exists := r.sessions[clientID]; exists {
		entry.tasks[slot] = handle
	}
}

// CancelTasks cancels each non-finished task slot in turn, waiting for the
// task to acknowledge before moving on, then resets both slots. Cancellation
// of a finished task is a no-op, and calling this twice is harmless.
func (r *ConnectionRegistry) CancelTasks(clientID string) {
	r.mu.Lock()
	entry, exists := r.sessions[clientID]
	if !exists {
		r.mu.Unlock()
		return
	}
	handles := map[TaskSlot]*TaskHandle{
		SlotProcessing: entry.tasks[SlotProcessing],
		SlotTTS:        entry.tasks[SlotTTS],
	}
	entry.tasks[SlotProcessing] = nil
	entry.tasks[SlotTTS] = nil
	r.mu.Unlock()

	for _, slot := range []TaskSlot{SlotProcessing, SlotTTS} {
		handle := handles[slot]
		if handle == nil || handle.Finished() {
			continue
		}
		r.logger.Infof("cancelling %s task for client %s", slot, clientID)
		handle.cancel()
		select {
		case <-handle.done:
		case <-time.After(r.drainTimeout):
			// Detach rather than stall teardown behind an unresponsive task.
			r.logger.Errorf("%s task for client %s did not acknowledge cancellation within %s, detaching",
				slot, clientID, r.drainTimeout)
		}
	}
}

// RecordEvent bumps a named counter. Safe under concurrent calls from many
// sessions.
func (r *ConnectionRegistry) RecordEvent(kind string) {
	r.countersMu.Lock()
	r.counters[kind]++
	r.countersMu.Unlock()
}

// SessionCount returns the number of live sessions.
func (r *ConnectionRegistry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Stats returns a snapshot of the counters. No side effects.
func (r *ConnectionRegistry) Stats() Stats {
	r.countersMu.Lock()
	segments := r.counters[EventAudioSegments]
	since := r.since
	r.countersMu.Unlock()

	return Stats{
		AudioSegmentsReceived: segments,
		LastReset:             since,
		UptimeSeconds:         time.Since(since).Seconds(),
		ActiveConnections:     r.SessionCount(),
	}
}

// CloseAll closes every live connection handle. Used at process shutdown; the
// per-session supervisors observe the closed connections and finish their own
// teardown.
func (r *ConnectionRegistry) CloseAll() {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, entry := range r.sessions {
		sessions = append(sessions, entry.session)
	}
	r.mu.RUnlock()

	for _, session := range sessions {
		if err := session.Close(); err != nil {
			r.logger.Errorf("error closing connection for client %s: %v", session.ClientID, err)
		}
	}
}
