package assistant

import (
	"context"
	"strings"
	"sync"

	"github.com/sharpsoft/almosthuman/pkg/Logger"
)

// FallbackReply is spoken when the provider fails or returns nothing, so the
// conversation degrades instead of terminating.
const FallbackReply = "I'm having trouble thinking right now."

// Receptionist holds one conversation history per session, keyed by session
// id. Histories never cross sessions; Forget releases them at teardown.
type Receptionist struct {
	provider  Provider
	sysPrompt string
	logger    *Logger.Logger

	mu        sync.Mutex
	histories map[string][]Message
}

func NewReceptionist(provider Provider, sysPrompt string, logger *Logger.Logger) *Receptionist {
	return &Receptionist{
		provider:  provider,
		sysPrompt: sysPrompt,
		logger:    logger,
		histories: make(map[string][]Message),
	}
}

func (r *Receptionist) Respond(ctx context.Context, sessionID, utterance string) string {
	if utterance == "" {
		return ""
	}

	msgs := r.appendTurn(sessionID, Message{Role: USER, Content: utterance})

	reply, err := r.provider.Complete(ctx, msgs)
	reply = strings.TrimSpace(reply)
	if err != nil {
		r.logger.Errorf("provider inference error for session %s: %v", sessionID, err)
		reply = FallbackReply
	} else if reply == "" {
		r.logger.Warnf("provider returned an empty reply for session %s", sessionID)
		reply = FallbackReply
	}

	// The fallback counts as a turn too, same as a real reply.
	r.appendTurn(sessionID, Message{Role: ASSISTANT, Content: reply})
	r.logger.Debugf("reply length for session %s: %d characters", sessionID, len(reply))
	return reply
}

func (r *Receptionist) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.histories, sessionID)
}

// appendTurn records a turn and returns a snapshot of the history including it.
func (r *Receptionist) appendTurn(sessionID string, msg Message) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	history, ok := r.histories[sessionID]
	if !ok {
		history = []Message{{Role: SYSTEM, Content: r.sysPrompt}}
	}
	history = append(history, msg)
	r.histories[sessionID] = history

	snapshot := make([]Message, len(history))
	copy(snapshot, history)
	return snapshot
}
