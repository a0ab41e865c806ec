package assistant

import "context"

type MsgRole string

const (
	USER      MsgRole = "user"
	ASSISTANT MsgRole = "assistant"
	SYSTEM    MsgRole = "system"
)

type Message struct {
	Role    MsgRole
	Content string
}

// Provider is a raw conversational-model client. It may fail; the Responder
// wrapping it may not.
type Provider interface {
	Complete(ctx context.Context, msgs []Message) (string, error)
}

// Responder is the contract the session pipeline consumes: it always returns
// text (a canned fallback on provider failure) and never propagates an error
// across the boundary.
type Responder interface {
	Respond(ctx context.Context, sessionID, utterance string) string
	// Forget drops the conversation history held for a session.
	Forget(sessionID string)
}
