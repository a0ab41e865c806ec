package websocket

import (
	"context"

	"github.com/gorilla/websocket"
	"github.com/sharpsoft/almosthuman/pkg/Logger"
	"github.com/sharpsoft/almosthuman/pkg/stt"
)

// Listener reads inbound frames, transcribes audio segments and feeds
// recognized utterances to the Brain through the session queue. A malformed
// single message gets an error frame back and the loop continues; only a
// read failure or cancellation ends the unit.
type Listener struct {
	logger      *Logger.Logger
	registry    *ConnectionRegistry
	session     *Session
	transcriber stt.Transcriber
}

func NewListener(logger *Logger.Logger, registry *ConnectionRegistry, session *Session, transcriber stt.Transcriber) *Listener {
	return &Listener{
		logger:      logger,
		registry:    registry,
		session:     session,
		transcriber: transcriber,
	}
}

func (l *Listener) Run(ctx context.Context) error {
	frames := make(chan []byte)
	readErr := make(chan error, 1)

	// Reads block without a deadline, so they live in their own goroutine.
	// When the session is torn down the connection close unblocks the read
	// and the goroutine exits on the resulting error.
	go func() {
		for {
			_, data, err := l.session.conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.logger.Infof("connection closed during listener loop for client %s", l.session.ClientID)
				return nil
			}
			return err

		case data := <-frames:
			if err := l.handleFrame(ctx, data); err != nil {
				return err
			}
		}
	}
}

func (l *Listener) handleFrame(ctx context.Context, data []byte) error {
	frame := decodeInbound(data)

	switch {
	case frame.errMsg != "":
		l.logger.Errorf("bad frame from client %s: %s", l.session.ClientID, frame.errMsg)
		if err := l.session.SendError(frame.errMsg); err != nil {
			l.logger.Errorf("failed to send error frame to client %s: %v", l.session.ClientID, err)
		}
		return nil

	case frame.ignored:
		// Non-audio payloads are accepted and dropped; the contract is
		// audio-only.
		return nil
	}

	l.registry.RecordEvent(EventAudioSegments)
	l.logger.Infof("received audio segment from client %s: %d bytes", l.session.ClientID, len(frame.audio))

	transcript, err := l.transcriber.Transcribe(ctx, frame.audio)
	if err != nil {
		// Transcription failure is discarded the same as non-speech: a bad
		// audio frame must never produce a spurious reply.
		l.logger.Errorf("transcription error for client %s: %v", l.session.ClientID, err)
		return ctx.Err()
	}
	if transcript.Kind != stt.KindSpeech {
		l.logger.Debugf("discarding %s segment from client %s", transcript.Kind, l.session.ClientID)
		return nil
	}

	l.logger.Infof("listener transcription for client %s: %q", l.session.ClientID, transcript.Text)

	select {
	case l.session.queue <- transcript.Text:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
