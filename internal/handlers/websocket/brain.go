package websocket

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/sharpsoft/almosthuman/pkg/Logger"
	"github.com/sharpsoft/almosthuman/pkg/assistant"
	"github.com/sharpsoft/almosthuman/pkg/tts"
)

// Brain consumes utterances one at a time: model reply, synthesis, reply
// frame. Strictly sequential consumption is what enforces at-most-one
// in-flight reply per session.
type Brain struct {
	logger      *Logger.Logger
	registry    *ConnectionRegistry
	session     *Session
	responder   assistant.Responder
	synthesizer tts.Synthesizer
}

func NewBrain(logger *Logger.Logger, registry *ConnectionRegistry, session *Session, responder assistant.Responder, synthesizer tts.Synthesizer) *Brain {
	return &Brain{
		logger:      logger,
		registry:    registry,
		session:     session,
		responder:   responder,
		synthesizer: synthesizer,
	}
}

func (b *Brain) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case utterance := <-b.session.queue:
			if err := b.handleUtterance(ctx, utterance); err != nil {
				return err
			}
		}
	}
}

func (b *Brain) handleUtterance(ctx context.Context, utterance string) error {
	b.session.setState(StateThinking)

	// The responder contract guarantees non-exceptional text, fallback
	// included, so the reply is always valid synthesis input.
	reply := b.responder.Respond(ctx, b.session.ClientID, utterance)
	b.logger.Infof("reply for client %s: %q", b.session.ClientID, reply)

	synthesis, err := b.synthesize(ctx, reply)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return ctx.Err()
		}
		b.logger.Errorf("synthesis error for client %s: %v", b.session.ClientID, err)
		return nil
	}
	if synthesis == nil || len(synthesis.Samples) == 0 {
		// Nothing to play; never send an empty audio frame.
		return nil
	}

	timings := synthesis.WordTimings
	if timings == nil {
		timings = []tts.WordTiming{}
	}
	frame := ReplyFrame{
		Audio:       base64.StdEncoding.EncodeToString(tts.EncodePCM16(synthesis.Samples)),
		WordTimings: timings,
		SampleRate:  synthesis.SampleRate,
		Method:      replyMethod,
		Modality:    replyModality,
	}

	b.session.setState(StateSpeaking)
	if err := b.session.SendFrame(frame); err != nil {
		return err
	}
	b.session.setState(StateWaitingForPlayback)
	return nil
}

// synthesize runs one synthesis call under its own cancellable handle,
// published in the tts slot so CancelTasks can abort it mid-flight.
func (b *Brain) synthesize(ctx context.Context, text string) (*tts.Synthesis, error) {
	ttsCtx, ttsCancel := context.WithCancel(ctx)
	defer ttsCancel()

	done := make(chan struct{})
	b.registry.SetTask(b.session.ClientID, SlotTTS, NewTaskHandle(ttsCancel, done))
	defer func() {
		close(done)
		b.registry.SetTask(b.session.ClientID, SlotTTS, nil)
	}()

	return b.synthesizer.Synthesize(ttsCtx, text)
}
