package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/sharpsoft/almosthuman/pkg/tts"
)

func newTestSupervisor(conn *fakeConn, registry *ConnectionRegistry, collab Collaborators) (*Supervisor, *Session) {
	session := NewSession("visitor-1", conn, 8)
	supervisor := NewSupervisor(testLogger(), registry, collab, session, 10*time.Millisecond, time.Second)
	return supervisor, session
}

func TestSupervisorConfirmsConnection(t *testing.T) {
	conn := newFakeConn()
	registry := newTestRegistry()
	responder := &stubResponder{}
	supervisor, _ := newTestSupervisor(conn, registry, Collaborators{
		Transcriber: echoTranscriber{},
		Responder:   responder,
		Synthesizer: &stubSynthesizer{},
	})

	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	waitFor(t, time.Second, func() bool {
		return len(conn.framesOfKind("status")) == 1
	}, "expected a connection-confirmed frame")

	confirmed := conn.framesOfKind("status")[0]
	if confirmed["status"] != "connected" || confirmed["client_id"] != "visitor-1" {
		t.Errorf("unexpected confirmation frame: %v", confirmed)
	}

	conn.Close()
	<-done
}

func TestSupervisorTeardownOnDisconnect(t *testing.T) {
	conn := newFakeConn()
	registry := newTestRegistry()
	responder := &stubResponder{}
	supervisor, session := newTestSupervisor(conn, registry, Collaborators{
		Transcriber: echoTranscriber{},
		Responder:   responder,
		Synthesizer: &stubSynthesizer{},
	})

	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	waitFor(t, time.Second, func() bool { return registry.SessionCount() == 1 }, "expected session registered")

	// Client disconnect: first unit to notice ends the race.
	conn.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not tear down after disconnect")
	}

	if supervisor.Phase() != PhaseClosed {
		t.Errorf("expected supervisor in %s, got %s", PhaseClosed, supervisor.Phase())
	}
	if got := registry.SessionCount(); got != 0 {
		t.Errorf("expected registry emptied, got %d sessions", got)
	}
	if len(responder.forgot) != 1 || responder.forgot[0] != session.ClientID {
		t.Errorf("expected conversation history released for %s, got %v", session.ClientID, responder.forgot)
	}
}

func TestSupervisorEndToEndReply(t *testing.T) {
	conn := newFakeConn()
	registry := newTestRegistry()
	responder := &stubResponder{replyFn: func(string) string { return "welcome to Sharp Software" }}
	supervisor, session := newTestSupervisor(conn, registry, Collaborators{
		Transcriber: echoTranscriber{},
		Responder:   responder,
		Synthesizer: &stubSynthesizer{},
	})

	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	conn.push(audioSegmentFrame("good morning"))

	waitFor(t, 2*time.Second, func() bool {
		return len(conn.framesOfKind("audio")) == 1
	}, "expected exactly one reply frame for one clear-speech segment")

	reply := conn.framesOfKind("audio")[0]
	if got := reply["sample_rate"].(float64); got != 24000 {
		t.Errorf("expected sample_rate 24000, got %v", got)
	}
	if reply["modality"] != "audio_only" {
		t.Errorf("expected modality audio_only, got %v", reply["modality"])
	}
	if reply["method"] != "native_kokoro_timing" {
		t.Errorf("expected method native_kokoro_timing, got %v", reply["method"])
	}
	if got := session.State(); got != StateWaitingForPlayback {
		t.Errorf("expected WAITING_FOR_PLAYBACK after reply, got %s", got)
	}

	conn.Close()
	<-done
}

func TestCancelTasksAbortsInFlightSynthesis(t *testing.T) {
	conn := newFakeConn()
	registry := newTestRegistry()

	synthStarted := make(chan struct{})
	synth := &stubSynthesizer{fn: func(ctx context.Context, _ string) (*tts.Synthesis, error) {
		close(synthStarted)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	responder := &stubResponder{}
	supervisor, session := newTestSupervisor(conn, registry, Collaborators{
		Transcriber: echoTranscriber{},
		Responder:   responder,
		Synthesizer: synth,
	})

	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	conn.push(audioSegmentFrame("long question"))
	select {
	case <-synthStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("synthesis never started")
	}

	// Cancels processing (the brain) first, which unblocks the race and
	// drags the whole session down.
	registry.CancelTasks(session.ClientID)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not finish after task cancellation")
	}
	if got := registry.SessionCount(); got != 0 {
		t.Errorf("expected registry emptied, got %d", got)
	}
}
