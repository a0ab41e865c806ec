package websocket

import (
	"context"
	"errors"
	"time"

	"github.com/looplab/fsm"
	"github.com/sharpsoft/almosthuman/pkg/Logger"
	"github.com/sharpsoft/almosthuman/pkg/assistant"
	"github.com/sharpsoft/almosthuman/pkg/stt"
	"github.com/sharpsoft/almosthuman/pkg/tts"
)

// Supervisor lifecycle phases.
const (
	PhaseStarting = "starting"
	PhaseRunning  = "running"
	PhaseDraining = "draining"
	PhaseClosed   = "closed"
)

// Collaborators are the external engines the pipeline consumes. Injected so
// tests can substitute stubs.
type Collaborators struct {
	Transcriber stt.Transcriber
	Responder   assistant.Responder
	Synthesizer tts.Synthesizer
}

type unit struct {
	name   string
	run    func(context.Context) error
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	// settled means the unit finished on its own, before draining
	settled bool
}

type unitResult struct {
	name string
	err  error
}

// Supervisor owns one session end to end: it launches Listener, Brain and
// Keepalive, waits for the first of them to finish for any reason, cancels
// the rest, and reconciles teardown. A crash in any unit or a disconnect seen
// by any unit deterministically tears the whole session down.
type Supervisor struct {
	logger            *Logger.Logger
	registry          *ConnectionRegistry
	collab            Collaborators
	keepaliveInterval time.Duration
	drainTimeout      time.Duration
	session           *Session
	lifecycle         *fsm.FSM
}

func NewSupervisor(
	logger *Logger.Logger,
	registry *ConnectionRegistry,
	collab Collaborators,
	session *Session,
	keepaliveInterval time.Duration,
	drainTimeout time.Duration,
) *Supervisor {
	if drainTimeout <= 0 {
		drainTimeout = 5 * time.Second
	}
	return &Supervisor{
		logger:            logger,
		registry:          registry,
		collab:            collab,
		keepaliveInterval: keepaliveInterval,
		drainTimeout:      drainTimeout,
		session:           session,
		lifecycle: fsm.NewFSM(
			PhaseStarting,
			fsm.Events{
				{Name: "launch", Src: []string{PhaseStarting}, Dst: PhaseRunning},
				{Name: "drain", Src: []string{PhaseRunning}, Dst: PhaseDraining},
				{Name: "close", Src: []string{PhaseStarting, PhaseDraining}, Dst: PhaseClosed},
			},
			fsm.Callbacks{},
		),
	}
}

// Phase exposes the current lifecycle phase.
func (sv *Supervisor) Phase() string {
	return sv.lifecycle.Current()
}

// Run drives the session from handshake to teardown and returns when the
// session is fully released.
func (sv *Supervisor) Run(parent context.Context) {
	sv.registry.Register(sv.session)

	if err := sv.session.SendFrame(ConnectedFrame{Status: "connected", ClientID: sv.session.ClientID}); err != nil {
		sv.logger.Errorf("failed to confirm connection for client %s: %v", sv.session.ClientID, err)
		sv.event("close")
		sv.teardown()
		return
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	listener := NewListener(sv.logger, sv.registry, sv.session, sv.collab.Transcriber)
	brain := NewBrain(sv.logger, sv.registry, sv.session, sv.collab.Responder, sv.collab.Synthesizer)
	keepalive := NewKeepalive(sv.logger, sv.session, sv.keepaliveInterval)

	units := []*unit{
		{name: "listener", run: listener.Run},
		{name: "brain", run: brain.Run},
		{name: "keepalive", run: keepalive.Run},
	}

	results := make(chan unitResult, len(units))
	for _, u := range units {
		u := u
		unitCtx, unitCancel := context.WithCancel(ctx)
		u.cancel = unitCancel
		u.done = make(chan struct{})
		go func() {
			err := u.run(unitCtx)
			u.err = err
			close(u.done)
			results <- unitResult{name: u.name, err: err}
		}()
		if u.name == "brain" {
			sv.registry.SetTask(sv.session.ClientID, SlotProcessing, NewTaskHandle(unitCancel, u.done))
		}
	}
	sv.event("launch")

	// Race: the first unit to finish, for any reason, ends the session.
	first := <-results
	if first.err != nil && !errors.Is(first.err, context.Canceled) {
		sv.logger.Errorf("%s finished with error for client %s: %v", first.name, sv.session.ClientID, first.err)
	} else {
		sv.logger.Infof("%s finished for client %s, tearing session down", first.name, sv.session.ClientID)
	}

	sv.event("drain")
	for _, u := range units {
		if u.name == first.name {
			u.settled = true
			continue
		}
		select {
		case <-u.done:
			// Finished on its own; inspect, log, never re-raise.
			u.settled = true
			if u.err != nil && !errors.Is(u.err, context.Canceled) {
				sv.logger.Errorf("%s finished with error for client %s: %v", u.name, sv.session.ClientID, u.err)
			}
			continue
		default:
		}

		u.cancel()
		select {
		case <-u.done:
		case <-time.After(sv.drainTimeout):
			sv.logger.Errorf("%s did not acknowledge cancellation within %s for client %s, detaching",
				u.name, sv.drainTimeout, sv.session.ClientID)
		}
	}

	sv.event("close")
	sv.teardown()
}

// teardown is the CLOSED phase: cancel whatever tasks the registry still
// tracks (idempotent double-safety with draining), drop the registry entry,
// release the conversation history, and close the connection handle exactly
// once. A close failure is logged, never propagated, and never blocks the
// remaining steps.
func (sv *Supervisor) teardown() {
	sv.registry.CancelTasks(sv.session.ClientID)
	if sv.registry.Unregister(sv.session.ClientID, sv.session.InstanceID) {
		sv.collab.Responder.Forget(sv.session.ClientID)
	}
	if err := sv.session.Close(); err != nil {
		sv.logger.Errorf("error closing connection for client %s: %v", sv.session.ClientID, err)
	}
}

func (sv *Supervisor) event(name string) {
	if err := sv.lifecycle.Event(context.Background(), name); err != nil {
		sv.logger.Errorf("lifecycle transition %s failed for client %s: %v", name, sv.session.ClientID, err)
	}
}
