package setup

import (
	"context"
	"sync"

	"github.com/uniclip/uniclipboard/internal/lifecycle"
	"github.com/uniclip/uniclipboard/internal/logging"
	"github.com/uniclip/uniclipboard/internal/models"
)

// Effects are the side effects the transition table can demand. The app
// wires them to the material service, the pairing orchestrator, and the
// space-access joiner.
type Effects interface {
	CreateSpace(ctx context.Context, passphrase string) error
	StartPairing(ctx context.Context, peer models.PeerID) (models.SessionID, error)
	AbortPairing(ctx context.Context)
	RefreshPeers(ctx context.Context)
	// BeginJoin runs the join-space protocol to completion.
	BeginJoin(ctx context.Context, peer models.PeerID, passphrase string) error
}

// Orchestrator holds the current setup state and executes emitted actions.
// Action outcomes feed back in as events, so a single Dispatch of
// SubmitPassphrase walks Processing* through to Completed or back to the
// input screen with an error.
type Orchestrator struct {
	mu    sync.Mutex
	state State

	effects     Effects
	onboarding  *OnboardingStore
	coordinator *lifecycle.Coordinator
	log         logging.Logger
}

func NewOrchestrator(effects Effects, onboarding *OnboardingStore, coordinator *lifecycle.Coordinator, log logging.Logger) *Orchestrator {
	return &Orchestrator{
		state:       State{Kind: StateWelcome},
		effects:     effects,
		onboarding:  onboarding,
		coordinator: coordinator,
		log:         log,
	}
}

// State reports the current setup screen.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Dispatch applies one event and runs the resulting actions.
func (o *Orchestrator) Dispatch(ctx context.Context, event Event) State {
	o.mu.Lock()
	next, actions := Transition(o.state, event)
	o.state = next
	o.mu.Unlock()

	for _, action := range actions {
		o.run(ctx, action)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) run(ctx context.Context, action Action) {
	switch action.Kind {
	case ActionCreateEncryptedSpace:
		if err := o.effects.CreateSpace(ctx, action.Passphrase); err != nil {
			o.log.Error(ctx, "create space failed", "error", err)
			o.Dispatch(ctx, Event{Kind: EventCreateSpaceFailure, Err: err.Error()})
			return
		}
		o.Dispatch(ctx, Event{Kind: EventCreateSpaceSuccess})

	case ActionStartPairing:
		if _, err := o.effects.StartPairing(ctx, action.Peer); err != nil {
			o.log.Error(ctx, "pairing start failed", "peer", action.Peer, "error", err)
			o.Dispatch(ctx, Event{Kind: EventJoinFailure, Err: err.Error()})
		}

	case ActionRefreshPeers:
		o.effects.RefreshPeers(ctx)

	case ActionBeginJoinSpace:
		if err := o.effects.BeginJoin(ctx, action.Peer, action.Passphrase); err != nil {
			o.log.Error(ctx, "join space failed", "error", err)
			o.Dispatch(ctx, Event{Kind: EventJoinFailure, Err: err.Error()})
			return
		}
		o.Dispatch(ctx, Event{Kind: EventJoinSuccess})

	case ActionAbortPairing:
		o.effects.AbortPairing(ctx)

	case ActionMarkSetupComplete:
		if err := o.onboarding.Save(OnboardingState{
			HasCompleted:          true,
			EncryptionPasswordSet: true,
			DeviceRegistered:      true,
		}); err != nil {
			o.log.Error(ctx, "failed to persist onboarding state", "error", err)
		}
		if err := o.coordinator.EnsureReady(ctx); err != nil {
			o.log.Error(ctx, "readiness after setup failed", "error", err)
		}
	}
}
