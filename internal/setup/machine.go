// Package setup drives first-run onboarding: creating a new encrypted space
// or joining an existing one through pairing and space access. The
// transition table is a pure total function; the orchestrator executes the
// actions it emits.
package setup

import "github.com/uniclip/uniclipboard/internal/models"

// StateKind names a setup screen.
type StateKind string

const (
	StateWelcome                  StateKind = "welcome"
	StateCreateSpaceInputPassword StateKind = "create_space_input_passphrase"
	StateProcessingCreateSpace    StateKind = "processing_create_space"
	StateJoinSpaceSelectDevice    StateKind = "join_space_select_device"
	StateJoinSpaceConfirmPeer     StateKind = "join_space_confirm_peer"
	StateJoinSpaceInputPassword   StateKind = "join_space_input_passphrase"
	StateProcessingJoinSpace      StateKind = "processing_join_space"
	StateCompleted                StateKind = "completed"
)

// State is a setup screen with its payload.
type State struct {
	Kind StateKind
	// Error carries the previous attempt's failure on input screens.
	Error string
	// Message is the progress text on processing screens.
	Message string
	// Short code and fingerprint shown on the confirm-peer screen.
	ShortCode       string
	PeerFingerprint string
	// Peer selected for joining.
	Peer models.PeerID
}

// EventKind names a setup input.
type EventKind string

const (
	EventStartNewSpace      EventKind = "start_new_space"
	EventStartJoin          EventKind = "start_join"
	EventSubmitPassphrase   EventKind = "submit_passphrase"
	EventChooseJoinPeer     EventKind = "choose_join_peer"
	EventRefreshPeerList    EventKind = "refresh_peer_list"
	EventShortCodeReady     EventKind = "short_code_ready"
	EventConfirmPeerTrust   EventKind = "confirm_peer_trust"
	EventCreateSpaceSuccess EventKind = "create_space_succeeded"
	EventCreateSpaceFailure EventKind = "create_space_failed"
	EventJoinSuccess        EventKind = "join_succeeded"
	EventJoinFailure        EventKind = "join_failed"
	EventCancel             EventKind = "cancel"
)

// Event is one setup input with its payload.
type Event struct {
	Kind            EventKind
	Passphrase      string
	Peer            models.PeerID
	ShortCode       string
	PeerFingerprint string
	Err             string
}

// ActionKind names a side effect the orchestrator must run.
type ActionKind string

const (
	ActionCreateEncryptedSpace ActionKind = "create_encrypted_space"
	ActionStartPairing         ActionKind = "start_pairing"
	ActionRefreshPeers         ActionKind = "refresh_peers"
	ActionBeginJoinSpace       ActionKind = "begin_join_space"
	ActionAbortPairing         ActionKind = "abort_pairing"
	ActionMarkSetupComplete    ActionKind = "mark_setup_complete"
)

// Action is one side effect with its payload.
type Action struct {
	Kind       ActionKind
	Passphrase string
	Peer       models.PeerID
}

// Transition resolves every (state, event) pair. Valid pairs advance the
// screen and emit the listed actions; anything else stays put and emits
// AbortPairing so no half-open pairing session survives a confused UI.
func Transition(state State, event Event) (State, []Action) {
	switch state.Kind {
	case StateWelcome:
		switch event.Kind {
		case EventStartNewSpace:
			return State{Kind: StateCreateSpaceInputPassword}, nil
		case EventStartJoin:
			return State{Kind: StateJoinSpaceSelectDevice}, []Action{{Kind: ActionRefreshPeers}}
		}

	case StateCreateSpaceInputPassword:
		switch event.Kind {
		case EventSubmitPassphrase:
			return State{Kind: StateProcessingCreateSpace, Message: "creating encrypted space"},
				[]Action{{Kind: ActionCreateEncryptedSpace, Passphrase: event.Passphrase}}
		case EventCancel:
			return State{Kind: StateWelcome}, nil
		}

	case StateProcessingCreateSpace:
		switch event.Kind {
		case EventCreateSpaceSuccess:
			return State{Kind: StateCompleted}, []Action{{Kind: ActionMarkSetupComplete}}
		case EventCreateSpaceFailure:
			return State{Kind: StateCreateSpaceInputPassword, Error: event.Err}, nil
		case EventCancel:
			return State{Kind: StateWelcome}, []Action{{Kind: ActionAbortPairing}}
		}

	case StateJoinSpaceSelectDevice:
		switch event.Kind {
		case EventChooseJoinPeer:
			return State{Kind: StateJoinSpaceConfirmPeer, Peer: event.Peer},
				[]Action{{Kind: ActionStartPairing, Peer: event.Peer}}
		case EventRefreshPeerList:
			return state, []Action{{Kind: ActionRefreshPeers}}
		case EventCancel:
			return State{Kind: StateWelcome}, nil
		}

	case StateJoinSpaceConfirmPeer:
		switch event.Kind {
		case EventShortCodeReady:
			next := state
			next.ShortCode = event.ShortCode
			next.PeerFingerprint = event.PeerFingerprint
			return next, nil
		case EventConfirmPeerTrust:
			next := state
			next.Kind = StateJoinSpaceInputPassword
			next.Error = ""
			return next, nil
		case EventJoinFailure:
			return State{Kind: StateJoinSpaceSelectDevice, Error: event.Err}, nil
		case EventCancel:
			return State{Kind: StateWelcome}, []Action{{Kind: ActionAbortPairing}}
		}

	case StateJoinSpaceInputPassword:
		switch event.Kind {
		case EventSubmitPassphrase:
			next := state
			next.Kind = StateProcessingJoinSpace
			next.Message = "joining space"
			next.Error = ""
			return next, []Action{{Kind: ActionBeginJoinSpace, Passphrase: event.Passphrase, Peer: state.Peer}}
		case EventCancel:
			return State{Kind: StateWelcome}, []Action{{Kind: ActionAbortPairing}}
		}

	case StateProcessingJoinSpace:
		switch event.Kind {
		case EventJoinSuccess:
			return State{Kind: StateCompleted}, []Action{{Kind: ActionMarkSetupComplete}}
		case EventJoinFailure:
			next := state
			next.Kind = StateJoinSpaceInputPassword
			next.Error = event.Err
			next.Message = ""
			return next, nil
		case EventCancel:
			return State{Kind: StateWelcome}, []Action{{Kind: ActionAbortPairing}}
		}

	}

	// Safety net for every unlisted pair.
	return state, []Action{{Kind: ActionAbortPairing}}
}
