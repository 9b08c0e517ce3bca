// Package pairing implements the PIN-and-short-code trust protocol between
// two previously unknown peers. The orchestrator owns the in-memory sessions
// and drives the per-role state machines off the pairing wire messages.
package pairing

// State is one node of the pairing state machine. Both roles share the
// state vocabulary; which transitions apply depends on the role.
type State string

const (
	StateIdle             State = "idle"
	StateRequesting       State = "requesting"
	StateIncomingRequest  State = "incoming_request"
	StatePendingResponse  State = "pending_response"
	StatePendingChallenge State = "pending_challenge"
	StateVerifying        State = "verifying"
	StateWaitingConfirm   State = "waiting_confirm"
	StatePaired           State = "paired"
	StateFailed           State = "failed"
	StateExpired          State = "expired"
	StateRejected         State = "rejected"
)

// Terminal reports whether the session is finished.
func (s State) Terminal() bool {
	switch s {
	case StatePaired, StateFailed, StateExpired, StateRejected:
		return true
	}
	return false
}

// Active reports whether the session occupies the peer slot: every state
// except Idle and the terminal ones.
func (s State) Active() bool {
	return s != StateIdle && !s.Terminal()
}

// Role distinguishes who opened the session.
type Role string

const (
	RoleInitiator Role = "initiator"
	RoleResponder Role = "responder"
)
