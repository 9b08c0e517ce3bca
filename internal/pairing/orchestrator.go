package pairing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/cryptox"
	"github.com/uniclip/uniclipboard/internal/identity"
	"github.com/uniclip/uniclipboard/internal/logging"
	"github.com/uniclip/uniclipboard/internal/models"
	"github.com/uniclip/uniclipboard/internal/network"
	"github.com/uniclip/uniclipboard/internal/repositories/paireddevices"
)

// EventKind names an orchestrator notification to the UI layer.
type EventKind string

const (
	EventIncomingRequest EventKind = "incoming_request"
	EventShortCodeReady  EventKind = "short_code_ready"
	EventPaired          EventKind = "paired"
	EventFailed          EventKind = "failed"
	EventExpired         EventKind = "expired"
	EventRejected        EventKind = "rejected"
)

// Event is what the UI observes about a session.
type Event struct {
	Kind       EventKind
	SessionID  models.SessionID
	PeerID     models.PeerID
	DeviceName string
	// Pin is set on the responder's incoming-request event; the user reads
	// it to the initiator out of band.
	Pin             string
	ShortCode       string
	PeerFingerprint string
	Reason          string
}

// Notifier receives orchestrator events. It must not block.
type Notifier func(Event)

// Orchestrator owns every pairing session on this device. At most one
// active session per peer; the lexicographically smaller device id
// initiates, and an incoming request beats an outgoing one to the same
// peer.
type Orchestrator struct {
	mu       sync.Mutex
	sessions map[models.SessionID]*Session
	byPeer   map[models.PeerID]models.SessionID

	net        network.Port
	devices    paireddevices.Repository
	identity   *identity.Identity
	deviceID   models.DeviceID
	deviceName string
	ttl        time.Duration
	now        func() time.Time
	notify     Notifier
	log        logging.Logger
}

// NewOrchestrator wires an Orchestrator. notify may be nil.
func NewOrchestrator(net network.Port, devices paireddevices.Repository, ident *identity.Identity, deviceID models.DeviceID, deviceName string, ttl time.Duration, notify Notifier, log logging.Logger) *Orchestrator {
	if notify == nil {
		notify = func(Event) {}
	}
	return &Orchestrator{
		sessions:   map[models.SessionID]*Session{},
		byPeer:     map[models.PeerID]models.SessionID{},
		net:        net,
		devices:    devices,
		identity:   ident,
		deviceID:   deviceID,
		deviceName: deviceName,
		ttl:        ttl,
		now:        time.Now,
		notify:     notify,
		log:        log,
	}
}

// ShouldInitiate applies the connection-direction rule: the device with the
// lexicographically smaller id opens the session.
func (o *Orchestrator) ShouldInitiate(peerDeviceID models.DeviceID) bool {
	return o.deviceID < peerDeviceID
}

// StartPairing opens an initiator session toward peer and sends the Request.
func (o *Orchestrator) StartPairing(ctx context.Context, peer models.PeerID) (models.SessionID, error) {
	o.mu.Lock()
	if existing, ok := o.activeSessionForPeer(peer); ok {
		o.mu.Unlock()
		return "", fmt.Errorf("%w: pairing with %s already in progress (session %s)", common.ErrInvalidParameter, peer, existing.ID)
	}

	session, err := newSession(models.NewSessionID(), RoleInitiator, peer, o.now())
	if err != nil {
		o.mu.Unlock()
		return "", err
	}
	session.State = StateRequesting
	o.sessions[session.ID] = session
	o.byPeer[peer] = session.ID
	o.mu.Unlock()

	msg := network.PairingMessage{
		SessionID:      session.ID,
		Type:           network.MsgRequest,
		DeviceName:     o.deviceName,
		DeviceID:       o.deviceID,
		PeerID:         o.net.LocalPeerID(),
		IdentityPubkey: o.identity.Public,
		Nonce:          session.LocalNonce,
	}
	if err := o.net.SendPairingMessage(ctx, peer, msg); err != nil {
		o.closeSession(session.ID, StateFailed, "request send failed")
		return "", fmt.Errorf("%w: failed to send pairing request: %v", common.ErrTransport, err)
	}
	return session.ID, nil
}

// HandleMessage routes one inbound pairing message.
func (o *Orchestrator) HandleMessage(ctx context.Context, from models.PeerID, msg network.PairingMessage) {
	switch msg.Type {
	case network.MsgRequest:
		o.handleRequest(ctx, from, msg)
	case network.MsgChallenge:
		o.handleChallenge(ctx, from, msg)
	case network.MsgResponse:
		o.handleResponse(ctx, from, msg)
	case network.MsgConfirm:
		o.handleConfirm(ctx, from, msg)
	case network.MsgReject:
		o.closeSession(msg.SessionID, StateRejected, msg.Reason)
	case network.MsgCancel:
		o.closeSession(msg.SessionID, StateFailed, msg.Reason)
	case network.MsgBusy:
		o.closeSession(msg.SessionID, StateFailed, "peer busy")
	default:
		o.log.Warn(ctx, "unexpected pairing message", "session_id", msg.SessionID, "type", string(msg.Type))
	}
}

func (o *Orchestrator) handleRequest(ctx context.Context, from models.PeerID, msg network.PairingMessage) {
	o.mu.Lock()
	if existing, ok := o.activeSessionForPeer(from); ok {
		if existing.Role == RoleInitiator {
			// Incoming beats outgoing to the same peer.
			o.mu.Unlock()
			o.closeSession(existing.ID, StateFailed, "superseded by incoming request")
			o.mu.Lock()
		} else {
			o.mu.Unlock()
			o.sendBest(ctx, from, network.PairingMessage{SessionID: msg.SessionID, Type: network.MsgBusy, Reason: "pairing already in progress"})
			return
		}
	}

	session, err := newSession(msg.SessionID, RoleResponder, from, o.now())
	if err != nil {
		o.mu.Unlock()
		o.log.Error(ctx, "failed to open responder session", "error", err)
		return
	}
	pin, err := cryptox.NewPin()
	if err != nil {
		o.mu.Unlock()
		o.log.Error(ctx, "failed to generate pin", "error", err)
		return
	}
	session.State = StateIncomingRequest
	session.Pin = pin
	session.PeerNonce = msg.Nonce
	session.PeerPubkey = msg.IdentityPubkey
	session.PeerDeviceID = msg.DeviceID
	session.PeerDeviceName = msg.DeviceName
	o.sessions[session.ID] = session
	o.byPeer[from] = session.ID
	localNonce := session.LocalNonce
	shortCode := session.ShortCode(o.identity.Public)
	fingerprint := session.PeerFingerprint()
	o.mu.Unlock()

	// The challenge goes out immediately; the responder stays in
	// IncomingRequest until the user accepts.
	challenge := network.PairingMessage{
		SessionID:      session.ID,
		Type:           network.MsgChallenge,
		Pin:            pin,
		DeviceName:     o.deviceName,
		DeviceID:       o.deviceID,
		IdentityPubkey: o.identity.Public,
		Nonce:          localNonce,
	}
	o.sendBest(ctx, from, challenge)

	o.notify(Event{
		Kind:            EventIncomingRequest,
		SessionID:       session.ID,
		PeerID:          from,
		DeviceName:      msg.DeviceName,
		Pin:             pin,
		ShortCode:       shortCode,
		PeerFingerprint: fingerprint,
	})
}

func (o *Orchestrator) handleChallenge(ctx context.Context, from models.PeerID, msg network.PairingMessage) {
	o.mu.Lock()
	session, ok := o.sessions[msg.SessionID]
	if !ok || session.Role != RoleInitiator || session.State != StateRequesting {
		o.mu.Unlock()
		return
	}
	hash, err := cryptox.HashPin(msg.Pin)
	if err != nil {
		o.mu.Unlock()
		o.closeSession(msg.SessionID, StateFailed, "challenge handling failed")
		return
	}
	session.State = StatePendingChallenge
	session.PinHash = hash
	session.PeerNonce = msg.Nonce
	session.PeerPubkey = msg.IdentityPubkey
	session.PeerDeviceID = msg.DeviceID
	session.PeerDeviceName = msg.DeviceName
	shortCode := session.ShortCode(o.identity.Public)
	fingerprint := session.PeerFingerprint()
	o.mu.Unlock()

	o.notify(Event{
		Kind:            EventShortCodeReady,
		SessionID:       msg.SessionID,
		PeerID:          from,
		DeviceName:      msg.DeviceName,
		ShortCode:       shortCode,
		PeerFingerprint: fingerprint,
	})
}

// AcceptIncoming is the responder user's consent to pair.
func (o *Orchestrator) AcceptIncoming(ctx context.Context, sessionID models.SessionID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	session, ok := o.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: pairing session %s", common.ErrNotFound, sessionID)
	}
	if session.Role != RoleResponder || session.State != StateIncomingRequest {
		return fmt.Errorf("%w: session %s cannot be accepted in state %s", common.ErrInvalidParameter, sessionID, session.State)
	}
	session.State = StatePendingResponse
	return nil
}

// SubmitPin is the initiator user's entry of the PIN displayed on the
// responder. A wrong PIN fails the session locally; the responder times out.
func (o *Orchestrator) SubmitPin(ctx context.Context, sessionID models.SessionID, pin string) error {
	o.mu.Lock()
	session, ok := o.sessions[sessionID]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: pairing session %s", common.ErrNotFound, sessionID)
	}
	if session.Role != RoleInitiator || session.State != StatePendingChallenge {
		o.mu.Unlock()
		return fmt.Errorf("%w: session %s cannot take a pin in state %s", common.ErrInvalidParameter, sessionID, session.State)
	}

	if !cryptox.VerifyPin(pin, session.PinHash) {
		o.mu.Unlock()
		o.closeSession(sessionID, StateFailed, "pin mismatch")
		return fmt.Errorf("%w: pin does not match", common.ErrInvalidParameter)
	}

	session.State = StateVerifying
	peer := session.PeerID
	o.mu.Unlock()

	hash, err := cryptox.HashPin(pin)
	if err != nil {
		o.closeSession(sessionID, StateFailed, "pin hashing failed")
		return err
	}
	response := network.PairingMessage{
		SessionID: sessionID,
		Type:      network.MsgResponse,
		PinHash:   hash,
		Accepted:  true,
	}
	if err := o.net.SendPairingMessage(ctx, peer, response); err != nil {
		o.closeSession(sessionID, StateFailed, "response send failed")
		return fmt.Errorf("%w: failed to send pairing response: %v", common.ErrTransport, err)
	}
	return nil
}

func (o *Orchestrator) handleResponse(ctx context.Context, from models.PeerID, msg network.PairingMessage) {
	o.mu.Lock()
	session, ok := o.sessions[msg.SessionID]
	if !ok || session.Role != RoleResponder || session.State != StatePendingResponse {
		o.mu.Unlock()
		return
	}

	if !msg.Accepted || !cryptox.VerifyPin(session.Pin, msg.PinHash) {
		o.mu.Unlock()
		o.sendBest(ctx, from, network.PairingMessage{
			SessionID: msg.SessionID,
			Type:      network.MsgConfirm,
			Success:   false,
			Error:     "pin verification failed",
		})
		o.closeSession(msg.SessionID, StateFailed, "pin verification failed")
		return
	}

	session.State = StateWaitingConfirm
	o.mu.Unlock()

	o.sendBest(ctx, from, network.PairingMessage{
		SessionID:        msg.SessionID,
		Type:             network.MsgConfirm,
		Success:          true,
		SenderDeviceName: o.deviceName,
		DeviceID:         o.deviceID,
	})
}

func (o *Orchestrator) handleConfirm(ctx context.Context, from models.PeerID, msg network.PairingMessage) {
	o.mu.Lock()
	session, ok := o.sessions[msg.SessionID]
	if !ok {
		o.mu.Unlock()
		return
	}
	validState := (session.Role == RoleInitiator && session.State == StateVerifying) ||
		(session.Role == RoleResponder && session.State == StateWaitingConfirm)
	if !validState {
		o.mu.Unlock()
		return
	}
	role := session.Role
	o.mu.Unlock()

	if !msg.Success {
		o.closeSession(msg.SessionID, StateFailed, msg.Error)
		return
	}

	// The initiator acknowledges so the responder terminates too.
	if role == RoleInitiator {
		o.sendBest(ctx, from, network.PairingMessage{
			SessionID:        msg.SessionID,
			Type:             network.MsgConfirm,
			Success:          true,
			SenderDeviceName: o.deviceName,
			DeviceID:         o.deviceID,
		})
	}
	o.completePairing(ctx, msg.SessionID)
}

func (o *Orchestrator) completePairing(ctx context.Context, sessionID models.SessionID) {
	o.mu.Lock()
	session, ok := o.sessions[sessionID]
	if !ok || session.State.Terminal() {
		o.mu.Unlock()
		return
	}
	session.State = StatePaired
	device := models.PairedDevice{
		PeerID:              session.PeerID,
		PairingState:        models.PairingTrusted,
		IdentityFingerprint: session.PeerFingerprint(),
		PairedAt:            o.now(),
		DeviceName:          session.PeerDeviceName,
	}
	delete(o.byPeer, session.PeerID)
	o.mu.Unlock()

	if err := o.devices.Upsert(ctx, device); err != nil {
		o.log.Error(ctx, "failed to persist paired device", "peer_id", device.PeerID, "error", err)
	}
	o.notify(Event{Kind: EventPaired, SessionID: sessionID, PeerID: device.PeerID, DeviceName: device.DeviceName})
}

// Reject is the local user's refusal of an incoming request.
func (o *Orchestrator) Reject(ctx context.Context, sessionID models.SessionID, reason string) error {
	o.mu.Lock()
	session, ok := o.sessions[sessionID]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: pairing session %s", common.ErrNotFound, sessionID)
	}
	peer := session.PeerID
	o.mu.Unlock()

	o.sendBest(ctx, peer, network.PairingMessage{SessionID: sessionID, Type: network.MsgReject, Reason: reason})
	o.closeSession(sessionID, StateRejected, reason)
	return nil
}

// Cancel aborts a session this device started or participates in.
func (o *Orchestrator) Cancel(ctx context.Context, sessionID models.SessionID, reason string) {
	o.mu.Lock()
	session, ok := o.sessions[sessionID]
	if !ok || session.State.Terminal() {
		o.mu.Unlock()
		return
	}
	peer := session.PeerID
	o.mu.Unlock()

	o.sendBest(ctx, peer, network.PairingMessage{SessionID: sessionID, Type: network.MsgCancel, Reason: reason})
	o.closeSession(sessionID, StateFailed, reason)
}

// Unpair revokes trust in a paired peer and tears down the transport link.
// The device row is kept in the revoked state for audit.
func (o *Orchestrator) Unpair(ctx context.Context, peer models.PeerID) error {
	if err := o.devices.SetState(ctx, peer, models.PairingRevoked); err != nil {
		return fmt.Errorf("failed to revoke paired device: %w", err)
	}
	if err := o.net.Unpair(ctx, peer); err != nil {
		o.log.Warn(ctx, "transport unpair failed", "peer", peer, "error", err)
	}
	o.log.Info(ctx, "device unpaired", "peer", peer)
	return nil
}

// ExpireStale sweeps active sessions past the TTL and prunes terminal
// sessions past it, so the session map stays bounded on a long-running
// agent.
func (o *Orchestrator) ExpireStale(ctx context.Context) {
	o.mu.Lock()
	var stale []models.SessionID
	cutoff := o.now().Add(-o.ttl)
	for id, session := range o.sessions {
		if !session.StartedAt.Before(cutoff) {
			continue
		}
		if session.State.Active() {
			stale = append(stale, id)
		} else {
			delete(o.sessions, id)
		}
	}
	o.mu.Unlock()

	for _, id := range stale {
		o.closeSession(id, StateExpired, "pairing ttl exceeded")
	}
}

// SessionState reports the current state of a session.
func (o *Orchestrator) SessionState(sessionID models.SessionID) (State, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	session, ok := o.sessions[sessionID]
	if !ok {
		return StateIdle, false
	}
	return session.State, true
}

func (o *Orchestrator) closeSession(sessionID models.SessionID, state State, reason string) {
	o.mu.Lock()
	session, ok := o.sessions[sessionID]
	if !ok || session.State.Terminal() {
		o.mu.Unlock()
		return
	}
	session.State = state
	peer := session.PeerID
	if o.byPeer[peer] == sessionID {
		delete(o.byPeer, peer)
	}
	o.mu.Unlock()

	kind := EventFailed
	switch state {
	case StateExpired:
		kind = EventExpired
	case StateRejected:
		kind = EventRejected
	}
	o.notify(Event{Kind: kind, SessionID: sessionID, PeerID: peer, Reason: reason})
}

// activeSessionForPeer must be called with the lock held.
func (o *Orchestrator) activeSessionForPeer(peer models.PeerID) (*Session, bool) {
	id, ok := o.byPeer[peer]
	if !ok {
		return nil, false
	}
	session, ok := o.sessions[id]
	if !ok || !session.State.Active() {
		delete(o.byPeer, peer)
		return nil, false
	}
	return session, true
}

func (o *Orchestrator) sendBest(ctx context.Context, peer models.PeerID, msg network.PairingMessage) {
	if err := o.net.SendPairingMessage(ctx, peer, msg); err != nil {
		o.log.Warn(ctx, "pairing send failed", "session_id", msg.SessionID, "type", string(msg.Type), "error", err)
	}
}
