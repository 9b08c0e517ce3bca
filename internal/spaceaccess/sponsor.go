package spaceaccess

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/cryptox"
	"github.com/uniclip/uniclipboard/internal/encryption"
	"github.com/uniclip/uniclipboard/internal/keyslot"
	"github.com/uniclip/uniclipboard/internal/logging"
	"github.com/uniclip/uniclipboard/internal/models"
	"github.com/uniclip/uniclipboard/internal/network"
	"github.com/uniclip/uniclipboard/internal/repositories/spaces"
)

// State tracks one space-access run on either role.
type State string

const (
	StateIdle            State = "idle"
	StateAwaitingOffer   State = "awaiting_offer"
	StateAwaitingProof   State = "awaiting_proof"
	StateAwaitingConfirm State = "awaiting_confirm"
	StateGranted         State = "granted"
	StateFailed          State = "failed"
	StateExpired         State = "expired"
)

// Terminal reports whether the protocol run is over.
func (s State) Terminal() bool {
	return s == StateGranted || s == StateFailed || s == StateExpired
}

const challengeLen = 32

// sponsorRun is one in-flight handover, keyed by the paired session.
type sponsorRun struct {
	state     State
	spaceID   models.SpaceID
	joiner    models.PeerID
	challenge []byte
	timer     TimerPort
}

// Sponsor runs the granting side: it already holds the master key and the
// key slot and hands both the slot and a challenge to the joiner. Each
// paired session gets its own run, so devices joining concurrently do not
// disturb each other.
type Sponsor struct {
	mu   sync.Mutex
	runs map[models.SessionID]*sponsorRun

	session  *encryption.Session
	slots    keyslot.Store
	spaces   spaces.Repository
	net      network.Port
	newTimer func() TimerPort
	ttl      time.Duration
	now      func() time.Time
	log      logging.Logger
}

func NewSponsor(session *encryption.Session, slots keyslot.Store, spacesRepo spaces.Repository, net network.Port, newTimer func() TimerPort, ttl time.Duration, log logging.Logger) *Sponsor {
	return &Sponsor{
		runs:     map[models.SessionID]*sponsorRun{},
		session:  session,
		slots:    slots,
		spaces:   spacesRepo,
		net:      net,
		newTimer: newTimer,
		ttl:      ttl,
		now:      time.Now,
		log:      log,
	}
}

// Start sends the keyslot offer for the paired session and arms the TTL.
func (s *Sponsor) Start(ctx context.Context, sessionID models.SessionID, spaceID models.SpaceID, joiner models.PeerID) error {
	if !s.session.IsReady() {
		return common.ErrNotInitialized
	}
	slot, err := s.slots.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load key slot for offer: %w", err)
	}

	challenge := make([]byte, challengeLen)
	if _, err := rand.Read(challenge); err != nil {
		return fmt.Errorf("failed to generate challenge: %w", err)
	}

	run := &sponsorRun{
		state:     StateAwaitingProof,
		spaceID:   spaceID,
		joiner:    joiner,
		challenge: challenge,
		timer:     s.newTimer(),
	}
	s.mu.Lock()
	if existing, ok := s.runs[sessionID]; ok && !existing.state.Terminal() {
		s.mu.Unlock()
		return fmt.Errorf("%w: space access already running for session %s", common.ErrInvalidParameter, sessionID)
	}
	s.runs[sessionID] = run
	s.mu.Unlock()

	offer := network.PairingMessage{
		SessionID:   sessionID,
		Type:        network.MsgKeyslotOffer,
		KeyslotFile: slot,
		Challenge:   challenge,
	}
	// Arm the TTL first; the offer may complete the whole protocol
	// synchronously on an in-process transport.
	run.timer.Start(s.ttl, func() { s.expire(context.Background(), sessionID) })
	if err := s.net.SendPairingMessage(ctx, joiner, offer); err != nil {
		s.fail(ctx, sessionID, "offer send failed")
		return fmt.Errorf("%w: failed to send keyslot offer: %v", common.ErrTransport, err)
	}
	return nil
}

// HandleChallengeResponse verifies the joiner's proof and, on success,
// persists the grant and confirms.
func (s *Sponsor) HandleChallengeResponse(ctx context.Context, msg network.PairingMessage) error {
	sessionID := msg.SessionID
	s.mu.Lock()
	run, found := s.runs[sessionID]
	if !found || run.state != StateAwaitingProof {
		s.mu.Unlock()
		return fmt.Errorf("%w: unexpected challenge response", common.ErrInvalidParameter)
	}
	spaceID, joiner, challenge := run.spaceID, run.joiner, run.challenge
	s.mu.Unlock()

	mk, err := s.session.MasterKey()
	if err != nil {
		s.fail(ctx, sessionID, "session not ready")
		return err
	}

	ok := false
	if msg.EncryptedChallenge != nil {
		recovered, err := cryptox.Decrypt(mk, msg.EncryptedChallenge, cryptox.SpaceAccessProofAad(sessionID, spaceID))
		ok = err == nil && subtle.ConstantTimeCompare(recovered, challenge) == 1
	}
	if !ok {
		s.sendConfirm(ctx, joiner, sessionID, false, "challenge proof invalid")
		s.fail(ctx, sessionID, "challenge proof invalid")
		return fmt.Errorf("%w: joiner proof rejected", common.ErrCorruptedBlob)
	}

	if err := s.spaces.PersistSponsorAccess(ctx, spaceID, joiner, s.now().UnixMilli()); err != nil {
		s.sendConfirm(ctx, joiner, sessionID, false, "grant persistence failed")
		s.fail(ctx, sessionID, "grant persistence failed")
		return fmt.Errorf("failed to persist sponsor access: %w", err)
	}

	s.sendConfirm(ctx, joiner, sessionID, true, "")
	s.mu.Lock()
	run.state = StateGranted
	s.mu.Unlock()
	run.timer.Stop()
	s.log.Info(ctx, "space access granted", "space_id", spaceID, "joiner", joiner)
	return nil
}

// RunState reports the state of the run for a paired session, StateIdle
// when no run exists.
func (s *Sponsor) RunState(sessionID models.SessionID) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[sessionID]
	if !ok {
		return StateIdle
	}
	return run.state
}

func (s *Sponsor) sendConfirm(ctx context.Context, peer models.PeerID, sessionID models.SessionID, success bool, errMsg string) {
	msg := network.PairingMessage{
		SessionID: sessionID,
		Type:      network.MsgConfirm,
		Success:   success,
		Error:     errMsg,
	}
	if err := s.net.SendPairingMessage(ctx, peer, msg); err != nil {
		s.log.Warn(ctx, "confirm send failed", "session_id", sessionID, "error", err)
	}
}

func (s *Sponsor) fail(ctx context.Context, sessionID models.SessionID, reason string) {
	s.mu.Lock()
	run, ok := s.runs[sessionID]
	if ok && !run.state.Terminal() {
		run.state = StateFailed
	}
	s.mu.Unlock()
	if ok {
		run.timer.Stop()
	}
	s.log.Warn(ctx, "space access failed", "session_id", sessionID, "reason", reason)
}

func (s *Sponsor) expire(ctx context.Context, sessionID models.SessionID) {
	s.mu.Lock()
	run, ok := s.runs[sessionID]
	if !ok || run.state.Terminal() {
		s.mu.Unlock()
		return
	}
	run.state = StateExpired
	s.mu.Unlock()
	s.log.Warn(ctx, "space access expired", "session_id", sessionID)
}
