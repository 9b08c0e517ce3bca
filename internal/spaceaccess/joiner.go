package spaceaccess

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/cryptox"
	"github.com/uniclip/uniclipboard/internal/encryption"
	"github.com/uniclip/uniclipboard/internal/logging"
	"github.com/uniclip/uniclipboard/internal/models"
	"github.com/uniclip/uniclipboard/internal/network"
	"github.com/uniclip/uniclipboard/internal/repositories/spaces"
)

// Joiner runs the receiving side: it holds only the passphrase and obtains
// the master key from the sponsor's key slot. Key material is committed
// locally only after the sponsor confirms the proof.
type Joiner struct {
	mu         sync.Mutex
	state      State
	sessionID  models.SessionID
	spaceID    models.SpaceID
	sponsor    models.PeerID
	passphrase string
	slot       *models.KeySlotFile

	material *encryption.MaterialService
	spaces   spaces.Repository
	net      network.Port
	timer    TimerPort
	ttl      time.Duration
	now      func() time.Time
	log      logging.Logger
}

func NewJoiner(material *encryption.MaterialService, spacesRepo spaces.Repository, net network.Port, timer TimerPort, ttl time.Duration, log logging.Logger) *Joiner {
	return &Joiner{
		state:    StateIdle,
		material: material,
		spaces:   spacesRepo,
		net:      net,
		timer:    timer,
		ttl:      ttl,
		now:      time.Now,
		log:      log,
	}
}

// Start arms the joiner for an incoming keyslot offer on the paired session.
func (j *Joiner) Start(ctx context.Context, sessionID models.SessionID, spaceID models.SpaceID, sponsor models.PeerID, passphrase string) {
	j.mu.Lock()
	j.state = StateAwaitingOffer
	j.sessionID = sessionID
	j.spaceID = spaceID
	j.sponsor = sponsor
	j.passphrase = passphrase
	j.mu.Unlock()
	j.timer.Start(j.ttl, func() { j.expire(context.Background()) })
}

// HandleKeyslotOffer unwraps the master key from the offered slot and sends
// the proof. A wrong passphrase fails the run without leaking which check
// failed to the sponsor.
func (j *Joiner) HandleKeyslotOffer(ctx context.Context, msg network.PairingMessage) error {
	j.mu.Lock()
	if j.state != StateAwaitingOffer || msg.SessionID != j.sessionID {
		j.mu.Unlock()
		return fmt.Errorf("%w: unexpected keyslot offer", common.ErrInvalidParameter)
	}
	sessionID, spaceID, sponsor, passphrase := j.sessionID, j.spaceID, j.sponsor, j.passphrase
	j.mu.Unlock()

	if msg.KeyslotFile == nil || msg.KeyslotFile.WrappedMasterKey == nil || len(msg.Challenge) != challengeLen {
		j.fail(ctx, "malformed keyslot offer")
		return fmt.Errorf("%w: keyslot offer incomplete", common.ErrKeyMaterialCorrupt)
	}

	kek, err := cryptox.DeriveKek(passphrase, msg.KeyslotFile.Salt, msg.KeyslotFile.Kdf)
	if err != nil {
		j.fail(ctx, "kek derivation failed")
		return err
	}
	mk, err := cryptox.UnwrapMasterKey(kek, msg.KeyslotFile.WrappedMasterKey)
	if err != nil {
		j.fail(ctx, "passphrase rejected")
		if errors.Is(err, common.ErrWrongPassphrase) {
			return err
		}
		return fmt.Errorf("failed to unwrap master key: %w", err)
	}

	proof, err := cryptox.Encrypt(mk, msg.Challenge, cryptox.SpaceAccessProofAad(sessionID, spaceID))
	if err != nil {
		j.fail(ctx, "proof construction failed")
		return fmt.Errorf("failed to build access proof: %w", err)
	}

	j.mu.Lock()
	j.state = StateAwaitingConfirm
	j.slot = msg.KeyslotFile
	j.mu.Unlock()

	response := network.PairingMessage{
		SessionID:          sessionID,
		Type:               network.MsgChallengeResponse,
		EncryptedChallenge: proof,
	}
	if err := j.net.SendPairingMessage(ctx, sponsor, response); err != nil {
		j.fail(ctx, "proof send failed")
		return fmt.Errorf("%w: failed to send challenge response: %v", common.ErrTransport, err)
	}
	return nil
}

// HandleConfirm commits the key material locally once the sponsor accepted
// the proof. Initialization happens exactly once; the material service
// rejects a second run.
func (j *Joiner) HandleConfirm(ctx context.Context, msg network.PairingMessage) error {
	j.mu.Lock()
	if j.state != StateAwaitingConfirm || msg.SessionID != j.sessionID {
		j.mu.Unlock()
		return fmt.Errorf("%w: unexpected confirm", common.ErrInvalidParameter)
	}
	spaceID, passphrase, slot := j.spaceID, j.passphrase, j.slot
	j.mu.Unlock()

	if !msg.Success {
		j.fail(ctx, msg.Error)
		return fmt.Errorf("sponsor rejected access: %s", msg.Error)
	}

	if _, err := j.material.InstallFromKeySlot(ctx, slot, passphrase); err != nil {
		j.fail(ctx, "key material install failed")
		return err
	}
	if err := j.spaces.PersistJoinerAccess(ctx, spaceID, j.now().UnixMilli()); err != nil {
		j.fail(ctx, "access persistence failed")
		return fmt.Errorf("failed to persist joiner access: %w", err)
	}

	j.mu.Lock()
	j.state = StateGranted
	j.passphrase = ""
	j.slot = nil
	j.mu.Unlock()
	j.timer.Stop()
	j.log.Info(ctx, "space access obtained", "space_id", spaceID)
	return nil
}

// CurrentState reports the joiner's protocol state.
func (j *Joiner) CurrentState() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *Joiner) fail(ctx context.Context, reason string) {
	j.mu.Lock()
	if !j.state.Terminal() {
		j.state = StateFailed
	}
	j.passphrase = ""
	j.slot = nil
	j.mu.Unlock()
	j.timer.Stop()
	j.log.Warn(ctx, "space access failed", "reason", reason)
}

func (j *Joiner) expire(ctx context.Context) {
	j.mu.Lock()
	if j.state.Terminal() {
		j.mu.Unlock()
		return
	}
	j.state = StateExpired
	j.passphrase = ""
	j.slot = nil
	j.mu.Unlock()
	j.log.Warn(ctx, "space access expired", "session_id", j.sessionID)
}
