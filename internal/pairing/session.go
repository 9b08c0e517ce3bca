package pairing

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/uniclip/uniclipboard/internal/cryptox"
	"github.com/uniclip/uniclipboard/internal/models"
)

const protocolVersion byte = 1

const nonceLen = 16

// Session is the in-memory record of one pairing attempt. All mutation goes
// through the orchestrator under its lock.
type Session struct {
	ID             models.SessionID
	Role           Role
	State          State
	PeerID         models.PeerID
	PeerDeviceID   models.DeviceID
	PeerDeviceName string

	LocalNonce []byte
	PeerNonce  []byte
	PeerPubkey ed25519.PublicKey

	// Pin is set on the responder (it generated it) and shown to the user.
	// PinHash is set on the initiator from the received challenge.
	Pin     string
	PinHash []byte

	StartedAt time.Time
}

func newSession(id models.SessionID, role Role, peer models.PeerID, now time.Time) (*Session, error) {
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate session nonce: %w", err)
	}
	return &Session{
		ID:         id,
		Role:       role,
		State:      StateIdle,
		PeerID:     peer,
		LocalNonce: nonce,
		StartedAt:  now,
	}, nil
}

// ShortCode derives the transcript-bound code both users compare on screen.
// It needs both nonces and both public keys, so it is available once the
// challenge has been exchanged.
func (s *Session) ShortCode(localPub ed25519.PublicKey) string {
	var initNonce, respNonce []byte
	var initPub, respPub ed25519.PublicKey
	if s.Role == RoleInitiator {
		initNonce, respNonce = s.LocalNonce, s.PeerNonce
		initPub, respPub = localPub, s.PeerPubkey
	} else {
		initNonce, respNonce = s.PeerNonce, s.LocalNonce
		initPub, respPub = s.PeerPubkey, localPub
	}
	return cryptox.PairingShortCode(s.ID, initNonce, respNonce, initPub, respPub, protocolVersion)
}

// PeerFingerprint renders the peer's identity fingerprint, empty until the
// peer's public key is known.
func (s *Session) PeerFingerprint() string {
	if len(s.PeerPubkey) == 0 {
		return ""
	}
	return cryptox.IdentityFingerprint(s.PeerPubkey)
}
