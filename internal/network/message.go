package network

import (
	"fmt"

	"github.com/uniclip/uniclipboard/internal/models"
)

// PairingMessageType discriminates the pairing wire variants.
type PairingMessageType string

const (
	MsgRequest           PairingMessageType = "request"
	MsgChallenge         PairingMessageType = "challenge"
	MsgKeyslotOffer      PairingMessageType = "keyslot_offer"
	MsgChallengeResponse PairingMessageType = "challenge_response"
	MsgResponse          PairingMessageType = "response"
	MsgConfirm           PairingMessageType = "confirm"
	MsgReject            PairingMessageType = "reject"
	MsgCancel            PairingMessageType = "cancel"
	MsgBusy              PairingMessageType = "busy"
)

// PairingMessage is the wire schema for the pairing and space-access
// protocols. SessionID is always the first field; the transport routes by
// it. Which other fields are set depends on Type.
type PairingMessage struct {
	SessionID models.SessionID   `json:"session_id"`
	Type      PairingMessageType `json:"type"`

	// Request and Challenge.
	DeviceName     string          `json:"device_name,omitempty"`
	DeviceID       models.DeviceID `json:"device_id,omitempty"`
	PeerID         models.PeerID   `json:"peer_id,omitempty"`
	IdentityPubkey []byte          `json:"identity_pubkey,omitempty"`
	Nonce          []byte          `json:"nonce,omitempty"`

	// Challenge only. Zero-padded six decimal digits.
	Pin string `json:"pin,omitempty"`

	// KeyslotOffer.
	KeyslotFile *models.KeySlotFile `json:"keyslot_file,omitempty"`
	Challenge   []byte              `json:"challenge,omitempty"`

	// ChallengeResponse.
	EncryptedChallenge *models.EncryptedBlob `json:"encrypted_challenge,omitempty"`

	// Response.
	PinHash  []byte `json:"pin_hash,omitempty"`
	Accepted bool   `json:"accepted,omitempty"`

	// Confirm.
	Success          bool   `json:"success,omitempty"`
	SenderDeviceName string `json:"sender_device_name,omitempty"`

	// Confirm, Reject, Cancel, Busy.
	Error  string `json:"error,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// String renders the message for logs with pin, pin hash, and key material
// redacted.
func (m PairingMessage) String() string {
	return fmt.Sprintf("PairingMessage{session=%s type=%s device=%s pin=%s pin_hash=%s keyslot=%s}",
		m.SessionID, m.Type, m.DeviceID,
		redactIf(m.Pin != ""), redactIf(len(m.PinHash) > 0), redactIf(m.KeyslotFile != nil))
}

func (m PairingMessage) GoString() string { return m.String() }

func redactIf(present bool) string {
	if present {
		return "<redacted>"
	}
	return "-"
}
