package models

import "time"

// PairingState tracks the trust status of a known peer device.
type PairingState string

const (
	PairingPending PairingState = "pending"
	PairingTrusted PairingState = "trusted"
	PairingRevoked PairingState = "revoked"
)

// PairedDevice is a peer this device has completed (or started) pairing with.
type PairedDevice struct {
	PeerID              PeerID
	PairingState        PairingState
	IdentityFingerprint string
	PairedAt            time.Time
	LastSeenAt          *time.Time
	DeviceName          string
}
