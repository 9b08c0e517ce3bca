// Package network defines the transport port the core speaks through and an
// in-process implementation used by tests and single-host setups. A real
// transport (LAN, relay) implements Port behind the same contract.
package network

import (
	"context"

	"github.com/uniclip/uniclipboard/internal/models"
)

// ClipboardMessage carries one encrypted snapshot between peers. The payload
// is an EncryptedBlob in its JSON form; the transport never sees plaintext.
type ClipboardMessage struct {
	MessageID         models.MessageID `json:"message_id"`
	OriginDeviceID    models.DeviceID  `json:"origin_device_id"`
	PayloadCiphertext []byte           `json:"payload_ciphertext"`
}

// ClipboardHandler receives inbound clipboard messages.
type ClipboardHandler func(ctx context.Context, msg ClipboardMessage)

// PairingHandler receives inbound pairing messages.
type PairingHandler func(ctx context.Context, from models.PeerID, msg PairingMessage)

// PeerHandler receives discovery events for peers appearing on the network.
type PeerHandler func(ctx context.Context, peer DiscoveredPeer)

// DiscoveredPeer is a peer visible on the transport, paired or not.
type DiscoveredPeer struct {
	PeerID     models.PeerID
	DeviceID   models.DeviceID
	DeviceName string
}

// Port is the transport boundary. All sends may block on the network and
// honor ctx; subscription handlers are invoked on transport goroutines and
// must not block for long.
type Port interface {
	LocalPeerID() models.PeerID

	SendClipboard(ctx context.Context, peer models.PeerID, msg ClipboardMessage) error
	BroadcastClipboard(ctx context.Context, msg ClipboardMessage) error
	SubscribeClipboard(handler ClipboardHandler)

	SendPairingMessage(ctx context.Context, peer models.PeerID, msg PairingMessage) error
	SubscribePairing(handler PairingHandler)
	SubscribeDiscovery(handler PeerHandler)

	AnnounceDeviceName(ctx context.Context, name string) error
	Unpair(ctx context.Context, peer models.PeerID) error
}
