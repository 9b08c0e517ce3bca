package network

import (
	"context"
	"fmt"
	"sync"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/models"
)

// MemHub connects in-process nodes. Delivery is synchronous on the caller's
// goroutine, which keeps tests deterministic.
type MemHub struct {
	mu    sync.Mutex
	nodes map[models.PeerID]*MemNode
}

func NewMemHub() *MemHub {
	return &MemHub{nodes: map[models.PeerID]*MemNode{}}
}

// Join registers a node under peerID and returns its Port.
func (h *MemHub) Join(peerID models.PeerID, deviceID models.DeviceID) *MemNode {
	h.mu.Lock()
	defer h.mu.Unlock()
	node := &MemNode{hub: h, peerID: peerID, deviceID: deviceID}
	h.nodes[peerID] = node
	return node
}

func (h *MemHub) node(peer models.PeerID) (*MemNode, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	node, ok := h.nodes[peer]
	if !ok {
		return nil, fmt.Errorf("%w: peer %s not reachable", common.ErrTransport, peer)
	}
	return node, nil
}

func (h *MemHub) others(self models.PeerID) []*MemNode {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*MemNode
	for id, node := range h.nodes {
		if id != self {
			out = append(out, node)
		}
	}
	return out
}

// MemNode is one peer's view of the hub.
type MemNode struct {
	hub      *MemHub
	peerID   models.PeerID
	deviceID models.DeviceID

	mu              sync.Mutex
	deviceName      string
	clipboardSub    ClipboardHandler
	pairingSub      PairingHandler
	discoverySub    PeerHandler
	unpairedPeerIDs []models.PeerID
}

var _ Port = (*MemNode)(nil)

func (n *MemNode) LocalPeerID() models.PeerID { return n.peerID }

func (n *MemNode) SendClipboard(ctx context.Context, peer models.PeerID, msg ClipboardMessage) error {
	target, err := n.hub.node(peer)
	if err != nil {
		return err
	}
	target.deliverClipboard(ctx, msg)
	return nil
}

func (n *MemNode) BroadcastClipboard(ctx context.Context, msg ClipboardMessage) error {
	for _, target := range n.hub.others(n.peerID) {
		target.deliverClipboard(ctx, msg)
	}
	return nil
}

func (n *MemNode) SubscribeClipboard(handler ClipboardHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.clipboardSub = handler
}

func (n *MemNode) SendPairingMessage(ctx context.Context, peer models.PeerID, msg PairingMessage) error {
	target, err := n.hub.node(peer)
	if err != nil {
		return err
	}
	target.deliverPairing(ctx, n.peerID, msg)
	return nil
}

func (n *MemNode) SubscribePairing(handler PairingHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pairingSub = handler
}

func (n *MemNode) SubscribeDiscovery(handler PeerHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.discoverySub = handler
}

func (n *MemNode) AnnounceDeviceName(ctx context.Context, name string) error {
	n.mu.Lock()
	n.deviceName = name
	n.mu.Unlock()

	peer := DiscoveredPeer{PeerID: n.peerID, DeviceID: n.deviceID, DeviceName: name}
	for _, target := range n.hub.others(n.peerID) {
		target.deliverDiscovery(ctx, peer)
	}
	return nil
}

func (n *MemNode) Unpair(ctx context.Context, peer models.PeerID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unpairedPeerIDs = append(n.unpairedPeerIDs, peer)
	return nil
}

func (n *MemNode) deliverClipboard(ctx context.Context, msg ClipboardMessage) {
	n.mu.Lock()
	handler := n.clipboardSub
	n.mu.Unlock()
	if handler != nil {
		handler(ctx, msg)
	}
}

func (n *MemNode) deliverPairing(ctx context.Context, from models.PeerID, msg PairingMessage) {
	n.mu.Lock()
	handler := n.pairingSub
	n.mu.Unlock()
	if handler != nil {
		handler(ctx, from, msg)
	}
}

func (n *MemNode) deliverDiscovery(ctx context.Context, peer DiscoveredPeer) {
	n.mu.Lock()
	handler := n.discoverySub
	n.mu.Unlock()
	if handler != nil {
		handler(ctx, peer)
	}
}
