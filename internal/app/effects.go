package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/uniclip/uniclipboard/internal/models"
	"github.com/uniclip/uniclipboard/internal/network"
	"github.com/uniclip/uniclipboard/internal/spaceaccess"
)

// effects is the setup machine's side-effect surface, backed by the app's
// subsystems.
type effects struct {
	app *App

	mu             sync.Mutex
	pairingSession models.SessionID
}

func (e *effects) CreateSpace(ctx context.Context, passphrase string) error {
	return e.app.Material.CreateSpace(ctx, passphrase)
}

func (e *effects) StartPairing(ctx context.Context, peer models.PeerID) (models.SessionID, error) {
	id, err := e.app.Pairing.StartPairing(ctx, peer)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	e.pairingSession = id
	e.mu.Unlock()
	return id, nil
}

func (e *effects) AbortPairing(ctx context.Context) {
	e.mu.Lock()
	id := e.pairingSession
	e.pairingSession = ""
	e.mu.Unlock()
	if id != "" {
		e.app.Pairing.Cancel(ctx, id, "setup cancelled")
	}
}

func (e *effects) RefreshPeers(ctx context.Context) {
	e.app.Log.Debug(ctx, "peer list refreshed", "count", len(e.app.Peers()))
}

// BeginJoin arms the joiner on the paired session, replays a key-slot offer
// that arrived before the passphrase was entered, and waits for the protocol
// to reach a terminal state.
func (e *effects) BeginJoin(ctx context.Context, peer models.PeerID, passphrase string) error {
	e.mu.Lock()
	sessionID := e.pairingSession
	e.mu.Unlock()
	if sessionID == "" {
		return fmt.Errorf("no paired session to join on")
	}

	e.app.Joiner.Start(ctx, sessionID, models.SpaceID(e.app.Config.SpaceID), peer, passphrase)

	if offer, ok := e.app.pendingOffer.take(sessionID); ok {
		if err := e.app.Joiner.HandleKeyslotOffer(ctx, offer); err != nil {
			return err
		}
	}

	deadline := time.Now().Add(e.app.Config.SpaceAccessTTL)
	for {
		switch e.app.Joiner.CurrentState() {
		case spaceaccess.StateGranted:
			return nil
		case spaceaccess.StateFailed, spaceaccess.StateExpired:
			return fmt.Errorf("space access was not granted")
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("space access timed out")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// peerDirectory accumulates discovery announcements.
type peerDirectory struct {
	mu    sync.Mutex
	peers map[models.PeerID]network.DiscoveredPeer
}

func newPeerDirectory() *peerDirectory {
	return &peerDirectory{peers: map[models.PeerID]network.DiscoveredPeer{}}
}

func (d *peerDirectory) add(peer network.DiscoveredPeer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.peers[peer.PeerID] = peer
}

func (d *peerDirectory) list() []network.DiscoveredPeer {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]network.DiscoveredPeer, 0, len(d.peers))
	for _, p := range d.peers {
		out = append(out, p)
	}
	return out
}

// pendingOfferBox parks at most one early key-slot offer per device.
type pendingOfferBox struct {
	mu    sync.Mutex
	offer *network.PairingMessage
}

func (b *pendingOfferBox) put(msg network.PairingMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.offer = &msg
}

func (b *pendingOfferBox) take(sessionID models.SessionID) (network.PairingMessage, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.offer == nil || b.offer.SessionID != sessionID {
		return network.PairingMessage{}, false
	}
	msg := *b.offer
	b.offer = nil
	return msg, true
}
