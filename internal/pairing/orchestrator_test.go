package pairing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/identity"
	"github.com/uniclip/uniclipboard/internal/logging"
	"github.com/uniclip/uniclipboard/internal/models"
	"github.com/uniclip/uniclipboard/internal/network"
)

type fakeDeviceRepo struct {
	mu      sync.Mutex
	devices map[models.PeerID]models.PairedDevice
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{devices: map[models.PeerID]models.PairedDevice{}}
}

func (r *fakeDeviceRepo) Upsert(ctx context.Context, device models.PairedDevice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[device.PeerID] = device
	return nil
}

func (r *fakeDeviceRepo) Get(ctx context.Context, peerID models.PeerID) (*models.PairedDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[peerID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &d, nil
}

func (r *fakeDeviceRepo) List(ctx context.Context) ([]models.PairedDevice, error) { return nil, nil }

func (r *fakeDeviceRepo) SetState(ctx context.Context, peerID models.PeerID, state models.PairingState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[peerID]
	if !ok {
		return common.ErrNotFound
	}
	d.PairingState = state
	r.devices[peerID] = d
	return nil
}

func (r *fakeDeviceRepo) Touch(ctx context.Context, peerID models.PeerID, seenAt time.Time) error {
	return nil
}

func (r *fakeDeviceRepo) Delete(ctx context.Context, peerID models.PeerID) error { return nil }

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) notify(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) find(kind EventKind) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.Kind == kind {
			return e, true
		}
	}
	return Event{}, false
}

type peerFixture struct {
	orch    *Orchestrator
	node    *network.MemNode
	devices *fakeDeviceRepo
	events  *eventLog
	ident   *identity.Identity
}

func newPeerFixture(t *testing.T, hub *network.MemHub, peerID models.PeerID, deviceID models.DeviceID, name string) *peerFixture {
	t.Helper()
	ident, err := identity.LoadOrCreate(t.TempDir())
	require.NoError(t, err)

	node := hub.Join(peerID, deviceID)
	devices := newFakeDeviceRepo()
	events := &eventLog{}
	orch := NewOrchestrator(node, devices, ident, deviceID, name, time.Minute, events.notify, logging.NewNullLogger())
	node.SubscribePairing(func(ctx context.Context, from models.PeerID, msg network.PairingMessage) {
		orch.HandleMessage(ctx, from, msg)
	})
	return &peerFixture{orch: orch, node: node, devices: devices, events: events, ident: ident}
}

func TestPairingHappyPath(t *testing.T) {
	ctx := context.Background()
	hub := network.NewMemHub()
	a := newPeerFixture(t, hub, "peer-a", "device-a", "Laptop")
	b := newPeerFixture(t, hub, "peer-b", "device-b", "Phone")

	sessionID, err := a.orch.StartPairing(ctx, "peer-b")
	require.NoError(t, err)

	// The responder generated a PIN and notified its user; the initiator
	// received the challenge and derived the short code.
	incoming, ok := b.events.find(EventIncomingRequest)
	require.True(t, ok)
	require.Len(t, incoming.Pin, 6)
	require.Equal(t, "Laptop", incoming.DeviceName)

	codeReady, ok := a.events.find(EventShortCodeReady)
	require.True(t, ok)
	require.NotEmpty(t, codeReady.ShortCode)
	require.Equal(t, incoming.ShortCode, codeReady.ShortCode)

	require.NoError(t, b.orch.AcceptIncoming(ctx, sessionID))
	require.NoError(t, a.orch.SubmitPin(ctx, sessionID, incoming.Pin))

	stateA, _ := a.orch.SessionState(sessionID)
	stateB, _ := b.orch.SessionState(sessionID)
	require.Equal(t, StatePaired, stateA)
	require.Equal(t, StatePaired, stateB)

	// Both sides persisted the peer as trusted.
	devA, err := a.devices.Get(ctx, "peer-b")
	require.NoError(t, err)
	require.Equal(t, models.PairingTrusted, devA.PairingState)
	require.Equal(t, "Phone", devA.DeviceName)

	devB, err := b.devices.Get(ctx, "peer-a")
	require.NoError(t, err)
	require.Equal(t, models.PairingTrusted, devB.PairingState)
}

func TestPairingWrongPinFailsInitiatorAndExpiresResponder(t *testing.T) {
	ctx := context.Background()
	hub := network.NewMemHub()
	a := newPeerFixture(t, hub, "peer-a", "device-a", "Laptop")
	b := newPeerFixture(t, hub, "peer-b", "device-b", "Phone")

	sessionID, err := a.orch.StartPairing(ctx, "peer-b")
	require.NoError(t, err)

	incoming, ok := b.events.find(EventIncomingRequest)
	require.True(t, ok)
	require.NoError(t, b.orch.AcceptIncoming(ctx, sessionID))

	wrong := "654321"
	if incoming.Pin == wrong {
		wrong = "123456"
	}
	err = a.orch.SubmitPin(ctx, sessionID, wrong)
	require.Error(t, err)

	stateA, _ := a.orch.SessionState(sessionID)
	require.Equal(t, StateFailed, stateA)

	// The responder never saw a valid Response and times out.
	stateB, _ := b.orch.SessionState(sessionID)
	require.Equal(t, StatePendingResponse, stateB)

	b.orch.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	b.orch.ExpireStale(ctx)
	stateB, _ = b.orch.SessionState(sessionID)
	require.Equal(t, StateExpired, stateB)
}

func TestExpireStalePrunesTerminalSessions(t *testing.T) {
	ctx := context.Background()
	hub := network.NewMemHub()
	a := newPeerFixture(t, hub, "peer-a", "device-a", "Laptop")
	hub.Join("peer-b", "device-b")

	sessionID, err := a.orch.StartPairing(ctx, "peer-b")
	require.NoError(t, err)
	a.orch.Cancel(ctx, sessionID, "user abort")

	state, ok := a.orch.SessionState(sessionID)
	require.True(t, ok)
	require.Equal(t, StateFailed, state)

	// Past the TTL the terminal session is dropped from the map.
	a.orch.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	a.orch.ExpireStale(ctx)
	_, ok = a.orch.SessionState(sessionID)
	require.False(t, ok)

	// The peer slot is free for a fresh session afterwards.
	fresh, err := a.orch.StartPairing(ctx, "peer-b")
	require.NoError(t, err)
	state, ok = a.orch.SessionState(fresh)
	require.True(t, ok)
	require.True(t, state.Active())
}

func TestPairingShortCodeIsTranscriptBound(t *testing.T) {
	ctx := context.Background()
	hub := network.NewMemHub()
	a := newPeerFixture(t, hub, "peer-a", "device-a", "Laptop")
	_ = newPeerFixture(t, hub, "peer-b", "device-b", "Phone")

	first, err := a.orch.StartPairing(ctx, "peer-b")
	require.NoError(t, err)
	firstCode, _ := a.events.find(EventShortCodeReady)
	a.orch.Cancel(ctx, first, "test restart")

	_, err = a.orch.StartPairing(ctx, "peer-b")
	require.NoError(t, err)

	a.events.mu.Lock()
	var lastCode Event
	for _, e := range a.events.events {
		if e.Kind == EventShortCodeReady {
			lastCode = e
		}
	}
	a.events.mu.Unlock()
	require.NotEqual(t, firstCode.ShortCode, lastCode.ShortCode)
}

func TestDirectionRule(t *testing.T) {
	hub := network.NewMemHub()
	a := newPeerFixture(t, hub, "peer-a", "device-a", "Laptop")
	b := newPeerFixture(t, hub, "peer-b", "device-b", "Phone")

	require.True(t, a.orch.ShouldInitiate("device-b"))
	require.False(t, b.orch.ShouldInitiate("device-a"))
}

func TestIncomingRequestSupersedesOutgoing(t *testing.T) {
	ctx := context.Background()
	hub := network.NewMemHub()
	b := newPeerFixture(t, hub, "peer-b", "device-b", "Phone")
	hub.Join("peer-a", "device-a") // reachable, no handler

	// B holds an outgoing session toward a peer that has not answered.
	outgoing, err := b.orch.StartPairing(ctx, "peer-a")
	require.NoError(t, err)

	// The same peer's request arrives; incoming wins.
	incoming := models.NewSessionID()
	b.orch.HandleMessage(ctx, "peer-a", network.PairingMessage{
		SessionID:      incoming,
		Type:           network.MsgRequest,
		DeviceName:     "Laptop",
		DeviceID:       "device-a",
		IdentityPubkey: b.ident.Public,
		Nonce:          []byte("nonce-from-a-00"),
	})

	stateOut, _ := b.orch.SessionState(outgoing)
	require.Equal(t, StateFailed, stateOut)
	stateIn, _ := b.orch.SessionState(incoming)
	require.Equal(t, StateIncomingRequest, stateIn)
}

func TestSecondRequestFromBusyPeerGetsBusy(t *testing.T) {
	ctx := context.Background()
	hub := network.NewMemHub()
	b := newPeerFixture(t, hub, "peer-b", "device-b", "Phone")

	var busy []network.PairingMessage
	var mu sync.Mutex
	hub.Join("peer-a", "device-a").SubscribePairing(func(ctx context.Context, from models.PeerID, msg network.PairingMessage) {
		if msg.Type == network.MsgBusy {
			mu.Lock()
			busy = append(busy, msg)
			mu.Unlock()
		}
	})

	first := models.NewSessionID()
	b.orch.HandleMessage(ctx, "peer-a", network.PairingMessage{
		SessionID: first, Type: network.MsgRequest, DeviceID: "device-a",
		IdentityPubkey: b.ident.Public, Nonce: []byte("nonce-1"),
	})
	second := models.NewSessionID()
	b.orch.HandleMessage(ctx, "peer-a", network.PairingMessage{
		SessionID: second, Type: network.MsgRequest, DeviceID: "device-a",
		IdentityPubkey: b.ident.Public, Nonce: []byte("nonce-2"),
	})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, busy, 1)
	require.Equal(t, second, busy[0].SessionID)
}

func TestRejectTerminatesBothSides(t *testing.T) {
	ctx := context.Background()
	hub := network.NewMemHub()
	a := newPeerFixture(t, hub, "peer-a", "device-a", "Laptop")
	b := newPeerFixture(t, hub, "peer-b", "device-b", "Phone")

	sessionID, err := a.orch.StartPairing(ctx, "peer-b")
	require.NoError(t, err)

	require.NoError(t, b.orch.Reject(ctx, sessionID, "not now"))

	stateA, _ := a.orch.SessionState(sessionID)
	stateB, _ := b.orch.SessionState(sessionID)
	require.Equal(t, StateRejected, stateA)
	require.Equal(t, StateRejected, stateB)

	rejected, ok := a.events.find(EventRejected)
	require.True(t, ok)
	require.Equal(t, "not now", rejected.Reason)
}

func TestUnpairRevokesDevice(t *testing.T) {
	ctx := context.Background()
	hub := network.NewMemHub()
	a := newPeerFixture(t, hub, "peer-a", "device-a", "Laptop")

	require.NoError(t, a.devices.Upsert(ctx, models.PairedDevice{
		PeerID:       "peer-b",
		PairingState: models.PairingTrusted,
		DeviceName:   "Phone",
	}))

	require.NoError(t, a.orch.Unpair(ctx, "peer-b"))

	dev, err := a.devices.Get(ctx, "peer-b")
	require.NoError(t, err)
	require.Equal(t, models.PairingRevoked, dev.PairingState)
}

func TestUnpairUnknownPeerFails(t *testing.T) {
	ctx := context.Background()
	hub := network.NewMemHub()
	a := newPeerFixture(t, hub, "peer-a", "device-a", "Laptop")

	err := a.orch.Unpair(ctx, "peer-z")
	require.ErrorIs(t, err, common.ErrNotFound)
}
