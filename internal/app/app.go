// Package app wires the UniClipboard subsystems into a running agent: the
// local database and repositories, the encryption session, the snapshot
// pipeline, the clipboard watcher, and the pairing and space-access
// protocols behind a single transport port.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/uniclip/uniclipboard/internal/blobstore"
	"github.com/uniclip/uniclipboard/internal/clipboard"
	"github.com/uniclip/uniclipboard/internal/config"
	"github.com/uniclip/uniclipboard/internal/encryption"
	"github.com/uniclip/uniclipboard/internal/identity"
	"github.com/uniclip/uniclipboard/internal/keyslot"
	"github.com/uniclip/uniclipboard/internal/keystore"
	"github.com/uniclip/uniclipboard/internal/lifecycle"
	"github.com/uniclip/uniclipboard/internal/logging"
	"github.com/uniclip/uniclipboard/internal/models"
	"github.com/uniclip/uniclipboard/internal/network"
	"github.com/uniclip/uniclipboard/internal/pairing"
	"github.com/uniclip/uniclipboard/internal/repositories"
	"github.com/uniclip/uniclipboard/internal/repositories/blobs"
	"github.com/uniclip/uniclipboard/internal/repositories/entries"
	"github.com/uniclip/uniclipboard/internal/repositories/events"
	"github.com/uniclip/uniclipboard/internal/repositories/paireddevices"
	"github.com/uniclip/uniclipboard/internal/repositories/representations"
	"github.com/uniclip/uniclipboard/internal/repositories/spaces"
	"github.com/uniclip/uniclipboard/internal/setup"
	"github.com/uniclip/uniclipboard/internal/spaceaccess"
	"github.com/uniclip/uniclipboard/internal/spool"
)

// App owns every long-lived component of the agent. Fields are exported so
// the CLI and tests can reach individual subsystems; construction and
// startup order stay in this package.
type App struct {
	Config   *config.Config
	Log      logging.Logger
	DB       *sql.DB
	DeviceID models.DeviceID
	Identity *identity.Identity

	Session  *encryption.Session
	Material *encryption.MaterialService

	Events  events.Repository
	Entries entries.Repository
	Reps    representations.Repository
	Blobs   blobs.Repository
	Devices paireddevices.Repository
	Spaces  spaces.Repository

	Cache   *spool.Cache
	Spooler *spool.Spooler
	Worker  *spool.Worker
	Scanner *spool.Scanner
	Janitor *spool.Janitor

	Net      network.Port
	SysClip  clipboard.SystemClipboardPort
	Origin   *clipboard.MemoryOriginPort
	Capture  *clipboard.CaptureService
	Outbound *clipboard.OutboundSync
	Inbound  *clipboard.InboundSync
	Watcher  *clipboard.Watcher

	Pairing *pairing.Orchestrator
	Sponsor *spaceaccess.Sponsor
	Joiner  *spaceaccess.Joiner

	Onboarding  *setup.OnboardingStore
	Coordinator *lifecycle.Coordinator
	Setup       *setup.Orchestrator

	peers        *peerDirectory
	pendingOffer *pendingOfferBox
	events       chan pairing.Event

	runCtx context.Context
}

// New builds the full component graph under cfg.VaultDir. The transport and
// the system clipboard adapter are injected; everything else is owned here.
func New(ctx context.Context, cfg *config.Config, net network.Port, sysclip clipboard.SystemClipboardPort, log logging.Logger) (*App, error) {
	if err := os.MkdirAll(cfg.VaultDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create vault dir: %w", err)
	}

	ident, err := identity.LoadOrCreate(cfg.VaultDir)
	if err != nil {
		return nil, err
	}

	db, err := repositories.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:       cfg,
		Log:          log,
		DB:           db,
		DeviceID:     models.DeviceID(ident.Fingerprint()),
		Identity:     ident,
		Net:          net,
		SysClip:      sysclip,
		peers:        newPeerDirectory(),
		pendingOffer: &pendingOfferBox{},
		events:       make(chan pairing.Event, 16),
	}

	a.Session = encryption.NewSession()

	keystorage, err := keystore.NewFileKeystore(filepath.Join(cfg.VaultDir, "keystore.json"))
	if err != nil {
		db.Close()
		return nil, err
	}
	slots, err := keyslot.NewFileStore(cfg.VaultDir)
	if err != nil {
		db.Close()
		return nil, err
	}
	state, err := encryption.NewStateStore(cfg.VaultDir)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.Material = encryption.NewMaterialService(
		models.KeyScope{ProfileID: cfg.ProfileID},
		keystore.NewKeyring(keystorage), slots, state, a.Session, log)

	a.Entries = entries.NewSQLiteRepository(db)
	a.Reps = representations.NewSQLiteRepository(db)
	a.Blobs = blobs.NewSQLiteRepository(db)
	a.Devices = paireddevices.NewSQLiteRepository(db)
	a.Spaces = spaces.NewSQLiteRepository(db)
	a.Events = events.NewEncryptedRepository(events.NewSQLiteRepository(db), a.Session)

	fsStore, err := blobstore.NewFSStore(cfg.BlobDir)
	if err != nil {
		db.Close()
		return nil, err
	}
	writer := blobstore.NewWriter(blobstore.NewEncryptingStore(fsStore, a.Session), a.Blobs)

	manager, err := spool.NewManager(cfg.SpoolDir, cfg.SpoolMaxBytes)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.Cache = spool.NewCache(cfg.CacheMaxCount, cfg.CacheMaxBytes)
	a.Worker = spool.NewWorker(cfg.WorkerQueueSize, a.Cache, manager, writer, a.Reps,
		cfg.WorkerRetries, cfg.WorkerBackoff, log)
	a.Spooler = spool.NewSpooler(cfg.WorkerQueueSize, manager, a.Cache, a.Worker, log)
	a.Scanner = spool.NewScanner(manager, a.Reps, a.Worker, log)
	ttlDays := int(cfg.SpoolTTL / (24 * time.Hour))
	a.Janitor = spool.NewJanitor(manager, a.Reps, ttlDays, cfg.JanitorInterval, log)

	a.Origin = clipboard.NewMemoryOriginPort()
	a.Capture = clipboard.NewCaptureService(a.Events, a.Entries, a.Cache, a.Spooler,
		cfg.InlineThresholdBytes, a.DeviceID, log)
	a.Outbound = clipboard.NewOutboundSync(a.Session, net, a.DeviceID, log)
	a.Inbound = clipboard.NewInboundSync(a.Session, sysclip, a.Origin, a.DeviceID, log)
	a.Watcher = clipboard.NewWatcher(sysclip, a.Origin, a.Capture, a.Outbound, cfg.WatchInterval, log)

	a.Pairing = pairing.NewOrchestrator(net, a.Devices, ident, a.DeviceID, cfg.DeviceName,
		cfg.PairingTTL, a.onPairingEvent, log)
	a.Sponsor = spaceaccess.NewSponsor(a.Session, slots, a.Spaces, net,
		func() spaceaccess.TimerPort { return spaceaccess.NewWallTimer() }, cfg.SpaceAccessTTL, log)
	a.Joiner = spaceaccess.NewJoiner(a.Material, a.Spaces, net,
		spaceaccess.NewWallTimer(), cfg.SpaceAccessTTL, log)

	a.Onboarding, err = setup.NewOnboardingStore(cfg.VaultDir)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.Coordinator = lifecycle.NewCoordinator(a.startWatcher, a.startNetwork, a.announce,
		a.onLifecycleEvent, log)
	a.Setup = setup.NewOrchestrator(&effects{app: a}, a.Onboarding, a.Coordinator, log)

	return a, nil
}

// Start launches the snapshot pipeline and recovers any spool files left by
// a previous run. The watcher and network handlers start later through the
// lifecycle coordinator, once a session is ready.
func (a *App) Start(ctx context.Context) error {
	a.runCtx = ctx

	go a.Spooler.Run(ctx)
	go a.Worker.Run(ctx)
	go a.Janitor.Run(ctx)
	go a.runPairingSweep(ctx)

	// Pairing must work before setup completes; only clipboard sync waits
	// for a ready session.
	a.Net.SubscribePairing(a.routePairing)
	a.Net.SubscribeDiscovery(func(ctx context.Context, peer network.DiscoveredPeer) {
		a.peers.add(peer)
		if _, err := a.Devices.Get(ctx, peer.PeerID); err == nil {
			if err := a.Devices.Touch(ctx, peer.PeerID, time.Now()); err != nil {
				a.Log.Warn(ctx, "failed to record peer last-seen", "peer", peer.PeerID, "error", err)
			}
		}
	})

	requeued, err := a.Scanner.ScanAndRecover(ctx)
	if err != nil {
		a.Log.Warn(ctx, "spool recovery incomplete", "error", err)
	} else if requeued > 0 {
		a.Log.Info(ctx, "spool recovery requeued representations", "count", requeued)
	}

	state, err := a.Onboarding.Load()
	if err != nil {
		return err
	}
	if state.HasCompleted && a.Session.IsReady() {
		return a.Coordinator.EnsureReady(ctx)
	}
	return nil
}

// runPairingSweep expires stalled pairing sessions so a peer's active slot
// frees up without a restart. Runs at half the TTL.
func (a *App) runPairingSweep(ctx context.Context) {
	interval := a.Config.PairingTTL / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Pairing.ExpireStale(ctx)
		}
	}
}

// Unlock derives the master key from the passphrase, loads it into the
// session, and brings the agent to the ready state.
func (a *App) Unlock(ctx context.Context, passphrase string) error {
	if err := a.Material.Unlock(ctx, passphrase); err != nil {
		return err
	}
	return a.Coordinator.EnsureReady(ctx)
}

// PairingEvents exposes pairing notifications for the UI layer. The channel
// is buffered; events are dropped when nobody drains it.
func (a *App) PairingEvents() <-chan pairing.Event {
	return a.events
}

// Peers lists peers currently visible on the transport.
func (a *App) Peers() []network.DiscoveredPeer {
	return a.peers.list()
}

// Close releases the database. Goroutines stop with the context passed to
// Start.
func (a *App) Close() error {
	return a.DB.Close()
}

func (a *App) startWatcher(ctx context.Context) error {
	if a.runCtx != nil {
		ctx = a.runCtx
	}
	return a.Watcher.Start(ctx)
}

func (a *App) startNetwork(ctx context.Context) error {
	a.Net.SubscribeClipboard(func(ctx context.Context, msg network.ClipboardMessage) {
		if err := a.Inbound.Handle(ctx, msg); err != nil {
			a.Log.Warn(ctx, "inbound clipboard dropped", "message_id", msg.MessageID, "error", err)
		}
	})
	return nil
}

func (a *App) announce(ctx context.Context) error {
	return a.Net.AnnounceDeviceName(ctx, a.Config.DeviceName)
}

// routePairing demultiplexes the shared pairing channel: key-slot traffic
// goes to the space-access roles, everything else to the pairing
// orchestrator. A key-slot offer arriving before the joiner is armed (the
// sponsor sends it right after pairing, the joiner waits for the passphrase)
// is parked and replayed when the join starts.
func (a *App) routePairing(ctx context.Context, from models.PeerID, msg network.PairingMessage) {
	switch msg.Type {
	case network.MsgKeyslotOffer:
		if a.Joiner.CurrentState() != spaceaccess.StateAwaitingOffer {
			a.pendingOffer.put(msg)
			return
		}
		if err := a.Joiner.HandleKeyslotOffer(ctx, msg); err != nil {
			a.Log.Warn(ctx, "keyslot offer rejected", "session_id", msg.SessionID, "error", err)
		}
	case network.MsgChallengeResponse:
		if err := a.Sponsor.HandleChallengeResponse(ctx, msg); err != nil {
			a.Log.Warn(ctx, "challenge response rejected", "session_id", msg.SessionID, "error", err)
		}
	case network.MsgConfirm:
		// Confirm is shared by pairing and space access; the joiner only
		// accepts its own session, everything else belongs to pairing.
		if err := a.Joiner.HandleConfirm(ctx, msg); err != nil {
			a.Pairing.HandleMessage(ctx, from, msg)
		}
	default:
		a.Pairing.HandleMessage(ctx, from, msg)
	}
}

// onPairingEvent forwards orchestrator notifications to the UI channel and,
// when this device already holds the space key, starts the sponsor side of
// space access for the freshly paired peer.
func (a *App) onPairingEvent(ev pairing.Event) {
	select {
	case a.events <- ev:
	default:
	}

	if ev.Kind == pairing.EventPaired && a.Session.IsReady() {
		ctx := a.runCtx
		if ctx == nil {
			ctx = context.Background()
		}
		if err := a.Sponsor.Start(ctx, ev.SessionID, models.SpaceID(a.Config.SpaceID), ev.PeerID); err != nil {
			a.Log.Warn(ctx, "sponsor start failed", "session_id", ev.SessionID, "error", err)
		}
	}
}

func (a *App) onLifecycleEvent(name lifecycle.EventName, message string) {
	ctx := a.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	a.Log.Info(ctx, "lifecycle event", "event", string(name), "message", message)
}
