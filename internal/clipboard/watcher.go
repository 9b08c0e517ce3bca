package clipboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/cryptox"
	"github.com/uniclip/uniclipboard/internal/logging"
)

// Watcher polls the system clipboard, captures new snapshots, and forwards
// local changes to the outbound sync. Snapshots pushed by a peer are
// recognized through the origin port and never echoed back out.
type Watcher struct {
	sysclip  SystemClipboardPort
	origin   ChangeOriginPort
	capture  *CaptureService
	outbound *OutboundSync
	interval time.Duration
	lastHash string
	log      logging.Logger
}

// NewWatcher wires a Watcher polling at interval. outbound may be nil when
// the device has no network yet.
func NewWatcher(sysclip SystemClipboardPort, origin ChangeOriginPort, capture *CaptureService, outbound *OutboundSync, interval time.Duration, log logging.Logger) *Watcher {
	return &Watcher{
		sysclip:  sysclip,
		origin:   origin,
		capture:  capture,
		outbound: outbound,
		interval: interval,
		log:      log,
	}
}

// Start probes the clipboard once so a broken adapter fails fast, then runs
// the poll loop until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if _, err := w.sysclip.ReadSnapshot(); err != nil {
		return fmt.Errorf("failed to start clipboard watcher: %w", err)
	}
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Observe(ctx); err != nil {
				w.log.Error(ctx, "clipboard observation failed", "error", err)
			}
		}
	}
}

// Observe runs one watcher cycle: read, dedupe, capture, maybe broadcast.
// Returns nil result when the clipboard is unchanged or empty.
func (w *Watcher) Observe(ctx context.Context) (*CaptureResult, error) {
	snapshot, err := w.sysclip.ReadSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to read clipboard: %w", err)
	}
	if snapshot == nil || len(snapshot.Representations) == 0 {
		return nil, nil
	}

	// A pending origin marker covers this observation only; consume it even
	// when the content dedupes, or it would suppress the next local copy.
	origin := w.origin.ConsumeOriginOrDefault(OriginLocalCapture)

	hash := cryptox.SnapshotHash(*snapshot)
	if hash == w.lastHash {
		return nil, nil
	}
	w.lastHash = hash

	result, err := w.capture.Execute(ctx, *snapshot)
	if errors.Is(err, common.ErrNoUsableRepresentation) {
		w.log.Debug(ctx, "snapshot has no usable representation, skipped")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// Persist before emit; a remote-pushed snapshot ends here.
	if w.outbound != nil {
		if err := w.outbound.Push(ctx, *snapshot, origin); err != nil {
			w.log.Error(ctx, "outbound push failed", "entry_id", result.Entry.EntryID, "error", err)
		}
	}
	return result, nil
}

// LastHash exposes the dedup hash of the last accepted snapshot.
func (w *Watcher) LastHash() string { return w.lastHash }
