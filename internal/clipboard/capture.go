package clipboard

import (
	"context"
	"fmt"
	"time"

	"github.com/uniclip/uniclipboard/internal/cryptox"
	"github.com/uniclip/uniclipboard/internal/logging"
	"github.com/uniclip/uniclipboard/internal/models"
	"github.com/uniclip/uniclipboard/internal/repositories/entries"
	"github.com/uniclip/uniclipboard/internal/repositories/events"
	"github.com/uniclip/uniclipboard/internal/spool"
)

// CaptureResult reports what a capture persisted.
type CaptureResult struct {
	Entry     models.ClipboardEntry
	Event     models.ClipboardEvent
	Selection models.ClipboardSelection
	Staged    int
}

// CaptureService turns an observed snapshot into a persisted entry. Small
// payloads are inlined; larger ones go through the staging pipeline so the
// capture path never does I/O proportional to payload size.
type CaptureService struct {
	events          events.Repository
	entries         entries.Repository
	cache           *spool.Cache
	spooler         *spool.Spooler
	inlineThreshold int64
	deviceID        models.DeviceID
	now             func() time.Time
	log             logging.Logger
}

// NewCaptureService wires a CaptureService.
func NewCaptureService(eventsRepo events.Repository, entriesRepo entries.Repository, cache *spool.Cache, spooler *spool.Spooler, inlineThreshold int64, deviceID models.DeviceID, log logging.Logger) *CaptureService {
	return &CaptureService{
		events:          eventsRepo,
		entries:         entriesRepo,
		cache:           cache,
		spooler:         spooler,
		inlineThreshold: inlineThreshold,
		deviceID:        deviceID,
		now:             time.Now,
		log:             log,
	}
}

// Execute captures one snapshot. The selection policy runs first so an
// unusable snapshot aborts before anything is persisted.
func (s *CaptureService) Execute(ctx context.Context, snapshot models.SystemClipboardSnapshot) (*CaptureResult, error) {
	entryID := models.NewEntryID()
	selection, err := SelectRepresentations(entryID, snapshot)
	if err != nil {
		return nil, err
	}

	eventID := models.NewEventID()
	nowMs := s.now().UnixMilli()

	reps := make([]models.PersistedClipboardRepresentation, 0, len(snapshot.Representations))
	var toStage []models.ObservedClipboardRepresentation
	var totalSize int64
	for _, obs := range snapshot.Representations {
		row := models.PersistedClipboardRepresentation{
			ID:        obs.ID,
			EventID:   eventID,
			FormatID:  obs.FormatID,
			Mime:      obs.Mime,
			SizeBytes: obs.SizeBytes(),
		}
		if obs.SizeBytes() <= s.inlineThreshold {
			row.InlineData = obs.Bytes
			row.PayloadState = models.PayloadInline
		} else {
			row.PayloadState = models.PayloadStaged
			toStage = append(toStage, obs)
		}
		totalSize += row.SizeBytes
		reps = append(reps, row)
	}

	event := models.ClipboardEvent{
		EventID:      eventID,
		CapturedAtMs: nowMs,
		SourceDevice: s.deviceID,
		SnapshotHash: cryptox.SnapshotHash(snapshot),
	}
	entry := models.ClipboardEntry{
		EntryID:     entryID,
		EventID:     eventID,
		CreatedAtMs: nowMs,
		TotalSize:   totalSize,
	}

	if err := s.events.InsertEvent(ctx, event, reps); err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}
	if err := s.entries.SaveEntryAndSelection(ctx, entry, *selection); err != nil {
		return nil, fmt.Errorf("failed to save entry: %w", err)
	}

	// Rows before bytes: the worker's final state flip needs the Staged row
	// to exist, or it treats the spooled bytes as orphaned and drops them.
	for _, obs := range toStage {
		if !s.cache.Put(obs.ID, obs.Bytes) {
			s.log.Debug(ctx, "representation not cached", "rep_id", obs.ID, "size", obs.SizeBytes())
		}
		if !s.spooler.Enqueue(spool.Request{RepID: obs.ID, Data: obs.Bytes}) {
			s.log.Warn(ctx, "spooler queue full, representation stays staged", "rep_id", obs.ID)
		}
	}

	return &CaptureResult{Entry: entry, Event: event, Selection: *selection, Staged: len(toStage)}, nil
}
