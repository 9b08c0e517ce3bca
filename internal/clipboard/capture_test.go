package clipboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/uniclip/uniclipboard/internal/logging"
	"github.com/uniclip/uniclipboard/internal/models"
	"github.com/uniclip/uniclipboard/internal/spool"
)

// fakeEventsRepo records inserts and supports read-back.
type fakeEventsRepo struct {
	mu       sync.Mutex
	events   map[models.EventID]models.ClipboardEvent
	reps     map[models.EventID][]models.PersistedClipboardRepresentation
	order    []string
	onInsert func()
}

func newFakeEventsRepo() *fakeEventsRepo {
	return &fakeEventsRepo{
		events: map[models.EventID]models.ClipboardEvent{},
		reps:   map[models.EventID][]models.PersistedClipboardRepresentation{},
	}
}

func (r *fakeEventsRepo) InsertEvent(ctx context.Context, event models.ClipboardEvent, reps []models.PersistedClipboardRepresentation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.EventID] = event
	r.reps[event.EventID] = reps
	r.order = append(r.order, "insert_event")
	if r.onInsert != nil {
		r.onInsert()
	}
	return nil
}

func (r *fakeEventsRepo) GetEvent(ctx context.Context, id models.EventID) (*models.ClipboardEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.events[id]
	return &e, nil
}

func (r *fakeEventsRepo) GetRepresentations(ctx context.Context, eventID models.EventID) ([]models.PersistedClipboardRepresentation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reps[eventID], nil
}

func (r *fakeEventsRepo) DeleteEvent(ctx context.Context, id models.EventID) error { return nil }

// fakeEntriesRepo records the saved entry and selection, sharing the order
// slice with the events repo to assert call ordering.
type fakeEntriesRepo struct {
	events    *fakeEventsRepo
	entry     *models.ClipboardEntry
	selection *models.ClipboardSelection
}

func (r *fakeEntriesRepo) SaveEntryAndSelection(ctx context.Context, entry models.ClipboardEntry, selection models.ClipboardSelection) error {
	r.events.mu.Lock()
	defer r.events.mu.Unlock()
	r.entry = &entry
	r.selection = &selection
	r.events.order = append(r.events.order, "save_entry")
	return nil
}

func (r *fakeEntriesRepo) GetByID(ctx context.Context, id models.EntryID) (*models.ClipboardEntry, error) {
	return r.entry, nil
}

func (r *fakeEntriesRepo) GetSelection(ctx context.Context, id models.EntryID) (*models.ClipboardSelection, error) {
	return r.selection, nil
}

func (r *fakeEntriesRepo) List(ctx context.Context, limit int) ([]models.ClipboardEntry, error) {
	return nil, nil
}

func (r *fakeEntriesRepo) SetPinned(ctx context.Context, id models.EntryID, pinned bool) error {
	return nil
}

func (r *fakeEntriesRepo) Delete(ctx context.Context, id models.EntryID) ([]models.BlobID, error) {
	return nil, nil
}

type captureFixture struct {
	capture *CaptureService
	events  *fakeEventsRepo
	entries *fakeEntriesRepo
	cache   *spool.Cache
	spooler *spool.Spooler
}

func newCaptureFixture(t *testing.T, inlineThreshold int64, spoolerCap int) *captureFixture {
	t.Helper()
	manager, err := spool.NewManager(t.TempDir(), 1<<20)
	require.NoError(t, err)

	cache := spool.NewCache(16, 1<<20)
	log := logging.NewNullLogger()
	worker := spool.NewWorker(16, cache, manager, nil, nil, 1, time.Millisecond, log)
	spooler := spool.NewSpooler(spoolerCap, manager, cache, worker, log)

	events := newFakeEventsRepo()
	entries := &fakeEntriesRepo{events: events}
	capture := NewCaptureService(events, entries, cache, spooler, inlineThreshold, "device-a", log)
	return &captureFixture{capture: capture, events: events, entries: entries, cache: cache, spooler: spooler}
}

func TestCaptureInlinesSmallAndStagesLarge(t *testing.T) {
	ctx := context.Background()
	f := newCaptureFixture(t, 16, 8)

	large := make([]byte, 64<<10)
	snapshot := models.SystemClipboardSnapshot{
		TsMs: 1000,
		Representations: []models.ObservedClipboardRepresentation{
			obsRep("rep-small", "fmt-a", "text/plain", []byte("short")),
			obsRep("rep-large", "fmt-b", "image/png", large),
		},
	}

	result, err := f.capture.Execute(ctx, snapshot)
	require.NoError(t, err)
	require.Equal(t, 1, result.Staged)

	reps := f.events.reps[result.Event.EventID]
	require.Len(t, reps, 2)
	byID := map[models.RepresentationID]models.PersistedClipboardRepresentation{}
	for _, r := range reps {
		byID[r.ID] = r
	}

	small := byID["rep-small"]
	require.Equal(t, models.PayloadInline, small.PayloadState)
	require.Equal(t, []byte("short"), small.InlineData)
	require.Nil(t, small.BlobID)

	staged := byID["rep-large"]
	require.Equal(t, models.PayloadStaged, staged.PayloadState)
	require.Nil(t, staged.InlineData)
	require.Nil(t, staged.BlobID)

	// Large bytes land in the cache synchronously.
	cached, ok := f.cache.Get("rep-large")
	require.True(t, ok)
	require.Len(t, cached, 64<<10)

	require.Equal(t, int64(5+64<<10), result.Entry.TotalSize)
	require.Equal(t, result.Event.EventID, result.Entry.EventID)
	require.Equal(t, models.DeviceID("device-a"), result.Event.SourceDevice)
}

func TestCaptureInsertsEventBeforeEntry(t *testing.T) {
	f := newCaptureFixture(t, 1024, 8)

	snapshot := models.SystemClipboardSnapshot{
		Representations: []models.ObservedClipboardRepresentation{
			obsRep("rep-1", "fmt", "text/plain", []byte("hello")),
		},
	}
	_, err := f.capture.Execute(context.Background(), snapshot)
	require.NoError(t, err)
	require.Equal(t, []string{"insert_event", "save_entry"}, f.events.order)
}

func TestCaptureInsertsRowsBeforeStagingBytes(t *testing.T) {
	f := newCaptureFixture(t, 16, 8)

	// The staged bytes must not be visible to the pipeline until the Staged
	// row exists, or a fast worker discards them as orphaned.
	var cachedAtInsert bool
	f.events.onInsert = func() {
		_, cachedAtInsert = f.cache.Get("rep-large")
	}

	payload := make([]byte, 32<<10)
	snapshot := models.SystemClipboardSnapshot{
		Representations: []models.ObservedClipboardRepresentation{
			obsRep("rep-large", "fmt", "image/png", payload),
		},
	}
	result, err := f.capture.Execute(context.Background(), snapshot)
	require.NoError(t, err)
	require.Equal(t, 1, result.Staged)

	require.False(t, cachedAtInsert)
	_, cachedAfter := f.cache.Get("rep-large")
	require.True(t, cachedAfter)
}

func TestCaptureAbortsOnUnusableSnapshot(t *testing.T) {
	f := newCaptureFixture(t, 1024, 8)

	snapshot := models.SystemClipboardSnapshot{
		Representations: []models.ObservedClipboardRepresentation{
			obsRep("rep-empty", "fmt", "text/plain", nil),
		},
	}
	_, err := f.capture.Execute(context.Background(), snapshot)
	require.Error(t, err)
	require.Empty(t, f.events.events)
	require.Nil(t, f.entries.entry)
}

func TestCaptureDoesNotBlockWhenSpoolerFull(t *testing.T) {
	ctx := context.Background()
	f := newCaptureFixture(t, 16, 1)

	// Occupy the spooler's only slot so the capture's enqueue is dropped.
	require.True(t, f.spooler.Enqueue(spool.Request{RepID: "filler", Data: []byte("x")}))

	payload := make([]byte, 32<<10)
	snapshot := models.SystemClipboardSnapshot{
		Representations: []models.ObservedClipboardRepresentation{
			obsRep("rep-large", "fmt", "image/png", payload),
		},
	}

	start := time.Now()
	result, err := f.capture.Execute(ctx, snapshot)
	require.NoError(t, err)
	require.Less(t, time.Since(start), 200*time.Millisecond)

	// Row stays Staged; bytes are in the cache for later reconciliation.
	reps := f.events.reps[result.Event.EventID]
	require.Equal(t, models.PayloadStaged, reps[0].PayloadState)
	_, ok := f.cache.Get("rep-large")
	require.True(t, ok)
}

func TestCaptureSnapshotHashIsContentDerived(t *testing.T) {
	f := newCaptureFixture(t, 1024, 8)
	ctx := context.Background()

	first := models.SystemClipboardSnapshot{
		TsMs: 1,
		Representations: []models.ObservedClipboardRepresentation{
			obsRep("rep-1", "fmt-a", "text/plain", []byte("same bytes")),
		},
	}
	second := models.SystemClipboardSnapshot{
		TsMs: 999, // metadata differs, content does not
		Representations: []models.ObservedClipboardRepresentation{
			obsRep("rep-2", "fmt-b", "text/plain", []byte("same bytes")),
		},
	}

	r1, err := f.capture.Execute(ctx, first)
	require.NoError(t, err)
	r2, err := f.capture.Execute(ctx, second)
	require.NoError(t, err)
	require.Equal(t, r1.Event.SnapshotHash, r2.Event.SnapshotHash)
}
