package spool

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/uniclip/uniclipboard/internal/blobstore"
	"github.com/uniclip/uniclipboard/internal/cryptox"
	"github.com/uniclip/uniclipboard/internal/logging"
	"github.com/uniclip/uniclipboard/internal/models"
	"github.com/uniclip/uniclipboard/internal/repositories/representations"
)

// Worker materializes staged representations into the blob store. Multiple
// instances are safe: every state change goes through the repository CAS,
// and a losing worker just cleans up its spool entry.
type Worker struct {
	jobs    chan models.RepresentationID
	cache   *Cache
	manager *Manager
	writer  *blobstore.Writer
	reps    representations.Repository
	retries uint64
	backoff time.Duration
	log     logging.Logger
}

// NewWorker wires a Worker with a job channel of the given capacity.
func NewWorker(capacity int, cache *Cache, manager *Manager, writer *blobstore.Writer, reps representations.Repository, retries uint64, backoff time.Duration, log logging.Logger) *Worker {
	return &Worker{
		jobs:    make(chan models.RepresentationID, capacity),
		cache:   cache,
		manager: manager,
		writer:  writer,
		reps:    reps,
		retries: retries,
		backoff: backoff,
		log:     log,
	}
}

// Enqueue hands an id to the worker without blocking. Returns false when the
// channel is full.
func (w *Worker) Enqueue(id models.RepresentationID) bool {
	select {
	case w.jobs <- id:
		return true
	default:
		return false
	}
}

// Run consumes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-w.jobs:
			w.Process(ctx, id)
		}
	}
}

// Process runs one worker cycle for id: read bytes, hash, persist blob,
// CAS the row to BlobReady, clean up the spool entry.
func (w *Worker) Process(ctx context.Context, id models.RepresentationID) {
	data, ok := w.loadBytes(id)
	if !ok {
		w.failRepresentation(ctx, id, "payload bytes missing")
		return
	}

	// Mark the row Processing; a mismatch means another worker already
	// moved it, which the final CAS will also detect.
	if _, err := w.reps.UpdateProcessingResult(ctx, id,
		[]models.PayloadState{models.PayloadStaged}, nil, models.PayloadProcessing, nil); err != nil {
		w.log.Error(ctx, "mark processing failed", "rep_id", id, "error", err)
	}

	var blob *models.Blob
	err := retry.Do(ctx, retry.WithMaxRetries(w.retries, retry.NewConstant(w.backoff)), func(ctx context.Context) error {
		hash := cryptox.ContentHash(data)
		b, err := w.writer.WriteIfAbsent(ctx, hash, data)
		if err != nil {
			return retry.RetryableError(err)
		}
		blob = b
		return nil
	})
	if err != nil {
		w.failRepresentation(ctx, id, fmt.Sprintf("blob write failed: %v", err))
		return
	}

	outcome, err := w.reps.UpdateProcessingResult(ctx, id,
		[]models.PayloadState{models.PayloadStaged, models.PayloadProcessing},
		&blob.BlobID, models.PayloadBlobReady, nil)
	if err != nil {
		w.log.Error(ctx, "blob-ready cas failed", "rep_id", id, "error", err)
		return
	}

	switch outcome {
	case representations.Updated:
		// Cache entries decay naturally; only the spool entry is ours.
		if err := w.manager.Delete(id); err != nil {
			w.log.Warn(ctx, "spool cleanup failed", "rep_id", id, "error", err)
		}
	case representations.StateMismatch:
		// Another worker finished this id first.
		if err := w.manager.Delete(id); err != nil {
			w.log.Warn(ctx, "spool cleanup failed", "rep_id", id, "error", err)
		}
	case representations.NotFound:
		// Row deleted by the user while we were working; discard.
		_ = w.manager.Delete(id)
		w.cache.Evict(id)
	}
}

func (w *Worker) loadBytes(id models.RepresentationID) ([]byte, bool) {
	if data, ok := w.cache.Get(id); ok {
		return data, true
	}
	data, err := w.manager.Read(id)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (w *Worker) failRepresentation(ctx context.Context, id models.RepresentationID, reason string) {
	outcome, err := w.reps.UpdateProcessingResult(ctx, id,
		[]models.PayloadState{models.PayloadStaged, models.PayloadProcessing},
		nil, models.PayloadFailed, &reason)
	if err != nil {
		w.log.Error(ctx, "failure cas failed", "rep_id", id, "error", err)
		return
	}
	if outcome == representations.Updated {
		w.log.Warn(ctx, "representation failed", "rep_id", id, "reason", reason)
	}
}
