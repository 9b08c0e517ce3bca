package blobstore

import (
	"context"
	"fmt"
	"time"

	"github.com/uniclip/uniclipboard/internal/models"
	"github.com/uniclip/uniclipboard/internal/repositories/blobs"
)

// Writer is the content-addressed entry point to the blob store. It owns
// dedup: a hash that already exists returns the existing record without
// touching the byte store.
type Writer struct {
	store Store
	repo  blobs.Repository
	now   func() time.Time
}

// NewWriter wires a Writer. The injected store decides whether bytes are
// encrypted; the writer sees plaintext only.
func NewWriter(store Store, repo blobs.Repository) *Writer {
	return &Writer{store: store, repo: repo, now: time.Now}
}

// WriteIfAbsent stores data under contentHash, deduplicating by hash. On an
// insert race it re-reads and returns the winning record.
func (w *Writer) WriteIfAbsent(ctx context.Context, contentHash string, data []byte) (*models.Blob, error) {
	if existing, err := w.repo.FindByHash(ctx, contentHash); err == nil {
		return existing, nil
	}

	id := models.NewBlobID()
	locator, err := w.store.Put(ctx, id, data)
	if err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}

	blob := models.Blob{
		BlobID:         id,
		StorageLocator: locator,
		SizeBytes:      int64(len(data)),
		ContentHash:    contentHash,
		CreatedAtMs:    w.now().UnixMilli(),
	}
	inserted, err := w.repo.Insert(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("insert blob: %w", err)
	}
	if inserted.BlobID != id {
		// Lost the insert race; the bytes we just stored are unreferenced.
		_ = w.store.Delete(ctx, id)
	}
	return inserted, nil
}
