// Package blobs persists blob records keyed by id and deduplicated by
// content hash.
package blobs

import (
	"context"

	"github.com/uniclip/uniclipboard/internal/models"
)

// Repository stores blob rows. Insert treats a unique-constraint violation
// on content_hash as a lost race and returns the winning row.
type Repository interface {
	FindByHash(ctx context.Context, contentHash string) (*models.Blob, error)
	Insert(ctx context.Context, blob models.Blob) (*models.Blob, error)
	GetByID(ctx context.Context, id models.BlobID) (*models.Blob, error)
	// DeleteUnreferenced removes blob rows no representation references and
	// returns their ids so the caller can remove the stored bytes.
	DeleteUnreferenced(ctx context.Context) ([]models.BlobID, error)
}
