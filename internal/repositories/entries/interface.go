// Package entries persists clipboard entries and their selections.
package entries

import (
	"context"

	"github.com/uniclip/uniclipboard/internal/models"
)

// MaxListLimit bounds List queries.
const MaxListLimit = 500

// Repository stores entries. SaveEntryAndSelection writes both rows in one
// transaction; Delete cascades selection, event, and representations, and
// reports blob ids left unreferenced so the caller can delete the stored
// bytes.
type Repository interface {
	SaveEntryAndSelection(ctx context.Context, entry models.ClipboardEntry, selection models.ClipboardSelection) error
	GetByID(ctx context.Context, id models.EntryID) (*models.ClipboardEntry, error)
	GetSelection(ctx context.Context, id models.EntryID) (*models.ClipboardSelection, error)
	// List returns non-deleted entries newest first. limit must be in
	// (0, MaxListLimit]; anything else is common.ErrInvalidParameter.
	List(ctx context.Context, limit int) ([]models.ClipboardEntry, error)
	SetPinned(ctx context.Context, id models.EntryID, pinned bool) error
	Delete(ctx context.Context, id models.EntryID) (orphanedBlobs []models.BlobID, err error)
}
