// Package representations exposes the payload-state side of representation
// rows, most importantly the compare-and-swap the blob worker depends on.
package representations

import (
	"context"

	"github.com/uniclip/uniclipboard/internal/models"
)

// UpdateOutcome is the result of a processing-state compare-and-swap.
type UpdateOutcome int

const (
	// Updated: the row matched an expected state and was transitioned.
	Updated UpdateOutcome = iota
	// StateMismatch: the row exists but its state moved under our feet.
	StateMismatch
	// NotFound: the row was deleted.
	NotFound
)

func (o UpdateOutcome) String() string {
	switch o {
	case Updated:
		return "updated"
	case StateMismatch:
		return "state_mismatch"
	case NotFound:
		return "not_found"
	}
	return "unknown"
}

// Repository reads and transitions representation rows. The CAS in
// UpdateProcessingResult is the sole mechanism for payload-state change
// after capture.
type Repository interface {
	GetByID(ctx context.Context, id models.RepresentationID) (*models.PersistedClipboardRepresentation, error)
	// UpdateProcessingResult transitions id from one of expected to newState,
	// setting blob_id and last_error in the same statement.
	UpdateProcessingResult(ctx context.Context, id models.RepresentationID, expected []models.PayloadState, blobID *models.BlobID, newState models.PayloadState, lastError *string) (UpdateOutcome, error)
}
