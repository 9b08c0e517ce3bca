// Package events persists clipboard events and their representations.
package events

import (
	"context"

	"github.com/uniclip/uniclipboard/internal/models"
)

// Repository is the system-of-record store for events. InsertEvent writes
// the event and all of its representations in one transaction.
type Repository interface {
	InsertEvent(ctx context.Context, event models.ClipboardEvent, reps []models.PersistedClipboardRepresentation) error
	GetEvent(ctx context.Context, id models.EventID) (*models.ClipboardEvent, error)
	GetRepresentations(ctx context.Context, eventID models.EventID) ([]models.PersistedClipboardRepresentation, error)
	DeleteEvent(ctx context.Context, id models.EventID) error
}
