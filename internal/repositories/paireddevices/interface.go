// Package paireddevices persists the set of peers this device trusts.
package paireddevices

import (
	"context"
	"time"

	"github.com/uniclip/uniclipboard/internal/models"
)

// Repository stores paired devices keyed by peer id.
type Repository interface {
	Upsert(ctx context.Context, device models.PairedDevice) error
	Get(ctx context.Context, peerID models.PeerID) (*models.PairedDevice, error)
	List(ctx context.Context) ([]models.PairedDevice, error)
	SetState(ctx context.Context, peerID models.PeerID, state models.PairingState) error
	Touch(ctx context.Context, peerID models.PeerID, seenAt time.Time) error
	Delete(ctx context.Context, peerID models.PeerID) error
}
