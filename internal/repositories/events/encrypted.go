package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/cryptox"
	"github.com/uniclip/uniclipboard/internal/encryption"
	"github.com/uniclip/uniclipboard/internal/models"
)

// EncryptedRepository wraps a Repository so inline representation bytes are
// sealed under the session master key before they reach the database. Rows
// without inline data pass through unchanged.
type EncryptedRepository struct {
	inner   Repository
	session *encryption.Session
}

func NewEncryptedRepository(inner Repository, session *encryption.Session) *EncryptedRepository {
	return &EncryptedRepository{inner: inner, session: session}
}

func (r *EncryptedRepository) InsertEvent(ctx context.Context, event models.ClipboardEvent, reps []models.PersistedClipboardRepresentation) error {
	sealed := make([]models.PersistedClipboardRepresentation, len(reps))
	copy(sealed, reps)
	for i := range sealed {
		if len(sealed[i].InlineData) == 0 {
			continue
		}
		mk, err := r.session.MasterKey()
		if err != nil {
			return err
		}
		blob, err := cryptox.Encrypt(mk, sealed[i].InlineData, cryptox.InlineAad(event.EventID, sealed[i].ID))
		if err != nil {
			return fmt.Errorf("failed to encrypt inline data for %s: %w", sealed[i].ID, err)
		}
		encoded, err := json.Marshal(blob)
		if err != nil {
			return fmt.Errorf("failed to encode inline ciphertext for %s: %w", sealed[i].ID, err)
		}
		sealed[i].InlineData = encoded
	}
	return r.inner.InsertEvent(ctx, event, sealed)
}

func (r *EncryptedRepository) GetEvent(ctx context.Context, id models.EventID) (*models.ClipboardEvent, error) {
	return r.inner.GetEvent(ctx, id)
}

func (r *EncryptedRepository) GetRepresentations(ctx context.Context, eventID models.EventID) ([]models.PersistedClipboardRepresentation, error) {
	reps, err := r.inner.GetRepresentations(ctx, eventID)
	if err != nil {
		return nil, err
	}
	for i := range reps {
		if len(reps[i].InlineData) == 0 {
			continue
		}
		mk, err := r.session.MasterKey()
		if err != nil {
			return nil, err
		}
		var blob models.EncryptedBlob
		if err := json.Unmarshal(reps[i].InlineData, &blob); err != nil {
			return nil, fmt.Errorf("%w: inline ciphertext for %s is unreadable", common.ErrCorruptedBlob, reps[i].ID)
		}
		plain, err := cryptox.Decrypt(mk, &blob, cryptox.InlineAad(eventID, reps[i].ID))
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt inline data for %s: %w", reps[i].ID, err)
		}
		reps[i].InlineData = plain
	}
	return reps, nil
}

func (r *EncryptedRepository) DeleteEvent(ctx context.Context, id models.EventID) error {
	return r.inner.DeleteEvent(ctx, id)
}
