package representations

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/models"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id models.RepresentationID) (*models.PersistedClipboardRepresentation, error) {
	var rep models.PersistedClipboardRepresentation
	var blobID sql.NullString
	var lastErr sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT rep_id, event_id, format_id, mime, size_bytes, inline_data, blob_id, payload_state, last_error
		FROM clipboard_representations WHERE rep_id = ?
	`, id).Scan(&rep.ID, &rep.EventID, &rep.FormatID, &rep.Mime, &rep.SizeBytes, &rep.InlineData, &blobID, &rep.PayloadState, &lastErr)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: representation %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get representation: %w", err)
	}
	if blobID.Valid {
		b := models.BlobID(blobID.String)
		rep.BlobID = &b
	}
	if lastErr.Valid {
		rep.LastError = &lastErr.String
	}
	return &rep, nil
}

// UpdateProcessingResult performs the CAS in a single UPDATE guarded by the
// expected states, then distinguishes StateMismatch from NotFound with a
// follow-up existence check only when nothing matched.
func (r *SQLiteRepository) UpdateProcessingResult(ctx context.Context, id models.RepresentationID, expected []models.PayloadState, blobID *models.BlobID, newState models.PayloadState, lastError *string) (UpdateOutcome, error) {
	if len(expected) == 0 {
		return StateMismatch, fmt.Errorf("%w: empty expected states", common.ErrInvalidParameter)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(expected)), ", ")
	args := make([]any, 0, len(expected)+4)
	var blobStr *string
	if blobID != nil {
		s := string(*blobID)
		blobStr = &s
	}
	args = append(args, newState, blobStr, lastError, id)
	for _, st := range expected {
		args = append(args, st)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE clipboard_representations
		SET payload_state = ?, blob_id = ?, last_error = ?
		WHERE rep_id = ? AND payload_state IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return StateMismatch, fmt.Errorf("failed to update representation: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return StateMismatch, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 1 {
		return Updated, nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM clipboard_representations WHERE rep_id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return NotFound, nil
	}
	if err != nil {
		return StateMismatch, fmt.Errorf("failed to check representation: %w", err)
	}
	return StateMismatch, nil
}
