package events

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/dbx"
	"github.com/uniclip/uniclipboard/internal/models"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) InsertEvent(ctx context.Context, event models.ClipboardEvent, reps []models.PersistedClipboardRepresentation) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO clipboard_events (event_id, captured_at_ms, source_device, snapshot_hash)
			VALUES (?, ?, ?, ?)
		`, event.EventID, event.CapturedAtMs, event.SourceDevice, event.SnapshotHash)
		if err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}

		for _, rep := range reps {
			if err := insertRepresentation(ctx, tx, rep); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertRepresentation(ctx context.Context, tx dbx.DBTX, rep models.PersistedClipboardRepresentation) error {
	var blobID *string
	if rep.BlobID != nil {
		s := string(*rep.BlobID)
		blobID = &s
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO clipboard_representations
			(rep_id, event_id, format_id, mime, size_bytes, inline_data, blob_id, payload_state, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rep.ID, rep.EventID, rep.FormatID, rep.Mime, rep.SizeBytes, rep.InlineData, blobID, rep.PayloadState, rep.LastError)
	if err != nil {
		return fmt.Errorf("failed to insert representation: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetEvent(ctx context.Context, id models.EventID) (*models.ClipboardEvent, error) {
	var e models.ClipboardEvent
	err := r.db.QueryRowContext(ctx, `
		SELECT event_id, captured_at_ms, source_device, snapshot_hash
		FROM clipboard_events WHERE event_id = ?
	`, id).Scan(&e.EventID, &e.CapturedAtMs, &e.SourceDevice, &e.SnapshotHash)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: event %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &e, nil
}

func (r *SQLiteRepository) GetRepresentations(ctx context.Context, eventID models.EventID) ([]models.PersistedClipboardRepresentation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rep_id, event_id, format_id, mime, size_bytes, inline_data, blob_id, payload_state, last_error
		FROM clipboard_representations WHERE event_id = ? ORDER BY rep_id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to select representations: %w", err)
	}
	defer rows.Close()

	var result []models.PersistedClipboardRepresentation
	for rows.Next() {
		rep, err := scanRepresentation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanRepresentation(rows *sql.Rows) (models.PersistedClipboardRepresentation, error) {
	var rep models.PersistedClipboardRepresentation
	var blobID sql.NullString
	var lastErr sql.NullString
	err := rows.Scan(&rep.ID, &rep.EventID, &rep.FormatID, &rep.Mime, &rep.SizeBytes, &rep.InlineData, &blobID, &rep.PayloadState, &lastErr)
	if err != nil {
		return rep, fmt.Errorf("failed to scan representation: %w", err)
	}
	if blobID.Valid {
		id := models.BlobID(blobID.String)
		rep.BlobID = &id
	}
	if lastErr.Valid {
		rep.LastError = &lastErr.String
	}
	return rep, nil
}

func (r *SQLiteRepository) DeleteEvent(ctx context.Context, id models.EventID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM clipboard_events WHERE event_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: event %s", common.ErrNotFound, id)
	}
	return nil
}
