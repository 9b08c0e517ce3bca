package entries

import (
	"context"
	"database/sql"
	"encoding/json"
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

func (r *SQLiteRepository) SaveEntryAndSelection(ctx context.Context, entry models.ClipboardEntry, selection models.ClipboardSelection) error {
	secondary, err := json.Marshal(selection.SecondaryRepIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal secondary rep ids: %w", err)
	}

	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO clipboard_entries (entry_id, event_id, created_at_ms, title, total_size, pinned, deleted_at_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, entry.EntryID, entry.EventID, entry.CreatedAtMs, entry.Title, entry.TotalSize, entry.Pinned, entry.DeletedAtMs)
		if err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO clipboard_selections (entry_id, primary_rep_id, preview_rep_id, paste_rep_id, secondary_rep_ids, policy_version)
			VALUES (?, ?, ?, ?, ?, ?)
		`, entry.EntryID, selection.PrimaryRepID, selection.PreviewRepID, selection.PasteRepID, string(secondary), selection.PolicyVersion)
		if err != nil {
			return fmt.Errorf("failed to insert selection: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id models.EntryID) (*models.ClipboardEntry, error) {
	var e models.ClipboardEntry
	err := r.db.QueryRowContext(ctx, `
		SELECT entry_id, event_id, created_at_ms, title, total_size, pinned, deleted_at_ms
		FROM clipboard_entries WHERE entry_id = ?
	`, id).Scan(&e.EntryID, &e.EventID, &e.CreatedAtMs, &e.Title, &e.TotalSize, &e.Pinned, &e.DeletedAtMs)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: entry %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return &e, nil
}

func (r *SQLiteRepository) GetSelection(ctx context.Context, id models.EntryID) (*models.ClipboardSelection, error) {
	var s models.ClipboardSelection
	var secondary string
	err := r.db.QueryRowContext(ctx, `
		SELECT entry_id, primary_rep_id, preview_rep_id, paste_rep_id, secondary_rep_ids, policy_version
		FROM clipboard_selections WHERE entry_id = ?
	`, id).Scan(&s.EntryID, &s.PrimaryRepID, &s.PreviewRepID, &s.PasteRepID, &secondary, &s.PolicyVersion)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: selection for entry %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get selection: %w", err)
	}
	if err := json.Unmarshal([]byte(secondary), &s.SecondaryRepIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal secondary rep ids: %w", err)
	}
	return &s, nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]models.ClipboardEntry, error) {
	if limit <= 0 || limit > MaxListLimit {
		return nil, fmt.Errorf("%w: limit %d", common.ErrInvalidParameter, limit)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT entry_id, event_id, created_at_ms, title, total_size, pinned, deleted_at_ms
		FROM clipboard_entries WHERE deleted_at_ms IS NULL
		ORDER BY created_at_ms DESC, entry_id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	var result []models.ClipboardEntry
	for rows.Next() {
		var e models.ClipboardEntry
		if err := rows.Scan(&e.EntryID, &e.EventID, &e.CreatedAtMs, &e.Title, &e.TotalSize, &e.Pinned, &e.DeletedAtMs); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) SetPinned(ctx context.Context, id models.EntryID, pinned bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE clipboard_entries SET pinned = ? WHERE entry_id = ?`, pinned, id)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: entry %s", common.ErrNotFound, id)
	}
	return nil
}

// Delete removes the entry, its selection, its event, and the event's
// representations in one transaction, then collects blob rows nothing
// references anymore. Blob bytes are the caller's to remove.
func (r *SQLiteRepository) Delete(ctx context.Context, id models.EntryID) ([]models.BlobID, error) {
	var orphans []models.BlobID

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var eventID models.EventID
		err := tx.QueryRowContext(ctx, `SELECT event_id FROM clipboard_entries WHERE entry_id = ?`, id).Scan(&eventID)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: entry %s", common.ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to resolve entry event: %w", err)
		}

		// Selection goes with the entry; representations go with the event.
		if _, err := tx.ExecContext(ctx, `DELETE FROM clipboard_entries WHERE entry_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM clipboard_events WHERE event_id = ?`, eventID); err != nil {
			return fmt.Errorf("failed to delete event: %w", err)
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT blob_id FROM blobs
			WHERE blob_id NOT IN (SELECT blob_id FROM clipboard_representations WHERE blob_id IS NOT NULL)
		`)
		if err != nil {
			return fmt.Errorf("failed to select orphan blobs: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var b models.BlobID
			if err := rows.Scan(&b); err != nil {
				return err
			}
			orphans = append(orphans, b)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		for _, b := range orphans {
			if _, err := tx.ExecContext(ctx, `DELETE FROM blobs WHERE blob_id = ?`, b); err != nil {
				return fmt.Errorf("failed to delete blob %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orphans, nil
}
