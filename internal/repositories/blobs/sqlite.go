package blobs

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

func (r *SQLiteRepository) FindByHash(ctx context.Context, contentHash string) (*models.Blob, error) {
	return r.queryOne(ctx, `SELECT blob_id, storage_locator, size_bytes, content_hash, created_at_ms FROM blobs WHERE content_hash = ?`, contentHash)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id models.BlobID) (*models.Blob, error) {
	return r.queryOne(ctx, `SELECT blob_id, storage_locator, size_bytes, content_hash, created_at_ms FROM blobs WHERE blob_id = ?`, id)
}

func (r *SQLiteRepository) queryOne(ctx context.Context, query string, arg any) (*models.Blob, error) {
	var b models.Blob
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&b.BlobID, &b.StorageLocator, &b.SizeBytes, &b.ContentHash, &b.CreatedAtMs)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: blob", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}
	return &b, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, blob models.Blob) (*models.Blob, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO blobs (blob_id, storage_locator, size_bytes, content_hash, created_at_ms)
		VALUES (?, ?, ?, ?, ?)
	`, blob.BlobID, blob.StorageLocator, blob.SizeBytes, blob.ContentHash, blob.CreatedAtMs)
	if err != nil {
		// Another writer raced us to this content hash; return its row.
		if isUniqueViolation(err) {
			existing, findErr := r.FindByHash(ctx, blob.ContentHash)
			if findErr == nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("failed to insert blob: %w", err)
	}
	return &blob, nil
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint violation")
}

func (r *SQLiteRepository) DeleteUnreferenced(ctx context.Context) ([]models.BlobID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT blob_id FROM blobs
		WHERE blob_id NOT IN (SELECT blob_id FROM clipboard_representations WHERE blob_id IS NOT NULL)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to select orphan blobs: %w", err)
	}
	defer rows.Close()

	var ids []models.BlobID
	for rows.Next() {
		var id models.BlobID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM blobs WHERE blob_id = ?`, id); err != nil {
			return nil, fmt.Errorf("failed to delete blob %s: %w", id, err)
		}
	}
	return ids, nil
}
