package paireddevices

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/models"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, device models.PairedDevice) error {
	var lastSeen *string
	if device.LastSeenAt != nil {
		s := device.LastSeenAt.UTC().Format(time.RFC3339)
		lastSeen = &s
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO paired_devices (peer_id, pairing_state, identity_fingerprint, paired_at, last_seen_at, device_name)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(peer_id) DO UPDATE SET
			pairing_state = excluded.pairing_state,
			identity_fingerprint = excluded.identity_fingerprint,
			last_seen_at = excluded.last_seen_at,
			device_name = excluded.device_name
	`, device.PeerID, device.PairingState, device.IdentityFingerprint,
		device.PairedAt.UTC().Format(time.RFC3339), lastSeen, device.DeviceName)
	if err != nil {
		return fmt.Errorf("failed to upsert paired device: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, peerID models.PeerID) (*models.PairedDevice, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT peer_id, pairing_state, identity_fingerprint, paired_at, last_seen_at, device_name
		FROM paired_devices WHERE peer_id = ?
	`, peerID)
	device, err := scanDevice(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: paired device %s", common.ErrNotFound, peerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get paired device: %w", err)
	}
	return device, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.PairedDevice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT peer_id, pairing_state, identity_fingerprint, paired_at, last_seen_at, device_name
		FROM paired_devices ORDER BY paired_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to select paired devices: %w", err)
	}
	defer rows.Close()

	var result []models.PairedDevice
	for rows.Next() {
		device, err := scanDevice(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *device)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanDevice(scan func(...any) error) (*models.PairedDevice, error) {
	var d models.PairedDevice
	var pairedAt string
	var lastSeen sql.NullString
	if err := scan(&d.PeerID, &d.PairingState, &d.IdentityFingerprint, &pairedAt, &lastSeen, &d.DeviceName); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, pairedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse paired_at: %w", err)
	}
	d.PairedAt = t
	if lastSeen.Valid {
		ls, err := time.Parse(time.RFC3339, lastSeen.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last_seen_at: %w", err)
		}
		d.LastSeenAt = &ls
	}
	return &d, nil
}

func (r *SQLiteRepository) SetState(ctx context.Context, peerID models.PeerID, state models.PairingState) error {
	return r.requireUpdate(ctx, peerID, `UPDATE paired_devices SET pairing_state = ? WHERE peer_id = ?`, state, peerID)
}

func (r *SQLiteRepository) Touch(ctx context.Context, peerID models.PeerID, seenAt time.Time) error {
	return r.requireUpdate(ctx, peerID, `UPDATE paired_devices SET last_seen_at = ? WHERE peer_id = ?`,
		seenAt.UTC().Format(time.RFC3339), peerID)
}

func (r *SQLiteRepository) requireUpdate(ctx context.Context, peerID models.PeerID, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update paired device: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: paired device %s", common.ErrNotFound, peerID)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, peerID models.PeerID) error {
	return r.requireUpdate(ctx, peerID, `DELETE FROM paired_devices WHERE peer_id = ?`, peerID)
}
