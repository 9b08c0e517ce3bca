package spaces

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uniclip/uniclipboard/internal/models"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) PersistJoinerAccess(ctx context.Context, spaceID models.SpaceID, grantedAtMs int64) error {
	return r.insert(ctx, AccessRecord{SpaceID: spaceID, Role: RoleJoiner, GrantedAtMs: grantedAtMs})
}

func (r *SQLiteRepository) PersistSponsorAccess(ctx context.Context, spaceID models.SpaceID, joiner models.PeerID, grantedAtMs int64) error {
	return r.insert(ctx, AccessRecord{SpaceID: spaceID, Role: RoleSponsor, PeerID: joiner, GrantedAtMs: grantedAtMs})
}

func (r *SQLiteRepository) insert(ctx context.Context, rec AccessRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO space_access (space_id, role, peer_id, granted_at_ms)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(space_id, role, peer_id) DO NOTHING
	`, rec.SpaceID, rec.Role, rec.PeerID, rec.GrantedAtMs)
	if err != nil {
		return fmt.Errorf("failed to insert space access: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]AccessRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT space_id, role, peer_id, granted_at_ms FROM space_access ORDER BY granted_at_ms
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to select space access: %w", err)
	}
	defer rows.Close()

	var result []AccessRecord
	for rows.Next() {
		var rec AccessRecord
		if err := rows.Scan(&rec.SpaceID, &rec.Role, &rec.PeerID, &rec.GrantedAtMs); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
