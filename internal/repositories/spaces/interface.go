// Package spaces records which space this device belongs to and, for
// sponsors, which peers were granted access.
package spaces

import (
	"context"

	"github.com/uniclip/uniclipboard/internal/models"
)

// AccessRole distinguishes how the record was created.
type AccessRole string

const (
	RoleJoiner  AccessRole = "joiner"
	RoleSponsor AccessRole = "sponsor"
)

// AccessRecord is one granted space access.
type AccessRecord struct {
	SpaceID     models.SpaceID
	Role        AccessRole
	PeerID      models.PeerID // joiner peer for sponsor records, empty for joiner records
	GrantedAtMs int64
}

// Repository persists space-access records. Persisting the same record twice
// is a no-op.
type Repository interface {
	PersistJoinerAccess(ctx context.Context, spaceID models.SpaceID, grantedAtMs int64) error
	PersistSponsorAccess(ctx context.Context, spaceID models.SpaceID, joiner models.PeerID, grantedAtMs int64) error
	List(ctx context.Context) ([]AccessRecord, error)
}
