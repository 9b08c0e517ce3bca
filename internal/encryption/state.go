package encryption

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/uniclip/uniclipboard/internal/filex"
)

// State reports whether encryption has ever been initialized on this device.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitialized   State = "initialized"
)

// initializedMarker is the file whose presence under the vault directory
// records that a key slot exists and the space was set up.
const initializedMarker = ".initialized_encryption"

// StateStore persists the encryption-initialized flag.
type StateStore interface {
	Load(ctx context.Context) (State, error)
	PersistInitialized(ctx context.Context) error
	// Reset removes the marker. Used only by rollback paths.
	Reset(ctx context.Context) error
}

type markerStateStore struct {
	vaultDir string
}

// NewStateStore returns a StateStore keyed on the marker file under vaultDir.
func NewStateStore(vaultDir string) (StateStore, error) {
	if err := filex.EnsureDir(vaultDir, 0o700); err != nil {
		return nil, err
	}
	return &markerStateStore{vaultDir: vaultDir}, nil
}

func (s *markerStateStore) markerPath() string {
	return filepath.Join(s.vaultDir, initializedMarker)
}

func (s *markerStateStore) Load(ctx context.Context) (State, error) {
	_, err := os.Stat(s.markerPath())
	if os.IsNotExist(err) {
		return StateUninitialized, nil
	}
	if err != nil {
		return StateUninitialized, fmt.Errorf("stat marker: %w", err)
	}
	return StateInitialized, nil
}

func (s *markerStateStore) PersistInitialized(ctx context.Context) error {
	return filex.WriteFileAtomic(s.markerPath(), []byte{}, 0o600)
}

func (s *markerStateStore) Reset(ctx context.Context) error {
	err := os.Remove(s.markerPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove marker: %w", err)
	}
	return nil
}
