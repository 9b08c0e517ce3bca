// Package keyslot persists the single KeySlotFile per application: KDF
// parameters, salt, and the wrapped master key. The file is written
// atomically with 0600 permissions.
package keyslot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/filex"
	"github.com/uniclip/uniclipboard/internal/models"
)

const keySlotFileName = "keyslot.json"

// Store loads and saves the KeySlotFile. Load returns common.ErrKeyNotFound
// when no slot exists and common.ErrUnsupportedVersion /
// common.ErrKeyMaterialCorrupt for unreadable slots.
type Store interface {
	Load(ctx context.Context) (*models.KeySlotFile, error)
	Save(ctx context.Context, slot *models.KeySlotFile) error
	Delete(ctx context.Context) error
}

type fileStore struct {
	dir string
}

// NewFileStore returns a Store writing under dir.
func NewFileStore(dir string) (Store, error) {
	if err := filex.EnsureDir(dir, 0o700); err != nil {
		return nil, err
	}
	return &fileStore{dir: dir}, nil
}

func (s *fileStore) path() string {
	return filepath.Join(s.dir, keySlotFileName)
}

func (s *fileStore) Load(ctx context.Context) (*models.KeySlotFile, error) {
	raw, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: key slot", common.ErrKeyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read key slot: %w", err)
	}

	var slot models.KeySlotFile
	if err := json.Unmarshal(raw, &slot); err != nil {
		return nil, fmt.Errorf("%w: key slot file: %v", common.ErrKeyMaterialCorrupt, err)
	}
	if slot.Version != models.KeySlotVersion {
		return nil, fmt.Errorf("%w: key slot version %q", common.ErrUnsupportedVersion, slot.Version)
	}
	if len(slot.Salt) == 0 || slot.Kdf.Alg != models.KdfArgon2id {
		return nil, fmt.Errorf("%w: key slot missing salt or kdf", common.ErrKeyMaterialCorrupt)
	}
	return &slot, nil
}

func (s *fileStore) Save(ctx context.Context, slot *models.KeySlotFile) error {
	data, err := json.MarshalIndent(slot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal key slot: %w", err)
	}
	return filex.WriteFileAtomic(s.path(), data, 0o600)
}

func (s *fileStore) Delete(ctx context.Context) error {
	err := os.Remove(s.path())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete key slot: %w", err)
	}
	return nil
}
