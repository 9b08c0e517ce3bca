// Package blobstore holds materialized representation payloads: a
// filesystem byte store, an encrypting decorator around it, and the
// content-addressed writer that deduplicates by BLAKE3 hash.
package blobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/cryptox"
	"github.com/uniclip/uniclipboard/internal/encryption"
	"github.com/uniclip/uniclipboard/internal/filex"
	"github.com/uniclip/uniclipboard/internal/models"
)

// Store persists raw blob bytes by id and returns an opaque storage locator.
type Store interface {
	Put(ctx context.Context, id models.BlobID, data []byte) (locator string, err error)
	Get(ctx context.Context, id models.BlobID) ([]byte, error)
	Delete(ctx context.Context, id models.BlobID) error
}

// FSStore keeps each blob in its own file under dir.
type FSStore struct {
	dir string
}

// NewFSStore creates dir with 0700 and returns a store over it.
func NewFSStore(dir string) (*FSStore, error) {
	if err := filex.EnsureDir(dir, 0o700); err != nil {
		return nil, err
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) path(id models.BlobID) string {
	return filepath.Join(s.dir, string(id))
}

func (s *FSStore) Put(ctx context.Context, id models.BlobID, data []byte) (string, error) {
	path := s.path(id)
	if err := filex.WriteFileAtomic(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write blob %s: %w", id, err)
	}
	return "file://" + path, nil
}

func (s *FSStore) Get(ctx context.Context, id models.BlobID) ([]byte, error) {
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: blob %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", id, err)
	}
	return data, nil
}

func (s *FSStore) Delete(ctx context.Context, id models.BlobID) error {
	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", id, err)
	}
	return nil
}

// EncryptingStore wraps an inner Store so every byte on disk is an
// EncryptedBlob sealed under the session master key with the blob AAD.
// Writers above the decorator see plaintext only.
type EncryptingStore struct {
	inner   Store
	session *encryption.Session
}

func NewEncryptingStore(inner Store, session *encryption.Session) *EncryptingStore {
	return &EncryptingStore{inner: inner, session: session}
}

func (s *EncryptingStore) Put(ctx context.Context, id models.BlobID, data []byte) (string, error) {
	mk, err := s.session.MasterKey()
	if err != nil {
		return "", err
	}
	sealed, err := cryptox.Encrypt(mk, data, cryptox.BlobAad(id))
	if err != nil {
		return "", fmt.Errorf("encrypt blob %s: %w", id, err)
	}
	encoded, err := json.Marshal(sealed)
	if err != nil {
		return "", fmt.Errorf("marshal blob %s: %w", id, err)
	}
	return s.inner.Put(ctx, id, encoded)
}

func (s *EncryptingStore) Get(ctx context.Context, id models.BlobID) ([]byte, error) {
	mk, err := s.session.MasterKey()
	if err != nil {
		return nil, err
	}
	encoded, err := s.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var sealed models.EncryptedBlob
	if err := json.Unmarshal(encoded, &sealed); err != nil {
		return nil, fmt.Errorf("%w: blob %s is not an encrypted blob", common.ErrCorruptedBlob, id)
	}
	plain, err := cryptox.Decrypt(mk, &sealed, cryptox.BlobAad(id))
	if err != nil {
		return nil, fmt.Errorf("%w: blob %s", err, id)
	}
	return plain, nil
}

func (s *EncryptingStore) Delete(ctx context.Context, id models.BlobID) error {
	return s.inner.Delete(ctx, id)
}
