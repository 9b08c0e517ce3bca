// Package keystore holds secrets outside the database: a SecureStorage
// abstraction with a file-based keystore (dev fallback for machines without
// a usable OS keyring) and the KEK keyring built on top of it.
package keystore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/filex"
)

// SecureStorage is a small key-value secret store. Get returns
// common.ErrKeyNotFound for missing keys; Delete of a missing key succeeds.
type SecureStorage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// FileKeystore persists secrets as a single JSON file with 0600 permissions.
// It is the development fallback for the OS keyring and the default in
// headless environments.
type FileKeystore struct {
	mu   sync.Mutex
	path string
}

// NewFileKeystore creates the parent directory and returns a keystore backed
// by path.
func NewFileKeystore(path string) (*FileKeystore, error) {
	if err := filex.EnsureDir(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return &FileKeystore{path: path}, nil
}

func (s *FileKeystore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	v, ok := entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrKeyNotFound, key)
	}
	return v, nil
}

func (s *FileKeystore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries[key] = value
	return s.store(entries)
}

func (s *FileKeystore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return s.store(entries)
}

func (s *FileKeystore) load() (map[string][]byte, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string][]byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	var entries map[string][]byte
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: keystore file: %v", common.ErrKeyMaterialCorrupt, err)
	}
	return entries, nil
}

func (s *FileKeystore) store(entries map[string][]byte) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal keystore: %w", err)
	}
	return filex.WriteFileAtomic(s.path, data, 0o600)
}

// MemoryKeystore is an in-memory SecureStorage for tests.
type MemoryKeystore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func NewMemoryKeystore() *MemoryKeystore {
	return &MemoryKeystore{entries: map[string][]byte{}}
}

func (s *MemoryKeystore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrKeyNotFound, key)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *MemoryKeystore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.entries[key] = cp
	return nil
}

func (s *MemoryKeystore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
