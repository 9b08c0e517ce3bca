// Package encryption owns the process-wide encryption session (the unlocked
// master key), the on-disk initialized marker, and the key-material service
// that creates a space or installs material received from a sponsor.
package encryption

import (
	"sync"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/models"
)

// Session holds the master key for the lifetime of the unlocked process.
// There is exactly one per process; everything that encrypts or decrypts
// user data reads the key from here.
type Session struct {
	mu  sync.Mutex
	key *models.MasterKey
}

// NewSession returns a locked session.
func NewSession() *Session {
	return &Session{}
}

// IsReady reports whether a master key is installed.
func (s *Session) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key != nil
}

// MasterKey returns a copy of the installed key, or common.ErrNotInitialized
// when the session is locked.
func (s *Session) MasterKey() (models.MasterKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return models.MasterKey{}, common.ErrNotInitialized
	}
	return *s.key, nil
}

// SetMasterKey installs the key.
func (s *Session) SetMasterKey(mk models.MasterKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = &mk
}

// Clear removes the key, locking the session.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = nil
}
