package spool

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/filex"
	"github.com/uniclip/uniclipboard/internal/models"
)

// Manager owns the on-disk spool: one file per representation, named by its
// id, under a 0700 directory. The total size is bounded; Write enforces the
// bound by deleting the oldest-mtime entries until the new total fits.
type Manager struct {
	dir      string
	maxBytes int64
}

// NewManager creates the spool directory if needed.
func NewManager(dir string, maxBytes int64) (*Manager, error) {
	if err := filex.EnsureDir(dir, 0o700); err != nil {
		return nil, err
	}
	return &Manager{dir: dir, maxBytes: maxBytes}, nil
}

func (m *Manager) path(id models.RepresentationID) string {
	return filepath.Join(m.dir, string(id))
}

// Write atomically persists data for id, then trims the spool to its size
// bound. The just-written file is never the trim victim unless it alone
// exceeds the bound.
func (m *Manager) Write(id models.RepresentationID, data []byte) error {
	if err := filex.WriteFileAtomic(m.path(id), data, 0o600); err != nil {
		return fmt.Errorf("spool write %s: %w", id, err)
	}
	return m.enforceLimit(id)
}

// Read returns the spooled bytes for id.
func (m *Manager) Read(id models.RepresentationID) ([]byte, error) {
	data, err := os.ReadFile(m.path(id))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: spool entry %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("spool read %s: %w", id, err)
	}
	return data, nil
}

// Delete removes the spool file for id. Missing files are not an error.
func (m *Manager) Delete(id models.RepresentationID) error {
	err := os.Remove(m.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("spool delete %s: %w", id, err)
	}
	return nil
}

// List returns the ids of all spooled entries.
func (m *Manager) List() ([]models.RepresentationID, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("spool list: %w", err)
	}
	var ids []models.RepresentationID
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ids = append(ids, models.RepresentationID(e.Name()))
	}
	return ids, nil
}

// ListExpired returns ids whose modification time is older than ttlDays
// relative to nowMs.
func (m *Manager) ListExpired(nowMs int64, ttlDays int) ([]models.RepresentationID, error) {
	cutoff := nowMs - int64(ttlDays)*24*int64(time.Hour/time.Millisecond)

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("spool list: %w", err)
	}
	var ids []models.RepresentationID
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().UnixMilli() < cutoff {
			ids = append(ids, models.RepresentationID(e.Name()))
		}
	}
	return ids, nil
}

type spoolFile struct {
	id    models.RepresentationID
	size  int64
	mtime time.Time
}

func (m *Manager) enforceLimit(keep models.RepresentationID) error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return fmt.Errorf("spool list: %w", err)
	}

	var files []spoolFile
	var total int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, spoolFile{
			id:    models.RepresentationID(e.Name()),
			size:  info.Size(),
			mtime: info.ModTime(),
		})
		total += info.Size()
	}
	if total <= m.maxBytes {
		return nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mtime.Before(files[j].mtime) })
	for _, f := range files {
		if total <= m.maxBytes {
			break
		}
		if f.id == keep {
			continue
		}
		if err := m.Delete(f.id); err != nil {
			return err
		}
		total -= f.size
	}
	return nil
}
