package clipboard

import (
	"sync"

	"github.com/uniclip/uniclipboard/internal/models"
)

// MemoryClipboard is an in-process SystemClipboardPort used by tests and by
// the CLI probe surface where no platform adapter is wired.
type MemoryClipboard struct {
	mu      sync.Mutex
	current *models.SystemClipboardSnapshot
}

func NewMemoryClipboard() *MemoryClipboard {
	return &MemoryClipboard{}
}

func (c *MemoryClipboard) ReadSnapshot() (*models.SystemClipboardSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return &models.SystemClipboardSnapshot{}, nil
	}
	cp := *c.current
	return &cp, nil
}

func (c *MemoryClipboard) WriteSnapshot(snapshot models.SystemClipboardSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = &snapshot
	return nil
}
