// Package clipboard implements the local clipboard domain: the ports to the
// platform clipboard, the selection policy, the capture use case, and the
// sync paths that move snapshots between paired devices.
package clipboard

import (
	"sync"

	"github.com/uniclip/uniclipboard/internal/models"
)

// Origin tags why the system clipboard changed.
type Origin string

const (
	// OriginLocalCapture: the user copied something on this device.
	OriginLocalCapture Origin = "local_capture"
	// OriginRemotePush: an inbound sync wrote the clipboard.
	OriginRemotePush Origin = "remote_push"
)

// SystemClipboardPort is the platform clipboard adapter. Blocking platform
// calls are the adapter's problem; the core treats format ids and MIME
// strings opaquely.
type SystemClipboardPort interface {
	ReadSnapshot() (*models.SystemClipboardSnapshot, error)
	WriteSnapshot(snapshot models.SystemClipboardSnapshot) error
}

// ChangeOriginPort carries the origin of the next clipboard observation
// from the writer to the watcher.
type ChangeOriginPort interface {
	// Publish records the origin for the next observation only.
	Publish(origin Origin)
	// ConsumeOriginOrDefault reads and clears the pending origin, returning
	// def when none was published.
	ConsumeOriginOrDefault(def Origin) Origin
}

// MemoryOriginPort is the in-process ChangeOriginPort.
type MemoryOriginPort struct {
	mu      sync.Mutex
	pending *Origin
}

func NewMemoryOriginPort() *MemoryOriginPort {
	return &MemoryOriginPort{}
}

func (p *MemoryOriginPort) Publish(origin Origin) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = &origin
}

func (p *MemoryOriginPort) ConsumeOriginOrDefault(def Origin) Origin {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return def
	}
	origin := *p.pending
	p.pending = nil
	return origin
}
