// Package spaceaccess implements the post-pairing handoff of the master key
// from a sponsor device to a joiner. The sponsor proves nothing; the joiner
// proves knowledge of the passphrase by returning the sponsor's challenge
// nonce encrypted under the unwrapped master key.
package spaceaccess

import (
	"sync"
	"time"
)

// TimerPort bounds a protocol run. Start arms the expiry callback; Stop
// disarms it. Implementations must tolerate Stop without Start.
type TimerPort interface {
	Start(d time.Duration, onExpire func())
	Stop()
}

// WallTimer is the production TimerPort.
type WallTimer struct {
	mu    sync.Mutex
	timer *time.Timer
}

func NewWallTimer() *WallTimer {
	return &WallTimer{}
}

func (t *WallTimer) Start(d time.Duration, onExpire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(d, onExpire)
}

func (t *WallTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
