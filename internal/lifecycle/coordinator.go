// Package lifecycle brings the runtime subsystems up after setup completes
// and tracks which one failed when readiness cannot be reached.
package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/uniclip/uniclipboard/internal/logging"
)

// State is the coordinator's readiness state.
type State string

const (
	StateIdle          State = "idle"
	StatePending       State = "pending"
	StateReady         State = "ready"
	StateWatcherFailed State = "watcher_failed"
	StateNetworkFailed State = "network_failed"
)

// EventName is a named lifecycle notification; the UI maps names to text.
type EventName string

const (
	EventReady         EventName = "ready"
	EventWatcherFailed EventName = "watcher_failed"
	EventNetworkFailed EventName = "network_failed"
	EventSessionReady  EventName = "session_ready"
)

// Notifier receives lifecycle events. It must not block.
type Notifier func(name EventName, message string)

// Coordinator starts the watcher and the network exactly once and reports
// readiness. Recovery after a failure is an external re-call to EnsureReady.
type Coordinator struct {
	mu    sync.Mutex
	state State

	startWatcher func(ctx context.Context) error
	startNetwork func(ctx context.Context) error
	announce     func(ctx context.Context) error
	notify       Notifier
	log          logging.Logger
}

// NewCoordinator wires a Coordinator. announce and notify may be nil.
func NewCoordinator(startWatcher, startNetwork, announce func(ctx context.Context) error, notify Notifier, log logging.Logger) *Coordinator {
	if notify == nil {
		notify = func(EventName, string) {}
	}
	return &Coordinator{
		state:        StateIdle,
		startWatcher: startWatcher,
		startNetwork: startNetwork,
		announce:     announce,
		notify:       notify,
		log:          log,
	}
}

// State reports the current readiness state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// EnsureReady brings the subsystems up. Already-ready short-circuits.
func (c *Coordinator) EnsureReady(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateReady {
		c.mu.Unlock()
		return nil
	}
	c.state = StatePending
	c.mu.Unlock()

	if err := c.startWatcher(ctx); err != nil {
		c.setState(StateWatcherFailed)
		c.notify(EventWatcherFailed, err.Error())
		return fmt.Errorf("failed to start clipboard watcher: %w", err)
	}
	if err := c.startNetwork(ctx); err != nil {
		c.setState(StateNetworkFailed)
		c.notify(EventNetworkFailed, err.Error())
		return fmt.Errorf("failed to start network: %w", err)
	}

	// Announcing the device name is best effort.
	if c.announce != nil {
		if err := c.announce(ctx); err != nil {
			c.log.Warn(ctx, "device name announce failed", "error", err)
		}
	}

	c.setState(StateReady)
	c.notify(EventReady, "")
	c.notify(EventSessionReady, "")
	return nil
}

func (c *Coordinator) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}
