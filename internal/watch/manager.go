package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/driftwatch/server/internal/store"
)

// Manager selects a notification strategy once at startup and swaps to the
// polling fallback at runtime if the native strategy fails its first Observe.
// The coordinator only ever talks to the manager, so it never branches on
// platform capability.
type Manager struct {
	emitter

	store        store.Accessor
	pollInterval time.Duration
	forcePolling bool

	mu        sync.Mutex
	active    Strategy
	activeOff func()
	observing bool
}

// ManagerOptions configure strategy selection.
type ManagerOptions struct {
	// PollInterval is the fallback strategy's snapshot interval.
	PollInterval time.Duration
	// ForcePolling skips the native capability probe entirely.
	ForcePolling bool
}

// NewManager creates a manager over the given accessor. The native strategy
// is only eligible when the accessor is backed by the local filesystem.
func NewManager(acc store.Accessor, opts ManagerOptions) *Manager {
	return &Manager{
		store:        acc,
		pollInterval: opts.PollInterval,
		forcePolling: opts.ForcePolling,
	}
}

// Observe selects a strategy and starts it. If the native strategy fails to
// start, the manager falls back to polling transparently.
func (m *Manager) Observe(ctx context.Context, root string, recursive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.observing {
		return nil
	}

	if native, nativeRoot, ok := m.probeNative(root); ok {
		err := m.startLocked(ctx, native, nativeRoot, recursive)
		if err == nil {
			m.observing = true
			return nil
		}
		log.Warn().Err(err).Msg("Native watch failed to start, falling back to polling")
		_ = native.Disconnect()
	}

	polling := NewPolling(m.store, m.pollInterval)
	if err := m.startLocked(ctx, polling, root, recursive); err != nil {
		return err
	}
	m.observing = true
	return nil
}

// probeNative reports whether a native strategy can observe this store, and
// resolves the store-relative root to the filesystem path the native API
// needs.
func (m *Manager) probeNative(root string) (Strategy, string, bool) {
	if m.forcePolling {
		return nil, "", false
	}

	osStore, ok := m.store.(*store.OS)
	if !ok {
		return nil, "", false
	}

	native, err := NewNative()
	if err != nil {
		log.Warn().Err(err).Msg("Native watch unavailable, using polling")
		return nil, "", false
	}

	return native, filepath.Join(osStore.Root(), filepath.FromSlash(root)), true
}

func (m *Manager) startLocked(ctx context.Context, s Strategy, root string, recursive bool) error {
	if err := s.Observe(ctx, root, recursive); err != nil {
		return err
	}
	m.active = s
	m.activeOff = s.Subscribe(m.emit)
	return nil
}

// Disconnect stops the active strategy.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil
	}
	if m.activeOff != nil {
		m.activeOff()
		m.activeOff = nil
	}
	err := m.active.Disconnect()
	m.active = nil
	m.observing = false
	return err
}
