// Package tracker holds the per-path three-way state the sync engine
// reconciles: the last mutually agreed base content, the application's local
// copy, and the content last observed on the backing store.
package tracker

import (
	"sync"
	"time"

	"github.com/driftwatch/server/internal/content"
)

// Mode selects how the coordinator reacts to external changes for a path.
type Mode int

const (
	// ModeTracked surfaces external changes and conflicts as events without
	// ever mutating local content.
	ModeTracked Mode = iota
	// ModeReactive auto-reloads external changes when there is no local edit
	// to lose, and surfaces a conflict otherwise.
	ModeReactive
)

// String returns a readable name for the mode.
func (m Mode) String() string {
	if m == ModeReactive {
		return "reactive"
	}
	return "tracked"
}

// SyncState is derived from the pairwise equality of base, local and disk
// content. It is never stored as free-standing truth.
type SyncState int

const (
	// StateSynced means base, local and disk all agree.
	StateSynced SyncState = iota
	// StateLocalChanges means only the local copy diverged from base.
	StateLocalChanges
	// StateExternalChanges means only the disk copy diverged from base.
	StateExternalChanges
	// StateConflict means both local and disk diverged from base.
	StateConflict
)

// String returns the state's wire name.
func (s SyncState) String() string {
	switch s {
	case StateLocalChanges:
		return "local-changes"
	case StateExternalChanges:
		return "external-changes"
	case StateConflict:
		return "conflict"
	default:
		return "synced"
	}
}

// Tracker is the per-path state holder. It performs no I/O and holds no
// timers; all transitions are driven by the coordinator.
type Tracker struct {
	path string
	mode Mode

	mu        sync.RWMutex
	base      content.Handle
	local     content.Handle
	disk      content.Handle
	diskMtime time.Time
}

// New creates a tracker seeded so that base, local and disk all hold the
// given content.
func New(path string, mode Mode, seed content.Handle, mtime time.Time) *Tracker {
	return &Tracker{
		path:      path,
		mode:      mode,
		base:      seed,
		local:     seed,
		disk:      seed,
		diskMtime: mtime,
	}
}

// Path returns the tracked path.
func (t *Tracker) Path() string { return t.path }

// Mode returns the tracking mode.
func (t *Tracker) Mode() Mode { return t.mode }

// SetLocalContent replaces the local copy. Base and disk are untouched.
func (t *Tracker) SetLocalContent(h content.Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.local = h
}

// UpdateDiskState records content observed on the backing store after a
// confirmed non-self-inflicted change. Local and base are untouched.
func (t *Tracker) UpdateDiskState(h content.Handle, mtime time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disk = h
	t.diskMtime = mtime
}

// MarkSynced collapses all three references onto the given content. Used when
// a self-write is confirmed and when a reactive auto-reload succeeds.
func (t *Tracker) MarkSynced(h content.Handle, mtime time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.base = h
	t.local = h
	t.disk = h
	t.diskMtime = mtime
}

// Base returns the last mutually agreed content.
func (t *Tracker) Base() content.Handle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.base
}

// Local returns the application's current copy.
func (t *Tracker) Local() content.Handle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.local
}

// Disk returns the content last observed on the backing store.
func (t *Tracker) Disk() content.Handle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.disk
}

// DiskMtime returns the last observed modification time.
func (t *Tracker) DiskMtime() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.diskMtime
}

// IsDirty reports whether the local copy diverged from base.
func (t *Tracker) IsDirty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.local.Equal(t.base)
}

// State derives the sync state from pairwise content equality.
func (t *Tracker) State() SyncState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	localDiverged := !t.local.Equal(t.base)
	diskDiverged := !t.disk.Equal(t.base)

	switch {
	case localDiverged && diskDiverged:
		return StateConflict
	case localDiverged:
		return StateLocalChanges
	case diskDiverged:
		return StateExternalChanges
	default:
		return StateSynced
	}
}
