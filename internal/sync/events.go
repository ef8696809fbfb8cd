package sync

import (
	"time"

	"github.com/driftwatch/server/internal/content"
	"github.com/driftwatch/server/internal/tracker"
)

// EventType names one of the coordinator's event streams.
type EventType string

const (
	// EventExternalChange fires when the store changed under a clean,
	// non-reactive tracker.
	EventExternalChange EventType = "external-change"
	// EventConflict fires when both local and disk diverged from base.
	EventConflict EventType = "conflict"
	// EventReloaded fires when a reactive tracker auto-applied disk content.
	EventReloaded EventType = "reloaded"
	// EventDeleted fires when the tracked path disappeared from the store.
	EventDeleted EventType = "deleted"
	// EventSynced fires when a self-write was confirmed on the store.
	EventSynced EventType = "synced"
)

// Event is the payload delivered to subscribers. Which fields are set depends
// on Type; Path and Tracker are always set.
type Event struct {
	Type    EventType
	Path    string
	Tracker *tracker.Tracker

	// NewMtime is the observed modification time (external-change).
	NewMtime time.Time

	// BaseContent, LocalContent and DiskContent carry the three sides of a
	// conflict for the caller to resolve.
	BaseContent  content.Handle
	LocalContent content.Handle
	DiskContent  content.Handle

	// NewContent is the content applied by a reactive auto-reload (reloaded).
	NewContent content.Handle
}

// Handler consumes one event. Handlers run on the coordinator's
// reconciliation goroutines; panics are caught and logged per handler so one
// failing subscriber cannot break delivery to the others.
type Handler func(Event)
