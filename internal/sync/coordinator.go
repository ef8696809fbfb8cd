// Package sync implements the synchronization coordinator: it owns the set
// of tracked paths, drives the change-notification strategy, debounces bursts
// of raw records per path, filters out self-inflicted writes via write-intent
// tokens, updates per-path trackers and emits typed events to subscribers.
package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/driftwatch/server/internal/content"
	"github.com/driftwatch/server/internal/store"
	"github.com/driftwatch/server/internal/token"
	"github.com/driftwatch/server/internal/tracker"
	"github.com/driftwatch/server/internal/watch"
)

// DefaultDebounceWindow is the trailing debounce applied per path when none
// is configured.
const DefaultDebounceWindow = 100 * time.Millisecond

// Options configure a Coordinator.
type Options struct {
	// DebounceWindow is the per-path trailing debounce for raw records.
	DebounceWindow time.Duration
	// Root is the store-relative subtree the coordinator observes. Empty
	// observes the whole store.
	Root string
}

// TrackOptions configure one Track call.
type TrackOptions struct {
	// InitialContent seeds the tracker instead of reading the store.
	InitialContent *content.Handle
	// Reactive selects reactive mode: external changes are auto-applied when
	// the tracker holds no local edits.
	Reactive bool
}

// pendingChange is the debounce slot for one path: a single timer and the
// most recent record kind. Intermediate records within the window are never
// individually inspected.
type pendingChange struct {
	timer *time.Timer
	kind  watch.Kind
}

// Coordinator orchestrates the sync engine. The tracker and token maps are
// owned exclusively by the coordinator and mutated only under its lock.
type Coordinator struct {
	store    store.Accessor
	strategy watch.Strategy
	tokens   *token.Registry
	window   time.Duration
	root     string

	mu          gosync.Mutex
	trackers    map[string]*tracker.Tracker
	pending     map[string]*pendingChange
	handlers    map[EventType]map[int]Handler
	nextHandler int
	recordsOff  func()
	observing   bool
	disposed    bool
}

// NewCoordinator creates a coordinator over the injected store, notification
// strategy and token registry. The strategy is not started until the first
// Track call.
func NewCoordinator(acc store.Accessor, strategy watch.Strategy, tokens *token.Registry, opts Options) *Coordinator {
	window := opts.DebounceWindow
	if window <= 0 {
		window = DefaultDebounceWindow
	}

	return &Coordinator{
		store:    acc,
		strategy: strategy,
		tokens:   tokens,
		window:   window,
		root:     opts.Root,
		trackers: make(map[string]*tracker.Tracker),
		pending:  make(map[string]*pendingChange),
		handlers: make(map[EventType]map[int]Handler),
	}
}

// Track begins tracking a path. Idempotent: tracking an already tracked path
// returns its existing tracker. The tracker is seeded from InitialContent
// when supplied, otherwise from a fresh store read; a failed read seeds an
// empty handle, since tracking a not-yet-created file is valid.
func (c *Coordinator) Track(ctx context.Context, path string, opts TrackOptions) (*tracker.Tracker, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil, ErrDisposed
	}
	if existing, ok := c.trackers[path]; ok {
		c.mu.Unlock()
		return existing, nil
	}
	c.mu.Unlock()

	var seed content.Handle
	var mtime time.Time
	if opts.InitialContent != nil {
		seed = *opts.InitialContent
	} else {
		data, readMtime, err := c.store.Read(ctx, path)
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("Seed read failed, tracking as empty")
			seed = content.Empty()
		} else {
			seed = content.FromBytes(data)
			mtime = readMtime
		}
	}

	mode := tracker.ModeTracked
	if opts.Reactive {
		mode = tracker.ModeReactive
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil, ErrDisposed
	}
	if existing, ok := c.trackers[path]; ok {
		// Lost the race against a concurrent Track for the same path.
		c.mu.Unlock()
		return existing, nil
	}

	tr := tracker.New(path, mode, seed, mtime)
	c.trackers[path] = tr
	needStart := !c.observing
	if needStart {
		c.observing = true
	}
	c.mu.Unlock()

	if needStart {
		c.startObserving(ctx)
	}

	log.Debug().Str("path", path).Str("mode", mode.String()).Msg("Tracking path")
	return tr, nil
}

// startObserving starts the notification strategy on the coordinator's root.
// A startup failure degrades to an untracked-but-registered state and is
// logged, not propagated: the engine self-heals if the strategy can start on
// a later Track.
func (c *Coordinator) startObserving(ctx context.Context) {
	if err := c.strategy.Observe(ctx, c.root, true); err != nil {
		log.Error().Err(err).Str("root", c.root).Msg("Failed to start change notifications")
		c.mu.Lock()
		c.observing = false
		c.mu.Unlock()
		return
	}

	off := c.strategy.Subscribe(c.handleRecords)
	c.mu.Lock()
	c.recordsOff = off
	c.mu.Unlock()
}

// Untrack stops tracking a path, clears its write token and cancels any
// pending debounce. Once no paths remain tracked the notification strategy
// is stopped entirely.
func (c *Coordinator) Untrack(path string) {
	c.mu.Lock()
	delete(c.trackers, path)
	if p, ok := c.pending[path]; ok {
		p.timer.Stop()
		delete(c.pending, path)
	}
	idle := len(c.trackers) == 0 && c.observing
	var off func()
	if idle {
		c.observing = false
		off = c.recordsOff
		c.recordsOff = nil
	}
	c.mu.Unlock()

	c.tokens.Clear(path)

	if idle {
		if off != nil {
			off()
		}
		if err := c.strategy.Disconnect(); err != nil {
			log.Warn().Err(err).Msg("Failed to stop change notifications")
		}
		log.Debug().Msg("No paths tracked, notifications stopped")
	}
}

// Tracked returns the tracker for a path, if any.
func (c *Coordinator) Tracked(path string) (*tracker.Tracker, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tr, ok := c.trackers[path]
	return tr, ok
}

// TrackedPaths returns all tracked paths.
func (c *Coordinator) TrackedPaths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	paths := make([]string, 0, len(c.trackers))
	for path := range c.trackers {
		paths = append(paths, path)
	}
	return paths
}

// BeginWrite declares that the caller is about to write the path, so the
// resulting store notification is classified as self-inflicted. Must be
// called immediately before the actual write so the token's mtime floor
// precedes it.
func (c *Coordinator) BeginWrite(path, contentHash string) *token.WriteToken {
	return c.tokens.Generate(path, contentHash)
}

// On subscribes a handler to one event type and returns an unsubscribe
// function. Multiple handlers per type are supported.
func (c *Coordinator) On(eventType EventType, handler Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handlers[eventType] == nil {
		c.handlers[eventType] = make(map[int]Handler)
	}
	id := c.nextHandler
	c.nextHandler++
	c.handlers[eventType][id] = handler

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[eventType], id)
	}
}

// Dispose clears all trackers, handlers and tokens and stops the
// notification strategy. In-flight reconciliation reads are not cancelled;
// their late results are discarded because the trackers are gone.
func (c *Coordinator) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	for _, p := range c.pending {
		p.timer.Stop()
	}
	c.pending = make(map[string]*pendingChange)
	c.trackers = make(map[string]*tracker.Tracker)
	c.handlers = make(map[EventType]map[int]Handler)
	wasObserving := c.observing
	c.observing = false
	off := c.recordsOff
	c.recordsOff = nil
	c.mu.Unlock()

	c.tokens.Dispose()

	if off != nil {
		off()
	}
	if wasObserving {
		if err := c.strategy.Disconnect(); err != nil {
			log.Warn().Err(err).Msg("Failed to stop change notifications on dispose")
		}
	}
}

// handleRecords feeds raw change records into the per-path debounce queue.
// Moves are expanded into a disappearance of the old path and an appearance
// of the new one before debouncing.
func (c *Coordinator) handleRecords(records []watch.Record) {
	for _, rec := range records {
		switch rec.Kind {
		case watch.KindMoved:
			c.schedule(c.storePath(rec.From), watch.KindDisappeared)
			c.schedule(c.storePath(rec.Path), watch.KindAppeared)
		case watch.KindErrored, watch.KindUnknown:
			log.Debug().Str("kind", rec.Kind.String()).Str("path", watch.JoinPath(rec.Path)).
				Msg("Skipping unactionable change record")
		default:
			c.schedule(c.storePath(rec.Path), rec.Kind)
		}
	}
}

// storePath rebases a record path, which the strategy reports relative to the
// observed root, onto the store root the trackers are keyed by.
func (c *Coordinator) storePath(segments []string) string {
	path := watch.JoinPath(segments)
	if c.root == "" {
		return path
	}
	return c.root + "/" + path
}

// schedule arms or resets the trailing debounce for a path. Only the most
// recent record kind survives the window.
func (c *Coordinator) schedule(path string, kind watch.Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}
	if _, tracked := c.trackers[path]; !tracked {
		return
	}

	if p, ok := c.pending[path]; ok {
		p.kind = kind
		p.timer.Reset(c.window)
		return
	}

	p := &pendingChange{kind: kind}
	p.timer = time.AfterFunc(c.window, func() { c.settle(path) })
	c.pending[path] = p
}

// settle runs when a path's debounce window elapses with no further records.
func (c *Coordinator) settle(path string) {
	c.mu.Lock()
	p, ok := c.pending[path]
	if ok {
		delete(c.pending, path)
	}
	tr := c.trackers[path]
	c.mu.Unlock()

	if !ok || tr == nil {
		return
	}

	if p.kind == watch.KindDisappeared {
		// Deletion always surfaces, independent of tracker state; it is
		// never silently reconciled.
		c.emit(Event{Type: EventDeleted, Path: path, Tracker: tr})
		return
	}

	c.reconcile(path, tr)
}

// reconcile re-reads the store for a settled path and applies the resolution
// policy. A read failure abandons the cycle; the tracker keeps its
// last-known state and is corrected on the next observed change.
func (c *Coordinator) reconcile(path string, tr *tracker.Tracker) {
	data, mtime, err := c.store.Read(context.Background(), path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Reconciliation read failed, abandoning cycle")
		return
	}

	h := content.FromBytes(data)

	if _, ok := c.tokens.Match(path, mtime, h.Hash()); ok {
		tr.MarkSynced(h, mtime)
		c.emit(Event{Type: EventSynced, Path: path, Tracker: tr})
		return
	}

	tr.UpdateDiskState(h, mtime)

	if tr.Mode() == tracker.ModeReactive {
		if !tr.IsDirty() {
			// The only path allowed to overwrite local state without
			// explicit user action, taken only when there is nothing local
			// to lose.
			tr.MarkSynced(h, mtime)
			c.emit(Event{Type: EventReloaded, Path: path, Tracker: tr, NewContent: h})
			return
		}
		c.emit(Event{
			Type:         EventConflict,
			Path:         path,
			Tracker:      tr,
			BaseContent:  tr.Base(),
			LocalContent: tr.Local(),
			DiskContent:  h,
		})
		return
	}

	switch tr.State() {
	case tracker.StateExternalChanges:
		c.emit(Event{Type: EventExternalChange, Path: path, Tracker: tr, NewMtime: mtime})
	case tracker.StateConflict:
		c.emit(Event{
			Type:         EventConflict,
			Path:         path,
			Tracker:      tr,
			BaseContent:  tr.Base(),
			LocalContent: tr.Local(),
			DiskContent:  h,
		})
	default:
		// The re-read matched base (e.g. a metadata-only touch); nothing to
		// surface.
	}
}

// emit delivers an event to every subscriber of its type, isolating handler
// panics so one failing subscriber cannot break the others or the
// notification pipeline.
func (c *Coordinator) emit(ev Event) {
	c.mu.Lock()
	fns := make([]Handler, 0, len(c.handlers[ev.Type]))
	for _, fn := range c.handlers[ev.Type] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Str("event", string(ev.Type)).
						Str("path", ev.Path).Msg("Event handler panicked")
				}
			}()
			fn(ev)
		}()
	}
}
