// Package watch abstracts how the sync engine learns that the backing store
// changed. Two interchangeable strategies implement one contract: a native
// push-based strategy built on fsnotify and a polling strategy that snapshots
// a subtree and diffs it on an interval. A manager selects between them and
// falls back at runtime if the native strategy fails to start.
package watch

import (
	"context"
	"strings"
	"sync"
)

// Kind classifies one raw change observation.
type Kind int

const (
	// KindUnknown is an observation the strategy could not classify.
	KindUnknown Kind = iota
	// KindAppeared means the entry is present now but was not before.
	KindAppeared
	// KindDisappeared means the entry was present before but is not now.
	KindDisappeared
	// KindModified means the entry's content or metadata changed.
	KindModified
	// KindMoved means the entry was renamed; From carries the old path.
	KindMoved
	// KindErrored means the strategy failed to observe the root this cycle.
	KindErrored
)

// String returns a readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindAppeared:
		return "appeared"
	case KindDisappeared:
		return "disappeared"
	case KindModified:
		return "modified"
	case KindMoved:
		return "moved"
	case KindErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Record is one raw observation, consumed immediately by the coordinator's
// debounce queue and never stored long-term.
type Record struct {
	// Path segments relative to the observed root.
	Path []string
	Kind Kind
	// From is the previous path for moves, nil otherwise.
	From []string
}

// JoinPath renders path segments as a slash-separated relative path.
func JoinPath(segments []string) string {
	return strings.Join(segments, "/")
}

// SplitPath splits a slash-separated relative path into segments.
func SplitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// Strategy is the change-notification contract. Observe starts delivery of
// change records for the subtree under root (a slash-separated path relative
// to the backing store; empty means the whole store). Subscribers receive
// batches asynchronously until Disconnect.
type Strategy interface {
	Observe(ctx context.Context, root string, recursive bool) error
	Subscribe(fn func(records []Record)) (unsubscribe func())
	Disconnect() error
}

// emitter fans record batches out to subscribers. Embedded by the concrete
// strategies.
type emitter struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func([]Record)
}

// Subscribe registers fn and returns a function that removes it.
func (e *emitter) Subscribe(fn func(records []Record)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.subs == nil {
		e.subs = make(map[int]func([]Record))
	}
	id := e.nextID
	e.nextID++
	e.subs[id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

// emit delivers a batch to every subscriber.
func (e *emitter) emit(records []Record) {
	if len(records) == 0 {
		return
	}

	e.mu.Lock()
	fns := make([]func([]Record), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(records)
	}
}
