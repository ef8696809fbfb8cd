package watch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/driftwatch/server/internal/store"
)

// DefaultPollInterval is the snapshot interval when none is configured.
const DefaultPollInterval = time.Second

// pollEntry is one snapshot row: entry kind plus, for files, the size and
// mtime used to detect modification.
type pollEntry struct {
	isDir bool
	size  int64
	mtime time.Time
}

// snapshot maps slash-joined paths (relative to the observed root) to their
// last observed state.
type snapshot map[string]pollEntry

// Polling is the fallback strategy for stores without a native change API.
// It walks the observed subtree on an interval and diffs each walk against
// the previous one.
type Polling struct {
	emitter

	store    store.Accessor
	interval time.Duration

	mu        sync.Mutex
	root      string
	recursive bool
	prev      snapshot
	stopCh    chan struct{}
	observing bool
	ticking   bool
}

// NewPolling creates a polling strategy over the given accessor.
func NewPolling(acc store.Accessor, interval time.Duration) *Polling {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Polling{store: acc, interval: interval}
}

// Observe takes the initial snapshot and starts the poll loop.
func (p *Polling) Observe(ctx context.Context, root string, recursive bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.observing {
		return nil
	}

	p.root = root
	p.recursive = recursive

	snap, err := p.walk(ctx)
	if err != nil {
		return err
	}
	p.prev = snap

	p.stopCh = make(chan struct{})
	p.observing = true
	go p.loop(p.stopCh)

	log.Debug().Str("root", root).Dur("interval", p.interval).Msg("Polling watch started")
	return nil
}

func (p *Polling) loop(stopCh chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.tick(context.Background())
		}
	}
}

// tick runs one poll cycle. A new tick is skipped while the previous one is
// still walking the subtree.
func (p *Polling) tick(ctx context.Context) {
	p.mu.Lock()
	if p.ticking || !p.observing {
		p.mu.Unlock()
		return
	}
	p.ticking = true
	prev := p.prev
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.ticking = false
		p.mu.Unlock()
	}()

	next, err := p.walk(ctx)
	if err != nil {
		// One errored record per failed cycle, never a panic or a partial diff.
		log.Warn().Err(err).Str("root", p.root).Msg("Poll walk failed")
		p.emit([]Record{{Path: SplitPath(p.root), Kind: KindErrored}})
		return
	}

	records := diff(prev, next)

	p.mu.Lock()
	p.prev = next
	p.mu.Unlock()

	p.emit(records)
}

// Poll forces one poll cycle outside the ticker. Tests drive the strategy
// with it instead of waiting on wall-clock intervals.
func (p *Polling) Poll(ctx context.Context) {
	p.tick(ctx)
}

// walk builds a snapshot of the observed subtree.
func (p *Polling) walk(ctx context.Context) (snapshot, error) {
	snap := make(snapshot)
	if err := p.walkDir(ctx, p.root, "", snap, true); err != nil {
		return nil, err
	}
	return snap, nil
}

func (p *Polling) walkDir(ctx context.Context, dir, rel string, snap snapshot, isRoot bool) error {
	entries, err := p.store.List(ctx, dir)
	if err != nil {
		if isRoot {
			return err
		}
		// A subdirectory that vanished mid-walk shows up as disappeared
		// entries on the next diff; not fatal for this cycle.
		log.Debug().Err(err).Str("dir", dir).Msg("Skipping unreadable directory during poll")
		return nil
	}

	for _, entry := range entries {
		key := entry.Name
		if rel != "" {
			key = rel + "/" + entry.Name
		}
		child := key
		if p.root != "" {
			child = p.root + "/" + key
		}

		if entry.IsDir {
			snap[key] = pollEntry{isDir: true}
			if p.recursive {
				if err := p.walkDir(ctx, child, key, snap, false); err != nil {
					return err
				}
			}
			continue
		}
		snap[key] = pollEntry{size: entry.Size, mtime: entry.ModTime}
	}
	return nil
}

// diff compares two snapshots and emits one record per divergent entry. A
// kind change at the same name is a disappearance followed by an appearance.
func diff(prev, next snapshot) []Record {
	var records []Record

	for key, old := range prev {
		cur, ok := next[key]
		if !ok {
			records = append(records, Record{Path: SplitPath(key), Kind: KindDisappeared})
			continue
		}
		if old.isDir != cur.isDir {
			records = append(records,
				Record{Path: SplitPath(key), Kind: KindDisappeared},
				Record{Path: SplitPath(key), Kind: KindAppeared},
			)
			continue
		}
		if !old.isDir && (old.size != cur.size || !old.mtime.Equal(cur.mtime)) {
			records = append(records, Record{Path: SplitPath(key), Kind: KindModified})
		}
	}

	for key := range next {
		if _, ok := prev[key]; !ok {
			records = append(records, Record{Path: SplitPath(key), Kind: KindAppeared})
		}
	}

	return records
}

// Disconnect stops the poll loop and drops the snapshot.
func (p *Polling) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
	p.observing = false
	p.prev = nil
	return nil
}
