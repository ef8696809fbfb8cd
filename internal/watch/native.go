package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Native is the push-based strategy, wrapping the platform change API through
// fsnotify. Records pass through unmodified as the platform delivers them.
type Native struct {
	emitter

	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	root      string
	recursive bool
	stopCh    chan struct{}
	observing bool
}

// NewNative probes the platform for a native change API and returns the
// strategy if one is available.
func NewNative() (*Native, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Native{watcher: watcher}, nil
}

// Observe starts watching the subtree rooted at root. For this strategy root
// is an absolute filesystem path; the manager resolves store-relative roots
// before calling.
func (n *Native) Observe(ctx context.Context, root string, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.observing {
		return nil
	}

	n.root = root
	n.recursive = recursive

	if recursive {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return n.watcher.Add(path)
			}
			return nil
		})
		if err != nil {
			return err
		}
	} else {
		if err := n.watcher.Add(root); err != nil {
			return err
		}
	}

	n.stopCh = make(chan struct{})
	n.observing = true
	go n.loop(n.stopCh)

	log.Debug().Str("root", root).Bool("recursive", recursive).Msg("Native watch started")
	return nil
}

func (n *Native) loop(stopCh chan struct{}) {
	for {
		select {
		case <-stopCh:
			return

		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			if rec, ok := n.translate(event); ok {
				n.emit([]Record{rec})
			}

		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Native watch error")
			n.emit([]Record{{Kind: KindErrored}})
		}
	}
}

// translate maps an fsnotify event onto a Record. Chmod-only events are
// dropped; a metadata touch that matters shows up as a Write as well.
func (n *Native) translate(event fsnotify.Event) (Record, bool) {
	rel, err := filepath.Rel(n.root, event.Name)
	if err != nil || rel == "." {
		return Record{}, false
	}
	segments := SplitPath(filepath.ToSlash(rel))

	switch {
	case event.Op&fsnotify.Create != 0:
		// A directory created inside a recursively watched root must itself
		// be watched, fsnotify does not descend on its own.
		if n.recursive {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := n.watcher.Add(event.Name); err != nil {
					log.Warn().Err(err).Str("path", event.Name).Msg("Failed to watch new directory")
				}
			}
		}
		return Record{Path: segments, Kind: KindAppeared}, true

	case event.Op&fsnotify.Write != 0:
		return Record{Path: segments, Kind: KindModified}, true

	case event.Op&fsnotify.Remove != 0:
		return Record{Path: segments, Kind: KindDisappeared}, true

	case event.Op&fsnotify.Rename != 0:
		// fsnotify reports the old name; the new name arrives as a Create.
		return Record{Path: segments, Kind: KindDisappeared}, true

	default:
		return Record{}, false
	}
}

// Disconnect stops delivery and releases the platform watcher.
func (n *Native) Disconnect() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.stopCh != nil {
		close(n.stopCh)
		n.stopCh = nil
	}
	n.observing = false
	return n.watcher.Close()
}
