package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Accessor. It backs the polling strategy and
// coordinator tests, and doubles as a scratch store for callers that want the
// engine without a filesystem.
type Memory struct {
	mu    sync.RWMutex
	files map[string]memoryFile
	now   func() time.Time
}

type memoryFile struct {
	data  []byte
	mtime time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		files: make(map[string]memoryFile),
		now:   time.Now,
	}
}

// SetClock overrides the store's clock. Tests use it to control mtimes.
func (s *Memory) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func normalize(path string) string {
	return strings.Trim(strings.ReplaceAll(path, "\\", "/"), "/")
}

// Read implements Accessor.
func (s *Memory) Read(ctx context.Context, path string) ([]byte, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, time.Time{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[normalize(path)]
	if !ok {
		return nil, time.Time{}, fmt.Errorf("%s: %w", path, ErrNotFound)
	}

	data := make([]byte, len(f.data))
	copy(data, f.data)
	return data, f.mtime, nil
}

// Write implements Accessor.
func (s *Memory) Write(ctx context.Context, path string, data []byte) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	mtime := s.now()
	s.files[normalize(path)] = memoryFile{data: buf, mtime: mtime}
	return mtime, nil
}

// WriteAt stores content with an explicit mtime, bypassing the clock. Tests
// use it to simulate external writers with coarse or out-of-order timestamps.
func (s *Memory) WriteAt(path string, data []byte, mtime time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	s.files[normalize(path)] = memoryFile{data: buf, mtime: mtime}
}

// Exists implements Accessor.
func (s *Memory) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	key := normalize(path)
	if _, ok := s.files[key]; ok {
		return true, nil
	}
	// A path also exists if it is a directory prefix of any stored file.
	prefix := key + "/"
	if key == "" {
		return true, nil
	}
	for name := range s.files {
		if strings.HasPrefix(name, prefix) {
			return true, nil
		}
	}
	return false, nil
}

// List implements Accessor. Directories exist implicitly as path prefixes.
func (s *Memory) List(ctx context.Context, path string) ([]EntryInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := normalize(path)
	prefix := ""
	if dir != "" {
		if _, isFile := s.files[dir]; isFile {
			return nil, fmt.Errorf("%s: %w", path, ErrNotADir)
		}
		prefix = dir + "/"
	}

	seen := make(map[string]EntryInfo)
	found := dir == ""
	for name, f := range s.files {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		found = true
		rest := strings.TrimPrefix(name, prefix)
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			// A file deeper down implies a child directory here.
			child := rest[:idx]
			if existing, ok := seen[child]; !ok || f.mtime.After(existing.ModTime) {
				seen[child] = EntryInfo{Name: child, IsDir: true, ModTime: f.mtime}
			}
			continue
		}
		seen[rest] = EntryInfo{
			Name:    rest,
			IsDir:   false,
			Size:    int64(len(f.data)),
			ModTime: f.mtime,
		}
	}

	if !found {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}

	infos := make([]EntryInfo, 0, len(seen))
	for _, info := range seen {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Remove implements Accessor.
func (s *Memory) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalize(path)
	if _, ok := s.files[key]; !ok {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	delete(s.files, key)
	return nil
}
