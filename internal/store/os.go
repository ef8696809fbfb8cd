package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// OS is an Accessor over a directory of the local filesystem. All paths are
// resolved relative to the root and confined to it.
type OS struct {
	root string
}

// NewOS creates an accessor rooted at dir. The directory must exist.
func NewOS(dir string) (*OS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store root: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat store root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store root %s: %w", abs, ErrNotADir)
	}

	return &OS{root: abs}, nil
}

// Root returns the absolute root directory. The watch manager uses it to
// decide whether the native notification strategy can observe this store.
func (s *OS) Root() string {
	return s.root
}

// resolve maps a slash-separated relative path onto the filesystem, rejecting
// escapes from the root.
func (s *OS) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("%s: %w", path, ErrInvalidPath)
	}
	return filepath.Join(s.root, clean), nil
}

// Read implements Accessor.
func (s *OS) Read(ctx context.Context, path string) ([]byte, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, time.Time{}, err
	}

	full, err := s.resolve(path)
	if err != nil {
		return nil, time.Time{}, err
	}

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, time.Time{}, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, time.Time{}, err
	}
	if info.IsDir() {
		return nil, time.Time{}, fmt.Errorf("%s: %w", path, ErrNotAFile)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, time.Time{}, err
	}

	return data, info.ModTime(), nil
}

// Write implements Accessor.
func (s *OS) Write(ctx context.Context, path string, data []byte) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	full, err := s.resolve(path)
	if err != nil {
		return time.Time{}, err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return time.Time{}, fmt.Errorf("failed to create parent directories: %w", err)
	}

	if err := os.WriteFile(full, data, 0o644); err != nil {
		return time.Time{}, err
	}

	info, err := os.Stat(full)
	if err != nil {
		return time.Time{}, err
	}

	return info.ModTime(), nil
}

// Exists implements Accessor.
func (s *OS) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List implements Accessor.
func (s *OS) List(ctx context.Context, path string) ([]EntryInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, err
	}

	infos := make([]EntryInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			// Entry vanished between ReadDir and Info, skip it.
			continue
		}
		infos = append(infos, EntryInfo{
			Name:    entry.Name(),
			IsDir:   entry.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return infos, nil
}

// Remove implements Accessor.
func (s *OS) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return err
	}
	return nil
}
