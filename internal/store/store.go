// Copyright Ricardo Oliveira 2025.
// SPDX-License-Identifier: MPL-2.0

// Package store defines the backing-store contract the sync engine observes
// and the concrete accessors shipped with the server.
package store

import (
	"context"
	"errors"
	"time"
)

// Common errors returned by store accessors
var (
	ErrNotFound    = errors.New("path not found")
	ErrNotAFile    = errors.New("path is not a file")
	ErrNotADir     = errors.New("path is not a directory")
	ErrInvalidPath = errors.New("invalid path")
)

// EntryInfo describes one directory entry with the metadata the polling
// strategy needs to snapshot a subtree.
type EntryInfo struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// Accessor is the narrow read/write/list contract injected into the engine.
// Paths are slash-separated and relative to the accessor's root. The engine
// never reaches past this interface into the storage itself.
type Accessor interface {
	// Read returns the file's content and its last-modified time.
	Read(ctx context.Context, path string) ([]byte, time.Time, error)

	// Write replaces the file's content, creating it and any missing parent
	// directories, and returns the resulting last-modified time.
	Write(ctx context.Context, path string, data []byte) (time.Time, error)

	// Exists reports whether the path exists at all (file or directory).
	Exists(ctx context.Context, path string) (bool, error)

	// List returns the entries of a directory with per-entry metadata.
	List(ctx context.Context, path string) ([]EntryInfo, error)

	// Remove deletes a file.
	Remove(ctx context.Context, path string) error
}
