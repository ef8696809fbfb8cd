package sync

import "errors"

// Common errors returned by the coordinator
var (
	ErrDisposed    = errors.New("coordinator disposed")
	ErrNotTracked  = errors.New("path not tracked")
	ErrInvalidPath = errors.New("invalid path")
)
