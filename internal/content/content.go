// Package content provides immutable content handles with hash-based equality
package content

import (
	"crypto/sha256"
	"encoding/hex"
)

// Handle is an immutable wrapper around a byte payload. Higher layers compare
// handles by hash instead of comparing raw byte slices. A Handle is never
// mutated after construction; replacing content means constructing a new
// Handle and swapping the reference.
type Handle struct {
	data []byte
	hash string
}

// FromBytes creates a handle from a byte payload. The payload is copied so
// later mutation of the caller's slice cannot change the handle.
func FromBytes(data []byte) Handle {
	buf := make([]byte, len(data))
	copy(buf, data)
	sum := sha256.Sum256(buf)
	return Handle{
		data: buf,
		hash: hex.EncodeToString(sum[:]),
	}
}

// FromString creates a handle from a string. Strings are encoded as UTF-8,
// which in Go is the string's underlying byte representation.
func FromString(text string) Handle {
	return FromBytes([]byte(text))
}

// Empty returns the canonical zero-length handle.
func Empty() Handle {
	return FromBytes(nil)
}

// Bytes returns a copy of the payload.
func (h Handle) Bytes() []byte {
	buf := make([]byte, len(h.data))
	copy(buf, h.data)
	return buf
}

// String decodes the payload as UTF-8 text.
func (h Handle) String() string {
	return string(h.data)
}

// Len returns the payload length in bytes.
func (h Handle) Len() int {
	return len(h.data)
}

// Hash returns the hex-encoded SHA-256 digest of the payload. The zero-value
// Handle hashes like the empty payload.
func (h Handle) Hash() string {
	if h.hash == "" {
		sum := sha256.Sum256(nil)
		return hex.EncodeToString(sum[:])
	}
	return h.hash
}

// Equal reports whether two handles hold equal content. Equality is hash
// equality; collisions are out of scope.
func (h Handle) Equal(other Handle) bool {
	return h.Hash() == other.Hash()
}
