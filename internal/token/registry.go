// Package token issues and matches write-intent tokens so the sync engine
// can tell its own writes apart from external changes to the backing store.
package token

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultTTL is how long a token stays matchable after issuance.
const DefaultTTL = 30 * time.Second

// DefaultSweepInterval is how often expired tokens are purged eagerly.
const DefaultSweepInterval = 10 * time.Second

// WriteToken records one outstanding "about to write this path" declaration.
// Owned by the Registry from issuance until matched or expired.
type WriteToken struct {
	ID string

	// Path the write targets, relative to the observed root.
	Path string

	// IssuedAt is when the token was generated.
	IssuedAt time.Time

	// MinMtime is the mtime floor: a notification matches only if the
	// observed mtime is at or after it. Set to the issuance time, since the
	// store's clock may be coarser than ours.
	MinMtime time.Time

	// ContentHash optionally carries the hash of the bytes being written.
	// Disambiguates writes that land within the same mtime tick.
	ContentHash string

	// ExpiresAt is the deadline after which the token never matches.
	ExpiresAt time.Time
}

// Registry stores at most one live token per path. Only the most recent
// write intent per path is disambiguated; earlier intents are presumed
// superseded.
type Registry struct {
	mu     sync.Mutex
	tokens map[string]*WriteToken
	ttl    time.Duration
	now    func() time.Time
	stopCh chan struct{}
	once   sync.Once
}

// NewRegistry creates a registry and starts its expiry sweep.
func NewRegistry(ttl, sweepInterval time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}

	r := &Registry{
		tokens: make(map[string]*WriteToken),
		ttl:    ttl,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}

	go r.sweep(sweepInterval)
	return r
}

// SetClock overrides the registry's clock. Tests use it to drive expiry.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Generate issues a token for the path, replacing any prior unmatched token
// for it. contentHash may be empty when the writer does not know the bytes
// up front.
func (r *Registry) Generate(path, contentHash string) *WriteToken {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeLocked()

	now := r.now()
	tok := &WriteToken{
		ID:          uuid.NewString(),
		Path:        path,
		IssuedAt:    now,
		MinMtime:    now,
		ContentHash: contentHash,
		ExpiresAt:   now.Add(r.ttl),
	}
	r.tokens[path] = tok
	return tok
}

// Match reports whether an observed change is self-inflicted. A token matches
// when the path matches, the token is unexpired, the observed mtime is at or
// after the token's floor, and the content hashes agree when both sides carry
// one. A match consumes the token so a duplicate notification for the same
// write is not misclassified.
func (r *Registry) Match(path string, observedMtime time.Time, observedHash string) (*WriteToken, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeLocked()

	tok, ok := r.tokens[path]
	if !ok {
		return nil, false
	}
	if observedMtime.Before(tok.MinMtime) {
		return nil, false
	}
	if tok.ContentHash != "" && observedHash != "" && tok.ContentHash != observedHash {
		return nil, false
	}

	delete(r.tokens, path)
	return tok, true
}

// Clear drops any outstanding token for the path.
func (r *Registry) Clear(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, path)
}

// Len returns the number of live tokens.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgeLocked()
	return len(r.tokens)
}

// Dispose cancels the sweep and clears all tokens.
func (r *Registry) Dispose() {
	r.once.Do(func() { close(r.stopCh) })

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = make(map[string]*WriteToken)
}

// purgeLocked drops expired tokens. Caller holds r.mu.
func (r *Registry) purgeLocked() {
	now := r.now()
	for path, tok := range r.tokens {
		if now.After(tok.ExpiresAt) {
			delete(r.tokens, path)
		}
	}
}

func (r *Registry) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.mu.Lock()
			before := len(r.tokens)
			r.purgeLocked()
			purged := before - len(r.tokens)
			r.mu.Unlock()

			if purged > 0 {
				log.Debug().Int("purged", purged).Msg("Expired write tokens swept")
			}
		}
	}
}
