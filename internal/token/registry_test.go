package token

import (
	"testing"
	"time"
)

func newTestRegistry(t *testing.T) (*Registry, *time.Time) {
	t.Helper()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry(30*time.Second, time.Hour)
	r.SetClock(func() time.Time { return now })
	t.Cleanup(r.Dispose)
	return r, &now
}

func TestRegistry_MatchConsumesToken(t *testing.T) {
	r, now := newTestRegistry(t)

	tok := r.Generate("dir/file.txt", "hash-a")
	if tok.ID == "" {
		t.Fatal("expected token id")
	}

	matched, ok := r.Match("dir/file.txt", *now, "hash-a")
	if !ok {
		t.Fatal("expected token to match")
	}
	if matched.ID != tok.ID {
		t.Errorf("matched token id = %s, want %s", matched.ID, tok.ID)
	}

	// A second identical notification must not match.
	if _, ok := r.Match("dir/file.txt", *now, "hash-a"); ok {
		t.Error("consumed token matched twice")
	}
}

func TestRegistry_Match(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name         string
		tokenHash    string
		matchPath    string
		matchMtime   time.Time
		matchHash    string
		advanceClock time.Duration
		expectMatch  bool
	}{
		{
			name:        "mtime at floor matches",
			matchPath:   "f.txt",
			matchMtime:  base,
			expectMatch: true,
		},
		{
			name:        "mtime after floor matches",
			matchPath:   "f.txt",
			matchMtime:  base.Add(2 * time.Second),
			expectMatch: true,
		},
		{
			name:        "mtime before floor does not match",
			matchPath:   "f.txt",
			matchMtime:  base.Add(-time.Second),
			expectMatch: false,
		},
		{
			name:        "wrong path does not match",
			matchPath:   "other.txt",
			matchMtime:  base,
			expectMatch: false,
		},
		{
			name:        "matching hashes match",
			tokenHash:   "h1",
			matchPath:   "f.txt",
			matchMtime:  base,
			matchHash:   "h1",
			expectMatch: true,
		},
		{
			name:        "conflicting hashes do not match",
			tokenHash:   "h1",
			matchPath:   "f.txt",
			matchMtime:  base,
			matchHash:   "h2",
			expectMatch: false,
		},
		{
			name:        "absent observed hash falls back to mtime",
			tokenHash:   "h1",
			matchPath:   "f.txt",
			matchMtime:  base,
			matchHash:   "",
			expectMatch: true,
		},
		{
			name:        "absent token hash falls back to mtime",
			tokenHash:   "",
			matchPath:   "f.txt",
			matchMtime:  base,
			matchHash:   "h2",
			expectMatch: true,
		},
		{
			name:         "expired token never matches",
			matchPath:    "f.txt",
			matchMtime:   base.Add(time.Second),
			advanceClock: time.Minute,
			expectMatch:  false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			now := base
			r := NewRegistry(30*time.Second, time.Hour)
			r.SetClock(func() time.Time { return now })
			defer r.Dispose()

			r.Generate("f.txt", tc.tokenHash)
			now = now.Add(tc.advanceClock)

			_, ok := r.Match(tc.matchPath, tc.matchMtime, tc.matchHash)
			if ok != tc.expectMatch {
				t.Errorf("match = %v, want %v", ok, tc.expectMatch)
			}
		})
	}
}

func TestRegistry_GenerateReplacesPriorToken(t *testing.T) {
	r, now := newTestRegistry(t)

	first := r.Generate("f.txt", "old")
	second := r.Generate("f.txt", "new")

	if r.Len() != 1 {
		t.Fatalf("registry should hold one token per path, got %d", r.Len())
	}

	matched, ok := r.Match("f.txt", *now, "new")
	if !ok {
		t.Fatal("expected the superseding token to match")
	}
	if matched.ID == first.ID {
		t.Error("matched the superseded token")
	}
	if matched.ID != second.ID {
		t.Error("matched an unexpected token")
	}
}

func TestRegistry_PathIsolation(t *testing.T) {
	r, now := newTestRegistry(t)

	r.Generate("a.txt", "")
	r.Generate("b.txt", "")

	if _, ok := r.Match("a.txt", *now, ""); !ok {
		t.Fatal("expected a.txt to match")
	}
	// Consuming a.txt's token must leave b.txt's alone.
	if _, ok := r.Match("b.txt", *now, ""); !ok {
		t.Fatal("expected b.txt to match")
	}
}

func TestRegistry_ClearAndDispose(t *testing.T) {
	r, now := newTestRegistry(t)

	r.Generate("f.txt", "")
	r.Clear("f.txt")
	if _, ok := r.Match("f.txt", *now, ""); ok {
		t.Error("cleared token should not match")
	}

	r.Generate("g.txt", "")
	r.Dispose()
	if r.Len() != 0 {
		t.Error("dispose should clear all tokens")
	}
}

func TestRegistry_LazyPurgeOnGenerate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry(time.Second, time.Hour)
	r.SetClock(func() time.Time { return now })
	defer r.Dispose()

	r.Generate("stale.txt", "")
	now = now.Add(time.Minute)
	r.Generate("fresh.txt", "")

	if r.Len() != 1 {
		t.Errorf("expected stale token purged on generate, have %d tokens", r.Len())
	}
}
