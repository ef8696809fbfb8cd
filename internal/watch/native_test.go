package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// waitFor polls until cond returns true or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func newNativeFixture(t *testing.T) (string, *recorder) {
	t.Helper()

	dir := t.TempDir()
	native, err := NewNative()
	if err != nil {
		t.Skipf("native watch unavailable: %v", err)
	}
	t.Cleanup(func() { _ = native.Disconnect() })

	rec := &recorder{}
	native.Subscribe(rec.collect)

	if err := native.Observe(context.Background(), dir, true); err != nil {
		t.Fatalf("observe failed: %v", err)
	}
	return dir, rec
}

func TestNative_ReportsCreateModifyRemove(t *testing.T) {
	dir, rec := newNativeFixture(t)
	path := filepath.Join(dir, "f.txt")

	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(rec.byKind(KindAppeared)) > 0 }, "no appeared record")

	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(rec.byKind(KindModified)) > 0 }, "no modified record")

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(rec.byKind(KindDisappeared)) > 0 }, "no disappeared record")

	for _, r := range rec.byKind(KindAppeared) {
		if JoinPath(r.Path) != "f.txt" {
			t.Errorf("record path = %q, want f.txt", JoinPath(r.Path))
		}
	}
}

func TestNative_WatchesNewSubdirectories(t *testing.T) {
	dir, rec := newNativeFixture(t)

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(rec.byKind(KindAppeared)) > 0 }, "no record for new directory")

	// Give the watcher a moment to pick up the new directory before writing
	// into it.
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(sub, "nested.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		for _, r := range rec.byKind(KindAppeared) {
			if JoinPath(r.Path) == "sub/nested.txt" {
				return true
			}
		}
		return false
	}, "no record for file inside new directory")
}
