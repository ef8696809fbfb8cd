package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/driftwatch/server/internal/store"
)

func TestManager_ForcedPollingDeliversRecords(t *testing.T) {
	mem := store.NewMemory()
	m := NewManager(mem, ManagerOptions{PollInterval: 20 * time.Millisecond, ForcePolling: true})
	t.Cleanup(func() { _ = m.Disconnect() })

	rec := &recorder{}
	m.Subscribe(rec.collect)

	if err := m.Observe(context.Background(), "", true); err != nil {
		t.Fatalf("observe failed: %v", err)
	}

	mem.WriteAt("f.txt", []byte("x"), time.Now())
	waitFor(t, func() bool { return len(rec.byKind(KindAppeared)) > 0 }, "no record via polling")
}

func TestManager_MemoryStoreUsesPolling(t *testing.T) {
	// A store without a filesystem root can never use the native strategy;
	// records must still arrive.
	mem := store.NewMemory()
	m := NewManager(mem, ManagerOptions{PollInterval: 20 * time.Millisecond})
	t.Cleanup(func() { _ = m.Disconnect() })

	rec := &recorder{}
	m.Subscribe(rec.collect)

	if err := m.Observe(context.Background(), "", true); err != nil {
		t.Fatalf("observe failed: %v", err)
	}

	mem.WriteAt("f.txt", []byte("x"), time.Now())
	waitFor(t, func() bool { return len(rec.byKind(KindAppeared)) > 0 }, "no record via fallback")
}

func TestManager_OSStoreDeliversRecords(t *testing.T) {
	dir := t.TempDir()
	osStore, err := store.NewOS(dir)
	if err != nil {
		t.Fatal(err)
	}

	m := NewManager(osStore, ManagerOptions{PollInterval: 20 * time.Millisecond})
	t.Cleanup(func() { _ = m.Disconnect() })

	rec := &recorder{}
	m.Subscribe(rec.collect)

	if err := m.Observe(context.Background(), "", true); err != nil {
		t.Fatalf("observe failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "f.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Whichever strategy won the probe, the record surfaces through the
	// manager with a store-relative path.
	waitFor(t, func() bool {
		for _, r := range rec.byKind(KindAppeared) {
			if JoinPath(r.Path) == "f.txt" {
				return true
			}
		}
		return false
	}, "no record from manager over OS store")
}

func TestManager_ObserveIsIdempotent(t *testing.T) {
	mem := store.NewMemory()
	m := NewManager(mem, ManagerOptions{PollInterval: time.Hour, ForcePolling: true})
	t.Cleanup(func() { _ = m.Disconnect() })

	ctx := context.Background()
	if err := m.Observe(ctx, "", true); err != nil {
		t.Fatalf("first observe failed: %v", err)
	}
	if err := m.Observe(ctx, "", true); err != nil {
		t.Fatalf("second observe failed: %v", err)
	}
}
