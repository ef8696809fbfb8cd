package tracker

import (
	"testing"
	"time"

	"github.com/driftwatch/server/internal/content"
)

var (
	seedContent = content.FromString("seed")
	editContent = content.FromString("local edit")
	diskContent = content.FromString("external write")
)

func TestTracker_State(t *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(*Tracker)
		wantState SyncState
		wantDirty bool
	}{
		{
			name:      "fresh tracker is synced",
			mutate:    func(*Tracker) {},
			wantState: StateSynced,
		},
		{
			name: "local edit",
			mutate: func(tr *Tracker) {
				tr.SetLocalContent(editContent)
			},
			wantState: StateLocalChanges,
			wantDirty: true,
		},
		{
			name: "external change",
			mutate: func(tr *Tracker) {
				tr.UpdateDiskState(diskContent, time.Now())
			},
			wantState: StateExternalChanges,
		},
		{
			name: "local edit and external change",
			mutate: func(tr *Tracker) {
				tr.SetLocalContent(editContent)
				tr.UpdateDiskState(diskContent, time.Now())
			},
			wantState: StateConflict,
			wantDirty: true,
		},
		{
			name: "local edit back to base content",
			mutate: func(tr *Tracker) {
				tr.SetLocalContent(editContent)
				tr.SetLocalContent(content.FromString("seed"))
			},
			wantState: StateSynced,
		},
		{
			name: "mark synced collapses divergence",
			mutate: func(tr *Tracker) {
				tr.SetLocalContent(editContent)
				tr.UpdateDiskState(diskContent, time.Now())
				tr.MarkSynced(diskContent, time.Now())
			},
			wantState: StateSynced,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := New("f.txt", ModeTracked, seedContent, time.Now())
			tc.mutate(tr)

			if got := tr.State(); got != tc.wantState {
				t.Errorf("State() = %s, want %s", got, tc.wantState)
			}
			if got := tr.IsDirty(); got != tc.wantDirty {
				t.Errorf("IsDirty() = %v, want %v", got, tc.wantDirty)
			}
		})
	}
}

func TestTracker_ConflictImpliesBothDiverged(t *testing.T) {
	tr := New("f.txt", ModeReactive, seedContent, time.Now())
	tr.SetLocalContent(editContent)
	tr.UpdateDiskState(diskContent, time.Now())

	if tr.State() != StateConflict {
		t.Fatal("expected conflict")
	}
	if tr.Local().Equal(tr.Base()) {
		t.Error("conflict requires local != base")
	}
	if tr.Disk().Equal(tr.Base()) {
		t.Error("conflict requires disk != base")
	}
}

func TestTracker_UpdateDiskStateLeavesLocalAlone(t *testing.T) {
	tr := New("f.txt", ModeTracked, seedContent, time.Now())
	tr.SetLocalContent(editContent)

	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr.UpdateDiskState(diskContent, stamp)

	if !tr.Local().Equal(editContent) {
		t.Error("disk update must not touch local content")
	}
	if !tr.Base().Equal(seedContent) {
		t.Error("disk update must not touch base content")
	}
	if !tr.DiskMtime().Equal(stamp) {
		t.Errorf("DiskMtime() = %v, want %v", tr.DiskMtime(), stamp)
	}
}

func TestTracker_MarkSynced(t *testing.T) {
	tr := New("f.txt", ModeReactive, seedContent, time.Now())
	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tr.MarkSynced(diskContent, stamp)

	for name, h := range map[string]content.Handle{
		"base":  tr.Base(),
		"local": tr.Local(),
		"disk":  tr.Disk(),
	} {
		if !h.Equal(diskContent) {
			t.Errorf("%s content not updated by MarkSynced", name)
		}
	}
	if !tr.DiskMtime().Equal(stamp) {
		t.Errorf("DiskMtime() = %v, want %v", tr.DiskMtime(), stamp)
	}
	if tr.IsDirty() {
		t.Error("tracker should be clean after MarkSynced")
	}
}

func TestMode_String(t *testing.T) {
	if ModeTracked.String() != "tracked" || ModeReactive.String() != "reactive" {
		t.Error("unexpected mode names")
	}
}

func TestSyncState_String(t *testing.T) {
	want := map[SyncState]string{
		StateSynced:          "synced",
		StateLocalChanges:    "local-changes",
		StateExternalChanges: "external-changes",
		StateConflict:        "conflict",
	}
	for state, name := range want {
		if state.String() != name {
			t.Errorf("%d.String() = %s, want %s", state, state.String(), name)
		}
	}
}
