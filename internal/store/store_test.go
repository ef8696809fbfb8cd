package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStamp() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

// accessors under test share the same contract, so both run the same suite.
func newAccessors(t *testing.T) map[string]Accessor {
	t.Helper()

	osStore, err := NewOS(t.TempDir())
	require.NoError(t, err)

	return map[string]Accessor{
		"os":     osStore,
		"memory": NewMemory(),
	}
}

func TestAccessor_WriteRead(t *testing.T) {
	for name, acc := range newAccessors(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			mtime, err := acc.Write(ctx, "dir/file.txt", []byte("payload"))
			require.NoError(t, err)
			assert.False(t, mtime.IsZero())

			data, readMtime, err := acc.Read(ctx, "dir/file.txt")
			require.NoError(t, err)
			assert.Equal(t, []byte("payload"), data)
			assert.Equal(t, mtime, readMtime)
		})
	}
}

func TestAccessor_ReadMissing(t *testing.T) {
	for name, acc := range newAccessors(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := acc.Read(context.Background(), "nope.txt")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestAccessor_Exists(t *testing.T) {
	for name, acc := range newAccessors(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ok, err := acc.Exists(ctx, "missing.txt")
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = acc.Write(ctx, "present.txt", []byte("x"))
			require.NoError(t, err)

			ok, err = acc.Exists(ctx, "present.txt")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestAccessor_List(t *testing.T) {
	for name, acc := range newAccessors(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := acc.Write(ctx, "a.txt", []byte("a"))
			require.NoError(t, err)
			_, err = acc.Write(ctx, "sub/b.txt", []byte("bb"))
			require.NoError(t, err)

			entries, err := acc.List(ctx, "")
			require.NoError(t, err)
			require.Len(t, entries, 2)

			byName := map[string]EntryInfo{}
			for _, e := range entries {
				byName[e.Name] = e
			}
			assert.False(t, byName["a.txt"].IsDir)
			assert.Equal(t, int64(1), byName["a.txt"].Size)
			assert.True(t, byName["sub"].IsDir)

			sub, err := acc.List(ctx, "sub")
			require.NoError(t, err)
			require.Len(t, sub, 1)
			assert.Equal(t, "b.txt", sub[0].Name)
			assert.Equal(t, int64(2), sub[0].Size)
		})
	}
}

func TestAccessor_Remove(t *testing.T) {
	for name, acc := range newAccessors(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := acc.Write(ctx, "gone.txt", []byte("x"))
			require.NoError(t, err)
			require.NoError(t, acc.Remove(ctx, "gone.txt"))

			_, _, err = acc.Read(ctx, "gone.txt")
			assert.ErrorIs(t, err, ErrNotFound)

			err = acc.Remove(ctx, "gone.txt")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestOS_RejectsEscapingPaths(t *testing.T) {
	dir := t.TempDir()
	osStore, err := NewOS(dir)
	require.NoError(t, err)

	outside := filepath.Join(dir, "..", "victim.txt")
	_ = os.Remove(outside)

	for _, path := range []string{"../victim.txt", "/etc/passwd", "a/../../victim.txt"} {
		_, err := osStore.Write(context.Background(), path, []byte("x"))
		assert.True(t, errors.Is(err, ErrInvalidPath), "path %q should be rejected, got %v", path, err)
	}
}

func TestOS_RootMustBeDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := NewOS(file)
	assert.Error(t, err)
}

func TestMemory_WriteAt(t *testing.T) {
	mem := NewMemory()
	stamp := testStamp()
	mem.WriteAt("f.txt", []byte("external"), stamp)

	data, mtime, err := mem.Read(context.Background(), "f.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("external"), data)
	assert.Equal(t, stamp, mtime)
}
