package resume

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "resume.json")
	store := NewFileStore(path)

	snap := Snapshot{
		CurrentItemID:  "item-42",
		ListID:         "album-7",
		ElapsedSeconds: 93.5,
		Volume:         60,
		RepeatMode:     "all",
		Shuffled:       true,
	}
	require.NoError(t, store.Save(snap))

	got, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, snap, got)
}

func TestFileStore_LoadMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))

	_, ok := store.Load()
	assert.False(t, ok)
}

func TestFileStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, ok := NewFileStore(path).Load()
	assert.False(t, ok)
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(Snapshot{CurrentItemID: "a"}))
	require.NoError(t, store.Save(Snapshot{CurrentItemID: "b"}))

	got, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, "b", got.CurrentItemID)
}

func TestNoop(t *testing.T) {
	var store Noop
	assert.NoError(t, store.Save(Snapshot{CurrentItemID: "x"}))
	_, ok := store.Load()
	assert.False(t, ok)
}
