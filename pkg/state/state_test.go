package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailstream/harvester/pkg/connector/core"
)

func TestSeenSet(t *testing.T) {
	s := NewSeenSet()

	assert.False(t, s.Contains("a"))
	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("a"), "second add of the same key reports duplicate")
	assert.True(t, s.Contains("a"))

	s.AddAll([]string{"c", "b", "a"})
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"a", "b", "c"}, s.Keys())
}

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore("testmart", filepath.Join(dir, "testmart_checkpoint.json"))

	cp := NewCheckpoint()
	cp.SeenKeys = []string{"p1", "p2"}
	cp.Cursors["cat-1"] = core.Cursor{Offset: 60}
	cp.Cursors["cat-2"] = core.Cursor{Page: 3, Token: "abc"}
	cp.Completed["cat-0"] = true

	require.NoError(t, store.Save(cp))

	loaded := store.Load()
	assert.Equal(t, []string{"p1", "p2"}, loaded.SeenKeys)
	assert.Equal(t, core.Cursor{Offset: 60}, loaded.Cursors["cat-1"])
	assert.Equal(t, core.Cursor{Page: 3, Token: "abc"}, loaded.Cursors["cat-2"])
	assert.True(t, loaded.Completed["cat-0"])
	assert.False(t, loaded.UpdatedAt.IsZero())
	assert.Equal(t, 1, loaded.CompletedCount())

	seen := loaded.Seen()
	assert.True(t, seen.Contains("p1"))
	assert.False(t, seen.Contains("p3"))
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore("testmart", filepath.Join(t.TempDir(), "absent.json"))

	cp := store.Load()
	require.NotNil(t, cp)
	assert.Empty(t, cp.SeenKeys)
	assert.NotNil(t, cp.Cursors)
	assert.NotNil(t, cp.Completed)
}

func TestStoreLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "testmart_checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"seen_keys": [truncated`), 0o644))

	store := NewStore("testmart", path)
	cp := store.Load()
	require.NotNil(t, cp, "corrupt checkpoint must fall back to fresh state")
	assert.Empty(t, cp.SeenKeys)

	// The store must still be able to save over the corrupt file.
	cp.SeenKeys = []string{"p1"}
	require.NoError(t, store.Save(cp))
	assert.Equal(t, []string{"p1"}, store.Load().SeenKeys)
}

func TestStoreLoadNullMaps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cp.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"seen_keys":null,"cursors":null,"completed":null}`), 0o644))

	cp := NewStore("testmart", path).Load()
	require.NotNil(t, cp.Cursors)
	require.NotNil(t, cp.Completed)
	cp.Cursors["x"] = core.Cursor{Page: 1}
	cp.Completed["x"] = true
}

func TestStoreSaveCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "cp.json")

	store := NewStore("testmart", path)
	require.NoError(t, store.Save(NewCheckpoint()))

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore("testmart", filepath.Join(dir, "cp.json"))

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(NewCheckpoint()))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cp.json", entries[0].Name())
}

func TestStoreReset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cp.json")
	store := NewStore("testmart", path)

	require.NoError(t, store.Save(NewCheckpoint()))
	require.NoError(t, store.Reset())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Resetting an absent checkpoint is not an error.
	require.NoError(t, store.Reset())
}
