package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	w, err := store.Create(ctx, "dir/voc.dbw2")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := store.Open(ctx, "dir/voc.dbw2")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, []byte("hello"), data)

	w, err = store.Create(ctx, "dir/db.dbw2")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	names, err := store.List(ctx, "dir/")
	require.NoError(t, err)
	assert.Equal(t, []string{"dir/db.dbw2", "dir/voc.dbw2"}, names)

	require.NoError(t, store.Delete(ctx, "dir/voc.dbw2"))
	require.NoError(t, store.Delete(ctx, "dir/voc.dbw2"))

	_, err = store.Open(ctx, "dir/voc.dbw2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemory())
}

func TestLocalStore(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	testStore(t, store)
}

func TestLocalStoreNoPartialBlobs(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir)
	require.NoError(t, err)

	w, err := store.Create(context.Background(), "voc.dbw2")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)

	// Before Close the blob must not be visible under its name.
	_, err = os.Stat(filepath.Join(dir, "voc.dbw2"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, w.Close())
	_, err = os.Stat(filepath.Join(dir, "voc.dbw2"))
	assert.NoError(t, err)
}
