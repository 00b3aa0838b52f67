package state

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStore_Roundtrip(t *testing.T) {
	store := NewFileStore(t.TempDir())
	t.Cleanup(func() { _ = store.Close() })

	fresh, err := store.Load()
	require.NoError(t, err)
	require.EqualValues(t, 0, fresh.Height)

	orig := populatedState()
	require.NoError(t, store.Save(orig))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, orig.AppHash(), loaded.AppHash())
}

func TestBoltStore_Roundtrip(t *testing.T) {
	home := t.TempDir()
	store, err := NewBoltStore(home)
	require.NoError(t, err)

	fresh, err := store.Load()
	require.NoError(t, err)
	require.EqualValues(t, 0, fresh.Height)

	orig := populatedState()
	require.NoError(t, store.Save(orig))
	require.NoError(t, store.Close())

	// Reopen and read back.
	store, err = NewBoltStore(home)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, orig.AppHash(), loaded.AppHash())
}

// The two backends persist the same canonical bytes, so a backend switch
// cannot change the app hash.
func TestStores_AgreeOnAppHash(t *testing.T) {
	orig := populatedState()

	fileStore := NewFileStore(t.TempDir())
	require.NoError(t, fileStore.Save(orig))
	fromFile, err := fileStore.Load()
	require.NoError(t, err)

	boltStore, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = boltStore.Close() })
	require.NoError(t, boltStore.Save(orig))
	fromBolt, err := boltStore.Load()
	require.NoError(t, err)

	require.Equal(t, fromFile.AppHash(), fromBolt.AppHash())
}
