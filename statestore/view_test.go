package statestore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForkReadsOwnWrites(t *testing.T) {
	store := newTestStore(t)
	commit(t, store, "base", "committed")

	fork := store.Fork()
	require.Equal(t, []byte("committed"), fork.Get([]byte("base")))

	fork.Set([]byte("base"), []byte("overlay"))
	fork.Set([]byte("new"), []byte("value"))

	require.Equal(t, []byte("overlay"), fork.Get([]byte("base")))
	require.Equal(t, []byte("value"), fork.Get([]byte("new")))
	require.Equal(t, 2, fork.Len())

	fork.Delete([]byte("base"))
	require.Nil(t, fork.Get([]byte("base")))
	require.False(t, fork.Has([]byte("base")))
}

func TestForkIsolation(t *testing.T) {
	store := newTestStore(t)
	commit(t, store, "k", "committed")

	a := store.Fork()
	b := store.Fork()
	a.Set([]byte("k"), []byte("a"))

	require.Equal(t, []byte("a"), a.Get([]byte("k")))
	require.Equal(t, []byte("committed"), b.Get([]byte("k")))
	require.Equal(t, []byte("committed"), store.Snapshot().Get([]byte("k")))
	require.Same(t, store.Snapshot(), a.Base())
}

func TestForkCopiesValues(t *testing.T) {
	store := newTestStore(t)
	fork := store.Fork()

	value := []byte("value")
	fork.Set([]byte("k"), value)
	value[0] = 'X'
	require.Equal(t, []byte("value"), fork.Get([]byte("k")))

	read := fork.Get([]byte("k"))
	read[0] = 'Y'
	require.Equal(t, []byte("value"), fork.Get([]byte("k")))
}

func TestEmptyValueIsPresent(t *testing.T) {
	store := newTestStore(t)
	fork := store.Fork()
	fork.Set([]byte("empty"), nil)

	require.True(t, fork.Has([]byte("empty")))
	require.Equal(t, []byte{}, fork.Get([]byte("empty")))
}

func TestIntoSnapshot(t *testing.T) {
	store := newTestStore(t)
	commit(t, store, "k", "committed")

	fork := store.Fork()
	fork.Set([]byte("k"), []byte("probed"))
	fork.Set([]byte("gone"), []byte("x"))
	fork.Delete([]byte("gone"))

	snap := fork.IntoSnapshot()
	require.False(t, snap.IsCommitted())
	require.Equal(t, []byte("probed"), snap.Get([]byte("k")))
	require.False(t, snap.Has([]byte("gone")))
	require.Nil(t, snap.RootHash())
	require.Equal(t, int64(1), snap.Version())

	// The fork is consumed and committed state is untouched.
	require.Panics(t, func() { fork.Get([]byte("k")) })
	require.Equal(t, []byte("committed"), store.Snapshot().Get([]byte("k")))
}

func TestForkOfSpeculativeSnapshot(t *testing.T) {
	store := newTestStore(t)

	first := store.Fork()
	first.Set([]byte("a"), []byte("1"))
	firstSnap := first.IntoSnapshot()

	second := firstSnap.Fork()
	second.Set([]byte("b"), []byte("2"))
	require.Equal(t, []byte("1"), second.Get([]byte("a")))

	layered := second.IntoSnapshot()
	require.Equal(t, []byte("1"), layered.Get([]byte("a")))
	require.Equal(t, []byte("2"), layered.Get([]byte("b")))

	// The earlier snapshot does not observe later layers.
	require.False(t, firstSnap.Has([]byte("b")))
}

func TestStorageErrorUnwrap(t *testing.T) {
	inner := require.New(t)
	err := &StorageError{Op: "get", Err: errTest}
	inner.ErrorIs(err, errTest)
	inner.Contains(err.Error(), "statestore get")
}
