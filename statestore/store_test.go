package statestore

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alekseysidorov/exonum-harness/config"
	"github.com/alekseysidorov/exonum-harness/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewMemoryStore(100)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func commit(t *testing.T, store *Store, kv ...string) int64 {
	t.Helper()
	fork := store.Fork()
	for i := 0; i+1 < len(kv); i += 2 {
		fork.Set([]byte(kv[i]), []byte(kv[i+1]))
	}
	version, err := store.Merge(fork)
	require.NoError(t, err)
	return version
}

func TestNewMemoryStore(t *testing.T) {
	store := newTestStore(t)

	require.Equal(t, int64(0), store.Version())
	require.Nil(t, store.Snapshot().Get([]byte("key")))
	require.False(t, store.Snapshot().Has([]byte("key")))
}

func TestMergeAdvancesVersion(t *testing.T) {
	store := newTestStore(t)

	require.Equal(t, int64(1), commit(t, store, "a", "1"))
	require.Equal(t, int64(2), commit(t, store))
	require.Equal(t, int64(3), commit(t, store, "b", "2"))
	require.Equal(t, int64(3), store.Version())

	snap := store.Snapshot()
	require.Equal(t, []byte("1"), snap.Get([]byte("a")))
	require.Equal(t, []byte("2"), snap.Get([]byte("b")))
}

func TestEmptyMergeKeepsValues(t *testing.T) {
	store := newTestStore(t)
	commit(t, store, "key", "value")
	root := store.Snapshot().RootHash()

	commit(t, store)

	require.Equal(t, []byte("value"), store.Snapshot().Get([]byte("key")))
	require.Equal(t, root, store.Snapshot().RootHash())
}

func TestSnapshotStableAcrossCommits(t *testing.T) {
	store := newTestStore(t)
	commit(t, store, "key", "v1")

	old := store.Snapshot()
	commit(t, store, "key", "v2")

	require.Equal(t, []byte("v1"), old.Get([]byte("key")))
	require.Equal(t, int64(1), old.Version())
	require.Equal(t, []byte("v2"), store.Snapshot().Get([]byte("key")))
}

func TestMergeDeletes(t *testing.T) {
	store := newTestStore(t)
	commit(t, store, "a", "1", "b", "2")

	fork := store.Fork()
	fork.Delete([]byte("a"))
	_, err := store.Merge(fork)
	require.NoError(t, err)

	require.False(t, store.Snapshot().Has([]byte("a")))
	require.True(t, store.Snapshot().Has([]byte("b")))
}

func TestMergeRejectsStaleFork(t *testing.T) {
	store := newTestStore(t)

	first := store.Fork()
	second := store.Fork()
	first.Set([]byte("k"), []byte("first"))
	second.Set([]byte("k"), []byte("second"))

	_, err := store.Merge(first)
	require.NoError(t, err)

	_, err = store.Merge(second)
	require.ErrorIs(t, err, ErrStaleFork)
	require.Equal(t, []byte("first"), store.Snapshot().Get([]byte("k")))
	require.Equal(t, int64(1), store.Version())
}

func TestMergeRejectsSpeculativeFork(t *testing.T) {
	store := newTestStore(t)

	probe := store.Fork()
	probe.Set([]byte("k"), []byte("v"))
	fork := probe.IntoSnapshot().Fork()

	_, err := store.Merge(fork)
	require.ErrorIs(t, err, ErrSpeculativeFork)
	require.Equal(t, int64(0), store.Version())
}

func TestMergeSealsFork(t *testing.T) {
	store := newTestStore(t)
	fork := store.Fork()
	fork.Set([]byte("k"), []byte("v"))

	_, err := store.Merge(fork)
	require.NoError(t, err)

	require.Panics(t, func() { fork.Set([]byte("k"), []byte("again")) })
	_, err = store.Merge(fork)
	require.ErrorIs(t, err, ErrStaleFork)
}

func TestSnapshotAt(t *testing.T) {
	store := newTestStore(t)
	commit(t, store, "k", "v1")
	commit(t, store, "k", "v2")

	snap, err := store.SnapshotAt(1)
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), snap.Get([]byte("k")))

	snap, err = store.SnapshotAt(2)
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), snap.Get([]byte("k")))

	_, err = store.SnapshotAt(10)
	require.ErrorIs(t, err, types.ErrVersionNotFound)
}

func TestLevelDBStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")

	store1, err := NewLevelDBStore(path, 100)
	require.NoError(t, err)
	commit(t, store1, "key", "value")
	require.NoError(t, store1.Close())

	store2, err := NewLevelDBStore(path, 100)
	require.NoError(t, err)
	defer store2.Close()

	require.Equal(t, int64(1), store2.Version())
	require.Equal(t, []byte("value"), store2.Snapshot().Get([]byte("key")))
}

func TestOpen(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store, err := Open(config.StateStoreConfig{Backend: config.BackendMemory, CacheSize: 10})
		require.NoError(t, err)
		require.NoError(t, store.Close())
	})

	t.Run("leveldb", func(t *testing.T) {
		store, err := Open(config.StateStoreConfig{
			Backend:   config.BackendLevelDB,
			Path:      filepath.Join(t.TempDir(), "state"),
			CacheSize: 10,
		})
		require.NoError(t, err)
		require.NoError(t, store.Close())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Open(config.StateStoreConfig{Backend: "rocksdb"})
		require.Error(t, err)
	})
}

func TestMergeOnClosedStore(t *testing.T) {
	store, err := NewMemoryStore(10)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Merge(store.Fork())
	require.ErrorIs(t, err, types.ErrStoreClosed)
}

func TestConcurrentReadsDuringMerges(t *testing.T) {
	store := newTestStore(t)

	// A deep enough tree that merges rewrite shared inner nodes.
	kv := []string{"a", "0", "b", "0"}
	for i := 0; i < 64; i++ {
		kv = append(kv, fmt.Sprintf("key-%02d", i), "0")
	}
	commit(t, store, kv...)
	first := store.Snapshot()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			for n := 0; ; n++ {
				select {
				case <-stop:
					return
				default:
				}
				// Both keys are always written together; a reader must never
				// observe one without the other.
				snap := store.Snapshot()
				require.Equal(t, snap.Get([]byte("a")), snap.Get([]byte("b")))

				key := []byte(fmt.Sprintf("key-%02d", (n*7+r)%64))
				require.NotNil(t, snap.Get(key))
				require.Equal(t, []byte("0"), first.Get(key))
				require.NotEmpty(t, snap.RootHash())
			}
		}(r)
	}

	for i := 1; i <= 50; i++ {
		v := fmt.Sprintf("%d", i)
		commit(t, store, "a", v, "b", v)
		commit(t, store, fmt.Sprintf("key-%02d", i%64), v)
	}
	close(stop)
	wg.Wait()

	require.Equal(t, int64(101), store.Version())
	require.Equal(t, []byte("0"), first.Get([]byte("a")))
}
