package statestore

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alekseysidorov/exonum-harness/types"
)

var errTest = errors.New("test error")

func TestProofExistence(t *testing.T) {
	store := newTestStore(t)
	commit(t, store, "a", "1", "b", "2", "c", "3")

	snap := store.Snapshot()
	proof, err := snap.Proof([]byte("b"))
	require.NoError(t, err)
	require.True(t, proof.Exists)
	require.Equal(t, []byte("2"), proof.Value)
	require.Equal(t, int64(1), proof.Version)
	require.True(t, proof.VerifyConsistent(snap.RootHash()))

	ok, err := proof.Verify(snap.RootHash())
	require.NoError(t, err)
	require.True(t, ok)

	// A proof does not verify against a different root.
	commit(t, store, "b", "changed")
	ok, err = proof.Verify(store.Snapshot().RootHash())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestProofNonExistence(t *testing.T) {
	store := newTestStore(t)
	commit(t, store, "a", "1", "c", "3")

	snap := store.Snapshot()
	proof, err := snap.Proof([]byte("b"))
	require.NoError(t, err)
	require.False(t, proof.Exists)
	require.Nil(t, proof.Value)

	ok, err := proof.Verify(snap.RootHash())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestProofTamperedValue(t *testing.T) {
	store := newTestStore(t)
	commit(t, store, "a", "1", "b", "2")

	snap := store.Snapshot()
	proof, err := snap.Proof([]byte("a"))
	require.NoError(t, err)

	proof.Value = []byte("forged")
	ok, err := proof.Verify(snap.RootHash())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestProofErrors(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Snapshot().Proof([]byte("a"))
	require.ErrorIs(t, err, types.ErrVersionNotFound)

	commit(t, store, "a", "1")

	_, err = store.Snapshot().Proof(nil)
	require.ErrorIs(t, err, types.ErrKeyNotFound)

	fork := store.Fork()
	fork.Set([]byte("a"), []byte("2"))
	_, err = fork.IntoSnapshot().Proof([]byte("a"))
	require.ErrorIs(t, err, ErrSpeculativeView)

	var nilProof *Proof
	_, err = nilProof.Verify([]byte("root"))
	require.ErrorIs(t, err, types.ErrInvalidProof)

	proof, err := store.Snapshot().Proof([]byte("a"))
	require.NoError(t, err)
	_, err = proof.Verify(nil)
	require.ErrorIs(t, err, types.ErrInvalidProof)

	proof.ProofBytes = []byte{0xff, 0xff}
	_, err = proof.Verify(store.Snapshot().RootHash())
	require.ErrorIs(t, err, types.ErrInvalidProof)
}

func TestProofDuringMerges(t *testing.T) {
	store := newTestStore(t)
	var kv []string
	for i := 0; i < 64; i++ {
		kv = append(kv, fmt.Sprintf("key-%02d", i), "0")
	}
	commit(t, store, kv...)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := 0; ; n++ {
			select {
			case <-stop:
				return
			default:
			}
			snap := store.Snapshot()
			proof, err := snap.Proof([]byte(fmt.Sprintf("key-%02d", n%64)))
			require.NoError(t, err)
			ok, err := proof.Verify(snap.RootHash())
			require.NoError(t, err)
			require.True(t, ok)
		}
	}()

	for i := 1; i <= 30; i++ {
		commit(t, store, fmt.Sprintf("key-%02d", i), fmt.Sprintf("%d", i))
	}
	close(stop)
	wg.Wait()
}
