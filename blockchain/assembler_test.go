package blockchain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alekseysidorov/exonum-harness/types"
)

func TestCreateBlock(t *testing.T) {
	chain, _ := newTestChain(t)
	pool := &testPool{}
	asm := NewAssembler(chain, pool, 0)

	pool.add(addTx(1), addTx(2), addTx(3))
	block, err := asm.CreateBlock(context.Background())
	require.NoError(t, err)

	require.Equal(t, types.Height(2), block.Height)
	require.Len(t, block.TxHashes, 3)
	require.Equal(t, 0, pool.size())

	v, _ := readValue(chain.Snapshot())
	require.Equal(t, uint64(6), v)
}

func TestCreateBlockEmptyPool(t *testing.T) {
	chain, _ := newTestChain(t)
	asm := NewAssembler(chain, &testPool{}, 0)

	block, err := asm.CreateBlock(context.Background())
	require.NoError(t, err)
	require.Equal(t, types.Height(2), block.Height)
	require.Empty(t, block.TxHashes)
}

func TestCreateBlockRespectsCap(t *testing.T) {
	chain, _ := newTestChain(t)
	pool := &testPool{}
	asm := NewAssembler(chain, pool, 2)

	first, second, third := addTx(1), addTx(2), addTx(3)
	pool.add(first, second, third)

	block, err := asm.CreateBlock(context.Background())
	require.NoError(t, err)
	require.Equal(t, []types.Hash{first.Hash(), second.Hash()}, block.TxHashes)
	require.Equal(t, 1, pool.size())
}

func TestCreateBlockWithTransactions(t *testing.T) {
	chain, _ := newTestChain(t)
	pool := &testPool{}
	asm := NewAssembler(chain, pool, 0)

	add, reset, other := addTx(6), setTx(0), addTx(100)
	pool.add(add, reset, other)

	missing := types.HashBytes([]byte("not pending"))
	block, err := asm.CreateBlockWithTransactions(context.Background(), reset.Hash(), missing, add.Hash())
	require.NoError(t, err)

	require.Equal(t, []types.Hash{reset.Hash(), add.Hash()}, block.TxHashes)
	v, _ := readValue(chain.Snapshot())
	require.Equal(t, uint64(6), v)

	require.Equal(t, 1, pool.size())
	_, ok := pool.Get(other.Hash())
	require.True(t, ok)
}

func TestCreateBlockDropsAlreadyCommitted(t *testing.T) {
	chain, _ := newTestChain(t)
	pool := &testPool{}
	asm := NewAssembler(chain, pool, 0)

	tx := addTx(5)
	pool.add(tx)
	_, err := asm.CreateBlock(context.Background())
	require.NoError(t, err)

	// Resubmitted after commit: skipped by assembly and dropped from the pool.
	pool.add(tx)
	block, err := asm.CreateBlock(context.Background())
	require.NoError(t, err)
	require.Empty(t, block.TxHashes)
	require.Equal(t, 0, pool.size())

	v, _ := readValue(chain.Snapshot())
	require.Equal(t, uint64(5), v)
}
