package blockchain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alekseysidorov/exonum-harness/types"
)

func TestTxRoot(t *testing.T) {
	a := types.HashBytes([]byte("a"))
	b := types.HashBytes([]byte("b"))
	c := types.HashBytes([]byte("c"))

	require.Nil(t, TxRoot(nil))
	require.Equal(t, a, TxRoot([]types.Hash{a}))
	require.Equal(t, types.HashConcat(a, b), TxRoot([]types.Hash{a, b}))
	require.Equal(t, types.HashConcat(types.HashConcat(a, b), c), TxRoot([]types.Hash{a, b, c}))

	// Order matters.
	require.NotEqual(t, TxRoot([]types.Hash{a, b}), TxRoot([]types.Hash{b, a}))
}

func TestBlockHashCoversHeader(t *testing.T) {
	base := Block{
		Height:    5,
		PrevHash:  types.HashBytes([]byte("prev")),
		TxRoot:    types.HashBytes([]byte("txs")),
		StateRoot: types.HashBytes([]byte("state")),
		Time:      time.Unix(100, 0),
	}
	hash := base.Hash()
	require.Len(t, hash, types.HashSize)

	changed := base
	changed.Height = 6
	require.False(t, hash.Equal(changed.Hash()))

	changed = base
	changed.StateRoot = types.HashBytes([]byte("other"))
	require.False(t, hash.Equal(changed.Hash()))

	changed = base
	changed.Time = time.Unix(101, 0)
	require.False(t, hash.Equal(changed.Hash()))
}

func TestBlockMarshal(t *testing.T) {
	block := &Block{
		Height:    2,
		PrevHash:  types.HashBytes([]byte("prev")),
		TxHashes:  []types.Hash{types.HashBytes([]byte("tx"))},
		TxRoot:    types.HashBytes([]byte("tx")),
		StateRoot: types.HashBytes([]byte("state")),
		Time:      time.Unix(100, 5).UTC(),
	}

	data, err := block.Marshal()
	require.NoError(t, err)
	decoded, err := UnmarshalBlock(data)
	require.NoError(t, err)
	require.True(t, block.Hash().Equal(decoded.Hash()))
	require.Equal(t, 1, decoded.Len())

	_, err = UnmarshalBlock([]byte("{"))
	require.ErrorIs(t, err, types.ErrInvalidBlock)
}
