package types

import (
	"crypto/sha256"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashSize(t *testing.T) {
	require.Equal(t, 32, HashSize)
	require.Equal(t, sha256.Size, HashSize)
}

func TestHashTx(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		tx := Tx([]byte("test transaction"))
		require.True(t, HashTx(tx).Equal(HashTx(tx)))
	})

	t.Run("different txs have different hashes", func(t *testing.T) {
		require.False(t, HashTx(Tx("tx1")).Equal(HashTx(Tx("tx2"))))
	})

	t.Run("nil tx", func(t *testing.T) {
		require.Nil(t, HashTx(nil))
	})

	t.Run("empty tx", func(t *testing.T) {
		h := HashTx(Tx([]byte{}))
		require.Len(t, h, HashSize)
		empty := sha256.Sum256(nil)
		require.Equal(t, empty[:], h.Bytes())
	})

	t.Run("matches sha256 directly", func(t *testing.T) {
		data := []byte("test")
		expected := sha256.Sum256(data)
		require.Equal(t, expected[:], HashTx(Tx(data)).Bytes())
	})
}

func TestHashConcat(t *testing.T) {
	left := HashBytes([]byte("left"))
	right := HashBytes([]byte("right"))

	h := sha256.New()
	h.Write(left)
	h.Write(right)

	require.Equal(t, h.Sum(nil), HashConcat(left, right).Bytes())
	require.False(t, HashConcat(left, right).Equal(HashConcat(right, left)))
}

func TestHashHex(t *testing.T) {
	h := HashBytes([]byte("data"))

	parsed, err := HashFromHex(h.String())
	require.NoError(t, err)
	require.True(t, h.Equal(parsed))

	_, err = HashFromHex("zz")
	require.Error(t, err)

	_, err = HashFromHex("abcd")
	require.Error(t, err)
}

func TestHashJSON(t *testing.T) {
	h := HashBytes([]byte("data"))

	data, err := json.Marshal(struct {
		TxHash Hash `json:"tx_hash"`
	}{h})
	require.NoError(t, err)
	require.JSONEq(t, `{"tx_hash":"`+h.String()+`"}`, string(data))

	var out struct {
		TxHash Hash `json:"tx_hash"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	require.True(t, h.Equal(out.TxHash))
}

func TestHeight(t *testing.T) {
	require.Equal(t, "101", Height(101).String())
	require.Equal(t, Height(2), Height(1).Next())
	require.Equal(t, int64(7), Height(7).Int64())
}
