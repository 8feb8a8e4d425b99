package counter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alekseysidorov/exonum-harness/blockchain"
	"github.com/alekseysidorov/exonum-harness/config"
	"github.com/alekseysidorov/exonum-harness/keys"
	"github.com/alekseysidorov/exonum-harness/messages"
	"github.com/alekseysidorov/exonum-harness/statestore"
	"github.com/alekseysidorov/exonum-harness/types"
)

func TestFromConfig(t *testing.T) {
	svc, err := FromConfig(config.CounterConfig{AdminKey: config.DefaultAdminKey})
	require.NoError(t, err)
	require.Equal(t, DefaultAdmin().Public, svc.Admin())

	_, err = FromConfig(config.CounterConfig{AdminKey: "not hex"})
	require.Error(t, err)
}

func TestDecode(t *testing.T) {
	svc := New(DefaultAdmin().Public)
	kp := keys.MustGenerate()

	t.Run("increment", func(t *testing.T) {
		tx := NewTxIncrement(kp, 42)
		decoded, err := svc.Decode(tx.Raw())
		require.NoError(t, err)

		inc, ok := decoded.(*TxIncrement)
		require.True(t, ok)
		require.Equal(t, kp.Public, inc.Author)
		require.Equal(t, uint64(42), inc.By)
		require.Equal(t, tx.Hash(), inc.Hash())
	})

	t.Run("reset", func(t *testing.T) {
		tx := NewTxReset(kp)
		decoded, err := svc.TxFromRaw(tx.Raw())
		require.NoError(t, err)

		reset, ok := decoded.(*TxReset)
		require.True(t, ok)
		require.Equal(t, kp.Public, reset.Author)
	})

	t.Run("unknown message", func(t *testing.T) {
		raw := messages.Sign(ServiceID, 9, nil, kp)
		_, err := svc.Decode(raw)
		require.ErrorIs(t, err, types.ErrUnknownMessageType)
	})

	t.Run("foreign service", func(t *testing.T) {
		raw := messages.Sign(ServiceID+1, MsgIncrement, make([]byte, incrementPayloadSize), kp)
		_, err := svc.Decode(raw)
		require.ErrorIs(t, err, types.ErrUnknownMessageType)
	})

	t.Run("wrong payload size", func(t *testing.T) {
		raw := messages.Sign(ServiceID, MsgIncrement, make([]byte, 8), kp)
		_, err := svc.Decode(raw)
		require.ErrorIs(t, err, types.ErrInvalidMessage)

		raw = messages.Sign(ServiceID, MsgReset, make([]byte, 8), kp)
		_, err = svc.Decode(raw)
		require.ErrorIs(t, err, types.ErrInvalidMessage)
	})
}

func TestVerify(t *testing.T) {
	admin := DefaultAdmin()
	svc := New(admin.Public)
	user := keys.MustGenerate()

	decode := func(raw messages.RawMessage) Tx {
		tx, err := svc.Decode(raw)
		require.NoError(t, err)
		return tx
	}

	require.True(t, decode(NewTxIncrement(user, 1).Raw()).Verify())
	require.True(t, decode(NewTxReset(admin).Raw()).Verify())
	require.False(t, decode(NewTxReset(user).Raw()).Verify())

	// Author claims to be the admin but the signature is the user's.
	payload := admin.Public[:]
	forged := messages.Sign(ServiceID, MsgReset, payload, user)
	require.False(t, decode(forged).Verify())

	// Increment whose embedded author did not sign.
	raw := NewTxIncrement(user, 1).Raw()
	copy(raw.Payload, admin.Public[:])
	require.False(t, decode(raw).Verify())
}

func TestOnlyResetIsPrivate(t *testing.T) {
	require.False(t, blockchain.IsPrivate(NewTxIncrement(keys.MustGenerate(), 1)))
	require.True(t, blockchain.IsPrivate(NewTxReset(DefaultAdmin())))
}

func TestAdminIsInjected(t *testing.T) {
	other := keys.FromPassphrase("another admin")
	svc := New(other.Public)

	tx, err := svc.Decode(NewTxReset(other).Raw())
	require.NoError(t, err)
	require.True(t, tx.Verify())

	tx, err = svc.Decode(NewTxReset(DefaultAdmin()).Raw())
	require.NoError(t, err)
	require.False(t, tx.Verify())
}

func TestSchema(t *testing.T) {
	store, err := statestore.NewMemoryStore(100)
	require.NoError(t, err)
	defer store.Close()

	_, ok := NewSchema(store.Snapshot()).Count()
	require.False(t, ok)

	fork := store.Fork()
	schema := NewMutSchema(fork)
	require.Equal(t, uint64(3), schema.IncCount(3))
	require.Equal(t, uint64(7), schema.IncCount(4))

	v, ok := schema.Count()
	require.True(t, ok)
	require.Equal(t, uint64(7), v)

	schema.SetCount(0)
	v, ok = NewSchema(fork).Count()
	require.True(t, ok)
	require.Zero(t, v)

	_, ok = NewSchema(store.Snapshot()).Count()
	require.False(t, ok)
}

func TestExecute(t *testing.T) {
	store, err := statestore.NewMemoryStore(100)
	require.NoError(t, err)
	defer store.Close()

	kp := keys.MustGenerate()
	fork := store.Fork()
	NewTxIncrement(kp, 5).Execute(fork)
	NewTxIncrement(kp, 2).Execute(fork)
	v, _ := NewSchema(fork).Count()
	require.Equal(t, uint64(7), v)

	NewTxReset(kp).Execute(fork)
	v, _ = NewSchema(fork).Count()
	require.Zero(t, v)
}
