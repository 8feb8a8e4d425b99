package blockchain

import (
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alekseysidorov/exonum-harness/blockstore"
	"github.com/alekseysidorov/exonum-harness/keys"
	"github.com/alekseysidorov/exonum-harness/messages"
	"github.com/alekseysidorov/exonum-harness/schema"
	"github.com/alekseysidorov/exonum-harness/statestore"
	"github.com/alekseysidorov/exonum-harness/types"
)

const (
	testServiceID = 7
	msgAdd        = 1
	msgSet        = 2
)

var testKey = keys.FromPassphrase("blockchain tests")

// testService owns two variants over one uint64 slot: add and set.
type testService struct{}

func (testService) ID() uint16   { return testServiceID }
func (testService) Name() string { return "test" }

func (testService) TxFromRaw(raw messages.RawMessage) (Transaction, error) {
	switch raw.MessageID {
	case msgAdd, msgSet:
		if len(raw.Payload) != 8 {
			return nil, messages.PayloadSizeError("test", 8, len(raw.Payload))
		}
		return testTx{raw: raw, value: binary.BigEndian.Uint64(raw.Payload)}, nil
	default:
		return nil, messages.UnknownMessageError(raw.ServiceID, raw.MessageID)
	}
}

type testTx struct {
	raw   messages.RawMessage
	value uint64
}

func addTx(v uint64) testTx { return newTestTx(msgAdd, v) }
func setTx(v uint64) testTx { return newTestTx(msgSet, v) }

func newTestTx(msg uint16, v uint64) testTx {
	raw := messages.Sign(testServiceID, msg, binary.BigEndian.AppendUint64(nil, v), testKey)
	return testTx{raw: raw, value: v}
}

func (tx testTx) ServiceID() uint16        { return tx.raw.ServiceID }
func (tx testTx) MessageID() uint16        { return tx.raw.MessageID }
func (tx testTx) Verify() bool             { return tx.raw.VerifySignature(testKey.Public) }
func (tx testTx) Hash() types.Hash         { return tx.raw.Hash() }
func (tx testTx) Raw() messages.RawMessage { return tx.raw }

func (tx testTx) Execute(fork *statestore.Fork) {
	entry := testValue(fork)
	if tx.raw.MessageID == msgSet {
		entry.Set(tx.value)
		return
	}
	schema.Increment(entry, tx.value)
}

var testValueKey = schema.Key("test", "value")

func testValue(fork *statestore.Fork) schema.MutEntry[uint64] {
	return schema.NewMutEntry(fork, testValueKey, schema.Uint64)
}

func readValue(view statestore.Reader) (uint64, bool) {
	return schema.NewEntry(view, testValueKey, schema.Uint64).Get()
}

func newTestChain(t *testing.T, opts ...Option) (*Blockchain, *statestore.Store) {
	t.Helper()
	store, err := statestore.NewMemoryStore(100)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	chain, err := New(store, blockstore.NewMemoryBlockStore(), []Service{testService{}}, opts...)
	require.NoError(t, err)
	return chain, store
}

// testPool is an admission-ordered pool without verification.
type testPool struct {
	txs []Transaction
	mu  sync.Mutex
}

func (p *testPool) add(txs ...Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txs = append(p.txs, txs...)
}

func (p *testPool) Reap(max int) []Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	if max <= 0 || max > len(p.txs) {
		max = len(p.txs)
	}
	return append([]Transaction(nil), p.txs[:max]...)
}

func (p *testPool) Get(hash types.Hash) (Transaction, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, tx := range p.txs {
		if tx.Hash().Equal(hash) {
			return tx, true
		}
	}
	return nil, false
}

func (p *testPool) Remove(hashes []types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	drop := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		drop[h.Key()] = true
	}
	kept := p.txs[:0]
	for _, tx := range p.txs {
		if !drop[tx.Hash().Key()] {
			kept = append(kept, tx)
		}
	}
	p.txs = kept
}

func (p *testPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.txs)
}
