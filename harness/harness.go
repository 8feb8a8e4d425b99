// Package harness runs an in-process node for service tests.
//
// A Harness owns a blockchain over an in-memory store, a pending pool and
// both API routers served by httptest servers. Blocks are created only when
// the test asks for them, and transactions can be probed against committed
// state without touching it.
package harness

import (
	"context"
	"net/http/httptest"

	"github.com/alekseysidorov/exonum-harness/api"
	"github.com/alekseysidorov/exonum-harness/blockchain"
	"github.com/alekseysidorov/exonum-harness/blockstore"
	"github.com/alekseysidorov/exonum-harness/client"
	"github.com/alekseysidorov/exonum-harness/config"
	"github.com/alekseysidorov/exonum-harness/mempool"
	"github.com/alekseysidorov/exonum-harness/statestore"
	"github.com/alekseysidorov/exonum-harness/types"
)

// TB is the part of testing.TB the harness uses.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
	Cleanup(func())
}

// Harness is an in-process single node.
type Harness struct {
	t TB

	store     *statestore.Store
	chain     *blockchain.Blockchain
	pool      *mempool.Mempool
	assembler *blockchain.Assembler
	router    *api.Router

	api *API
}

// New starts a harness with the given services. Everything is released
// through t.Cleanup.
func New(t TB, services ...blockchain.Service) *Harness {
	t.Helper()

	store, err := statestore.NewMemoryStore(1000)
	if err != nil {
		t.Fatalf("harness: creating state store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	blocks := blockstore.NewMemoryBlockStore()
	t.Cleanup(func() { blocks.Close() })

	chain, err := blockchain.New(store, blocks, services)
	if err != nil {
		t.Fatalf("harness: creating blockchain: %v", err)
	}

	pool, err := mempool.New(config.MempoolConfig{CacheSize: 1000}, chain)
	if err != nil {
		t.Fatalf("harness: creating mempool: %v", err)
	}

	router := api.NewRouter(chain, pool)
	public := httptest.NewServer(router.Public())
	private := httptest.NewServer(router.Private())
	t.Cleanup(public.Close)
	t.Cleanup(private.Close)

	h := &Harness{
		t:         t,
		store:     store,
		chain:     chain,
		pool:      pool,
		assembler: blockchain.NewAssembler(chain, pool, 0),
		router:    router,
	}
	h.api = &API{
		t:       t,
		chain:   chain,
		sender:  router.Sender(),
		public:  client.New(public.URL, client.WithoutRetries()),
		private: client.New(private.URL, client.WithoutRetries()),
	}
	return h
}

// API returns the HTTP side of the harness.
func (h *Harness) API() *API {
	return h.api
}

// Chain returns the underlying blockchain.
func (h *Harness) Chain() *blockchain.Blockchain {
	return h.chain
}

// Pool returns the pending pool.
func (h *Harness) Pool() *mempool.Mempool {
	return h.pool
}

// Height returns the committed height.
func (h *Harness) Height() types.Height {
	return h.chain.Height()
}

// Snapshot returns a view of the committed state.
func (h *Harness) Snapshot() *statestore.Snapshot {
	return h.chain.Snapshot()
}

// CreateBlock commits every pending transaction in admission order.
func (h *Harness) CreateBlock() *blockchain.Block {
	h.t.Helper()
	block, err := h.assembler.CreateBlock(context.Background())
	if err != nil {
		h.t.Fatalf("harness: creating block: %v", err)
	}
	return block
}

// CreateBlockWithTransactions commits the listed pending transactions in
// list order. Hashes that are not pending are skipped; other pending
// transactions stay in the pool.
func (h *Harness) CreateBlockWithTransactions(hashes ...types.Hash) *blockchain.Block {
	h.t.Helper()
	block, err := h.assembler.CreateBlockWithTransactions(context.Background(), hashes...)
	if err != nil {
		h.t.Fatalf("harness: creating block: %v", err)
	}
	return block
}

// Probe returns the state that committing tx on top of the current state
// would produce. Nothing is committed.
func (h *Harness) Probe(tx blockchain.Transaction) *statestore.Snapshot {
	return h.chain.Probe(context.Background(), tx)
}

// ProbeAll is Probe for several transactions applied in order. It panics if
// two of them are the same transaction.
func (h *Harness) ProbeAll(txs ...blockchain.Transaction) *statestore.Snapshot {
	return h.chain.ProbeAll(context.Background(), txs)
}

// Compare starts a comparison between the committed state and after.
func (h *Harness) Compare(after *statestore.Snapshot) Comparison[*statestore.Snapshot] {
	return Compare(h.t, h.Snapshot(), after)
}
