package blockchain

import (
	"context"

	"github.com/alekseysidorov/exonum-harness/types"
)

// Assembler builds blocks out of the pending pool.
type Assembler struct {
	chain  *Blockchain
	pool   Pool
	maxTxs int
}

// NewAssembler creates an assembler committing to chain from pool.
// maxTxs caps full assembly; 0 means no limit.
func NewAssembler(chain *Blockchain, pool Pool, maxTxs int) *Assembler {
	return &Assembler{chain: chain, pool: pool, maxTxs: maxTxs}
}

// CreateBlock commits every pending transaction, in admission order up to the
// configured cap, as one block. Committed transactions leave the pool.
func (a *Assembler) CreateBlock(ctx context.Context) (*Block, error) {
	return a.commit(ctx, a.pool.Reap(a.maxTxs))
}

// CreateBlockWithTransactions commits a block containing exactly the listed
// pending transactions in list order. Hashes not found in the pool are
// omitted. The other pending transactions stay in the pool.
func (a *Assembler) CreateBlockWithTransactions(ctx context.Context, hashes ...types.Hash) (*Block, error) {
	txs := make([]Transaction, 0, len(hashes))
	for _, h := range hashes {
		if tx, ok := a.pool.Get(h); ok {
			txs = append(txs, tx)
		}
	}
	return a.commit(ctx, txs)
}

func (a *Assembler) commit(ctx context.Context, txs []Transaction) (*Block, error) {
	block, err := a.chain.CommitBlock(ctx, txs)
	if err != nil && block == nil {
		return nil, err
	}

	hashes := make([]types.Hash, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.Hash()
	}
	a.pool.Remove(hashes)

	return block, err
}
