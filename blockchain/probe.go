package blockchain

import (
	"context"
	"fmt"
	"time"

	"github.com/alekseysidorov/exonum-harness/statestore"
	"github.com/alekseysidorov/exonum-harness/tracing"
)

// Probe executes tx against a throwaway fork of the latest committed state and
// returns a snapshot of the result. Committed state and the pending pool are
// untouched, and tx is not re-verified.
func (c *Blockchain) Probe(ctx context.Context, tx Transaction) *statestore.Snapshot {
	return c.ProbeAll(ctx, []Transaction{tx})
}

// ProbeAll executes txs strictly in list order against one throwaway fork of
// the latest committed state and returns a snapshot of the result.
//
// Transactions already committed are executed again; the store has no notion
// of an applied transaction. ProbeAll panics if two entries share a hash,
// since the caller's intended order would be ambiguous.
func (c *Blockchain) ProbeAll(ctx context.Context, txs []Transaction) *statestore.Snapshot {
	seen := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		hash := tx.Hash()
		if _, dup := seen[hash.Key()]; dup {
			panic(fmt.Sprintf("duplicate transactions in probe: %s", hash))
		}
		seen[hash.Key()] = struct{}{}
	}

	start := time.Now()
	_, span := c.tracer.StartSpan(ctx, "blockchain.ProbeAll", tracing.TxCount(len(txs)))
	defer span.End()

	fork := c.store.Fork()
	for _, tx := range txs {
		tx.Execute(fork)
	}
	snap := fork.IntoSnapshot()

	span.SetAttributes(tracing.Height(c.Height()))
	c.metrics.IncProbes()
	c.metrics.ObserveProbeDuration(time.Since(start))

	return snap
}
