// Package blockchain is the transactional core of the ledger: it routes raw
// messages to service transaction variants, assembles and commits blocks
// against the versioned state store, and runs speculative probes.
package blockchain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alekseysidorov/exonum-harness/blockstore"
	"github.com/alekseysidorov/exonum-harness/logging"
	"github.com/alekseysidorov/exonum-harness/messages"
	"github.com/alekseysidorov/exonum-harness/metrics"
	"github.com/alekseysidorov/exonum-harness/statestore"
	"github.com/alekseysidorov/exonum-harness/tracing"
	"github.com/alekseysidorov/exonum-harness/types"
)

// Blockchain owns committed state and is its only writer.
//
// Commits are serialized: CommitBlock holds a mutex for the whole
// execute-merge-record sequence, so no two forks are ever merged against the
// same base. Snapshot, Height, DecodeTx and the probe methods never take that
// mutex and may run concurrently with a commit.
type Blockchain struct {
	store    *statestore.Store
	blocks   blockstore.BlockStore
	services map[uint16]Service

	logger  *logging.Logger
	metrics metrics.Metrics
	tracer  *tracing.Tracer
	now     func() time.Time

	last *Block
	mu   sync.Mutex
}

// Option configures a Blockchain.
type Option func(*Blockchain)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Blockchain) {
		c.logger = logger.WithComponent("blockchain")
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(c *Blockchain) {
		c.metrics = m
	}
}

// WithTracer sets the tracer used for block and probe spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(c *Blockchain) {
		c.tracer = t
	}
}

// WithClock overrides the clock used to timestamp blocks.
func WithClock(now func() time.Time) Option {
	return func(c *Blockchain) {
		c.now = now
	}
}

// New creates a blockchain over store and blocks with the given services.
// A fresh store gets an empty genesis block, so a new chain starts at height 1.
func New(store *statestore.Store, blocks blockstore.BlockStore, services []Service, opts ...Option) (*Blockchain, error) {
	c := &Blockchain{
		store:    store,
		blocks:   blocks,
		services: make(map[uint16]Service, len(services)),
		logger:   logging.NewNopLogger(),
		metrics:  metrics.NewNopMetrics(),
		tracer:   tracing.NewNopTracer(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, svc := range services {
		if existing, ok := c.services[svc.ID()]; ok {
			return nil, fmt.Errorf("%w: id %d used by %q and %q",
				types.ErrServiceAlreadyRegistered, svc.ID(), existing.Name(), svc.Name())
		}
		c.services[svc.ID()] = svc
	}

	if store.Version() == 0 {
		genesis, err := c.CommitBlock(context.Background(), nil)
		if err != nil {
			return nil, fmt.Errorf("committing genesis block: %w", err)
		}
		c.logger.Info("created genesis block", logging.BlockHash(genesis.Hash()))
		return c, nil
	}

	height := store.Version()
	block, err := c.Block(types.Height(height))
	if err != nil {
		// State can outlive block records, e.g. with a memory block store.
		c.logger.Warn("latest block record unavailable",
			logging.Height(height),
			logging.Error(err),
		)
	} else {
		c.last = block
	}
	c.metrics.SetBlockHeight(height)

	return c, nil
}

// Service returns the registered service with the given id.
func (c *Blockchain) Service(id uint16) (Service, bool) {
	svc, ok := c.services[id]
	return svc, ok
}

// Services returns the registered services ordered by id.
func (c *Blockchain) Services() []Service {
	out := make([]Service, 0, len(c.services))
	for _, svc := range c.services {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// DecodeTx parses an encoded message and routes it to its service's decoder.
func (c *Blockchain) DecodeTx(data []byte) (Transaction, error) {
	raw, err := messages.Decode(data)
	if err != nil {
		return nil, err
	}
	return c.TxFromRaw(raw)
}

// TxFromRaw routes a raw message to its service's decoder.
func (c *Blockchain) TxFromRaw(raw messages.RawMessage) (Transaction, error) {
	svc, ok := c.services[raw.ServiceID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", types.ErrUnknownService, raw.ServiceID)
	}
	return svc.TxFromRaw(raw)
}

// Snapshot returns an immutable view of the latest committed state.
func (c *Blockchain) Snapshot() *statestore.Snapshot {
	return c.store.Snapshot()
}

// Height returns the latest committed height.
func (c *Blockchain) Height() types.Height {
	return types.Height(c.store.Version())
}

// LastBlock returns the latest committed block, nil if its record is unavailable.
func (c *Blockchain) LastBlock() *Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Block loads the block record at height.
func (c *Blockchain) Block(height types.Height) (*Block, error) {
	_, data, err := c.blocks.LoadBlock(height.Int64())
	if err != nil {
		return nil, err
	}
	return UnmarshalBlock(data)
}

// IsCommitted reports whether the transaction is part of a committed block.
func (c *Blockchain) IsCommitted(hash types.Hash) bool {
	return NewCoreSchema(c.store.Snapshot()).HasTx(hash)
}

// CommitBlock executes txs in order against a fork of the latest committed
// state, merges the fork and records the resulting block. The height advances
// by exactly one even when txs is empty.
//
// Transactions are executed unconditionally: verification happens at pool
// admission. A transaction already committed in an earlier block, or repeated
// within txs, is skipped and left out of the block.
func (c *Blockchain) CommitBlock(ctx context.Context, txs []Transaction) (*Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	ctx, span := c.tracer.StartSpan(ctx, "blockchain.CommitBlock", tracing.TxCount(len(txs)))
	defer span.End()

	fork := c.store.Fork()
	height := types.Height(fork.Base().Version()).Next()
	core := newMutCoreSchema(fork)

	included := make([]types.Hash, 0, len(txs))
	seen := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		hash := tx.Hash()
		if _, dup := seen[hash.Key()]; dup {
			c.skip(hash, metrics.ReasonDuplicate)
			continue
		}
		seen[hash.Key()] = struct{}{}
		if core.HasTx(hash) {
			c.skip(hash, metrics.ReasonCommitted)
			continue
		}

		tx.Execute(fork)
		core.addTx(hash, height)
		included = append(included, hash)
	}

	var prevHash types.Hash
	if c.last != nil {
		prevHash = c.last.Hash()
		core.addBlockHash(c.last.Height, prevHash)
	}

	version, err := c.store.Merge(fork)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("merging block %d: %w", height, err)
	}
	if types.Height(version) != height {
		// The store is only advanced through this method.
		panic(fmt.Sprintf("blockchain: committed version %d, expected height %d", version, height))
	}

	block := &Block{
		Height:    height,
		PrevHash:  prevHash,
		TxHashes:  included,
		TxRoot:    TxRoot(included),
		StateRoot: c.store.Snapshot().RootHash(),
		Time:      c.now(),
	}
	c.last = block
	hash := block.Hash()

	data, err := block.Marshal()
	if err == nil {
		err = c.blocks.SaveBlock(height.Int64(), hash, data)
	}
	if err != nil && !errors.Is(err, types.ErrBlockAlreadyExists) {
		span.RecordError(err)
		return block, fmt.Errorf("storing block %d: %w", height, err)
	}

	span.SetAttributes(tracing.Height(height), tracing.BlockHash(hash))
	c.metrics.SetBlockHeight(height.Int64())
	c.metrics.IncBlocksCommitted()
	c.metrics.SetBlockTxs(len(included))
	c.metrics.AddTxsExecuted(len(included))
	c.metrics.ObserveBlockDuration(time.Since(start))

	c.logger.Info("committed block",
		logging.Height(height.Int64()),
		logging.Count(len(included)),
		logging.BlockHash(hash),
		logging.StateRoot(block.StateRoot),
	)

	return block, nil
}

func (c *Blockchain) skip(hash types.Hash, reason string) {
	c.metrics.IncTxsSkipped(reason)
	c.logger.Debug("skipping transaction", logging.TxHash(hash), logging.Reason(reason))
}
