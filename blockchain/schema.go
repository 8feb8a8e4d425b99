package blockchain

import (
	"github.com/alekseysidorov/exonum-harness/schema"
	"github.com/alekseysidorov/exonum-harness/statestore"
	"github.com/alekseysidorov/exonum-harness/types"
)

// Core schema namespaces.
var (
	prefixCoreTxs    = schema.Key("core", "txs")
	prefixCoreBlocks = schema.Key("core", "blocks")
)

// CoreSchema is the read-only view of ledger bookkeeping kept next to service
// state: the height each committed transaction was included at, and the hash
// of every block below the latest one.
type CoreSchema struct {
	txs    schema.Map[types.Hash, int64]
	blocks schema.Map[int64, types.Hash]
}

// NewCoreSchema returns the core schema over a snapshot or fork.
func NewCoreSchema(view statestore.Reader) CoreSchema {
	return CoreSchema{
		txs:    schema.NewMap(view, prefixCoreTxs, schema.Hash, schema.Int64),
		blocks: schema.NewMap(view, prefixCoreBlocks, schema.Int64, schema.Hash),
	}
}

// TxHeight returns the height the transaction was committed at.
func (s CoreSchema) TxHeight(hash types.Hash) (types.Height, bool) {
	h, ok := s.txs.Get(hash)
	return types.Height(h), ok
}

// HasTx reports whether a transaction is committed.
func (s CoreSchema) HasTx(hash types.Hash) bool {
	return s.txs.Has(hash)
}

// BlockHash returns the hash of the block at height. The hash of the latest
// block is recorded by the block after it.
func (s CoreSchema) BlockHash(height types.Height) (types.Hash, bool) {
	return s.blocks.Get(height.Int64())
}

type mutCoreSchema struct {
	CoreSchema
	txs    schema.MutMap[types.Hash, int64]
	blocks schema.MutMap[int64, types.Hash]
}

func newMutCoreSchema(fork statestore.Writer) mutCoreSchema {
	return mutCoreSchema{
		CoreSchema: NewCoreSchema(fork),
		txs:        schema.NewMutMap(fork, prefixCoreTxs, schema.Hash, schema.Int64),
		blocks:     schema.NewMutMap(fork, prefixCoreBlocks, schema.Int64, schema.Hash),
	}
}

func (s mutCoreSchema) addTx(hash types.Hash, height types.Height) {
	s.txs.Put(hash, height.Int64())
}

func (s mutCoreSchema) addBlockHash(height types.Height, hash types.Hash) {
	s.blocks.Put(height.Int64(), hash)
}
