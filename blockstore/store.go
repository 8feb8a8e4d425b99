// Package blockstore provides block record storage.
package blockstore

import (
	"encoding/binary"
	"fmt"

	"github.com/alekseysidorov/exonum-harness/config"
)

// BlockStore defines the interface for block persistence.
// Implementations must be safe for concurrent use.
type BlockStore interface {
	// SaveBlock persists a block at the given height with its hash and data.
	// Returns types.ErrBlockAlreadyExists if a block exists at that height.
	SaveBlock(height int64, hash []byte, data []byte) error

	// LoadBlock retrieves a block by height.
	// Returns types.ErrBlockNotFound if the block does not exist.
	LoadBlock(height int64) (hash []byte, data []byte, err error)

	// LoadBlockByHash retrieves a block by its hash.
	// Returns types.ErrBlockNotFound if the block does not exist.
	LoadBlockByHash(hash []byte) (height int64, data []byte, err error)

	// HasBlock checks if a block exists at the given height.
	HasBlock(height int64) bool

	// Height returns the latest block height, 0 if no blocks have been stored.
	Height() int64

	// Close closes the store and releases resources.
	Close() error
}

// Open creates a block store according to configuration.
func Open(cfg config.BlockStoreConfig) (BlockStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryBlockStore(), nil
	case config.BackendLevelDB:
		return NewLevelDBBlockStore(cfg.Path)
	case config.BackendBadgerDB:
		return NewBadgerDBBlockStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown blockstore backend %q", cfg.Backend)
	}
}

// Key layout shared by the on-disk backends.
var (
	prefixHeight  = []byte("H:") // height -> hash
	prefixBlock   = []byte("B:") // hash -> height | data
	keyMetaHeight = []byte("M:height")
)

func makeHeightKey(height int64) []byte {
	key := make([]byte, len(prefixHeight)+8)
	copy(key, prefixHeight)
	binary.BigEndian.PutUint64(key[len(prefixHeight):], uint64(height)) //nolint:gosec // heights are non-negative
	return key
}

func makeBlockKey(hash []byte) []byte {
	key := make([]byte, len(prefixBlock)+len(hash))
	copy(key, prefixBlock)
	copy(key[len(prefixBlock):], hash)
	return key
}

func makeBlockValue(height int64, data []byte) []byte {
	value := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(value[:8], uint64(height)) //nolint:gosec // heights are non-negative
	copy(value[8:], data)
	return value
}

func parseBlockValue(value []byte) (height int64, data []byte) {
	if len(value) < 8 {
		return 0, nil
	}
	return decodeInt64(value[:8]), value[8:]
}

func encodeInt64(v int64) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(v)) //nolint:gosec // heights are non-negative
}

func decodeInt64(data []byte) int64 {
	if len(data) < 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(data)) //nolint:gosec // stored heights are valid
}
