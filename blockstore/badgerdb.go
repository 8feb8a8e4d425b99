package blockstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/alekseysidorov/exonum-harness/types"
)

// BadgerDBBlockStore implements BlockStore using BadgerDB.
type BadgerDBBlockStore struct {
	db     *badger.DB
	path   string
	height int64
	mu     sync.RWMutex
}

var _ BlockStore = (*BadgerDBBlockStore)(nil)

// BadgerDBOptions contains configuration options for BadgerDB.
type BadgerDBOptions struct {
	// SyncWrites syncs every write to disk.
	SyncWrites bool

	// Compression enables Snappy compression for values.
	Compression bool

	// InMemory keeps all data in memory; path is ignored.
	InMemory bool

	// Logger is an optional logger for BadgerDB. If nil, logging is disabled.
	Logger badger.Logger
}

// DefaultBadgerDBOptions returns sensible default options.
func DefaultBadgerDBOptions() *BadgerDBOptions {
	return &BadgerDBOptions{
		SyncWrites:  true,
		Compression: true,
	}
}

// NewBadgerDBBlockStore creates a new BadgerDB-backed block store.
func NewBadgerDBBlockStore(path string) (*BadgerDBBlockStore, error) {
	return NewBadgerDBBlockStoreWithOptions(path, DefaultBadgerDBOptions())
}

// NewBadgerDBBlockStoreWithOptions creates a new BadgerDB-backed block store
// with custom options.
func NewBadgerDBBlockStoreWithOptions(path string, opts *BadgerDBOptions) (*BadgerDBBlockStore, error) {
	if opts == nil {
		opts = DefaultBadgerDBOptions()
	}

	badgerOpts := badger.DefaultOptions(path)
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	badgerOpts = badgerOpts.WithSyncWrites(opts.SyncWrites && !opts.InMemory)
	if opts.Compression {
		badgerOpts = badgerOpts.WithCompression(options.Snappy)
	} else {
		badgerOpts = badgerOpts.WithCompression(options.None)
	}
	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("opening badgerdb: %w", err)
	}

	store := &BadgerDBBlockStore{db: db, path: path}

	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyMetaHeight)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			store.height = decodeInt64(val)
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading metadata: %w", err)
	}

	return store, nil
}

// SaveBlock persists a block at the given height.
func (s *BadgerDBBlockStore) SaveBlock(height int64, hash []byte, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	heightKey := makeHeightKey(height)
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(heightKey)
		if err == nil {
			return types.ErrBlockAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := txn.Set(heightKey, hash); err != nil {
			return err
		}
		if err := txn.Set(makeBlockKey(hash), makeBlockValue(height, data)); err != nil {
			return err
		}
		if height > s.height {
			return txn.Set(keyMetaHeight, encodeInt64(height))
		}
		return nil
	})
	if errors.Is(err, types.ErrBlockAlreadyExists) {
		return err
	}
	if err != nil {
		return fmt.Errorf("writing block: %w", err)
	}

	if height > s.height {
		s.height = height
	}
	return nil
}

// LoadBlock retrieves a block by height.
func (s *BadgerDBBlockStore) LoadBlock(height int64) ([]byte, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hash, data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeHeightKey(height))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return types.ErrBlockNotFound
		}
		if err != nil {
			return fmt.Errorf("getting hash for height %d: %w", height, err)
		}
		if hash, err = item.ValueCopy(nil); err != nil {
			return err
		}

		item, err = txn.Get(makeBlockKey(hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return types.ErrBlockNotFound
		}
		if err != nil {
			return fmt.Errorf("getting block data: %w", err)
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		_, data = parseBlockValue(value)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return hash, data, nil
}

// LoadBlockByHash retrieves a block by its hash.
func (s *BadgerDBBlockStore) LoadBlockByHash(hash []byte) (int64, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var height int64
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeBlockKey(hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return types.ErrBlockNotFound
		}
		if err != nil {
			return fmt.Errorf("getting block by hash: %w", err)
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		height, data = parseBlockValue(value)
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return height, data, nil
}

// HasBlock checks if a block exists at the given height.
func (s *BadgerDBBlockStore) HasBlock(height int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(makeHeightKey(height))
		return err
	})
	return err == nil
}

// Height returns the latest block height.
func (s *BadgerDBBlockStore) Height() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.height
}

// Close closes the database.
func (s *BadgerDBBlockStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
