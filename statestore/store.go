// Package statestore provides the versioned key-value store that holds
// committed ledger state, together with its read (Snapshot) and write (Fork) views.
package statestore

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cosmos/iavl"
	idb "github.com/cosmos/iavl/db"

	"github.com/alekseysidorov/exonum-harness/config"
	"github.com/alekseysidorov/exonum-harness/logging"
	"github.com/alekseysidorov/exonum-harness/types"
)

// Store errors.
var (
	// ErrStaleFork is returned when merging a fork whose base is no longer the latest committed state.
	ErrStaleFork = errors.New("fork is based on a stale snapshot")

	// ErrSpeculativeFork is returned when merging a fork created from a speculative snapshot.
	ErrSpeculativeFork = errors.New("fork is based on a speculative snapshot")
)

// Store is the versioned store owning committed state.
//
// Committed state lives in an IAVL tree; every merge saves a new tree version
// and publishes an immutable snapshot of it. Snapshot and Fork are atomic
// pointer reads and may be called from any goroutine. Merge calls are
// serialized, and a merge is published atomically: readers observe either the
// previous version or the new one, never a partial merge.
//
// Immutable trees share cached nodes with the mutable tree, so snapshot reads
// hold treeMu for reading while a merge holds it for writing.
type Store struct {
	tree    *iavl.MutableTree
	db      idb.DB
	current atomic.Pointer[Snapshot]
	logger  *logging.Logger
	closed  bool
	mu      sync.Mutex // serializes merges
	treeMu  sync.RWMutex
}

// NewLevelDBStore opens a LevelDB-backed store at path, loading the latest version.
// cacheSize is the number of IAVL nodes to cache in memory.
func NewLevelDBStore(path string, cacheSize int) (*Store, error) {
	db, err := idb.NewGoLevelDB("state", path)
	if err != nil {
		return nil, fmt.Errorf("opening leveldb for iavl: %w", err)
	}

	s, err := newStore(db, cacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewMemoryStore creates an in-memory store, used by tests and the harness.
func NewMemoryStore(cacheSize int) (*Store, error) {
	return newStore(idb.NewMemDB(), cacheSize)
}

// Open creates a store according to configuration.
func Open(cfg config.StateStoreConfig) (*Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(cfg.CacheSize)
	case config.BackendLevelDB:
		return NewLevelDBStore(cfg.Path, cfg.CacheSize)
	default:
		return nil, fmt.Errorf("unknown statestore backend %q", cfg.Backend)
	}
}

func newStore(db idb.DB, cacheSize int) (*Store, error) {
	// Fast storage indexes only the live version; snapshots of older
	// versions must read through the tree to stay consistent during merges.
	tree := iavl.NewMutableTree(db, cacheSize, true, iavl.NewNopLogger())

	// Load the latest version if it exists
	version, err := tree.Load()
	if err != nil {
		return nil, fmt.Errorf("loading iavl tree: %w", err)
	}

	s := &Store{
		tree:   tree,
		db:     db,
		logger: logging.NewNopLogger(),
	}

	snap := &Snapshot{}
	if version > 0 {
		snap, err = s.immutable(version)
		if err != nil {
			return nil, err
		}
	}
	s.current.Store(snap)

	return s, nil
}

// SetLogger sets the logger used by the store.
func (s *Store) SetLogger(logger *logging.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger.WithComponent("statestore")
}

// Snapshot returns an immutable view of the latest committed state.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Fork returns a new isolated write overlay over the latest committed state.
func (s *Store) Fork() *Fork {
	return s.Snapshot().Fork()
}

// Version returns the latest committed version, 0 before the first merge.
func (s *Store) Version() int64 {
	return s.Snapshot().Version()
}

// SnapshotAt returns an immutable view of an earlier committed version.
func (s *Store) SnapshotAt(version int64) (*Snapshot, error) {
	if version == s.Version() {
		return s.Snapshot(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.treeMu.RLock()
	defer s.treeMu.RUnlock()

	if !s.tree.VersionExists(version) {
		return nil, fmt.Errorf("%w: %d", types.ErrVersionNotFound, version)
	}
	return s.immutable(version)
}

// Merge atomically applies every buffered write of fork to committed state and
// saves it as the next version. The fork is sealed afterwards.
//
// Only forks taken from the latest committed snapshot can be merged; a fork
// whose base was superseded by another merge is rejected with ErrStaleFork.
func (s *Store) Merge(fork *Fork) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, types.ErrStoreClosed
	}
	if !fork.base.IsCommitted() {
		return 0, ErrSpeculativeFork
	}
	if fork.base != s.current.Load() {
		return 0, fmt.Errorf("%w: base version %d, latest %d",
			ErrStaleFork, fork.base.version, s.current.Load().version)
	}

	fork.checkOpen()
	writes := fork.Len()

	snap, err := s.apply(fork.changes)
	if err != nil {
		return 0, err
	}
	version := snap.version

	fork.sealed = true
	fork.changes = nil
	s.current.Store(snap)

	s.logger.Debug("merged fork",
		logging.Version(version),
		logging.Count(writes),
		logging.StateRoot(snap.RootHash()),
	)

	return version, nil
}

// apply writes the overlay into the mutable tree and saves a new version.
func (s *Store) apply(overlay changes) (*Snapshot, error) {
	s.treeMu.Lock()
	defer s.treeMu.Unlock()

	for _, k := range overlay.sortedKeys() {
		c := overlay[k]
		var err error
		if c.deleted {
			_, _, err = s.tree.Remove([]byte(k))
		} else {
			_, err = s.tree.Set([]byte(k), c.value)
		}
		if err != nil {
			s.tree.Rollback()
			return nil, fmt.Errorf("applying fork: %w", err)
		}
	}

	_, version, err := s.tree.SaveVersion()
	if err != nil {
		s.tree.Rollback()
		return nil, fmt.Errorf("saving version: %w", err)
	}
	return s.immutable(version)
}

func (s *Store) immutable(version int64) (*Snapshot, error) {
	tree, err := s.tree.GetImmutable(version)
	if err != nil {
		return nil, fmt.Errorf("loading version %d: %w", version, err)
	}
	return &Snapshot{tree: tree, store: s, version: version}, nil
}

// Close closes the store and releases resources.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
