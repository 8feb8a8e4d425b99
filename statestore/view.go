package statestore

import (
	"fmt"
	"sort"

	"github.com/cosmos/iavl"
)

// Reader is implemented by every view that can serve reads: Snapshot and Fork.
//
// Reads never return errors. A failure of the backing database while reading
// is unrecoverable at this layer and surfaces as a panic carrying a *StorageError.
type Reader interface {
	// Get returns the value stored under key, or nil if it is absent.
	Get(key []byte) []byte

	// Has reports whether key holds a value.
	Has(key []byte) bool
}

// Writer is implemented by views that buffer writes. Only Fork implements it.
type Writer interface {
	Reader

	// Set stores value under key in the view's overlay.
	Set(key, value []byte)

	// Delete removes key in the view's overlay.
	Delete(key []byte)
}

// StorageError reports a failure of the backing database observed through a view.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("statestore %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// change is a single buffered write; a nil value marks a deletion.
type change struct {
	value   []byte
	deleted bool
}

// changes is an overlay of buffered writes keyed by raw key.
type changes map[string]change

// sortedKeys returns the overlay keys in byte order so merges are deterministic.
func (c changes) sortedKeys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot is an immutable view of state.
//
// A Snapshot taken from Store.Snapshot is bound to one committed version and
// stays stable for its whole lifetime, regardless of later commits. A Snapshot
// produced by Fork.IntoSnapshot additionally layers the frozen overlay of that
// fork on top of its committed base.
type Snapshot struct {
	tree    *iavl.ImmutableTree // nil before the first commit
	store   *Store
	version int64
	overlay changes // frozen; never mutated after construction
}

var _ Reader = (*Snapshot)(nil)

// Get returns the value stored under key, or nil if it is absent.
func (s *Snapshot) Get(key []byte) []byte {
	if c, ok := s.overlay[string(key)]; ok {
		if c.deleted {
			return nil
		}
		return cloneValue(c.value)
	}
	return s.getCommitted(key)
}

// Has reports whether key holds a value.
func (s *Snapshot) Has(key []byte) bool {
	return s.Get(key) != nil
}

func (s *Snapshot) getCommitted(key []byte) []byte {
	if s.tree == nil {
		return nil
	}
	defer s.rlock()()
	value, err := s.tree.Get(key)
	if err != nil {
		panic(&StorageError{Op: "get", Err: err})
	}
	return value
}

// Version returns the committed version this snapshot is based on.
func (s *Snapshot) Version() int64 {
	return s.version
}

// IsCommitted reports whether the snapshot reflects committed state only,
// i.e. it carries no speculative overlay.
func (s *Snapshot) IsCommitted() bool {
	return len(s.overlay) == 0
}

// RootHash returns the merkle root of the committed base.
// It returns nil for snapshots carrying a speculative overlay.
func (s *Snapshot) RootHash() []byte {
	if !s.IsCommitted() {
		return nil
	}
	if s.tree == nil {
		return nil
	}
	defer s.rlock()()
	return s.tree.Hash()
}

// rlock read-locks the owning store's tree and returns the unlock func.
func (s *Snapshot) rlock() func() {
	if s.store == nil {
		return func() {}
	}
	s.store.treeMu.RLock()
	return s.store.treeMu.RUnlock
}

// Fork returns a new isolated overlay on top of this snapshot.
// Forks of a speculative snapshot can be inspected but never merged.
func (s *Snapshot) Fork() *Fork {
	return &Fork{
		base:    s,
		changes: make(changes),
	}
}

// Fork is a mutable, isolated overlay over a base Snapshot.
//
// Writes accumulate in the overlay and are visible to reads through the same
// Fork only. A Fork is never partially committed: it is either merged in full
// by Store.Merge or discarded. A Fork is not safe for concurrent use.
type Fork struct {
	base    *Snapshot
	changes changes
	sealed  bool
}

var _ Writer = (*Fork)(nil)

// Get returns the value under key, observing the fork's own writes first.
func (f *Fork) Get(key []byte) []byte {
	f.checkOpen()
	if c, ok := f.changes[string(key)]; ok {
		if c.deleted {
			return nil
		}
		return cloneValue(c.value)
	}
	return f.base.Get(key)
}

// Has reports whether key holds a value in this fork.
func (f *Fork) Has(key []byte) bool {
	return f.Get(key) != nil
}

// Set buffers a write of value under key. A nil value is stored as empty.
func (f *Fork) Set(key, value []byte) {
	f.checkOpen()
	f.changes[string(key)] = change{value: cloneValue(value)}
}

// Delete buffers the removal of key.
func (f *Fork) Delete(key []byte) {
	f.checkOpen()
	f.changes[string(key)] = change{deleted: true}
}

// Len returns the number of buffered writes.
func (f *Fork) Len() int {
	return len(f.changes)
}

// Base returns the snapshot this fork was created from.
func (f *Fork) Base() *Snapshot {
	return f.base
}

// IntoSnapshot seals the fork and returns an immutable snapshot of its state.
// The fork can no longer be used or merged afterwards.
func (f *Fork) IntoSnapshot() *Snapshot {
	f.checkOpen()
	f.sealed = true

	overlay := f.changes
	if len(f.base.overlay) > 0 {
		overlay = make(changes, len(f.base.overlay)+len(f.changes))
		for k, c := range f.base.overlay {
			overlay[k] = c
		}
		for k, c := range f.changes {
			overlay[k] = c
		}
	}
	f.changes = nil

	return &Snapshot{
		tree:    f.base.tree,
		store:   f.base.store,
		version: f.base.version,
		overlay: overlay,
	}
}

// cloneValue copies v, keeping empty values distinguishable from absent ones.
func cloneValue(v []byte) []byte {
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (f *Fork) checkOpen() {
	if f.sealed {
		panic("statestore: use of a fork after it was merged or sealed")
	}
}
