// Package schema provides typed accessors over statestore views.
//
// An Entry holds a single value under a fixed key; a Map holds many values
// under a common namespace prefix. Read-only accessors work over any
// statestore.Reader (a Snapshot or a Fork). Mutable accessors require a
// statestore.Writer and are only obtainable from a Fork.
//
// Values that fail to decode indicate corrupted state written by a different
// schema and are reported with a panic, like storage failures.
package schema

import (
	"fmt"

	"github.com/alekseysidorov/exonum-harness/statestore"
)

// Key builds the storage key of a named item inside a namespace.
func Key(namespace, name string) []byte {
	return []byte(namespace + "." + name)
}

// DecodeError reports a stored value that could not be decoded.
type DecodeError struct {
	Key []byte
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("schema: decoding value at %q: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Entry is a typed single-value slot.
type Entry[T any] struct {
	view  statestore.Reader
	key   []byte
	codec Codec[T]
}

// NewEntry returns a read-only accessor for the value stored under key.
func NewEntry[T any](view statestore.Reader, key []byte, codec Codec[T]) Entry[T] {
	return Entry[T]{view: view, key: key, codec: codec}
}

// Get returns the stored value and whether it was present.
func (e Entry[T]) Get() (T, bool) {
	data := e.view.Get(e.key)
	if data == nil {
		var zero T
		return zero, false
	}
	v, err := e.codec.Decode(data)
	if err != nil {
		panic(&DecodeError{Key: e.key, Err: err})
	}
	return v, true
}

// GetOr returns the stored value or def if it is absent.
func (e Entry[T]) GetOr(def T) T {
	if v, ok := e.Get(); ok {
		return v
	}
	return def
}

// Exists reports whether the entry holds a value.
func (e Entry[T]) Exists() bool {
	return e.view.Has(e.key)
}

// MutEntry is a typed single-value slot over a writable view.
type MutEntry[T any] struct {
	Entry[T]
	fork statestore.Writer
}

// NewMutEntry returns a read-write accessor for the value stored under key.
func NewMutEntry[T any](fork statestore.Writer, key []byte, codec Codec[T]) MutEntry[T] {
	return MutEntry[T]{Entry: NewEntry[T](fork, key, codec), fork: fork}
}

// Set stores v.
func (e MutEntry[T]) Set(v T) {
	e.fork.Set(e.key, e.codec.Encode(v))
}

// Remove deletes the stored value.
func (e MutEntry[T]) Remove() {
	e.fork.Delete(e.key)
}

// Increment adds delta to the counter stored in e, treating an absent value as
// zero, and returns the new value. Overflow wraps.
func Increment(e MutEntry[uint64], delta uint64) uint64 {
	v := e.GetOr(0) + delta
	e.Set(v)
	return v
}

// Map is a typed collection of values sharing a namespace prefix.
type Map[K, V any] struct {
	view   statestore.Reader
	prefix []byte
	keys   Codec[K]
	values Codec[V]
}

// NewMap returns a read-only accessor for the collection under prefix.
func NewMap[K, V any](view statestore.Reader, prefix []byte, keys Codec[K], values Codec[V]) Map[K, V] {
	p := make([]byte, 0, len(prefix)+1)
	p = append(p, prefix...)
	p = append(p, ':')
	return Map[K, V]{view: view, prefix: p, keys: keys, values: values}
}

func (m Map[K, V]) key(k K) []byte {
	encoded := m.keys.Encode(k)
	out := make([]byte, 0, len(m.prefix)+len(encoded))
	out = append(out, m.prefix...)
	return append(out, encoded...)
}

// Get returns the value stored under k and whether it was present.
func (m Map[K, V]) Get(k K) (V, bool) {
	key := m.key(k)
	data := m.view.Get(key)
	if data == nil {
		var zero V
		return zero, false
	}
	v, err := m.values.Decode(data)
	if err != nil {
		panic(&DecodeError{Key: key, Err: err})
	}
	return v, true
}

// Has reports whether k holds a value.
func (m Map[K, V]) Has(k K) bool {
	return m.view.Has(m.key(k))
}

// MutMap is a typed collection over a writable view.
type MutMap[K, V any] struct {
	Map[K, V]
	fork statestore.Writer
}

// NewMutMap returns a read-write accessor for the collection under prefix.
func NewMutMap[K, V any](fork statestore.Writer, prefix []byte, keys Codec[K], values Codec[V]) MutMap[K, V] {
	return MutMap[K, V]{Map: NewMap[K, V](fork, prefix, keys, values), fork: fork}
}

// Put stores v under k.
func (m MutMap[K, V]) Put(k K, v V) {
	m.fork.Set(m.key(k), m.values.Encode(v))
}

// Remove deletes the value under k.
func (m MutMap[K, V]) Remove(k K) {
	m.fork.Delete(m.key(k))
}
