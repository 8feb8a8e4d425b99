package counter

import (
	"github.com/alekseysidorov/exonum-harness/schema"
	"github.com/alekseysidorov/exonum-harness/statestore"
)

// CountKey is the storage key of the counter value.
var CountKey = schema.Key(ServiceName, "count")

// Schema reads the counter from any view.
type Schema struct {
	count schema.Entry[uint64]
}

// NewSchema returns a read-only schema over view.
func NewSchema(view statestore.Reader) Schema {
	return Schema{count: schema.NewEntry(view, CountKey, schema.Uint64)}
}

// Count returns the counter value, false if it was never written.
func (s Schema) Count() (uint64, bool) {
	return s.count.Get()
}

// MutSchema reads and writes the counter through a fork.
type MutSchema struct {
	Schema
	count schema.MutEntry[uint64]
}

// NewMutSchema returns a writable schema over fork.
func NewMutSchema(fork statestore.Writer) MutSchema {
	entry := schema.NewMutEntry(fork, CountKey, schema.Uint64)
	return MutSchema{Schema: Schema{count: entry.Entry}, count: entry}
}

// IncCount adds by to the counter and returns the new value.
func (s MutSchema) IncCount(by uint64) uint64 {
	return schema.Increment(s.count, by)
}

// SetCount overwrites the counter.
func (s MutSchema) SetCount(v uint64) {
	s.count.Set(v)
}
