package harness

import "fmt"

// Comparison holds a pair of values derived from a "before" and an "after"
// state. Projections are applied to both sides alike; a failed assertion is
// fatal and reports its label.
type Comparison[T any] struct {
	t      TB
	before T
	after  T
}

// Compare starts a comparison of before and after.
func Compare[T any](t TB, before, after T) Comparison[T] {
	return Comparison[T]{t: t, before: before, after: after}
}

// Map projects both sides through f.
func Map[T, U any](c Comparison[T], f func(T) U) Comparison[U] {
	return Comparison[U]{t: c.t, before: f(c.before), after: f(c.after)}
}

// Before returns the before side.
func (c Comparison[T]) Before() T { return c.before }

// After returns the after side.
func (c Comparison[T]) After() T { return c.after }

// AssertBefore fails with label unless pred holds for the before side.
func (c Comparison[T]) AssertBefore(label string, pred func(T) bool) Comparison[T] {
	c.t.Helper()
	if !pred(c.before) {
		c.t.Fatalf("%s (before: %s)", label, format(c.before))
	}
	return c
}

// AssertAfter fails with label unless pred holds for the after side.
func (c Comparison[T]) AssertAfter(label string, pred func(T) bool) Comparison[T] {
	c.t.Helper()
	if !pred(c.after) {
		c.t.Fatalf("%s (after: %s)", label, format(c.after))
	}
	return c
}

// Assert fails with label unless rel holds for (before, after).
func (c Comparison[T]) Assert(label string, rel func(before, after T) bool) Comparison[T] {
	c.t.Helper()
	if !rel(c.before, c.after) {
		c.t.Fatalf("%s (before: %s, after: %s)", label, format(c.before), format(c.after))
	}
	return c
}

type versioned interface {
	Version() int64
	RootHash() []byte
}

func format(v any) string {
	switch v := v.(type) {
	case versioned:
		return fmt.Sprintf("version %d root %x", v.Version(), v.RootHash())
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprintf("%+v", v)
}
