package crucible

import "testing"

// NewTestContainer creates an isolated container that is cleared when the
// test finishes.
func NewTestContainer(tb testing.TB, opts ...Option) Container {
	tb.Helper()

	c := New(opts...)
	tb.Cleanup(c.Clear)

	return c
}

// UseTestDefault swaps the process-wide default container for a fresh
// isolated one for the duration of the test, restoring the previous default
// on cleanup.
func UseTestDefault(tb testing.TB, opts ...Option) Container {
	tb.Helper()

	c := NewTestContainer(tb, opts...)
	previous := SetDefault(c)
	tb.Cleanup(func() { SetDefault(previous) })

	return c
}
