package crucible

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// hybridMutex serializes access to shared container state for two kinds of
// call sites: plain synchronous code, which locks with Lock/Unlock (usually
// via defer), and cancellation-aware code, which uses Acquire with a
// context. Both paths contend on the same underlying exclusion state, so a
// synchronous caller and a context-aware caller never interleave inside a
// critical section.
//
// The mutex is not re-entrant; critical sections are kept to map lookups and
// inserts, and it is never held across a factory invocation.
type hybridMutex struct {
	sem *semaphore.Weighted
}

func newHybridMutex() *hybridMutex {
	return &hybridMutex{sem: semaphore.NewWeighted(1)}
}

// Lock blocks until the mutex is held.
func (m *hybridMutex) Lock() {
	// Background context: plain callers have no cancellation to observe.
	_ = m.sem.Acquire(context.Background(), 1)
}

// Unlock releases the mutex.
func (m *hybridMutex) Unlock() {
	m.sem.Release(1)
}

// Acquire takes the mutex, giving up if ctx is cancelled first. On success
// the caller must Release.
func (m *hybridMutex) Acquire(ctx context.Context) error {
	return m.sem.Acquire(ctx, 1)
}

// Release releases a mutex taken with Acquire.
func (m *hybridMutex) Release() {
	m.sem.Release(1)
}

// TryLock takes the mutex without blocking, reporting whether it succeeded.
func (m *hybridMutex) TryLock() bool {
	return m.sem.TryAcquire(1)
}
