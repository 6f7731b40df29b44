package crucible

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Lazy wraps a dependency that is resolved on first access. This is useful
// for breaking initialization ordering knots or deferring resolution of
// expensive services until they're actually needed.
type Lazy[T any] struct {
	container Container
	key       ServiceKey
	once      sync.Once
	value     T
	err       error
	resolved  atomic.Bool
}

// NewLazy creates a lazy handle for key.
func NewLazy[T any](c Container, key ServiceKey) *Lazy[T] {
	return &Lazy[T]{container: c, key: key}
}

// NewLazyFor creates a lazy handle for the type key of T.
func NewLazyFor[T any](c Container) *Lazy[T] {
	return NewLazy[T](c, KeyFor[T]())
}

// Get resolves the dependency and returns it. Resolution happens only once;
// subsequent calls return the cached value.
func (l *Lazy[T]) Get() (T, error) {
	l.once.Do(func() {
		l.value, l.err = Resolve[T](l.container, l.key)
		l.resolved.Store(l.err == nil)
	})

	return l.value, l.err
}

// MustGet resolves the dependency and returns it, panicking on error.
func (l *Lazy[T]) MustGet() T {
	value, err := l.Get()
	if err != nil {
		panic(fmt.Sprintf("lazy dependency %s failed: %v", l.key, err))
	}

	return value
}

// IsResolved reports whether the dependency has been resolved. It is safe
// to call concurrently with Get.
func (l *Lazy[T]) IsResolved() bool {
	return l.resolved.Load()
}

// Key returns the key the handle resolves.
func (l *Lazy[T]) Key() ServiceKey {
	return l.key
}
