package crucible

import "context"

// Container composes the binding registry, the dependency resolver, and the
// scope lifecycle engine behind one surface. All methods are safe for
// concurrent use from multiple goroutines.
type Container interface {
	Binder

	// Get resolves key into a fully constructed instance.
	Get(key ServiceKey) (any, error)

	// GetCtx resolves key using ctx for cancellation and for locating
	// active context scopes (request, action).
	GetCtx(ctx context.Context, key ServiceKey) (any, error)

	// TryGet resolves key, returning fallback when no binding or factory
	// exists. Every other error kind propagates.
	TryGet(key ServiceKey, fallback any) (any, error)

	// Has reports whether a binding or a factory exists for key.
	Has(key ServiceKey) bool

	// Unbind removes the binding and factory for key, reporting whether
	// either existed. Cached scope instances are untouched.
	Unbind(key ServiceKey) bool

	// Invoke calls fn with its parameters resolved from the container.
	// Caller-supplied arguments take precedence over resolution; see Arg.
	Invoke(ctx context.Context, fn any, args ...Arg) (any, error)

	// EnterScope enters the named scope, returning a derived context and an
	// exit function that must run even if the enclosed block fails.
	EnterScope(ctx context.Context, name string) (context.Context, func(), error)

	// RegisterScope adds a custom scope.
	RegisterScope(scope Scope)

	// ClearScope drops all cached instances in the named scope.
	ClearScope(name string) error

	// ClearAllScopes drops all cached instances in every scope.
	ClearAllScopes()

	// Clear removes all bindings and factories and clears every scope.
	Clear()

	// Override temporarily rebinds key to value, returning a restore
	// function that reverses the override exactly. Intended for tests:
	//
	//	restore := c.Override(dbKey, fakeDB)
	//	defer restore()
	Override(key ServiceKey, value any) func()

	// Validate checks every binding for constructability and every declared
	// dependency for resolvability, failing on the first inconsistency.
	Validate() error

	// DependencyGraph maps each registered key to its ordered dependencies.
	DependencyGraph() map[ServiceKey][]ServiceKey

	// Keys returns every registered key.
	Keys() []ServiceKey

	// Use appends middleware invoked around every resolution.
	Use(m Middleware)

	// Install applies each module's bindings to this container.
	Install(modules ...Module) error

	// Registry exposes the underlying binding registry.
	Registry() *Registry

	// Scopes exposes the underlying scope manager.
	Scopes() *ScopeManager
}
