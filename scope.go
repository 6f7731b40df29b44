package crucible

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// FactoryFunc produces an instance for a scope's get-or-create.
type FactoryFunc func() (any, error)

// Disposable is implemented by cached instances that hold resources. A
// scope calls Dispose when clearing; errors are swallowed so that clearing
// never partially fails.
type Disposable interface {
	Dispose() error
}

// Scope is a named cache policy governing instance lifetime. Get returns
// the cached instance for key or calls create at most once per key per
// active lifetime of the scope. Enter and Exit bracket a context-bound
// lifetime for scopes that have one; for the others they are no-ops.
type Scope interface {
	Name() string
	Get(ctx context.Context, key ServiceKey, create FactoryFunc) (any, error)
	Clear()
	Enter(ctx context.Context) context.Context
	Exit(ctx context.Context)
}

// keyRemover is implemented by scopes that can evict a single key, used by
// Override to drop a cached instance without clearing the whole scope.
type keyRemover interface {
	Remove(key ServiceKey)
}

// =============================================================================
// INSTANCE CACHE
// =============================================================================

// instanceCache is the shared get-or-create machinery behind the singleton
// scope and each context-scope frame. The mutex guards the maps only; the
// factory runs outside any critical section, and the in-flight table
// guarantees that racing callers for the same uncached key observe exactly
// one factory invocation and the same resulting instance.
//
// In-flight deduplication is keyed by the full ServiceKey, never by its
// string form: reflect type names are not unique (two types named Config in
// different packages with the same base name render identically), so a
// string key could hand one key's instance to a caller racing on another.
type instanceCache struct {
	mu        *hybridMutex
	instances map[ServiceKey]any
	inflight  map[ServiceKey]*inflightCall
}

// inflightCall is a construction in progress. done is closed once val and
// err are set; followers wait on it instead of invoking the factory again.
type inflightCall struct {
	done chan struct{}
	val  any
	err  error
}

func newInstanceCache() *instanceCache {
	return &instanceCache{
		mu:        newHybridMutex(),
		instances: make(map[ServiceKey]any),
		inflight:  make(map[ServiceKey]*inflightCall),
	}
}

func (c *instanceCache) get(ctx context.Context, key ServiceKey, create FactoryFunc) (any, error) {
	if err := c.mu.Acquire(ctx); err != nil {
		return nil, err
	}

	if cached, ok := c.instances[key]; ok {
		c.mu.Release()

		return cached, nil
	}

	if call, ok := c.inflight[key]; ok {
		c.mu.Release()

		select {
		case <-call.done:
			return call.val, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &inflightCall{done: make(chan struct{})}
	c.inflight[key] = call
	c.mu.Release()

	call.val, call.err = create()

	c.mu.Lock()
	if call.err == nil {
		c.instances[key] = call.val
	}
	// Nothing is cached for a failed key; the next caller retries afresh.
	delete(c.inflight, key)
	c.mu.Unlock()

	close(call.done)

	return call.val, call.err
}

func (c *instanceCache) remove(key ServiceKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.instances, key)
}

// drain swaps out the cache contents for disposal outside the lock.
func (c *instanceCache) drain() map[ServiceKey]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	drained := c.instances
	c.instances = make(map[ServiceKey]any)

	return drained
}

// disposeAll releases every drained instance that exposes Dispose. Errors
// are collected for the log and otherwise swallowed: teardown is
// unconditionally total.
func disposeAll(instances map[ServiceKey]any, scopeName string, logger *zap.Logger) {
	var errs error

	for key, instance := range instances {
		disposable, ok := instance.(Disposable)
		if !ok {
			continue
		}
		if err := disposable.Dispose(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	if errs != nil {
		logger.Warn("errors during scope teardown",
			zap.String("scope", scopeName),
			zap.Error(errs))
	}
}

// =============================================================================
// BUILT-IN SCOPES
// =============================================================================

// singletonScope caches one instance per key for the registry's lifetime.
type singletonScope struct {
	cache  *instanceCache
	logger *zap.Logger
}

func newSingletonScope(logger *zap.Logger) *singletonScope {
	return &singletonScope{cache: newInstanceCache(), logger: logger}
}

func (s *singletonScope) Name() string { return ScopeSingleton }

func (s *singletonScope) Get(ctx context.Context, key ServiceKey, create FactoryFunc) (any, error) {
	return s.cache.get(ctx, key, create)
}

func (s *singletonScope) Clear() {
	disposeAll(s.cache.drain(), ScopeSingleton, s.logger)
}

func (s *singletonScope) Remove(key ServiceKey) {
	s.cache.remove(key)
}

func (s *singletonScope) Enter(ctx context.Context) context.Context { return ctx }
func (s *singletonScope) Exit(context.Context)                      {}

var _ keyRemover = (*singletonScope)(nil)

// transientScope never caches; every resolution constructs anew.
type transientScope struct{}

func (transientScope) Name() string { return ScopeTransient }

func (transientScope) Get(_ context.Context, _ ServiceKey, create FactoryFunc) (any, error) {
	return create()
}

func (transientScope) Clear()                                    {}
func (transientScope) Enter(ctx context.Context) context.Context { return ctx }
func (transientScope) Exit(context.Context)                      {}

// contextScope caches instances per entered execution context. Enter
// derives a context carrying a fresh frame; nested entries shadow outer
// frames, so each nesting level caches and clears independently. Without an
// active frame, Get fails with a scope error.
type contextScope struct {
	name   string
	mu     *hybridMutex
	frames map[*scopeFrame]struct{}
	logger *zap.Logger
}

type scopeFrame struct {
	cache *instanceCache
}

type scopeFrameKey struct{ name string }

func newContextScope(name string, logger *zap.Logger) *contextScope {
	return &contextScope{
		name:   name,
		mu:     newHybridMutex(),
		frames: make(map[*scopeFrame]struct{}),
		logger: logger,
	}
}

func (s *contextScope) Name() string { return s.name }

func (s *contextScope) activeFrame(ctx context.Context) *scopeFrame {
	frame, _ := ctx.Value(scopeFrameKey{s.name}).(*scopeFrame)

	return frame
}

func (s *contextScope) Get(ctx context.Context, key ServiceKey, create FactoryFunc) (any, error) {
	frame := s.activeFrame(ctx)
	if frame == nil {
		return nil, NewScopeError(s.name, fmt.Sprintf("no active %q scope in context", s.name))
	}

	return frame.cache.get(ctx, key, create)
}

func (s *contextScope) Enter(ctx context.Context) context.Context {
	frame := &scopeFrame{cache: newInstanceCache()}

	s.mu.Lock()
	s.frames[frame] = struct{}{}
	s.mu.Unlock()

	s.logger.Debug("entered scope", zap.String("scope", s.name))

	return context.WithValue(ctx, scopeFrameKey{s.name}, frame)
}

func (s *contextScope) Exit(ctx context.Context) {
	frame := s.activeFrame(ctx)
	if frame == nil {
		return
	}

	s.mu.Lock()
	delete(s.frames, frame)
	s.mu.Unlock()

	disposeAll(frame.cache.drain(), s.name, s.logger)

	s.logger.Debug("exited scope", zap.String("scope", s.name))
}

// Clear drops cached instances in every live frame of this scope.
func (s *contextScope) Clear() {
	s.mu.Lock()
	frames := make([]*scopeFrame, 0, len(s.frames))
	for frame := range s.frames {
		frames = append(frames, frame)
	}
	s.mu.Unlock()

	for _, frame := range frames {
		disposeAll(frame.cache.drain(), s.name, s.logger)
	}
}

// =============================================================================
// SCOPE MANAGER
// =============================================================================

// ScopeManager indexes scopes by name and brackets scope-context entry and
// exit. Each container owns exactly one manager.
type ScopeManager struct {
	mu     *hybridMutex
	scopes map[string]Scope
	logger *zap.Logger
}

// NewScopeManager creates a manager with the built-in scopes registered:
// singleton, transient, request, and action.
func NewScopeManager(logger *zap.Logger) *ScopeManager {
	m := &ScopeManager{
		mu:     newHybridMutex(),
		scopes: make(map[string]Scope),
		logger: logger,
	}

	m.RegisterScope(newSingletonScope(logger))
	m.RegisterScope(transientScope{})
	m.RegisterScope(newContextScope(ScopeRequest, logger))
	m.RegisterScope(newContextScope(ScopeAction, logger))

	return m
}

// RegisterScope adds a scope, replacing any previous scope of the same name.
func (m *ScopeManager) RegisterScope(scope Scope) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scopes[scope.Name()] = scope
}

// GetScope returns the scope registered under name.
func (m *ScopeManager) GetScope(name string) (Scope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	scope, ok := m.scopes[name]
	if !ok {
		return nil, NewScopeError(name, fmt.Sprintf("unknown scope %q", name))
	}

	return scope, nil
}

// activeScopesKey carries the stack of entered scope names in a context.
type activeScopesKey struct{}

// ActiveScopes returns the names of scopes entered on this context,
// outermost first.
func ActiveScopes(ctx context.Context) []string {
	stack, _ := ctx.Value(activeScopesKey{}).([]string)

	return stack
}

// ScopeContext enters the named scope, returning a derived context bound to
// the new scope frame and an exit function. The exit function must run even
// if the enclosed block fails; defer it immediately:
//
//	ctx, exit, err := m.ScopeContext(ctx, crucible.ScopeRequest)
//	if err != nil { ... }
//	defer exit()
//
// Entries nest: an inner entry of the same scope name caches independently
// and clears at its own exit.
func (m *ScopeManager) ScopeContext(ctx context.Context, name string) (context.Context, func(), error) {
	scope, err := m.GetScope(name)
	if err != nil {
		return ctx, nil, err
	}

	stack, _ := ctx.Value(activeScopesKey{}).([]string)
	stack = append(stack[:len(stack):len(stack)], name)

	scoped := scope.Enter(context.WithValue(ctx, activeScopesKey{}, stack))

	return scoped, func() { scope.Exit(scoped) }, nil
}

// GetInstance delegates get-or-create for key to the named scope.
func (m *ScopeManager) GetInstance(ctx context.Context, key ServiceKey, create FactoryFunc, scopeName string) (any, error) {
	scope, err := m.GetScope(scopeName)
	if err != nil {
		return nil, err
	}

	return scope.Get(ctx, key, create)
}

// ClearScope drops all cached instances in the named scope.
func (m *ScopeManager) ClearScope(name string) error {
	scope, err := m.GetScope(name)
	if err != nil {
		return err
	}
	scope.Clear()

	return nil
}

// ClearAllScopes drops all cached instances in every scope.
func (m *ScopeManager) ClearAllScopes() {
	m.mu.Lock()
	scopes := make([]Scope, 0, len(m.scopes))
	for _, scope := range m.scopes {
		scopes = append(scopes, scope)
	}
	m.mu.Unlock()

	for _, scope := range scopes {
		scope.Clear()
	}
}

// removeCached evicts a single key from the named scope, if the scope
// supports per-key eviction.
func (m *ScopeManager) removeCached(name string, key ServiceKey) {
	scope, err := m.GetScope(name)
	if err != nil {
		return
	}
	if remover, ok := scope.(keyRemover); ok {
		remover.Remove(key)
	}
}
