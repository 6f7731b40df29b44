package crucible

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// containerImpl implements Container.
type containerImpl struct {
	registry   *Registry
	resolver   *Resolver
	scopes     *ScopeManager
	middleware *middlewareChain
	logger     *zap.Logger
}

func newContainer(cfg containerConfig) *containerImpl {
	registry := NewRegistry(cfg.logger)
	scopes := NewScopeManager(cfg.logger)

	for _, scope := range cfg.scopes {
		scopes.RegisterScope(scope)
	}

	return &containerImpl{
		registry:   registry,
		resolver:   NewResolver(registry, scopes, cfg.logger),
		scopes:     scopes,
		middleware: newMiddlewareChain(),
		logger:     cfg.logger,
	}
}

// =============================================================================
// BINDING
// =============================================================================

func (c *containerImpl) Bind(key ServiceKey, implementation any, opts ...BindOption) error {
	return c.registry.Bind(key, implementation, opts...)
}

func (c *containerImpl) BindInstance(key ServiceKey, instance any, opts ...BindOption) error {
	return c.registry.BindInstance(key, instance, opts...)
}

func (c *containerImpl) BindFactory(key ServiceKey, factory any, opts ...BindOption) error {
	return c.registry.BindFactory(key, factory, opts...)
}

func (c *containerImpl) Unbind(key ServiceKey) bool {
	removedBinding := c.registry.RemoveBinding(key)
	removedFactory := c.registry.RemoveFactory(key)

	return removedBinding || removedFactory
}

// =============================================================================
// RESOLUTION
// =============================================================================

func (c *containerImpl) Get(key ServiceKey) (any, error) {
	return c.GetCtx(context.Background(), key)
}

func (c *containerImpl) GetCtx(ctx context.Context, key ServiceKey) (any, error) {
	if err := c.middleware.beforeResolve(ctx, key); err != nil {
		return nil, err
	}

	instance, err := c.resolver.Resolve(ctx, key)

	if mwErr := c.middleware.afterResolve(ctx, key, instance, err); mwErr != nil {
		return nil, mwErr
	}

	return instance, err
}

func (c *containerImpl) TryGet(key ServiceKey, fallback any) (any, error) {
	instance, err := c.Get(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fallback, nil
		}

		return nil, err
	}

	return instance, nil
}

func (c *containerImpl) Has(key ServiceKey) bool {
	return c.registry.Has(key)
}

// =============================================================================
// SCOPES
// =============================================================================

func (c *containerImpl) EnterScope(ctx context.Context, name string) (context.Context, func(), error) {
	return c.scopes.ScopeContext(ctx, name)
}

func (c *containerImpl) RegisterScope(scope Scope) {
	c.scopes.RegisterScope(scope)
}

func (c *containerImpl) ClearScope(name string) error {
	return c.scopes.ClearScope(name)
}

func (c *containerImpl) ClearAllScopes() {
	c.scopes.ClearAllScopes()
}

func (c *containerImpl) Clear() {
	c.registry.Clear()
	c.scopes.ClearAllScopes()
	c.logger.Debug("container cleared")
}

// =============================================================================
// OVERRIDE
// =============================================================================

// Override snapshots the current binding and factory for key, evicts the
// singleton cache entry, and installs value as an instance binding. The
// returned restore function evicts the cache entry again and reinstates the
// snapshot exactly, in that order, so the override is fully reversible,
// including when no binding existed before.
func (c *containerImpl) Override(key ServiceKey, value any) func() {
	binding, factory := c.registry.snapshot(key)

	c.scopes.removeCached(ScopeSingleton, key)
	c.registry.RemoveFactory(key)

	if err := c.registry.BindInstance(key, value, AllowOverride(), AllowNil()); err != nil {
		// BindInstance with override permission only fails for shape
		// errors; surface those loudly rather than silently not overriding.
		panic(err)
	}

	return func() {
		c.scopes.removeCached(ScopeSingleton, key)
		c.registry.restore(key, binding, factory)
	}
}

// =============================================================================
// DIAGNOSTICS
// =============================================================================

func (c *containerImpl) Validate() error {
	if err := c.registry.Validate(); err != nil {
		return err
	}

	return c.resolver.ValidateDependencies()
}

func (c *containerImpl) DependencyGraph() map[ServiceKey][]ServiceKey {
	return c.resolver.DependencyGraph()
}

func (c *containerImpl) Keys() []ServiceKey {
	return c.registry.Keys()
}

func (c *containerImpl) Use(m Middleware) {
	c.middleware.add(m)
}

func (c *containerImpl) Install(modules ...Module) error {
	for _, module := range modules {
		if err := module.Configure(c); err != nil {
			return err
		}
	}

	return nil
}

func (c *containerImpl) Registry() *Registry {
	return c.registry
}

func (c *containerImpl) Scopes() *ScopeManager {
	return c.scopes
}
