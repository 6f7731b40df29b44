// Package crucible is a runtime dependency injection container.
//
// A container holds a registry of bindings (service key to implementation,
// instance, or factory), resolves requested keys into fully constructed
// object graphs with cycle detection, and caches instances according to a
// named scope (singleton, transient, request, action, or custom). All
// operations are safe for concurrent use from multiple goroutines.
//
// Basic usage:
//
//	c := crucible.New()
//	_ = c.Bind(crucible.KeyFor[*Config](), nil)
//	_ = crucible.BindSingleton[*Service](c, NewService)
//	svc := crucible.MustGet[*Service](c)
package crucible

import "go.uber.org/zap"

// Option configures a container at construction time.
type Option func(*containerConfig)

type containerConfig struct {
	logger *zap.Logger
	scopes []Scope
}

// WithLogger sets the logger used for container diagnostics.
// The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *containerConfig) {
		c.logger = logger
	}
}

// WithScope registers a custom scope alongside the built-in ones.
func WithScope(scope Scope) Option {
	return func(c *containerConfig) {
		c.scopes = append(c.scopes, scope)
	}
}

// New creates a new DI container.
func New(opts ...Option) Container {
	cfg := containerConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	return newContainer(cfg)
}
