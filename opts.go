package crucible

// Built-in scope names.
const (
	ScopeSingleton = "singleton"
	ScopeTransient = "transient"
	ScopeRequest   = "request"
	ScopeAction    = "action"
)

// BindOption configures a binding.
type BindOption func(*bindConfig)

type bindConfig struct {
	scope         string
	allowOverride bool
	allowNil      bool
	params        []string
}

func newBindConfig(opts []BindOption) bindConfig {
	cfg := bindConfig{scope: ScopeSingleton}
	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// InScope sets the scope the binding's instances are cached in.
// The default is "singleton".
func InScope(name string) BindOption {
	return func(c *bindConfig) {
		c.scope = name
	}
}

// Singleton caches one instance for the registry's lifetime (default).
func Singleton() BindOption {
	return InScope(ScopeSingleton)
}

// Transient creates a fresh instance on every resolution.
func Transient() BindOption {
	return InScope(ScopeTransient)
}

// RequestScoped caches the instance for the current request scope.
func RequestScoped() BindOption {
	return InScope(ScopeRequest)
}

// AllowOverride permits replacing an existing binding for the same key.
// Without it, rebinding fails with an already-registered error.
func AllowOverride() BindOption {
	return func(c *bindConfig) {
		c.allowOverride = true
	}
}

// AllowNil permits a nil implementation or instance; resolution then yields
// nil. Without it, binding nil fails with a binding error.
func AllowNil() BindOption {
	return func(c *bindConfig) {
		c.allowNil = true
	}
}

// WithParams declares names for a constructor or factory's parameters, in
// positional order. Go reflection does not expose parameter names, so this
// is how a parameter opts in to by-name resolution against a string-named
// binding. A "?" suffix marks the parameter optional: if neither a name nor
// a type binding satisfies it, the zero value is passed instead of failing.
//
// Example:
//
//	_ = c.BindFactory(crucible.KeyFor[*Database](), NewDatabase,
//	    crucible.WithParams("database_url", "replica_url?"))
func WithParams(names ...string) BindOption {
	return func(c *bindConfig) {
		c.params = names
	}
}
