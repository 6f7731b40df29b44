package crucible

// Binder is the registration surface a module configures against. The
// container itself implements Binder.
type Binder interface {
	Bind(key ServiceKey, implementation any, opts ...BindOption) error
	BindInstance(key ServiceKey, instance any, opts ...BindOption) error
	BindFactory(key ServiceKey, factory any, opts ...BindOption) error
}

// Module groups related bindings so they can be installed together.
//
// Example:
//
//	type StorageModule struct{ DSN string }
//
//	func (m StorageModule) Configure(b crucible.Binder) error {
//	    if err := b.BindInstance(crucible.Named("dsn"), m.DSN); err != nil {
//	        return err
//	    }
//	    return b.BindFactory(crucible.KeyFor[*Store](), NewStore)
//	}
type Module interface {
	Configure(b Binder) error
}

// ModuleFunc adapts a function to the Module interface.
type ModuleFunc func(b Binder) error

// Configure implements Module.
func (f ModuleFunc) Configure(b Binder) error {
	return f(b)
}
