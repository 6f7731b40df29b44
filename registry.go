package crucible

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// Binding is the registered association between a service key and how to
// produce its value. Implementation is a constructor function, a struct
// type (reflect.Type), a concrete instance, or nil when AllowNil was set.
type Binding struct {
	Key            ServiceKey
	Implementation any
	ScopeName      string
	AllowNil       bool
	params         []string

	// Analysis results computed at bind time so resolution does not repeat
	// reflection work. Exactly one is set for constructable implementations.
	ctor  *constructorInfo
	strct *structInfo
}

// factoryEntry is a factory function registered for a key, with optional
// explicit parameter names.
type factoryEntry struct {
	fn   any
	info *constructorInfo
}

// Registry stores bindings and factories per service key. A key maps to at
// most one active binding; a factory may exist instead of or in addition to
// a binding and takes precedence during resolution.
//
// All methods are safe for concurrent use. The registry never invokes a
// factory; critical sections cover map access only.
type Registry struct {
	mu        *hybridMutex
	bindings  map[ServiceKey]*Binding
	factories map[ServiceKey]*factoryEntry
	logger    *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		mu:        newHybridMutex(),
		bindings:  make(map[ServiceKey]*Binding),
		factories: make(map[ServiceKey]*factoryEntry),
		logger:    logger,
	}
}

// Bind registers an implementation for a key. The implementation may be a
// constructor function, a struct type (see TypeOf), or a concrete instance.
// A nil implementation self-binds a type key to its own type; for a named
// key, nil requires AllowNil.
func (r *Registry) Bind(key ServiceKey, implementation any, opts ...BindOption) error {
	if key.IsZero() {
		return NewBindingError(key, "cannot bind a zero service key")
	}

	cfg := newBindConfig(opts)

	if implementation == nil && !cfg.allowNil {
		if key.Type() == nil {
			return NewBindingError(key, fmt.Sprintf("must provide implementation for named key %s", key))
		}
		// Self-binding: the type key is its own implementation.
		implementation = key.Type()
	}

	var (
		ctor  *constructorInfo
		strct *structInfo
	)

	switch impl := implementation.(type) {
	case nil:
		// Explicitly permitted nil; resolution yields nil.
	case reflect.Type:
		if impl.Kind() == reflect.Interface {
			return NewBindingError(key, fmt.Sprintf("abstract type %s cannot be bound as its own implementation", impl))
		}
		if !isConstructable(impl) {
			return NewBindingError(key, fmt.Sprintf("type %s is not constructable", impl))
		}

		info, err := analyzeStruct(impl)
		if err != nil {
			return NewBindingError(key, err.Error())
		}
		strct = info
	default:
		if reflect.TypeOf(implementation).Kind() == reflect.Func {
			info, err := analyzeConstructor(implementation, cfg.params)
			if err != nil {
				return NewBindingError(key, err.Error())
			}
			ctor = info
		}
		// Anything else is a concrete instance, returned as-is.
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bindings[key]; exists && !cfg.allowOverride {
		return NewAlreadyRegisteredError(key)
	}

	r.bindings[key] = &Binding{
		Key:            key,
		Implementation: implementation,
		ScopeName:      cfg.scope,
		AllowNil:       cfg.allowNil,
		params:         cfg.params,
		ctor:           ctor,
		strct:          strct,
	}

	r.logger.Debug("bound service",
		zap.Stringer("key", key),
		zap.String("scope", cfg.scope))

	return nil
}

// BindInstance registers a pre-built instance for a key. The instance is
// returned as-is on every resolution; no construction or caching applies.
func (r *Registry) BindInstance(key ServiceKey, instance any, opts ...BindOption) error {
	if key.IsZero() {
		return NewBindingError(key, "cannot bind a zero service key")
	}

	cfg := newBindConfig(opts)

	if instance == nil && !cfg.allowNil {
		return NewBindingError(key, "instance is nil (use AllowNil to permit nil bindings)")
	}

	if instance != nil {
		switch reflect.TypeOf(instance).Kind() {
		case reflect.Func:
			return NewBindingError(key, "instance is a function; use Bind or BindFactory for constructables")
		default:
			if _, isType := instance.(reflect.Type); isType {
				return NewBindingError(key, "instance is a type; use Bind for constructable types")
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bindings[key]; exists && !cfg.allowOverride {
		return NewAlreadyRegisteredError(key)
	}

	r.bindings[key] = &Binding{
		Key:            key,
		Implementation: instance,
		ScopeName:      ScopeSingleton,
		AllowNil:       cfg.allowNil,
	}

	r.logger.Debug("bound instance", zap.Stringer("key", key))

	return nil
}

// BindFactory registers a factory function for a key. Factory parameters
// are themselves resolved as dependencies; factory presence takes
// precedence over a binding for the same key.
func (r *Registry) BindFactory(key ServiceKey, factory any, opts ...BindOption) error {
	if key.IsZero() {
		return NewBindingError(key, "cannot bind a zero service key")
	}

	cfg := newBindConfig(opts)

	if factory == nil || reflect.TypeOf(factory).Kind() != reflect.Func {
		return NewBindingError(key, fmt.Sprintf("factory for %s must be an invocable function", key))
	}

	info, err := analyzeConstructor(factory, cfg.params)
	if err != nil {
		return NewBindingError(key, err.Error())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[key]; exists && !cfg.allowOverride {
		return NewAlreadyRegisteredError(key)
	}

	r.factories[key] = &factoryEntry{fn: factory, info: info}

	r.logger.Debug("bound factory", zap.Stringer("key", key))

	return nil
}

// Binding returns the binding registered for key, if any.
func (r *Registry) Binding(key ServiceKey) (*Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[key]

	return b, ok
}

// Factory returns the factory function registered for key, if any.
func (r *Registry) Factory(key ServiceKey) (any, bool) {
	entry, ok := r.factory(key)
	if !ok {
		return nil, false
	}

	return entry.fn, true
}

func (r *Registry) factory(key ServiceKey) (*factoryEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.factories[key]

	return entry, ok
}

// HasBinding reports whether a binding exists for key.
func (r *Registry) HasBinding(key ServiceKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.bindings[key]

	return ok
}

// HasFactory reports whether a factory exists for key.
func (r *Registry) HasFactory(key ServiceKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.factories[key]

	return ok
}

// Has reports whether either a binding or a factory exists for key.
func (r *Registry) Has(key ServiceKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, binding := r.bindings[key]
	_, factory := r.factories[key]

	return binding || factory
}

// RemoveBinding deletes the binding for key, reporting whether one existed.
func (r *Registry) RemoveBinding(key ServiceKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bindings[key]; !ok {
		return false
	}
	delete(r.bindings, key)

	return true
}

// RemoveFactory deletes the factory for key, reporting whether one existed.
func (r *Registry) RemoveFactory(key ServiceKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[key]; !ok {
		return false
	}
	delete(r.factories, key)

	return true
}

// Keys returns every key with a binding or factory, in no particular order.
func (r *Registry) Keys() []ServiceKey {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]ServiceKey, 0, len(r.bindings)+len(r.factories))
	for key := range r.bindings {
		keys = append(keys, key)
	}
	for key := range r.factories {
		if _, also := r.bindings[key]; !also {
			keys = append(keys, key)
		}
	}

	return keys
}

// Len returns the number of registered keys, counting a key with both a
// binding and a factory once per registration.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.bindings) + len(r.factories)
}

// Validate walks every binding and fails on the first one whose
// implementation cannot possibly be constructed.
func (r *Registry) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, binding := range r.bindings {
		switch impl := binding.Implementation.(type) {
		case nil:
			if !binding.AllowNil {
				return NewBindingError(key, fmt.Sprintf("binding for %s has nil implementation", key))
			}
		case reflect.Type:
			if _, err := analyzeStruct(impl); err != nil {
				return NewBindingError(key, err.Error())
			}
		default:
			if reflect.TypeOf(impl).Kind() == reflect.Func {
				if _, err := analyzeConstructor(impl, binding.params); err != nil {
					return NewBindingError(key, err.Error())
				}
			}
		}
	}

	return nil
}

// Clear removes all bindings and factories. Cached scope instances are
// untouched; clearing those is the container's job via the scope manager.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bindings = make(map[ServiceKey]*Binding)
	r.factories = make(map[ServiceKey]*factoryEntry)
}

// snapshot captures the current binding and factory for key, for a
// reversible override.
func (r *Registry) snapshot(key ServiceKey) (*Binding, *factoryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.bindings[key], r.factories[key]
}

// restore reinstates a snapshot taken with snapshot, removing whatever is
// currently registered for key.
func (r *Registry) restore(key ServiceKey, binding *Binding, factory *factoryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.bindings, key)
	delete(r.factories, key)

	if binding != nil {
		r.bindings[key] = binding
	}
	if factory != nil {
		r.factories[key] = factory
	}
}
