package crucible

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// Resolver walks the constructor graph: given a requested key it determines
// the implementation, resolves each declared parameter as a dependency, and
// delegates instance caching to the scope named by the binding.
//
// The chain of keys currently being resolved (the resolution frame) is
// threaded through the walk explicitly and discarded when the outermost
// resolution completes or fails, so failures never corrupt later
// resolutions.
type Resolver struct {
	registry *Registry
	scopes   *ScopeManager
	logger   *zap.Logger
}

// NewResolver creates a resolver over a registry and scope manager.
func NewResolver(registry *Registry, scopes *ScopeManager, logger *zap.Logger) *Resolver {
	return &Resolver{registry: registry, scopes: scopes, logger: logger}
}

// Resolve produces a fully constructed instance for key.
func (r *Resolver) Resolve(ctx context.Context, key ServiceKey) (any, error) {
	return r.resolve(ctx, key, nil)
}

func (r *Resolver) resolve(ctx context.Context, key ServiceKey, frame []ServiceKey) (any, error) {
	for _, active := range frame {
		if active == key {
			return nil, NewCircularDependencyError(append(frame[:len(frame):len(frame)], key))
		}
	}

	// A factory takes precedence over a binding for the same key.
	if entry, ok := r.registry.factory(key); ok {
		scopeName := ScopeSingleton
		if binding, ok := r.registry.Binding(key); ok {
			scopeName = binding.ScopeName
		}

		return r.buildInScope(ctx, key, entry.info, nil, scopeName, frame)
	}

	binding, ok := r.registry.Binding(key)
	if !ok {
		return nil, NewNotFoundError(key)
	}

	switch impl := binding.Implementation.(type) {
	case nil:
		// Explicitly permitted nil binding.
		return nil, nil
	case reflect.Type:
		strct := binding.strct
		if strct == nil {
			info, err := analyzeStruct(impl)
			if err != nil {
				return nil, NewBindingError(key, err.Error())
			}
			strct = info
		}

		return r.buildInScope(ctx, key, nil, strct, binding.ScopeName, frame)
	default:
		if reflect.TypeOf(impl).Kind() == reflect.Func {
			ctor := binding.ctor
			if ctor == nil {
				info, err := analyzeConstructor(impl, binding.params)
				if err != nil {
					return nil, NewBindingError(key, err.Error())
				}
				ctor = info
			}

			return r.buildInScope(ctx, key, ctor, nil, binding.ScopeName, frame)
		}

		// Already a concrete instance; nothing to construct or cache.
		return impl, nil
	}
}

// buildInScope pushes key onto the resolution frame and delegates
// construction to the named scope, which calls back into the constructor at
// most once per key per active scope lifetime.
func (r *Resolver) buildInScope(ctx context.Context, key ServiceKey, ctor *constructorInfo, strct *structInfo, scopeName string, frame []ServiceKey) (any, error) {
	frame = append(frame[:len(frame):len(frame)], key)

	create := func() (any, error) {
		if ctor != nil {
			args, err := r.resolveParams(ctx, ctor.params, frame)
			if err != nil {
				return nil, err
			}

			return ctor.call(ctx, args)
		}

		args, err := r.resolveParams(ctx, strct.fields, frame)
		if err != nil {
			return nil, err
		}

		return strct.construct(args), nil
	}

	instance, err := r.scopes.GetInstance(ctx, key, create, scopeName)
	if err != nil {
		r.logger.Debug("resolution failed",
			zap.Stringer("key", key),
			zap.Error(err))

		return nil, err
	}

	return instance, nil
}

// resolveParams resolves each parameter in order.
func (r *Resolver) resolveParams(ctx context.Context, params []paramSpec, frame []ServiceKey) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(params))

	for i, param := range params {
		arg, err := r.resolveParam(ctx, param, frame)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}

	return args, nil
}

// resolveParam resolves a single parameter. Precedence: the parameter's
// declared name as a string key first, then its declared type. A parameter
// marked optional is left at its zero value when nothing satisfies it;
// otherwise resolution fails.
//
// Name-before-type is asymmetric when both a name and a type binding exist
// for logically different purposes; it is preserved here as the documented
// contract.
func (r *Resolver) resolveParam(ctx context.Context, param paramSpec, frame []ServiceKey) (reflect.Value, error) {
	if param.name != "" {
		namedKey := Named(param.name)
		if r.registry.Has(namedKey) {
			value, err := r.resolve(ctx, namedKey, frame)
			if err != nil {
				return reflect.Value{}, err
			}

			return coerce(value, param.typ, namedKey)
		}
	}

	typeKey := keyForType(param.typ)
	if r.registry.Has(typeKey) {
		value, err := r.resolve(ctx, typeKey, frame)
		if err != nil {
			return reflect.Value{}, err
		}

		return coerce(value, param.typ, typeKey)
	}

	if param.optional {
		return reflect.Zero(param.typ), nil
	}

	return reflect.Value{}, NewError(
		CodeNotFound,
		fmt.Sprintf("no binding satisfies parameter %d (%s)", param.index, param.typ),
		nil,
	).WithKey(typeKey).WithContext("parameter", param.name)
}

// coerce converts a resolved value into an argument of the wanted type.
func coerce(value any, want reflect.Type, key ServiceKey) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(want), nil
	}

	v := reflect.ValueOf(value)
	if !v.Type().AssignableTo(want) {
		return reflect.Value{}, NewTypeMismatchError(key, want.String(), value)
	}

	return v, nil
}

// DependencyGraph maps every registered key to the ordered keys it depends
// on. A parameter contributes its name key when a binding or factory exists
// under that name, otherwise its type key; optional parameters with no
// registration are omitted.
func (r *Resolver) DependencyGraph() map[ServiceKey][]ServiceKey {
	graph := make(map[ServiceKey][]ServiceKey)

	for _, key := range r.registry.Keys() {
		graph[key] = r.dependencyKeys(key)
	}

	return graph
}

func (r *Resolver) dependencyKeys(key ServiceKey) []ServiceKey {
	params := r.declaredParams(key)
	deps := make([]ServiceKey, 0, len(params))

	for _, param := range params {
		if param.name != "" && r.registry.Has(Named(param.name)) {
			deps = append(deps, Named(param.name))

			continue
		}

		typeKey := keyForType(param.typ)
		if param.optional && !r.registry.Has(typeKey) {
			continue
		}
		deps = append(deps, typeKey)
	}

	return deps
}

// declaredParams returns the resolvable parameters for key, honoring the
// factory-over-binding precedence the resolver itself uses.
func (r *Resolver) declaredParams(key ServiceKey) []paramSpec {
	if entry, ok := r.registry.factory(key); ok {
		return entry.info.params
	}

	binding, ok := r.registry.Binding(key)
	if !ok {
		return nil
	}

	if binding.ctor != nil {
		return binding.ctor.params
	}
	if binding.strct != nil {
		return binding.strct.fields
	}

	return nil
}

// ValidateDependencies checks that every non-optional declared dependency
// is registered and that the graph is acyclic, failing on the first
// inconsistency found.
func (r *Resolver) ValidateDependencies() error {
	graph := NewDependencyGraph()

	for _, key := range r.registry.Keys() {
		deps := r.dependencyKeys(key)
		for _, dep := range deps {
			if !r.registry.Has(dep) {
				return NewNotFoundError(dep).
					WithContext("required_by", key.String())
			}
		}
		graph.AddNode(key, deps)
	}

	_, err := graph.TopologicalSort()

	return err
}
