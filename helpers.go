package crucible

import (
	"context"
	"fmt"
)

// Resolve resolves key with type safety.
func Resolve[T any](c Container, key ServiceKey) (T, error) {
	return ResolveCtx[T](context.Background(), c, key)
}

// ResolveCtx resolves key with type safety, using ctx for cancellation and
// active context scopes.
func ResolveCtx[T any](ctx context.Context, c Container, key ServiceKey) (T, error) {
	var zero T

	instance, err := c.GetCtx(ctx, key)
	if err != nil {
		return zero, err
	}

	if instance == nil {
		// Permitted nil binding resolves to the zero value.
		return zero, nil
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, NewTypeMismatchError(key, fmt.Sprintf("%T", zero), instance)
	}

	return typed, nil
}

// Must resolves key or panics - use only during startup.
func Must[T any](c Container, key ServiceKey) T {
	instance, err := Resolve[T](c, key)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s: %v", key, err))
	}

	return instance
}

// Get resolves the type key for T.
func Get[T any](c Container) (T, error) {
	return Resolve[T](c, KeyFor[T]())
}

// GetCtx resolves the type key for T using ctx.
func GetCtx[T any](ctx context.Context, c Container) (T, error) {
	return ResolveCtx[T](ctx, c, KeyFor[T]())
}

// MustGet resolves the type key for T or panics - use only during startup.
func MustGet[T any](c Container) T {
	return Must[T](c, KeyFor[T]())
}

// BindSingleton binds a constructor or struct type under the type key for T
// in the singleton scope.
func BindSingleton[T any](c Container, implementation any, opts ...BindOption) error {
	return c.Bind(KeyFor[T](), implementation, append(opts, Singleton())...)
}

// BindTransient binds a constructor or struct type under the type key for T
// in the transient scope.
func BindTransient[T any](c Container, implementation any, opts ...BindOption) error {
	return c.Bind(KeyFor[T](), implementation, append(opts, Transient())...)
}

// BindScoped binds a constructor or struct type under the type key for T in
// the named scope.
func BindScoped[T any](c Container, scopeName string, implementation any, opts ...BindOption) error {
	return c.Bind(KeyFor[T](), implementation, append(opts, InScope(scopeName))...)
}

// BindInstanceOf binds a pre-built instance under the type key for T.
func BindInstanceOf[T any](c Container, instance T, opts ...BindOption) error {
	return c.BindInstance(KeyFor[T](), instance, opts...)
}

// BindFactoryFor binds a factory under the type key for T.
func BindFactoryFor[T any](c Container, factory any, opts ...BindOption) error {
	return c.BindFactory(KeyFor[T](), factory, opts...)
}
