package crucible

import (
	"fmt"
	"reflect"
)

// ServiceKey uniquely identifies a binding in the registry. A key is either
// a type identity (created with KeyFor) or a string name (created with
// Named). Keys are comparable and usable as map keys.
type ServiceKey struct {
	typ  reflect.Type
	name string
}

// KeyFor creates a type-identity key for T.
//
// Example:
//
//	dbKey := crucible.KeyFor[*Database]()
func KeyFor[T any]() ServiceKey {
	return ServiceKey{typ: reflect.TypeOf((*T)(nil)).Elem()}
}

// Named creates a string-named key.
//
// Example:
//
//	urlKey := crucible.Named("database_url")
func Named(name string) ServiceKey {
	return ServiceKey{name: name}
}

// keyForType creates a type-identity key from a reflected type.
func keyForType(t reflect.Type) ServiceKey {
	return ServiceKey{typ: t}
}

// Type returns the reflected type for a type-identity key, or nil for a
// named key.
func (k ServiceKey) Type() reflect.Type {
	return k.typ
}

// Name returns the string name for a named key, or "" for a type key.
func (k ServiceKey) Name() string {
	return k.name
}

// IsZero reports whether the key identifies nothing.
func (k ServiceKey) IsZero() bool {
	return k.typ == nil && k.name == ""
}

// String returns a human-readable representation of the key.
func (k ServiceKey) String() string {
	switch {
	case k.typ != nil && k.name != "":
		return fmt.Sprintf("%s[name=%s]", k.typ, k.name)
	case k.typ != nil:
		return k.typ.String()
	case k.name != "":
		return fmt.Sprintf("%q", k.name)
	default:
		return "<zero key>"
	}
}

// TypeOf returns the reflected type of T, for registering a struct type as
// an implementation for another key.
//
// Example:
//
//	_ = c.Bind(crucible.KeyFor[Store](), crucible.TypeOf[*MemoryStore]())
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
