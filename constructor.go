package crucible

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// paramSpec describes a single resolvable constructor parameter or struct
// field. Parameter names are explicit metadata (WithParams for functions,
// `inject` tags for struct fields): Go reflection carries types only.
type paramSpec struct {
	typ      reflect.Type
	name     string // name for by-name resolution, "" for type-only
	optional bool
	index    int // function parameter position or struct field index
}

// constructorInfo holds analyzed constructor metadata.
type constructorInfo struct {
	fn       reflect.Value
	fnType   reflect.Type
	params   []paramSpec
	wantsCtx bool // leading context.Context parameter
	hasValue bool // returns a non-error value
	hasError bool // last return value is error
}

// analyzeConstructor inspects a constructor or factory function and extracts
// its parameter and result shape. names assigns explicit names to parameters
// in positional order (see WithParams); a "?" suffix marks a parameter
// optional.
func analyzeConstructor(fn any, names []string) (*constructorInfo, error) {
	if fn == nil {
		return nil, errors.New("constructor must not be nil")
	}

	fnValue := reflect.ValueOf(fn)
	fnType := fnValue.Type()

	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %T", fn)
	}

	info := &constructorInfo{fn: fnValue, fnType: fnType}

	numIn := fnType.NumIn()
	if fnType.IsVariadic() {
		// A variadic collector is never resolved; the call passes no
		// variadic arguments.
		numIn--
	}

	for i := 0; i < numIn; i++ {
		paramType := fnType.In(i)

		if i == 0 && paramType == contextType {
			info.wantsCtx = true

			continue
		}

		info.params = append(info.params, paramSpec{typ: paramType, index: i})
	}

	if len(names) > len(info.params) {
		return nil, fmt.Errorf("%d parameter names given for %d resolvable parameters", len(names), len(info.params))
	}

	for i, name := range names {
		if optional := strings.HasSuffix(name, "?"); optional {
			info.params[i].optional = true
			name = strings.TrimSuffix(name, "?")
		}
		info.params[i].name = name
	}

	for i := 0; i < fnType.NumOut(); i++ {
		outType := fnType.Out(i)

		if outType == errorType {
			if i != fnType.NumOut()-1 {
				return nil, errors.New("error must be the last return value")
			}
			info.hasError = true

			continue
		}

		if info.hasValue {
			return nil, errors.New("constructor must return at most one non-error value")
		}
		info.hasValue = true
	}

	return info, nil
}

// call invokes the constructor with resolved arguments. args must match
// info.params positionally.
func (info *constructorInfo) call(ctx context.Context, args []reflect.Value) (any, error) {
	in := make([]reflect.Value, 0, len(args)+1)
	if info.wantsCtx {
		in = append(in, reflect.ValueOf(ctx))
	}
	in = append(in, args...)

	out := info.fn.Call(in)

	if info.hasError {
		if errValue := out[len(out)-1]; !errValue.IsNil() {
			return nil, errValue.Interface().(error)
		}
	}

	if !info.hasValue {
		// A factory returning no value is permitted; resolution yields nil.
		return nil, nil
	}

	return out[0].Interface(), nil
}

// structInfo holds analyzed metadata for a constructable struct type.
type structInfo struct {
	typ     reflect.Type // the registered type, possibly a pointer
	base    reflect.Type // the underlying struct type
	pointer bool
	fields  []paramSpec
}

// analyzeStruct inspects a struct (or pointer-to-struct) implementation
// type. Every exported field is an injectable dependency; an `inject` tag
// names it for by-name resolution, `inject:"-"` opts it out, and
// `optional:"true"` leaves it zero when unresolvable.
func analyzeStruct(t reflect.Type) (*structInfo, error) {
	info := &structInfo{typ: t, base: t}

	if t.Kind() == reflect.Ptr {
		info.pointer = true
		info.base = t.Elem()
	}

	if info.base.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type %s is not constructable", t)
	}

	for i := 0; i < info.base.NumField(); i++ {
		field := info.base.Field(i)

		if !field.IsExported() || field.Anonymous {
			continue
		}

		tag := field.Tag.Get("inject")
		if tag == "-" {
			continue
		}

		spec := paramSpec{typ: field.Type, name: tag, index: i}

		if strings.EqualFold(field.Tag.Get("optional"), "true") {
			spec.optional = true
		}

		info.fields = append(info.fields, spec)
	}

	return info, nil
}

// construct builds a new value of the struct type from resolved field
// values. args must match info.fields positionally.
func (info *structInfo) construct(args []reflect.Value) any {
	value := reflect.New(info.base)

	for i, spec := range info.fields {
		if !args[i].IsValid() {
			continue // optional field left at its zero value
		}
		value.Elem().Field(spec.index).Set(args[i])
	}

	if info.pointer {
		return value.Interface()
	}

	return value.Elem().Interface()
}

// isConstructable reports whether t can be built by the resolver: a struct
// or pointer-to-struct. Interface types declare behavior without an
// implementation and are rejected as their own binding.
func isConstructable(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return t.Kind() == reflect.Struct
}
