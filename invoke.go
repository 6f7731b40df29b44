package crucible

import (
	"context"
	"reflect"
	"strings"
)

// Arg describes one positional parameter of a function passed to Invoke.
// Each Arg corresponds to the parameter at the same position (after a
// leading context.Context, if any). Parameters beyond the supplied Args are
// resolved by type.
type Arg struct {
	name  string
	value any
	set   bool
}

// Param names a parameter for by-name resolution without supplying a
// value. A "?" suffix marks the parameter optional.
func Param(name string) Arg {
	return Arg{name: name}
}

// ParamValue supplies a concrete value for a named parameter; the value
// takes precedence over any binding.
func ParamValue(name string, value any) Arg {
	return Arg{name: name, value: value, set: true}
}

// Value supplies a concrete value for an unnamed parameter.
func Value(value any) Arg {
	return Arg{value: value, set: true}
}

// Invoke calls fn with dependency-resolved arguments. For each parameter:
// a caller-supplied value wins; otherwise the parameter's declared name
// (from Param) is tried as a string key, then its type. fn may accept a
// leading context.Context and may return (T), (T, error), (error), or
// nothing.
//
// Example:
//
//	report, err := c.Invoke(ctx, BuildReport,
//	    crucible.Param("report_title"),
//	    crucible.ParamValue("limit", 25),
//	)
func (c *containerImpl) Invoke(ctx context.Context, fn any, args ...Arg) (any, error) {
	info, err := analyzeConstructor(fn, nil)
	if err != nil {
		return nil, NewError(CodeBinding, err.Error(), nil)
	}

	if len(args) > len(info.params) {
		return nil, NewError(CodeBinding, "more arguments supplied than the function declares", nil)
	}

	values := make([]reflect.Value, len(info.params))

	for i, param := range info.params {
		if i < len(args) {
			arg := args[i]

			if name := arg.name; name != "" {
				param.optional = param.optional || strings.HasSuffix(name, "?")
				param.name = strings.TrimSuffix(name, "?")
			}

			if arg.set {
				value, err := coerce(arg.value, param.typ, Named(param.name))
				if err != nil {
					return nil, err
				}
				values[i] = value

				continue
			}
		}

		value, err := c.resolver.resolveParam(ctx, param, nil)
		if err != nil {
			return nil, err
		}
		values[i] = value
	}

	return info.call(ctx, values)
}
