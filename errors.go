package crucible

import (
	"fmt"
	"strings"
)

// =============================================================================
// ERROR CODES
// =============================================================================

const (
	// CodeNotFound indicates no binding or factory resolves a required key.
	CodeNotFound = "DEPENDENCY_NOT_FOUND"

	// CodeCircularDependency indicates a cycle in the constructor graph.
	CodeCircularDependency = "CIRCULAR_DEPENDENCY"

	// CodeBinding indicates a malformed or disallowed binding.
	CodeBinding = "BINDING_ERROR"

	// CodeAlreadyRegistered indicates a rebind attempted without permission.
	CodeAlreadyRegistered = "ALREADY_REGISTERED"

	// CodeScope indicates an unknown scope or a scope operation outside a
	// valid context.
	CodeScope = "SCOPE_ERROR"

	// CodeTypeMismatch indicates a type mismatch during typed resolution.
	CodeTypeMismatch = "TYPE_MISMATCH"
)

// =============================================================================
// ERROR TYPE
// =============================================================================

// Error is the error type produced by the container. Every error carries a
// code from the taxonomy above; errors.Is against the matching sentinel
// succeeds regardless of message or key.
type Error struct {
	Code    string
	Message string
	Key     ServiceKey
	cause   error
	context map[string]any
}

// NewError creates an error with the given code, message, and optional cause.
func NewError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same code, so sentinel comparisons work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && t.Code == e.Code
}

// WithKey attaches the service key the error relates to.
func (e *Error) WithKey(key ServiceKey) *Error {
	e.Key = key

	return e
}

// WithContext attaches a diagnostic key/value pair.
func (e *Error) WithContext(key string, value any) *Error {
	if e.context == nil {
		e.context = make(map[string]any)
	}
	e.context[key] = value

	return e
}

// Context returns the diagnostic value stored under key, if any.
func (e *Error) Context(key string) (any, bool) {
	value, ok := e.context[key]

	return value, ok
}

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

// ErrNotFound is the sentinel for dependency-not-found errors.
var ErrNotFound = NewError(CodeNotFound, "dependency not found", nil)

// ErrCircularDependency is the sentinel for circular dependency errors.
var ErrCircularDependency = NewError(CodeCircularDependency, "circular dependency", nil)

// ErrBinding is the sentinel for malformed or disallowed bindings.
var ErrBinding = NewError(CodeBinding, "invalid binding", nil)

// ErrAlreadyRegistered is the sentinel for rebind-without-permission errors.
var ErrAlreadyRegistered = NewError(CodeAlreadyRegistered, "already registered", nil)

// ErrScope is the sentinel for scope errors.
var ErrScope = NewError(CodeScope, "scope error", nil)

// ErrTypeMismatch is the sentinel for typed resolution mismatches.
var ErrTypeMismatch = NewError(CodeTypeMismatch, "type mismatch", nil)

// =============================================================================
// ERROR CONSTRUCTORS
// =============================================================================

// NewNotFoundError creates an error for an unresolvable key.
func NewNotFoundError(key ServiceKey) *Error {
	return NewError(
		CodeNotFound,
		fmt.Sprintf("no binding or factory registered for %s", key),
		nil,
	).WithKey(key)
}

// NewCircularDependencyError creates an error reporting the full resolution
// chain, ending at the key that closed the cycle.
func NewCircularDependencyError(chain []ServiceKey) *Error {
	parts := make([]string, len(chain))
	for i, key := range chain {
		parts[i] = key.String()
	}

	return NewError(
		CodeCircularDependency,
		fmt.Sprintf("circular dependency detected: %s", strings.Join(parts, " -> ")),
		nil,
	).WithContext("chain", chain)
}

// NewBindingError creates an error for a malformed or disallowed binding.
func NewBindingError(key ServiceKey, message string) *Error {
	return NewError(CodeBinding, message, nil).WithKey(key)
}

// NewAlreadyRegisteredError creates an error for a rebind attempted without
// override permission.
func NewAlreadyRegisteredError(key ServiceKey) *Error {
	return NewError(
		CodeAlreadyRegistered,
		fmt.Sprintf("binding already registered for %s (use AllowOverride to replace)", key),
		nil,
	).WithKey(key)
}

// NewScopeError creates an error for an unknown scope or an invalid scope
// operation.
func NewScopeError(scopeName, message string) *Error {
	return NewError(CodeScope, message, nil).WithContext("scope", scopeName)
}

// NewTypeMismatchError creates an error for a resolution that produced a
// value of the wrong type.
func NewTypeMismatchError(key ServiceKey, want string, got any) *Error {
	return NewError(
		CodeTypeMismatch,
		fmt.Sprintf("%s resolved to %T, want %s", key, got, want),
		nil,
	).WithKey(key)
}
