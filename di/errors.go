package di

import (
	"errors"
	"reflect"
	"strings"
)

// typeName renders a value's dynamic type for error messages.
func typeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}

var (
	// ErrNilFactory is returned when a provider is registered with a nil
	// factory, or resolved before SetInstance gave it something to return.
	ErrNilFactory = errors.New("di: nil provider factory")

	// ErrNotInjectable is returned when an injector is asked to wrap a
	// target that is neither a function nor a pointer to a struct.
	ErrNotInjectable = errors.New("di: target is not injectable")

	// ErrNilContainer is returned when an operation is invoked on a nil
	// container.
	ErrNilContainer = errors.New("di: nil container")
)

// ProviderNotFoundError is returned when resolving a key that has no
// registered provider.
//
// Injection wrappers surface this at call time, at the point of the failed
// resolve; wrap time never touches the registry.
type ProviderNotFoundError struct{ Key Key }

// Error implements the error interface.
func (e ProviderNotFoundError) Error() string {
	// Example: di: no provider for key "db"
	return "di: no provider for key " + keyString(e.Key)
}

// DuplicateProviderError is returned when registering a key that already
// has a provider, without an explicit overwrite request.
type DuplicateProviderError struct{ Key Key }

// Error implements the error interface.
func (e DuplicateProviderError) Error() string {
	// Example: di: provider already registered for key "db"
	return "di: provider already registered for key " + keyString(e.Key)
}

// InvalidScopeError is returned when a scope argument is neither a Scope
// instance, a recognized scope name, nor a scope factory.
type InvalidScopeError struct{ Scope any }

// Error implements the error interface.
func (e InvalidScopeError) Error() string {
	return "di: unknown scope " + keyString(e.Scope)
}

// UnresolvableError is returned when resolving a key whose declared
// dependencies (see Di.DependsOn) are not all registered.
type UnresolvableError struct {
	Key     Key
	Missing []Key
}

// Error implements the error interface.
func (e UnresolvableError) Error() string {
	names := make([]string, len(e.Missing))
	for i, k := range e.Missing {
		names[i] = keyString(k)
	}
	return "di: missing dependencies for " + keyString(e.Key) + ": " + strings.Join(names, ", ")
}

// WrongTypeError is returned by TryResolveAs when a key resolves but the
// instance is not of the requested type.
type WrongTypeError struct {
	// Key is the key that was resolved.
	Key Key

	// GotType is the dynamic type of the resolved instance.
	GotType string
}

// Error implements the error interface.
func (e WrongTypeError) Error() string {
	// Example: di: instance for key "db" has wrong type (*mypkg.Logger)
	return "di: instance for key " + keyString(e.Key) + " has wrong type (" + e.GotType + ")"
}

// BindError is returned at wrap time when an injection spec cannot be bound
// to the target's shape: more positional keys than parameters, a named
// binding that matches no exported struct field, or a rename that points at
// nothing.
type BindError struct {
	Target string
	Detail string
}

// Error implements the error interface.
func (e BindError) Error() string {
	return "di: cannot bind injection spec to " + e.Target + ": " + e.Detail
}
