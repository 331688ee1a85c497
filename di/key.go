package di

import (
	"fmt"
	"reflect"
	"strconv"
)

// Key identifies a provider in a container.
//
// Any comparable value works: strings, custom sentinel types, or
// reflect.Type tokens minted via TypeOf. Keys are opaque to the container;
// only identity and equality matter (the Go map key contract).
//
// String keys are the natural choice for named values ("db", "logger").
// Type tokens are what auto-injection matches function parameters against.
type Key = any

// TypeOf returns the Key under which values of type T are registered for
// type-based resolution and auto-injection.
//
// Example:
//
//	c.Register(di.TypeOf[*sql.DB](), openDB, "global")
func TypeOf[T any]() Key {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// keyString renders a key for error messages.
//
// Strings are quoted, type tokens and Stringers use their own rendering,
// anything else falls back to fmt.
func keyString(key Key) string {
	switch k := key.(type) {
	case string:
		return strconv.Quote(k)
	case reflect.Type:
		return k.String()
	case fmt.Stringer:
		return k.String()
	default:
		return fmt.Sprintf("%v", k)
	}
}
