// Package di is a small dependency-injection container with pluggable
// caching scopes and lazy injection wrappers.
//
// The moving parts, leaves first:
//
//   - Scope: a caching policy mapping a provider key to a cached instance —
//     transient (never cache), singleton (one instance ever), goroutine
//     (one per calling goroutine), process (reset when the pid changes),
//     or any custom key-value store via NewCacheScope.
//   - Provider: a zero-argument factory bound to a key under a scope;
//     resolving it means get-or-create through that scope.
//   - Di: the container — a registry of providers plus the operations
//     built on it: Register, Resolve, SetInstance, Update, and the
//     injection entry points Inject, AutoInject, Invoke, and Attr.
//   - Catalog: a declarative, replayable list of provider definitions,
//     merged into a container with Update under an explicit overwrite
//     policy. A container is itself a valid merge source.
//
// Resolution is lazy everywhere: injection wrappers record keys at wrap
// time and resolve them at call time, so providers registered after a
// wrapper exists are still honored.
//
// What this package deliberately does not do: no static dependency-graph
// validation, no cycle detection (a provider resolving its own key recurses
// until the stack runs out — a caller error), and no lifecycle management
// of produced instances beyond the scope caches holding them.
//
// A minimal round trip:
//
//	c := di.New()
//	c.MustRegister("db", func() any { return openDB() }, "global")
//
//	var handle func(db *DB, userID string) error
//	w := c.Inject("db").MustWrap(handleUser) // handleUser(db *DB, userID string) error
//
//	var reduced func(userID string) error
//	_ = w.As(&reduced)
//	reduced("u-42") // resolves "db" now, not at wrap time
package di
