// Package mainline is a scoped dependency-injection container for Go.
//
// It models wiring as three orthogonal pieces: a keyed registry of object
// factories (providers), a pluggable caching policy per provider (scope),
// and wrappers that rewrite a function's call contract so some parameters
// are supplied by resolving providers instead of by the caller — while the
// wrapper's visible signature stays the original minus the injected
// parameters.
//
// See subpackages:
//   - di: the container, scopes, catalogs, and injection wrappers
//   - examples/*: runnable wiring demos
//
// Import
//
//	"github.com/sghaida/mainline/di"
package mainline
