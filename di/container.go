package di

import "sync"

// Di is a dependency-injection container: a keyed registry of providers,
// each caching through its own scope, plus the injection wrappers built on
// top of resolution.
//
// All operations are synchronous on the caller's goroutine and safe for
// concurrent use. Circular provider dependencies are not detected; a
// factory that resolves its own key recurses until the stack runs out —
// that is a caller error, not a handled condition.
type Di struct {
	providers *providerRegistry

	depMu   sync.Mutex
	depends map[Key][]Key
}

// New returns an empty container.
func New() *Di {
	return &Di{
		providers: newProviderRegistry(),
		depends:   make(map[Key][]Key),
	}
}

//
// -----------------------------------------------------------------------------
// Registration
// -----------------------------------------------------------------------------

// Register binds factory to key under scope and returns the created
// provider.
//
// scope accepts a Scope instance, one of the recognized names ("none",
// "global"/"singleton", "thread"/"goroutine", "process"), a func() Scope
// factory, or nil for "none". A name always yields a fresh scope instance
// private to this provider; pass a Scope instance to share a cache between
// providers.
//
// Registering an already-registered key fails with DuplicateProviderError;
// overwriting happens only through Update with allowOverwrite, or
// SetInstance.
func (d *Di) Register(key Key, factory Factory, scope any) (*Provider, error) {
	return d.register(key, factory, scope, false)
}

// MustRegister is Register, panicking on error. Intended for wiring done at
// program start, where a registration failure is fatal anyway.
func (d *Di) MustRegister(key Key, factory Factory, scope any) *Provider {
	p, err := d.Register(key, factory, scope)
	if err != nil {
		panic(err)
	}
	return p
}

func (d *Di) register(key Key, factory Factory, scope any, overwrite bool) (*Provider, error) {
	if factory == nil {
		return nil, ErrNilFactory
	}
	resolved, err := resolveScope(scope)
	if err != nil {
		return nil, err
	}
	p := &Provider{key: key, factory: factory, scope: resolved}
	if err := d.providers.put(p, overwrite); err != nil {
		return nil, err
	}
	return p, nil
}

// SetInstance forces key to resolve to instance.
//
// If key has no provider, one is created whose factory always returns
// instance, under defaultScope (nil means "global"). If a provider already
// exists, its scope cache is forced to hold instance instead, as if the
// factory had just produced it; the provider's own scope and factory are
// untouched, so a transient provider ignores the forced instance.
func (d *Di) SetInstance(key Key, instance any, defaultScope any) error {
	if p, ok := d.providers.get(key); ok {
		p.setInstance(instance)
		return nil
	}
	if defaultScope == nil {
		defaultScope = ScopeGlobal
	}
	_, err := d.register(key, func() any { return instance }, defaultScope, false)
	return err
}

// Has reports whether key has a registered provider.
func (d *Di) Has(key Key) bool { return d.providers.has(key) }

// Provider returns the provider registered for key, if any.
func (d *Di) Provider(key Key) (*Provider, bool) { return d.providers.get(key) }

// Keys returns the registered keys in registration order.
func (d *Di) Keys() []Key { return d.providers.keys() }

// Len returns the number of registered providers.
func (d *Di) Len() int { return d.providers.len() }

//
// -----------------------------------------------------------------------------
// Resolution
// -----------------------------------------------------------------------------

// Resolve obtains the instance for key: registry lookup, then get-or-create
// through the provider's scope.
//
// It fails with ProviderNotFoundError for an unregistered key, and with
// UnresolvableError when dependencies declared via DependsOn are missing.
// A panic inside the factory propagates unchanged.
func (d *Di) Resolve(key Key) (any, error) {
	p, ok := d.providers.get(key)
	if !ok {
		return nil, ProviderNotFoundError{Key: key}
	}
	if missing := d.MissingDeps(key); len(missing) > 0 {
		return nil, UnresolvableError{Key: key, Missing: missing}
	}
	return p.Provide(), nil
}

// MustResolve is Resolve, panicking on error.
func (d *Di) MustResolve(key Key) any {
	v, err := d.Resolve(key)
	if err != nil {
		panic(err)
	}
	return v
}

// ResolveAll resolves several keys in order, failing on the first error.
func (d *Di) ResolveAll(keys ...Key) ([]any, error) {
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		v, err := d.Resolve(k)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ResolveAs resolves key typed as T. ok is false if resolution fails or the
// instance is not a T.
func ResolveAs[T any](d *Di, key Key) (T, bool) {
	var zero T
	v, err := d.Resolve(key)
	if err != nil {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// TryResolveAs resolves key typed as T, distinguishing resolution failure
// (the Resolve error, e.g. ProviderNotFoundError) from a type mismatch
// (WrongTypeError).
func TryResolveAs[T any](d *Di, key Key) (T, error) {
	var zero T
	v, err := d.Resolve(key)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, WrongTypeError{Key: key, GotType: typeName(v)}
	}
	return t, nil
}

// MustResolveAs resolves key typed as T or panics.
func MustResolveAs[T any](d *Di, key Key) T {
	t, err := TryResolveAs[T](d, key)
	if err != nil {
		panic(err)
	}
	return t
}

//
// -----------------------------------------------------------------------------
// Declared dependencies
// -----------------------------------------------------------------------------

// DependsOn declares that key requires deps to be registered before it can
// resolve. Resolve fails with UnresolvableError while any declared dep is
// missing. Purely declarative bookkeeping: nothing is resolved eagerly.
func (d *Di) DependsOn(key Key, deps ...Key) {
	d.depMu.Lock()
	defer d.depMu.Unlock()
	d.depends[key] = append(d.depends[key], deps...)
}

// Deps returns the dependencies declared for key.
func (d *Di) Deps(key Key) []Key {
	d.depMu.Lock()
	defer d.depMu.Unlock()
	out := make([]Key, len(d.depends[key]))
	copy(out, d.depends[key])
	return out
}

// MissingDeps returns the declared dependencies of key that have no
// provider yet.
func (d *Di) MissingDeps(key Key) []Key {
	var missing []Key
	for _, dep := range d.Deps(key) {
		if !d.providers.has(dep) {
			missing = append(missing, dep)
		}
	}
	return missing
}

//
// -----------------------------------------------------------------------------
// Merge
// -----------------------------------------------------------------------------

// Update merges a source's provider definitions into the container, in the
// source's declaration order.
//
// On a key collision without allowOverwrite, Update stops with
// DuplicateProviderError, leaving the colliding key's existing provider —
// and every definition already applied — in place. There is no rollback;
// callers needing atomicity merge into a scratch container first.
func (d *Di) Update(source Source, allowOverwrite bool) error {
	for _, def := range source.Definitions() {
		if _, err := d.register(def.Key, def.Factory, def.Scope, allowOverwrite); err != nil {
			return err
		}
	}
	return nil
}

// Definitions implements Source, exposing the container's own registry as
// an ordered definition sequence. Scope instances are shared, so merging a
// container into another shares its caches.
func (d *Di) Definitions() []Definition { return d.providers.definitions() }
