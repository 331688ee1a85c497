package di

// Provider binds a factory to a key under a caching scope.
//
// Providers are created by Register (or replayed from a Catalog) and owned
// by the registry that created them; they are immutable except for
// replacement on an explicit overwrite.
type Provider struct {
	key     Key
	factory Factory
	scope   Scope
}

// Key returns the key the provider is registered under.
func (p *Provider) Key() Key { return p.key }

// Scope returns the provider's scope instance.
func (p *Provider) Scope() Scope { return p.scope }

// Provide resolves the provider: get-or-create through its scope.
//
// A provider created by SetInstance on an unregistered key has a factory
// that returns the forced instance; a provider whose factory is nil panics
// with ErrNilFactory when the scope misses.
func (p *Provider) Provide() any {
	return p.scope.GetOrCreate(p.key, func() any {
		if p.factory == nil {
			panic(ErrNilFactory)
		}
		return p.factory()
	})
}

// setInstance forces the scope cache to hold instance for this provider's
// key, as if the factory had just produced it. All future resolutions under
// a caching scope see instance until overwritten; under a transient scope
// this is a no-op.
func (p *Provider) setInstance(instance any) {
	p.scope.Set(p.key, instance)
}

// definition re-exports the provider as a replayable catalog definition.
// The scope instance is shared, so a merged container resolves into the
// same cache.
func (p *Provider) definition() Definition {
	return Definition{Key: p.key, Factory: p.factory, Scope: p.scope}
}
