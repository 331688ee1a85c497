package di

// Attr is a read-only attribute bound to a container key — the Go shape of
// a class-level injected property. Embed one in a struct (or hand it out as
// a package-level value) and every Get re-resolves the key through the
// container.
//
// Attr keeps no cache of its own, so the value it observes follows the
// key's scope: a transient-scoped key yields a fresh instance per access,
// a singleton-scoped key the shared one.
type Attr struct {
	di  *Di
	key Key
}

// Attr binds key to this container as a re-resolving attribute.
func (d *Di) Attr(key Key) Attr {
	return Attr{di: d, key: key}
}

// Key returns the bound key.
func (a Attr) Key() Key { return a.key }

// Get resolves the bound key. It fails with ProviderNotFoundError while the
// key is unregistered; binding is lazy, so an Attr created before its
// provider works on the first access after registration.
func (a Attr) Get() (any, error) {
	if a.di == nil {
		return nil, ErrNilContainer
	}
	return a.di.Resolve(a.key)
}

// MustGet is Get, panicking on error.
func (a Attr) MustGet() any {
	v, err := a.Get()
	if err != nil {
		panic(err)
	}
	return v
}

// AttrAs resolves the bound attribute typed as T.
func AttrAs[T any](a Attr) (T, error) {
	var zero T
	if a.di == nil {
		return zero, ErrNilContainer
	}
	return TryResolveAs[T](a.di, a.key)
}
