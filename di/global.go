package di

// Default is the package-level container, for programs that want wiring
// without threading a *Di through every call site. Libraries should prefer
// an explicit container.
var Default = New()

// Register binds factory to key on the Default container.
func Register(key Key, factory Factory, scope any) (*Provider, error) {
	return Default.Register(key, factory, scope)
}

// Resolve resolves key from the Default container.
func Resolve(key Key) (any, error) { return Default.Resolve(key) }

// SetInstance forces key to resolve to instance on the Default container.
func SetInstance(key Key, instance any, defaultScope any) error {
	return Default.SetInstance(key, instance, defaultScope)
}

// Update merges source into the Default container.
func Update(source Source, allowOverwrite bool) error {
	return Default.Update(source, allowOverwrite)
}

// Inject starts an explicit injection spec on the Default container.
func Inject(positional ...Key) *Injector { return Default.Inject(positional...) }

// AutoInject starts an auto-injection spec on the Default container.
func AutoInject() *AutoInjector { return Default.AutoInject() }
