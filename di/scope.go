package di

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// Factory produces one instance. It takes no arguments; anything the
// instance needs is closed over or resolved from a container.
type Factory func() any

// Scope is a caching policy for provided instances.
//
// GetOrCreate returns the cached instance for key, or invokes factory,
// caches the result per the scope's sharing granularity, and returns it.
// For a given (scope, key) pair it returns the same instance across all
// calls that are cache-valid for that granularity.
//
// Set forces the cache to hold instance for key, as if factory had just
// produced it. Scopes that never cache ignore Set.
type Scope interface {
	GetOrCreate(key Key, factory Factory) any
	Set(key Key, instance any)
}

// Recognized scope names, accepted anywhere a Scope is expected.
const (
	ScopeNone      = "none"
	ScopeGlobal    = "global"
	ScopeSingleton = "singleton" // alias of ScopeGlobal
	ScopeThread    = "thread"
	ScopeGoroutine = "goroutine" // alias of ScopeThread
	ScopeProcess   = "process"
)

// resolveScope normalizes a scope argument: a Scope instance is used as-is,
// a recognized name yields a fresh scope of that kind, a func() Scope
// factory is invoked. nil defaults to a transient scope. Anything else is
// an InvalidScopeError.
func resolveScope(scope any) (Scope, error) {
	switch s := scope.(type) {
	case nil:
		return TransientScope{}, nil
	case Scope:
		return s, nil
	case func() Scope:
		if built := s(); built != nil {
			return built, nil
		}
		return nil, InvalidScopeError{Scope: scope}
	case string:
		switch s {
		case ScopeNone:
			return TransientScope{}, nil
		case ScopeGlobal, ScopeSingleton:
			return NewSingletonScope(), nil
		case ScopeThread, ScopeGoroutine:
			return NewGoroutineScope(), nil
		case ScopeProcess:
			return NewProcessScope(), nil
		}
		return nil, InvalidScopeError{Scope: scope}
	default:
		return nil, InvalidScopeError{Scope: scope}
	}
}

// entry is a cache slot whose value is produced at most once.
//
// The per-entry once keeps first resolutions of different keys from
// serializing against each other's factories, and lets a factory resolve
// other keys in the same scope without deadlocking.
type entry struct {
	once sync.Once
	val  any
}

func filledEntry(instance any) *entry {
	e := &entry{val: instance}
	e.once.Do(func() {})
	return e
}

// TransientScope never caches: every resolution invokes the factory.
// Set is a no-op, so forcing an instance on a transient provider has no
// lasting effect (the next resolution is fresh again).
type TransientScope struct{}

// GetOrCreate implements Scope.
func (TransientScope) GetOrCreate(_ Key, factory Factory) any { return factory() }

// Set implements Scope. It discards the instance.
func (TransientScope) Set(Key, any) {}

// SingletonScope caches one instance per key for the lifetime of the scope
// object, shared across all goroutines. The first resolution wins; a
// concurrent first resolution of the same key blocks until the winner's
// factory returns, so exactly one instance is ever created.
type SingletonScope struct {
	mu      sync.Mutex
	entries map[Key]*entry
}

// NewSingletonScope returns an empty singleton scope.
func NewSingletonScope() *SingletonScope {
	return &SingletonScope{entries: make(map[Key]*entry)}
}

// GetOrCreate implements Scope.
func (s *SingletonScope) GetOrCreate(key Key, factory Factory) any {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	s.mu.Unlock()

	// The factory runs outside the map lock; only same-key racers wait.
	e.once.Do(func() { e.val = factory() })
	return e.val
}

// Set implements Scope. The instance replaces whatever the key held.
func (s *SingletonScope) Set(key Key, instance any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = filledEntry(instance)
}

// Reset drops every cached instance, forcing fresh factory calls on the
// next resolutions.
func (s *SingletonScope) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[Key]*entry)
}

// GoroutineScope caches one instance per key per calling goroutine,
// created lazily on first resolution from that goroutine. Goroutines never
// see each other's instances. Registered under the names "thread" and
// "goroutine".
//
// Per-goroutine caches are dropped only when the scope itself is garbage;
// long-lived scopes resolved from many short-lived goroutines accumulate
// entries, which callers can trim with Forget.
type GoroutineScope struct {
	mu          sync.Mutex
	byGoroutine map[uint64]map[Key]any
}

// NewGoroutineScope returns an empty goroutine scope.
func NewGoroutineScope() *GoroutineScope {
	return &GoroutineScope{byGoroutine: make(map[uint64]map[Key]any)}
}

// GetOrCreate implements Scope.
func (s *GoroutineScope) GetOrCreate(key Key, factory Factory) any {
	id := goroutineID()

	s.mu.Lock()
	cache, ok := s.byGoroutine[id]
	if !ok {
		cache = make(map[Key]any)
		s.byGoroutine[id] = cache
	}
	v, hit := cache[key]
	s.mu.Unlock()
	if hit {
		return v
	}

	// Outside the lock: the factory may itself resolve through this scope
	// from the same goroutine.
	v = factory()

	s.mu.Lock()
	if cur, hit := cache[key]; hit {
		// A nested resolution populated the slot first; keep it.
		v = cur
	} else {
		cache[key] = v
	}
	s.mu.Unlock()
	return v
}

// Set implements Scope. The instance is cached for the calling goroutine
// only.
func (s *GoroutineScope) Set(key Key, instance any) {
	id := goroutineID()
	s.mu.Lock()
	defer s.mu.Unlock()
	cache, ok := s.byGoroutine[id]
	if !ok {
		cache = make(map[Key]any)
		s.byGoroutine[id] = cache
	}
	cache[key] = instance
}

// Forget drops the calling goroutine's cache. Useful before returning a
// pooled goroutine that should not leak instances into its next task.
func (s *GoroutineScope) Forget() {
	id := goroutineID()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byGoroutine, id)
}

// goroutineID extracts the current goroutine's id from the runtime stack
// header ("goroutine 123 [running]:"). The runtime exposes no cheaper
// identity.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	header := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	if i := strings.IndexByte(header, ' '); i > 0 {
		if id, err := strconv.ParseUint(header[:i], 10, 64); err == nil {
			return id
		}
	}
	return 0
}

// ProcessScope caches one instance per key per operating-system process.
//
// The cache is tagged with the pid that created it; when the live pid
// differs from the tag the cache is discarded and rebuilt cold, so a
// fork-style child that inherited copied memory still gets fresh
// instances.
type ProcessScope struct {
	mu      sync.Mutex
	pid     int
	entries map[Key]*entry

	// getpid is swapped in tests to simulate a fork.
	getpid func() int
}

// NewProcessScope returns an empty process scope tagged with the current
// pid.
func NewProcessScope() *ProcessScope {
	return &ProcessScope{
		pid:     os.Getpid(),
		entries: make(map[Key]*entry),
		getpid:  os.Getpid,
	}
}

// slot returns the entry for key in the current pid epoch, resetting the
// cache first if the process identity changed. The epoch check and the
// reset happen under one lock so no cache ever mixes instances from two
// pids.
func (s *ProcessScope) slot(key Key, fill any, filled bool) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if live := s.getpid(); live != s.pid {
		s.pid = live
		s.entries = make(map[Key]*entry)
	}
	if filled {
		e := filledEntry(fill)
		s.entries[key] = e
		return e
	}
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}

// GetOrCreate implements Scope.
func (s *ProcessScope) GetOrCreate(key Key, factory Factory) any {
	e := s.slot(key, nil, false)
	e.once.Do(func() { e.val = factory() })
	return e.val
}

// Set implements Scope.
func (s *ProcessScope) Set(key Key, instance any) {
	s.slot(key, instance, true)
}

// Cache is the minimal key-value store a custom scope needs.
//
// Implementations supplied to NewCacheScope are used verbatim as the
// backing cache; the scope adds only the get-or-create discipline.
type Cache interface {
	Contains(key Key) bool
	Get(key Key) any
	Set(key Key, value any)
}

// MapCache is a plain map-backed Cache, handy as a default custom store
// and for inspecting what a custom-scoped provider has cached.
type MapCache map[Key]any

// Contains implements Cache.
func (m MapCache) Contains(key Key) bool { _, ok := m[key]; return ok }

// Get implements Cache.
func (m MapCache) Get(key Key) any { return m[key] }

// Set implements Cache.
func (m MapCache) Set(key Key, value any) { m[key] = value }

// CacheScope adapts an externally supplied Cache into a Scope.
//
// The contains/get/set sequence is serialized with a mutex since nothing is
// known about the store's own guarantees. The factory runs outside the
// lock, so two goroutines racing a cold key may both invoke it; the first
// stored result wins.
type CacheScope struct {
	mu    sync.Mutex
	cache Cache
}

// NewCacheScope wraps cache in a Scope.
func NewCacheScope(cache Cache) *CacheScope {
	return &CacheScope{cache: cache}
}

// GetOrCreate implements Scope.
func (s *CacheScope) GetOrCreate(key Key, factory Factory) any {
	s.mu.Lock()
	if s.cache.Contains(key) {
		v := s.cache.Get(key)
		s.mu.Unlock()
		return v
	}
	s.mu.Unlock()

	v := factory()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache.Contains(key) {
		return s.cache.Get(key)
	}
	s.cache.Set(key, v)
	return v
}

// Set implements Scope.
func (s *CacheScope) Set(key Key, instance any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Set(key, instance)
}

// NamespaceScope proxies another scope, prefixing every key with a
// namespace so several providers can share one backing scope without
// colliding.
type NamespaceScope struct {
	namespace string
	inner     Scope
}

// NewNamespaceScope wraps inner, isolating its keys under namespace.
func NewNamespaceScope(namespace string, inner Scope) *NamespaceScope {
	return &NamespaceScope{namespace: namespace, inner: inner}
}

// Namespace returns the key prefix.
func (s *NamespaceScope) Namespace() string { return s.namespace }

func (s *NamespaceScope) transform(key Key) Key {
	return fmt.Sprintf("%s__%v", s.namespace, key)
}

// GetOrCreate implements Scope.
func (s *NamespaceScope) GetOrCreate(key Key, factory Factory) any {
	return s.inner.GetOrCreate(s.transform(key), factory)
}

// Set implements Scope.
func (s *NamespaceScope) Set(key Key, instance any) {
	s.inner.Set(s.transform(key), instance)
}
