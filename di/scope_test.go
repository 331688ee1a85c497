package di

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterFactory returns a factory producing a distinct pointer per call
// and the counter tracking how often it ran.
func counterFactory() (Factory, *atomic.Int64) {
	var calls atomic.Int64
	return func() any {
		calls.Add(1)
		return new(int)
	}, &calls
}

//
// -----------------------------------------------------------------------------
// TransientScope
// -----------------------------------------------------------------------------

// TestTransientScope_NeverCaches verifies every resolution invokes the factory.
func TestTransientScope_NeverCaches(t *testing.T) {
	t.Parallel()

	factory, calls := counterFactory()
	s := TransientScope{}

	a := s.GetOrCreate("k", factory)
	b := s.GetOrCreate("k", factory)

	assert.EqualValues(t, 2, calls.Load())
	assert.NotSame(t, a, b)
}

// TestTransientScope_SetIsNoOp verifies a forced instance has no lasting effect.
func TestTransientScope_SetIsNoOp(t *testing.T) {
	t.Parallel()

	s := TransientScope{}
	forced := new(int)
	s.Set("k", forced)

	factory, _ := counterFactory()
	got := s.GetOrCreate("k", factory)
	assert.NotSame(t, forced, got)
}

//
// -----------------------------------------------------------------------------
// SingletonScope
// -----------------------------------------------------------------------------

// TestSingletonScope_FirstResolutionWins verifies one instance per key for the
// scope's lifetime.
func TestSingletonScope_FirstResolutionWins(t *testing.T) {
	t.Parallel()

	factory, calls := counterFactory()
	s := NewSingletonScope()

	a := s.GetOrCreate("k", factory)
	b := s.GetOrCreate("k", factory)

	assert.EqualValues(t, 1, calls.Load())
	assert.Same(t, a, b)

	// Distinct keys cache independently.
	c := s.GetOrCreate("other", factory)
	assert.NotSame(t, a, c)
}

// TestSingletonScope_ConcurrentFirstAccess verifies a concurrent first
// resolution race never creates two cached instances.
func TestSingletonScope_ConcurrentFirstAccess(t *testing.T) {
	t.Parallel()

	factory, calls := counterFactory()
	s := NewSingletonScope()

	const n = 32
	results := make([]any, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = s.GetOrCreate("k", factory)
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, calls.Load())
	for i := 1; i < n; i++ {
		assert.Same(t, results[0], results[i])
	}
}

// TestSingletonScope_NestedResolutionOfOtherKey verifies a factory may
// resolve a different key in the same scope without deadlocking.
func TestSingletonScope_NestedResolutionOfOtherKey(t *testing.T) {
	t.Parallel()

	s := NewSingletonScope()
	inner := new(int)

	got := s.GetOrCreate("outer", func() any {
		return s.GetOrCreate("inner", func() any { return inner })
	})
	assert.Same(t, inner, got)
	assert.Same(t, inner, s.GetOrCreate("inner", func() any { t.Fatal("factory re-ran"); return nil }))
}

// TestSingletonScope_SetAndReset verifies forced instances and cache resets.
func TestSingletonScope_SetAndReset(t *testing.T) {
	t.Parallel()

	s := NewSingletonScope()
	forced := new(int)
	s.Set("k", forced)

	factory, calls := counterFactory()
	assert.Same(t, forced, s.GetOrCreate("k", factory))
	assert.EqualValues(t, 0, calls.Load())

	s.Reset()
	fresh := s.GetOrCreate("k", factory)
	assert.EqualValues(t, 1, calls.Load())
	assert.NotSame(t, forced, fresh)
}

//
// -----------------------------------------------------------------------------
// GoroutineScope
// -----------------------------------------------------------------------------

// TestGoroutineScope_SameGoroutineCaches verifies repeat resolutions from one
// goroutine share an instance.
func TestGoroutineScope_SameGoroutineCaches(t *testing.T) {
	t.Parallel()

	factory, calls := counterFactory()
	s := NewGoroutineScope()

	a := s.GetOrCreate("k", factory)
	b := s.GetOrCreate("k", factory)

	assert.EqualValues(t, 1, calls.Load())
	assert.Same(t, a, b)
}

// TestGoroutineScope_Isolation verifies goroutines never see each other's
// cached instances.
func TestGoroutineScope_Isolation(t *testing.T) {
	t.Parallel()

	factory, _ := counterFactory()
	s := NewGoroutineScope()

	mine := s.GetOrCreate("k", factory)

	done := make(chan any, 1)
	go func() {
		done <- s.GetOrCreate("k", factory)
	}()
	theirs := <-done

	assert.NotSame(t, mine, theirs)
	// And our own cache is still intact.
	assert.Same(t, mine, s.GetOrCreate("k", factory))
}

// TestGoroutineScope_Forget verifies Forget drops only the calling
// goroutine's cache.
func TestGoroutineScope_Forget(t *testing.T) {
	t.Parallel()

	factory, calls := counterFactory()
	s := NewGoroutineScope()

	a := s.GetOrCreate("k", factory)
	s.Forget()
	b := s.GetOrCreate("k", factory)

	assert.EqualValues(t, 2, calls.Load())
	assert.NotSame(t, a, b)
}

// TestGoroutineScope_NestedResolution verifies a factory resolving another
// key through the same scope on the same goroutine does not deadlock.
func TestGoroutineScope_NestedResolution(t *testing.T) {
	t.Parallel()

	s := NewGoroutineScope()
	inner := new(int)

	got := s.GetOrCreate("outer", func() any {
		return s.GetOrCreate("inner", func() any { return inner })
	})
	assert.Same(t, inner, got)
}

//
// -----------------------------------------------------------------------------
// ProcessScope
// -----------------------------------------------------------------------------

// TestProcessScope_CachesWithinProcess verifies singleton behavior while the
// pid is stable.
func TestProcessScope_CachesWithinProcess(t *testing.T) {
	t.Parallel()

	factory, calls := counterFactory()
	s := NewProcessScope()

	a := s.GetOrCreate("k", factory)
	b := s.GetOrCreate("k", factory)

	assert.EqualValues(t, 1, calls.Load())
	assert.Same(t, a, b)
}

// TestProcessScope_ResetOnPidChange verifies a changed process identity
// discards the cache and forces a fresh factory call, as after a fork.
func TestProcessScope_ResetOnPidChange(t *testing.T) {
	t.Parallel()

	factory, calls := counterFactory()
	s := NewProcessScope()
	pid := 1000
	s.getpid = func() int { return pid }

	a := s.GetOrCreate("k", factory)
	pid = 1001 // simulate fork
	b := s.GetOrCreate("k", factory)

	assert.EqualValues(t, 2, calls.Load())
	assert.NotSame(t, a, b)

	// The new epoch caches normally.
	assert.Same(t, b, s.GetOrCreate("k", factory))
	assert.EqualValues(t, 2, calls.Load())
}

// TestProcessScope_SetJoinsCurrentEpoch verifies a forced instance lands in
// the live pid's cache, not a stale one.
func TestProcessScope_SetJoinsCurrentEpoch(t *testing.T) {
	t.Parallel()

	s := NewProcessScope()
	pid := 2000
	s.getpid = func() int { return pid }

	stale := s.GetOrCreate("k", func() any { return new(int) })

	pid = 2001
	forced := new(int)
	s.Set("k", forced)

	got := s.GetOrCreate("k", func() any { return new(int) })
	assert.Same(t, forced, got)
	assert.NotSame(t, stale, got)
}

//
// -----------------------------------------------------------------------------
// CacheScope / NamespaceScope
// -----------------------------------------------------------------------------

// TestCacheScope_UsesStoreVerbatim verifies the externally supplied store
// backs the cache directly.
func TestCacheScope_UsesStoreVerbatim(t *testing.T) {
	t.Parallel()

	store := MapCache{}
	s := NewCacheScope(store)

	factory, calls := counterFactory()
	a := s.GetOrCreate("k", factory)

	require.True(t, store.Contains("k"))
	assert.Same(t, a, store.Get("k"))

	// Seeding the store directly is visible to the scope.
	seeded := new(int)
	store.Set("pre", seeded)
	assert.Same(t, seeded, s.GetOrCreate("pre", factory))
	assert.EqualValues(t, 1, calls.Load())
}

// TestNamespaceScope_IsolatesSharedBacking verifies two namespaces over one
// backing scope do not collide on the same key.
func TestNamespaceScope_IsolatesSharedBacking(t *testing.T) {
	t.Parallel()

	backing := NewSingletonScope()
	blue := NewNamespaceScope("blue", backing)
	green := NewNamespaceScope("green", backing)

	factory, calls := counterFactory()
	a := blue.GetOrCreate("k", factory)
	b := green.GetOrCreate("k", factory)

	assert.EqualValues(t, 2, calls.Load())
	assert.NotSame(t, a, b)
	assert.Same(t, a, blue.GetOrCreate("k", factory))
	assert.Equal(t, "blue", blue.Namespace())
}

//
// -----------------------------------------------------------------------------
// Scope alias resolution
// -----------------------------------------------------------------------------

// TestResolveScope_Names verifies each recognized name yields the matching
// scope kind, and nil defaults to transient.
func TestResolveScope_Names(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		arg   any
		wantT any
	}{
		{name: "none", arg: ScopeNone, wantT: TransientScope{}},
		{name: "nil defaults to none", arg: nil, wantT: TransientScope{}},
		{name: "global", arg: ScopeGlobal, wantT: &SingletonScope{}},
		{name: "singleton alias", arg: ScopeSingleton, wantT: &SingletonScope{}},
		{name: "thread", arg: ScopeThread, wantT: &GoroutineScope{}},
		{name: "goroutine alias", arg: ScopeGoroutine, wantT: &GoroutineScope{}},
		{name: "process", arg: ScopeProcess, wantT: &ProcessScope{}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := resolveScope(tc.arg)
			require.NoError(t, err)
			assert.IsType(t, tc.wantT, got)
		})
	}
}

// TestResolveScope_InstanceAndFactory verifies instances pass through
// untouched and factories are invoked.
func TestResolveScope_InstanceAndFactory(t *testing.T) {
	t.Parallel()

	inst := NewSingletonScope()
	got, err := resolveScope(inst)
	require.NoError(t, err)
	assert.Same(t, inst, got)

	got, err = resolveScope(func() Scope { return inst })
	require.NoError(t, err)
	assert.Same(t, inst, got)
}

// TestResolveScope_Invalid verifies unrecognized names and objects fail with
// InvalidScopeError.
func TestResolveScope_Invalid(t *testing.T) {
	t.Parallel()

	for _, arg := range []any{"galaxy", 42, struct{}{}, func() Scope { return nil }} {
		_, err := resolveScope(arg)
		var invalid InvalidScopeError
		require.ErrorAs(t, err, &invalid, "arg %v", arg)
	}
}

// TestResolveScope_FreshInstancePerName verifies a name mints a private
// scope per resolution, so two providers registered by name do not share a
// cache by accident.
func TestResolveScope_FreshInstancePerName(t *testing.T) {
	t.Parallel()

	a, err := resolveScope(ScopeGlobal)
	require.NoError(t, err)
	b, err := resolveScope(ScopeGlobal)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}
