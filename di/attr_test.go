package di_test

import (
	"testing"

	"github.com/sghaida/mainline/di"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// registryView is a struct carrying a bound attribute, the way a service
// would embed one.
type registryView struct {
	DB di.Attr
}

// TestAttr_FollowsScope verifies an attribute adds no cache of its own: a
// transient key yields a fresh instance per access, a singleton key the
// shared one.
func TestAttr_FollowsScope(t *testing.T) {
	t.Parallel()

	c := di.New()
	c.MustRegister("fresh", func() any { return new(int) }, "none")
	c.MustRegister("shared", func() any { return new(int) }, "global")

	fresh := c.Attr("fresh")
	assert.NotSame(t, fresh.MustGet(), fresh.MustGet())

	shared := c.Attr("shared")
	assert.Same(t, shared.MustGet(), shared.MustGet())
}

// TestAttr_LazyBinding verifies an attribute created before its provider
// resolves fine on the first access after registration.
func TestAttr_LazyBinding(t *testing.T) {
	t.Parallel()

	c := di.New()
	view := registryView{DB: c.Attr("db")}

	_, err := view.DB.Get()
	var notFound di.ProviderNotFoundError
	require.ErrorAs(t, err, &notFound)

	inst := &fakeDB{dsn: "late"}
	c.MustRegister("db", func() any { return inst }, "global")

	got, err := view.DB.Get()
	require.NoError(t, err)
	assert.Same(t, inst, got)
	assert.Equal(t, "db", view.DB.Key())
}

// TestAttr_TypedAccess verifies AttrAs resolves with type checking.
func TestAttr_TypedAccess(t *testing.T) {
	t.Parallel()

	c := di.New()
	c.MustRegister("db", func() any { return &fakeDB{dsn: "x"} }, "global")

	got, err := di.AttrAs[*fakeDB](c.Attr("db"))
	require.NoError(t, err)
	assert.Equal(t, "x", got.dsn)

	_, err = di.AttrAs[*fakeLogger](c.Attr("db"))
	var wrong di.WrongTypeError
	require.ErrorAs(t, err, &wrong)
}

// TestAttr_ZeroValue verifies the zero Attr fails cleanly instead of
// dereferencing a nil container.
func TestAttr_ZeroValue(t *testing.T) {
	t.Parallel()

	var a di.Attr
	_, err := a.Get()
	require.ErrorIs(t, err, di.ErrNilContainer)

	_, err = di.AttrAs[int](a)
	require.ErrorIs(t, err, di.ErrNilContainer)
}
