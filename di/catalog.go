package di

// Definition is one replayable provider definition: the (key, factory,
// scope) triple a catalog or container hands to Update.
//
// Scope carries anything resolveScope accepts: a Scope instance, a
// recognized name, a func() Scope factory, or nil for transient.
type Definition struct {
	Key     Key
	Factory Factory
	Scope   any
}

// Source is anything that can produce an ordered sequence of provider
// definitions. Catalogs implement it, and so does Di itself, which is what
// lets one container be merged into another.
type Source interface {
	Definitions() []Definition
}

// Catalog is a declarative, ordered collection of provider definitions.
//
// A catalog has no effect on any container until it is passed to Update;
// building one is side-effect free. Definitions replay in declaration
// order, base catalog first. Within a single catalog chain, a later
// definition for an already-declared key replaces the earlier one while
// keeping its original position (resolved once, when Definitions
// flattens — not at merge time).
type Catalog struct {
	base *Catalog
	defs []Definition
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog { return &Catalog{} }

// Derive returns a new empty catalog inheriting this one's definitions.
// The derived catalog's own definitions are appended after (and may
// override) the base's.
func (c *Catalog) Derive() *Catalog { return &Catalog{base: c} }

// Provide appends a definition and returns the catalog for chaining.
//
//	apples := di.NewCatalog().
//		Provide("apple", newApple, "global").
//		Provide("orchard", newOrchard, "none")
func (c *Catalog) Provide(key Key, factory Factory, scope any) *Catalog {
	c.defs = append(c.defs, Definition{Key: key, Factory: factory, Scope: scope})
	return c
}

// Instance appends a definition whose factory always returns instance.
func (c *Catalog) Instance(key Key, instance any, scope any) *Catalog {
	return c.Provide(key, func() any { return instance }, scope)
}

// Len returns the number of distinct keys the catalog defines, bases
// included.
func (c *Catalog) Len() int { return len(c.Definitions()) }

// Definitions implements Source: base-before-derived declaration order,
// with the last definition for a key winning in place.
func (c *Catalog) Definitions() []Definition {
	var raw []Definition
	if c.base != nil {
		raw = c.base.Definitions()
	}
	raw = append(raw, c.defs...)

	// Last write wins, first-declared position kept.
	index := make(map[Key]int, len(raw))
	out := raw[:0:0]
	for _, d := range raw {
		if i, seen := index[d.Key]; seen {
			out[i] = d
			continue
		}
		index[d.Key] = len(out)
		out = append(out, d)
	}
	return out
}
