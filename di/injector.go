package di

import (
	"reflect"
	"strconv"
)

// Injector builds explicit injection wrappers.
//
// The spec — an ordered list of positional keys plus name→key bindings — is
// frozen when Wrap runs; resolution of the keys happens at call time, never
// at wrap time, so providers registered after the wrapper exists are still
// honored.
type Injector struct {
	di         *Di
	positional []Key
	named      map[string]Key
	nameOrder  []string
}

// Inject starts an explicit injection spec. Each positional key supplies
// one leading parameter of the wrapped target, in order.
//
//	wrapped, err := c.Inject(di.TypeOf[*DB]()).Wrap(handleUser)
func (d *Di) Inject(positional ...Key) *Injector {
	return &Injector{di: d, positional: positional, named: make(map[string]Key)}
}

// Named binds a parameter name to a provider key.
//
// Go reflection exposes parameter types, not names, so named bindings
// attach to exported fields of the target's struct parameters (or, for a
// struct target, to its fields directly). At call time a zero field is
// filled by resolving the key; a caller-supplied non-zero field always wins
// and its key is not resolved at all. A pointer-to-struct parameter is
// filled in place; a nil pointer is replaced with a freshly allocated,
// injected struct.
func (in *Injector) Named(name string, key Key) *Injector {
	if _, seen := in.named[name]; !seen {
		in.nameOrder = append(in.nameOrder, name)
	}
	in.named[name] = key
	return in
}

// Wrap builds the injection wrapper around target.
//
// target is either a function or a pointer to a struct (the Go analogue of
// injecting a class initializer: the wrapper becomes a constructor for that
// struct, and the produced object is an ordinary instance, not a proxy).
//
// The spec is validated structurally here — too many positional keys or a
// named binding with no matching field fail with BindError — but no key is
// resolved until the wrapper is invoked.
func (in *Injector) Wrap(target any) (*Injected, error) {
	if target == nil {
		return nil, ErrNotInjectable
	}
	t := reflect.TypeOf(target)
	switch {
	case t.Kind() == reflect.Func:
		return in.wrapFunc(reflect.ValueOf(target))
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		return in.wrapStruct(t.Elem())
	default:
		return nil, ErrNotInjectable
	}
}

// MustWrap is Wrap, panicking on error.
func (in *Injector) MustWrap(target any) *Injected {
	w, err := in.Wrap(target)
	if err != nil {
		panic(err)
	}
	return w
}

// namedSlot is one resolved name→key binding: which remaining parameter,
// which field inside it.
type namedSlot struct {
	key   Key
	param int // index into the target's parameters
	field int // field index within the struct parameter
	ptr   bool
}

func (in *Injector) wrapFunc(fn reflect.Value) (*Injected, error) {
	t := fn.Type()
	tname := t.String()

	fixed := t.NumIn()
	if t.IsVariadic() {
		fixed--
	}
	nPos := len(in.positional)
	if nPos > fixed {
		return nil, BindError{
			Target: tname,
			Detail: "only " + strconv.Itoa(fixed) + " non-variadic parameters for " + strconv.Itoa(nPos) + " positional keys",
		}
	}

	// Bind each name to a field of a remaining struct parameter.
	slots := make([]namedSlot, 0, len(in.nameOrder))
	for _, name := range in.nameOrder {
		slot, ok := findNamedSlot(t, nPos, name, in.named[name])
		if !ok {
			return nil, BindError{
				Target: tname,
				Detail: "no struct parameter has an exported field " + strconv.Quote(name),
			}
		}
		slots = append(slots, slot)
	}

	// Visible signature: the target's, minus the injected prefix.
	ins := make([]reflect.Type, 0, t.NumIn()-nPos)
	for i := nPos; i < t.NumIn(); i++ {
		ins = append(ins, t.In(i))
	}
	outs := make([]reflect.Type, t.NumOut())
	for i := range outs {
		outs[i] = t.Out(i)
	}
	reduced := reflect.FuncOf(ins, outs, t.IsVariadic())

	d := in.di
	positional := append([]Key(nil), in.positional...)

	invoke := func(args []reflect.Value) ([]reflect.Value, error) {
		full := make([]reflect.Value, 0, t.NumIn())
		for i, k := range positional {
			v, err := resolveInto(d, k, t.In(i))
			if err != nil {
				return nil, err
			}
			full = append(full, v)
		}
		full = append(full, args...)

		for _, slot := range slots {
			v, err := fillNamed(d, full[slot.param], slot)
			if err != nil {
				return nil, err
			}
			full[slot.param] = v
		}

		if t.IsVariadic() {
			return fn.CallSlice(full), nil
		}
		return fn.Call(full), nil
	}

	return &Injected{di: d, reduced: reduced, invoke: invoke}, nil
}

func (in *Injector) wrapStruct(st reflect.Type) (*Injected, error) {
	tname := "*" + st.String()

	exported := exportedFields(st)
	if len(in.positional) > len(exported) {
		return nil, BindError{
			Target: tname,
			Detail: "only " + strconv.Itoa(len(exported)) + " exported fields for " + strconv.Itoa(len(in.positional)) + " positional keys",
		}
	}

	posFields := exported[:len(in.positional)]
	claimed := make(map[int]bool, len(posFields))
	for _, i := range posFields {
		claimed[i] = true
	}

	type namedField struct {
		key   Key
		field int
	}
	namedFields := make([]namedField, 0, len(in.nameOrder))
	for _, name := range in.nameOrder {
		f, ok := st.FieldByName(name)
		if !ok || f.PkgPath != "" || len(f.Index) != 1 {
			return nil, BindError{Target: tname, Detail: "no exported field " + strconv.Quote(name)}
		}
		if claimed[f.Index[0]] {
			return nil, BindError{Target: tname, Detail: "field " + strconv.Quote(name) + " already injected positionally"}
		}
		claimed[f.Index[0]] = true
		namedFields = append(namedFields, namedField{key: in.named[name], field: f.Index[0]})
	}

	var callerFields []int
	for _, i := range exported[len(in.positional):] {
		if !claimed[i] {
			callerFields = append(callerFields, i)
		}
	}

	ins := make([]reflect.Type, len(callerFields))
	for i, fi := range callerFields {
		ins[i] = st.Field(fi).Type
	}
	reduced := reflect.FuncOf(ins, []reflect.Type{reflect.PointerTo(st)}, false)

	d := in.di
	positional := append([]Key(nil), in.positional...)

	invoke := func(args []reflect.Value) ([]reflect.Value, error) {
		ptr := reflect.New(st)
		elem := ptr.Elem()
		for i, k := range positional {
			v, err := resolveInto(d, k, st.Field(posFields[i]).Type)
			if err != nil {
				return nil, err
			}
			elem.Field(posFields[i]).Set(v)
		}
		for _, nf := range namedFields {
			v, err := resolveInto(d, nf.key, st.Field(nf.field).Type)
			if err != nil {
				return nil, err
			}
			elem.Field(nf.field).Set(v)
		}
		for i, fi := range callerFields {
			if i < len(args) && args[i].IsValid() {
				elem.Field(fi).Set(args[i])
			}
		}
		return []reflect.Value{ptr}, nil
	}

	return &Injected{di: d, reduced: reduced, invoke: invoke}, nil
}

// findNamedSlot locates name as an exported field of the first remaining
// struct (or pointer-to-struct) parameter that carries it.
func findNamedSlot(t reflect.Type, from int, name string, key Key) (namedSlot, bool) {
	for p := from; p < t.NumIn(); p++ {
		pt := t.In(p)
		ptr := pt.Kind() == reflect.Pointer
		if ptr {
			pt = pt.Elem()
		}
		if pt.Kind() != reflect.Struct {
			continue
		}
		f, ok := pt.FieldByName(name)
		if !ok || f.PkgPath != "" || len(f.Index) != 1 {
			continue
		}
		return namedSlot{key: key, param: p, field: f.Index[0], ptr: ptr}, true
	}
	return namedSlot{}, false
}

// fillNamed applies one named binding to the caller's argument value,
// resolving the key only when the target field was left zero.
func fillNamed(d *Di, arg reflect.Value, slot namedSlot) (reflect.Value, error) {
	if slot.ptr {
		if arg.IsNil() {
			arg = reflect.New(arg.Type().Elem())
		}
		field := arg.Elem().Field(slot.field)
		if !field.IsZero() {
			return arg, nil
		}
		v, err := resolveInto(d, slot.key, field.Type())
		if err != nil {
			return reflect.Value{}, err
		}
		field.Set(v)
		return arg, nil
	}

	if !arg.Field(slot.field).IsZero() {
		return arg, nil
	}
	// Arguments handed to a wrapper are not addressable; work on a copy.
	tmp := reflect.New(arg.Type()).Elem()
	tmp.Set(arg)
	v, err := resolveInto(d, slot.key, tmp.Field(slot.field).Type())
	if err != nil {
		return reflect.Value{}, err
	}
	tmp.Field(slot.field).Set(v)
	return tmp, nil
}

// resolveInto resolves key and coerces the instance to t.
func resolveInto(d *Di, key Key, t reflect.Type) (reflect.Value, error) {
	v, err := d.Resolve(key)
	if err != nil {
		return reflect.Value{}, err
	}
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, WrongTypeError{Key: key, GotType: rv.Type().String()}
	}
	return rv, nil
}

// exportedFields returns the indices of st's exported fields in declaration
// order.
func exportedFields(st reflect.Type) []int {
	var out []int
	for i := 0; i < st.NumField(); i++ {
		if st.Field(i).PkgPath == "" {
			out = append(out, i)
		}
	}
	return out
}

// Injected is an injection wrapper around a target callable or struct
// constructor. Each invocation resolves the spec's keys through the owning
// container, supplies them, and forwards the caller's own arguments; the
// target's result comes back unmodified.
//
// Wrappers nest like ordinary function composition: wrapping a wrapper's
// Func() resolves each layer's keys at that layer's call time, innermost
// first.
type Injected struct {
	di      *Di
	reduced reflect.Type
	loose   bool
	invoke  func(args []reflect.Value) ([]reflect.Value, error)
}

// Signature returns the wrapper's visible signature: the target's, with
// injected positional parameters removed. Auto-injection wrappers, whose
// effective parameter list can change between calls, report a variadic
// func(...any) signature instead.
func (w *Injected) Signature() reflect.Type { return w.reduced }

// Call invokes the wrapper with loosely typed arguments, returning the
// target's results. Resolution failures surface as the resolve error
// (e.g. ProviderNotFoundError); argument arity or type mismatches surface
// as BindError.
func (w *Injected) Call(args ...any) ([]any, error) {
	vals, err := w.callValues(args)
	if err != nil {
		return nil, err
	}
	rets, err := w.invoke(vals)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(rets))
	for i, r := range rets {
		out[i] = r.Interface()
	}
	return out, nil
}

// MustCall is Call, panicking on error.
func (w *Injected) MustCall(args ...any) []any {
	out, err := w.Call(args...)
	if err != nil {
		panic(err)
	}
	return out
}

// callValues shapes loose arguments into the formal parameter list invoke
// expects.
func (w *Injected) callValues(args []any) ([]reflect.Value, error) {
	if w.loose {
		vals := make([]reflect.Value, len(args))
		for i, a := range args {
			vals[i] = reflect.ValueOf(a)
		}
		return vals, nil
	}

	fixed := w.reduced.NumIn()
	variadic := w.reduced.IsVariadic()
	if variadic {
		fixed--
	}
	if len(args) < fixed || (!variadic && len(args) != fixed) {
		return nil, BindError{
			Target: w.reduced.String(),
			Detail: "got " + strconv.Itoa(len(args)) + " arguments for " + strconv.Itoa(fixed) + " parameters",
		}
	}

	vals := make([]reflect.Value, 0, w.reduced.NumIn())
	for i := 0; i < fixed; i++ {
		v, err := coerceArg(args[i], w.reduced.In(i), i)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	if variadic {
		elem := w.reduced.In(w.reduced.NumIn() - 1).Elem()
		tail := reflect.MakeSlice(reflect.SliceOf(elem), 0, len(args)-fixed)
		for i := fixed; i < len(args); i++ {
			v, err := coerceArg(args[i], elem, i)
			if err != nil {
				return nil, err
			}
			tail = reflect.Append(tail, v)
		}
		vals = append(vals, tail)
	}
	return vals, nil
}

func coerceArg(arg any, t reflect.Type, i int) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(arg)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, BindError{
			Target: t.String(),
			Detail: "argument " + strconv.Itoa(i) + " has type " + rv.Type().String(),
		}
	}
	return rv, nil
}

// Func materializes the wrapper as a callable with the reduced signature,
// suitable for passing anywhere the original target was expected (minus the
// injected parameters) and for further decoration.
//
// The reduced signature has no slot to widen with an error, so a call-time
// failure — typically ProviderNotFoundError from a key still unregistered —
// panics with that same typed error. Use Call when the failure should come
// back as a value.
func (w *Injected) Func() any {
	return reflect.MakeFunc(w.reduced, func(args []reflect.Value) []reflect.Value {
		if w.loose {
			// A loose wrapper's signature is func(...any); unwrap the
			// collected interface values to their dynamic types.
			packed := args[len(args)-1]
			expanded := make([]reflect.Value, packed.Len())
			for i := range expanded {
				if e := packed.Index(i); !e.IsNil() {
					expanded[i] = e.Elem()
				}
			}
			args = expanded
		}
		rets, err := w.invoke(args)
		if err != nil {
			panic(err)
		}
		return rets
	}).Interface()
}

// As assigns the materialized wrapper into *fnPtr, which must be a pointer
// to a function variable of exactly the reduced signature.
func (w *Injected) As(fnPtr any) error {
	if fnPtr == nil {
		return ErrNotInjectable
	}
	p := reflect.ValueOf(fnPtr)
	if p.Kind() != reflect.Pointer || p.Elem().Kind() != reflect.Func {
		return ErrNotInjectable
	}
	if p.Elem().Type() != w.reduced {
		return BindError{
			Target: p.Elem().Type().String(),
			Detail: "wrapper signature is " + w.reduced.String(),
		}
	}
	p.Elem().Set(reflect.ValueOf(w.Func()))
	return nil
}
