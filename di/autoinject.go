package di

import (
	"reflect"
	"strconv"
)

// AutoInjector builds wrappers that decide per call which parameters to
// inject, by re-checking registry membership every time the wrapper runs.
//
// A function parameter is auto-injected when a provider is registered under
// its reflect.Type (see TypeOf); a struct field when a provider is
// registered under the field's name or type. Unmatched parameters are
// consumed from the caller's arguments, untouched.
//
// This dynamic re-check is the cost of auto-injection: a provider
// registered after wrapping is honored on the very next call without
// re-wrapping, but every call pays the registry lookups that explicit
// injection froze at wrap time.
type AutoInjector struct {
	di          *Di
	renameArg   map[int]Key
	renameField map[string]Key
}

// AutoInject starts an auto-injection spec.
func (d *Di) AutoInject() *AutoInjector {
	return &AutoInjector{
		di:          d,
		renameArg:   make(map[int]Key),
		renameField: make(map[string]Key),
	}
}

// RenameArg overrides the lookup key for the function parameter at index i.
// A renamed parameter is resolved under key when a provider for it exists,
// and falls back to the caller's arguments otherwise; its type is no longer
// consulted.
func (a *AutoInjector) RenameArg(i int, key Key) *AutoInjector {
	a.renameArg[i] = key
	return a
}

// Rename overrides the lookup key for the struct field with the given name,
// for struct targets.
func (a *AutoInjector) Rename(field string, key Key) *AutoInjector {
	a.renameField[field] = key
	return a
}

// Wrap builds the auto-injection wrapper around target, a function or a
// pointer to a struct.
//
// The wrapper's effective parameter list depends on registry state at each
// call, so unlike explicit injection it has no static reduced signature;
// Signature reports func(...any) and Call is the primary surface.
func (a *AutoInjector) Wrap(target any) (*Injected, error) {
	if target == nil {
		return nil, ErrNotInjectable
	}
	t := reflect.TypeOf(target)
	switch {
	case t.Kind() == reflect.Func:
		return a.wrapFunc(reflect.ValueOf(target))
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		return a.wrapStruct(t.Elem())
	default:
		return nil, ErrNotInjectable
	}
}

// MustWrap is Wrap, panicking on error.
func (a *AutoInjector) MustWrap(target any) *Injected {
	w, err := a.Wrap(target)
	if err != nil {
		panic(err)
	}
	return w
}

func (a *AutoInjector) wrapFunc(fn reflect.Value) (*Injected, error) {
	t := fn.Type()
	tname := t.String()

	for i := range a.renameArg {
		if i < 0 || i >= t.NumIn() {
			return nil, BindError{Target: tname, Detail: "rename for parameter " + strconv.Itoa(i) + " out of range"}
		}
	}

	outs := make([]reflect.Type, t.NumOut())
	for i := range outs {
		outs[i] = t.Out(i)
	}
	reduced := reflect.FuncOf([]reflect.Type{anySliceType}, outs, true)

	d := a.di
	renames := copyMap(a.renameArg)
	fixed := t.NumIn()
	if t.IsVariadic() {
		fixed--
	}

	invoke := func(args []reflect.Value) ([]reflect.Value, error) {
		full := make([]reflect.Value, 0, t.NumIn())
		next := 0

		for p := 0; p < fixed; p++ {
			pt := t.In(p)

			key, renamed := renames[p]
			if !renamed {
				key = pt
			}
			// Registry membership is checked now, not at wrap time.
			if d.Has(key) {
				v, err := resolveInto(d, key, pt)
				if err != nil {
					return nil, err
				}
				full = append(full, v)
				continue
			}

			if next >= len(args) {
				return nil, BindError{
					Target: tname,
					Detail: "not enough arguments: parameter " + strconv.Itoa(p) + " is neither registered nor supplied",
				}
			}
			v, err := looseArg(args[next], pt, next)
			if err != nil {
				return nil, err
			}
			full = append(full, v)
			next++
		}

		rest := args[next:]
		if !t.IsVariadic() {
			if len(rest) > 0 {
				return nil, BindError{Target: tname, Detail: strconv.Itoa(len(rest)) + " arguments left over"}
			}
			return fn.Call(full), nil
		}

		elem := t.In(t.NumIn() - 1).Elem()
		tail := reflect.MakeSlice(reflect.SliceOf(elem), 0, len(rest))
		for i, r := range rest {
			v, err := looseArg(r, elem, next+i)
			if err != nil {
				return nil, err
			}
			tail = reflect.Append(tail, v)
		}
		full = append(full, tail)
		return fn.CallSlice(full), nil
	}

	return &Injected{di: d, reduced: reduced, loose: true, invoke: invoke}, nil
}

func (a *AutoInjector) wrapStruct(st reflect.Type) (*Injected, error) {
	tname := "*" + st.String()

	for name := range a.renameField {
		f, ok := st.FieldByName(name)
		if !ok || f.PkgPath != "" {
			return nil, BindError{Target: tname, Detail: "no exported field " + strconv.Quote(name)}
		}
	}

	reduced := reflect.FuncOf([]reflect.Type{anySliceType}, []reflect.Type{reflect.PointerTo(st)}, true)

	d := a.di
	renames := copyMap(a.renameField)
	fields := exportedFields(st)

	invoke := func(args []reflect.Value) ([]reflect.Value, error) {
		ptr := reflect.New(st)
		elem := ptr.Elem()
		next := 0

		for _, fi := range fields {
			f := st.Field(fi)

			key, renamed := renames[f.Name]
			if !renamed {
				// A field matches a provider registered under its name,
				// or failing that under its type.
				switch {
				case d.Has(f.Name):
					key = f.Name
				case d.Has(f.Type):
					key = f.Type
				}
			}
			if key != nil && d.Has(key) {
				v, err := resolveInto(d, key, f.Type)
				if err != nil {
					return nil, err
				}
				elem.Field(fi).Set(v)
				continue
			}

			// Caller argument; fields beyond the supplied arguments stay
			// zero, as in a partial struct literal.
			if next < len(args) {
				v, err := looseArg(args[next], f.Type, next)
				if err != nil {
					return nil, err
				}
				elem.Field(fi).Set(v)
				next++
			}
		}

		if rest := len(args) - next; rest > 0 {
			return nil, BindError{Target: tname, Detail: strconv.Itoa(rest) + " arguments left over"}
		}
		return []reflect.Value{ptr}, nil
	}

	return &Injected{di: d, reduced: reduced, loose: true, invoke: invoke}, nil
}

// Invoke resolves every parameter of fn by its type and calls it, returning
// the results. Unlike an auto-injection wrapper there is no caller-argument
// fallback: an unregistered parameter type fails with
// ProviderNotFoundError.
func (d *Di) Invoke(fn any) ([]any, error) {
	if fn == nil {
		return nil, ErrNotInjectable
	}
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func || t.IsVariadic() {
		return nil, ErrNotInjectable
	}

	args := make([]reflect.Value, t.NumIn())
	for i := range args {
		rv, err := resolveInto(d, t.In(i), t.In(i))
		if err != nil {
			return nil, err
		}
		args[i] = rv
	}

	rets := v.Call(args)
	out := make([]any, len(rets))
	for i, r := range rets {
		out[i] = r.Interface()
	}
	return out, nil
}

var anySliceType = reflect.TypeOf([]any(nil))

// looseArg adapts one caller-supplied loose argument to the parameter type.
func looseArg(v reflect.Value, t reflect.Type, i int) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Zero(t), nil
	}
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, BindError{
			Target: t.String(),
			Detail: "argument " + strconv.Itoa(i) + " has type " + v.Type().String(),
		}
	}
	return v, nil
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
