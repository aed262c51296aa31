package types

import (
	"fmt"
	"math/big"
	"reflect"
	"sort"
)

// FromGo converts a host value into a runtime value. Maps become objects
// with sorted keys, slices become arrays and numeric types become float64.
// Values that are already runtime values pass through unchanged.
func FromGo(v any) Value {
	switch v := v.(type) {
	case nil:
		return nil
	case UndefinedType, bool, float64, string, *big.Int, *Object, *Array, *Awaitable, Function:
		return v
	case func(this Value, args []Value) (Value, error):
		return NativeFunc(v)
	case func(args ...Value) Value:
		return NativeFunc(func(_ Value, args []Value) (Value, error) { return v(args...), nil })
	case int, int64, int32, int16, int8, uint, uint64, uint32, uint16, uint8, float32:
		return reflect.ValueOf(v).Convert(reflect.TypeOf(float64(0))).Float()
	case map[string]any:
		o := NewObject()
		for _, k := range sortedKeys(v) {
			o.SetOwn(k, FromGo(v[k]))
		}
		return o
	case map[any]any:
		// YAML decoders produce maps keyed by interface values.
		keys := make([]string, 0, len(v))
		byKey := make(map[string]any, len(v))
		for k, e := range v {
			ks := fmt.Sprint(k)
			keys = append(keys, ks)
			byKey[ks] = e
		}
		sort.Strings(keys)
		o := NewObject()
		for _, k := range keys {
			o.SetOwn(k, FromGo(byKey[k]))
		}
		return o
	case []any:
		elems := make([]Value, len(v))
		for i, e := range v {
			elems[i] = FromGo(e)
		}
		return NewArray(elems...)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		elems := make([]Value, rv.Len())
		for i := range elems {
			elems[i] = FromGo(rv.Index(i).Interface())
		}
		return NewArray(elems...)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		o := NewObject()
		for _, k := range keys {
			o.SetOwn(k, FromGo(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()))
		}
		return o
	case reflect.Func:
		if rv.IsNil() {
			return nil
		}
		return hostFunc(rv)
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
	}
	return v
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// hostFunc adapts an arbitrary Go func. Arguments are converted to the
// parameter types, missing ones are zero values. A trailing error result
// is returned as the call's error; two or more other results come back as
// an array.
func hostFunc(fn reflect.Value) NativeFunc {
	t := fn.Type()
	return func(_ Value, args []Value) (Value, error) {
		fixed := t.NumIn()
		if t.IsVariadic() {
			fixed--
		}
		in := make([]reflect.Value, 0, max(fixed, len(args)))
		for i := 0; i < fixed; i++ {
			v, err := argTo(Arg(args, i), t.In(i))
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i+1, err)
			}
			in = append(in, v)
		}
		if t.IsVariadic() {
			elem := t.In(fixed).Elem()
			for i := fixed; i < len(args); i++ {
				v, err := argTo(args[i], elem)
				if err != nil {
					return nil, fmt.Errorf("argument %d: %w", i+1, err)
				}
				in = append(in, v)
			}
		}

		out := fn.Call(in)
		if n := len(out); n > 0 && t.Out(n-1) == errorType {
			if err, _ := out[n-1].Interface().(error); err != nil {
				return nil, err
			}
			out = out[:n-1]
		}
		switch len(out) {
		case 0:
			return Undefined, nil
		case 1:
			return FromGo(out[0].Interface()), nil
		}
		elems := make([]Value, len(out))
		for i, r := range out {
			elems[i] = FromGo(r.Interface())
		}
		return NewArray(elems...), nil
	}
}

// argTo converts a runtime value to a Go parameter of type t.
func argTo(v Value, t reflect.Type) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return reflect.ValueOf(ToInteger(v)).Convert(t), nil
	case reflect.Float32, reflect.Float64:
		return reflect.ValueOf(ToNumber(v)).Convert(t), nil
	case reflect.String:
		return reflect.ValueOf(ToString(v)).Convert(t), nil
	case reflect.Bool:
		return reflect.ValueOf(ToBoolean(v)).Convert(t), nil
	case reflect.Interface:
		if t.NumMethod() == 0 {
			if g := ToGo(v); g != nil {
				return reflect.ValueOf(g), nil
			}
			return reflect.Zero(t), nil
		}
	}

	if rv := reflect.ValueOf(v); rv.IsValid() && rv.Type().AssignableTo(t) {
		return rv, nil
	}
	g := ToGo(v)
	if g == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(g)
	switch {
	case rv.Type().AssignableTo(t):
		return rv, nil
	case rv.Type().ConvertibleTo(t):
		return rv.Convert(t), nil
	}
	return reflect.Value{}, TypeErrorf("cannot use %s as Go %s", Describe(v), t)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToGo converts a runtime value into plain Go data: objects become
// map[string]any, arrays []any and undefined nil. Functions and host
// values are returned as they are.
func ToGo(v Value) any {
	switch v := v.(type) {
	case UndefinedType:
		return nil
	case *Object:
		m := make(map[string]any, v.Len())
		for _, k := range v.keys {
			val, _ := v.Get(k)
			m[k] = ToGo(val)
		}
		return m
	case *Array:
		out := make([]any, len(v.Elems))
		for i, e := range v.Elems {
			out[i] = ToGo(e)
		}
		return out
	case *Awaitable:
		return ToGo(v.Value)
	}
	return v
}
