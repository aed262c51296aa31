package runtime

import (
	"math"
	"math/big"
	"reflect"
	"strconv"
	"unicode/utf8"

	"github.com/kolkov/uexpr/internal/types"
)

// GetMember reads obj[key].
func GetMember(obj, key types.Value) (types.Value, error) {
	if arr, ok := obj.(*types.Array); ok {
		if n, ok := key.(float64); ok && n >= 0 && n == math.Trunc(n) {
			return arr.At(int(n)), nil
		}
	}
	return GetProperty(obj, types.ToPropertyKey(key))
}

// GetProperty reads a named property of obj. Reading from null or
// undefined is a TypeError; unknown properties read as undefined.
func GetProperty(obj types.Value, name string) (types.Value, error) {
	switch o := obj.(type) {
	case types.UndefinedType, nil:
		return nil, types.TypeErrorf("Cannot read properties of %s (reading '%s')", types.ToString(obj), name)
	case *types.Object:
		return o.Get(name)
	case *types.Array:
		if name == "length" {
			return float64(o.Len()), nil
		}
		if i, ok := types.Index(name); ok {
			return o.At(i), nil
		}
		if o.Props != nil && o.Props.Has(name) {
			return o.Props.Get(name)
		}
		if m, ok := arrayMethods[name]; ok {
			return m, nil
		}
	case string:
		if name == "length" {
			return float64(utf8.RuneCountInString(o)), nil
		}
		if i, ok := types.Index(name); ok {
			r := []rune(o)
			if i < len(r) {
				return string(r[i]), nil
			}
			return types.Undefined, nil
		}
		if m, ok := stringMethods[name]; ok {
			return m, nil
		}
	case float64:
		if m, ok := numberMethods[name]; ok {
			return m, nil
		}
	case *big.Int, bool:
		if name == "toString" {
			return primitiveToString, nil
		}
	case *RegExp:
		switch name {
		case "source":
			return o.Source, nil
		case "flags":
			return o.Flags, nil
		case "global":
			return o.Global(), nil
		case "sticky":
			return o.Sticky(), nil
		case "ignoreCase":
			return containsFlag(o.Flags, 'i'), nil
		case "multiline":
			return containsFlag(o.Flags, 'm'), nil
		case "dotAll":
			return containsFlag(o.Flags, 's'), nil
		case "lastIndex":
			return float64(o.LastIndex), nil
		}
		if m, ok := regexpMethods[name]; ok {
			return m, nil
		}
	case *types.Awaitable:
		if name == "then" {
			return awaitableThen, nil
		}
	case *types.Builtin:
		if o.Props != nil && o.Props.Has(name) {
			return o.Props.Get(name)
		}
		if name == "name" {
			return o.Name, nil
		}
		if m, ok := functionMethods[name]; ok {
			return m, nil
		}
	case types.Function:
		if m, ok := functionMethods[name]; ok {
			return m, nil
		}
	default:
		return hostField(obj, name), nil
	}
	return types.Undefined, nil
}

func containsFlag(flags string, f byte) bool {
	for i := 0; i < len(flags); i++ {
		if flags[i] == f {
			return true
		}
	}
	return false
}

// hostField reads an exported struct field of a host value.
func hostField(obj types.Value, name string) types.Value {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return types.Undefined
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return types.Undefined
	}
	f := rv.FieldByName(name)
	if !f.IsValid() || !f.CanInterface() {
		return types.Undefined
	}
	return types.FromGo(f.Interface())
}

// SetMember assigns obj[key] = v.
func SetMember(obj, key, v types.Value) error {
	if arr, ok := obj.(*types.Array); ok {
		if n, ok := key.(float64); ok && n >= 0 && n == math.Trunc(n) {
			arr.SetAt(int(n), v)
			return nil
		}
	}
	return SetProperty(obj, types.ToPropertyKey(key), v)
}

// SetProperty assigns a named property. Assignments to primitives are
// ignored.
func SetProperty(obj types.Value, name string, v types.Value) error {
	switch o := obj.(type) {
	case types.UndefinedType, nil:
		return types.TypeErrorf("Cannot set properties of %s (setting '%s')", types.ToString(obj), name)
	case *types.Object:
		return o.Set(name, v)
	case *types.Array:
		if name == "length" {
			n := types.ToNumber(v)
			if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
				return types.RangeErrorf("Invalid array length")
			}
			o.SetLength(int(n))
			return nil
		}
		if i, ok := types.Index(name); ok {
			o.SetAt(i, v)
			return nil
		}
		if o.Props == nil {
			o.Props = types.NewObject()
		}
		o.Props.SetOwn(name, v)
	case *RegExp:
		if name == "lastIndex" {
			o.LastIndex = int(types.ToInteger(v))
		}
	case *types.Builtin:
		if o.Props == nil {
			o.Props = types.NewObject()
		}
		o.Props.SetOwn(name, v)
	}
	return nil
}

// DeleteMember removes obj[key] and reports success.
func DeleteMember(obj, key types.Value) (bool, error) {
	name := types.ToPropertyKey(key)
	switch o := obj.(type) {
	case types.UndefinedType, nil:
		return false, types.TypeErrorf("Cannot convert undefined or null to object")
	case *types.Object:
		o.Delete(name)
	case *types.Array:
		if i, ok := types.Index(name); ok {
			if i < o.Len() {
				o.Elems[i] = types.Undefined
			}
		} else if o.Props != nil {
			o.Props.Delete(name)
		} else if name == "length" {
			return false, nil
		}
	case string:
		if i, ok := types.Index(name); ok && i < utf8.RuneCountInString(o) {
			return false, nil
		}
	}
	return true, nil
}

// HasProperty implements the in operator.
func HasProperty(obj, key types.Value) (bool, error) {
	name := types.ToPropertyKey(key)
	switch o := obj.(type) {
	case *types.Object:
		return o.Has(name), nil
	case *types.Array:
		if i, ok := types.Index(name); ok {
			return i < o.Len(), nil
		}
		if name == "length" {
			return true, nil
		}
		if o.Props != nil && o.Props.Has(name) {
			return true, nil
		}
		_, ok := arrayMethods[name]
		return ok, nil
	case *types.Builtin:
		return o.Props != nil && o.Props.Has(name), nil
	case types.Function, *RegExp:
		v, err := GetProperty(obj, name)
		return !types.IsUndefined(v), err
	}
	return false, types.TypeErrorf("Cannot use 'in' operator to search for '%s' in %s", name, types.ToString(obj))
}

// Keys returns the enumerable keys visited by for-in.
func Keys(obj types.Value) []string {
	switch o := obj.(type) {
	case *types.Object:
		return o.Keys()
	case *types.Array:
		keys := make([]string, o.Len())
		for i := range keys {
			keys[i] = strconv.Itoa(i)
		}
		if o.Props != nil {
			keys = append(keys, o.Props.Keys()...)
		}
		return keys
	case string:
		n := utf8.RuneCountInString(o)
		keys := make([]string, n)
		for i := range keys {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	}
	return nil
}

// Call calls fn with the given this value.
func Call(fn, this types.Value, args []types.Value) (types.Value, error) {
	f, ok := fn.(types.Function)
	if !ok {
		return nil, types.TypeErrorf("%s is not a function", types.Describe(fn))
	}
	return f.Call(this, args)
}

// Construct implements new.
func Construct(fn types.Value, args []types.Value) (types.Value, error) {
	c, ok := fn.(types.Constructor)
	if !ok {
		return nil, types.TypeErrorf("%s is not a constructor", types.Describe(fn))
	}
	return c.Construct(args)
}

// InstanceOf implements the instanceof operator.
func InstanceOf(v, ctor types.Value) (bool, error) {
	if _, ok := ctor.(types.Function); !ok {
		return false, types.TypeErrorf("Right-hand side of 'instanceof' is not callable")
	}
	if b, ok := ctor.(*types.Builtin); ok {
		switch b.Name {
		case "Object":
			switch v.(type) {
			case *types.Object, *types.Array, types.Function, *RegExp:
				return true, nil
			}
			return false, nil
		case "Array":
			_, ok := v.(*types.Array)
			return ok, nil
		case "Function":
			_, ok := v.(types.Function)
			return ok, nil
		case "RegExp":
			_, ok := v.(*RegExp)
			return ok, nil
		case "Promise":
			_, ok := v.(*types.Awaitable)
			return ok, nil
		case "Error":
			o, ok := v.(*types.Object)
			return ok && o.Class == "Error", nil
		}
		if o, ok := v.(*types.Object); ok && o.Class == "Error" {
			name, _ := o.Lookup("name")
			return name == b.Name, nil
		}
	}
	if o, ok := v.(*types.Object); ok && o.Constructor != nil {
		return types.StrictEquals(o.Constructor, ctor), nil
	}
	return false, nil
}
