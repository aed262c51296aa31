package runtime

import (
	"math"
	"math/big"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/kolkov/uexpr/internal/types"
)

// Globals returns a fresh set of the global objects and functions. Each
// call builds new values, so mutations by one stack are not seen by
// another.
func Globals() map[string]types.Value {
	g := map[string]types.Value{
		"Math":       mathObject(),
		"JSON":       jsonObject(),
		"Object":     objectBuiltin(),
		"Array":      arrayBuiltin(),
		"String":     stringBuiltin(),
		"Number":     numberBuiltin(),
		"Boolean":    &types.Builtin{Name: "Boolean", Fn: func(_ types.Value, args []types.Value) (types.Value, error) { return types.ToBoolean(types.Arg(args, 0)), nil }},
		"BigInt":     &types.Builtin{Name: "BigInt", Fn: bigIntFn},
		"RegExp":     &types.Builtin{Name: "RegExp", Fn: regExpFn},
		"Promise":    promiseBuiltin(),
		"parseInt":   &types.Builtin{Name: "parseInt", Fn: parseIntFn},
		"parseFloat": &types.Builtin{Name: "parseFloat", Fn: parseFloatFn},
		"isNaN":      &types.Builtin{Name: "isNaN", Fn: isNaNFn},
		"isFinite":   &types.Builtin{Name: "isFinite", Fn: isFiniteFn},
		"NaN":        math.NaN(),
		"Infinity":   math.Inf(1),
	}
	for _, name := range []string{"Error", "TypeError", "RangeError", "SyntaxError", "ReferenceError"} {
		g[name] = errorBuiltin(name)
	}
	return g
}

func unary(fn func(float64) float64) types.NativeFunc {
	return func(_ types.Value, args []types.Value) (types.Value, error) {
		return fn(types.ToNumber(types.Arg(args, 0))), nil
	}
}

func mathObject() *types.Object {
	m := types.ObjectOf(
		"PI", math.Pi,
		"E", math.E,
		"LN2", math.Ln2,
		"LN10", math.Ln10,
		"LOG2E", math.Log2E,
		"LOG10E", math.Log10E,
		"SQRT2", math.Sqrt2,
		"SQRT1_2", math.Sqrt2/2,
	)
	fns := map[string]types.NativeFunc{
		"abs":   unary(math.Abs),
		"floor": unary(math.Floor),
		"ceil":  unary(math.Ceil),
		"trunc": unary(math.Trunc),
		"sqrt":  unary(math.Sqrt),
		"cbrt":  unary(math.Cbrt),
		"exp":   unary(math.Exp),
		"log":   unary(math.Log),
		"log2":  unary(math.Log2),
		"log10": unary(math.Log10),
		"sin":   unary(math.Sin),
		"cos":   unary(math.Cos),
		"tan":   unary(math.Tan),
		"asin":  unary(math.Asin),
		"acos":  unary(math.Acos),
		"atan":  unary(math.Atan),
		"round": unary(func(x float64) float64 {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return x
			}
			return math.Floor(x + 0.5)
		}),
		"sign": unary(func(x float64) float64 {
			switch {
			case x > 0:
				return 1
			case x < 0:
				return -1
			}
			return x
		}),
		"atan2": func(_ types.Value, args []types.Value) (types.Value, error) {
			return math.Atan2(types.ToNumber(types.Arg(args, 0)), types.ToNumber(types.Arg(args, 1))), nil
		},
		"pow": func(_ types.Value, args []types.Value) (types.Value, error) {
			return Pow(types.ToNumber(types.Arg(args, 0)), types.ToNumber(types.Arg(args, 1))), nil
		},
		"max": func(_ types.Value, args []types.Value) (types.Value, error) {
			r := math.Inf(-1)
			for _, a := range args {
				n := types.ToNumber(a)
				if math.IsNaN(n) {
					return n, nil
				}
				r = math.Max(r, n)
			}
			return r, nil
		},
		"min": func(_ types.Value, args []types.Value) (types.Value, error) {
			r := math.Inf(1)
			for _, a := range args {
				n := types.ToNumber(a)
				if math.IsNaN(n) {
					return n, nil
				}
				r = math.Min(r, n)
			}
			return r, nil
		},
		"hypot": func(_ types.Value, args []types.Value) (types.Value, error) {
			sum := 0.0
			for _, a := range args {
				n := types.ToNumber(a)
				sum += n * n
			}
			return math.Sqrt(sum), nil
		},
		"random": func(types.Value, []types.Value) (types.Value, error) {
			return rand.Float64(), nil
		},
	}
	for _, name := range sortedFuncNames(fns) {
		m.SetOwn(name, method(name, fns[name]))
	}
	return m
}

func sortedFuncNames(fns map[string]types.NativeFunc) []string {
	names := make([]string, 0, len(fns))
	for name := range fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func jsonObject() *types.Object {
	return types.ObjectOf(
		"stringify", method("stringify", func(_ types.Value, args []types.Value) (types.Value, error) {
			indent := ""
			switch sp := types.Arg(args, 2).(type) {
			case float64:
				indent = strings.Repeat(" ", min(max(int(sp), 0), 10))
			case string:
				indent = sp
				if len(indent) > 10 {
					indent = indent[:10]
				}
			}
			s, ok, err := types.Stringify(types.Arg(args, 0), indent)
			if err != nil || !ok {
				return types.Undefined, err
			}
			return s, nil
		}),
		"parse", method("parse", func(_ types.Value, args []types.Value) (types.Value, error) {
			return types.ParseJSON(types.ToString(types.Arg(args, 0)))
		}),
	)
}

func objectBuiltin() *types.Builtin {
	return &types.Builtin{
		Name: "Object",
		Fn: func(_ types.Value, args []types.Value) (types.Value, error) {
			if v := types.Arg(args, 0); !types.IsNullish(v) {
				return v, nil
			}
			return types.NewObject(), nil
		},
		Props: types.ObjectOf(
			"keys", method("keys", func(_ types.Value, args []types.Value) (types.Value, error) {
				return keysOf(types.Arg(args, 0), func(k string, _ types.Value) types.Value { return k })
			}),
			"values", method("values", func(_ types.Value, args []types.Value) (types.Value, error) {
				return keysOf(types.Arg(args, 0), func(_ string, v types.Value) types.Value { return v })
			}),
			"entries", method("entries", func(_ types.Value, args []types.Value) (types.Value, error) {
				return keysOf(types.Arg(args, 0), func(k string, v types.Value) types.Value {
					return types.NewArray(k, v)
				})
			}),
			"assign", method("assign", func(_ types.Value, args []types.Value) (types.Value, error) {
				target := types.Arg(args, 0)
				if types.IsNullish(target) {
					return nil, types.TypeErrorf("Cannot convert undefined or null to object")
				}
				for _, src := range args[1:] {
					for _, k := range Keys(src) {
						v, err := GetProperty(src, k)
						if err != nil {
							return nil, err
						}
						if err := SetProperty(target, k, v); err != nil {
							return nil, err
						}
					}
				}
				return target, nil
			}),
			"fromEntries", method("fromEntries", func(_ types.Value, args []types.Value) (types.Value, error) {
				it, err := types.Iterate(types.Arg(args, 0))
				if err != nil {
					return nil, err
				}
				entries, err := types.Collect(it)
				if err != nil {
					return nil, err
				}
				o := types.NewObject()
				for _, e := range entries {
					k, err := GetMember(e, 0.0)
					if err != nil {
						return nil, err
					}
					v, err := GetMember(e, 1.0)
					if err != nil {
						return nil, err
					}
					o.SetOwn(types.ToPropertyKey(k), v)
				}
				return o, nil
			}),
			"freeze", method("freeze", func(_ types.Value, args []types.Value) (types.Value, error) {
				return types.Arg(args, 0), nil
			}),
		),
	}
}

func keysOf(v types.Value, pick func(string, types.Value) types.Value) (types.Value, error) {
	if types.IsNullish(v) {
		return nil, types.TypeErrorf("Cannot convert undefined or null to object")
	}
	out := types.NewArray()
	for _, k := range Keys(v) {
		val, err := GetProperty(v, k)
		if err != nil {
			return nil, err
		}
		out.Push(pick(k, val))
	}
	return out, nil
}

func newArray(args []types.Value) (types.Value, error) {
	if len(args) == 1 {
		if n, ok := args[0].(float64); ok {
			if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
				return nil, types.RangeErrorf("Invalid array length")
			}
			a := types.NewArray()
			if n > 0 {
				a.SetLength(int(n))
			}
			return a, nil
		}
	}
	return types.NewArray(append([]types.Value{}, args...)...), nil
}

func arrayBuiltin() *types.Builtin {
	return &types.Builtin{
		Name: "Array",
		Fn: func(_ types.Value, args []types.Value) (types.Value, error) {
			return newArray(args)
		},
		Props: types.ObjectOf(
			"isArray", method("isArray", func(_ types.Value, args []types.Value) (types.Value, error) {
				_, ok := types.Arg(args, 0).(*types.Array)
				return ok, nil
			}),
			"of", method("of", func(_ types.Value, args []types.Value) (types.Value, error) {
				return types.NewArray(append([]types.Value{}, args...)...), nil
			}),
			"from", method("from", func(_ types.Value, args []types.Value) (types.Value, error) {
				src := types.Arg(args, 0)
				var elems []types.Value
				if o, ok := src.(*types.Object); ok {
					n, err := o.Get("length")
					if err != nil {
						return nil, err
					}
					elems = make([]types.Value, int(types.ToInteger(n)))
					for i := range elems {
						if elems[i], err = GetMember(o, float64(i)); err != nil {
							return nil, err
						}
					}
				} else {
					it, err := types.Iterate(src)
					if err != nil {
						return nil, err
					}
					if elems, err = types.Collect(it); err != nil {
						return nil, err
					}
				}
				if fn, ok := types.Arg(args, 1).(types.Function); ok {
					for i, e := range elems {
						r, err := fn.Call(types.Undefined, []types.Value{e, float64(i)})
						if err != nil {
							return nil, err
						}
						elems[i] = r
					}
				}
				return types.NewArray(elems...), nil
			}),
		),
	}
}

func stringBuiltin() *types.Builtin {
	return &types.Builtin{
		Name: "String",
		Fn: func(_ types.Value, args []types.Value) (types.Value, error) {
			if len(args) == 0 {
				return "", nil
			}
			p, err := types.ToPrimitive(args[0], "string")
			if err != nil {
				return nil, err
			}
			return types.ToString(p), nil
		},
		Props: types.ObjectOf(
			"raw", method("raw", stringRaw),
			"fromCharCode", method("fromCharCode", fromCharCode),
			"fromCodePoint", method("fromCodePoint", fromCharCode),
		),
	}
}

// stringRaw interleaves the raw template strings with the substitutions.
func stringRaw(_ types.Value, args []types.Value) (types.Value, error) {
	strs := types.Arg(args, 0)
	raw, err := GetProperty(strs, "raw")
	if err != nil {
		return nil, err
	}
	parts, ok := raw.(*types.Array)
	if !ok {
		return nil, types.TypeErrorf("Cannot convert undefined or null to object")
	}
	var b strings.Builder
	for i, p := range parts.Elems {
		b.WriteString(types.ToString(p))
		if i+1 < parts.Len() && i+1 < len(args) {
			b.WriteString(types.ToString(args[i+1]))
		}
	}
	return b.String(), nil
}

func fromCharCode(_ types.Value, args []types.Value) (types.Value, error) {
	var b strings.Builder
	for _, a := range args {
		b.WriteRune(rune(types.ToUint32(a)))
	}
	return b.String(), nil
}

func numberBuiltin() *types.Builtin {
	isInteger := func(v types.Value) bool {
		n, ok := v.(float64)
		return ok && !math.IsInf(n, 0) && n == math.Trunc(n)
	}
	return &types.Builtin{
		Name: "Number",
		Fn: func(_ types.Value, args []types.Value) (types.Value, error) {
			if len(args) == 0 {
				return 0.0, nil
			}
			p, err := types.ToPrimitive(args[0], "number")
			if err != nil {
				return nil, err
			}
			return types.ToNumber(p), nil
		},
		Props: types.ObjectOf(
			"MAX_SAFE_INTEGER", float64(1<<53-1),
			"MIN_SAFE_INTEGER", -float64(1<<53-1),
			"EPSILON", math.Nextafter(1, 2)-1,
			"MAX_VALUE", math.MaxFloat64,
			"MIN_VALUE", 5e-324,
			"POSITIVE_INFINITY", math.Inf(1),
			"NEGATIVE_INFINITY", math.Inf(-1),
			"NaN", math.NaN(),
			"isInteger", method("isInteger", func(_ types.Value, args []types.Value) (types.Value, error) {
				return isInteger(types.Arg(args, 0)), nil
			}),
			"isSafeInteger", method("isSafeInteger", func(_ types.Value, args []types.Value) (types.Value, error) {
				v := types.Arg(args, 0)
				return isInteger(v) && math.Abs(v.(float64)) <= 1<<53-1, nil
			}),
			"isFinite", method("isFinite", func(_ types.Value, args []types.Value) (types.Value, error) {
				n, ok := types.Arg(args, 0).(float64)
				return ok && !math.IsInf(n, 0) && !math.IsNaN(n), nil
			}),
			"isNaN", method("isNaN", func(_ types.Value, args []types.Value) (types.Value, error) {
				n, ok := types.Arg(args, 0).(float64)
				return ok && math.IsNaN(n), nil
			}),
			"parseFloat", method("parseFloat", parseFloatFn),
			"parseInt", method("parseInt", parseIntFn),
		),
	}
}

func parseFloatFn(_ types.Value, args []types.Value) (types.Value, error) {
	return types.ParseFloatPrefix(types.ToString(types.Arg(args, 0))), nil
}

// parseIntFn parses the longest run of digits valid in the radix.
func parseIntFn(_ types.Value, args []types.Value) (types.Value, error) {
	s := strings.TrimLeft(types.ToString(types.Arg(args, 0)), " \t\n\r\v\f")
	radix := int(types.ToInt32(types.Arg(args, 1)))
	sign := 1.0
	if s != "" && (s[0] == '+' || s[0] == '-') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}
	if radix == 0 || radix == 16 {
		if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
			s, radix = s[2:], 16
		}
	}
	if radix == 0 {
		radix = 10
	}
	if radix < 2 || radix > 36 {
		return math.NaN(), nil
	}
	n, digits := 0.0, 0
	for _, c := range s {
		d := digitValue(c)
		if d < 0 || d >= radix {
			break
		}
		n = n*float64(radix) + float64(d)
		digits++
	}
	if digits == 0 {
		return math.NaN(), nil
	}
	return sign * n, nil
}

func digitValue(c rune) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return -1
}

func isNaNFn(_ types.Value, args []types.Value) (types.Value, error) {
	return math.IsNaN(types.ToNumber(types.Arg(args, 0))), nil
}

func isFiniteFn(_ types.Value, args []types.Value) (types.Value, error) {
	n := types.ToNumber(types.Arg(args, 0))
	return !math.IsNaN(n) && !math.IsInf(n, 0), nil
}

func bigIntFn(_ types.Value, args []types.Value) (types.Value, error) {
	v := types.Arg(args, 0)
	if n, ok := v.(*big.Int); ok {
		return n, nil
	}
	return types.ToBigInt(v)
}

func regExpFn(_ types.Value, args []types.Value) (types.Value, error) {
	src := types.Arg(args, 0)
	flags := ""
	if v := types.Arg(args, 1); !types.IsUndefined(v) {
		flags = types.ToString(v)
	}
	if r, ok := src.(*RegExp); ok {
		if types.IsUndefined(types.Arg(args, 1)) {
			flags = r.Flags
		}
		return NewRegExp(r.Source, flags)
	}
	s := "(?:)"
	if !types.IsUndefined(src) {
		s = types.ToString(src)
	}
	return NewRegExp(s, flags)
}

func promiseBuiltin() *types.Builtin {
	return &types.Builtin{
		Name: "Promise",
		Fn: func(types.Value, []types.Value) (types.Value, error) {
			return nil, types.TypeErrorf("Promise constructor cannot be invoked without 'new'")
		},
		New: func(args []types.Value) (types.Value, error) {
			executor, ok := types.Arg(args, 0).(types.Function)
			if !ok {
				return nil, types.TypeErrorf("Promise resolver %s is not a function", types.Describe(types.Arg(args, 0)))
			}
			p := &types.Awaitable{Value: types.Undefined}
			var rejected error
			resolve := method("resolve", func(_ types.Value, a []types.Value) (types.Value, error) {
				p.Value = types.Arg(a, 0)
				return types.Undefined, nil
			})
			reject := method("reject", func(_ types.Value, a []types.Value) (types.Value, error) {
				rejected = &types.ThrowError{Value: types.Arg(a, 0)}
				return types.Undefined, nil
			})
			if _, err := executor.Call(types.Undefined, []types.Value{resolve, reject}); err != nil {
				return nil, err
			}
			if rejected != nil {
				return nil, rejected
			}
			return p, nil
		},
		Props: types.ObjectOf(
			"resolve", method("resolve", func(_ types.Value, args []types.Value) (types.Value, error) {
				return &types.Awaitable{Value: types.Arg(args, 0)}, nil
			}),
			"reject", method("reject", func(_ types.Value, args []types.Value) (types.Value, error) {
				return nil, &types.ThrowError{Value: types.Arg(args, 0)}
			}),
		),
	}
}

func errorBuiltin(name string) *types.Builtin {
	create := func(args []types.Value) (types.Value, error) {
		msg := ""
		if v := types.Arg(args, 0); !types.IsUndefined(v) {
			msg = types.ToString(v)
		}
		return types.NewError(name, msg), nil
	}
	return &types.Builtin{
		Name: name,
		Fn:   func(_ types.Value, args []types.Value) (types.Value, error) { return create(args) },
		New:  create,
	}
}
