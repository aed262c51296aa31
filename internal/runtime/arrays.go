package runtime

import (
	"math"
	"sort"

	"github.com/kolkov/uexpr/internal/types"
)

var arrayMethods map[string]*types.Builtin

func init() {
	arrayMethods = methodTable(map[string]types.NativeFunc{
		"push":          arrPush,
		"pop":           arrPop,
		"shift":         arrShift,
		"unshift":       arrUnshift,
		"slice":         arrSlice,
		"splice":        arrSplice,
		"concat":        arrConcat,
		"join":          arrJoin,
		"reverse":       arrReverse,
		"indexOf":       arrIndexOf,
		"lastIndexOf":   arrLastIndexOf,
		"includes":      arrIncludes,
		"find":          arrFind(false, false),
		"findIndex":     arrFind(true, false),
		"findLast":      arrFind(false, true),
		"findLastIndex": arrFind(true, true),
		"filter":        arrFilter,
		"map":           arrMap,
		"forEach":       arrForEach,
		"reduce":        arrReduce(false),
		"reduceRight":   arrReduce(true),
		"some":          arrSome,
		"every":         arrEvery,
		"sort":          arrSort,
		"flat":          arrFlat,
		"flatMap":       arrFlatMap,
		"fill":          arrFill,
		"at":            arrAt,
		"keys":          arrKeys,
		"entries":       arrEntries,
		"toString": func(this types.Value, args []types.Value) (types.Value, error) {
			return types.ToString(this), nil
		},
	})
}

func thisArray(this types.Value, name string) (*types.Array, error) {
	a, ok := this.(*types.Array)
	if !ok {
		return nil, types.TypeErrorf("Array.prototype.%s called on incompatible receiver", name)
	}
	return a, nil
}

// callback returns the function argument of an iteration method.
func callback(args []types.Value) (types.Function, error) {
	fn, ok := types.Arg(args, 0).(types.Function)
	if !ok {
		return nil, types.TypeErrorf("%s is not a function", types.Describe(types.Arg(args, 0)))
	}
	return fn, nil
}

// each calls fn(elem, index, array) for every element until visit
// returns false.
func each(a *types.Array, args []types.Value, visit func(i int, elem, result types.Value) bool) error {
	fn, err := callback(args)
	if err != nil {
		return err
	}
	thisArg := types.Arg(args, 1)
	for i := 0; i < a.Len(); i++ {
		elem := a.At(i)
		r, err := fn.Call(thisArg, []types.Value{elem, float64(i), a})
		if err != nil {
			return err
		}
		if !visit(i, elem, r) {
			break
		}
	}
	return nil
}

func arrPush(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "push")
	if err != nil {
		return nil, err
	}
	return float64(a.Push(args...)), nil
}

func arrPop(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "pop")
	if err != nil {
		return nil, err
	}
	if a.Len() == 0 {
		return types.Undefined, nil
	}
	last := a.Elems[a.Len()-1]
	a.Elems = a.Elems[:a.Len()-1]
	return last, nil
}

func arrShift(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "shift")
	if err != nil {
		return nil, err
	}
	if a.Len() == 0 {
		return types.Undefined, nil
	}
	first := a.Elems[0]
	a.Elems = append(a.Elems[:0:0], a.Elems[1:]...)
	return first, nil
}

func arrUnshift(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "unshift")
	if err != nil {
		return nil, err
	}
	a.Elems = append(append([]types.Value{}, args...), a.Elems...)
	return float64(a.Len()), nil
}

func arrSlice(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "slice")
	if err != nil {
		return nil, err
	}
	start := relIndex(types.Arg(args, 0), a.Len(), 0)
	end := relIndex(types.Arg(args, 1), a.Len(), a.Len())
	if start >= end {
		return types.NewArray(), nil
	}
	return types.NewArray(append([]types.Value{}, a.Elems[start:end]...)...), nil
}

func arrSplice(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "splice")
	if err != nil {
		return nil, err
	}
	n := a.Len()
	start := relIndex(types.Arg(args, 0), n, 0)
	count := n - start
	switch {
	case len(args) == 0:
		count = 0
	case len(args) > 1:
		count = min(max(int(types.ToInteger(args[1])), 0), n-start)
	}
	removed := append([]types.Value{}, a.Elems[start:start+count]...)
	var insert []types.Value
	if len(args) > 2 {
		insert = args[2:]
	}
	elems := make([]types.Value, 0, n-count+len(insert))
	elems = append(elems, a.Elems[:start]...)
	elems = append(elems, insert...)
	elems = append(elems, a.Elems[start+count:]...)
	a.Elems = elems
	return types.NewArray(removed...), nil
}

func arrConcat(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "concat")
	if err != nil {
		return nil, err
	}
	out := append([]types.Value{}, a.Elems...)
	for _, v := range args {
		if other, ok := v.(*types.Array); ok {
			out = append(out, other.Elems...)
		} else {
			out = append(out, v)
		}
	}
	return types.NewArray(out...), nil
}

func arrJoin(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "join")
	if err != nil {
		return nil, err
	}
	sep := ","
	if v := types.Arg(args, 0); !types.IsUndefined(v) {
		sep = types.ToString(v)
	}
	return a.Join(sep), nil
}

func arrReverse(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "reverse")
	if err != nil {
		return nil, err
	}
	for i, j := 0, a.Len()-1; i < j; i, j = i+1, j-1 {
		a.Elems[i], a.Elems[j] = a.Elems[j], a.Elems[i]
	}
	return a, nil
}

func arrIndexOf(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "indexOf")
	if err != nil {
		return nil, err
	}
	target := types.Arg(args, 0)
	for i := relIndex(types.Arg(args, 1), a.Len(), 0); i < a.Len(); i++ {
		if types.StrictEquals(a.Elems[i], target) {
			return float64(i), nil
		}
	}
	return -1.0, nil
}

func arrLastIndexOf(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "lastIndexOf")
	if err != nil {
		return nil, err
	}
	target := types.Arg(args, 0)
	from := a.Len() - 1
	if len(args) > 1 {
		from = min(relIndex(args[1], a.Len(), 0), a.Len()-1)
	}
	for i := from; i >= 0; i-- {
		if types.StrictEquals(a.Elems[i], target) {
			return float64(i), nil
		}
	}
	return -1.0, nil
}

func arrIncludes(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "includes")
	if err != nil {
		return nil, err
	}
	target := types.Arg(args, 0)
	for i := relIndex(types.Arg(args, 1), a.Len(), 0); i < a.Len(); i++ {
		if types.SameValueZero(a.Elems[i], target) {
			return true, nil
		}
	}
	return false, nil
}

func arrFind(index, last bool) types.NativeFunc {
	return func(this types.Value, args []types.Value) (types.Value, error) {
		a, err := thisArray(this, "find")
		if err != nil {
			return nil, err
		}
		fn, err := callback(args)
		if err != nil {
			return nil, err
		}
		n := a.Len()
		for k := 0; k < n; k++ {
			i := k
			if last {
				i = n - 1 - k
			}
			elem := a.At(i)
			r, err := fn.Call(types.Arg(args, 1), []types.Value{elem, float64(i), a})
			if err != nil {
				return nil, err
			}
			if types.ToBoolean(r) {
				if index {
					return float64(i), nil
				}
				return elem, nil
			}
		}
		if index {
			return -1.0, nil
		}
		return types.Undefined, nil
	}
}

func arrFilter(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "filter")
	if err != nil {
		return nil, err
	}
	out := types.NewArray()
	err = each(a, args, func(_ int, elem, r types.Value) bool {
		if types.ToBoolean(r) {
			out.Push(elem)
		}
		return true
	})
	return out, err
}

func arrMap(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "map")
	if err != nil {
		return nil, err
	}
	out := make([]types.Value, 0, a.Len())
	err = each(a, args, func(_ int, _, r types.Value) bool {
		out = append(out, r)
		return true
	})
	if err != nil {
		return nil, err
	}
	return types.NewArray(out...), nil
}

func arrForEach(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "forEach")
	if err != nil {
		return nil, err
	}
	err = each(a, args, func(int, types.Value, types.Value) bool { return true })
	return types.Undefined, err
}

func arrSome(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "some")
	if err != nil {
		return nil, err
	}
	found := false
	err = each(a, args, func(_ int, _, r types.Value) bool {
		found = types.ToBoolean(r)
		return !found
	})
	return found, err
}

func arrEvery(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "every")
	if err != nil {
		return nil, err
	}
	all := true
	err = each(a, args, func(_ int, _, r types.Value) bool {
		all = types.ToBoolean(r)
		return all
	})
	return all, err
}

func arrReduce(right bool) types.NativeFunc {
	return func(this types.Value, args []types.Value) (types.Value, error) {
		a, err := thisArray(this, "reduce")
		if err != nil {
			return nil, err
		}
		fn, err := callback(args)
		if err != nil {
			return nil, err
		}
		n := a.Len()
		order := make([]int, n)
		for k := range order {
			order[k] = k
			if right {
				order[k] = n - 1 - k
			}
		}
		var acc types.Value
		if len(args) > 1 {
			acc = args[1]
		} else {
			if n == 0 {
				return nil, types.TypeErrorf("Reduce of empty array with no initial value")
			}
			acc = a.At(order[0])
			order = order[1:]
		}
		for _, i := range order {
			acc, err = fn.Call(types.Undefined, []types.Value{acc, a.At(i), float64(i), a})
			if err != nil {
				return nil, err
			}
		}
		return acc, nil
	}
}

func arrSort(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "sort")
	if err != nil {
		return nil, err
	}
	var cmp types.Function
	if v := types.Arg(args, 0); !types.IsUndefined(v) {
		fn, ok := v.(types.Function)
		if !ok {
			return nil, types.TypeErrorf("The comparison function must be either a function or undefined")
		}
		cmp = fn
	}
	var sortErr error
	sort.SliceStable(a.Elems, func(i, j int) bool {
		x, y := a.Elems[i], a.Elems[j]
		if xu, yu := types.IsUndefined(x), types.IsUndefined(y); xu || yu {
			return !xu && yu
		}
		if cmp == nil {
			return types.ToString(x) < types.ToString(y)
		}
		if sortErr != nil {
			return false
		}
		r, err := cmp.Call(types.Undefined, []types.Value{x, y})
		if err != nil {
			sortErr = err
			return false
		}
		return types.ToNumber(r) < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return a, nil
}

func flatten(dst []types.Value, elems []types.Value, depth float64) []types.Value {
	for _, e := range elems {
		if inner, ok := e.(*types.Array); ok && depth >= 1 {
			dst = flatten(dst, inner.Elems, depth-1)
			continue
		}
		dst = append(dst, e)
	}
	return dst
}

func arrFlat(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "flat")
	if err != nil {
		return nil, err
	}
	depth := 1.0
	if v := types.Arg(args, 0); !types.IsUndefined(v) {
		depth = types.ToNumber(v)
		if math.IsNaN(depth) {
			depth = 0
		}
	}
	return types.NewArray(flatten(nil, a.Elems, depth)...), nil
}

func arrFlatMap(this types.Value, args []types.Value) (types.Value, error) {
	mapped, err := arrMap(this, args)
	if err != nil {
		return nil, err
	}
	return types.NewArray(flatten(nil, mapped.(*types.Array).Elems, 1)...), nil
}

func arrFill(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "fill")
	if err != nil {
		return nil, err
	}
	start := relIndex(types.Arg(args, 1), a.Len(), 0)
	end := relIndex(types.Arg(args, 2), a.Len(), a.Len())
	for i := start; i < end; i++ {
		a.Elems[i] = types.Arg(args, 0)
	}
	return a, nil
}

func arrAt(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "at")
	if err != nil {
		return nil, err
	}
	i := int(types.ToInteger(types.Arg(args, 0)))
	if i < 0 {
		i += a.Len()
	}
	return a.At(i), nil
}

func arrKeys(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "keys")
	if err != nil {
		return nil, err
	}
	out := make([]types.Value, a.Len())
	for i := range out {
		out[i] = float64(i)
	}
	return types.NewArray(out...), nil
}

func arrEntries(this types.Value, args []types.Value) (types.Value, error) {
	a, err := thisArray(this, "entries")
	if err != nil {
		return nil, err
	}
	out := make([]types.Value, a.Len())
	for i := range out {
		out[i] = types.NewArray(float64(i), a.At(i))
	}
	return types.NewArray(out...), nil
}
