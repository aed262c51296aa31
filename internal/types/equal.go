package types

import (
	"math"
	"math/big"
	"reflect"
)

// Comparison

// StrictEquals implements ===.
func StrictEquals(a, b Value) bool {
	a, b = normalizeNumber(a), normalizeNumber(b)
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case *big.Int:
		y, ok := b.(*big.Int)
		return ok && x.Cmp(y) == 0
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case UndefinedType:
		return IsUndefined(b)
	case nil:
		return b == nil
	}
	return sameReference(a, b)
}

// sameReference compares objects and functions by identity. Function
// values may be uncomparable (func-typed NativeFunc), so pointers are
// compared through reflect.
func sameReference(a, b Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan:
		return va.Pointer() == vb.Pointer()
	}
	if va.Type().Comparable() {
		return a == b
	}
	return false
}

// SameValueZero is StrictEquals except that NaN equals NaN.
func SameValueZero(a, b Value) bool {
	x, ok1 := normalizeNumber(a).(float64)
	y, ok2 := normalizeNumber(b).(float64)
	if ok1 && ok2 && math.IsNaN(x) && math.IsNaN(y) {
		return true
	}
	return StrictEquals(a, b)
}

// LooseEquals implements ==.
func LooseEquals(a, b Value) bool {
	a, b = normalizeNumber(a), normalizeNumber(b)
	if IsNullish(a) || IsNullish(b) {
		return IsNullish(a) && IsNullish(b)
	}
	if KindOf(a) == KindOf(b) {
		return StrictEquals(a, b)
	}
	switch x := a.(type) {
	case bool:
		return LooseEquals(ToNumber(x), b)
	case *big.Int:
		if y, ok := b.(float64); ok {
			return bigEqualsNumber(x, y)
		}
		if y, ok := b.(string); ok {
			n, err := ToBigInt(y)
			return err == nil && x.Cmp(n) == 0
		}
	case float64:
		switch y := b.(type) {
		case string:
			return x == ToNumber(y)
		case *big.Int:
			return bigEqualsNumber(y, x)
		}
	case string:
		switch b.(type) {
		case float64, *big.Int:
			return LooseEquals(b, a)
		}
	}
	if _, ok := b.(bool); ok {
		return LooseEquals(a, ToNumber(b))
	}
	if isPrimitive(a) != isPrimitive(b) {
		pa, err := ToPrimitive(a, "default")
		if err != nil {
			return false
		}
		pb, err := ToPrimitive(b, "default")
		if err != nil {
			return false
		}
		if isPrimitive(pa) && isPrimitive(pb) {
			return LooseEquals(pa, pb)
		}
	}
	return false
}

func bigEqualsNumber(x *big.Int, y float64) bool {
	if math.IsNaN(y) || math.IsInf(y, 0) || y != math.Trunc(y) {
		return false
	}
	f, _ := new(big.Float).SetFloat64(y).Int(nil)
	return x.Cmp(f) == 0
}

func isPrimitive(v Value) bool {
	switch v.(type) {
	case UndefinedType, nil, bool, float64, string, *big.Int:
		return true
	}
	return false
}

// normalizeNumber maps host integer types onto float64.
func normalizeNumber(v Value) Value {
	switch v.(type) {
	case int, int64, int32, uint, uint64, uint32, float32:
		return ToNumber(v)
	}
	return v
}

// Compare orders two primitives for the relational operators. It returns
// -1, 0 or 1, and ok is false when the comparison is undefined (NaN).
func Compare(a, b Value) (cmp int, ok bool) {
	sa, aStr := a.(string)
	sb, bStr := b.(string)
	if aStr && bStr {
		switch {
		case sa < sb:
			return -1, true
		case sa > sb:
			return 1, true
		}
		return 0, true
	}
	ba, aBig := a.(*big.Int)
	bb, bBig := b.(*big.Int)
	switch {
	case aBig && bBig:
		return ba.Cmp(bb), true
	case aBig:
		return compareBig(ba, ToNumber(b))
	case bBig:
		c, ok := compareBig(bb, ToNumber(a))
		return -c, ok
	}
	x, y := ToNumber(a), ToNumber(b)
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return 0, false
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

func compareBig(x *big.Int, y float64) (int, bool) {
	if math.IsNaN(y) {
		return 0, false
	}
	if math.IsInf(y, 0) {
		if y > 0 {
			return -1, true
		}
		return 1, true
	}
	return new(big.Float).SetInt(x).Cmp(big.NewFloat(y)), true
}
