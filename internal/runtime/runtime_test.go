package runtime

import (
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/kolkov/uexpr/internal/token"
	"github.com/kolkov/uexpr/internal/types"
)

func call(t *testing.T, recv types.Value, name string, args ...types.Value) types.Value {
	t.Helper()
	fn, err := GetProperty(recv, name)
	if err != nil {
		t.Fatalf("get %s: %v", name, err)
	}
	v, err := Call(fn, recv, args)
	if err != nil {
		t.Fatalf("%s(%v): %v", name, args, err)
	}
	return v
}

func TestBinary(t *testing.T) {
	tests := []struct {
		op   token.Token
		a, b types.Value
		want types.Value
	}{
		{token.ADD, 1.0, 2.0, 3.0},
		{token.ADD, "a", 1.0, "a1"},
		{token.ADD, 1.0, "a", "1a"},
		{token.ADD, nil, 1.0, 1.0},
		{token.ADD, true, 1.0, 2.0},
		{token.ADD, types.NewArray(1.0, 2.0), "", "1,2"},
		{token.SUB, "5", 2.0, 3.0},
		{token.MUL, 4.0, 2.5, 10.0},
		{token.MOD, -7.0, 3.0, -1.0},
		{token.POW, 2.0, 10.0, 1024.0},
		{token.AND, 6.0, 3.0, 2.0},
		{token.OR, 6.0, 3.0, 7.0},
		{token.XOR, 6.0, 3.0, 5.0},
		{token.SHL, 1.0, 33.0, 2.0},
		{token.SHR, -8.0, 1.0, -4.0},
		{token.USHR, -1.0, 28.0, 15.0},
		{token.EQ, "1", 1.0, true},
		{token.EQ, nil, types.Undefined, true},
		{token.STRICT_EQ, "1", 1.0, false},
		{token.STRICT_NE, nil, types.Undefined, true},
		{token.LESS, "a", "b", true},
		{token.LESS, "10", 9.0, false},
		{token.GTE, 2.0, 2.0, true},
		{token.LESS, math.NaN(), 1.0, false},
	}
	for _, tt := range tests {
		got, err := Binary(tt.op, tt.a, tt.b)
		if err != nil {
			t.Errorf("%v %s %v: %v", tt.a, tt.op, tt.b, err)
			continue
		}
		if !types.StrictEquals(got, tt.want) {
			t.Errorf("%v %s %v = %v, want %v", tt.a, tt.op, tt.b, got, tt.want)
		}
	}
}

func TestBinaryBigInt(t *testing.T) {
	got, err := Binary(token.MUL, big.NewInt(1<<40), big.NewInt(1<<40))
	if err != nil {
		t.Fatal(err)
	}
	want, _ := new(big.Int).SetString("1208925819614629174706176", 10)
	if got.(*big.Int).Cmp(want) != 0 {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, err := Binary(token.ADD, big.NewInt(1), 1.0); err == nil {
		t.Error("mixing bigint and number should fail")
	}
	if _, err := Binary(token.DIV, big.NewInt(1), big.NewInt(0)); err == nil {
		t.Error("bigint division by zero should fail")
	}
}

func TestAssignOperators(t *testing.T) {
	tests := []struct {
		op   token.Token
		a, b types.Value
		want types.Value
	}{
		{token.ADD_ASSIGN, 1.0, 2.0, 3.0},
		{token.FMOD_ASSIGN, -7.0, 3.0, 2.0},
		{token.FMOD_ASSIGN, 7.0, -3.0, -2.0},
		{token.MAX_ASSIGN, 3.0, 5.0, 5.0},
		{token.MAX_ASSIGN, 7.0, 5.0, 7.0},
		{token.MIN_ASSIGN, 3.0, 5.0, 3.0},
		{token.POW_ASSIGN, 3.0, 2.0, 9.0},
	}
	for _, tt := range tests {
		got, err := Assign(tt.op, tt.a, tt.b)
		if err != nil {
			t.Fatal(err)
		}
		if !types.StrictEquals(got, tt.want) {
			t.Errorf("%v %s %v = %v, want %v", tt.a, tt.op, tt.b, got, tt.want)
		}
	}
}

func TestUnary(t *testing.T) {
	if v, _ := Unary(token.SUB, "3"); v != -3.0 {
		t.Errorf("-'3' = %v", v)
	}
	if v, _ := Unary(token.BITNOT, 5.0); v != -6.0 {
		t.Errorf("~5 = %v", v)
	}
	if v, _ := Unary(token.NOT, ""); v != true {
		t.Errorf("!'' = %v", v)
	}
	if _, err := Unary(token.ADD, big.NewInt(1)); err == nil {
		t.Error("+1n should fail")
	}
	old, updated, _ := Increment("4", 1)
	if old != 4.0 || updated != 5.0 {
		t.Errorf("Increment = %v, %v", old, updated)
	}
}

func TestPow(t *testing.T) {
	if !math.IsNaN(Pow(1, math.Inf(1))) {
		t.Error("1 ** Infinity should be NaN")
	}
	if !math.IsNaN(Pow(1, math.NaN())) {
		t.Error("1 ** NaN should be NaN")
	}
}

func TestGetMemberNullish(t *testing.T) {
	_, err := GetProperty(types.Undefined, "x")
	if err == nil || !strings.Contains(err.Error(), "reading 'x'") {
		t.Errorf("err = %v", err)
	}
	if err := SetProperty(nil, "x", 1.0); err == nil {
		t.Error("setting on null should fail")
	}
}

func TestArrayMembers(t *testing.T) {
	a := types.NewArray(1.0, 2.0)
	if v, _ := GetMember(a, 1.0); v != 2.0 {
		t.Errorf("a[1] = %v", v)
	}
	if v, _ := GetMember(a, "length"); v != 2.0 {
		t.Errorf("length = %v", v)
	}
	if err := SetMember(a, 4.0, "x"); err != nil {
		t.Fatal(err)
	}
	if a.Len() != 5 || !types.IsUndefined(a.At(2)) {
		t.Errorf("elems = %v", a.Elems)
	}
	if err := SetProperty(a, "length", 1.0); err != nil || a.Len() != 1 {
		t.Errorf("length truncation: %v, len %d", err, a.Len())
	}
	if err := SetProperty(a, "length", -1.0); err == nil {
		t.Error("negative length should fail")
	}
	ok, _ := HasProperty(a, 0.0)
	if !ok {
		t.Error("0 in a should be true")
	}
}

func TestObjectMembers(t *testing.T) {
	o := types.ObjectOf("a", 1.0)
	_ = SetMember(o, "b", 2.0)
	if keys := Keys(o); len(keys) != 2 || keys[1] != "b" {
		t.Errorf("keys = %v", keys)
	}
	if ok, _ := DeleteMember(o, "a"); !ok || o.Has("a") {
		t.Error("delete failed")
	}
	if _, err := HasProperty("str", "length"); err == nil {
		t.Error("'in' on a string should fail")
	}
}

func TestHostStructField(t *testing.T) {
	type point struct{ X, Y int }
	if v, _ := GetProperty(&point{X: 3}, "X"); v != 3.0 {
		t.Errorf("X = %v", v)
	}
	if v, _ := GetProperty(point{}, "Z"); !types.IsUndefined(v) {
		t.Errorf("Z = %v", v)
	}
}

func TestCallNotFunction(t *testing.T) {
	_, err := Call(1.0, types.Undefined, nil)
	if err == nil || !strings.Contains(err.Error(), "is not a function") {
		t.Errorf("err = %v", err)
	}
	if _, err := Construct("x", nil); err == nil {
		t.Error("new 'x' should fail")
	}
}

func TestInstanceOf(t *testing.T) {
	g := Globals()
	tests := []struct {
		v    types.Value
		ctor string
		want bool
	}{
		{types.NewArray(), "Array", true},
		{types.NewArray(), "Object", true},
		{types.NewObject(), "Array", false},
		{types.NewError("TypeError", "x"), "Error", true},
		{types.NewError("TypeError", "x"), "TypeError", true},
		{types.NewError("TypeError", "x"), "RangeError", false},
		{"s", "String", false},
	}
	for _, tt := range tests {
		got, err := InstanceOf(tt.v, g[tt.ctor])
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("%v instanceof %s = %v, want %v", tt.v, tt.ctor, got, tt.want)
		}
	}
	if _, err := InstanceOf(1.0, 2.0); err == nil {
		t.Error("instanceof non-callable should fail")
	}
}

func TestStringMethods(t *testing.T) {
	tests := []struct {
		recv string
		name string
		args []types.Value
		want types.Value
	}{
		{"hello", "toUpperCase", nil, "HELLO"},
		{"ÄB", "toLowerCase", nil, "äb"},
		{"  x ", "trim", nil, "x"},
		{"abc", "charAt", []types.Value{1.0}, "b"},
		{"abc", "at", []types.Value{-1.0}, "c"},
		{"abcabc", "indexOf", []types.Value{"c"}, 2.0},
		{"abcabc", "lastIndexOf", []types.Value{"c"}, 5.0},
		{"abc", "includes", []types.Value{"bc"}, true},
		{"abc", "slice", []types.Value{-2.0}, "bc"},
		{"abc", "substring", []types.Value{2.0, 0.0}, "ab"},
		{"5", "padStart", []types.Value{3.0, "0"}, "005"},
		{"ab", "repeat", []types.Value{3.0}, "ababab"},
		{"aaa", "replace", []types.Value{"a", "b"}, "baa"},
		{"aaa", "replaceAll", []types.Value{"a", "b"}, "bbb"},
		{"a", "concat", []types.Value{"b", 1.0}, "ab1"},
		{"é", "normalize", nil, "é"},
		{"a", "localeCompare", []types.Value{"b"}, -1.0},
		{"héllo", "search", []types.Value{"l+"}, 2.0},
	}
	for _, tt := range tests {
		got := call(t, tt.recv, tt.name, tt.args...)
		if !types.StrictEquals(got, tt.want) {
			t.Errorf("%q.%s(%v) = %v, want %v", tt.recv, tt.name, tt.args, got, tt.want)
		}
	}
}

func TestStringSplit(t *testing.T) {
	got := call(t, "a,b,c", "split", ",").(*types.Array)
	if got.Join("|") != "a|b|c" {
		t.Errorf("split = %v", got.Elems)
	}
	got = call(t, "abc", "split", "").(*types.Array)
	if got.Len() != 3 {
		t.Errorf("split('') = %v", got.Elems)
	}
	got = call(t, "abc", "split").(*types.Array)
	if got.Len() != 1 || got.At(0) != "abc" {
		t.Errorf("split() = %v", got.Elems)
	}
}

func TestStringLength(t *testing.T) {
	if v, _ := GetProperty("héllo", "length"); v != 5.0 {
		t.Errorf("length = %v", v)
	}
	if v, _ := GetMember("héllo", 1.0); v != "é" {
		t.Errorf("[1] = %v", v)
	}
}

func TestNumberMethods(t *testing.T) {
	tests := []struct {
		n    float64
		name string
		args []types.Value
		want string
	}{
		{3.14159, "toFixed", []types.Value{2.0}, "3.14"},
		{255, "toString", []types.Value{16.0}, "ff"},
		{-5, "toString", []types.Value{2.0}, "-101"},
		{123.456, "toPrecision", []types.Value{4.0}, "123.5"},
		{0.000001234, "toPrecision", []types.Value{2.0}, "0.0000012"},
		{123456, "toPrecision", []types.Value{2.0}, "1.2e+5"},
	}
	for _, tt := range tests {
		got := call(t, tt.n, tt.name, tt.args...)
		if got != tt.want {
			t.Errorf("(%v).%s(%v) = %v, want %v", tt.n, tt.name, tt.args, got, tt.want)
		}
	}
}

func TestArrayMethods(t *testing.T) {
	double := types.NativeFunc(func(_ types.Value, args []types.Value) (types.Value, error) {
		return types.ToNumber(args[0]) * 2, nil
	})
	even := types.NativeFunc(func(_ types.Value, args []types.Value) (types.Value, error) {
		return math.Mod(types.ToNumber(args[0]), 2) == 0, nil
	})
	sum := types.NativeFunc(func(_ types.Value, args []types.Value) (types.Value, error) {
		return types.ToNumber(args[0]) + types.ToNumber(args[1]), nil
	})
	arr := func() *types.Array { return types.NewArray(1.0, 2.0, 3.0, 4.0) }

	if got := call(t, arr(), "map", double).(*types.Array).Join(","); got != "2,4,6,8" {
		t.Errorf("map = %s", got)
	}
	if got := call(t, arr(), "filter", even).(*types.Array).Join(","); got != "2,4" {
		t.Errorf("filter = %s", got)
	}
	if got := call(t, arr(), "reduce", sum); got != 10.0 {
		t.Errorf("reduce = %v", got)
	}
	if got := call(t, arr(), "reduce", sum, 5.0); got != 15.0 {
		t.Errorf("reduce with initial = %v", got)
	}
	if got := call(t, arr(), "find", even); got != 2.0 {
		t.Errorf("find = %v", got)
	}
	if got := call(t, arr(), "findLastIndex", even); got != 3.0 {
		t.Errorf("findLastIndex = %v", got)
	}
	if got := call(t, arr(), "some", even); got != true {
		t.Errorf("some = %v", got)
	}
	if got := call(t, arr(), "every", even); got != false {
		t.Errorf("every = %v", got)
	}
	if got := call(t, arr(), "includes", 3.0); got != true {
		t.Errorf("includes = %v", got)
	}
	if got := call(t, arr(), "join", "-"); got != "1-2-3-4" {
		t.Errorf("join = %v", got)
	}
	if got := call(t, arr(), "slice", 1.0, -1.0).(*types.Array).Join(","); got != "2,3" {
		t.Errorf("slice = %s", got)
	}

	a := arr()
	removed := call(t, a, "splice", 1.0, 2.0, "x").(*types.Array)
	if removed.Join(",") != "2,3" || a.Join(",") != "1,x,4" {
		t.Errorf("splice removed %v, left %v", removed.Elems, a.Elems)
	}

	a = types.NewArray(3.0, 1.0, 10.0, 2.0)
	call(t, a, "sort")
	if a.Join(",") != "1,10,2,3" {
		t.Errorf("default sort = %v", a.Elems)
	}
	byValue := types.NativeFunc(func(_ types.Value, args []types.Value) (types.Value, error) {
		return types.ToNumber(args[0]) - types.ToNumber(args[1]), nil
	})
	call(t, a, "sort", byValue)
	if a.Join(",") != "1,2,3,10" {
		t.Errorf("numeric sort = %v", a.Elems)
	}

	nested := types.NewArray(1.0, types.NewArray(2.0, types.NewArray(3.0)))
	if got := call(t, nested, "flat", math.Inf(1)).(*types.Array).Join(","); got != "1,2,3" {
		t.Errorf("flat = %s", got)
	}

	if _, err := Call(arrayMethods["reduce"], types.NewArray(), []types.Value{sum}); err == nil {
		t.Error("reduce of empty array without initial value should fail")
	}
	if _, err := Call(arrayMethods["map"], arr(), []types.Value{1.0}); err == nil {
		t.Error("map with non-function should fail")
	}
}

func TestGlobals(t *testing.T) {
	g := Globals()
	mathObj := g["Math"].(*types.Object)
	if got := call(t, mathObj, "max", 1.0, 5.0, 3.0); got != 5.0 {
		t.Errorf("Math.max = %v", got)
	}
	if got := call(t, mathObj, "round", -2.5); got != -2.0 {
		t.Errorf("Math.round(-2.5) = %v", got)
	}
	if got := call(t, g["Object"], "keys", types.ObjectOf("a", 1.0, "b", 2.0)).(*types.Array).Join(","); got != "a,b" {
		t.Errorf("Object.keys = %s", got)
	}
	if got := call(t, g["Array"], "isArray", types.NewArray()); got != true {
		t.Errorf("Array.isArray = %v", got)
	}

	tests := []struct {
		fn   string
		args []types.Value
		want types.Value
	}{
		{"parseInt", []types.Value{"42px"}, 42.0},
		{"parseInt", []types.Value{"0x1f"}, 31.0},
		{"parseInt", []types.Value{"-101", 2.0}, -5.0},
		{"parseFloat", []types.Value{"3.5e2xyz"}, 350.0},
		{"isNaN", []types.Value{"abc"}, true},
		{"Number", []types.Value{" 12 "}, 12.0},
		{"String", []types.Value{12.0}, "12"},
		{"Boolean", []types.Value{"x"}, true},
	}
	for _, tt := range tests {
		got, err := Call(g[tt.fn], types.Undefined, tt.args)
		if err != nil {
			t.Fatal(err)
		}
		if !types.StrictEquals(got, tt.want) {
			t.Errorf("%s(%v) = %v, want %v", tt.fn, tt.args, got, tt.want)
		}
	}
	if v, _ := Call(g["parseInt"], types.Undefined, []types.Value{"x"}); !math.IsNaN(v.(float64)) {
		t.Errorf("parseInt('x') = %v, want NaN", v)
	}
}

func TestStringRaw(t *testing.T) {
	strs := types.NewArray("a\n", "b")
	strs.Props = types.ObjectOf("raw", types.NewArray(`a\n`, "b"))
	got := call(t, Globals()["String"], "raw", strs, 1.0)
	if got != `a\n1b` {
		t.Errorf("String.raw = %q", got)
	}
}

func TestJSONGlobal(t *testing.T) {
	j := Globals()["JSON"].(*types.Object)
	v := call(t, j, "parse", `{"b":1,"a":[true,null]}`)
	if got := call(t, j, "stringify", v); got != `{"b":1,"a":[true,null]}` {
		t.Errorf("stringify = %v", got)
	}
	if got := call(t, j, "stringify", types.Undefined); !types.IsUndefined(got) {
		t.Errorf("stringify(undefined) = %v", got)
	}
}

func TestFunctionMethods(t *testing.T) {
	self := types.NativeFunc(func(this types.Value, args []types.Value) (types.Value, error) {
		return types.NewArray(append([]types.Value{this}, args...)...), nil
	})
	got := call(t, self, "call", "t", 1.0).(*types.Array)
	if got.Join(",") != "t,1" {
		t.Errorf("call = %v", got.Elems)
	}
	got = call(t, self, "apply", "t", types.NewArray(1.0, 2.0)).(*types.Array)
	if got.Join(",") != "t,1,2" {
		t.Errorf("apply = %v", got.Elems)
	}
	bound := call(t, self, "bind", "b", 1.0)
	v, err := Call(bound, "ignored", []types.Value{2.0})
	if err != nil {
		t.Fatal(err)
	}
	if v.(*types.Array).Join(",") != "b,1,2" {
		t.Errorf("bound = %v", v)
	}
}

func TestAwaitableThen(t *testing.T) {
	inc := types.NativeFunc(func(_ types.Value, args []types.Value) (types.Value, error) {
		return types.ToNumber(args[0]) + 1, nil
	})
	v := call(t, &types.Awaitable{Value: 1.0}, "then", inc)
	r, err := types.Resolve(v)
	if err != nil || r != 2.0 {
		t.Errorf("then = %v, %v", r, err)
	}
}
