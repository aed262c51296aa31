package types

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		kind Kind
		typ  string
	}{
		{"undefined", Undefined, KindUndefined, "undefined"},
		{"null", nil, KindNull, "object"},
		{"bool", true, KindBoolean, "boolean"},
		{"number", 42.0, KindNumber, "number"},
		{"host int", 42, KindNumber, "number"},
		{"bigint", big.NewInt(1), KindBigInt, "bigint"},
		{"string", "s", KindString, "string"},
		{"object", NewObject(), KindObject, "object"},
		{"array", NewArray(), KindObject, "object"},
		{"function", NativeFunc(nil), KindFunction, "function"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.v); got != tt.kind {
				t.Errorf("KindOf() = %v, want %v", got, tt.kind)
			}
			if got := TypeOf(tt.v); got != tt.typ {
				t.Errorf("TypeOf() = %q, want %q", got, tt.typ)
			}
		})
	}
}

func TestToBoolean(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{Undefined, false},
		{nil, false},
		{0.0, false},
		{math.NaN(), false},
		{"", false},
		{big.NewInt(0), false},
		{1.0, true},
		{"0", true},
		{NewObject(), true},
		{NewArray(), true},
	}

	for _, tt := range tests {
		if got := ToBoolean(tt.v); got != tt.want {
			t.Errorf("ToBoolean(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		v    Value
		want float64
	}{
		{nil, 0},
		{true, 1},
		{"", 0},
		{"  12  ", 12},
		{"1e3", 1000},
		{"0x1F", 31},
		{"0b101", 5},
		{"-Infinity", math.Inf(-1)},
		{NewArray(), 0},
		{NewArray("7"), 7},
		{7, 7},
	}

	for _, tt := range tests {
		if got := ToNumber(tt.v); got != tt.want {
			t.Errorf("ToNumber(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}

	for _, v := range []Value{Undefined, "abc", "1_000", "12px", NewObject(), NewArray(1.0, 2.0)} {
		if got := ToNumber(v); !math.IsNaN(got) {
			t.Errorf("ToNumber(%#v) = %v, want NaN", v, got)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{42, "42"},
		{-3.5, "-3.5"},
		{0.1, "0.1"},
		{1e21, "1e+21"},
		{1.5e-7, "1.5e-7"},
		{123456789012, "123456789012"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
	}

	for _, tt := range tests {
		if got := FormatNumber(tt.n); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestToString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Undefined, "undefined"},
		{nil, "null"},
		{false, "false"},
		{2.0, "2"},
		{big.NewInt(10), "10"},
		{NewArray(1.0, nil, "a"), "1,,a"},
		{NewObject(), "[object Object]"},
		{NewError("TypeError", "bad"), "TypeError: bad"},
		{&Awaitable{Value: 1.0}, "[object Promise]"},
	}

	for _, tt := range tests {
		if got := ToString(tt.v); got != tt.want {
			t.Errorf("ToString(%#v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestToInt32(t *testing.T) {
	tests := []struct {
		v    Value
		want int32
	}{
		{1.9, 1},
		{-1.9, -1},
		{4294967296.0, 0},
		{2147483648.0, -2147483648},
		{math.NaN(), 0},
		{"12", 12},
	}

	for _, tt := range tests {
		if got := ToInt32(tt.v); got != tt.want {
			t.Errorf("ToInt32(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestEquality(t *testing.T) {
	obj := NewObject()
	tests := []struct {
		a, b   Value
		strict bool
		loose  bool
	}{
		{1.0, 1.0, true, true},
		{1.0, "1", false, true},
		{0.0, false, false, true},
		{nil, Undefined, false, true},
		{nil, 0.0, false, false},
		{"", 0.0, false, true},
		{math.NaN(), math.NaN(), false, false},
		{obj, obj, true, true},
		{obj, NewObject(), false, false},
		{big.NewInt(2), 2.0, false, true},
		{NewArray(1.0), "1", false, true},
		{3, 3.0, true, true},
	}

	for _, tt := range tests {
		if got := StrictEquals(tt.a, tt.b); got != tt.strict {
			t.Errorf("StrictEquals(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.strict)
		}
		if got := LooseEquals(tt.a, tt.b); got != tt.loose {
			t.Errorf("LooseEquals(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.loose)
		}
	}

	if !SameValueZero(math.NaN(), math.NaN()) {
		t.Error("SameValueZero(NaN, NaN) should be true")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b Value
		cmp  int
		ok   bool
	}{
		{1.0, 2.0, -1, true},
		{"b", "a", 1, true},
		{"10", 9.0, 1, true},
		{"10", "9", -1, true},
		{big.NewInt(5), 4.5, 1, true},
		{math.NaN(), 1.0, 0, false},
		{Undefined, 1.0, 0, false},
	}

	for _, tt := range tests {
		cmp, ok := Compare(tt.a, tt.b)
		if cmp != tt.cmp || ok != tt.ok {
			t.Errorf("Compare(%v, %v) = %d, %v; want %d, %v", tt.a, tt.b, cmp, ok, tt.cmp, tt.ok)
		}
	}
}

func TestObjectOrderAndAccessors(t *testing.T) {
	o := NewObject()
	o.SetOwn("b", 1.0)
	o.SetOwn("a", 2.0)
	o.SetOwn("b", 3.0)
	if keys := o.Keys(); len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Fatalf("Keys() = %v, want [b a]", keys)
	}

	var stored Value
	o.DefineAccessor("x", NativeFunc(func(this Value, _ []Value) (Value, error) {
		v, _ := this.(*Object).Lookup("a")
		return v, nil
	}), nil)
	o.DefineAccessor("x", nil, NativeFunc(func(_ Value, args []Value) (Value, error) {
		stored = args[0]
		return Undefined, nil
	}))
	if v, err := o.Get("x"); err != nil || v != 2.0 {
		t.Errorf("Get(x) = %v, %v; want 2", v, err)
	}
	if err := o.Set("x", "set"); err != nil || stored != "set" {
		t.Errorf("Set(x) stored %v, err %v", stored, err)
	}

	if !o.Delete("b") || o.Has("b") || o.Delete("b") {
		t.Error("Delete(b) did not remove exactly once")
	}
}

func TestArray(t *testing.T) {
	a := NewArray()
	a.SetAt(2, "c")
	if a.Len() != 3 || !IsUndefined(a.At(0)) {
		t.Fatalf("SetAt did not pad with undefined: %v", a.Elems)
	}
	if a.At(5) != Undefined {
		t.Errorf("At(5) = %v, want undefined", a.At(5))
	}
	a.SetLength(1)
	if a.Len() != 1 {
		t.Errorf("SetLength(1) left %d elements", a.Len())
	}
}

func TestIterate(t *testing.T) {
	it, err := Iterate("héllo")
	if err != nil {
		t.Fatal(err)
	}
	vals, err := Collect(it)
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 5 || vals[1] != "é" {
		t.Errorf("string iteration = %v", vals)
	}

	_, err = Iterate(NewObject())
	var rtErr *Error
	if !errors.As(err, &rtErr) || rtErr.Name != "TypeError" {
		t.Errorf("Iterate(object) error = %v, want TypeError", err)
	}
}

func TestResolve(t *testing.T) {
	v, err := Resolve(&Awaitable{Value: &Awaitable{Value: thenable{7.0}}})
	if err != nil || v != 7.0 {
		t.Errorf("Resolve = %v, %v; want 7", v, err)
	}
}

type thenable struct{ v Value }

func (t thenable) Await() (Value, error) { return t.v, nil }

func TestFromGo(t *testing.T) {
	v := FromGo(map[string]any{
		"n":    3,
		"list": []string{"a", "b"},
		"nested": map[any]any{
			"k": true,
		},
	})
	o, ok := v.(*Object)
	if !ok {
		t.Fatalf("FromGo(map) = %T", v)
	}
	if keys := o.Keys(); keys[0] != "list" || keys[1] != "n" || keys[2] != "nested" {
		t.Errorf("keys not sorted: %v", keys)
	}
	if n, _ := o.Lookup("n"); n != 3.0 {
		t.Errorf("n = %#v, want 3.0", n)
	}
	if l, _ := o.Lookup("list"); l.(*Array).At(1) != "b" {
		t.Errorf("list = %v", l)
	}
	nested, _ := o.Lookup("nested")
	if k, _ := nested.(*Object).Lookup("k"); k != true {
		t.Errorf("nested.k = %v", k)
	}

	back := ToGo(o).(map[string]any)
	if back["n"] != 3.0 {
		t.Errorf("ToGo round trip lost n: %v", back)
	}
}

func TestFromGoFunc(t *testing.T) {
	call := func(fn any, args ...Value) (Value, error) {
		f, ok := FromGo(fn).(Function)
		if !ok {
			return nil, fmt.Errorf("FromGo(%T) = %T, want a function", fn, FromGo(fn))
		}
		return f.Call(Undefined, args)
	}

	tests := []struct {
		name string
		fn   any
		args []Value
		want Value
	}{
		{"float", func(x float64) float64 { return x * 2 }, []Value{21.0}, 42.0},
		{"int truncates", func(n int) int { return n + 1 }, []Value{2.9}, 3.0},
		{"string and bool", func(s string, upper bool) string {
			if upper {
				return s + "!"
			}
			return s
		}, []Value{7.0, 1.0}, "7!"},
		{"missing argument is zero", func(a, b float64) float64 { return a + b }, []Value{1.0}, 1.0},
		{"variadic", func(sep string, parts ...float64) float64 {
			sum := 0.0
			for _, p := range parts {
				sum += p
			}
			return sum
		}, []Value{"-", 1.0, 2.0, 3.0}, 6.0},
		{"any gets plain Go data", func(v any) int { return len(v.([]any)) }, []Value{NewArray(1.0, 2.0)}, 2.0},
		{"no result", func() {}, nil, Undefined},
		{"nil error", func() (string, error) { return "ok", nil }, nil, "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := call(tt.fn, tt.args...)
			if err != nil {
				t.Fatalf("call error = %v", err)
			}
			if got != tt.want {
				t.Errorf("call = %#v, want %#v", got, tt.want)
			}
		})
	}

	pair, err := call(func() (int, string) { return 1, "a" })
	if err != nil {
		t.Fatal(err)
	}
	if arr, ok := pair.(*Array); !ok || arr.Len() != 2 || arr.At(0) != 1.0 || arr.At(1) != "a" {
		t.Errorf("multiple results = %v, want [1, a]", pair)
	}

	boom := errors.New("boom")
	if _, err := call(func() (float64, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Errorf("error result = %v, want boom", err)
	}

	_, err = call(func(m map[string]int) int { return len(m) }, "text")
	var te *Error
	if !errors.As(err, &te) || te.Name != "TypeError" {
		t.Errorf("unconvertible argument error = %v, want TypeError", err)
	}

	var nilFn func()
	if v := FromGo(nilFn); v != nil {
		t.Errorf("FromGo(nil func) = %v, want nil", v)
	}
}

func TestDescribeHostValue(t *testing.T) {
	if got := Describe(make(chan int)); got != "Go value of type chan int" {
		t.Errorf("Describe(chan) = %q", got)
	}
	if got := Describe(1.5); got != "1.5" {
		t.Errorf("Describe(1.5) = %q", got)
	}
}

func TestJSON(t *testing.T) {
	v, err := ParseJSON(`{"b": [1, "x", null], "a": {"t": true}}`)
	if err != nil {
		t.Fatal(err)
	}
	s, ok, err := Stringify(v, "")
	if err != nil || !ok {
		t.Fatalf("Stringify: %v %v", ok, err)
	}
	if s != `{"b":[1,"x",null],"a":{"t":true}}` {
		t.Errorf("Stringify = %s", s)
	}

	o := ObjectOf("u", Undefined, "f", NativeFunc(nil), "s", "<&>")
	s, _, _ = Stringify(o, "")
	if s != `{"s":"<&>"}` {
		t.Errorf("Stringify skipped fields = %s", s)
	}

	s, _, _ = Stringify(NewArray(1.0, ObjectOf("a", 2.0)), "  ")
	want := "[\n  1,\n  {\n    \"a\": 2\n  }\n]"
	if s != want {
		t.Errorf("indented = %q, want %q", s, want)
	}

	if _, ok, _ := Stringify(Undefined, ""); ok {
		t.Error("Stringify(undefined) should report ok=false")
	}

	cyclic := NewObject()
	cyclic.SetOwn("self", cyclic)
	if _, _, err := Stringify(cyclic, ""); err == nil {
		t.Error("expected circular structure error")
	}

	if _, err := ParseJSON(`{"a":1} x`); err == nil {
		t.Error("expected trailing data error")
	}
}
