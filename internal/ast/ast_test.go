package ast_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/kolkov/uexpr/internal/ast"
	"github.com/kolkov/uexpr/internal/parser"
	"github.com/kolkov/uexpr/internal/runtime"
	"github.com/kolkov/uexpr/internal/scope"
	"github.com/kolkov/uexpr/internal/token"
	"github.com/kolkov/uexpr/internal/types"
)

func parse(t *testing.T, src string) ast.Node {
	t.Helper()
	n, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", src, err)
	}
	return n
}

func newStack(vars map[string]any) *scope.Stack {
	s := scope.New()
	for name, v := range runtime.Globals() {
		s.Define(name, v)
	}
	frame := s.NewFunctionStack()
	for name, v := range vars {
		frame.Define(name, types.FromGo(v))
	}
	return frame
}

func eval(t *testing.T, src string, vars map[string]any) any {
	t.Helper()
	v, err := parse(t, src).Get(newStack(vars))
	if err != nil {
		t.Fatalf("Get(%q) error = %v", src, err)
	}
	return types.ToGo(v)
}

// TestNodeInterface verifies every node kind the parser builds reports a
// registered tag.
func TestNodeInterface(t *testing.T) {
	src := "function f(a, ...b) { let [c, {d}] = b; for (const k in a) {} for (x of b) {} " +
		"while (c) break; do {} while (0); for (;;) continue; switch (d) { case 1: default: } " +
		"try { throw a } catch (e) {} finally {} if (a) ; else return `t${a}` } " +
		"o = {a, [k]: 1, ...r}; o?.p[q](...s); new C; x |> y; async (z) => await z; " +
		"-a, !b, typeof c, ++d, e--, f ** 2, g && h, i ? j : k, (l), m = n, /re/g, 1n, 'str', true, null, undefined, this, [,]"
	seen := map[string]bool{}
	ast.Walk(parse(t, src), func(n ast.Node) bool {
		tag := n.Tag()
		if !ast.Registered(tag) {
			t.Errorf("node %T has unregistered tag %q", n, tag)
		}
		seen[tag] = true
		return true
	})
	for _, tag := range []string{
		"statement", "function", "param", "destructuring", "pattern-property",
		"for-in", "for-of", "while", "for", "switch", "case", "try", "throw",
		"if", "return", "template", "object", "optional", "call", "spread",
		"new", "pipeline", "arrow", "literal-unary", "unary", "update",
		"binary", "logical", "ternary", "grouping", "assignment", "regexp",
		"bigint", "string", "literal", "property", "array", "elision",
		"let", "do-while", "block", "terminate", "empty", "comma", "member",
		"computed-member", "number",
	} {
		if !seen[tag] {
			t.Errorf("tag %q not produced", tag)
		}
	}
}

func TestEntry(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"a + b * a", []string{"a", "b"}},
		{"o.k[i]", []string{"o", "i"}},
		{"f(x, ...ys)", []string{"f", "x", "ys"}},
		{"(x, y) => x + z", []string{"z"}},
		{"function g(a) { return a + h }", []string{"h"}},
		{"let z = 1; z + w", []string{"w"}},
		{"1 + 2", nil},
		{"`${a}${b}`", []string{"a", "b"}},
	}
	for _, tc := range tests {
		got := parse(t, tc.src).Entry()
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Entry(%q) = %v, want %v", tc.src, got, tc.want)
		}
	}
}

func TestEvent(t *testing.T) {
	tests := []struct {
		src    string
		parent string
		want   []string
	}{
		{"a.b.c", "", []string{"a.b.c"}},
		{"a + b.c", "", []string{"a", "b.c"}},
		{"a.b", "ctx", []string{"ctx.a.b"}},
		{"a[0]", "", []string{"a.*"}},
		{"x ? y.z : w", "", []string{"x", "y.z", "w"}},
	}
	for _, tc := range tests {
		got := parse(t, tc.src).Event(tc.parent)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Event(%q, %q) = %v, want %v", tc.src, tc.parent, got, tc.want)
		}
	}

	if got := parse(t, "x => x.y").Event(""); len(got) != 0 {
		t.Errorf("functions observe nothing until called, got %v", got)
	}
}

func TestDestructuringDispatch(t *testing.T) {
	s := newStack(map[string]any{
		"arr": []any{1, 2, 3},
		"obj": map[string]any{"a": 1, "b": 2, "c": 3},
		"str": "xyz",
	})
	for _, src := range []string{
		"[a, ...b] = arr",
		"({a: oa, ...rest} = obj)",
		"[c1, c2] = str",
		"const {b: renamed, missing = 'dflt'} = obj",
	} {
		if _, err := parse(t, src).Get(s); err != nil {
			t.Fatalf("Get(%q) error = %v", src, err)
		}
	}

	check := func(name string, want any) {
		t.Helper()
		v, _ := s.Get(name)
		if got := types.ToGo(v); !reflect.DeepEqual(got, want) {
			t.Errorf("%s = %#v, want %#v", name, got, want)
		}
	}
	check("a", 1.0)
	check("b", []any{2.0, 3.0})
	check("oa", 1.0)
	check("rest", map[string]any{"b": 2.0, "c": 3.0})
	check("c1", "x")
	check("c2", "y")
	check("renamed", 2.0)
	check("missing", "dflt")
}

// countTo is a host iterable yielding 1..n.
type countTo int

func (c countTo) Iterator() types.Iterator {
	i := 0
	return types.IteratorFunc(func() (types.Value, bool, error) {
		if i >= int(c) {
			return types.Undefined, false, nil
		}
		i++
		return float64(i), true, nil
	})
}

// TestDestructuringValueShapes evaluates one parsed pattern against each
// kind of source value. The value, not the pattern, picks the binding
// strategy.
func TestDestructuringValueShapes(t *testing.T) {
	shapes := []struct {
		name  string
		value types.Value
	}{
		{"array", types.FromGo([]any{1, 2, 3})},
		{"string", "xyz"},
		{"iterable", countTo(3)},
		{"object", types.FromGo(map[string]any{"a": 1, "b": 2, "c": 3})},
	}
	byOrder := map[string][]any{
		"array":    {1.0, 2.0, []any{3.0}},
		"string":   {"x", "y", []any{"z"}},
		"iterable": {1.0, 2.0, []any{3.0}},
	}
	patterns := []struct {
		src    string
		object []any // result for the object source
	}{
		{"[a, b, ...r] = src", []any{nil, nil, map[string]any{"a": 1.0, "b": 2.0, "c": 3.0}}},
		{"({a, b, ...r} = src)", []any{1.0, 2.0, map[string]any{"c": 3.0}}},
		{"let {a, b, ...r} = src", []any{1.0, 2.0, map[string]any{"c": 3.0}}},
		{"const [a, b, ...r] = src", []any{nil, nil, map[string]any{"a": 1.0, "b": 2.0, "c": 3.0}}},
	}

	for _, pat := range patterns {
		node := parse(t, pat.src)
		for _, shape := range shapes {
			t.Run(pat.src+"/"+shape.name, func(t *testing.T) {
				s := newStack(nil)
				s.Define("src", shape.value)
				if _, err := node.Get(s); err != nil {
					t.Fatalf("Get error = %v", err)
				}
				want := byOrder[shape.name]
				if shape.name == "object" {
					want = pat.object
				}
				for i, name := range []string{"a", "b", "r"} {
					v, _ := s.Get(name)
					if got := types.ToGo(v); !reflect.DeepEqual(got, want[i]) {
						t.Errorf("%s = %#v, want %#v", name, got, want[i])
					}
				}
			})
		}
	}

	for _, src := range []string{"({a} = src)", "[a] = src"} {
		s := newStack(nil)
		s.Define("src", nil)
		if _, err := parse(t, src).Get(s); err == nil {
			t.Errorf("%s with null source should fail", src)
		}
	}
}

func TestLoopScoping(t *testing.T) {
	got := eval(t, "const fs = []; for (let i of [1, 2, 3]) { fs.push(() => i) } fs.map(f => f())", nil)
	if !reflect.DeepEqual(got, []any{1.0, 2.0, 3.0}) {
		t.Errorf("for-of closures = %v, want [1 2 3]", got)
	}

	got = eval(t, "const fs = []; for (var i of [1, 2, 3]) { fs.push(() => i) } fs.map(f => f())", nil)
	if !reflect.DeepEqual(got, []any{3.0, 3.0, 3.0}) {
		t.Errorf("var closures = %v, want [3 3 3]", got)
	}

	got = eval(t, "const keys = []; for (const k in {x: 1, y: 2}) keys.push(k); keys", nil)
	if !reflect.DeepEqual(got, []any{"x", "y"}) {
		t.Errorf("for-in keys = %v", got)
	}
}

func TestStatements(t *testing.T) {
	tests := []struct {
		src  string
		want any
	}{
		{"let n = 0; while (n < 5) n++; n", 5.0},
		{"let n = 0; do { n += 2 } while (n < 5); n", 6.0},
		{"let s = 0; for (let i = 0; i < 10; i++) { if (i % 2) continue; if (i > 6) break; s += i } s", 12.0},
		{"let r = ''; switch (2) { case 1: r += 'a'; case 2: r += 'b'; case 3: r += 'c'; break; default: r += 'd' } r", "bc"},
		{"let r; switch (9) { case 1: r = 1; break; default: r = 'dflt' } r", "dflt"},
		{"let r; try { throw 'boom' } catch (e) { r = e } r", "boom"},
		{"let r = []; try { r.push(1) } finally { r.push(2) } r", []any{1.0, 2.0}},
		{"let m; try { null.x } catch ({message}) { m = typeof message } m", "string"},
		{"function fact(n) { return n <= 1 ? 1 : n * fact(n - 1) } fact(5)", 120.0},
		{"const add = (a, b = 10) => a + b; add(1)", 11.0},
		{"const sum = (...xs) => xs.reduce((a, b) => a + b, 0); sum(1, 2, 3)", 6.0},
		{"if (0) 'a'; else if (1) 'b'; else 'c'", "b"},
		{"var x = 1; { var x = 2 } x", 2.0},
		{"let y = 1; { let y = 2 } y", 1.0},
		{"hoisted(); function hoisted() { return 'ok' }", "ok"},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			if got := eval(t, tc.src, nil); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestExpressions(t *testing.T) {
	vars := map[string]any{
		"user": map[string]any{"name": "ada", "tags": []any{"a", "b"}},
		"n":    4,
	}
	tests := []struct {
		src  string
		want any
	}{
		{"user.name.toUpperCase()", "ADA"},
		{"user.tags.length", 2.0},
		{"user?.missing?.deep", nil},
		{"`${user.name} has ${n} items`", "ada has 4 items"},
		{"n > 3 && 'big' || 'small'", "big"},
		{"n ?? 0", 4.0},
		{"[...user.tags, 'c'].join('')", "abc"},
		{"({...user, n}).n", 4.0},
		{"({get twice() { return n * 2 }}).twice", 8.0},
		{"typeof missing", "undefined"},
		{"void n", nil},
		{"(1, 2, 3)", 3.0},
		{"'b' in {b: 1}", true},
		{"[] instanceof Array", true},
		{"10n + 5n === 15n", true},
		{"/a(b)/.exec('xab')[1]", "b"},
		{"n |> Math.sqrt", 2.0},
		{"x = 1, x += 1, x", 2.0},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			if got := eval(t, tc.src, vars); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	s := newStack(nil)

	var evalErr *ast.EvalError
	if _, err := parse(t, "1").Set(s, 2.0); !errors.As(err, &evalErr) {
		t.Errorf("Set on a literal: error = %v, want *ast.EvalError", err)
	}
	if _, err := parse(t, "delete 1").Get(s); !errors.As(err, &evalErr) || !strings.Contains(err.Error(), "delete requires a property access") {
		t.Errorf("delete on a literal: error = %v", err)
	}

	var thrown *types.ThrowError
	if _, err := parse(t, "throw {code: 7}").Get(s); !errors.As(err, &thrown) {
		t.Errorf("throw: error = %v, want *types.ThrowError", err)
	}

	if _, err := parse(t, "const c = 1; c = 2").Get(s); err == nil {
		t.Error("assignment to const should fail")
	}
	if _, err := parse(t, "undefinedFn()").Get(s); err == nil {
		t.Error("calling undefined should fail")
	}

	var ret *ast.ReturnError
	if _, err := parse(t, "return 5").Get(s); !errors.As(err, &ret) || ret.Value != 5.0 {
		t.Errorf("top-level return: error = %v", err)
	}
	if _, err := parse(t, "break").Get(s); !errors.Is(err, ast.ErrBreak) {
		t.Errorf("break outside a loop: error = %v", err)
	}
}

func TestSetThroughNodes(t *testing.T) {
	s := newStack(map[string]any{"o": map[string]any{}})
	if _, err := parse(t, "o.a").Set(s, 1.0); err != nil {
		t.Fatal(err)
	}
	if _, err := parse(t, "o['b']").Set(s, 2.0); err != nil {
		t.Fatal(err)
	}
	if _, err := parse(t, "[x, y]").Set(s, types.NewArray("p", "q")); err == nil {
		t.Error("an array literal is not assignable without = reinterpretation")
	}
	v, _ := s.Get("o")
	if got := types.ToGo(v); !reflect.DeepEqual(got, map[string]any{"a": 1.0, "b": 2.0}) {
		t.Errorf("o = %v", got)
	}
}

func TestAwait(t *testing.T) {
	s := newStack(nil)
	v, err := parse(t, "async function f() { return 1 } f()").Get(s)
	if err != nil {
		t.Fatal(err)
	}
	aw, ok := v.(*types.Awaitable)
	if !ok {
		t.Fatalf("async call returned %T, want *types.Awaitable", v)
	}
	if got, err := aw.Resolve(); err != nil || got != 1.0 {
		t.Errorf("Resolve() = %v, %v", got, err)
	}

	v, err = parse(t, "await 3").Get(s)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := types.Resolve(v); got != 3.0 {
		t.Errorf("await outside async = %v, want wrapped 3", got)
	}
}

func TestRoundTripStrings(t *testing.T) {
	sources := []string{
		"a + b * c",
		"x = y ?? z",
		"a?.b.c",
		"({a, b: 1, ...c})",
		"[a, ...b] = c",
		"(a, b = 1) => a + b",
		"for (const x of xs) { total += x }",
		"switch (k) { case 1: a; break; default: b }",
		"try { f() } catch (e) { g(e) }",
		"x |> f:1:?",
	}
	for _, src := range sources {
		n := parse(t, src)
		data, err := json.Marshal(n)
		if err != nil {
			t.Fatalf("Marshal(%q) error = %v", src, err)
		}
		back, err := ast.Deserialize(data)
		if err != nil {
			t.Fatalf("Deserialize(%q) error = %v", src, err)
		}
		if back.String() != n.String() {
			t.Errorf("round trip %q: got %q, want %q", src, back.String(), n.String())
		}
		if !ast.Equal(back, n) {
			t.Errorf("round trip %q changed the tree", src)
		}
	}
}

func TestDeserializeErrors(t *testing.T) {
	tests := []struct {
		data string
		want string
	}{
		{`{"tag":"bogus"}`, `unknown node type "bogus"`},
		{`not json`, "invalid node"},
		{`null`, "empty tree"},
		{`{"tag":"binary","op":"+","left":{"tag":"nope"},"right":null}`, `unknown node type "nope"`},
		{`{"tag":"binary","op":"<>","left":{"tag":"number","raw":"1"},"right":{"tag":"number","raw":"2"}}`, "unknown operator"},
		{`{"tag":"member","name":"x"}`, "missing"},
	}
	for _, tc := range tests {
		_, err := ast.Deserialize([]byte(tc.data))
		if err == nil {
			t.Errorf("Deserialize(%s) succeeded", tc.data)
			continue
		}
		var derr *ast.DecodeError
		if !errors.As(err, &derr) {
			t.Errorf("Deserialize(%s) error type = %T", tc.data, err)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("Deserialize(%s) error = %q, want %q", tc.data, err, tc.want)
		}
	}
}

func TestRegister(t *testing.T) {
	if !ast.Registered("binary") || ast.Registered("bogus") {
		t.Error("unexpected registry contents")
	}
	defer func() {
		if recover() == nil {
			t.Error("registering a tag twice should panic")
		}
	}()
	ast.Register("binary", func(*ast.Decoder, []byte) (ast.Node, error) { return nil, nil })
}

func TestEqual(t *testing.T) {
	if !ast.Equal(parse(t, "a  +  1"), parse(t, "a + 1")) {
		t.Error("trees differing only in layout should be equal")
	}
	if ast.Equal(parse(t, "a + 1"), parse(t, "a + 2")) {
		t.Error("different literals should differ")
	}
	if !ast.Equal(nil, nil) || ast.Equal(parse(t, "a"), nil) {
		t.Error("nil handling")
	}
}

func TestWalk(t *testing.T) {
	count := 0
	ast.Walk(parse(t, "a + b.c(d)"), func(n ast.Node) bool {
		if _, ok := n.(*ast.Property); ok {
			count++
		}
		return true
	})
	if count != 3 {
		t.Errorf("identifier count = %d, want 3", count)
	}

	// Returning false prunes the subtree.
	visited := 0
	ast.Walk(parse(t, "f(g(h(x)))"), func(n ast.Node) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Errorf("visited %d nodes, want 1", visited)
	}
}

func TestInspectWithParent(t *testing.T) {
	root := parse(t, "x * (y + 1)")
	parents := map[string]string{}
	ast.Inspect(root, func(n, parent ast.Node) bool {
		if p, ok := n.(*ast.Property); ok {
			parents[p.Name] = parent.Tag()
		}
		if n == root && parent != nil {
			t.Error("root should have no parent")
		}
		return true
	})
	if parents["x"] != "binary" || parents["y"] != "binary" {
		t.Errorf("parents = %v", parents)
	}
}

func TestChildren(t *testing.T) {
	obj := parse(t, "({a: 1, [k]: 2})").(*ast.Grouping).Expr
	kids := ast.Children(obj)
	// the literal key a is not a child; the computed key k is
	if len(kids) != 3 {
		t.Fatalf("children = %d, want 3", len(kids))
	}
	if p, ok := kids[1].(*ast.Property); !ok || p.Name != "k" {
		t.Errorf("second child = %v, want k", kids[1])
	}
	if got := ast.Children(parse(t, "a")); len(got) != 0 {
		t.Errorf("identifier has children %v", got)
	}
}

func TestPrinter(t *testing.T) {
	var sb strings.Builder
	if err := ast.NewPrinter(&sb).Print(parse(t, "a + 1")); err != nil {
		t.Fatal(err)
	}
	want := "binary + @1:1\n  property a @1:1\n  number 1 @1:5\n"
	if sb.String() != want {
		t.Errorf("Print() =\n%s\nwant\n%s", sb.String(), want)
	}

	sb.Reset()
	n, _ := ast.Deserialize([]byte(`{"tag":"unary","op":"-","operand":{"tag":"property","name":"x"}}`))
	if err := ast.NewPrinter(&sb).Print(n); err != nil {
		t.Fatal(err)
	}
	if sb.String() != "unary -\n  property x\n" {
		t.Errorf("deserialized trees print without positions, got %q", sb.String())
	}
}

func TestPrintSource(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"a+b*c", "a + b * c"},
		{"if(a)b;else c", "if (a) b; else c"},
		{"do{x++}while(x<3)", "do { x++ } while (x < 3)"},
		{"let [a,,b]=c", "let [a, , b] = c"},
		{"x=>x", "x => x"},
		{"async(a,b)=>{return a}", "async (a, b) => { return a }"},
		{"f(...a)", "f(...a)"},
		{"o?.[k]", "o?.[k]"},
		{"x|>f(1,?)", "x |> f(1, ?)"},
	}
	for _, tc := range tests {
		if got := parse(t, tc.src).String(); got != tc.want {
			t.Errorf("String(%q) = %q, want %q", tc.src, got, tc.want)
		}
	}
}

func TestSingletons(t *testing.T) {
	if ast.Break.Continue || !ast.Continue.Continue {
		t.Error("terminate singletons swapped")
	}
	if ast.This.Name != "this" {
		t.Errorf("This.Name = %q", ast.This.Name)
	}
	if _, err := ast.This.Set(newStack(nil), 1.0); err == nil {
		t.Error("assigning to this should fail")
	}
	n, err := ast.Deserialize([]byte(`{"tag":"terminate","kind":"break"}`))
	if err != nil || n != ast.Break {
		t.Errorf("break decodes to %v, %v", n, err)
	}
	if op := token.Lookup("??"); op != token.NULLISH {
		t.Errorf("Lookup(??) = %s", op)
	}
}
