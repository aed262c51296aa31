package uexpr_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/kolkov/uexpr"
	"github.com/kolkov/uexpr/internal/types"
)

func TestEval(t *testing.T) {
	tests := []struct {
		name string
		src  string
		vars map[string]any
		want any
	}{
		{
			name: "arithmetic",
			src:  "a + b * 2",
			vars: map[string]any{"a": 1, "b": 2},
			want: 5.0,
		},
		{
			name: "member access",
			src:  "user.name",
			vars: map[string]any{"user": map[string]any{"name": "ada"}},
			want: "ada",
		},
		{
			name: "unbound name is undefined",
			src:  "missing",
			want: nil,
		},
		{
			name: "nullish default",
			src:  "user.nick ?? 'anonymous'",
			vars: map[string]any{"user": map[string]any{}},
			want: "anonymous",
		},
		{
			name: "array methods",
			src:  "items.filter(x => x > limit).length",
			vars: map[string]any{"items": []any{1, 5, 10}, "limit": 3},
			want: 2.0,
		},
		{
			name: "object result",
			src:  "({a: 1, b: [true, null]})",
			want: map[string]any{"a": 1.0, "b": []any{true, nil}},
		},
		{
			name: "statements yield the last value",
			src:  "let x = 1; x + 1",
			want: 2.0,
		},
		{
			name: "top-level return",
			src:  "if (n > 1) return 'many'; return 'one'",
			vars: map[string]any{"n": 3},
			want: "many",
		},
		{
			name: "template",
			src:  "`${greeting}, ${names.join(' and ')}!`",
			vars: map[string]any{"greeting": "hi", "names": []string{"a", "b"}},
			want: "hi, a and b!",
		},
		{
			name: "pipeline",
			src:  "xs |> Math.max(...?)",
			vars: map[string]any{"xs": []any{3, 9, 4}},
			want: 9.0,
		},
		{
			name: "host function",
			src:  "double(21)",
			vars: map[string]any{"double": func(args ...types.Value) types.Value {
				return types.ToNumber(types.Arg(args, 0)) * 2
			}},
			want: 42.0,
		},
		{
			name: "typed host func",
			src:  "sq(4) + len('abc')",
			vars: map[string]any{
				"sq":  func(x float64) float64 { return x * x },
				"len": func(s string) int { return len(s) },
			},
			want: 19.0,
		},
		{
			name: "object pattern over an array",
			src:  "({a, b} = arr); [a, b]",
			vars: map[string]any{"arr": []any{1, 2}},
			want: []any{1.0, 2.0},
		},
		{
			name: "declared object pattern over an array",
			src:  "let {a, b} = arr; [a, b]",
			vars: map[string]any{"arr": []any{1, 2}},
			want: []any{1.0, 2.0},
		},
		{
			name: "await outside async",
			src:  "await 5",
			want: 5.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := uexpr.Eval(tt.src, tt.vars)
			if err != nil {
				t.Fatalf("Eval(%q) error = %v", tt.src, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Eval(%q) = %#v, want %#v", tt.src, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src    string
		want   string
		line   int
		column int
	}{
		{"a + )", "parse error", 1, 5},
		{"break", "Illegal break statement", 1, 1},
		{"let a; let a", "has already been declared", 1, 12},
		{"const c = 1;\nc = 2", "Assignment to constant variable", 2, 1},
	}
	for _, tt := range tests {
		_, err := uexpr.Parse(tt.src)
		var pe *uexpr.ParseError
		if !errors.As(err, &pe) {
			t.Errorf("Parse(%q) error = %v (%T), want *ParseError", tt.src, err, err)
			continue
		}
		if !strings.Contains(pe.Error(), tt.want) {
			t.Errorf("Parse(%q) error = %q, want substring %q", tt.src, pe.Error(), tt.want)
		}
		if pe.Line != tt.line || pe.Column != tt.column {
			t.Errorf("Parse(%q) position = %d:%d, want %d:%d", tt.src, pe.Line, pe.Column, tt.line, tt.column)
		}
	}
}

func TestLexError(t *testing.T) {
	_, err := uexpr.Parse("'open")
	var le *uexpr.LexError
	if !errors.As(err, &le) {
		t.Fatalf("error = %v (%T), want *LexError", err, err)
	}
	if !strings.HasPrefix(le.Error(), "lexical error at 1:1: ") {
		t.Errorf("Error() = %q", le.Error())
	}
}

func TestIsUnsupported(t *testing.T) {
	for _, src := range []string{"class A {}", "function* g() {}", "eval('1')", "l: for (;;) {}"} {
		_, err := uexpr.Parse(src)
		if !uexpr.IsUnsupported(err) {
			t.Errorf("Parse(%q) error = %v, want unsupported", src, err)
		}
	}
	if _, err := uexpr.Parse("a +"); uexpr.IsUnsupported(err) {
		t.Error("syntax error reported as unsupported")
	}
	if uexpr.IsUnsupported(nil) {
		t.Error("nil reported as unsupported")
	}
}

func TestRuntimeError(t *testing.T) {
	_, err := uexpr.Eval("o.a.b", map[string]any{"o": map[string]any{}})
	var re *uexpr.RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("error = %v (%T), want *RuntimeError", err, err)
	}
	var te *types.Error
	if !errors.As(err, &te) || te.Name != "TypeError" {
		t.Errorf("underlying error = %v, want TypeError", re.Err)
	}
	if !strings.HasPrefix(err.Error(), "runtime error: ") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestThrown(t *testing.T) {
	_, err := uexpr.Eval("throw {code: 7}", nil)
	v, ok := uexpr.Thrown(err)
	if !ok {
		t.Fatalf("Thrown(%v) found no value", err)
	}
	if got := types.ToGo(v); !reflect.DeepEqual(got, map[string]any{"code": 7.0}) {
		t.Errorf("thrown value = %#v", got)
	}

	// Caught errors never reach the host.
	got, err := uexpr.Eval("try { throw 1 } catch (e) { e + 1 }", nil)
	if err != nil || got != 2.0 {
		t.Errorf("try/catch = %v, %v", got, err)
	}

	if _, ok := uexpr.Thrown(errors.New("plain")); ok {
		t.Error("plain error reported as thrown")
	}
}

func TestMustParse(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustParse should panic on invalid source")
		}
	}()
	uexpr.MustParse("(")
}

func TestMustParseValid(t *testing.T) {
	expr := uexpr.MustParse("a ?? b")
	if expr == nil {
		t.Fatal("MustParse returned nil")
	}
}

func TestExpressionGetSet(t *testing.T) {
	s := uexpr.NewStack(map[string]any{"o": map[string]any{}})

	target := uexpr.MustParse("o.count")
	if _, err := target.Set(s, 5); err != nil {
		t.Fatalf("Set error = %v", err)
	}
	v, err := uexpr.MustParse("o.count += 1").Get(s)
	if err != nil || v != 6.0 {
		t.Errorf("o.count += 1 = %v, %v", v, err)
	}

	if _, err := uexpr.MustParse("pair").Set(s, []any{1, map[string]any{"b": 2}}); err != nil {
		t.Fatalf("Set error = %v", err)
	}
	v, err = uexpr.MustParse("[a, {b}] = pair; a + b").Get(s)
	if err != nil || v != 3.0 {
		t.Errorf("a + b = %v, %v", v, err)
	}

	if _, err := uexpr.MustParse("1 + 2").Set(s, 1); err == nil {
		t.Error("assigning to a binary expression should fail")
	}
}

func TestExpressionEntryEvent(t *testing.T) {
	expr := uexpr.MustParse("price * (1 + tax.rate) + price")
	if got, want := expr.Entry(), []string{"price", "tax"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Entry() = %v, want %v", got, want)
	}
	if got, want := expr.Event("row"), []string{"row.price", "row.tax.rate"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Event(row) = %v, want %v", got, want)
	}
}

func TestExpressionSource(t *testing.T) {
	src := "a+b  *c"
	expr := uexpr.MustParse(src)
	if expr.Source() != src {
		t.Errorf("Source() = %q, want %q", expr.Source(), src)
	}
	if expr.String() != "a + b * c" {
		t.Errorf("String() = %q", expr.String())
	}
	if expr.Tag() != "binary" {
		t.Errorf("Tag() = %q", expr.Tag())
	}
}

func TestDeserialize(t *testing.T) {
	expr := uexpr.MustParse("xs.map((x, i) => x * i).join('-')")
	data, err := json.Marshal(expr)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	back, err := uexpr.Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize error = %v", err)
	}
	if back.String() != expr.String() || back.Source() != expr.String() {
		t.Errorf("round trip = %q, want %q", back.String(), expr.String())
	}
	v, err := back.Get(uexpr.NewStack(map[string]any{"xs": []any{1, 2, 3}}))
	if err != nil || v != "0-2-6" {
		t.Errorf("restored Get = %v, %v", v, err)
	}
}

func TestDeserializeErrors(t *testing.T) {
	tests := []struct {
		data string
		want string
	}{
		{`null`, "deserialize error: empty tree"},
		{`{"tag": "nope"}`, `deserialize error in nope: unknown node type "nope"`},
		{`[1, 2]`, "deserialize error: invalid node"},
	}
	for _, tt := range tests {
		_, err := uexpr.Deserialize([]byte(tt.data))
		var de *uexpr.DeserializeError
		if !errors.As(err, &de) {
			t.Errorf("Deserialize(%s) error = %v (%T)", tt.data, err, err)
			continue
		}
		if !strings.HasPrefix(de.Error(), tt.want) {
			t.Errorf("Deserialize(%s) error = %q, want prefix %q", tt.data, de.Error(), tt.want)
		}
	}
}

func TestNewStackIsolation(t *testing.T) {
	a := uexpr.NewStack(nil)
	b := uexpr.NewStack(nil)
	if _, err := uexpr.MustParse("Math.answer = 42; leaked = 1").Get(a); err != nil {
		t.Fatalf("Get error = %v", err)
	}
	v, err := uexpr.MustParse("[Math.answer, typeof leaked]").Get(b)
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	if got := types.ToGo(v); !reflect.DeepEqual(got, []any{nil, "undefined"}) {
		t.Errorf("second stack observed %v", got)
	}
}

func TestStatementsPersistAcrossEvaluations(t *testing.T) {
	s := uexpr.NewStack(nil)
	if _, err := uexpr.MustParse("let total = 10").Get(s); err != nil {
		t.Fatal(err)
	}
	v, err := uexpr.MustParse("total * 2").Get(s)
	if err != nil || v != 20.0 {
		t.Errorf("total * 2 = %v, %v", v, err)
	}
}

type promise struct {
	value types.Value
	err   error
}

func (p promise) Await() (types.Value, error) { return p.value, p.err }

func TestAwait(t *testing.T) {
	v, err := uexpr.MustParse("await 5").Get(uexpr.NewStack(nil))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := v.(*types.Awaitable); !ok {
		t.Fatalf("await yielded %T, want *types.Awaitable", v)
	}
	if got, err := uexpr.Await(v); err != nil || got != 5.0 {
		t.Errorf("Await = %v, %v", got, err)
	}

	if got, err := uexpr.Await(promise{value: "done"}); err != nil || got != "done" {
		t.Errorf("Await(thenable) = %v, %v", got, err)
	}
	boom := errors.New("boom")
	if _, err := uexpr.Await(promise{err: boom}); !errors.Is(err, boom) {
		t.Errorf("Await error = %v, want wrapped boom", err)
	}
	if got, err := uexpr.Await("plain"); err != nil || got != "plain" {
		t.Errorf("Await(plain) = %v, %v", got, err)
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	if err := uexpr.MustParse("a + 1").Print(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"binary", "property", "number"} {
		if !strings.Contains(out, want) {
			t.Errorf("Print output missing %q:\n%s", want, out)
		}
	}
}

func TestConfig(t *testing.T) {
	expr, err := uexpr.ParseConfig("1 + 2 * 3", &uexpr.Config{FoldConstants: true})
	if err != nil {
		t.Fatal(err)
	}
	if expr.String() != "7" {
		t.Errorf("folded String() = %q, want 7", expr.String())
	}
	if uexpr.MustParse("1 + 2 * 3").String() != "1 + 2 * 3" {
		t.Error("folding must be off by default")
	}

	deep := strings.Repeat("(", 30) + "1" + strings.Repeat(")", 30)
	if _, err := uexpr.ParseConfig(deep, &uexpr.Config{MaxDepth: 10}); err == nil {
		t.Error("MaxDepth not enforced")
	}
	if _, err := uexpr.ParseConfig(deep, nil); err != nil {
		t.Errorf("default depth rejected %d levels: %v", 30, err)
	}
}

func TestConfigNotModified(t *testing.T) {
	cfg := &uexpr.Config{}
	if _, err := uexpr.ParseConfig("1", cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := uexpr.NewCache(cfg); err != nil {
		t.Fatal(err)
	}
	if *cfg != (uexpr.Config{}) {
		t.Errorf("config modified: %+v", *cfg)
	}
}

func TestConfigLoggerIsPerConfig(t *testing.T) {
	const record = "regexp uses backtracking engine"
	newLogger := func(w *bytes.Buffer) *slog.Logger {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	var first, second bytes.Buffer

	tests := []struct {
		name   string
		src    string
		config *uexpr.Config
		logs   *bytes.Buffer
	}{
		{"first logger", `/(a)\1/.test("aa")`, &uexpr.Config{Logger: newLogger(&first)}, &first},
		{"second logger same pattern", `/(a)\1/.test("aa")`, &uexpr.Config{Logger: newLogger(&second)}, &second},
		{"no logger", `/(b)\1/y.test("bb")`, &uexpr.Config{}, nil},
		{"nil config", `/(c)\1/.test("cc")`, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			firstLen, secondLen := first.Len(), second.Len()
			if _, err := uexpr.ParseConfig(tt.src, tt.config); err != nil {
				t.Fatal(err)
			}
			if tt.logs == nil {
				if first.Len() != firstLen || second.Len() != secondLen {
					t.Errorf("parse without a logger wrote to another config's logger:\n%s\n%s", first.String(), second.String())
				}
				return
			}
			if !strings.Contains(tt.logs.String(), record) {
				t.Errorf("log missing %q:\n%s", record, tt.logs.String())
			}
		})
	}

	if n := strings.Count(first.String(), record); n != 1 {
		t.Errorf("first logger got %d records, want 1:\n%s", n, first.String())
	}
	if n := strings.Count(second.String(), record); n != 1 {
		t.Errorf("second logger got %d records, want 1:\n%s", n, second.String())
	}
}

func TestCache(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cache, err := uexpr.NewCache(&uexpr.Config{CacheSize: 2, Logger: logger})
	if err != nil {
		t.Fatal(err)
	}

	first, err := cache.Parse("a + 1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := cache.Parse("a + 1")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("cache returned a different expression for the same source")
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}

	if _, err := cache.Parse("a +"); err == nil {
		t.Error("invalid source parsed")
	}
	if cache.Len() != 1 {
		t.Errorf("failed parse was cached, Len() = %d", cache.Len())
	}

	for _, src := range []string{"b", "c", "d"} {
		if _, err := cache.Parse(src); err != nil {
			t.Fatal(err)
		}
	}
	if cache.Len() != 2 {
		t.Errorf("Len() = %d, want 2 after eviction", cache.Len())
	}

	cache.Purge()
	if cache.Len() != 0 {
		t.Errorf("Len() = %d after Purge", cache.Len())
	}

	for _, want := range []string{"expression cache hit", "expression cache miss", "parse failed"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("log missing %q:\n%s", want, logs.String())
		}
	}
}

func TestCacheDefaultSize(t *testing.T) {
	cache, err := uexpr.NewCache(nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < uexpr.DefaultCacheSize+10; i++ {
		if _, err := cache.Parse(fmt.Sprintf("x + %d", i)); err != nil {
			t.Fatal(err)
		}
	}
	if cache.Len() != uexpr.DefaultCacheSize {
		t.Errorf("Len() = %d, want %d", cache.Len(), uexpr.DefaultCacheSize)
	}
}

func BenchmarkEval(b *testing.B) {
	vars := map[string]any{"a": 1, "b": 2}
	for i := 0; i < b.N; i++ {
		_, _ = uexpr.Eval("a + b * 2", vars)
	}
}

func BenchmarkParsedGet(b *testing.B) {
	expr := uexpr.MustParse("items.filter(x => x > 2).length")
	s := uexpr.NewStack(map[string]any{"items": []any{1, 2, 3, 4, 5}})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = expr.Get(s)
	}
}

func ExampleEval() {
	v, err := uexpr.Eval("a + b * 2", map[string]any{"a": 1, "b": 2})
	if err != nil {
		panic(err)
	}
	fmt.Println(v)
	// Output: 5
}

func ExampleExpression_Entry() {
	expr := uexpr.MustParse("let total = price * qty; total - discount")
	fmt.Println(expr.Entry())
	// Output: [price qty discount]
}
