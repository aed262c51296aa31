package uexpr

import (
	"errors"

	"github.com/kolkov/uexpr/internal/ast"
	"github.com/kolkov/uexpr/internal/parser"
	"github.com/kolkov/uexpr/internal/runtime"
	"github.com/kolkov/uexpr/internal/scope"
	"github.com/kolkov/uexpr/internal/semantic"
	"github.com/kolkov/uexpr/internal/types"
)

// Version is the uexpr version string.
const Version = "0.1.0"

// Value is a JavaScript value: nil for null, Undefined, bool, float64,
// string, *big.Int for BigInt, or an object, array or function.
type Value = types.Value

// Undefined is the JavaScript undefined value.
var Undefined = types.Undefined

// Stack is a chain of variable frames an expression is evaluated against.
// A Stack is not safe for concurrent use.
type Stack = scope.Stack

// Parse parses source with the default configuration.
//
// Example:
//
//	expr, err := uexpr.Parse("user.name ?? 'anonymous'")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, err := expr.Get(uexpr.NewStack(map[string]any{"user": user}))
func Parse(src string) (*Expression, error) {
	return ParseConfig(src, nil)
}

// ParseConfig parses source and reports early errors. A nil config uses
// the defaults. Syntax and early errors are returned as *ParseError,
// malformed tokens as *LexError and recognized but unimplemented syntax
// as *UnsupportedError.
func ParseConfig(src string, config *Config) (*Expression, error) {
	c := withDefaults(config)
	node, err := parser.Parse(src, c.parserOptions()...)
	if err == nil {
		err = semantic.Check(node)
	}
	if err != nil {
		err = parseFailure(err)
		c.Logger.Debug("parse failed", "source", src, "error", err)
		return nil, err
	}
	return &Expression{node: node, source: src}, nil
}

// MustParse is like Parse but panics if the source cannot be parsed.
// It simplifies initialization of global expression variables.
//
// Example:
//
//	var total = uexpr.MustParse("items.reduce((s, x) => s + x.price, 0)")
func MustParse(src string) *Expression {
	expr, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return expr
}

// Eval parses and evaluates source against vars in one step. The result
// is converted to plain Go values: objects become map[string]any, arrays
// []any and undefined nil.
//
// Example:
//
//	v, err := uexpr.Eval("a + b * 2", map[string]any{"a": 1, "b": 2})
//	// v: 5.0
func Eval(src string, vars map[string]any) (any, error) {
	expr, err := Parse(src)
	if err != nil {
		return nil, err
	}
	v, err := expr.Get(NewStack(vars))
	if err != nil {
		return nil, err
	}
	return types.ToGo(v), nil
}

// Deserialize rebuilds an expression from the output of
// Expression.MarshalJSON. Restored trees carry no source positions.
func Deserialize(data []byte) (*Expression, error) {
	node, err := ast.Deserialize(data)
	if err != nil {
		return nil, decodeFailure(err)
	}
	return &Expression{node: node}, nil
}

// NewStack creates a stack holding the global library in its root frame
// and vars in a frame above it. Go values in vars are converted: ints
// and other numbers become float64, maps become objects and slices
// arrays. Funcs of any signature become callable functions whose
// arguments are converted to the parameter types; a trailing error
// result is returned as the call's error.
func NewStack(vars map[string]any) *Stack {
	root := scope.New()
	for name, v := range runtime.Globals() {
		root.Define(name, v)
	}
	host := root.NewFunctionStack()
	for name, v := range vars {
		host.Define(name, types.FromGo(v))
	}
	return host
}

// Await resolves the result of an await expression, blocking on host
// values that complete asynchronously. Other values are returned as is.
func Await(v Value) (Value, error) {
	out, err := types.Resolve(v)
	if err != nil {
		return nil, runtimeFailure(err)
	}
	return out, nil
}

// Thrown returns the value raised by a throw statement if err carries one.
func Thrown(err error) (Value, bool) {
	var te *types.ThrowError
	if errors.As(err, &te) {
		return te.Value, true
	}
	return nil, false
}
