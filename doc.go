// Package uexpr parses and evaluates a subset of JavaScript expressions
// and statements against host-supplied variables.
//
// Trees are immutable once parsed and can report the free variables they
// read, print back to source and serialize to tagged JSON.
//
// # Quick Start
//
// For one-off evaluation:
//
//	v, err := uexpr.Eval("items.filter(x => x > limit).length", map[string]any{
//	    "items": []any{1, 5, 10},
//	    "limit": 3,
//	})
//	// v: 2.0
//
// # Parsed Expressions
//
// For repeated evaluation of the same source:
//
//	expr, err := uexpr.Parse("price * (1 + tax)")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(expr.Entry()) // [price tax]
//
//	for _, row := range rows {
//	    v, err := expr.Get(uexpr.NewStack(row))
//	    // ...
//	}
//
// A [Cache] keeps recently parsed expressions so hosts that receive the
// same source many times parse it once.
//
// # Supported Language
//
// Literals including templates, regular expressions and BigInt; the full
// operator set with optional chaining, nullish coalescing and logical
// assignment; destructuring; arrow and function expressions; let, const
// and var; if, switch, loops including for-of and for-await-of; try and
// throw. Additionally, the pipeline operator x |> f(?) applies a function
// to the value on its left.
//
// Classes, generators, modules, labels, eval and new.target are
// recognized and rejected with an [UnsupportedError].
//
// Evaluation is synchronous. An await expression yields a value that
// [Await] resolves when the host is ready.
//
// # Error Handling
//
// Errors are returned as specific types for detailed handling:
//   - [LexError]: unrecognized characters and malformed literals
//   - [ParseError]: syntax errors and early errors such as a redeclared let
//   - [UnsupportedError]: syntax the evaluator does not implement
//   - [RuntimeError]: errors during evaluation, including thrown values
//   - [DeserializeError]: malformed serialized trees
//
// # Thread Safety
//
// Parsed [Expression] values are safe for concurrent use. A [Stack] is
// not; give each evaluation its own.
package uexpr
