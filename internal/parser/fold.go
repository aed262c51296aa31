package parser

import (
	"math"

	"github.com/kolkov/uexpr/internal/ast"
	"github.com/kolkov/uexpr/internal/runtime"
	"github.com/kolkov/uexpr/internal/token"
	"github.com/kolkov/uexpr/internal/types"
)

// foldBinary evaluates an arithmetic, bitwise or shift operation whose
// operands are both number literals. It returns nil when the operation
// cannot be folded or the result has no literal spelling (NaN, infinities,
// negative numbers and -0).
func foldBinary(op token.Token, left, right ast.Node) ast.Node {
	l, ok := left.(*ast.Number)
	if !ok {
		return nil
	}
	r, ok := right.(*ast.Number)
	if !ok {
		return nil
	}
	switch op {
	case token.ADD, token.SUB, token.MUL, token.DIV, token.MOD, token.POW,
		token.AND, token.OR, token.XOR, token.SHL, token.SHR, token.USHR:
	default:
		return nil
	}
	v, err := runtime.Binary(op, l.Value, r.Value)
	if err != nil {
		return nil
	}
	n, ok := v.(float64)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) || n < 0 || math.Signbit(n) {
		return nil
	}
	return &ast.Number{Base: l.Base, Value: n, Raw: types.FormatNumber(n)}
}
