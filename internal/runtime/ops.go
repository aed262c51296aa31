package runtime

import (
	"math"
	"math/big"

	"github.com/kolkov/uexpr/internal/token"
	"github.com/kolkov/uexpr/internal/types"
)

var errMixBigInt = types.TypeErrorf("Cannot mix BigInt and other types, use explicit conversions")

// Binary applies a binary operator. Logical and nullish operators are
// short-circuiting and handled by the evaluator, not here.
func Binary(op token.Token, a, b types.Value) (types.Value, error) {
	switch op {
	case token.ADD:
		return Add(a, b)
	case token.SUB, token.MUL, token.DIV, token.MOD, token.POW:
		return arith(op, a, b)
	case token.AND, token.OR, token.XOR, token.SHL, token.SHR, token.USHR:
		return bitwise(op, a, b)
	case token.EQ:
		return types.LooseEquals(a, b), nil
	case token.NE:
		return !types.LooseEquals(a, b), nil
	case token.STRICT_EQ:
		return types.StrictEquals(a, b), nil
	case token.STRICT_NE:
		return !types.StrictEquals(a, b), nil
	case token.LESS, token.LTE, token.GREATER, token.GTE:
		return relational(op, a, b)
	case token.IN:
		return HasProperty(b, a)
	case token.INSTANCEOF:
		return InstanceOf(a, b)
	}
	return nil, types.TypeErrorf("unknown binary operator %s", op)
}

// Assign applies the operator of a compound assignment such as += to the
// current value and the right-hand side.
func Assign(op token.Token, cur, v types.Value) (types.Value, error) {
	switch op {
	case token.FMOD_ASSIGN:
		return FloorMod(cur, v)
	case token.MAX_ASSIGN:
		return Max(cur, v)
	case token.MIN_ASSIGN:
		return Min(cur, v)
	}
	bin, ok := token.BinaryOf(op)
	if !ok {
		return nil, types.TypeErrorf("unknown assignment operator %s", op)
	}
	return Binary(bin, cur, v)
}

// Add implements +, concatenating when either primitive is a string.
func Add(a, b types.Value) (types.Value, error) {
	if x, ok := a.(float64); ok {
		if y, ok := b.(float64); ok {
			return x + y, nil
		}
	}
	pa, err := types.ToPrimitive(a, "default")
	if err != nil {
		return nil, err
	}
	pb, err := types.ToPrimitive(b, "default")
	if err != nil {
		return nil, err
	}
	sa, aStr := pa.(string)
	sb, bStr := pb.(string)
	switch {
	case aStr && bStr:
		return sa + sb, nil
	case aStr:
		return sa + types.ToString(pb), nil
	case bStr:
		return types.ToString(pa) + sb, nil
	}
	xa, aBig := pa.(*big.Int)
	xb, bBig := pb.(*big.Int)
	if aBig && bBig {
		return new(big.Int).Add(xa, xb), nil
	}
	if aBig || bBig {
		return nil, errMixBigInt
	}
	return types.ToNumber(pa) + types.ToNumber(pb), nil
}

func numericOperands(a, b types.Value) (x, y types.Value, err error) {
	if x, err = types.ToPrimitive(a, "number"); err != nil {
		return nil, nil, err
	}
	if y, err = types.ToPrimitive(b, "number"); err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

func arith(op token.Token, a, b types.Value) (types.Value, error) {
	pa, pb, err := numericOperands(a, b)
	if err != nil {
		return nil, err
	}
	xa, aBig := pa.(*big.Int)
	xb, bBig := pb.(*big.Int)
	if aBig && bBig {
		return bigArith(op, xa, xb)
	}
	if aBig || bBig {
		return nil, errMixBigInt
	}
	x, y := types.ToNumber(pa), types.ToNumber(pb)
	switch op {
	case token.SUB:
		return x - y, nil
	case token.MUL:
		return x * y, nil
	case token.DIV:
		return x / y, nil
	case token.MOD:
		return math.Mod(x, y), nil
	default: // POW
		return Pow(x, y), nil
	}
}

// Pow implements ** with the edge cases of exponentiation on numbers.
func Pow(x, y float64) float64 {
	if math.IsNaN(y) {
		return math.NaN()
	}
	if math.IsInf(y, 0) && math.Abs(x) == 1 {
		return math.NaN()
	}
	return math.Pow(x, y)
}

func bigArith(op token.Token, x, y *big.Int) (types.Value, error) {
	switch op {
	case token.SUB:
		return new(big.Int).Sub(x, y), nil
	case token.MUL:
		return new(big.Int).Mul(x, y), nil
	case token.DIV:
		if y.Sign() == 0 {
			return nil, types.RangeErrorf("Division by zero")
		}
		return new(big.Int).Quo(x, y), nil
	case token.MOD:
		if y.Sign() == 0 {
			return nil, types.RangeErrorf("Division by zero")
		}
		return new(big.Int).Rem(x, y), nil
	default: // POW
		if y.Sign() < 0 {
			return nil, types.RangeErrorf("Exponent must be non-negative")
		}
		return new(big.Int).Exp(x, y, nil), nil
	}
}

func bitwise(op token.Token, a, b types.Value) (types.Value, error) {
	pa, pb, err := numericOperands(a, b)
	if err != nil {
		return nil, err
	}
	xa, aBig := pa.(*big.Int)
	xb, bBig := pb.(*big.Int)
	if aBig && bBig {
		switch op {
		case token.AND:
			return new(big.Int).And(xa, xb), nil
		case token.OR:
			return new(big.Int).Or(xa, xb), nil
		case token.XOR:
			return new(big.Int).Xor(xa, xb), nil
		case token.SHL:
			return new(big.Int).Lsh(xa, uint(xb.Int64())), nil
		case token.SHR:
			return new(big.Int).Rsh(xa, uint(xb.Int64())), nil
		}
		return nil, types.TypeErrorf("BigInts have no unsigned right shift, use >> instead")
	}
	if aBig || bBig {
		return nil, errMixBigInt
	}
	x, y := types.ToInt32(pa), types.ToUint32(pb)
	switch op {
	case token.AND:
		return float64(x & int32(y)), nil
	case token.OR:
		return float64(x | int32(y)), nil
	case token.XOR:
		return float64(x ^ int32(y)), nil
	case token.SHL:
		return float64(x << (y & 31)), nil
	case token.SHR:
		return float64(x >> (y & 31)), nil
	default: // USHR
		return float64(uint32(x) >> (y & 31)), nil
	}
}

func relational(op token.Token, a, b types.Value) (types.Value, error) {
	pa, pb, err := numericOperands(a, b)
	if err != nil {
		return nil, err
	}
	c, ok := types.Compare(pa, pb)
	if !ok {
		return false, nil
	}
	switch op {
	case token.LESS:
		return c < 0, nil
	case token.LTE:
		return c <= 0, nil
	case token.GREATER:
		return c > 0, nil
	default: // GTE
		return c >= 0, nil
	}
}

// Unary applies a prefix operator other than typeof, delete and void.
func Unary(op token.Token, v types.Value) (types.Value, error) {
	if op == token.NOT {
		return !types.ToBoolean(v), nil
	}
	p, err := types.ToPrimitive(v, "number")
	if err != nil {
		return nil, err
	}
	if x, ok := p.(*big.Int); ok {
		switch op {
		case token.SUB:
			return new(big.Int).Neg(x), nil
		case token.BITNOT:
			return new(big.Int).Not(x), nil
		}
		return nil, types.TypeErrorf("Cannot convert a BigInt value to a number")
	}
	switch op {
	case token.ADD:
		return types.ToNumber(p), nil
	case token.SUB:
		return -types.ToNumber(p), nil
	case token.BITNOT:
		return float64(^types.ToInt32(p)), nil
	}
	return nil, types.TypeErrorf("unknown unary operator %s", op)
}

// Increment adds delta (1 or -1) to the numeric value of v, as ++ and --
// do.
func Increment(v types.Value, delta int) (old, updated types.Value, err error) {
	p, err := types.ToPrimitive(v, "number")
	if err != nil {
		return nil, nil, err
	}
	if x, ok := p.(*big.Int); ok {
		return x, new(big.Int).Add(x, big.NewInt(int64(delta))), nil
	}
	n := types.ToNumber(p)
	return n, n + float64(delta), nil
}

// FloorMod is the %%= operator: a remainder that takes the sign of the
// divisor.
func FloorMod(a, b types.Value) (types.Value, error) {
	pa, pb, err := numericOperands(a, b)
	if err != nil {
		return nil, err
	}
	xa, aBig := pa.(*big.Int)
	xb, bBig := pb.(*big.Int)
	if aBig && bBig {
		if xb.Sign() == 0 {
			return nil, types.RangeErrorf("Division by zero")
		}
		m := new(big.Int).Rem(xa, xb)
		if m.Sign() != 0 && m.Sign() != xb.Sign() {
			m.Add(m, xb)
		}
		return m, nil
	}
	if aBig || bBig {
		return nil, errMixBigInt
	}
	x, y := types.ToNumber(pa), types.ToNumber(pb)
	m := math.Mod(x, y)
	if m != 0 && (m < 0) != (y < 0) {
		m += y
	}
	return m, nil
}

// Max returns the larger of a and b, as >?= assigns. An incomparable pair
// keeps a.
func Max(a, b types.Value) (types.Value, error) {
	pa, pb, err := numericOperands(a, b)
	if err != nil {
		return nil, err
	}
	if c, ok := types.Compare(pb, pa); ok && c > 0 {
		return b, nil
	}
	return a, nil
}

// Min returns the smaller of a and b, as <?= assigns.
func Min(a, b types.Value) (types.Value, error) {
	pa, pb, err := numericOperands(a, b)
	if err != nil {
		return nil, err
	}
	if c, ok := types.Compare(pb, pa); ok && c < 0 {
		return b, nil
	}
	return a, nil
}
