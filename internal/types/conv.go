package types

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Conversions

// ToBoolean converts v to a boolean.
func ToBoolean(v Value) bool {
	switch v := v.(type) {
	case UndefinedType, nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		return v != ""
	case *big.Int:
		return v.Sign() != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	}
	return true
}

// ToNumber converts v to a number. Objects convert through their
// primitive value; strings that are not numeric yield NaN.
func ToNumber(v Value) float64 {
	switch v := v.(type) {
	case float64:
		return v
	case UndefinedType:
		return math.NaN()
	case nil:
		return 0
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		return ParseNumber(v)
	case *big.Int:
		f, _ := new(big.Float).SetInt(v).Float64()
		return f
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case uint:
		return float64(v)
	case uint64:
		return float64(v)
	case uint32:
		return float64(v)
	case float32:
		return float64(v)
	case *Array:
		switch len(v.Elems) {
		case 0:
			return 0
		case 1:
			return ToNumber(ToString(v.Elems[0]))
		}
	}
	return math.NaN()
}

// ParseNumber parses a numeric string the way Number() does: surrounding
// whitespace is ignored, the empty string is 0, and anything else that is
// not a decimal, hex, octal, binary or Infinity literal is NaN.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] | 0x20 {
		case 'x':
			base = 16
		case 'o':
			base = 8
		case 'b':
			base = 2
		}
		if base != 0 {
			n, ok := new(big.Int).SetString(s[2:], base)
			if !ok {
				return math.NaN()
			}
			f, _ := new(big.Float).SetInt(n).Float64()
			return f
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(isDigit(c) || c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-') {
			return math.NaN()
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

// ParseFloatPrefix parses the longest numeric prefix of s, as parseFloat
// does.
func ParseFloatPrefix(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if strings.HasPrefix(s[i:], "Infinity") {
		if s[0] == '-' {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	digits := false
	for i < len(s) && isDigit(s[i]) {
		i++
		digits = true
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits = true
		}
	}
	if !digits {
		return math.NaN()
	}
	end := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		for i < len(s) && isDigit(s[i]) {
			i++
			end = i
		}
	}
	f, _ := strconv.ParseFloat(s[:end], 64)
	return f
}

// ToString converts v to a string.
func ToString(v Value) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return FormatNumber(v)
	case UndefinedType:
		return "undefined"
	case nil:
		return "null"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case *big.Int:
		return v.String()
	case fmt.Stringer:
		return v.String()
	case Function:
		return "function () { [native code] }"
	case int, int64, int32, uint, uint64, uint32, float32:
		return FormatNumber(ToNumber(v))
	}
	return fmt.Sprint(v)
}

// FormatNumber formats a number as Number.prototype.toString does.
func FormatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case n == 0:
		return "0"
	case n == math.Trunc(n) && math.Abs(n) < 1e21:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	abs := math.Abs(n)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	s := strconv.FormatFloat(n, 'e', -1, 64)
	// Go writes e-07 where JavaScript writes e-7.
	mant, exp, _ := strings.Cut(s, "e")
	sign := exp[0]
	exp = strings.TrimLeft(exp[1:], "0")
	return mant + "e" + string(sign) + exp
}

// ToPropertyKey converts v to a property key.
func ToPropertyKey(v Value) string {
	return ToString(v)
}

// ToInteger truncates ToNumber(v) toward zero; NaN becomes 0.
func ToInteger(v Value) float64 {
	n := ToNumber(v)
	if math.IsNaN(n) {
		return 0
	}
	return math.Trunc(n)
}

// ToInt32 converts v as the bitwise operators do.
func ToInt32(v Value) int32 {
	return int32(ToUint32(v))
}

// ToUint32 converts v modulo 2^32.
func ToUint32(v Value) uint32 {
	n := ToNumber(v)
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	n = math.Mod(math.Trunc(n), 4294967296)
	if n < 0 {
		n += 4294967296
	}
	return uint32(n)
}

// ToBigInt converts v for mixed bigint arithmetic.
func ToBigInt(v Value) (*big.Int, error) {
	switch v := v.(type) {
	case *big.Int:
		return v, nil
	case bool:
		if v {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	case string:
		n, ok := new(big.Int).SetString(strings.TrimSpace(v), 0)
		if !ok {
			return nil, &Error{Name: "SyntaxError", Message: fmt.Sprintf("Cannot convert %s to a BigInt", v)}
		}
		return n, nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, RangeErrorf("The number %s cannot be converted to a BigInt because it is not an integer", FormatNumber(v))
		}
		n, _ := new(big.Float).SetFloat64(v).Int(nil)
		return n, nil
	}
	return nil, TypeErrorf("Cannot convert %s to a BigInt", ToString(v))
}

// ToPrimitive converts objects to a primitive, calling a valueOf or
// toString method when the object defines one.
func ToPrimitive(v Value, hint string) (Value, error) {
	switch o := v.(type) {
	case *Object:
		order := []string{"valueOf", "toString"}
		if hint == "string" {
			order = []string{"toString", "valueOf"}
		}
		for _, name := range order {
			m, err := o.Get(name)
			if err != nil {
				return nil, err
			}
			if fn, ok := m.(Function); ok {
				r, err := fn.Call(o, nil)
				if err != nil {
					return nil, err
				}
				switch r.(type) {
				case *Object, *Array:
					continue
				}
				return r, nil
			}
		}
		return o.String(), nil
	case *Array:
		return o.String(), nil
	case *Awaitable:
		return o.String(), nil
	}
	return v, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
