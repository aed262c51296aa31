// Package types defines the runtime values produced by evaluating
// expressions.
//
// Values are plain Go values held in an interface:
//
//	undefined  -> Undefined
//	null       -> nil
//	boolean    -> bool
//	number     -> float64
//	bigint     -> *big.Int
//	string     -> string
//	object     -> *Object
//	array      -> *Array
//	function   -> Function
//
// Host values entering through FromGo are normalized to these forms.
package types

import (
	"math/big"
)

// Value is any runtime value.
type Value = any

// Kind classifies a value the way typeof does, with null split out.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindNumber
	KindBigInt
	KindString
	KindObject
	KindFunction
)

// String returns the typeof name of the kind. Null reports "object".
func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindBigInt:
		return "bigint"
	case KindString:
		return "string"
	case KindFunction:
		return "function"
	default: // KindNull, KindObject
		return "object"
	}
}

// KindOf returns the kind of v.
func KindOf(v Value) Kind {
	switch v.(type) {
	case UndefinedType:
		return KindUndefined
	case nil:
		return KindNull
	case bool:
		return KindBoolean
	case float64, int, int64, float32, int32, uint, uint64, uint32:
		return KindNumber
	case *big.Int:
		return KindBigInt
	case string:
		return KindString
	case Function:
		return KindFunction
	default:
		return KindObject
	}
}

// TypeOf returns the result of the typeof operator.
func TypeOf(v Value) string {
	return KindOf(v).String()
}

// UndefinedType is the type of Undefined.
type UndefinedType struct{}

// Undefined is the undefined value.
var Undefined Value = UndefinedType{}

// String returns "undefined".
func (UndefinedType) String() string { return "undefined" }

// IsUndefined reports whether v is undefined.
func IsUndefined(v Value) bool {
	_, ok := v.(UndefinedType)
	return ok
}

// IsNullish reports whether v is null or undefined.
func IsNullish(v Value) bool {
	return v == nil || IsUndefined(v)
}

// Function is a callable value.
type Function interface {
	Call(this Value, args []Value) (Value, error)
}

// Constructor is implemented by functions usable with new.
type Constructor interface {
	Construct(args []Value) (Value, error)
}

// NativeFunc adapts a Go function to Function.
type NativeFunc func(this Value, args []Value) (Value, error)

// Call calls f.
func (f NativeFunc) Call(this Value, args []Value) (Value, error) {
	return f(this, args)
}

// Builtin is a named native function that can carry properties, such as
// String.raw, and may act as a constructor.
type Builtin struct {
	Name  string
	Fn    NativeFunc
	New   func(args []Value) (Value, error)
	Props *Object
}

// Call calls the native implementation.
func (b *Builtin) Call(this Value, args []Value) (Value, error) {
	return b.Fn(this, args)
}

// Construct calls the constructor implementation, falling back to Fn.
func (b *Builtin) Construct(args []Value) (Value, error) {
	if b.New != nil {
		return b.New(args)
	}
	return b.Fn(Undefined, args)
}

// String returns the native function marker.
func (b *Builtin) String() string {
	return "function " + b.Name + "() { [native code] }"
}

// Arg returns args[i] or undefined.
func Arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}
