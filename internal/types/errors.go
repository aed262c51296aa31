package types

import (
	"fmt"
	"math/big"
)

// Error is an error raised by a runtime operation. Inside a catch clause it
// is seen as an error object with the same name and message.
type Error struct {
	Name    string
	Message string
}

func (e *Error) Error() string {
	return e.Name + ": " + e.Message
}

// TypeErrorf returns a TypeError.
func TypeErrorf(format string, args ...any) error {
	return &Error{Name: "TypeError", Message: fmt.Sprintf(format, args...)}
}

// RangeErrorf returns a RangeError.
func RangeErrorf(format string, args ...any) error {
	return &Error{Name: "RangeError", Message: fmt.Sprintf(format, args...)}
}

// ReferenceErrorf returns a ReferenceError.
func ReferenceErrorf(format string, args ...any) error {
	return &Error{Name: "ReferenceError", Message: fmt.Sprintf(format, args...)}
}

// ThrowError carries a value raised by a throw statement.
type ThrowError struct {
	Value Value
}

func (e *ThrowError) Error() string {
	return "Uncaught " + ToString(e.Value)
}

// Thrown converts an error into the value a catch clause binds.
func Thrown(err error) Value {
	switch e := err.(type) {
	case *ThrowError:
		return e.Value
	case *Error:
		return NewError(e.Name, e.Message)
	}
	return NewError("Error", err.Error())
}

// Describe returns a short rendering of v for error messages.
func Describe(v Value) string {
	switch v := v.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case *Object:
		return "object"
	case *Array:
		return "array"
	case Function:
		return "function"
	case nil, UndefinedType, bool, float64, *big.Int, fmt.Stringer,
		int, int64, int32, uint, uint64, uint32, float32:
		return ToString(v)
	}
	return fmt.Sprintf("Go value of type %T", v)
}
