// Package semantic reports early errors in parsed trees.
//
// The checker runs after parsing and before evaluation. It finds mistakes
// the grammar alone accepts:
//   - break and continue outside of a loop or switch
//   - let, const and function names declared twice in one block
//   - duplicate parameter names in arrow functions
//   - assignment to a const binding visible in the same function
package semantic

import (
	"fmt"
	"strings"

	"github.com/kolkov/uexpr/internal/token"
)

// Error represents a semantic analysis error with source location.
type Error struct {
	Pos     token.Position
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if !e.Pos.IsValid() {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// ErrorList is a collection of semantic errors.
type ErrorList []*Error

// Add appends an error to the list.
func (el *ErrorList) Add(pos token.Position, format string, args ...any) {
	*el = append(*el, &Error{
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
	})
}

// Err returns an error if the list is non-empty, nil otherwise.
func (el ErrorList) Err() error {
	if len(el) == 0 {
		return nil
	}
	return el
}

// Error implements the error interface for ErrorList.
func (el ErrorList) Error() string {
	switch len(el) {
	case 0:
		return "no errors"
	case 1:
		return el[0].Error()
	default:
		var sb strings.Builder
		sb.WriteString(el[0].Error())
		for _, e := range el[1:] {
			sb.WriteByte('\n')
			sb.WriteString(e.Error())
		}
		return sb.String()
	}
}

// Common error messages as constants for consistency.
const (
	errBreakOutsideLoop    = "Illegal break statement"
	errContinueOutsideLoop = "Illegal continue statement: no surrounding iteration statement"
	errRedeclared          = "Identifier '%s' has already been declared"
	errDuplicateParam      = "Duplicate parameter name not allowed in this context"
	errConstAssign         = "Assignment to constant variable '%s'"
)
