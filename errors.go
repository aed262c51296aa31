package uexpr

import (
	"errors"
	"fmt"

	"github.com/kolkov/uexpr/internal/ast"
	"github.com/kolkov/uexpr/internal/parser"
	"github.com/kolkov/uexpr/internal/semantic"
)

// LexError represents an unrecognized character or malformed literal.
type LexError struct {
	Line    int    // 1-based line number
	Column  int    // 1-based column number
	Message string // Error description
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexical error at %d:%d: %s", e.Line, e.Column, e.Message)
}

// ParseError represents a syntax error or an early error such as a
// redeclared binding or a break outside of a loop.
type ParseError struct {
	Line    int    // 1-based line number
	Column  int    // 1-based column number
	Message string // Error description
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Column, e.Message)
}

// UnsupportedError represents valid JavaScript syntax that the evaluator
// does not implement, such as classes or generators.
type UnsupportedError struct {
	Line    int    // 1-based line number
	Column  int    // 1-based column number
	Message string // Error description
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported error at %d:%d: %s", e.Line, e.Column, e.Message)
}

// IsUnsupported reports whether err is or wraps an UnsupportedError.
func IsUnsupported(err error) bool {
	var u *UnsupportedError
	return errors.As(err, &u)
}

// RuntimeError represents an error during evaluation. Err holds the
// underlying failure; a value raised by throw can be recovered with
// Thrown.
type RuntimeError struct {
	Message string // Error description
	Err     error  // Underlying error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %s", e.Message)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// DeserializeError represents a serialized tree that cannot be rebuilt.
type DeserializeError struct {
	Tag     string // Tag of the node that failed, if known
	Message string // Error description
}

func (e *DeserializeError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("deserialize error in %s: %s", e.Tag, e.Message)
	}
	return fmt.Sprintf("deserialize error: %s", e.Message)
}

// parseFailure converts a parser or checker error to a public type.
func parseFailure(err error) error {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case parser.Lexical:
			return &LexError{Line: pe.Pos.Line, Column: pe.Pos.Column, Message: pe.Message}
		case parser.Unsupported:
			return &UnsupportedError{Line: pe.Pos.Line, Column: pe.Pos.Column, Message: pe.Message}
		}
		return &ParseError{Line: pe.Pos.Line, Column: pe.Pos.Column, Message: pe.Message}
	}

	// Only the first early error is reported, as for syntax errors.
	var el semantic.ErrorList
	if errors.As(err, &el) && len(el) > 0 {
		return &ParseError{Line: el[0].Pos.Line, Column: el[0].Pos.Column, Message: el[0].Message}
	}
	return &ParseError{Message: err.Error()}
}

// runtimeFailure wraps an evaluation error.
func runtimeFailure(err error) error {
	return &RuntimeError{Message: err.Error(), Err: err}
}

// decodeFailure converts a deserialization error to a public type.
func decodeFailure(err error) error {
	var de *ast.DecodeError
	if errors.As(err, &de) {
		return &DeserializeError{Tag: de.Tag, Message: de.Message}
	}
	return &DeserializeError{Message: err.Error()}
}
