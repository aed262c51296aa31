// Package parser provides a recursive descent parser for the JavaScript
// expression subset.
package parser

import (
	"fmt"

	"github.com/kolkov/uexpr/internal/token"
)

// Kind classifies a parse failure.
type Kind int

const (
	// Syntax is a token sequence that violates the grammar.
	Syntax Kind = iota
	// Lexical is an unrecognized character or a malformed literal.
	Lexical
	// Unsupported is recognized syntax the evaluator does not implement.
	Unsupported
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical"
	case Unsupported:
		return "unsupported"
	}
	return "syntax"
}

// ParseError represents an error encountered during parsing.
// It implements the error interface and includes source position information.
type ParseError struct {
	Pos     token.Position // Position where the error occurred
	Kind    Kind           // Class of failure
	Message string         // Human-readable error message
	Got     string         // Token/value that was found (optional)
	Want    string         // Token/value that was expected (optional)
}

// Error returns a formatted error message with position information.
func (e *ParseError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Pos, e.Message)
	}
	return e.Message
}

// bailout carries the first error out of the recursive descent.
type bailout struct {
	err *ParseError
}

// errorf creates a ParseError at the given position with formatted message.
func errorf(pos token.Position, format string, args ...any) *ParseError {
	return &ParseError{
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
	}
}

// expectedError creates a ParseError for unexpected token.
func expectedError(pos token.Position, want string, got string) *ParseError {
	return &ParseError{
		Pos:     pos,
		Message: fmt.Sprintf("expected %s, got %s", want, got),
		Want:    want,
		Got:     got,
	}
}

// unsupportedError creates a ParseError for a construct outside the subset.
func unsupportedError(pos token.Position, what string) *ParseError {
	return &ParseError{
		Pos:     pos,
		Kind:    Unsupported,
		Message: what + " not supported",
		Got:     what,
	}
}

// lexicalError creates a ParseError for a malformed token.
func lexicalError(pos token.Position, msg string) *ParseError {
	return &ParseError{Pos: pos, Kind: Lexical, Message: msg}
}
