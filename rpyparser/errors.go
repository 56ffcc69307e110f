package rpyparser

import "fmt"

// Loc identifies the source position of a node or error: the file it came
// from and the 1-based physical line number of the logical line's start.
type Loc struct {
	File string
	Line int
}

func (l Loc) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// ParseError is the base error type for all rpyparser errors.
type ParseError struct {
	Message string
	Loc     Loc
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Loc.File != "" {
		return fmt.Sprintf("%s: %s", e.Loc, e.Message)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error { return e.Cause }

// LexError represents a character-level error (tab character, unterminated
// string or bracket group, overly long logical line).
type LexError struct{ ParseError }

// IndentError represents a block-structure error (sibling depth mismatch,
// unexpected indentation, missing required block).
type IndentError struct{ ParseError }

// SyntaxError represents a grammar-level error (required token absent,
// duplicate clause, malformed signature).
type SyntaxError struct {
	ParseError
	Expected string
	Got      string
}

func (e *SyntaxError) Error() string {
	if e.Expected != "" {
		return fmt.Sprintf("%s: expected %s, got %s", e.Loc, e.Expected, e.Got)
	}
	return e.ParseError.Error()
}

// SemanticError represents a rule violated by an otherwise well-formed
// statement (unknown style property, ATL property conflict, duplicate
// parameter name).
type SemanticError struct{ ParseError }

func lexErrorf(loc Loc, format string, args ...any) error {
	return &LexError{ParseError{Message: fmt.Sprintf(format, args...), Loc: loc}}
}

func indentErrorf(loc Loc, format string, args ...any) error {
	return &IndentError{ParseError{Message: fmt.Sprintf(format, args...), Loc: loc}}
}

func syntaxErrorf(loc Loc, format string, args ...any) error {
	return &SyntaxError{ParseError: ParseError{Message: fmt.Sprintf(format, args...), Loc: loc}}
}

func expectedError(loc Loc, expected, got string) error {
	if got == "" {
		got = "end of line"
	}
	return &SyntaxError{
		ParseError: ParseError{Message: fmt.Sprintf("expected %s", expected), Loc: loc},
		Expected:   expected,
		Got:        got,
	}
}

func semanticErrorf(loc Loc, format string, args ...any) error {
	return &SemanticError{ParseError{Message: fmt.Sprintf(format, args...), Loc: loc}}
}
