package diff

import "fmt"

// ParseError marks a structurally malformed diff line. Line numbers are
// 1-based over the concatenated input so the producer can be pointed at the
// exact offending text.
type ParseError struct {
	Line int
	Text string
	Why  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s (%q)", e.Line, e.Why, e.Text)
}

// UnknownTypeError marks a line whose node or edge type token is not in the
// fixed enumeration.
type UnknownTypeError struct {
	Line  int
	Token string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type %q at line %d", e.Token, e.Line)
}
