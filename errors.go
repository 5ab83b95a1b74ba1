package brace

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Parse failures wrap exactly one of these kinds.
var (
	ErrSyntax       = errors.New("syntax error")
	ErrTrailingData = errors.New("unexpected trailing data")
	ErrNotObject    = errors.New("unexpected non-object")
)

// maxRemainder bounds how much unparsed input an error message quotes.
const maxRemainder = 32

// ParseError represents a parse failure with location.
type ParseError struct {
	Kind      error
	Message   string
	Pos       Position
	Remainder string
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.Error())
	if e.Message != "" {
		fmt.Fprintf(&sb, ": %s", e.Message)
	}
	fmt.Fprintf(&sb, " at %s", e.Pos)
	if e.Kind != ErrNotObject {
		fmt.Fprintf(&sb, " near %q", truncate(e.Remainder, maxRemainder))
	}
	return sb.String()
}

// Unwrap returns the failure kind so errors.Is works against the sentinels.
func (e *ParseError) Unwrap() error {
	return e.Kind
}

func newParseError(kind error, text string, offset int, msg string) *ParseError {
	return &ParseError{
		Kind:      kind,
		Message:   msg,
		Pos:       positionOf(text, offset),
		Remainder: text[offset:],
	}
}

// positionOf converts a byte offset into a 1-based line and column.
// Columns count runes.
func positionOf(text string, offset int) Position {
	before := text[:offset]
	line := strings.Count(before, "\n") + 1
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return Position{
		Offset: offset,
		Line:   line,
		Column: utf8.RuneCountInString(before[lineStart:]) + 1,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// back up to a rune boundary
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
