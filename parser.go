// Package brace provides parsing for brace-delimited table documents.
//
// A document is a single table:
//
//	{name="depot", pos={x=-1360.5, y=-557.5}, {"unlabeled", 3}}
//
// Tables hold comma-separated entries, each an optional alphabetic label
// followed by '=' and a value. Values are numbers, double-quoted strings or
// nested tables. Whitespace between tokens is ignored.
package brace

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Parser provides configurable parsing functionality.
//
// Configure a Parser before use. A configured Parser may be shared by
// concurrent callers.
type Parser struct {
	escapes map[byte]string
}

// NewParser creates a new Parser with default configuration.
// The only escape sequence it accepts is \".
func NewParser() *Parser {
	return &Parser{
		escapes: map[byte]string{'"': `"`},
	}
}

// WithEscape registers the escape sequence \code, decoding to decoded.
func (p *Parser) WithEscape(code byte, decoded string) *Parser {
	p.escapes[code] = decoded
	return p
}

var defaultParser = NewParser()

// Parse parses text as a document using the default Parser.
func Parse(text string) (Table, error) {
	return defaultParser.Parse(text)
}

// ParseReader reads r to the end and parses the result using the default Parser.
func ParseReader(r io.Reader) (Table, error) {
	return defaultParser.ParseReader(r)
}

// Parse parses text as a document and returns its top-level table.
//
// The document must be valid UTF-8 and consist of a single table followed by
// nothing but whitespace. On failure the returned error is a *ParseError
// wrapping ErrSyntax, ErrTrailingData or ErrNotObject, and no table is
// returned.
func (p *Parser) Parse(text string) (Table, error) {
	if bad := invalidUTF8(text); bad >= 0 {
		return nil, newParseError(ErrSyntax, text, bad, "invalid UTF-8")
	}

	s := &state{text: text, escapes: p.escapes}

	start := s.ws(0)
	v, end, err := s.value(start)
	if err != nil {
		return nil, err
	}

	obj, ok := v.(Object)
	if !ok {
		return nil, newParseError(ErrNotObject, text, start, "document is a "+kindOf(v))
	}
	if rest := s.ws(end); rest < len(text) {
		return nil, newParseError(ErrTrailingData, text, rest, "")
	}
	return Table(obj), nil
}

// ParseReader reads r to the end and parses the result.
// A leading UTF-8 byte order mark is dropped. Invalid UTF-8 is reported, not
// replaced.
func (p *Parser) ParseReader(r io.Reader) (Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	text := string(data)
	if utf8.ValidString(text) {
		// UTF-16 marks are never valid UTF-8, so only a UTF-8 mark can match here
		text, _, err = transform.String(unicode.BOMOverride(transform.Nop), text)
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
	}
	return p.Parse(text)
}

// invalidUTF8 returns the offset of the first byte that is not part of a
// valid UTF-8 sequence, or -1.
func invalidUTF8(text string) int {
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}

// state holds the input of a single parse. Grammar rules take the offset to
// start at and return the offset after what they consumed; a failed rule
// consumes nothing.
type state struct {
	text    string
	escapes map[byte]string
}

func (s *state) fail(pos int, msg string) *ParseError {
	return newParseError(ErrSyntax, s.text, pos, msg)
}

// ws skips whitespace.
func (s *state) ws(pos int) int {
	for pos < len(s.text) && isSpace(s.text[pos]) {
		pos++
	}
	return pos
}

// value := number | string | table
func (s *state) value(pos int) (Value, int, error) {
	if pos >= len(s.text) {
		return nil, pos, s.fail(pos, "expected value, found end of input")
	}

	switch c := s.text[pos]; {
	case c == '-' || isDigit(c):
		return s.number(pos)
	case c == '"':
		return s.quoted(pos)
	case c == '{':
		t, end, err := s.table(pos)
		if err != nil {
			return nil, pos, err
		}
		return Object(t), end, nil
	default:
		return nil, pos, s.fail(pos, "expected value")
	}
}

// number := '-'? digit+ ('.' digit+)?
func (s *state) number(pos int) (Value, int, error) {
	end := pos
	if s.text[end] == '-' {
		end++
	}
	digits := s.digits(end)
	if digits == end {
		return nil, pos, s.fail(end, "expected digit")
	}
	end = digits
	if end < len(s.text) && s.text[end] == '.' {
		if frac := s.digits(end + 1); frac > end+1 {
			end = frac
		}
	}

	lit := s.text[pos:end]
	f, err := strconv.ParseFloat(lit, 64)
	if errors.Is(err, strconv.ErrRange) {
		return nil, pos, s.fail(pos, "number out of range")
	}
	if err != nil {
		panic(fmt.Sprintf("brace: number literal %q rejected by strconv: %v", lit, err))
	}
	return Float(f), end, nil
}

func (s *state) digits(pos int) int {
	for pos < len(s.text) && isDigit(s.text[pos]) {
		pos++
	}
	return pos
}

// quoted := '"' (plain | '\' escape)* '"'
func (s *state) quoted(pos int) (Value, int, error) {
	var sb strings.Builder
	i := pos + 1
	for {
		run := strings.IndexAny(s.text[i:], "\"\\\n")
		if run < 0 {
			return nil, pos, s.fail(pos, "unterminated string")
		}
		sb.WriteString(s.text[i : i+run])
		i += run

		switch s.text[i] {
		case '"':
			return String(sb.String()), i + 1, nil
		case '\n':
			return nil, pos, s.fail(i, "newline in string")
		default:
			if i+1 >= len(s.text) {
				return nil, pos, s.fail(pos, "unterminated string")
			}
			decoded, ok := s.escapes[s.text[i+1]]
			if !ok {
				return nil, pos, s.fail(i, fmt.Sprintf("unknown escape %q", s.text[i:i+2]))
			}
			sb.WriteString(decoded)
			i += 2
		}
	}
}

// table := '{' (entry (',' entry)*)? '}'
func (s *state) table(pos int) (Table, int, error) {
	t := Table{}
	i := s.ws(pos + 1)
	if i < len(s.text) && s.text[i] == '}' {
		return t, i + 1, nil
	}

	for {
		e, end, err := s.entry(i)
		if err != nil {
			return nil, pos, err
		}
		t = append(t, e)

		i = s.ws(end)
		if i >= len(s.text) {
			return nil, pos, s.fail(i, "expected ',' or '}', found end of input")
		}
		switch s.text[i] {
		case ',':
			i = s.ws(i + 1)
		case '}':
			return t, i + 1, nil
		default:
			return nil, pos, s.fail(i, "expected ',' or '}'")
		}
	}
}

// entry := (label '=')? value
//
// The labeled form is tried first. Without a following '=' the entry is
// parsed again from pos as a bare value.
func (s *state) entry(pos int) (Entry, int, error) {
	if label, next, ok := s.label(pos); ok {
		v, end, err := s.value(s.ws(next))
		if err != nil {
			return Entry{}, pos, err
		}
		return Entry{Label: label, Value: v}, end, nil
	}

	v, end, err := s.value(pos)
	if err != nil {
		if alpha := s.alphas(pos); alpha > pos {
			return Entry{}, pos, s.fail(s.ws(alpha), fmt.Sprintf("expected '=' after label %q", s.text[pos:alpha]))
		}
		return Entry{}, pos, err
	}
	return Entry{Value: v}, end, nil
}

// label matches alpha+ followed by '=' and returns the offset after the '='.
func (s *state) label(pos int) (string, int, bool) {
	end := s.alphas(pos)
	if end == pos {
		return "", pos, false
	}
	eq := s.ws(end)
	if eq >= len(s.text) || s.text[eq] != '=' {
		return "", pos, false
	}
	return s.text[pos:end], eq + 1, true
}

func (s *state) alphas(pos int) int {
	for pos < len(s.text) && isAlpha(s.text[pos]) {
		pos++
	}
	return pos
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isAlpha(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}
