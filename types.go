// Package brace defines the core data structures for brace table parsing.
package brace

import (
	"fmt"

	"github.com/samber/lo"
)

// Value is one of Float, String or Object.
type Value interface {
	isValue()
}

// Float is a decimal number. It is always finite.
type Float float64

// String is a decoded double-quoted string.
type String string

// Object is a nested table.
type Object Table

func (Float) isValue()  {}
func (String) isValue() {}
func (Object) isValue() {}

// Entry is a table entry with an optional label.
// An empty Label means the entry is unlabeled.
type Entry struct {
	Label string
	Value Value
}

// Labeled reports whether the entry carries a label.
func (e Entry) Labeled() bool {
	return e.Label != ""
}

// Table is an ordered sequence of entries. Labels may repeat or be absent.
type Table []Entry

// Get returns the value of the first entry labeled label.
func (t Table) Get(label string) (Value, bool) {
	e, ok := lo.Find(t, func(e Entry) bool { return e.Label == label })
	return e.Value, ok
}

// All returns the values of every entry labeled label, in order.
func (t Table) All(label string) []Value {
	return lo.FilterMap(t, func(e Entry, _ int) (Value, bool) {
		return e.Value, e.Label == label
	})
}

// Labels returns the distinct labels of the table in first-seen order.
func (t Table) Labels() []string {
	return lo.Uniq(lo.FilterMap(t, func(e Entry, _ int) (string, bool) {
		return e.Label, e.Labeled()
	}))
}

// Unlabeled returns the values of the unlabeled entries, in order.
func (t Table) Unlabeled() []Value {
	return lo.FilterMap(t, func(e Entry, _ int) (Value, bool) {
		return e.Value, !e.Labeled()
	})
}

// Position locates a byte offset in the parsed text.
type Position struct {
	Offset int
	Line   int
	Column int
}

// String returns position as "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// kindOf names the variant of v for error messages.
func kindOf(v Value) string {
	switch v.(type) {
	case Float:
		return "float"
	case String:
		return "string"
	case Object:
		return "object"
	case nil:
		return "nothing"
	default:
		panic(fmt.Sprintf("brace: unknown value type %T", v))
	}
}
