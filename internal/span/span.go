// Package span provides source positions and ranges shared by the lexer,
// parser, resolver and diagnostics.
package span

import "fmt"

// Position is a point in source text.
type Position struct {
	Offset int `json:"offset"` // byte offset from beginning of source
	Line   int `json:"line"`   // 1-based
	Column int `json:"column"` // 1-based
}

// Start is the position of the first byte of any source.
var Start = Position{Offset: 0, Line: 1, Column: 1}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is the half-open range [Start, End).
type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

func (s Span) String() string {
	return fmt.Sprintf("%s..%s", s.Start, s.End)
}

// Len returns the byte length of the span.
func (s Span) Len() int {
	return s.End.Offset - s.Start.Offset
}

// Join returns the smallest span covering both a and b.
func Join(a, b Span) Span {
	out := a
	if b.Start.Offset < out.Start.Offset {
		out.Start = b.Start
	}
	if b.End.Offset > out.End.Offset {
		out.End = b.End
	}
	return out
}
