// Package diagnostics provides the severity-tagged, span-anchored message
// type shared by every compiler phase (lexer through codegen), a stable
// per-phase error codebook, and an append-only collection sink.
package diagnostics

import "fmt"

// Pos is a single point in source text.
type Pos struct {
	File   string
	Line   int // 1-based
	Column int // 1-based, in bytes
	Offset int // 0-based byte offset into the file
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Span is a half-open [Start, End) byte range into a single source file.
type Span struct {
	Start Pos
	End   Pos
}

func (s Span) String() string {
	if s.Start.File == "" {
		return "<unknown>"
	}
	return s.Start.String()
}

// NewSpan builds a Span from two positions in the same file.
func NewSpan(start, end Pos) Span {
	return Span{Start: start, End: end}
}
