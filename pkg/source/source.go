// Package source assigns opaque identifiers to chunks of program text and
// resolves byte spans back to line/column positions for diagnostics.
package source

import "sort"

// ID identifies a loaded source file. The zero value means "no source".
type ID int

// None is the ID used when a node carries no source location.
const None ID = 0

// Span is an inclusive byte-offset range within a single source.
type Span struct {
	Start int
	End   int
}

// NewSpan builds a Span, panicking if the range is malformed (an internal
// invariant, never a user-facing error).
func NewSpan(start, end int) Span {
	if start < 0 || end < start {
		panic("source: invalid span")
	}
	return Span{Start: start, End: end}
}

// Join returns the smallest span covering both a and b.
func (a Span) Join(b Span) Span {
	s := a.Start
	if b.Start < s {
		s = b.Start
	}
	e := a.End
	if b.End > e {
		e = b.End
	}
	return Span{Start: s, End: e}
}

// Before reports whether a ends strictly before b starts; spans that
// overlap have no defined order.
func (a Span) Before(b Span) bool {
	return a.End < b.Start
}

// TextPos is a 1-based line/column position.
type TextPos struct {
	Line   int
	Column int
}

// Source is a single unit of program text together with the identity the
// importer and diagnostics use to refer to it.
type Source struct {
	ID   ID
	Name string // used in diagnostics, e.g. "main.nv"
	Path string // used only by the importer; may be empty
	Text []byte

	lineStarts []int // byte offset of the start of each line, ascending
}

// New builds a Source and precomputes its line-break index.
func New(id ID, name, path string, text []byte) *Source {
	s := &Source{ID: id, Name: name, Path: path, Text: text}
	s.lineStarts = []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			s.lineStarts = append(s.lineStarts, i+1)
		}
	}
	return s
}

// Pos converts a byte offset into a line/column position via binary search
// over the line-start index.
func (s *Source) Pos(offset int) TextPos {
	if offset < 0 {
		offset = 0
	}
	i := sort.Search(len(s.lineStarts), func(i int) bool {
		return s.lineStarts[i] > offset
	})
	line := i // 1-based: lineStarts[0] == 0 covers line 1
	col := offset - s.lineStarts[i-1] + 1
	return TextPos{Line: line, Column: col}
}

// Snippet returns the raw bytes covered by span, clamped to the source
// length so a malformed span (e.g. during error recovery) never panics.
func (s *Source) Snippet(span Span) []byte {
	start, end := span.Start, span.End+1
	if start > len(s.Text) {
		start = len(s.Text)
	}
	if end > len(s.Text) {
		end = len(s.Text)
	}
	if start > end {
		start = end
	}
	return s.Text[start:end]
}

// entry is what one SourceId actually names: either a whole file (minted
// by Add, has no span of its own) or one specific byte span within an
// already-registered file (minted by AddLoc). Both share the same ID
// space so every existing consumer of a plain file ID keeps working
// unchanged; only code that cares about span granularity needs Span.
type entry struct {
	src  *Source
	span Span
	has  bool
}

// Table resolves a SourceId to a {source reference, span} pair. Every
// Source loaded during import resolution gets a distinct, stable,
// monotonically increasing ID via Add; every individual expression site
// the analyzer lowers mints its own finer-grained ID via AddLoc, one
// per call site rather than one per file.
type Table struct {
	entries []entry
}

// NewTable returns an empty source table.
func NewTable() *Table {
	return &Table{}
}

// Add registers a whole source file under a freshly minted ID and returns
// it.
func (t *Table) Add(name, path string, text []byte) *Source {
	id := ID(len(t.entries) + 1)
	s := New(id, name, path, text)
	t.entries = append(t.entries, entry{src: s})
	return s
}

// AddLoc mints a fresh ID for one specific byte span within file, an
// already-registered source. Used wherever an ir.Expr's SourceId is set,
// so a later pass resolving that node's SourceId recovers the exact
// site, not just the file it lives in.
func (t *Table) AddLoc(file ID, span Span) ID {
	id := ID(len(t.entries) + 1)
	t.entries = append(t.entries, entry{src: t.Get(file), span: span, has: true})
	return id
}

// Get resolves an ID to its Source (the file a location ID was minted
// against, for a location ID), or nil for ID None or an unknown ID.
func (t *Table) Get(id ID) *Source {
	if id == None || int(id) > len(t.entries) {
		return nil
	}
	return t.entries[id-1].src
}

// Span returns the byte span id was minted against via AddLoc, and
// whether it has one at all; false for a plain file ID minted by Add,
// which names a whole file rather than a position in it.
func (t *Table) Span(id ID) (Span, bool) {
	if id == None || int(id) > len(t.entries) {
		return Span{}, false
	}
	e := t.entries[id-1]
	return e.span, e.has
}

// Resolved is the {source, span} pair a SourceId is ultimately shorthand for.
type Resolved struct {
	Source *Source
	Span   Span
}

// Resolve looks up id's source, preferring the span it was minted with
// (via AddLoc) and falling back to the span the caller supplies for a
// plain file ID. ok is false when id is None or dangling.
func (t *Table) Resolve(id ID, span Span) (Resolved, bool) {
	s := t.Get(id)
	if s == nil {
		return Resolved{}, false
	}
	if own, ok := t.Span(id); ok {
		span = own
	}
	return Resolved{Source: s, Span: span}, true
}
