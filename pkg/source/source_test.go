package source

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPosBinarySearchOverLineStarts(t *testing.T) {
	s := New(1, "t.nv", "", []byte("ab\ncd\n\nef"))
	require.Equal(t, TextPos{Line: 1, Column: 1}, s.Pos(0))
	require.Equal(t, TextPos{Line: 1, Column: 3}, s.Pos(2)) // the newline itself
	require.Equal(t, TextPos{Line: 2, Column: 1}, s.Pos(3))
	require.Equal(t, TextPos{Line: 3, Column: 1}, s.Pos(6))
	require.Equal(t, TextPos{Line: 4, Column: 2}, s.Pos(8))
}

func TestSpanJoinAndBefore(t *testing.T) {
	a := NewSpan(2, 4)
	b := NewSpan(7, 9)
	require.Equal(t, Span{Start: 2, End: 9}, a.Join(b))
	require.True(t, a.Before(b))
	require.False(t, b.Before(a))
	require.False(t, a.Before(NewSpan(4, 5)))
}

func TestNewSpanRejectsMalformedRange(t *testing.T) {
	require.Panics(t, func() { NewSpan(3, 1) })
	require.Panics(t, func() { NewSpan(-1, 0) })
}

func TestSnippetClampsToSourceLength(t *testing.T) {
	s := New(1, "t.nv", "", []byte("hello"))
	require.Equal(t, []byte("ell"), s.Snippet(Span{Start: 1, End: 3}))
	require.Equal(t, []byte("lo"), s.Snippet(Span{Start: 3, End: 99}))
	require.Empty(t, s.Snippet(Span{Start: 50, End: 60}))
}

func TestTableMintsSequentialIDs(t *testing.T) {
	tbl := NewTable()
	a := tbl.Add("a.nv", "", []byte("x"))
	b := tbl.Add("b.nv", "", []byte("y"))
	require.Equal(t, ID(1), a.ID)
	require.Equal(t, ID(2), b.ID)
	require.Same(t, a, tbl.Get(a.ID))
	require.Nil(t, tbl.Get(None))
	require.Nil(t, tbl.Get(ID(99)))
}

func TestTableAddLocResolvesToFileAndSpan(t *testing.T) {
	tbl := NewTable()
	f := tbl.Add("a.nv", "", []byte("some text"))
	loc := tbl.AddLoc(f.ID, Span{Start: 5, End: 8})

	require.Same(t, f, tbl.Get(loc))
	sp, ok := tbl.Span(loc)
	require.True(t, ok)
	require.Equal(t, Span{Start: 5, End: 8}, sp)

	// A plain file ID has no span of its own; Resolve falls back to the
	// caller-provided one.
	_, ok = tbl.Span(f.ID)
	require.False(t, ok)
	r, ok := tbl.Resolve(f.ID, Span{Start: 1, End: 2})
	require.True(t, ok)
	require.Equal(t, Span{Start: 1, End: 2}, r.Span)

	r, ok = tbl.Resolve(loc, Span{Start: 0, End: 0})
	require.True(t, ok)
	require.Equal(t, Span{Start: 5, End: 8}, r.Span)
}
