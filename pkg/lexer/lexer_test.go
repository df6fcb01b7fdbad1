package lexer

import (
	"testing"

	"github.com/novalang/novac/pkg/source"
	"github.com/novalang/novac/pkg/token"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, text string) []token.Token {
	t.Helper()
	tbl := source.NewTable()
	src := tbl.Add("t.nv", "", []byte(text))
	l := New(src)
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestIdentifiersAndKeywords(t *testing.T) {
	toks := scanAll(t, "fun act foo_Bar1")
	require.Equal(t, token.KwFun, toks[0].Kind)
	require.Equal(t, token.KwAct, toks[1].Kind)
	require.Equal(t, token.Ident, toks[2].Kind)
	require.Equal(t, "foo_Bar1", toks[2].Text)
}

func TestIntFloatLongLiterals(t *testing.T) {
	toks := scanAll(t, "1 1_000 1.5 1L 1.5e10")
	require.Equal(t, token.IntLit, toks[0].Kind)
	require.Equal(t, "1", toks[0].Text)
	require.Equal(t, token.IntLit, toks[1].Kind)
	require.Equal(t, "1000", toks[1].Text)
	require.Equal(t, token.FloatLit, toks[2].Kind)
	require.Equal(t, "1.5", toks[2].Text)
	require.Equal(t, token.LongLit, toks[3].Kind)
	require.Equal(t, "1", toks[3].Text)
	require.Equal(t, token.FloatLit, toks[4].Kind)
}

func TestMalformedDigitSeparator(t *testing.T) {
	for _, text := range []string{"1_", "1__2"} {
		toks := scanAll(t, text)
		require.Equal(t, token.Error, toks[0].Kind, text)
		require.NotEmpty(t, toks[0].Message)
	}
}

func TestStringAndCharLiterals(t *testing.T) {
	toks := scanAll(t, `"hi\n" 'a' '\''`)
	require.Equal(t, token.StringLit, toks[0].Kind)
	require.Equal(t, "hi\n", toks[0].Text)
	require.Equal(t, token.CharLit, toks[1].Kind)
	require.Equal(t, "a", toks[1].Text)
	require.Equal(t, token.CharLit, toks[2].Kind)
	require.Equal(t, "'", toks[2].Text)
}

func TestUnterminatedStringProducesErrorAndContinues(t *testing.T) {
	toks := scanAll(t, "\"abc")
	require.Equal(t, token.Error, toks[0].Kind)
	require.Equal(t, token.EOF, toks[1].Kind)
}

func TestOperatorsAndLineComment(t *testing.T) {
	toks := scanAll(t, "-> == != <= >= && || << >> // trailing\n+")
	kinds := make([]token.Kind, 0, len(toks))
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	require.Equal(t, []token.Kind{
		token.Arrow, token.EqEq, token.NotEq, token.LessEq, token.GreaterEq,
		token.AndAnd, token.OrOr, token.Shl, token.Shr, token.LineComment,
		token.Plus, token.EOF,
	}, kinds)
}

func TestEOFIsSticky(t *testing.T) {
	tbl := source.NewTable()
	src := tbl.Add("t.nv", "", []byte("1"))
	l := New(src)
	l.Next()
	a := l.Next()
	b := l.Next()
	require.Equal(t, token.EOF, a.Kind)
	require.Equal(t, token.EOF, b.Kind)
}

func TestSpansTrackBytePositions(t *testing.T) {
	tbl := source.NewTable()
	src := tbl.Add("t.nv", "", []byte("  abc"))
	l := New(src)
	tok := l.Next()
	require.Equal(t, source.Span{Start: 2, End: 4}, tok.Span)
}
