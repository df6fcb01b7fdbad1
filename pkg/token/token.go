// Package token defines the lexical vocabulary shared by the lexer and
// parser.
package token

import "github.com/novalang/novac/pkg/source"

// Kind tags a Token's lexical category.
type Kind int

const (
	EOF Kind = iota
	Error

	Ident
	IntLit
	LongLit
	FloatLit
	BoolLit
	CharLit
	StringLit
	LineComment

	// Keywords.
	KwFun
	KwAct
	KwStruct
	KwUnion
	KwEnum
	KwImport
	KwIf
	KwElse
	KwIs
	KwAs
	KwFork
	KwLazy
	KwIntrinsic
	KwImplicit

	// Punctuation / operators.
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Semicolon
	Colon
	Arrow // ->
	Assign
	Dot

	Plus
	Minus
	Star
	Slash
	Percent
	Amp
	Pipe
	Caret
	Tilde
	Shl
	Shr

	EqEq
	NotEq
	Less
	LessEq
	Greater
	GreaterEq

	AndAnd
	OrOr
	Bang

	Question
)

var keywords = map[string]Kind{
	"fun":       KwFun,
	"act":       KwAct,
	"struct":    KwStruct,
	"union":     KwUnion,
	"enum":      KwEnum,
	"import":    KwImport,
	"if":        KwIf,
	"else":      KwElse,
	"is":        KwIs,
	"as":        KwAs,
	"fork":      KwFork,
	"lazy":      KwLazy,
	"intrinsic": KwIntrinsic,
	"implicit":  KwImplicit,
}

// LookupIdent returns the keyword Kind for name, or Ident if name is not a
// reserved word.
func LookupIdent(name string) Kind {
	if k, ok := keywords[name]; ok {
		return k
	}
	return Ident
}

// Token is a single lexical unit with its source span.
type Token struct {
	Kind    Kind
	Text    string // raw text for Ident/literals; empty otherwise
	Message string // set only for Error tokens
	Span    source.Span
}

// IsReservedName reports whether name cannot be used as a user type or
// function name because it names a primitive type or a keyword.
func IsReservedName(name string) bool {
	if _, ok := keywords[name]; ok {
		return true
	}
	switch name {
	case "int", "long", "float", "bool", "char", "string", "sys_stream", "function", "action", "self":
		return true
	}
	return false
}
