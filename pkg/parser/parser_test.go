package parser

import (
	"testing"

	"github.com/novalang/novac/pkg/ast"
	"github.com/novalang/novac/pkg/source"
	"github.com/stretchr/testify/require"
)

func parseText(t *testing.T, text string) *ast.File {
	t.Helper()
	tbl := source.NewTable()
	src := tbl.Add("t.nv", "", []byte(text))
	return Parse(src)
}

func TestParseSimpleFunc(t *testing.T) {
	f := parseText(t, "fun f() -> int 1 + 2")
	require.Len(t, f.Stmts, 1)
	decl, ok := f.Stmts[0].(*ast.FuncDecl)
	require.True(t, ok)
	require.Equal(t, "f", decl.Name)
	require.False(t, decl.IsAction)
	require.NotNil(t, decl.RetType)
	require.Equal(t, "int", decl.RetType.Name)
	bin, ok := decl.Body.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, "+", bin.Op)
}

func TestParseEnumDecl(t *testing.T) {
	f := parseText(t, "enum E = a : 42, b : -1337, c")
	decl := f.Stmts[0].(*ast.EnumDecl)
	require.Equal(t, "E", decl.Name)
	require.Len(t, decl.Entries, 3)
	require.True(t, decl.Entries[0].HasValue)
	require.Equal(t, int32(42), decl.Entries[0].Value)
	require.True(t, decl.Entries[1].HasValue)
	require.Equal(t, int32(-1337), decl.Entries[1].Value)
	require.False(t, decl.Entries[2].HasValue)
}

func TestParseStructDecl(t *testing.T) {
	f := parseText(t, "struct S = int a, bool b")
	decl := f.Stmts[0].(*ast.StructDecl)
	require.Equal(t, "S", decl.Name)
	require.Len(t, decl.Fields, 2)
	require.Equal(t, "int", decl.Fields[0].Type.Name)
	require.Equal(t, "a", decl.Fields[0].Name)
	require.Equal(t, "bool", decl.Fields[1].Type.Name)
}

func TestParseUnionDeclAndIs(t *testing.T) {
	f := parseText(t, "union U = int, float  fun f(U u) u is int")
	u := f.Stmts[0].(*ast.UnionDecl)
	require.Equal(t, "U", u.Name)
	require.Len(t, u.Members, 2)

	fn := f.Stmts[1].(*ast.FuncDecl)
	require.Len(t, fn.Params, 1)
	require.Equal(t, "U", fn.Params[0].Type.Name)
	isExpr := fn.Body.(*ast.Is)
	require.Equal(t, "int", isExpr.Type.Name)
}

func TestParseOptionalArgDefault(t *testing.T) {
	f := parseText(t, "fun f(int a = 0) a  fun g() f()")
	fn := f.Stmts[0].(*ast.FuncDecl)
	require.Len(t, fn.Params, 1)
	require.NotNil(t, fn.Params[0].Init)
	lit := fn.Params[0].Init.(*ast.IntLit)
	require.Equal(t, int32(0), lit.Value)
}

func TestParseParenCallIsCallDynCandidate(t *testing.T) {
	f := parseText(t, "fun f1() 42  fun f2() (f1)()")
	f2 := f.Stmts[1].(*ast.FuncDecl)
	call := f2.Body.(*ast.Call)
	_, isParen := call.Callee.(*ast.Paren)
	require.True(t, isParen)
}

func TestParseTernaryLowersToConditional(t *testing.T) {
	f := parseText(t, "fun f(bool c) c ? 1 : 2")
	fn := f.Stmts[0].(*ast.FuncDecl)
	cond := fn.Body.(*ast.Conditional)
	require.Len(t, cond.Clauses, 2)
	require.NotNil(t, cond.Clauses[0].Cond)
	require.Nil(t, cond.Clauses[1].Cond)
}

func TestParseIfElseChain(t *testing.T) {
	f := parseText(t, "fun f(int x) if x == 0 1 else if x == 1 2 else 3")
	fn := f.Stmts[0].(*ast.FuncDecl)
	cond := fn.Body.(*ast.Conditional)
	require.Len(t, cond.Clauses, 3)
	require.Nil(t, cond.Clauses[2].Cond)
}

func TestParseBlockGroupAndConstDecl(t *testing.T) {
	f := parseText(t, "fun f() { x = 1; x + 1 }")
	fn := f.Stmts[0].(*ast.FuncDecl)
	grp := fn.Body.(*ast.Group)
	require.Len(t, grp.Elems, 2)
	cd, ok := grp.Elems[0].(*ast.ConstDecl)
	require.True(t, ok)
	require.Equal(t, "x", cd.Name)
}

func TestParseForkLazyCall(t *testing.T) {
	f := parseText(t, "fun f() fork g()")
	fn := f.Stmts[0].(*ast.FuncDecl)
	call := fn.Body.(*ast.Call)
	require.True(t, call.Fork)
	require.False(t, call.Lazy)
}

func TestParseForkRequiresCall(t *testing.T) {
	f := parseText(t, "fun f() fork 1")
	fn := f.Stmts[0].(*ast.FuncDecl)
	_, ok := fn.Body.(*ast.ErrorExpr)
	require.True(t, ok)
}

func TestParseIntrinsicCall(t *testing.T) {
	f := parseText(t, "fun f() intrinsic{reflect_size_of}{int}()")
	fn := f.Stmts[0].(*ast.FuncDecl)
	in := fn.Body.(*ast.Intrinsic)
	require.Equal(t, "reflect_size_of", in.Name)
	require.Len(t, in.TypeArgs, 1)
	require.Equal(t, "int", in.TypeArgs[0].Name)
}

func TestParseTemplateCall(t *testing.T) {
	f := parseText(t, "fun f() box{int}(1)")
	fn := f.Stmts[0].(*ast.FuncDecl)
	call := fn.Body.(*ast.Call)
	require.Len(t, call.TypeArgs, 1)
	require.Equal(t, "int", call.TypeArgs[0].Name)
	require.Len(t, call.Args, 1)
}

func TestParseImport(t *testing.T) {
	f := parseText(t, `import "other.nv"`)
	imp := f.Stmts[0].(*ast.ImportDecl)
	require.Equal(t, "other.nv", imp.Path)
}

func TestParseSyntaxErrorRecovers(t *testing.T) {
	f := parseText(t, "struct 123 fun f() -> int 1")
	require.Len(t, f.Stmts, 2)
	errStmt, isErr := f.Stmts[0].(*ast.ErrorStmt)
	require.True(t, isErr)
	require.NotEmpty(t, errStmt.Message)
	_, isFn := f.Stmts[1].(*ast.FuncDecl)
	require.True(t, isFn)
}

func TestParseAsNamedCapture(t *testing.T) {
	f := parseText(t, "union U = int, float  fun f(U u) u as int i ? i == 0 : false")
	fn := f.Stmts[1].(*ast.FuncDecl)
	cond := fn.Body.(*ast.Conditional)
	asExpr := cond.Clauses[0].Cond.(*ast.As)
	require.Equal(t, "int", asExpr.Type.Name)
	require.Equal(t, "i", asExpr.Name)
}
