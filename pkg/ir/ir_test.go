package ir

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

func TestProgramRegistersPrimitives(t *testing.T) {
	p := NewProgram()
	require.NotEqual(t, NoType, p.IntType)
	decl := p.TypeDecls.Get(p.IntType)
	require.Equal(t, "int", decl.Name)
	require.Equal(t, KindInt, decl.Kind)
}

func TestConstDeclTableShadowsByLatest(t *testing.T) {
	tbl := NewConstDeclTable()
	a1 := tbl.Declare("x", 1)
	a2 := tbl.Declare("x", 2)
	got, ok := tbl.Lookup("x")
	require.True(t, ok)
	require.Equal(t, a2, got)
	require.NotEqual(t, a1, a2)
	require.Equal(t, 2, tbl.Len())
}

func TestTypeSetEqual(t *testing.T) {
	a := TypeSet{1, 2, 3}
	b := TypeSet{1, 2, 3}
	c := TypeSet{1, 2}
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestDelegateTableDedups(t *testing.T) {
	p := NewProgram()
	d1 := p.Delegates.GetOrCreate(p, TypeSet{p.IntType}, p.BoolType, false)
	d2 := p.Delegates.GetOrCreate(p, TypeSet{p.IntType}, p.BoolType, false)
	require.Equal(t, d1, d2)
	d3 := p.Delegates.GetOrCreate(p, TypeSet{p.LongType}, p.BoolType, false)
	require.NotEqual(t, d1, d3)
}

func TestFutureAndLazyTablesDedup(t *testing.T) {
	p := NewProgram()
	f1 := p.Futures.GetOrCreate(p, p.IntType)
	f2 := p.Futures.GetOrCreate(p, p.IntType)
	require.Equal(t, f1, f2)

	l1 := p.Lazies.GetOrCreate(p, p.IntType, false)
	l2 := p.Lazies.GetOrCreate(p, p.IntType, true)
	require.NotEqual(t, l1, l2)
}

func TestFailTableOnePerType(t *testing.T) {
	p := NewProgram()
	f1 := p.Fails.GetOrCreate(p, p.IntType)
	f2 := p.Fails.GetOrCreate(p, p.IntType)
	require.Equal(t, f1, f2)
}

func TestStaticIntTableDedup(t *testing.T) {
	p := NewProgram()
	a := p.StaticInts.GetOrCreate(p, 4)
	b := p.StaticInts.GetOrCreate(p, 4)
	c := p.StaticInts.GetOrCreate(p, 5)
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

func TestHashTypeSetStable(t *testing.T) {
	a := TypeSet{1, 2, 3}
	b := TypeSet{1, 2, 3}
	require.Equal(t, HashTypeSet(a), HashTypeSet(b))
}

func TestFuncTemplateMemoizesInstances(t *testing.T) {
	tpl := NewFuncTemplate("box", []string{"T"}, nil)
	_, ok := tpl.Instance([]TypeId{1})
	require.False(t, ok)
	tpl.Memoize([]TypeId{1}, FuncInstance{TypeParams: []TypeId{1}, ResolvedID: 7, Success: true})
	inst, ok := tpl.Instance([]TypeId{1})
	require.True(t, ok)
	require.Equal(t, FuncId(7), inst.ResolvedID)
}

func TestGroupTypeIsLastElem(t *testing.T) {
	p := NewProgram()
	g := NewGroup([]Expr{NewLitInt(p.IntType, 1), NewLitBool(p.BoolType, true)})
	require.Equal(t, p.BoolType, g.Type())
}

// TestProgramStatsMatchesTableSizes dumps the Program's table contents via
// spew on failure, the same debug aid testify's own transitive dependency
// gives table-driven tests elsewhere in this module.
func TestProgramStatsMatchesTableSizes(t *testing.T) {
	p := NewProgram()
	p.TypeDecls.Declare("widget", KindStruct)
	p.FuncDecls.Declare(FuncDecl{Name: "f", Kind: FuncUser, Output: p.IntType})
	p.FuncDefs.Define(1, &FuncDef{ID: 1, Consts: NewConstDeclTable(), Body: NewLitInt(p.IntType, 1)})
	p.Execs = append(p.Execs, ExecStmt{Consts: NewConstDeclTable(), Expr: NewLitInt(p.IntType, 2)})

	stats := p.Stats()
	if !assertStats(stats, 8, 1, 1, 1) {
		t.Fatalf("unexpected stats, program dump:\n%s", spew.Sdump(p))
	}
}

func assertStats(s Stats, types, funcs, funcDefs, execs int) bool {
	return s.Types == types && s.Funcs == funcs && s.FuncDefs == funcDefs && s.ExecStmts == execs
}
