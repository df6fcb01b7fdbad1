package codegen

import (
	"testing"

	"github.com/novalang/novac/pkg/ir"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/require"
)

func assertGoldenDisasm(t *testing.T, want, got string) {
	t.Helper()
	if want == got {
		return
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	require.NoError(t, err)
	t.Fatalf("disassembly mismatch:\n%s", diff)
}

func TestGenerateEmitsEntryForSingleLiteral(t *testing.T) {
	prog := ir.NewProgram()
	prog.Execs = []ir.ExecStmt{{Consts: ir.NewConstDeclTable(), Expr: ir.NewLitInt(prog.IntType, 1)}}

	mod := Generate(prog, Options{Deterministic: true})
	want := "entry: 0\n" +
		"0000: alloc.locals     0\n" +
		"0003: load.lit.i1      \n" +
		"0004: pop              \n" +
		"0005: ret              \n"
	assertGoldenDisasm(t, want, Disassemble(mod))
}

func TestGenerateLowersIntrinsicCallDirectly(t *testing.T) {
	prog := ir.NewProgram()
	add := prog.FuncDecls.Declare(ir.FuncDecl{Name: "+", Kind: ir.FuncIntrinsicAddInt, Input: ir.TypeSet{prog.IntType, prog.IntType}, Output: prog.IntType})
	call := ir.NewCall(prog.IntType, add, []ir.Expr{ir.NewLitInt(prog.IntType, 1), ir.NewLitInt(prog.IntType, 2)}, ir.CallNormal)
	prog.Execs = []ir.ExecStmt{{Consts: ir.NewConstDeclTable(), Expr: call}}

	mod := Generate(prog, Options{})
	require.Contains(t, Disassemble(mod), "add.int")
}

func TestGenerateInternsDuplicateStrings(t *testing.T) {
	prog := ir.NewProgram()
	g := ir.NewGroup([]ir.Expr{
		ir.NewLitString(prog.StringType, "hi"),
		ir.NewLitString(prog.StringType, "hi"),
	})
	prog.Execs = []ir.ExecStmt{{Consts: ir.NewConstDeclTable(), Expr: g}}

	mod := Generate(prog, Options{})
	require.Len(t, mod.Strings, 1)
	require.Equal(t, "hi", mod.Strings[0])
}

func TestGenerateSingleFieldStructIsUnboxed(t *testing.T) {
	prog := ir.NewProgram()
	structID := prog.TypeDecls.Declare("Box", ir.KindStruct)
	fieldA := ir.FieldDecl{ID: 1, Name: "v", Type: prog.IntType}
	prog.TypeDefs.Define(structID, ir.TypeDef{Kind: ir.KindStruct, Struct: &ir.StructDef{Fields: []ir.FieldDecl{fieldA}}})
	ctor := prog.FuncDecls.Declare(ir.FuncDecl{Name: "Box", Kind: ir.FuncMakeStruct, Input: ir.TypeSet{prog.IntType}, Output: structID})

	construct := ir.NewCall(structID, ctor, []ir.Expr{ir.NewLitInt(prog.IntType, 9)}, ir.CallNormal)
	prog.Execs = []ir.ExecStmt{{Consts: ir.NewConstDeclTable(), Expr: construct}}

	mod := Generate(prog, Options{})
	require.NotContains(t, Disassemble(mod), "make.struct")
}

// TestGenerateTailPositionCallUsesCallTail checks structural tail-call
// detection: a user call that is the last expression of a function body
// lowers to CallTail instead of Call.
func TestGenerateTailPositionCallUsesCallTail(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.FuncDecls.Declare(ir.FuncDecl{Name: "f", Kind: ir.FuncUser, Output: prog.IntType})
	prog.FuncDefs.Define(f, &ir.FuncDef{ID: f, Consts: ir.NewConstDeclTable(), Body: ir.NewLitInt(prog.IntType, 1)})

	g := prog.FuncDecls.Declare(ir.FuncDecl{Name: "g", Kind: ir.FuncUser, Output: prog.IntType})
	prog.FuncDefs.Define(g, &ir.FuncDef{ID: g, Consts: ir.NewConstDeclTable(), Body: ir.NewCall(prog.IntType, f, nil, ir.CallNormal)})

	mod := Generate(prog, Options{Deterministic: true})
	require.Contains(t, Disassemble(mod), "call.tail")
}

// TestGenerateNonTailCallStaysCall guards the converse: the same call in
// a non-tail position (an argument of further work) stays a plain Call.
func TestGenerateNonTailCallStaysCall(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.FuncDecls.Declare(ir.FuncDecl{Name: "f", Kind: ir.FuncUser, Output: prog.IntType})
	prog.FuncDefs.Define(f, &ir.FuncDef{ID: f, Consts: ir.NewConstDeclTable(), Body: ir.NewLitInt(prog.IntType, 1)})
	add := prog.FuncDecls.Declare(ir.FuncDecl{Name: "+", Kind: ir.FuncIntrinsicAddInt, Input: ir.TypeSet{prog.IntType, prog.IntType}, Output: prog.IntType})

	g := prog.FuncDecls.Declare(ir.FuncDecl{Name: "g", Kind: ir.FuncUser, Output: prog.IntType})
	body := ir.NewCall(prog.IntType, add, []ir.Expr{
		ir.NewCall(prog.IntType, f, nil, ir.CallNormal),
		ir.NewLitInt(prog.IntType, 1),
	}, ir.CallNormal)
	prog.FuncDefs.Define(g, &ir.FuncDef{ID: g, Consts: ir.NewConstDeclTable(), Body: body})

	mod := Generate(prog, Options{Deterministic: true})
	require.NotContains(t, Disassemble(mod), "call.tail")
}

// TestGenerateLazyCallBuildsThunkObject checks the lazy-object
// constructor sequence: `lazy f()` must materialize the two-field
// {state, closure} struct (state 0 plus an ip-literal closure), not call
// f outright.
func TestGenerateLazyCallBuildsThunkObject(t *testing.T) {
	prog := ir.NewProgram()
	f := prog.FuncDecls.Declare(ir.FuncDecl{Name: "f", Kind: ir.FuncUser, Output: prog.IntType})
	prog.FuncDefs.Define(f, &ir.FuncDef{ID: f, Consts: ir.NewConstDeclTable(), Body: ir.NewLitInt(prog.IntType, 1)})
	lazyType := prog.Lazies.GetOrCreate(prog, prog.IntType, false)

	prog.Execs = []ir.ExecStmt{{Consts: ir.NewConstDeclTable(), Expr: ir.NewCall(lazyType, f, nil, ir.CallLazy)}}

	mod := Generate(prog, Options{Deterministic: true})
	disasm := Disassemble(mod)
	require.Contains(t, disasm, "load.lit.ip")
	require.Contains(t, disasm, "make.struct")
	require.NotContains(t, disasm, "call ")
}

// TestGenerateMakeUnionTagsDiscriminant covers `U(1)`-style union
// construction: a non-optimized union must emit the
// member's ordinal as the discriminant alongside its payload.
func TestGenerateMakeUnionTagsDiscriminant(t *testing.T) {
	prog := ir.NewProgram()
	unionID := prog.TypeDecls.Declare("U", ir.KindUnion)
	prog.TypeDefs.Define(unionID, ir.TypeDef{Kind: ir.KindUnion, Union: &ir.UnionDef{Members: []ir.TypeId{prog.FloatType, prog.IntType}}})
	ctor := prog.FuncDecls.Declare(ir.FuncDecl{Name: "U", Kind: ir.FuncMakeUnion, Input: ir.TypeSet{prog.IntType}, Output: unionID})

	construct := ir.NewCall(unionID, ctor, []ir.Expr{ir.NewLitInt(prog.IntType, 1)}, ir.CallNormal)
	prog.Execs = []ir.ExecStmt{{Consts: ir.NewConstDeclTable(), Expr: construct}}

	mod := Generate(prog, Options{})
	disasm := Disassemble(mod)
	require.Contains(t, disasm, "make.struct")
	require.NotContains(t, disasm, "make.nullstruct")
}

// TestGenerateMakeUnionNullableOptimizedSkipsDiscriminant covers the
// {struct-of-N-fields, empty-struct} shape: constructing the empty-struct
// member must lower straight to MakeNullStruct with no discriminant at
// all (mirrors emitUnionCheck/emitUnionGet's isNullableUnion branch).
func TestGenerateMakeUnionNullableOptimizedSkipsDiscriminant(t *testing.T) {
	prog := ir.NewProgram()
	boxID := prog.TypeDecls.Declare("Box", ir.KindStruct)
	prog.TypeDefs.Define(boxID, ir.TypeDef{Kind: ir.KindStruct, Struct: &ir.StructDef{
		Fields: []ir.FieldDecl{{ID: 1, Name: "a", Type: prog.IntType}, {ID: 2, Name: "b", Type: prog.IntType}},
	}})
	emptyID := prog.TypeDecls.Declare("Empty", ir.KindStruct)
	prog.TypeDefs.Define(emptyID, ir.TypeDef{Kind: ir.KindStruct, Struct: &ir.StructDef{}})

	unionID := prog.TypeDecls.Declare("Opt", ir.KindUnion)
	prog.TypeDefs.Define(unionID, ir.TypeDef{Kind: ir.KindUnion, Union: &ir.UnionDef{Members: []ir.TypeId{boxID, emptyID}}})
	ctor := prog.FuncDecls.Declare(ir.FuncDecl{Name: "Opt", Kind: ir.FuncMakeUnion, Input: ir.TypeSet{emptyID}, Output: unionID})
	emptyCtor := prog.FuncDecls.Declare(ir.FuncDecl{Name: "Empty", Kind: ir.FuncMakeStruct, Output: emptyID})

	construct := ir.NewCall(unionID, ctor, []ir.Expr{ir.NewCall(emptyID, emptyCtor, nil, ir.CallNormal)}, ir.CallNormal)
	prog.Execs = []ir.ExecStmt{{Consts: ir.NewConstDeclTable(), Expr: construct}}

	mod := Generate(prog, Options{})
	disasm := Disassemble(mod)
	require.Contains(t, disasm, "make.nullstruct")
	require.NotContains(t, disasm, "make.struct")
}

// TestGenerateUnionGetNullableOptimizedBindsOperand guards against
// emitUnionGet falling back to struct-field loads (discriminant/payload)
// on a nullable-struct-optimized union, which would read garbage fields
// out of a bare struct with none of that shape.
func TestGenerateUnionGetNullableOptimizedBindsOperand(t *testing.T) {
	prog := ir.NewProgram()
	boxID := prog.TypeDecls.Declare("Box", ir.KindStruct)
	prog.TypeDefs.Define(boxID, ir.TypeDef{Kind: ir.KindStruct, Struct: &ir.StructDef{
		Fields: []ir.FieldDecl{{ID: 1, Name: "a", Type: prog.IntType}, {ID: 2, Name: "b", Type: prog.IntType}},
	}})
	emptyID := prog.TypeDecls.Declare("Empty", ir.KindStruct)
	prog.TypeDefs.Define(emptyID, ir.TypeDef{Kind: ir.KindStruct, Struct: &ir.StructDef{}})

	unionID := prog.TypeDecls.Declare("Opt", ir.KindUnion)
	prog.TypeDefs.Define(unionID, ir.TypeDef{Kind: ir.KindUnion, Union: &ir.UnionDef{Members: []ir.TypeId{boxID, emptyID}}})

	operand := ir.NewLitInt(unionID, 0)
	get := ir.NewUnionGet(prog.BoolType, operand, boxID, 1)
	prog.Execs = []ir.ExecStmt{{Consts: ir.NewConstDeclTable(), Expr: get}}

	mod := Generate(prog, Options{})
	disasm := Disassemble(mod)
	require.Contains(t, disasm, "check.structnull")
	require.NotContains(t, disasm, "struct.loadfield")
}
