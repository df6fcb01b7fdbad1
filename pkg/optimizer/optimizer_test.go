package optimizer

import (
	"testing"

	"github.com/novalang/novac/pkg/ir"
	"github.com/stretchr/testify/require"
)

func declIntrinsic(prog *ir.Program, name string, kind ir.FuncKind, input ir.TypeSet, output ir.TypeId) ir.FuncId {
	return prog.FuncDecls.Declare(ir.FuncDecl{Name: name, Kind: kind, Input: input, Output: output})
}

func TestLitPrecomputeFoldsIntArithmetic(t *testing.T) {
	prog := ir.NewProgram()
	add := declIntrinsic(prog, "+", ir.FuncIntrinsicAddInt, ir.TypeSet{prog.IntType, prog.IntType}, prog.IntType)
	call := ir.NewCall(prog.IntType, add, []ir.Expr{ir.NewLitInt(prog.IntType, 1), ir.NewLitInt(prog.IntType, 2)}, ir.CallNormal)
	prog.Execs = []ir.ExecStmt{{Consts: ir.NewConstDeclTable(), Expr: call}}

	changed := litPrecomputePass(prog)
	require.True(t, changed)
	lit, ok := prog.Execs[0].Expr.(*ir.LitInt)
	require.True(t, ok)
	require.Equal(t, int32(3), lit.Value)
}

func TestLitPrecomputeCollapsesFieldOfConstruct(t *testing.T) {
	prog := ir.NewProgram()
	structID := prog.TypeDecls.Declare("S", ir.KindStruct)
	fieldA := ir.FieldDecl{ID: 1, Name: "a", Type: prog.IntType}
	fieldB := ir.FieldDecl{ID: 2, Name: "b", Type: prog.BoolType}
	prog.TypeDefs.Define(structID, ir.TypeDef{Kind: ir.KindStruct, Struct: &ir.StructDef{Fields: []ir.FieldDecl{fieldA, fieldB}}})
	ctor := prog.FuncDecls.Declare(ir.FuncDecl{Name: "S", Kind: ir.FuncMakeStruct, Input: ir.TypeSet{prog.IntType, prog.BoolType}, Output: structID})

	construct := ir.NewCall(structID, ctor, []ir.Expr{ir.NewLitInt(prog.IntType, 1), ir.NewLitBool(prog.BoolType, true)}, ir.CallNormal)
	fieldRead := ir.NewField(prog.IntType, construct, fieldA.ID)
	prog.Execs = []ir.ExecStmt{{Consts: ir.NewConstDeclTable(), Expr: fieldRead}}

	changed := litPrecomputePass(prog)
	require.True(t, changed)
	lit, ok := prog.Execs[0].Expr.(*ir.LitInt)
	require.True(t, ok)
	require.Equal(t, int32(1), lit.Value)
}

func TestLitPrecomputeDevirtualizesCallDynOfLitFunc(t *testing.T) {
	prog := ir.NewProgram()
	fn := prog.FuncDecls.Declare(ir.FuncDecl{Name: "double", Kind: ir.FuncUser, Input: ir.TypeSet{prog.IntType}, Output: prog.IntType})
	delegate := prog.Delegates.GetOrCreate(prog, ir.TypeSet{prog.IntType}, prog.IntType, false)

	call := ir.NewCallDyn(prog.IntType, ir.NewLitFunc(delegate, fn), []ir.Expr{ir.NewLitInt(prog.IntType, 5)}, false)
	prog.Execs = []ir.ExecStmt{{Consts: ir.NewConstDeclTable(), Expr: call}}

	changed := litPrecomputePass(prog)
	require.True(t, changed)
	direct, ok := prog.Execs[0].Expr.(*ir.Call)
	require.True(t, ok)
	require.Equal(t, fn, direct.Func)
}

func TestTreeShakeDropsUnreachableFunctions(t *testing.T) {
	prog := ir.NewProgram()
	used := prog.FuncDecls.Declare(ir.FuncDecl{Name: "used", Kind: ir.FuncUser, Output: prog.IntType})
	unused := prog.FuncDecls.Declare(ir.FuncDecl{Name: "unused", Kind: ir.FuncUser, Output: prog.IntType})
	prog.FuncDefs.Define(used, &ir.FuncDef{ID: used, Consts: ir.NewConstDeclTable(), Body: ir.NewLitInt(prog.IntType, 1)})
	prog.FuncDefs.Define(unused, &ir.FuncDef{ID: unused, Consts: ir.NewConstDeclTable(), Body: ir.NewLitInt(prog.IntType, 2)})
	prog.Execs = []ir.ExecStmt{{Consts: ir.NewConstDeclTable(), Expr: ir.NewCall(prog.IntType, used, nil, ir.CallNormal)}}

	changed := shake(prog)
	require.True(t, changed)
	require.NotNil(t, prog.FuncDefs.Get(used))
	require.Nil(t, prog.FuncDefs.Get(unused))
}

func TestConstElimInlinesSingleUseConstant(t *testing.T) {
	prog := ir.NewProgram()
	consts := ir.NewConstDeclTable()
	x := consts.Declare("x", prog.IntType)

	group := ir.NewGroup([]ir.Expr{
		ir.NewAssign(x, ir.NewLitInt(prog.IntType, 7)),
		ir.NewConst(prog.IntType, x),
	})
	fn := prog.FuncDecls.Declare(ir.FuncDecl{Name: "f", Kind: ir.FuncUser, Output: prog.IntType})
	prog.FuncDefs.Define(fn, &ir.FuncDef{ID: fn, Consts: consts, Body: group})

	changed := constElimPass(prog)
	require.True(t, changed)
	lit, ok := prog.FuncDefs.Get(fn).Body.(*ir.LitInt)
	require.True(t, ok)
	require.Equal(t, int32(7), lit.Value)
}

func TestConstElimKeepsSideEffectInPlace(t *testing.T) {
	prog := ir.NewProgram()
	consts := ir.NewConstDeclTable()
	x := consts.Declare("x", prog.IntType)
	action := prog.FuncDecls.Declare(ir.FuncDecl{Name: "act", Kind: ir.FuncUser, Output: prog.IntType, IsAction: true})

	group := ir.NewGroup([]ir.Expr{
		ir.NewAssign(x, ir.NewCall(prog.IntType, action, nil, ir.CallNormal)),
		ir.NewConst(prog.IntType, x),
		ir.NewLitBool(prog.BoolType, true),
	})
	fn := prog.FuncDecls.Declare(ir.FuncDecl{Name: "f", Kind: ir.FuncUser, Output: prog.BoolType})
	prog.FuncDefs.Define(fn, &ir.FuncDef{ID: fn, Consts: consts, Body: group})

	constElimPass(prog)
	g, ok := prog.FuncDefs.Get(fn).Body.(*ir.Group)
	require.True(t, ok)
	require.Len(t, g.Elems, 3)
	_, stillAssign := g.Elems[0].(*ir.Assign)
	require.True(t, stillAssign)
}

func TestInlinePassInlinesNonRecursiveCall(t *testing.T) {
	prog := ir.NewProgram()
	calleeConsts := ir.NewConstDeclTable()
	p := calleeConsts.Declare("p", prog.IntType)
	callee := prog.FuncDecls.Declare(ir.FuncDecl{Name: "inc", Kind: ir.FuncUser, Input: ir.TypeSet{prog.IntType}, Output: prog.IntType})
	add := declIntrinsic(prog, "+", ir.FuncIntrinsicAddInt, ir.TypeSet{prog.IntType, prog.IntType}, prog.IntType)
	calleeBody := ir.NewCall(prog.IntType, add, []ir.Expr{ir.NewConst(prog.IntType, p), ir.NewLitInt(prog.IntType, 1)}, ir.CallNormal)
	prog.FuncDefs.Define(callee, &ir.FuncDef{ID: callee, Consts: calleeConsts, Body: calleeBody})

	caller := prog.FuncDecls.Declare(ir.FuncDecl{Name: "caller", Kind: ir.FuncUser, Output: prog.IntType})
	callExpr := ir.NewCall(prog.IntType, callee, []ir.Expr{ir.NewLitInt(prog.IntType, 41)}, ir.CallNormal)
	prog.FuncDefs.Define(caller, &ir.FuncDef{ID: caller, Consts: ir.NewConstDeclTable(), Body: callExpr})

	graph := buildCallGraph(prog)
	recursive := computeRecursive(graph)
	require.False(t, recursive[callee])

	changed := inlinePass(prog, recursive)
	require.True(t, changed)
	g, ok := prog.FuncDefs.Get(caller).Body.(*ir.Group)
	require.True(t, ok)
	require.Len(t, g.Elems, 2)
}

// TestInlineRegistersFreshCallerLocals pins the inliner's renaming
// discipline: every callee constant must land in the caller's own table
// as a fresh `__inlined_` local so codegen's slot allocation (dense
// ConstIds, one table per frame) still holds after inlining.
func TestInlineRegistersFreshCallerLocals(t *testing.T) {
	prog := ir.NewProgram()
	calleeConsts := ir.NewConstDeclTable()
	p := calleeConsts.Declare("p", prog.IntType)
	callee := prog.FuncDecls.Declare(ir.FuncDecl{Name: "inc", Kind: ir.FuncUser, Input: ir.TypeSet{prog.IntType}, Output: prog.IntType})
	prog.FuncDefs.Define(callee, &ir.FuncDef{ID: callee, Consts: calleeConsts, Body: ir.NewConst(prog.IntType, p)})

	callerConsts := ir.NewConstDeclTable()
	own := callerConsts.Declare("own", prog.IntType)
	caller := prog.FuncDecls.Declare(ir.FuncDecl{Name: "caller", Kind: ir.FuncUser, Output: prog.IntType})
	body := ir.NewCall(prog.IntType, callee, []ir.Expr{ir.NewConst(prog.IntType, own)}, ir.CallNormal)
	prog.FuncDefs.Define(caller, &ir.FuncDef{ID: caller, Consts: callerConsts, Body: body})

	require.True(t, inlinePass(prog, map[ir.FuncId]bool{}))

	require.Equal(t, 2, callerConsts.Len())
	inlined := callerConsts.All()[1]
	require.Contains(t, inlined.Name, "__inlined_")
	require.NotEqual(t, own, inlined.ID)

	g, ok := prog.FuncDefs.Get(caller).Body.(*ir.Group)
	require.True(t, ok)
	asg, ok := g.Elems[0].(*ir.Assign)
	require.True(t, ok)
	require.Equal(t, inlined.ID, asg.ID)
}

func TestLazyGetOfLazyCallCollapses(t *testing.T) {
	prog := ir.NewProgram()
	fn := prog.FuncDecls.Declare(ir.FuncDecl{Name: "f", Kind: ir.FuncUser, Output: prog.IntType})
	lazyType := prog.Lazies.GetOrCreate(prog, prog.IntType, false)
	get := prog.FuncDecls.Declare(ir.FuncDecl{Name: "__lazy_get", Kind: ir.FuncIntrinsicLazyGet, Input: ir.TypeSet{lazyType}, Output: prog.IntType})

	inner := ir.NewCall(lazyType, fn, nil, ir.CallLazy)
	call := ir.NewCall(prog.IntType, get, []ir.Expr{inner}, ir.CallNormal)
	prog.Execs = []ir.ExecStmt{{Consts: ir.NewConstDeclTable(), Expr: call}}

	changed := litPrecomputePass(prog)
	require.True(t, changed)
	direct, ok := prog.Execs[0].Expr.(*ir.Call)
	require.True(t, ok)
	require.Equal(t, fn, direct.Func)
	require.Equal(t, ir.CallNormal, direct.Mode)
}

// TestLitPrecomputeFoldsBitReinterpret checks that reinterpret folding
// moves the 32-bit pattern across, not the numeric value: 0x3f800000 is
// the bit pattern of 1.0f, nowhere near the value 1065353216.0.
func TestLitPrecomputeFoldsBitReinterpret(t *testing.T) {
	prog := ir.NewProgram()
	toFloat := declIntrinsic(prog, "r2f", ir.FuncIntrinsicReinterpretIntToFloat, ir.TypeSet{prog.IntType}, prog.FloatType)
	toInt := declIntrinsic(prog, "r2i", ir.FuncIntrinsicReinterpretFloatToInt, ir.TypeSet{prog.FloatType}, prog.IntType)

	call := ir.NewCall(prog.FloatType, toFloat, []ir.Expr{ir.NewLitInt(prog.IntType, 0x3f800000)}, ir.CallNormal)
	prog.Execs = []ir.ExecStmt{{Consts: ir.NewConstDeclTable(), Expr: call}}
	require.True(t, litPrecomputePass(prog))
	f, ok := prog.Execs[0].Expr.(*ir.LitFloat)
	require.True(t, ok)
	require.Equal(t, 1.0, f.Value)

	back := ir.NewCall(prog.IntType, toInt, []ir.Expr{ir.NewLitFloat(prog.FloatType, 1.0)}, ir.CallNormal)
	prog.Execs = []ir.ExecStmt{{Consts: ir.NewConstDeclTable(), Expr: back}}
	require.True(t, litPrecomputePass(prog))
	i, ok := prog.Execs[0].Expr.(*ir.LitInt)
	require.True(t, ok)
	require.Equal(t, int32(0x3f800000), i.Value)
}

func TestLitPrecomputeFoldsEnumConversions(t *testing.T) {
	prog := ir.NewProgram()
	enumID := prog.TypeDecls.Declare("E", ir.KindEnum)
	prog.TypeDefs.Define(enumID, ir.TypeDef{Kind: ir.KindEnum, Enum: &ir.EnumDef{Entries: []ir.EnumEntry{{Name: "a", Value: 7}}}})
	toInt := prog.FuncDecls.Declare(ir.FuncDecl{Name: "int", Kind: ir.FuncIntrinsicConvEnumToInt, Input: ir.TypeSet{enumID}, Output: prog.IntType})

	call := ir.NewCall(prog.IntType, toInt, []ir.Expr{ir.NewLitEnum(enumID, 7)}, ir.CallNormal)
	prog.Execs = []ir.ExecStmt{{Consts: ir.NewConstDeclTable(), Expr: call}}

	require.True(t, litPrecomputePass(prog))
	lit, ok := prog.Execs[0].Expr.(*ir.LitInt)
	require.True(t, ok)
	require.Equal(t, int32(7), lit.Value)
}

func TestComputeRecursiveDetectsSelfRecursion(t *testing.T) {
	prog := ir.NewProgram()
	fn := prog.FuncDecls.Declare(ir.FuncDecl{Name: "loop", Kind: ir.FuncUser, Output: prog.IntType})
	body := ir.NewCallSelf(prog.IntType, nil)
	prog.FuncDefs.Define(fn, &ir.FuncDef{ID: fn, Consts: ir.NewConstDeclTable(), Body: body})

	graph := buildCallGraph(prog)
	recursive := computeRecursive(graph)
	require.True(t, recursive[fn])
}

func TestOptimizeReachesFixedPoint(t *testing.T) {
	prog := ir.NewProgram()
	add := declIntrinsic(prog, "+", ir.FuncIntrinsicAddInt, ir.TypeSet{prog.IntType, prog.IntType}, prog.IntType)
	call := ir.NewCall(prog.IntType, add, []ir.Expr{ir.NewLitInt(prog.IntType, 1), ir.NewLitInt(prog.IntType, 2)}, ir.CallNormal)
	prog.Execs = []ir.ExecStmt{{Consts: ir.NewConstDeclTable(), Expr: call}}

	rounds := Optimize(prog, Options{})
	require.GreaterOrEqual(t, rounds, 1)
	lit, ok := prog.Execs[0].Expr.(*ir.LitInt)
	require.True(t, ok)
	require.Equal(t, int32(3), lit.Value)
}
