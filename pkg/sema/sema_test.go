package sema

import (
	"testing"

	"github.com/novalang/novac/pkg/ast"
	"github.com/novalang/novac/pkg/diag"
	"github.com/novalang/novac/pkg/ir"
	"github.com/novalang/novac/pkg/parser"
	"github.com/novalang/novac/pkg/source"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, text string) (*ir.Program, *diag.Bag) {
	t.Helper()
	tbl := source.NewTable()
	src := tbl.Add("main.nv", "", []byte(text))
	f := parser.Parse(src)
	bag := &diag.Bag{}
	prog := Analyze([]*ast.File{f}, tbl, bag)
	return prog, bag
}

func analyzeOK(t *testing.T, text string) *ir.Program {
	t.Helper()
	prog, bag := analyze(t, text)
	require.Empty(t, bag.Items(), "unexpected diagnostics: %+v", bag.Items())
	return prog
}

func userFunc(t *testing.T, prog *ir.Program, name string) (ir.FuncDecl, *ir.FuncDef) {
	t.Helper()
	for _, id := range prog.FuncDecls.ByName(name) {
		decl := prog.FuncDecls.Get(id)
		if decl.Kind == ir.FuncUser {
			return decl, prog.FuncDefs.Get(id)
		}
	}
	t.Fatalf("no user function %q", name)
	return ir.FuncDecl{}, nil
}

func hasKind(bag *diag.Bag, kind diag.Kind) bool {
	for _, d := range bag.Items() {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

func TestAnalyzeFuncWithExplicitReturnType(t *testing.T) {
	prog := analyzeOK(t, "fun f() -> int 1 + 2")
	decl, def := userFunc(t, prog, "f")
	require.Equal(t, prog.IntType, decl.Output)
	call, ok := def.Body.(*ir.Call)
	require.True(t, ok)
	require.Equal(t, ir.FuncIntrinsicAddInt, prog.FuncDecls.Get(call.Func).Kind)
	require.Len(t, call.Args, 2)
}

func TestEnumDeclarationAssignsValues(t *testing.T) {
	prog := analyzeOK(t, "enum E = a : 42, b : -1337, c")
	id, ok := prog.TypeDecls.ByName("E")
	require.True(t, ok)
	def, ok := prog.TypeDefs.Get(id)
	require.True(t, ok)
	require.Equal(t, []ir.EnumEntry{{Name: "a", Value: 42}, {Name: "b", Value: -1337}, {Name: "c", Value: -1336}}, def.Enum.Entries)
}

func TestEnumRejectsDuplicateNameAndValue(t *testing.T) {
	_, bag := analyze(t, "enum E = a, a")
	require.True(t, hasKind(bag, diag.DuplicateEntryNameInEnum))

	_, bag = analyze(t, "enum F = a : 3, b : 3")
	require.True(t, hasKind(bag, diag.DuplicateEntryValueInEnum))
}

func TestStructConstructorAndFieldAccess(t *testing.T) {
	prog := analyzeOK(t, "struct S = int a, bool b\nS(1, true).a")
	require.Len(t, prog.Execs, 1)
	field, ok := prog.Execs[0].Expr.(*ir.Field)
	require.True(t, ok)
	require.Equal(t, prog.IntType, field.Type())
	call, ok := field.Receiver.(*ir.Call)
	require.True(t, ok)
	require.Equal(t, ir.FuncMakeStruct, prog.FuncDecls.Get(call.Func).Kind)
}

func TestUnionIsLowersToUnionCheck(t *testing.T) {
	prog := analyzeOK(t, "union U = int, float\nfun f(U u) u is int")
	_, def := userFunc(t, prog, "f")
	check, ok := def.Body.(*ir.UnionCheck)
	require.True(t, ok)
	require.Equal(t, prog.IntType, check.Want)
	require.Equal(t, prog.BoolType, check.Type())
}

func TestUnionAsBindsConstantInCheckedCondition(t *testing.T) {
	prog := analyzeOK(t, "union U = int, float\nU(1) as int i ? i == 0 : false")
	require.Len(t, prog.Execs, 1)
	sw, ok := prog.Execs[0].Expr.(*ir.Switch)
	require.True(t, ok)
	require.Len(t, sw.Conds, 1)
	get, ok := sw.Conds[0].(*ir.UnionGet)
	require.True(t, ok)
	require.Equal(t, prog.IntType, get.Want)

	entry := prog.Execs[0].Consts.Entry(get.Bind)
	require.Equal(t, "i", entry.Name)
	require.Equal(t, prog.IntType, entry.Type)
}

func TestUncheckedAsRejected(t *testing.T) {
	_, bag := analyze(t, "union U = int, float\nfun f(U u) -> bool u as int i")
	require.True(t, hasKind(bag, diag.UncheckedAsWithConst))
}

func TestIsOnNonUnionRejected(t *testing.T) {
	_, bag := analyze(t, "fun f(int x) -> bool x is int")
	require.True(t, hasKind(bag, diag.NonUnionIsExpression))
}

func TestOptionalArgumentPatchedIntoCallSite(t *testing.T) {
	prog := analyzeOK(t, "fun f(int a = 0) a\nfun g() f()")
	_, def := userFunc(t, prog, "g")
	call, ok := def.Body.(*ir.Call)
	require.True(t, ok)
	require.Len(t, call.Args, 1)
	lit, ok := call.Args[0].(*ir.LitInt)
	require.True(t, ok)
	require.Equal(t, int32(0), lit.Value)
}

func TestRequiredParamAfterOptionalRejected(t *testing.T) {
	_, bag := analyze(t, "fun f(int a = 0, int b) a + b")
	require.True(t, hasKind(bag, diag.NonOptArgFollowingOpt))
}

func TestOptArgInitializerCannotDeclareLocals(t *testing.T) {
	_, bag := analyze(t, "fun f(int a = { x = 1; x }) -> int a")
	require.True(t, hasKind(bag, diag.ConstDeclareNotSupported))
}

func TestParenthesizedCalleeLowersToCallDyn(t *testing.T) {
	prog := analyzeOK(t, "fun f1() 42\nfun f2() (f1)()")
	_, def := userFunc(t, prog, "f2")
	dyn, ok := def.Body.(*ir.CallDyn)
	require.True(t, ok)
	lit, ok := dyn.Delegate.(*ir.LitFunc)
	require.True(t, ok)
	f1Decl, _ := userFunc(t, prog, "f1")
	require.Equal(t, f1Decl.ID, lit.Func)
}

func TestReturnTypeInferenceFixedPoint(t *testing.T) {
	prog := analyzeOK(t, "fun a() b()\nfun b() 1")
	aDecl, _ := userFunc(t, prog, "a")
	bDecl, _ := userFunc(t, prog, "b")
	require.Equal(t, prog.IntType, aDecl.Output)
	require.Equal(t, prog.IntType, bDecl.Output)
}

func TestReturnTypeInferenceCycleFails(t *testing.T) {
	_, bag := analyze(t, "fun a() b()\nfun b() a()")
	count := 0
	for _, d := range bag.Items() {
		if d.Kind == diag.UnableToInferFuncReturnType {
			count++
		}
	}
	require.Equal(t, 2, count)
}

func TestSelfCallRecursion(t *testing.T) {
	prog := analyzeOK(t, "fun f(int n) -> int n <= 1 ? 1 : self(n - 1)")
	_, def := userFunc(t, prog, "f")
	found := false
	ir.Walk(def.Body, func(e ir.Expr) bool {
		if _, ok := e.(*ir.CallSelf); ok {
			found = true
		}
		return true
	})
	require.True(t, found)
}

func TestSelfCallOutsideFunctionRejected(t *testing.T) {
	_, bag := analyze(t, "self()")
	require.True(t, hasKind(bag, diag.SelfCallInNonFunc))
}

func TestSelfCallArityChecked(t *testing.T) {
	_, bag := analyze(t, "fun f(int n) -> int self()")
	require.True(t, hasKind(bag, diag.IncorrectNumArgsInSelfCall))
}

func TestCyclicStructRejected(t *testing.T) {
	_, bag := analyze(t, "struct A = B b\nstruct B = A a")
	require.True(t, hasKind(bag, diag.CyclicStruct))
}

func TestUnionBreaksStructCycle(t *testing.T) {
	analyzeOK(t, "union Link = Node, int\nstruct Node = Link next")
}

func TestDuplicateTypeDeclarationRejected(t *testing.T) {
	_, bag := analyze(t, "struct S = int a\nstruct S = int b")
	require.True(t, hasKind(bag, diag.TypeAlreadyDeclared))
}

func TestReservedTypeNameRejected(t *testing.T) {
	_, bag := analyze(t, "struct int = bool b")
	require.True(t, hasKind(bag, diag.TypeNameIsReserved))
}

func TestDuplicateFieldRejected(t *testing.T) {
	_, bag := analyze(t, "struct S = int a, bool a")
	require.True(t, hasKind(bag, diag.DuplicateField))
}

func TestDuplicateFunctionSignatureRejected(t *testing.T) {
	_, bag := analyze(t, "fun f(int x) x\nfun f(int y) y + 1")
	require.True(t, hasKind(bag, diag.DuplicateFuncDeclaration))
}

func TestOverloadResolutionPicksExactMatch(t *testing.T) {
	prog := analyzeOK(t, "fun h(int x) -> int x\nfun h(float x) -> float x\nh(1)")
	call, ok := prog.Execs[0].Expr.(*ir.Call)
	require.True(t, ok)
	require.Equal(t, prog.IntType, prog.FuncDecls.Get(call.Func).Output)
}

func TestAmbiguousOverloadRejected(t *testing.T) {
	_, bag := analyze(t, "fun h(long x) -> long x\nfun h(float x) -> float x\nh(1)")
	require.True(t, hasKind(bag, diag.AmbiguousFunction))
}

func TestActionCallFromPureFuncRejected(t *testing.T) {
	_, bag := analyze(t, "act a() -> int 1\nfun f() -> int a()")
	require.True(t, hasKind(bag, diag.UndeclaredPureFunc))
}

func TestImplicitConversionDeclarationAndUse(t *testing.T) {
	prog := analyzeOK(t,
		"implicit fun float(bool b) -> float if b 1.0 else 0.0\n"+
			"fun g(float x) -> float x\n"+
			"g(true)")
	call, ok := prog.Execs[0].Expr.(*ir.Call)
	require.True(t, ok)
	require.Len(t, call.Args, 1)
	conv, ok := call.Args[0].(*ir.Call)
	require.True(t, ok)
	convDecl := prog.FuncDecls.Get(conv.Func)
	require.True(t, convDecl.IsImplicitConv)
	require.Equal(t, prog.FloatType, convDecl.Output)
}

func TestImplicitConversionMustBePure(t *testing.T) {
	_, bag := analyze(t, "implicit act float(bool b) -> float 1.0")
	require.True(t, hasKind(bag, diag.NonPureConversion))
}

func TestImplicitConversionMustNameType(t *testing.T) {
	_, bag := analyze(t, "implicit fun widen(bool b) -> int 1")
	require.True(t, hasKind(bag, diag.ImplicitNonConv))
}

func TestImplicitConversionSingleInput(t *testing.T) {
	_, bag := analyze(t, "implicit fun float(bool b, int c) -> float 1.0")
	require.True(t, hasKind(bag, diag.TooManyInputsInImplicitConv))
}

func TestImplicitConversionTemplatedRejected(t *testing.T) {
	_, bag := analyze(t, "implicit fun float{T}(T v) -> float 1.0")
	require.True(t, hasKind(bag, diag.TemplatedImplicitConversion))
}

func TestExplicitConversionCallableByTypeName(t *testing.T) {
	prog := analyzeOK(t, "float(1)")
	call, ok := prog.Execs[0].Expr.(*ir.Call)
	require.True(t, ok)
	require.Equal(t, ir.FuncIntrinsicConvIntToFloat, prog.FuncDecls.Get(call.Func).Kind)
}

func TestEnumConversionsBothWays(t *testing.T) {
	prog := analyzeOK(t, "enum E = a : 1, b\nint(b)\nE(0)")
	require.Len(t, prog.Execs, 2)
	toInt, ok := prog.Execs[0].Expr.(*ir.Call)
	require.True(t, ok)
	require.Equal(t, ir.FuncIntrinsicConvEnumToInt, prog.FuncDecls.Get(toInt.Func).Kind)
	fromInt, ok := prog.Execs[1].Expr.(*ir.Call)
	require.True(t, ok)
	require.Equal(t, ir.FuncIntrinsicConvIntToEnum, prog.FuncDecls.Get(fromInt.Func).Kind)
}

func TestBareEnumEntryIsLiteral(t *testing.T) {
	prog := analyzeOK(t, "enum E = a : 7, b\nb")
	lit, ok := prog.Execs[0].Expr.(*ir.LitEnum)
	require.True(t, ok)
	require.Equal(t, int32(8), lit.Value)
}

func TestConstRedeclarationRejected(t *testing.T) {
	_, bag := analyze(t, "fun f() -> int { x = 1; x = 2 }")
	require.True(t, hasKind(bag, diag.ConstNameConflictsConst))
}

func TestConstNameTypeConflictRejected(t *testing.T) {
	_, bag := analyze(t, "struct S = int a\nfun f() -> int { S = 1; S }")
	require.True(t, hasKind(bag, diag.ConstNameConflictsType))
}

func TestShortCircuitLowersToSwitch(t *testing.T) {
	prog := analyzeOK(t, "fun f(bool a, bool b) -> bool a && b")
	_, def := userFunc(t, prog, "f")
	sw, ok := def.Body.(*ir.Switch)
	require.True(t, ok)
	require.Len(t, sw.Conds, 1)
	require.Len(t, sw.Branches, 2)
	els, ok := sw.Branches[1].(*ir.LitBool)
	require.True(t, ok)
	require.False(t, els.Value)
}

func TestBranchesMustShareType(t *testing.T) {
	_, bag := analyze(t, "fun f(bool c) -> int c ? 1 : false")
	require.True(t, hasKind(bag, diag.BranchesHaveNoCommonType))
}

func TestBranchesWidenToCommonType(t *testing.T) {
	prog := analyzeOK(t, "fun f(bool c) -> float c ? 1 : 2.5")
	_, def := userFunc(t, prog, "f")
	require.Equal(t, prog.FloatType, def.Body.Type())
}

func TestAnonFuncWithoutCapturesIsLitFunc(t *testing.T) {
	prog := analyzeOK(t, "fun mk() -> function{int, int} fun(int x) x + 1")
	_, def := userFunc(t, prog, "mk")
	_, ok := def.Body.(*ir.LitFunc)
	require.True(t, ok)
}

func TestAnonFuncWithCaptureIsClosure(t *testing.T) {
	prog := analyzeOK(t, "fun mk(int k) -> function{int, int} fun(int x) x + k")
	_, def := userFunc(t, prog, "mk")
	clo, ok := def.Body.(*ir.Closure)
	require.True(t, ok)
	require.Len(t, clo.Bound, 1)

	// The synthesized function carries the capture as a trailing input.
	anonDecl := prog.FuncDecls.Get(clo.Func)
	require.Equal(t, ir.TypeSet{prog.IntType, prog.IntType}, anonDecl.Input)
}

func TestDelegateParamCallLowersToCallDyn(t *testing.T) {
	prog := analyzeOK(t, "fun ap(function{int, int} f) -> int f(1)")
	_, def := userFunc(t, prog, "ap")
	dyn, ok := def.Body.(*ir.CallDyn)
	require.True(t, ok)
	require.Equal(t, prog.IntType, dyn.Type())
}

func TestDelegateArityChecked(t *testing.T) {
	_, bag := analyze(t, "fun ap(function{int, int} f) -> int f(1, 2)")
	require.True(t, hasKind(bag, diag.IncorrectArgsToDelegate))
}

func TestTypeTemplateInstantiatesOnUse(t *testing.T) {
	prog := analyzeOK(t, "struct box{T} = T v\nbox{int}(7).v")
	id, ok := prog.TypeDecls.ByName("box__int")
	require.True(t, ok)
	require.Equal(t, ir.KindStruct, prog.TypeDecls.Get(id).Kind)

	field, ok := prog.Execs[0].Expr.(*ir.Field)
	require.True(t, ok)
	require.Equal(t, prog.IntType, field.Type())
}

func TestTypeTemplateInstancesAreMemoized(t *testing.T) {
	prog := analyzeOK(t, "struct box{T} = T v\nbox{int}(1).v\nbox{int}(2).v")
	count := 0
	for _, d := range prog.TypeDecls.All() {
		if d.Name == "box__int" {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestFuncTemplateExplicitInstantiation(t *testing.T) {
	prog := analyzeOK(t, "fun id{T}(T x) -> T x\nid{int}(5)")
	call, ok := prog.Execs[0].Expr.(*ir.Call)
	require.True(t, ok)
	require.Equal(t, "id__int", prog.FuncDecls.Get(call.Func).Name)
	require.Equal(t, prog.IntType, call.Type())
}

func TestFuncTemplateInferredInstantiation(t *testing.T) {
	prog := analyzeOK(t, "fun id{T}(T x) -> T x\nid(true)")
	call, ok := prog.Execs[0].Expr.(*ir.Call)
	require.True(t, ok)
	require.Equal(t, "id__bool", prog.FuncDecls.Get(call.Func).Name)
	require.Equal(t, prog.BoolType, call.Type())
}

func TestIntrinsicTypeName(t *testing.T) {
	prog := analyzeOK(t, "intrinsic{type_name}{int}()")
	lit, ok := prog.Execs[0].Expr.(*ir.LitString)
	require.True(t, ok)
	require.Equal(t, "int", lit.Value)
}

func TestIntrinsicReflectFieldCount(t *testing.T) {
	prog := analyzeOK(t, "struct S = int a, bool b\nintrinsic{reflect_field_count}{S}()")
	lit, ok := prog.Execs[0].Expr.(*ir.LitInt)
	require.True(t, ok)
	require.Equal(t, int32(2), lit.Value)
}

func TestIntrinsicStaticIntToInt(t *testing.T) {
	prog := analyzeOK(t, "intrinsic{staticint_to_int}{#4}()")
	lit, ok := prog.Execs[0].Expr.(*ir.LitInt)
	require.True(t, ok)
	require.Equal(t, int32(4), lit.Value)
}

func TestIntrinsicFailInterned(t *testing.T) {
	prog := analyzeOK(t, "fun f() -> int intrinsic{fail}{int}()")
	_, def := userFunc(t, prog, "f")
	call, ok := def.Body.(*ir.Call)
	require.True(t, ok)
	require.Equal(t, ir.FuncIntrinsicFail, prog.FuncDecls.Get(call.Func).Kind)
	require.Equal(t, prog.IntType, call.Type())
}

func TestIntrinsicReinterpretLowersToBitCast(t *testing.T) {
	prog := analyzeOK(t, "fun f(int x) -> float intrinsic{reinterpret_int_to_float}(x)\nfun g(float x) -> int intrinsic{reinterpret_float_to_int}(x)")
	_, fDef := userFunc(t, prog, "f")
	call, ok := fDef.Body.(*ir.Call)
	require.True(t, ok)
	require.Equal(t, ir.FuncIntrinsicReinterpretIntToFloat, prog.FuncDecls.Get(call.Func).Kind)
	require.Equal(t, prog.FloatType, call.Type())

	_, gDef := userFunc(t, prog, "g")
	call, ok = gDef.Body.(*ir.Call)
	require.True(t, ok)
	require.Equal(t, ir.FuncIntrinsicReinterpretFloatToInt, prog.FuncDecls.Get(call.Func).Kind)
	require.Equal(t, prog.IntType, call.Type())
}

func TestUnknownIntrinsicRejected(t *testing.T) {
	_, bag := analyze(t, "intrinsic{frobnicate}()")
	require.True(t, hasKind(bag, diag.UnknownIntrinsic))
}

func TestForkCallProducesFutureType(t *testing.T) {
	prog := analyzeOK(t, "fun f() -> int 1\nfun g() fork f()")
	gDecl, def := userFunc(t, prog, "g")
	require.Equal(t, ir.KindFuture, prog.TypeDecls.Get(gDecl.Output).Kind)
	call, ok := def.Body.(*ir.Call)
	require.True(t, ok)
	require.Equal(t, ir.CallFork, call.Mode)
}

func TestLazyCallProducesLazyType(t *testing.T) {
	prog := analyzeOK(t, "fun f() -> int 1\nfun g() lazy f()")
	gDecl, def := userFunc(t, prog, "g")
	require.Equal(t, ir.KindLazy, prog.TypeDecls.Get(gDecl.Output).Kind)
	call, ok := def.Body.(*ir.Call)
	require.True(t, ok)
	require.Equal(t, ir.CallLazy, call.Mode)
}

func TestForkOfBuiltinRejected(t *testing.T) {
	_, bag := analyze(t, "fun g() fork float(1)")
	require.True(t, hasKind(bag, diag.ForkedNonUserFunc))
}

func TestLazyGetCollapsesTypes(t *testing.T) {
	prog := analyzeOK(t, "fun f() -> int 1\nfun g() -> int intrinsic{lazy_get}(lazy f())")
	gDecl, _ := userFunc(t, prog, "g")
	require.Equal(t, prog.IntType, gDecl.Output)
}

func TestSourceLocPatchedAtCallSite(t *testing.T) {
	prog := analyzeOK(t,
		"fun f(int line = intrinsic{source_loc_line}()) -> int line\n"+
			"fun g() -> int f()\n"+
			"g()")
	_, def := userFunc(t, prog, "g")
	call, ok := def.Body.(*ir.Call)
	require.True(t, ok)
	require.Len(t, call.Args, 1)
	lit, ok := call.Args[0].(*ir.LitInt)
	require.True(t, ok)
	require.Equal(t, int32(2), lit.Value)
}

func TestNonMatchingReturnTypeRejected(t *testing.T) {
	_, bag := analyze(t, "fun f() -> int true")
	require.True(t, hasKind(bag, diag.NonMatchingFuncReturnType))
}

func TestReturnWidensImplicitly(t *testing.T) {
	prog := analyzeOK(t, "fun f() -> float 1")
	_, def := userFunc(t, prog, "f")
	require.Equal(t, prog.FloatType, def.Body.Type())
}

func TestStringIndexLowersToIndexOperator(t *testing.T) {
	prog := analyzeOK(t, `fun f(string s) -> char s[0]`)
	_, def := userFunc(t, prog, "f")
	call, ok := def.Body.(*ir.Call)
	require.True(t, ok)
	require.Equal(t, ir.FuncIntrinsicIndexString, prog.FuncDecls.Get(call.Func).Kind)
}

func TestUndeclaredIdentifierRejected(t *testing.T) {
	_, bag := analyze(t, "nope")
	require.True(t, hasKind(bag, diag.UndeclaredConst))
}

func TestParseErrorsLiftedIntoBag(t *testing.T) {
	_, bag := analyze(t, "struct 12")
	require.True(t, hasKind(bag, diag.ParseError))
}
