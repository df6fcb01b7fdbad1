package sema

import (
	"fmt"

	"github.com/novalang/novac/pkg/ast"
	"github.com/novalang/novac/pkg/diag"
	"github.com/novalang/novac/pkg/ir"
)

// lowerIntrinsic lowers `intrinsic{name}{TypeArgs}(args)`. Most families
// resolve to a compile-time literal directly (reflect_*, type_name,
// staticint_to_int); the rest lower to a call of a lazily-declared,
// memoized per-signature FuncId so the backend can treat them like any
// other intrinsic call.
func (a *Analyzer) lowerIntrinsic(sc *Scope, n *ast.Intrinsic) ir.Expr {
	switch n.Name {
	case "type_name", "reflect_type_name":
		t, ok := a.intrinsicTypeArg(sc, n)
		if !ok {
			return ir.NewLitString(a.prog.StringType, "")
		}
		return ir.NewLitString(a.prog.StringType, a.prog.TypeDecls.Get(t).Name)
	case "reflect_is_struct":
		t, ok := a.intrinsicTypeArg(sc, n)
		if !ok {
			return ir.NewLitBool(a.prog.BoolType, false)
		}
		def, _ := a.prog.TypeDefs.Get(t)
		return ir.NewLitBool(a.prog.BoolType, def.Kind == ir.KindStruct)
	case "reflect_field_count":
		t, ok := a.intrinsicTypeArg(sc, n)
		if !ok {
			return ir.NewLitInt(a.prog.IntType, 0)
		}
		def, ok2 := a.prog.TypeDefs.Get(t)
		if !ok2 || def.Kind != ir.KindStruct {
			return ir.NewLitInt(a.prog.IntType, 0)
		}
		return ir.NewLitInt(a.prog.IntType, int32(len(def.Struct.Fields)))
	case "reflect_size_of":
		t, ok := a.intrinsicTypeArg(sc, n)
		if !ok {
			return ir.NewLitInt(a.prog.IntType, 0)
		}
		return ir.NewLitInt(a.prog.IntType, int32(a.sizeOf(t, make(map[ir.TypeId]bool))))
	case "staticint_to_int":
		t, ok := a.intrinsicTypeArg(sc, n)
		if !ok {
			return ir.NewLitInt(a.prog.IntType, 0)
		}
		def, ok2 := a.prog.TypeDefs.Get(t)
		if !ok2 || def.Kind != ir.KindStaticInt {
			a.bag.Errorf(diag.InvalidTypeInstantiation, sc.src, n.Span(), "staticint_to_int requires a static-int type argument")
			return ir.NewLitInt(a.prog.IntType, 0)
		}
		return ir.NewLitInt(a.prog.IntType, int32(def.StaticInt.Value))
	case "fail":
		t, ok := a.intrinsicTypeArg(sc, n)
		if !ok {
			t = a.prog.IntType
		}
		id := a.prog.Fails.GetOrCreate(a.prog, t)
		call := ir.NewCall(t, id, nil, ir.CallNormal)
		call.SetSourceID(sc.src)
		return call
	case "source_loc_file":
		return a.lowerSourceLoc(sc, n, ir.FuncIntrinsicSourceLocFile, a.prog.StringType)
	case "source_loc_line":
		return a.lowerSourceLoc(sc, n, ir.FuncIntrinsicSourceLocLine, a.prog.IntType)
	case "source_loc_column":
		return a.lowerSourceLoc(sc, n, ir.FuncIntrinsicSourceLocColumn, a.prog.IntType)
	case "lazy_get":
		return a.lowerLazyGet(sc, n)
	case "reinterpret_int_to_float":
		return a.lowerSimpleIntrinsic(sc, n, "reinterpret_int_to_float", ir.FuncIntrinsicReinterpretIntToFloat, ir.TypeSet{a.prog.IntType}, a.prog.FloatType)
	case "reinterpret_float_to_int":
		return a.lowerSimpleIntrinsic(sc, n, "reinterpret_float_to_int", ir.FuncIntrinsicReinterpretFloatToInt, ir.TypeSet{a.prog.FloatType}, a.prog.IntType)
	case "atomic_load":
		return a.lowerSimpleIntrinsic(sc, n, "atomic_load", ir.FuncIntrinsicAtomicLoad, ir.TypeSet{a.prog.IntType}, a.prog.IntType)
	case "atomic_store":
		return a.lowerSimpleIntrinsic(sc, n, "atomic_store", ir.FuncIntrinsicAtomicStore, ir.TypeSet{a.prog.IntType, a.prog.IntType}, a.prog.IntType)
	case "atomic_compare_and_swap":
		return a.lowerSimpleIntrinsic(sc, n, "atomic_cas", ir.FuncIntrinsicAtomicCompareSwap, ir.TypeSet{a.prog.IntType, a.prog.IntType, a.prog.IntType}, a.prog.BoolType)
	case "platform_call":
		return a.lowerPlatformCall(sc, n)
	}
	a.bag.Errorf(diag.UnknownIntrinsic, sc.src, n.Span(), "unknown intrinsic %q", n.Name)
	return ir.NewLitInt(a.prog.IntType, 0)
}

func (a *Analyzer) intrinsicTypeArg(sc *Scope, n *ast.Intrinsic) (ir.TypeId, bool) {
	if len(n.TypeArgs) == 0 {
		a.bag.Errorf(diag.UnknownIntrinsic, sc.src, n.Span(), "intrinsic %q requires a type argument", n.Name)
		return ir.NoType, false
	}
	return a.resolveTypeRefOrSubst(sc.src, n.TypeArgs[0], sc.subst)
}

// lowerSourceLoc lowers source_loc_file/line/column. Inside an
// optional-argument initializer it leaves a symbolic, zero-arg call to its
// own FuncDecl: the call-patching pass rewrites these against the
// *calling* site's SourceId, which requires the call still be
// distinguishable as an unresolved source-location node when that pass
// runs. Anywhere else it resolves immediately to a literal for its own
// site (the SourceId minted here, span-granular via Table.AddLoc).
func (a *Analyzer) lowerSourceLoc(sc *Scope, n *ast.Intrinsic, kind ir.FuncKind, outType ir.TypeId) ir.Expr {
	key := sourceLocKey(kind)
	id, ok := a.intrinsicInstances[key]
	if !ok {
		id = a.prog.FuncDecls.Declare(ir.FuncDecl{Name: "__" + key, Kind: kind, Output: outType})
		a.intrinsicInstances[key] = id
	}
	call := ir.NewCall(outType, id, nil, ir.CallNormal)
	call.SetSourceID(a.tbl.AddLoc(sc.src, n.Span()))
	if !sc.optArgInit {
		return a.resolveSourceLoc(call, call.SourceID())
	}
	return call
}

func sourceLocKey(kind ir.FuncKind) string {
	switch kind {
	case ir.FuncIntrinsicSourceLocFile:
		return "source_loc_file"
	case ir.FuncIntrinsicSourceLocLine:
		return "source_loc_line"
	default:
		return "source_loc_column"
	}
}

func (a *Analyzer) lowerLazyGet(sc *Scope, n *ast.Intrinsic) ir.Expr {
	if len(n.Args) != 1 {
		a.bag.Errorf(diag.UnknownIntrinsic, sc.src, n.Span(), "lazy_get takes exactly one argument")
		return ir.NewLitInt(a.prog.IntType, 0)
	}
	operand := a.GetExpr(sc, n.Args[0].Expr)
	def, ok := a.prog.TypeDefs.Get(operand.Type())
	if !ok || def.Kind != ir.KindLazy {
		a.bag.Errorf(diag.UnknownIntrinsic, sc.src, n.Span(), "lazy_get requires a lazy-typed argument")
		return operand
	}
	result := def.Lazy.Result
	key := fmt.Sprintf("lazy_get_%d", operand.Type())
	id, ok := a.intrinsicInstances[key]
	if !ok {
		id = a.prog.FuncDecls.Declare(ir.FuncDecl{Name: "__lazy_get", Kind: ir.FuncIntrinsicLazyGet, Input: ir.TypeSet{operand.Type()}, Output: result})
		a.intrinsicInstances[key] = id
	}
	call := ir.NewCall(result, id, []ir.Expr{operand}, ir.CallNormal)
	call.SetSourceID(sc.src)
	return call
}

func (a *Analyzer) lowerSimpleIntrinsic(sc *Scope, n *ast.Intrinsic, key string, kind ir.FuncKind, input ir.TypeSet, output ir.TypeId) ir.Expr {
	id, ok := a.intrinsicInstances[key]
	if !ok {
		id = a.prog.FuncDecls.Declare(ir.FuncDecl{Name: "__" + key, Kind: kind, Input: input, Output: output})
		a.intrinsicInstances[key] = id
	}
	if len(n.Args) != len(input) {
		a.bag.Errorf(diag.UnknownIntrinsic, sc.src, n.Span(), "%s takes %d arguments", key, len(input))
	}
	args := a.lowerArgs(sc, n.Args)
	for i := range args {
		if i < len(input) {
			if conv, ok := a.implicitConvert(args[i], input[i]); ok {
				args[i] = conv
			}
		}
	}
	call := ir.NewCall(output, id, args, ir.CallNormal)
	call.SetSourceID(sc.src)
	return call
}

func (a *Analyzer) lowerPlatformCall(sc *Scope, n *ast.Intrinsic) ir.Expr {
	outType := a.prog.IntType
	if len(n.TypeArgs) > 0 {
		if t, ok := a.resolveTypeRefOrSubst(sc.src, n.TypeArgs[0], sc.subst); ok {
			outType = t
		}
	}
	args := a.lowerArgs(sc, n.Args)
	input := make(ir.TypeSet, len(args))
	for i, arg := range args {
		input[i] = arg.Type()
	}
	key := fmt.Sprintf("platform_call_%d_%d", outType, ir.HashTypeSet(input))
	id, ok := a.intrinsicInstances[key]
	if !ok {
		id = a.prog.FuncDecls.Declare(ir.FuncDecl{Name: "__platform_call", Kind: ir.FuncIntrinsicPlatformCall, Input: input, Output: outType})
		a.intrinsicInstances[key] = id
	}
	call := ir.NewCall(outType, id, args, ir.CallNormal)
	call.SetSourceID(sc.src)
	return call
}

// sizeOf computes a simple structural size estimate used by
// reflect_size_of: fixed widths for primitives, recursive field-sum for
// structs (cycle-guarded, since a struct can only reach itself through a
// union-broken cycle once validation has passed, but the guard keeps
// this total), a flat word size for everything else.
func (a *Analyzer) sizeOf(t ir.TypeId, seen map[ir.TypeId]bool) int {
	if seen[t] {
		return 0
	}
	seen[t] = true
	decl := a.prog.TypeDecls.Get(t)
	switch decl.Kind {
	case ir.KindBool, ir.KindChar:
		return 1
	case ir.KindInt:
		return 4
	case ir.KindLong, ir.KindFloat, ir.KindString:
		return 8
	case ir.KindStruct:
		def, ok := a.prog.TypeDefs.Get(t)
		if !ok {
			return 8
		}
		total := 0
		for _, f := range def.Struct.Fields {
			total += a.sizeOf(f.Type, seen)
		}
		return total
	default:
		return 8
	}
}
