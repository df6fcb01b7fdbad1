package optimizer

import (
	"math"

	"github.com/novalang/novac/pkg/ir"
)

// litPrecomputePass implements the literal-precomputation family:
// folding arithmetic/conversion intrinsics applied to literal
// operands, pruning a Switch whose leading conditions are literal
// booleans, collapsing a field read of a freshly constructed struct
// literal down to the corresponding constructor argument, and
// devirtualizing a CallDyn whose delegate is a known LitFunc/Closure
// into a direct Call.
func litPrecomputePass(prog *ir.Program) bool {
	changed := false
	for _, id := range prog.FuncDefs.All() {
		def := prog.FuncDefs.Get(id)
		if e, ch := foldExpr(prog, def.Body); ch {
			def.Body = e
			changed = true
		}
	}
	for i := range prog.Execs {
		if e, ch := foldExpr(prog, prog.Execs[i].Expr); ch {
			prog.Execs[i].Expr = e
			changed = true
		}
	}
	return changed
}

// foldExpr folds e post-order: children first, then the node itself.
func foldExpr(prog *ir.Program, e ir.Expr) (ir.Expr, bool) {
	changed := false
	switch n := e.(type) {
	case *ir.Closure:
		for i, b := range n.Bound {
			if nb, ch := foldExpr(prog, b); ch {
				n.Bound[i] = nb
				changed = true
			}
		}
	case *ir.Assign:
		if nv, ch := foldExpr(prog, n.Value); ch {
			n.Value = nv
			changed = true
		}
	case *ir.Group:
		for i, el := range n.Elems {
			if ne, ch := foldExpr(prog, el); ch {
				n.Elems[i] = ne
				changed = true
			}
		}
	case *ir.Switch:
		for i, c := range n.Conds {
			if nc, ch := foldExpr(prog, c); ch {
				n.Conds[i] = nc
				changed = true
			}
		}
		for i, b := range n.Branches {
			if nb, ch := foldExpr(prog, b); ch {
				n.Branches[i] = nb
				changed = true
			}
		}
		if folded, ok := tryPruneSwitch(n); ok {
			return folded, true
		}
	case *ir.Call:
		for i, a := range n.Args {
			if na, ch := foldExpr(prog, a); ch {
				n.Args[i] = na
				changed = true
			}
		}
		if folded, ok := tryFoldCall(prog, n); ok {
			return folded, true
		}
	case *ir.CallDyn:
		if nd, ch := foldExpr(prog, n.Delegate); ch {
			n.Delegate = nd
			changed = true
		}
		for i, a := range n.Args {
			if na, ch := foldExpr(prog, a); ch {
				n.Args[i] = na
				changed = true
			}
		}
		if folded, ok := tryDevirtualize(n); ok {
			return folded, true
		}
	case *ir.CallSelf:
		for i, a := range n.Args {
			if na, ch := foldExpr(prog, a); ch {
				n.Args[i] = na
				changed = true
			}
		}
	case *ir.Field:
		if nr, ch := foldExpr(prog, n.Receiver); ch {
			n.Receiver = nr
			changed = true
		}
		if folded, ok := tryCollapseFieldOfConstruct(prog, n); ok {
			return folded, true
		}
	case *ir.UnionCheck:
		if no, ch := foldExpr(prog, n.Operand); ch {
			n.Operand = no
			changed = true
		}
	case *ir.UnionGet:
		if no, ch := foldExpr(prog, n.Operand); ch {
			n.Operand = no
			changed = true
		}
	}
	return e, changed
}

// tryPruneSwitch collapses a Switch whose leading Conds are literal
// booleans: a literal-true condition short-circuits to its own branch,
// a literal-false condition is dropped (falling through to the next
// cond/branch pair).
func tryPruneSwitch(n *ir.Switch) (ir.Expr, bool) {
	conds := n.Conds
	branches := n.Branches
	changed := false
	for len(conds) > 0 {
		lb, ok := conds[0].(*ir.LitBool)
		if !ok {
			break
		}
		changed = true
		if lb.Value {
			return branches[0], true
		}
		conds = conds[1:]
		branches = branches[1:]
	}
	if !changed {
		return nil, false
	}
	if len(conds) == 0 {
		return branches[0], true
	}
	n.Conds = conds
	n.Branches = branches
	return n, true
}

// tryFoldCall evaluates n when it is a call to a numeric/bool/char
// intrinsic with every argument already a matching literal.
func tryFoldCall(prog *ir.Program, n *ir.Call) (ir.Expr, bool) {
	decl := prog.FuncDecls.Get(n.Func)
	switch decl.Kind {
	case ir.FuncNoOp:
		if len(n.Args) == 1 {
			return n.Args[0], true
		}
	case ir.FuncIntrinsicAddInt, ir.FuncIntrinsicSubInt, ir.FuncIntrinsicMulInt,
		ir.FuncIntrinsicDivInt, ir.FuncIntrinsicRemInt, ir.FuncIntrinsicAndInt,
		ir.FuncIntrinsicOrInt, ir.FuncIntrinsicXorInt, ir.FuncIntrinsicShlInt,
		ir.FuncIntrinsicShrInt:
		a, okA := litIntVal(n.Args[0])
		b, okB := litIntVal(n.Args[1])
		if !okA || !okB {
			return nil, false
		}
		return foldIntBinary(decl.Kind, n.Type(), a, b)
	case ir.FuncIntrinsicNegInt:
		a, ok := litIntVal(n.Args[0])
		if !ok {
			return nil, false
		}
		return ir.NewLitInt(n.Type(), -a), true
	case ir.FuncIntrinsicNotInt:
		a, ok := litIntVal(n.Args[0])
		if !ok {
			return nil, false
		}
		return ir.NewLitInt(n.Type(), ^a), true
	case ir.FuncIntrinsicEqInt, ir.FuncIntrinsicNeInt, ir.FuncIntrinsicLtInt,
		ir.FuncIntrinsicLeInt, ir.FuncIntrinsicGtInt, ir.FuncIntrinsicGeInt:
		a, okA := litIntVal(n.Args[0])
		b, okB := litIntVal(n.Args[1])
		if !okA || !okB {
			return nil, false
		}
		return foldIntCompare(decl.Kind, n.Type(), a, b)
	case ir.FuncIntrinsicAndBool, ir.FuncIntrinsicOrBool, ir.FuncIntrinsicEqBool:
		a, okA := n.Args[0].(*ir.LitBool)
		b, okB := n.Args[1].(*ir.LitBool)
		if !okA || !okB {
			return nil, false
		}
		return foldBoolBinary(decl.Kind, n.Type(), a.Value, b.Value)
	case ir.FuncIntrinsicNotBool:
		a, ok := n.Args[0].(*ir.LitBool)
		if !ok {
			return nil, false
		}
		return ir.NewLitBool(n.Type(), !a.Value), true
	case ir.FuncIntrinsicConvIntToLong:
		a, ok := litIntVal(n.Args[0])
		if !ok {
			return nil, false
		}
		return ir.NewLitLong(n.Type(), int64(a)), true
	case ir.FuncIntrinsicConvIntToFloat:
		a, ok := litIntVal(n.Args[0])
		if !ok {
			return nil, false
		}
		return ir.NewLitFloat(n.Type(), float64(a)), true
	case ir.FuncIntrinsicConvLongToFloat:
		a, ok := n.Args[0].(*ir.LitLong)
		if !ok {
			return nil, false
		}
		return ir.NewLitFloat(n.Type(), float64(a.Value)), true
	case ir.FuncIntrinsicConvIntToChar:
		a, ok := litIntVal(n.Args[0])
		if !ok {
			return nil, false
		}
		return ir.NewLitChar(n.Type(), byte(a)), true
	case ir.FuncIntrinsicConvCharToInt:
		a, ok := n.Args[0].(*ir.LitChar)
		if !ok {
			return nil, false
		}
		return ir.NewLitInt(n.Type(), int32(a.Value)), true
	case ir.FuncIntrinsicReinterpretIntToFloat:
		// Bit reinterpretation, not a value cast: the int's 32 bits become
		// a 32-bit float's bit pattern, widened into the float carrier.
		a, ok := litIntVal(n.Args[0])
		if !ok {
			return nil, false
		}
		return ir.NewLitFloat(n.Type(), float64(math.Float32frombits(uint32(a)))), true
	case ir.FuncIntrinsicReinterpretFloatToInt:
		a, ok := n.Args[0].(*ir.LitFloat)
		if !ok {
			return nil, false
		}
		return ir.NewLitInt(n.Type(), int32(math.Float32bits(float32(a.Value)))), true
	case ir.FuncIntrinsicConvIntToEnum:
		a, ok := litIntVal(n.Args[0])
		if !ok {
			return nil, false
		}
		return ir.NewLitEnum(n.Type(), a), true
	case ir.FuncIntrinsicConvEnumToInt:
		a, ok := n.Args[0].(*ir.LitEnum)
		if !ok {
			return nil, false
		}
		return ir.NewLitInt(n.Type(), a.Value), true
	case ir.FuncIntrinsicLazyGet:
		switch arg := n.Args[0].(type) {
		case *ir.LitFunc:
			return ir.NewCall(n.Type(), arg.Func, nil, ir.CallNormal), true
		case *ir.Call:
			// lazy_get of a directly constructed `lazy f(...)` never needs
			// the thunk machinery: it is just the underlying call.
			if arg.Mode == ir.CallLazy {
				return ir.NewCall(n.Type(), arg.Func, arg.Args, ir.CallNormal), true
			}
		}
	}
	return nil, false
}

func litIntVal(e ir.Expr) (int32, bool) {
	li, ok := e.(*ir.LitInt)
	if !ok {
		return 0, false
	}
	return li.Value, true
}

func foldIntBinary(kind ir.FuncKind, typ ir.TypeId, a, b int32) (ir.Expr, bool) {
	switch kind {
	case ir.FuncIntrinsicAddInt:
		return ir.NewLitInt(typ, a+b), true
	case ir.FuncIntrinsicSubInt:
		return ir.NewLitInt(typ, a-b), true
	case ir.FuncIntrinsicMulInt:
		return ir.NewLitInt(typ, a*b), true
	case ir.FuncIntrinsicDivInt:
		if b == 0 {
			return nil, false
		}
		return ir.NewLitInt(typ, a/b), true
	case ir.FuncIntrinsicRemInt:
		if b == 0 {
			return nil, false
		}
		return ir.NewLitInt(typ, a%b), true
	case ir.FuncIntrinsicAndInt:
		return ir.NewLitInt(typ, a&b), true
	case ir.FuncIntrinsicOrInt:
		return ir.NewLitInt(typ, a|b), true
	case ir.FuncIntrinsicXorInt:
		return ir.NewLitInt(typ, a^b), true
	case ir.FuncIntrinsicShlInt:
		return ir.NewLitInt(typ, a<<uint32(b)), true
	case ir.FuncIntrinsicShrInt:
		return ir.NewLitInt(typ, a>>uint32(b)), true
	}
	return nil, false
}

func foldIntCompare(kind ir.FuncKind, typ ir.TypeId, a, b int32) (ir.Expr, bool) {
	switch kind {
	case ir.FuncIntrinsicEqInt:
		return ir.NewLitBool(typ, a == b), true
	case ir.FuncIntrinsicNeInt:
		return ir.NewLitBool(typ, a != b), true
	case ir.FuncIntrinsicLtInt:
		return ir.NewLitBool(typ, a < b), true
	case ir.FuncIntrinsicLeInt:
		return ir.NewLitBool(typ, a <= b), true
	case ir.FuncIntrinsicGtInt:
		return ir.NewLitBool(typ, a > b), true
	case ir.FuncIntrinsicGeInt:
		return ir.NewLitBool(typ, a >= b), true
	}
	return nil, false
}

func foldBoolBinary(kind ir.FuncKind, typ ir.TypeId, a, b bool) (ir.Expr, bool) {
	switch kind {
	case ir.FuncIntrinsicAndBool:
		return ir.NewLitBool(typ, a && b), true
	case ir.FuncIntrinsicOrBool:
		return ir.NewLitBool(typ, a || b), true
	case ir.FuncIntrinsicEqBool:
		return ir.NewLitBool(typ, a == b), true
	}
	return nil, false
}

// tryCollapseFieldOfConstruct rewrites a Field read of a Call to a
// FuncMakeStruct constructor into the corresponding constructor
// argument directly, skipping the intermediate struct value entirely
// (`S(1, true).a` folds to the literal 1).
func tryCollapseFieldOfConstruct(prog *ir.Program, n *ir.Field) (ir.Expr, bool) {
	call, ok := n.Receiver.(*ir.Call)
	if !ok {
		return nil, false
	}
	decl := prog.FuncDecls.Get(call.Func)
	if decl.Kind != ir.FuncMakeStruct {
		return nil, false
	}
	def, ok := prog.TypeDefs.Get(decl.Output)
	if !ok || def.Struct == nil {
		return nil, false
	}
	for i, f := range def.Struct.Fields {
		if f.ID == n.FieldID {
			if i >= len(call.Args) {
				return nil, false
			}
			return call.Args[i], true
		}
	}
	return nil, false
}

// tryDevirtualize rewrites a CallDyn whose delegate is statically known
// (a bare LitFunc, or a Closure whose bound arguments are appended as
// trailing arguments) into a direct Call.
func tryDevirtualize(n *ir.CallDyn) (ir.Expr, bool) {
	switch d := n.Delegate.(type) {
	case *ir.LitFunc:
		mode := ir.CallNormal
		if n.Fork {
			mode = ir.CallFork
		}
		return ir.NewCall(n.Type(), d.Func, n.Args, mode), true
	case *ir.Closure:
		mode := ir.CallNormal
		if n.Fork {
			mode = ir.CallFork
		}
		args := make([]ir.Expr, 0, len(n.Args)+len(d.Bound))
		args = append(args, n.Args...)
		args = append(args, d.Bound...)
		return ir.NewCall(n.Type(), d.Func, args, mode), true
	}
	return nil, false
}
