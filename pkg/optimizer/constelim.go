package optimizer

import "github.com/novalang/novac/pkg/ir"

func identityRemap(id ir.ConstId) ir.ConstId { return id }

// constElimPass implements single-use constant elimination: a constant declared (via Assign) at a non-last position
// of a Group, used at most once elsewhere or whose assignment is cheap
// to recompute, is inlined at its use site(s) and its declaration
// dropped. Expressions with side effects are never moved, even when
// they would otherwise qualify.
func constElimPass(prog *ir.Program) bool {
	changed := false
	for _, id := range prog.FuncDefs.All() {
		def := prog.FuncDefs.Get(id)
		if e, ch := eliminateInExpr(prog, def.Body); ch {
			def.Body = e
			changed = true
		}
	}
	for i := range prog.Execs {
		if e, ch := eliminateInExpr(prog, prog.Execs[i].Expr); ch {
			prog.Execs[i].Expr = e
			changed = true
		}
	}
	return changed
}

// eliminateInExpr recurses into every child first (so a nested Group is
// reduced before its own elimination candidates are counted), then, for
// Group nodes, runs the elimination itself.
func eliminateInExpr(prog *ir.Program, e ir.Expr) (ir.Expr, bool) {
	changed := false
	switch n := e.(type) {
	case *ir.Closure:
		for i, b := range n.Bound {
			if nb, ch := eliminateInExpr(prog, b); ch {
				n.Bound[i] = nb
				changed = true
			}
		}
	case *ir.Assign:
		if nv, ch := eliminateInExpr(prog, n.Value); ch {
			n.Value = nv
			changed = true
		}
	case *ir.Group:
		for i, el := range n.Elems {
			if ne, ch := eliminateInExpr(prog, el); ch {
				n.Elems[i] = ne
				changed = true
			}
		}
		newElems, ch := eliminateGroup(prog, n.Elems)
		if ch {
			changed = true
			if len(newElems) == 1 {
				return newElems[0], true
			}
			n.Elems = newElems
		}
	case *ir.Switch:
		for i, c := range n.Conds {
			if nc, ch := eliminateInExpr(prog, c); ch {
				n.Conds[i] = nc
				changed = true
			}
		}
		for i, b := range n.Branches {
			if nb, ch := eliminateInExpr(prog, b); ch {
				n.Branches[i] = nb
				changed = true
			}
		}
	case *ir.Call:
		for i, a := range n.Args {
			if na, ch := eliminateInExpr(prog, a); ch {
				n.Args[i] = na
				changed = true
			}
		}
	case *ir.CallDyn:
		if nd, ch := eliminateInExpr(prog, n.Delegate); ch {
			n.Delegate = nd
			changed = true
		}
		for i, a := range n.Args {
			if na, ch := eliminateInExpr(prog, a); ch {
				n.Args[i] = na
				changed = true
			}
		}
	case *ir.CallSelf:
		for i, a := range n.Args {
			if na, ch := eliminateInExpr(prog, a); ch {
				n.Args[i] = na
				changed = true
			}
		}
	case *ir.Field:
		if nr, ch := eliminateInExpr(prog, n.Receiver); ch {
			n.Receiver = nr
			changed = true
		}
	case *ir.UnionCheck:
		if no, ch := eliminateInExpr(prog, n.Operand); ch {
			n.Operand = no
			changed = true
		}
	case *ir.UnionGet:
		if no, ch := eliminateInExpr(prog, n.Operand); ch {
			n.Operand = no
			changed = true
		}
	}
	return e, changed
}

// eliminateGroup scans one Group's elements for non-last Assigns that
// qualify for elimination and, if any are found, returns a new element
// slice with them inlined and dropped.
func eliminateGroup(prog *ir.Program, elems []ir.Expr) ([]ir.Expr, bool) {
	last := len(elems) - 1

	uses := make(map[ir.ConstId]int)
	for _, el := range elems {
		ir.Walk(el, func(x ir.Expr) bool {
			if c, ok := x.(*ir.Const); ok {
				uses[c.ID]++
			}
			return true
		})
	}

	toRemove := make(map[int]bool)
	for idx, el := range elems {
		if idx == last {
			continue
		}
		asg, ok := el.(*ir.Assign)
		if !ok {
			continue
		}
		if hasSideEffect(prog, asg.Value) {
			continue
		}
		if uses[asg.ID] <= 1 || isCheap(prog, asg.Value) {
			toRemove[idx] = true
		}
	}
	if len(toRemove) == 0 {
		return elems, false
	}

	repl := make(map[ir.ConstId]ir.Expr)
	for idx, el := range elems {
		if !toRemove[idx] {
			continue
		}
		asg := el.(*ir.Assign)
		repl[asg.ID] = substConst(ir.CloneExpr(asg.Value, identityRemap), repl)
	}

	newElems := make([]ir.Expr, 0, len(elems)-len(toRemove))
	for idx, el := range elems {
		if toRemove[idx] {
			continue
		}
		newElems = append(newElems, substConst(el, repl))
	}
	return newElems, true
}

// substConst replaces every Const(id) read found in e, for any id
// present in repl, with a fresh clone of its replacement expression.
func substConst(e ir.Expr, repl map[ir.ConstId]ir.Expr) ir.Expr {
	switch n := e.(type) {
	case *ir.Const:
		if v, ok := repl[n.ID]; ok {
			return ir.CloneExpr(v, identityRemap)
		}
		return n
	case *ir.Closure:
		for i, b := range n.Bound {
			n.Bound[i] = substConst(b, repl)
		}
	case *ir.Assign:
		n.Value = substConst(n.Value, repl)
	case *ir.Group:
		for i, el := range n.Elems {
			n.Elems[i] = substConst(el, repl)
		}
	case *ir.Switch:
		for i, c := range n.Conds {
			n.Conds[i] = substConst(c, repl)
		}
		for i, b := range n.Branches {
			n.Branches[i] = substConst(b, repl)
		}
	case *ir.Call:
		for i, a := range n.Args {
			n.Args[i] = substConst(a, repl)
		}
	case *ir.CallDyn:
		n.Delegate = substConst(n.Delegate, repl)
		for i, a := range n.Args {
			n.Args[i] = substConst(a, repl)
		}
	case *ir.CallSelf:
		for i, a := range n.Args {
			n.Args[i] = substConst(a, repl)
		}
	case *ir.Field:
		n.Receiver = substConst(n.Receiver, repl)
	case *ir.UnionCheck:
		n.Operand = substConst(n.Operand, repl)
	case *ir.UnionGet:
		n.Operand = substConst(n.Operand, repl)
	}
	return e
}

// isCheap reports whether e is a literal, a bare constant read, or a
// pure intrinsic call whose arguments are themselves all cheap — safe to
// duplicate at more than one use site.
func isCheap(prog *ir.Program, e ir.Expr) bool {
	switch n := e.(type) {
	case *ir.LitBool, *ir.LitChar, *ir.LitInt, *ir.LitLong, *ir.LitFloat, *ir.LitString, *ir.LitEnum, *ir.Const:
		return true
	case *ir.Call:
		decl := prog.FuncDecls.Get(n.Func)
		if decl.Kind == ir.FuncUser || decl.IsAction {
			return false
		}
		for _, a := range n.Args {
			if !isCheap(prog, a) {
				return false
			}
		}
		return true
	}
	return false
}

// hasSideEffect reports whether e contains an action call, a union-get
// bind, or a nested assignment anywhere in its subtree; such
// expressions are never moved.
func hasSideEffect(prog *ir.Program, e ir.Expr) bool {
	found := false
	ir.Walk(e, func(x ir.Expr) bool {
		switch n := x.(type) {
		case *ir.Assign:
			found = true
		case *ir.UnionGet:
			found = true
		case *ir.Call:
			if prog.FuncDecls.Get(n.Func).IsAction {
				found = true
			}
		}
		return !found
	})
	return found
}
