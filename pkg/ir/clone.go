package ir

// CloneExpr deep-clones e, remapping every Const/Assign ConstId through
// remap. Visitors never mutate a shared node in place — cloning is
// always deep and always explicit; this is the one place
// that walks every Expr variant to produce a fresh, unshared copy, used
// by both the opt-arg-initializer patcher (pass 9, identity remap) and
// the optimizer's call inliner (remap renaming callee locals into the
// caller's fresh constants).
func CloneExpr(e Expr, remap func(ConstId) ConstId) Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *LitBool:
		c := *n
		return &c
	case *LitChar:
		c := *n
		return &c
	case *LitInt:
		c := *n
		return &c
	case *LitLong:
		c := *n
		return &c
	case *LitFloat:
		c := *n
		return &c
	case *LitString:
		c := *n
		return &c
	case *LitEnum:
		c := *n
		return &c
	case *LitFunc:
		c := *n
		return &c
	case *Closure:
		bound := make([]Expr, len(n.Bound))
		for i, b := range n.Bound {
			bound[i] = CloneExpr(b, remap)
		}
		c := *n
		c.Bound = bound
		return &c
	case *Const:
		c := *n
		c.ID = remap(n.ID)
		return &c
	case *Assign:
		c := *n
		c.ID = remap(n.ID)
		c.Value = CloneExpr(n.Value, remap)
		return &c
	case *Group:
		elems := make([]Expr, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = CloneExpr(el, remap)
		}
		c := *n
		c.Elems = elems
		return &c
	case *Switch:
		conds := make([]Expr, len(n.Conds))
		for i, cd := range n.Conds {
			conds[i] = CloneExpr(cd, remap)
		}
		branches := make([]Expr, len(n.Branches))
		for i, b := range n.Branches {
			branches[i] = CloneExpr(b, remap)
		}
		c := *n
		c.Conds = conds
		c.Branches = branches
		return &c
	case *Call:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = CloneExpr(a, remap)
		}
		c := *n
		c.Args = args
		return &c
	case *CallDyn:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = CloneExpr(a, remap)
		}
		c := *n
		c.Delegate = CloneExpr(n.Delegate, remap)
		c.Args = args
		return &c
	case *CallSelf:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = CloneExpr(a, remap)
		}
		c := *n
		c.Args = args
		return &c
	case *Field:
		c := *n
		c.Receiver = CloneExpr(n.Receiver, remap)
		return &c
	case *UnionCheck:
		c := *n
		c.Operand = CloneExpr(n.Operand, remap)
		return &c
	case *UnionGet:
		c := *n
		c.Operand = CloneExpr(n.Operand, remap)
		c.Bind = remap(n.Bind)
		return &c
	}
	panic("ir: CloneExpr: unhandled Expr variant")
}

// Walk calls visit on e and recursively on every child expression,
// depth-first, pre-order. visit returning false stops recursion into
// that node's children, but Walk still continues with the node's
// siblings.
func Walk(e Expr, visit func(Expr) bool) {
	if e == nil || !visit(e) {
		return
	}
	switch n := e.(type) {
	case *Closure:
		for _, b := range n.Bound {
			Walk(b, visit)
		}
	case *Assign:
		Walk(n.Value, visit)
	case *Group:
		for _, el := range n.Elems {
			Walk(el, visit)
		}
	case *Switch:
		for _, c := range n.Conds {
			Walk(c, visit)
		}
		for _, b := range n.Branches {
			Walk(b, visit)
		}
	case *Call:
		for _, a := range n.Args {
			Walk(a, visit)
		}
	case *CallDyn:
		Walk(n.Delegate, visit)
		for _, a := range n.Args {
			Walk(a, visit)
		}
	case *CallSelf:
		for _, a := range n.Args {
			Walk(a, visit)
		}
	case *Field:
		Walk(n.Receiver, visit)
	case *UnionCheck:
		Walk(n.Operand, visit)
	case *UnionGet:
		Walk(n.Operand, visit)
	}
}
