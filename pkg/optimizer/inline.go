package optimizer

import (
	"fmt"

	"github.com/novalang/novac/pkg/ir"
)

// callGraph maps each user function to the set of functions it
// statically calls (a Call is an edge to its callee; a CallSelf is an
// edge back to the caller itself, which computeRecursive treats as a
// trivial cycle).
type callGraph map[ir.FuncId]map[ir.FuncId]bool

// buildCallGraph collects, for every defined function, the set of other
// defined functions it calls directly (inlining operates over
// non-recursive call chains only, so the graph only needs direct edges;
// computeRecursive does the transitive cycle detection).
func buildCallGraph(prog *ir.Program) callGraph {
	g := make(callGraph)
	for _, id := range prog.FuncDefs.All() {
		def := prog.FuncDefs.Get(id)
		edges := make(map[ir.FuncId]bool)
		ir.Walk(def.Body, func(x ir.Expr) bool {
			switch n := x.(type) {
			case *ir.Call:
				edges[n.Func] = true
			case *ir.CallSelf:
				edges[id] = true
			}
			return true
		})
		g[id] = edges
	}
	return g
}

// computeRecursive returns the set of functions that participate in a
// cycle of the call graph (direct self-recursion or mutual recursion
// through any chain of calls) — these are never inlined.
func computeRecursive(g callGraph) map[ir.FuncId]bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	state := make(map[ir.FuncId]int)
	recursive := make(map[ir.FuncId]bool)

	var visit func(id ir.FuncId, stack []ir.FuncId)
	visit = func(id ir.FuncId, stack []ir.FuncId) {
		switch state[id] {
		case gray:
			for _, s := range stack {
				recursive[s] = true
			}
			recursive[id] = true
			return
		case black:
			return
		}
		state[id] = gray
		stack = append(stack, id)
		for callee := range g[id] {
			visit(callee, stack)
		}
		state[id] = black
	}
	for id := range g {
		if state[id] == white {
			visit(id, nil)
		}
	}
	return recursive
}

// inlinePass replaces each Call to a non-recursive, non-action user
// function with the callee's body, substituting a fresh inlined
// constant for every one of its parameters and locals so repeated
// inlining of the same callee never collides.
func inlinePass(prog *ir.Program, recursive map[ir.FuncId]bool) bool {
	changed := false
	for _, id := range prog.FuncDefs.All() {
		def := prog.FuncDefs.Get(id)
		in := &inliner{prog: prog, recursive: recursive, self: id, consts: def.Consts}
		if e, ch := in.rewrite(def.Body); ch {
			def.Body = e
			changed = true
		}
	}
	for i := range prog.Execs {
		in := &inliner{prog: prog, recursive: recursive, self: ir.NoFunc, consts: prog.Execs[i].Consts}
		if e, ch := in.rewrite(prog.Execs[i].Expr); ch {
			prog.Execs[i].Expr = e
			changed = true
		}
	}
	return changed
}

// inliner rewrites one body; it carries the surrounding function's (or
// exec statement's) own constant table so callee locals can be
// re-registered as fresh caller locals, keeping ConstIds dense within
// the single table the backend allocates stack slots from.
type inliner struct {
	prog      *ir.Program
	recursive map[ir.FuncId]bool
	self      ir.FuncId
	consts    *ir.ConstDeclTable
}

func (in *inliner) rewrite(e ir.Expr) (ir.Expr, bool) {
	changed := false
	switch n := e.(type) {
	case *ir.Closure:
		for i, b := range n.Bound {
			if nb, ch := in.rewrite(b); ch {
				n.Bound[i] = nb
				changed = true
			}
		}
	case *ir.Assign:
		if nv, ch := in.rewrite(n.Value); ch {
			n.Value = nv
			changed = true
		}
	case *ir.Group:
		for i, el := range n.Elems {
			if ne, ch := in.rewrite(el); ch {
				n.Elems[i] = ne
				changed = true
			}
		}
	case *ir.Switch:
		for i, c := range n.Conds {
			if nc, ch := in.rewrite(c); ch {
				n.Conds[i] = nc
				changed = true
			}
		}
		for i, b := range n.Branches {
			if nb, ch := in.rewrite(b); ch {
				n.Branches[i] = nb
				changed = true
			}
		}
	case *ir.Call:
		for i, a := range n.Args {
			if na, ch := in.rewrite(a); ch {
				n.Args[i] = na
				changed = true
			}
		}
		if folded, ok := in.tryInline(n); ok {
			return folded, true
		}
	case *ir.CallDyn:
		if nd, ch := in.rewrite(n.Delegate); ch {
			n.Delegate = nd
			changed = true
		}
		for i, a := range n.Args {
			if na, ch := in.rewrite(a); ch {
				n.Args[i] = na
				changed = true
			}
		}
	case *ir.CallSelf:
		for i, a := range n.Args {
			if na, ch := in.rewrite(a); ch {
				n.Args[i] = na
				changed = true
			}
		}
	case *ir.Field:
		if nr, ch := in.rewrite(n.Receiver); ch {
			n.Receiver = nr
			changed = true
		}
	case *ir.UnionCheck:
		if no, ch := in.rewrite(n.Operand); ch {
			n.Operand = no
			changed = true
		}
	case *ir.UnionGet:
		if no, ch := in.rewrite(n.Operand); ch {
			n.Operand = no
			changed = true
		}
	}
	return e, changed
}

// tryInline inlines n when it is a plain, non-tail, non-fork, non-lazy
// call (Mode == CallNormal) to a non-recursive user function, never
// itself (avoiding growing self into an unbounded inline of its own
// caller), and not an action (an action call's ordering relative to
// other actions must stay visible as a call boundary). Every callee
// constant — parameters and locals alike — is re-declared in the
// caller's table under an `__inlined_<n>_` name, so the cloned body's
// ConstIds stay dense and slot-addressable in the caller's frame.
func (in *inliner) tryInline(n *ir.Call) (ir.Expr, bool) {
	if n.Mode != ir.CallNormal {
		return nil, false
	}
	if n.Func == in.self || in.recursive[n.Func] {
		return nil, false
	}
	decl := in.prog.FuncDecls.Get(n.Func)
	if decl.Kind != ir.FuncUser || decl.IsAction {
		return nil, false
	}
	callee := in.prog.FuncDefs.Get(n.Func)
	if callee == nil {
		return nil, false
	}

	site := in.prog.NextInlinedConstIndex()
	remap := make(map[ir.ConstId]ir.ConstId)
	for _, entry := range callee.Consts.All() {
		fresh := in.consts.Declare(fmt.Sprintf("__inlined_%d_%s", site, entry.Name), entry.Type)
		remap[entry.ID] = fresh
	}
	body := ir.CloneExpr(callee.Body, func(id ir.ConstId) ir.ConstId {
		if nid, ok := remap[id]; ok {
			return nid
		}
		return id
	})

	params := callee.Consts.All()
	elems := make([]ir.Expr, 0, len(n.Args)+1)
	for i, arg := range n.Args {
		if i >= len(params) {
			break
		}
		elems = append(elems, ir.NewAssign(remap[params[i].ID], arg))
	}
	elems = append(elems, body)
	if len(elems) == 1 {
		return elems[0], true
	}
	return ir.NewGroup(elems), true
}
