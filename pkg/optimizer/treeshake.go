package optimizer

import "github.com/novalang/novac/pkg/ir"

// reachableFuncs computes the transitive set of FuncIds reached from the
// program's exec statements: every statically named call, every
// function reference captured as a value (a LitFunc or Closure literal,
// since such a value can still flow into a dynamic call), and whatever
// those reachable functions' own bodies and optional-argument
// initializers in turn reference.
func reachableFuncs(prog *ir.Program) map[ir.FuncId]bool {
	reached := make(map[ir.FuncId]bool)
	var queue []ir.FuncId
	mark := func(id ir.FuncId) {
		if id != ir.NoFunc && !reached[id] {
			reached[id] = true
			queue = append(queue, id)
		}
	}
	collect := func(e ir.Expr) {
		ir.Walk(e, func(x ir.Expr) bool {
			switch n := x.(type) {
			case *ir.Call:
				mark(n.Func)
			case *ir.LitFunc:
				mark(n.Func)
			case *ir.Closure:
				mark(n.Func)
			}
			return true
		})
	}

	for _, es := range prog.Execs {
		collect(es.Expr)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		def := prog.FuncDefs.Get(id)
		if def == nil {
			continue
		}
		collect(def.Body)
		for _, init := range def.OptArgInitializers {
			collect(init)
		}
	}
	return reached
}

// shake drops every defined function not transitively reachable from at
// least one exec statement, so the surviving set is exactly the
// functions transitively reachable from the program's roots.
func shake(prog *ir.Program) bool {
	reached := reachableFuncs(prog)
	changed := false
	for _, id := range prog.FuncDefs.All() {
		if !reached[id] {
			prog.FuncDefs.Delete(id)
			changed = true
		}
	}
	return changed
}
