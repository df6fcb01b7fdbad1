package sema

import "github.com/novalang/novac/pkg/ir"

// resolveOverload picks the candidate with the
// fewest implicit conversions across its argument slots. Candidates
// whose arity (counting optional trailing parameters) doesn't admit
// len(args), or that require a conversion the program has no registered
// implicit path for, are rejected outright. found is false when no
// candidate matches at all; ambiguous is true when two or more
// surviving candidates tie on conversion count (the caller still gets
// the first-declared one back, matching "ties are broken by
// first-declared" alongside the diagnostic).
func (a *Analyzer) resolveOverload(candidates []ir.FuncId, args []ir.Expr, exclActions bool) (ir.FuncId, []ir.Expr, bool, bool) {
	type match struct {
		id        ir.FuncId
		converted []ir.Expr
		cost      int
	}
	var matches []match

candidateLoop:
	for _, id := range candidates {
		decl := a.prog.FuncDecls.Get(id)
		if exclActions && decl.IsAction {
			continue
		}
		minArgs := len(decl.Input) - decl.OptInputCount
		if len(args) < minArgs || len(args) > len(decl.Input) {
			continue
		}
		converted := make([]ir.Expr, len(args))
		cost := 0
		for i, arg := range args {
			want := decl.Input[i]
			if arg.Type() == want {
				converted[i] = arg
				continue
			}
			conv, ok := a.implicitConvert(arg, want)
			if !ok {
				continue candidateLoop
			}
			converted[i] = conv
			cost++
		}
		matches = append(matches, match{id: id, converted: converted, cost: cost})
	}

	if len(matches) == 0 {
		return 0, nil, false, false
	}
	best := matches[0]
	ambiguous := false
	for _, m := range matches[1:] {
		switch {
		case m.cost < best.cost:
			best = m
			ambiguous = false
		case m.cost == best.cost:
			ambiguous = true
		}
	}
	return best.id, best.converted, true, ambiguous
}
