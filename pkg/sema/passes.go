package sema

import (
	"github.com/novalang/novac/pkg/ast"
	"github.com/novalang/novac/pkg/diag"
	"github.com/novalang/novac/pkg/ir"
	"github.com/novalang/novac/pkg/source"
)

// passInferReturnTypes (5) runs a bounded fixed-point over every
// function declared without an explicit return type, resolving as many
// as a lightweight, diagnostic-free structural walk of their ast body
// can determine (literals, arithmetic/comparison chains, the trailing
// branch of a conditional, and calls to self or to an already-resolved
// function). A body that reaches further than that — field access,
// pattern binds, dynamic calls, anonymous functions — needs an explicit
// return type annotation; this is narrower than full bidirectional
// inference but never silently picks a wrong type.
func (a *Analyzer) passInferReturnTypes() {
	pending := make(map[ir.FuncId]*ast.FuncDecl)
	for id, fd := range a.funcDecls {
		if fd.RetType == nil {
			pending[id] = fd
		}
	}
	if len(pending) == 0 {
		return
	}

	known := make(map[ir.FuncId]ir.TypeId)
	for {
		progress := false
		for id, fd := range pending {
			if _, done := known[id]; done {
				continue
			}
			if t, ok := a.inferExprType(fd.Body, known, id); ok {
				known[id] = t
				a.prog.FuncDecls.SetOutput(id, t)
				progress = true
			}
		}
		if !progress {
			break
		}
	}
	for id, fd := range pending {
		if _, done := known[id]; !done {
			src := a.declSource(fd.Span())
			a.bag.Errorf(diag.UnableToInferFuncReturnType, src, fd.Span(), "unable to infer the return type of %q; add an explicit return type", fd.Name)
		}
	}
}

func (a *Analyzer) inferExprType(e ast.Expr, known map[ir.FuncId]ir.TypeId, self ir.FuncId) (ir.TypeId, bool) {
	switch n := e.(type) {
	case *ast.IntLit:
		return a.prog.IntType, true
	case *ast.LongLit:
		return a.prog.LongType, true
	case *ast.FloatLit:
		return a.prog.FloatType, true
	case *ast.BoolLit:
		return a.prog.BoolType, true
	case *ast.CharLit:
		return a.prog.CharType, true
	case *ast.StringLit:
		return a.prog.StringType, true
	case *ast.Ident:
		if fd, ok := a.funcDecls[self]; ok {
			decl := a.prog.FuncDecls.Get(self)
			for i, p := range fd.Params {
				if p.Name == n.Name && i < len(decl.Input) {
					return decl.Input[i], true
				}
			}
		}
		if ref, ok := a.findEnumEntry(n.Name); ok {
			return ref.typ, true
		}
		return ir.NoType, false
	case *ast.Paren:
		return a.inferExprType(n.Inner, known, self)
	case *ast.Group:
		if len(n.Elems) == 0 {
			return ir.NoType, false
		}
		return a.inferExprType(n.Elems[len(n.Elems)-1], known, self)
	case *ast.ConstDecl:
		return a.inferExprType(n.Init, known, self)
	case *ast.Unary:
		if n.Op == "!" {
			return a.prog.BoolType, true
		}
		return a.inferExprType(n.Operand, known, self)
	case *ast.Binary:
		switch n.Op {
		case "==", "!=", "<", "<=", ">", ">=", "&&", "||":
			return a.prog.BoolType, true
		}
		lt, ok := a.inferExprType(n.Left, known, self)
		if !ok {
			return ir.NoType, false
		}
		rt, ok := a.inferExprType(n.Right, known, self)
		if !ok {
			return ir.NoType, false
		}
		if lt == rt {
			return lt, true
		}
		lr, lok := a.numericRank(lt)
		rr, rok := a.numericRank(rt)
		if lok && rok {
			if lr > rr {
				return lt, true
			}
			return rt, true
		}
		return ir.NoType, false
	case *ast.Conditional:
		if len(n.Clauses) == 0 {
			return ir.NoType, false
		}
		return a.inferExprType(n.Clauses[len(n.Clauses)-1].Body, known, self)
	case *ast.Is, *ast.As:
		return a.prog.BoolType, true
	case *ast.Intrinsic:
		switch n.Name {
		case "reflect_size_of", "reflect_field_count", "staticint_to_int",
			"source_loc_line", "source_loc_column", "atomic_load", "atomic_store",
			"reinterpret_float_to_int":
			return a.prog.IntType, true
		case "reinterpret_int_to_float":
			return a.prog.FloatType, true
		case "type_name", "reflect_type_name", "source_loc_file":
			return a.prog.StringType, true
		case "reflect_is_struct", "atomic_compare_and_swap":
			return a.prog.BoolType, true
		}
		return ir.NoType, false
	case *ast.Call:
		callee := n.Callee
		if p, ok := callee.(*ast.Paren); ok {
			callee = p.Inner
		}
		ident, ok := callee.(*ast.Ident)
		if !ok {
			return ir.NoType, false
		}
		var out ir.TypeId
		var outKnown bool
		var isAction bool
		if ident.Name == "self" {
			out, outKnown = known[self]
		} else if len(n.TypeArgs) == 0 {
			if candidates := a.prog.FuncDecls.ByName(ident.Name); len(candidates) > 0 {
				decl := a.prog.FuncDecls.Get(candidates[0])
				isAction = decl.IsAction
				if decl.Output != ir.NoType {
					out, outKnown = decl.Output, true
				} else {
					out, outKnown = known[candidates[0]]
				}
			}
		}
		if !outKnown {
			return ir.NoType, false
		}
		switch {
		case n.Fork:
			return a.prog.Futures.GetOrCreate(a.prog, out), true
		case n.Lazy:
			return a.prog.Lazies.GetOrCreate(a.prog, out, isAction), true
		}
		return out, true
	}
	return ir.NoType, false
}

// passDefineFuncs (6) lowers every non-templated function body and its
// optional-argument initializers now that every return type is settled.
func (a *Analyzer) passDefineFuncs() {
	fdToID := make(map[*ast.FuncDecl]ir.FuncId, len(a.funcDecls))
	for id, fd := range a.funcDecls {
		fdToID[fd] = id
	}
	for _, f := range a.files {
		for _, st := range f.Stmts {
			fd, ok := st.(*ast.FuncDecl)
			if !ok || len(fd.TypeParams) > 0 {
				continue
			}
			id, ok := fdToID[fd]
			if !ok {
				continue
			}
			a.defineFunc(f.Source, id, fd)
		}
	}
}

func (a *Analyzer) defineFunc(src source.ID, id ir.FuncId, fd *ast.FuncDecl) {
	decl := a.prog.FuncDecls.Get(id)
	if decl.Output == ir.NoType {
		return // pass 5 already diagnosed this function
	}
	fsc := newFuncScope(src, id, decl)
	for i, p := range fd.Params {
		fsc.consts.Declare(p.Name, decl.Input[i])
	}

	body := a.GetExpr(fsc, fd.Body)
	if body.Type() != decl.Output {
		if conv, ok := a.implicitConvert(body, decl.Output); ok {
			body = conv
		} else {
			a.bag.Errorf(diag.NonMatchingFuncReturnType, src, fd.Span(), "function %q body type does not match its declared return type", fd.Name)
		}
	}

	var optInits []ir.Expr
	for i, p := range fd.Params {
		if p.Init == nil {
			continue
		}
		osc := newOptArgScope(src)
		init := a.GetExpr(osc, p.Init)
		if init.Type() != decl.Input[i] {
			if conv, ok := a.implicitConvert(init, decl.Input[i]); ok {
				init = conv
			} else {
				a.bag.Errorf(diag.NonMatchingInitializerType, src, fd.Span(), "default value for parameter %q does not match its declared type", p.Name)
			}
		}
		optInits = append(optInits, init)
	}

	a.prog.FuncDefs.Define(id, &ir.FuncDef{ID: id, Consts: fsc.consts, Body: body, OptArgInitializers: optInits})
}

// passDefineExecs (7) lowers every top-level bare-expression statement,
// each against its own fresh top-level constant scope.
func (a *Analyzer) passDefineExecs() {
	for _, f := range a.files {
		for _, st := range f.Stmts {
			es, ok := st.(*ast.ExecStmt)
			if !ok {
				continue
			}
			sc := newTopLevelScope(f.Source)
			expr := a.GetExpr(sc, es.Expr)
			a.prog.Execs = append(a.prog.Execs, ir.ExecStmt{Consts: sc.consts, Expr: expr})
		}
	}
}

// passValidateTypes (8) rejects structs that are cyclic by value through
// their own fields (a struct containing itself, directly or
// transitively, with no union/delegate/future/lazy indirection to break
// the cycle would have unbounded size).
func (a *Analyzer) passValidateTypes() {
	state := make(map[ir.TypeId]int) // 0 unvisited, 1 visiting, 2 done
	for _, decl := range a.prog.TypeDecls.All() {
		if decl.Kind == ir.KindStruct {
			a.checkStructCycle(decl.ID, state)
		}
	}
}

func (a *Analyzer) checkStructCycle(id ir.TypeId, state map[ir.TypeId]int) bool {
	switch state[id] {
	case 1:
		return true
	case 2:
		return false
	}
	state[id] = 1
	cyclic := false
	if def, ok := a.prog.TypeDefs.Get(id); ok && def.Struct != nil {
		for _, f := range def.Struct.Fields {
			if a.prog.TypeDecls.Get(f.Type).Kind == ir.KindStruct {
				if a.checkStructCycle(f.Type, state) {
					cyclic = true
				}
			}
		}
	}
	state[id] = 2
	if cyclic {
		span := source.Span{}
		if sd, ok := a.structDecls[id]; ok {
			span = sd.Span()
		}
		a.bag.Errorf(diag.CyclicStruct, a.declSource(span), span, "struct %q is cyclic through its own fields", a.prog.TypeDecls.Get(id).Name)
	}
	return cyclic
}

// passPatchCalls (9) injects omitted trailing optional arguments at
// every call site, and resolves any source_loc_file/line/column left
// symbolic by lowerSourceLoc against the calling site that pulled it in
// through an applied optional argument. Each
// call gets its own clone of the callee's initializer expression rather
// than sharing one mutable Expr across every call site that omits that
// argument — the first call whose own optional-argument application
// establishes a root is the one whose SourceId every source_loc_* inside
// that subtree resolves against. root starts at source.None for every top-level
// walk, including the direct walk over a FuncDef's own
// OptArgInitializers: that walk only applies opt-args nested inside the
// initializer itself (never source-loc resolution, since there's no
// calling site yet), so the master copy a later call site clones is
// never prematurely baked to the wrong location.
func (a *Analyzer) passPatchCalls() {
	for _, id := range a.prog.FuncDefs.All() {
		def := a.prog.FuncDefs.Get(id)
		def.Body = a.patchExpr(def.Body, 0, source.None)
		for i, init := range def.OptArgInitializers {
			def.OptArgInitializers[i] = a.patchExpr(init, 0, source.None)
		}
	}
	for i, es := range a.prog.Execs {
		a.prog.Execs[i].Expr = a.patchExpr(es.Expr, 0, source.None)
	}
}

const maxOptArgDepth = 100

func identityRemap(id ir.ConstId) ir.ConstId { return id }

// patchExpr walks e, rewriting any Call that omits trailing optional
// arguments into one carrying cloned copies of the callee's default
// initializer expressions, and resolving source_loc_* calls that appear
// as a direct argument of some call against root, the SourceId of the
// nearest enclosing call that both applied optional arguments and
// carries its own SourceId (the "root applying-call"). depth bounds
// initializer-inside-initializer recursion (a default value calling a
// function whose own default value calls back) so a genuine cycle fails
// with a diagnostic instead of recursing forever.
func (a *Analyzer) patchExpr(e ir.Expr, depth int, root source.ID) ir.Expr {
	switch n := e.(type) {
	case *ir.Closure:
		for i, b := range n.Bound {
			n.Bound[i] = a.patchExpr(b, depth, root)
		}
	case *ir.Assign:
		n.Value = a.patchExpr(n.Value, depth, root)
	case *ir.Group:
		for i, el := range n.Elems {
			n.Elems[i] = a.patchExpr(el, depth, root)
		}
	case *ir.Switch:
		for i, c := range n.Conds {
			n.Conds[i] = a.patchExpr(c, depth, root)
		}
		for i, b := range n.Branches {
			n.Branches[i] = a.patchExpr(b, depth, root)
		}
	case *ir.Call:
		decl := a.prog.FuncDecls.Get(n.Func)
		hasOptArgs := decl.Kind == ir.FuncUser && len(n.Args) < len(decl.Input)

		effRoot := root
		if root == source.None && hasOptArgs && n.SourceID() != source.None {
			effRoot = n.SourceID()
		}

		for i, arg := range n.Args {
			n.Args[i] = a.patchExpr(arg, depth, effRoot)
		}
		if hasOptArgs {
			if depth >= maxOptArgDepth {
				a.bag.Errorf(diag.CyclicOptArgInitializer, n.SourceID(), source.Span{}, "optional-argument initializer chain for %q exceeds %d levels", decl.Name, maxOptArgDepth)
				return n
			}
			calleeDef := a.prog.FuncDefs.Get(n.Func)
			if calleeDef != nil {
				firstOpt := len(decl.Input) - decl.OptInputCount
				for i := len(n.Args); i < len(decl.Input); i++ {
					idx := i - firstOpt
					if idx < 0 || idx >= len(calleeDef.OptArgInitializers) {
						break
					}
					clone := ir.CloneExpr(calleeDef.OptArgInitializers[idx], identityRemap)
					clone = a.patchExpr(clone, depth+1, effRoot)
					n.Args = append(n.Args, clone)
				}
			}
		}
		if effRoot != source.None {
			for i, arg := range n.Args {
				n.Args[i] = a.resolveSourceLoc(arg, effRoot)
			}
		}
	case *ir.CallDyn:
		n.Delegate = a.patchExpr(n.Delegate, depth, root)
		for i, arg := range n.Args {
			n.Args[i] = a.patchExpr(arg, depth, root)
		}
		if root != source.None {
			for i, arg := range n.Args {
				n.Args[i] = a.resolveSourceLoc(arg, root)
			}
		}
	case *ir.CallSelf:
		for i, arg := range n.Args {
			n.Args[i] = a.patchExpr(arg, depth, root)
		}
		if root != source.None {
			for i, arg := range n.Args {
				n.Args[i] = a.resolveSourceLoc(arg, root)
			}
		}
	case *ir.Field:
		n.Receiver = a.patchExpr(n.Receiver, depth, root)
	case *ir.UnionCheck:
		n.Operand = a.patchExpr(n.Operand, depth, root)
	case *ir.UnionGet:
		n.Operand = a.patchExpr(n.Operand, depth, root)
	}
	return e
}

// resolveSourceLoc replaces e with a literal if it is a call to
// source_loc_file/line/column, resolved against root's position —
// the calling site of whichever applied-opt-arg call pulled it in —
// rather than the intrinsic's own definition site.
func (a *Analyzer) resolveSourceLoc(e ir.Expr, root source.ID) ir.Expr {
	call, ok := e.(*ir.Call)
	if !ok {
		return e
	}
	decl := a.prog.FuncDecls.Get(call.Func)
	switch decl.Kind {
	case ir.FuncIntrinsicSourceLocFile, ir.FuncIntrinsicSourceLocLine, ir.FuncIntrinsicSourceLocColumn:
	default:
		return e
	}
	span, _ := a.tbl.Span(root)
	name, line, col := srcPos(a.tbl, root, span)
	switch decl.Kind {
	case ir.FuncIntrinsicSourceLocFile:
		return ir.NewLitString(a.prog.StringType, name)
	case ir.FuncIntrinsicSourceLocLine:
		return ir.NewLitInt(a.prog.IntType, int32(line))
	default:
		return ir.NewLitInt(a.prog.IntType, int32(col))
	}
}
