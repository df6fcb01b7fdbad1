package sema

import (
	"github.com/novalang/novac/pkg/ast"
	"github.com/novalang/novac/pkg/diag"
	"github.com/novalang/novac/pkg/ir"
	"github.com/novalang/novac/pkg/source"
)

// isDelegateType reports whether t is a KindDelegate type.
func (a *Analyzer) isDelegateType(t ir.TypeId) bool {
	def, ok := a.prog.TypeDefs.Get(t)
	return ok && def.Kind == ir.KindDelegate
}

// lowerCall is the entry point for every `callee(args)` parse node. The
// callee shape decides which of the four call forms (static overload
// resolution, self-recursion, dynamic delegate dispatch, or on-demand
// template instantiation) it lowers to.
func (a *Analyzer) lowerCall(sc *Scope, n *ast.Call) ir.Expr {
	if ident, ok := n.Callee.(*ast.Ident); ok {
		if ident.Name == "self" {
			return a.lowerCallSelf(sc, n)
		}
		if cid, ok := sc.consts.Lookup(ident.Name); ok {
			entry := sc.consts.Entry(cid)
			if a.isDelegateType(entry.Type) {
				return a.lowerCallDyn(sc, n, ir.NewConst(entry.Type, cid))
			}
		}
		if len(n.TypeArgs) > 0 {
			if call, ok := a.lowerExplicitTemplateCall(sc, n, ident.Name); ok {
				return call
			}
			return ir.NewLitInt(a.prog.IntType, 0)
		}
		if tpls := a.prog.FuncTemplates.Lookup(ident.Name); len(tpls) > 0 {
			if call, ok := a.lowerInferredTemplateCall(sc, n, ident.Name, tpls); ok {
				return call
			}
		}
		if candidates := a.prog.FuncDecls.ByName(ident.Name); len(candidates) > 0 {
			return a.lowerStaticCall(sc, n, ident.Name, candidates)
		}
		kind := diag.UndeclaredFuncOrAction
		if !sc.allowActions {
			kind = diag.UndeclaredPureFunc
		}
		a.bag.Errorf(kind, sc.src, n.Span(), "undeclared function or action %q", ident.Name)
		return ir.NewLitInt(a.prog.IntType, 0)
	}
	callee := a.GetExpr(sc, n.Callee)
	return a.lowerCallDyn(sc, n, callee)
}

func (a *Analyzer) lowerArgs(sc *Scope, args []ast.Arg) []ir.Expr {
	out := make([]ir.Expr, len(args))
	for i, arg := range args {
		out[i] = a.GetExpr(sc, arg.Expr)
	}
	return out
}

// lowerStaticCall resolves a plain named call against every overload
// sharing that name, applying implicit conversions for
// the winning candidate and attaching the fork/lazy result-type wrapper
// when requested.
func (a *Analyzer) lowerStaticCall(sc *Scope, n *ast.Call, name string, candidates []ir.FuncId) ir.Expr {
	args := a.lowerArgs(sc, n.Args)
	id, converted, found, ambiguous := a.resolveOverload(candidates, args, !sc.allowActions)
	if !found {
		kind := diag.UndeclaredFuncOrAction
		if !sc.allowActions {
			kind = diag.UndeclaredPureFunc
		}
		a.bag.Errorf(kind, sc.src, n.Span(), "no overload of %q matches the given arguments", name)
		return ir.NewLitInt(a.prog.IntType, 0)
	}
	if ambiguous {
		a.bag.Errorf(diag.AmbiguousFunction, sc.src, n.Span(), "call to %q is ambiguous", name)
	}
	decl := a.prog.FuncDecls.Get(id)
	return a.finishCall(sc, n, id, decl, converted)
}

// finishCall attaches the fork/lazy call-mode wrapper once a concrete
// FuncId and its already-converted arguments are known, shared by the
// static and template call paths (lowerCallSelf builds its CallSelf
// directly).
func (a *Analyzer) finishCall(sc *Scope, n *ast.Call, id ir.FuncId, decl ir.FuncDecl, args []ir.Expr) ir.Expr {
	mode := ir.CallNormal
	output := decl.Output
	switch {
	case n.Fork:
		if decl.Kind != ir.FuncUser {
			a.bag.Errorf(diag.ForkedNonUserFunc, sc.src, n.Span(), "fork requires a user-defined function")
		}
		mode = ir.CallFork
		output = a.prog.Futures.GetOrCreate(a.prog, decl.Output)
	case n.Lazy:
		if decl.Kind != ir.FuncUser {
			a.bag.Errorf(diag.LazyNonUserFunc, sc.src, n.Span(), "lazy requires a user-defined function")
		}
		mode = ir.CallLazy
		output = a.prog.Lazies.GetOrCreate(a.prog, decl.Output, decl.IsAction)
	}
	call := ir.NewCall(output, id, args, mode)
	call.SetSourceID(a.tbl.AddLoc(sc.src, n.Span()))
	return call
}

// lowerCallSelf lowers `self(...)`, unnamed recursion into the enclosing
// function. The enclosing function's return
// type must already be concrete; self-calls inside a function whose type
// is still being inferred propagate the currently-best-known type via
// pass 5's fixed point rather than through this path.
func (a *Analyzer) lowerCallSelf(sc *Scope, n *ast.Call) ir.Expr {
	if !sc.inFunc {
		a.bag.Errorf(diag.SelfCallInNonFunc, sc.src, n.Span(), "self() used outside a function body")
		return ir.NewLitInt(a.prog.IntType, 0)
	}
	if n.Fork {
		a.bag.Errorf(diag.ForkedSelfCall, sc.src, n.Span(), "self() cannot be forked")
	}
	if n.Lazy {
		a.bag.Errorf(diag.LazySelfCall, sc.src, n.Span(), "self() cannot be made lazy")
	}
	if sc.funcDecl.Output == ir.NoType {
		a.bag.Errorf(diag.SelfCallWithoutInferredRetType, sc.src, n.Span(), "self() requires an already-inferred return type")
		return ir.NewLitInt(a.prog.IntType, 0)
	}
	if len(n.Args) != len(sc.funcDecl.Input) {
		a.bag.Errorf(diag.IncorrectNumArgsInSelfCall, sc.src, n.Span(), "self() called with %d arguments, expected %d", len(n.Args), len(sc.funcDecl.Input))
	}
	args := a.lowerArgs(sc, n.Args)
	for i := range args {
		if i >= len(sc.funcDecl.Input) {
			break
		}
		if conv, ok := a.implicitConvert(args[i], sc.funcDecl.Input[i]); ok {
			args[i] = conv
		}
	}
	return ir.NewCallSelf(sc.funcDecl.Output, args)
}

// lowerCallDyn lowers a call whose callee evaluates to a delegate value
// rather than naming a declared function: a bare local of delegate type,
// a parenthesized expression, a field read, or any other delegate-typed
// subexpression.
func (a *Analyzer) lowerCallDyn(sc *Scope, n *ast.Call, delegate ir.Expr) ir.Expr {
	def, ok := a.prog.TypeDefs.Get(delegate.Type())
	if !ok || def.Kind != ir.KindDelegate {
		a.bag.Errorf(diag.UndeclaredCallOperator, sc.src, n.Span(), "callee is not a delegate value")
		return delegate
	}
	dd := def.Delegate
	if dd.IsAction && !sc.allowActions {
		a.bag.Errorf(diag.IllegalDelegateCall, sc.src, n.Span(), "action delegate cannot be called from a pure context")
	}
	if n.Lazy {
		a.bag.Errorf(diag.IllegalDelegateCall, sc.src, n.Span(), "dynamic calls cannot be made lazy")
	}
	if len(n.Args) != len(dd.Input) {
		a.bag.Errorf(diag.IncorrectArgsToDelegate, sc.src, n.Span(), "delegate called with %d arguments, expected %d", len(n.Args), len(dd.Input))
	}
	args := a.lowerArgs(sc, n.Args)
	for i := range args {
		if i >= len(dd.Input) {
			break
		}
		if conv, ok := a.implicitConvert(args[i], dd.Input[i]); ok {
			args[i] = conv
		}
	}
	call := ir.NewCallDyn(dd.Output, delegate, args, n.Fork)
	call.SetSourceID(a.tbl.AddLoc(sc.src, n.Span()))
	return call
}

// lowerExplicitTemplateCall instantiates (or reuses a memoized
// instantiation of) the function template named name using the call
// site's explicit `name{T1,T2}(args)` type arguments.
func (a *Analyzer) lowerExplicitTemplateCall(sc *Scope, n *ast.Call, name string) (ir.Expr, bool) {
	params := make([]ir.TypeId, 0, len(n.TypeArgs))
	ok := true
	for _, tr := range n.TypeArgs {
		t, got := a.resolveTypeRefOrSubst(sc.src, tr, sc.subst)
		if !got {
			ok = false
			continue
		}
		params = append(params, t)
	}
	if !ok {
		return nil, false
	}
	// A templated type used at a call site, `box{int}(args)`, constructs
	// the instantiation: the instantiated type's constructor overloads are
	// registered under its mangled name, so resolution proceeds exactly as
	// for a non-templated `S(args)`.
	if typeTpl, ok := a.prog.TypeTemplates.Lookup(name); ok {
		tid, got := a.instantiateTypeTemplate(sc.src, n.Span(), typeTpl, params)
		if !got {
			return nil, false
		}
		mangled := a.prog.TypeDecls.Get(tid).Name
		if candidates := a.prog.FuncDecls.ByName(mangled); len(candidates) > 0 {
			return a.lowerStaticCall(sc, n, mangled, candidates), true
		}
		a.bag.Errorf(diag.InvalidTypeInstantiation, sc.src, n.Span(), "type template %q has no constructor for the given arguments", name)
		return nil, false
	}
	tpls := a.prog.FuncTemplates.Lookup(name)
	if len(tpls) == 0 {
		a.bag.Errorf(diag.NoFuncOrActionToInstantiate, sc.src, n.Span(), "no function template named %q", name)
		return nil, false
	}
	var chosen *ir.FuncTemplate
	for _, t := range tpls {
		if len(t.TypeParams) == len(params) {
			chosen = t
			break
		}
	}
	if chosen == nil {
		a.bag.Errorf(diag.InvalidFuncInstantiation, sc.src, n.Span(), "no overload of template %q takes %d type arguments", name, len(params))
		return nil, false
	}
	id, ok := a.instantiateFuncTemplate(chosen, params, sc.src, n.Span())
	if !ok {
		return nil, false
	}
	return a.finishTemplateCall(sc, n, id)
}

// lowerInferredTemplateCall tries every function template sharing name,
// inferring its type-parameter tuple from the already-lowered argument
// types against each parameter's syntactic type, requiring a unique
// binding per type parameter. The first template whose
// inference succeeds and whose instantiation accepts the arguments wins;
// overload ambiguity across multiple simultaneously-inferrable templates
// is not diagnosed separately here (first match wins).
func (a *Analyzer) lowerInferredTemplateCall(sc *Scope, n *ast.Call, name string, tpls []*ir.FuncTemplate) (ir.Expr, bool) {
	args := a.lowerArgs(sc, n.Args)
	for _, tpl := range tpls {
		if len(tpl.Decl.Params) != len(args) {
			continue
		}
		bindings := make(map[string]ir.TypeId)
		ok := true
		for i, p := range tpl.Decl.Params {
			if p.Type == nil || len(p.Type.Args) != 0 {
				continue
			}
			isParam := false
			for _, tp := range tpl.TypeParams {
				if tp == p.Type.Name {
					isParam = true
					break
				}
			}
			if !isParam {
				continue
			}
			if existing, seen := bindings[p.Type.Name]; seen && existing != args[i].Type() {
				ok = false
				break
			}
			bindings[p.Type.Name] = args[i].Type()
		}
		if !ok {
			continue
		}
		params := make([]ir.TypeId, len(tpl.TypeParams))
		complete := true
		for i, pname := range tpl.TypeParams {
			t, found := bindings[pname]
			if !found {
				complete = false
				break
			}
			params[i] = t
		}
		if !complete {
			continue
		}
		id, ok := a.instantiateFuncTemplate(tpl, params, sc.src, n.Span())
		if !ok {
			continue
		}
		decl := a.prog.FuncDecls.Get(id)
		converted := make([]ir.Expr, len(args))
		for i, arg := range args {
			if i < len(decl.Input) && arg.Type() != decl.Input[i] {
				if conv, ok := a.implicitConvert(arg, decl.Input[i]); ok {
					converted[i] = conv
					continue
				}
			}
			converted[i] = arg
		}
		return a.finishCall(sc, n, id, decl, converted), true
	}
	return nil, false
}

// finishTemplateCall validates args against a single already-resolved
// template instantiation, reusing resolveOverload's conversion-cost
// machinery with a one-element candidate list.
func (a *Analyzer) finishTemplateCall(sc *Scope, n *ast.Call, id ir.FuncId) (ir.Expr, bool) {
	args := a.lowerArgs(sc, n.Args)
	_, converted, found, _ := a.resolveOverload([]ir.FuncId{id}, args, !sc.allowActions)
	if !found {
		a.bag.Errorf(diag.InvalidFuncInstantiation, sc.src, n.Span(), "template instantiation does not accept the given arguments")
		return ir.NewLitInt(a.prog.IntType, 0), true
	}
	decl := a.prog.FuncDecls.Get(id)
	return a.finishCall(sc, n, id, decl, converted), true
}

// instantiateFuncTemplate resolves (or, on first use, builds) the
// concrete FuncId produced by binding tpl's type parameters to params:
// its signature, body, and any optional-argument initializers, memoized
// on the template itself so repeated calls with the same type-parameter
// tuple share one FuncId (mirrors instantiateTypeTemplate in
// typeresolve.go).
func (a *Analyzer) instantiateFuncTemplate(tpl *ir.FuncTemplate, params []ir.TypeId, callSrc source.ID, callSpan source.Span) (ir.FuncId, bool) {
	if inst, ok := tpl.Instance(params); ok {
		return inst.ResolvedID, inst.Success
	}
	if len(params) != len(tpl.TypeParams) {
		a.bag.Errorf(diag.InvalidFuncInstantiation, callSrc, callSpan, "template %q expects %d type arguments, got %d", tpl.Name, len(tpl.TypeParams), len(params))
		tpl.Memoize(params, ir.FuncInstance{TypeParams: params, Success: false})
		return 0, false
	}

	subst := ir.NewTypeSubstitutionTable()
	for i, name := range tpl.TypeParams {
		subst.Bind(name, params[i])
	}

	fd := tpl.Decl
	input := make(ir.TypeSet, 0, len(fd.Params))
	optCount := 0
	for _, p := range fd.Params {
		pt, ok := a.resolveTypeRefOrSubst(callSrc, p.Type, subst)
		if !ok {
			pt = a.prog.IntType
		}
		input = append(input, pt)
		if p.Init != nil {
			optCount++
		}
	}
	output := ir.NoType
	if fd.RetType != nil {
		output, _ = a.resolveTypeRefOrSubst(callSrc, fd.RetType, subst)
	}
	mangled := a.mangleName(tpl.Name, params)
	id := a.prog.FuncDecls.Declare(ir.FuncDecl{
		Name: mangled, Kind: ir.FuncUser, Input: input, Output: output,
		OptInputCount: optCount, IsAction: fd.IsAction,
	})
	// Memoize before lowering the body so a recursive reference to this
	// same instantiation (via self() or a direct named recursive call)
	// resolves to this FuncId instead of re-entering instantiation.
	tpl.Memoize(params, ir.FuncInstance{TypeParams: params, ResolvedID: id, Success: true})

	fsc := newFuncScope(callSrc, id, a.prog.FuncDecls.Get(id))
	fsc.subst = subst
	for i, p := range fd.Params {
		fsc.consts.Declare(p.Name, input[i])
	}
	body := a.GetExpr(fsc, fd.Body)
	if output == ir.NoType {
		output = body.Type()
		a.prog.FuncDecls.SetOutput(id, output)
	} else if body.Type() != output {
		if conv, ok := a.implicitConvert(body, output); ok {
			body = conv
		} else {
			a.bag.Errorf(diag.NonMatchingFuncReturnType, callSrc, fd.Span(), "templated function %q body type does not match its declared return type", tpl.Name)
		}
	}

	var optInits []ir.Expr
	for _, p := range fd.Params {
		if p.Init == nil {
			continue
		}
		osc := newOptArgScope(callSrc)
		osc.subst = subst
		optInits = append(optInits, a.GetExpr(osc, p.Init))
	}
	a.prog.FuncDefs.Define(id, &ir.FuncDef{ID: id, Consts: fsc.consts, Body: body, OptArgInitializers: optInits})
	return id, true
}
