package sema

import (
	"fmt"

	"github.com/novalang/novac/pkg/ast"
	"github.com/novalang/novac/pkg/diag"
	"github.com/novalang/novac/pkg/ir"
)

// lowerAnonFunc lowers `fun(...) expr` / `act(...) expr` into a synthetic
// top-level function plus either a bare LitFunc (no free variables) or a
// Closure binding every captured variable as a trailing argument. The
// delegate type exposed to the rest of the program describes only the
// parameters visible at the call site; captured values travel bound
// inside the Closure rather than the caller's argument list.
func (a *Analyzer) lowerAnonFunc(sc *Scope, n *ast.AnonFunc) ir.Expr {
	paramNames := make(map[string]bool, len(n.Params))
	paramTypes := make(ir.TypeSet, 0, len(n.Params))
	for _, p := range n.Params {
		paramNames[p.Name] = true
		pt, ok := a.resolveTypeRefOrSubst(sc.src, p.Type, sc.subst)
		if !ok {
			pt = a.prog.IntType
		}
		paramTypes = append(paramTypes, pt)
		if p.Init != nil {
			a.bag.Errorf(diag.UnsupportedArgInitializer, sc.src, n.Span(), "anonymous functions cannot declare optional parameters")
		}
	}

	var order []string
	collectCaptureNames(n.Body, map[string]bool{}, &order, paramNames)

	var captureNames []string
	var capturedTypes ir.TypeSet
	var boundArgs []ir.Expr
	for _, name := range order {
		cid, ok := sc.consts.Lookup(name)
		if !ok {
			continue
		}
		entry := sc.consts.Entry(cid)
		captureNames = append(captureNames, name)
		capturedTypes = append(capturedTypes, entry.Type)
		boundArgs = append(boundArgs, ir.NewConst(entry.Type, cid))
	}

	output := ir.NoType
	if n.RetType != nil {
		output, _ = a.resolveTypeRefOrSubst(sc.src, n.RetType, sc.subst)
	}

	fullInput := make(ir.TypeSet, 0, len(paramTypes)+len(capturedTypes))
	fullInput = append(fullInput, paramTypes...)
	fullInput = append(fullInput, capturedTypes...)

	name := fmt.Sprintf("__anon_%d", a.prog.NextAnonFuncIndex())
	id := a.prog.FuncDecls.Declare(ir.FuncDecl{Name: name, Kind: ir.FuncUser, Input: fullInput, Output: output, IsAction: n.IsAction})

	fsc := newFuncScope(sc.src, id, a.prog.FuncDecls.Get(id))
	fsc.subst = sc.subst
	for i, p := range n.Params {
		fsc.consts.Declare(p.Name, paramTypes[i])
	}
	for i, cname := range captureNames {
		fsc.consts.Declare(cname, capturedTypes[i])
	}

	body := a.GetExpr(fsc, n.Body)
	if output == ir.NoType {
		output = body.Type()
		a.prog.FuncDecls.SetOutput(id, output)
	} else if body.Type() != output {
		if conv, ok := a.implicitConvert(body, output); ok {
			body = conv
		} else {
			a.bag.Errorf(diag.NonMatchingFuncReturnType, sc.src, n.Span(), "anonymous function body type does not match its declared return type")
		}
	}
	a.prog.FuncDefs.Define(id, &ir.FuncDef{ID: id, Consts: fsc.consts, Body: body})

	delegateType := a.prog.Delegates.GetOrCreate(a.prog, paramTypes, output, n.IsAction)
	if len(boundArgs) == 0 {
		lit := ir.NewLitFunc(delegateType, id)
		lit.SetSourceID(sc.src)
		return lit
	}
	clo := ir.NewClosure(delegateType, id, boundArgs)
	clo.SetSourceID(sc.src)
	return clo
}

// collectCaptureNames walks e collecting every referenced identifier not
// in exclude (the anon func's own parameter names), in first-seen order.
// It is a syntactic over-approximation: an identifier the enclosing
// scope happens not to declare is simply dropped by the caller's
// sc.consts.Lookup check, so a function or type name reached through
// here never becomes a spurious capture.
func collectCaptureNames(e ast.Expr, seen map[string]bool, order *[]string, exclude map[string]bool) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *ast.Ident:
		if !exclude[n.Name] && !seen[n.Name] {
			seen[n.Name] = true
			*order = append(*order, n.Name)
		}
	case *ast.Binary:
		collectCaptureNames(n.Left, seen, order, exclude)
		collectCaptureNames(n.Right, seen, order, exclude)
	case *ast.Unary:
		collectCaptureNames(n.Operand, seen, order, exclude)
	case *ast.Paren:
		collectCaptureNames(n.Inner, seen, order, exclude)
	case *ast.Group:
		for _, el := range n.Elems {
			collectCaptureNames(el, seen, order, exclude)
		}
	case *ast.Call:
		collectCaptureNames(n.Callee, seen, order, exclude)
		for _, arg := range n.Args {
			collectCaptureNames(arg.Expr, seen, order, exclude)
		}
	case *ast.Index:
		collectCaptureNames(n.Receiver, seen, order, exclude)
		collectCaptureNames(n.Idx, seen, order, exclude)
	case *ast.Field:
		collectCaptureNames(n.Receiver, seen, order, exclude)
	case *ast.ConstDecl:
		collectCaptureNames(n.Init, seen, order, exclude)
	case *ast.Conditional:
		for _, c := range n.Clauses {
			if c.Cond != nil {
				collectCaptureNames(c.Cond, seen, order, exclude)
			}
			collectCaptureNames(c.Body, seen, order, exclude)
		}
	case *ast.Intrinsic:
		for _, arg := range n.Args {
			collectCaptureNames(arg.Expr, seen, order, exclude)
		}
	case *ast.Is:
		collectCaptureNames(n.Operand, seen, order, exclude)
	case *ast.As:
		collectCaptureNames(n.Operand, seen, order, exclude)
	case *ast.AnonFunc:
		collectCaptureNames(n.Body, seen, order, exclude)
	}
}
