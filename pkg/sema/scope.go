package sema

import (
	"github.com/novalang/novac/pkg/ir"
	"github.com/novalang/novac/pkg/source"
)

// Scope is the lowering context threaded through every GetExpr call: the
// live constant table for the function (or top-level exec) being
// lowered, plus enough information about the enclosing function to
// resolve `self` and to reject fork/lazy calls in the wrong place.
type Scope struct {
	consts *ir.ConstDeclTable
	src    source.ID

	inFunc   bool
	funcID   ir.FuncId
	funcDecl ir.FuncDecl

	// allowActions mirrors pass 7's "execute statements may call actions,
	// function bodies computing a pure value may not" rule.
	allowActions bool

	subst *ir.TypeSubstitutionTable // non-nil only while lowering inside a template instantiation

	// noLocalDecls is set while lowering an optional-argument initializer
	// expression, which may not introduce new locals.
	noLocalDecls bool
	// optArgInit marks that this scope IS an optional-argument initializer,
	// so source_loc_* intrinsics must be left symbolic for pass 9 to patch
	// against the calling site rather than resolved immediately.
	optArgInit bool
}

func newTopLevelScope(src source.ID) *Scope {
	return &Scope{consts: ir.NewConstDeclTable(), src: src, allowActions: true}
}

func newFuncScope(src source.ID, id ir.FuncId, decl ir.FuncDecl) *Scope {
	return &Scope{consts: ir.NewConstDeclTable(), src: src, inFunc: true, funcID: id, funcDecl: decl, allowActions: decl.IsAction}
}

// newOptArgScope returns the restricted scope an optional-argument
// initializer is lowered against: no locals, no action calls, and
// source_loc_* intrinsics left symbolic for pass 9.
func newOptArgScope(src source.ID) *Scope {
	return &Scope{consts: ir.NewConstDeclTable(), src: src, noLocalDecls: true, optArgInit: true}
}
