package sema

import (
	"github.com/novalang/novac/pkg/ast"
	"github.com/novalang/novac/pkg/diag"
	"github.com/novalang/novac/pkg/ir"
	"github.com/novalang/novac/pkg/source"
)

// GetExpr lowers one parse-tree expression into its typed IR form,
// recursively lowering children first (the tree has no back-pointers, so
// a plain recursive descent is enough — nothing needs a second pass to
// see a parent). On an unrecoverable error it records a diagnostic and
// returns a best-effort placeholder so the caller can keep walking the
// rest of the tree instead of aborting the whole function.
func (a *Analyzer) GetExpr(sc *Scope, e ast.Expr) ir.Expr {
	switch n := e.(type) {
	case *ast.IntLit:
		return ir.NewLitInt(a.prog.IntType, n.Value)
	case *ast.LongLit:
		return ir.NewLitLong(a.prog.LongType, n.Value)
	case *ast.FloatLit:
		return ir.NewLitFloat(a.prog.FloatType, n.Value)
	case *ast.BoolLit:
		return ir.NewLitBool(a.prog.BoolType, n.Value)
	case *ast.CharLit:
		return ir.NewLitChar(a.prog.CharType, n.Value)
	case *ast.StringLit:
		return ir.NewLitString(a.prog.StringType, n.Value)

	case *ast.Ident:
		return a.lowerIdent(sc, n)
	case *ast.Binary:
		return a.lowerBinary(sc, n)
	case *ast.Unary:
		return a.lowerUnary(sc, n)
	case *ast.Paren:
		return a.GetExpr(sc, n.Inner)
	case *ast.Group:
		elems := make([]ir.Expr, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = a.GetExpr(sc, el)
		}
		return ir.NewGroup(elems)
	case *ast.ConstDecl:
		return a.lowerConstDecl(sc, n)
	case *ast.Conditional:
		return a.lowerConditional(sc, n)
	case *ast.Is:
		return a.lowerIs(sc, n)
	case *ast.As:
		return a.lowerAs(sc, n)
	case *ast.Index:
		return a.lowerIndex(sc, n)
	case *ast.Field:
		return a.lowerField(sc, n)
	case *ast.Call:
		return a.lowerCall(sc, n)
	case *ast.Intrinsic:
		return a.lowerIntrinsic(sc, n)
	case *ast.AnonFunc:
		return a.lowerAnonFunc(sc, n)
	}
	a.bag.Errorf(diag.ParseError, sc.src, e.Span(), "unsupported expression form")
	return ir.NewLitInt(a.prog.IntType, 0)
}

func (a *Analyzer) lowerIdent(sc *Scope, n *ast.Ident) ir.Expr {
	if id, ok := sc.consts.Lookup(n.Name); ok {
		entry := sc.consts.Entry(id)
		return ir.NewConst(entry.Type, id)
	}
	if t, ok := a.findEnumEntry(n.Name); ok {
		typ, v := t.typ, t.value
		return ir.NewLitEnum(typ, v)
	}
	if tid, ok := a.prog.TypeDecls.ByName(n.Name); ok {
		// A bare type name is its nullary constructor.
		for _, fid := range a.prog.FuncDecls.ByName(n.Name) {
			d := a.prog.FuncDecls.Get(fid)
			if d.Kind == ir.FuncMakeStruct && len(d.Input) == 0 && d.Output == tid {
				return ir.NewCall(tid, fid, nil, ir.CallNormal)
			}
		}
		a.bag.Errorf(diag.UndeclaredConst, sc.src, n.Span(), "type %q has no nullary constructor", n.Name)
		return ir.NewLitInt(a.prog.IntType, 0)
	}
	ids := a.prog.FuncDecls.ByName(n.Name)
	if len(ids) == 1 {
		decl := a.prog.FuncDecls.Get(ids[0])
		if decl.Kind != ir.FuncUser {
			a.bag.Errorf(diag.IntrinsicFuncLiteral, sc.src, n.Span(), "built-in function %q cannot be used as a value", n.Name)
			return ir.NewLitInt(a.prog.IntType, 0)
		}
		delegate := a.prog.Delegates.GetOrCreate(a.prog, decl.Input, decl.Output, decl.IsAction)
		return ir.NewLitFunc(delegate, ids[0])
	}
	a.bag.Errorf(diag.UndeclaredConst, sc.src, n.Span(), "undeclared constant %q", n.Name)
	return ir.NewLitInt(a.prog.IntType, 0)
}

type enumEntryRef struct {
	typ   ir.TypeId
	value int32
}

func (a *Analyzer) findEnumEntry(name string) (enumEntryRef, bool) {
	for id, d := range a.enumDecls {
		for _, e := range d.Entries {
			if e.Name == name {
				def, _ := a.prog.TypeDefs.Get(id)
				for _, ee := range def.Enum.Entries {
					if ee.Name == name {
						return enumEntryRef{typ: id, value: ee.Value}, true
					}
				}
			}
		}
	}
	return enumEntryRef{}, false
}

func (a *Analyzer) lowerConstDecl(sc *Scope, n *ast.ConstDecl) ir.Expr {
	value := a.GetExpr(sc, n.Init)
	if sc.noLocalDecls {
		a.bag.Errorf(diag.ConstDeclareNotSupported, sc.src, n.Span(), "constant declarations are not allowed in an optional-argument initializer")
		return value
	}
	if id, ok := sc.consts.Lookup(n.Name); ok {
		a.bag.Errorf(diag.ConstNameConflictsConst, sc.src, n.Span(), "constant %q is already declared in this scope", n.Name)
		return ir.NewAssign(id, value)
	}
	if _, isType := a.prog.TypeDecls.ByName(n.Name); isType {
		a.bag.Errorf(diag.ConstNameConflictsType, sc.src, n.Span(), "constant %q conflicts with a declared type name", n.Name)
	}
	if sc.subst != nil {
		if _, isSubst := sc.subst.Lookup(n.Name); isSubst {
			a.bag.Errorf(diag.ConstNameConflictsSubstitution, sc.src, n.Span(), "constant %q conflicts with a template type-parameter name", n.Name)
		}
	}
	id := sc.consts.Declare(n.Name, value.Type())
	return ir.NewAssign(id, value)
}

// lowerBinary lowers `&&`/`||` to short-circuiting Switch nodes and every
// other binary operator to a call of its fixed intrinsic implementation,
// inserting an implicit widening conversion on the weaker operand when
// the two sides' types differ but one can be promoted into the other.
func (a *Analyzer) lowerBinary(sc *Scope, n *ast.Binary) ir.Expr {
	if n.Op == "&&" || n.Op == "||" {
		a.markCheckedAs(n.Left)
		a.markCheckedAs(n.Right)
	}
	lhs := a.GetExpr(sc, n.Left)
	if n.Op == "&&" {
		rhs := a.GetExpr(sc, n.Right)
		return ir.NewSwitch(a.prog.BoolType, []ir.Expr{lhs}, []ir.Expr{rhs, ir.NewLitBool(a.prog.BoolType, false)})
	}
	if n.Op == "||" {
		rhs := a.GetExpr(sc, n.Right)
		return ir.NewSwitch(a.prog.BoolType, []ir.Expr{lhs}, []ir.Expr{ir.NewLitBool(a.prog.BoolType, true), rhs})
	}
	rhs := a.GetExpr(sc, n.Right)
	return a.resolveBinaryOp(sc, n, lhs, rhs)
}

func (a *Analyzer) resolveBinaryOp(sc *Scope, n *ast.Binary, lhs, rhs ir.Expr) ir.Expr {
	lt, rt := lhs.Type(), rhs.Type()
	funcName, ok := binFuncName[n.Op]
	if !ok {
		a.bag.Errorf(diag.NonOverloadableOperator, sc.src, n.Span(), "operator %q cannot be overloaded", n.Op)
		return lhs
	}
	family := a.opFuncs[funcName]

	if lt == rt {
		if id, ok := family[lt]; ok {
			decl := a.prog.FuncDecls.Get(id)
			return ir.NewCall(decl.Output, id, []ir.Expr{lhs, rhs}, ir.CallNormal)
		}
	} else if conv, ok := a.implicitConvert(rhs, lt); ok {
		if id, ok := family[lt]; ok {
			decl := a.prog.FuncDecls.Get(id)
			return ir.NewCall(decl.Output, id, []ir.Expr{lhs, conv}, ir.CallNormal)
		}
	} else if conv, ok := a.implicitConvert(lhs, rt); ok {
		if id, ok := family[rt]; ok {
			decl := a.prog.FuncDecls.Get(id)
			return ir.NewCall(decl.Output, id, []ir.Expr{conv, rhs}, ir.CallNormal)
		}
	}
	a.bag.Errorf(diag.UndeclaredBinOperator, sc.src, n.Span(), "no operator %q for the given operand types", n.Op)
	return lhs
}

func (a *Analyzer) lowerUnary(sc *Scope, n *ast.Unary) ir.Expr {
	operand := a.GetExpr(sc, n.Operand)
	name, ok := unaryFuncName[n.Op]
	if !ok {
		a.bag.Errorf(diag.NonOverloadableOperator, sc.src, n.Span(), "operator %q cannot be overloaded", n.Op)
		return operand
	}
	id, ok := a.opFuncs[name][operand.Type()]
	if !ok {
		a.bag.Errorf(diag.UndeclaredUnaryOperator, sc.src, n.Span(), "no operator %q for the operand type", n.Op)
		return operand
	}
	decl := a.prog.FuncDecls.Get(id)
	return ir.NewCall(decl.Output, id, []ir.Expr{operand}, ir.CallNormal)
}

// implicitConvert returns e converted to want if a registered implicit
// (never explicit-only) conversion exists from e's type to want.
func (a *Analyzer) implicitConvert(e ir.Expr, want ir.TypeId) (ir.Expr, bool) {
	if e.Type() == want {
		return e, true
	}
	id, ok := a.convFuncs[[2]ir.TypeId{e.Type(), want}]
	if !ok {
		return nil, false
	}
	decl := a.prog.FuncDecls.Get(id)
	if !decl.IsImplicitConv {
		return nil, false
	}
	return ir.NewCall(decl.Output, id, []ir.Expr{e}, ir.CallNormal), true
}

func (a *Analyzer) lowerIndex(sc *Scope, n *ast.Index) ir.Expr {
	recv := a.GetExpr(sc, n.Receiver)
	idx := a.GetExpr(sc, n.Idx)
	id, ok := a.opFuncs["[]"][recv.Type()]
	if !ok {
		a.bag.Errorf(diag.UndeclaredIndexOperator, sc.src, n.Span(), "type has no index operator")
		return recv
	}
	decl := a.prog.FuncDecls.Get(id)
	return ir.NewCall(decl.Output, id, []ir.Expr{recv, idx}, ir.CallNormal)
}

func (a *Analyzer) lowerField(sc *Scope, n *ast.Field) ir.Expr {
	recv := a.GetExpr(sc, n.Receiver)
	def, ok := a.prog.TypeDefs.Get(recv.Type())
	if !ok || def.Kind != ir.KindStruct {
		a.bag.Errorf(diag.UndeclaredType, sc.src, n.Span(), "field access on a non-struct type")
		return recv
	}
	f, ok := def.Struct.FieldByName(n.Name)
	if !ok {
		a.bag.Errorf(diag.UndeclaredConst, sc.src, n.Span(), "struct has no field %q", n.Name)
		return recv
	}
	return ir.NewField(f.Type, recv, f.ID)
}

func (a *Analyzer) lowerIs(sc *Scope, n *ast.Is) ir.Expr {
	operand := a.GetExpr(sc, n.Operand)
	def, ok := a.prog.TypeDefs.Get(operand.Type())
	if !ok || def.Kind != ir.KindUnion {
		a.bag.Errorf(diag.NonUnionIsExpression, sc.src, n.Span(), "`is` requires a union-typed operand")
		return ir.NewLitBool(a.prog.BoolType, false)
	}
	want, ok := a.resolveTypeRefOrSubst(sc.src, n.Type, sc.subst)
	if !ok {
		return ir.NewLitBool(a.prog.BoolType, false)
	}
	return ir.NewUnionCheck(a.prog.BoolType, operand, want)
}

// markCheckedAs records every `as` node syntactically guaranteed to be
// consumed as a branch condition — directly, through parentheses, or
// through the short-circuit operators. Anywhere else the bound constant
// could be read without the check having passed, which lowerAs rejects.
func (a *Analyzer) markCheckedAs(e ast.Expr) {
	switch n := e.(type) {
	case *ast.As:
		a.checkedAs[n] = true
	case *ast.Paren:
		a.markCheckedAs(n.Inner)
	case *ast.Unary:
		if n.Op == "!" {
			a.markCheckedAs(n.Operand)
		}
	case *ast.Binary:
		if n.Op == "&&" || n.Op == "||" {
			a.markCheckedAs(n.Left)
			a.markCheckedAs(n.Right)
		}
	}
}

func (a *Analyzer) lowerAs(sc *Scope, n *ast.As) ir.Expr {
	if !a.checkedAs[n] {
		a.bag.Errorf(diag.UncheckedAsWithConst, sc.src, n.Span(), "`as %s %s` must be used as a branch condition so %q is never read unchecked", n.Type.Name, n.Name, n.Name)
	}
	operand := a.GetExpr(sc, n.Operand)
	def, ok := a.prog.TypeDefs.Get(operand.Type())
	if !ok || def.Kind != ir.KindUnion {
		a.bag.Errorf(diag.NonUnionIsExpression, sc.src, n.Span(), "`as` requires a union-typed operand")
		return ir.NewLitBool(a.prog.BoolType, false)
	}
	want, ok := a.resolveTypeRefOrSubst(sc.src, n.Type, sc.subst)
	if !ok {
		return ir.NewLitBool(a.prog.BoolType, false)
	}
	bind := sc.consts.Declare(n.Name, want)
	return ir.NewUnionGet(a.prog.BoolType, operand, want, bind)
}

// lowerConditional lowers an if/else-if/.../else chain or a ternary into
// a Switch. The parser requires a trailing else, so the synthetic no-op
// else branch below only guards clause lists built programmatically.
func (a *Analyzer) lowerConditional(sc *Scope, n *ast.Conditional) ir.Expr {
	var conds []ir.Expr
	var branches []ir.Expr
	hasElse := false
	for _, c := range n.Clauses {
		if c.Cond != nil {
			a.markCheckedAs(c.Cond)
		}
		if c.Cond == nil {
			branches = append(branches, a.GetExpr(sc, c.Body))
			hasElse = true
			continue
		}
		conds = append(conds, a.GetExpr(sc, c.Cond))
		branches = append(branches, a.GetExpr(sc, c.Body))
	}

	common, ok := a.commonType(branches)
	if !ok {
		a.bag.Errorf(diag.BranchesHaveNoCommonType, sc.src, n.Span(), "if/else branches have no common type")
		common = a.prog.IntType
	}
	for i, b := range branches {
		if conv, ok := a.implicitConvert(b, common); ok {
			branches[i] = conv
		}
	}
	if !hasElse {
		branches = append(branches, ir.NewCall(common, a.noOpFunc(common), nil, ir.CallNormal))
	}
	return ir.NewSwitch(common, conds, branches)
}

// commonType picks a type every expr can be implicitly converted to: the
// shared type if all already agree, else the first candidate (by
// appearance) that every other expression widens into.
func (a *Analyzer) commonType(exprs []ir.Expr) (ir.TypeId, bool) {
	if len(exprs) == 0 {
		return ir.NoType, false
	}
	for _, cand := range exprs {
		t := cand.Type()
		all := true
		for _, e := range exprs {
			if e.Type() == t {
				continue
			}
			if _, ok := a.implicitConvert(e, t); !ok {
				all = false
				break
			}
		}
		if all {
			return t, true
		}
	}
	return ir.NoType, false
}

// noOpFunc returns (declaring on first use) the per-type FuncNoOp used as
// the implicit else branch of a non-exhaustive conditional.
func (a *Analyzer) noOpFunc(t ir.TypeId) ir.FuncId {
	key := "__noop"
	if id, ok := a.opFuncs[key][t]; ok {
		return id
	}
	id := a.prog.FuncDecls.Declare(ir.FuncDecl{Name: "__noop", Kind: ir.FuncNoOp, Input: nil, Output: t})
	a.addOp(key, t, id)
	return id
}

func srcPos(tbl *source.Table, id source.ID, sp source.Span) (string, int, int) {
	if tbl == nil {
		return "", 0, 0
	}
	s := tbl.Get(id)
	if s == nil {
		return "", 0, 0
	}
	pos := s.Pos(sp.Start)
	return s.Name, pos.Line, pos.Column
}
