package sema

import (
	"github.com/novalang/novac/pkg/ast"
	"github.com/novalang/novac/pkg/diag"
	"github.com/novalang/novac/pkg/ir"
	"github.com/novalang/novac/pkg/source"
	"github.com/novalang/novac/pkg/token"
)

// passDeclareTypes (2) walks every struct/union/enum declaration and
// gives it an identity: a TypeId for non-templated declarations, or a
// TypeTemplate registration for templated ones (actual member/field
// resolution is pass 3's job — declaration and definition are split so
// mutually-referencing structs across files can both be declared before
// either is inspected).
func (a *Analyzer) passDeclareTypes() {
	for _, f := range a.files {
		for _, st := range f.Stmts {
			switch d := st.(type) {
			case *ast.StructDecl:
				a.declareStruct(f.Source, d)
			case *ast.UnionDecl:
				a.declareUnion(f.Source, d)
			case *ast.EnumDecl:
				a.declareEnum(f.Source, d)
			}
		}
	}
}

// checkTypeNameAvailable reports whether name can be used as a new
// declared-type (or type-template) name, emitting the appropriate
// diagnostic and returning false otherwise.
func (a *Analyzer) checkTypeNameAvailable(src source.ID, span source.Span, name string) bool {
	if token.IsReservedName(name) {
		a.bag.Errorf(diag.TypeNameIsReserved, src, span, "%q is a reserved name", name)
		return false
	}
	if _, ok := a.prog.TypeDecls.ByName(name); ok {
		a.bag.Errorf(diag.TypeAlreadyDeclared, src, span, "type %q already declared", name)
		return false
	}
	if _, ok := a.typeNames[name]; ok {
		a.bag.Errorf(diag.TypeAlreadyDeclared, src, span, "type %q already declared", name)
		return false
	}
	if _, ok := a.prog.TypeTemplates.Lookup(name); ok {
		a.bag.Errorf(diag.TypeTemplateAlreadyDeclared, src, span, "type template %q already declared", name)
		return false
	}
	return true
}

func (a *Analyzer) declareStruct(src source.ID, d *ast.StructDecl) {
	if !a.checkTypeNameAvailable(src, d.Span(), d.Name) {
		return
	}
	if len(d.TypeParams) > 0 {
		tpl := ir.NewTypeTemplate(d.Name, d.TypeParams)
		tpl.StructDecl = d
		a.prog.TypeTemplates.Declare(tpl)
		return
	}
	id := a.prog.TypeDecls.Declare(d.Name, ir.KindStruct)
	a.typeNames[d.Name] = id
	a.structDecls[id] = d
}

func (a *Analyzer) declareUnion(src source.ID, d *ast.UnionDecl) {
	if !a.checkTypeNameAvailable(src, d.Span(), d.Name) {
		return
	}
	if len(d.TypeParams) > 0 {
		tpl := ir.NewTypeTemplate(d.Name, d.TypeParams)
		tpl.UnionDecl = d
		a.prog.TypeTemplates.Declare(tpl)
		return
	}
	id := a.prog.TypeDecls.Declare(d.Name, ir.KindUnion)
	a.typeNames[d.Name] = id
	a.unionDecls[id] = d
}

func (a *Analyzer) declareEnum(src source.ID, d *ast.EnumDecl) {
	if !a.checkTypeNameAvailable(src, d.Span(), d.Name) {
		return
	}
	id := a.prog.TypeDecls.Declare(d.Name, ir.KindEnum)
	a.typeNames[d.Name] = id
	a.enumDecls[id] = d
}

// passDeclareFuncs (4) declares every user function's signature: its
// input/output TypeSet identity, so pass 5 (return-type inference) and
// call-site overload resolution later on can see every signature up
// front, across files, before any body is lowered. Optional arguments
// must be contiguous and trailing; a required parameter following an
// optional one is rejected here rather than silently accepted and
// mis-lowered later.
func (a *Analyzer) passDeclareFuncs() {
	for _, f := range a.files {
		for _, st := range f.Stmts {
			fd, ok := st.(*ast.FuncDecl)
			if !ok {
				continue
			}
			if len(fd.TypeParams) > 0 {
				if fd.IsImplicit {
					a.bag.Errorf(diag.TemplatedImplicitConversion, f.Source, fd.Span(), "implicit conversion %q cannot be templated", fd.Name)
					continue
				}
				tpl := ir.NewFuncTemplate(fd.Name, fd.TypeParams, fd)
				a.prog.FuncTemplates.Declare(tpl)
				continue
			}
			a.declareFunc(f.Source, fd)
		}
	}
}

func (a *Analyzer) declareFunc(src source.ID, fd *ast.FuncDecl) ir.FuncId {
	input := make(ir.TypeSet, 0, len(fd.Params))
	optCount := 0
	sawOpt := false
	for _, p := range fd.Params {
		pt, ok := a.resolveTypeRef(src, p.Type)
		if !ok {
			pt = a.prog.IntType // keep going with a placeholder so later passes don't panic
		}
		input = append(input, pt)
		if p.Init != nil {
			sawOpt = true
			optCount++
		} else if sawOpt {
			a.bag.Errorf(diag.NonOptArgFollowingOpt, src, fd.Span(), "required parameter %q follows an optional parameter in %q", p.Name, fd.Name)
		}
	}

	output := ir.NoType
	if fd.RetType != nil {
		output, _ = a.resolveTypeRef(src, fd.RetType)
	}

	if fd.IsImplicit {
		a.checkImplicitConv(src, fd, input, output)
	} else if _, isType := a.prog.TypeDecls.ByName(fd.Name); isType {
		a.bag.Errorf(diag.DuplicateFuncDeclaration, src, fd.Span(), "function %q conflicts with a declared type name", fd.Name)
	}
	for _, prev := range a.prog.FuncDecls.ByName(fd.Name) {
		if a.prog.FuncDecls.Get(prev).Input.Equal(input) {
			a.bag.Errorf(diag.DuplicateFuncDeclaration, src, fd.Span(), "function %q with this signature is already declared", fd.Name)
			break
		}
	}

	id := a.prog.FuncDecls.Declare(ir.FuncDecl{
		Name:           fd.Name,
		Kind:           ir.FuncUser,
		Input:          input,
		Output:         output,
		OptInputCount:  optCount,
		IsImplicitConv: fd.IsImplicit,
		IsAction:       fd.IsAction,
	})
	a.funcDecls[id] = fd
	if fd.IsImplicit && len(input) == 1 && output != ir.NoType {
		if _, exists := a.convFuncs[[2]ir.TypeId{input[0], output}]; !exists {
			a.convFuncs[[2]ir.TypeId{input[0], output}] = id
		}
	}
	return id
}

// checkImplicitConv enforces the implicit-conversion shape: a pure,
// single-argument function whose name equals its
// declared return type's name. Violations are diagnosed individually so a
// declaration with several problems reports all of them.
func (a *Analyzer) checkImplicitConv(src source.ID, fd *ast.FuncDecl, input ir.TypeSet, output ir.TypeId) {
	if fd.IsAction {
		a.bag.Errorf(diag.NonPureConversion, src, fd.Span(), "implicit conversion %q must be a pure function, not an action", fd.Name)
	}
	if len(input) != 1 {
		a.bag.Errorf(diag.TooManyInputsInImplicitConv, src, fd.Span(), "implicit conversion %q must take exactly one argument", fd.Name)
	}
	tid, isType := a.prog.TypeDecls.ByName(fd.Name)
	if !isType {
		a.bag.Errorf(diag.ImplicitNonConv, src, fd.Span(), "%q is marked implicit but does not name a type", fd.Name)
		return
	}
	if output == ir.NoType {
		a.bag.Errorf(diag.IncorrectReturnTypeInConv, src, fd.Span(), "implicit conversion %q must declare its return type explicitly", fd.Name)
	} else if output != tid {
		a.bag.Errorf(diag.IncorrectReturnTypeInConv, src, fd.Span(), "implicit conversion %q must return the type it names", fd.Name)
	}
}
