package sema

import (
	"strconv"
	"strings"

	"github.com/novalang/novac/pkg/ast"
	"github.com/novalang/novac/pkg/diag"
	"github.com/novalang/novac/pkg/ir"
	"github.com/novalang/novac/pkg/source"
)

// resolveTypeRef resolves a syntactic type reference against primitives,
// already-declared user types, delegate spellings (`function{A, R}` /
// `action{A, R}`), and (for `name{Args}` spellings) template
// instantiation. A `#4`-shaped name denotes a static-int value parameter
// rather than a type lookup. src is the owning file's source id, used
// only to anchor diagnostics.
func (a *Analyzer) resolveTypeRef(src source.ID, tr *ast.TypeRef) (ir.TypeId, bool) {
	return a.resolveTypeRefOrSubst(src, tr, nil)
}

// resolveTypeRefOrSubst resolves tr, first checking a template body's own
// substitution table (so `T` inside a template definition binds to the
// instantiation's concrete type rather than being looked up as a normal
// declared type name). The substitution threads through nested type
// arguments too, so `box{T}` or `function{T, int}` inside a template body
// resolves against the live bindings.
func (a *Analyzer) resolveTypeRefOrSubst(src source.ID, tr *ast.TypeRef, subst *ir.TypeSubstitutionTable) (ir.TypeId, bool) {
	if tr == nil {
		return ir.NoType, false
	}
	if subst != nil && len(tr.Args) == 0 {
		if id, ok := subst.Lookup(tr.Name); ok {
			return id, true
		}
	}
	if strings.HasPrefix(tr.Name, "#") {
		n, err := strconv.ParseInt(tr.Name[1:], 10, 64)
		if err != nil {
			a.bag.Errorf(diag.UndeclaredType, src, tr.Span(), "invalid static int literal %q", tr.Name)
			return ir.NoType, false
		}
		return a.prog.StaticInts.GetOrCreate(a.prog, n), true
	}

	if len(tr.Args) == 0 {
		if id, ok := a.prog.TypeDecls.ByName(tr.Name); ok {
			return id, true
		}
		if id, ok := a.typeNames[tr.Name]; ok {
			return id, true
		}
		a.bag.Errorf(diag.UndeclaredType, src, tr.Span(), "undeclared type %q", tr.Name)
		return ir.NoType, false
	}

	// Delegate spellings: `function{A1, .., An, R}` is an n-ary pure
	// delegate returning R; `action{...}` is the impure form. These are
	// synthesized through the delegate dedup table rather than declared.
	if tr.Name == "function" || tr.Name == "action" {
		return a.resolveDelegateRef(src, tr, subst)
	}

	// Template instantiation: resolve every argument first.
	params := make([]ir.TypeId, 0, len(tr.Args))
	ok := true
	for _, argRef := range tr.Args {
		id, got := a.resolveTypeRefOrSubst(src, argRef, subst)
		if !got {
			ok = false
			continue
		}
		params = append(params, id)
	}
	if !ok {
		return ir.NoType, false
	}
	tpl, found := a.prog.TypeTemplates.Lookup(tr.Name)
	if !found {
		a.bag.Errorf(diag.NoTypeOrConversionToInstantiate, src, tr.Span(), "no type template named %q", tr.Name)
		return ir.NoType, false
	}
	return a.instantiateTypeTemplate(src, tr.Span(), tpl, params)
}

func (a *Analyzer) resolveDelegateRef(src source.ID, tr *ast.TypeRef, subst *ir.TypeSubstitutionTable) (ir.TypeId, bool) {
	args := make([]ir.TypeId, 0, len(tr.Args))
	for _, argRef := range tr.Args {
		id, got := a.resolveTypeRefOrSubst(src, argRef, subst)
		if !got {
			return ir.NoType, false
		}
		args = append(args, id)
	}
	if len(args) == 0 {
		a.bag.Errorf(diag.InvalidTypeInstantiation, src, tr.Span(), "%q requires at least a return type argument", tr.Name)
		return ir.NoType, false
	}
	input := ir.TypeSet(args[:len(args)-1])
	output := args[len(args)-1]
	return a.prog.Delegates.GetOrCreate(a.prog, input, output, tr.Name == "action"), true
}

// instantiateTypeTemplate resolves (or, on first use, builds) the
// concrete type produced by binding tpl's type parameters to params.
// Mirrors pass 2/3's non-template path but scoped to one instantiation;
// memoized on the template itself so repeated uses of `box{int}` share a
// single TypeId.
func (a *Analyzer) instantiateTypeTemplate(src source.ID, span source.Span, tpl *ir.TypeTemplate, params []ir.TypeId) (ir.TypeId, bool) {
	if inst, ok := tpl.Instance(params); ok {
		if !inst.Success {
			return ir.NoType, false
		}
		return inst.ResolvedID, true
	}
	if len(params) != len(tpl.TypeParams) {
		a.bag.Errorf(diag.InvalidTypeInstantiation, src, span, "template %q expects %d type arguments, got %d", tpl.Name, len(tpl.TypeParams), len(params))
		tpl.Memoize(params, ir.TypeInstance{TypeParams: params, Success: false})
		return ir.NoType, false
	}

	mangled := a.mangleName(tpl.Name, params)
	var kind ir.TypeKind
	if tpl.UnionDecl != nil {
		kind = ir.KindUnion
	} else {
		kind = ir.KindStruct
	}
	id := a.prog.TypeDecls.Declare(mangled, kind)
	a.typeNames[mangled] = id
	tpl.Memoize(params, ir.TypeInstance{TypeParams: params, ResolvedID: id, Success: true})

	subst := ir.NewTypeSubstitutionTable()
	for i, name := range tpl.TypeParams {
		subst.Bind(name, params[i])
	}

	switch {
	case tpl.StructDecl != nil:
		a.structDecls[id] = tpl.StructDecl
		a.defineStructWithSubst(src, id, tpl.StructDecl, subst)
	case tpl.UnionDecl != nil:
		a.unionDecls[id] = tpl.UnionDecl
		a.defineUnionWithSubst(src, id, tpl.UnionDecl, subst)
	}
	return id, true
}

// mangleName forms an instantiation's stable name, `base__p1_p2_...`,
// from the declared names of its type parameters.
func (a *Analyzer) mangleName(base string, params []ir.TypeId) string {
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("__")
	for i, p := range params {
		if i > 0 {
			b.WriteByte('_')
		}
		b.WriteString(a.prog.TypeDecls.Get(p).Name)
	}
	return b.String()
}
