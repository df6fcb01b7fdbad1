// Package ir defines the typed intermediate representation the semantic
// analyzer produces and the optimizer and backend consume:
// types, functions, the expression tree, and the tables that own them.
package ir

import "github.com/novalang/novac/pkg/source"

// TypeId, FuncId, ConstId and FieldId are opaque, nonzero, per-Program
// handles. Zero is reserved as "none" so a missing reference reads as a
// recognizable zero value rather than a dangling pointer.
type TypeId int
type FuncId int
type ConstId int
type FieldId int

const (
	NoType  TypeId  = 0
	NoFunc  FuncId  = 0
	NoConst ConstId = 0
	NoField FieldId = 0
)

// TypeKind tags the payload variant a TypeDef carries.
type TypeKind int

const (
	KindInt TypeKind = iota
	KindLong
	KindFloat
	KindBool
	KindChar
	KindString
	KindStruct
	KindUnion
	KindEnum
	KindDelegate
	KindFuture
	KindLazy
	KindStaticInt
)

func (k TypeKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindLong:
		return "long"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	case KindEnum:
		return "enum"
	case KindDelegate:
		return "delegate"
	case KindFuture:
		return "future"
	case KindLazy:
		return "lazy"
	case KindStaticInt:
		return "staticint"
	}
	return "?"
}

// TypeDecl is a declared type's identity: its kind and mangled name.
// Instantiated templates get a mangled name `base__param1_param2_...`.
type TypeDecl struct {
	ID   TypeId
	Name string
	Kind TypeKind
}

// FieldDecl is one entry of a struct's field table; insertion order is
// preserved in StructDef.Fields.
type FieldDecl struct {
	ID   FieldId
	Name string
	Type TypeId
}

// StructDef is the payload of a KindStruct TypeDef.
type StructDef struct {
	Fields []FieldDecl
}

// FieldByName looks up a field by name; ok is false on miss.
func (s *StructDef) FieldByName(name string) (FieldDecl, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDecl{}, false
}

// UnionDef is the payload of a KindUnion TypeDef: an ordered set of
// distinct member types.
type UnionDef struct {
	Members []TypeId
}

// Has reports whether t is a member of the union.
func (u *UnionDef) Has(t TypeId) bool {
	for _, m := range u.Members {
		if m == t {
			return true
		}
	}
	return false
}

// EnumEntry is one {name, value} pair of an enum; both are unique within
// the enum.
type EnumEntry struct {
	Name  string
	Value int32
}

// EnumDef is the payload of a KindEnum TypeDef.
type EnumDef struct {
	Entries []EnumEntry
}

// DelegateDef is the payload of a KindDelegate TypeDef: a function/action
// type value (input signature, output type, purity).
type DelegateDef struct {
	Input    TypeSet
	Output   TypeId
	IsAction bool
}

// FutureDef is the payload of a KindFuture TypeDef: `fork`'s result type.
type FutureDef struct {
	Result TypeId
}

// LazyDef is the payload of a KindLazy TypeDef: `lazy`'s result type.
type LazyDef struct {
	Result   TypeId
	IsAction bool
}

// StaticIntDef is the payload of a KindStaticInt TypeDef — a compile-time
// integer value encoded as a type, used for template value parameters
// like `intrinsic{staticint_to_int}{#4}()`.
type StaticIntDef struct {
	Value int64
}

// TypeDef is the per-kind payload for a declared type. Exactly one of the
// pointer fields is non-nil, selected by Kind; primitive kinds (Int,
// Long, Float, Bool, Char, String) carry no payload at all.
type TypeDef struct {
	Kind      TypeKind
	Struct    *StructDef
	Union     *UnionDef
	Enum      *EnumDef
	Delegate  *DelegateDef
	Future    *FutureDef
	Lazy      *LazyDef
	StaticInt *StaticIntDef
}

// TypeSet is an ordered multiset of TypeIds, used as a function's input
// signature. Order matters (it mirrors argument position); duplicates
// are allowed (two int parameters).
type TypeSet []TypeId

// Equal reports whether two TypeSets have the same length and elements
// in the same order.
func (a TypeSet) Equal(b TypeSet) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Node is the common interface every IR entity with a source anchor
// implements, mirroring the parse tree's Span accessor but over a
// set-once SourceId.
type Node interface {
	SourceID() source.ID
}
