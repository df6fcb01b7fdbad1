package ir

// FuncKind distinguishes user-written functions from the fixed family of
// built-in operations the backend knows how to lower directly.
type FuncKind int

const (
	FuncUser FuncKind = iota

	// Per-numeric-type arithmetic/bitwise/compare intrinsics. Each numeric
	// type (int, long, float) gets its own FuncId so overload resolution
	// never has to special-case primitives.
	FuncIntrinsicAddInt
	FuncIntrinsicSubInt
	FuncIntrinsicMulInt
	FuncIntrinsicDivInt
	FuncIntrinsicRemInt
	FuncIntrinsicAndInt
	FuncIntrinsicOrInt
	FuncIntrinsicXorInt
	FuncIntrinsicShlInt
	FuncIntrinsicShrInt
	FuncIntrinsicNegInt
	FuncIntrinsicNotInt
	FuncIntrinsicEqInt
	FuncIntrinsicNeInt
	FuncIntrinsicLtInt
	FuncIntrinsicLeInt
	FuncIntrinsicGtInt
	FuncIntrinsicGeInt

	FuncIntrinsicAddLong
	FuncIntrinsicSubLong
	FuncIntrinsicMulLong
	FuncIntrinsicDivLong
	FuncIntrinsicRemLong
	FuncIntrinsicNegLong
	FuncIntrinsicEqLong
	FuncIntrinsicLtLong

	FuncIntrinsicAddFloat
	FuncIntrinsicSubFloat
	FuncIntrinsicMulFloat
	FuncIntrinsicDivFloat
	FuncIntrinsicNegFloat
	FuncIntrinsicEqFloat
	FuncIntrinsicLtFloat

	FuncIntrinsicAndBool
	FuncIntrinsicOrBool
	FuncIntrinsicNotBool
	FuncIntrinsicEqBool

	FuncIntrinsicEqChar
	FuncIntrinsicConcatString
	FuncIntrinsicEqString
	FuncIntrinsicIndexString

	// Conversions: both implicit (widening) and explicit, plus the
	// reinterpret-style bit conversions folded at compile time when
	// given a literal operand.
	FuncIntrinsicConvIntToLong
	FuncIntrinsicConvIntToFloat
	FuncIntrinsicConvLongToFloat
	FuncIntrinsicConvIntToChar
	FuncIntrinsicConvCharToInt
	FuncIntrinsicConvIntToEnum
	FuncIntrinsicConvEnumToInt
	FuncIntrinsicReinterpretIntToFloat
	FuncIntrinsicReinterpretFloatToInt

	// reflect_* family.
	FuncIntrinsicReflectSizeOf
	FuncIntrinsicReflectIsStruct
	FuncIntrinsicReflectFieldCount
	FuncIntrinsicReflectTypeName

	// source_loc_* family: replaced with literals at pass 9 when found
	// inside an optional-argument initializer; otherwise resolved at the
	// definition site immediately.
	FuncIntrinsicSourceLocFile
	FuncIntrinsicSourceLocLine
	FuncIntrinsicSourceLocColumn

	FuncIntrinsicFail
	FuncIntrinsicLazyGet
	FuncIntrinsicStaticIntToInt
	FuncIntrinsicAtomicLoad
	FuncIntrinsicAtomicStore
	FuncIntrinsicAtomicCompareSwap
	FuncIntrinsicPlatformCall

	FuncMakeStruct
	// FuncMakeUnion is one per-member-type overload of a union's implicit
	// constructor (`U(1)`); Input is
	// always the single member type and Output the union's TypeId, so the
	// backend recovers which member is being constructed from the
	// argument's own static type rather than from any extra FuncDecl data.
	FuncMakeUnion
	FuncLazyGetSynth
	FuncNoOp
)

// FuncDecl is a function's signature and identity, independent of its
// body.
type FuncDecl struct {
	ID             FuncId
	Name           string
	Kind           FuncKind
	Input          TypeSet
	Output         TypeId // NoType when the return type is still "infer"
	OptInputCount  int    // number of trailing optional (defaulted) params
	IsImplicitConv bool   // true for single-arg conversion funcs marked implicit
	IsAction       bool
}

// ConstEntry is one declared constant: an input argument or a local.
type ConstEntry struct {
	ID   ConstId
	Name string
	Type TypeId
}

// ConstDeclTable holds a function body's (or exec statement's) constants,
// inputs first, in declaration order; ConstIds are dense and zero-free.
type ConstDeclTable struct {
	entries []ConstEntry
	byName  map[string]ConstId
}

// NewConstDeclTable returns an empty table.
func NewConstDeclTable() *ConstDeclTable {
	return &ConstDeclTable{byName: make(map[string]ConstId)}
}

// Declare appends a new constant, returning its freshly minted ConstId.
// Later declarations of the same name shadow earlier ones in Lookup.
func (t *ConstDeclTable) Declare(name string, typ TypeId) ConstId {
	id := ConstId(len(t.entries) + 1)
	t.entries = append(t.entries, ConstEntry{ID: id, Name: name, Type: typ})
	t.byName[name] = id
	return id
}

// Lookup resolves a name to its most recently declared ConstId.
func (t *ConstDeclTable) Lookup(name string) (ConstId, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// Entry returns the ConstEntry for id; callers pass only ids obtained
// from this same table.
func (t *ConstDeclTable) Entry(id ConstId) ConstEntry {
	return t.entries[id-1]
}

// Len reports how many constants are declared (inputs plus locals).
func (t *ConstDeclTable) Len() int { return len(t.entries) }

// All returns every entry in declaration order.
func (t *ConstDeclTable) All() []ConstEntry { return t.entries }

// FuncDef is a function's body: its constants and lowered expression,
// plus any optional-argument initializer expressions (indexed by
// trailing-parameter position, matching FuncDecl.OptInputCount).
type FuncDef struct {
	ID                FuncId
	Consts            *ConstDeclTable
	Body              Expr
	OptArgInitializers []Expr
}
