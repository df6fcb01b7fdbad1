package ir

// ExecStmt is a top-level bare-expression statement: its own constant
// scope (for any const-decls written directly at top level) plus the
// lowered expression.
type ExecStmt struct {
	Consts *ConstDeclTable
	Expr   Expr
}

// Primitive names, pre-registered into every Program with fixed,
// well-known TypeIds so the analyzer never has to special-case "is this
// the built-in int type" by name comparison after startup.
const (
	primInt       = "int"
	primLong      = "long"
	primFloat     = "float"
	primBool      = "bool"
	primChar      = "char"
	primString    = "string"
	primSysStream = "sys_stream"
)

// Program is the analyzer's (and later stages') single IR container: it
// exclusively owns every table; expressions are owned by whichever
// FuncDef or ExecStmt holds them.
type Program struct {
	TypeDecls TypeDeclTable
	TypeDefs  TypeDefTable
	FuncDecls FuncDeclTable
	FuncDefs  FuncDefTable
	Execs     []ExecStmt

	TypeTemplates *TypeTemplateTable
	FuncTemplates *FuncTemplateTable

	Delegates  *DelegateTable
	Futures    *FutureTable
	Lazies     *LazyTable
	Fails      *FailTable
	StaticInts *StaticIntTable

	// Monotonic counters, scoped to this Program: anonymous
	// function naming and inlined-constant naming during optimization.
	anonFuncCounter  int
	inlinedConstCtr  int

	IntType, LongType, FloatType, BoolType, CharType, StringType TypeId

	// SysStreamType is the opaque handle type platform-call intrinsics
	// exchange with the runtime; it has no payload and no constructor.
	SysStreamType TypeId
}

// NewProgram returns a Program with every primitive type pre-registered.
func NewProgram() *Program {
	p := &Program{}
	p.TypeTemplates = NewTypeTemplateTable()
	p.FuncTemplates = NewFuncTemplateTable()
	p.Delegates = newDelegateTable()
	p.Futures = newFutureTable()
	p.Lazies = newLazyTable()
	p.Fails = newFailTable()
	p.StaticInts = newStaticIntTable()

	p.IntType = p.TypeDecls.declarePrimitive(primInt, KindInt)
	p.LongType = p.TypeDecls.declarePrimitive(primLong, KindLong)
	p.FloatType = p.TypeDecls.declarePrimitive(primFloat, KindFloat)
	p.BoolType = p.TypeDecls.declarePrimitive(primBool, KindBool)
	p.CharType = p.TypeDecls.declarePrimitive(primChar, KindChar)
	p.StringType = p.TypeDecls.declarePrimitive(primString, KindString)
	p.SysStreamType = p.TypeDecls.declarePrimitive(primSysStream, KindStruct)
	return p
}

// NextAnonFuncIndex returns the next monotonic anonymous-function index
// (`__anon_<N>`).
func (p *Program) NextAnonFuncIndex() int {
	p.anonFuncCounter++
	return p.anonFuncCounter
}

// NextInlinedConstIndex returns the next monotonic inlined-constant
// index (`__inlined_<n>_...`), used by the call-inliner.
func (p *Program) NextInlinedConstIndex() int {
	p.inlinedConstCtr++
	return p.inlinedConstCtr
}

// TypeDeclTable owns every declared type's identity.
type TypeDeclTable struct {
	decls []TypeDecl
}

func (t *TypeDeclTable) declarePrimitive(name string, kind TypeKind) TypeId {
	return t.Declare(name, kind)
}

// Declare registers a new type and returns its freshly minted TypeId.
func (t *TypeDeclTable) Declare(name string, kind TypeKind) TypeId {
	id := TypeId(len(t.decls) + 1)
	t.decls = append(t.decls, TypeDecl{ID: id, Name: name, Kind: kind})
	return id
}

// ByName finds a declared type by its exact (possibly mangled) name.
func (t *TypeDeclTable) ByName(name string) (TypeId, bool) {
	for _, d := range t.decls {
		if d.Name == name {
			return d.ID, true
		}
	}
	return NoType, false
}

// Get returns the TypeDecl for id.
func (t *TypeDeclTable) Get(id TypeId) TypeDecl {
	return t.decls[id-1]
}

// All returns every declared type, in declaration order.
func (t *TypeDeclTable) All() []TypeDecl { return t.decls }

// TypeDefTable owns every declared type's payload, indexed by TypeId.
type TypeDefTable struct {
	defs map[TypeId]TypeDef
}

// Define records the payload for id, which must already have a
// TypeDecl.
func (t *TypeDefTable) Define(id TypeId, def TypeDef) {
	if t.defs == nil {
		t.defs = make(map[TypeId]TypeDef)
	}
	t.defs[id] = def
}

// Get returns the payload for id; ok is false until Define has run.
func (t *TypeDefTable) Get(id TypeId) (TypeDef, bool) {
	d, ok := t.defs[id]
	return d, ok
}

// FuncDeclTable owns every function's signature, overloadable by
// name+input TypeSet.
type FuncDeclTable struct {
	decls  []FuncDecl
	byName map[string][]FuncId
}

// Declare registers a new function signature and returns its FuncId.
func (t *FuncDeclTable) Declare(d FuncDecl) FuncId {
	if t.byName == nil {
		t.byName = make(map[string][]FuncId)
	}
	id := FuncId(len(t.decls) + 1)
	d.ID = id
	t.decls = append(t.decls, d)
	t.byName[d.Name] = append(t.byName[d.Name], id)
	return id
}

// ByName returns every overload declared under name, in declaration
// order.
func (t *FuncDeclTable) ByName(name string) []FuncId {
	return t.byName[name]
}

// Get returns the FuncDecl for id.
func (t *FuncDeclTable) Get(id FuncId) FuncDecl {
	return t.decls[id-1]
}

// SetOutput patches id's return type once it becomes known, used by
// pass 5's return-type inference fixed-point loop (a declaration is
// registered with Output == NoType up front so later passes can see its
// identity before its type is settled).
func (t *FuncDeclTable) SetOutput(id FuncId, output TypeId) {
	t.decls[id-1].Output = output
}

// All returns every declared function, in declaration order.
func (t *FuncDeclTable) All() []FuncDecl { return t.decls }

// FuncDefTable owns every function's body, indexed by FuncId.
type FuncDefTable struct {
	defs map[FuncId]*FuncDef
}

// Define records id's body.
func (t *FuncDefTable) Define(id FuncId, def *FuncDef) {
	if t.defs == nil {
		t.defs = make(map[FuncId]*FuncDef)
	}
	t.defs[id] = def
}

// Get returns id's body, or nil if undefined (declared but not yet
// defined — a transient analyzer state, never true of a finished
// Program).
func (t *FuncDefTable) Get(id FuncId) *FuncDef {
	return t.defs[id]
}

// Delete removes id's body, used by the optimizer's tree-shake pass.
func (t *FuncDefTable) Delete(id FuncId) {
	delete(t.defs, id)
}

// All returns every defined function id. Order is unspecified; callers
// needing determinism sort it themselves.
func (t *FuncDefTable) All() []FuncId {
	ids := make([]FuncId, 0, len(t.defs))
	for id := range t.defs {
		ids = append(ids, id)
	}
	return ids
}

// Stats is a cheap summary of a Program's table sizes, exposed for the
// external diagnostic tools (a disassembler or dependency lister) that
// want simple counts without walking every table themselves.
type Stats struct {
	Types     int
	Funcs     int
	FuncDefs  int
	ExecStmts int
}

// Stats summarizes p's current table sizes. Meaningful at any point
// after declare/define passes have run; a caller that wants post-codegen
// instruction counts combines this with the codegen.Module it produced.
func (p *Program) Stats() Stats {
	return Stats{
		Types:     len(p.TypeDecls.All()),
		Funcs:     len(p.FuncDecls.All()),
		FuncDefs:  len(p.FuncDefs.All()),
		ExecStmts: len(p.Execs),
	}
}
