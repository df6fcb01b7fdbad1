package ir

import "fmt"

// DelegateTable, FutureTable, LazyTable, FailTable and StaticIntTable are
// deduplicating caches: given a signature (or, for StaticIntTable, an
// int64 value), return an existing synthetic TypeId/FuncId or create
// one. They mutate only during analysis; a finished Program's tables
// already contain everything they ever produced, since every entry here
// is also registered into the owning Program's tables at creation time
// (TypeDeclTable/TypeDefTable for the type tables, FuncDeclTable for
// FailTable), never lazily promoted afterward.

// DelegateTable deduplicates synthesized delegate (function/action)
// types by structural signature.
type DelegateTable struct {
	byHash map[uint64][]TypeId // collision chain, confirmed by exact match
}

func newDelegateTable() *DelegateTable {
	return &DelegateTable{byHash: make(map[uint64][]TypeId)}
}

// GetOrCreate returns the TypeId for the delegate type
// `(input) -> output` (action-ness included in the signature),
// registering a new synthetic type on first use.
func (d *DelegateTable) GetOrCreate(prog *Program, input TypeSet, output TypeId, isAction bool) TypeId {
	h := hashDelegateSig(input, output, isAction)
	for _, id := range d.byHash[h] {
		def, _ := prog.TypeDefs.Get(id)
		if def.Delegate.Output == output && def.Delegate.IsAction == isAction && def.Delegate.Input.Equal(input) {
			return id
		}
	}
	name := mangleDelegateName(prog, input, output, isAction)
	id := prog.TypeDecls.Declare(name, KindDelegate)
	prog.TypeDefs.Define(id, TypeDef{Kind: KindDelegate, Delegate: &DelegateDef{Input: input, Output: output, IsAction: isAction}})
	d.byHash[h] = append(d.byHash[h], id)
	return id
}

func mangleDelegateName(prog *Program, input TypeSet, output TypeId, isAction bool) string {
	kind := "function"
	if isAction {
		kind = "action"
	}
	name := fmt.Sprintf("__delegate_%s_%d", kind, output)
	for _, t := range input {
		name += fmt.Sprintf("_%d", t)
	}
	return name
}

// FutureTable deduplicates `fork`'s result type, `future{T}`, by result
// type T.
type FutureTable struct {
	byResult map[TypeId]TypeId
}

func newFutureTable() *FutureTable {
	return &FutureTable{byResult: make(map[TypeId]TypeId)}
}

// GetOrCreate returns the TypeId for `future{result}`.
func (f *FutureTable) GetOrCreate(prog *Program, result TypeId) TypeId {
	if id, ok := f.byResult[result]; ok {
		return id
	}
	name := fmt.Sprintf("future__%d", result)
	id := prog.TypeDecls.Declare(name, KindFuture)
	prog.TypeDefs.Define(id, TypeDef{Kind: KindFuture, Future: &FutureDef{Result: result}})
	f.byResult[result] = id
	return id
}

// LazyTable deduplicates `lazy`'s result type, `lazy{T}`, by (result,
// isAction).
type LazyTable struct {
	byKey map[[2]int64]TypeId
}

func newLazyTable() *LazyTable {
	return &LazyTable{byKey: make(map[[2]int64]TypeId)}
}

// GetOrCreate returns the TypeId for `lazy{result}`.
func (l *LazyTable) GetOrCreate(prog *Program, result TypeId, isAction bool) TypeId {
	action := int64(0)
	if isAction {
		action = 1
	}
	key := [2]int64{int64(result), action}
	if id, ok := l.byKey[key]; ok {
		return id
	}
	name := fmt.Sprintf("lazy__%d_%d", result, action)
	id := prog.TypeDecls.Declare(name, KindLazy)
	prog.TypeDefs.Define(id, TypeDef{Kind: KindLazy, Lazy: &LazyDef{Result: result, IsAction: isAction}})
	l.byKey[key] = id
	return id
}

// FailTable interns one `fail{T}()` function per result type T: a
// built-in that always traps (emits a Fail opcode) regardless of
// argument count, used as the lowering target of `intrinsic{fail}{T}()`.
type FailTable struct {
	byType map[TypeId]FuncId
}

func newFailTable() *FailTable {
	return &FailTable{byType: make(map[TypeId]FuncId)}
}

// GetOrCreate returns the FuncId of the per-type fail function for t.
func (ft *FailTable) GetOrCreate(prog *Program, t TypeId) FuncId {
	if id, ok := ft.byType[t]; ok {
		return id
	}
	id := prog.FuncDecls.Declare(FuncDecl{
		Name:   fmt.Sprintf("__fail_%d", t),
		Kind:   FuncIntrinsicFail,
		Input:  nil,
		Output: t,
	})
	ft.byType[t] = id
	return id
}

// StaticIntTable deduplicates compile-time integers encoded as types
// (used for template value-parameters like `#4`).
type StaticIntTable struct {
	byValue map[int64]TypeId
}

func newStaticIntTable() *StaticIntTable {
	return &StaticIntTable{byValue: make(map[int64]TypeId)}
}

// GetOrCreate returns the TypeId for the StaticInt type carrying v.
func (s *StaticIntTable) GetOrCreate(prog *Program, v int64) TypeId {
	if id, ok := s.byValue[v]; ok {
		return id
	}
	name := fmt.Sprintf("staticint__%d", v)
	id := prog.TypeDecls.Declare(name, KindStaticInt)
	prog.TypeDefs.Define(id, TypeDef{Kind: KindStaticInt, StaticInt: &StaticIntDef{Value: v}})
	s.byValue[v] = id
	return id
}
