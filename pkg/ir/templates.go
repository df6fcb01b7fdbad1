package ir

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/novalang/novac/pkg/ast"
)

// TypeSubstitutionTable maps a template's type-parameter names to the
// concrete TypeIds bound for one instantiation; consulted while
// analyzing the template body.
type TypeSubstitutionTable struct {
	bindings map[string]TypeId
}

// NewTypeSubstitutionTable returns an empty substitution table.
func NewTypeSubstitutionTable() *TypeSubstitutionTable {
	return &TypeSubstitutionTable{bindings: make(map[string]TypeId)}
}

// Bind records name -> t for the duration of one instantiation.
func (s *TypeSubstitutionTable) Bind(name string, t TypeId) { s.bindings[name] = t }

// Lookup resolves a substitution-table name.
func (s *TypeSubstitutionTable) Lookup(name string) (TypeId, bool) {
	t, ok := s.bindings[name]
	return t, ok
}

// instKey turns a template name and its type-parameter tuple into a cache
// key, `base_<id1>_<id2>...`, over the parameters' numeric TypeIds. It is
// not the instantiated type's mangled Name (`base__p1_p2_...`, built from
// the parameter types' names).
func instKey(base string, params []TypeId) string {
	var b strings.Builder
	b.WriteString(base)
	for _, p := range params {
		b.WriteByte('_')
		b.WriteString(strconv.Itoa(int(p)))
	}
	return b.String()
}

// TypeInstance is a memoized template instantiation outcome.
type TypeInstance struct {
	TypeParams []TypeId
	ResolvedID TypeId
	Success    bool
}

// TypeTemplate is a templated struct/union declaration, not yet
// instantiated, together with a cache of instances keyed by
// type-parameter tuple (backed by an LRU so pathological numbers of
// distinct instantiations in one compilation can't grow the table
// unboundedly).
type TypeTemplate struct {
	Name       string
	TypeParams []string
	StructDecl *ast.StructDecl
	UnionDecl  *ast.UnionDecl

	cache *lru.Cache // instKey -> TypeInstance
}

// NewTypeTemplate returns a template record with its own instantiation
// cache; the caller sets its StructDecl or UnionDecl.
func NewTypeTemplate(name string, typeParams []string) *TypeTemplate {
	c, _ := lru.New(256)
	return &TypeTemplate{Name: name, TypeParams: typeParams, cache: c}
}

// Instance returns the memoized instantiation for params, if any.
func (t *TypeTemplate) Instance(params []TypeId) (TypeInstance, bool) {
	v, ok := t.cache.Get(instKey(t.Name, params))
	if !ok {
		return TypeInstance{}, false
	}
	return v.(TypeInstance), true
}

// Memoize records the instantiation outcome for params.
func (t *TypeTemplate) Memoize(params []TypeId, inst TypeInstance) {
	t.cache.Add(instKey(t.Name, params), inst)
}

// FuncInstance is a memoized template-function instantiation outcome.
type FuncInstance struct {
	TypeParams []TypeId
	ResolvedID FuncId
	Success    bool
}

// FuncTemplate is a templated function declaration awaiting
// instantiation, with its own instance cache.
type FuncTemplate struct {
	Name       string
	TypeParams []string
	Decl       *ast.FuncDecl

	cache *lru.Cache // instKey -> FuncInstance
}

// NewFuncTemplate wraps decl as a template record.
func NewFuncTemplate(name string, typeParams []string, decl *ast.FuncDecl) *FuncTemplate {
	c, _ := lru.New(256)
	return &FuncTemplate{Name: name, TypeParams: typeParams, Decl: decl, cache: c}
}

// Instance returns the memoized instantiation for params, if any.
func (t *FuncTemplate) Instance(params []TypeId) (FuncInstance, bool) {
	v, ok := t.cache.Get(instKey(t.Name, params))
	if !ok {
		return FuncInstance{}, false
	}
	return v.(FuncInstance), true
}

// Memoize records the instantiation outcome for params.
func (t *FuncTemplate) Memoize(params []TypeId, inst FuncInstance) {
	t.cache.Add(instKey(t.Name, params), inst)
}

// TypeTemplateTable and FuncTemplateTable are name -> template registries,
// populated during analyzer pass 2/4 and consulted whenever a `name{T...}`
// reference is encountered at a use site.
type TypeTemplateTable struct {
	byName map[string]*TypeTemplate
}

func NewTypeTemplateTable() *TypeTemplateTable {
	return &TypeTemplateTable{byName: make(map[string]*TypeTemplate)}
}

func (t *TypeTemplateTable) Declare(tpl *TypeTemplate) { t.byName[tpl.Name] = tpl }

func (t *TypeTemplateTable) Lookup(name string) (*TypeTemplate, bool) {
	tpl, ok := t.byName[name]
	return tpl, ok
}

type FuncTemplateTable struct {
	byName map[string][]*FuncTemplate // overloadable: multiple templates can share a name
}

func NewFuncTemplateTable() *FuncTemplateTable {
	return &FuncTemplateTable{byName: make(map[string][]*FuncTemplate)}
}

func (t *FuncTemplateTable) Declare(tpl *FuncTemplate) {
	t.byName[tpl.Name] = append(t.byName[tpl.Name], tpl)
}

func (t *FuncTemplateTable) Lookup(name string) []*FuncTemplate {
	return t.byName[name]
}
