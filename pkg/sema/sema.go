// Package sema is the semantic analyzer: it walks the parse trees
// produced by the parser/importer and lowers them into a fully typed
// ir.Program, running a fixed sequence of numbered passes. Each pass is
// allowed to assume every earlier pass has already run to completion;
// the driver checks the diagnostic bag after passes 1, 4 and 7 and bails
// out at the first of those checks that finds an Error rather than
// soldiering on over a tree it knows is already broken.
package sema

import (
	"github.com/novalang/novac/pkg/ast"
	"github.com/novalang/novac/pkg/diag"
	"github.com/novalang/novac/pkg/ir"
	"github.com/novalang/novac/pkg/source"
)

// Analyzer holds every cross-pass table the nine passes share. Nothing
// here outlives one Analyze call.
type Analyzer struct {
	prog  *ir.Program
	bag   *diag.Bag
	files []*ast.File
	tbl   *source.Table // for source_loc_* resolution

	// User type names declared so far (primitives live in prog itself and
	// are looked up there instead).
	typeNames map[string]ir.TypeId

	structDecls map[ir.TypeId]*ast.StructDecl
	unionDecls  map[ir.TypeId]*ast.UnionDecl
	enumDecls   map[ir.TypeId]*ast.EnumDecl

	// User function declarations awaiting pass 5/6, by FuncId.
	funcDecls map[ir.FuncId]*ast.FuncDecl

	// Fixed intrinsic operator tables, populated once by registerIntrinsics.
	// opFuncs["+"][IntType] == the FuncId of __op_add over two ints, etc.
	opFuncs map[string]map[ir.TypeId]ir.FuncId
	// convFuncs[[from,to]] is the (possibly implicit) conversion FuncId.
	convFuncs map[[2]ir.TypeId]ir.FuncId

	// Per-signature memoization of the FuncDecls that intrinsic calls like
	// source_loc_line(), lazy_get(l) and platform_call(...) lower to, keyed
	// by a simple string so repeated calls don't redeclare a FuncDecl.
	intrinsicInstances map[string]ir.FuncId

	// widenOrder ranks the three numeric primitives for implicit-conversion
	// search: int -> long -> float.
	widenOrder []ir.TypeId

	// checkedAs marks the `as` nodes that appear as branch conditions
	// (directly, parenthesized, or under the short-circuit operators);
	// any other position would read the bound constant uninitialized.
	checkedAs map[*ast.As]bool

	// recursion-depth guard for pass 9's cyclic-opt-arg-initializer check.
	optArgDepth int
}

// Analyze runs every pass over files and returns the resulting Program.
// Even when analysis fails partway through, the partially built Program
// is returned so callers (tests, tooling) can inspect what was produced;
// diag.Bag.HasErrors is the authority on whether the result is usable.
func Analyze(files []*ast.File, tbl *source.Table, bag *diag.Bag) *ir.Program {
	prog := ir.NewProgram()
	a := &Analyzer{
		prog:               prog,
		bag:                bag,
		files:              files,
		tbl:                tbl,
		typeNames:          make(map[string]ir.TypeId),
		structDecls:        make(map[ir.TypeId]*ast.StructDecl),
		unionDecls:         make(map[ir.TypeId]*ast.UnionDecl),
		enumDecls:          make(map[ir.TypeId]*ast.EnumDecl),
		funcDecls:          make(map[ir.FuncId]*ast.FuncDecl),
		opFuncs:            make(map[string]map[ir.TypeId]ir.FuncId),
		convFuncs:          make(map[[2]ir.TypeId]ir.FuncId),
		intrinsicInstances: make(map[string]ir.FuncId),
		checkedAs:          make(map[*ast.As]bool),
	}
	a.widenOrder = []ir.TypeId{prog.IntType, prog.LongType, prog.FloatType}
	a.registerIntrinsics()

	a.passCollectParseDiagnostics() // 1
	if bag.HasErrors() {
		return prog
	}
	a.passDeclareTypes() // 2
	a.passDefineTypes()  // 3
	a.passDeclareFuncs() // 4
	if bag.HasErrors() {
		return prog
	}
	a.passInferReturnTypes() // 5
	a.passDefineFuncs()      // 6
	a.passDefineExecs()      // 7
	if bag.HasErrors() {
		return prog
	}
	a.passValidateTypes() // 8
	a.passPatchCalls()    // 9
	return prog
}

// passCollectParseDiagnostics (1) walks every file looking for
// ErrorStmt/ErrorExpr nodes the parser left behind and lifts them into
// the diagnostic bag, so a syntactically broken file never reaches the
// later passes.
func (a *Analyzer) passCollectParseDiagnostics() {
	for _, f := range a.files {
		for _, st := range f.Stmts {
			a.collectParseErrorsStmt(f.Source, st)
		}
	}
}

func (a *Analyzer) collectParseErrorsStmt(src source.ID, st ast.Stmt) {
	switch s := st.(type) {
	case *ast.ErrorStmt:
		a.bag.Errorf(diag.ParseError, src, s.Span(), "%s", s.Message)
	case *ast.ExecStmt:
		a.collectParseErrorsExpr(src, s.Expr)
	case *ast.FuncDecl:
		a.collectParseErrorsExpr(src, s.Body)
		for _, p := range s.Params {
			if p.Init != nil {
				a.collectParseErrorsExpr(src, p.Init)
			}
		}
	}
}

func (a *Analyzer) collectParseErrorsExpr(src source.ID, e ast.Expr) {
	if e == nil {
		return
	}
	if ee, ok := e.(*ast.ErrorExpr); ok {
		a.bag.Errorf(diag.ParseError, src, ee.Span(), "%s", ee.Message)
		return
	}
	switch n := e.(type) {
	case *ast.Binary:
		a.collectParseErrorsExpr(src, n.Left)
		a.collectParseErrorsExpr(src, n.Right)
	case *ast.Unary:
		a.collectParseErrorsExpr(src, n.Operand)
	case *ast.Paren:
		a.collectParseErrorsExpr(src, n.Inner)
	case *ast.Group:
		for _, el := range n.Elems {
			a.collectParseErrorsExpr(src, el)
		}
	case *ast.Call:
		a.collectParseErrorsExpr(src, n.Callee)
		for _, arg := range n.Args {
			a.collectParseErrorsExpr(src, arg.Expr)
		}
	case *ast.Index:
		a.collectParseErrorsExpr(src, n.Receiver)
		a.collectParseErrorsExpr(src, n.Idx)
	case *ast.Field:
		a.collectParseErrorsExpr(src, n.Receiver)
	case *ast.ConstDecl:
		a.collectParseErrorsExpr(src, n.Init)
	case *ast.Conditional:
		for _, c := range n.Clauses {
			a.collectParseErrorsExpr(src, c.Cond)
			a.collectParseErrorsExpr(src, c.Body)
		}
	case *ast.Is:
		a.collectParseErrorsExpr(src, n.Operand)
	case *ast.As:
		a.collectParseErrorsExpr(src, n.Operand)
	case *ast.Intrinsic:
		for _, arg := range n.Args {
			a.collectParseErrorsExpr(src, arg.Expr)
		}
	case *ast.AnonFunc:
		a.collectParseErrorsExpr(src, n.Body)
	}
}

// binFuncName and unaryFuncName map the fixed, non-overloadable operator
// spellings onto the stable intrinsic-family name used as the key of
// opFuncs; the operator set itself cannot be extended by user code.
var binFuncName = map[string]string{
	"+": "+", "-": "-", "*": "*", "/": "/", "%": "%",
	"&": "&", "|": "|", "^": "^", "<<": "<<", ">>": ">>",
	"==": "==", "!=": "!=", "<": "<", "<=": "<=", ">": ">", ">=": ">=",
	"&&": "&&", "||": "||",
}

var unaryFuncName = map[string]string{
	"-": "neg", "!": "not", "~": "bnot",
}

// numericRank orders the numeric primitives for implicit widening;
// non-numeric types are absent and never widen.
func (a *Analyzer) numericRank(t ir.TypeId) (int, bool) {
	for i, w := range a.widenOrder {
		if w == t {
			return i, true
		}
	}
	return 0, false
}
