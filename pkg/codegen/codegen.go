package codegen

import (
	"sort"

	"github.com/novalang/novac/pkg/ir"
	"github.com/novalang/novac/pkg/opcode"
)

// Options configures one Generate run.
type Options struct {
	// Deterministic orders synthesized anonymous functions lexicographically
	// by name instead of by declaration order, for golden-diff tests.
	Deterministic bool
}

// Module is the backend's output: everything the bytecode package needs
// to serialize an Executable, still expressed as Go values rather than
// the final byte layout.
type Module struct {
	EntrypointOffset uint32
	Strings          []string
	Instructions     []byte
}

// Generate lowers prog to a Module, emitting every reachable function's
// body followed by a synthesized entry sequence that runs each exec
// statement in source order.
func Generate(prog *ir.Program, opts Options) *Module {
	g := &generator{prog: prog, asm: newAssembler(), funcLabel: make(map[ir.FuncId]label)}

	ids := prog.FuncDefs.All()
	if opts.Deterministic {
		sort.Slice(ids, func(i, j int) bool {
			return prog.FuncDecls.Get(ids[i]).Name < prog.FuncDecls.Get(ids[j]).Name
		})
	} else {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	for _, id := range ids {
		g.funcLabel[id] = g.asm.newLabel()
	}
	for _, id := range ids {
		g.emitFunc(id)
	}

	entryLabel := g.asm.newLabel()
	g.asm.setLabel(entryLabel)
	g.emitEntry()

	instrs, strs := g.asm.finish()
	return &Module{EntrypointOffset: uint32(g.asm.labelPos[entryLabel]), Strings: strs, Instructions: instrs}
}

// generator holds the per-Program state threaded through expression
// lowering: the assembler, each function's resolved label, and (while
// lowering one function body) that function's own id, for CallSelf.
type generator struct {
	prog      *ir.Program
	asm       *assembler
	funcLabel map[ir.FuncId]label
	curFunc   ir.FuncId
	tails     map[ir.Expr]bool
}

func (g *generator) emitFunc(id ir.FuncId) {
	def := g.prog.FuncDefs.Get(id)
	g.asm.setLabel(g.funcLabel[id])
	g.curFunc = id
	g.tails = make(map[ir.Expr]bool)
	g.markTails(def.Body)
	g.asm.emitOp(opcode.AllocLocals)
	g.asm.emitU16(uint16(def.Consts.Len()))
	g.emitExpr(def.Body)
	g.asm.emitOp(opcode.Ret)
}

// markTails records every Call occupying the structural tail position of
// a function body — the body itself, a Group's last element, or any
// Switch branch in a tail position — so emitCall can use CallTail for
// it.
func (g *generator) markTails(e ir.Expr) {
	switch n := e.(type) {
	case *ir.Call:
		g.tails[n] = true
	case *ir.Group:
		g.markTails(n.Elems[len(n.Elems)-1])
	case *ir.Switch:
		for _, b := range n.Branches {
			g.markTails(b)
		}
	}
}

// emitEntry runs every top-level exec statement in order, discarding
// each one's result, then returns.
func (g *generator) emitEntry() {
	g.curFunc = ir.NoFunc
	g.tails = nil
	for _, es := range g.prog.Execs {
		g.asm.emitOp(opcode.AllocLocals)
		g.asm.emitU16(uint16(es.Consts.Len()))
		g.emitExpr(es.Expr)
		g.asm.emitOp(opcode.Pop)
	}
	g.asm.emitOp(opcode.Ret)
}
