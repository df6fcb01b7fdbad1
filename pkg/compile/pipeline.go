// Package compile wires the lexer, parser, import resolver, semantic
// analyzer, optimizer, backend, and serializer into the single
// end-to-end entry point an embedder calls: source text in, a versioned
// Executable (or diagnostics) out.
package compile

import (
	"errors"

	"github.com/novalang/novac/pkg/bytecode"
	"github.com/novalang/novac/pkg/codegen"
	"github.com/novalang/novac/pkg/diag"
	"github.com/novalang/novac/pkg/importer"
	"github.com/novalang/novac/pkg/ir"
	"github.com/novalang/novac/pkg/optimizer"
	"github.com/novalang/novac/pkg/sema"
	"github.com/novalang/novac/pkg/source"
	"go.uber.org/zap"
)

// CompilerVersion is embedded into every Executable this package
// produces, letting a runtime detect a toolchain/runtime version skew.
const CompilerVersion = "novac-0.1.0"

// Options configures one Pipeline. Logger defaults to zap.NewNop() when
// nil, matching the rest of the toolchain's "logging is optional,
// correctness never depends on it" convention.
type Options struct {
	Logger *zap.Logger

	// SearchPaths are tried, in order, after an importing file's own
	// directory, when resolving an import statement.
	SearchPaths []string

	// Deterministic orders the backend's synthesized anonymous functions
	// lexicographically, for golden-diff tests.
	Deterministic bool

	// MaxOptimizerRounds bounds the optimizer's fixed-point loop; <=0
	// falls back to its own default (5).
	MaxOptimizerRounds int
}

// Pipeline runs the full compilation from source text to a serialized
// Executable.
type Pipeline struct {
	opts Options
	log  *zap.Logger
}

// New constructs a Pipeline, normalizing a nil Logger to a no-op one.
func New(opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{opts: opts, log: log}
}

// ErrHasDiagnosticErrors is returned by Compile when the bag contains at
// least one Severity-Error diagnostic; the diagnostics themselves are
// always returned alongside it so the caller can render them.
var ErrHasDiagnosticErrors = errors.New("compile: program has errors")

// Result is everything one Compile call produces.
type Result struct {
	Program     *ir.Program
	Module      *codegen.Module
	Executable  *bytecode.Executable
	Bytes       []byte
	Diagnostics []diag.Diagnostic
	Sources     *source.Table
	Stats       Stats
}

// Stats is Program.Stats() plus the post-codegen instruction/string
// counts, for a peripheral diagnostic tool to report without walking the
// Program or Module itself.
type Stats struct {
	ir.Stats
	InstructionBytes int
	LitStrings       int
}

// Load reads the bytes of one importable source file; a Pipeline never
// touches the filesystem directly, mirroring importer.Loader.
type Load func(dir, name string) (data []byte, ok bool, err error)

// Compile runs every stage in order, short-circuiting to return
// diagnostics the moment any stage reports an error.
func (p *Pipeline) Compile(mainName, mainPath string, mainText []byte, load Load) (*Result, error) {
	p.log.Debug("compile: starting", zap.String("main", mainName))

	tbl := source.NewTable()
	bag := &diag.Bag{}

	res := importer.NewResolver(tbl, importer.Loader(load), p.opts.SearchPaths, bag).
		Resolve(mainName, mainPath, mainText)
	p.log.Debug("compile: import resolution done", zap.Int("files", len(res.Files)))
	if bag.HasErrors() {
		return p.fail(bag, tbl)
	}

	prog := sema.Analyze(res.Files, tbl, bag)
	p.logDiagnostics(bag)
	if bag.HasErrors() {
		return p.fail(bag, tbl)
	}
	p.log.Debug("compile: semantic analysis done",
		zap.Int("types", len(prog.TypeDecls.All())),
		zap.Int("funcs", len(prog.FuncDecls.All())))

	rounds := optimizer.Optimize(prog, optimizer.Options{MaxRounds: p.opts.MaxOptimizerRounds})
	p.log.Debug("compile: optimizer converged", zap.Int("rounds", rounds))

	mod := codegen.Generate(prog, codegen.Options{Deterministic: p.opts.Deterministic})
	p.log.Debug("compile: codegen done",
		zap.Int("instructionBytes", len(mod.Instructions)),
		zap.Int("strings", len(mod.Strings)))

	exe := &bytecode.Executable{
		CompilerVersion:  CompilerVersion,
		EntrypointOffset: mod.EntrypointOffset,
		Strings:          mod.Strings,
		Instructions:     mod.Instructions,
	}
	out := bytecode.Encode(exe)

	return &Result{
		Program:     prog,
		Module:      mod,
		Executable:  exe,
		Bytes:       out,
		Diagnostics: bag.Items(),
		Sources:     tbl,
		Stats: Stats{
			Stats:            prog.Stats(),
			InstructionBytes: len(mod.Instructions),
			LitStrings:       len(mod.Strings),
		},
	}, nil
}

func (p *Pipeline) fail(bag *diag.Bag, tbl *source.Table) (*Result, error) {
	p.logDiagnostics(bag)
	return &Result{Diagnostics: bag.Items(), Sources: tbl}, ErrHasDiagnosticErrors
}

// logDiagnostics emits one zap.Warn per Warning-severity diagnostic;
// errors are left to the caller, which renders the full bag against the
// source table (diag.Render) rather than duplicating that text in logs.
func (p *Pipeline) logDiagnostics(bag *diag.Bag) {
	for _, d := range bag.Items() {
		if d.Severity == diag.Warning {
			p.log.Warn("compile: warning", zap.String("code", d.Kind.Code()), zap.String("message", d.Message))
		}
	}
}
