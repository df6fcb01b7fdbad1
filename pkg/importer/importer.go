// Package importer follows import statements across parsed sources,
// building the multi-source set for the analyzer in discovery order.
// It never touches the filesystem itself: a Loader callback supplied by
// the embedder performs the actual byte read, keeping the core
// deterministic and easy to test.
package importer

import (
	"path/filepath"

	"github.com/novalang/novac/pkg/ast"
	"github.com/novalang/novac/pkg/diag"
	"github.com/novalang/novac/pkg/parser"
	"github.com/novalang/novac/pkg/source"
)

// Loader reads the bytes of a source file. name is the filename resolved
// against a directory (main source dir, then each search path in order).
// A Loader should return ok=false when the file does not exist there, so
// the resolver can try the next candidate directory.
type Loader func(dir, name string) (data []byte, ok bool, err error)

// Result is the output of a successful resolution: the main file plus
// every transitively imported auxiliary source, each already parsed, in
// load order (dependency-first is not guaranteed; order is discovery
// order).
type Result struct {
	Files      []*ast.File
	Sources    []*source.Source
	MainSource *source.Source
}

// Resolver walks import graphs, deduplicating by filename so cycles are
// broken naturally.
type Resolver struct {
	load        Loader
	searchPaths []string
	tbl         *source.Table
	loaded      map[string]*source.Source // filename -> source, for dedup
	bag         *diag.Bag
}

// NewResolver constructs a Resolver against tbl, trying searchPaths (in
// order) after each importing source's own directory.
func NewResolver(tbl *source.Table, load Loader, searchPaths []string, bag *diag.Bag) *Resolver {
	return &Resolver{
		load:        load,
		searchPaths: searchPaths,
		tbl:         tbl,
		loaded:      make(map[string]*source.Source),
		bag:         bag,
	}
}

// Resolve parses mainPath (already-read as mainText) and follows every
// import it (and its transitive imports) contains.
func (r *Resolver) Resolve(mainName, mainPath string, mainText []byte) *Result {
	mainSrc := r.tbl.Add(mainName, mainPath, mainText)
	r.loaded[filepath.Base(mainName)] = mainSrc
	mainFile := parser.Parse(mainSrc)

	res := &Result{MainSource: mainSrc}
	res.Files = append(res.Files, mainFile)
	res.Sources = append(res.Sources, mainSrc)

	r.walk(mainFile, filepath.Dir(mainPath), res)
	return res
}

func (r *Resolver) walk(f *ast.File, fromDir string, res *Result) {
	for _, stmt := range f.Stmts {
		imp, ok := stmt.(*ast.ImportDecl)
		if !ok {
			continue
		}
		key := filepath.Base(imp.Path)
		if _, seen := r.loaded[key]; seen {
			continue
		}
		data, dir, found := r.find(fromDir, imp.Path)
		if !found {
			// Anchor the diagnostic at the file that contains the import
			// statement, not the pipeline's entry file.
			r.bag.Errorf(diag.UnresolvedImport, f.Source, imp.PathSpan, "unresolved import %q", imp.Path)
			continue
		}
		src := r.tbl.Add(imp.Path, filepath.Join(dir, imp.Path), data)
		r.loaded[key] = src
		childFile := parser.Parse(src)
		res.Files = append(res.Files, childFile)
		res.Sources = append(res.Sources, src)
		r.walk(childFile, filepath.Dir(filepath.Join(dir, imp.Path)), res)
	}
}

func (r *Resolver) find(fromDir, name string) (data []byte, dir string, ok bool) {
	if data, found, err := r.load(fromDir, name); err == nil && found {
		return data, fromDir, true
	}
	for _, sp := range r.searchPaths {
		if data, found, err := r.load(sp, name); err == nil && found {
			return data, sp, true
		}
	}
	return nil, "", false
}
