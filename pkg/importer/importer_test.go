package importer

import (
	"github.com/novalang/novac/pkg/ast"
	"path/filepath"
	"testing"

	"github.com/novalang/novac/pkg/diag"
	"github.com/novalang/novac/pkg/source"
	"github.com/stretchr/testify/require"
)

func fakeLoader(files map[string][]byte) Loader {
	return func(dir, name string) ([]byte, bool, error) {
		data, ok := files[filepath.Join(dir, name)]
		if !ok {
			data, ok = files[name]
		}
		return data, ok, nil
	}
}

func TestResolveSingleFileNoImports(t *testing.T) {
	tbl := source.NewTable()
	bag := &diag.Bag{}
	r := NewResolver(tbl, fakeLoader(nil), nil, bag)
	res := r.Resolve("main.nv", "main.nv", []byte("fun f() 1"))
	require.Len(t, res.Files, 1)
	require.Len(t, res.Sources, 1)
	require.Equal(t, 0, bag.Len())
}

func TestResolveFollowsImportsAndDedups(t *testing.T) {
	files := map[string][]byte{
		"a.nv": []byte(`import "b.nv"` + "\n" + `fun fa() 1`),
		"b.nv": []byte(`import "a.nv"` + "\n" + `fun fb() 2`), // cycle back to a.nv
	}
	tbl := source.NewTable()
	bag := &diag.Bag{}
	r := NewResolver(tbl, fakeLoader(files), nil, bag)
	res := r.Resolve("a.nv", "a.nv", files["a.nv"])
	require.Len(t, res.Files, 2)
	require.Equal(t, 0, bag.Len())
}

func TestResolveUnresolvedImportDiagnostic(t *testing.T) {
	tbl := source.NewTable()
	bag := &diag.Bag{}
	r := NewResolver(tbl, fakeLoader(nil), nil, bag)
	res := r.Resolve("main.nv", "main.nv", []byte(`import "missing.nv"`))
	require.Len(t, res.Files, 1)
	require.Equal(t, 1, bag.Len())
	require.Equal(t, diag.UnresolvedImport, bag.Items()[0].Kind)
}

// TestResolveUnresolvedImportInNestedFile pins the diagnostic's anchor:
// an import that fails inside a transitively loaded file must carry that
// file's own source ID, so its span renders against the right text.
func TestResolveUnresolvedImportInNestedFile(t *testing.T) {
	files := map[string][]byte{
		"a.nv": []byte(`import "b.nv"` + "\n" + `fun fa() 1`),
		"b.nv": []byte(`import "missing.nv"` + "\n" + `fun fb() 2`),
	}
	tbl := source.NewTable()
	bag := &diag.Bag{}
	r := NewResolver(tbl, fakeLoader(files), nil, bag)
	res := r.Resolve("a.nv", "a.nv", files["a.nv"])
	require.Len(t, res.Sources, 2)
	require.Equal(t, 1, bag.Len())
	d := bag.Items()[0]
	require.Equal(t, diag.UnresolvedImport, d.Kind)
	require.Equal(t, res.Sources[1].ID, d.Source)
	require.NotEqual(t, res.MainSource.ID, d.Source)
}

func TestResolveSearchPathFallback(t *testing.T) {
	files := map[string][]byte{
		filepath.Join("libs", "b.nv"): []byte("fun fb() 2"),
	}
	tbl := source.NewTable()
	bag := &diag.Bag{}
	r := NewResolver(tbl, fakeLoader(files), []string{"libs"}, bag)
	res := r.Resolve("main.nv", "main.nv", []byte(`import "b.nv"`))
	require.Len(t, res.Files, 2)
	require.Equal(t, 0, bag.Len())
	_, ok := res.Files[1].Stmts[0].(*ast.FuncDecl)
	require.True(t, ok)
}
