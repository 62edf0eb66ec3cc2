package javascript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraphd/codegraphd/extract"
)

func TestExtract_ESImport(t *testing.T) {
	rec, err := New().Extract("a.ts", []byte(`import { foo } from "./foo";`))
	require.NoError(t, err)
	require.Len(t, rec.Edges, 1)
	assert.Equal(t, "./foo", rec.Edges[0].Target.Raw)
	assert.Equal(t, extract.EdgeImport, rec.Edges[0].Type)
}

func TestExtract_Require(t *testing.T) {
	rec, err := New().Extract("a.js", []byte(`const foo = require('./foo');`))
	require.NoError(t, err)
	require.Len(t, rec.Edges, 1)
	assert.Equal(t, extract.EdgeRequire, rec.Edges[0].Type)
	assert.Equal(t, "./foo", rec.Edges[0].Target.Raw)
}

func TestExtract_DynamicImport(t *testing.T) {
	rec, err := New().Extract("a.js", []byte(`const mod = await import('./lazy');`))
	require.NoError(t, err)
	require.Len(t, rec.Edges, 1)
	assert.Equal(t, "./lazy", rec.Edges[0].Target.Raw)
}

func TestExtract_FunctionAndClassSymbols(t *testing.T) {
	src := []byte("export function handle(req) {}\nclass Server {}\nconst util = () => {};\n")
	rec, err := New().Extract("a.js", src)
	require.NoError(t, err)

	names := map[string]extract.SymbolKind{}
	for _, s := range rec.Symbols {
		names[s.Name] = s.Kind
	}
	assert.Equal(t, extract.SymbolFunction, names["handle"])
	assert.Equal(t, extract.SymbolClass, names["Server"])
	assert.Equal(t, extract.SymbolFunction, names["util"])
}
