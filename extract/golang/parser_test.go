package golang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraphd/codegraphd/extract"
)

func TestExtract_Imports(t *testing.T) {
	src := []byte(`package example

import (
	"fmt"
	mathrand "math/rand"
)

func Greet() {
	fmt.Println("hi")
}
`)
	rec, err := New().Extract("example.go", src)
	require.NoError(t, err)

	var imports []string
	for _, e := range rec.Edges {
		if e.Type == extract.EdgeImport {
			imports = append(imports, e.Target.Raw)
		}
	}
	assert.Contains(t, imports, "fmt")
	assert.Contains(t, imports, "math/rand")
}

func TestExtract_CallsResolveImportAlias(t *testing.T) {
	src := []byte(`package example

import mathrand "math/rand"

func Roll() int {
	return mathrand.Intn(6)
}
`)
	rec, err := New().Extract("example.go", src)
	require.NoError(t, err)

	found := false
	for _, e := range rec.Edges {
		if e.Type == extract.EdgeCall && e.Target.Raw == "math/rand.Intn" {
			found = true
		}
	}
	assert.True(t, found, "expected call edge resolved through import alias, got %+v", rec.Edges)
}

func TestExtract_StructEmbeddingIsInheritance(t *testing.T) {
	src := []byte(`package example

type Base struct{}

type Derived struct {
	Base
	Name string
}
`)
	rec, err := New().Extract("example.go", src)
	require.NoError(t, err)

	found := false
	for _, e := range rec.Edges {
		if e.Type == extract.EdgeInheritance && e.Target.Raw == "Base" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestExtract_MalformedSourceWarnsInsteadOfErroring(t *testing.T) {
	rec, err := New().Extract("broken.go", []byte("this is not valid go {{{"))
	require.NoError(t, err)
	require.Len(t, rec.Warnings, 1)
	assert.Equal(t, extract.ExtractFailed, rec.Warnings[0].Kind)
}

func TestExtract_Symbols(t *testing.T) {
	src := []byte(`package example

const MaxRetries = 3

type Widget struct{}

func NewWidget() *Widget { return &Widget{} }
`)
	rec, err := New().Extract("example.go", src)
	require.NoError(t, err)

	names := map[string]extract.SymbolKind{}
	for _, s := range rec.Symbols {
		names[s.Name] = s.Kind
	}
	assert.Equal(t, extract.SymbolConst, names["MaxRetries"])
	assert.Equal(t, extract.SymbolType, names["Widget"])
	assert.Equal(t, extract.SymbolFunction, names["NewWidget"])
}
