package cfamily

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraphd/codegraphd/extract"
)

func TestExtract_QuotedAndAngleIncludes(t *testing.T) {
	src := []byte("#include \"local.h\"\n#include <vector>\n")
	rec, err := New().Extract("a.cpp", src)
	require.NoError(t, err)
	require.Len(t, rec.Edges, 2)
	assert.Equal(t, "local.h", rec.Edges[0].Target.Raw)
	assert.Equal(t, "vector", rec.Edges[1].Target.Raw)
	assert.Equal(t, extract.EdgeInclude, rec.Edges[0].Type)
}

func TestExtract_IgnoresNonIncludeLines(t *testing.T) {
	rec, err := New().Extract("a.c", []byte("int main() { return 0; }\n"))
	require.NoError(t, err)
	assert.Empty(t, rec.Edges)
}
