package cluster

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraphd/codegraphd/extract"
	"github.com/codegraphd/codegraphd/graphstore"
)

func TestDetect_SmallProjectShortcut(t *testing.T) {
	s := graphstore.New()
	for i := 0; i < 5; i++ {
		s.ApplyDelta(graphstore.Delta{Path: fmt.Sprintf("f%d.py", i), Language: "python"})
	}

	res, err := Detect(s, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, res.SuperGraph.Communities, 5)
	for _, c := range res.SuperGraph.Communities {
		assert.Len(t, c.Members, 1)
	}
}

func TestDetect_LargeProjectBoundedClusters(t *testing.T) {
	s := graphstore.New()
	for i := 0; i < 500; i++ {
		edges := []extract.Edge{
			{Target: extract.Target{Raw: fmt.Sprintf("f%d", (i+1)%500)}, Type: extract.EdgeImport},
		}
		s.ApplyDelta(graphstore.Delta{Path: fmt.Sprintf("f%d.py", i), Language: "python", Edges: edges})
	}

	opts := DefaultOptions()
	res, err := Detect(s, opts)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(res.SuperGraph.Communities), opts.MaxClusters)
	assert.Equal(t, 500, res.NodeCount)
}

func TestOptions_ValidateClampsResolution(t *testing.T) {
	o := Options{Resolution: 5.0}
	o.Validate()
	assert.Equal(t, 1.2, o.Resolution)

	o2 := Options{Resolution: 0.1}
	o2.Validate()
	assert.Equal(t, 1.0, o2.Resolution)
}

func TestShouldRegenerate(t *testing.T) {
	assert.False(t, ShouldRegenerate(100, 103))
	assert.True(t, ShouldRegenerate(100, 106))
	assert.True(t, ShouldRegenerate(0, 1))
}

func TestDirectoryPrefixFallback(t *testing.T) {
	nodes := []*graphstore.Node{
		{Path: "pkg/a.go"},
		{Path: "pkg/b.go"},
		{Path: "main.go"},
	}
	assignment := DirectoryPrefixFallback(nodes)
	assert.Equal(t, "pkg", assignment["pkg/a.go"])
	assert.Equal(t, "pkg", assignment["pkg/b.go"])
	assert.Equal(t, "root", assignment["main.go"])
}

func TestSummarize_KeyFilesPrefersShortAndMain(t *testing.T) {
	paths := []string{"a/very/deeply/nested/module/util_test.py", "main.py"}
	files := keyFiles(paths, 3)
	require.NotEmpty(t, files)
	assert.Equal(t, "main.py", files[0])
}
