package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraphd/codegraphd/extract"
	"github.com/codegraphd/codegraphd/graphstore"
)

func chain(s *graphstore.Store, from, to string) {
	s.ApplyDelta(graphstore.Delta{Path: to, Language: "python"})
	s.ApplyDelta(graphstore.Delta{Path: from, Language: "python", Edges: []extract.Edge{
		{Target: extract.Target{Raw: to}, Type: extract.EdgeImport},
	}})
}

func TestFindRelated_DecaysConfidenceByHop(t *testing.T) {
	s := graphstore.New()
	s.ApplyDelta(graphstore.Delta{Path: "c.py", Language: "python"})
	s.ApplyDelta(graphstore.Delta{Path: "b.py", Language: "python", Edges: []extract.Edge{
		{Target: extract.Target{Raw: "c.py"}, Type: extract.EdgeImport},
	}})
	s.ApplyDelta(graphstore.Delta{Path: "a.py", Language: "python", Edges: []extract.Edge{
		{Target: extract.Target{Raw: "b.py"}, Type: extract.EdgeImport},
	}})

	e := New(s)
	related, err := e.FindRelated(context.Background(), "a.py", 5, nil, false)
	require.NoError(t, err)
	require.Len(t, related, 2)
	assert.Equal(t, "b.py", related[0].Path)
	assert.Equal(t, "import", related[0].Rel)
	assert.Equal(t, 1, related[0].Depth)
	assert.InDelta(t, 0.8, related[0].Confidence, 1e-9)
	assert.Equal(t, "c.py", related[1].Path)
	assert.Equal(t, 2, related[1].Depth)
	assert.InDelta(t, 0.6, related[1].Confidence, 1e-9)
}

func TestFindRelated_UnknownRootReturnsEmpty(t *testing.T) {
	s := graphstore.New()
	e := New(s)
	related, err := e.FindRelated(context.Background(), "missing.py", 3, nil, false)
	require.NoError(t, err)
	assert.Empty(t, related)
}

func TestFindRelated_IncludeReverseTagsReverseEdges(t *testing.T) {
	s := graphstore.New()
	chain(s, "a.js", "b.js")

	e := New(s)
	related, err := e.FindRelated(context.Background(), "b.js", 1, nil, true)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "a.js", related[0].Path)
	assert.Equal(t, "reverse_import", related[0].Rel)
	assert.Equal(t, 1, related[0].Depth)
}

func TestFindRelated_TypesFilterExcludesOtherEdgeTypes(t *testing.T) {
	s := graphstore.New()
	s.ApplyDelta(graphstore.Delta{Path: "callee.py", Language: "python"})
	s.ApplyDelta(graphstore.Delta{Path: "caller.py", Language: "python", Edges: []extract.Edge{
		{Target: extract.Target{Raw: "callee.py"}, Type: extract.EdgeCall},
	}})

	e := New(s)
	related, err := e.FindRelated(context.Background(), "caller.py", 1, []string{"import"}, false)
	require.NoError(t, err)
	assert.Empty(t, related)
}

func TestFindRelated_ConfidenceFloor(t *testing.T) {
	s := graphstore.New()
	path := "n0.py"
	s.ApplyDelta(graphstore.Delta{Path: path, Language: "python"})
	for i := 1; i <= 10; i++ {
		next := "n" + string(rune('0'+i)) + ".py"
		s.ApplyDelta(graphstore.Delta{Path: next, Language: "python"})
		s.ApplyDelta(graphstore.Delta{Path: path, Language: "python", Edges: []extract.Edge{
			{Target: extract.Target{Raw: next}, Type: extract.EdgeImport},
		}})
		path = next
	}

	e := New(s)
	related, err := e.FindRelated(context.Background(), "n0.py", 10, nil, false)
	require.NoError(t, err)
	for _, r := range related {
		assert.GreaterOrEqual(t, r.Confidence, minConfidence)
	}
}

func TestSearchSymbols_CaseInsensitiveSubstringAcrossPathAndSymbols(t *testing.T) {
	s := graphstore.New()
	s.ApplyDelta(graphstore.Delta{Path: "a.py", Language: "python", Symbols: []extract.Symbol{
		{Name: "HandleRequest", Kind: extract.SymbolFunction, Line: 3},
	}})
	s.ApplyDelta(graphstore.Delta{Path: "handlers/other.py", Language: "python"})
	s.ApplyDelta(graphstore.Delta{Path: "unrelated.py", Language: "python"})

	e := New(s)
	matches, err := e.SearchSymbols(context.Background(), []string{"handle"})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a.py", matches[0].Path)
	assert.Equal(t, "python", matches[0].Lang)
	assert.InDelta(t, 1.0, matches[0].Relevance, 1e-9)
	assert.Equal(t, []string{"handle"}, matches[0].MatchedKeywords)
	assert.Equal(t, "handlers/other.py", matches[1].Path)
}

func TestSearchSymbols_RelevanceIsFractionOfKeywordsMatched(t *testing.T) {
	s := graphstore.New()
	s.ApplyDelta(graphstore.Delta{Path: "a.py", Language: "python", Symbols: []extract.Symbol{
		{Name: "HandleRequest", Kind: extract.SymbolFunction, Line: 3},
	}})

	e := New(s)
	matches, err := e.SearchSymbols(context.Background(), []string{"handle", "nonexistent"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 0.5, matches[0].Relevance, 1e-9)
	assert.Equal(t, []string{"handle"}, matches[0].MatchedKeywords)
}

func TestDetectCycles_FindsThreeFileCycle(t *testing.T) {
	s := graphstore.New()
	s.ApplyDelta(graphstore.Delta{Path: "a.py", Language: "python", Edges: []extract.Edge{
		{Target: extract.Target{Raw: "b.py"}, Type: extract.EdgeImport},
	}})
	s.ApplyDelta(graphstore.Delta{Path: "b.py", Language: "python", Edges: []extract.Edge{
		{Target: extract.Target{Raw: "c.py"}, Type: extract.EdgeImport},
	}})
	s.ApplyDelta(graphstore.Delta{Path: "c.py", Language: "python", Edges: []extract.Edge{
		{Target: extract.Target{Raw: "a.py"}, Type: extract.EdgeImport},
	}})

	e := New(s)
	cycles, err := e.DetectCycles(context.Background())
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Contains(t, cycles[0].Path, "a.py")
	assert.Contains(t, cycles[0].Path, "b.py")
	assert.Contains(t, cycles[0].Path, "c.py")
}

func TestDetectCycles_NoCycleInDAG(t *testing.T) {
	s := graphstore.New()
	chain(s, "a.py", "b.py")
	e := New(s)
	cycles, err := e.DetectCycles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cycles)
}

func TestHotPaths_RequiresMinimumDegree(t *testing.T) {
	s := graphstore.New()
	chain(s, "a.py", "b.py")
	e := New(s)
	hot, err := e.HotPaths(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, hot) // degree 1 on both ends, below threshold of 3
}

func TestHotPaths_ExcludesSingleNodePaths(t *testing.T) {
	s := graphstore.New()
	// root has no outgoing edges but three incoming ones, clearing the
	// minimum-degree threshold with nothing to DFS outward into.
	s.ApplyDelta(graphstore.Delta{Path: "root.py", Language: "python"})
	for _, caller := range []string{"x.py", "y.py", "z.py"} {
		s.ApplyDelta(graphstore.Delta{Path: caller, Language: "python", Edges: []extract.Edge{
			{Target: extract.Target{Raw: "root.py"}, Type: extract.EdgeImport},
		}})
	}

	e := New(s)
	hot, err := e.HotPaths(context.Background(), 10)
	require.NoError(t, err)
	for _, hp := range hot {
		assert.GreaterOrEqual(t, len(hp.Path), 2)
	}
}

func TestArchitectureOverview_ComposesCounts(t *testing.T) {
	s := graphstore.New()
	chain(s, "a.py", "b.py")
	e := New(s)
	ov, err := e.ArchitectureOverview(context.Background(), nil, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, ov.NodeCount)
	assert.Equal(t, 1, ov.EdgeCount)
}

func TestArchitectureOverview_ModulesByLanguageReflectsDistribution(t *testing.T) {
	s := graphstore.New()
	s.ApplyDelta(graphstore.Delta{Path: "a.py", Language: "python"})
	s.ApplyDelta(graphstore.Delta{Path: "b.py", Language: "python"})
	s.ApplyDelta(graphstore.Delta{Path: "c.js", Language: "javascript"})

	e := New(s)
	ov, err := e.ArchitectureOverview(context.Background(), nil, 5, "some-metrics-blob")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"python": 2, "javascript": 1}, ov.ModulesByLanguage)
	assert.Equal(t, "some-metrics-blob", ov.Metrics)
}
