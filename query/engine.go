// Package query implements the read-only graph operations exposed to
// callers: related-file discovery with confidence decay, symbol
// search, hot-path discovery, cycle detection, and an architecture
// overview composing the others. The in-memory component shape is
// grounded on processor/query/component.go's Component, generalized from
// an entity inverted-index to direct graphstore.Store traversal; locking
// is left to graphstore.Store.
package query

import (
	"context"
	"sort"
	"strings"

	"github.com/codegraphd/codegraphd/cluster"
	"github.com/codegraphd/codegraphd/graphstore"
)

// Engine answers read-only queries against a graphstore.Store. Engine
// itself holds no lock: graphstore.Store already serializes its own
// reads against concurrent writes, so Engine only needs to compose
// Store calls.
type Engine struct {
	store *graphstore.Store
}

// New returns an Engine reading from store.
func New(store *graphstore.Store) *Engine {
	return &Engine{store: store}
}

// Related is one file reachable from a FindRelated query: the edge type
// that reached it (or "reverse_"+type for a reverse traversal), the hop
// count, and the decayed confidence at that depth.
type Related struct {
	Path       string
	Rel        string
	Depth      int
	Confidence float64
}

const (
	decayPerHop  = 0.2
	minConfidence = 0.1
)

// FindRelated performs a breadth-first search from root out to maxDepth
// hops, excluding the root itself (depth 0), with confidence decaying
// by decayPerHop per hop and floored at minConfidence. When types is
// non-empty, only edges whose type appears in it are traversed. When
// includeReverse is true, incoming edges are traversed too, tagged
// "reverse_<type>" to distinguish them from outgoing "<type>" hits.
// Results are sorted by descending confidence, then by path for a
// deterministic tie-break. A root that is not in the store yields an
// empty result and no error.
func (e *Engine) FindRelated(ctx context.Context, root string, maxDepth int, types []string, includeReverse bool) ([]Related, error) {
	if _, err := e.store.Node(root); err != nil {
		return nil, nil // unknown root: empty result, not an error
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}
	allowed := func(t string) bool {
		return len(typeSet) == 0 || typeSet[t]
	}

	type frontierEntry struct {
		path string
		hops int
	}
	type hit struct {
		rel   string
		depth int
	}

	visited := map[string]bool{root: true}
	found := map[string]hit{}
	queue := []frontierEntry{{path: root, hops: 0}}

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		cur := queue[0]
		queue = queue[1:]
		if cur.hops >= maxDepth {
			continue
		}
		hops := cur.hops + 1

		for _, edge := range e.store.Neighbors(cur.path) {
			if !allowed(string(edge.Type)) || visited[edge.Target] {
				continue
			}
			visited[edge.Target] = true
			found[edge.Target] = hit{rel: string(edge.Type), depth: hops}
			queue = append(queue, frontierEntry{path: edge.Target, hops: hops})
		}

		if includeReverse {
			for _, edge := range e.store.Incoming(cur.path) {
				if !allowed(string(edge.Type)) || visited[edge.Source] {
					continue
				}
				visited[edge.Source] = true
				found[edge.Source] = hit{rel: "reverse_" + string(edge.Type), depth: hops}
				queue = append(queue, frontierEntry{path: edge.Source, hops: hops})
			}
		}
	}

	results := make([]Related, 0, len(found))
	for path, h := range found {
		results = append(results, Related{
			Path:       path,
			Rel:        h.rel,
			Depth:      h.depth,
			Confidence: confidenceAt(h.depth),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].Path < results[j].Path
	})
	return results, nil
}

func confidenceAt(hops int) float64 {
	c := 1.0 - decayPerHop*float64(hops)
	if c < minConfidence {
		c = minConfidence
	}
	return c
}

// FileMatch is one file matching a SearchSymbols query: its language,
// the fraction of the query's keywords it matched, and which keywords
// matched.
type FileMatch struct {
	Path            string
	Lang            string
	Relevance       float64
	MatchedKeywords []string
}

// SearchSymbols finds every file whose path or declared symbol names
// contain at least one of keywords (case-insensitive substring match),
// one result per file, with relevance the fraction of keywords matched.
// Results are sorted by descending relevance, then by path.
func (e *Engine) SearchSymbols(ctx context.Context, keywords []string) ([]FileMatch, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	needles := make([]string, len(keywords))
	for i, k := range keywords {
		needles[i] = strings.ToLower(k)
	}

	var matches []FileMatch
	for _, n := range e.store.Nodes() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		haystack := strings.ToLower(n.Path)
		for _, sym := range n.Symbols {
			haystack += " " + strings.ToLower(sym.Name)
		}

		var matched []string
		for i, needle := range needles {
			if strings.Contains(haystack, needle) {
				matched = append(matched, keywords[i])
			}
		}
		if len(matched) == 0 {
			continue
		}
		matches = append(matches, FileMatch{
			Path:            n.Path,
			Lang:            n.Language,
			Relevance:       float64(len(matched)) / float64(len(keywords)),
			MatchedKeywords: matched,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Relevance != matches[j].Relevance {
			return matches[i].Relevance > matches[j].Relevance
		}
		return matches[i].Path < matches[j].Path
	})
	return matches, nil
}

// HotPath is one long dependency chain rooted at a high-degree node.
type HotPath struct {
	Root string
	Path []string
}

// HotPaths finds nodes with total degree (in + out) of at least 3, then
// DFS-explores outward from each to depth 3, keeping the top `limit`
// paths by length with a lexicographic tie-break.
func (e *Engine) HotPaths(ctx context.Context, limit int) ([]HotPath, error) {
	const minDegree = 3
	const maxDepth = 3

	var hot []HotPath
	for _, n := range e.store.Nodes() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		degree := len(e.store.Neighbors(n.Path)) + len(e.store.Incoming(n.Path))
		if degree < minDegree {
			continue
		}
		for _, p := range e.dfsPaths(n.Path, maxDepth) {
			hot = append(hot, HotPath{Root: n.Path, Path: p})
		}
	}

	sort.Slice(hot, func(i, j int) bool {
		if len(hot[i].Path) != len(hot[j].Path) {
			return len(hot[i].Path) > len(hot[j].Path)
		}
		return strings.Join(hot[i].Path, "/") < strings.Join(hot[j].Path, "/")
	})
	if len(hot) > limit {
		hot = hot[:limit]
	}
	return hot, nil
}

func (e *Engine) dfsPaths(root string, maxDepth int) [][]string {
	var out [][]string
	var walk func(path []string, visited map[string]bool)
	walk = func(path []string, visited map[string]bool) {
		if len(path) > maxDepth {
			return
		}
		cur := path[len(path)-1]
		neighbors := e.store.Neighbors(cur)
		if len(neighbors) == 0 || len(path) == maxDepth {
			if len(path) >= 2 {
				out = append(out, append([]string{}, path...))
			}
			return
		}
		extended := false
		for _, edge := range neighbors {
			if visited[edge.Target] {
				continue
			}
			visited[edge.Target] = true
			walk(append(path, edge.Target), visited)
			delete(visited, edge.Target)
			extended = true
		}
		if !extended && len(path) >= 2 {
			out = append(out, append([]string{}, path...))
		}
	}
	walk([]string{root}, map[string]bool{root: true})
	return out
}

// Cycle is one dependency cycle, starting and ending at the same path.
type Cycle struct {
	Path []string
}

// DetectCycles runs DFS with an explicit recursion stack over every
// node, visiting neighbors in the graph's deterministic sorted order,
// and returns every distinct cycle found.
func (e *Engine) DetectCycles(ctx context.Context) ([]Cycle, error) {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string
	var cycles []Cycle
	seen := make(map[string]bool)

	var dfs func(node string) error
	dfs = func(node string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		visited[node] = true
		onStack[node] = true
		stack = append(stack, node)

		for _, edge := range e.store.Neighbors(node) {
			if onStack[edge.Target] {
				cyclePath := cycleFrom(stack, edge.Target)
				key := strings.Join(cyclePath, "->")
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, Cycle{Path: cyclePath})
				}
				continue
			}
			if !visited[edge.Target] {
				if err := dfs(edge.Target); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		onStack[node] = false
		return nil
	}

	for _, n := range e.store.Nodes() {
		if visited[n.Path] {
			continue
		}
		if err := dfs(n.Path); err != nil {
			return nil, err
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		return strings.Join(cycles[i].Path, ",") < strings.Join(cycles[j].Path, ",")
	})
	return cycles, nil
}

func cycleFrom(stack []string, target string) []string {
	for i, n := range stack {
		if n == target {
			cyc := append([]string{}, stack[i:]...)
			cyc = append(cyc, target)
			return cyc
		}
	}
	return []string{target}
}

// Overview is the composite architecture-overview result.
type Overview struct {
	NodeCount         int
	EdgeCount         int
	ModulesByLanguage map[string]int
	Clusters          []cluster.Community
	HotPaths          []HotPath
	Cycles            []Cycle
	Metrics           any
}

// ArchitectureOverview composes node/edge counts, the per-language
// module breakdown, the latest cluster summary (if sg is non-nil), hot
// paths, cycles, and the caller-supplied metrics blob into one
// response. metrics is opaque to Engine (typically a daemon.Metrics
// sample) so that this package never needs to import daemon.
func (e *Engine) ArchitectureOverview(ctx context.Context, sg *cluster.SuperGraph, hotPathLimit int, metrics any) (*Overview, error) {
	hot, err := e.HotPaths(ctx, hotPathLimit)
	if err != nil {
		return nil, err
	}
	cycles, err := e.DetectCycles(ctx)
	if err != nil {
		return nil, err
	}

	modules := make(map[string]int)
	for _, n := range e.store.Nodes() {
		modules[n.Language]++
	}

	ov := &Overview{
		NodeCount:         len(e.store.Nodes()),
		EdgeCount:         len(e.store.Edges()),
		ModulesByLanguage: modules,
		HotPaths:          hot,
		Cycles:            cycles,
		Metrics:           metrics,
	}
	if sg != nil {
		ov.Clusters = sg.Communities
	}
	return ov, nil
}
