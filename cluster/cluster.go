// Package cluster groups a dependency graph's files into communities:
// a small-project shortcut for tiny repositories, and an internal-edge-
// density community-detection pass (Louvain-like, not Louvain-exact)
// for everything larger. The shape of Options/Community/Result is
// enrichment borrowed from a Leiden-based community detector elsewhere
// in the retrieval pack; the scoring rule itself is this package's own.
package cluster

import (
	"fmt"
	"math"
	"path"
	"sort"
	"strings"

	"github.com/codegraphd/codegraphd/graphstore"
)

// Options configures a Detect call. The zero value is invalid; call
// Validate (or go through Detect, which validates internally) before
// relying on field values.
type Options struct {
	// SmallProjectThreshold: repositories with fewer files than this get
	// one cluster per file instead of community detection.
	SmallProjectThreshold int
	// MinClusterSize is the smallest a non-misc cluster may be before
	// its members are folded into misc.
	MinClusterSize int
	// MaxClusters bounds the absolute number of clusters regardless of
	// the target computed from node count.
	MaxClusters int
	// Resolution scales the modularity-style score; valid range is
	// [1.0, 1.2].
	Resolution float64
	// MaxIterations bounds the community-detection refinement loop.
	MaxIterations int
}

// DefaultOptions returns the configuration documented in SPEC_FULL.md's
// configuration table.
func DefaultOptions() Options {
	return Options{
		SmallProjectThreshold: 20,
		MinClusterSize:        2,
		MaxClusters:           50,
		Resolution:            1.0,
		MaxIterations:         10,
	}
}

// Validate clamps out-of-range fields to the nearest valid value rather
// than rejecting them, matching the teacher's defaulting-not-rejecting
// Config.Validate() style.
func (o *Options) Validate() {
	if o.SmallProjectThreshold <= 0 {
		o.SmallProjectThreshold = 20
	}
	if o.MinClusterSize <= 0 {
		o.MinClusterSize = 2
	}
	if o.MaxClusters <= 0 {
		o.MaxClusters = 50
	}
	if o.Resolution < 1.0 {
		o.Resolution = 1.0
	}
	if o.Resolution > 1.2 {
		o.Resolution = 1.2
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = 10
	}
}

// Community is one detected cluster.
type Community struct {
	ID          string
	Members     []string
	Languages   []string
	KeyFiles    []string
	Description string
	// EstimatedSize is members * 50, a placeholder-size heuristic used
	// by callers that want a rough "lines of code" figure without
	// reading every file.
	EstimatedSize int
}

// SuperEdge is a compressed cross-cluster edge: the aggregate weight of
// every real edge running between two clusters.
type SuperEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Weight int    `json:"weight"`
}

// SuperGraph is the cluster-level view of the dependency graph.
type SuperGraph struct {
	Communities []Community `json:"communities"`
	SuperEdges  []SuperEdge `json:"super_edges"`
}

// Result is the outcome of a Detect call.
type Result struct {
	SuperGraph     SuperGraph
	NodeCount      int
	RegenerateNext bool // not set by Detect; node-count drift is checked with ShouldRegenerate
}

const miscClusterID = "misc"

// Detect assigns every node in store to a cluster and returns the
// resulting supergraph. Nodes are mutated in place via store.SetCluster.
// When the local-move pass ends with a single community or with one
// community per node, DirectoryPrefixFallback's grouping is shaped instead.
func Detect(store *graphstore.Store, opts Options) (*Result, error) {
	opts.Validate()

	nodes := store.Nodes()
	if len(nodes) == 0 {
		return &Result{SuperGraph: SuperGraph{}}, nil
	}

	var assignment map[string]string
	if len(nodes) < opts.SmallProjectThreshold {
		assignment = singletonAssignment(nodes)
	} else {
		assignment = louvainAssignment(store, nodes, opts)
		communities := make(map[string]bool)
		for _, id := range assignment {
			communities[id] = true
		}
		if len(communities) == 1 || len(communities) == len(nodes) {
			assignment = DirectoryPrefixFallback(nodes)
		}
		assignment = shapeClusters(assignment, opts)
	}

	for path, id := range assignment {
		store.SetCluster(path, id)
	}

	sg := buildSuperGraph(store, nodes, assignment)
	return &Result{SuperGraph: sg, NodeCount: len(nodes)}, nil
}

// singletonAssignment gives every node its own cluster, per the
// small-project shortcut.
func singletonAssignment(nodes []*graphstore.Node) map[string]string {
	assignment := make(map[string]string, len(nodes))
	for i, n := range nodes {
		assignment[n.Path] = fmt.Sprintf("c%d", i)
	}
	return assignment
}

// targetCount returns T = max(ceil(N/100), 5) and the shaping cap
// M = min(2T, 50), per the spec's cluster-count shaping rule.
func targetCount(n, maxClusters int) (target, cap int) {
	target = int(math.Ceil(float64(n) / 100))
	if target < 5 {
		target = 5
	}
	cap = 2 * target
	if cap > maxClusters {
		cap = maxClusters
	}
	if target > cap {
		target = cap
	}
	return target, cap
}

// louvainAssignment runs the internal_edges(node,community)/degree(node)
// local-move refinement: start with every node its own community, then
// repeatedly move a node into whichever neighboring community most
// improves that ratio, scaled by Resolution, until no move improves or
// MaxIterations is reached.
func louvainAssignment(store *graphstore.Store, nodes []*graphstore.Node, opts Options) map[string]string {
	assignment := make(map[string]string, len(nodes))
	for i, n := range nodes {
		assignment[n.Path] = fmt.Sprintf("n%d", i)
	}

	degree := make(map[string]int, len(nodes))
	neighborsOf := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		var nbrs []string
		for _, e := range store.Neighbors(n.Path) {
			nbrs = append(nbrs, e.Target)
		}
		for _, e := range store.Incoming(n.Path) {
			nbrs = append(nbrs, e.Source)
		}
		neighborsOf[n.Path] = nbrs
		degree[n.Path] = len(nbrs)
	}

	for iter := 0; iter < opts.MaxIterations; iter++ {
		moved := false
		for _, n := range nodes {
			best, bestScore := assignment[n.Path], score(n.Path, assignment[n.Path], assignment, neighborsOf, degree, opts.Resolution)
			tried := map[string]bool{assignment[n.Path]: true}
			for _, nbr := range neighborsOf[n.Path] {
				cand := assignment[nbr]
				if tried[cand] {
					continue
				}
				tried[cand] = true
				if s := score(n.Path, cand, assignment, neighborsOf, degree, opts.Resolution); s > bestScore {
					best, bestScore = cand, s
				}
			}
			if best != assignment[n.Path] {
				assignment[n.Path] = best
				moved = true
			}
		}
		if !moved {
			break
		}
	}

	return assignment
}

// score computes internal_edges(node, community)/degree(node) scaled by
// resolution, the ratio the spec uses to drive community moves.
func score(node, community string, assignment map[string]string, neighborsOf map[string][]string, degree map[string]int, resolution float64) float64 {
	d := degree[node]
	if d == 0 {
		return 0
	}
	internal := 0
	for _, nbr := range neighborsOf[node] {
		if assignment[nbr] == community {
			internal++
		}
	}
	return (float64(internal) / float64(d)) * resolution
}

// shapeClusters keeps the largest target-1 communities of at least
// MinClusterSize members as-is and folds everything else into a misc
// cluster, renumbering the kept clusters to the stable c0..c(T-2) scheme
// and assigning the absorbing cluster the literal id "misc".
func shapeClusters(assignment map[string]string, opts Options) map[string]string {
	members := make(map[string][]string)
	for path, id := range assignment {
		members[id] = append(members[id], path)
	}

	target, cap := targetCount(len(assignment), opts.MaxClusters)
	_ = cap

	type bucket struct {
		id    string
		paths []string
	}
	var buckets []bucket
	for id, paths := range members {
		if len(paths) < opts.MinClusterSize {
			continue // absorbed into misc below
		}
		buckets = append(buckets, bucket{id: id, paths: paths})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if len(buckets[i].paths) != len(buckets[j].paths) {
			return len(buckets[i].paths) > len(buckets[j].paths)
		}
		return buckets[i].id < buckets[j].id
	})

	keep := target - 1
	if keep < 0 {
		keep = 0
	}
	if keep > len(buckets) {
		keep = len(buckets)
	}

	out := make(map[string]string, len(assignment))
	kept := make(map[string]bool)
	for i := 0; i < keep; i++ {
		newID := fmt.Sprintf("c%d", i)
		for _, p := range buckets[i].paths {
			out[p] = newID
		}
		kept[buckets[i].id] = true
	}

	for id, paths := range members {
		if kept[id] {
			continue
		}
		for _, p := range paths {
			out[p] = miscClusterID
		}
	}
	for i := keep; i < len(buckets); i++ {
		for _, p := range buckets[i].paths {
			out[p] = miscClusterID
		}
	}

	return out
}

func buildSuperGraph(store *graphstore.Store, nodes []*graphstore.Node, assignment map[string]string) SuperGraph {
	byCluster := make(map[string][]*graphstore.Node)
	for _, n := range nodes {
		byCluster[assignment[n.Path]] = append(byCluster[assignment[n.Path]], n)
	}

	var ids []string
	for id := range byCluster {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var communities []Community
	for _, id := range ids {
		communities = append(communities, summarize(id, byCluster[id]))
	}

	edgeWeight := make(map[[2]string]int)
	for _, n := range nodes {
		for _, e := range store.Neighbors(n.Path) {
			from, to := assignment[n.Path], assignment[e.Target]
			if from == "" || to == "" || from == to {
				continue
			}
			edgeWeight[[2]string{from, to}] += e.Weight
		}
	}
	var superEdges []SuperEdge
	for pair, w := range edgeWeight {
		superEdges = append(superEdges, SuperEdge{From: pair[0], To: pair[1], Weight: w})
	}
	sort.Slice(superEdges, func(i, j int) bool {
		if superEdges[i].From != superEdges[j].From {
			return superEdges[i].From < superEdges[j].From
		}
		return superEdges[i].To < superEdges[j].To
	})

	return SuperGraph{Communities: communities, SuperEdges: superEdges}
}

func summarize(id string, nodes []*graphstore.Node) Community {
	langSet := make(map[string]bool)
	var paths []string
	for _, n := range nodes {
		langSet[n.Language] = true
		paths = append(paths, n.Path)
	}
	var languages []string
	for l := range langSet {
		languages = append(languages, l)
	}
	sort.Strings(languages)
	sort.Strings(paths)

	return Community{
		ID:            id,
		Members:       paths,
		Languages:     languages,
		KeyFiles:      keyFiles(paths, 3),
		Description:   describe(id, paths, languages),
		EstimatedSize: len(paths) * 50,
	}
}

// keyFiles picks up to n files as representative of the cluster: a
// shorter path and an index/main-style basename both score higher, and
// test files and double-underscore-prefixed files score lower.
func keyFiles(paths []string, n int) []string {
	type scored struct {
		path  string
		score float64
	}
	var ranked []scored
	for _, p := range paths {
		ranked = append(ranked, scored{path: p, score: importance(p)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].path < ranked[j].path
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.path
	}
	return out
}

func importance(p string) float64 {
	base := strings.ToLower(path.Base(p))
	score := 100.0 - float64(len(p))
	if strings.Contains(base, "index") || strings.Contains(base, "main") || base == "__init__.py" {
		score += 20
	}
	if strings.Contains(base, "test") || strings.HasPrefix(base, "__") {
		score -= 20
	}
	return score
}

func describe(id string, paths []string, languages []string) string {
	if id == miscClusterID {
		return fmt.Sprintf("%d miscellaneous file(s) not grouped elsewhere", len(paths))
	}
	return fmt.Sprintf("%d file(s) across %s", len(paths), strings.Join(languages, ", "))
}

// DirectoryPrefixFallback groups nodes by their shared parent directory,
// used when community detection produces degenerate results (a single
// giant community, or as many communities as nodes).
func DirectoryPrefixFallback(nodes []*graphstore.Node) map[string]string {
	assignment := make(map[string]string, len(nodes))
	for _, n := range nodes {
		dir := path.Dir(n.Path)
		if dir == "." {
			dir = "root"
		}
		assignment[n.Path] = dir
	}
	return assignment
}

// ShouldRegenerate reports whether the node count has drifted by more
// than 5% since the last clustering pass, the regeneration trigger in
// SPEC_FULL.md §4.6.
func ShouldRegenerate(lastCount, currentCount int) bool {
	if lastCount == 0 {
		return currentCount > 0
	}
	delta := math.Abs(float64(currentCount-lastCount)) / float64(lastCount)
	return delta > 0.05
}
