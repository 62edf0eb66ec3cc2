// Package graphstore holds the in-memory directed multigraph of file
// dependencies. It is the single owner of graph state: every mutation
// goes through ApplyDelta or RemoveFile, and every read sees a
// consistent snapshot even while a mutation is in flight, per the
// atomicity contract in SPEC_FULL.md §6.2.
package graphstore

import (
	"sort"
	"sync"

	"github.com/codegraphd/codegraphd/extract"
)

// Delta is the set of changes ApplyDelta applies for one file.
type Delta struct {
	Path     string
	Language string
	Hash     string
	Symbols  []extract.Symbol
	Edges    []extract.Edge
}

// Store is the in-memory dependency graph. The zero value is not usable;
// construct with New.
type Store struct {
	mu sync.RWMutex

	nodes map[string]*Node
	// out[source] holds every edge whose Source is that path, resolved
	// or not.
	out map[string][]*Edge
	// in[target] holds every resolved edge whose Target is that path.
	in map[string][]*Edge
	// unresolved[raw] holds edges still waiting for a node at a path
	// matching raw to appear, keyed by the extractor's raw target text.
	unresolved map[string][]*Edge

	clusters map[string]string // path -> cluster id, set by cluster.Detect
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		nodes:      make(map[string]*Node),
		out:        make(map[string][]*Edge),
		in:         make(map[string][]*Edge),
		unresolved: make(map[string][]*Edge),
		clusters:   make(map[string]string),
	}
}

// ApplyDelta replaces path's node and outgoing edges, then attempts to
// resolve every unresolved edge in the graph that could now target path
// (I3: a newly created node can resolve edges recorded before it
// existed). The whole operation is applied under a single write lock so
// no reader observes source's edge list half-replaced (I5's in-memory
// analogue).
func (s *Store) ApplyDelta(d Delta) {
	node := &Node{Path: d.Path, Language: d.Language, Hash: d.Hash, Symbols: d.Symbols}

	newOut := make([]*Edge, 0, len(d.Edges))
	for _, e := range d.Edges {
		newOut = append(newOut, &Edge{
			Source: d.Path,
			Target: e.Target.Raw,
			Raw:    e.Target.Raw,
			Type:   e.Type,
			Line:   e.Line,
			Weight: weightOrDefault(e.Weight),
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.detachOutgoingLocked(d.Path)
	s.nodes[d.Path] = node
	s.out[d.Path] = newOut
	for _, e := range newOut {
		s.resolveEdgeLocked(e)
	}

	// A new node can satisfy edges recorded earlier by other files that
	// referenced it before it existed.
	s.resolvePendingAgainstLocked(d.Path)
}

// RemoveFile deletes path's node and every edge sourced from it, and
// demotes every edge that targeted it back to unresolved (I1: an edge's
// source is a node, so once the source or a resolved target is gone the
// edge cannot silently keep pointing at nothing).
func (s *Store) RemoveFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.detachOutgoingLocked(path)
	delete(s.nodes, path)
	delete(s.clusters, path)

	if incoming, ok := s.in[path]; ok {
		delete(s.in, path)
		for _, e := range incoming {
			e.Resolved = false
			e.Target = e.Raw
			s.unresolved[e.Raw] = append(s.unresolved[e.Raw], e)
		}
	}
}

func (s *Store) detachOutgoingLocked(path string) {
	for _, e := range s.out[path] {
		if e.Resolved {
			s.removeFromIndex(s.in, e.Target, e)
		} else {
			s.removeFromIndex(s.unresolved, e.Raw, e)
		}
	}
	delete(s.out, path)
}

func (s *Store) removeFromIndex(idx map[string][]*Edge, key string, target *Edge) {
	list := idx[key]
	for i, e := range list {
		if e == target {
			idx[key] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(idx[key]) == 0 {
		delete(idx, key)
	}
}

func (s *Store) resolveEdgeLocked(e *Edge) {
	for _, candidate := range candidatePaths(nodeLanguage(s, e.Source), e.Source, e.Raw) {
		if _, ok := s.nodes[candidate]; ok {
			e.Target = candidate
			e.Resolved = true
			s.in[candidate] = append(s.in[candidate], e)
			return
		}
	}
	s.unresolved[e.Raw] = append(s.unresolved[e.Raw], e)
}

func (s *Store) resolvePendingAgainstLocked(newPath string) {
	for raw, edges := range s.unresolved {
		var remaining []*Edge
		for _, e := range edges {
			resolved := false
			for _, candidate := range candidatePaths(nodeLanguage(s, e.Source), e.Source, raw) {
				if candidate == newPath {
					e.Target = newPath
					e.Resolved = true
					s.in[newPath] = append(s.in[newPath], e)
					resolved = true
					break
				}
			}
			if !resolved {
				remaining = append(remaining, e)
			}
		}
		if len(remaining) == 0 {
			delete(s.unresolved, raw)
		} else {
			s.unresolved[raw] = remaining
		}
	}
}

func nodeLanguage(s *Store, path string) string {
	if n, ok := s.nodes[path]; ok {
		return n.Language
	}
	return ""
}

func weightOrDefault(w int) int {
	if w <= 0 {
		return 1
	}
	return w
}

// Nodes returns every node, sorted by path for deterministic iteration.
func (s *Store) Nodes() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, cloneNode(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Node returns the node at path, or ErrUnknownFile if none exists.
func (s *Store) Node(path string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[path]
	if !ok {
		return nil, ErrUnknownFile
	}
	return cloneNode(n), nil
}

// Edges returns every edge in the graph, sorted for deterministic
// output.
func (s *Store) Edges() []*Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Edge
	for _, list := range s.out {
		for _, e := range list {
			out = append(out, cloneEdge(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return out[i].Line < out[j].Line
	})
	return out
}

// Neighbors returns the resolved edges leading out of path, sorted by
// target then type for deterministic traversal order.
func (s *Store) Neighbors(path string) []*Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Edge
	for _, e := range s.out[path] {
		if e.Resolved {
			out = append(out, cloneEdge(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// Incoming returns the resolved edges pointing at path.
func (s *Store) Incoming(path string) []*Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Edge, 0, len(s.in[path]))
	for _, e := range s.in[path] {
		out = append(out, cloneEdge(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// SetCluster records path's cluster membership, called by cluster.Detect
// after each clustering pass.
func (s *Store) SetCluster(path, clusterID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[path]; ok {
		n.ClusterID = clusterID
	}
	s.clusters[path] = clusterID
}

// Cluster returns path's current cluster id, or "" if unclustered.
func (s *Store) Cluster(path string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clusters[path]
}

// NodeCount returns the number of nodes, used by the daemon's
// re-clustering check (cluster.ShouldRegenerate).
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}
