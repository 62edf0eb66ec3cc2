// Package snapshot writes the graph, supergraph, and metrics state to
// the on-disk .graph/ directory atomically: every artifact is written
// to a temp file and renamed into place, so a reader — or a daemon
// killed mid-write — never observes a half-written file.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/codegraphd/codegraphd/cluster"
	"github.com/codegraphd/codegraphd/graphstore"
)

// Dir is the default directory name snapshots are written under,
// relative to the watched repository root.
const Dir = ".graph"

const (
	graphFile  = "graph.json"
	metaFile   = "meta.json"
)

// Graph is the serialized shape of graph.json: nodes grouped by
// language, every edge, the supergraph, and per-cluster membership —
// the artifact set named in SPEC_FULL.md §3.
type Graph struct {
	GeneratedAt      time.Time                `json:"generated_at"`
	NodesByLanguage  map[string][]NodeSummary `json:"nodes_by_language"`
	Edges            []EdgeSummary            `json:"edges"`
	Supergraph       *cluster.SuperGraph      `json:"supergraph,omitempty"`
	ClusterMembers   map[string][]string      `json:"cluster_members,omitempty"`
}

// NodeSummary is one node's serialized form.
type NodeSummary struct {
	Path      string `json:"path"`
	ClusterID string `json:"cluster_id,omitempty"`
	Hash      string `json:"hash,omitempty"`
}

// EdgeSummary is one edge's serialized form.
type EdgeSummary struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Resolved bool   `json:"resolved"`
	Type     string `json:"type"`
	Line     int    `json:"line"`
	Weight   int    `json:"weight"`
}

// Meta is the serialized shape of meta.json: daemon-level metrics, kept
// as a separate artifact so a control-API status query never has to
// deserialize the whole graph.
type Meta struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Metrics     json.RawMessage `json:"metrics"`
}

// Writer writes snapshot artifacts under a repository's .graph/
// directory.
type Writer struct {
	graphDir string
}

// New returns a Writer rooted at filepath.Join(repoRoot, Dir).
func New(repoRoot string) *Writer {
	return &Writer{graphDir: filepath.Join(repoRoot, Dir)}
}

// Write serializes the graph and supergraph and atomically publishes
// graph.json. metrics, if non-nil, is marshaled and atomically
// published as meta.json in the same call, so the two artifacts never
// drift out of sync for a single snapshot cycle.
func (w *Writer) Write(store *graphstore.Store, sg *cluster.SuperGraph, metrics any) error {
	if err := os.MkdirAll(w.graphDir, 0o755); err != nil {
		return fmt.Errorf("snapshot: create %s: %w", w.graphDir, err)
	}

	g := buildGraph(store, sg)
	if err := w.writeAtomic(graphFile, g); err != nil {
		return err
	}

	if metrics == nil {
		return nil
	}
	raw, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("snapshot: marshal metrics: %w", err)
	}
	meta := Meta{GeneratedAt: now(), Metrics: raw}
	return w.writeAtomic(metaFile, meta)
}

func buildGraph(store *graphstore.Store, sg *cluster.SuperGraph) Graph {
	g := Graph{
		GeneratedAt:     now(),
		NodesByLanguage: make(map[string][]NodeSummary),
		ClusterMembers:  make(map[string][]string),
	}

	for _, n := range store.Nodes() {
		g.NodesByLanguage[n.Language] = append(g.NodesByLanguage[n.Language], NodeSummary{
			Path: n.Path, ClusterID: n.ClusterID, Hash: n.Hash,
		})
		if n.ClusterID != "" {
			g.ClusterMembers[n.ClusterID] = append(g.ClusterMembers[n.ClusterID], n.Path)
		}
	}

	for _, e := range store.Edges() {
		g.Edges = append(g.Edges, EdgeSummary{
			Source: e.Source, Target: e.Target, Resolved: e.Resolved,
			Type: string(e.Type), Line: e.Line, Weight: e.Weight,
		})
	}

	g.Supergraph = sg
	return g
}

// writeAtomic marshals v and publishes it under name via a temp
// file in the same directory followed by os.Rename, which is atomic on
// any filesystem that can host a .graph/ directory for this daemon.
func (w *Writer) writeAtomic(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal %s: %w", name, err)
	}

	tmp := filepath.Join(w.graphDir, fmt.Sprintf(".%s.tmp-%s", name, uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("snapshot: write temp file: %w", err)
	}

	final := filepath.Join(w.graphDir, name)
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("snapshot: rename into place: %w", err)
	}
	return nil
}

// now is the clock used for snapshot timestamps, kept in a variable so it
// can be replaced.
var now = time.Now

// Read loads graph.json from repoRoot's snapshot directory, returning an
// error if it does not exist or cannot be decoded. It does not compare
// the snapshot against the watched tree.
func Read(repoRoot string) (*Graph, error) {
	path := filepath.Join(repoRoot, Dir, graphFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", path, err)
	}
	return &g, nil
}
