package graphstore

import "github.com/codegraphd/codegraphd/extract"

// Edge is a directed dependency edge between two files in the graph.
// Multiple edges may exist between the same pair of nodes (a multigraph):
// two files can both import and call into each other, and the same
// import can recur at more than one line.
type Edge struct {
	Source string
	// Target is the resolved destination path once Resolved is true, or
	// equal to Raw while unresolved.
	Target string
	// Raw is the extractor-reported specifier (an import path, a module
	// specifier) and is kept even after resolution so the edge can be
	// demoted back to unresolved if its target node is later removed.
	Raw      string
	Resolved bool
	Type     extract.EdgeType
	Line     int
	Weight   int
}

func cloneEdge(e *Edge) *Edge {
	cp := *e
	return &cp
}
