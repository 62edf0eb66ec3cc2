package graphstore

import "github.com/codegraphd/codegraphd/extract"

// Node is one file in the dependency graph.
type Node struct {
	Path     string
	Language string
	Symbols  []extract.Symbol
	Hash     string
	// ClusterID is the id of the cluster this node currently belongs to,
	// empty until a clustering pass has run.
	ClusterID string
}

func cloneNode(n *Node) *Node {
	cp := *n
	cp.Symbols = append([]extract.Symbol(nil), n.Symbols...)
	return &cp
}
