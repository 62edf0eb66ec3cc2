// Package extract defines the language-extractor contract and the record
// types an extractor produces: a set of dependency edges and declared
// symbols for one source file.
package extract

// EdgeType classifies a dependency edge between two files.
type EdgeType string

const (
	EdgeImport      EdgeType = "import"
	EdgeInclude     EdgeType = "include"
	EdgeRequire     EdgeType = "require"
	EdgeCall        EdgeType = "call"
	EdgeInheritance EdgeType = "inheritance"
)

// Target is the destination of an edge. Resolution to an actual file
// happens later, in graphstore; an extractor only records what it saw.
type Target struct {
	// Raw is the literal text the extractor found (an import path, a
	// #include argument, a module specifier).
	Raw string
	// Resolved and Path are left unset by the extractors and are not
	// written by graphstore either, which records resolution on its own
	// graphstore.Edge instead.
	Resolved bool
	// Path is the resolved file path when Resolved is true.
	Path string
}

// Unresolved reports whether t still needs resolution against the graph.
func (t Target) Unresolved() bool { return !t.Resolved }

// Edge is one dependency relationship found in a file.
type Edge struct {
	Target Target
	Type   EdgeType
	Line   int
	Weight int
}

// SymbolKind classifies a declared symbol.
type SymbolKind string

const (
	SymbolFunction  SymbolKind = "function"
	SymbolType      SymbolKind = "type"
	SymbolClass     SymbolKind = "class"
	SymbolConst     SymbolKind = "const"
	SymbolVar       SymbolKind = "var"
)

// Symbol is a declaration found in a file, used by the query engine's
// symbol search.
type Symbol struct {
	Name string
	Kind SymbolKind
	Line int
}

// WarningKind classifies a non-fatal extraction problem.
type WarningKind string

// ExtractFailed is the only warning kind extractors currently emit: the
// file could not be fully parsed, but extraction continues with whatever
// was recovered.
const ExtractFailed WarningKind = "ExtractFailed"

// Warning is a non-fatal problem encountered while extracting a file.
type Warning struct {
	Kind    WarningKind
	Message string
}

// Record is the full extraction result for one file.
type Record struct {
	File     string
	Language string
	Edges    []Edge
	Symbols  []Symbol
	Warnings []Warning
}
