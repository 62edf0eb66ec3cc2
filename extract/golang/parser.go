// Package golang extracts import, call, and embedding edges from Go
// source using the standard library's go/ast and go/parser packages —
// the same tooling the teacher this repository grew out of used for its
// own Go entity extraction.
package golang

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/codegraphd/codegraphd/extract"
)

// Extractor extracts dependency edges from Go source files.
type Extractor struct{}

// New returns a Go extractor.
func New() *Extractor { return &Extractor{} }

// Language implements extract.Extractor.
func (e *Extractor) Language() string { return "go" }

// Extract implements extract.Extractor. Import statements become import
// edges at the statement's line; struct embedding and interface
// embedding become inheritance edges; calls within function bodies
// become call edges, resolved against the file's own import map where
// the call is package-qualified.
func (e *Extractor) Extract(path string, content []byte) (*extract.Record, error) {
	rec := &extract.Record{File: path, Language: e.Language()}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		rec.Warnings = append(rec.Warnings, extract.Warning{
			Kind:    extract.ExtractFailed,
			Message: fmt.Sprintf("go parse: %v", err),
		})
		return rec, nil
	}

	importMap := make(map[string]string)
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)
		line := fset.Position(imp.Pos()).Line
		rec.Edges = append(rec.Edges, extract.Edge{
			Target: extract.Target{Raw: importPath},
			Type:   extract.EdgeImport,
			Line:   line,
			Weight: 1,
		})

		localName := lastSegment(importPath)
		if imp.Name != nil && imp.Name.Name != "." && imp.Name.Name != "_" {
			localName = imp.Name.Name
		}
		importMap[localName] = importPath
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			rec.Symbols = append(rec.Symbols, funcSymbol(fset, d))
			if d.Body != nil {
				rec.Edges = append(rec.Edges, extractCalls(fset, d.Body, importMap)...)
			}
		case *ast.GenDecl:
			rec.Symbols = append(rec.Symbols, genDeclSymbols(fset, d)...)
			if d.Tok == token.TYPE {
				for _, spec := range d.Specs {
					ts, ok := spec.(*ast.TypeSpec)
					if !ok {
						continue
					}
					rec.Edges = append(rec.Edges, embeddingEdges(fset, ts, importMap)...)
				}
			}
		}
	}

	return rec, nil
}

func lastSegment(importPath string) string {
	parts := strings.Split(importPath, "/")
	return parts[len(parts)-1]
}

func funcSymbol(fset *token.FileSet, fn *ast.FuncDecl) extract.Symbol {
	return extract.Symbol{
		Name: fn.Name.Name,
		Kind: extract.SymbolFunction,
		Line: fset.Position(fn.Pos()).Line,
	}
}

func genDeclSymbols(fset *token.FileSet, d *ast.GenDecl) []extract.Symbol {
	var kind extract.SymbolKind
	switch d.Tok {
	case token.TYPE:
		kind = extract.SymbolType
	case token.CONST:
		kind = extract.SymbolConst
	case token.VAR:
		kind = extract.SymbolVar
	default:
		return nil
	}

	var symbols []extract.Symbol
	for _, spec := range d.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			symbols = append(symbols, extract.Symbol{Name: s.Name.Name, Kind: kind, Line: fset.Position(s.Pos()).Line})
		case *ast.ValueSpec:
			for _, name := range s.Names {
				symbols = append(symbols, extract.Symbol{Name: name.Name, Kind: kind, Line: fset.Position(name.Pos()).Line})
			}
		}
	}
	return symbols
}

// embeddingEdges emits an inheritance edge for each embedded struct
// field or embedded interface method set, resolved to its import path
// when the embedded type is package-qualified.
func embeddingEdges(fset *token.FileSet, ts *ast.TypeSpec, importMap map[string]string) []extract.Edge {
	var edges []extract.Edge
	line := fset.Position(ts.Pos()).Line

	switch t := ts.Type.(type) {
	case *ast.StructType:
		if t.Fields == nil {
			return nil
		}
		for _, field := range t.Fields.List {
			if len(field.Names) != 0 {
				continue
			}
			if target, ok := embeddedTarget(field.Type, importMap); ok {
				edges = append(edges, extract.Edge{Target: target, Type: extract.EdgeInheritance, Line: line, Weight: 1})
			}
		}
	case *ast.InterfaceType:
		if t.Methods == nil {
			return nil
		}
		for _, m := range t.Methods.List {
			if len(m.Names) != 0 {
				continue
			}
			if target, ok := embeddedTarget(m.Type, importMap); ok {
				edges = append(edges, extract.Edge{Target: target, Type: extract.EdgeInheritance, Line: line, Weight: 1})
			}
		}
	}
	return edges
}

func embeddedTarget(expr ast.Expr, importMap map[string]string) (extract.Target, bool) {
	switch t := expr.(type) {
	case *ast.Ident:
		return extract.Target{Raw: t.Name}, true
	case *ast.StarExpr:
		return embeddedTarget(t.X, importMap)
	case *ast.SelectorExpr:
		if x, ok := t.X.(*ast.Ident); ok {
			if importPath, ok := importMap[x.Name]; ok {
				return extract.Target{Raw: importPath + "." + t.Sel.Name}, true
			}
			return extract.Target{Raw: x.Name + "." + t.Sel.Name}, true
		}
	}
	return extract.Target{}, false
}

// extractCalls walks block for call expressions, resolving
// package-qualified calls against importMap so the edge's Raw target
// records the import path rather than just the local alias.
func extractCalls(fset *token.FileSet, block *ast.BlockStmt, importMap map[string]string) []extract.Edge {
	var edges []extract.Edge
	seen := make(map[string]bool)

	ast.Inspect(block, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		var raw string
		switch fn := call.Fun.(type) {
		case *ast.Ident:
			raw = fn.Name
		case *ast.SelectorExpr:
			if x, ok := fn.X.(*ast.Ident); ok {
				if importPath, ok := importMap[x.Name]; ok {
					raw = importPath + "." + fn.Sel.Name
				} else {
					raw = x.Name + "." + fn.Sel.Name
				}
			} else {
				raw = fn.Sel.Name
			}
		}
		if raw == "" || seen[raw] || isBuiltinFunc(raw) {
			return true
		}
		seen[raw] = true
		edges = append(edges, extract.Edge{
			Target: extract.Target{Raw: raw},
			Type:   extract.EdgeCall,
			Line:   fset.Position(call.Pos()).Line,
			Weight: 1,
		})
		return true
	})

	return edges
}

func isBuiltinFunc(name string) bool {
	switch name {
	case "append", "cap", "clear", "close", "complex", "copy",
		"delete", "imag", "len", "make", "max", "min", "new",
		"panic", "print", "println", "real", "recover":
		return true
	}
	return false
}
