// Package javascript extracts import/require edges from JavaScript and
// TypeScript source via regular expressions, the same ad-hoc extraction
// mechanism used for Python — sufficient to satisfy the edge/symbol
// contract without a full parser.
package javascript

import (
	"bufio"
	"bytes"
	"regexp"

	"github.com/codegraphd/codegraphd/extract"
)

var (
	importFromRe  = regexp.MustCompile(`import\s+(?:[\w*{}\s,]+\s+from\s+)?['"]([^'"]+)['"]`)
	dynamicImport = regexp.MustCompile(`import\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	requireRe     = regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	functionRe    = regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)\s*\(`)
	classRe       = regexp.MustCompile(`^\s*(?:export\s+)?class\s+(\w+)`)
	constFnRe     = regexp.MustCompile(`^\s*(?:export\s+)?const\s+(\w+)\s*=\s*(?:async\s*)?\(?.*=>`)
)

// Extractor extracts dependency edges from JavaScript/TypeScript source.
type Extractor struct{}

// New returns a JavaScript/TypeScript extractor.
func New() *Extractor { return &Extractor{} }

// Language implements extract.Extractor.
func (e *Extractor) Language() string { return "javascript" }

// Extract implements extract.Extractor.
func (e *Extractor) Extract(path string, content []byte) (*extract.Record, error) {
	rec := &extract.Record{File: path, Language: e.Language()}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()

		for _, m := range importFromRe.FindAllStringSubmatch(text, -1) {
			rec.Edges = append(rec.Edges, extract.Edge{Target: extract.Target{Raw: m[1]}, Type: extract.EdgeImport, Line: line, Weight: 1})
		}
		for _, m := range dynamicImport.FindAllStringSubmatch(text, -1) {
			rec.Edges = append(rec.Edges, extract.Edge{Target: extract.Target{Raw: m[1]}, Type: extract.EdgeImport, Line: line, Weight: 1})
		}
		for _, m := range requireRe.FindAllStringSubmatch(text, -1) {
			rec.Edges = append(rec.Edges, extract.Edge{Target: extract.Target{Raw: m[1]}, Type: extract.EdgeRequire, Line: line, Weight: 1})
		}
		if m := functionRe.FindStringSubmatch(text); m != nil {
			rec.Symbols = append(rec.Symbols, extract.Symbol{Name: m[1], Kind: extract.SymbolFunction, Line: line})
		}
		if m := classRe.FindStringSubmatch(text); m != nil {
			rec.Symbols = append(rec.Symbols, extract.Symbol{Name: m[1], Kind: extract.SymbolClass, Line: line})
		}
		if m := constFnRe.FindStringSubmatch(text); m != nil {
			rec.Symbols = append(rec.Symbols, extract.Symbol{Name: m[1], Kind: extract.SymbolFunction, Line: line})
		}
	}
	if err := scanner.Err(); err != nil {
		rec.Warnings = append(rec.Warnings, extract.Warning{Kind: extract.ExtractFailed, Message: err.Error()})
	}

	return rec, nil
}
