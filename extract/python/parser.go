// Package python extracts import edges from Python source via regular
// expressions, per the ad-hoc regex extraction mechanism the
// specification sanctions directly rather than requiring a full parser.
package python

import (
	"bufio"
	"bytes"
	"regexp"

	"github.com/codegraphd/codegraphd/extract"
)

var (
	importRe     = regexp.MustCompile(`^\s*import\s+([\w.]+(?:\s*,\s*[\w.]+)*)`)
	fromImportRe = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\s+`)
	defRe        = regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)\s*\(`)
	classRe      = regexp.MustCompile(`^\s*class\s+(\w+)\s*[(:]`)
)

// Extractor extracts dependency edges and declared symbols (functions
// and classes at any indentation) from Python source.
type Extractor struct{}

// New returns a Python extractor.
func New() *Extractor { return &Extractor{} }

// Language implements extract.Extractor.
func (e *Extractor) Language() string { return "python" }

// Extract implements extract.Extractor. It never fails: a line that
// cannot be matched is simply skipped, matching the "best-effort,
// never catastrophic" extraction contract.
func (e *Extractor) Extract(path string, content []byte) (*extract.Record, error) {
	rec := &extract.Record{File: path, Language: e.Language()}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()

		if m := fromImportRe.FindStringSubmatch(text); m != nil {
			rec.Edges = append(rec.Edges, extract.Edge{
				Target: extract.Target{Raw: m[1]},
				Type:   extract.EdgeImport,
				Line:   line,
				Weight: 1,
			})
			continue
		}
		if m := importRe.FindStringSubmatch(text); m != nil {
			for _, mod := range splitModules(m[1]) {
				rec.Edges = append(rec.Edges, extract.Edge{
					Target: extract.Target{Raw: mod},
					Type:   extract.EdgeImport,
					Line:   line,
					Weight: 1,
				})
			}
			continue
		}
		if m := defRe.FindStringSubmatch(text); m != nil {
			rec.Symbols = append(rec.Symbols, extract.Symbol{Name: m[1], Kind: extract.SymbolFunction, Line: line})
			continue
		}
		if m := classRe.FindStringSubmatch(text); m != nil {
			rec.Symbols = append(rec.Symbols, extract.Symbol{Name: m[1], Kind: extract.SymbolClass, Line: line})
			continue
		}
	}
	if err := scanner.Err(); err != nil {
		rec.Warnings = append(rec.Warnings, extract.Warning{
			Kind:    extract.ExtractFailed,
			Message: err.Error(),
		})
	}

	return rec, nil
}

func splitModules(names string) []string {
	var out []string
	start := 0
	depth := 0
	for i, r := range names {
		switch r {
		case ',':
			if depth == 0 {
				out = append(out, trim(names[start:i]))
				start = i + 1
			}
		}
	}
	out = append(out, trim(names[start:]))
	return out
}

func trim(s string) string {
	i, j := 0, len(s)
	for i < j && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	for j > i && (s[j-1] == ' ' || s[j-1] == '\t') {
		j--
	}
	return s[i:j]
}
