// Package cfamily extracts #include edges from C and C++ source via
// regular expressions.
package cfamily

import (
	"bufio"
	"bytes"
	"regexp"

	"github.com/codegraphd/codegraphd/extract"
)

var includeRe = regexp.MustCompile(`^\s*#\s*include\s*([<"])([^">]+)[">]`)

// Extractor extracts #include dependency edges from C/C++ source.
type Extractor struct{}

// New returns a C/C++ extractor.
func New() *Extractor { return &Extractor{} }

// Language implements extract.Extractor.
func (e *Extractor) Language() string { return "c" }

// Extract implements extract.Extractor. System includes (angle
// brackets) and local includes (quotes) both become include edges; the
// quote style is not currently distinguished on the edge, since
// resolution against the graph happens later in graphstore.
func (e *Extractor) Extract(path string, content []byte) (*extract.Record, error) {
	rec := &extract.Record{File: path, Language: e.Language()}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if m := includeRe.FindStringSubmatch(text); m != nil {
			rec.Edges = append(rec.Edges, extract.Edge{
				Target: extract.Target{Raw: m[2]},
				Type:   extract.EdgeInclude,
				Line:   line,
				Weight: 1,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		rec.Warnings = append(rec.Warnings, extract.Warning{Kind: extract.ExtractFailed, Message: err.Error()})
	}

	return rec, nil
}
