package extract

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry maps file extensions to the Extractor that handles them.
// Grounded on processor/ast/registry.go's ParserRegistry: first
// registration for an extension wins, and the zero-value Registry is not
// usable — callers always get one from New.
type Registry struct {
	mu         sync.RWMutex
	byLanguage map[string]Extractor
	byExt      map[string]string // extension (with leading dot) -> language
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		byLanguage: make(map[string]Extractor),
		byExt:      make(map[string]string),
	}
}

// Register associates an Extractor with a language name and the file
// extensions it handles. Extensions must include the leading dot.
func (r *Registry) Register(e Extractor, extensions ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lang := e.Language()
	r.byLanguage[lang] = e
	for _, ext := range extensions {
		if _, exists := r.byExt[ext]; exists {
			continue
		}
		r.byExt[ext] = lang
	}
}

// HasExtractor reports whether an extractor is registered for path's
// extension.
func (r *Registry) HasExtractor(path string) bool {
	_, ok := r.lookup(path)
	return ok
}

// ForPath returns the Extractor registered for path's extension.
func (r *Registry) ForPath(path string) (Extractor, bool) {
	lang, ok := r.lookup(path)
	if !ok {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byLanguage[lang]
	return e, ok
}

func (r *Registry) lookup(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	r.mu.RLock()
	defer r.mu.RUnlock()
	lang, ok := r.byExt[ext]
	return lang, ok
}

// Extensions lists every registered extension, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract dispatches path/content to the registered extractor, or
// returns an error if none is registered. Callers that want "unknown
// extension" to be a non-error should check HasExtractor first, per the
// UnknownFile error-kind contract: codegraphd never treats an
// unrecognized file as a failure.
func (r *Registry) Extract(path string, content []byte) (*Record, error) {
	e, ok := r.ForPath(path)
	if !ok {
		return nil, fmt.Errorf("extract: no extractor registered for %s", path)
	}
	return e.Extract(path, content)
}
