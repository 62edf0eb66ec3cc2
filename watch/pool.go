package watch

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/codegraphd/codegraphd/extract"
	"github.com/codegraphd/codegraphd/graphstore"
)

// ExtractedFile is one file's extraction outcome, paired with the batch
// it belongs to so the Applier can preserve ordering across a batch
// even though extraction itself runs concurrently.
type ExtractedFile struct {
	BatchID string
	Path    string
	Create  bool // true for a create, false for a modify
	Record  *extract.Record
	Err     error
}

// Pool extracts the create/modify paths of each batch using a bounded
// set of workers, grounded on processor/ast-indexer/component.go's
// parseDirectory fan-out. RepoRoot is where relative batch paths are
// resolved against disk.
type Pool struct {
	RepoRoot   string
	Registry   *extract.Registry
	Parallelism int
}

// NewPool returns a Pool with parallelism defaulted to the host's CPU
// count, the configuration table's documented default.
func NewPool(repoRoot string, registry *extract.Registry, parallelism int) *Pool {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	return &Pool{RepoRoot: repoRoot, Registry: registry, Parallelism: parallelism}
}

// Run extracts every create/modify path in b concurrently (bounded by
// Parallelism) and sends one ExtractedFile per path to out, preserving
// no particular send order — the Applier is responsible for re-imposing
// the batch's create-before-modify ordering.
func (p *Pool) Run(ctx context.Context, b Batch, out chan<- ExtractedFile) {
	paths := make([]struct {
		path   string
		create bool
	}, 0, len(b.Creates)+len(b.Modifies))
	for _, path := range b.Creates {
		paths = append(paths, struct {
			path   string
			create bool
		}{path, true})
	}
	for _, path := range b.Modifies {
		paths = append(paths, struct {
			path   string
			create bool
		}{path, false})
	}

	sem := make(chan struct{}, p.Parallelism)
	var wg sync.WaitGroup
	for _, item := range paths {
		select {
		case <-ctx.Done():
			return
		default:
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(path string, create bool) {
			defer wg.Done()
			defer func() { <-sem }()
			out <- p.extractOne(b.ID, path, create)
		}(item.path, item.create)
	}
	wg.Wait()
}

func (p *Pool) extractOne(batchID, relPath string, create bool) ExtractedFile {
	result := ExtractedFile{BatchID: batchID, Path: relPath, Create: create}

	if !p.Registry.HasExtractor(relPath) {
		return result // UnknownFile: not an error, just nothing to extract
	}

	content, err := os.ReadFile(filepath.Join(p.RepoRoot, relPath))
	if err != nil {
		result.Err = err
		return result
	}

	rec, err := p.Registry.Extract(relPath, content)
	if err != nil {
		result.Err = err
		return result
	}
	result.Record = rec
	return result
}

// ToDelta converts an extraction Record into the Delta graphstore.Store
// needs to apply it. Callers compute the content hash separately since
// the Pool only extracts edges/symbols, not hashing.
func ToDelta(path, hash string, rec *extract.Record) graphstore.Delta {
	return graphstore.Delta{
		Path:     path,
		Language: rec.Language,
		Hash:     hash,
		Symbols:  rec.Symbols,
		Edges:    rec.Edges,
	}
}
