package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/codegraphd/codegraphd/graphstore"
)

// Applier consumes ordered batches and applies them to a single
// graphstore.Store, one batch at a time, deletions before creates
// before modifies within each batch — the serialization point that
// keeps concurrent extraction (Pool) from racing on the store.
type Applier struct {
	Store    *graphstore.Store
	Pool     *Pool
	Logger   *slog.Logger
	OnApplied func(Batch) // optional hook called after each batch; the daemon uses it to reset its queue-depth gauge
}

// Run applies batches from in until it closes or ctx is done.
func (a *Applier) Run(ctx context.Context, in <-chan Batch) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-in:
			if !ok {
				return
			}
			a.apply(ctx, b, logger)
			if a.OnApplied != nil {
				a.OnApplied(b)
			}
		}
	}
}

func (a *Applier) apply(ctx context.Context, b Batch, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, path := range b.Deletes {
		a.Store.RemoveFile(path)
	}

	results := make(chan ExtractedFile, len(b.Creates)+len(b.Modifies))
	go func() {
		a.Pool.Run(ctx, b, results)
		close(results)
	}()

	byPath := make(map[string]ExtractedFile)
	for r := range results {
		if r.Err != nil {
			logger.Warn("watch: extraction failed", "path", r.Path, "error", r.Err)
			continue
		}
		byPath[r.Path] = r
	}

	for _, path := range b.Creates {
		a.applyOne(path, byPath, logger)
	}
	for _, path := range b.Modifies {
		a.applyOne(path, byPath, logger)
	}
}

func (a *Applier) applyOne(path string, byPath map[string]ExtractedFile, logger *slog.Logger) {
	r, ok := byPath[path]
	if !ok || r.Record == nil {
		return // no extractor registered for this extension: UnknownFile, not an error
	}

	hash, err := hashFile(filepath.Join(a.Pool.RepoRoot, path))
	if err != nil {
		logger.Warn("watch: hash failed", "path", path, "error", err)
		return
	}

	a.Store.ApplyDelta(ToDelta(path, hash, r.Record))
}

func hashFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:8]), nil
}
