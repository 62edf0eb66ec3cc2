package watch

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discover walks repoRoot and returns every file path (relative to
// repoRoot, slash-normalized) that survives the ignore set and
// extension allowlist, for the supervisor's initial full scan. It
// shares Watcher's ignore/extension logic without requiring a live
// fsnotify watch.
func Discover(repoRoot string, cfg Config) ([]string, error) {
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	extSet := make(map[string]bool, len(exts))
	for _, e := range exts {
		extSet[e] = true
	}

	ignores := cfg.IgnorePatterns
	if len(ignores) == 0 {
		ignores = DefaultIgnorePatterns
	}
	w := &Watcher{cfg: cfg, ignores: ignores}

	var paths []string
	err := filepath.Walk(repoRoot, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(repoRoot, p)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}
		if info.IsDir() {
			if w.ignoredDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !extSet[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		if w.ignored(rel) {
			return nil
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}
