// Package watch turns raw filesystem events into ordered, coalesced
// batches of file changes and applies them to a graphstore.Store. It is
// grounded on processor/ast/watcher.go's fsnotify recursive-watch and
// debounce-ticker shape, split into three stages the teacher does not
// separate: Watcher (raw fs events), Scheduler (quiescence-delay batch
// coalescing with deletions-then-creates-then-mods ordering), and Pool
// (bounded-worker extraction fan-out) plus Applier (serialized store
// writes).
package watch

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// Op classifies a raw filesystem change.
type Op int

const (
	OpCreate Op = iota
	OpModify
	OpDelete
)

// RawEvent is one coalesced-per-path filesystem change, relative to the
// watched root.
type RawEvent struct {
	Path string
	Op   Op
}

// DefaultExtensions is the extension allowlist per the configuration
// table's default, used when Config.Extensions is empty.
var DefaultExtensions = []string{
	".py", ".js", ".ts", ".jsx", ".tsx",
	".c", ".cpp", ".cc", ".cxx", ".h", ".hpp",
	".go",
}

// DefaultIgnorePatterns is the default ignore set, matched with
// doublestar glob semantics against the path relative to the watched
// root.
var DefaultIgnorePatterns = []string{
	".graph/**", ".git/**", "**/node_modules/**",
	"**/build/**", "**/dist/**", "**/output/**",
	"**/.venv/**", "**/venv/**", "**/__pycache__/**",
}

// Config configures a Watcher.
type Config struct {
	RepoRoot        string
	Extensions      []string
	IgnorePatterns  []string
	Logger          *slog.Logger
}

// Watcher watches RepoRoot recursively and emits one RawEvent per
// filesystem change that survives the extension allowlist and ignore
// set.
type Watcher struct {
	cfg     Config
	fsw     *fsnotify.Watcher
	logger  *slog.Logger
	events  chan RawEvent
	extSet  map[string]bool
	ignores []string
}

// New creates a Watcher. Call Start to begin watching.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

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

	return &Watcher{
		cfg:     cfg,
		fsw:     fsw,
		logger:  logger,
		events:  make(chan RawEvent, 256),
		extSet:  extSet,
		ignores: ignores,
	}, nil
}

// Events returns the channel of raw, per-path filesystem changes.
func (w *Watcher) Events() <-chan RawEvent { return w.events }

// Start adds watches to every directory under RepoRoot (skipping
// ignored subtrees) and begins translating fsnotify events.
func (w *Watcher) Start() error {
	if err := w.addRecursive(w.cfg.RepoRoot); err != nil {
		return err
	}
	go w.run()
	return nil
}

// Stop closes the underlying fsnotify watcher and the events channel.
func (w *Watcher) Stop() error {
	err := w.fsw.Close()
	close(w.events)
	return err
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(w.cfg.RepoRoot, p)
		if rel != "." && w.ignoredDir(rel) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			w.logger.Warn("watch: failed to add directory", "path", p, "error", err)
		}
		return nil
	})
}

func (w *Watcher) ignoredDir(rel string) bool {
	return w.ignored(rel + "/")
}

func (w *Watcher) ignored(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.ignores {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, strings.TrimSuffix(rel, "/")); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch: fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			rel, _ := filepath.Rel(w.cfg.RepoRoot, ev.Name)
			if !w.ignoredDir(rel) {
				if err := w.fsw.Add(ev.Name); err != nil {
					w.logger.Warn("watch: failed to add new directory", "path", ev.Name, "error", err)
				}
			}
			return
		}
	}

	if !w.extSet[strings.ToLower(filepath.Ext(ev.Name))] {
		return
	}

	rel, err := filepath.Rel(w.cfg.RepoRoot, ev.Name)
	if err != nil {
		rel = ev.Name
	}
	if w.ignored(rel) {
		return
	}

	var op Op
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		op = OpDelete
	case ev.Has(fsnotify.Create):
		op = OpCreate
	default:
		op = OpModify
	}

	select {
	case w.events <- RawEvent{Path: rel, Op: op}:
	default:
		w.logger.Warn("watch: event channel full, dropping event", "path", rel)
	}
}
