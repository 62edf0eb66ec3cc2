// Package daemon owns the pieces that make codegraphd a long-running
// process rather than a library: the PID lock, the watch/extract/apply
// pipeline wiring, periodic clustering and snapshotting, metrics, and
// health checks. Grounded on processor/ast-indexer/component.go's
// Start/Stop lifecycle and _examples/original_source/tools/codegraphd.py's
// CodeGraphDaemon main loop, with the NATS-publish and semstreams
// plugin machinery replaced by direct calls into watch/query/cluster/
// snapshot.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/codegraphd/codegraphd/cluster"
	"github.com/codegraphd/codegraphd/extract"
	"github.com/codegraphd/codegraphd/extract/cfamily"
	"github.com/codegraphd/codegraphd/extract/golang"
	"github.com/codegraphd/codegraphd/extract/javascript"
	"github.com/codegraphd/codegraphd/extract/python"
	"github.com/codegraphd/codegraphd/graphstore"
	"github.com/codegraphd/codegraphd/snapshot"
	"github.com/codegraphd/codegraphd/watch"
)

// Supervisor owns one daemon instance's full lifecycle: lock
// acquisition, initial scan, the watch/extract/apply pipeline,
// periodic clustering, and snapshotting.
type Supervisor struct {
	cfg     *Config
	logger  *slog.Logger
	lock    *LockFile
	metrics *Metrics

	Store    *graphstore.Store
	Registry *extract.Registry

	snapWriter *snapshot.Writer

	mu            sync.RWMutex
	lastClusterN  int
	superGraph    *cluster.SuperGraph
	queueDepth    int

	refresh chan struct{}
}

// New returns a Supervisor for cfg. Call Run to start it.
func New(cfg *Config, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}

	registry := extract.New()
	registry.Register(golang.New(), ".go")
	registry.Register(python.New(), ".py")
	registry.Register(javascript.New(), ".js", ".jsx", ".ts", ".tsx")
	registry.Register(cfamily.New(), ".c", ".cpp", ".cc", ".cxx", ".h", ".hpp")

	return &Supervisor{
		cfg:        cfg,
		logger:     logger,
		lock:       NewLockFile(cfg.Repo.Path),
		metrics:    NewMetrics(prometheus.NewRegistry()),
		Store:      graphstore.New(),
		Registry:   registry,
		snapWriter: snapshot.New(cfg.Repo.Path),
		refresh:    make(chan struct{}, 1),
	}
}

// Refresh requests an out-of-band full rescan, the control-socket
// analogue of the original daemon's SIGUSR1 handler.
func (s *Supervisor) Refresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Run acquires the lock, performs a full initial scan (an existing
// snapshot on disk is not loaded or consulted), then watches the
// repository until ctx is canceled. Once the lock is held, a snapshot is
// always written on the way out, even on error, so a supervisor that
// stops leaves the best available state on disk.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.lock.Acquire(); err != nil {
		return err
	}
	defer s.lock.Release()
	defer s.snapshotNow()

	if err := s.initialScan(ctx); err != nil {
		s.logger.Error("daemon: initial scan failed", "error", err)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	watcher, err := watch.New(watch.Config{
		RepoRoot:       s.cfg.Repo.Path,
		Extensions:     s.cfg.Extract.Extensions,
		IgnorePatterns: s.cfg.Extract.IgnoreGlobs,
		Logger:         s.logger,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWatcherLost, err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrWatcherLost, err)
	}
	defer watcher.Stop()

	scheduler := watch.NewScheduler(watcher.Events(), watch.SchedulerConfig{
		QuiescenceDelay: s.cfg.Watch.QuiescenceDelay,
		BatchSize:       s.cfg.Watch.BatchSize,
	})
	go scheduler.Run(ctx)

	applier := &watch.Applier{
		Store:  s.Store,
		Pool:   watch.NewPool(s.cfg.Repo.Path, s.Registry, s.cfg.Watch.WorkerParallelism),
		Logger: s.logger,
		OnApplied: func(b watch.Batch) {
			s.onBatchApplied(b)
		},
	}

	snapshotTicker := time.NewTicker(30 * time.Second)
	defer snapshotTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-s.refresh:
			if err := s.initialScan(ctx); err != nil {
				s.logger.Error("daemon: refresh scan failed", "error", err)
				s.metrics.RecordError()
			}
			s.recluster()
			s.snapshotNow()

		case b, ok := <-scheduler.Batches():
			if !ok {
				return fmt.Errorf("%w: scheduler stopped", ErrWatcherLost)
			}
			start := time.Now()
			applier.Run(ctx, singleBatch(b))
			s.metrics.RecordUpdate(time.Since(start))

		case <-snapshotTicker.C:
			s.recluster()
			s.snapshotNow()
		}
	}
}

func singleBatch(b watch.Batch) <-chan watch.Batch {
	ch := make(chan watch.Batch, 1)
	ch <- b
	close(ch)
	return ch
}

// initialScan walks the repository and extracts every matching file,
// run when the snapshot is missing or when a refresh is requested.
func (s *Supervisor) initialScan(ctx context.Context) error {
	// Reuse the Pool's single-file extraction path across a synthetic
	// "everything just got created" batch so initial indexing goes
	// through the exact same code as an incremental update.
	paths, err := watch.Discover(s.cfg.Repo.Path, watch.Config{
		RepoRoot:       s.cfg.Repo.Path,
		Extensions:     s.cfg.Extract.Extensions,
		IgnorePatterns: s.cfg.Extract.IgnoreGlobs,
		Logger:         s.logger,
	})
	if err != nil {
		return err
	}

	applier := &watch.Applier{Store: s.Store, Pool: watch.NewPool(s.cfg.Repo.Path, s.Registry, s.cfg.Watch.WorkerParallelism), Logger: s.logger}
	applier.Run(ctx, singleBatch(watch.Batch{Creates: paths}))
	return nil
}

func (s *Supervisor) onBatchApplied(watch.Batch) {
	s.mu.Lock()
	s.queueDepth = 0
	s.mu.Unlock()
}

func (s *Supervisor) recluster() {
	current := s.Store.NodeCount()
	s.mu.RLock()
	last := s.lastClusterN
	s.mu.RUnlock()

	if s.superGraph != nil && !cluster.ShouldRegenerate(last, current) {
		return
	}

	res, err := cluster.Detect(s.Store, s.cfg.ClusterOptions())
	if err != nil {
		s.logger.Error("daemon: clustering failed", "error", err)
		s.metrics.RecordError()
		return
	}

	s.mu.Lock()
	s.superGraph = &res.SuperGraph
	s.lastClusterN = current
	s.mu.Unlock()
}

func (s *Supervisor) snapshotNow() {
	s.mu.RLock()
	sg := s.superGraph
	s.mu.RUnlock()

	const maxAttempts = 3
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = s.snapWriter.Write(s.Store, sg, s.metrics.Sample()); err == nil {
			return
		}
		time.Sleep(time.Duration(1<<attempt) * 100 * time.Millisecond)
	}
	s.logger.Error("daemon: snapshot failed after retries", "error", err)
	s.metrics.RecordError()
}

// SuperGraph returns the most recently computed supergraph, or nil if
// clustering has not run yet.
func (s *Supervisor) SuperGraph() *cluster.SuperGraph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.superGraph
}

// MetricsSnapshot returns the current metrics sample for a caller (the
// api package, architecture-overview and status responses) that cannot
// import daemon's internal Metrics type directly.
func (s *Supervisor) MetricsSnapshot() Snapshot {
	return s.metrics.Sample()
}

// Health returns the current set of health warnings.
func (s *Supervisor) Health() []HealthWarning {
	s.mu.RLock()
	depth := s.queueDepth
	s.mu.RUnlock()
	return CheckHealth(s.cfg.Health, s.metrics.Sample(), depth)
}
