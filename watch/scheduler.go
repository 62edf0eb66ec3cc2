package watch

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Batch is one quiescence-coalesced group of changes, ordered per
// SPEC_FULL.md §4.4: every deletion, then every creation, then every
// modification, each group sorted by path for determinism.
type Batch struct {
	ID        string
	Deletes   []string
	Creates   []string
	Modifies  []string
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	// QuiescenceDelay is how long the scheduler waits after the most
	// recent event before flushing a batch.
	QuiescenceDelay time.Duration
	// BatchSize caps how many paths a single batch carries; an
	// oversized pending set is split into multiple FIFO batches rather
	// than dropped.
	BatchSize int
}

// DefaultSchedulerConfig matches the configuration table's defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{QuiescenceDelay: 500 * time.Millisecond, BatchSize: 10}
}

// Scheduler coalesces a stream of RawEvents into ordered Batches. A
// path's most recent operation wins within a quiescence window — a
// create followed by a modify within the window collapses to a single
// modify, matching the teacher's "most recent operation per path"
// debounce rule.
type Scheduler struct {
	cfg     SchedulerConfig
	in      <-chan RawEvent
	batches chan Batch
}

// NewScheduler returns a Scheduler reading from in.
func NewScheduler(in <-chan RawEvent, cfg SchedulerConfig) *Scheduler {
	if cfg.QuiescenceDelay <= 0 {
		cfg.QuiescenceDelay = 500 * time.Millisecond
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &Scheduler{cfg: cfg, in: in, batches: make(chan Batch, 16)}
}

// Batches returns the channel of ordered batches. Batches are sent in
// the order they were produced (FIFO across batches).
func (s *Scheduler) Batches() <-chan Batch { return s.batches }

// Run drains s.in until it closes or ctx is done, flushing a batch
// whenever the input goes quiet for QuiescenceDelay.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.batches)

	pending := make(map[string]Op)
	timer := time.NewTimer(s.cfg.QuiescenceDelay)
	defer timer.Stop()
	timerActive := true

	flush := func() {
		if len(pending) == 0 {
			return
		}
		for _, b := range splitIntoBatches(pending, s.cfg.BatchSize) {
			// Hand the batch over whenever the channel has room, so a
			// flush on a done ctx does not race the send against ctx.Done.
			select {
			case s.batches <- b:
				continue
			default:
			}
			select {
			case s.batches <- b:
			case <-ctx.Done():
				return
			}
		}
		pending = make(map[string]Op)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case ev, ok := <-s.in:
			if !ok {
				flush()
				return
			}
			pending[ev.Path] = ev.Op
			if !timerActive {
				timer.Reset(s.cfg.QuiescenceDelay)
				timerActive = true
			} else {
				timer.Reset(s.cfg.QuiescenceDelay)
			}

		case <-timer.C:
			timerActive = false
			flush()
		}
	}
}

// splitIntoBatches groups pending changes into deletions-first,
// creates-second, modifies-third order, splitting into multiple batches
// of at most batchSize paths total when pending is larger.
func splitIntoBatches(pending map[string]Op, batchSize int) []Batch {
	var deletes, creates, modifies []string
	for path, op := range pending {
		switch op {
		case OpDelete:
			deletes = append(deletes, path)
		case OpCreate:
			creates = append(creates, path)
		default:
			modifies = append(modifies, path)
		}
	}
	sort.Strings(deletes)
	sort.Strings(creates)
	sort.Strings(modifies)

	ordered := make([]struct {
		path string
		op   Op
	}, 0, len(pending))
	for _, p := range deletes {
		ordered = append(ordered, struct {
			path string
			op   Op
		}{p, OpDelete})
	}
	for _, p := range creates {
		ordered = append(ordered, struct {
			path string
			op   Op
		}{p, OpCreate})
	}
	for _, p := range modifies {
		ordered = append(ordered, struct {
			path string
			op   Op
		}{p, OpModify})
	}

	var batches []Batch
	for len(ordered) > 0 {
		n := batchSize
		if n > len(ordered) {
			n = len(ordered)
		}
		chunk := ordered[:n]
		ordered = ordered[n:]

		b := Batch{ID: uuid.NewString()}
		for _, item := range chunk {
			switch item.op {
			case OpDelete:
				b.Deletes = append(b.Deletes, item.path)
			case OpCreate:
				b.Creates = append(b.Creates, item.path)
			case OpModify:
				b.Modifies = append(b.Modifies, item.path)
			}
		}
		batches = append(batches, b)
	}
	return batches
}
