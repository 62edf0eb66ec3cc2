package daemon

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks the daemon's operational counters, grounded on
// _examples/original_source/tools/codegraphd.py's GraphBuilder metrics
// dict (updates, errors, avg_time, last_update), mirrored into
// Prometheus gauges/counters for the teacher's declared-but-unused
// client_golang dependency.
type Metrics struct {
	mu sync.Mutex

	updateCount int64
	errorCount  int64
	lastUpdate  time.Time
	emaDuration time.Duration

	updatesTotal prometheus.Counter
	errorsTotal  prometheus.Counter
	lastUpdateGauge prometheus.Gauge
	durationGauge   prometheus.Gauge
	memoryGauge     prometheus.Gauge
}

// emaAlpha weights the most recent update duration against the running
// average; a higher value tracks recent samples more aggressively.
const emaAlpha = 0.3

// NewMetrics returns a Metrics registered under registry. Pass a fresh
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		updatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codegraphd_updates_total",
			Help: "Total number of batches applied to the graph.",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codegraphd_errors_total",
			Help: "Total number of extraction or snapshot errors.",
		}),
		lastUpdateGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "codegraphd_last_update_unix_seconds",
			Help: "Unix timestamp of the most recently applied batch.",
		}),
		durationGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "codegraphd_update_duration_ema_seconds",
			Help: "Exponential moving average of batch-apply duration.",
		}),
		memoryGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "codegraphd_memory_bytes",
			Help: "Most recent resident memory sample.",
		}),
	}
	if registry != nil {
		registry.MustRegister(m.updatesTotal, m.errorsTotal, m.lastUpdateGauge, m.durationGauge, m.memoryGauge)
	}
	return m
}

// RecordUpdate records one successfully applied batch and its
// wall-clock duration.
func (m *Metrics) RecordUpdate(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateCount++
	m.lastUpdate = now()
	if m.emaDuration == 0 {
		m.emaDuration = d
	} else {
		m.emaDuration = time.Duration(emaAlpha*float64(d) + (1-emaAlpha)*float64(m.emaDuration))
	}

	m.updatesTotal.Inc()
	m.lastUpdateGauge.Set(float64(m.lastUpdate.Unix()))
	m.durationGauge.Set(m.emaDuration.Seconds())
}

// RecordError records one extraction or snapshot failure.
func (m *Metrics) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount++
	m.errorsTotal.Inc()
}

// Snapshot is the metrics blob written alongside every graph snapshot.
type Snapshot struct {
	UpdateCount      int64     `json:"update_count"`
	ErrorCount       int64     `json:"error_count"`
	LastUpdate       time.Time `json:"last_update"`
	AvgUpdateSeconds float64   `json:"avg_update_seconds"`
	MemoryBytes      uint64    `json:"memory_bytes"`
}

// Sample returns the current metrics state, taking a fresh memory
// reading via runtime.ReadMemStats.
func (m *Metrics) Sample() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.memoryGauge.Set(float64(ms.Alloc))

	return Snapshot{
		UpdateCount:      m.updateCount,
		ErrorCount:       m.errorCount,
		LastUpdate:       m.lastUpdate,
		AvgUpdateSeconds: m.emaDuration.Seconds(),
		MemoryBytes:      ms.Alloc,
	}
}

// now is the clock used for LastUpdate, kept in a variable so it can be
// replaced.
var now = time.Now
