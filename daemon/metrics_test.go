package daemon

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_RecordUpdateTracksCountAndEMA(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordUpdate(100 * time.Millisecond)
	snap := m.Sample()
	assert.EqualValues(t, 1, snap.UpdateCount)
	assert.InDelta(t, 0.1, snap.AvgUpdateSeconds, 0.001)

	m.RecordUpdate(200 * time.Millisecond)
	snap = m.Sample()
	assert.EqualValues(t, 2, snap.UpdateCount)
	// EMA = 0.3*0.2 + 0.7*0.1 = 0.13
	assert.InDelta(t, 0.13, snap.AvgUpdateSeconds, 0.001)
}

func TestMetrics_RecordError(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordError()
	m.RecordError()
	snap := m.Sample()
	assert.EqualValues(t, 2, snap.ErrorCount)
}

func TestMetrics_SampleReadsMemory(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	snap := m.Sample()
	assert.Positive(t, snap.MemoryBytes)
}

func TestMetrics_NilRegistryDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		m := NewMetrics(nil)
		m.RecordUpdate(time.Millisecond)
	})
}
