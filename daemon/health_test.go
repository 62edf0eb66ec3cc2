package daemon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckHealth_NoWarningsWhenWithinThresholds(t *testing.T) {
	cfg := HealthConfig{MemoryWarnMB: 500, ErrorRateWarn: 0.1, QueueDepthWarn: 100}
	snap := Snapshot{UpdateCount: 100, ErrorCount: 1, MemoryBytes: 100 * 1024 * 1024}
	warnings := CheckHealth(cfg, snap, 5)
	assert.Empty(t, warnings)
}

func TestCheckHealth_MemoryWarning(t *testing.T) {
	cfg := HealthConfig{MemoryWarnMB: 500, ErrorRateWarn: 0.1, QueueDepthWarn: 100}
	snap := Snapshot{MemoryBytes: 600 * 1024 * 1024}
	warnings := CheckHealth(cfg, snap, 0)
	assert.Len(t, warnings, 1)
	assert.Equal(t, "memory", warnings[0].Kind)
}

func TestCheckHealth_ErrorRateWarning(t *testing.T) {
	cfg := HealthConfig{MemoryWarnMB: 500, ErrorRateWarn: 0.1, QueueDepthWarn: 100}
	snap := Snapshot{UpdateCount: 10, ErrorCount: 5}
	warnings := CheckHealth(cfg, snap, 0)
	assert.Len(t, warnings, 1)
	assert.Equal(t, "error_rate", warnings[0].Kind)
}

func TestCheckHealth_ErrorRateIgnoredWithoutUpdates(t *testing.T) {
	cfg := HealthConfig{MemoryWarnMB: 500, ErrorRateWarn: 0.1, QueueDepthWarn: 100}
	snap := Snapshot{UpdateCount: 0, ErrorCount: 5}
	warnings := CheckHealth(cfg, snap, 0)
	assert.Empty(t, warnings)
}

func TestCheckHealth_QueueDepthWarning(t *testing.T) {
	cfg := HealthConfig{MemoryWarnMB: 500, ErrorRateWarn: 0.1, QueueDepthWarn: 100}
	warnings := CheckHealth(cfg, Snapshot{}, 150)
	assert.Len(t, warnings, 1)
	assert.Equal(t, "queue_depth", warnings[0].Kind)
}

func TestCheckHealth_MultipleWarnings(t *testing.T) {
	cfg := HealthConfig{MemoryWarnMB: 10, ErrorRateWarn: 0.1, QueueDepthWarn: 10}
	snap := Snapshot{UpdateCount: 10, ErrorCount: 10, MemoryBytes: 100 * 1024 * 1024}
	warnings := CheckHealth(cfg, snap, 50)
	assert.Len(t, warnings, 3)
}
