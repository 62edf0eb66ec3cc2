package daemon

import "fmt"

// HealthWarning is one threshold violation surfaced by a health check.
type HealthWarning struct {
	Kind    string
	Message string
}

// CheckHealth evaluates the supervisor's current metrics and queue
// depth against cfg's thresholds, grounded on
// _examples/original_source/tools/codegraphd.py's health_check
// (500MB memory threshold) and generalized to the error-rate and
// queue-depth thresholds SPEC_FULL.md also names.
func CheckHealth(cfg HealthConfig, snap Snapshot, queueDepth int) []HealthWarning {
	var warnings []HealthWarning

	memMB := snap.MemoryBytes / (1024 * 1024)
	if int(memMB) > cfg.MemoryWarnMB {
		warnings = append(warnings, HealthWarning{
			Kind:    "memory",
			Message: fmt.Sprintf("memory usage %dMB exceeds threshold %dMB", memMB, cfg.MemoryWarnMB),
		})
	}

	if snap.UpdateCount > 0 {
		errorRate := float64(snap.ErrorCount) / float64(snap.UpdateCount)
		if errorRate > cfg.ErrorRateWarn {
			warnings = append(warnings, HealthWarning{
				Kind:    "error_rate",
				Message: fmt.Sprintf("error rate %.2f exceeds threshold %.2f", errorRate, cfg.ErrorRateWarn),
			})
		}
	}

	if queueDepth > cfg.QueueDepthWarn {
		warnings = append(warnings, HealthWarning{
			Kind:    "queue_depth",
			Message: fmt.Sprintf("queue depth %d exceeds threshold %d", queueDepth, cfg.QueueDepthWarn),
		})
	}

	return warnings
}
