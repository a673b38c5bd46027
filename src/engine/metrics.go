package engine

import (
	"runtime"
	"time"

	"tabledit/src/models"
)

// metricsTracker accumulates the rolling calculation counters. The engine is
// single-threaded by contract, so the tracker keeps plain fields.
type metricsTracker struct {
	lastFieldMs  float64
	lastTotalsMs float64

	windowStart time.Time
	windowCount int
	perSecond   float64

	errorCount        int64
	thresholdBreaches int64
}

func newMetricsTracker() *metricsTracker {
	return &metricsTracker{windowStart: time.Now()}
}

func (m *metricsTracker) recordField(elapsed time.Duration) {
	m.lastFieldMs = float64(elapsed.Microseconds()) / 1000.0
	m.tick()
}

func (m *metricsTracker) recordTotals(elapsed time.Duration) {
	m.lastTotalsMs = float64(elapsed.Microseconds()) / 1000.0
	m.tick()
}

func (m *metricsTracker) recordError() {
	m.errorCount++
}

func (m *metricsTracker) recordBreach() {
	m.thresholdBreaches++
}

// tick maintains the calculations-per-second rate over a one second window.
func (m *metricsTracker) tick() {
	now := time.Now()
	if now.Sub(m.windowStart) >= time.Second {
		m.perSecond = float64(m.windowCount) / now.Sub(m.windowStart).Seconds()
		m.windowStart = now
		m.windowCount = 0
	}
	m.windowCount++
}

// snapshot renders the current counters, sampling heap usage on the way out.
func (m *metricsTracker) snapshot() models.CalculationMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return models.CalculationMetrics{
		IndividualCalculationTimeMs: m.lastFieldMs,
		TotalCalculationTimeMs:      m.lastTotalsMs,
		CalculationsPerSecond:       m.perSecond,
		ErrorCount:                  m.errorCount,
		ThresholdBreaches:           m.thresholdBreaches,
		MemoryUsageMb:               float64(mem.HeapAlloc) / (1024 * 1024),
	}
}
