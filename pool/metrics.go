package pool

import (
	"strconv"
	"time"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/metric"
)

// metrics adapts the shared platform metrics to pool-shaped recordings.
type metrics struct {
	core *metric.Metrics
}

func (m *metrics) recordOperation(operation, status string, elapsed time.Duration) {
	m.core.RecordOperation(operation, status)
	m.core.RecordOperationDuration(operation, elapsed)
}

func (m *metrics) recordPoolSize(engines int) {
	m.core.RecordPoolSize(engines)
}

func (m *metrics) recordEngineHealth(engineID int, healthy bool) {
	m.core.RecordEngineHealth(strconv.Itoa(engineID), healthy)
}
