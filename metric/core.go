package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all platform-level metrics (not component-specific)
type Metrics struct {
	// Engine operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ErrorsTotal       *prometheus.CounterVec

	// Pool metrics
	EngineHealth *prometheus.GaugeVec
	PoolEngines  prometheus.Gauge

	// Scaling metrics
	DesiredReplicas prometheus.Gauge
	ScalingEvents   *prometheus.CounterVec

	// Resilience metrics
	BreakerState *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fheproxy",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Total number of engine operations",
			},
			[]string{"operation", "status"},
		),

		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fheproxy",
				Subsystem: "engine",
				Name:      "operation_duration_seconds",
				Help:      "Engine operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fheproxy",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"component", "type"},
		),

		EngineHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "fheproxy",
				Subsystem: "pool",
				Name:      "engine_health",
				Help:      "Engine liveness (0=unhealthy, 1=healthy)",
			},
			[]string{"engine"},
		),

		PoolEngines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "fheproxy",
				Subsystem: "pool",
				Name:      "engines",
				Help:      "Current number of engine instances in the pool",
			},
		),

		DesiredReplicas: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "fheproxy",
				Subsystem: "scaler",
				Name:      "desired_replicas",
				Help:      "Desired replica count decided by the autoscaler",
			},
		),

		ScalingEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fheproxy",
				Subsystem: "scaler",
				Name:      "events_total",
				Help:      "Total number of applied scaling events",
			},
			[]string{"direction"},
		),

		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "fheproxy",
				Subsystem: "breaker",
				Name:      "state",
				Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"breaker"},
		),
	}
}

// RecordOperation increments the engine operation counter
func (c *Metrics) RecordOperation(operation, status string) {
	c.OperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordOperationDuration records how long an engine operation took
func (c *Metrics) RecordOperationDuration(operation string, duration time.Duration) {
	c.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordError increments the error counter
func (c *Metrics) RecordError(component, errorType string) {
	c.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordEngineHealth updates engine liveness
func (c *Metrics) RecordEngineHealth(engine string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.EngineHealth.WithLabelValues(engine).Set(value)
}

// RecordPoolSize updates the pool engine count
func (c *Metrics) RecordPoolSize(engines int) {
	c.PoolEngines.Set(float64(engines))
}

// RecordDesiredReplicas updates the autoscaler's desired replica gauge
func (c *Metrics) RecordDesiredReplicas(replicas int) {
	c.DesiredReplicas.Set(float64(replicas))
}

// RecordScalingEvent increments the applied scaling event counter
func (c *Metrics) RecordScalingEvent(direction string) {
	c.ScalingEvents.WithLabelValues(direction).Inc()
}

// RecordBreakerState updates the circuit breaker state gauge
func (c *Metrics) RecordBreakerState(breaker string, state int) {
	c.BreakerState.WithLabelValues(breaker).Set(float64(state))
}
