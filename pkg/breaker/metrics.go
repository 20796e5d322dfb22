package breaker

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/metric"
)

// breakerMetrics holds Prometheus metrics for one breaker instance.
type breakerMetrics struct {
	state      prometheus.Gauge
	trips      prometheus.Counter
	rejections prometheus.Counter
}

// newBreakerMetrics creates and registers breaker metrics with the provided registry.
func newBreakerMetrics(registry *metric.MetricsRegistry, name string) (*breakerMetrics, error) {
	m := &breakerMetrics{
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "fheproxy",
			Subsystem:   "breaker",
			Name:        "state",
			ConstLabels: prometheus.Labels{"breaker": name},
			Help:        "Current breaker state (0=closed, 1=open, 2=half-open)",
		}),
		trips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "fheproxy",
			Subsystem:   "breaker",
			Name:        "trips_total",
			ConstLabels: prometheus.Labels{"breaker": name},
			Help:        "Total number of transitions into the open state",
		}),
		rejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "fheproxy",
			Subsystem:   "breaker",
			Name:        "rejections_total",
			ConstLabels: prometheus.Labels{"breaker": name},
			Help:        "Total number of calls rejected while open",
		}),
	}

	if err := registry.RegisterGauge(name, "breaker_state", m.state); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(name, "breaker_trips", m.trips); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(name, "breaker_rejections", m.rejections); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *breakerMetrics) recordState(s State) { m.state.Set(float64(s)) }
func (m *breakerMetrics) recordTrip()         { m.trips.Inc() }
func (m *breakerMetrics) recordRejection()    { m.rejections.Inc() }
