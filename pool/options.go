package pool

import (
	"log/slog"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/metric"
)

// Option configures optional pool behavior.
type Option func(*poolOptions)

type poolOptions struct {
	logger  *slog.Logger
	metrics *metrics
}

// WithLogger sets the logger used for dispatch and scaling events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *poolOptions) {
		o.logger = logger
	}
}

// WithMetrics records pool activity against the shared platform metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(o *poolOptions) {
		o.metrics = &metrics{core: m}
	}
}

func applyOptions(opts ...Option) *poolOptions {
	options := &poolOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
