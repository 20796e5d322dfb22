package scaler

import (
	"log/slog"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/metric"
)

// Option configures optional scaler behavior.
type Option func(*scalerOptions)

type scalerOptions struct {
	logger  *slog.Logger
	metrics *metric.Metrics
}

// WithLogger sets the logger used for applied decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(o *scalerOptions) {
		o.logger = logger
	}
}

// WithMetrics records replica counts and scaling events against the shared
// platform metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(o *scalerOptions) {
		o.metrics = m
	}
}

func applyOptions(opts ...Option) *scalerOptions {
	options := &scalerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
