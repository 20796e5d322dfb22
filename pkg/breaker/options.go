package breaker

import (
	"log/slog"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/metric"
)

// Option configures optional breaker behavior.
type Option func(*breakerOptions)

// breakerOptions holds optional configuration applied at construction.
type breakerOptions struct {
	logger     *slog.Logger
	metricsReg *metric.MetricsRegistry
}

// WithLogger sets the logger used for state transition events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *breakerOptions) {
		o.logger = logger
	}
}

// WithMetrics enables Prometheus metrics registered against the given registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *breakerOptions) {
		o.metricsReg = registry
	}
}

func applyOptions(opts ...Option) *breakerOptions {
	options := &breakerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
