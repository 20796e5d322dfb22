package proxy

import (
	"log/slog"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/metric"
)

// Option configures optional proxy behavior.
type Option func(*proxyOptions)

type proxyOptions struct {
	logger   *slog.Logger
	registry *metric.MetricsRegistry
}

// WithLogger sets the logger shared by all components.
func WithLogger(logger *slog.Logger) Option {
	return func(o *proxyOptions) {
		o.logger = logger
	}
}

// WithRegistry uses an existing metrics registry instead of creating one.
func WithRegistry(registry *metric.MetricsRegistry) Option {
	return func(o *proxyOptions) {
		o.registry = registry
	}
}

func applyOptions(opts ...Option) *proxyOptions {
	options := &proxyOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
