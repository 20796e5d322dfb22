// Package breaker provides a circuit breaker that protects an unhealthy
// downstream resource from being hammered by failing calls.
//
// The breaker wraps any fallible operation. After a configured number of
// consecutive failures it trips open and rejects calls immediately without
// executing them. Once the open timeout elapses, the next call is allowed
// through as a trial (half-open); enough trial successes close the breaker
// again, any trial failure re-opens it.
//
// Only the breaker's bookkeeping is serialized - the wrapped operation runs
// outside the critical section, so protected work proceeds in parallel.
package breaker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/errors"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed is normal operation; calls pass through.
	StateClosed State = iota
	// StateOpen rejects all calls without executing them.
	StateOpen
	// StateHalfOpen allows trial calls to probe recovery.
	StateHalfOpen
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config provides circuit breaker configuration.
type Config struct {
	// FailureThreshold is the number of failures that trips the breaker open.
	FailureThreshold int `json:"failure_threshold" yaml:"failure_threshold"`

	// SuccessThreshold is the number of half-open successes that closes the breaker.
	SuccessThreshold int `json:"success_threshold" yaml:"success_threshold"`

	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration `json:"open_timeout" yaml:"open_timeout"`
}

// DefaultConfig returns sensible defaults for protecting engine calls.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.FailureThreshold <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "breaker", "Validate",
			"failure_threshold must be positive")
	}
	if c.SuccessThreshold <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "breaker", "Validate",
			"success_threshold must be positive")
	}
	if c.OpenTimeout <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "breaker", "Validate",
			"open_timeout must be positive")
	}
	return nil
}

// Breaker is a circuit breaker instance. All methods are safe for
// concurrent use.
type Breaker struct {
	name   string
	config Config
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time // last transition into StateOpen

	metrics *breakerMetrics
}

// New creates a circuit breaker with the given name and configuration.
func New(name string, config Config, opts ...Option) (*Breaker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	b := &Breaker{
		name:   name,
		config: config,
		logger: slog.Default(),
		state:  StateClosed,
	}

	options := applyOptions(opts...)
	if options.logger != nil {
		b.logger = options.logger
	}
	if options.metricsReg != nil {
		m, err := newBreakerMetrics(options.metricsReg, name)
		if err != nil {
			return nil, err
		}
		b.metrics = m
		b.metrics.recordState(StateClosed)
	}

	return b, nil
}

// Do executes op through the breaker. While the breaker is open, op is never
// invoked and errors.ErrCircuitOpen is returned. Otherwise op's own error is
// passed through unchanged and counted against the breaker's thresholds.
func (b *Breaker) Do(ctx context.Context, op func(context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}

	// The operation runs outside the breaker's critical section
	err := op(ctx)
	b.record(err == nil)
	return err
}

// DoWithResult executes op through breaker b and returns its result.
func DoWithResult[T any](ctx context.Context, b *Breaker, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := b.Do(ctx, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = op(ctx)
		return innerErr
	})
	return result, err
}

// State returns the current breaker state, applying the lazy open-timeout
// transition so observers see half-open once the timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && time.Since(b.openedAt) >= b.config.OpenTimeout {
		b.toHalfOpen()
	}
	return b.state
}

// Name returns the breaker's name.
func (b *Breaker) Name() string {
	return b.name
}

// Counts returns the current failure and success counters.
func (b *Breaker) Counts() (failures, successes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures, b.successes
}

// allow decides whether a call may proceed, performing the lazy
// open-to-half-open transition.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if time.Since(b.openedAt) < b.config.OpenTimeout {
			if b.metrics != nil {
				b.metrics.recordRejection()
			}
			return errors.WrapTransient(errors.ErrCircuitOpen, "Breaker", "Do", b.name)
		}
		b.toHalfOpen()
	}
	return nil
}

// record updates counters and state after a completed call.
func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.successes++
		if b.state == StateHalfOpen && b.successes >= b.config.SuccessThreshold {
			b.toClosed()
		}
		return
	}

	if b.state == StateHalfOpen {
		// Any half-open failure re-opens immediately
		b.failures = b.config.FailureThreshold
		b.toOpen()
		return
	}

	b.failures++
	if b.failures >= b.config.FailureThreshold {
		b.toOpen()
	}
}

// toOpen transitions to StateOpen. Must be called with the mutex held.
func (b *Breaker) toOpen() {
	b.state = StateOpen
	b.openedAt = time.Now()
	b.logger.Warn("circuit breaker opened",
		"breaker", b.name,
		"failures", b.failures)
	if b.metrics != nil {
		b.metrics.recordState(StateOpen)
		b.metrics.recordTrip()
	}
}

// toHalfOpen transitions to StateHalfOpen. Must be called with the mutex held.
func (b *Breaker) toHalfOpen() {
	b.state = StateHalfOpen
	b.successes = 0
	b.logger.Info("circuit breaker half-open", "breaker", b.name)
	if b.metrics != nil {
		b.metrics.recordState(StateHalfOpen)
	}
}

// toClosed transitions to StateClosed, resetting both counters.
func (b *Breaker) toClosed() {
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
	b.logger.Info("circuit breaker closed", "breaker", b.name)
	if b.metrics != nil {
		b.metrics.recordState(StateClosed)
	}
}
