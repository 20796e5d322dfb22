// Package scaler decides when the engine pool should grow or shrink.
//
// Evaluate is cheap and side-effect-free apart from cooldown gating, so a
// controller can dry-run decisions on every tick; Apply mutates the replica
// count and starts the cooldown. Decisions are single-step so one bad
// reading never causes a large jump.
package scaler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/errors"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/metric"
)

// Action is the kind of scaling decision.
type Action int

const (
	// ActionNone holds the current replica count.
	ActionNone Action = iota
	// ActionScaleUp grows the replica count by one.
	ActionScaleUp
	// ActionScaleDown shrinks the replica count by one.
	ActionScaleDown
)

// String returns the string representation of Action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionScaleUp:
		return "scale-up"
	case ActionScaleDown:
		return "scale-down"
	default:
		return "unknown"
	}
}

// Decision is the outcome of one evaluation tick.
type Decision struct {
	Action Action
	From   int
	To     int
	Reason string
}

// Metrics is a load snapshot fed into Evaluate by an observability
// collaborator once per tick.
type Metrics struct {
	CPUUtilization    float64       `json:"cpu_utilization"`
	MemoryUtilization float64       `json:"memory_utilization"`
	QueueLength       int           `json:"queue_length"`
	ActiveConnections int           `json:"active_connections"`
	ResponseTimeP95   time.Duration `json:"response_time_p95"`
}

// SignalPolicy selects how CPU and queue signals combine into the
// high-load classification.
type SignalPolicy string

const (
	// PolicyAny scales up when either signal crosses its threshold.
	PolicyAny SignalPolicy = "any"
	// PolicyAll scales up only when both signals cross their thresholds.
	PolicyAll SignalPolicy = "all"
)

// Config provides autoscaler configuration.
type Config struct {
	// TargetCPUPercent is the utilization the scaler steers towards.
	TargetCPUPercent float64 `json:"target_cpu_percent" yaml:"target_cpu_percent"`

	// QueueLengthThreshold is the queue depth treated as high load.
	QueueLengthThreshold int `json:"queue_length_threshold" yaml:"queue_length_threshold"`

	// ScaleUpThreshold is the CPU percentage above which load is high.
	// Zero defaults to 1.2x the target.
	ScaleUpThreshold float64 `json:"scale_up_threshold" yaml:"scale_up_threshold"`

	// ScaleDownThreshold is the CPU percentage below which load is low.
	// Zero defaults to 0.6x the target.
	ScaleDownThreshold float64 `json:"scale_down_threshold" yaml:"scale_down_threshold"`

	// MinReplicas and MaxReplicas bound the replica count.
	MinReplicas int `json:"min_replicas" yaml:"min_replicas"`
	MaxReplicas int `json:"max_replicas" yaml:"max_replicas"`

	// Cooldown is the minimum interval between applied decisions.
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown"`

	// SignalPolicy combines the CPU and queue signals; empty defaults to any.
	SignalPolicy SignalPolicy `json:"signal_policy" yaml:"signal_policy"`
}

// DefaultConfig returns a default autoscaler configuration.
func DefaultConfig() Config {
	return Config{
		TargetCPUPercent:     70,
		QueueLengthThreshold: 10,
		MinReplicas:          1,
		MaxReplicas:          8,
		Cooldown:             time.Minute,
		SignalPolicy:         PolicyAny,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.TargetCPUPercent <= 0 || c.TargetCPUPercent > 100 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "scaler", "Validate",
			fmt.Sprintf("target_cpu_percent must be in (0, 100], got %g", c.TargetCPUPercent))
	}
	if c.QueueLengthThreshold < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "scaler", "Validate",
			fmt.Sprintf("queue_length_threshold must be at least 1, got %d", c.QueueLengthThreshold))
	}
	if c.MinReplicas < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "scaler", "Validate",
			fmt.Sprintf("min_replicas must be at least 1, got %d", c.MinReplicas))
	}
	if c.MaxReplicas < c.MinReplicas {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "scaler", "Validate",
			fmt.Sprintf("max_replicas %d below min_replicas %d", c.MaxReplicas, c.MinReplicas))
	}
	if c.Cooldown <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "scaler", "Validate",
			fmt.Sprintf("cooldown must be positive, got %v", c.Cooldown))
	}
	switch c.SignalPolicy {
	case "", PolicyAny, PolicyAll:
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "scaler", "Validate",
			fmt.Sprintf("unknown signal policy: %s", c.SignalPolicy))
	}
	return nil
}

// withDefaults fills derived thresholds that were left zero.
func (c Config) withDefaults() Config {
	if c.ScaleUpThreshold == 0 {
		c.ScaleUpThreshold = c.TargetCPUPercent * 1.2
	}
	if c.ScaleDownThreshold == 0 {
		c.ScaleDownThreshold = c.TargetCPUPercent * 0.6
	}
	if c.SignalPolicy == "" {
		c.SignalPolicy = PolicyAny
	}
	return c
}

// Scaler holds the replica state machine. All methods are safe for
// concurrent use.
type Scaler struct {
	config Config
	logger *slog.Logger

	mu        sync.Mutex
	current   int
	lastScale time.Time // zero until the first applied decision

	metrics *metric.Metrics
}

// New creates a scaler starting at MinReplicas.
func New(config Config, opts ...Option) (*Scaler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	s := &Scaler{
		config:  config,
		logger:  slog.Default(),
		current: config.MinReplicas,
	}

	options := applyOptions(opts...)
	if options.logger != nil {
		s.logger = options.logger
	}
	s.metrics = options.metrics
	if s.metrics != nil {
		s.metrics.RecordDesiredReplicas(s.current)
	}
	return s, nil
}

// Evaluate classifies the load snapshot into a single-step decision.
// During the cooldown window after an applied decision it always holds.
func (s *Scaler) Evaluate(m Metrics) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lastScale.IsZero() && time.Since(s.lastScale) < s.config.Cooldown {
		return Decision{Action: ActionNone, From: s.current, To: s.current, Reason: "cooldown"}
	}

	reason := fmt.Sprintf("CPU: %.1f%%, Queue: %d", m.CPUUtilization, m.QueueLength)

	if s.highLoad(m) && s.current < s.config.MaxReplicas {
		return Decision{
			Action: ActionScaleUp,
			From:   s.current,
			To:     s.current + 1,
			Reason: reason,
		}
	}

	if s.lowLoad(m) && s.current > s.config.MinReplicas {
		return Decision{
			Action: ActionScaleDown,
			From:   s.current,
			To:     s.current - 1,
			Reason: reason,
		}
	}

	return Decision{Action: ActionNone, From: s.current, To: s.current, Reason: reason}
}

// highLoad applies the configured signal policy to the CPU and queue signals.
func (s *Scaler) highLoad(m Metrics) bool {
	cpuHigh := m.CPUUtilization > s.config.ScaleUpThreshold
	queueHigh := m.QueueLength > s.config.QueueLengthThreshold
	if s.config.SignalPolicy == PolicyAll {
		return cpuHigh && queueHigh
	}
	return cpuHigh || queueHigh
}

// lowLoad requires both signals comfortably low before shrinking.
func (s *Scaler) lowLoad(m Metrics) bool {
	return m.CPUUtilization < s.config.ScaleDownThreshold &&
		m.QueueLength < s.config.QueueLengthThreshold/2
}

// Apply materializes a decision, enforcing the replica bounds even for
// decisions the scaler did not produce itself. NoAction always succeeds.
func (s *Scaler) Apply(d Decision) error {
	if d.Action == ActionNone {
		return nil
	}
	if d.To < s.config.MinReplicas || d.To > s.config.MaxReplicas {
		return errors.WrapInvalid(errors.ErrBoundsViolation, "Scaler", "Apply",
			fmt.Sprintf("target %d outside [%d, %d]", d.To, s.config.MinReplicas, s.config.MaxReplicas))
	}

	s.mu.Lock()
	s.current = d.To
	s.lastScale = time.Now()
	s.mu.Unlock()

	s.logger.Info("applied scaling decision",
		"action", d.Action.String(),
		"from", d.From,
		"to", d.To,
		"reason", d.Reason)
	if s.metrics != nil {
		s.metrics.RecordDesiredReplicas(d.To)
		s.metrics.RecordScalingEvent(d.Action.String())
	}
	return nil
}

// CurrentReplicas returns the desired replica count.
func (s *Scaler) CurrentReplicas() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
