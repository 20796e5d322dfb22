package proxy

import (
	"context"
	"fmt"
	"time"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/health"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/pkg/breaker"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/scaler"
)

// runScalingController samples load on a cadence, evaluates the scaler and
// materializes applied decisions by resizing the engine pool.
func (p *Proxy) runScalingController(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Controller.EvaluateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.evaluateScaling(ctx)
		}
	}
}

// evaluateScaling runs one controller tick.
func (p *Proxy) evaluateScaling(ctx context.Context) {
	m := p.sampleLoad()

	decision := p.scaler.Evaluate(m)
	if decision.Action == scaler.ActionNone {
		return
	}

	if err := p.scaler.Apply(decision); err != nil {
		p.logger.Error("scaling apply failed",
			"action", decision.Action.String(),
			"to", decision.To,
			"error", err)
		return
	}

	if err := p.pool.Resize(ctx, decision.To); err != nil {
		p.logger.Error("pool resize failed",
			"target", decision.To,
			"error", err)
		return
	}

	p.logger.Info("scaling decision materialized",
		"action", decision.Action.String(),
		"from", decision.From,
		"to", decision.To,
		"reason", decision.Reason)
}

// sampleLoad builds the load snapshot the scaler consumes. Concurrency
// saturation stands in for CPU utilization: in-flight operations against
// the pool's permit budget.
func (p *Proxy) sampleLoad() scaler.Metrics {
	stats := p.pool.Stats()

	utilization := 0.0
	if p.config.Pool.MaxConcurrentOps > 0 {
		utilization = float64(stats.ActiveOperations) / float64(p.config.Pool.MaxConcurrentOps) * 100
	}

	return scaler.Metrics{
		CPUUtilization:    utilization,
		QueueLength:       p.batch.QueueDepth(),
		ActiveConnections: int(stats.ActiveOperations),
	}
}

// runHealthSweep periodically pings every engine and feeds the monitor.
func (p *Proxy) runHealthSweep(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Controller.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweepHealth(ctx)
		}
	}
}

// sweepHealth runs one health tick across pool, breaker and cache.
func (p *Proxy) sweepHealth(ctx context.Context) {
	results := p.pool.HealthCheck(ctx)
	p.monitor.Update("pool", health.FromPoolSweep("pool", results))

	switch p.breaker.State() {
	case breaker.StateOpen:
		p.monitor.UpdateUnhealthy("breaker", "circuit open")
	case breaker.StateHalfOpen:
		p.monitor.UpdateDegraded("breaker", "circuit probing recovery")
	default:
		p.monitor.UpdateHealthy("breaker", "circuit closed")
	}

	if stats := p.cache.Stats(); stats != nil {
		summary := stats.Summary()
		p.monitor.UpdateHealthy("cache",
			fmt.Sprintf("%d entries, %.0f%% hit ratio", summary.CurrentSize, summary.HitRatio*100))
	}

	status := p.Health()
	if !status.IsHealthy() {
		p.logger.Warn("health sweep", "status", status.Status, "message", status.Message)
	}
}
