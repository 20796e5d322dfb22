// Package proxy composes the cache, breaker, pool and scaler into the
// resilience layer the serving surface talks to.
//
// Encrypt and Decrypt route through the circuit breaker to the engine pool;
// encrypted results are written back to the ciphertext cache for id lookup.
// Start launches the background control loops: the scaling controller that
// samples load and materializes decisions via pool resizing, the periodic
// health sweep, and the batch worker pool.
package proxy

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/config"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/engine"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/errors"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/health"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/metric"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/pkg/breaker"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/pkg/cache"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/pkg/worker"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/pool"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/scaler"
)

// Proxy owns the resilience components and their control loops.
type Proxy struct {
	config   *config.Config
	logger   *slog.Logger
	registry *metric.MetricsRegistry

	cache   cache.Cache[*engine.Ciphertext]
	breaker *breaker.Breaker
	pool    *pool.Pool
	scaler  *scaler.Scaler
	monitor *health.Monitor
	batch   *worker.Pool[BatchRequest]

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// New builds a proxy from configuration. A nil factory defaults to
// in-process engines.
func New(cfg *config.Config, factory engine.Factory, opts ...Option) (*Proxy, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := applyOptions(opts...)
	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := options.registry
	if registry == nil {
		registry = metric.NewMetricsRegistry()
	}

	ctCache, err := cache.NewFromConfig[*engine.Ciphertext](cfg.Cache,
		cache.WithMetrics[*engine.Ciphertext](registry, "ciphertext"))
	if err != nil {
		return nil, errors.Wrap(err, "Proxy", "New", "cache construction")
	}

	brk, err := breaker.New("engine-pool", cfg.Breaker,
		breaker.WithLogger(logger),
		breaker.WithMetrics(registry))
	if err != nil {
		return nil, errors.Wrap(err, "Proxy", "New", "breaker construction")
	}

	enginePool, err := pool.New(cfg.Pool, factory,
		pool.WithLogger(logger),
		pool.WithMetrics(registry.CoreMetrics()))
	if err != nil {
		return nil, errors.Wrap(err, "Proxy", "New", "pool construction")
	}

	sc, err := scaler.New(cfg.Scaler,
		scaler.WithLogger(logger),
		scaler.WithMetrics(registry.CoreMetrics()))
	if err != nil {
		return nil, errors.Wrap(err, "Proxy", "New", "scaler construction")
	}

	p := &Proxy{
		config:   cfg,
		logger:   logger,
		registry: registry,
		cache:    ctCache,
		breaker:  brk,
		pool:     enginePool,
		scaler:   sc,
		monitor:  health.NewMonitor(),
	}

	p.batch, err = worker.NewPool(
		cfg.Controller.BatchWorkers,
		cfg.Controller.BatchQueueSize,
		p.processBatch,
		worker.WithMetrics[BatchRequest](registry, "batch"))
	if err != nil {
		return nil, errors.Wrap(err, "Proxy", "New", "batch pool construction")
	}

	// Pool starts at the scaler's floor so the first decisions make sense
	if cfg.Pool.Engines != sc.CurrentReplicas() {
		logger.Info("pool size differs from scaler floor",
			"engines", cfg.Pool.Engines,
			"min_replicas", sc.CurrentReplicas())
	}

	return p, nil
}

// Start launches the batch workers and the background control loops.
func (p *Proxy) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.started {
		return errors.Wrap(errors.ErrAlreadyStarted, "Proxy", "Start", "lifecycle")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	if err := p.batch.Start(runCtx); err != nil {
		cancel()
		return errors.Wrap(err, "Proxy", "Start", "batch pool")
	}

	p.wg.Add(2)
	go p.runScalingController(runCtx)
	go p.runHealthSweep(runCtx)

	p.started = true
	p.logger.Info("proxy started",
		"engines", p.pool.Size(),
		"cache", p.config.Cache.Enabled,
		"batch_workers", p.config.Controller.BatchWorkers)
	return nil
}

// Stop cancels the control loops and drains the batch pool.
func (p *Proxy) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started {
		return errors.Wrap(errors.ErrNotStarted, "Proxy", "Stop", "lifecycle")
	}
	if p.stopped {
		return nil
	}

	err := p.batch.Stop(timeout)
	p.cancel()
	p.wg.Wait()

	p.stopped = true
	p.logger.Info("proxy stopped")
	if err != nil {
		return errors.Wrap(err, "Proxy", "Stop", "batch pool drain")
	}
	return nil
}

// Encrypt encrypts plaintext through the breaker-protected pool and writes
// the result back to the ciphertext cache.
func (p *Proxy) Encrypt(ctx context.Context, ownerID uuid.UUID, plaintext []byte) (*engine.Ciphertext, error) {
	ct, err := breaker.DoWithResult(ctx, p.breaker, func(ctx context.Context) (*engine.Ciphertext, error) {
		return p.pool.Encrypt(ctx, ownerID, plaintext)
	})
	if err != nil {
		return nil, err
	}

	if _, err := p.cache.Set(ct.CacheKey(), ct); err != nil {
		// Cache writeback is best effort
		p.logger.Warn("ciphertext cache writeback failed", "error", err)
	}
	return ct, nil
}

// Decrypt decrypts ct through the breaker-protected pool. Plaintexts are
// never cached.
func (p *Proxy) Decrypt(ctx context.Context, ownerID uuid.UUID, ct *engine.Ciphertext) ([]byte, error) {
	return breaker.DoWithResult(ctx, p.breaker, func(ctx context.Context) ([]byte, error) {
		return p.pool.Decrypt(ctx, ownerID, ct)
	})
}

// Ciphertext looks up a previously produced ciphertext by id.
func (p *Proxy) Ciphertext(id uuid.UUID) (*engine.Ciphertext, bool) {
	return p.cache.Get(id.String())
}

// Health returns the aggregated system status.
func (p *Proxy) Health() health.Status {
	return p.monitor.AggregateHealth("fheproxy")
}

// Registry exposes the metrics registry for the serving surface.
func (p *Proxy) Registry() *metric.MetricsRegistry {
	return p.registry
}

// Stats is a point-in-time snapshot across all components.
type Stats struct {
	Cache        *cache.StatsSummary `json:"cache,omitempty"`
	Pool         pool.Stats          `json:"pool"`
	Batch        worker.PoolStats    `json:"batch"`
	BreakerState string              `json:"breaker_state"`
	Replicas     int                 `json:"replicas"`
}

// Stats returns a snapshot of every component's counters.
func (p *Proxy) Stats() Stats {
	s := Stats{
		Pool:         p.pool.Stats(),
		Batch:        p.batch.Stats(),
		BreakerState: p.breaker.State().String(),
		Replicas:     p.scaler.CurrentReplicas(),
	}
	if cs := p.cache.Stats(); cs != nil {
		summary := cs.Summary()
		s.Cache = &summary
	}
	return s
}
