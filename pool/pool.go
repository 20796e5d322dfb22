// Package pool provides a connection pool of encryption engines with
// balanced dispatch, health checking and dynamic resizing.
//
// The pool owns N independent engine instances built from one factory.
// Operations are spread round-robin across engines, a global semaphore
// bounds in-flight operations, and per-engine counters feed Stats().
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/engine"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/errors"
)

const defaultHealthCheckTimeout = 5 * time.Second

// Config provides connection pool configuration.
type Config struct {
	// Engines is the initial number of engine instances.
	Engines int `json:"engines" yaml:"engines"`

	// MaxConcurrentOps bounds in-flight operations across all engines.
	MaxConcurrentOps int64 `json:"max_concurrent_ops" yaml:"max_concurrent_ops"`

	// Params is the encryption parameter set shared by all engines.
	Params engine.Params `json:"params" yaml:"params"`
}

// DefaultConfig returns a default pool configuration.
func DefaultConfig() Config {
	return Config{
		Engines:          4,
		MaxConcurrentOps: 64,
		Params:           engine.DefaultParams(),
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Engines < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "pool", "Validate",
			fmt.Sprintf("engines must be at least 1, got %d", c.Engines))
	}
	if c.MaxConcurrentOps < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "pool", "Validate",
			fmt.Sprintf("max_concurrent_ops must be at least 1, got %d", c.MaxConcurrentOps))
	}
	if err := c.Params.Validate(); err != nil {
		return err
	}
	return nil
}

// pooledEngine wraps an engine with its dispatch bookkeeping. The mutex
// serializes calls into the engine; the counter is read lock-free by Stats.
type pooledEngine struct {
	eng engine.Engine
	mu  sync.Mutex
	ops atomic.Uint64
}

// Pool is a fixed-membership, resizable pool of engines. All methods are
// safe for concurrent use.
type Pool struct {
	config Config
	logger *slog.Logger

	factory engine.Factory

	mu      sync.RWMutex // guards engines and nextID
	engines []*pooledEngine
	nextID  int

	next   atomic.Uint64 // round-robin cursor
	total  atomic.Uint64
	active atomic.Int64
	sem    *semaphore.Weighted

	metrics *metrics
}

// New creates a pool of config.Engines instances built from factory.
// A nil factory defaults to in-process engines using config.Params.
func New(config Config, factory engine.Factory, opts ...Option) (*Pool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		factory = engine.NewLocalFactory(config.Params)
	}

	p := &Pool{
		config:  config,
		logger:  slog.Default(),
		factory: factory,
		sem:     semaphore.NewWeighted(config.MaxConcurrentOps),
	}

	options := applyOptions(opts...)
	if options.logger != nil {
		p.logger = options.logger
	}
	p.metrics = options.metrics

	for i := 0; i < config.Engines; i++ {
		eng, err := factory(i)
		if err != nil {
			return nil, errors.Wrap(err, "Pool", "New",
				fmt.Sprintf("engine %d initialization failed", i))
		}
		p.engines = append(p.engines, &pooledEngine{eng: eng})
		p.logger.Info("initialized engine in pool", "engine", i)
	}
	p.nextID = config.Engines

	if p.metrics != nil {
		p.metrics.recordPoolSize(config.Engines)
	}
	return p, nil
}

// Encrypt encrypts plaintext on the next engine in round-robin order.
// The engine's error, if any, is returned unchanged.
func (p *Pool) Encrypt(ctx context.Context, ownerID uuid.UUID, plaintext []byte) (*engine.Ciphertext, error) {
	var ct *engine.Ciphertext
	err := p.dispatch(ctx, "encrypt", func(ctx context.Context, eng engine.Engine) error {
		var innerErr error
		ct, innerErr = eng.Encrypt(ctx, ownerID, plaintext)
		return innerErr
	})
	return ct, err
}

// Decrypt decrypts ct on the next engine in round-robin order.
// The engine's error, if any, is returned unchanged.
func (p *Pool) Decrypt(ctx context.Context, ownerID uuid.UUID, ct *engine.Ciphertext) ([]byte, error) {
	var plaintext []byte
	err := p.dispatch(ctx, "decrypt", func(ctx context.Context, eng engine.Engine) error {
		var innerErr error
		plaintext, innerErr = eng.Decrypt(ctx, ownerID, ct)
		return innerErr
	})
	return plaintext, err
}

// dispatch acquires a concurrency permit, picks an engine round-robin and
// runs op against it under the engine's mutex.
func (p *Pool) dispatch(ctx context.Context, operation string, op func(context.Context, engine.Engine) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return errors.WrapTransient(err, "Pool", "dispatch", "concurrency permit")
	}
	defer p.sem.Release(1)

	pe, idx := p.pick()
	if pe == nil {
		return errors.Wrap(errors.ErrNoEngines, "Pool", "dispatch", operation)
	}

	p.total.Add(1)
	p.active.Add(1)
	pe.ops.Add(1)
	start := time.Now()

	pe.mu.Lock()
	err := op(ctx, pe.eng)
	pe.mu.Unlock()

	elapsed := time.Since(start)
	p.active.Add(-1)

	if p.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		p.metrics.recordOperation(operation, status, elapsed)
	}

	p.logger.Debug("dispatched operation",
		"operation", operation,
		"engine", idx,
		"duration", elapsed,
		"error", err != nil)
	return err
}

// pick returns the next engine in round-robin order and its slot index.
func (p *Pool) pick() (*pooledEngine, int) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.engines) == 0 {
		return nil, -1
	}
	idx := int(p.next.Add(1)-1) % len(p.engines)
	return p.engines[idx], idx
}

// Size returns the current number of engines in the pool.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.engines)
}

// HealthCheck pings every engine concurrently and returns one result per
// engine, in pool order. An unhealthy engine never blocks the others.
func (p *Pool) HealthCheck(ctx context.Context) []bool {
	p.mu.RLock()
	engines := make([]*pooledEngine, len(p.engines))
	copy(engines, p.engines)
	p.mu.RUnlock()

	results := make([]bool, len(engines))
	g := new(errgroup.Group)

	for i, pe := range engines {
		i, pe := i, pe
		g.Go(func() error {
			pingCtx, cancel := context.WithTimeout(ctx, defaultHealthCheckTimeout)
			defer cancel()

			pe.mu.Lock()
			err := pe.eng.Ping(pingCtx)
			pe.mu.Unlock()

			results[i] = err == nil
			if err != nil {
				p.logger.Warn("engine failed health check",
					"engine", pe.eng.ID(),
					"error", err)
			}
			if p.metrics != nil {
				p.metrics.recordEngineHealth(pe.eng.ID(), err == nil)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Resize grows or shrinks the pool to target engines. Growth builds new
// instances from the factory; shrinking drops engines from the tail. The
// pool never goes below one engine.
func (p *Pool) Resize(ctx context.Context, target int) error {
	if target < 1 {
		return errors.WrapInvalid(errors.ErrInvalidData, "Pool", "Resize",
			fmt.Sprintf("target must be at least 1, got %d", target))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	current := len(p.engines)
	switch {
	case target > current:
		for i := current; i < target; i++ {
			eng, err := p.factory(p.nextID)
			if err != nil {
				p.logger.Error("engine creation failed during scale up",
					"engine", p.nextID,
					"error", err)
				return errors.Wrap(err, "Pool", "Resize", "engine initialization failed")
			}
			p.engines = append(p.engines, &pooledEngine{eng: eng})
			p.nextID++
		}
		p.logger.Info("pool scaled up", "from", current, "to", target)
	case target < current:
		p.engines = p.engines[:target]
		p.logger.Info("pool scaled down", "from", current, "to", target)
	}

	if p.metrics != nil {
		p.metrics.recordPoolSize(len(p.engines))
	}
	return nil
}
