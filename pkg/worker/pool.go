// Package worker provides a generic worker pool used for batched
// encrypt/decrypt processing. Submission is non-blocking: when the queue
// is full the work item is dropped and the caller told, so a slow engine
// backlog surfaces as backpressure instead of unbounded memory growth.
//
// The queue depth doubles as the load signal the autoscaler samples.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/metric"
)

// Pool processes work items of type T on a fixed set of workers.
type Pool[T any] struct {
	workers   int
	queueSize int
	processor func(context.Context, T) error

	queue   chan T
	metrics *poolMetrics
	wg      *sync.WaitGroup

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool

	submitted atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// poolMetrics holds Prometheus metrics for one worker pool.
type poolMetrics struct {
	queueDepth     prometheus.Gauge
	submitted      prometheus.Counter
	processed      prometheus.Counter
	failed         prometheus.Counter
	dropped        prometheus.Counter
	processingTime *prometheus.HistogramVec
}

// Option represents a configuration option for the worker pool
type Option[T any] func(*Pool[T]) error

// WithMetrics registers pool metrics with the given registry under prefix.
func WithMetrics[T any](registry *metric.MetricsRegistry, prefix string) Option[T] {
	return func(p *Pool[T]) error {
		m, err := newPoolMetrics(registry, prefix)
		if err != nil {
			return err
		}
		p.metrics = m
		return nil
	}
}

// NewPool creates a worker pool running processor on workers goroutines.
func NewPool[T any](workers, queueSize int, processor func(context.Context, T) error, opts ...Option[T]) (*Pool[T], error) {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if processor == nil {
		return nil, ErrNilProcessor
	}

	pool := &Pool[T]{
		workers:   workers,
		queueSize: queueSize,
		processor: processor,
		queue:     make(chan T, queueSize),
	}

	for _, opt := range opts {
		if err := opt(pool); err != nil {
			return nil, err
		}
	}
	return pool, nil
}

func newPoolMetrics(registry *metric.MetricsRegistry, prefix string) (*poolMetrics, error) {
	labels := prometheus.Labels{"pool": prefix}
	m := &poolMetrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "fheproxy",
			Subsystem:   "worker",
			Name:        "queue_depth",
			ConstLabels: labels,
			Help:        "Current worker pool queue depth",
		}),
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "fheproxy",
			Subsystem:   "worker",
			Name:        "submitted_total",
			ConstLabels: labels,
			Help:        "Total work items submitted",
		}),
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "fheproxy",
			Subsystem:   "worker",
			Name:        "processed_total",
			ConstLabels: labels,
			Help:        "Total work items processed",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "fheproxy",
			Subsystem:   "worker",
			Name:        "failed_total",
			ConstLabels: labels,
			Help:        "Total work items that failed processing",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "fheproxy",
			Subsystem:   "worker",
			Name:        "dropped_total",
			ConstLabels: labels,
			Help:        "Total work items dropped due to full queue",
		}),
		processingTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "fheproxy",
			Subsystem:   "worker",
			Name:        "processing_duration_seconds",
			ConstLabels: labels,
			Help:        "Time spent processing work items",
			Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"status"}),
	}

	if err := registry.RegisterGauge(prefix, "worker_queue_depth", m.queueDepth); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "worker_submitted", m.submitted); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "worker_processed", m.processed); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "worker_failed", m.failed); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "worker_dropped", m.dropped); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec(prefix, "worker_processing_duration", m.processingTime); err != nil {
		return nil, err
	}
	return m, nil
}

// Submit submits work to the pool. Returns ErrQueueFull if the queue is at
// capacity; the item is dropped, never queued partially.
func (p *Pool[T]) Submit(work T) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started {
		return ErrPoolNotStarted
	}
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.queue <- work:
		p.submitted.Add(1)
		if p.metrics != nil {
			p.metrics.submitted.Inc()
			p.metrics.queueDepth.Set(float64(len(p.queue)))
		}
		return nil
	default:
		p.dropped.Add(1)
		if p.metrics != nil {
			p.metrics.dropped.Inc()
		}
		return ErrQueueFull
	}
}

// Start launches the workers. The context cancels all in-flight processing.
func (p *Pool[T]) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.started {
		return ErrPoolAlreadyStarted
	}

	p.wg = &sync.WaitGroup{}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}

	p.started = true
	return nil
}

// Stop drains the queue and waits up to timeout for workers to finish.
func (p *Pool[T]) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started || p.stopped {
		return nil
	}

	close(p.queue)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		p.stopped = true
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// QueueDepth returns the number of queued, not yet processed items.
func (p *Pool[T]) QueueDepth() int {
	return len(p.queue)
}

// Stats returns current pool statistics
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Workers:    p.workers,
		QueueSize:  p.queueSize,
		QueueDepth: len(p.queue),
		Submitted:  p.submitted.Load(),
		Processed:  p.processed.Load(),
		Failed:     p.failed.Load(),
		Dropped:    p.dropped.Load(),
	}
}

// PoolStats represents worker pool statistics
type PoolStats struct {
	Workers    int   `json:"workers"`
	QueueSize  int   `json:"queue_size"`
	QueueDepth int   `json:"queue_depth"`
	Submitted  int64 `json:"submitted"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	Dropped    int64 `json:"dropped"`
}

// worker processes items from the queue until the queue closes or the
// context is cancelled.
func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case work, ok := <-p.queue:
			if !ok {
				return
			}

			start := time.Now()
			err := p.processor(ctx, work)
			duration := time.Since(start)

			p.processed.Add(1)
			if err != nil {
				p.failed.Add(1)
			}

			if p.metrics != nil {
				p.metrics.processed.Inc()
				p.metrics.queueDepth.Set(float64(len(p.queue)))
				status := "success"
				if err != nil {
					p.metrics.failed.Inc()
					status = "error"
				}
				p.metrics.processingTime.WithLabelValues(status).Observe(duration.Seconds())
			}
		}
	}
}
