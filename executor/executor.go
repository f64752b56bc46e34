// Package executor implements the fixed worker-pool I/O dispatcher of
// spec §4.H: a bounded queue of blocking-syscall closures drained by a
// fixed set of worker goroutines, with completion futures, idempotent
// shutdown and cancellation that detaches a waiter without aborting
// the underlying job.
//
// Grounded on backend/local's parallel_stat.go (job struct fed down a
// channel, a WaitGroup tracking outstanding work, results flowing back
// on a second channel) generalized from "stat a batch of names" into a
// general-purpose job executor, with golang.org/x/sync/semaphore
// standing in for rclone's fs/accounting concurrency throttling to
// bound the queue, and optional prometheus metrics in the shape of
// rclone's fs/rc/jobs accounting.
package executor

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/ncw/gofs/gfserrors"
)

const scope = "executor"

const (
	KindShutDown = "ExecutorShutDown"
)

var log = logrus.WithField("pkg", "executor")

// ErrShutDown is returned by Submit once shutdown has begun.
var ErrShutDown = gfserrors.New(scope, KindShutDown)

// Job is an opaque blocking unit of work run on a worker goroutine.
type Job func(ctx context.Context) (interface{}, error)

// Config configures an Executor.
type Config struct {
	// Workers is the number of worker goroutines; must be >= 1.
	Workers int
	// QueueCapacity bounds the number of jobs admitted but not yet
	// completed; Submit blocks (respecting ctx) once full.
	QueueCapacity int64
	// Metrics, if non-nil, receives queue-depth/in-flight/completed
	// counters registered under it.
	Metrics *prometheus.Registry
}

// DefaultConfig returns Workers: 1, QueueCapacity: 256, no metrics.
func DefaultConfig() Config {
	return Config{Workers: 1, QueueCapacity: 256}
}

// Future is the completion handle returned by Submit.
type Future struct {
	doneCh chan struct{}
	result interface{}
	err    error
}

// Await blocks until the job completes or ctx is cancelled. Cancelling
// ctx detaches the waiter; it does not abort the in-flight job, which
// runs to completion on its worker with its result simply unread.
func (f *Future) Await(ctx context.Context) (interface{}, error) {
	select {
	case <-f.doneCh:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type metrics struct {
	queueDepth prometheus.Gauge
	inFlight   prometheus.Gauge
	completed  prometheus.Counter
}

func newMetrics(reg *prometheus.Registry) *metrics {
	if reg == nil {
		return nil
	}
	m := &metrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gofs", Subsystem: "executor", Name: "queue_depth",
			Help: "Number of jobs admitted but not yet started.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gofs", Subsystem: "executor", Name: "in_flight",
			Help: "Number of jobs currently running on a worker.",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gofs", Subsystem: "executor", Name: "completed_total",
			Help: "Total number of jobs that have finished running.",
		}),
	}
	reg.MustRegister(m.queueDepth, m.inFlight, m.completed)
	return m
}

type queuedJob struct {
	job    Job
	future *Future
}

// core holds all state a worker goroutine touches. Workers capture
// *core directly rather than the *Executor handle below, so that once
// a caller drops its last reference to the Executor, core is the only
// thing still reachable (kept alive by the running workers) and the
// Executor value itself can be finalized — see the finalizer note on
// New.
type core struct {
	sem     *semaphore.Weighted
	jobs    chan queuedJob
	metrics *metrics

	mu             sync.Mutex
	shuttingDown   bool
	inflight       sync.WaitGroup
	workers        sync.WaitGroup
	closeOnce      sync.Once
	shutdownCalled int32 // atomic; set as soon as Shutdown is called
}

// Executor is a fixed worker-pool that runs Jobs off the calling
// goroutine. The zero value is not usable; construct with New.
type Executor struct {
	c *core
}

// New constructs and starts an Executor per cfg.
func New(cfg Config) *Executor {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueCapacity < 1 {
		cfg.QueueCapacity = 1
	}
	c := &core{
		sem:     semaphore.NewWeighted(cfg.QueueCapacity),
		jobs:    make(chan queuedJob, cfg.QueueCapacity),
		metrics: newMetrics(cfg.Metrics),
	}
	c.workers.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go c.worker()
	}
	e := &Executor{c: c}
	// A caller that drops its last reference to e without calling
	// Shutdown leaks cfg.Workers goroutines parked on "range c.jobs".
	// The finalizer must live on e, not c: each worker goroutine holds
	// c alive directly (it never references e), so e — and only e —
	// becomes unreachable once the caller drops it, letting the
	// finalizer fire per spec §4.H ("must log and forcibly close
	// threads; it must not deadlock program exit").
	runtime.SetFinalizer(e, (*Executor).finalizeLeaked)
	return e
}

// Submit enqueues job, blocking (respecting ctx) until the bounded
// queue admits it. Returns ErrShutDown if shutdown has begun or races
// with this call.
func (e *Executor) Submit(ctx context.Context, job Job) (*Future, error) {
	return e.c.submit(ctx, job)
}

func (c *core) submit(ctx context.Context, job Job) (*Future, error) {
	c.mu.Lock()
	if c.shuttingDown {
		c.mu.Unlock()
		return nil, ErrShutDown
	}
	c.inflight.Add(1)
	c.mu.Unlock()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		c.inflight.Done()
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.queueDepth.Inc()
	}

	future := &Future{doneCh: make(chan struct{})}
	c.jobs <- queuedJob{job: job, future: future}
	return future, nil
}

func (c *core) worker() {
	defer c.workers.Done()
	for qj := range c.jobs {
		if c.metrics != nil {
			c.metrics.queueDepth.Dec()
			c.metrics.inFlight.Inc()
		}
		result, err := qj.job(context.Background())
		qj.future.result = result
		qj.future.err = err
		close(qj.future.doneCh)
		c.sem.Release(1)
		if c.metrics != nil {
			c.metrics.inFlight.Dec()
			c.metrics.completed.Inc()
		}
		c.inflight.Done()
	}
}

// Shutdown signals the executor to stop admitting new jobs, drains
// every already-admitted job to completion, and joins all workers.
// Idempotent: concurrent and repeated calls all block until the same
// single shutdown finishes.
func (e *Executor) Shutdown() {
	atomic.StoreInt32(&e.c.shutdownCalled, 1)
	e.c.shutdown()
}

func (c *core) shutdown() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.shuttingDown = true
		c.mu.Unlock()

		c.inflight.Wait()
		close(c.jobs)
		c.workers.Wait()
		log.Debug("executor shutdown complete")
	})
}

// finalizeLeaked is installed as e's finalizer in New. It only acts if
// the Executor is garbage-collected without Shutdown ever having been
// called: it logs the leak and force-closes the job channel so the
// parked workers exit, without waiting on in-flight work the way
// Shutdown does (nothing remains to observe the result).
func (e *Executor) finalizeLeaked() {
	if atomic.LoadInt32(&e.c.shutdownCalled) != 0 {
		return
	}
	log.Warn("executor garbage-collected without Shutdown; forcibly closing workers")
	e.c.closeOnce.Do(func() {
		e.c.mu.Lock()
		e.c.shuttingDown = true
		e.c.mu.Unlock()
		close(e.c.jobs)
	})
}
