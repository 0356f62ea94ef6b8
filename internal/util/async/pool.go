package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

var (
	// ErrRejected is returned by Submit when the pool is saturated and the policy is Reject.
	ErrRejected = errors.New("task rejected: worker pool saturated")

	// ErrPoolClosed is returned by Submit after Shutdown unless the policy is CallerRuns.
	ErrPoolClosed = errors.New("worker pool is shut down")
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// PoolConfig configures a Pool.
type PoolConfig struct {
	// CoreSize is the number of workers kept alive while idle.
	CoreSize int
	// MaxSize is the upper bound of concurrent workers.
	MaxSize int
	// KeepAlive is how long a worker above CoreSize may stay idle.
	KeepAlive time.Duration
	// QueueCapacity bounds the work queue; 0 means unbounded.
	QueueCapacity int
	// Policy applies when a task cannot be admitted.
	Policy SaturationPolicy
}

// Stats is a point-in-time snapshot of pool activity.
type Stats struct {
	Workers    int
	Idle       int
	Queued     int
	Completed  uint64
	Failed     uint64
	CallerRuns uint64
	Rejected   uint64
	Dropped    uint64
}

type job struct {
	ctx  context.Context
	task Task
}

// Pool is a bounded worker pool. The zero value is not usable; use NewPool.
type Pool struct {
	cfg PoolConfig
	log logr.Logger

	mu        sync.Mutex
	work      *sync.Cond // queue became non-empty, pool closed, or keep-alive expired
	space     *sync.Cond // queue has room or pool closed
	queue     []job
	workers   int
	idle      int
	closed    bool
	stats     Stats
	wg        sync.WaitGroup
	drained   chan struct{}
	drainOnce sync.Once
}

// NewPool validates the configuration and returns a pool with no workers
// started; workers are created on demand by Submit.
func NewPool(cfg PoolConfig, logger logr.Logger) (*Pool, error) {
	if cfg.CoreSize < 1 {
		return nil, fmt.Errorf("core size must be at least 1, got %d", cfg.CoreSize)
	}
	if cfg.MaxSize < cfg.CoreSize {
		return nil, fmt.Errorf("max size %d is smaller than core size %d", cfg.MaxSize, cfg.CoreSize)
	}
	if cfg.QueueCapacity < 0 {
		return nil, fmt.Errorf("queue capacity must not be negative, got %d", cfg.QueueCapacity)
	}
	if _, ok := policyNames[cfg.Policy]; !ok {
		return nil, fmt.Errorf("unknown saturation policy %d", int(cfg.Policy))
	}

	p := &Pool{
		cfg:     cfg,
		log:     logger,
		drained: make(chan struct{}),
	}
	p.work = sync.NewCond(&p.mu)
	p.space = sync.NewCond(&p.mu)
	return p, nil
}

// Submit schedules task for asynchronous execution and normally returns
// immediately. The task runs with a context derived from ctx that is never
// cancelled by the pool. Under the CallerRuns policy a task that cannot be
// admitted runs synchronously before Submit returns.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	j := job{ctx: context.WithoutCancel(ctx), task: task}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return p.saturated(ctx, j, ErrPoolClosed)
	}

	if p.workers < p.cfg.CoreSize {
		p.spawn(&j)
		p.mu.Unlock()
		return nil
	}

	if p.hasRoom() {
		p.enqueue(j)
		p.mu.Unlock()
		return nil
	}

	if p.workers < p.cfg.MaxSize {
		p.spawn(&j)
		p.mu.Unlock()
		return nil
	}

	p.mu.Unlock()
	return p.saturated(ctx, j, ErrRejected)
}

// saturated applies the saturation policy. It must be called without p.mu held.
func (p *Pool) saturated(ctx context.Context, j job, cause error) error {
	switch p.cfg.Policy {
	case CallerRuns:
		p.mu.Lock()
		p.stats.CallerRuns++
		p.mu.Unlock()
		p.log.V(1).Info("pool saturated, running task on caller", "task", j.task.Name, "reason", cause.Error())
		p.run(j)
		return nil

	case Block:
		if errors.Is(cause, ErrPoolClosed) {
			return p.reject(j, cause)
		}
		return p.blockUntilRoom(ctx, j)

	case DropOldest:
		if errors.Is(cause, ErrPoolClosed) {
			return p.reject(j, cause)
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			p.stats.Rejected++
			return ErrPoolClosed
		}
		if !p.hasRoom() && len(p.queue) > 0 {
			dropped := p.queue[0]
			p.queue[0] = job{}
			p.queue = p.queue[1:]
			p.stats.Dropped++
			p.log.Info("pool saturated, dropped oldest queued task", "dropped", dropped.task.Name, "task", j.task.Name)
		}
		p.enqueue(j)
		return nil

	default:
		return p.reject(j, cause)
	}
}

func (p *Pool) reject(j job, cause error) error {
	p.mu.Lock()
	p.stats.Rejected++
	p.mu.Unlock()
	p.log.Info("task rejected", "task", j.task.Name, "reason", cause.Error())
	return cause
}

func (p *Pool) blockUntilRoom(ctx context.Context, j job) error {
	stop := context.AfterFunc(ctx, func() {
		p.mu.Lock()
		p.space.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.closed && !p.hasRoom() && p.workers >= p.cfg.MaxSize {
		if err := ctx.Err(); err != nil {
			p.stats.Rejected++
			return fmt.Errorf("waiting for worker pool capacity: %w", err)
		}
		p.space.Wait()
	}
	if p.closed {
		p.stats.Rejected++
		return ErrPoolClosed
	}
	if p.hasRoom() {
		p.enqueue(j)
	} else {
		p.spawn(&j)
	}
	return nil
}

// hasRoom reports whether the queue can take another task. p.mu must be held.
func (p *Pool) hasRoom() bool {
	return p.cfg.QueueCapacity == 0 || len(p.queue) < p.cfg.QueueCapacity
}

// enqueue appends a job and wakes one worker. p.mu must be held.
func (p *Pool) enqueue(j job) {
	p.queue = append(p.queue, j)
	p.work.Signal()
}

// spawn starts a worker that runs first before polling the queue. p.mu must be held.
func (p *Pool) spawn(first *job) {
	p.workers++
	p.wg.Add(1)
	go p.worker(first)
}

func (p *Pool) worker(first *job) {
	defer p.wg.Done()

	if first != nil {
		p.run(*first)
	}

	p.mu.Lock()
	for {
		var idleSince time.Time
		for len(p.queue) == 0 && !p.closed {
			if p.workers > p.cfg.CoreSize {
				if idleSince.IsZero() {
					idleSince = time.Now()
				}
				remaining := p.cfg.KeepAlive - time.Since(idleSince)
				if remaining <= 0 {
					p.workers--
					p.mu.Unlock()
					return
				}
				timer := time.AfterFunc(remaining, p.wakeWorkers)
				p.waitForWork()
				timer.Stop()
				continue
			}
			p.waitForWork()
		}

		if len(p.queue) == 0 {
			// closed and drained
			p.workers--
			p.mu.Unlock()
			return
		}

		j := p.queue[0]
		p.queue[0] = job{}
		p.queue = p.queue[1:]
		p.space.Signal()
		p.mu.Unlock()

		p.run(j)

		p.mu.Lock()
	}
}

// waitForWork parks the worker on the work condition. p.mu must be held.
func (p *Pool) waitForWork() {
	p.idle++
	p.work.Wait()
	p.idle--
}

func (p *Pool) wakeWorkers() {
	p.mu.Lock()
	p.work.Broadcast()
	p.mu.Unlock()
}

// run executes a task, recovering panics so a worker never dies from one.
func (p *Pool) run(j job) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task %s panicked: %v", j.task.Name, r)
			}
		}()
		err = j.task.Func(j.ctx)
	}()

	p.mu.Lock()
	p.stats.Completed++
	if err != nil {
		p.stats.Failed++
	}
	p.mu.Unlock()

	if err != nil {
		p.log.Error(err, "task failed", "task", j.task.Name)
	}
}

// Shutdown stops accepting tasks and waits until every queued and running
// task has finished or ctx is done. It is safe to call more than once.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		p.work.Broadcast()
		p.space.Broadcast()
		p.log.V(1).Info("worker pool shutting down", "queued", len(p.queue), "workers", p.workers)
	}
	p.mu.Unlock()

	p.drainOnce.Do(func() {
		go func() {
			p.wg.Wait()
			close(p.drained)
		}()
	})

	select {
	case <-p.drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker pool did not drain: %w", ctx.Err())
	}
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Workers = p.workers
	s.Idle = p.idle
	s.Queued = len(p.queue)
	return s
}

// Config returns the pool configuration.
func (p *Pool) Config() PoolConfig {
	return p.cfg
}
