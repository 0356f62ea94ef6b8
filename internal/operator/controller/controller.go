package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/controller-runtime/pkg/manager"

	iacawsv1 "github.com/imamik/iacaws/api/v1"
	"github.com/imamik/iacaws/internal/operator/provisioning"
	"github.com/imamik/iacaws/internal/operator/watch"
	"github.com/imamik/iacaws/internal/util/async"
	"github.com/imamik/iacaws/internal/util/retry"
)

const defaultStatsInterval = 15 * time.Second

// Reconciler runs one reconciliation. *provisioning.Reconciler implements it.
type Reconciler interface {
	Reconcile(ctx context.Context, resource *iacawsv1.IaCAWS) provisioning.Outcome
}

// Config holds the tunables of the watch/reconcile loop.
type Config struct {
	Pool    async.PoolConfig
	Backoff retry.Config

	// SkipStatusOnlyUpdates drops Modified events for generations that
	// were already reconciled.
	SkipStatusOnlyUpdates bool
	// SkipProvisionedOnResync drops replayed Added events for resources
	// whose current generation is already Provisioned.
	SkipProvisionedOnResync bool
	// SerializePerResource runs at most one reconciliation per resource at a time.
	SerializePerResource bool
	// DrainTimeout bounds how long shutdown waits for dispatched work; 0 waits forever.
	DrainTimeout time.Duration
}

// Controller is a manager.Runnable driving the IaCAWS watch/reconcile loop.
type Controller struct {
	cfg        Config
	reconciler Reconciler
	pool       *async.Pool
	supervisor *watch.Supervisor
	log        logr.Logger

	enableMetrics bool
	statsInterval time.Duration
	extraOpts     []watch.Option

	started atomic.Bool
}

var (
	_ manager.Runnable               = (*Controller)(nil)
	_ manager.LeaderElectionRunnable = (*Controller)(nil)
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger logr.Logger) Option {
	return func(c *Controller) {
		c.log = logger
	}
}

// WithMetrics enables or disables prometheus metrics.
func WithMetrics(enabled bool) Option {
	return func(c *Controller) {
		c.enableMetrics = enabled
	}
}

// WithStatsInterval sets how often pool statistics are exported.
func WithStatsInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.statsInterval = d
	}
}

// WithSupervisorOptions passes extra options to the watch supervisor.
func WithSupervisorOptions(opts ...watch.Option) Option {
	return func(c *Controller) {
		c.extraOpts = append(c.extraOpts, opts...)
	}
}

// NewController wires a pool and a supervisor reading from source.
func NewController(source watch.Source, reconciler Reconciler, cfg Config, opts ...Option) (*Controller, error) {
	c := &Controller{
		cfg:           cfg,
		reconciler:    reconciler,
		log:           logr.Discard(),
		enableMetrics: true,
		statsInterval: defaultStatsInterval,
	}
	for _, opt := range opts {
		opt(c)
	}

	pool, err := async.NewPool(cfg.Pool, c.log.WithName("pool"))
	if err != nil {
		return nil, fmt.Errorf("invalid worker pool configuration: %w", err)
	}
	c.pool = pool

	supervisorOpts := []watch.Option{
		watch.WithBackoff(cfg.Backoff),
		watch.WithSkipStatusOnlyUpdates(cfg.SkipStatusOnlyUpdates),
		watch.WithSkipProvisionedOnResync(cfg.SkipProvisionedOnResync),
		watch.WithSerializePerResource(cfg.SerializePerResource),
		watch.WithLogger(c.log.WithName("watch")),
		watch.WithMetrics(c.enableMetrics),
	}
	c.supervisor = watch.NewSupervisor(source, pool, c.reconcile, append(supervisorOpts, c.extraOpts...)...)

	return c, nil
}

// Start runs until ctx is cancelled or the watch cannot be re-established.
// It returns an error wrapping watch.ErrReconnectExhausted in the latter case.
func (c *Controller) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("controller already started")
	}

	c.log.Info("starting IaCAWS controller",
		"coreWorkers", c.cfg.Pool.CoreSize,
		"maxWorkers", c.cfg.Pool.MaxSize,
		"saturationPolicy", c.cfg.Pool.Policy.String(),
		"maxReconnectAttempts", c.cfg.Backoff.MaxAttempts,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.supervisor.Run(gctx)
	})
	if c.enableMetrics {
		g.Go(func() error {
			c.exportStats(gctx)
			return nil
		})
	}
	runErr := g.Wait()

	// The supervisor has stopped its subscription; let dispatched work finish.
	drainCtx := context.Background()
	if c.cfg.DrainTimeout > 0 {
		var cancel context.CancelFunc
		drainCtx, cancel = context.WithTimeout(drainCtx, c.cfg.DrainTimeout)
		defer cancel()
	}
	stats := c.pool.Stats()
	c.log.Info("draining worker pool", "queued", stats.Queued, "workers", stats.Workers)
	if err := c.pool.Shutdown(drainCtx); err != nil {
		c.log.Error(err, "worker pool did not drain")
	}
	c.recordPoolStats(c.pool.Stats())

	if runErr != nil {
		c.log.Error(runErr, "IaCAWS controller stopped")
		return runErr
	}
	c.log.Info("IaCAWS controller stopped")
	return nil
}

// NeedLeaderElection implements manager.LeaderElectionRunnable. Only the
// leader provisions.
func (c *Controller) NeedLeaderElection() bool {
	return true
}

// ReadyCheck is a healthz.Checker. Before Start it passes, since a replica
// waiting for leadership never starts the watch; afterwards it passes while
// the watch is connected.
func (c *Controller) ReadyCheck(_ *http.Request) error {
	if !c.started.Load() {
		return nil
	}
	if state := c.supervisor.State(); state != watch.StateConnected {
		return fmt.Errorf("watch is %s", state)
	}
	return nil
}

// LiveCheck is a healthz.Checker that fails once the watch has given up.
func (c *Controller) LiveCheck(_ *http.Request) error {
	if state := c.supervisor.State(); state == watch.StateFailed {
		return fmt.Errorf("watch is %s", state)
	}
	return nil
}

// State returns the watch state.
func (c *Controller) State() watch.State {
	return c.supervisor.State()
}

// Stats returns worker pool statistics.
func (c *Controller) Stats() async.Stats {
	return c.pool.Stats()
}

func (c *Controller) reconcile(ctx context.Context, resource *iacawsv1.IaCAWS) error {
	outcome := c.reconciler.Reconcile(ctx, resource)
	return outcome.Cause
}

func (c *Controller) exportStats(ctx context.Context) {
	ticker := time.NewTicker(c.statsInterval)
	defer ticker.Stop()

	for {
		c.recordPoolStats(c.pool.Stats())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
