package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/moby/locker"
	"sigs.k8s.io/controller-runtime/pkg/log"

	iacawsv1 "github.com/imamik/iacaws/api/v1"
	"github.com/imamik/iacaws/internal/util/async"
	"github.com/imamik/iacaws/internal/util/retry"
)

// ErrReconnectExhausted is returned by Run when every resubscription attempt
// of an episode failed.
var ErrReconnectExhausted = errors.New("watch reconnect attempts exhausted")

var errStreamClosed = errors.New("event stream closed")

// Dispatcher schedules tasks. *async.Pool implements it.
type Dispatcher interface {
	Submit(ctx context.Context, task async.Task) error
}

// Handler reconciles one resource snapshot. The snapshot is owned by the
// handler.
type Handler func(ctx context.Context, resource *iacawsv1.IaCAWS) error

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Supervisor keeps one subscription open and dispatches a task for every
// Added and Modified event.
type Supervisor struct {
	source     Source
	dispatcher Dispatcher
	handler    Handler

	backoff        retry.Config
	wait           WaitFunc
	skipStatusOnly bool
	skipResynced   bool
	locks          *locker.Locker
	log            logr.Logger
	enableMetrics  bool

	state atomic.Int32

	// position is only touched by the Run goroutine.
	position string

	runOnce sync.Once
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithBackoff sets the reconnect policy.
func WithBackoff(cfg retry.Config) Option {
	return func(s *Supervisor) {
		s.backoff = cfg
	}
}

// WithWait replaces the function used to wait between reconnect attempts.
func WithWait(wait WaitFunc) Option {
	return func(s *Supervisor) {
		s.wait = wait
	}
}

// WithSkipStatusOnlyUpdates drops Modified events whose generation has
// already been observed by a previous reconciliation.
func WithSkipStatusOnlyUpdates(enabled bool) Option {
	return func(s *Supervisor) {
		s.skipStatusOnly = enabled
	}
}

// WithSkipProvisionedOnResync drops Added events for resources whose
// current generation is already Provisioned. The API server replays every
// existing object as Added after a restart or an expired position; without
// this option each replay provisions the resource again.
func WithSkipProvisionedOnResync(enabled bool) Option {
	return func(s *Supervisor) {
		s.skipResynced = enabled
	}
}

// WithSerializePerResource makes tasks for the same resource run one at a time.
func WithSerializePerResource(enabled bool) Option {
	return func(s *Supervisor) {
		if enabled {
			s.locks = locker.New()
		} else {
			s.locks = nil
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logr.Logger) Option {
	return func(s *Supervisor) {
		s.log = logger
	}
}

// WithMetrics enables or disables prometheus metrics.
func WithMetrics(enabled bool) Option {
	return func(s *Supervisor) {
		s.enableMetrics = enabled
	}
}

// WithInitialPosition resumes the first subscription from position.
func WithInitialPosition(position string) Option {
	return func(s *Supervisor) {
		s.position = position
	}
}

// NewSupervisor creates a Supervisor that reads from source and submits
// handler invocations to dispatcher.
func NewSupervisor(source Source, dispatcher Dispatcher, handler Handler, opts ...Option) *Supervisor {
	s := &Supervisor{
		source:        source,
		dispatcher:    dispatcher,
		handler:       handler,
		backoff:       retry.DefaultConfig(),
		wait:          retry.Wait,
		log:           logr.Discard(),
		enableMetrics: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(int32(StateDisconnected))
	return s
}

// State returns the current connection state. It is safe for concurrent use.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Position returns the last stream position seen. It must not be called
// concurrently with Run.
func (s *Supervisor) Position() string {
	return s.position
}

// Run subscribes and processes events until ctx is cancelled, in which case
// it returns nil, or until reconnection is exhausted, in which case it
// returns an error wrapping ErrReconnectExhausted. Run may only be called once.
func (s *Supervisor) Run(ctx context.Context) error {
	started := false
	s.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("supervisor already started")
	}

	ctx = log.IntoContext(ctx, s.log)

	sub, err := s.source.Subscribe(ctx, s.position)
	if err != nil {
		s.log.Error(err, "initial watch subscription failed")
		s.forgetExpiredPosition(err)
		sub, err = s.reconnect(ctx)
	}

	for err == nil {
		s.setState(StateConnected)
		s.log.Info("watching IaCAWS resources", "position", s.position)

		cause := s.consume(ctx, sub)
		sub.Stop()

		if ctx.Err() != nil {
			break
		}
		s.log.Info("watch stream terminated, reconnecting", "reason", cause.Error(), "position", s.position)
		sub, err = s.reconnect(ctx)
	}

	if ctx.Err() != nil {
		s.setState(StateShutdown)
		s.log.Info("watch supervisor stopped")
		return nil
	}
	return err
}

// reconnect runs one reconnect episode. The backoff starts over every episode.
func (s *Supervisor) reconnect(ctx context.Context) (Subscription, error) {
	s.setState(StateReconnecting)
	b := retry.NewBackoff(retry.WithConfig(s.backoff))

	var lastErr error
	for {
		delay, ok := b.Next()
		if !ok {
			s.setState(StateFailed)
			s.log.Error(lastErr, "giving up on watch stream", "attempts", b.Attempts())
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrReconnectExhausted, b.Attempts(), lastErr)
		}

		s.log.V(1).Info("waiting before resubscribe", "attempt", b.Attempts(), "delay", delay)
		if err := s.wait(ctx, delay); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.recordReconnectAttempt()
		sub, err := s.source.Subscribe(ctx, s.position)
		if err == nil {
			s.log.Info("watch stream re-established", "attempt", b.Attempts())
			return sub, nil
		}

		lastErr = err
		s.forgetExpiredPosition(err)
		s.log.Error(err, "resubscribe failed",
			"attempt", b.Attempts(),
			"maxAttempts", b.Config().MaxAttempts,
		)
	}
}

// consume reads events until the stream terminates or ctx is done and
// returns why it stopped.
func (s *Supervisor) consume(ctx context.Context, sub Subscription) error {
	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				return errStreamClosed
			}
			if ev.Position != "" {
				s.position = ev.Position
			}
			s.recordEvent(ev.Type)

			switch ev.Type {
			case EventAdded, EventModified:
				s.handle(ctx, ev)
			case EventDeleted:
				if ev.Resource != nil {
					s.log.V(1).Info("ignoring deleted resource", "resource", ev.Resource.Key())
				}
			case EventBookmark:
			case EventError:
				s.forgetExpiredPosition(ev.Err)
				if ev.Err == nil {
					return errors.New("watch error event")
				}
				return ev.Err
			default:
				s.log.V(1).Info("ignoring unknown event type", "type", ev.Type)
			}
		}
	}
}

func (s *Supervisor) handle(ctx context.Context, ev Event) {
	if ev.Resource == nil {
		return
	}
	key := ev.Resource.Key()

	if s.skipStatusOnly && ev.Type == EventModified && ev.Resource.StatusObserved() {
		s.log.V(1).Info("skipping update without spec change", "resource", key, "generation", ev.Resource.Generation)
		s.recordSkipped()
		return
	}

	if s.skipResynced && ev.Type == EventAdded && ev.Resource.Provisioned() {
		s.log.V(1).Info("skipping already provisioned resource", "resource", key, "generation", ev.Resource.Generation)
		s.recordSkipped()
		return
	}

	snapshot := ev.Resource.DeepCopy()
	task := async.Task{
		Name: "reconcile " + key,
		Func: func(taskCtx context.Context) error {
			if s.locks != nil {
				s.locks.Lock(key)
				defer func() { _ = s.locks.Unlock(key) }()
			}
			return s.handler(taskCtx, snapshot)
		},
	}

	s.log.V(1).Info("dispatching reconciliation", "resource", key, "event", ev.Type, "generation", snapshot.Generation)
	if err := s.dispatcher.Submit(ctx, task); err != nil {
		s.recordDispatchError()
		s.log.Error(err, "failed to dispatch reconciliation", "resource", key)
	}
}

func (s *Supervisor) forgetExpiredPosition(err error) {
	if err != nil && errors.Is(err, ErrPositionExpired) {
		s.log.Info("watch position expired, resuming from current state", "position", s.position)
		s.position = ""
	}
}

func (s *Supervisor) setState(state State) {
	prev := State(s.state.Swap(int32(state)))
	if prev != state {
		s.log.V(1).Info("watch state changed", "from", prev.String(), "to", state.String())
		s.recordState(state)
	}
}
