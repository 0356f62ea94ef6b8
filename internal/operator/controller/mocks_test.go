package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	iacawsv1 "github.com/imamik/iacaws/api/v1"
	"github.com/imamik/iacaws/internal/operator/provisioning"
	"github.com/imamik/iacaws/internal/operator/watch"
	"github.com/imamik/iacaws/internal/util/async"
	"github.com/imamik/iacaws/internal/util/retry"
)

// MockReconciler is a mock implementation of Reconciler for testing.
type MockReconciler struct {
	mu sync.Mutex

	ReconcileFunc func(ctx context.Context, resource *iacawsv1.IaCAWS) provisioning.Outcome

	ReconcileCalls []string
	finished       int
}

func (m *MockReconciler) Reconcile(ctx context.Context, resource *iacawsv1.IaCAWS) provisioning.Outcome {
	m.mu.Lock()
	m.ReconcileCalls = append(m.ReconcileCalls, resource.Key())
	m.mu.Unlock()

	outcome := provisioning.Succeeded(provisioning.Details{NetworkID: "vpc-1", InstanceID: "i-1", DBInstanceID: "db-1"})
	if m.ReconcileFunc != nil {
		outcome = m.ReconcileFunc(ctx, resource)
	}

	m.mu.Lock()
	m.finished++
	m.mu.Unlock()
	return outcome
}

func (m *MockReconciler) Started() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ReconcileCalls)
}

func (m *MockReconciler) Finished() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished
}

// MockSubscription delivers a fixed set of events and then stays open
// unless closed.
type MockSubscription struct {
	ch chan watch.Event
}

func newSubscription(closed bool, events ...watch.Event) *MockSubscription {
	s := &MockSubscription{ch: make(chan watch.Event, len(events))}
	for _, ev := range events {
		s.ch <- ev
	}
	if closed {
		close(s.ch)
	}
	return s
}

func (s *MockSubscription) Events() <-chan watch.Event { return s.ch }

func (s *MockSubscription) Stop() {}

// MockSource returns scripted subscriptions, then fails.
type MockSource struct {
	mu   sync.Mutex
	subs []watch.Subscription
}

func (m *MockSource) Subscribe(ctx context.Context, position string) (watch.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.subs) == 0 {
		return nil, errors.New("apiserver unreachable")
	}
	sub := m.subs[0]
	m.subs = m.subs[1:]
	return sub, nil
}

func testConfig() Config {
	return Config{
		Pool: async.PoolConfig{
			CoreSize:  2,
			MaxSize:   4,
			KeepAlive: time.Second,
			Policy:    async.CallerRuns,
		},
		Backoff: retry.Config{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2,
		},
	}
}

func newResource(name string) *iacawsv1.IaCAWS {
	r := &iacawsv1.IaCAWS{
		Spec: iacawsv1.IaCAWSSpec{
			VPCCIDRBlock:    "10.0.0.0/16",
			EC2InstanceType: "t2.micro",
			RDSInstanceType: "db.t3.micro",
			RDSInstanceName: name + "-db",
			DBUsername:      "admin",
			DBPassword:      "secret",
		},
	}
	r.Name = name
	r.Namespace = "default"
	r.Generation = 1
	return r
}

func noWait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
