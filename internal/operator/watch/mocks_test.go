package watch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	iacawsv1 "github.com/imamik/iacaws/api/v1"
	"github.com/imamik/iacaws/internal/util/async"
)

// MockSubscription is a Subscription backed by a channel the test controls.
type MockSubscription struct {
	ch      chan Event
	stopped atomic.Bool
}

func newMockSubscription(events ...Event) *MockSubscription {
	s := &MockSubscription{ch: make(chan Event, len(events)+8)}
	for _, ev := range events {
		s.ch <- ev
	}
	return s
}

// closedSubscription returns a subscription that delivers events and then terminates.
func closedSubscription(events ...Event) *MockSubscription {
	s := newMockSubscription(events...)
	close(s.ch)
	return s
}

func (s *MockSubscription) Events() <-chan Event { return s.ch }

func (s *MockSubscription) Stop() { s.stopped.Store(true) }

func (s *MockSubscription) Stopped() bool { return s.stopped.Load() }

// subscribeResult is one scripted answer of MockSource.
type subscribeResult struct {
	sub Subscription
	err error
}

// MockSource answers Subscribe calls from a script. Once the script is
// exhausted every call fails.
type MockSource struct {
	mu sync.Mutex

	results []subscribeResult

	// Call tracking
	SubscribeCalls []string
}

func (m *MockSource) Subscribe(ctx context.Context, position string) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SubscribeCalls = append(m.SubscribeCalls, position)
	if len(m.results) == 0 {
		return nil, errors.New("connection refused")
	}
	r := m.results[0]
	m.results = m.results[1:]
	if r.err != nil {
		return nil, r.err
	}
	return r.sub, nil
}

func (m *MockSource) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.SubscribeCalls...)
}

func script(results ...subscribeResult) *MockSource {
	return &MockSource{results: results}
}

func accept(sub Subscription) subscribeResult { return subscribeResult{sub: sub} }

func refuse(msg string) subscribeResult { return subscribeResult{err: errors.New(msg)} }

// MockDispatcher runs tasks synchronously unless SubmitFunc overrides it.
type MockDispatcher struct {
	mu sync.Mutex

	SubmitFunc func(ctx context.Context, task async.Task) error

	SubmitCalls []string
}

func (m *MockDispatcher) Submit(ctx context.Context, task async.Task) error {
	m.mu.Lock()
	m.SubmitCalls = append(m.SubmitCalls, task.Name)
	m.mu.Unlock()

	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, task)
	}
	return task.Func(ctx)
}

func (m *MockDispatcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.SubmitCalls...)
}

// recordingHandler remembers every snapshot it reconciles.
type recordingHandler struct {
	mu        sync.Mutex
	resources []*iacawsv1.IaCAWS
}

func (h *recordingHandler) Handle(ctx context.Context, resource *iacawsv1.IaCAWS) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resources = append(h.resources, resource)
	return nil
}

func (h *recordingHandler) Keys() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	keys := make([]string, 0, len(h.resources))
	for _, r := range h.resources {
		keys = append(keys, r.Key())
	}
	return keys
}

func (h *recordingHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.resources)
}

// delayRecorder is a WaitFunc that records delays without sleeping.
type delayRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (d *delayRecorder) Wait(ctx context.Context, delay time.Duration) error {
	d.mu.Lock()
	d.delays = append(d.delays, delay)
	d.mu.Unlock()
	return ctx.Err()
}

func (d *delayRecorder) Delays() []time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Duration(nil), d.delays...)
}

func newResource(name string, generation, observed int64) *iacawsv1.IaCAWS {
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
	r.Generation = generation
	r.Status.ObservedGeneration = observed
	return r
}

func added(r *iacawsv1.IaCAWS) Event {
	return Event{Type: EventAdded, Resource: r, Position: r.ResourceVersion}
}

func modified(r *iacawsv1.IaCAWS) Event {
	return Event{Type: EventModified, Resource: r, Position: r.ResourceVersion}
}
