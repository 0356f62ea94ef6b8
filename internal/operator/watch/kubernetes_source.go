package watch

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	apiwatch "k8s.io/apimachinery/pkg/watch"
	"sigs.k8s.io/controller-runtime/pkg/client"

	iacawsv1 "github.com/imamik/iacaws/api/v1"
)

// KubernetesSource watches IaCAWS objects through the Kubernetes API.
type KubernetesSource struct {
	client    client.WithWatch
	namespace string
}

// NewKubernetesSource creates a source watching namespace, or all namespaces
// when namespace is empty.
func NewKubernetesSource(c client.WithWatch, namespace string) *KubernetesSource {
	return &KubernetesSource{client: c, namespace: namespace}
}

// Subscribe implements Source. The subscription is stopped when ctx is done.
func (s *KubernetesSource) Subscribe(ctx context.Context, position string) (Subscription, error) {
	opts := []client.ListOption{
		&client.ListOptions{Raw: &metav1.ListOptions{
			ResourceVersion:     position,
			AllowWatchBookmarks: true,
		}},
	}
	if s.namespace != "" {
		opts = append(opts, client.InNamespace(s.namespace))
	}

	w, err := s.client.Watch(ctx, &iacawsv1.IaCAWSList{}, opts...)
	if err != nil {
		if isExpired(err) {
			return nil, fmt.Errorf("%w: %w", ErrPositionExpired, err)
		}
		return nil, fmt.Errorf("failed to watch %s: %w", iacawsv1.Resource, err)
	}

	sub := &kubernetesSubscription{
		watcher: w,
		events:  make(chan Event),
		stop:    make(chan struct{}),
	}
	stopOnCancel := context.AfterFunc(ctx, sub.Stop)
	go func() {
		defer stopOnCancel()
		sub.run()
	}()
	return sub, nil
}

type kubernetesSubscription struct {
	watcher  apiwatch.Interface
	events   chan Event
	stop     chan struct{}
	stopOnce sync.Once
}

func (s *kubernetesSubscription) Events() <-chan Event {
	return s.events
}

func (s *kubernetesSubscription) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.watcher.Stop()
	})
}

func (s *kubernetesSubscription) run() {
	defer close(s.events)

	results := s.watcher.ResultChan()
	for {
		select {
		case <-s.stop:
			return
		case raw, ok := <-results:
			if !ok {
				return
			}
			ev := translate(raw)
			select {
			case s.events <- ev:
			case <-s.stop:
				return
			}
			if ev.Type == EventError {
				s.Stop()
				return
			}
		}
	}
}

// translate converts an API server watch event.
func translate(raw apiwatch.Event) Event {
	switch raw.Type {
	case apiwatch.Added, apiwatch.Modified, apiwatch.Deleted:
		resource, err := toIaCAWS(raw.Object)
		if err != nil {
			return Event{Type: EventError, Err: err}
		}
		return Event{
			Type:     eventTypes[raw.Type],
			Resource: resource,
			Position: resource.ResourceVersion,
		}

	case apiwatch.Bookmark:
		ev := Event{Type: EventBookmark}
		if accessor, err := meta.Accessor(raw.Object); err == nil {
			ev.Position = accessor.GetResourceVersion()
		}
		return ev

	case apiwatch.Error:
		err := apierrors.FromObject(raw.Object)
		if isExpired(err) {
			err = fmt.Errorf("%w: %w", ErrPositionExpired, err)
		}
		return Event{Type: EventError, Err: err}

	default:
		return Event{Type: EventError, Err: fmt.Errorf("unexpected watch event type %q", raw.Type)}
	}
}

var eventTypes = map[apiwatch.EventType]EventType{
	apiwatch.Added:    EventAdded,
	apiwatch.Modified: EventModified,
	apiwatch.Deleted:  EventDeleted,
}

func toIaCAWS(obj runtime.Object) (*iacawsv1.IaCAWS, error) {
	switch o := obj.(type) {
	case *iacawsv1.IaCAWS:
		return o, nil
	case *unstructured.Unstructured:
		resource := &iacawsv1.IaCAWS{}
		if err := runtime.DefaultUnstructuredConverter.FromUnstructured(o.Object, resource); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", iacawsv1.Resource, err)
		}
		return resource, nil
	default:
		return nil, fmt.Errorf("unexpected object %T in %s watch", obj, iacawsv1.Resource)
	}
}

func isExpired(err error) bool {
	if apierrors.IsResourceExpired(err) || apierrors.IsGone(err) {
		return true
	}
	if status, ok := err.(apierrors.APIStatus); ok {
		return status.Status().Code == http.StatusGone
	}
	return false
}
