package watch

import (
	"context"
	"errors"

	iacawsv1 "github.com/imamik/iacaws/api/v1"
)

// ErrPositionExpired is reported when the server no longer serves events from
// the requested position. The next subscription starts from the current state.
var ErrPositionExpired = errors.New("watch position expired")

// EventType tags an Event.
type EventType string

const (
	EventAdded    EventType = "Added"
	EventModified EventType = "Modified"
	EventDeleted  EventType = "Deleted"
	EventError    EventType = "Error"
	// EventBookmark carries only a position.
	EventBookmark EventType = "Bookmark"
)

// Event is one change notification.
type Event struct {
	Type EventType
	// Resource is the snapshot for Added, Modified and Deleted events.
	Resource *iacawsv1.IaCAWS
	// Err is the cause of an Error event.
	Err error
	// Position identifies the event in the stream. It may be empty.
	Position string
}

// Subscription is an open event stream. The channel is closed when the stream
// terminates for any reason.
type Subscription interface {
	Events() <-chan Event
	// Stop terminates the stream. It is safe to call more than once.
	Stop()
}

// Source opens subscriptions to IaCAWS change events.
type Source interface {
	// Subscribe opens a stream starting after position, or at the current
	// state when position is empty.
	Subscribe(ctx context.Context, position string) (Subscription, error)
}
