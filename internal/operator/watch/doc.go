// Package watch turns a stream of IaCAWS change events into reconciliation
// tasks and keeps that stream alive.
//
// A [Source] opens one [Subscription] per call and never reconnects by itself.
// The [Supervisor] owns the active subscription: it dispatches a task for every
// Added or Modified event, ignores deletions, and when the stream terminates it
// resubscribes from the last position seen, waiting an exponentially growing
// delay before each attempt. After the configured number of failed attempts
// it stops with [ErrReconnectExhausted].
//
// [KubernetesSource] implements Source on top of a controller-runtime
// client.WithWatch.
package watch
