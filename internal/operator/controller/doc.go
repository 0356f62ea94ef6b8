// Package controller runs the IaCAWS watch/reconcile loop inside a
// controller-runtime manager.
//
// [Controller] owns the worker pool and the watch supervisor. It is added to
// the manager as a Runnable: Start blocks until the manager stops or the watch
// gives up reconnecting. On the way out the subscription is stopped first and
// the pool is drained afterwards, so reconciliations already dispatched run to
// completion.
package controller
