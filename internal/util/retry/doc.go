// Package retry provides exponential backoff for reconnect loops and for
// transient failures.
//
// [Backoff] hands out the delay before each attempt of one retry episode and
// reports when the attempt ceiling is reached; [Backoff.Reset] starts a fresh
// episode. [WithExponentialBackoff] wraps a whole operation in the same policy.
// [Wait] is the context-aware sleep used between attempts.
package retry
