// Package async provides a bounded worker pool for running tasks concurrently.
//
// [Pool] keeps a core set of workers, grows up to a maximum under queue
// pressure, and retires idle workers above the core size after a keep-alive.
// When it cannot admit a task, because the queue is full at maximum size or
// the pool has been shut down, the configured [SaturationPolicy] decides what
// happens: reject, block, run on the caller, or drop the oldest queued task.
//
// Shutdown stops admission and drains: queued and running tasks finish,
// task contexts are never cancelled by the pool.
package async
