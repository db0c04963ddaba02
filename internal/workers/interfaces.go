// Package workers runs the long-lived background loops of the client
// runtime (connectivity probe, sync coordinator) under one context.
package workers

import "context"

// Worker is a background loop. Run blocks until ctx is cancelled or the
// worker fails.
//
// Example implementation:
//
//	type ticker struct{}
//
//	func (ticker) Run(ctx context.Context) error {
//	    <-ctx.Done()
//	    return nil
//	}
type Worker interface {
	Run(ctx context.Context) error
}

// WorkerFunc adapts a plain function to the Worker interface.
type WorkerFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f WorkerFunc) Run(ctx context.Context) error {
	return f(ctx)
}
