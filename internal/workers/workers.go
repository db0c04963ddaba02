package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MKhiriev/go-sync-keeper/internal/logger"
)

// Workers runs a fixed set of named workers side by side.
type Workers struct {
	names   []string
	workers []Worker
	logger  *logger.Logger
}

// NewWorkers returns an empty aggregate. log may be nil.
func NewWorkers(log *logger.Logger) *Workers {
	if log == nil {
		log = logger.Nop()
	}
	return &Workers{logger: log}
}

// Add registers w under name and returns the aggregate for chaining.
func (w *Workers) Add(name string, worker Worker) *Workers {
	w.names = append(w.names, name)
	w.workers = append(w.workers, worker)
	return w
}

// Len reports how many workers are registered.
func (w *Workers) Len() int {
	return len(w.workers)
}

// Run starts every worker in its own goroutine and blocks until all of them
// have returned. The first failure cancels the others. Errors are joined;
// context cancellation is not reported as an error.
func (w *Workers) Run(ctx context.Context) error {
	if len(w.workers) == 0 {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i, worker := range w.workers {
		name := w.names[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.logger.Debug().Str("func", "Workers.Run").Str("worker", name).Msg("worker started")

			err := worker.Run(runCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Err(err).Str("func", "Workers.Run").Str("worker", name).Msg("worker failed")
				mu.Lock()
				errs = append(errs, fmt.Errorf("worker %s: %w", name, err))
				mu.Unlock()
				cancel()
				return
			}
			w.logger.Debug().Str("func", "Workers.Run").Str("worker", name).Msg("worker stopped")
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}
